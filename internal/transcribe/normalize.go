package transcribe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/byteilm/media-backend/internal/caption"
)

// speechWord is the word shape shared by the sync and batch recognizer
// responses.
type speechWord struct {
	StartTime  string `json:"startTime"` // e.g. "1.300s"
	EndTime    string `json:"endTime"`
	Word       string `json:"word"`
	SpeakerTag int    `json:"speakerTag,omitempty"`
}

type speechAlternative struct {
	Transcript string       `json:"transcript"`
	Words      []speechWord `json:"words"`
}

type speechResult struct {
	Alternatives []speechAlternative `json:"alternatives"`
	LanguageCode string              `json:"languageCode"`
}

// normalizeSpeechResults flattens recognizer results into the canonical
// token format.
func normalizeSpeechResults(results []speechResult, fallbackLang string) *Result {
	out := &Result{Language: fallbackLang}
	var transcript []string

	for _, res := range results {
		if len(res.Alternatives) == 0 {
			continue
		}
		alt := res.Alternatives[0]
		if alt.Transcript != "" {
			transcript = append(transcript, strings.TrimSpace(alt.Transcript))
		}
		if res.LanguageCode != "" {
			out.Language = res.LanguageCode
		}
		for _, w := range alt.Words {
			token := caption.WordToken{
				Text:    w.Word,
				StartMs: durationStringMs(w.StartTime),
				EndMs:   durationStringMs(w.EndTime),
			}
			if w.SpeakerTag > 0 {
				token.Speaker = fmt.Sprintf("S%d", w.SpeakerTag)
			}
			out.Words = append(out.Words, token)
		}
	}
	out.Transcript = strings.Join(transcript, " ")
	return out
}

func wordToken(text string, startMs, endMs int64, speaker string) caption.WordToken {
	return caption.WordToken{Text: text, StartMs: startMs, EndMs: endMs, Speaker: speaker}
}

// durationStringMs parses a protobuf duration string like "12.345s" into
// milliseconds.
func durationStringMs(s string) int64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "s")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f * 1000)
}
