package caption

import "strings"

// SegmentOptions controls how a word stream is cut into caption lines.
// Zero values fall back to the defaults below.
type SegmentOptions struct {
	// PauseThresholdMs starts a new line when the silence between two
	// consecutive words exceeds this many milliseconds.
	PauseThresholdMs int64
	// MaxLineMs caps the elapsed span of a single line.
	MaxLineMs int64
}

const (
	defaultPauseThresholdMs = 500
	defaultMaxLineMs        = 5000
)

// sentenceTerminals end a caption line when the previous word closes with one.
// Includes the Arabic question mark and the CJK full stop.
var sentenceTerminals = []string{".", "!", "?", "؟", "。"}

func endsSentence(word string) bool {
	for _, t := range sentenceTerminals {
		if strings.HasSuffix(word, t) {
			return true
		}
	}
	return false
}

// Segment turns an ordered word stream into caption lines. It is pure: the
// same words and options always produce the same lines.
//
// A new line starts when the speaker changes (only if the stream has more
// than one distinct speaker), when the gap since the previous word exceeds
// the pause threshold, when the line span exceeds the cap, or after a word
// that ends a sentence. Single-speaker audio never carries speaker labels,
// even when the tokens are tagged.
func Segment(words []WordToken, opts SegmentOptions) []Line {
	if opts.PauseThresholdMs <= 0 {
		opts.PauseThresholdMs = defaultPauseThresholdMs
	}
	if opts.MaxLineMs <= 0 {
		opts.MaxLineMs = defaultMaxLineMs
	}
	if len(words) == 0 {
		return nil
	}

	multiSpeaker := countSpeakers(words) > 1

	var lines []Line
	var pending []WordToken

	flush := func() {
		if len(pending) == 0 {
			return
		}
		texts := make([]string, len(pending))
		for i, w := range pending {
			texts[i] = w.Text
		}
		line := Line{
			StartMs: pending[0].StartMs,
			EndMs:   pending[len(pending)-1].EndMs,
			Text:    strings.Join(texts, " "),
		}
		if multiSpeaker {
			line.Speaker = pending[0].Speaker
		}
		lines = append(lines, line)
		pending = pending[:0]
	}

	for _, w := range words {
		if len(pending) > 0 {
			prev := pending[len(pending)-1]
			switch {
			case multiSpeaker && w.Speaker != prev.Speaker:
				flush()
			case w.StartMs-prev.EndMs > opts.PauseThresholdMs:
				flush()
			case w.StartMs-pending[0].StartMs > opts.MaxLineMs:
				flush()
			case endsSentence(prev.Text):
				flush()
			}
		}
		pending = append(pending, w)
	}
	flush()

	return lines
}

func countSpeakers(words []WordToken) int {
	seen := make(map[string]bool)
	for _, w := range words {
		if w.Speaker != "" {
			seen[w.Speaker] = true
		}
	}
	return len(seen)
}
