package translate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// markerRe matches the timestamp marker grammar: [HH:MM:SS] or [MM:SS].
var markerRe = regexp.MustCompile(`\[(?:\d{1,2}:)?\d{1,2}:\d{2}\]`)

// Markers returns every timestamp marker in text, in order.
func Markers(text string) []string {
	return markerRe.FindAllString(text, -1)
}

// segment is one run of a timestamped transcript: either a marker, which
// must survive translation byte-identical, or the prose between markers.
type segment struct {
	text     string
	isMarker bool
}

func splitMarkers(text string) []segment {
	var segments []segment
	last := 0
	for _, loc := range markerRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segments = append(segments, segment{text: text[last:loc[0]]})
		}
		segments = append(segments, segment{text: text[loc[0]:loc[1]], isMarker: true})
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, segment{text: text[last:]})
	}
	return segments
}

// TranslateText rewrites the prose of a timestamped transcript into the
// target language. Every timestamp marker appears byte-identical, in the
// same order, in the output; only the prose between markers changes.
func TranslateText(ctx context.Context, engine Engine, text, sourceLang, targetLang string) (string, error) {
	segments := splitMarkers(text)

	var prose []string
	var proseIdx []int
	for i, seg := range segments {
		if !seg.isMarker && strings.TrimSpace(seg.text) != "" {
			prose = append(prose, seg.text)
			proseIdx = append(proseIdx, i)
		}
	}
	if len(prose) == 0 {
		return text, nil
	}

	translated, err := engine.TranslateTexts(ctx, prose, sourceLang, targetLang)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}

	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = seg.text
	}
	for i, idx := range proseIdx {
		if i < len(translated) && strings.TrimSpace(translated[i]) != "" {
			// Preserve the surrounding whitespace the prose carried so the
			// markers keep their original spacing.
			out[idx] = reapplyEdges(segments[idx].text, translated[i])
		}
	}
	return strings.Join(out, ""), nil
}

// reapplyEdges transfers leading/trailing whitespace from the original prose
// run onto its translation.
func reapplyEdges(original, translated string) string {
	lead := original[:len(original)-len(strings.TrimLeft(original, " \t\n"))]
	trail := original[len(strings.TrimRight(original, " \t\n")):]
	return lead + strings.TrimSpace(translated) + trail
}
