package caption

import (
	"reflect"
	"testing"
)

func word(text string, start, end int64, speaker string) WordToken {
	return WordToken{Text: text, StartMs: start, EndMs: end, Speaker: speaker}
}

func TestSegmentPauseBreak(t *testing.T) {
	words := []WordToken{
		word("so", 0, 200, ""),
		word("today", 250, 600, ""),
		// 800ms of silence, above the default threshold
		word("we", 1400, 1600, ""),
		word("begin", 1650, 2000, ""),
	}

	lines := Segment(words, SegmentOptions{})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].Text != "so today" {
		t.Errorf("first line text = %q", lines[0].Text)
	}
	if lines[1].Text != "we begin" {
		t.Errorf("second line text = %q", lines[1].Text)
	}
	if lines[0].StartMs != 0 || lines[0].EndMs != 600 {
		t.Errorf("first line span = [%d,%d]", lines[0].StartMs, lines[0].EndMs)
	}
	if lines[1].StartMs != 1400 || lines[1].EndMs != 2000 {
		t.Errorf("second line span = [%d,%d]", lines[1].StartMs, lines[1].EndMs)
	}
}

func TestSegmentSpeakerChange(t *testing.T) {
	words := []WordToken{
		word("hello", 0, 300, "S1"),
		word("everyone", 350, 800, "S1"),
		word("thanks", 900, 1200, "S2"),
	}

	lines := Segment(words, SegmentOptions{})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Speaker != "S1" || lines[1].Speaker != "S2" {
		t.Errorf("speakers = %q, %q", lines[0].Speaker, lines[1].Speaker)
	}
}

func TestSegmentSingleSpeakerDropsLabels(t *testing.T) {
	// A lone tagged speaker carries no information; lines stay unlabeled.
	words := []WordToken{
		word("one", 0, 200, "S1"),
		word("voice", 250, 500, "S1"),
	}

	lines := Segment(words, SegmentOptions{})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Speaker != "" {
		t.Errorf("expected empty speaker, got %q", lines[0].Speaker)
	}
}

func TestSegmentSentenceBoundary(t *testing.T) {
	words := []WordToken{
		word("done.", 0, 400, ""),
		word("next", 500, 800, ""),
		word("topic؟", 850, 1200, ""),
		word("yes", 1300, 1500, ""),
	}

	lines := Segment(words, SegmentOptions{})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].Text != "done." || lines[1].Text != "next topic؟" || lines[2].Text != "yes" {
		t.Errorf("unexpected texts: %+v", lines)
	}
}

func TestSegmentMaxLineCap(t *testing.T) {
	// Continuous speech with no pauses or punctuation still gets cut when a
	// line's span exceeds the cap.
	var words []WordToken
	for i := int64(0); i < 20; i++ {
		words = append(words, word("w", i*400, i*400+350, ""))
	}

	lines := Segment(words, SegmentOptions{MaxLineMs: 2000})
	if len(lines) < 3 {
		t.Fatalf("expected the cap to split the stream, got %d lines", len(lines))
	}
	for _, l := range lines {
		if l.EndMs-l.StartMs > 2000+400 {
			t.Errorf("line span %dms exceeds cap: %+v", l.EndMs-l.StartMs, l)
		}
	}
}

func TestSegmentDeterministic(t *testing.T) {
	words := []WordToken{
		word("a", 0, 100, "S1"),
		word("b.", 150, 300, "S1"),
		word("c", 400, 600, "S2"),
		word("d", 1500, 1700, "S2"),
	}

	first := Segment(words, SegmentOptions{})
	for i := 0; i < 5; i++ {
		again := Segment(words, SegmentOptions{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestSegmentEmpty(t *testing.T) {
	if lines := Segment(nil, SegmentOptions{}); lines != nil {
		t.Errorf("expected nil for empty input, got %+v", lines)
	}
}
