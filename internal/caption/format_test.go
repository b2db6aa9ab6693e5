package caption

import (
	"strings"
	"testing"
)

func TestToVTT(t *testing.T) {
	lines := []Line{
		{StartMs: 0, EndMs: 2500, Text: "welcome back", Speaker: "S1"},
		{StartMs: 2600, EndMs: 5100, Text: "let's continue"},
	}

	out := string(ToVTT(lines))
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Fatalf("missing WEBVTT header: %q", out)
	}
	if !strings.Contains(out, "00:00:00.000 --> 00:00:02.500") {
		t.Errorf("missing first cue range: %q", out)
	}
	if !strings.Contains(out, "S1: welcome back") {
		t.Errorf("missing speaker prefix: %q", out)
	}
	if !strings.Contains(out, "00:00:02.600 --> 00:00:05.100") {
		t.Errorf("missing second cue range: %q", out)
	}
}

func TestToSRTUsesCommaSeparator(t *testing.T) {
	lines := []Line{{StartMs: 61500, EndMs: 63000, Text: "over a minute in"}}

	out := string(ToSRT(lines))
	if !strings.Contains(out, "00:01:01,500 --> 00:01:03,000") {
		t.Errorf("unexpected SRT timing: %q", out)
	}
	if strings.Contains(out, "WEBVTT") {
		t.Errorf("SRT output carries a VTT header: %q", out)
	}
}

func TestSyntheticEndTimes(t *testing.T) {
	// First cue has no end and a close successor: end borrows the successor's
	// start. Last cue has no end and no successor: flat 5s.
	lines := []Line{
		{StartMs: 1000, Text: "first"},
		{StartMs: 3000, Text: "last"},
	}

	out := string(ToVTT(lines))
	if !strings.Contains(out, "00:00:01.000 --> 00:00:03.000") {
		t.Errorf("first cue should end at successor start: %q", out)
	}
	if !strings.Contains(out, "00:00:03.000 --> 00:00:08.000") {
		t.Errorf("last cue should get a flat 5s: %q", out)
	}
}

func TestPlainTimestampedRoundTrip(t *testing.T) {
	// Markers carry whole seconds, so second-aligned cues survive exactly.
	lines := []Line{
		{StartMs: 0, EndMs: 4000, Text: "intro"},
		{StartMs: 4000, EndMs: 9000, Text: "first topic"},
		{StartMs: 3600000, EndMs: 3604000, Text: "one hour in"},
	}

	out := string(ToPlainTimestamped(lines))
	if !strings.Contains(out, "[00:00] intro") {
		t.Errorf("expected short marker under one hour: %q", out)
	}
	if !strings.Contains(out, "[01:00:00] one hour in") {
		t.Errorf("expected long marker past one hour: %q", out)
	}

	parsed := ParseTimestamped(out)
	if len(parsed) != len(lines) {
		t.Fatalf("expected %d cues, got %d", len(lines), len(parsed))
	}
	for i := range lines {
		if parsed[i].StartMs != lines[i].StartMs {
			t.Errorf("cue %d start = %d, want %d", i, parsed[i].StartMs, lines[i].StartMs)
		}
		if parsed[i].Text != lines[i].Text {
			t.Errorf("cue %d text = %q, want %q", i, parsed[i].Text, lines[i].Text)
		}
	}
}

func TestParseTimestampedContinuation(t *testing.T) {
	text := "[00:10] a cue that\nwraps onto the next line\n[00:20] second cue\n"

	lines := ParseTimestamped(text)
	if len(lines) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(lines), lines)
	}
	if lines[0].Text != "a cue that wraps onto the next line" {
		t.Errorf("continuation not joined: %q", lines[0].Text)
	}
	if lines[0].EndMs != 20000 {
		t.Errorf("first cue should close at the next marker, got %d", lines[0].EndMs)
	}
}

func TestVTTRoundTrip(t *testing.T) {
	lines := []Line{
		{StartMs: 500, EndMs: 2500, Text: "hello there"},
		{StartMs: 2600, EndMs: 4800, Text: "and welcome"},
	}

	parsed := ParseVTT(ToVTT(lines))
	if len(parsed) != len(lines) {
		t.Fatalf("expected %d cues, got %d", len(lines), len(parsed))
	}
	for i := range lines {
		if parsed[i].StartMs != lines[i].StartMs || parsed[i].EndMs != lines[i].EndMs {
			t.Errorf("cue %d timing = [%d,%d], want [%d,%d]",
				i, parsed[i].StartMs, parsed[i].EndMs, lines[i].StartMs, lines[i].EndMs)
		}
		if parsed[i].Text != lines[i].Text {
			t.Errorf("cue %d text = %q, want %q", i, parsed[i].Text, lines[i].Text)
		}
	}
}

func TestValidateSRT(t *testing.T) {
	valid := "1\n00:00:01,000 --> 00:00:03,000\nfirst subtitle\n\n2\n00:00:04,000 --> 00:00:06,000\nsecond\n"
	if !ValidateSRT([]byte(valid)) {
		t.Error("well-formed SRT rejected")
	}

	cases := map[string]string{
		"empty":    "",
		"vtt":      "WEBVTT\n\n1\n00:00:01.000 --> 00:00:03.000\ntext\n",
		"no index": "00:00:01,000 --> 00:00:03,000\ntext\n",
		"no text":  "1\n00:00:01,000 --> 00:00:03,000\n\n",
		"prose":    "this is just a paragraph of text",
	}
	for name, content := range cases {
		if ValidateSRT([]byte(content)) {
			t.Errorf("%s: invalid SRT accepted: %q", name, content)
		}
	}
}
