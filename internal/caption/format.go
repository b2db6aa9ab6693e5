package caption

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// syntheticLineMs is the flat end time added to a cue with no explicit end
// and no successor to borrow one from.
const syntheticLineMs = 5000

// markerRe matches a leading [HH:MM:SS] or [MM:SS] marker on a transcript line.
var markerRe = regexp.MustCompile(`^\[(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\]\s*`)

// srtBlockRe matches one structurally valid SRT block: index, time range with
// comma milliseconds, and at least one text line.
var srtBlockRe = regexp.MustCompile(`(?m)^\d+\r?\n\d{2}:\d{2}:\d{2},\d{3}\s*-->\s*\d{2}:\d{2}:\d{2},\d{3}.*\r?\n\S`)

// ToVTT renders lines as a WebVTT document. Missing end times are synthesized
// as min(next line's start, this line's start + 5s); the final line gets a
// flat 5s.
func ToVTT(lines []Line) []byte {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i, line := range lines {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(formatVTTTimestamp(line.StartMs))
		sb.WriteString(" --> ")
		sb.WriteString(formatVTTTimestamp(lineEnd(lines, i)))
		sb.WriteByte('\n')
		sb.WriteString(cueText(line))
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

// ToSRT renders lines as SubRip. Same structure as VTT but comma millisecond
// separators and no header.
func ToSRT(lines []Line) []byte {
	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(formatSRTTimestamp(line.StartMs))
		sb.WriteString(" --> ")
		sb.WriteString(formatSRTTimestamp(lineEnd(lines, i)))
		sb.WriteByte('\n')
		sb.WriteString(cueText(line))
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

// ToPlainTimestamped renders lines as a human-readable transcript, one cue per
// line, each introduced by a [HH:MM:SS] marker ([MM:SS] under one hour).
func ToPlainTimestamped(lines []Line) []byte {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(formatMarker(line.StartMs))
		sb.WriteByte(' ')
		sb.WriteString(cueText(line))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// ParseTimestamped parses a plain timestamped transcript back into lines.
// A marker opens a new cue; marker-less lines are appended to the open cue.
// A cue closes when the next marker appears or at end of input, with the same
// synthetic end rule ToVTT uses.
func ParseTimestamped(text string) []Line {
	var lines []Line
	var current *Line

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if m := markerRe.FindStringSubmatch(trimmed); m != nil {
			if current != nil {
				lines = append(lines, *current)
			}
			current = &Line{
				StartMs: markerToMs(m),
				Text:    strings.TrimSpace(trimmed[len(m[0]):]),
			}
			continue
		}
		if current != nil {
			if current.Text != "" {
				current.Text += " "
			}
			current.Text += trimmed
		}
	}
	if current != nil {
		lines = append(lines, *current)
	}

	// Close cues against their successor.
	for i := range lines {
		lines[i].EndMs = lineEnd(lines, i)
	}
	return lines
}

// ValidateSRT reports whether content contains at least one structurally
// valid SRT block. Used as an upload sanity check, not a full parse.
func ValidateSRT(content []byte) bool {
	return srtBlockRe.Match(content)
}

// lineEnd resolves the end time of lines[i], synthesizing one when absent.
func lineEnd(lines []Line, i int) int64 {
	line := lines[i]
	if line.EndMs > line.StartMs {
		return line.EndMs
	}
	end := line.StartMs + syntheticLineMs
	if i+1 < len(lines) && lines[i+1].StartMs < end {
		end = lines[i+1].StartMs
	}
	return end
}

func cueText(line Line) string {
	if line.Speaker != "" {
		return line.Speaker + ": " + line.Text
	}
	return line.Text
}

func formatVTTTimestamp(ms int64) string {
	h, m, s, frac := splitClock(ms)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}

func formatSRTTimestamp(ms int64) string {
	h, m, s, frac := splitClock(ms)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, frac)
}

func formatMarker(ms int64) string {
	h, m, s, _ := splitClock(ms)
	if h > 0 {
		return fmt.Sprintf("[%02d:%02d:%02d]", h, m, s)
	}
	return fmt.Sprintf("[%02d:%02d]", m, s)
}

func splitClock(ms int64) (h, m, s, frac int64) {
	if ms < 0 {
		ms = 0
	}
	h = ms / 3600000
	ms %= 3600000
	m = ms / 60000
	ms %= 60000
	return h, m, ms / 1000, ms % 1000
}

func markerToMs(m []string) int64 {
	hours := int64(0)
	if m[1] != "" {
		hours, _ = strconv.ParseInt(m[1], 10, 64)
	}
	mins, _ := strconv.ParseInt(m[2], 10, 64)
	secs, _ := strconv.ParseInt(m[3], 10, 64)
	return (hours*3600 + mins*60 + secs) * 1000
}

// ParseVTT parses WebVTT content into lines. Tolerates cue numbers and CRLF.
func ParseVTT(content []byte) []Line {
	timeRe := regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[.,](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[.,](\d{3})`)

	var lines []Line
	var current *Line

	for _, raw := range strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || trimmed == "WEBVTT" {
			if current != nil && current.Text != "" {
				lines = append(lines, *current)
				current = nil
			}
			continue
		}
		if m := timeRe.FindStringSubmatch(trimmed); m != nil {
			if current != nil && current.Text != "" {
				lines = append(lines, *current)
			}
			current = &Line{
				StartMs: clockToMs(m[1], m[2], m[3], m[4]),
				EndMs:   clockToMs(m[5], m[6], m[7], m[8]),
			}
			continue
		}
		// Cue numbers sit on their own line before the time range.
		if _, err := strconv.Atoi(trimmed); err == nil && current == nil {
			continue
		}
		if current != nil {
			if current.Text != "" {
				current.Text += " "
			}
			current.Text += trimmed
		}
	}
	if current != nil && current.Text != "" {
		lines = append(lines, *current)
	}
	return lines
}

func clockToMs(h, m, s, frac string) int64 {
	hv, _ := strconv.ParseInt(h, 10, 64)
	mv, _ := strconv.ParseInt(m, 10, 64)
	sv, _ := strconv.ParseInt(s, 10, 64)
	fv, _ := strconv.ParseInt(frac, 10, 64)
	return (hv*3600+mv*60+sv)*1000 + fv
}
