package caption

// WordToken is a single transcribed word with millisecond timing. Every
// transcription provider normalizes its native response into this shape.
type WordToken struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Speaker string `json:"speaker,omitempty"`
}

// Line is one caption cue: a time range, text, and an optional speaker label.
type Line struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// Format identifies a caption artifact encoding.
type Format string

const (
	FormatVTT   Format = "vtt"
	FormatSRT   Format = "srt"
	FormatPlain Format = "plain"
)
