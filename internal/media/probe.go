package media

import (
	"encoding/json"
	"os/exec"
	"strconv"
)

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type probeStream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"` // video, audio, subtitle
}

// Info is the subset of ffprobe output the pipeline cares about.
type Info struct {
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	HasAudio        bool    `json:"has_audio"`
	HasVideo        bool    `json:"has_video"`
}

// Probe inspects a media file with ffprobe.
func Probe(filePath string) (*Info, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, err
	}

	info := &Info{}
	info.DurationSeconds, _ = strconv.ParseFloat(result.Format.Duration, 64)
	info.SizeBytes, _ = strconv.ParseInt(result.Format.Size, 10, 64)
	for _, s := range result.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			info.HasVideo = true
		}
	}
	return info, nil
}
