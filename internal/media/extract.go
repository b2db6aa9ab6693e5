package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
)

var (
	// ErrExtractionUnavailable means the decoding toolchain (ffmpeg) is not
	// installed. Not retryable.
	ErrExtractionUnavailable = errors.New("audio extraction unavailable: ffmpeg not found")
	// ErrExtractionFailed wraps a decode failure. The source file is left
	// untouched.
	ErrExtractionFailed = errors.New("audio extraction failed")
)

// Asset is an extracted or assembled media artifact. The caller owns it after
// return and releases it with Remove.
type Asset struct {
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	MimeType        string  `json:"mime_type"`
	Truncated       bool    `json:"truncated"`
}

// Remove deletes the asset's backing file.
func (a *Asset) Remove() error {
	return os.Remove(a.Path)
}

// ExtractOptions bound the extracted audio track.
type ExtractOptions struct {
	MaxDurationSeconds int // default 1200
	BitrateKbps        int // default 128
}

// Extract derives a bounded-duration mono audio track from a video or audio
// source. Remote sources are streamed to a local temp file first; the
// intermediate download and any partial output are removed on every exit
// path. If the source runs longer than the cap it is clipped and the asset
// is flagged truncated.
func Extract(ctx context.Context, source string, opts ExtractOptions) (*Asset, error) {
	if opts.MaxDurationSeconds <= 0 {
		opts.MaxDurationSeconds = 1200
	}
	if opts.BitrateKbps <= 0 {
		opts.BitrateKbps = 128
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, ErrExtractionUnavailable
	}

	localPath := source
	if IsRemote(source) {
		fetched, err := FetchRemote(ctx, source)
		if err != nil {
			return nil, err
		}
		defer os.Remove(fetched)
		localPath = fetched
	}

	// Probe failure degrades to the configured cap rather than failing the
	// whole extraction.
	duration := float64(opts.MaxDurationSeconds)
	if info, err := Probe(localPath); err != nil {
		log.Printf("[media] probe failed for %s, assuming %ds: %v", source, opts.MaxDurationSeconds, err)
	} else if info.DurationSeconds > 0 {
		duration = info.DurationSeconds
	}

	truncated := duration > float64(opts.MaxDurationSeconds)
	if truncated {
		duration = float64(opts.MaxDurationSeconds)
	}

	tmpFile, err := os.CreateTemp("", "lecture-audio-*.mp3")
	if err != nil {
		return nil, err
	}
	tmpFile.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", localPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", opts.BitrateKbps),
		"-ac", "1",
		"-t", fmt.Sprintf("%d", opts.MaxDurationSeconds),
		"-y",
		tmpFile.Name(),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmpFile.Name())
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg: %s: %v", ErrExtractionFailed, string(output), err)
	}

	info, err := os.Stat(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		return nil, err
	}

	return &Asset{
		Path:            tmpFile.Name(),
		DurationSeconds: duration,
		SizeBytes:       info.Size(),
		MimeType:        "audio/mpeg",
		Truncated:       truncated,
	}, nil
}
