package transcribe

import (
	"context"
	"errors"

	"github.com/byteilm/media-backend/internal/caption"
)

var (
	// ErrNotConfigured means no provider variant with the required
	// credentials is available for the request.
	ErrNotConfigured = errors.New("transcription provider not configured")
	// ErrProviderJobFailed means the remote job reported a terminal error.
	// The provider's message is attached.
	ErrProviderJobFailed = errors.New("provider job failed")
	// ErrProviderTimeout means polling attempts were exhausted. Remote
	// resources are cleaned up; the caller must submit a fresh job.
	ErrProviderTimeout = errors.New("provider polling attempts exhausted")
)

// Request describes one transcription. Exactly one of AudioPath or
// StorageURI is set.
type Request struct {
	AudioPath       string  // local audio file
	StorageURI      string  // object-storage URI for the batch variant
	MimeType        string  // mime of the audio payload
	DurationSeconds float64 // used to pick the sync variant
	LanguageHint    string  // BCP-47 hint, "" or "auto" to detect
	Diarize         bool    // request speaker labels where supported
}

// Result is the canonical output of every provider variant. Vendor-specific
// response shapes never leak past this package.
type Result struct {
	Words      []caption.WordToken `json:"words"`
	Transcript string              `json:"transcript"`
	Language   string              `json:"language"`
}

// Provider is one transcription backend variant.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
	Name() string
}
