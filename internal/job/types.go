package job

import (
	"context"
	"encoding/json"
	"time"
)

// Type represents the kind of job
type Type string

const (
	TypeTranscribe Type = "transcribe"
	TypeTranslate  Type = "translate"
)

// Status represents the current state of a job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job represents a queued task (transcription or caption translation)
type Job struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	Status      Status          `json:"status"`
	AssetRef    string          `json:"asset_ref"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TranscribeParams are parameters for a transcription job
type TranscribeParams struct {
	StorageURI     string           `json:"storage_uri,omitempty"` // remote object for the batch variant
	Language       string           `json:"language"`              // "auto", "ar", "en", etc.
	Diarize        bool             `json:"diarize"`
	MaxSeconds     int              `json:"max_seconds,omitempty"`     // audio clip cap
	ChainTranslate *TranslateParams `json:"chain_translate,omitempty"` // auto-translate after transcribe completes
}

// TranslateParams are parameters for a caption translation job
type TranslateParams struct {
	ArtifactID string `json:"artifact_id"` // source artifact (e.g. "stt_en.vtt")
	TargetLang string `json:"target_lang"` // "ar", "en", "fr", etc.
}

// TranscribeResult is the output of a successful transcription
type TranscribeResult struct {
	VTTPath        string  `json:"vtt_path"`        // relative path to the generated VTT
	TranscriptPath string  `json:"transcript_path"` // relative path to the plain timestamped transcript
	Language       string  `json:"language"`        // detected or specified language
	WordCount      int     `json:"word_count"`
	Truncated      bool    `json:"truncated"` // audio was clipped to the duration cap
	Duration       float64 `json:"duration"`  // processing time in seconds
}

// TranslateResult is the output of a successful translation
type TranslateResult struct {
	OutputPath string  `json:"output_path"` // relative path to the translated artifact
	Language   string  `json:"language"`    // target language
	Duration   float64 `json:"duration"`    // processing time in seconds
}

// Handler processes a job. Implementations are provided by the transcribe
// and translate packages.
type Handler func(ctx context.Context, job *Job, updateProgress func(float64)) error
