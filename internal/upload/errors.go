package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound means the upload id is unknown or already released.
	ErrSessionNotFound = errors.New("upload session not found")
	// ErrInvalidChunkIndex means the chunk index is outside [0, totalChunks).
	ErrInvalidChunkIndex = errors.New("invalid chunk index")
	// ErrIncompleteUpload means complete() was called before every chunk
	// arrived. Wrapped by IncompleteError, which lists the missing indices.
	ErrIncompleteUpload = errors.New("incomplete upload")
	// ErrChunkSizeMismatch means the declared totalChunks does not match
	// ceil(fileSize / chunkSize) for the configured chunk size.
	ErrChunkSizeMismatch = errors.New("total chunks inconsistent with chunk size")
	// ErrUnsupportedMediaType means the declared mime type is not an
	// audio/video type this service ingests.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrSessionClosed means the session reached a terminal or assembling
	// state and no longer accepts chunks.
	ErrSessionClosed = errors.New("upload session closed")
)

// IncompleteError reports which chunk indices are still missing.
type IncompleteError struct {
	Missing []int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete upload: missing chunks %v", e.Missing)
}

func (e *IncompleteError) Unwrap() error { return ErrIncompleteUpload }
