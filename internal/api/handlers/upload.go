package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/byteilm/media-backend/internal/media"
	"github.com/byteilm/media-backend/internal/upload"
)

type UploadHandler struct {
	store *upload.Store
}

func NewUploadHandler(store *upload.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

// Start opens a new chunked upload session
func (h *UploadHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileName    string `json:"file_name"`
		FileSize    int64  `json:"file_size"`
		TotalChunks int    `json:"total_chunks"`
		MimeType    string `json:"mime_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.store.Start(req.FileName, req.FileSize, req.TotalChunks, req.MimeType)
	if err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}

	jsonResponse(w, map[string]interface{}{
		"upload_id":    sess.ID,
		"chunk_size":   sess.ChunkSize,
		"total_chunks": sess.TotalChunks,
		"expires_at":   sess.ExpiresAt,
	}, http.StatusCreated)
}

// PutChunk stores one chunk from the request body
func (h *UploadHandler) PutChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "invalid chunk index", http.StatusBadRequest)
		return
	}

	if err := h.store.PutChunk(id, index, r.Body); err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}

	received, total, err := h.store.Progress(id)
	if err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}
	jsonResponse(w, map[string]interface{}{
		"ack":             index,
		"uploaded_chunks": received,
		"total_chunks":    total,
	}, http.StatusOK)
}

// Complete assembles the uploaded chunks into a single media asset
func (h *UploadHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, size, err := h.store.Complete(r.Context(), id)
	if err != nil {
		var incomplete *upload.IncompleteError
		if errors.As(err, &incomplete) {
			jsonResponse(w, map[string]interface{}{
				"error":   "incomplete upload",
				"missing": incomplete.Missing,
			}, http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}

	resp := map[string]interface{}{
		"asset_ref":  filepath.Base(path),
		"asset_size": size,
	}
	// Duration is informational; a probe failure does not fail the upload.
	if info, err := media.Probe(path); err == nil && info.DurationSeconds > 0 {
		resp["duration_seconds"] = info.DurationSeconds
	}
	jsonResponse(w, resp, http.StatusOK)
}

// Status reports upload progress
func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.Get(id)
	if err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}
	received, total, err := h.store.Progress(id)
	if err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}

	percent := 0.0
	if total > 0 {
		percent = float64(received) / float64(total) * 100
	}
	jsonResponse(w, map[string]interface{}{
		"status":          sess.Status,
		"uploaded_chunks": received,
		"total_chunks":    total,
		"percent":         percent,
	}, http.StatusOK)
}

// Cancel releases the session and its temp storage
func (h *UploadHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Cancel(id); err != nil {
		jsonError(w, err.Error(), uploadStatus(err))
		return
	}
	jsonResponse(w, map[string]bool{"ok": true}, http.StatusOK)
}

// uploadStatus maps upload sentinels to HTTP status codes.
func uploadStatus(err error) int {
	switch {
	case errors.Is(err, upload.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, upload.ErrInvalidChunkIndex),
		errors.Is(err, upload.ErrChunkSizeMismatch),
		errors.Is(err, upload.ErrUnsupportedMediaType):
		return http.StatusBadRequest
	case errors.Is(err, upload.ErrIncompleteUpload),
		errors.Is(err, upload.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
