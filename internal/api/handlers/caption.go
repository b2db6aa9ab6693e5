package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/byteilm/media-backend/internal/caption"
	"github.com/byteilm/media-backend/internal/transcribe"
)

type CaptionHandler struct {
	captionPath string
}

func NewCaptionHandler(captionPath string) *CaptionHandler {
	return &CaptionHandler{captionPath: captionPath}
}

// Segment cuts a word stream into caption lines
func (h *CaptionHandler) Segment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Words            []caption.WordToken `json:"words"`
		PauseThresholdMs int64               `json:"pause_threshold_ms"`
		MaxLineMs        int64               `json:"max_line_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Words) == 0 {
		jsonError(w, "words required", http.StatusBadRequest)
		return
	}

	lines := caption.Segment(req.Words, caption.SegmentOptions{
		PauseThresholdMs: req.PauseThresholdMs,
		MaxLineMs:        req.MaxLineMs,
	})
	jsonResponse(w, map[string]interface{}{"lines": lines}, http.StatusOK)
}

// Convert re-renders caption content between formats
func (h *CaptionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string         `json:"content"`
		From    caption.Format `json:"from"`
		To      caption.Format `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		jsonError(w, "content required", http.StatusBadRequest)
		return
	}

	var lines []caption.Line
	switch req.From {
	case caption.FormatPlain:
		lines = caption.ParseTimestamped(req.Content)
	case caption.FormatVTT:
		lines = caption.ParseVTT([]byte(req.Content))
	default:
		jsonError(w, "unsupported source format", http.StatusBadRequest)
		return
	}
	if len(lines) == 0 {
		jsonError(w, "no caption cues found", http.StatusBadRequest)
		return
	}

	var out []byte
	var contentType string
	switch req.To {
	case caption.FormatVTT:
		out = caption.ToVTT(lines)
		contentType = "text/vtt"
	case caption.FormatSRT:
		out = caption.ToSRT(lines)
		contentType = "application/x-subrip"
	case caption.FormatPlain:
		out = caption.ToPlainTimestamped(lines)
		contentType = "text/plain"
	default:
		jsonError(w, "unsupported target format", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Write(out)
}

// ValidateSRT is an upload sanity check for externally produced subtitles
func (h *CaptionHandler) ValidateSRT(w http.ResponseWriter, r *http.Request) {
	content, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	jsonResponse(w, map[string]bool{"valid": caption.ValidateSRT(content)}, http.StatusOK)
}

// List returns the generated caption artifacts for an asset
func (h *CaptionHandler) List(w http.ResponseWriter, r *http.Request) {
	assetRef := chi.URLParam(r, "asset")
	if assetRef == "" {
		jsonError(w, "missing asset reference", http.StatusBadRequest)
		return
	}

	dir := filepath.Join(h.captionPath, transcribe.AssetHash(assetRef))
	entries, err := os.ReadDir(dir)
	if err != nil {
		jsonResponse(w, map[string]interface{}{"artifacts": []string{}}, http.StatusOK)
		return
	}

	artifacts := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			artifacts = append(artifacts, e.Name())
		}
	}
	jsonResponse(w, map[string]interface{}{"artifacts": artifacts}, http.StatusOK)
}

// Content serves one generated caption artifact
func (h *CaptionHandler) Content(w http.ResponseWriter, r *http.Request) {
	assetRef := chi.URLParam(r, "asset")
	name := filepath.Base(chi.URLParam(r, "name"))
	if assetRef == "" || name == "" || name == "." {
		jsonError(w, "missing asset or artifact name", http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.captionPath, transcribe.AssetHash(assetRef), name)
	data, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, "artifact not found", http.StatusNotFound)
		return
	}

	switch {
	case strings.HasSuffix(name, ".vtt"):
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	case strings.HasSuffix(name, ".srt"):
		w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Write(data)
}
