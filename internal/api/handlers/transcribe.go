package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/byteilm/media-backend/internal/job"
	"github.com/byteilm/media-backend/internal/media"
	"github.com/byteilm/media-backend/internal/transcribe"
	"github.com/byteilm/media-backend/internal/translate"
)

type TranscribeHandler struct {
	client          *transcribe.Client
	engine          translate.Engine
	queue           *job.Queue
	assetPath       string
	maxAudioSeconds int
}

func NewTranscribeHandler(client *transcribe.Client, engine translate.Engine, queue *job.Queue, assetPath string, maxAudioSeconds int) *TranscribeHandler {
	return &TranscribeHandler{
		client:          client,
		engine:          engine,
		queue:           queue,
		assetPath:       assetPath,
		maxAudioSeconds: maxAudioSeconds,
	}
}

// Sync transcribes a short asset in-request and returns the words directly.
// Long audio belongs on the async path; this endpoint blocks the caller.
func (h *TranscribeHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetRef string `json:"asset_ref"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AssetRef == "" {
		jsonError(w, "asset_ref required", http.StatusBadRequest)
		return
	}

	source := filepath.Join(h.assetPath, filepath.Base(req.AssetRef))
	if _, err := os.Stat(source); os.IsNotExist(err) {
		jsonError(w, "asset not found", http.StatusNotFound)
		return
	}

	asset, err := media.Extract(r.Context(), source, media.ExtractOptions{
		MaxDurationSeconds: h.maxAudioSeconds,
	})
	if err != nil {
		jsonError(w, err.Error(), transcribeStatus(err))
		return
	}
	defer asset.Remove()

	result, err := h.client.Transcribe(r.Context(), transcribe.Request{
		AudioPath:       asset.Path,
		MimeType:        asset.MimeType,
		DurationSeconds: asset.DurationSeconds,
		LanguageHint:    req.Language,
	})
	if err != nil {
		jsonError(w, err.Error(), transcribeStatus(err))
		return
	}

	jsonResponse(w, result, http.StatusOK)
}

// Start enqueues an asynchronous transcription job
func (h *TranscribeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetRef       string               `json:"asset_ref"`
		StorageURI     string               `json:"storage_uri"`
		Language       string               `json:"language"`
		Diarize        bool                 `json:"diarize"`
		MaxSeconds     int                  `json:"max_seconds"`
		ChainTranslate *job.TranslateParams `json:"chain_translate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AssetRef == "" && req.StorageURI == "" {
		jsonError(w, "asset_ref or storage_uri required", http.StatusBadRequest)
		return
	}

	assetRef := req.AssetRef
	if assetRef == "" {
		assetRef = req.StorageURI
	}

	j, err := h.queue.Enqueue(job.TypeTranscribe, assetRef, job.TranscribeParams{
		StorageURI:     req.StorageURI,
		Language:       req.Language,
		Diarize:        req.Diarize,
		MaxSeconds:     req.MaxSeconds,
		ChainTranslate: req.ChainTranslate,
	})
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]string{"job_id": j.ID}, http.StatusAccepted)
}

// Translate enqueues a caption translation job
func (h *TranscribeHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetRef   string `json:"asset_ref"`
		ArtifactID string `json:"artifact_id"`
		TargetLang string `json:"target_lang"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.AssetRef == "" || req.ArtifactID == "" || req.TargetLang == "" {
		jsonError(w, "asset_ref, artifact_id and target_lang required", http.StatusBadRequest)
		return
	}

	j, err := h.queue.Enqueue(job.TypeTranslate, req.AssetRef, job.TranslateParams{
		ArtifactID: req.ArtifactID,
		TargetLang: req.TargetLang,
	})
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]string{"job_id": j.ID}, http.StatusAccepted)
}

// DetectLanguage identifies the language of a transcript snippet. Detection
// is advisory: it always answers, falling back to the default language.
func (h *TranscribeHandler) DetectLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		jsonError(w, "text required", http.StatusBadRequest)
		return
	}

	lang := translate.DetectLanguage(r.Context(), h.engine, req.Text)
	jsonResponse(w, lang, http.StatusOK)
}

// transcribeStatus maps pipeline sentinels to HTTP status codes.
func transcribeStatus(err error) int {
	switch {
	case errors.Is(err, media.ErrExtractionUnavailable),
		errors.Is(err, transcribe.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, media.ErrExtractionFailed),
		errors.Is(err, transcribe.ErrProviderJobFailed):
		return http.StatusBadGateway
	case errors.Is(err, transcribe.ErrProviderTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
