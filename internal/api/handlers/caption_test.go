package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/byteilm/media-backend/internal/caption"
	"github.com/byteilm/media-backend/internal/transcribe"
)

func captionRouter(captionPath string) *chi.Mux {
	h := NewCaptionHandler(captionPath)
	r := chi.NewRouter()
	r.Post("/caption/segment", h.Segment)
	r.Post("/caption/convert", h.Convert)
	r.Post("/caption/validate", h.ValidateSRT)
	r.Get("/caption/list/{asset}", h.List)
	r.Get("/caption/content/{asset}/{name}", h.Content)
	return r
}

func TestSegmentEndpoint(t *testing.T) {
	r := captionRouter(t.TempDir())

	body := `{"words":[
		{"text":"hello","start_ms":0,"end_ms":300},
		{"text":"there.","start_ms":350,"end_ms":700},
		{"text":"next","start_ms":800,"end_ms":1100}
	]}`
	req := httptest.NewRequest("POST", "/caption/segment", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Lines []caption.Line `json:"lines"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Lines) != 2 {
		t.Errorf("lines = %d, want 2: %+v", len(resp.Lines), resp.Lines)
	}
}

func TestSegmentEndpointRejectsEmpty(t *testing.T) {
	r := captionRouter(t.TempDir())

	req := httptest.NewRequest("POST", "/caption/segment", strings.NewReader(`{"words":[]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConvertPlainToSRT(t *testing.T) {
	r := captionRouter(t.TempDir())

	body := `{"content":"[00:01] first cue\n[00:04] second cue\n","from":"plain","to":"srt"}`
	req := httptest.NewRequest("POST", "/caption/convert", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	out := w.Body.String()
	if !strings.Contains(out, "00:00:01,000 --> 00:00:04,000") {
		t.Errorf("unexpected SRT body: %q", out)
	}
	if !caption.ValidateSRT(w.Body.Bytes()) {
		t.Errorf("convert produced invalid SRT: %q", out)
	}
}

func TestConvertRejectsUnknownFormat(t *testing.T) {
	r := captionRouter(t.TempDir())

	body := `{"content":"[00:01] cue","from":"plain","to":"ass"}`
	req := httptest.NewRequest("POST", "/caption/convert", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestValidateSRTEndpoint(t *testing.T) {
	r := captionRouter(t.TempDir())

	req := httptest.NewRequest("POST", "/caption/validate",
		strings.NewReader("1\n00:00:01,000 --> 00:00:03,000\nwords\n"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid {
		t.Error("well-formed SRT reported invalid")
	}
}

func TestListAndContent(t *testing.T) {
	dir := t.TempDir()
	assetRef := "abc123_lecture.mp4"
	artifactDir := filepath.Join(dir, transcribe.AssetHash(assetRef))
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		t.Fatal(err)
	}
	vtt := "WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nhello\n\n"
	if err := os.WriteFile(filepath.Join(artifactDir, "stt_en.vtt"), []byte(vtt), 0644); err != nil {
		t.Fatal(err)
	}

	r := captionRouter(dir)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/caption/list/"+assetRef, nil))
	var listResp struct {
		Artifacts []string `json:"artifacts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Artifacts) != 1 || listResp.Artifacts[0] != "stt_en.vtt" {
		t.Errorf("artifacts = %v", listResp.Artifacts)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/caption/content/"+assetRef+"/stt_en.vtt", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("content status = %d", w.Code)
	}
	if w.Body.String() != vtt {
		t.Errorf("content = %q, want the stored artifact", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vtt") {
		t.Errorf("content type = %q", ct)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/caption/content/"+assetRef+"/missing.vtt", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing artifact status = %d, want 404", w.Code)
	}
}
