package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultGenerativeEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// uploadWindowSize is the fixed transfer window for resumable uploads. The
// payload is never materialized in application memory.
const uploadWindowSize = 8 * 1024 * 1024

// ResumableProvider is the large-file variant: open a resumable upload
// session to obtain a write target, stream the audio into it in fixed
// windows, then ask the model for a word-timed transcript of the uploaded
// object, with optional diarization.
type ResumableProvider struct {
	apiKey   string
	endpoint string
	model    string
	hc       *http.Client
	bulkHC   *http.Client
	poll     PollConfig
}

func NewResumableProvider(apiKey, model string, poll PollConfig) *ResumableProvider {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &ResumableProvider{
		apiKey:   apiKey,
		endpoint: defaultGenerativeEndpoint,
		model:    model,
		hc: &http.Client{
			Timeout: 30 * time.Second, // session open / status class
		},
		bulkHC: &http.Client{
			Timeout: 10 * time.Minute, // window transfer and generation class
		},
		poll: poll,
	}
}

func (p *ResumableProvider) Name() string { return "gemini-resumable" }

func (p *ResumableProvider) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if p.apiKey == "" {
		return nil, ErrNotConfigured
	}

	info, err := os.Stat(req.AudioPath)
	if err != nil {
		return nil, err
	}

	uploadURL, err := p.openUploadSession(ctx, info.Size(), req.MimeType)
	if err != nil {
		return nil, fmt.Errorf("open upload session: %w", err)
	}

	file, err := p.streamUpload(ctx, uploadURL, req.AudioPath, info.Size())
	if err != nil {
		return nil, fmt.Errorf("stream upload: %w", err)
	}
	// The provider supports deletion; never leave an orphaned remote object,
	// whether we finish, fail, or get cancelled.
	defer p.deleteFile(file.Name)

	if err := p.waitActive(ctx, file); err != nil {
		return nil, err
	}

	result, err := p.generateTranscript(ctx, file.URI, req)
	if err != nil {
		return nil, err
	}
	log.Printf("[stt] resumable transcription complete: file=%s words=%d", file.Name, len(result.Words))
	return result, nil
}

type remoteFile struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// openUploadSession starts a resumable upload and returns the write target.
// Size and content type travel as headers so the provider can preallocate.
func (p *ResumableProvider) openUploadSession(ctx context.Context, size int64, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}
	body, _ := json.Marshal(map[string]interface{}{
		"file": map[string]string{"display_name": "lecture-audio"},
	})

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		strings.Replace(p.endpoint, "/v1beta", "/upload/v1beta", 1)+"/files", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-goog-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Upload-Protocol", "resumable")
	httpReq.Header.Set("X-Goog-Upload-Command", "start")
	httpReq.Header.Set("X-Goog-Upload-Header-Content-Length", fmt.Sprintf("%d", size))
	httpReq.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload session (status %d): %s", resp.StatusCode, string(respBody))
	}

	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return "", fmt.Errorf("upload session returned no upload URL")
	}
	return uploadURL, nil
}

// streamUpload sends the file through the write target in fixed windows,
// finalizing with the last one.
func (p *ResumableProvider) streamUpload(ctx context.Context, uploadURL, path string, size int64) (*remoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, uploadWindowSize)
	var offset int64
	for {
		n, readErr := io.ReadFull(f, buf)
		if readErr == io.EOF {
			break
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return nil, readErr
		}
		last := offset+int64(n) >= size

		httpReq, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(buf[:n]))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("X-Goog-Upload-Offset", fmt.Sprintf("%d", offset))
		if last {
			httpReq.Header.Set("X-Goog-Upload-Command", "upload, finalize")
		} else {
			httpReq.Header.Set("X-Goog-Upload-Command", "upload")
		}

		resp, err := p.bulkHC.Do(httpReq)
		if err != nil {
			return nil, err
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("upload window at offset %d (status %d): %s", offset, resp.StatusCode, string(respBody))
		}

		offset += int64(n)
		if last {
			var finalized struct {
				File remoteFile `json:"file"`
			}
			if err := json.Unmarshal(respBody, &finalized); err != nil {
				return nil, fmt.Errorf("parse finalize response: %w", err)
			}
			if finalized.File.Name == "" {
				return nil, fmt.Errorf("finalize returned no file")
			}
			return &finalized.File, nil
		}
	}
	return nil, fmt.Errorf("source shrank during upload: read %d of %d bytes", offset, size)
}

// waitActive polls the uploaded file until it is processed.
func (p *ResumableProvider) waitActive(ctx context.Context, file *remoteFile) error {
	if file.State == "ACTIVE" {
		return nil
	}
	poller := NewPoller(p.poll, func(ctx context.Context) (CheckResult, error) {
		current, err := p.getFile(ctx, file.Name)
		if err != nil {
			return CheckResult{}, err
		}
		switch current.State {
		case "ACTIVE":
			file.URI = current.URI
			return CheckResult{Done: true}, nil
		case "FAILED", "ERROR":
			return CheckResult{Failed: true, Message: current.Error.Message}, nil
		default:
			return CheckResult{}, nil
		}
	})
	return poller.Wait(ctx)
}

func (p *ResumableProvider) getFile(ctx context.Context, name string) (*remoteFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", p.endpoint+"/"+name, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file status (status %d): %s", resp.StatusCode, string(respBody))
	}
	var file remoteFile
	if err := json.Unmarshal(respBody, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// deleteFile removes the uploaded object. Best effort: a leftover file only
// costs quota, and it expires server-side anyway.
func (p *ResumableProvider) deleteFile(name string) {
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "DELETE", p.endpoint+"/"+name, nil)
	if err != nil {
		return
	}
	httpReq.Header.Set("x-goog-api-key", p.apiKey)
	if resp, err := p.hc.Do(httpReq); err == nil {
		resp.Body.Close()
	}
}

const transcriptInstruction = `Transcribe the audio. Return ONLY JSON of the form
{"language":"<iso 639-1>","words":[{"text":"<word>","start_ms":0,"end_ms":0,"speaker":"S1"}]}
with one entry per spoken word in order. Millisecond times are offsets from the
start of the audio. Include punctuation attached to the word it follows.`

// generateTranscript asks the model for a word-timed transcript of the
// uploaded object.
func (p *ResumableProvider) generateTranscript(ctx context.Context, fileURI string, req Request) (*Result, error) {
	instruction := transcriptInstruction
	if req.Diarize {
		instruction += `
Label each word's "speaker" as S1, S2, ... by voice. Keep labels stable.`
	} else {
		instruction += `
Omit the "speaker" field.`
	}
	if req.LanguageHint != "" && req.LanguageHint != "auto" {
		instruction += fmt.Sprintf("\nThe audio is in %q.", req.LanguageHint)
	}

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"file_data": map[string]string{"file_uri": fileURI, "mime_type": req.MimeType}},
					{"text": instruction},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.0,
			"responseMimeType": "application/json",
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.endpoint, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.bulkHC.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate (status %d): %s", resp.StatusCode, string(respBody))
	}

	var generated struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &generated); err != nil {
		return nil, fmt.Errorf("parse generate response: %w", err)
	}
	if len(generated.Candidates) == 0 || len(generated.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty model response", ErrProviderJobFailed)
	}

	return parseTimedTranscript(generated.Candidates[0].Content.Parts[0].Text, req.LanguageHint)
}

// parseTimedTranscript decodes the model's JSON transcript into the
// canonical result, tolerating prose around the JSON object.
func parseTimedTranscript(text, fallbackLang string) (*Result, error) {
	var payload struct {
		Language string `json:"language"`
		Words    []struct {
			Text    string `json:"text"`
			StartMs int64  `json:"start_ms"`
			EndMs   int64  `json:"end_ms"`
			Speaker string `json:"speaker"`
		} `json:"words"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("parse transcript: %w", err)
		}
		if err2 := json.Unmarshal([]byte(text[start:end+1]), &payload); err2 != nil {
			return nil, fmt.Errorf("parse transcript: %w", err)
		}
	}

	result := &Result{Language: payload.Language}
	if result.Language == "" {
		result.Language = fallbackLang
	}
	var transcript []string
	for _, w := range payload.Words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		result.Words = append(result.Words, wordToken(w.Text, w.StartMs, w.EndMs, w.Speaker))
		transcript = append(transcript, w.Text)
	}
	result.Transcript = strings.Join(transcript, " ")
	return result, nil
}
