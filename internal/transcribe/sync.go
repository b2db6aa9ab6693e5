package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultSpeechEndpoint = "https://speech.googleapis.com/v1"

// SyncCutoffSeconds is the longest audio the synchronous recognizer accepts;
// longer assets go through the resumable or batch variants.
const SyncCutoffSeconds = 60

// SyncProvider is the synchronous short-audio variant: one blocking
// recognize call, no job to poll.
type SyncProvider struct {
	tokens   *TokenSource
	endpoint string
	hc       *http.Client
}

func NewSyncProvider(tokens *TokenSource) *SyncProvider {
	return &SyncProvider{
		tokens:   tokens,
		endpoint: defaultSpeechEndpoint,
		hc: &http.Client{
			Timeout: 2 * time.Minute, // synchronous recognition class
		},
	}
}

func (p *SyncProvider) Name() string { return "speech-sync" }

func (p *SyncProvider) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if p.tokens == nil {
		return nil, ErrNotConfigured
	}

	// Sync audio is bounded to ~1 minute, so inlining the payload is fine.
	audio, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, err
	}

	lang := req.LanguageHint
	if lang == "" || lang == "auto" {
		lang = "en-US"
	}

	body := map[string]interface{}{
		"config": map[string]interface{}{
			"encoding":              "MP3",
			"languageCode":          lang,
			"enableWordTimeOffsets": true,
		},
		"audio": map[string]string{
			"content": base64.StdEncoding.EncodeToString(audio),
		},
	}

	var resp struct {
		Results []speechResult `json:"results"`
	}
	if err := p.post(ctx, "/speech:recognize", body, &resp); err != nil {
		return nil, err
	}

	result := normalizeSpeechResults(resp.Results, lang)
	log.Printf("[stt] sync recognize: %d words", len(result.Words))
	return result, nil
}

func (p *SyncProvider) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("speech API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speech API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
