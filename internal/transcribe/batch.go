package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// lroOperation is the long-running-operation envelope returned by the
// recognizer's operations endpoint.
type lroOperation struct {
	Done  bool `json:"done"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		Results []speechResult `json:"results"`
	} `json:"response"`
}

// BatchProvider is the cloud batch variant for very long audio already in
// object storage: submit a long-running recognize job referencing the remote
// URI, then poll the operation handle until done.
type BatchProvider struct {
	tokens   *TokenSource
	endpoint string
	hc       *http.Client
	poll     PollConfig
}

func NewBatchProvider(tokens *TokenSource, poll PollConfig) *BatchProvider {
	return &BatchProvider{
		tokens:   tokens,
		endpoint: defaultSpeechEndpoint,
		hc: &http.Client{
			Timeout: 30 * time.Second, // submit/status calls are metadata class
		},
		poll: poll,
	}
}

func (p *BatchProvider) Name() string { return "speech-batch" }

func (p *BatchProvider) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if p.tokens == nil {
		return nil, ErrNotConfigured
	}

	lang := req.LanguageHint
	if lang == "" || lang == "auto" {
		lang = "en-US"
	}

	config := map[string]interface{}{
		"languageCode":          lang,
		"enableWordTimeOffsets": true,
	}
	if req.Diarize {
		config["diarizationConfig"] = map[string]interface{}{
			"enableSpeakerDiarization": true,
		}
	}

	var submitted struct {
		Name string `json:"name"`
	}
	err := p.call(ctx, "POST", "/speech:longrunningrecognize", map[string]interface{}{
		"config": config,
		"audio":  map[string]string{"uri": req.StorageURI},
	}, &submitted)
	if err != nil {
		return nil, fmt.Errorf("submit batch job: %w", err)
	}
	if submitted.Name == "" {
		return nil, fmt.Errorf("%w: submit returned no operation name", ErrProviderJobFailed)
	}
	log.Printf("[stt] batch job submitted: operation=%s uri=%s", submitted.Name, req.StorageURI)

	// Poll the long-running operation until done. Never resubmit on
	// exhaustion: a duplicate job is duplicate billing.
	var operation lroOperation
	poller := NewPoller(p.poll, func(ctx context.Context) (CheckResult, error) {
		operation = lroOperation{}
		if err := p.call(ctx, "GET", "/operations/"+submitted.Name, nil, &operation); err != nil {
			return CheckResult{}, err
		}
		if operation.Done && operation.Error.Message != "" {
			return CheckResult{Failed: true, Message: operation.Error.Message}, nil
		}
		return CheckResult{Done: operation.Done}, nil
	})
	if err := poller.Wait(ctx); err != nil {
		return nil, err
	}

	result := normalizeSpeechResults(operation.Response.Results, lang)
	log.Printf("[stt] batch job %s completed: %d words", submitted.Name, len(result.Words))
	return result, nil
}

func (p *BatchProvider) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, p.endpoint+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
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
