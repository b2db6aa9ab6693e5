package transcribe

import (
	"context"
	"fmt"
	"log"
)

// Client routes a request to the right provider variant: the synchronous
// recognizer for short local audio, the batch recognizer for object-storage
// URIs, and the resumable-upload provider for everything else.
type Client struct {
	sync      Provider
	resumable Provider
	batch     Provider
}

// NewClient wires the available variants. Any of them may be nil when its
// credentials are not configured; requests that need a missing variant fail
// with ErrNotConfigured.
func NewClient(sync, resumable, batch Provider) *Client {
	return &Client{sync: sync, resumable: resumable, batch: batch}
}

// Pick returns the provider for a request without invoking it.
func (c *Client) Pick(req Request) (Provider, error) {
	var p Provider
	switch {
	case req.StorageURI != "":
		p = c.batch
	case req.DurationSeconds > 0 && req.DurationSeconds <= SyncCutoffSeconds && !req.Diarize:
		p = c.sync
	default:
		p = c.resumable
	}
	if p == nil {
		return nil, ErrNotConfigured
	}
	return p, nil
}

// Transcribe runs the request on the selected variant and returns the
// normalized result.
func (c *Client) Transcribe(ctx context.Context, req Request) (*Result, error) {
	p, err := c.Pick(req)
	if err != nil {
		return nil, err
	}
	log.Printf("[stt] provider=%s duration=%.1fs diarize=%v lang=%q",
		p.Name(), req.DurationSeconds, req.Diarize, req.LanguageHint)
	result, err := p.Transcribe(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	return result, nil
}
