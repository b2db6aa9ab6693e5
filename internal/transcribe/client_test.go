package transcribe

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Transcribe(ctx context.Context, req Request) (*Result, error) {
	return &Result{Transcript: p.name}, nil
}

func TestPickRouting(t *testing.T) {
	syncP := &stubProvider{name: "sync"}
	resumableP := &stubProvider{name: "resumable"}
	batchP := &stubProvider{name: "batch"}
	c := NewClient(syncP, resumableP, batchP)

	cases := []struct {
		name string
		req  Request
		want Provider
	}{
		{"storage uri goes to batch", Request{StorageURI: "gs://bucket/lecture.mp3"}, batchP},
		{"short audio goes to sync", Request{AudioPath: "a.mp3", DurationSeconds: 45}, syncP},
		{"cutoff is inclusive", Request{AudioPath: "a.mp3", DurationSeconds: 60}, syncP},
		{"long audio goes to resumable", Request{AudioPath: "a.mp3", DurationSeconds: 61}, resumableP},
		{"diarization skips sync", Request{AudioPath: "a.mp3", DurationSeconds: 45, Diarize: true}, resumableP},
		{"unknown duration goes to resumable", Request{AudioPath: "a.mp3"}, resumableP},
		{"storage uri wins over duration", Request{StorageURI: "gs://b/x", DurationSeconds: 10}, batchP},
	}
	for _, tc := range cases {
		got, err := c.Pick(tc.req)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: picked %s, want %s", tc.name, got.Name(), tc.want.Name())
		}
	}
}

func TestPickMissingProvider(t *testing.T) {
	c := NewClient(&stubProvider{name: "sync"}, nil, nil)

	if _, err := c.Pick(Request{AudioPath: "a.mp3", DurationSeconds: 30}); err != nil {
		t.Errorf("configured variant: %v", err)
	}
	if _, err := c.Pick(Request{AudioPath: "a.mp3", DurationSeconds: 300}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing resumable: got %v, want ErrNotConfigured", err)
	}
	if _, err := c.Pick(Request{StorageURI: "gs://b/x"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing batch: got %v, want ErrNotConfigured", err)
	}
}
