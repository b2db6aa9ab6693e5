package transcribe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPoll(maxAttempts int) PollConfig {
	return PollConfig{
		MaxAttempts:  maxAttempts,
		BaseInterval: time.Millisecond,
		MaxInterval:  5 * time.Millisecond,
	}
}

func TestPollerCompletes(t *testing.T) {
	checks := 0
	p := NewPoller(fastPoll(10), func(ctx context.Context) (CheckResult, error) {
		checks++
		return CheckResult{Done: checks >= 3}, nil
	})

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if p.State() != StateCompleted {
		t.Errorf("state = %s, want %s", p.State(), StateCompleted)
	}
	if checks != 3 {
		t.Errorf("checks = %d, want 3", checks)
	}
}

func TestPollerTimesOutWithoutResubmitting(t *testing.T) {
	checks := 0
	p := NewPoller(fastPoll(3), func(ctx context.Context) (CheckResult, error) {
		checks++
		return CheckResult{}, nil // never done
	})

	err := p.Wait(context.Background())
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("wait: got %v, want ErrProviderTimeout", err)
	}
	if p.State() != StateTimedOut {
		t.Errorf("state = %s, want %s", p.State(), StateTimedOut)
	}
	// Exactly MaxAttempts probes, never a fresh submission.
	if checks != 3 {
		t.Errorf("checks = %d, want 3", checks)
	}

	// Timeout is terminal: further polls never probe again.
	state, _ := p.Poll(context.Background())
	if state != StateTimedOut || checks != 3 {
		t.Errorf("post-timeout poll: state=%s checks=%d", state, checks)
	}
}

func TestPollerReportsProviderFailure(t *testing.T) {
	p := NewPoller(fastPoll(10), func(ctx context.Context) (CheckResult, error) {
		return CheckResult{Failed: true, Message: "audio rejected"}, nil
	})

	err := p.Wait(context.Background())
	if !errors.Is(err, ErrProviderJobFailed) {
		t.Fatalf("wait: got %v, want ErrProviderJobFailed", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state = %s, want %s", p.State(), StateFailed)
	}
}

func TestPollerToleratesTransientErrors(t *testing.T) {
	checks := 0
	p := NewPoller(fastPoll(10), func(ctx context.Context) (CheckResult, error) {
		checks++
		if checks < 3 {
			return CheckResult{}, errors.New("connection reset")
		}
		return CheckResult{Done: true}, nil
	})

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	// Failed probes still consume attempts.
	if p.Attempts() != 3 {
		t.Errorf("attempts = %d, want 3", p.Attempts())
	}
}

func TestPollerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(PollConfig{MaxAttempts: 100, BaseInterval: time.Hour, MaxInterval: time.Hour},
		func(ctx context.Context) (CheckResult, error) {
			cancel() // cancel while the first probe is in flight
			return CheckResult{}, nil
		})

	err := p.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("wait: got %v, want context.Canceled", err)
	}
}

func TestIntervalGrowsToCap(t *testing.T) {
	p := NewPoller(PollConfig{MaxAttempts: 100, BaseInterval: 2 * time.Second, MaxInterval: 10 * time.Second},
		func(ctx context.Context) (CheckResult, error) { return CheckResult{}, nil })

	if got := p.Interval(); got != 2*time.Second {
		t.Errorf("initial interval = %v, want 2s", got)
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		p.Poll(ctx)
	}
	// 10 attempts: base 2s + 10/5 seconds.
	if got := p.Interval(); got != 4*time.Second {
		t.Errorf("interval after 10 attempts = %v, want 4s", got)
	}

	for i := 0; i < 90; i++ {
		p.Poll(ctx)
	}
	if got := p.Interval(); got != 10*time.Second {
		t.Errorf("interval should cap at 10s, got %v", got)
	}
}
