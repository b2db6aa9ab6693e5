package transcribe

import (
	"context"
	"fmt"
	"log"
	"time"
)

// JobState is the lifecycle state of an asynchronous provider job.
// Transitions only move forward; completed, failed and timed_out are
// terminal.
type JobState string

const (
	StateQueued     JobState = "queued"
	StateUploading  JobState = "uploading"
	StateProcessing JobState = "processing"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
	StateTimedOut   JobState = "timed_out"
)

// PollConfig bounds a polling loop. Total wall clock is at most
// MaxAttempts * MaxInterval.
type PollConfig struct {
	MaxAttempts  int
	BaseInterval time.Duration
	MaxInterval  time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxAttempts:  45,
		BaseInterval: 2 * time.Second,
		MaxInterval:  10 * time.Second,
	}
}

// CheckResult is one status probe of a remote job.
type CheckResult struct {
	Done    bool
	Failed  bool
	Message string // provider message on failure
}

// CheckFunc performs a single idempotent status probe.
type CheckFunc func(ctx context.Context) (CheckResult, error)

// Poller drives a remote job to a terminal state, one status probe at a
// time. The caller decides scheduling: step with Poll and sleep Interval
// between steps, or just call Wait. A Poller is used by one goroutine, so
// status checks for a job are strictly sequential. It never resubmits the
// job: exhausting attempts is terminal and a fresh submission is the
// caller's explicit decision.
type Poller struct {
	cfg      PollConfig
	check    CheckFunc
	attempts int
	state    JobState
}

func NewPoller(cfg PollConfig, check CheckFunc) *Poller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPollConfig().MaxAttempts
	}
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = DefaultPollConfig().BaseInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultPollConfig().MaxInterval
	}
	return &Poller{cfg: cfg, check: check, state: StateProcessing}
}

func (p *Poller) State() JobState { return p.state }

func (p *Poller) Attempts() int { return p.attempts }

// Interval grows with the attempt count up to the configured cap.
func (p *Poller) Interval() time.Duration {
	d := p.cfg.BaseInterval + time.Duration(p.attempts/5)*time.Second
	if d > p.cfg.MaxInterval {
		d = p.cfg.MaxInterval
	}
	return d
}

// Poll performs one status probe. Transient probe errors are tolerated (the
// call is idempotent) but still consume an attempt.
func (p *Poller) Poll(ctx context.Context) (JobState, error) {
	if p.state == StateCompleted || p.state == StateFailed || p.state == StateTimedOut {
		return p.state, nil
	}
	if p.attempts >= p.cfg.MaxAttempts {
		p.state = StateTimedOut
		return p.state, fmt.Errorf("%w: %d attempts", ErrProviderTimeout, p.attempts)
	}
	p.attempts++

	res, err := p.check(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return p.state, ctx.Err()
		}
		log.Printf("[stt] poll attempt %d/%d: %v", p.attempts, p.cfg.MaxAttempts, err)
		return p.state, nil
	}
	switch {
	case res.Failed:
		p.state = StateFailed
		return p.state, fmt.Errorf("%w: %s", ErrProviderJobFailed, res.Message)
	case res.Done:
		p.state = StateCompleted
		return p.state, nil
	default:
		return p.state, nil
	}
}

// Wait polls until a terminal state, sleeping Interval between probes.
func (p *Poller) Wait(ctx context.Context) error {
	for {
		state, err := p.Poll(ctx)
		switch state {
		case StateCompleted:
			return nil
		case StateFailed, StateTimedOut:
			return err
		}
		if err != nil {
			return err
		}

		timer := time.NewTimer(p.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
