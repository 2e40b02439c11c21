package pacer

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"sjsage522/lotwatcher/pkg/retry"
)

const (
	DefaultSuccessPause = 6 * time.Second
	DefaultFailurePause = 15 * time.Second
)

// Options configures a Pacer
type Options struct {
	SuccessPause time.Duration
	FailurePause time.Duration
	// PerMinute caps sends across every runner sharing the pacer, 0 means no cap
	PerMinute int
}

// Pacer spaces out deliveries to one destination
type Pacer struct {
	successPause time.Duration
	failurePause time.Duration
	limiter      *rate.Limiter
	sleep        retry.SleepFunc
}

// New creates a pacer, zero pauses fall back to the defaults
func New(opts Options) *Pacer {
	if opts.SuccessPause <= 0 {
		opts.SuccessPause = DefaultSuccessPause
	}
	if opts.FailurePause <= 0 {
		opts.FailurePause = DefaultFailurePause
	}
	limit := rate.Inf
	if opts.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.PerMinute))
	}
	return &Pacer{
		successPause: opts.SuccessPause,
		failurePause: opts.FailurePause,
		limiter:      rate.NewLimiter(limit, 1),
		sleep:        retry.Sleep,
	}
}

// Acquire blocks until the shared rate allows another send
func (p *Pacer) Acquire(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// After pauses following a delivery attempt
func (p *Pacer) After(ctx context.Context, delivered bool) error {
	return p.sleep(ctx, p.Pause(delivered))
}

// Pause returns the wait that follows a delivery attempt
func (p *Pacer) Pause(delivered bool) time.Duration {
	if delivered {
		return p.successPause
	}
	return p.failurePause
}

// SetSleep replaces the sleeper, used by tests in other packages
func (p *Pacer) SetSleep(sleep retry.SleepFunc) {
	p.sleep = sleep
}
