package notifier

import (
	"context"
	"sync"
	"time"

	"sjsage522/lotwatcher/pkg/retry"
)

// Cooldown is a shared deadline before which no sender may talk to a
// destination. Every notifier posting to the same chat must hold the same
// Cooldown. The deadline only moves forward.
type Cooldown struct {
	mu    sync.Mutex
	until time.Time

	now   func() time.Time
	sleep retry.SleepFunc
}

// NewCooldown creates an open cooldown on the wall clock
func NewCooldown() *Cooldown {
	return &Cooldown{now: time.Now, sleep: retry.Sleep}
}

// Extend pushes the deadline to until if it is later than the current one
func (c *Cooldown) Extend(until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if until.After(c.until) {
		c.until = until
	}
}

// Until returns the current deadline
func (c *Cooldown) Until() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.until
}

// Remaining returns how long senders still have to wait
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.until.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}

// Wait blocks until the deadline has passed, including extensions made
// while waiting
func (c *Cooldown) Wait(ctx context.Context) error {
	for {
		d := c.Remaining()
		if d <= 0 {
			return ctx.Err()
		}
		if err := c.sleep(ctx, d); err != nil {
			return err
		}
	}
}
