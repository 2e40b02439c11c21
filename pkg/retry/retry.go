package retry

import (
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns initial * 2^attempt capped at max
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Opts configures Do
type Opts struct {
	// MaxAttempts counts the first call, so 4 means one call plus three retries
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration

	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool

	// Wait overrides the computed backoff for a given error, e.g. a server retry hint
	Wait func(attempt int, err error) (time.Duration, bool)

	// Sleep defaults to the wall clock
	Sleep SleepFunc

	// OnRetry is called before each sleep
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Do calls f until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is cancelled. The last error is returned.
func Do[T any](ctx context.Context, opts Opts, f func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)

	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err = f(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == attempts-1 {
			break
		}
		if opts.Retryable != nil && !opts.Retryable(err) {
			break
		}
		if ctx.Err() != nil {
			return result, err
		}

		wait := Backoff(attempt, opts.InitialWait, opts.MaxWait)
		if opts.Wait != nil {
			if d, ok := opts.Wait(attempt, err); ok {
				wait = d
			}
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, wait, err)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return result, err
		}
	}
	return result, err
}
