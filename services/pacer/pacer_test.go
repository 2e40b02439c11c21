package pacer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauses(t *testing.T) {
	p := New(Options{})
	assert.Equal(t, 6*time.Second, p.Pause(true))
	assert.Equal(t, 15*time.Second, p.Pause(false))

	p = New(Options{SuccessPause: time.Second, FailurePause: 2 * time.Second})
	assert.Equal(t, time.Second, p.Pause(true))
	assert.Equal(t, 2*time.Second, p.Pause(false))
}

func TestAfterUsesSleeper(t *testing.T) {
	var slept []time.Duration
	p := New(Options{})
	p.SetSleep(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	require.NoError(t, p.After(context.Background(), true))
	require.NoError(t, p.After(context.Background(), false))
	assert.Equal(t, []time.Duration{6 * time.Second, 15 * time.Second}, slept)
}

func TestAcquireUnlimited(t *testing.T) {
	p := New(Options{})
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Acquire(context.Background()))
	}
}

func TestAcquireLimited(t *testing.T) {
	p := New(Options{PerMinute: 1})
	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Acquire(ctx), "second send within the minute must not be allowed")
}
