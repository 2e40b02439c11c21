package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(retention)
	s.now = func() time.Time { return now }

	require.NoError(t, s.MarkDelivered(ctx, " 42 "))
	assert.True(t, s.IsKnown(ctx, "42"))
	assert.Equal(t, 1, s.Count(ctx))

	now = now.Add(retention - time.Minute)
	require.NoError(t, s.MarkDelivered(ctx, "43"))

	now = now.Add(time.Minute)
	assert.False(t, s.IsKnown(ctx, "42"))
	assert.False(t, s.IsKnown(ctx, "43"))

	require.NoError(t, s.MarkDelivered(ctx, "44"))
	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.AllKnown(ctx))
}

func TestMemoryStoreConcurrentMarks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.MarkDelivered(ctx, "same-lot")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.Count(ctx))
}
