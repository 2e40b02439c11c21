package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/lotwatcher/internal/crawler"
	"sjsage522/lotwatcher/pkg/errors"
)

func newTestPublisher(t *testing.T, maxLen int64) (*RedisPublisher, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	p := NewRedisPublisher(client, StreamKey(crawler.SourceCopart), maxLen)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return p, client, mr
}

func TestPublishAppendsLot(t *testing.T) {
	p, client, _ := newTestPublisher(t, 100)
	ctx := context.Background()

	lot := crawler.Lot{
		Identity: "12345678",
		Source:   crawler.SourceCopart,
		Title:    "2019 BMW X5",
		URL:      "https://www.copart.com/lot/12345678",
	}
	require.NoError(t, p.Publish(ctx, lot))

	entries, err := client.XRange(ctx, "copart:delivered", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, "12345678", values["identity"])
	assert.Equal(t, "copart", values["source"])
	assert.Equal(t, "2024-03-01T09:30:00Z", values["delivered_at"])

	var decoded crawler.Lot
	require.NoError(t, json.Unmarshal([]byte(values["lot"].(string)), &decoded))
	assert.Equal(t, lot, decoded)
}

func TestPublishCapsStream(t *testing.T) {
	p, client, _ := newTestPublisher(t, 2)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, p.Publish(ctx, crawler.Lot{Identity: id, Source: crawler.SourceCopart}))
	}

	n, err := client.XLen(ctx, "copart:delivered").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPublishStoreFailure(t *testing.T) {
	p, _, mr := newTestPublisher(t, 10)
	mr.Close()

	err := p.Publish(context.Background(), crawler.Lot{Identity: "1", Source: crawler.SourceCopart})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeStore))
}
