package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"sjsage522/lotwatcher/internal/crawler"
	"sjsage522/lotwatcher/pkg/errors"
)

// RedisPublisher appends delivered lots to a capped Redis stream
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

// NewRedisPublisher creates a publisher on stream. The client is owned by
// the caller and is not closed by Close.
func NewRedisPublisher(client *redis.Client, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		now:    time.Now,
	}
}

// Publish implements Publisher. Entries carry the identity, the source and
// the lot as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, lot crawler.Lot) error {
	data, err := json.Marshal(lot)
	if err != nil {
		return errors.NewParsing(lot.Source, "failed to encode lot", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Values: map[string]interface{}{
			"identity":     lot.Identity,
			"source":       lot.Source,
			"lot":          string(data),
			"delivered_at": p.now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return errors.NewStore("redis", "failed to append to "+p.stream, err)
	}
	return nil
}

// Close implements Publisher
func (p *RedisPublisher) Close() error {
	return nil
}
