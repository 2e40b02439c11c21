package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"sjsage522/lotwatcher/internal/crawler"
	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/pkg/errors"
)

// RedisStore keeps identities in one Redis set per source. The whole set
// carries a single expiry that is set when the set has none, so retention is
// counted from the first insertion after a reset, not per identity.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *logger.Logger
}

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a Redis client and checks that the server answers
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.NewStore("redis", "failed to connect to "+opts.Addr, err)
	}
	return client, nil
}

// NewRedisStore creates a store on key with the given retention
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
		ttl:    ttl,
		log:    logger.ForStore().WithField("key", key),
	}
}

// IsKnown implements DedupStore
func (s *RedisStore) IsKnown(ctx context.Context, identity string) bool {
	id := crawler.NormalizeIdentity(identity)
	if id == "" {
		return false
	}
	known, err := s.client.SIsMember(ctx, s.key, id).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("identity", id).Msg("Membership check failed, treating as unknown")
		return false
	}
	return known
}

// MarkDelivered implements DedupStore
func (s *RedisStore) MarkDelivered(ctx context.Context, identity string) error {
	id := crawler.NormalizeIdentity(identity)
	if id == "" {
		return nil
	}

	if err := s.client.SAdd(ctx, s.key, id).Err(); err != nil {
		s.log.Error().Err(err).Str("identity", id).Msg("Failed to record identity")
		return errors.NewStore("redis", "failed to record "+id, err)
	}

	ttl, err := s.client.TTL(ctx, s.key).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read set expiry")
		return nil
	}
	// -1 means the key exists without an expiry
	if ttl < 0 && s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to set set expiry")
		}
	}
	return nil
}

// AllKnown implements DedupStore
func (s *RedisStore) AllKnown(ctx context.Context) map[string]struct{} {
	known := make(map[string]struct{})
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load identities, using empty set")
		return known
	}
	for _, m := range members {
		if id := crawler.NormalizeIdentity(m); id != "" {
			known[id] = struct{}{}
		}
	}
	return known
}

// Count implements DedupStore
func (s *RedisStore) Count(ctx context.Context) int {
	n, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to count identities")
		return 0
	}
	return int(n)
}

// Reset implements DedupStore
func (s *RedisStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		s.log.Error().Err(err).Msg("Failed to reset")
		return errors.NewStore("redis", "failed to reset "+s.key, err)
	}
	s.log.Info().Msg("Store reset")
	return nil
}

// TTL returns the remaining retention of the set, or a negative value when unset
func (s *RedisStore) TTL(ctx context.Context) time.Duration {
	ttl, err := s.client.TTL(ctx, s.key).Result()
	if err != nil {
		return -1
	}
	return ttl
}

// Close implements DedupStore
func (s *RedisStore) Close() error {
	return s.client.Close()
}
