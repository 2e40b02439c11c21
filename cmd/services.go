package cmd

import (
	"context"

	"github.com/redis/go-redis/v9"

	"sjsage522/lotwatcher/config"
	"sjsage522/lotwatcher/logger"
	"sjsage522/lotwatcher/services/cache"
	"sjsage522/lotwatcher/services/store"
)

// Services holds the long lived backends shared by commands
type Services struct {
	Cache cache.CacheService
	Store store.DedupStore
	// Redis is nil when the store fell back to memory
	Redis *redis.Client
}

// Cleanup releases every backend
func (s *Services) Cleanup() {
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			logger.ForStore().Warn().Err(err).Msg("Failed to close store")
		}
	}
}

// initializeServices connects the cache and the dedup store for source.
// When durable is false an unreachable Redis falls back to an in-process store.
func initializeServices(ctx context.Context, cfg *config.Config, source string, durable bool) (*Services, error) {
	services := &Services{Cache: cache.New(cfg.MemcacheAddr)}
	if cfg.MemcacheAddr != "" {
		logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Using memcache")
	}

	client, err := store.NewClient(ctx, store.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		if durable {
			return nil, err
		}
		logger.ForStore().Warn().Err(err).Msg("Redis unavailable, delivered history will not survive restarts")
		services.Store = store.NewMemoryStore(cfg.RedisTTL)
		return services, nil
	}

	key := config.StoreKey(source)
	services.Redis = client
	services.Store = store.NewRedisStore(client, key, cfg.RedisTTL)
	logger.ForStore().Info().
		Str("addr", cfg.RedisAddr).
		Int("db", cfg.RedisDB).
		Str("key", key).
		Msg("Connected to Redis")
	return services, nil
}
