package cache

import (
	"sync"
	"time"
)

// sweepInterval bounds how often Set scans for expired entries
const sweepInterval = time.Minute

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a mutex guarded map used when no memcache server is configured
type MemoryCache struct {
	mu        sync.Mutex
	items     map[string]memoryItem
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return nil, ErrCacheMiss
	}
	return item.value, nil
}

func (c *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= sweepInterval {
		c.sweep(now)
	}

	item := memoryItem{value: value}
	if expiration > 0 {
		item.expiresAt = now.Add(expiration)
	}
	c.items[key] = item
	return nil
}

// sweep drops expired entries; most keys are written once and never read back
func (c *MemoryCache) sweep(now time.Time) {
	for key, item := range c.items {
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
