package store

import (
	"context"
	"sync"
	"time"

	"sjsage522/lotwatcher/internal/crawler"
)

// MemoryStore is the in-process fallback used when Redis is unreachable at
// startup. It mirrors the Redis retention rule: one window for the whole set,
// opened by the first insertion.
type MemoryStore struct {
	mu      sync.Mutex
	ids     map[string]struct{}
	ttl     time.Duration
	expires time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty store with the given retention
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{}), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) expireLocked() {
	if !s.expires.IsZero() && !s.now().Before(s.expires) {
		s.ids = make(map[string]struct{})
		s.expires = time.Time{}
	}
}

func (s *MemoryStore) IsKnown(_ context.Context, identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	_, ok := s.ids[crawler.NormalizeIdentity(identity)]
	return ok
}

func (s *MemoryStore) MarkDelivered(_ context.Context, identity string) error {
	id := crawler.NormalizeIdentity(identity)
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	s.ids[id] = struct{}{}
	if s.expires.IsZero() && s.ttl > 0 {
		s.expires = s.now().Add(s.ttl)
	}
	return nil
}

func (s *MemoryStore) AllKnown(_ context.Context) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return len(s.ids)
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
	s.expires = time.Time{}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
