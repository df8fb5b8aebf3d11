package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenStore implements TokenStore with an in-process map.
// Suitable for single-instance deployments and tests.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> expiry
}

// NewMemoryTokenStore creates a new memory token store instance
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		entries: make(map[string]time.Time),
	}
}

// MarkUsed records the token id until its ttl elapses.
func (s *MemoryTokenStore) MarkUsed(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[jti] = time.Now().Add(ttl)
	s.evictLocked()
	return nil
}

// IsUsed reports whether the token id has been consumed.
func (s *MemoryTokenStore) IsUsed(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.entries[jti]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

// Close is a no-op for the memory store.
func (s *MemoryTokenStore) Close() error {
	return nil
}

// evictLocked drops expired entries. Called with the write lock held;
// the map stays bounded by the number of refreshes per window.
func (s *MemoryTokenStore) evictLocked() {
	now := time.Now()
	for jti, expiry := range s.entries {
		if now.After(expiry) {
			delete(s.entries, jti)
		}
	}
}
