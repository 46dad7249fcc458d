package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
)

// maxTrackedKeys bounds the in-memory counter map. When exceeded, expired
// windows are pruned on the next write.
const maxTrackedKeys = 10000

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local fixed-window rate limit store. Counters
// are lost on restart and not shared across instances, so it is only
// suitable for soft limits and for tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
}

// NewMemoryStore creates an in-memory rate limit store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*windowCounter),
	}
}

// Allow checks and consumes one request for the key. The window is reset
// lazily when its deadline has passed.
func (s *MemoryStore) Allow(_ context.Context, key string, limit shared.RateLimit) (shared.RateLimitResult, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		if len(s.counters) >= maxTrackedKeys {
			s.pruneLocked(now)
		}
		c = &windowCounter{count: 0, resetAt: now.Add(limit.Window)}
		s.counters[key] = c
	}

	if c.count >= limit.MaxRequests {
		return shared.RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   c.resetAt,
		}, nil
	}

	c.count++
	return shared.RateLimitResult{
		Allowed:   true,
		Remaining: limit.MaxRequests - c.count,
		ResetAt:   c.resetAt,
	}, nil
}

// pruneLocked drops expired windows. Caller holds the mutex.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
		}
	}
}

// Close releases resources held by the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = make(map[string]*windowCounter)
	return nil
}
