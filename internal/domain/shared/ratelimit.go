package shared

import (
	"context"
	"time"
)

// RateLimit describes one fixed-window policy
type RateLimit struct {
	Window      time.Duration
	MaxRequests int
}

// RateLimitResult is the outcome of one admission check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimitStore gates request volume per key over fixed windows.
// The window is fixed, not sliding: a key's count resets entirely once the
// window elapses, so a burst of 2x the limit across a boundary is accepted
// behavior. Implementations must be safe for concurrent use and should fail
// open when the backing store is unreachable.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit RateLimit) (RateLimitResult, error)
	Close() error
}
