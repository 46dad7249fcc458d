package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks processed operation keys to suppress duplicates.
// Implementations must be safe for concurrent use.
type IdempotencyStore interface {
	// MarkProcessed records a key as processed if it was not seen before.
	// Returns true when this call was the first to record the key.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the key has already been recorded.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store.
	Close() error
}
