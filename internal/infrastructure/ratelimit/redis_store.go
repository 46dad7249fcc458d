package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/shared"
)

// RedisStore is a fixed-window rate limit store shared across instances.
// INCR plus a conditional expiry keeps the counter atomic; store errors
// fail open so an unreachable Redis never blocks traffic.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStore creates a Redis-backed rate limit store
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: "ratelimit:",
		logger:    logger,
	}
}

// Allow checks and consumes one request for the key
func (s *RedisStore) Allow(ctx context.Context, key string, limit shared.RateLimit) (shared.RateLimitResult, error) {
	redisKey := s.keyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, limit.Window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("rate limit store unavailable, failing open",
			zap.String("key", key),
			zap.Error(err))
		return shared.RateLimitResult{
			Allowed:   true,
			Remaining: limit.MaxRequests,
			ResetAt:   time.Now().Add(limit.Window),
		}, nil
	}

	count := incr.Val()
	resetAt := time.Now().Add(limit.Window)
	if d, err := ttl.Result(); err == nil && d > 0 {
		resetAt = time.Now().Add(d)
	}

	if count > int64(limit.MaxRequests) {
		return shared.RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	remaining := limit.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return shared.RateLimitResult{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis rate limit store: %w", err)
	}
	return nil
}
