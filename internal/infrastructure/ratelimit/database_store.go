package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fleetrent/backend/internal/domain/shared"
)

// DatabaseStore keeps fixed-window counters in the rate_limits table. A
// single upsert statement both resets elapsed windows and increments live
// ones, so concurrent instances never lose updates. Store errors fail
// open: availability wins over strictness when infrastructure is down.
type DatabaseStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDatabaseStore creates a database-backed rate limit store
func NewDatabaseStore(db *gorm.DB, logger *zap.Logger) *DatabaseStore {
	return &DatabaseStore{db: db, logger: logger}
}

type rateLimitRow struct {
	Count   int
	ResetAt int64
}

// Allow checks and consumes one request for the key
func (s *DatabaseStore) Allow(ctx context.Context, key string, limit shared.RateLimit) (shared.RateLimitResult, error) {
	now := time.Now()
	nowMs := now.UnixMilli()
	newResetMs := now.Add(limit.Window).UnixMilli()

	var row rateLimitRow
	err := s.db.WithContext(ctx).Raw(`
		INSERT INTO rate_limits (key, count, reset_at)
		VALUES (?, 1, ?)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE WHEN rate_limits.reset_at <= ? THEN 1 ELSE rate_limits.count + 1 END,
			reset_at = CASE WHEN rate_limits.reset_at <= ? THEN ? ELSE rate_limits.reset_at END
		RETURNING count, reset_at`,
		key, newResetMs, nowMs, nowMs, newResetMs,
	).Scan(&row).Error
	if err != nil {
		s.logger.Warn("rate limit store unavailable, failing open",
			zap.String("key", key),
			zap.Error(err))
		return shared.RateLimitResult{
			Allowed:   true,
			Remaining: limit.MaxRequests,
			ResetAt:   now.Add(limit.Window),
		}, nil
	}

	resetAt := time.UnixMilli(row.ResetAt)
	if row.Count > limit.MaxRequests {
		return shared.RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	return shared.RateLimitResult{
		Allowed:   true,
		Remaining: limit.MaxRequests - row.Count,
		ResetAt:   resetAt,
	}, nil
}

// Close releases resources held by the store
func (s *DatabaseStore) Close() error {
	return nil
}
