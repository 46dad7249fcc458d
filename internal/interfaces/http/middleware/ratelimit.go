package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/interfaces/http/dto"
)

// RateLimitConfig holds configuration for the rate limit middleware
type RateLimitConfig struct {
	Store shared.RateLimitStore
	Limit shared.RateLimit
	// KeyFunc derives the rate limit key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string
	Logger  *zap.Logger
}

// RateLimit returns a middleware gating request volume through the
// configured store. A store error never blocks the request: the check
// fails open and the request proceeds.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		key := keyFunc(c)

		result, err := cfg.Store.Allow(c.Request.Context(), key, cfg.Limit)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Rate limit check failed, allowing request",
					zap.String("key", key),
					zap.Error(err))
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRateLimited,
					"Too many requests. Please try again later.", GetRequestID(c)))
			return
		}

		c.Next()
	}
}

// RateLimitPerRoute scopes the rate limit key to a route name so separate
// endpoints do not share one budget.
func RateLimitPerRoute(cfg RateLimitConfig, route string) gin.HandlerFunc {
	base := cfg.KeyFunc
	if base == nil {
		base = func(c *gin.Context) string { return c.ClientIP() }
	}
	cfg.KeyFunc = func(c *gin.Context) string {
		return route + ":" + base(c)
	}
	return RateLimit(cfg)
}
