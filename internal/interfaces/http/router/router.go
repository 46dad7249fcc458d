package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/auth"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	"github.com/fleetrent/backend/internal/infrastructure/logger"
	"github.com/fleetrent/backend/internal/interfaces/http/handler"
	"github.com/fleetrent/backend/internal/interfaces/http/middleware"
)

// Handlers groups the route handlers wired by Setup
type Handlers struct {
	System        *handler.SystemHandler
	Checkout      *handler.CheckoutHandler
	Deposit       *handler.DepositHandler
	Booking       *handler.BookingHandler
	StripeWebhook *handler.StripeWebhookHandler
	AdminJobs     *handler.AdminJobHandler
}

// Config holds dependencies for router assembly
type Config struct {
	HTTP           config.HTTPConfig
	Tokens         *auth.TokenManager
	RateLimitStore shared.RateLimitStore
	Handlers       Handlers
	Logger         *zap.Logger
}

// Setup builds the gin engine with the full middleware chain and route
// table. Webhook and health endpoints are public; everything else
// requires a bearer token.
func Setup(cfg Config) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	engine.GET("/health", cfg.Handlers.System.Health)
	engine.GET("/ready", cfg.Handlers.System.Ready)

	api := engine.Group("/api/v1")

	// Stripe authenticates deliveries by signature, so the webhook route
	// skips bearer auth but keeps its own rate limit.
	webhooks := api.Group("/webhooks")
	if cfg.HTTP.RateLimitEnabled {
		webhooks.Use(rateLimitFor(cfg, "webhooks"))
	}
	webhooks.POST("/stripe", cfg.Handlers.StripeWebhook.HandleStripeWebhook)

	authed := api.Group("")
	authed.Use(middleware.Auth(cfg.Tokens, cfg.Logger))

	checkout := authed.Group("/checkout")
	if cfg.HTTP.RateLimitEnabled {
		checkout.Use(rateLimitFor(cfg, "checkout"))
	}
	checkout.POST("/payment-intent", cfg.Handlers.Checkout.CreatePaymentIntent)

	deposits := authed.Group("/deposits")
	if cfg.HTTP.RateLimitEnabled {
		deposits.Use(rateLimitFor(cfg, "deposits"))
	}
	deposits.POST("/hold", cfg.Handlers.Deposit.CreateDepositHold)

	staff := authed.Group("")
	staff.Use(middleware.RequireStaff())
	staff.POST("/bookings/:id/void", cfg.Handlers.Booking.VoidBooking)
	staff.POST("/bookings/:id/close-account", cfg.Handlers.Booking.CloseAccount)
	staff.POST("/admin/deposit-jobs/run", cfg.Handlers.AdminJobs.RunDepositJobs)

	return engine
}

func rateLimitFor(cfg Config, route string) gin.HandlerFunc {
	return middleware.RateLimitPerRoute(middleware.RateLimitConfig{
		Store: cfg.RateLimitStore,
		Limit: shared.RateLimit{
			Window:      cfg.HTTP.RateLimitWindow,
			MaxRequests: cfg.HTTP.RateLimitRequests,
		},
		Logger: cfg.Logger,
	}, route)
}
