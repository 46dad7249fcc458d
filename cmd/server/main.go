package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	bookingapp "github.com/fleetrent/backend/internal/application/booking"
	checkoutapp "github.com/fleetrent/backend/internal/application/checkout"
	depositapp "github.com/fleetrent/backend/internal/application/deposit"
	webhookapp "github.com/fleetrent/backend/internal/application/webhook"
	"github.com/fleetrent/backend/internal/domain/notification"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/auth"
	"github.com/fleetrent/backend/internal/infrastructure/billing"
	"github.com/fleetrent/backend/internal/infrastructure/cache"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	"github.com/fleetrent/backend/internal/infrastructure/logger"
	amqpnotify "github.com/fleetrent/backend/internal/infrastructure/notification"
	"github.com/fleetrent/backend/internal/infrastructure/persistence"
	"github.com/fleetrent/backend/internal/infrastructure/ratelimit"
	"github.com/fleetrent/backend/internal/infrastructure/scheduler"
	"github.com/fleetrent/backend/internal/interfaces/http/handler"
	"github.com/fleetrent/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting FleetRent Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis backs webhook dedup caching and rate limiting. When disabled
	// the in-process fallbacks keep a single node fully functional.
	var redisClient *redis.Client
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		idempotencyStore = cache.NewRedisIdempotencyStore(redisClient, "webhook")
		log.Info("Redis connected successfully")
	} else {
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
		log.Warn("Redis disabled, using in-memory dedup cache")
	}

	// The rate limit store backend is chosen independently: the database
	// store shares counters across instances without requiring Redis.
	var rateLimitStore shared.RateLimitStore
	switch cfg.HTTP.RateLimitBackend {
	case "redis":
		rateLimitStore = ratelimit.NewRedisStore(redisClient, log)
	case "database":
		rateLimitStore = ratelimit.NewDatabaseStore(db.DB, log)
	case "memory":
		rateLimitStore = ratelimit.NewMemoryStore()
	default: // auto
		if redisClient != nil {
			rateLimitStore = ratelimit.NewRedisStore(redisClient, log)
		} else {
			rateLimitStore = ratelimit.NewMemoryStore()
		}
	}
	log.Info("Rate limit store initialized", zap.String("backend", cfg.HTTP.RateLimitBackend))
	defer func() {
		_ = idempotencyStore.Close()
		_ = rateLimitStore.Close()
	}()

	// Payment gateway
	stripeConfig := &billing.StripeConfig{
		SecretKey:       cfg.Stripe.SecretKey,
		PublishableKey:  cfg.Stripe.PublishableKey,
		WebhookSecret:   cfg.Stripe.WebhookSecret,
		IsTestMode:      cfg.Stripe.IsTestMode,
		DefaultCurrency: cfg.Stripe.DefaultCurrency,
	}
	gateway, err := billing.NewStripeAdapter(stripeConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
	}

	// Notification dispatcher
	var dispatcher notification.Dispatcher
	if cfg.Notification.Enabled {
		publisher, err := amqpnotify.NewAMQPPublisher(amqpnotify.AMQPPublisherConfig{
			URL:      cfg.Notification.AMQPURL,
			Exchange: cfg.Notification.Exchange,
			Queue:    cfg.Notification.Queue,
		}, log)
		if err != nil {
			log.Fatal("Failed to connect to AMQP broker", zap.Error(err))
		}
		defer func() {
			_ = publisher.Close()
		}()
		dispatcher = publisher
		log.Info("Notification publisher connected", zap.String("exchange", cfg.Notification.Exchange))
	} else {
		dispatcher = amqpnotify.NewNoopDispatcher(log)
	}

	// Repositories
	bookingRepo := persistence.NewGormBookingRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	ledgerRepo := persistence.NewGormDepositLedgerRepository(db.DB)
	jobRepo := persistence.NewGormDepositJobRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)

	// Application services
	intentService := checkoutapp.NewPaymentIntentService(checkoutapp.PaymentIntentServiceConfig{
		BookingRepo: bookingRepo,
		PaymentRepo: paymentRepo,
		Gateway:     gateway,
		Logger:      log,
	})
	holdService := depositapp.NewHoldService(depositapp.HoldServiceConfig{
		BookingRepo: bookingRepo,
		LedgerRepo:  ledgerRepo,
		Gateway:     gateway,
		Logger:      log,
	})
	jobService := depositapp.NewJobService(depositapp.JobServiceConfig{
		JobRepo:        jobRepo,
		BookingRepo:    bookingRepo,
		PaymentRepo:    paymentRepo,
		LedgerRepo:     ledgerRepo,
		Gateway:        gateway,
		Dispatcher:     dispatcher,
		AuditRepo:      auditRepo,
		Logger:         log,
		BatchSize:      cfg.DepositJobs.BatchSize,
		StaleThreshold: cfg.DepositJobs.StaleThreshold,
	})
	accountService := bookingapp.NewAccountService(bookingapp.AccountServiceConfig{
		BookingRepo: bookingRepo,
		PaymentRepo: paymentRepo,
		JobRepo:     jobRepo,
		Gateway:     gateway,
		Dispatcher:  dispatcher,
		AuditRepo:   auditRepo,
		Logger:      log,
	})
	reconciler := webhookapp.NewReconciler(webhookapp.ReconcilerConfig{
		Config:      stripeConfig,
		BookingRepo: bookingRepo,
		PaymentRepo: paymentRepo,
		LedgerRepo:  ledgerRepo,
		EventRepo:   webhookEventRepo,
		Idempotency: idempotencyStore,
		Gateway:     gateway,
		Dispatcher:  dispatcher,
		Logger:      log,
	})

	// Deposit job scheduler
	jobScheduler := scheduler.NewDepositJobScheduler(cfg.DepositJobs, jobService, log)
	if err := jobScheduler.Start(); err != nil {
		log.Fatal("Failed to start deposit job scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := jobScheduler.Stop(stopCtx); err != nil {
			log.Error("Error stopping deposit job scheduler", zap.Error(err))
		}
	}()

	// Auth
	tokens := auth.NewTokenManager(cfg.JWT)

	// HTTP layer
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	readiness := map[string]handler.ReadinessCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		readiness["redis"] = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		}
	}

	engine := router.Setup(router.Config{
		HTTP:           cfg.HTTP,
		Tokens:         tokens,
		RateLimitStore: rateLimitStore,
		Handlers: router.Handlers{
			System:        handler.NewSystemHandler(readiness),
			Checkout:      handler.NewCheckoutHandler(intentService),
			Deposit:       handler.NewDepositHandler(holdService),
			Booking:       handler.NewBookingHandler(accountService),
			StripeWebhook: handler.NewStripeWebhookHandler(reconciler),
			AdminJobs:     handler.NewAdminJobHandler(jobService),
		},
		Logger: log,
	})

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
