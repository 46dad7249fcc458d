package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	checkoutapp "github.com/fleetrent/backend/internal/application/checkout"
	depositapp "github.com/fleetrent/backend/internal/application/deposit"
	webhookapp "github.com/fleetrent/backend/internal/application/webhook"
	"github.com/fleetrent/backend/internal/infrastructure/auth"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	"github.com/fleetrent/backend/internal/infrastructure/ratelimit"
	"github.com/fleetrent/backend/internal/interfaces/http/handler"
)

type stubIntents struct{}

func (stubIntents) CreatePaymentIntent(context.Context, checkoutapp.CreateIntentInput) (*checkoutapp.CreateIntentResult, error) {
	return &checkoutapp.CreateIntentResult{PaymentIntentID: "pi_1"}, nil
}

type stubHolds struct{}

func (stubHolds) CreateDepositHold(context.Context, depositapp.CreateHoldInput) (*depositapp.CreateHoldResult, error) {
	return &depositapp.CreateHoldResult{PaymentIntentID: "pi_hold"}, nil
}

type stubLifecycle struct{}

func (stubLifecycle) VoidBooking(context.Context, uuid.UUID, string) error  { return nil }
func (stubLifecycle) CloseAccount(context.Context, uuid.UUID, string) error { return nil }

type stubWebhooks struct{}

func (stubWebhooks) ProcessWebhook(context.Context, []byte, string) (*webhookapp.Result, error) {
	return &webhookapp.Result{EventID: "evt_1", Processed: true}, nil
}

type stubJobs struct{}

func (stubJobs) Run(context.Context) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokenManager(config.JWTConfig{
		Secret:     "router-test-secret",
		Expiration: time.Hour,
		Issuer:     "fleetrent-test",
	})
	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	engine := Setup(Config{
		HTTP: config.HTTPConfig{
			MaxBodySize:       1 << 20,
			RateLimitEnabled:  true,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Tokens:         tokens,
		RateLimitStore: store,
		Handlers: Handlers{
			System:        handler.NewSystemHandler(nil),
			Checkout:      handler.NewCheckoutHandler(stubIntents{}),
			Deposit:       handler.NewDepositHandler(stubHolds{}),
			Booking:       handler.NewBookingHandler(stubLifecycle{}),
			StripeWebhook: handler.NewStripeWebhookHandler(stubWebhooks{}),
			AdminJobs:     handler.NewAdminJobHandler(stubJobs{}),
		},
		Logger: zap.NewNop(),
	})
	return engine, tokens
}

func do(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost && strings.Contains(path, "webhooks") {
		req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthIsPublic(t *testing.T) {
	engine, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/health", "", "").Code)
}

func TestRouter_WebhookSkipsBearerAuth(t *testing.T) {
	engine, _ := newTestRouter(t)
	w := do(engine, http.MethodPost, "/api/v1/webhooks/stripe", "", `{"id":"evt_1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_CheckoutRequiresToken(t *testing.T) {
	engine, tokens := newTestRouter(t)

	body := `{"booking_id":"` + uuid.NewString() + `"}`
	assert.Equal(t, http.StatusUnauthorized,
		do(engine, http.MethodPost, "/api/v1/checkout/payment-intent", "", body).Code)

	token, _, err := tokens.Generate(uuid.New(), "customer@example.com", []string{auth.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated,
		do(engine, http.MethodPost, "/api/v1/checkout/payment-intent", token, body).Code)
}

func TestRouter_DepositHoldRequiresToken(t *testing.T) {
	engine, tokens := newTestRouter(t)

	body := `{"booking_id":"` + uuid.NewString() + `"}`
	assert.Equal(t, http.StatusUnauthorized,
		do(engine, http.MethodPost, "/api/v1/deposits/hold", "", body).Code)

	token, _, err := tokens.Generate(uuid.New(), "customer@example.com", []string{auth.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated,
		do(engine, http.MethodPost, "/api/v1/deposits/hold", token, body).Code)
}

func TestRouter_StaffRoutesRejectCustomers(t *testing.T) {
	engine, tokens := newTestRouter(t)

	customer, _, err := tokens.Generate(uuid.New(), "customer@example.com", []string{auth.RoleCustomer})
	require.NoError(t, err)
	staff, _, err := tokens.Generate(uuid.New(), "ops@example.com", []string{auth.RoleStaff})
	require.NoError(t, err)

	paths := []string{
		"/api/v1/bookings/" + uuid.NewString() + "/void",
		"/api/v1/bookings/" + uuid.NewString() + "/close-account",
		"/api/v1/admin/deposit-jobs/run",
	}
	for _, path := range paths {
		assert.Equal(t, http.StatusForbidden, do(engine, http.MethodPost, path, customer, "").Code, path)
		assert.Equal(t, http.StatusOK, do(engine, http.MethodPost, path, staff, "").Code, path)
	}
}
