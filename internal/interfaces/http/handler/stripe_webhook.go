package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	webhookapp "github.com/fleetrent/backend/internal/application/webhook"
)

// Maximum webhook payload size. Stripe events are small; anything larger
// is not a legitimate delivery.
const maxWebhookPayloadSize = 65536

// WebhookProcessor verifies and applies one provider webhook delivery
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*webhookapp.Result, error)
}

// StripeWebhookHandler handles Stripe webhook deliveries. The endpoint is
// called by Stripe and authenticates via signature, not bearer token.
type StripeWebhookHandler struct {
	BaseHandler
	reconciler WebhookProcessor
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(reconciler WebhookProcessor) *StripeWebhookHandler {
	return &StripeWebhookHandler{reconciler: reconciler}
}

// StripeWebhookResponse represents the response for a webhook delivery
type StripeWebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleStripeWebhook handles POST /webhooks/stripe
func (h *StripeWebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// Signature verification needs the raw body.
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, StripeWebhookResponse{
			Received: false,
			Message:  "Failed to read request body",
		})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, StripeWebhookResponse{
			Received: false,
			Message:  "Payload too large",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusUnauthorized, StripeWebhookResponse{
			Received: false,
			Message:  "Missing Stripe-Signature header",
		})
		return
	}

	result, err := h.reconciler.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, webhookapp.ErrSignatureVerification) {
			c.JSON(http.StatusUnauthorized, StripeWebhookResponse{
				Received: false,
				Message:  "Webhook signature verification failed",
			})
			return
		}

		// Pre-dedup failures return 500 so Stripe redelivers the event.
		c.JSON(http.StatusInternalServerError, StripeWebhookResponse{
			Received: false,
			Message:  "Webhook processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, StripeWebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Duplicate: result.Duplicate,
		Message:   result.Message,
	})
}
