package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	checkoutapp "github.com/fleetrent/backend/internal/application/checkout"
	"github.com/fleetrent/backend/internal/infrastructure/auth"
	"github.com/fleetrent/backend/internal/interfaces/http/middleware"
)

// PaymentIntentCreator creates rental payment intents
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, input checkoutapp.CreateIntentInput) (*checkoutapp.CreateIntentResult, error)
}

// CheckoutHandler handles rental payment checkout endpoints
type CheckoutHandler struct {
	BaseHandler
	intents PaymentIntentCreator
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(intents PaymentIntentCreator) *CheckoutHandler {
	return &CheckoutHandler{intents: intents}
}

// CreatePaymentIntentRequest is the request body for creating a payment intent
type CreatePaymentIntentRequest struct {
	BookingID           string `json:"booking_id" binding:"required,uuid"`
	OverrideAmountCents *int64 `json:"override_amount_cents,omitempty" binding:"omitempty,min=1"`
}

// CreatePaymentIntent handles POST /checkout/payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		h.BadRequest(c, "Invalid booking_id")
		return
	}

	claims := middleware.GetAuthClaims(c)
	input := checkoutapp.CreateIntentInput{
		BookingID:           bookingID,
		OverrideAmountCents: req.OverrideAmountCents,
		ActorID:             middleware.GetAuthUserID(c),
		ActorIsStaff:        claims != nil && claims.HasRole(auth.RoleStaff),
	}

	result, err := h.intents.CreatePaymentIntent(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}
