package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared"
)

// MinOverrideCents is the smallest chargeable override amount
const MinOverrideCents int64 = 50

// PaymentIntentService creates rental payment intents for bookings
type PaymentIntentService struct {
	bookingRepo booking.Repository
	paymentRepo payment.Repository
	gateway     payment.Gateway
	logger      *zap.Logger
}

// PaymentIntentServiceConfig contains configuration for PaymentIntentService
type PaymentIntentServiceConfig struct {
	BookingRepo booking.Repository
	PaymentRepo payment.Repository
	Gateway     payment.Gateway
	Logger      *zap.Logger
}

// NewPaymentIntentService creates a new PaymentIntentService
func NewPaymentIntentService(cfg PaymentIntentServiceConfig) *PaymentIntentService {
	return &PaymentIntentService{
		bookingRepo: cfg.BookingRepo,
		paymentRepo: cfg.PaymentRepo,
		gateway:     cfg.Gateway,
		logger:      cfg.Logger,
	}
}

// CreateIntentInput contains input for creating a rental payment intent
type CreateIntentInput struct {
	BookingID           uuid.UUID
	OverrideAmountCents *int64
	ActorID             string
	ActorIsStaff        bool
}

// CreateIntentResult is the client-facing payment intent handle
type CreateIntentResult struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
	AmountDueCents  int64  `json:"amount_due_cents"`
}

// CreatePaymentIntent computes the outstanding balance and creates a
// provider payment intent for it. All due-amount math is integer cents.
func (s *PaymentIntentService) CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*CreateIntentResult, error) {
	b, err := s.bookingRepo.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return nil, shared.ErrNotFound
	}
	if !b.IsPayable() {
		return nil, shared.ErrBookingNotPayable
	}

	paid, err := s.paymentRepo.SumCompletedByType(ctx, b.ID, payment.TypeRental)
	if err != nil {
		return nil, fmt.Errorf("failed to sum completed payments: %w", err)
	}

	amountDueCents := b.TotalAmount.Cents() - paid.Cents()
	if amountDueCents <= 0 {
		return nil, shared.ErrAmountDueZero
	}

	chargeCents := amountDueCents
	if input.OverrideAmountCents != nil {
		if !input.ActorIsStaff {
			return nil, shared.ErrForbidden
		}
		chargeCents = *input.OverrideAmountCents
		if chargeCents < MinOverrideCents {
			chargeCents = MinOverrideCents
		}
		if chargeCents > amountDueCents {
			chargeCents = amountDueCents
		}
	}

	cust, err := s.gateway.UpsertCustomer(ctx, payment.UpsertCustomerInput{
		Email: b.CustomerEmail,
		Name:  b.CustomerName,
	})
	if err != nil {
		s.logger.Error("Failed to upsert provider customer",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err))
		return nil, shared.ErrPaymentGateway
	}
	b.AttachStripeCustomer(cust.CustomerID)

	intent, err := s.gateway.CreatePaymentIntent(ctx, payment.CreateIntentInput{
		AmountCents: chargeCents,
		CustomerID:  cust.CustomerID,
		Description: fmt.Sprintf("Rental payment for booking %s", b.BookingNumber),
		Metadata: map[string]string{
			"booking_id":   b.ID.String(),
			"payment_type": string(payment.TypeRental),
		},
	})
	if err != nil {
		s.logger.Error("Failed to create payment intent",
			zap.String("booking_id", b.ID.String()),
			zap.Int64("amount_cents", chargeCents),
			zap.Error(err))
		return nil, shared.ErrPaymentGateway
	}

	b.AttachPaymentIntent(intent.IntentID)
	b.IncrementVersion()
	if err := s.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("Created rental payment intent",
		zap.String("booking_id", b.ID.String()),
		zap.String("intent_id", intent.IntentID),
		zap.Int64("amount_cents", chargeCents),
		zap.Int64("amount_due_cents", amountDueCents))

	return &CreateIntentResult{
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     chargeCents,
		AmountDueCents:  amountDueCents,
	}, nil
}
