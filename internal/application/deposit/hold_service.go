package deposit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// HoldService creates and tracks security deposit authorization holds
type HoldService struct {
	bookingRepo booking.Repository
	ledgerRepo  payment.LedgerRepository
	gateway     payment.Gateway
	logger      *zap.Logger
}

// HoldServiceConfig contains configuration for HoldService
type HoldServiceConfig struct {
	BookingRepo booking.Repository
	LedgerRepo  payment.LedgerRepository
	Gateway     payment.Gateway
	Logger      *zap.Logger
}

// NewHoldService creates a new HoldService
func NewHoldService(cfg HoldServiceConfig) *HoldService {
	return &HoldService{
		bookingRepo: cfg.BookingRepo,
		ledgerRepo:  cfg.LedgerRepo,
		gateway:     cfg.Gateway,
		logger:      cfg.Logger,
	}
}

// CreateHoldInput contains input for creating a deposit hold
type CreateHoldInput struct {
	BookingID   uuid.UUID
	AmountCents *int64
}

// CreateHoldResult is the client-facing hold handle
type CreateHoldResult struct {
	PaymentIntentID string    `json:"payment_intent_id"`
	ClientSecret    string    `json:"client_secret"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// CreateDepositHold creates a manual-capture authorization for the booking's
// deposit. An already-authorized hold returns the existing intent instead of
// stacking a second hold on the customer's card.
func (s *HoldService) CreateDepositHold(ctx context.Context, input CreateHoldInput) (*CreateHoldResult, error) {
	b, err := s.bookingRepo.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b == nil {
		return nil, shared.ErrNotFound
	}

	if b.DepositStatus == booking.DepositAuthorized && b.DepositIntentID != "" {
		return s.existingHold(ctx, b)
	}

	amount, err := s.resolveAmount(b, input.AmountCents)
	if err != nil {
		return nil, err
	}

	if err := b.BeginDepositHold(amount); err != nil {
		return nil, err
	}
	b.IncrementVersion()
	if err := s.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	result, err := s.createHold(ctx, b, amount)
	if err != nil {
		// The booking is already marked authorizing; park the hold on
		// failed so it never looks in-flight forever. The validated
		// booking is in hand, nothing is re-parsed here.
		s.cleanupFailedHold(ctx, b, err)
		return nil, err
	}
	return result, nil
}

// existingHold re-fetches the live authorization for an idempotent return.
// No ledger entry is written on this path.
func (s *HoldService) existingHold(ctx context.Context, b *booking.Booking) (*CreateHoldResult, error) {
	intent, err := s.gateway.GetPaymentIntent(ctx, b.DepositIntentID)
	if err != nil {
		s.logger.Error("Failed to re-fetch existing deposit intent",
			zap.String("booking_id", b.ID.String()),
			zap.String("intent_id", b.DepositIntentID),
			zap.Error(err))
		return nil, shared.ErrPaymentGateway
	}

	expiresAt := time.Now().Add(booking.HoldDuration)
	if b.DepositExpiresAt != nil {
		expiresAt = *b.DepositExpiresAt
	}

	s.logger.Info("Returning existing authorized deposit hold",
		zap.String("booking_id", b.ID.String()),
		zap.String("intent_id", intent.IntentID))

	return &CreateHoldResult{
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		ExpiresAt:       expiresAt,
	}, nil
}

func (s *HoldService) resolveAmount(b *booking.Booking, amountCents *int64) (valueobject.Money, error) {
	if amountCents != nil {
		if *amountCents <= 0 {
			return valueobject.Money{}, shared.NewDomainError("INVALID_INPUT", "deposit amount must be positive")
		}
		return valueobject.NewMoneyFromCents(*amountCents, b.TotalAmount.Currency()), nil
	}
	if b.DepositAmount.IsPositive() {
		return b.DepositAmount, nil
	}
	return valueobject.Money{}, shared.NewDomainError("INVALID_INPUT", "deposit amount is required")
}

func (s *HoldService) createHold(ctx context.Context, b *booking.Booking, amount valueobject.Money) (*CreateHoldResult, error) {
	intent, err := s.gateway.CreatePaymentIntent(ctx, payment.CreateIntentInput{
		AmountCents:    amount.Cents(),
		CustomerID:     b.StripeCustomerID,
		Description:    fmt.Sprintf("Security deposit for booking %s", b.BookingNumber),
		ManualCapture:  true,
		IdempotencyKey: fmt.Sprintf("deposit-hold:%s:%d", b.ID, amount.Cents()),
		Metadata: map[string]string{
			"booking_id":   b.ID.String(),
			"payment_type": string(payment.TypeDeposit),
		},
	})
	if err != nil {
		s.logger.Error("Failed to create deposit hold intent",
			zap.String("booking_id", b.ID.String()),
			zap.Int64("amount_cents", amount.Cents()),
			zap.Error(err))
		return nil, shared.ErrPaymentGateway
	}

	expiresAt := time.Now().Add(booking.HoldDuration)
	if err := b.AttachDepositIntent(intent.IntentID, expiresAt); err != nil {
		return nil, err
	}
	b.IncrementVersion()
	if err := s.bookingRepo.SaveWithLock(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	entry, err := payment.NewDepositLedgerEntry(b.ID, payment.LedgerActionHold, amount, "deposit hold created")
	if err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append deposit ledger entry: %w", err)
	}

	s.logger.Info("Created deposit hold",
		zap.String("booking_id", b.ID.String()),
		zap.String("intent_id", intent.IntentID),
		zap.Int64("amount_cents", amount.Cents()),
		zap.Time("expires_at", expiresAt))

	return &CreateHoldResult{
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		ExpiresAt:       expiresAt,
	}, nil
}

// cleanupFailedHold is best-effort: the primary error is already on its way
// to the caller, so cleanup failures are only logged.
func (s *HoldService) cleanupFailedHold(ctx context.Context, b *booking.Booking, cause error) {
	b.FailDeposit(fmt.Sprintf("deposit hold setup failed: %v", cause))
	b.IncrementVersion()
	if err := s.bookingRepo.SaveWithLock(ctx, b); err != nil {
		s.logger.Error("Failed to mark deposit hold as failed",
			zap.String("booking_id", b.ID.String()),
			zap.Error(err))
	}
}
