package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// Type distinguishes what a ledger row settles
type Type string

const (
	TypeRental     Type = "rental"
	TypeDeposit    Type = "deposit"
	TypeRefund     Type = "refund"
	TypeAdditional Type = "additional"
)

// IsValid checks if the payment type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeRental, TypeDeposit, TypeRefund, TypeAdditional:
		return true
	}
	return false
}

// Status represents the settlement outcome of a payment row
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// IsValid checks if the payment status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Payment is an append-only ledger row recording one monetary movement.
// Rows are inserted after a confirmed provider outcome and never updated,
// with one exception: a deposit row flips to refunded when held funds are
// returned by the job processor. Refunds are separate negative-amount rows.
type Payment struct {
	shared.BaseEntity
	BookingID     uuid.UUID
	PaymentNumber string
	Amount        valueobject.Money
	Type          Type
	Status        Status

	// ProviderTransactionID is the provider charge id, ProviderIntentID
	// the payment intent that produced it.
	ProviderTransactionID string
	ProviderIntentID      string

	Method string
	Note   string
}

// NewPaymentInput contains input for recording a payment
type NewPaymentInput struct {
	BookingID             uuid.UUID
	PaymentNumber         string
	Amount                valueobject.Money
	Type                  Type
	Status                Status
	ProviderTransactionID string
	ProviderIntentID      string
	Method                string
	Note                  string
}

// NewPayment records a settled, failed or refunded monetary movement
func NewPayment(input NewPaymentInput) (*Payment, error) {
	if input.BookingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "booking ID is required")
	}
	if !input.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid payment type")
	}
	if !input.Status.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid payment status")
	}
	if input.Type == TypeRefund && !input.Amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "refund amount must be negative")
	}
	if input.Type != TypeRefund && input.Amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "payment amount cannot be negative")
	}

	return &Payment{
		BaseEntity:            shared.NewBaseEntity(),
		BookingID:             input.BookingID,
		PaymentNumber:         input.PaymentNumber,
		Amount:                input.Amount,
		Type:                  input.Type,
		Status:                input.Status,
		ProviderTransactionID: input.ProviderTransactionID,
		ProviderIntentID:      input.ProviderIntentID,
		Method:                input.Method,
		Note:                  input.Note,
	}, nil
}

// MarkRefunded flips a completed deposit row after held funds were returned
func (p *Payment) MarkRefunded() error {
	if p.Status != StatusCompleted {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "only completed payments can be refunded")
	}
	p.Status = StatusRefunded
	p.UpdatedAt = time.Now()
	return nil
}
