package payment

import (
	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// LedgerAction identifies a deposit lifecycle action
type LedgerAction string

const (
	LedgerActionHold      LedgerAction = "stripe_hold"
	LedgerActionAuthorize LedgerAction = "authorize"
	LedgerActionRelease   LedgerAction = "release"
	LedgerActionDeduct    LedgerAction = "deduct"
)

// IsValid checks if the ledger action is valid
func (a LedgerAction) IsValid() bool {
	switch a {
	case LedgerActionHold, LedgerActionAuthorize, LedgerActionRelease, LedgerActionDeduct:
		return true
	}
	return false
}

// DepositLedgerEntry is an append-only audit record of one deposit
// lifecycle action, independent of the current booking snapshot.
type DepositLedgerEntry struct {
	shared.BaseEntity
	BookingID uuid.UUID
	Action    LedgerAction
	Amount    valueobject.Money
	Reason    string
}

// NewDepositLedgerEntry creates a deposit ledger entry
func NewDepositLedgerEntry(bookingID uuid.UUID, action LedgerAction, amount valueobject.Money, reason string) (*DepositLedgerEntry, error) {
	if bookingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "booking ID is required")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid ledger action")
	}
	return &DepositLedgerEntry{
		BaseEntity: shared.NewBaseEntity(),
		BookingID:  bookingID,
		Action:     action,
		Amount:     amount,
		Reason:     reason,
	}, nil
}
