package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// Repository defines persistence operations for the payment ledger
type Repository interface {
	// FindByID returns the payment or (nil, nil) when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindDepositByBookingID returns the completed deposit payment for a
	// booking, or (nil, nil) when none exists
	FindDepositByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error)

	// FindBookingIDByIntentID resolves a booking from a provider intent id
	// recorded on any payment row. Returns uuid.Nil when absent.
	FindBookingIDByIntentID(ctx context.Context, intentID string) (uuid.UUID, error)

	// ExistsByTransactionID reports whether a row with the provider charge
	// id already exists, optionally restricted to a payment type
	ExistsByTransactionID(ctx context.Context, transactionID string, paymentType Type) (bool, error)

	// SumCompletedByType returns the sum of completed payment amounts of
	// the given type for a booking
	SumCompletedByType(ctx context.Context, bookingID uuid.UUID, paymentType Type) (valueobject.Money, error)

	// Insert appends a ledger row
	Insert(ctx context.Context, p *Payment) error

	// Update persists a status flip on an existing row
	Update(ctx context.Context, p *Payment) error

	// GeneratePaymentNumber produces the next sequential payment number
	GeneratePaymentNumber(ctx context.Context) (string, error)
}

// LedgerRepository defines persistence for the append-only deposit ledger
type LedgerRepository interface {
	// Append inserts a ledger entry
	Append(ctx context.Context, entry *DepositLedgerEntry) error

	// ListByBookingID returns all entries for a booking, oldest first
	ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*DepositLedgerEntry, error)

	// CountByAction returns how many entries of an action exist for a booking
	CountByAction(ctx context.Context, bookingID uuid.UUID, action LedgerAction) (int64, error)
}

// JobRepository defines persistence for deposit jobs
type JobRepository interface {
	// FetchPending returns up to limit retriable pending jobs, oldest first
	FetchPending(ctx context.Context, limit int) ([]*DepositJob, error)

	// FetchStaleProcessing returns processing jobs stuck longer than olderThan
	FetchStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*DepositJob, error)

	// FindByID returns the job or (nil, nil) when absent
	FindByID(ctx context.Context, id uuid.UUID) (*DepositJob, error)

	// Save persists the job
	Save(ctx context.Context, job *DepositJob) error
}

// WebhookEventRepository defines persistence for the webhook dedup table
type WebhookEventRepository interface {
	// Record claims an event id with a single conditional insert.
	// Returns true when this call inserted the row, false when the id
	// was already present.
	Record(ctx context.Context, record *WebhookEventRecord) (bool, error)

	// SaveResult persists the processing outcome onto the event record
	SaveResult(ctx context.Context, eventID, resultJSON string) error
}
