package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(NewBookingInput{
		BookingNumber: "BK-2026-0001",
		CustomerID:    uuid.New(),
		CustomerEmail: "renter@example.com",
		CustomerName:  "Test Renter",
		StartDate:     time.Now().Add(24 * time.Hour),
		EndDate:       time.Now().Add(72 * time.Hour),
		TotalAmount:   valueobject.NewMoneyFromCents(12000, valueobject.USD),
	})
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	t.Run("creates draft booking with no deposit", func(t *testing.T) {
		b := newTestBooking(t)

		assert.Equal(t, StatusDraft, b.Status)
		assert.Equal(t, DepositNone, b.DepositStatus)
		assert.Equal(t, SessionStandard, b.SessionType)
		assert.Equal(t, 1, b.GetVersion())
		assert.True(t, b.IsPayable())
	})

	t.Run("rejects missing booking number", func(t *testing.T) {
		_, err := NewBooking(NewBookingInput{
			CustomerID:    uuid.New(),
			CustomerEmail: "renter@example.com",
			TotalAmount:   valueobject.NewMoneyFromCents(100, valueobject.USD),
		})
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_INPUT", derr.Code)
	})

	t.Run("rejects non-positive total", func(t *testing.T) {
		_, err := NewBooking(NewBookingInput{
			BookingNumber: "BK-2026-0002",
			CustomerID:    uuid.New(),
			CustomerEmail: "renter@example.com",
			TotalAmount:   valueobject.Zero(valueobject.USD),
		})
		assert.Error(t, err)
	})
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusPending, true},
		{StatusDraft, StatusConfirmed, true},
		{StatusDraft, StatusCancelled, true},
		{StatusDraft, StatusActive, false},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusActive, false},
		{StatusConfirmed, StatusActive, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestDepositStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    DepositStatus
		to      DepositStatus
		allowed bool
	}{
		{DepositNone, DepositAuthorizing, true},
		{DepositNone, DepositAuthorized, false},
		{DepositAuthorizing, DepositRequiresPayment, true},
		{DepositAuthorizing, DepositAuthorized, true},
		{DepositRequiresPayment, DepositAuthorized, true},
		{DepositRequiresPayment, DepositExpired, true},
		{DepositAuthorized, DepositExpired, true},
		{DepositAuthorized, DepositCanceled, true},
		{DepositAuthorized, DepositAuthorizing, false},
		// failed, expired and canceled holds may be retried
		{DepositFailed, DepositAuthorizing, true},
		{DepositExpired, DepositAuthorizing, true},
		{DepositCanceled, DepositAuthorizing, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestBooking_DepositHoldLifecycle(t *testing.T) {
	b := newTestBooking(t)
	holdAmount := valueobject.NewMoneyFromCents(50000, valueobject.USD)

	require.NoError(t, b.BeginDepositHold(holdAmount))
	assert.Equal(t, DepositAuthorizing, b.DepositStatus)
	assert.True(t, b.DepositAmount.Equals(holdAmount))

	expiresAt := time.Now().Add(HoldDuration)
	require.NoError(t, b.AttachDepositIntent("pi_hold_123", expiresAt))
	assert.Equal(t, DepositRequiresPayment, b.DepositStatus)
	assert.Equal(t, "pi_hold_123", b.DepositIntentID)

	require.NoError(t, b.AuthorizeDeposit("pm_card_1", "visa", "4242", expiresAt))
	assert.Equal(t, DepositAuthorized, b.DepositStatus)
	assert.Equal(t, "visa", b.DepositCardBrand)
	assert.Equal(t, "4242", b.DepositCardLast4)
	assert.True(t, b.HasLiveDepositHold())

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventDepositAuthorized, events[0].EventType())
}

func TestBooking_BeginDepositHold_Validation(t *testing.T) {
	b := newTestBooking(t)

	err := b.BeginDepositHold(valueobject.Zero(valueobject.USD))
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "INVALID_INPUT", derr.Code)
	assert.Equal(t, DepositNone, b.DepositStatus)
}

func TestBooking_FailDeposit(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.BeginDepositHold(valueobject.NewMoneyFromCents(50000, valueobject.USD)))

	b.FailDeposit("card declined")

	assert.Equal(t, DepositFailed, b.DepositStatus)
	assert.Contains(t, b.Notes, "card declined")

	// A failed hold can be retried with a fresh one
	assert.NoError(t, b.BeginDepositHold(valueobject.NewMoneyFromCents(50000, valueobject.USD)))
	assert.Equal(t, DepositAuthorizing, b.DepositStatus)
}

func TestBooking_ReleaseDeposit(t *testing.T) {
	setup := func(t *testing.T) *Booking {
		b := newTestBooking(t)
		require.NoError(t, b.BeginDepositHold(valueobject.NewMoneyFromCents(50000, valueobject.USD)))
		require.NoError(t, b.AttachDepositIntent("pi_hold_1", time.Now().Add(HoldDuration)))
		require.NoError(t, b.AuthorizeDeposit("pm_1", "visa", "4242", time.Now().Add(HoldDuration)))
		b.ClearDomainEvents()
		return b
	}

	t.Run("manual release lands on canceled", func(t *testing.T) {
		b := setup(t)
		require.NoError(t, b.ReleaseDeposit(false))
		assert.Equal(t, DepositCanceled, b.DepositStatus)
		assert.False(t, b.HasLiveDepositHold())

		events := b.GetDomainEvents()
		require.Len(t, events, 1)
		released, ok := events[0].(*DepositReleasedEvent)
		require.True(t, ok)
		assert.False(t, released.Automatic)
	})

	t.Run("automatic release lands on expired", func(t *testing.T) {
		b := setup(t)
		require.NoError(t, b.ReleaseDeposit(true))
		assert.Equal(t, DepositExpired, b.DepositStatus)

		events := b.GetDomainEvents()
		require.Len(t, events, 1)
		released, ok := events[0].(*DepositReleasedEvent)
		require.True(t, ok)
		assert.True(t, released.Automatic)
	})

	t.Run("rejects release without a hold", func(t *testing.T) {
		b := newTestBooking(t)
		err := b.ReleaseDeposit(false)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_STATE_TRANSITION", derr.Code)
	})
}

func TestBooking_RecordDepositCapture(t *testing.T) {
	b := newTestBooking(t)

	assert.True(t, b.RecordDepositCapture("ch_1"))
	assert.Equal(t, "ch_1", b.DepositChargeID)

	// Second charge id never overwrites the first
	assert.False(t, b.RecordDepositCapture("ch_2"))
	assert.Equal(t, "ch_1", b.DepositChargeID)

	assert.False(t, newTestBooking(t).RecordDepositCapture(""))
}

func TestBooking_Confirm(t *testing.T) {
	b := newTestBooking(t)

	require.NoError(t, b.Confirm())
	assert.Equal(t, StatusConfirmed, b.Status)
	require.Len(t, b.GetDomainEvents(), 1)
	assert.Equal(t, EventBookingConfirmed, b.GetDomainEvents()[0].EventType())

	// Replayed provider events no-op instead of erroring
	b.ClearDomainEvents()
	require.NoError(t, b.Confirm())
	assert.Empty(t, b.GetDomainEvents())
}

func TestBooking_PromoteDraft(t *testing.T) {
	b := newTestBooking(t)

	assert.True(t, b.PromoteDraft())
	assert.Equal(t, StatusPending, b.Status)

	assert.False(t, b.PromoteDraft())
}

func TestBooking_RecordPaymentFailure(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.BeginDepositHold(valueobject.NewMoneyFromCents(50000, valueobject.USD)))

	b.RecordPaymentFailure("provider declined")

	// Draft stays draft so pay-now flows never surface in operational queues
	assert.Equal(t, StatusDraft, b.Status)
	assert.Equal(t, DepositFailed, b.DepositStatus)
	assert.Contains(t, b.Notes, "provider declined")
}

func TestBooking_Void(t *testing.T) {
	t.Run("cancels a live booking", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.Void())
		assert.Equal(t, StatusCancelled, b.Status)
		assert.False(t, b.IsPayable())
		require.Len(t, b.GetDomainEvents(), 1)
		assert.Equal(t, EventBookingCancelled, b.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects terminal states", func(t *testing.T) {
		for _, status := range []Status{StatusCompleted, StatusCancelled} {
			b := newTestBooking(t)
			b.Status = status

			err := b.Void()
			var derr *shared.DomainError
			require.ErrorAs(t, err, &derr, string(status))
			assert.Equal(t, "INVALID_STATE_TRANSITION", derr.Code)
		}
	})
}

func TestBooking_CloseAccount(t *testing.T) {
	t.Run("completes a confirmed booking", func(t *testing.T) {
		b := newTestBooking(t)
		require.NoError(t, b.Confirm())
		b.ClearDomainEvents()

		require.NoError(t, b.CloseAccount())
		assert.Equal(t, StatusCompleted, b.Status)
		assert.False(t, b.IsPayable())
		require.Len(t, b.GetDomainEvents(), 1)
		assert.Equal(t, EventBookingCompleted, b.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects terminal states", func(t *testing.T) {
		b := newTestBooking(t)
		b.Status = StatusCancelled

		err := b.CloseAccount()
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_STATE_TRANSITION", derr.Code)
	})
}

func TestBooking_AppendNote(t *testing.T) {
	b := newTestBooking(t)

	b.AppendNote("first")
	b.AppendNote("second")

	assert.Contains(t, b.Notes, "first")
	assert.Contains(t, b.Notes, "second")
	assert.Contains(t, b.Notes, "\n")
}
