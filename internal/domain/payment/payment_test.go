package payment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

func validPaymentInput() NewPaymentInput {
	return NewPaymentInput{
		BookingID:             uuid.New(),
		PaymentNumber:         "PAY-2026-0001",
		Amount:                valueobject.NewMoneyFromCents(12000, valueobject.USD),
		Type:                  TypeRental,
		Status:                StatusCompleted,
		ProviderTransactionID: "ch_abc123",
		ProviderIntentID:      "pi_abc123",
		Method:                "card",
	}
}

func TestNewPayment(t *testing.T) {
	t.Run("records a completed rental payment", func(t *testing.T) {
		p, err := NewPayment(validPaymentInput())
		require.NoError(t, err)

		assert.Equal(t, TypeRental, p.Type)
		assert.Equal(t, StatusCompleted, p.Status)
		assert.Equal(t, "ch_abc123", p.ProviderTransactionID)
		assert.NotEqual(t, uuid.Nil, p.ID)
	})

	t.Run("rejects missing booking", func(t *testing.T) {
		input := validPaymentInput()
		input.BookingID = uuid.Nil

		_, err := NewPayment(input)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_INPUT", derr.Code)
	})

	t.Run("rejects invalid type", func(t *testing.T) {
		input := validPaymentInput()
		input.Type = Type("chargeback")

		_, err := NewPayment(input)
		assert.Error(t, err)
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		input := validPaymentInput()
		input.Status = Status("pending")

		_, err := NewPayment(input)
		assert.Error(t, err)
	})

	t.Run("refund rows must be negative", func(t *testing.T) {
		input := validPaymentInput()
		input.Type = TypeRefund
		input.Amount = valueobject.NewMoneyFromCents(500, valueobject.USD)

		_, err := NewPayment(input)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_INPUT", derr.Code)

		input.Amount = valueobject.NewMoneyFromCents(-500, valueobject.USD)
		p, err := NewPayment(input)
		require.NoError(t, err)
		assert.True(t, p.Amount.IsNegative())
	})

	t.Run("non-refund rows cannot be negative", func(t *testing.T) {
		input := validPaymentInput()
		input.Type = TypeDeposit
		input.Amount = valueobject.NewMoneyFromCents(-500, valueobject.USD)

		_, err := NewPayment(input)
		assert.Error(t, err)
	})
}

func TestPayment_MarkRefunded(t *testing.T) {
	t.Run("flips a completed deposit row", func(t *testing.T) {
		input := validPaymentInput()
		input.Type = TypeDeposit
		p, err := NewPayment(input)
		require.NoError(t, err)

		require.NoError(t, p.MarkRefunded())
		assert.Equal(t, StatusRefunded, p.Status)
	})

	t.Run("rejects non-completed rows", func(t *testing.T) {
		input := validPaymentInput()
		input.Status = StatusFailed
		p, err := NewPayment(input)
		require.NoError(t, err)

		err = p.MarkRefunded()
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_STATE_TRANSITION", derr.Code)
		assert.Equal(t, StatusFailed, p.Status)
	})

	t.Run("already refunded rows stay refunded", func(t *testing.T) {
		p, err := NewPayment(validPaymentInput())
		require.NoError(t, err)
		require.NoError(t, p.MarkRefunded())

		assert.Error(t, p.MarkRefunded())
	})
}
