package notification

import (
	"context"

	"github.com/google/uuid"
)

// Channel identifies how a notification is delivered
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Template names for outbound customer notifications
const (
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateBookingCancelled = "booking_cancelled"
	TemplateBookingCompleted = "booking_completed"
	TemplatePaymentFailed    = "payment_failed"
	TemplateDepositHeld      = "deposit_held"
	TemplateDepositReleased  = "deposit_released"
	TemplateDepositWithheld  = "deposit_withheld"
)

// Notification is one outbound send request. IdempotencyKey lets the
// downstream sender suppress duplicate deliveries.
type Notification struct {
	BookingID      uuid.UUID         `json:"booking_id"`
	Channel        Channel           `json:"channel"`
	TemplateType   string            `json:"template_type"`
	Recipient      string            `json:"recipient"`
	IdempotencyKey string            `json:"idempotency_key"`
	Params         map[string]string `json:"params,omitempty"`
}

// Dispatcher hands notifications to the delivery pipeline. Delivery is
// fire-and-forget from the caller's perspective: errors are for logging,
// never for failing the primary operation.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}
