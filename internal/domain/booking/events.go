package booking

import (
	"github.com/fleetrent/backend/internal/domain/shared"
)

// Event types published by the booking aggregate
const (
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingCompleted  = "booking.completed"
	EventDepositAuthorized = "booking.deposit_authorized"
	EventDepositReleased   = "booking.deposit_released"
)

// BookingConfirmedEvent is raised when a rental payment settles
type BookingConfirmedEvent struct {
	shared.BaseDomainEvent
	BookingNumber string `json:"booking_number"`
	CustomerEmail string `json:"customer_email"`
}

// NewBookingConfirmedEvent creates a booking confirmed event
func NewBookingConfirmedEvent(b *Booking) *BookingConfirmedEvent {
	return &BookingConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventBookingConfirmed, "Booking", b.ID),
		BookingNumber:   b.BookingNumber,
		CustomerEmail:   b.CustomerEmail,
	}
}

// BookingCancelledEvent is raised when a booking is voided
type BookingCancelledEvent struct {
	shared.BaseDomainEvent
	BookingNumber string `json:"booking_number"`
	CustomerEmail string `json:"customer_email"`
}

// NewBookingCancelledEvent creates a booking cancelled event
func NewBookingCancelledEvent(b *Booking) *BookingCancelledEvent {
	return &BookingCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventBookingCancelled, "Booking", b.ID),
		BookingNumber:   b.BookingNumber,
		CustomerEmail:   b.CustomerEmail,
	}
}

// BookingCompletedEvent is raised when the rental account is closed
type BookingCompletedEvent struct {
	shared.BaseDomainEvent
	BookingNumber string `json:"booking_number"`
	CustomerEmail string `json:"customer_email"`
}

// NewBookingCompletedEvent creates a booking completed event
func NewBookingCompletedEvent(b *Booking) *BookingCompletedEvent {
	return &BookingCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventBookingCompleted, "Booking", b.ID),
		BookingNumber:   b.BookingNumber,
		CustomerEmail:   b.CustomerEmail,
	}
}

// DepositAuthorizedEvent is raised when the provider confirms an authorization hold
type DepositAuthorizedEvent struct {
	shared.BaseDomainEvent
	BookingNumber string `json:"booking_number"`
	CustomerEmail string `json:"customer_email"`
	CardBrand     string `json:"card_brand"`
	CardLast4     string `json:"card_last4"`
}

// NewDepositAuthorizedEvent creates a deposit authorized event
func NewDepositAuthorizedEvent(b *Booking) *DepositAuthorizedEvent {
	return &DepositAuthorizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDepositAuthorized, "Booking", b.ID),
		BookingNumber:   b.BookingNumber,
		CustomerEmail:   b.CustomerEmail,
		CardBrand:       b.DepositCardBrand,
		CardLast4:       b.DepositCardLast4,
	}
}

// DepositReleasedEvent is raised when an authorization hold is released
type DepositReleasedEvent struct {
	shared.BaseDomainEvent
	BookingNumber string `json:"booking_number"`
	CustomerEmail string `json:"customer_email"`
	Automatic     bool   `json:"automatic"`
}

// NewDepositReleasedEvent creates a deposit released event
func NewDepositReleasedEvent(b *Booking, automatic bool) *DepositReleasedEvent {
	return &DepositReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDepositReleased, "Booking", b.ID),
		BookingNumber:   b.BookingNumber,
		CustomerEmail:   b.CustomerEmail,
		Automatic:       automatic,
	}
}
