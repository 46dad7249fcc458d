package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for bookings
type Repository interface {
	// FindByID returns the booking or (nil, nil) when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByPaymentIntentID looks a booking up by either its rental or
	// deposit payment intent id. Returns (nil, nil) when absent.
	FindByPaymentIntentID(ctx context.Context, intentID string) (*Booking, error)

	// Save persists the booking
	Save(ctx context.Context, b *Booking) error

	// SaveWithLock persists the booking with an optimistic version check
	SaveWithLock(ctx context.Context, b *Booking) error

	// GenerateBookingNumber produces the next sequential booking number
	GenerateBookingNumber(ctx context.Context) (string, error)
}
