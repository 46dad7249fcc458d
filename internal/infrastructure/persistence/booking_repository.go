package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetrent/backend/internal/domain/booking"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/persistence/models"
)

// GormBookingRepository implements booking.Repository using GORM
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID finds a booking by ID
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	var model models.BookingModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPaymentIntentID finds a booking by either its rental or deposit intent id
func (r *GormBookingRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*booking.Booking, error) {
	var model models.BookingModel
	if err := r.db.WithContext(ctx).
		First(&model, "payment_intent_id = ? OR deposit_intent_id = ?", intentID, intentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a booking (insert or full update)
func (r *GormBookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	var model models.BookingModel
	model.FromDomain(b)
	return r.db.WithContext(ctx).Save(&model).Error
}

// SaveWithLock persists a booking with an optimistic version check.
// The caller increments the aggregate version before saving.
func (r *GormBookingRepository) SaveWithLock(ctx context.Context, b *booking.Booking) error {
	var model models.BookingModel
	model.FromDomain(b)
	result := r.db.WithContext(ctx).
		Model(&model).
		Where("id = ? AND version = ?", b.ID, b.Version-1).
		Updates(&model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// GenerateBookingNumber produces the next sequential booking number
func (r *GormBookingRepository) GenerateBookingNumber(ctx context.Context) (string, error) {
	now := time.Now()
	prefix := fmt.Sprintf("BKG-%d%02d-", now.Year(), now.Month())

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.BookingModel{}).
		Where("booking_number LIKE ?", prefix+"%").
		Order("booking_number DESC").
		Limit(1).
		Pluck("booking_number", &maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxNumber != "" {
		var seq int
		if _, err := fmt.Sscanf(maxNumber, prefix+"%d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextSeq), nil
}
