package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/infrastructure/persistence/models"
)

// GormDepositLedgerRepository implements payment.LedgerRepository using GORM
type GormDepositLedgerRepository struct {
	db *gorm.DB
}

// NewGormDepositLedgerRepository creates a new GormDepositLedgerRepository
func NewGormDepositLedgerRepository(db *gorm.DB) *GormDepositLedgerRepository {
	return &GormDepositLedgerRepository{db: db}
}

// Append inserts a ledger entry
func (r *GormDepositLedgerRepository) Append(ctx context.Context, entry *payment.DepositLedgerEntry) error {
	var model models.DepositLedgerModel
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListByBookingID returns all entries for a booking, oldest first
func (r *GormDepositLedgerRepository) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*payment.DepositLedgerEntry, error) {
	var entryModels []models.DepositLedgerModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]*payment.DepositLedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries, nil
}

// CountByAction counts entries of an action for a booking
func (r *GormDepositLedgerRepository) CountByAction(ctx context.Context, bookingID uuid.UUID, action payment.LedgerAction) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DepositLedgerModel{}).
		Where("booking_id = ? AND action = ?", bookingID, action).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
