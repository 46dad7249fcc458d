package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/fleetrent/backend/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements payment.Repository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDepositByBookingID finds the completed deposit payment for a booking
func (r *GormPaymentRepository) FindDepositByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ? AND type = ? AND status = ?", bookingID, payment.TypeDeposit, payment.StatusCompleted).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBookingIDByIntentID resolves a booking from an intent id on any payment row
func (r *GormPaymentRepository) FindBookingIDByIntentID(ctx context.Context, intentID string) (uuid.UUID, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("provider_intent_id = ?", intentID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return model.BookingID, nil
}

// ExistsByTransactionID reports whether a row with the provider charge id exists
func (r *GormPaymentRepository) ExistsByTransactionID(ctx context.Context, transactionID string, paymentType payment.Type) (bool, error) {
	if transactionID == "" {
		return false, nil
	}
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("provider_transaction_id = ?", transactionID)
	if paymentType != "" {
		query = query.Where("type = ?", paymentType)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumCompletedByType sums completed payment amounts of a type for a booking
func (r *GormPaymentRepository) SumCompletedByType(ctx context.Context, bookingID uuid.UUID, paymentType payment.Type) (valueobject.Money, error) {
	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("booking_id = ? AND type = ? AND status = ?", bookingID, paymentType, payment.StatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return valueobject.Zero(valueobject.DefaultCurrency), err
	}
	if sum.Valid {
		return valueobject.NewMoney(sum.Decimal, valueobject.DefaultCurrency)
	}
	return valueobject.Zero(valueobject.DefaultCurrency), nil
}

// Insert appends a ledger row
func (r *GormPaymentRepository) Insert(ctx context.Context, p *payment.Payment) error {
	var model models.PaymentModel
	model.FromDomain(p)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update persists a status flip on an existing row
func (r *GormPaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	var model models.PaymentModel
	model.FromDomain(p)
	return r.db.WithContext(ctx).Save(&model).Error
}

// GeneratePaymentNumber produces the next sequential payment number
func (r *GormPaymentRepository) GeneratePaymentNumber(ctx context.Context) (string, error) {
	now := time.Now()
	prefix := fmt.Sprintf("PAY-%d%02d-", now.Year(), now.Month())

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("payment_number LIKE ?", prefix+"%").
		Order("payment_number DESC").
		Limit(1).
		Pluck("payment_number", &maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if maxNumber != "" {
		var seq int
		if _, err := fmt.Sscanf(maxNumber, prefix+"%d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}

	return fmt.Sprintf("%s%06d", prefix, nextSeq), nil
}
