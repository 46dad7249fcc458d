package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/infrastructure/persistence/models"
)

// GormWebhookEventRepository implements payment.WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Record claims an event id with a single conditional insert on the primary
// key. First writer wins across concurrent deliveries; RowsAffected == 0
// means the event was already claimed.
func (r *GormWebhookEventRepository) Record(ctx context.Context, record *payment.WebhookEventRecord) (bool, error) {
	var model models.WebhookEventModel
	model.FromDomain(record)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SaveResult persists the processing outcome onto the event record
func (r *GormWebhookEventRepository) SaveResult(ctx context.Context, eventID, resultJSON string) error {
	if resultJSON == "" {
		resultJSON = "{}"
	}
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"processed_at": now,
			"result":       resultJSON,
		}).Error
}
