package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetrent/backend/internal/domain/payment"
	"github.com/fleetrent/backend/internal/infrastructure/persistence/models"
)

// GormDepositJobRepository implements payment.JobRepository using GORM
type GormDepositJobRepository struct {
	db *gorm.DB
}

// NewGormDepositJobRepository creates a new GormDepositJobRepository
func NewGormDepositJobRepository(db *gorm.DB) *GormDepositJobRepository {
	return &GormDepositJobRepository{db: db}
}

// FetchPending returns up to limit retriable pending jobs, oldest first.
// Jobs at their attempt cap are excluded.
func (r *GormDepositJobRepository) FetchPending(ctx context.Context, limit int) ([]*payment.DepositJob, error) {
	var jobModels []models.DepositJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < max_attempts", payment.JobPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}
	jobs := make([]*payment.DepositJob, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// FetchStaleProcessing returns processing jobs stuck longer than olderThan
func (r *GormDepositJobRepository) FetchStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*payment.DepositJob, error) {
	cutoff := time.Now().Add(-olderThan)
	var jobModels []models.DepositJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?", payment.JobProcessing, cutoff).
		Order("started_at ASC").
		Find(&jobModels).Error; err != nil {
		return nil, err
	}
	jobs := make([]*payment.DepositJob, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// FindByID finds a deposit job by ID
func (r *GormDepositJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.DepositJob, error) {
	var model models.DepositJobModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a deposit job
func (r *GormDepositJobRepository) Save(ctx context.Context, job *payment.DepositJob) error {
	var model models.DepositJobModel
	model.FromDomain(job)
	return r.db.WithContext(ctx).Save(&model).Error
}
