package models

import (
	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/audit"
	"github.com/fleetrent/backend/internal/domain/shared"
)

// AuditLogModel is the persistence model for the append-only audit sink.
type AuditLogModel struct {
	BaseModel
	Actor      string    `gorm:"type:varchar(100);not null;index"`
	Action     string    `gorm:"type:varchar(100);not null;index"`
	EntityType string    `gorm:"type:varchar(50);not null;index"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Detail     string    `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Entry.
func (m *AuditLogModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Actor:      m.Actor,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Detail:     m.Detail,
	}
}

// FromDomain populates the persistence model from a domain audit Entry.
func (m *AuditLogModel) FromDomain(e *audit.Entry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Actor = e.Actor
	m.Action = e.Action
	m.EntityType = e.EntityType
	m.EntityID = e.EntityID
	m.Detail = e.Detail
	if m.Detail == "" {
		m.Detail = "{}"
	}
}

// RateLimitModel is the persistence model for fixed-window rate limit
// counters kept in the database.
type RateLimitModel struct {
	Key     string `gorm:"type:varchar(200);primary_key"`
	Count   int    `gorm:"not null;default:0"`
	ResetAt int64  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (RateLimitModel) TableName() string {
	return "rate_limits"
}
