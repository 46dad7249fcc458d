package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleetrent/backend/internal/domain/shared"
)

// Entry is one append-only audit record
type Entry struct {
	shared.BaseEntity
	Actor      string
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Detail     string
}

// NewEntry creates an audit entry. Detail is free-form JSON.
func NewEntry(actor, action, entityType string, entityID uuid.UUID, detail string) *Entry {
	return &Entry{
		BaseEntity: shared.NewBaseEntity(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	}
}

// Repository is the append-only audit sink
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
}
