package payment

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/shared"
)

// WebhookEventRecord is the dedup guard for provider events: one row per
// provider event id, recorded before any business effect is applied.
// Presence of a row means the event was already claimed by a processing pass.
type WebhookEventRecord struct {
	EventID     string
	EventType   string
	ReceivedAt  time.Time
	ProcessedAt *time.Time

	// Result is the structured outcome persisted after processing,
	// serialized as JSON for observability.
	Result string
}

// NewWebhookEventRecord creates a dedup record for a provider event
func NewWebhookEventRecord(eventID, eventType string) (*WebhookEventRecord, error) {
	if eventID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "event ID is required")
	}
	return &WebhookEventRecord{
		EventID:    eventID,
		EventType:  eventType,
		ReceivedAt: time.Now(),
	}, nil
}

// MarkProcessed stores the processing outcome on the record
func (r *WebhookEventRecord) MarkProcessed(resultJSON string) {
	now := time.Now()
	r.ProcessedAt = &now
	r.Result = resultJSON
}
