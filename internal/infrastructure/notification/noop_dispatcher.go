package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/fleetrent/backend/internal/domain/notification"
)

// NoopDispatcher logs notifications instead of delivering them. Used when
// the notification pipeline is disabled and in tests.
type NoopDispatcher struct {
	logger *zap.Logger
}

// NewNoopDispatcher creates a dispatcher that only logs
func NewNoopDispatcher(logger *zap.Logger) *NoopDispatcher {
	return &NoopDispatcher{logger: logger}
}

// Send logs the notification and succeeds
func (d *NoopDispatcher) Send(_ context.Context, n notification.Notification) error {
	d.logger.Info("Notification suppressed (dispatcher disabled)",
		zap.String("template", n.TemplateType),
		zap.String("channel", string(n.Channel)),
		zap.String("booking_id", n.BookingID.String()))
	return nil
}

var _ notification.Dispatcher = (*NoopDispatcher)(nil)
