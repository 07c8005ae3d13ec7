package event

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskprod/backend/internal/domain/shared"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every domain event to the log under the "audit"
// logger, tagged with the request or job that produced it.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates the audit handler
func NewAuditLogHandler(l *zap.Logger) *AuditLogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditLogHandler{logger: l.Named("audit")}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	if actor := event.ActorID(); actor != uuid.Nil {
		fields = append(fields, zap.String("actor_id", actor.String()))
	} else {
		fields = append(fields, zap.String("actor_id", "system"))
	}

	logger.WithLogger(ctx, h.logger).Info("domain event", fields...)
	return nil
}

// EventTypes returns nil; the audit handler receives every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
