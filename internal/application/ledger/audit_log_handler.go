package ledger

import (
	"context"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PayloadEncoder renders an event as bytes for the audit line
type PayloadEncoder interface {
	Serialize(event shared.DomainEvent) ([]byte, error)
}

// AuditLogHandler writes one structured log line per committed ledger event
type AuditLogHandler struct {
	logger  *zap.Logger
	encoder PayloadEncoder
}

// NewAuditLogHandler creates an AuditLogHandler logging under "ledger.audit"
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogHandler{logger: logger.Named("ledger.audit")}
}

// WithPayload adds the encoded event to every audit line under "payload"
func (h *AuditLogHandler) WithPayload(encoder PayloadEncoder) *AuditLogHandler {
	h.encoder = encoder
	return h
}

// EventTypes returns every ledger event type
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeDayClosed,
		ledger.EventTypeDayReopened,
		ledger.EventTypeDayReclosed,
		ledger.EventTypeRecoveryAllocated,
		ledger.EventTypeRecoveryReapplied,
		ledger.EventTypeRecoveryReverted,
		ledger.EventTypeInvoiceDateCorrected,
	}
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

	switch e := event.(type) {
	case *ledger.DayClosedEvent:
		fields = append(fields,
			zap.String("date", e.Date.String()),
			zap.String("next_date", e.NextDate.String()),
			zap.String("actor_id", e.ClosedBy.String()),
			zap.Int64("invoice_count", e.InvoiceCount),
			zap.String("invoice_total_due", e.InvoiceTotalDue.String()),
			zap.String("recovery_total", e.RecoveryTotal.String()))
	case *ledger.DayReopenedEvent:
		fields = append(fields,
			zap.String("date", e.Date.String()),
			zap.String("actor_id", e.ReopenedBy.String()),
			zap.String("reason", e.Reason))
	case *ledger.DayReclosedEvent:
		fields = append(fields,
			zap.String("date", e.Date.String()),
			zap.String("actor_id", e.ClosedBy.String()))
	case *ledger.RecoveryEvent:
		fields = append(fields,
			zap.String("debtor", e.Debtor.String()),
			zap.String("amount", e.Amount.String()),
			zap.String("applied", e.TotalApplied.String()),
			zap.String("unapplied", e.Unapplied.String()),
			zap.Int("invoice_count", e.InvoiceCount),
			zap.String("actor_id", e.ActorID.String()))
	case *ledger.InvoiceDateCorrectedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("old_date", e.OldDate.String()),
			zap.String("new_date", e.NewDate.String()),
			zap.String("actor_id", e.ActorID.String()),
			zap.String("reason", e.Reason))
	}

	if h.encoder != nil {
		payload, err := h.encoder.Serialize(event)
		if err != nil {
			h.logger.Warn("Failed to encode ledger event payload",
				zap.String("event_id", event.EventID().String()),
				zap.Error(err))
		} else {
			fields = append(fields, zap.ByteString("payload", payload))
		}
	}

	h.logger.Info("Ledger event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
