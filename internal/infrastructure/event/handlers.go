package event

import (
	"context"

	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AuditLogHandler writes every account event to the log with its full payload
type AuditLogHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

func NewAuditLogHandler(serializer *EventSerializer, l *zap.Logger) *AuditLogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditLogHandler{serializer: serializer, logger: l.Named("audit")}
}

func (h *AuditLogHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(evt)
	if err != nil {
		return err
	}
	logger.Enrich(ctx, h.logger).Info("Account event",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.String("pharmacy_id", evt.PharmacyID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

// EventTypes is empty: the audit log receives everything
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// MetricsHandler turns account events into billing metrics
type MetricsHandler struct {
	metrics *telemetry.BillingMetrics
}

// NewMetricsHandler accepts a nil metrics, in which case events are ignored
func NewMetricsHandler(metrics *telemetry.BillingMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if e, ok := evt.(*client.ClientStatusChangedEvent); ok {
		h.metrics.RecordStatusChange(ctx, e.PharmacyID(), e.NewStatus.String())
	}
	return nil
}

func (h *MetricsHandler) EventTypes() []string {
	return []string{client.EventTypeClientStatusChanged}
}

var (
	_ shared.EventHandler = (*AuditLogHandler)(nil)
	_ shared.EventHandler = (*MetricsHandler)(nil)
)
