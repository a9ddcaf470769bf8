package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pharmabill/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "pharmabill/event"

// InMemoryEventBus delivers domain events synchronously to in-process handlers.
// Handler failures are logged and never reach the publisher; by the time
// events are published the state change they describe is already committed.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	tracer   trace.Tracer
	running  atomic.Bool
}

// NewInMemoryEventBus creates a bus with no handlers
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
		tracer:   otel.Tracer(tracerName),
	}
}

// Publish hands every event to its handlers in order
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		if evt == nil {
			continue
		}
		b.publishOne(ctx, evt)
	}
	return nil
}

func (b *InMemoryEventBus) publishOne(ctx context.Context, evt shared.DomainEvent) {
	ctx, span := b.tracer.Start(ctx, "event.publish "+evt.EventType(),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event.type", evt.EventType()),
			attribute.String("event.id", evt.EventID().String()),
			attribute.String("pharmacy.id", evt.PharmacyID().String()),
		),
	)
	defer span.End()

	for _, h := range b.registry.Handlers(evt.EventType()) {
		if err := b.dispatch(ctx, h, evt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "handler failed")
			b.logger.Error("Event handler failed",
				zap.String("event_type", evt.EventType()),
				zap.String("event_id", evt.EventID().String()),
				zap.String("pharmacy_id", evt.PharmacyID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatch turns a handler panic into an error
func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, evt)
}

// Subscribe registers handler for eventTypes, or for the handler's own
// EventTypes when none are given. Both empty means every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.running.Store(true)
	b.logger.Info("Event bus started", zap.Int("handlers", b.registry.Len()))
	return nil
}

func (b *InMemoryEventBus) Stop(_ context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped")
	return nil
}

// IsRunning reports whether Start was called without a later Stop
func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
