package billing

import (
	"context"
	"errors"
	"time"

	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// aggregate is the part of an aggregate root the services need to publish its events
type aggregate interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// publishEvents publishes and clears the pending events of agg. Publishing
// happens after commit, so a failure is logged and not returned.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, log *zap.Logger, agg aggregate) {
	events := agg.GetDomainEvents()
	agg.ClearDomainEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, log).Warn("Failed to publish client events",
			zap.Int("event_count", len(events)),
			zap.Error(err))
	}
}

// retryOnConflict runs fn until it succeeds, fails with something other than
// a concurrency conflict, or maxAttempts is reached. fn must reload the
// aggregate on every attempt.
func retryOnConflict(ctx context.Context, metrics *telemetry.BillingMetrics, operation string, maxAttempts int, fn func(attempt int) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if attempt < maxAttempts {
			metrics.RecordConcurrencyRetry(ctx, operation)
			if waitErr := backoff(ctx, attempt); waitErr != nil {
				return waitErr
			}
		}
	}
	return err
}

func backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * 10 * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
