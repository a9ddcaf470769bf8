package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// ReceivablesProvider reports what clients owe, for periodic gauge collection.
type ReceivablesProvider interface {
	// PharmacyIDs returns pharmacies that have at least one client
	PharmacyIDs(ctx context.Context) ([]uuid.UUID, error)

	// OutstandingDebt returns the sum of positive balances per currency
	OutstandingDebt(ctx context.Context, pharmacyID uuid.UUID) (map[string]decimal.Decimal, error)

	// ClientsOverLimit counts clients whose debt exceeds their credit limit
	ClientsOverLimit(ctx context.Context, pharmacyID uuid.UUID) (int64, error)
}

// BillingMetricsConfig configures BillingMetrics.
type BillingMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // default 5m
	Receivables     ReceivablesProvider
}

// BillingMetrics records account activity. A nil *BillingMetrics is valid and records nothing.
type BillingMetrics struct {
	logger *zap.Logger

	transactionsTotal     *Counter
	transactionAmount     *Counter
	creditLimitRejections *Counter
	concurrencyRetries    *Counter
	statusChanges         *Counter
	operationDuration     *Histogram
	outstandingDebt       *Gauge
	clientsOverLimit      *Gauge

	receivables ReceivablesProvider
	interval    time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	startOnce   sync.Once
}

// NewBillingMetrics registers the billing instruments on the meter.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	bm := &BillingMetrics{
		logger:      logger,
		receivables: cfg.Receivables,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}

	var err error
	if bm.transactionsTotal, err = NewCounter(cfg.Meter, "pharma_transactions_total",
		"Ledger entries posted to client accounts", "{transactions}"); err != nil {
		return nil, err
	}
	if bm.transactionAmount, err = NewCounter(cfg.Meter, "pharma_transaction_amount_cents_total",
		"Total posted amount in cents", "{cents}"); err != nil {
		return nil, err
	}
	if bm.creditLimitRejections, err = NewCounter(cfg.Meter, "pharma_credit_limit_rejections_total",
		"Charges rejected because they would exceed the credit limit", "{charges}"); err != nil {
		return nil, err
	}
	if bm.concurrencyRetries, err = NewCounter(cfg.Meter, "pharma_concurrency_retries_total",
		"Operations retried after an optimistic lock conflict", "{retries}"); err != nil {
		return nil, err
	}
	if bm.statusChanges, err = NewCounter(cfg.Meter, "pharma_client_status_changes_total",
		"Client status transitions", "{changes}"); err != nil {
		return nil, err
	}
	if bm.operationDuration, err = NewHistogram(cfg.Meter, "pharma_billing_operation_duration_seconds",
		"Duration of billing service operations", "s", OperationDurationBuckets...); err != nil {
		return nil, err
	}
	if bm.outstandingDebt, err = NewGauge(cfg.Meter, "pharma_outstanding_debt_cents",
		"Sum of client debt in cents", "{cents}"); err != nil {
		return nil, err
	}
	if bm.clientsOverLimit, err = NewGauge(cfg.Meter, "pharma_clients_over_limit",
		"Clients whose debt exceeds their credit limit", "{clients}"); err != nil {
		return nil, err
	}
	return bm, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// RecordTransaction counts a posted ledger entry and its total.
func (bm *BillingMetrics) RecordTransaction(ctx context.Context, pharmacyID uuid.UUID, txType, currency string, total decimal.Decimal) {
	if bm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrPharmacyID.String(pharmacyID.String()),
		AttrTransactionType.String(txType),
		AttrCurrency.String(currency),
	}
	bm.transactionsTotal.Inc(ctx, attrs...)
	bm.transactionAmount.Add(ctx, toCents(total.Abs()), attrs...)
}

func (bm *BillingMetrics) RecordCreditLimitRejection(ctx context.Context, pharmacyID uuid.UUID) {
	if bm == nil {
		return
	}
	bm.creditLimitRejections.Inc(ctx, AttrPharmacyID.String(pharmacyID.String()))
}

func (bm *BillingMetrics) RecordConcurrencyRetry(ctx context.Context, operation string) {
	if bm == nil {
		return
	}
	bm.concurrencyRetries.Inc(ctx, AttrOperation.String(operation))
}

func (bm *BillingMetrics) RecordStatusChange(ctx context.Context, pharmacyID uuid.UUID, status string) {
	if bm == nil {
		return
	}
	bm.statusChanges.Inc(ctx,
		AttrPharmacyID.String(pharmacyID.String()),
		AttrClientStatus.String(status),
	)
}

// RecordOperation records how long a service operation took and whether it failed.
func (bm *BillingMetrics) RecordOperation(ctx context.Context, operation string, started time.Time, err error) {
	if bm == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	bm.operationDuration.RecordDuration(ctx, time.Since(started),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	)
}

// StartPeriodicCollection samples receivables every interval until Stop or ctx is done.
func (bm *BillingMetrics) StartPeriodicCollection(ctx context.Context) {
	if bm == nil || bm.receivables == nil {
		return
	}
	bm.startOnce.Do(func() {
		go bm.run(ctx)
	})
}

func (bm *BillingMetrics) run(ctx context.Context) {
	ticker := time.NewTicker(bm.interval)
	defer ticker.Stop()

	bm.Collect(ctx)
	for {
		select {
		case <-bm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.Collect(ctx)
		}
	}
}

// Collect samples the receivables gauges once.
func (bm *BillingMetrics) Collect(ctx context.Context) {
	if bm == nil || bm.receivables == nil {
		return
	}
	ids, err := bm.receivables.PharmacyIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to list pharmacies for metrics collection", zap.Error(err))
		return
	}

	for _, id := range ids {
		pharmacy := AttrPharmacyID.String(id.String())

		debt, err := bm.receivables.OutstandingDebt(ctx, id)
		if err != nil {
			bm.logger.Warn("Failed to read outstanding debt", zap.String("pharmacy_id", id.String()), zap.Error(err))
		} else {
			for currency, amount := range debt {
				bm.outstandingDebt.Record(ctx, toCents(amount), pharmacy, AttrCurrency.String(currency))
			}
		}

		over, err := bm.receivables.ClientsOverLimit(ctx, id)
		if err != nil {
			bm.logger.Warn("Failed to count clients over limit", zap.String("pharmacy_id", id.String()), zap.Error(err))
			continue
		}
		bm.clientsOverLimit.Record(ctx, over, pharmacy)
	}
}

func (bm *BillingMetrics) Stop() {
	if bm == nil {
		return
	}
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}
