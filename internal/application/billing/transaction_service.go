package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TransactionService posts ledger entries against client accounts
type TransactionService struct {
	clientRepo       client.ClientRepository
	transactionRepo  client.TransactionRepository
	cfg              Config
	logger           *zap.Logger
	eventPublisher   shared.EventPublisher
	metrics          *telemetry.BillingMetrics
	idempotencyStore shared.IdempotencyStore
	now              func() time.Time
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	clientRepo client.ClientRepository,
	transactionRepo client.TransactionRepository,
	cfg Config,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		clientRepo:      clientRepo,
		transactionRepo: transactionRepo,
		cfg:             cfg.withDefaults(),
		logger:          nopIfNil(logger),
		now:             time.Now,
	}
}

// SetEventPublisher sets the event publisher for client events
func (s *TransactionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBillingMetrics sets the billing metrics recorder
func (s *TransactionService) SetBillingMetrics(metrics *telemetry.BillingMetrics) {
	s.metrics = metrics
}

// SetIdempotencyStore enables Idempotency-Key handling on Create
func (s *TransactionService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotencyStore = store
}

// Create posts a new entry and moves the client balance in the same database
// transaction. Charges honour the credit limit unless AllowOverLimit is set.
func (s *TransactionService) Create(ctx context.Context, pharmacyID uuid.UUID, req CreateTransactionRequest) (resp *TransactionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", "create",
		attribute.String(telemetry.SpanAttrPharmacyID, pharmacyID.String()),
		attribute.String(telemetry.SpanAttrClientID, req.ClientID.String()),
		attribute.String(telemetry.SpanAttrTxType, req.Type))
	started := time.Now()
	defer func() {
		s.metrics.RecordOperation(ctx, "transaction.create", started, err)
		telemetry.EndSpan(span, err)
	}()

	txType, err := client.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	method := client.PaymentMethod(req.PaymentMethod)
	if method != "" && !method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method: %q", req.PaymentMethod)
	}

	release, err := s.claimIdempotencyKey(ctx, pharmacyID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	var (
		tx *client.Transaction
		c  *client.Client
	)
	err = retryOnConflict(ctx, s.metrics, "transaction.create", s.cfg.MaxRetries, func(attempt int) error {
		span.SetAttributes(attribute.Int(telemetry.SpanAttrAttempt, attempt))

		c, err = s.clientRepo.FindByIDForPharmacy(ctx, pharmacyID, req.ClientID)
		if err != nil {
			return err
		}
		tx, err = s.buildTransaction(pharmacyID, txType, c.Balance.Currency(), req)
		if err != nil {
			return err
		}

		if txType.IsCharge() {
			if err := c.RecordCharge(tx.TotalAmount, req.AllowOverLimit); err != nil {
				if errors.Is(err, shared.ErrCreditLimitExceeded) {
					s.metrics.RecordCreditLimitRejection(ctx, pharmacyID)
				}
				return err
			}
		} else if err := c.RecordPayment(tx.TotalAmount); err != nil {
			return err
		}
		tx.RecordBalanceAfter(c.Balance.Current())

		if err := s.assignNumber(ctx, tx); err != nil {
			return err
		}
		return s.transactionRepo.CreateWithClient(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String(telemetry.SpanAttrTxNumber, tx.Number))
	s.metrics.RecordTransaction(ctx, pharmacyID, tx.Type.String(), string(tx.Currency()), tx.TotalAmount.Amount())
	logger.Enrich(ctx, s.logger).Info("Transaction posted",
		zap.String("transaction_number", tx.Number),
		zap.String("client_id", c.ID.String()),
		zap.String("total", tx.TotalAmount.StringFixed()),
		zap.String("balance_after", tx.BalanceAfter.StringFixed()))
	publishEvents(ctx, s.eventPublisher, s.logger, c)

	return &TransactionResult{
		Transaction: ToTransactionResponse(tx),
		Balance:     ToBalanceResponse(c.Balance),
	}, nil
}

// buildTransaction validates the request amounts and creates the unnumbered entry
func (s *TransactionService) buildTransaction(pharmacyID uuid.UUID, txType client.TransactionType, clientCurrency valueobject.Currency, req CreateTransactionRequest) (*client.Transaction, error) {
	currency := clientCurrency
	if req.Currency != "" {
		parsed, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, err
		}
		if parsed != clientCurrency {
			return nil, shared.NewDomainError(shared.CodeCurrencyMismatch,
				fmt.Sprintf("transaction currency %s does not match the client account currency %s", parsed, clientCurrency))
		}
		currency = parsed
	}

	items := make([]client.TransactionItem, 0, len(req.Items))
	itemsTotal := decimal.Zero
	for _, in := range req.Items {
		price, err := valueobject.NewMoney(in.UnitPrice, currency)
		if err != nil {
			return nil, err
		}
		item, err := client.NewTransactionItem(in.Name, in.Quantity, price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		itemsTotal = itemsTotal.Add(item.Total.Amount())
	}

	var amount decimal.Decimal
	switch {
	case req.Amount != nil:
		amount = *req.Amount
		if len(items) > 0 && !amount.Round(valueobject.MoneyScale).Equal(itemsTotal) {
			return nil, shared.NewValidationError("amount %s does not match the item total %s",
				amount.StringFixed(valueobject.MoneyScale), itemsTotal.StringFixed(valueobject.MoneyScale))
		}
	case len(items) > 0:
		amount = itemsTotal
	default:
		return nil, shared.NewValidationError("amount is required when no items are given")
	}

	amounts := client.TransactionAmounts{}
	var err error
	if amounts.Amount, err = valueobject.NewMoney(amount, currency); err != nil {
		return nil, err
	}
	if amounts.Tax, err = optionalMoney(req.TaxAmount, currency); err != nil {
		return nil, err
	}
	if amounts.Discount, err = optionalMoney(req.DiscountAmount, currency); err != nil {
		return nil, err
	}

	date := s.now()
	if req.TransactionDate != nil && !req.TransactionDate.IsZero() {
		date = *req.TransactionDate
	}
	tx, err := client.NewTransaction(pharmacyID, req.ClientID, txType, amounts, date)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := tx.AddItem(item); err != nil {
			return nil, err
		}
	}

	tx.WithDescription(req.Description)
	if req.PaymentMethod != "" {
		tx.WithPaymentMethod(client.PaymentMethod(req.PaymentMethod))
	}
	if req.CreatedBy != nil {
		tx.WithCreatedBy(*req.CreatedBy)
	}
	if txType.IsCharge() {
		switch {
		case req.DueDate != nil:
			if req.DueDate.Before(tx.TransactionDate) {
				return nil, shared.NewValidationError("due date cannot be before the transaction date")
			}
			tx.WithDueDate(*req.DueDate)
		case s.cfg.PaymentTermDays > 0:
			tx.WithDueDate(tx.TransactionDate.AddDate(0, 0, s.cfg.PaymentTermDays))
		}
	}
	return tx, nil
}

func optionalMoney(amount *decimal.Decimal, currency valueobject.Currency) (valueobject.Money, error) {
	if amount == nil {
		return valueobject.Zero(currency)
	}
	return valueobject.NewMoney(*amount, currency)
}

// assignNumber allocates the next daily sequence and numbers tx with it
func (s *TransactionService) assignNumber(ctx context.Context, tx *client.Transaction) error {
	seq, err := s.transactionRepo.NextSequence(ctx, tx.PharmacyID, tx.Type, tx.TransactionDate)
	if err != nil {
		return fmt.Errorf("allocate transaction number: %w", err)
	}
	number, err := client.GenerateTransactionNumber(tx.Type, seq, tx.TransactionDate)
	if err != nil {
		return err
	}
	return tx.AssignNumber(number)
}

// claimIdempotencyKey marks key as processed for the pharmacy. The returned
// func forgets the key again so a failed request can be retried with it.
func (s *TransactionService) claimIdempotencyKey(ctx context.Context, pharmacyID uuid.UUID, key string) (func(), error) {
	noop := func() {}
	if key == "" || s.idempotencyStore == nil {
		return noop, nil
	}

	scoped := pharmacyID.String() + ":" + key
	claimed, err := s.idempotencyStore.MarkProcessed(ctx, scoped, s.cfg.IdempotencyTTL)
	if err != nil {
		return noop, fmt.Errorf("check idempotency key: %w", err)
	}
	if !claimed {
		return noop, shared.NewDomainError(shared.CodeAlreadyExists, "A request with this Idempotency-Key was already processed")
	}

	return func() {
		if err := s.idempotencyStore.Release(context.WithoutCancel(ctx), scoped); err != nil {
			logger.Enrich(ctx, s.logger).Warn("Failed to release idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(err))
		}
	}, nil
}

// GetByID retrieves a transaction by ID
func (s *TransactionService) GetByID(ctx context.Context, pharmacyID, transactionID uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.transactionRepo.FindByID(ctx, pharmacyID, transactionID)
	if err != nil {
		return nil, err
	}
	response := ToTransactionResponse(tx)
	return &response, nil
}

// GetByNumber retrieves a transaction by document number
func (s *TransactionService) GetByNumber(ctx context.Context, pharmacyID uuid.UUID, number string) (*TransactionResponse, error) {
	if _, err := client.ParseTransactionNumber(number); err != nil {
		return nil, err
	}
	tx, err := s.transactionRepo.FindByNumber(ctx, pharmacyID, number)
	if err != nil {
		return nil, err
	}
	response := ToTransactionResponse(tx)
	return &response, nil
}

// List returns a page of transactions, newest first
func (s *TransactionService) List(ctx context.Context, pharmacyID uuid.UUID, filter TransactionListFilter) (*shared.Paginated[TransactionResponse], error) {
	f := client.TransactionFilter{
		ClientID: filter.ClientID,
		DateFrom: filter.DateFrom,
		DateTo:   filter.DateTo,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if filter.Type != "" {
		t, err := client.ParseTransactionType(filter.Type)
		if err != nil {
			return nil, err
		}
		f.Type = &t
	}
	if filter.PaymentStatus != "" {
		status := client.PaymentStatus(filter.PaymentStatus)
		if !status.IsValid() {
			return nil, shared.NewValidationError("invalid payment status: %q", filter.PaymentStatus)
		}
		f.PaymentStatus = &status
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return nil, shared.NewValidationError("date_to cannot be before date_from")
	}

	txs, total, err := s.transactionRepo.List(ctx, pharmacyID, f)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToTransactionResponses(txs), total, f.Page, f.PageSize)
	return &page, nil
}

// ListPending returns unsettled charges, optionally for one client
func (s *TransactionService) ListPending(ctx context.Context, pharmacyID uuid.UUID, filter TransactionListFilter) (*shared.Paginated[TransactionResponse], error) {
	filter.PaymentStatus = string(client.PaymentStatusPending)
	return s.List(ctx, pharmacyID, filter)
}

// MarkPaid settles a pending invoice or debit note and credits its total to
// the client balance.
func (s *TransactionService) MarkPaid(ctx context.Context, pharmacyID, transactionID uuid.UUID, req MarkPaidRequest) (*TransactionResult, error) {
	method := client.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method: %q", req.PaymentMethod)
	}
	paidAt := s.now()
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = *req.PaidAt
	}

	return s.settle(ctx, pharmacyID, transactionID, "transaction.mark_paid", func(tx *client.Transaction, c *client.Client) error {
		if err := tx.MarkPaid(method, paidAt); err != nil {
			return err
		}
		return c.RecordPayment(tx.TotalAmount)
	})
}

// Cancel voids a pending invoice or debit note and reverses its charge
func (s *TransactionService) Cancel(ctx context.Context, pharmacyID, transactionID uuid.UUID, req CancelTransactionRequest) (*TransactionResult, error) {
	return s.settle(ctx, pharmacyID, transactionID, "transaction.cancel", func(tx *client.Transaction, c *client.Client) error {
		if !tx.Type.IsCharge() {
			return shared.NewDomainError(shared.CodeInvalidStatusTransition,
				fmt.Sprintf("%s %s cannot be cancelled", tx.Type, tx.Number))
		}
		if err := tx.Cancel(req.CancelledBy, s.now()); err != nil {
			return err
		}
		if req.Reason != "" {
			tx.WithDescription(joinReason(tx.Description, req.Reason))
		}
		return c.RecordPayment(tx.TotalAmount)
	})
}

func joinReason(description, reason string) string {
	if description == "" {
		return "Cancelled: " + reason
	}
	return description + " | Cancelled: " + reason
}

// settle runs a status change on a transaction together with the balance
// change it implies, retrying on concurrency conflicts.
func (s *TransactionService) settle(ctx context.Context, pharmacyID, transactionID uuid.UUID, operation string, fn func(*client.Transaction, *client.Client) error) (resp *TransactionResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", operation,
		attribute.String(telemetry.SpanAttrPharmacyID, pharmacyID.String()),
		attribute.String(telemetry.SpanAttrTransactionID, transactionID.String()))
	started := time.Now()
	defer func() {
		s.metrics.RecordOperation(ctx, operation, started, err)
		telemetry.EndSpan(span, err)
	}()

	first, err := s.transactionRepo.FindByID(ctx, pharmacyID, transactionID)
	if err != nil {
		return nil, err
	}
	clientID := first.ClientID

	var (
		tx *client.Transaction
		c  *client.Client
	)
	err = retryOnConflict(ctx, s.metrics, operation, s.cfg.MaxRetries, func(attempt int) error {
		span.SetAttributes(attribute.Int(telemetry.SpanAttrAttempt, attempt))
		// The client is read before the transaction: a concurrent settlement
		// commits both, so either its status change is visible here or the
		// client version check below fails.
		c, err = s.clientRepo.FindByIDForPharmacy(ctx, pharmacyID, clientID)
		if err != nil {
			return err
		}
		tx, err = s.transactionRepo.FindByID(ctx, pharmacyID, transactionID)
		if err != nil {
			return err
		}
		if err := fn(tx, c); err != nil {
			return err
		}
		return s.transactionRepo.UpdateWithClient(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Transaction settled",
		zap.String("transaction_number", tx.Number),
		zap.String("payment_status", string(tx.PaymentStatus)),
		zap.String("balance", c.Balance.Current().StringFixed()))
	publishEvents(ctx, s.eventPublisher, s.logger, c)

	return &TransactionResult{
		Transaction: ToTransactionResponse(tx),
		Balance:     ToBalanceResponse(c.Balance),
	}, nil
}
