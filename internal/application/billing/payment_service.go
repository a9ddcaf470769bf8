package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WebhookTopicPayment is the only notification topic that settles charges
const WebhookTopicPayment = "payment"

// errAlreadyApplied stops a settlement the transaction already reflects
var errAlreadyApplied = errors.New("payment: already applied")

// PaymentService creates checkout links for unpaid charges and applies the
// payments the gateway reports back
type PaymentService struct {
	transactionRepo client.TransactionRepository
	clientRepo      client.ClientRepository
	transactions    *TransactionService
	gateway         PaymentGateway
	logger          *zap.Logger
	metrics         *telemetry.BillingMetrics
}

// NewPaymentService creates a new PaymentService. Settlements go through
// transactions, so balance changes follow the same rules as manual ones.
func NewPaymentService(
	clientRepo client.ClientRepository,
	transactionRepo client.TransactionRepository,
	transactions *TransactionService,
	gateway PaymentGateway,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		transactionRepo: transactionRepo,
		clientRepo:      clientRepo,
		transactions:    transactions,
		gateway:         gateway,
		logger:          nopIfNil(logger),
	}
}

// SetBillingMetrics sets the billing metrics recorder
func (s *PaymentService) SetBillingMetrics(metrics *telemetry.BillingMetrics) {
	s.metrics = metrics
}

// CreatePaymentLink returns the checkout link of an unpaid charge, creating it
// on first use
func (s *PaymentService) CreatePaymentLink(ctx context.Context, pharmacyID, transactionID uuid.UUID) (resp *PaymentLinkResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_link",
		attribute.String(telemetry.SpanAttrPharmacyID, pharmacyID.String()),
		attribute.String(telemetry.SpanAttrTransactionID, transactionID.String()))
	started := time.Now()
	defer func() {
		s.metrics.RecordOperation(ctx, "payment.create_link", started, err)
		telemetry.EndSpan(span, err)
	}()

	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	tx, err := s.transactionRepo.FindByID(ctx, pharmacyID, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.IsAwaitingPayment() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("%s %s is not awaiting payment", tx.Type, tx.Number))
	}
	if tx.HasPaymentLink() {
		return toPaymentLinkResponse(tx, true), nil
	}

	c, err := s.clientRepo.FindByIDForPharmacy(ctx, pharmacyID, tx.ClientID)
	if err != nil {
		return nil, err
	}

	link, err := s.gateway.CreatePaymentLink(ctx, &PaymentLinkRequest{
		PharmacyID:    pharmacyID,
		TransactionID: tx.ID,
		Number:        tx.Number,
		Currency:      string(tx.Currency()),
		Items:         paymentLinkItems(tx),
		PayerEmail:    c.Email,
		PayerName:     c.FullName(),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment link for %s: %w", tx.Number, err)
	}

	if err := tx.AttachPaymentLink(link.PreferenceID, link.URL); err != nil {
		return nil, err
	}
	if err := s.transactionRepo.AttachPaymentLink(ctx, pharmacyID, tx.ID, link.PreferenceID, link.URL); err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Payment link created",
		zap.String("transaction_number", tx.Number),
		zap.String("preference_id", link.PreferenceID))
	return toPaymentLinkResponse(tx, false), nil
}

// paymentLinkItems lists the invoice lines when they add up to the amount
// owed; otherwise the checkout shows a single line for the whole document.
func paymentLinkItems(tx *client.Transaction) []PaymentLinkItem {
	sum := decimal.Zero
	items := make([]PaymentLinkItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		sum = sum.Add(item.Total.Amount())
		items = append(items, PaymentLinkItem{
			Title:     item.Name,
			Quantity:  int(item.Quantity),
			UnitPrice: item.UnitPrice.Amount(),
		})
	}
	if len(items) > 0 && sum.Equal(tx.TotalAmount.Amount()) {
		return items
	}
	return []PaymentLinkItem{{
		Title:     "Factura " + tx.Number,
		Quantity:  1,
		UnitPrice: tx.TotalAmount.Amount(),
	}}
}

func toPaymentLinkResponse(tx *client.Transaction, existing bool) *PaymentLinkResponse {
	return &PaymentLinkResponse{
		TransactionID:  tx.ID,
		Number:         tx.Number,
		PreferenceID:   tx.GatewayPreferenceID,
		PaymentLink:    tx.PaymentLink,
		AlreadyCreated: existing,
	}
}

// HandleWebhook verifies a gateway notification and applies the payment it
// refers to. A nil result means the notification was not authentic. A non-nil
// result with an error means it was authentic but could not be applied.
func (s *PaymentService) HandleWebhook(ctx context.Context, n *WebhookNotification) (result *WebhookResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "webhook")
	started := time.Now()
	defer func() {
		s.metrics.RecordOperation(ctx, "payment.webhook", started, err)
		telemetry.EndSpan(span, err)
	}()

	if s.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	if err := s.gateway.VerifyWebhook(n); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Rejected payment notification",
			zap.String("topic", n.Topic),
			zap.String("data_id", n.DataID),
			zap.Error(err))
		return nil, err
	}

	result = &WebhookResult{Topic: n.Topic, PaymentID: n.DataID}
	if n.Topic != WebhookTopicPayment {
		result.Message = "Event type not handled"
		return result, nil
	}
	if n.DataID == "" {
		result.Message = "Missing payment id"
		return result, shared.NewValidationError("notification has no payment id")
	}

	payment, err := s.gateway.GetPayment(ctx, n.DataID)
	if err != nil {
		result.Message = "Payment lookup failed"
		return result, err
	}
	pharmacyID, transactionID, err := ParseExternalReference(payment.ExternalReference)
	if err != nil {
		result.Message = "Payment does not reference a transaction"
		return result, err
	}
	result.TransactionID = &transactionID
	span.SetAttributes(
		attribute.String(telemetry.SpanAttrPharmacyID, pharmacyID.String()),
		attribute.String(telemetry.SpanAttrTransactionID, transactionID.String()))

	settled, err := s.applyPayment(ctx, pharmacyID, transactionID, payment)
	switch {
	case errors.Is(err, errAlreadyApplied):
		result.Processed = true
		result.Message = "Already applied"
		return result, nil
	case err != nil:
		logger.Enrich(ctx, s.logger).Error("Failed to apply gateway payment",
			zap.String("payment_id", payment.ID),
			zap.String("gateway_status", payment.RawStatus),
			zap.String("transaction_id", transactionID.String()),
			zap.Error(err))
		result.Message = "Payment could not be applied"
		return result, err
	case settled == nil:
		result.Processed = true
		result.Message = "No change for status " + payment.RawStatus
		return result, nil
	}

	result.Processed = true
	result.PaymentStatus = settled.Transaction.PaymentStatus
	result.Message = "Payment applied"
	return result, nil
}

// applyPayment moves the transaction to the state the gateway reported. It
// returns nil when the gateway status does not settle anything yet.
func (s *PaymentService) applyPayment(ctx context.Context, pharmacyID, transactionID uuid.UUID, p *GatewayPayment) (*TransactionResult, error) {
	switch p.Status {
	case GatewayPaymentStatusPaid:
		paidAt := s.transactions.now()
		if p.ApprovedAt != nil {
			paidAt = *p.ApprovedAt
		}
		return s.transactions.settle(ctx, pharmacyID, transactionID, "payment.approved", func(tx *client.Transaction, c *client.Client) error {
			if tx.IsPaid() {
				return errAlreadyApplied
			}
			if err := checkPaidAmount(tx, p); err != nil {
				return err
			}
			if err := tx.MarkPaid(client.PaymentMethodMercadoPago, paidAt); err != nil {
				return err
			}
			tx.RecordGatewayPayment(p.ID)
			return c.RecordPayment(tx.TotalAmount)
		})

	case GatewayPaymentStatusFailed, GatewayPaymentStatusCancelled:
		return s.transactions.settle(ctx, pharmacyID, transactionID, "payment.rejected", func(tx *client.Transaction, _ *client.Client) error {
			if tx.PaymentStatus == client.PaymentStatusFailed && tx.GatewayPaymentID == p.ID {
				return errAlreadyApplied
			}
			if err := tx.MarkFailed(); err != nil {
				return err
			}
			tx.RecordGatewayPayment(p.ID)
			return nil
		})

	case GatewayPaymentStatusRefunded:
		return s.transactions.settle(ctx, pharmacyID, transactionID, "payment.refunded", func(tx *client.Transaction, c *client.Client) error {
			if tx.PaymentStatus == client.PaymentStatusRefunded {
				return errAlreadyApplied
			}
			if tx.GatewayPaymentID != p.ID {
				return shared.NewDomainError(shared.CodeInvalidState,
					fmt.Sprintf("%s %s was not settled by payment %s", tx.Type, tx.Number, p.ID))
			}
			if err := tx.Refund(); err != nil {
				return err
			}
			return c.RecordRefund(tx.TotalAmount)
		})
	}
	return nil, nil
}

func checkPaidAmount(tx *client.Transaction, p *GatewayPayment) error {
	if p.Currency != "" && p.Currency != string(tx.Currency()) {
		return fmt.Errorf("%w: payment %s is in %s, %s is in %s",
			ErrGatewayInvalidResponse, p.ID, p.Currency, tx.Number, tx.Currency())
	}
	if !p.Amount.Equal(tx.TotalAmount.Amount()) {
		return fmt.Errorf("%w: payment %s is %s, %s totals %s",
			ErrGatewayInvalidResponse, p.ID, p.Amount.StringFixed(2), tx.Number, tx.TotalAmount.StringFixed())
	}
	return nil
}
