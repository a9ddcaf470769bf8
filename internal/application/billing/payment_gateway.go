package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment gateway errors
var (
	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrGatewayInvalidCallback = errors.New("payment: invalid callback signature")

	ErrPaymentInvalidReference = errors.New("payment: invalid external reference")
	ErrPaymentInvalidAmount    = errors.New("payment: invalid payment amount")
	ErrPaymentInvalidTitle     = errors.New("payment: invalid item title")
)

// PaymentGateway creates hosted checkouts and reports what happened to them
type PaymentGateway interface {
	// CreatePaymentLink creates a checkout the client can pay from a link
	CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLink, error)
	// GetPayment fetches a payment the gateway notified us about
	GetPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
	// VerifyWebhook checks the signature of a notification
	VerifyWebhook(n *WebhookNotification) error
}

// GatewayPaymentStatus is the state of a payment as reported by the gateway
type GatewayPaymentStatus string

const (
	GatewayPaymentStatusPending   GatewayPaymentStatus = "PENDING"
	GatewayPaymentStatusPaid      GatewayPaymentStatus = "PAID"
	GatewayPaymentStatusFailed    GatewayPaymentStatus = "FAILED"
	GatewayPaymentStatusCancelled GatewayPaymentStatus = "CANCELLED"
	GatewayPaymentStatusRefunded  GatewayPaymentStatus = "REFUNDED"
)

// IsFinal returns true if the gateway will not change the payment again on its own
func (s GatewayPaymentStatus) IsFinal() bool {
	switch s {
	case GatewayPaymentStatusPaid, GatewayPaymentStatusFailed,
		GatewayPaymentStatusCancelled, GatewayPaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// PaymentLinkItem is one line shown on the checkout page
type PaymentLinkItem struct {
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PaymentLinkRequest describes the checkout for one charge
type PaymentLinkRequest struct {
	PharmacyID    uuid.UUID
	TransactionID uuid.UUID
	Number        string
	Currency      string
	Items         []PaymentLinkItem
	PayerEmail    string
	PayerName     string
}

// Validate validates the payment link request
func (r *PaymentLinkRequest) Validate() error {
	if r.PharmacyID == uuid.Nil || r.TransactionID == uuid.Nil {
		return ErrPaymentInvalidReference
	}
	if len(r.Items) == 0 {
		return ErrPaymentInvalidAmount
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.Title) == "" {
			return ErrPaymentInvalidTitle
		}
		if item.Quantity < 1 || !item.UnitPrice.IsPositive() {
			return ErrPaymentInvalidAmount
		}
	}
	return nil
}

// ExternalReference is the reference the gateway echoes back on payments
func (r *PaymentLinkRequest) ExternalReference() string {
	return FormatExternalReference(r.PharmacyID, r.TransactionID)
}

// PaymentLink is a checkout created by the gateway
type PaymentLink struct {
	PreferenceID string
	URL          string
	SandboxURL   string
}

// GatewayPayment is a payment as the gateway reports it
type GatewayPayment struct {
	ID                string
	Status            GatewayPaymentStatus
	StatusDetail      string
	RawStatus         string
	ExternalReference string
	Amount            decimal.Decimal
	Currency          string
	ApprovedAt        *time.Time
}

// WebhookNotification is an inbound gateway notification with the headers
// its signature covers
type WebhookNotification struct {
	Topic     string
	DataID    string
	RequestID string
	Signature string
	Payload   []byte
}

// FormatExternalReference joins pharmacy and transaction into the reference
// sent with a checkout
func FormatExternalReference(pharmacyID, transactionID uuid.UUID) string {
	return pharmacyID.String() + ":" + transactionID.String()
}

// ParseExternalReference splits a reference produced by FormatExternalReference
func ParseExternalReference(ref string) (pharmacyID, transactionID uuid.UUID, err error) {
	pharmacyPart, txPart, ok := strings.Cut(ref, ":")
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrPaymentInvalidReference, ref)
	}
	if pharmacyID, err = uuid.Parse(pharmacyPart); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrPaymentInvalidReference, ref)
	}
	if transactionID, err = uuid.Parse(txPart); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %q", ErrPaymentInvalidReference, ref)
	}
	return pharmacyID, transactionID, nil
}
