package client

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
)

// TransactionType identifies the kind of ledger entry
type TransactionType string

const (
	TransactionTypeInvoice    TransactionType = "invoice"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeCreditNote TransactionType = "credit_note"
	TransactionTypeDebitNote  TransactionType = "debit_note"
)

// ParseTransactionType validates a transaction type string
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewValidationError("invalid transaction type: %q", s)
	}
	return t, nil
}

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeInvoice, TransactionTypePayment, TransactionTypeCreditNote, TransactionTypeDebitNote:
		return true
	}
	return false
}

// IsCharge returns true for entries that increase the client's debt
func (t TransactionType) IsCharge() bool {
	return t == TransactionTypeInvoice || t == TransactionTypeDebitNote
}

// IsPayment returns true for entries that reduce the client's debt
func (t TransactionType) IsPayment() bool {
	return t == TransactionTypePayment || t == TransactionTypeCreditNote
}

// PaymentStatus is the settlement state of a transaction
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

var paymentStatusTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted: {PaymentStatusRefunded},
	PaymentStatusFailed:    {PaymentStatusCompleted, PaymentStatusCancelled},
	PaymentStatusCancelled: {},
	PaymentStatusRefunded:  {},
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentStatusTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return slices.Contains(paymentStatusTransitions[s], next)
}

// PaymentMethod is how a transaction was settled
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodTransfer    PaymentMethod = "transfer"
	PaymentMethodMercadoPago PaymentMethod = "mercadopago"
	PaymentMethodCreditCard  PaymentMethod = "credit_card"
	PaymentMethodDebitCard   PaymentMethod = "debit_card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodMercadoPago, PaymentMethodCreditCard, PaymentMethodDebitCard:
		return true
	}
	return false
}

// TransactionItem is one line of an invoice
type TransactionItem struct {
	Name      string            `json:"name"`
	Quantity  int64             `json:"quantity"`
	UnitPrice valueobject.Money `json:"unit_price"`
	Total     valueobject.Money `json:"total"`
}

// NewTransactionItem builds a line and computes its total
func NewTransactionItem(name string, quantity int64, unitPrice valueobject.Money) (TransactionItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TransactionItem{}, shared.NewValidationError("item name cannot be empty")
	}
	if quantity <= 0 {
		return TransactionItem{}, shared.NewValidationError("item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return TransactionItem{}, shared.NewValidationError("item unit price cannot be negative")
	}
	return TransactionItem{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Total:     unitPrice.MultiplyByInt(quantity),
	}, nil
}

// TransactionAmounts are the inputs to a transaction total
type TransactionAmounts struct {
	Amount   valueobject.Money
	Tax      valueobject.Money
	Discount valueobject.Money
}

// Total returns amount + tax - discount
func (a TransactionAmounts) Total() (valueobject.Money, error) {
	sum, err := a.Amount.Add(a.Tax)
	if err != nil {
		return valueobject.Money{}, err
	}
	return sum.Subtract(a.Discount)
}

// Transaction is a ledger entry on a client account: an invoice, payment,
// credit note or debit note. Its amounts never change after creation;
// only settlement state and document metadata do.
type Transaction struct {
	shared.BaseEntity
	PharmacyID      uuid.UUID
	ClientID        uuid.UUID
	Number          string
	Type            TransactionType
	Amount          valueobject.Money
	TaxAmount       valueobject.Money
	DiscountAmount  valueobject.Money
	TotalAmount     valueobject.Money
	BalanceAfter    valueobject.Money
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Description     string
	Items           []TransactionItem
	TransactionDate time.Time
	DueDate         *time.Time
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CancelledBy     *uuid.UUID
	InvoicePDFPath  string
	CreatedBy       *uuid.UUID

	// Payment gateway references. GatewayPaymentID is the last payment the
	// gateway reported for this entry.
	GatewayPreferenceID string
	PaymentLink         string
	GatewayPaymentID    string
}

// NewTransaction validates amounts and creates an unnumbered transaction.
// Payments and credit notes settle immediately; invoices and debit notes start pending.
func NewTransaction(pharmacyID, clientID uuid.UUID, txType TransactionType, amounts TransactionAmounts, date time.Time) (*Transaction, error) {
	if pharmacyID == uuid.Nil {
		return nil, shared.NewValidationError("transaction must belong to a pharmacy")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewValidationError("transaction must reference a client")
	}
	if !txType.IsValid() {
		return nil, shared.NewValidationError("invalid transaction type: %q", txType)
	}
	for _, m := range []valueobject.Money{amounts.Amount, amounts.Tax, amounts.Discount} {
		if m.IsNegative() {
			return nil, shared.NewValidationError("amount cannot be negative")
		}
	}
	total, err := amounts.Total()
	if err != nil {
		return nil, err
	}
	if !total.IsPositive() {
		return nil, shared.NewValidationError("transaction total must be positive, got %s", total)
	}
	if date.IsZero() {
		date = time.Now()
	}

	status := PaymentStatusPending
	var paidAt *time.Time
	if txType.IsPayment() {
		status = PaymentStatusCompleted
		now := time.Now()
		paidAt = &now
	}

	return &Transaction{
		BaseEntity:      shared.NewBaseEntity(),
		PharmacyID:      pharmacyID,
		ClientID:        clientID,
		Type:            txType,
		Amount:          amounts.Amount,
		TaxAmount:       amounts.Tax,
		DiscountAmount:  amounts.Discount,
		TotalAmount:     total,
		PaymentStatus:   status,
		PaidAt:          paidAt,
		TransactionDate: truncateToDay(date),
		Items:           []TransactionItem{},
	}, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AssignNumber sets the document number once
func (t *Transaction) AssignNumber(number string) error {
	if t.Number != "" {
		return shared.NewDomainError(shared.CodeInvalidState, "transaction number already assigned")
	}
	if _, err := ParseTransactionNumber(number); err != nil {
		return err
	}
	t.Number = number
	return nil
}

// WithDescription sets the description
func (t *Transaction) WithDescription(description string) *Transaction {
	t.Description = strings.TrimSpace(description)
	return t
}

// WithPaymentMethod sets the payment method
func (t *Transaction) WithPaymentMethod(method PaymentMethod) *Transaction {
	t.PaymentMethod = method
	return t
}

// WithDueDate sets the due date
func (t *Transaction) WithDueDate(due time.Time) *Transaction {
	d := truncateToDay(due)
	t.DueDate = &d
	return t
}

// WithCreatedBy records the operator
func (t *Transaction) WithCreatedBy(userID uuid.UUID) *Transaction {
	t.CreatedBy = &userID
	return t
}

// AddItem appends a line in the transaction currency
func (t *Transaction) AddItem(item TransactionItem) error {
	if !item.Total.SameCurrency(t.TotalAmount) {
		return shared.NewDomainError(shared.CodeCurrencyMismatch,
			fmt.Sprintf("item currency %s does not match transaction currency %s", item.Total.Currency(), t.TotalAmount.Currency()))
	}
	t.Items = append(t.Items, item)
	return nil
}

// RecordBalanceAfter stores the client balance that resulted from posting this entry
func (t *Transaction) RecordBalanceAfter(balance valueobject.Money) {
	t.BalanceAfter = balance
}

// Currency returns the transaction currency
func (t *Transaction) Currency() valueobject.Currency {
	return t.TotalAmount.Currency()
}

func (t *Transaction) transition(next PaymentStatus) error {
	if !t.PaymentStatus.CanTransitionTo(next) {
		return shared.NewDomainError(shared.CodeInvalidStatusTransition,
			fmt.Sprintf("cannot change transaction %s from %s to %s", t.Number, t.PaymentStatus, next))
	}
	t.PaymentStatus = next
	return nil
}

// MarkPaid settles a pending transaction
func (t *Transaction) MarkPaid(method PaymentMethod, at time.Time) error {
	if method != "" && !method.IsValid() {
		return shared.NewValidationError("invalid payment method: %q", method)
	}
	if err := t.transition(PaymentStatusCompleted); err != nil {
		return err
	}
	if method != "" {
		t.PaymentMethod = method
	}
	if at.IsZero() {
		at = time.Now()
	}
	t.PaidAt = &at
	return nil
}

// MarkFailed records a rejected settlement attempt. The charge stays owed:
// a failed entry can still be paid or cancelled.
func (t *Transaction) MarkFailed() error {
	return t.transition(PaymentStatusFailed)
}

// Cancel voids a pending or failed transaction
func (t *Transaction) Cancel(by *uuid.UUID, at time.Time) error {
	if err := t.transition(PaymentStatusCancelled); err != nil {
		return err
	}
	if at.IsZero() {
		at = time.Now()
	}
	t.CancelledAt = &at
	t.CancelledBy = by
	return nil
}

// Refund marks a completed transaction as refunded
func (t *Transaction) Refund() error {
	return t.transition(PaymentStatusRefunded)
}

// IsAwaitingPayment reports whether a charge can still be settled
func (t *Transaction) IsAwaitingPayment() bool {
	return t.Type.IsCharge() && t.PaymentStatus.CanTransitionTo(PaymentStatusCompleted)
}

// AttachPaymentLink stores the checkout created for an unpaid charge
func (t *Transaction) AttachPaymentLink(preferenceID, link string) error {
	if !t.IsAwaitingPayment() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("%s %s is not awaiting payment", t.Type, t.Number))
	}
	if strings.TrimSpace(preferenceID) == "" || strings.TrimSpace(link) == "" {
		return shared.NewValidationError("payment link and preference id are required")
	}
	t.GatewayPreferenceID = preferenceID
	t.PaymentLink = link
	return nil
}

// HasPaymentLink reports whether a checkout was already created
func (t *Transaction) HasPaymentLink() bool {
	return t.GatewayPreferenceID != ""
}

// RecordGatewayPayment remembers the gateway payment that last changed this entry
func (t *Transaction) RecordGatewayPayment(paymentID string) {
	t.GatewayPaymentID = paymentID
}

func (t *Transaction) IsPaid() bool {
	return t.PaymentStatus == PaymentStatusCompleted
}

func (t *Transaction) IsCancelled() bool {
	return t.PaymentStatus == PaymentStatusCancelled
}

// IsOverdue reports whether a pending entry is past its due date
func (t *Transaction) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.PaymentStatus != PaymentStatusPending {
		return false
	}
	return truncateToDay(now).After(*t.DueDate)
}

// AttachInvoicePDF stores the object storage key of the rendered document
func (t *Transaction) AttachInvoicePDF(key string) error {
	if !t.Type.IsCharge() {
		return shared.NewDomainError(shared.CodeInvalidState, "only invoices and debit notes have an invoice document")
	}
	t.InvoicePDFPath = key
	return nil
}
