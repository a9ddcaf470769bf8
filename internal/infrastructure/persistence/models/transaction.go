package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for the transactions table
type TransactionModel struct {
	BaseModel
	PharmacyID      uuid.UUID                `gorm:"type:uuid;not null;index:idx_transactions_pharmacy_date,priority:1"`
	ClientID        uuid.UUID                `gorm:"type:uuid;not null;index"`
	Number          string                   `gorm:"type:varchar(20);not null;index"`
	Type            string                   `gorm:"type:varchar(20);not null"`
	Amount          decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
	TaxAmount       decimal.Decimal          `gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount  decimal.Decimal          `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount     decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
	BalanceAfter    decimal.Decimal          `gorm:"type:decimal(12,2);not null;default:0"`
	Currency        string                   `gorm:"type:char(3);not null"`
	PaymentMethod   string                   `gorm:"type:varchar(20)"`
	PaymentStatus   string                   `gorm:"type:varchar(20);not null;index"`
	Description     string                   `gorm:"type:text"`
	Items           []client.TransactionItem `gorm:"serializer:json;type:jsonb"`
	TransactionDate time.Time                `gorm:"type:date;not null;index:idx_transactions_pharmacy_date,priority:2"`
	DueDate         *time.Time               `gorm:"type:date"`
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CancelledBy     *uuid.UUID `gorm:"type:uuid"`
	InvoicePDFPath  string     `gorm:"column:invoice_pdf_path;type:varchar(500)"`
	CreatedBy       *uuid.UUID `gorm:"type:uuid"`

	GatewayPreferenceID string `gorm:"type:varchar(100)"`
	PaymentLink         string `gorm:"type:varchar(500)"`
	GatewayPaymentID    string `gorm:"type:varchar(100);index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// TransactionModelFromDomain creates a persistence model from a domain transaction
func TransactionModelFromDomain(t *client.Transaction) *TransactionModel {
	m := &TransactionModel{
		PharmacyID:      t.PharmacyID,
		ClientID:        t.ClientID,
		Number:          t.Number,
		Type:            t.Type.String(),
		Amount:          t.Amount.Amount(),
		TaxAmount:       t.TaxAmount.Amount(),
		DiscountAmount:  t.DiscountAmount.Amount(),
		TotalAmount:     t.TotalAmount.Amount(),
		BalanceAfter:    t.BalanceAfter.Amount(),
		Currency:        string(t.Currency()),
		PaymentMethod:   string(t.PaymentMethod),
		PaymentStatus:   string(t.PaymentStatus),
		Description:     t.Description,
		Items:           t.Items,
		TransactionDate: t.TransactionDate,
		DueDate:         t.DueDate,
		PaidAt:          t.PaidAt,
		CancelledAt:     t.CancelledAt,
		CancelledBy:     t.CancelledBy,
		InvoicePDFPath:  t.InvoicePDFPath,
		CreatedBy:       t.CreatedBy,

		GatewayPreferenceID: t.GatewayPreferenceID,
		PaymentLink:         t.PaymentLink,
		GatewayPaymentID:    t.GatewayPaymentID,
	}
	if m.Items == nil {
		m.Items = []client.TransactionItem{}
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// ToDomain rebuilds the transaction
func (m *TransactionModel) ToDomain() (*client.Transaction, error) {
	txType, err := client.ParseTransactionType(m.Type)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
	}
	status := client.PaymentStatus(m.PaymentStatus)
	if !status.IsValid() {
		return nil, fmt.Errorf("transaction %s: %w", m.ID, shared.NewValidationError("invalid payment status %q", m.PaymentStatus))
	}

	currency := valueobject.Currency(m.Currency)
	amounts := make([]valueobject.Money, 5)
	for i, d := range []decimal.Decimal{m.Amount, m.TaxAmount, m.DiscountAmount, m.TotalAmount, m.BalanceAfter} {
		money, err := valueobject.NewSignedMoney(d, currency)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", m.ID, err)
		}
		amounts[i] = money
	}

	items := m.Items
	if items == nil {
		items = []client.TransactionItem{}
	}

	return &client.Transaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		PharmacyID:      m.PharmacyID,
		ClientID:        m.ClientID,
		Number:          m.Number,
		Type:            txType,
		Amount:          amounts[0],
		TaxAmount:       amounts[1],
		DiscountAmount:  amounts[2],
		TotalAmount:     amounts[3],
		BalanceAfter:    amounts[4],
		PaymentMethod:   client.PaymentMethod(m.PaymentMethod),
		PaymentStatus:   status,
		Description:     m.Description,
		Items:           items,
		TransactionDate: m.TransactionDate,
		DueDate:         m.DueDate,
		PaidAt:          m.PaidAt,
		CancelledAt:     m.CancelledAt,
		CancelledBy:     m.CancelledBy,
		InvoicePDFPath:  m.InvoicePDFPath,
		CreatedBy:       m.CreatedBy,

		GatewayPreferenceID: m.GatewayPreferenceID,
		PaymentLink:         m.PaymentLink,
		GatewayPaymentID:    m.GatewayPaymentID,
	}, nil
}

// TransactionSequenceModel holds the last document number handed out per
// pharmacy, transaction type and day
type TransactionSequenceModel struct {
	PharmacyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type       string    `gorm:"type:varchar(20);primaryKey"`
	SeqDate    time.Time `gorm:"type:date;primaryKey"`
	LastValue  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TransactionSequenceModel) TableName() string {
	return "transaction_sequences"
}
