package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Client DTOs
// =============================================================================

// AddressInput is the postal address of a client
type AddressInput struct {
	Street     string `json:"street" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"max=100"`
}

// CreateClientRequest represents a request to register a new client
type CreateClientRequest struct {
	FirstName    string           `json:"first_name" binding:"max=100"`
	LastName     string           `json:"last_name" binding:"max=100"`
	Phone        string           `json:"phone" binding:"required,phone"`
	Email        string           `json:"email" binding:"omitempty,email,max=200"`
	TaxID        string           `json:"tax_id" binding:"max=20"`
	Address      *AddressInput    `json:"address"`
	CreditLimit  *decimal.Decimal `json:"credit_limit" binding:"omitempty,money"`
	Currency     string           `json:"currency" binding:"omitempty,currency"`
	Tags         []string         `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	Notes        string           `json:"notes"`
	ExternalID   string           `json:"external_id" binding:"max=100"`
	WhatsApp     bool             `json:"whatsapp_opted_in"`
	WhatsAppName string           `json:"whatsapp_name" binding:"max=100"`
	CreatedBy    *uuid.UUID       `json:"-"` // Set from JWT context, not from request body
}

// UpdateClientRequest represents a request to change a client's personal data
type UpdateClientRequest struct {
	FirstName    *string       `json:"first_name" binding:"omitempty,max=100"`
	LastName     *string       `json:"last_name" binding:"omitempty,max=100"`
	Phone        *string       `json:"phone" binding:"omitempty,phone"`
	Email        *string       `json:"email" binding:"omitempty,max=200"`
	TaxID        *string       `json:"tax_id" binding:"omitempty,max=20"`
	Address      *AddressInput `json:"address"`
	Notes        *string       `json:"notes"`
	ExternalID   *string       `json:"external_id" binding:"omitempty,max=100"`
	WhatsApp     *bool         `json:"whatsapp_opted_in"`
	WhatsAppName *string       `json:"whatsapp_name" binding:"omitempty,max=100"`
	Tags         []string      `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// UpdateCreditLimitRequest represents a request to change a client's credit limit
type UpdateCreditLimitRequest struct {
	CreditLimit decimal.Decimal `json:"credit_limit" binding:"money"`
}

// StatusChangeRequest carries the optional reason for a suspension or closure
type StatusChangeRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ClientListFilter represents filter options for the client list
type ClientListFilter struct {
	Search    string `form:"search"`
	Status    string `form:"status" binding:"omitempty,oneof=active suspended closed"`
	Tag       string `form:"tag"`
	OwesMoney *bool  `form:"owes_money"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// BalanceResponse represents a client's account position
type BalanceResponse struct {
	Current         valueobject.Money `json:"current"`
	CreditLimit     valueobject.Money `json:"credit_limit"`
	Currency        string            `json:"currency"`
	TotalDebt       valueobject.Money `json:"total_debt"`
	CreditInFavor   valueobject.Money `json:"credit_in_favor"`
	AvailableCredit valueobject.Money `json:"available_credit"`
	OwesMoney       bool              `json:"owes_money"`
	CreditExceeded  bool              `json:"credit_exceeded"`
	AtCreditLimit   bool              `json:"at_credit_limit"`
	Formatted       string            `json:"formatted"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID                uuid.UUID           `json:"id"`
	PharmacyID        uuid.UUID           `json:"pharmacy_id"`
	FirstName         string              `json:"first_name"`
	LastName          string              `json:"last_name"`
	FullName          string              `json:"full_name"`
	DisplayName       string              `json:"display_name"`
	Phone             string              `json:"phone"`
	PhoneFormatted    string              `json:"phone_formatted"`
	Email             string              `json:"email,omitempty"`
	TaxID             string              `json:"tax_id,omitempty"`
	Address           valueobject.Address `json:"address"`
	Status            string              `json:"status"`
	Balance           BalanceResponse     `json:"balance"`
	WhatsAppOptedIn   bool                `json:"whatsapp_opted_in"`
	WhatsAppName      string              `json:"whatsapp_name,omitempty"`
	Tags              []string            `json:"tags"`
	Notes             string              `json:"notes,omitempty"`
	ExternalID        string              `json:"external_id,omitempty"`
	LastTransactionAt *time.Time          `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Version           int                 `json:"version"`
}

// ToBalanceResponse converts a ClientBalance to BalanceResponse
func ToBalanceResponse(b client.ClientBalance) BalanceResponse {
	return BalanceResponse{
		Current:         b.Current(),
		CreditLimit:     b.CreditLimit(),
		Currency:        string(b.Currency()),
		TotalDebt:       b.TotalDebt(),
		CreditInFavor:   b.CreditInFavor(),
		AvailableCredit: b.AvailableCredit(),
		OwesMoney:       b.OwesMoney(),
		CreditExceeded:  b.IsCreditExceeded(),
		AtCreditLimit:   b.IsAtCreditLimit(),
		Formatted:       b.Current().Formatted(),
	}
}

// ToClientResponse converts a domain Client to ClientResponse
func ToClientResponse(c *client.Client) ClientResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return ClientResponse{
		ID:                c.ID,
		PharmacyID:        c.PharmacyID,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		FullName:          c.FullName(),
		DisplayName:       c.DisplayName(),
		Phone:             c.Phone.Normalized(),
		PhoneFormatted:    c.Phone.InternationalFormat(),
		Email:             c.Email,
		TaxID:             c.TaxID,
		Address:           c.Address,
		Status:            c.Status.String(),
		Balance:           ToBalanceResponse(c.Balance),
		WhatsAppOptedIn:   c.WhatsAppOptedIn,
		WhatsAppName:      c.WhatsAppName,
		Tags:              tags,
		Notes:             c.Notes,
		ExternalID:        c.ExternalID,
		LastTransactionAt: c.LastTransactionAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Version:           c.Version,
	}
}

// ToClientResponses converts a slice of domain Clients
func ToClientResponses(clients []client.Client) []ClientResponse {
	responses := make([]ClientResponse, len(clients))
	for i := range clients {
		responses[i] = ToClientResponse(&clients[i])
	}
	return responses
}

// =============================================================================
// Transaction DTOs
// =============================================================================

// TransactionItemInput is one invoice line
type TransactionItemInput struct {
	Name      string          `json:"name" binding:"required,max=200"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"money"`
}

// CreateTransactionRequest represents a request to post a ledger entry.
// When Amount is omitted on an entry with items, the item totals are used.
type CreateTransactionRequest struct {
	ClientID        uuid.UUID              `json:"client_id" binding:"required"`
	Type            string                 `json:"type" binding:"required,oneof=invoice payment credit_note debit_note"`
	Amount          *decimal.Decimal       `json:"amount" binding:"omitempty,money"`
	TaxAmount       *decimal.Decimal       `json:"tax_amount" binding:"omitempty,money"`
	DiscountAmount  *decimal.Decimal       `json:"discount_amount" binding:"omitempty,money"`
	Currency        string                 `json:"currency" binding:"omitempty,currency"`
	PaymentMethod   string                 `json:"payment_method" binding:"omitempty,oneof=cash transfer mercadopago credit_card debit_card"`
	Description     string                 `json:"description" binding:"max=1000"`
	Items           []TransactionItemInput `json:"items" binding:"omitempty,max=200,dive"`
	TransactionDate *time.Time             `json:"transaction_date"`
	DueDate         *time.Time             `json:"due_date"`
	AllowOverLimit  bool                   `json:"allow_over_limit"`
	IdempotencyKey  string                 `json:"-"` // Set from the Idempotency-Key header
	CreatedBy       *uuid.UUID             `json:"-"` // Set from JWT context, not from request body
}

// TransactionListFilter represents filter options for the transaction list
type TransactionListFilter struct {
	ClientID      *uuid.UUID `form:"client_id"`
	Type          string     `form:"type" binding:"omitempty,oneof=invoice payment credit_note debit_note"`
	PaymentStatus string     `form:"payment_status" binding:"omitempty,oneof=pending completed failed cancelled refunded"`
	DateFrom      *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo        *time.Time `form:"date_to" time_format:"2006-01-02"`
	Page          int        `form:"page" binding:"omitempty,min=1"`
	PageSize      int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// MarkPaidRequest represents a request to settle a pending charge
type MarkPaidRequest struct {
	PaymentMethod string     `json:"payment_method" binding:"required,oneof=cash transfer mercadopago credit_card debit_card"`
	PaidAt        *time.Time `json:"paid_at"`
}

// CancelTransactionRequest represents a request to void a pending charge
type CancelTransactionRequest struct {
	Reason      string     `json:"reason" binding:"max=500"`
	CancelledBy *uuid.UUID `json:"-"`
}

// TransactionItemResponse is one invoice line in API responses
type TransactionItemResponse struct {
	Name      string            `json:"name"`
	Quantity  int64             `json:"quantity"`
	UnitPrice valueobject.Money `json:"unit_price"`
	Total     valueobject.Money `json:"total"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID              uuid.UUID                 `json:"id"`
	PharmacyID      uuid.UUID                 `json:"pharmacy_id"`
	ClientID        uuid.UUID                 `json:"client_id"`
	Number          string                    `json:"number"`
	Type            string                    `json:"type"`
	Amount          valueobject.Money         `json:"amount"`
	TaxAmount       valueobject.Money         `json:"tax_amount"`
	DiscountAmount  valueobject.Money         `json:"discount_amount"`
	TotalAmount     valueobject.Money         `json:"total_amount"`
	BalanceAfter    valueobject.Money         `json:"balance_after"`
	Currency        string                    `json:"currency"`
	PaymentMethod   string                    `json:"payment_method,omitempty"`
	PaymentStatus   string                    `json:"payment_status"`
	Description     string                    `json:"description,omitempty"`
	Items           []TransactionItemResponse `json:"items"`
	TransactionDate time.Time                 `json:"transaction_date"`
	DueDate         *time.Time                `json:"due_date,omitempty"`
	Overdue         bool                      `json:"overdue"`
	PaidAt          *time.Time                `json:"paid_at,omitempty"`
	CancelledAt     *time.Time                `json:"cancelled_at,omitempty"`
	HasInvoicePDF   bool                      `json:"has_invoice_pdf"`
	PaymentLink     string                    `json:"payment_link,omitempty"`
	CreatedBy       *uuid.UUID                `json:"created_by,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// TransactionResult is returned by operations that move a client balance
type TransactionResult struct {
	Transaction TransactionResponse `json:"transaction"`
	Balance     BalanceResponse     `json:"balance"`
}

// InvoiceDocumentResponse points at a rendered invoice PDF
type InvoiceDocumentResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Number        string    `json:"number"`
	Key           string    `json:"key"`
	URL           string    `json:"url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PaymentLinkResponse is the checkout a client can pay a charge from
type PaymentLinkResponse struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	Number         string    `json:"number"`
	PreferenceID   string    `json:"preference_id"`
	PaymentLink    string    `json:"payment_link"`
	AlreadyCreated bool      `json:"already_created"`
}

// WebhookResult reports what a gateway notification changed
type WebhookResult struct {
	Topic         string     `json:"topic"`
	PaymentID     string     `json:"payment_id,omitempty"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	PaymentStatus string     `json:"payment_status,omitempty"`
	Processed     bool       `json:"processed"`
	Message       string     `json:"message,omitempty"`
}

// ToTransactionResponse converts a domain Transaction to TransactionResponse
func ToTransactionResponse(t *client.Transaction) TransactionResponse {
	items := make([]TransactionItemResponse, len(t.Items))
	for i, item := range t.Items {
		items[i] = TransactionItemResponse{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		}
	}
	return TransactionResponse{
		ID:              t.ID,
		PharmacyID:      t.PharmacyID,
		ClientID:        t.ClientID,
		Number:          t.Number,
		Type:            t.Type.String(),
		Amount:          t.Amount,
		TaxAmount:       t.TaxAmount,
		DiscountAmount:  t.DiscountAmount,
		TotalAmount:     t.TotalAmount,
		BalanceAfter:    t.BalanceAfter,
		Currency:        string(t.Currency()),
		PaymentMethod:   string(t.PaymentMethod),
		PaymentStatus:   string(t.PaymentStatus),
		Description:     t.Description,
		Items:           items,
		TransactionDate: t.TransactionDate,
		DueDate:         t.DueDate,
		Overdue:         t.IsOverdue(time.Now()),
		PaidAt:          t.PaidAt,
		CancelledAt:     t.CancelledAt,
		HasInvoicePDF:   t.InvoicePDFPath != "",
		PaymentLink:     t.PaymentLink,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ToTransactionResponses converts a slice of domain Transactions
func ToTransactionResponses(txs []*client.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txs))
	for i, t := range txs {
		responses[i] = ToTransactionResponse(t)
	}
	return responses
}
