package billing

import (
	"context"
	"time"

	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DocumentStorage stores rendered documents and hands out time-limited links to them
type DocumentStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (url string, expiresAt time.Time, err error)
}

// InvoiceRenderer turns an invoice document into a PDF
type InvoiceRenderer interface {
	RenderInvoice(ctx context.Context, doc *InvoiceDocument) ([]byte, error)
}

// InvoiceDocument is everything printed on an invoice
type InvoiceDocument struct {
	Transaction *client.Transaction
	Client      *client.Client
	IssuedAt    time.Time
}

// Config holds the billing defaults applied by the services
type Config struct {
	DefaultCurrency    valueobject.Currency
	DefaultCountryCode string
	// DefaultCreditLimit is used when a client is created without one. Zero means cash only.
	DefaultCreditLimit decimal.Decimal
	// MaxRetries bounds the read-modify-write attempts after a concurrency conflict
	MaxRetries int
	// PaymentTermDays sets the due date of charges created without one; 0 leaves it empty
	PaymentTermDays int
	IdempotencyTTL  time.Duration
	// DownloadURLExpiry is how long an invoice download link stays valid
	DownloadURLExpiry time.Duration
}

// DefaultConfig returns the defaults for an Argentine pharmacy
func DefaultConfig() Config {
	return Config{
		DefaultCurrency:    valueobject.DefaultCurrency,
		DefaultCountryCode: valueobject.DefaultCountryCode,
		DefaultCreditLimit: decimal.Zero,
		MaxRetries:         3,
		PaymentTermDays:    30,
		IdempotencyTTL:     24 * time.Hour,
		DownloadURLExpiry:  15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = d.DefaultCurrency
	}
	if c.DefaultCountryCode == "" {
		c.DefaultCountryCode = d.DefaultCountryCode
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = d.MaxRetries
	}
	if c.PaymentTermDays < 0 {
		c.PaymentTermDays = 0
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = d.IdempotencyTTL
	}
	if c.DownloadURLExpiry <= 0 {
		c.DownloadURLExpiry = d.DownloadURLExpiry
	}
	return c
}
