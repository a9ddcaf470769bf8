package payment

import (
	"errors"
	"time"
)

const (
	mercadoPagoAPIBaseURL = "https://api.mercadopago.com"
	defaultTimeout        = 30 * time.Second
)

// MercadoPagoConfig contains configuration for the Mercado Pago checkout API
type MercadoPagoConfig struct {
	// AccessToken is the seller's private API token
	AccessToken string
	// WebhookSecret signs the notifications Mercado Pago sends us
	WebhookSecret string
	// BaseURL overrides the API host
	BaseURL string
	// NotificationURL is where Mercado Pago posts payment notifications
	NotificationURL string
	// SuccessURL, FailureURL and PendingURL are where the payer is sent back to
	SuccessURL string
	FailureURL string
	PendingURL string
	// StatementDescriptor appears on the payer's card statement
	StatementDescriptor string
	// Sandbox hands out the sandbox checkout link
	Sandbox bool
	// Timeout bounds each API call
	Timeout time.Duration
	// SignatureTolerance rejects notifications signed longer ago; zero accepts any age
	SignatureTolerance time.Duration
}

// Errors for configuration validation
var (
	ErrMercadoPagoMissingAccessToken     = errors.New("mercadopago: missing access token")
	ErrMercadoPagoMissingWebhookSecret   = errors.New("mercadopago: missing webhook secret")
	ErrMercadoPagoMissingNotificationURL = errors.New("mercadopago: missing notification URL")
)

// Validate validates the configuration
func (c *MercadoPagoConfig) Validate() error {
	if c.AccessToken == "" {
		return ErrMercadoPagoMissingAccessToken
	}
	if c.WebhookSecret == "" {
		return ErrMercadoPagoMissingWebhookSecret
	}
	if c.NotificationURL == "" {
		return ErrMercadoPagoMissingNotificationURL
	}
	return nil
}

func (c *MercadoPagoConfig) baseURL() string {
	if c.BaseURL == "" {
		return mercadoPagoAPIBaseURL
	}
	return c.BaseURL
}

func (c *MercadoPagoConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}
