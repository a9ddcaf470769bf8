package payment

import "encoding/json"

// mercadoPagoErrorResponse represents an error response from Mercado Pago
type mercadoPagoErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// mercadoPagoPreferenceRequest creates a checkout preference
type mercadoPagoPreferenceRequest struct {
	Items               []mercadoPagoItem    `json:"items"`
	Payer               *mercadoPagoPayer    `json:"payer,omitempty"`
	ExternalReference   string               `json:"external_reference"`
	NotificationURL     string               `json:"notification_url,omitempty"`
	BackURLs            *mercadoPagoBackURLs `json:"back_urls,omitempty"`
	AutoReturn          string               `json:"auto_return,omitempty"`
	StatementDescriptor string               `json:"statement_descriptor,omitempty"`
}

// mercadoPagoItem is one checkout line. Prices are sent as JSON numbers.
type mercadoPagoItem struct {
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id,omitempty"`
}

// mercadoPagoPayer prefills the checkout form
type mercadoPagoPayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// mercadoPagoBackURLs are the pages the payer returns to
type mercadoPagoBackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

// mercadoPagoPreferenceResponse represents a created preference
type mercadoPagoPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// mercadoPagoPayment represents the response from fetching a payment
type mercadoPagoPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount json.Number `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	DateApproved      string      `json:"date_approved"`
}

// mercadoPagoNotification is the body of a webhook notification
type mercadoPagoNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}
