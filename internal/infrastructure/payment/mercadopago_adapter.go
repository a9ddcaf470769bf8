package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	billingapp "github.com/pharmabill/backend/internal/application/billing"
	"github.com/shopspring/decimal"
)

const (
	mercadoPagoPreferencesPath = "/checkout/preferences"
	mercadoPagoPaymentPath     = "/v1/payments/%s"
)

// MercadoPagoAdapter implements billing.PaymentGateway for Mercado Pago Checkout Pro
type MercadoPagoAdapter struct {
	config     *MercadoPagoConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewMercadoPagoAdapter creates a new Mercado Pago adapter
func NewMercadoPagoAdapter(config *MercadoPagoConfig) (*MercadoPagoAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &MercadoPagoAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.timeout(),
		},
		now: time.Now,
	}, nil
}

// CreatePaymentLink creates a checkout preference for one charge
func (a *MercadoPagoAdapter) CreatePaymentLink(ctx context.Context, req *billingapp.PaymentLinkRequest) (*billingapp.PaymentLink, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(a.buildPreference(req))
	if err != nil {
		return nil, fmt.Errorf("mercadopago: failed to marshal request: %w", err)
	}

	// Retrying with the same reference returns the preference already created
	respBody, err := a.doRequest(ctx, http.MethodPost, mercadoPagoPreferencesPath, bodyBytes, req.ExternalReference())
	if err != nil {
		return nil, err
	}

	var pref mercadoPagoPreferenceResponse
	if err := json.Unmarshal(respBody, &pref); err != nil {
		return nil, fmt.Errorf("%w: %v", billingapp.ErrGatewayInvalidResponse, err)
	}

	link := &billingapp.PaymentLink{
		PreferenceID: pref.ID,
		URL:          pref.InitPoint,
		SandboxURL:   pref.SandboxInitPoint,
	}
	if a.config.Sandbox && pref.SandboxInitPoint != "" {
		link.URL = pref.SandboxInitPoint
	}
	if link.PreferenceID == "" || link.URL == "" {
		return nil, fmt.Errorf("%w: preference without id or checkout link", billingapp.ErrGatewayInvalidResponse)
	}
	return link, nil
}

// GetPayment fetches a payment by its Mercado Pago id
func (a *MercadoPagoAdapter) GetPayment(ctx context.Context, paymentID string) (*billingapp.GatewayPayment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: empty payment id", billingapp.ErrGatewayRequestFailed)
	}

	respBody, err := a.doRequest(ctx, http.MethodGet, fmt.Sprintf(mercadoPagoPaymentPath, url.PathEscape(paymentID)), nil, "")
	if err != nil {
		return nil, err
	}

	var respData mercadoPagoPayment
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("%w: %v", billingapp.ErrGatewayInvalidResponse, err)
	}

	payment := &billingapp.GatewayPayment{
		ID:                respData.ID.String(),
		Status:            mapMercadoPagoStatus(respData.Status),
		StatusDetail:      respData.StatusDetail,
		RawStatus:         respData.Status,
		ExternalReference: respData.ExternalReference,
		Currency:          respData.CurrencyID,
	}
	if respData.TransactionAmount != "" {
		amount, err := decimal.NewFromString(respData.TransactionAmount.String())
		if err != nil {
			return nil, fmt.Errorf("%w: transaction_amount %q", billingapp.ErrGatewayInvalidResponse, respData.TransactionAmount)
		}
		payment.Amount = amount
	}
	if respData.DateApproved != "" {
		if t, err := time.Parse(time.RFC3339, respData.DateApproved); err == nil {
			payment.ApprovedAt = &t
		}
	}
	return payment, nil
}

// VerifyWebhook checks the x-signature of a notification. Topic and DataID
// are taken from the payload when the query string did not carry them.
//
// The signed manifest is "id:<data.id>;request-id:<x-request-id>;ts:<ts>;"
// with absent parts left out.
func (a *MercadoPagoAdapter) VerifyWebhook(n *billingapp.WebhookNotification) error {
	if len(n.Payload) > 0 && (n.Topic == "" || n.DataID == "") {
		var body mercadoPagoNotification
		if err := json.Unmarshal(n.Payload, &body); err != nil {
			return fmt.Errorf("%w: malformed payload: %v", billingapp.ErrGatewayInvalidCallback, err)
		}
		if n.Topic == "" {
			n.Topic = body.Type
		}
		if n.DataID == "" {
			n.DataID = body.Data.ID
		}
	}

	ts, v1, err := parseSignatureHeader(n.Signature)
	if err != nil {
		return err
	}
	if err := a.checkSignatureAge(ts); err != nil {
		return err
	}

	got, err := hex.DecodeString(v1)
	if err != nil {
		return fmt.Errorf("%w: v1 is not hex", billingapp.ErrGatewayInvalidCallback)
	}
	if !hmac.Equal(a.sign(signatureManifest(n.DataID, n.RequestID, ts)), got) {
		return fmt.Errorf("%w: signature mismatch", billingapp.ErrGatewayInvalidCallback)
	}
	return nil
}

func (a *MercadoPagoAdapter) checkSignatureAge(ts string) error {
	if a.config.SignatureTolerance <= 0 {
		return nil
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: ts is not a timestamp", billingapp.ErrGatewayInvalidCallback)
	}
	signedAt := time.Unix(n, 0)
	if n > 1e12 {
		signedAt = time.UnixMilli(n)
	}
	if age := a.now().Sub(signedAt); age > a.config.SignatureTolerance || age < -a.config.SignatureTolerance {
		return fmt.Errorf("%w: signature outside tolerance", billingapp.ErrGatewayInvalidCallback)
	}
	return nil
}

func (a *MercadoPagoAdapter) sign(manifest string) []byte {
	mac := hmac.New(sha256.New, []byte(a.config.WebhookSecret))
	mac.Write([]byte(manifest))
	return mac.Sum(nil)
}

// parseSignatureHeader splits "ts=...,v1=..." into its parts
func parseSignatureHeader(header string) (ts, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return "", "", fmt.Errorf("%w: missing ts or v1", billingapp.ErrGatewayInvalidCallback)
	}
	return ts, v1, nil
}

func signatureManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func (a *MercadoPagoAdapter) buildPreference(req *billingapp.PaymentLinkRequest) *mercadoPagoPreferenceRequest {
	items := make([]mercadoPagoItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = mercadoPagoItem{
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  json.Number(item.UnitPrice.StringFixed(2)),
			CurrencyID: req.Currency,
		}
	}

	pref := &mercadoPagoPreferenceRequest{
		Items:               items,
		ExternalReference:   req.ExternalReference(),
		NotificationURL:     a.config.NotificationURL,
		StatementDescriptor: a.config.StatementDescriptor,
	}
	if req.PayerEmail != "" || req.PayerName != "" {
		pref.Payer = &mercadoPagoPayer{Name: req.PayerName, Email: req.PayerEmail}
	}
	if a.config.SuccessURL != "" || a.config.FailureURL != "" || a.config.PendingURL != "" {
		pref.BackURLs = &mercadoPagoBackURLs{
			Success: a.config.SuccessURL,
			Failure: a.config.FailureURL,
			Pending: a.config.PendingURL,
		}
	}
	// auto_return is rejected without a success page
	if a.config.SuccessURL != "" {
		pref.AutoReturn = "approved"
	}
	return pref
}

// doRequest performs an HTTP request to the Mercado Pago API
func (a *MercadoPagoAdapter) doRequest(ctx context.Context, method, path string, body []byte, idempotencyKey string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.baseURL()+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.AccessToken)
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billingapp.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", billingapp.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errResp mercadoPagoErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return nil, fmt.Errorf("%w: %s - %s", billingapp.ErrGatewayRequestFailed, errResp.Error, errResp.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", billingapp.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// mapMercadoPagoStatus maps a Mercado Pago payment status to ours
func mapMercadoPagoStatus(status string) billingapp.GatewayPaymentStatus {
	switch status {
	case "approved":
		return billingapp.GatewayPaymentStatusPaid
	case "rejected":
		return billingapp.GatewayPaymentStatusFailed
	case "cancelled":
		return billingapp.GatewayPaymentStatusCancelled
	case "refunded", "charged_back":
		return billingapp.GatewayPaymentStatusRefunded
	case "pending", "in_process", "authorized", "in_mediation":
		return billingapp.GatewayPaymentStatusPending
	default:
		return billingapp.GatewayPaymentStatusPending
	}
}

// Ensure MercadoPagoAdapter implements PaymentGateway interface
var _ billingapp.PaymentGateway = (*MercadoPagoAdapter)(nil)
