package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingapp "github.com/pharmabill/backend/internal/application/billing"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
)

// Maximum webhook payload size (64KB - gateway notifications are small)
const maxWebhookPayloadSize = 65536

// Mercado Pago signs notifications with these headers
const (
	webhookSignatureHeader = "x-signature"
	webhookRequestIDHeader = "x-request-id"
)

// PaymentHandler handles payment link creation and gateway notifications.
// The webhook is called by the gateway and does not require authentication.
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler. paymentService may be nil
// when no gateway is configured.
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PaymentWebhookResponse represents the response to a gateway notification
//
//	@Description	Payment webhook response
type PaymentWebhookResponse struct {
	Received      bool   `json:"received" example:"true"`
	Topic         string `json:"topic,omitempty" example:"payment"`
	PaymentID     string `json:"payment_id,omitempty" example:"123456789"`
	PaymentStatus string `json:"payment_status,omitempty" example:"completed"`
	Message       string `json:"message,omitempty" example:"Payment applied"`
}

// CreatePaymentLink godoc
// @ID           createPaymentLink
// @Summary      Create a payment link for a charge
// @Description  Creates a Mercado Pago checkout for a pending or failed invoice or debit note.
// @Description  A charge that already has a link gets it back with already_created set.
// @Tags         payments
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.PaymentLinkResponse}
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions/{id}/payment-link [post]
func (h *PaymentHandler) CreatePaymentLink(c *gin.Context) {
	if h.paymentService == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Payment gateway is not configured")
		return
	}
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	transactionID, ok := h.idOrAbort(c, "id", "transaction")
	if !ok {
		return
	}

	link, err := h.paymentService.CreatePaymentLink(c.Request.Context(), pharmacyID, transactionID)
	if err != nil {
		h.handleGatewayError(c, err)
		return
	}

	h.Success(c, link)
}

func (h *PaymentHandler) handleGatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billingapp.ErrGatewayNotConfigured):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Payment gateway is not configured")
	case errors.Is(err, billingapp.ErrGatewayUnavailable),
		errors.Is(err, billingapp.ErrGatewayRequestFailed),
		errors.Is(err, billingapp.ErrGatewayInvalidResponse):
		_ = c.Error(err)
		h.ErrorWithCode(c, dto.ErrCodePaymentGateway, "Payment gateway request failed")
	default:
		h.HandleError(c, err)
	}
}

// Webhook godoc
// @ID           handlePaymentWebhook
// @Summary      Handle Mercado Pago notifications
// @Description  Receives payment notifications, verifies their signature and settles the charge
// @Description  they reference. Authentic notifications are always acknowledged with 200.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        x-signature  header string true  "ts=<timestamp>,v1=<hmac>"
// @Param        x-request-id header string false "Request id covered by the signature"
// @Param        type         query  string false "Notification topic"
// @Param        data.id      query  string false "Payment id"
// @Success      200 {object} PaymentWebhookResponse "Notification received"
// @Failure      401 {object} PaymentWebhookResponse "Invalid signature"
// @Failure      413 {object} PaymentWebhookResponse "Payload too large"
// @Failure      503 {object} PaymentWebhookResponse "Gateway not configured or temporary failure"
// @Router       /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	if h.paymentService == nil {
		c.JSON(http.StatusServiceUnavailable, PaymentWebhookResponse{
			Received: false,
			Message:  "Payment gateway is not configured",
		})
		return
	}

	// The raw body is kept for signature verification
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, PaymentWebhookResponse{
			Received: false,
			Message:  "Failed to read request body",
		})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, PaymentWebhookResponse{
			Received: false,
			Message:  "Payload too large",
		})
		return
	}

	signature := c.GetHeader(webhookSignatureHeader)
	if signature == "" {
		c.JSON(http.StatusUnauthorized, PaymentWebhookResponse{
			Received: false,
			Message:  "Missing x-signature header",
		})
		return
	}

	topic := c.Query("type")
	if topic == "" {
		topic = c.Query("topic")
	}
	dataID := c.Query("data.id")
	if dataID == "" {
		dataID = c.Query("id")
	}

	result, err := h.paymentService.HandleWebhook(c.Request.Context(), &billingapp.WebhookNotification{
		Topic:     topic,
		DataID:    dataID,
		RequestID: c.GetHeader(webhookRequestIDHeader),
		Signature: signature,
		Payload:   payload,
	})
	if result == nil {
		status, message := http.StatusUnauthorized, "Webhook signature verification failed"
		if errors.Is(err, billingapp.ErrGatewayNotConfigured) {
			status, message = http.StatusServiceUnavailable, "Payment gateway is not configured"
		}
		c.JSON(status, PaymentWebhookResponse{Received: false, Message: message})
		return
	}

	resp := PaymentWebhookResponse{
		Received:      true,
		Topic:         result.Topic,
		PaymentID:     result.PaymentID,
		PaymentStatus: result.PaymentStatus,
		Message:       result.Message,
	}
	switch {
	case err == nil:
	case errors.Is(err, billingapp.ErrGatewayUnavailable), errors.Is(err, shared.ErrConcurrencyConflict):
		// transient: a non-2xx answer makes the gateway deliver it again
		resp.Message = "Temporary failure, retry later"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	default:
		// retrying cannot fix it; details stay in the logs
		resp.Message = "Webhook received but processing encountered an issue"
	}
	c.JSON(http.StatusOK, resp)
}
