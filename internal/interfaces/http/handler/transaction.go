package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/pharmabill/backend/internal/application/billing"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
	"github.com/pharmabill/backend/internal/interfaces/http/middleware"
)

// TransactionHandler handles ledger entry and invoice endpoints
type TransactionHandler struct {
	BaseHandler
	transactionService *billingapp.TransactionService
	invoiceService     *billingapp.InvoiceService
}

// NewTransactionHandler creates a new TransactionHandler. invoiceService may
// be nil when PDF generation is not configured.
func NewTransactionHandler(transactionService *billingapp.TransactionService, invoiceService *billingapp.InvoiceService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		invoiceService:     invoiceService,
	}
}

// Create godoc
// @ID           createTransaction
// @Summary      Post a ledger entry
// @Description  Posts an invoice, payment, credit note or debit note and moves the client balance.
// @Description  Repeating a request with the same Idempotency-Key answers 409.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string                                  false "Client-chosen retry key"
// @Param        request         body   billingapp.CreateTransactionRequest    true  "Entry"
// @Success      201 {object} dto.Response{data=billingapp.TransactionResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}

	var req billingapp.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(middleware.IdempotencyKeyHeader)
	req.CreatedBy = optionalUserID(c)

	result, err := h.transactionService.Create(c.Request.Context(), pharmacyID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// List godoc
// @ID           listTransactions
// @Summary      List ledger entries
// @Tags         transactions
// @Produce      json
// @Param        client_id      query string false "Client ID" format(uuid)
// @Param        type           query string false "invoice, payment, credit_note or debit_note"
// @Param        payment_status query string false "pending, completed, failed, cancelled or refunded"
// @Param        date_from      query string false "From date (YYYY-MM-DD)"
// @Param        date_to        query string false "To date (YYYY-MM-DD)"
// @Param        page           query int    false "Page" default(1)
// @Param        page_size      query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]billingapp.TransactionResponse}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	h.list(c, h.transactionService.List)
}

// ListPending godoc
// @ID           listPendingTransactions
// @Summary      List unpaid charges
// @Tags         transactions
// @Produce      json
// @Param        client_id query string false "Client ID" format(uuid)
// @Param        page      query int    false "Page" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]billingapp.TransactionResponse}
// @Security     BearerAuth
// @Router       /transactions/pending [get]
func (h *TransactionHandler) ListPending(c *gin.Context) {
	h.list(c, h.transactionService.ListPending)
}

type listTransactionsFunc func(ctx context.Context, pharmacyID uuid.UUID, filter billingapp.TransactionListFilter) (*shared.Paginated[billingapp.TransactionResponse], error)

func (h *TransactionHandler) list(c *gin.Context, fetch listTransactionsFunc) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}

	var filter billingapp.TransactionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := fetch(c.Request.Context(), pharmacyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @ID           getTransactionById
// @Summary      Get a ledger entry by ID
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.TransactionResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions/{id} [get]
func (h *TransactionHandler) GetByID(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	transactionID, ok := h.idOrAbort(c, "id", "transaction")
	if !ok {
		return
	}

	tx, err := h.transactionService.GetByID(c.Request.Context(), pharmacyID, transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// GetByNumber godoc
// @ID           getTransactionByNumber
// @Summary      Get a ledger entry by its number
// @Tags         transactions
// @Produce      json
// @Param        number path string true "Transaction number, e.g. INV-20250118-0001"
// @Success      200 {object} dto.Response{data=billingapp.TransactionResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions/by-number/{number} [get]
func (h *TransactionHandler) GetByNumber(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}

	tx, err := h.transactionService.GetByNumber(c.Request.Context(), pharmacyID, c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// MarkPaid godoc
// @ID           payTransaction
// @Summary      Settle a pending charge
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id      path string                      true "Transaction ID" format(uuid)
// @Param        request body billingapp.MarkPaidRequest  true "Payment"
// @Success      200 {object} dto.Response{data=billingapp.TransactionResult}
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions/{id}/pay [post]
func (h *TransactionHandler) MarkPaid(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	transactionID, ok := h.idOrAbort(c, "id", "transaction")
	if !ok {
		return
	}

	var req billingapp.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.transactionService.MarkPaid(c.Request.Context(), pharmacyID, transactionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel godoc
// @ID           cancelTransaction
// @Summary      Void a pending charge
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id      path string                               true  "Transaction ID" format(uuid)
// @Param        request body billingapp.CancelTransactionRequest  false "Reason"
// @Success      200 {object} dto.Response{data=billingapp.TransactionResult}
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions/{id}/cancel [post]
func (h *TransactionHandler) Cancel(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	transactionID, ok := h.idOrAbort(c, "id", "transaction")
	if !ok {
		return
	}

	var req billingapp.CancelTransactionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	req.CancelledBy = optionalUserID(c)

	result, err := h.transactionService.Cancel(c.Request.Context(), pharmacyID, transactionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Invoice godoc
// @ID           generateInvoice
// @Summary      Render the invoice PDF of a charge
// @Description  Renders the PDF once and stores it; later calls return a fresh download link.
// @Tags         transactions
// @Produce      json
// @Param        id         path  string true  "Transaction ID" format(uuid)
// @Param        regenerate query bool   false "Render again even if a PDF exists"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceDocumentResponse}
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /transactions/{id}/invoice [post]
func (h *TransactionHandler) Invoice(c *gin.Context) {
	if h.invoiceService == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Invoice generation is not configured")
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

	regenerate := false
	if raw := c.Query("regenerate"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "regenerate must be true or false")
			return
		}
		regenerate = parsed
	}

	doc, err := h.invoiceService.Generate(c.Request.Context(), pharmacyID, transactionID, regenerate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, doc)
}
