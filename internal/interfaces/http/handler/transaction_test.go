package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	billingapp "github.com/pharmabill/backend/internal/application/billing"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/cache"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
	"github.com/pharmabill/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransactionHandler_Create(t *testing.T) {
	t.Run("should post an invoice and charge the client", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "5000")
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)
		env.txRepo.On("NextSequence", mock.Anything, testPharmacyID, client.TransactionTypeInvoice, mock.AnythingOfType("time.Time")).
			Return(7, nil)
		env.txRepo.On("CreateWithClient", mock.Anything, mock.AnythingOfType("*client.Transaction"), c).Return(nil)

		w := env.do(http.MethodPost, "/transactions", map[string]any{
			"client_id":  c.ID,
			"type":       "invoice",
			"amount":     "1200",
			"tax_amount": "252",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		result := decodeData[billingapp.TransactionResult](t, w)
		assert.True(t, strings.HasPrefix(result.Transaction.Number, "INV-"))
		assert.True(t, strings.HasSuffix(result.Transaction.Number, "-0007"))
		assert.Equal(t, "1452.00", result.Transaction.TotalAmount.StringFixed())
		assert.Equal(t, "pending", result.Transaction.PaymentStatus)
		assert.Equal(t, "1452.00", result.Balance.Current.StringFixed())
		require.NotNil(t, result.Transaction.CreatedBy)
		assert.Equal(t, env.userID, *result.Transaction.CreatedBy)
		env.txRepo.AssertExpectations(t)
	})

	t.Run("should build the amount from items", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "5000")
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)
		env.txRepo.On("NextSequence", mock.Anything, testPharmacyID, client.TransactionTypeInvoice, mock.AnythingOfType("time.Time")).
			Return(1, nil)
		env.txRepo.On("CreateWithClient", mock.Anything, mock.AnythingOfType("*client.Transaction"), c).Return(nil)

		w := env.do(http.MethodPost, "/transactions", map[string]any{
			"client_id": c.ID,
			"type":      "invoice",
			"items": []map[string]any{
				{"name": "Ibuprofeno 400mg", "quantity": 2, "unit_price": "350.50"},
				{"name": "Alcohol en gel", "quantity": 1, "unit_price": "899"},
			},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		result := decodeData[billingapp.TransactionResult](t, w)
		assert.Len(t, result.Transaction.Items, 2)
		assert.Equal(t, "1600.00", result.Transaction.TotalAmount.StringFixed())
	})

	t.Run("should reject a charge over the credit limit", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "1000")
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)

		w := env.do(http.MethodPost, "/transactions", map[string]any{
			"client_id": c.ID,
			"type":      "invoice",
			"amount":    "1000.01",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeCreditLimitExceeded, decode(t, w).Error.Code)
		env.txRepo.AssertNotCalled(t, "CreateWithClient", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should refuse charges on a suspended client", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "1000")
		require.NoError(t, c.Suspend("mora"))
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)

		w := env.do(http.MethodPost, "/transactions", map[string]any{
			"client_id": c.ID,
			"type":      "debit_note",
			"amount":    "10",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeClientNotActive, decode(t, w).Error.Code)
	})

	t.Run("should validate the type", func(t *testing.T) {
		env := newTestEnv()

		w := env.do(http.MethodPost, "/transactions", map[string]any{
			"client_id": uuid.New(),
			"type":      "refund",
			"amount":    "10",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "type", decode(t, w).Error.Details[0].Field)
	})

	t.Run("should answer 409 when an idempotency key is replayed", func(t *testing.T) {
		env := newTestEnv()
		store := cache.NewInMemoryIdempotencyStore(time.Minute)
		t.Cleanup(func() { _ = store.Close() })
		env.txService.SetIdempotencyStore(store)

		c := newTestClient(t, "5000")
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)
		env.txRepo.On("NextSequence", mock.Anything, testPharmacyID, client.TransactionTypePayment, mock.AnythingOfType("time.Time")).
			Return(1, nil).Once()
		env.txRepo.On("CreateWithClient", mock.Anything, mock.AnythingOfType("*client.Transaction"), c).Return(nil).Once()

		body := map[string]any{
			"client_id":      c.ID,
			"type":           "payment",
			"amount":         "300",
			"payment_method": "cash",
		}
		first := env.do(http.MethodPost, "/transactions", body, middleware.IdempotencyKeyHeader, "pos-1-0001")
		second := env.do(http.MethodPost, "/transactions", body, middleware.IdempotencyKeyHeader, "pos-1-0001")

		assert.Equal(t, http.StatusCreated, first.Code, first.Body.String())
		assert.Equal(t, http.StatusConflict, second.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, decode(t, second).Error.Code)
		env.txRepo.AssertNumberOfCalls(t, "CreateWithClient", 1)
	})
}

func TestTransactionHandler_GetByID(t *testing.T) {
	env := newTestEnv()
	c := newTestClient(t, "5000")
	tx := newTestInvoice(t, c, "800")
	env.txRepo.On("FindByID", mock.Anything, testPharmacyID, tx.ID).Return(tx, nil)

	w := env.do(http.MethodGet, "/transactions/"+tx.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[billingapp.TransactionResponse](t, w)
	assert.Equal(t, tx.Number, resp.Number)
	assert.Equal(t, "invoice", resp.Type)
}

func TestTransactionHandler_GetByNumber(t *testing.T) {
	env := newTestEnv()
	c := newTestClient(t, "5000")
	tx := newTestInvoice(t, c, "800")
	env.txRepo.On("FindByNumber", mock.Anything, testPharmacyID, tx.Number).Return(tx, nil)

	w := env.do(http.MethodGet, "/transactions/by-number/"+tx.Number, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, tx.ID, decodeData[billingapp.TransactionResponse](t, w).ID)
}

func TestTransactionHandler_List(t *testing.T) {
	t.Run("should pass filters to the repository", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "5000")
		txs := []*client.Transaction{newTestInvoice(t, c, "100")}
		env.txRepo.On("List", mock.Anything, testPharmacyID, mock.MatchedBy(func(f client.TransactionFilter) bool {
			return f.ClientID != nil && *f.ClientID == c.ID && f.DateFrom != nil
		})).Return(txs, int64(1), nil)

		w := env.do(http.MethodGet, "/transactions?client_id="+c.ID.String()+"&date_from=2025-01-01", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode(t, w)
		assert.Equal(t, int64(1), resp.Meta.Total)
		env.txRepo.AssertExpectations(t)
	})

	t.Run("pending lists only pending charges", func(t *testing.T) {
		env := newTestEnv()
		env.txRepo.On("List", mock.Anything, testPharmacyID, mock.MatchedBy(func(f client.TransactionFilter) bool {
			return f.PaymentStatus != nil && *f.PaymentStatus == client.PaymentStatusPending
		})).Return([]*client.Transaction{}, int64(0), nil)

		w := env.do(http.MethodGet, "/transactions/pending", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env.txRepo.AssertExpectations(t)
	})

	t.Run("should reject a malformed date", func(t *testing.T) {
		env := newTestEnv()

		w := env.do(http.MethodGet, "/transactions?date_from=18/01/2025", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransactionHandler_MarkPaid(t *testing.T) {
	t.Run("should settle the charge and credit the balance", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "5000")
		tx := newTestInvoice(t, c, "800")
		env.txRepo.On("FindByID", mock.Anything, testPharmacyID, tx.ID).Return(tx, nil)
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)
		env.txRepo.On("UpdateWithClient", mock.Anything, tx, c).Return(nil)

		w := env.do(http.MethodPost, "/transactions/"+tx.ID.String()+"/pay", map[string]any{"payment_method": "mercadopago"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decodeData[billingapp.TransactionResult](t, w)
		assert.Equal(t, "completed", result.Transaction.PaymentStatus)
		assert.Equal(t, "mercadopago", result.Transaction.PaymentMethod)
		assert.Equal(t, "0.00", result.Balance.Current.StringFixed())
	})

	t.Run("should require a payment method", func(t *testing.T) {
		env := newTestEnv()

		w := env.do(http.MethodPost, "/transactions/"+uuid.NewString()+"/pay", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "payment_method", decode(t, w).Error.Details[0].Field)
	})

	t.Run("should refuse to pay a cancelled charge", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "5000")
		tx := newTestInvoice(t, c, "800")
		require.NoError(t, tx.Cancel(nil, time.Now()))
		env.txRepo.On("FindByID", mock.Anything, testPharmacyID, tx.ID).Return(tx, nil)
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)

		w := env.do(http.MethodPost, "/transactions/"+tx.ID.String()+"/pay", map[string]any{"payment_method": "cash"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidStatusTransition, decode(t, w).Error.Code)
	})
}

func TestTransactionHandler_Cancel(t *testing.T) {
	env := newTestEnv()
	c := newTestClient(t, "5000")
	tx := newTestInvoice(t, c, "800")
	env.txRepo.On("FindByID", mock.Anything, testPharmacyID, tx.ID).Return(tx, nil)
	env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil)
	env.txRepo.On("UpdateWithClient", mock.Anything, tx, c).Return(nil)

	w := env.do(http.MethodPost, "/transactions/"+tx.ID.String()+"/cancel", map[string]any{"reason": "error de carga"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeData[billingapp.TransactionResult](t, w)
	assert.Equal(t, "cancelled", result.Transaction.PaymentStatus)
	assert.Contains(t, result.Transaction.Description, "error de carga")
	assert.Equal(t, "0.00", result.Balance.Current.StringFixed())
	require.NotNil(t, tx.CancelledBy)
	assert.Equal(t, env.userID, *tx.CancelledBy)
}

func TestTransactionHandler_Invoice(t *testing.T) {
	t.Run("should render once and return a link", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "5000")
		tx := newTestInvoice(t, c, "800")
		env.txRepo.On("FindByID", mock.Anything, testPharmacyID, tx.ID).Return(tx, nil)
		env.clientRepo.On("FindByIDForPharmacy", mock.Anything, testPharmacyID, c.ID).Return(c, nil).Once()
		env.txRepo.On("AttachInvoicePDF", mock.Anything, testPharmacyID, tx.ID,
			billingapp.InvoiceKey(testPharmacyID, tx.Number)).Return(nil).Once()

		w := env.do(http.MethodPost, "/transactions/"+tx.ID.String()+"/invoice", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		doc := decodeData[billingapp.InvoiceDocumentResponse](t, w)
		assert.Equal(t, billingapp.InvoiceKey(testPharmacyID, tx.Number), doc.Key)
		assert.NotEmpty(t, doc.URL)
		data, contentType, ok := env.storage.Get(doc.Key)
		require.True(t, ok)
		assert.Equal(t, "application/pdf", contentType)
		assert.Equal(t, []byte("%PDF-1.7"), data)

		// stored documents are not rendered again
		w = env.do(http.MethodPost, "/transactions/"+tx.ID.String()+"/invoice", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env.txRepo.AssertNumberOfCalls(t, "AttachInvoicePDF", 1)
	})

	t.Run("should reject payments", func(t *testing.T) {
		env := newTestEnv()
		c := newTestClient(t, "5000")
		tx, err := client.NewTransaction(testPharmacyID, c.ID, client.TransactionTypePayment,
			client.TransactionAmounts{Amount: ars("100"), Tax: ars("0"), Discount: ars("0")}, time.Now())
		require.NoError(t, err)
		env.txRepo.On("FindByID", mock.Anything, testPharmacyID, tx.ID).Return(tx, nil)

		w := env.do(http.MethodPost, "/transactions/"+tx.ID.String()+"/invoice", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decode(t, w).Error.Code)
	})

	t.Run("should validate the regenerate flag", func(t *testing.T) {
		env := newTestEnv()

		w := env.do(http.MethodPost, "/transactions/"+uuid.NewString()+"/invoice?regenerate=maybe", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should answer 503 when not configured", func(t *testing.T) {
		env := newTestEnv()
		h := NewTransactionHandler(env.txService, nil)
		env.router.POST("/unconfigured/:id/invoice", h.Invoice)

		w := env.do(http.MethodPost, "/unconfigured/"+uuid.NewString()+"/invoice", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestTransactionHandler_NotFound(t *testing.T) {
	env := newTestEnv()
	id := uuid.New()
	env.txRepo.On("FindByID", mock.Anything, testPharmacyID, id).Return(nil, shared.ErrNotFound)

	w := env.do(http.MethodPost, "/transactions/"+id.String()+"/pay", map[string]any{"payment_method": "cash"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}
