package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/pharmabill/backend/internal/application/billing"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/domain/shared/valueobject"
	"github.com/pharmabill/backend/internal/infrastructure/storage"
	"github.com/pharmabill/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

var testPharmacyID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// MockClientRepository implements client.ClientRepository for testing
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByIDForPharmacy(ctx context.Context, pharmacyID, id uuid.UUID) (*client.Client, error) {
	args := m.Called(ctx, pharmacyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) FindByPhone(ctx context.Context, pharmacyID uuid.UUID, phone string) (*client.Client, error) {
	args := m.Called(ctx, pharmacyID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) FindAllForPharmacy(ctx context.Context, pharmacyID uuid.UUID, filter shared.Filter) ([]client.Client, error) {
	args := m.Called(ctx, pharmacyID, filter)
	return args.Get(0).([]client.Client), args.Error(1)
}

func (m *MockClientRepository) CountForPharmacy(ctx context.Context, pharmacyID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, pharmacyID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClientRepository) ExistsByPhone(ctx context.Context, pharmacyID uuid.UUID, phone string) (bool, error) {
	args := m.Called(ctx, pharmacyID, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, c *client.Client) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockClientRepository) SaveWithLock(ctx context.Context, c *client.Client) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockClientRepository) DeleteForPharmacy(ctx context.Context, pharmacyID, id uuid.UUID) error {
	return m.Called(ctx, pharmacyID, id).Error(0)
}

// MockTransactionRepository implements client.TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateWithClient(ctx context.Context, tx *client.Transaction, c *client.Client) error {
	return m.Called(ctx, tx, c).Error(0)
}

func (m *MockTransactionRepository) UpdateWithClient(ctx context.Context, tx *client.Transaction, c *client.Client) error {
	return m.Called(ctx, tx, c).Error(0)
}

func (m *MockTransactionRepository) AttachInvoicePDF(ctx context.Context, pharmacyID, id uuid.UUID, key string) error {
	return m.Called(ctx, pharmacyID, id, key).Error(0)
}

func (m *MockTransactionRepository) AttachPaymentLink(ctx context.Context, pharmacyID, id uuid.UUID, preferenceID, link string) error {
	return m.Called(ctx, pharmacyID, id, preferenceID, link).Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, pharmacyID, id uuid.UUID) (*client.Transaction, error) {
	args := m.Called(ctx, pharmacyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByNumber(ctx context.Context, pharmacyID uuid.UUID, number string) (*client.Transaction, error) {
	args := m.Called(ctx, pharmacyID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, pharmacyID uuid.UUID, filter client.TransactionFilter) ([]*client.Transaction, int64, error) {
	args := m.Called(ctx, pharmacyID, filter)
	return args.Get(0).([]*client.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) NextSequence(ctx context.Context, pharmacyID uuid.UUID, txType client.TransactionType, date time.Time) (int, error) {
	args := m.Called(ctx, pharmacyID, txType, date)
	return args.Int(0), args.Error(1)
}

// stubInvoiceRenderer returns a fixed PDF
type stubInvoiceRenderer struct{}

func (stubInvoiceRenderer) RenderInvoice(context.Context, *billingapp.InvoiceDocument) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

// stubPaymentGateway returns canned gateway answers
type stubPaymentGateway struct {
	link       *billingapp.PaymentLink
	linkErr    error
	payment    *billingapp.GatewayPayment
	paymentErr error
	verifyErr  error
	requests   []*billingapp.PaymentLinkRequest
}

func (g *stubPaymentGateway) CreatePaymentLink(_ context.Context, req *billingapp.PaymentLinkRequest) (*billingapp.PaymentLink, error) {
	g.requests = append(g.requests, req)
	return g.link, g.linkErr
}

func (g *stubPaymentGateway) GetPayment(context.Context, string) (*billingapp.GatewayPayment, error) {
	return g.payment, g.paymentErr
}

func (g *stubPaymentGateway) VerifyWebhook(*billingapp.WebhookNotification) error {
	return g.verifyErr
}

// testEnv wires real billing services to mock repositories behind a gin engine
type testEnv struct {
	router     *gin.Engine
	clientRepo *MockClientRepository
	txRepo     *MockTransactionRepository
	storage    *storage.MemoryDocumentStorage
	gateway    *stubPaymentGateway
	txService  *billingapp.TransactionService
	userID     uuid.UUID
}

func newTestEnv() *testEnv {
	env := &testEnv{
		router:     gin.New(),
		clientRepo: new(MockClientRepository),
		txRepo:     new(MockTransactionRepository),
		storage:    storage.NewMemoryDocumentStorage(),
		gateway:    &stubPaymentGateway{},
		userID:     uuid.New(),
	}
	cfg := billingapp.DefaultConfig()
	clientService := billingapp.NewClientService(env.clientRepo, cfg, nil)
	transactionService := billingapp.NewTransactionService(env.clientRepo, env.txRepo, cfg, nil)
	env.txService = transactionService
	invoiceService := billingapp.NewInvoiceService(env.clientRepo, env.txRepo, stubInvoiceRenderer{}, env.storage, cfg, nil)

	paymentService := billingapp.NewPaymentService(env.clientRepo, env.txRepo, transactionService, env.gateway, nil)

	clients := NewClientHandler(clientService)
	txs := NewTransactionHandler(transactionService, invoiceService)
	payments := NewPaymentHandler(paymentService)

	// stands in for PharmacyScope
	env.router.Use(func(c *gin.Context) {
		c.Set(middleware.PharmacyIDKey, testPharmacyID)
		c.Set(middleware.UserIDKey, env.userID)
		c.Next()
	})

	env.router.POST("/clients", clients.Create)
	env.router.GET("/clients", clients.List)
	env.router.GET("/clients/by-phone/:phone", clients.GetByPhone)
	env.router.GET("/clients/:id", clients.GetByID)
	env.router.PUT("/clients/:id", clients.Update)
	env.router.DELETE("/clients/:id", clients.Delete)
	env.router.PUT("/clients/:id/credit-limit", clients.UpdateCreditLimit)
	env.router.POST("/clients/:id/suspend", clients.Suspend)
	env.router.POST("/clients/:id/reactivate", clients.Reactivate)
	env.router.POST("/clients/:id/close", clients.Close)
	env.router.GET("/clients/:id/balance", clients.GetBalance)

	env.router.POST("/transactions", txs.Create)
	env.router.GET("/transactions", txs.List)
	env.router.GET("/transactions/pending", txs.ListPending)
	env.router.GET("/transactions/by-number/:number", txs.GetByNumber)
	env.router.GET("/transactions/:id", txs.GetByID)
	env.router.POST("/transactions/:id/pay", txs.MarkPaid)
	env.router.POST("/transactions/:id/cancel", txs.Cancel)
	env.router.POST("/transactions/:id/invoice", txs.Invoice)
	env.router.POST("/transactions/:id/payment-link", payments.CreatePaymentLink)
	env.router.POST("/payments/webhook", payments.Webhook)
	return env
}

func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	return out
}

func ars(amount string) valueobject.Money {
	return valueobject.MustMoney(amount, valueobject.ARS)
}

func newTestClient(t *testing.T, creditLimit string) *client.Client {
	t.Helper()
	phone, err := valueobject.NewPhoneNumber("+5491112345678")
	require.NoError(t, err)
	c, err := client.NewClient(testPharmacyID, "Ana", "García", phone, ars(creditLimit))
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func newTestInvoice(t *testing.T, c *client.Client, amount string) *client.Transaction {
	t.Helper()
	tx, err := client.NewTransaction(testPharmacyID, c.ID, client.TransactionTypeInvoice,
		client.TransactionAmounts{Amount: ars(amount), Tax: ars("0"), Discount: ars("0")}, time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.AssignNumber("INV-20250118-0001"))
	require.NoError(t, c.RecordCharge(tx.TotalAmount, false))
	c.ClearDomainEvents()
	tx.RecordBalanceAfter(c.Balance.Current())
	return tx
}
