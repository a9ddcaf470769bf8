package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockClientRepository is a mock implementation of client.ClientRepository
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
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClientRepository) SaveWithLock(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClientRepository) DeleteForPharmacy(ctx context.Context, pharmacyID, id uuid.UUID) error {
	args := m.Called(ctx, pharmacyID, id)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of client.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateWithClient(ctx context.Context, tx *client.Transaction, c *client.Client) error {
	args := m.Called(ctx, tx, c)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateWithClient(ctx context.Context, tx *client.Transaction, c *client.Client) error {
	args := m.Called(ctx, tx, c)
	return args.Error(0)
}

func (m *MockTransactionRepository) AttachInvoicePDF(ctx context.Context, pharmacyID, id uuid.UUID, key string) error {
	args := m.Called(ctx, pharmacyID, id, key)
	return args.Error(0)
}

func (m *MockTransactionRepository) AttachPaymentLink(ctx context.Context, pharmacyID, id uuid.UUID, preferenceID, link string) error {
	args := m.Called(ctx, pharmacyID, id, preferenceID, link)
	return args.Error(0)
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

// =============================================================================
// Mock collaborators
// =============================================================================

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// MockInvoiceRenderer is a mock implementation of InvoiceRenderer
type MockInvoiceRenderer struct {
	mock.Mock
}

func (m *MockInvoiceRenderer) RenderInvoice(ctx context.Context, doc *InvoiceDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDocumentStorage is a mock implementation of DocumentStorage
type MockDocumentStorage struct {
	mock.Mock
}

func (m *MockDocumentStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockDocumentStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentLink), args.Error(1)
}

func (m *MockPaymentGateway) GetPayment(ctx context.Context, paymentID string) (*GatewayPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewayPayment), args.Error(1)
}

func (m *MockPaymentGateway) VerifyWebhook(n *WebhookNotification) error {
	args := m.Called(n)
	return args.Error(0)
}

// Verify interface compliance
var (
	_ client.ClientRepository      = (*MockClientRepository)(nil)
	_ client.TransactionRepository = (*MockTransactionRepository)(nil)
	_ shared.EventPublisher        = (*MockEventPublisher)(nil)
	_ shared.IdempotencyStore      = (*MockIdempotencyStore)(nil)
	_ InvoiceRenderer              = (*MockInvoiceRenderer)(nil)
	_ DocumentStorage              = (*MockDocumentStorage)(nil)
	_ PaymentGateway               = (*MockPaymentGateway)(nil)
)
