package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2025, 1, 18, 10, 30, 0, 0, time.UTC)
	testDay = time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC)
)

type transactionServiceFixture struct {
	service    *TransactionService
	clientRepo *MockClientRepository
	txRepo     *MockTransactionRepository
	publisher  *MockEventPublisher
}

func newTransactionServiceFixture() *transactionServiceFixture {
	f := &transactionServiceFixture{
		clientRepo: new(MockClientRepository),
		txRepo:     new(MockTransactionRepository),
		publisher:  new(MockEventPublisher),
	}
	f.service = NewTransactionService(f.clientRepo, f.txRepo, DefaultConfig(), nil)
	f.service.SetEventPublisher(f.publisher)
	f.service.now = func() time.Time { return testNow }
	return f
}

func (f *transactionServiceFixture) expectEvents(types ...string) {
	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return assert.ObjectsAreEqual(types, eventTypes(events))
	})).Return(nil).Once()
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// newPendingInvoice posts a numbered invoice of amount against c
func newPendingInvoice(t *testing.T, c *client.Client, amount string) *client.Transaction {
	t.Helper()
	tx, err := client.NewTransaction(c.PharmacyID, c.ID, client.TransactionTypeInvoice,
		client.TransactionAmounts{Amount: ars(amount), Tax: ars("0"), Discount: ars("0")}, testDay)
	require.NoError(t, err)
	require.NoError(t, tx.AssignNumber("INV-20250118-0001"))
	require.NoError(t, c.RecordCharge(tx.TotalAmount, false))
	tx.RecordBalanceAfter(c.Balance.Current())
	c.ClearDomainEvents()
	c.MarkPersisted()
	return tx
}

// =============================================================================
// Create
// =============================================================================

func TestTransactionService_Create_InvoiceFromItems(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()
	c := createTestClient(t, pharmacyID, "5000")
	operator := uuid.New()

	f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)
	f.txRepo.On("NextSequence", mock.Anything, pharmacyID, client.TransactionTypeInvoice, testDay).Return(1, nil)
	f.txRepo.On("CreateWithClient", mock.Anything, mock.AnythingOfType("*client.Transaction"), c).Return(nil)
	f.expectEvents(client.EventTypeClientCharged)

	result, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
		ClientID:  c.ID,
		Type:      "invoice",
		TaxAmount: dec("63"),
		Items: []TransactionItemInput{
			{Name: "Ibuprofeno 400mg", Quantity: 2, UnitPrice: decimal.RequireFromString("150")},
		},
		Description: "Venta mostrador",
		CreatedBy:   &operator,
	})

	require.NoError(t, err)
	tx := result.Transaction
	assert.Equal(t, "INV-20250118-0001", tx.Number)
	assert.Equal(t, "300.00", tx.Amount.StringFixed())
	assert.Equal(t, "363.00", tx.TotalAmount.StringFixed())
	assert.Equal(t, "363.00", tx.BalanceAfter.StringFixed())
	assert.Equal(t, "pending", tx.PaymentStatus)
	assert.Equal(t, testDay, tx.TransactionDate)
	require.NotNil(t, tx.DueDate)
	assert.Equal(t, testDay.AddDate(0, 0, 30), *tx.DueDate)
	assert.Equal(t, &operator, tx.CreatedBy)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, "300.00", tx.Items[0].Total.StringFixed())
	assert.Equal(t, "363.00", result.Balance.Current.StringFixed())
	f.txRepo.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestTransactionService_Create_Payment(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()
	c := createTestClient(t, pharmacyID, "5000")
	newPendingInvoice(t, c, "500")

	f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)
	f.txRepo.On("NextSequence", mock.Anything, pharmacyID, client.TransactionTypePayment, testDay).Return(4, nil)
	f.txRepo.On("CreateWithClient", mock.Anything, mock.AnythingOfType("*client.Transaction"), c).Return(nil)
	f.expectEvents(client.EventTypeClientPaymentRecorded)

	result, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
		ClientID:      c.ID,
		Type:          "payment",
		Amount:        dec("200"),
		PaymentMethod: "mercadopago",
	})

	require.NoError(t, err)
	assert.Equal(t, "PAY-20250118-0004", result.Transaction.Number)
	assert.Equal(t, "completed", result.Transaction.PaymentStatus)
	assert.Equal(t, "mercadopago", result.Transaction.PaymentMethod)
	assert.NotNil(t, result.Transaction.PaidAt)
	assert.Nil(t, result.Transaction.DueDate)
	assert.Equal(t, "300.00", result.Balance.Current.StringFixed())
}

func TestTransactionService_Create_CreditLimit(t *testing.T) {
	pharmacyID := newTestPharmacyID()

	t.Run("charge over the limit is rejected", func(t *testing.T) {
		f := newTransactionServiceFixture()
		c := createTestClient(t, pharmacyID, "100")
		f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)

		_, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
			ClientID: c.ID, Type: "invoice", Amount: dec("150"),
		})

		assert.ErrorIs(t, err, shared.ErrCreditLimitExceeded)
		assert.True(t, c.Balance.Current().IsZero())
		f.txRepo.AssertNotCalled(t, "NextSequence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.txRepo.AssertNotCalled(t, "CreateWithClient", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cash only client with override", func(t *testing.T) {
		f := newTransactionServiceFixture()
		c := createTestClient(t, pharmacyID, "0")
		f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)
		f.txRepo.On("NextSequence", mock.Anything, pharmacyID, client.TransactionTypeDebitNote, testDay).Return(1, nil)
		f.txRepo.On("CreateWithClient", mock.Anything, mock.Anything, c).Return(nil)
		f.expectEvents(client.EventTypeClientCharged)

		result, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
			ClientID: c.ID, Type: "debit_note", Amount: dec("150"), AllowOverLimit: true,
		})

		require.NoError(t, err)
		assert.Equal(t, "DN-20250118-0001", result.Transaction.Number)
		assert.True(t, result.Balance.CreditExceeded)
	})
}

func TestTransactionService_Create_Rejections(t *testing.T) {
	pharmacyID := newTestPharmacyID()

	tests := []struct {
		name    string
		setup   func(c *client.Client)
		req     func(clientID uuid.UUID) CreateTransactionRequest
		wantErr error
	}{
		{
			name: "amount disagrees with items",
			req: func(id uuid.UUID) CreateTransactionRequest {
				return CreateTransactionRequest{ClientID: id, Type: "invoice", Amount: dec("100"),
					Items: []TransactionItemInput{{Name: "Aspirina", Quantity: 1, UnitPrice: decimal.RequireFromString("90")}}}
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "no amount and no items",
			req: func(id uuid.UUID) CreateTransactionRequest {
				return CreateTransactionRequest{ClientID: id, Type: "payment"}
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "discount wipes out the total",
			req: func(id uuid.UUID) CreateTransactionRequest {
				return CreateTransactionRequest{ClientID: id, Type: "invoice", Amount: dec("100"), DiscountAmount: dec("100")}
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "currency differs from the account",
			req: func(id uuid.UUID) CreateTransactionRequest {
				return CreateTransactionRequest{ClientID: id, Type: "invoice", Amount: dec("10"), Currency: "USD"}
			},
			wantErr: shared.ErrCurrencyMismatch,
		},
		{
			name: "due date before the transaction date",
			req: func(id uuid.UUID) CreateTransactionRequest {
				due := testDay.AddDate(0, 0, -1)
				return CreateTransactionRequest{ClientID: id, Type: "invoice", Amount: dec("10"), DueDate: &due}
			},
			wantErr: shared.ErrValidation,
		},
		{
			name:  "suspended client cannot be charged",
			setup: func(c *client.Client) { _ = c.Suspend("") },
			req: func(id uuid.UUID) CreateTransactionRequest {
				return CreateTransactionRequest{ClientID: id, Type: "invoice", Amount: dec("10")}
			},
			wantErr: shared.ErrClientNotActive,
		},
		{
			name:  "closed client cannot pay",
			setup: func(c *client.Client) { _ = c.Close("") },
			req: func(id uuid.UUID) CreateTransactionRequest {
				return CreateTransactionRequest{ClientID: id, Type: "payment", Amount: dec("10")}
			},
			wantErr: shared.ErrClientClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransactionServiceFixture()
			c := createTestClient(t, pharmacyID, "1000")
			if tt.setup != nil {
				tt.setup(c)
			}
			f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)

			_, err := f.service.Create(context.Background(), pharmacyID, tt.req(c.ID))

			assert.ErrorIs(t, err, tt.wantErr)
			f.txRepo.AssertNotCalled(t, "CreateWithClient", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTransactionService_Create_SuspendedClientCanPay(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()
	c := createTestClient(t, pharmacyID, "1000")
	newPendingInvoice(t, c, "100")
	require.NoError(t, c.Suspend("late"))
	c.ClearDomainEvents()

	f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)
	f.txRepo.On("NextSequence", mock.Anything, pharmacyID, client.TransactionTypeCreditNote, testDay).Return(1, nil)
	f.txRepo.On("CreateWithClient", mock.Anything, mock.Anything, c).Return(nil)
	f.expectEvents(client.EventTypeClientPaymentRecorded)

	result, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
		ClientID: c.ID, Type: "credit_note", Amount: dec("130"),
	})

	require.NoError(t, err)
	assert.Equal(t, "-30.00", result.Balance.Current.StringFixed())
	assert.Equal(t, "30.00", result.Balance.CreditInFavor.StringFixed())
}

func TestTransactionService_Create_RetriesOnConflict(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()
	stored := createTestClient(t, pharmacyID, "1000")
	first, second := cloneClient(stored), cloneClient(stored)

	f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, stored.ID).Return(first, nil).Once()
	f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, stored.ID).Return(second, nil).Once()
	f.txRepo.On("NextSequence", mock.Anything, pharmacyID, client.TransactionTypeInvoice, testDay).Return(1, nil).Once()
	f.txRepo.On("NextSequence", mock.Anything, pharmacyID, client.TransactionTypeInvoice, testDay).Return(2, nil).Once()
	f.txRepo.On("CreateWithClient", mock.Anything, mock.Anything, first).Return(shared.ErrConcurrencyConflict).Once()
	f.txRepo.On("CreateWithClient", mock.Anything, mock.Anything, second).Return(nil).Once()
	f.expectEvents(client.EventTypeClientCharged)

	result, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
		ClientID: stored.ID, Type: "invoice", Amount: dec("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, "INV-20250118-0002", result.Transaction.Number)
	assert.Equal(t, "100.00", result.Balance.Current.StringFixed())
	f.txRepo.AssertNumberOfCalls(t, "CreateWithClient", 2)
	f.publisher.AssertExpectations(t)
}

func TestTransactionService_Create_IdempotencyKey(t *testing.T) {
	pharmacyID := newTestPharmacyID()
	scopedKey := pharmacyID.String() + ":order-42"

	t.Run("replayed key is rejected", func(t *testing.T) {
		f := newTransactionServiceFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		store.On("MarkProcessed", mock.Anything, scopedKey, 24*time.Hour).Return(false, nil)

		_, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
			ClientID: uuid.New(), Type: "payment", Amount: dec("10"), IdempotencyKey: "order-42",
		})

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		f.clientRepo.AssertNotCalled(t, "FindByIDForPharmacy", mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("failed request releases the key", func(t *testing.T) {
		f := newTransactionServiceFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		clientID := uuid.New()
		store.On("MarkProcessed", mock.Anything, scopedKey, 24*time.Hour).Return(true, nil)
		store.On("Release", mock.Anything, scopedKey).Return(nil)
		f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, clientID).Return(nil, shared.ErrNotFound)

		_, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
			ClientID: clientID, Type: "payment", Amount: dec("10"), IdempotencyKey: "order-42",
		})

		assert.ErrorIs(t, err, shared.ErrNotFound)
		store.AssertExpectations(t)
	})

	t.Run("store failure aborts the request", func(t *testing.T) {
		f := newTransactionServiceFixture()
		store := new(MockIdempotencyStore)
		f.service.SetIdempotencyStore(store)
		store.On("MarkProcessed", mock.Anything, scopedKey, 24*time.Hour).Return(false, errors.New("redis down"))

		_, err := f.service.Create(context.Background(), pharmacyID, CreateTransactionRequest{
			ClientID: uuid.New(), Type: "payment", Amount: dec("10"), IdempotencyKey: "order-42",
		})

		assert.ErrorContains(t, err, "redis down")
	})
}

// =============================================================================
// Settlement
// =============================================================================

func TestTransactionService_MarkPaid(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()
	c := createTestClient(t, pharmacyID, "1000")
	tx := newPendingInvoice(t, c, "300")

	f.txRepo.On("FindByID", mock.Anything, pharmacyID, tx.ID).Return(tx, nil)
	f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)
	f.txRepo.On("UpdateWithClient", mock.Anything, tx, c).Return(nil)
	f.expectEvents(client.EventTypeClientPaymentRecorded)

	result, err := f.service.MarkPaid(context.Background(), pharmacyID, tx.ID, MarkPaidRequest{PaymentMethod: "transfer"})

	require.NoError(t, err)
	assert.Equal(t, "completed", result.Transaction.PaymentStatus)
	assert.Equal(t, "transfer", result.Transaction.PaymentMethod)
	require.NotNil(t, result.Transaction.PaidAt)
	assert.Equal(t, testNow, *result.Transaction.PaidAt)
	assert.True(t, result.Balance.Current.IsZero())
	f.publisher.AssertExpectations(t)
}

func TestTransactionService_MarkPaid_AlreadySettled(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()
	c := createTestClient(t, pharmacyID, "1000")
	tx := newPendingInvoice(t, c, "300")
	require.NoError(t, tx.MarkPaid(client.PaymentMethodCash, testNow))

	f.txRepo.On("FindByID", mock.Anything, pharmacyID, tx.ID).Return(tx, nil)
	f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)

	_, err := f.service.MarkPaid(context.Background(), pharmacyID, tx.ID, MarkPaidRequest{PaymentMethod: "cash"})

	assert.ErrorIs(t, err, shared.ErrInvalidStatusTransition)
	assert.Equal(t, "300.00", c.Balance.Current().StringFixed())
	f.txRepo.AssertNotCalled(t, "UpdateWithClient", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransactionService_Cancel(t *testing.T) {
	pharmacyID := newTestPharmacyID()

	t.Run("pending invoice reverses the charge", func(t *testing.T) {
		f := newTransactionServiceFixture()
		c := createTestClient(t, pharmacyID, "1000")
		tx := newPendingInvoice(t, c, "300")
		operator := uuid.New()

		f.txRepo.On("FindByID", mock.Anything, pharmacyID, tx.ID).Return(tx, nil)
		f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)
		f.txRepo.On("UpdateWithClient", mock.Anything, tx, c).Return(nil)
		f.expectEvents(client.EventTypeClientPaymentRecorded)

		result, err := f.service.Cancel(context.Background(), pharmacyID, tx.ID, CancelTransactionRequest{
			Reason: "wrong client", CancelledBy: &operator,
		})

		require.NoError(t, err)
		assert.Equal(t, "cancelled", result.Transaction.PaymentStatus)
		assert.Equal(t, "Cancelled: wrong client", result.Transaction.Description)
		assert.Equal(t, &operator, tx.CancelledBy)
		assert.True(t, result.Balance.Current.IsZero())
	})

	t.Run("payments cannot be cancelled", func(t *testing.T) {
		f := newTransactionServiceFixture()
		c := createTestClient(t, pharmacyID, "1000")
		payment, err := client.NewTransaction(pharmacyID, c.ID, client.TransactionTypePayment,
			client.TransactionAmounts{Amount: ars("50"), Tax: ars("0"), Discount: ars("0")}, testDay)
		require.NoError(t, err)

		f.txRepo.On("FindByID", mock.Anything, pharmacyID, payment.ID).Return(payment, nil)
		f.clientRepo.On("FindByIDForPharmacy", mock.Anything, pharmacyID, c.ID).Return(c, nil)

		_, err = f.service.Cancel(context.Background(), pharmacyID, payment.ID, CancelTransactionRequest{})

		assert.ErrorIs(t, err, shared.ErrInvalidStatusTransition)
		f.txRepo.AssertNotCalled(t, "UpdateWithClient", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newTransactionServiceFixture()
		id := uuid.New()
		f.txRepo.On("FindByID", mock.Anything, pharmacyID, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.Cancel(context.Background(), pharmacyID, id, CancelTransactionRequest{})

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// =============================================================================
// Queries
// =============================================================================

func TestTransactionService_List(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()
	clientID := uuid.New()

	f.txRepo.On("List", mock.Anything, pharmacyID, mock.MatchedBy(func(filter client.TransactionFilter) bool {
		return filter.ClientID != nil && *filter.ClientID == clientID &&
			filter.Type != nil && *filter.Type == client.TransactionTypeInvoice &&
			filter.PaymentStatus != nil && *filter.PaymentStatus == client.PaymentStatusPending &&
			filter.Page == 1 && filter.PageSize == 20
	})).Return([]*client.Transaction{}, int64(0), nil)

	page, err := f.service.ListPending(context.Background(), pharmacyID, TransactionListFilter{
		ClientID: &clientID,
		Type:     "invoice",
	})

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	f.txRepo.AssertExpectations(t)

	t.Run("inverted date range", func(t *testing.T) {
		from, to := testDay, testDay.AddDate(0, 0, -1)
		_, err := f.service.List(context.Background(), pharmacyID, TransactionListFilter{DateFrom: &from, DateTo: &to})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestTransactionService_GetByNumber(t *testing.T) {
	f := newTransactionServiceFixture()
	pharmacyID := newTestPharmacyID()

	_, err := f.service.GetByNumber(context.Background(), pharmacyID, "INV-2025-1")
	assert.ErrorIs(t, err, shared.ErrValidation)
	f.txRepo.AssertNotCalled(t, "FindByNumber", mock.Anything, mock.Anything, mock.Anything)

	f.txRepo.On("FindByNumber", mock.Anything, pharmacyID, "PAY-20250118-0003").Return(nil, shared.ErrNotFound)
	_, err = f.service.GetByNumber(context.Background(), pharmacyID, "PAY-20250118-0003")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
