package persistence

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 1, 18, 10, 0, 0, 0, time.UTC)

// postCharge records a charge on c and builds the numbered invoice for it
func postCharge(t *testing.T, txRepo *GormTransactionRepository, c *client.Client, amount string, date time.Time) *client.Transaction {
	t.Helper()
	ctx := context.Background()
	tx, err := client.NewTransaction(c.PharmacyID, c.ID, client.TransactionTypeInvoice,
		client.TransactionAmounts{Amount: ars(amount), Tax: ars("0"), Discount: ars("0")}, date)
	require.NoError(t, err)
	item, err := client.NewTransactionItem("Ibuprofeno 400mg", 1, ars(amount))
	require.NoError(t, err)
	require.NoError(t, tx.AddItem(item))

	seq, err := txRepo.NextSequence(ctx, c.PharmacyID, tx.Type, tx.TransactionDate)
	require.NoError(t, err)
	number, err := client.GenerateTransactionNumber(tx.Type, seq, tx.TransactionDate)
	require.NoError(t, err)
	require.NoError(t, tx.AssignNumber(number))

	require.NoError(t, c.RecordCharge(tx.TotalAmount, false))
	tx.RecordBalanceAfter(c.Balance.Current())
	require.NoError(t, txRepo.CreateWithClient(ctx, tx, c))
	return tx
}

func TestGormTransactionRepository_NextSequence(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormTransactionRepository(db)
	ctx := context.Background()
	pharmacyID := uuid.New()

	for want := 1; want <= 3; want++ {
		got, err := repo.NextSequence(ctx, pharmacyID, client.TransactionTypeInvoice, testDay)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	t.Run("sequences are independent per type, day and pharmacy", func(t *testing.T) {
		got, err := repo.NextSequence(ctx, pharmacyID, client.TransactionTypePayment, testDay)
		require.NoError(t, err)
		assert.Equal(t, 1, got)

		got, err = repo.NextSequence(ctx, pharmacyID, client.TransactionTypeInvoice, testDay.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 1, got)

		got, err = repo.NextSequence(ctx, uuid.New(), client.TransactionTypeInvoice, testDay)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("time of day does not start a new sequence", func(t *testing.T) {
		got, err := repo.NextSequence(ctx, pharmacyID, client.TransactionTypeInvoice, testDay.Add(13*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 4, got)
	})

	t.Run("concurrent allocations are unique", func(t *testing.T) {
		otherPharmacy := uuid.New()
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = map[int]bool{}
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := repo.NextSequence(ctx, otherPharmacy, client.TransactionTypeCreditNote, testDay)
				assert.NoError(t, err)
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, seen, 10)
	})
}

func TestGormTransactionRepository_CreateAndFind(t *testing.T) {
	db := setupBillingTestDB(t)
	clientRepo := NewGormClientRepository(db)
	txRepo := NewGormTransactionRepository(db)
	ctx := context.Background()
	pharmacyID := uuid.New()

	c := newStoredClient(t, clientRepo, pharmacyID, "+54 9 11 1234 5678", "5000")
	tx := postCharge(t, txRepo, c, "300", testDay)
	assert.Equal(t, c.Version, c.PersistedVersion())

	t.Run("client and transaction are both stored", func(t *testing.T) {
		stored, err := clientRepo.FindByIDForPharmacy(ctx, pharmacyID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "300.00", stored.Balance.Current().StringFixed())

		found, err := txRepo.FindByID(ctx, pharmacyID, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV-20250118-0001", found.Number)
		assert.Equal(t, client.TransactionTypeInvoice, found.Type)
		assert.Equal(t, client.PaymentStatusPending, found.PaymentStatus)
		assert.Equal(t, "300.00", found.TotalAmount.StringFixed())
		assert.Equal(t, "300.00", found.BalanceAfter.StringFixed())
		require.Len(t, found.Items, 1)
		assert.Equal(t, "Ibuprofeno 400mg", found.Items[0].Name)
		assert.Equal(t, "300.00", found.Items[0].Total.StringFixed())
	})

	t.Run("finds by number", func(t *testing.T) {
		found, err := txRepo.FindByNumber(ctx, pharmacyID, "INV-20250118-0001")
		require.NoError(t, err)
		assert.Equal(t, tx.ID, found.ID)

		_, err = txRepo.FindByNumber(ctx, uuid.New(), "INV-20250118-0001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("stale client rolls the whole write back", func(t *testing.T) {
		stale, err := clientRepo.FindByIDForPharmacy(ctx, pharmacyID, c.ID)
		require.NoError(t, err)
		postCharge(t, txRepo, c, "100", testDay)

		next, err := client.NewTransaction(pharmacyID, c.ID, client.TransactionTypeInvoice,
			client.TransactionAmounts{Amount: ars("50"), Tax: ars("0"), Discount: ars("0")}, testDay)
		require.NoError(t, err)
		require.NoError(t, stale.RecordCharge(next.TotalAmount, false))

		err = txRepo.CreateWithClient(ctx, next, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		_, err = txRepo.FindByID(ctx, pharmacyID, next.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		stored, err := clientRepo.FindByIDForPharmacy(ctx, pharmacyID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "400.00", stored.Balance.Current().StringFixed())
	})
}

func TestGormTransactionRepository_UpdateWithClient(t *testing.T) {
	db := setupBillingTestDB(t)
	clientRepo := NewGormClientRepository(db)
	txRepo := NewGormTransactionRepository(db)
	ctx := context.Background()
	pharmacyID := uuid.New()

	c := newStoredClient(t, clientRepo, pharmacyID, "+54 9 11 1234 5678", "5000")
	tx := postCharge(t, txRepo, c, "300", testDay)

	require.NoError(t, tx.Cancel(nil, testDay))
	require.NoError(t, c.RecordPayment(tx.TotalAmount))
	require.NoError(t, txRepo.UpdateWithClient(ctx, tx, c))

	found, err := txRepo.FindByID(ctx, pharmacyID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, client.PaymentStatusCancelled, found.PaymentStatus)
	assert.NotNil(t, found.CancelledAt)

	stored, err := clientRepo.FindByIDForPharmacy(ctx, pharmacyID, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Current().IsZero())

	t.Run("unknown transaction", func(t *testing.T) {
		ghost := *found
		ghost.ID = uuid.New()
		assert.ErrorIs(t, txRepo.UpdateWithClient(ctx, &ghost, nil), shared.ErrNotFound)
	})
}

func TestGormTransactionRepository_AttachInvoicePDF(t *testing.T) {
	db := setupBillingTestDB(t)
	clientRepo := NewGormClientRepository(db)
	txRepo := NewGormTransactionRepository(db)
	ctx := context.Background()
	pharmacyID := uuid.New()

	c := newStoredClient(t, clientRepo, pharmacyID, "+54 9 11 1234 5678", "5000")
	tx := postCharge(t, txRepo, c, "1000", testDay)

	// a copy loaded before the invoice was paid
	stale, err := txRepo.FindByID(ctx, pharmacyID, tx.ID)
	require.NoError(t, err)

	require.NoError(t, tx.MarkPaid(client.PaymentMethodCash, testDay))
	require.NoError(t, c.RecordPayment(tx.TotalAmount))
	require.NoError(t, txRepo.UpdateWithClient(ctx, tx, c))

	require.NoError(t, stale.AttachInvoicePDF("invoices/x.pdf"))
	require.NoError(t, txRepo.AttachInvoicePDF(ctx, pharmacyID, stale.ID, stale.InvoicePDFPath))

	found, err := txRepo.FindByID(ctx, pharmacyID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoices/x.pdf", found.InvoicePDFPath)
	assert.Equal(t, client.PaymentStatusCompleted, found.PaymentStatus)
	assert.Equal(t, client.PaymentMethodCash, found.PaymentMethod)
	assert.NotNil(t, found.PaidAt)

	t.Run("other pharmacy", func(t *testing.T) {
		err := txRepo.AttachInvoicePDF(ctx, uuid.New(), tx.ID, "invoices/y.pdf")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTransactionRepository_PaymentLinkAndGatewayPayment(t *testing.T) {
	db := setupBillingTestDB(t)
	clientRepo := NewGormClientRepository(db)
	txRepo := NewGormTransactionRepository(db)
	ctx := context.Background()
	pharmacyID := uuid.New()

	c := newStoredClient(t, clientRepo, pharmacyID, "+54 9 11 1234 5678", "5000")
	tx := postCharge(t, txRepo, c, "800", testDay)

	stale, err := txRepo.FindByID(ctx, pharmacyID, tx.ID)
	require.NoError(t, err)

	require.NoError(t, tx.MarkPaid(client.PaymentMethodMercadoPago, testDay))
	tx.RecordGatewayPayment("987654321")
	require.NoError(t, c.RecordPayment(tx.TotalAmount))
	require.NoError(t, txRepo.UpdateWithClient(ctx, tx, c))

	require.NoError(t, txRepo.AttachPaymentLink(ctx, pharmacyID, stale.ID, "pref-1", "https://mp.test/pref-1"))

	found, err := txRepo.FindByID(ctx, pharmacyID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "pref-1", found.GatewayPreferenceID)
	assert.Equal(t, "https://mp.test/pref-1", found.PaymentLink)
	assert.Equal(t, "987654321", found.GatewayPaymentID)
	assert.Equal(t, client.PaymentStatusCompleted, found.PaymentStatus)

	t.Run("other pharmacy", func(t *testing.T) {
		err := txRepo.AttachPaymentLink(ctx, uuid.New(), tx.ID, "pref-2", "https://mp.test/pref-2")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTransactionRepository_List(t *testing.T) {
	db := setupBillingTestDB(t)
	clientRepo := NewGormClientRepository(db)
	txRepo := NewGormTransactionRepository(db)
	ctx := context.Background()
	pharmacyID := uuid.New()

	ana := newStoredClient(t, clientRepo, pharmacyID, "+54 9 11 1111 1111", "5000")
	luis := newStoredClient(t, clientRepo, pharmacyID, "+54 9 11 2222 2222", "5000")
	postCharge(t, txRepo, ana, "100", testDay)
	postCharge(t, txRepo, ana, "200", testDay.AddDate(0, 0, 1))
	paid := postCharge(t, txRepo, luis, "300", testDay.AddDate(0, 0, 2))
	require.NoError(t, paid.MarkPaid(client.PaymentMethodCash, testDay))
	require.NoError(t, txRepo.UpdateWithClient(ctx, paid, nil))

	pending := client.PaymentStatusPending
	invoice := client.TransactionTypeInvoice
	from := time.Date(2025, 1, 19, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    client.TransactionFilter
		wantTotal int64
	}{
		{"all", client.TransactionFilter{}, 3},
		{"by client", client.TransactionFilter{ClientID: &ana.ID}, 2},
		{"by type", client.TransactionFilter{Type: &invoice}, 3},
		{"pending only", client.TransactionFilter{PaymentStatus: &pending}, 2},
		{"from date", client.TransactionFilter{DateFrom: &from}, 2},
		{"second page", client.TransactionFilter{Page: 2, PageSize: 2}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, total, err := txRepo.List(ctx, pharmacyID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			if tt.filter.Page == 2 {
				require.Len(t, txs, 1)
				assert.Equal(t, "INV-20250118-0001", txs[0].Number)
				return
			}
			assert.Len(t, txs, int(tt.wantTotal))
		})
	}

	t.Run("newest first", func(t *testing.T) {
		txs, _, err := txRepo.List(ctx, pharmacyID, client.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, paid.ID, txs[0].ID)
	})
}

func TestGormTransactionRepository_NextSequence_SQL(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormTransactionRepository(gormDB)
	pharmacyID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transaction_sequences`) + `.*ON CONFLICT \(pharmacy_id, type, seq_date\).*RETURNING last_value`).
		WithArgs(pharmacyID, "payment", time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(7))

	got, err := repo.NextSequence(context.Background(), pharmacyID, client.TransactionTypePayment,
		time.Date(2025, 1, 18, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
