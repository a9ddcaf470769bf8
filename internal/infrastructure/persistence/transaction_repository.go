package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/client"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const (
	defaultTransactionPageSize = 20
	maxTransactionPageSize     = 100
)

// nextSequenceSQL allocates a sequence value in a single statement, so two
// concurrent allocations for the same day never get the same value.
const nextSequenceSQL = `INSERT INTO transaction_sequences (pharmacy_id, type, seq_date, last_value)
VALUES (?, ?, ?, 1)
ON CONFLICT (pharmacy_id, type, seq_date)
DO UPDATE SET last_value = transaction_sequences.last_value + 1
RETURNING last_value`

// GormTransactionRepository implements client.TransactionRepository using GORM
type GormTransactionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db, now: time.Now}
}

// CreateWithClient inserts tx and saves the client it changed with optimistic
// locking, in one database transaction
func (r *GormTransactionRepository) CreateWithClient(ctx context.Context, tx *client.Transaction, c *client.Client) error {
	at := r.now()
	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if err := saveClientWithLock(dbtx, c, at); err != nil {
			return err
		}
		tx.Touch(at)
		if err := dbtx.Create(models.TransactionModelFromDomain(tx)).Error; err != nil {
			return translateWriteError(err, "transaction")
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.MarkPersisted()
	return nil
}

// UpdateWithClient stores changes to tx and, if c is not nil, the client
func (r *GormTransactionRepository) UpdateWithClient(ctx context.Context, tx *client.Transaction, c *client.Client) error {
	at := r.now()
	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if c != nil {
			if err := saveClientWithLock(dbtx, c, at); err != nil {
				return err
			}
		}
		return updateTransaction(dbtx, tx, at)
	})
	if err != nil {
		return err
	}
	if c != nil {
		c.MarkPersisted()
	}
	return nil
}

// AttachInvoicePDF sets the document key without rewriting settlement columns
func (r *GormTransactionRepository) AttachInvoicePDF(ctx context.Context, pharmacyID, id uuid.UUID, key string) error {
	return r.updateColumns(ctx, pharmacyID, id, map[string]any{
		"invoice_pdf_path": key,
	})
}

// AttachPaymentLink stores a checkout reference without rewriting settlement columns
func (r *GormTransactionRepository) AttachPaymentLink(ctx context.Context, pharmacyID, id uuid.UUID, preferenceID, link string) error {
	return r.updateColumns(ctx, pharmacyID, id, map[string]any{
		"gateway_preference_id": preferenceID,
		"payment_link":          link,
	})
}

func (r *GormTransactionRepository) updateColumns(ctx context.Context, pharmacyID, id uuid.UUID, columns map[string]any) error {
	columns["updated_at"] = r.now()
	result := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("pharmacy_id = ? AND id = ?", pharmacyID, id).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// updateTransaction writes the settlement columns; amounts are never rewritten
func updateTransaction(db *gorm.DB, tx *client.Transaction, at time.Time) error {
	tx.Touch(at)
	result := db.Model(&models.TransactionModel{}).
		Where("pharmacy_id = ? AND id = ?", tx.PharmacyID, tx.ID).
		Updates(map[string]any{
			"payment_method":     string(tx.PaymentMethod),
			"payment_status":     string(tx.PaymentStatus),
			"description":        tx.Description,
			"paid_at":            tx.PaidAt,
			"cancelled_at":       tx.CancelledAt,
			"cancelled_by":       tx.CancelledBy,
			"gateway_payment_id": tx.GatewayPaymentID,
			"updated_at":         tx.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a transaction by ID within a pharmacy
func (r *GormTransactionRepository) FindByID(ctx context.Context, pharmacyID, id uuid.UUID) (*client.Transaction, error) {
	return r.findOne(ctx, "pharmacy_id = ? AND id = ?", pharmacyID, id)
}

// FindByNumber finds a transaction by document number within a pharmacy
func (r *GormTransactionRepository) FindByNumber(ctx context.Context, pharmacyID uuid.UUID, number string) (*client.Transaction, error) {
	return r.findOne(ctx, "pharmacy_id = ? AND number = ?", pharmacyID, number)
}

func (r *GormTransactionRepository) findOne(ctx context.Context, where string, args ...any) (*client.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).Where(where, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// List returns one page of transactions, newest first, and the total count
func (r *GormTransactionRepository) List(ctx context.Context, pharmacyID uuid.UUID, filter client.TransactionFilter) ([]*client.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TransactionModel{}).Where("pharmacy_id = ?", pharmacyID)

	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", string(*filter.PaymentStatus))
	}
	if filter.DateFrom != nil {
		query = query.Where("transaction_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("transaction_date <= ?", *filter.DateTo)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var txModels []models.TransactionModel
	if err := query.
		Order("transaction_date DESC, created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txModels).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]*client.Transaction, 0, len(txModels))
	for i := range txModels {
		t, err := txModels[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		txs = append(txs, t)
	}
	return txs, total, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultTransactionPageSize
	}
	if pageSize > maxTransactionPageSize {
		pageSize = maxTransactionPageSize
	}
	return page, pageSize
}

// NextSequence allocates the next document sequence for a pharmacy, type and day
func (r *GormTransactionRepository) NextSequence(ctx context.Context, pharmacyID uuid.UUID, txType client.TransactionType, date time.Time) (int, error) {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var next int
	if err := r.db.WithContext(ctx).
		Raw(nextSequenceSQL, pharmacyID, string(txType), day).
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ client.TransactionRepository = (*GormTransactionRepository)(nil)
