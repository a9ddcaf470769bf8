package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/shared"
)

// ClientRepository persists clients. Every lookup is scoped to a pharmacy.
// Writes stamp UpdatedAt on the saved client.
type ClientRepository interface {
	// FindByIDForPharmacy returns shared.ErrNotFound if the client does not exist in the pharmacy
	FindByIDForPharmacy(ctx context.Context, pharmacyID, id uuid.UUID) (*Client, error)

	// FindByPhone looks a client up by normalized phone number
	FindByPhone(ctx context.Context, pharmacyID uuid.UUID, phone string) (*Client, error)

	// FindAllForPharmacy lists clients. Filter keys: "status", "tag", "owes_money".
	FindAllForPharmacy(ctx context.Context, pharmacyID uuid.UUID, filter shared.Filter) ([]Client, error)

	CountForPharmacy(ctx context.Context, pharmacyID uuid.UUID, filter shared.Filter) (int64, error)

	ExistsByPhone(ctx context.Context, pharmacyID uuid.UUID, phone string) (bool, error)

	// Save inserts or overwrites a client
	Save(ctx context.Context, client *Client) error

	// SaveWithLock updates a client only if the stored version still equals
	// PersistedVersion. Returns a CONCURRENCY_CONFLICT error otherwise.
	SaveWithLock(ctx context.Context, client *Client) error

	DeleteForPharmacy(ctx context.Context, pharmacyID, id uuid.UUID) error
}

// TransactionFilter contains filter options for listing transactions
type TransactionFilter struct {
	ClientID      *uuid.UUID
	Type          *TransactionType
	PaymentStatus *PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	PageSize      int
}

// TransactionRepository persists ledger entries
type TransactionRepository interface {
	// CreateWithClient stores a new transaction and the client it changed in one
	// database transaction. The client is saved with optimistic locking.
	CreateWithClient(ctx context.Context, tx *Transaction, client *Client) error

	// UpdateWithClient stores changes to an existing transaction and, when client
	// is not nil, the client it changed, in one database transaction.
	UpdateWithClient(ctx context.Context, tx *Transaction, client *Client) error

	// AttachInvoicePDF records the storage key of a rendered document. Only the
	// document columns are written; settlement state is left as stored.
	AttachInvoicePDF(ctx context.Context, pharmacyID, id uuid.UUID, key string) error

	// AttachPaymentLink records the gateway checkout created for a charge,
	// leaving settlement state as stored.
	AttachPaymentLink(ctx context.Context, pharmacyID, id uuid.UUID, preferenceID, link string) error

	FindByID(ctx context.Context, pharmacyID, id uuid.UUID) (*Transaction, error)

	FindByNumber(ctx context.Context, pharmacyID uuid.UUID, number string) (*Transaction, error)

	List(ctx context.Context, pharmacyID uuid.UUID, filter TransactionFilter) ([]*Transaction, int64, error)

	// NextSequence allocates the next document sequence for pharmacy, type and day.
	// A sequence allocated by a request that later fails is not reused.
	NextSequence(ctx context.Context, pharmacyID uuid.UUID, txType TransactionType, date time.Time) (int, error)
}
