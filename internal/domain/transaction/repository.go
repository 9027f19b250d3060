package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction persistence operations
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
	DeleteTransferGroup(ctx context.Context, organizationID, groupID uuid.UUID) ([]*Transaction, error)

	// ListByAccount returns every transaction of the account ordered by date ascending.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error)

	// EarliestDate returns the date of the account's oldest transaction,
	// or ok=false when the account has none.
	EarliestDate(ctx context.Context, accountID uuid.UUID) (time.Time, bool, error)

	// FingerprintExists reports whether a fingerprint is already taken within
	// the organization, optionally excluding one transaction id.
	FingerprintExists(ctx context.Context, organizationID uuid.UUID, fingerprint string, excludeID *uuid.UUID) (bool, error)

	// ListFingerprintsByAccount returns the set of fingerprints already present
	// on the account, used by the import pipeline for deduplication.
	ListFingerprintsByAccount(ctx context.Context, accountID uuid.UUID) (map[string]struct{}, error)

	// UpsertBatch inserts synced transactions idempotently with conflict target
	// (organization_id, raw_id), updating only volatile fields on conflict.
	UpsertBatch(ctx context.Context, txns []*Transaction) error

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing or foreign-organization transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// ErrFingerprintConflict indicates the fingerprint uniqueness rule was violated:
// another transaction with the same (account, amount, date, description) exists.
type ErrFingerprintConflict struct {
	Fingerprint string
}

func (e ErrFingerprintConflict) Error() string {
	return "TRANSACTION_FINGERPRINT_CONFLICT: duplicate fingerprint " + e.Fingerprint
}

// ErrTransferGroupMember rejects deleting a single leg of a multi-leg transfer
type ErrTransferGroupMember struct {
	TransactionID uuid.UUID
	GroupID       uuid.UUID
}

func (e ErrTransferGroupMember) Error() string {
	return "transaction " + e.TransactionID.String() + " belongs to transfer group " + e.GroupID.String() + ", delete the whole group"
}
