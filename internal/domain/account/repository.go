package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Update(ctx context.Context, acc *Account) error

	// ListEnabledSyncable returns the enabled, non-manual accounts under a connection.
	ListEnabledSyncable(ctx context.Context, connectionID uuid.UUID) ([]*Account, error)

	// UpdateBalance sets the account balance directly, as observed from the provider.
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error

	// SetErrorRetries persists the provider failure counter; nil clears it.
	SetErrorRetries(ctx context.Context, id uuid.UUID, retries *int) error

	// LockForUpdate acquires a row lock on the account so snapshot
	// recalculation is serialized per account.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// ListOffsets returns the account's manual balance offsets ordered by
	// effective time ascending.
	ListOffsets(ctx context.Context, accountID uuid.UUID) ([]*BalanceOffset, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}
