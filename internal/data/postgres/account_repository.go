// Package postgres provides PostgreSQL implementations of the domain
// repositories. Repositories can be rebound to a transaction with WithTx so
// mutations and their snapshot side effects commit atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
)

const accountColumns = `id, organization_id, connection_id, external_id, name, manual, currency,
		balance, opening_balance, t0, timezone, error_retries, enabled, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx rebinds the repository to a transaction
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.OrganizationID,
		&acc.ConnectionID,
		&acc.ExternalID,
		&acc.Name,
		&acc.Manual,
		&acc.Currency,
		&acc.Balance,
		&acc.OpeningBalance,
		&acc.T0,
		&acc.Timezone,
		&acc.ErrorRetries,
		&acc.Enabled,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// LockForUpdate obtains a row lock on the account and returns its current
// state. Snapshot recalculation runs under this lock so concurrent
// recalculations for the same account cannot interleave.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// Update persists the mutable account fields
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, balance = $2, opening_balance = $3, t0 = $4, timezone = $5,
			error_retries = $6, enabled = $7, updated_at = NOW()
		WHERE id = $8
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Name,
		acc.Balance,
		acc.OpeningBalance,
		acc.T0,
		acc.Timezone,
		acc.ErrorRetries,
		acc.Enabled,
		acc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: acc.ID}
	}

	return nil
}

// ListEnabledSyncable returns the enabled, non-manual accounts of a connection
func (r *AccountRepository) ListEnabledSyncable(ctx context.Context, connectionID uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE connection_id = $1 AND enabled = TRUE AND manual = FALSE
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, connectionID)
	if err != nil {
		r.logger.Error("Failed to list syncable accounts", "connection_id", connectionID.String(), "error", err)
		return nil, fmt.Errorf("failed to list syncable accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// UpdateBalance sets the balance observed at the provider
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, balance, id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}

// SetErrorRetries persists the provider failure counter; nil clears it
func (r *AccountRepository) SetErrorRetries(ctx context.Context, id uuid.UUID, retries *int) error {
	query := `
		UPDATE accounts
		SET error_retries = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, retries, id)
	if err != nil {
		r.logger.Error("Failed to set account error retries", "id", id.String(), "error", err)
		return fmt.Errorf("failed to set account error retries: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}

// ListOffsets returns the account's manual balance offsets ordered by effective time
func (r *AccountRepository) ListOffsets(ctx context.Context, accountID uuid.UUID) ([]*account.BalanceOffset, error) {
	query := `
		SELECT id, organization_id, account_id, amount, effective_at, note, created_at
		FROM balance_offsets
		WHERE account_id = $1
		ORDER BY effective_at
	`

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list balance offsets", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list balance offsets: %w", err)
	}
	defer rows.Close()

	var offsets []*account.BalanceOffset
	for rows.Next() {
		var o account.BalanceOffset
		if err := rows.Scan(&o.ID, &o.OrganizationID, &o.AccountID, &o.Amount, &o.EffectiveAt, &o.Note, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance offset row: %w", err)
		}
		offsets = append(offsets, &o)
	}

	return offsets, rows.Err()
}
