package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
)

const transactionColumns = `id, organization_id, account_id, amount, currency, date, name,
		description, note, status, fingerprint, raw_id, recurring, source, transfer_group_id,
		created_at, updated_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx rebinds the repository to a transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.OrganizationID,
		&txn.AccountID,
		&txn.Amount,
		&txn.Currency,
		&txn.Date,
		&txn.Name,
		&txn.Description,
		&txn.Note,
		&txn.Status,
		&txn.Fingerprint,
		&txn.RawID,
		&txn.Recurring,
		&txn.Source,
		&txn.TransferGroupID,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Create stores a new transaction
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.OrganizationID,
		txn.AccountID,
		txn.Amount,
		txn.Currency,
		txn.Date,
		txn.Name,
		txn.Description,
		txn.Note,
		txn.Status,
		txn.Fingerprint,
		txn.RawID,
		txn.Recurring,
		txn.Source,
		txn.TransferGroupID,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction scoped to its organization
func (r *TransactionRepository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND organization_id = $2
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// Update persists the mutable transaction fields
func (r *TransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $1, currency = $2, date = $3, name = $4, description = $5, note = $6,
			status = $7, fingerprint = $8, recurring = $9, updated_at = NOW()
		WHERE id = $10 AND organization_id = $11
	`

	result, err := r.querier.Exec(ctx, query,
		txn.Amount,
		txn.Currency,
		txn.Date,
		txn.Name,
		txn.Description,
		txn.Note,
		txn.Status,
		txn.Fingerprint,
		txn.Recurring,
		txn.ID,
		txn.OrganizationID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: txn.ID}
	}

	return nil
}

// Delete removes a single transaction scoped to its organization
func (r *TransactionRepository) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// DeleteTransferGroup removes every leg of a transfer group and returns the
// deleted rows so the caller can recalculate from their earliest date.
func (r *TransactionRepository) DeleteTransferGroup(ctx context.Context, organizationID, groupID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `
		DELETE FROM transactions
		WHERE transfer_group_id = $1 AND organization_id = $2
		RETURNING ` + transactionColumns + `
	`

	rows, err := r.querier.Query(ctx, query, groupID, organizationID)
	if err != nil {
		r.logger.Error("Failed to delete transfer group", "group_id", groupID.String(), "error", err)
		return nil, fmt.Errorf("failed to delete transfer group: %w", err)
	}
	defer rows.Close()

	var deleted []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deleted transaction: %w", err)
		}
		deleted = append(deleted, txn)
	}

	return deleted, rows.Err()
}

// ListByAccount returns every transaction of the account ordered by date
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY date, created_at
	`

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

// EarliestDate returns the date of the account's oldest transaction
func (r *TransactionRepository) EarliestDate(ctx context.Context, accountID uuid.UUID) (time.Time, bool, error) {
	var earliest *time.Time
	err := r.querier.QueryRow(ctx,
		`SELECT MIN(date) FROM transactions WHERE account_id = $1`, accountID).Scan(&earliest)
	if err != nil {
		r.logger.Error("Failed to get earliest transaction date", "account_id", accountID.String(), "error", err)
		return time.Time{}, false, fmt.Errorf("failed to get earliest transaction date: %w", err)
	}
	if earliest == nil {
		return time.Time{}, false, nil
	}

	return *earliest, true, nil
}

// FingerprintExists reports whether a fingerprint is already taken in the organization
func (r *TransactionRepository) FingerprintExists(ctx context.Context, organizationID uuid.UUID, fingerprint string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE organization_id = $1 AND fingerprint = $2 AND ($3::uuid IS NULL OR id <> $3)
		)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, organizationID, fingerprint, excludeID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check fingerprint", "organization_id", organizationID.String(), "error", err)
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}

	return exists, nil
}

// ListFingerprintsByAccount returns the set of fingerprints on the account
func (r *TransactionRepository) ListFingerprintsByAccount(ctx context.Context, accountID uuid.UUID) (map[string]struct{}, error) {
	rows, err := r.querier.Query(ctx,
		`SELECT fingerprint FROM transactions WHERE account_id = $1`, accountID)
	if err != nil {
		r.logger.Error("Failed to list fingerprints", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	defer rows.Close()

	fingerprints := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fingerprints[fp] = struct{}{}
	}

	return fingerprints, rows.Err()
}

// UpsertBatch inserts synced transactions idempotently. The conflict target
// is (organization_id, raw_id): a re-fetched transaction updates only its
// volatile fields and never duplicates the row.
func (r *TransactionRepository) UpsertBatch(ctx context.Context, txns []*transaction.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (organization_id, raw_id) WHERE raw_id IS NOT NULL
		DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			date = EXCLUDED.date,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			note = EXCLUDED.note,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, txn := range txns {
		batch.Queue(query,
			txn.ID,
			txn.OrganizationID,
			txn.AccountID,
			txn.Amount,
			txn.Currency,
			txn.Date,
			txn.Name,
			txn.Description,
			txn.Note,
			txn.Status,
			txn.Fingerprint,
			txn.RawID,
			txn.Recurring,
			txn.Source,
			txn.TransferGroupID,
			txn.CreatedAt,
			txn.UpdatedAt,
		)
	}

	results := r.querier.SendBatch(ctx, batch)
	defer results.Close()

	for range txns {
		if _, err := results.Exec(); err != nil {
			r.logger.Error("Failed to upsert transaction batch", "size", len(txns), "error", err)
			return fmt.Errorf("failed to upsert transaction batch: %w", err)
		}
	}

	return nil
}
