package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/matteobad/badget-sync/internal/domain/snapshot"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
)

// SnapshotRepository implements the snapshot.Repository interface for PostgreSQL
type SnapshotRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository
func NewSnapshotRepository(logger *slog.Logger, db *persistence.PostgresDB) snapshot.Repository {
	return &SnapshotRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx rebinds the repository to a transaction
func (r *SnapshotRepository) WithTx(tx pgx.Tx) snapshot.Repository {
	return &SnapshotRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// UpsertBatch writes snapshots with conflict target (account_id, date). The
// balance engine is the only writer, so a conflict is always a recomputation
// of the same day and simply overwrites closing balance and source.
func (r *SnapshotRepository) UpsertBatch(ctx context.Context, snapshots []*snapshot.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	query := `
		INSERT INTO balance_snapshots (organization_id, account_id, date, closing_balance, currency, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, date)
		DO UPDATE SET
			closing_balance = EXCLUDED.closing_balance,
			currency = EXCLUDED.currency,
			source = EXCLUDED.source
	`

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(query,
			snap.OrganizationID,
			snap.AccountID,
			snap.Date,
			snap.ClosingBalance,
			snap.Currency,
			snap.Source,
		)
	}

	results := r.querier.SendBatch(ctx, batch)
	defer results.Close()

	for range snapshots {
		if _, err := results.Exec(); err != nil {
			r.logger.Error("Failed to upsert snapshot batch", "size", len(snapshots), "error", err)
			return fmt.Errorf("failed to upsert snapshot batch: %w", err)
		}
	}

	return nil
}

// ListByAccount returns the account's snapshots within [from, to]
func (r *SnapshotRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*snapshot.Snapshot, error) {
	query := `
		SELECT organization_id, account_id, date, closing_balance, currency, source
		FROM balance_snapshots
		WHERE account_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`

	rows, err := r.querier.Query(ctx, query, accountID, from, to)
	if err != nil {
		r.logger.Error("Failed to list snapshots", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*snapshot.Snapshot
	for rows.Next() {
		var s snapshot.Snapshot
		if err := rows.Scan(&s.OrganizationID, &s.AccountID, &s.Date, &s.ClosingBalance, &s.Currency, &s.Source); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snaps = append(snaps, &s)
	}

	return snaps, rows.Err()
}
