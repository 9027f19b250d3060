package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines snapshot persistence operations
type Repository interface {
	// UpsertBatch writes snapshots with conflict target (account_id, date),
	// overwriting closing balance and source on conflict.
	UpsertBatch(ctx context.Context, snapshots []*Snapshot) error

	// ListByAccount returns the account's snapshots within [from, to] ordered
	// by date ascending.
	ListByAccount(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*Snapshot, error)

	WithTx(tx pgx.Tx) Repository
}
