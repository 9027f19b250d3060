// Package balance computes and repairs the daily closing-balance snapshot
// series of an account. The engine is the only writer of snapshots; callers
// trigger a recalculation and never touch snapshot rows themselves.
package balance

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/snapshot"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
)

// snapshotChunkSize bounds a single snapshot batch write
const snapshotChunkSize = 500

// Engine recalculates daily closing-balance snapshots for an account
type Engine struct {
	db           *persistence.PostgresDB
	accounts     account.Repository
	transactions transaction.Repository
	snapshots    snapshot.Repository
	logger       *slog.Logger
	now          func() time.Time // overridable in tests
}

func NewEngine(
	db *persistence.PostgresDB,
	accounts account.Repository,
	transactions transaction.Repository,
	snapshots snapshot.Repository,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		snapshots:    snapshots,
		logger:       logger,
		now:          time.Now,
	}
}

// Recalculate rebuilds the snapshot series from the given date through today
// in its own transaction, then refreshes Account.Balance from the most
// recent snapshot.
func (e *Engine) Recalculate(ctx context.Context, accountID uuid.UUID, from time.Time) error {
	return e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return e.RecalculateInTx(ctx, tx, accountID, from)
	})
}

// RecalculateInTx is Recalculate running inside a caller-owned transaction,
// so ledger mutations commit atomically with their snapshot side effects.
// The account row is locked for the duration: recalculation reads the full
// transaction set before writing any snapshot, and the lock serializes
// concurrent recalculations per account.
func (e *Engine) RecalculateInTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, from time.Time) error {
	accounts := e.accounts.WithTx(tx)

	acc, err := accounts.LockForUpdate(ctx, accountID)
	if err != nil {
		return err
	}

	txns, err := e.transactions.WithTx(tx).ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}

	var offsets []*account.BalanceOffset
	if acc.Manual {
		if offsets, err = accounts.ListOffsets(ctx, accountID); err != nil {
			return err
		}
		if len(offsets) > 0 && acc.T0.IsZero() {
			return account.ErrMissingT0
		}
	}

	today := transaction.DateOnly(e.now())
	series := ComputeSeries(acc, txns, offsets, from, today)

	snapshots := e.snapshots.WithTx(tx)
	for start := 0; start < len(series); start += snapshotChunkSize {
		end := min(start+snapshotChunkSize, len(series))
		if err := snapshots.UpsertBatch(ctx, series[start:end]); err != nil {
			return err
		}
	}

	latest := series[len(series)-1]
	if err := accounts.UpdateBalance(ctx, accountID, latest.ClosingBalance); err != nil {
		return err
	}

	e.logger.Debug("Recalculated balance snapshots",
		"account_id", accountID.String(),
		"strategy", StrategyFor(acc).String(),
		"days", len(series),
		"balance", latest.ClosingBalance.String(),
	)

	return nil
}

// ForceRecalculateAll rebuilds the whole series, from the earliest
// transaction date or from today when the account has none.
func (e *Engine) ForceRecalculateAll(ctx context.Context, accountID uuid.UUID) error {
	earliest, ok, err := e.transactions.EarliestDate(ctx, accountID)
	if err != nil {
		return err
	}
	if !ok {
		earliest = e.now()
	}
	return e.Recalculate(ctx, accountID, earliest)
}

// ComputeSeries derives the closing balance for each calendar day from
// `from` through `today` inclusive. Pure: same inputs always produce the
// same snapshots, which is what makes recalculation idempotent. An account
// with no transactions still gets one snapshot per day (no gaps).
func ComputeSeries(
	acc *account.Account,
	txns []*transaction.Transaction,
	offsets []*account.BalanceOffset,
	from, today time.Time,
) []*snapshot.Snapshot {
	from = transaction.DateOnly(from)
	today = transaction.DateOnly(today)
	if from.After(today) {
		from = today
	}

	booked := make([]*transaction.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.Booked() {
			booked = append(booked, txn)
		}
	}
	sort.SliceStable(booked, func(i, j int) bool {
		return booked[i].Date.Before(booked[j].Date)
	})

	strategy := StrategyFor(acc)

	var series []*snapshot.Snapshot
	switch strategy {
	case Forward:
		series = forwardSeries(acc, booked, offsets, from, today)
	case Reverse:
		series = reverseSeries(acc, booked, from, today)
	}

	return series
}

// forwardSeries: closing(day) = openingBalance + Σ booked transactions dated
// ≤ day + Σ offsets effective ≤ day.
func forwardSeries(
	acc *account.Account,
	booked []*transaction.Transaction,
	offsets []*account.BalanceOffset,
	from, today time.Time,
) []*snapshot.Snapshot {
	sort.SliceStable(offsets, func(i, j int) bool {
		return offsets[i].EffectiveAt.Before(offsets[j].EffectiveAt)
	})

	running := acc.OpeningBalance
	ti, oi := 0, 0

	var series []*snapshot.Snapshot
	for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
		for ti < len(booked) && !booked[ti].Date.After(day) {
			running = running.Add(booked[ti].Amount)
			ti++
		}
		for oi < len(offsets) && !transaction.DateOnly(offsets[oi].EffectiveAt).After(day) {
			running = running.Add(offsets[oi].Amount)
			oi++
		}
		series = append(series, newSnapshot(acc, day, running, snapshot.SourceDerived))
	}

	return series
}

// reverseSeries: closing(day) = current balance − Σ booked transactions
// dated after day. Today's row is anchored on the provider-observed balance
// and marked accordingly.
func reverseSeries(
	acc *account.Account,
	booked []*transaction.Transaction,
	from, today time.Time,
) []*snapshot.Snapshot {
	total := decimal.Zero
	for _, txn := range booked {
		total = total.Add(txn.Amount)
	}

	prefix := decimal.Zero // booked amounts dated ≤ day
	ti := 0

	var series []*snapshot.Snapshot
	for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
		for ti < len(booked) && !booked[ti].Date.After(day) {
			prefix = prefix.Add(booked[ti].Amount)
			ti++
		}
		closing := acc.Balance.Sub(total.Sub(prefix))

		source := snapshot.SourceDerived
		if day.Equal(today) {
			source = snapshot.SourceAPI
		}
		series = append(series, newSnapshot(acc, day, closing, source))
	}

	return series
}

func newSnapshot(acc *account.Account, day time.Time, closing decimal.Decimal, source snapshot.Source) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		OrganizationID: acc.OrganizationID,
		AccountID:      acc.ID,
		Date:           day,
		ClosingBalance: closing,
		Currency:       acc.Currency,
		Source:         source,
	}
}
