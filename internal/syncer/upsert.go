package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matteobad/badget-sync/internal/balance"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
)

// Upserter applies upsert and recalculation tasks: the write side of the
// sync pipeline, decoupled from the provider fetch so batches are retried
// independently.
type Upserter struct {
	transactions transaction.Repository
	engine       *balance.Engine
	logger       *slog.Logger
}

func NewUpserter(transactions transaction.Repository, engine *balance.Engine, logger *slog.Logger) *Upserter {
	return &Upserter{
		transactions: transactions,
		engine:       engine,
		logger:       logger,
	}
}

// Upsert applies one batch of synced transactions idempotently. Redelivery
// of the same batch is harmless: rows conflict on their provider id and
// update in place.
func (u *Upserter) Upsert(ctx context.Context, payload *shared.UpsertTransactionsPayload) error {
	now := time.Now()
	txns := make([]*transaction.Transaction, 0, len(payload.Transactions))
	for _, entry := range payload.Transactions {
		amount, err := decimal.NewFromString(entry.Amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q in upsert batch: %w", entry.Amount, err)
		}
		rawID := entry.RawID
		txns = append(txns, &transaction.Transaction{
			ID:             uuid.New(),
			OrganizationID: payload.OrganizationID,
			AccountID:      payload.AccountID,
			Amount:         amount,
			Currency:       entry.Currency,
			Date:           transaction.DateOnly(entry.Date),
			Name:           entry.Name,
			Description:    entry.Description,
			Note:           entry.Note,
			Status:         transaction.Status(entry.Status),
			Fingerprint:    entry.Fingerprint,
			RawID:          &rawID,
			Source:         transaction.SourceAPI,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if err := u.transactions.UpsertBatch(ctx, txns); err != nil {
		return fmt.Errorf("failed to upsert transaction batch: %w", err)
	}

	u.logger.Debug("Upserted transaction batch",
		"account_id", payload.AccountID.String(),
		"count", len(txns),
	)
	return nil
}

// Recalculate rebuilds the account's snapshot series from the payload date.
func (u *Upserter) Recalculate(ctx context.Context, payload *shared.RecalculatePayload) error {
	return u.engine.Recalculate(ctx, payload.AccountID, payload.From)
}
