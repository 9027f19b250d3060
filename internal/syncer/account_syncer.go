package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/domain/synclog"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/normalize"
	"github.com/matteobad/badget-sync/internal/provider"
)

// AccountSyncer runs one account-level sync pass: refresh the balance,
// fetch and normalize transactions and publish bounded upsert tasks followed
// by one recalculation task under the same message key.
type AccountSyncer struct {
	accounts   account.Repository
	providers  *provider.Registry
	normalizer *normalize.Normalizer
	publisher  TaskPublisher
	syncLog    synclog.Repository
	health     *HealthChecker
	batchSize  int
	lookback   time.Duration
	logger     *slog.Logger
	now        func() time.Time // overridable in tests
}

func NewAccountSyncer(
	accounts account.Repository,
	providers *provider.Registry,
	normalizer *normalize.Normalizer,
	publisher TaskPublisher,
	syncLog synclog.Repository,
	health *HealthChecker,
	batchSize int,
	lookback time.Duration,
	logger *slog.Logger,
) *AccountSyncer {
	return &AccountSyncer{
		accounts:   accounts,
		providers:  providers,
		normalizer: normalizer,
		publisher:  publisher,
		syncLog:    syncLog,
		health:     health,
		batchSize:  batchSize,
		lookback:   lookback,
		logger:     logger,
		now:        time.Now,
	}
}

// Sync refreshes one account from its provider. A disconnected provider link
// counts against the account's retry budget; any provider success heals it.
func (s *AccountSyncer) Sync(ctx context.Context, payload *shared.SyncAccountPayload) error {
	logger := s.logger.With("account_id", payload.AccountID.String(), "manual_sync", payload.ManualSync)

	acc, err := s.accounts.GetByID(ctx, payload.AccountID)
	if err != nil {
		return err
	}

	client, err := s.providers.Get(payload.Provider)
	if err != nil {
		s.recordRun(ctx, acc, payload, synclog.OutcomeFailed, err.Error(), 0, 0, nil)
		return err
	}

	balance, err := client.GetAccountBalance(ctx, acc.ExternalID)
	if err != nil {
		if errors.Is(err, provider.ErrDisconnected) {
			return s.recordProviderFailure(ctx, acc, payload, err)
		}
		logger.Error("Provider balance fetch failed", "error", err)
		return fmt.Errorf("failed to fetch account balance: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, acc.ID, balance.Amount); err != nil {
		return err
	}
	acc.RecordSuccess()
	if err := s.accounts.SetErrorRetries(ctx, acc.ID, nil); err != nil {
		return err
	}

	// Manual runs pull full history, background runs only the provider's
	// recent window.
	rows, err := client.GetTransactions(ctx, acc.ExternalID, !payload.ManualSync)
	if err != nil {
		if errors.Is(err, provider.ErrDisconnected) {
			return s.recordProviderFailure(ctx, acc, payload, err)
		}
		logger.Error("Provider transaction fetch failed", "error", err)
		return fmt.Errorf("failed to fetch account transactions: %w", err)
	}

	entries, earliest, rejected := s.normalizeRows(acc, rows)

	if err := s.publishUpserts(ctx, acc, entries); err != nil {
		return err
	}

	recalcFrom := s.recalcFrom(payload.ManualSync, earliest)
	task, err := shared.NewSyncTask(shared.TaskKindRecalculate, &shared.RecalculatePayload{
		AccountID: acc.ID,
		From:      recalcFrom,
	})
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, acc.ID.String(), task); err != nil {
		return err
	}

	logger.Info("Account sync completed",
		"fetched", len(rows),
		"accepted", len(entries),
		"rejected", rejected,
		"recalc_from", recalcFrom.Format("2006-01-02"),
	)
	s.recordRun(ctx, acc, payload, synclog.OutcomeSucceeded, "", len(entries), rejected, &recalcFrom)
	return nil
}

// normalizeRows converts provider rows into upsert entries, tracking the
// earliest accepted date and the count of rejected rows.
func (s *AccountSyncer) normalizeRows(acc *account.Account, rows []provider.Transaction) ([]shared.UpsertEntry, time.Time, int) {
	entries := make([]shared.UpsertEntry, 0, len(rows))
	var earliest time.Time
	rejected := 0

	for _, row := range rows {
		txn, rowErr := s.normalizer.Normalize(normalize.Row{
			Date:        row.Date,
			Description: row.Name,
			Amount:      row.Amount,
			Currency:    row.Currency,
			RawID:       row.RawID,
		}, normalize.Options{
			OrganizationID:  acc.OrganizationID,
			AccountID:       acc.ID,
			DefaultCurrency: acc.Currency,
			Source:          transaction.SourceAPI,
		})
		if rowErr != nil {
			s.logger.Warn("Rejected provider transaction row",
				"account_id", acc.ID.String(),
				"raw_id", row.RawID,
				"field", rowErr.Field,
				"reason", rowErr.Reason,
			)
			rejected++
			continue
		}

		entries = append(entries, shared.UpsertEntry{
			RawID:       row.RawID,
			Amount:      txn.Amount.String(),
			Currency:    txn.Currency,
			Date:        txn.Date,
			Name:        txn.Name,
			Description: txn.Description,
			Note:        txn.Note,
			Fingerprint: txn.Fingerprint,
			Status:      string(txn.Status),
		})
		if earliest.IsZero() || txn.Date.Before(earliest) {
			earliest = txn.Date
		}
	}
	return entries, earliest, rejected
}

// publishUpserts splits entries into bounded batches, each published under
// the account's key so they precede the recalculation task in the partition.
func (s *AccountSyncer) publishUpserts(ctx context.Context, acc *account.Account, entries []shared.UpsertEntry) error {
	for start := 0; start < len(entries); start += s.batchSize {
		end := start + s.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		task, err := shared.NewSyncTask(shared.TaskKindUpsertTransactions, &shared.UpsertTransactionsPayload{
			AccountID:      acc.ID,
			OrganizationID: acc.OrganizationID,
			Transactions:   entries[start:end],
		})
		if err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, acc.ID.String(), task); err != nil {
			return err
		}
	}
	return nil
}

// recalcFrom picks the recalculation window: manual runs cover everything
// the provider returned, background runs a bounded recent window.
func (s *AccountSyncer) recalcFrom(manual bool, earliest time.Time) time.Time {
	if manual && !earliest.IsZero() {
		return earliest
	}
	return transaction.DateOnly(s.now().Add(-s.lookback))
}

// recordProviderFailure counts a disconnected provider response against the
// account's retry budget and re-evaluates connection health.
func (s *AccountSyncer) recordProviderFailure(ctx context.Context, acc *account.Account, payload *shared.SyncAccountPayload, cause error) error {
	acc.RecordFailure()
	if err := s.accounts.SetErrorRetries(ctx, acc.ID, acc.ErrorRetries); err != nil {
		return err
	}

	s.logger.Warn("Provider failure recorded for account",
		"account_id", acc.ID.String(),
		"retries", *acc.ErrorRetries,
		"error", cause,
	)

	if _, err := s.health.CheckConnection(ctx, payload.ConnectionID); err != nil {
		s.logger.Error("Connection health check failed", "connection_id", payload.ConnectionID.String(), "error", err)
	}

	s.recordRun(ctx, acc, payload, synclog.OutcomeFailed, cause.Error(), 0, 0, nil)
	return fmt.Errorf("provider failure on account %s: %w", acc.ID, cause)
}

func (s *AccountSyncer) recordRun(
	ctx context.Context,
	acc *account.Account,
	payload *shared.SyncAccountPayload,
	outcome synclog.Outcome,
	errMsg string,
	accepted, rejected int,
	from *time.Time,
) {
	entry := &synclog.Entry{
		ID:             uuid.New(),
		OrganizationID: acc.OrganizationID,
		Kind:           synclog.RunKindAccountSync,
		ConnectionID:   &payload.ConnectionID,
		AccountID:      &acc.ID,
		ManualSync:     payload.ManualSync,
		Outcome:        outcome,
		Error:          errMsg,
		Accepted:       accepted,
		Rejected:       rejected,
		FromDate:       from,
		CreatedAt:      time.Now(),
	}
	if err := s.syncLog.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to record account sync run", "account_id", acc.ID.String(), "error", err)
	}
}
