// Package ledger implements validated create/update/delete of transactions.
// Every mutation commits atomically with its snapshot recalculation and
// balance refresh: a failure partway leaves the ledger untouched.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/matteobad/badget-sync/internal/balance"
	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
	"github.com/matteobad/badget-sync/internal/platform/persistence"
)

// TxRunner runs a function inside a single database transaction, committing
// on nil and rolling back on error.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// SnapshotRecalculator rebuilds an account's snapshot series from a date
// within the caller's transaction.
type SnapshotRecalculator interface {
	RecalculateInTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, from time.Time) error
}

var (
	_ TxRunner             = (*persistence.PostgresDB)(nil)
	_ SnapshotRecalculator = (*balance.Engine)(nil)
)

// Service is the ledger mutation layer
type Service struct {
	db           TxRunner
	accounts     account.Repository
	transactions transaction.Repository
	engine       SnapshotRecalculator
	logger       *slog.Logger
}

func NewService(
	db TxRunner,
	accounts account.Repository,
	transactions transaction.Repository,
	engine SnapshotRecalculator,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		engine:       engine,
		logger:       logger,
	}
}

// CreateParams carries a new manual or API-sourced transaction
type CreateParams struct {
	OrganizationID uuid.UUID
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Date           time.Time
	Name           string
	Description    string
	Note           string
	Status         transaction.Status
	Source         transaction.Source
	Recurring      bool
}

// CreateTransaction validates and inserts a transaction, then rebuilds the
// affected snapshot range in the same database transaction. Creation on a
// connected account dated before t0 backfills history from the account's
// first transaction.
func (s *Service) CreateTransaction(ctx context.Context, p CreateParams) (*transaction.Transaction, error) {
	acc, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccountRules(acc, p.OrganizationID, p.Date, p.Source); err != nil {
		return nil, err
	}

	date := transaction.DateOnly(p.Date)
	status := p.Status
	if status == "" {
		status = transaction.StatusPosted
	}
	currency := p.Currency
	if currency == "" {
		currency = acc.Currency
	}

	now := time.Now()
	txn := &transaction.Transaction{
		ID:             uuid.New(),
		OrganizationID: p.OrganizationID,
		AccountID:      p.AccountID,
		Amount:         p.Amount,
		Currency:       currency,
		Date:           date,
		Name:           p.Name,
		Description:    p.Description,
		Note:           p.Note,
		Status:         status,
		Fingerprint:    transaction.Fingerprint(p.AccountID, p.Amount, date, p.Name),
		Recurring:      p.Recurring,
		Source:         p.Source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transactions := s.transactions.WithTx(tx)

		taken, err := transactions.FingerprintExists(ctx, p.OrganizationID, txn.Fingerprint, nil)
		if err != nil {
			return err
		}
		if taken {
			return transaction.ErrFingerprintConflict{Fingerprint: txn.Fingerprint}
		}

		if err := transactions.Create(ctx, txn); err != nil {
			return err
		}

		recalcFrom := date
		if acc.Connected() && date.Before(transaction.DateOnly(acc.T0)) {
			// Historical insert on a synced account: backfill the series
			// from the account's first transaction.
			earliest, ok, err := transactions.EarliestDate(ctx, p.AccountID)
			if err != nil {
				return err
			}
			if ok && earliest.Before(recalcFrom) {
				recalcFrom = earliest
			}
		}

		return s.engine.RecalculateInTx(ctx, tx, p.AccountID, recalcFrom)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction created",
		"transaction_id", txn.ID.String(),
		"account_id", p.AccountID.String(),
		"date", date.Format("2006-01-02"),
		"source", string(p.Source),
	)
	return txn, nil
}

// UpdateParams carries a partial transaction update; nil fields are untouched
type UpdateParams struct {
	OrganizationID uuid.UUID
	TransactionID  uuid.UUID
	Amount         *decimal.Decimal
	Date           *time.Time
	Name           *string
	Description    *string
	Note           *string
	Status         *transaction.Status
	Recurring      *bool
}

// UpdateTransaction applies the changes, recomputing the fingerprint when
// amount, date or name changed, and recalculates snapshots from the earliest
// affected date when amount or date changed.
func (s *Service) UpdateTransaction(ctx context.Context, p UpdateParams) (*transaction.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, p.OrganizationID, p.TransactionID)
	if err != nil {
		return nil, err
	}

	oldDate := txn.Date
	balanceChanged := false

	if p.Amount != nil && !p.Amount.Equal(txn.Amount) {
		txn.Amount = *p.Amount
		balanceChanged = true
	}
	if p.Date != nil {
		newDate := transaction.DateOnly(*p.Date)
		if !newDate.Equal(txn.Date) {
			txn.Date = newDate
			balanceChanged = true
		}
	}
	if p.Name != nil {
		txn.Name = *p.Name
	}
	if p.Description != nil {
		txn.Description = *p.Description
	}
	if p.Note != nil {
		txn.Note = *p.Note
	}
	if p.Status != nil && *p.Status != txn.Status {
		txn.Status = *p.Status
		balanceChanged = true // status moves a transaction in or out of the booked set
	}
	if p.Recurring != nil {
		txn.Recurring = *p.Recurring
	}

	fingerprint := transaction.Fingerprint(txn.AccountID, txn.Amount, txn.Date, txn.Name)
	fingerprintChanged := fingerprint != txn.Fingerprint
	txn.Fingerprint = fingerprint

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transactions := s.transactions.WithTx(tx)

		if fingerprintChanged {
			taken, err := transactions.FingerprintExists(ctx, p.OrganizationID, fingerprint, &txn.ID)
			if err != nil {
				return err
			}
			if taken {
				return transaction.ErrFingerprintConflict{Fingerprint: fingerprint}
			}
		}

		if err := transactions.Update(ctx, txn); err != nil {
			return err
		}

		if !balanceChanged {
			return nil
		}

		recalcFrom := txn.Date
		if oldDate.Before(recalcFrom) {
			recalcFrom = oldDate
		}
		return s.engine.RecalculateInTx(ctx, tx, txn.AccountID, recalcFrom)
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// DeleteTransaction removes a single transaction. Legs of a multi-leg
// transfer cannot be deleted individually; target the whole group instead.
func (s *Service) DeleteTransaction(ctx context.Context, organizationID, id uuid.UUID) error {
	txn, err := s.transactions.GetByID(ctx, organizationID, id)
	if err != nil {
		return err
	}
	if txn.TransferGroupID != nil {
		return transaction.ErrTransferGroupMember{TransactionID: id, GroupID: *txn.TransferGroupID}
	}

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.transactions.WithTx(tx).Delete(ctx, organizationID, id); err != nil {
			return err
		}
		return s.engine.RecalculateInTx(ctx, tx, txn.AccountID, txn.Date)
	})
}

// DeleteTransferGroup removes every leg of a transfer group and rebuilds the
// snapshot series of each affected account from its earliest deleted date.
func (s *Service) DeleteTransferGroup(ctx context.Context, organizationID, groupID uuid.UUID) error {
	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		deleted, err := s.transactions.WithTx(tx).DeleteTransferGroup(ctx, organizationID, groupID)
		if err != nil {
			return err
		}

		earliestPerAccount := make(map[uuid.UUID]time.Time)
		for _, txn := range deleted {
			if first, ok := earliestPerAccount[txn.AccountID]; !ok || txn.Date.Before(first) {
				earliestPerAccount[txn.AccountID] = txn.Date
			}
		}

		for accountID, from := range earliestPerAccount {
			if err := s.engine.RecalculateInTx(ctx, tx, accountID, from); err != nil {
				return err
			}
		}
		return nil
	})
}

// checkAccountRules enforces organization ownership and the connected-account
// rule: live data (dated after t0) on a non-manual account may only originate
// from sync or the explicit API source.
func (s *Service) checkAccountRules(acc *account.Account, organizationID uuid.UUID, date time.Time, source transaction.Source) error {
	if acc.OrganizationID != organizationID {
		return shared.ErrOrganizationMismatch
	}
	if !acc.Manual && source != transaction.SourceAPI && transaction.DateOnly(date).After(transaction.DateOnly(acc.T0)) {
		return shared.ErrInvalidTransactionConnectedAccount
	}
	return nil
}
