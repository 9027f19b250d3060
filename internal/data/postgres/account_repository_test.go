package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matteobad/badget-sync/internal/domain/account"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountRows = []string{
	"id", "organization_id", "connection_id", "external_id", "name", "manual", "currency",
	"balance", "opening_balance", "t0", "timezone", "error_retries", "enabled", "created_at", "updated_at",
}

func accountRow(acc *account.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountRows).AddRow(
		acc.ID, acc.OrganizationID, acc.ConnectionID, acc.ExternalID, acc.Name, acc.Manual,
		acc.Currency, acc.Balance, acc.OpeningBalance, acc.T0, acc.Timezone, acc.ErrorRetries,
		acc.Enabled, acc.CreatedAt, acc.UpdatedAt,
	)
}

func sampleAccount() *account.Account {
	now := time.Now()
	return &account.Account{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		ExternalID:     "",
		Name:           "Checking",
		Manual:         true,
		Currency:       "EUR",
		Balance:        decimal.NewFromInt(1000),
		OpeningBalance: decimal.NewFromInt(500),
		T0:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Timezone:       "Europe/Rome",
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc := sampleAccount()

	query := `SELECT (.+) FROM accounts\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(acc.ID).
			WillReturnRows(accountRow(acc))

		got, err := repo.GetByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, acc.ID, got.ID)
		assert.Equal(t, acc.Name, got.Name)
		assert.True(t, got.Balance.Equal(acc.Balance))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(query).
			WithArgs(missing).
			WillReturnRows(pgxmock.NewRows(accountRows))

		_, err := repo.GetByID(ctx, missing)
		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, missing, notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(acc.ID).
			WillReturnError(expectedErr)

		_, err := repo.GetByID(ctx, acc.ID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc := sampleAccount()

	query := `UPDATE accounts\s+SET name = \$1, balance = \$2, opening_balance = \$3, t0 = \$4, timezone = \$5,\s+error_retries = \$6, enabled = \$7, updated_at = NOW\(\)\s+WHERE id = \$8`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Name, acc.Balance, acc.OpeningBalance, acc.T0, acc.Timezone, acc.ErrorRetries, acc.Enabled, acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Name, acc.Balance, acc.OpeningBalance, acc.T0, acc.Timezone, acc.ErrorRetries, acc.Enabled, acc.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, acc)
		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListEnabledSyncable(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	connectionID := uuid.New()

	first := sampleAccount()
	first.Manual = false
	first.ConnectionID = &connectionID
	second := sampleAccount()
	second.Manual = false
	second.ConnectionID = &connectionID

	query := `SELECT (.+) FROM accounts\s+WHERE connection_id = \$1 AND enabled = TRUE AND manual = FALSE\s+ORDER BY created_at`

	t.Run("success", func(t *testing.T) {
		rows := accountRow(first).AddRow(
			second.ID, second.OrganizationID, second.ConnectionID, second.ExternalID, second.Name,
			second.Manual, second.Currency, second.Balance, second.OpeningBalance, second.T0,
			second.Timezone, second.ErrorRetries, second.Enabled, second.CreatedAt, second.UpdatedAt,
		)
		mock.ExpectQuery(query).WithArgs(connectionID).WillReturnRows(rows)

		accounts, err := repo.ListEnabledSyncable(ctx, connectionID)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, first.ID, accounts[0].ID)
		assert.Equal(t, second.ID, accounts[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(connectionID).WillReturnRows(pgxmock.NewRows(accountRows))

		accounts, err := repo.ListEnabledSyncable(ctx, connectionID)
		require.NoError(t, err)
		assert.Empty(t, accounts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_SetErrorRetries(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accountID := uuid.New()

	query := `UPDATE accounts\s+SET error_retries = \$1, updated_at = NOW\(\)\s+WHERE id = \$2`

	t.Run("set", func(t *testing.T) {
		retries := 2
		mock.ExpectExec(query).
			WithArgs(&retries, accountID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.SetErrorRetries(ctx, accountID, &retries))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clear", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs((*int)(nil), accountID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.SetErrorRetries(ctx, accountID, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListOffsets(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accountID := uuid.New()

	query := `SELECT id, organization_id, account_id, amount, effective_at, note, created_at\s+FROM balance_offsets\s+WHERE account_id = \$1\s+ORDER BY effective_at`

	offset := &account.BalanceOffset{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		AccountID:      accountID,
		Amount:         decimal.NewFromInt(-50),
		EffectiveAt:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Note:           "cash withdrawal",
		CreatedAt:      time.Now(),
	}

	rows := pgxmock.NewRows([]string{"id", "organization_id", "account_id", "amount", "effective_at", "note", "created_at"}).
		AddRow(offset.ID, offset.OrganizationID, offset.AccountID, offset.Amount, offset.EffectiveAt, offset.Note, offset.CreatedAt)

	mock.ExpectQuery(query).WithArgs(accountID).WillReturnRows(rows)

	offsets, err := repo.ListOffsets(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, offsets, 1)
	assert.True(t, offsets[0].Amount.Equal(offset.Amount))
	assert.Equal(t, offset.EffectiveAt, offsets[0].EffectiveAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
