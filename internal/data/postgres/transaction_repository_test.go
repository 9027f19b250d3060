package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matteobad/badget-sync/internal/domain/transaction"
)

var transactionRows = []string{
	"id", "organization_id", "account_id", "amount", "currency", "date", "name",
	"description", "note", "status", "fingerprint", "raw_id", "recurring", "source",
	"transfer_group_id", "created_at", "updated_at",
}

func transactionRow(txn *transaction.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(transactionRows).AddRow(
		txn.ID, txn.OrganizationID, txn.AccountID, txn.Amount, txn.Currency, txn.Date,
		txn.Name, txn.Description, txn.Note, txn.Status, txn.Fingerprint, txn.RawID,
		txn.Recurring, txn.Source, txn.TransferGroupID, txn.CreatedAt, txn.UpdatedAt,
	)
}

func sampleTransaction() *transaction.Transaction {
	now := time.Now()
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	return &transaction.Transaction{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		AccountID:      uuid.New(),
		Amount:         decimal.NewFromFloat(-42.50),
		Currency:       "EUR",
		Date:           date,
		Name:           "ACME Corp",
		Status:         transaction.StatusPosted,
		Fingerprint:    transaction.Fingerprint(uuid.New(), decimal.NewFromFloat(-42.50), date, "ACME Corp"),
		Source:         transaction.SourceManual,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := sampleTransaction()

	query := `INSERT INTO transactions \((.+)\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13, \$14, \$15, \$16, \$17\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(txn.ID, txn.OrganizationID, txn.AccountID, txn.Amount, txn.Currency, txn.Date,
				txn.Name, txn.Description, txn.Note, txn.Status, txn.Fingerprint, txn.RawID,
				txn.Recurring, txn.Source, txn.TransferGroupID, txn.CreatedAt, txn.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, txn)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(txn.ID, txn.OrganizationID, txn.AccountID, txn.Amount, txn.Currency, txn.Date,
				txn.Name, txn.Description, txn.Note, txn.Status, txn.Fingerprint, txn.RawID,
				txn.Recurring, txn.Source, txn.TransferGroupID, txn.CreatedAt, txn.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, txn)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create transaction")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	txn := sampleTransaction()

	query := `SELECT (.+) FROM transactions\s+WHERE id = \$1 AND organization_id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(txn.ID, txn.OrganizationID).
			WillReturnRows(transactionRow(txn))

		got, err := repo.GetByID(ctx, txn.OrganizationID, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, txn.ID, got.ID)
		assert.True(t, got.Amount.Equal(txn.Amount))
		assert.Equal(t, txn.Fingerprint, got.Fingerprint)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(query).
			WithArgs(missing, txn.OrganizationID).
			WillReturnRows(pgxmock.NewRows(transactionRows))

		_, err := repo.GetByID(ctx, txn.OrganizationID, missing)
		var notFound transaction.ErrTransactionNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, missing, notFound.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	organizationID := uuid.New()
	transactionID := uuid.New()

	query := `DELETE FROM transactions WHERE id = \$1 AND organization_id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(transactionID, organizationID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, organizationID, transactionID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(transactionID, organizationID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, organizationID, transactionID)
		var notFound transaction.ErrTransactionNotFound
		require.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_EarliestDate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	accountID := uuid.New()

	query := `SELECT MIN\(date\) FROM transactions WHERE account_id = \$1`

	t.Run("has transactions", func(t *testing.T) {
		earliest := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(query).
			WithArgs(accountID).
			WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow(&earliest))

		got, ok, err := repo.EarliestDate(ctx, accountID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, earliest, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty account", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(accountID).
			WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow((*time.Time)(nil)))

		_, ok, err := repo.EarliestDate(ctx, accountID)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_FingerprintExists(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	organizationID := uuid.New()
	fingerprint := "deadbeef"

	query := `SELECT EXISTS \(\s+SELECT 1 FROM transactions\s+WHERE organization_id = \$1 AND fingerprint = \$2 AND \(\$3::uuid IS NULL OR id <> \$3\)\s+\)`

	t.Run("taken", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(organizationID, fingerprint, (*uuid.UUID)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.FingerprintExists(ctx, organizationID, fingerprint, nil)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("free when excluding self", func(t *testing.T) {
		selfID := uuid.New()
		mock.ExpectQuery(query).
			WithArgs(organizationID, fingerprint, &selfID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.FingerprintExists(ctx, organizationID, fingerprint, &selfID)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_ListFingerprintsByAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	accountID := uuid.New()

	mock.ExpectQuery(`SELECT fingerprint FROM transactions WHERE account_id = \$1`).
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"fingerprint"}).AddRow("aaa").AddRow("bbb"))

	fingerprints, err := repo.ListFingerprintsByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, fingerprints, 2)
	assert.Contains(t, fingerprints, "aaa")
	assert.Contains(t, fingerprints, "bbb")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_DeleteTransferGroup(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	groupID := uuid.New()

	leg := sampleTransaction()
	leg.TransferGroupID = &groupID

	query := `DELETE FROM transactions\s+WHERE transfer_group_id = \$1 AND organization_id = \$2\s+RETURNING`

	mock.ExpectQuery(query).
		WithArgs(groupID, leg.OrganizationID).
		WillReturnRows(transactionRow(leg))

	deleted, err := repo.DeleteTransferGroup(ctx, leg.OrganizationID, groupID)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, leg.ID, deleted[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
