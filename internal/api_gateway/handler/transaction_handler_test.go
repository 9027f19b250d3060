package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/transaction"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) Update(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *mockAccountRepo) ListEnabledSyncable(ctx context.Context, connectionID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, connectionID)
	if accs, ok := args.Get(0).([]*account.Account); ok {
		return accs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *mockAccountRepo) SetErrorRetries(ctx context.Context, id uuid.UUID, retries *int) error {
	args := m.Called(ctx, id, retries)
	return args.Error(0)
}

func (m *mockAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) ListOffsets(ctx context.Context, accountID uuid.UUID) ([]*account.BalanceOffset, error) {
	args := m.Called(ctx, accountID)
	if offs, ok := args.Get(0).([]*account.BalanceOffset); ok {
		return offs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	m.Called(tx)
	return m
}

type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) Create(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, organizationID, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, organizationID, id)
	if txn, ok := args.Get(0).(*transaction.Transaction); ok {
		return txn, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) Update(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *mockTransactionRepo) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	args := m.Called(ctx, organizationID, id)
	return args.Error(0)
}

func (m *mockTransactionRepo) DeleteTransferGroup(ctx context.Context, organizationID, groupID uuid.UUID) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, organizationID, groupID)
	if txns, ok := args.Get(0).([]*transaction.Transaction); ok {
		return txns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, accountID)
	if txns, ok := args.Get(0).([]*transaction.Transaction); ok {
		return txns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) EarliestDate(ctx context.Context, accountID uuid.UUID) (time.Time, bool, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *mockTransactionRepo) FingerprintExists(ctx context.Context, organizationID uuid.UUID, fingerprint string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, organizationID, fingerprint, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTransactionRepo) ListFingerprintsByAccount(ctx context.Context, accountID uuid.UUID) (map[string]struct{}, error) {
	args := m.Called(ctx, accountID)
	if fps, ok := args.Get(0).(map[string]struct{}); ok {
		return fps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTransactionRepo) UpsertBatch(ctx context.Context, txns []*transaction.Transaction) error {
	args := m.Called(ctx, txns)
	return args.Error(0)
}

func (m *mockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	m.Called(tx)
	return m
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listTransactionsRequest(t *testing.T, h *TransactionHandler, accountID uuid.UUID, orgID string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/api/v1/accounts/:id/transactions", h.ListByAccount)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+accountID.String()+"/transactions", nil)
	if orgID != "" {
		req.Header.Set(OrganizationHeader, orgID)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestTransactionHandler_ListByAccount(t *testing.T) {
	ownerOrg := uuid.New()
	accountID := uuid.New()
	acc := &account.Account{ID: accountID, OrganizationID: ownerOrg, Name: "Checking", Currency: "EUR"}

	t.Run("ForeignOrganizationGetsNotFound", func(t *testing.T) {
		accounts := new(mockAccountRepo)
		transactions := new(mockTransactionRepo)
		h := NewTransactionHandler(discardLogger(), nil, transactions, accounts)

		accounts.On("GetByID", mock.Anything, accountID).Return(acc, nil)

		rr := listTransactionsRequest(t, h, accountID, uuid.New().String())

		assert.Equal(t, http.StatusNotFound, rr.Code)
		transactions.AssertNotCalled(t, "ListByAccount", mock.Anything, mock.Anything)
	})

	t.Run("UnknownAccountGetsNotFound", func(t *testing.T) {
		accounts := new(mockAccountRepo)
		transactions := new(mockTransactionRepo)
		h := NewTransactionHandler(discardLogger(), nil, transactions, accounts)

		accounts.On("GetByID", mock.Anything, accountID).
			Return(nil, account.ErrAccountNotFound{AccountID: accountID})

		rr := listTransactionsRequest(t, h, accountID, ownerOrg.String())

		assert.Equal(t, http.StatusNotFound, rr.Code)
		transactions.AssertNotCalled(t, "ListByAccount", mock.Anything, mock.Anything)
	})

	t.Run("OwnerOrganizationGetsTransactions", func(t *testing.T) {
		accounts := new(mockAccountRepo)
		transactions := new(mockTransactionRepo)
		h := NewTransactionHandler(discardLogger(), nil, transactions, accounts)

		accounts.On("GetByID", mock.Anything, accountID).Return(acc, nil)
		transactions.On("ListByAccount", mock.Anything, accountID).Return([]*transaction.Transaction{
			{
				ID:             uuid.New(),
				OrganizationID: ownerOrg,
				AccountID:      accountID,
				Amount:         decimal.NewFromInt(-25),
				Currency:       "EUR",
				Date:           time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
				Name:           "Coffee Shop",
				Status:         transaction.StatusPosted,
				Source:         transaction.SourceManual,
			},
		}, nil)

		rr := listTransactionsRequest(t, h, accountID, ownerOrg.String())

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"Coffee Shop"`)
	})

	t.Run("MissingOrganizationHeaderIsBadRequest", func(t *testing.T) {
		accounts := new(mockAccountRepo)
		transactions := new(mockTransactionRepo)
		h := NewTransactionHandler(discardLogger(), nil, transactions, accounts)

		rr := listTransactionsRequest(t, h, accountID, "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}
