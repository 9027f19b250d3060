package syncer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/connection"
)

type mockConnectionRepo struct {
	mock.Mock
}

func (m *mockConnectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*connection.Connection, error) {
	args := m.Called(ctx, id)
	if conn, ok := args.Get(0).(*connection.Connection); ok {
		return conn, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConnectionRepo) Update(ctx context.Context, conn *connection.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *mockConnectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockConnectionRepo) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*connection.Connection, error) {
	args := m.Called(ctx, organizationID)
	if conns, ok := args.Get(0).([]*connection.Connection); ok {
		return conns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConnectionRepo) ListOrganizations(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if orgs, ok := args.Get(0).([]uuid.UUID); ok {
		return orgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConnectionRepo) WithTx(tx pgx.Tx) connection.Repository {
	return m
}

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
	if offsets, ok := args.Get(0).([]*account.BalanceOffset); ok {
		return offsets, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

func unhealthyAccount(connID uuid.UUID) *account.Account {
	retries := account.UnhealthyRetryThreshold
	return &account.Account{ID: uuid.New(), ConnectionID: &connID, ErrorRetries: &retries, Enabled: true}
}

func healthyAccount(connID uuid.UUID) *account.Account {
	return &account.Account{ID: uuid.New(), ConnectionID: &connID, Enabled: true}
}

func TestHealthChecker_DisconnectsWhenAllAccountsUnhealthy(t *testing.T) {
	connID := uuid.New()
	connections := new(mockConnectionRepo)
	accounts := new(mockAccountRepo)
	checker := NewHealthChecker(connections, accounts, discardLogger())

	conn := &connection.Connection{ID: connID, Status: connection.StatusConnected}
	connections.On("GetByID", mock.Anything, connID).Return(conn, nil)
	accounts.On("ListEnabledSyncable", mock.Anything, connID).Return([]*account.Account{
		unhealthyAccount(connID),
		unhealthyAccount(connID),
		unhealthyAccount(connID),
	}, nil)
	connections.On("Update", mock.Anything, conn).Return(nil)

	demoted, err := checker.CheckConnection(context.Background(), connID)

	require.NoError(t, err)
	assert.True(t, demoted)
	assert.Equal(t, connection.StatusDisconnected, conn.Status)
	require.NotNil(t, conn.ErrorDetails)
	connections.AssertExpectations(t)
}

func TestHealthChecker_KeepsConnectionWhileAnyAccountHealthy(t *testing.T) {
	connID := uuid.New()
	connections := new(mockConnectionRepo)
	accounts := new(mockAccountRepo)
	checker := NewHealthChecker(connections, accounts, discardLogger())

	conn := &connection.Connection{ID: connID, Status: connection.StatusConnected}
	connections.On("GetByID", mock.Anything, connID).Return(conn, nil)
	accounts.On("ListEnabledSyncable", mock.Anything, connID).Return([]*account.Account{
		unhealthyAccount(connID),
		healthyAccount(connID),
	}, nil)

	demoted, err := checker.CheckConnection(context.Background(), connID)

	require.NoError(t, err)
	assert.False(t, demoted)
	assert.Equal(t, connection.StatusConnected, conn.Status)
	connections.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestHealthChecker_SkipsAlreadyDisconnected(t *testing.T) {
	connID := uuid.New()
	connections := new(mockConnectionRepo)
	accounts := new(mockAccountRepo)
	checker := NewHealthChecker(connections, accounts, discardLogger())

	conn := &connection.Connection{ID: connID, Status: connection.StatusDisconnected}
	connections.On("GetByID", mock.Anything, connID).Return(conn, nil)

	demoted, err := checker.CheckConnection(context.Background(), connID)

	require.NoError(t, err)
	assert.False(t, demoted)
	accounts.AssertNotCalled(t, "ListEnabledSyncable", mock.Anything, mock.Anything)
}

func TestHealthChecker_NoAccountsIsHealthy(t *testing.T) {
	connID := uuid.New()
	connections := new(mockConnectionRepo)
	accounts := new(mockAccountRepo)
	checker := NewHealthChecker(connections, accounts, discardLogger())

	conn := &connection.Connection{ID: connID, Status: connection.StatusConnected}
	connections.On("GetByID", mock.Anything, connID).Return(conn, nil)
	accounts.On("ListEnabledSyncable", mock.Anything, connID).Return([]*account.Account{}, nil)

	demoted, err := checker.CheckConnection(context.Background(), connID)

	require.NoError(t, err)
	assert.False(t, demoted)
}
