package syncer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/connection"
)

// HealthChecker derives connection health from the health of its accounts.
// A connection is demoted to disconnected when every enabled synced account
// under it has exhausted its provider error budget.
type HealthChecker struct {
	connections connection.Repository
	accounts    account.Repository
	logger      *slog.Logger
}

func NewHealthChecker(connections connection.Repository, accounts account.Repository, logger *slog.Logger) *HealthChecker {
	return &HealthChecker{
		connections: connections,
		accounts:    accounts,
		logger:      logger,
	}
}

// CheckConnection re-evaluates one connection after an account health change.
// It returns true when the check demoted the connection.
func (h *HealthChecker) CheckConnection(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	conn, err := h.connections.GetByID(ctx, connectionID)
	if err != nil {
		return false, err
	}
	if conn.Status == connection.StatusDisconnected {
		return false, nil
	}

	accounts, err := h.accounts.ListEnabledSyncable(ctx, connectionID)
	if err != nil {
		return false, err
	}
	if len(accounts) == 0 {
		return false, nil
	}

	for _, acc := range accounts {
		if !acc.Unhealthy() {
			return false, nil
		}
	}

	h.logger.Warn("All synced accounts unhealthy, disconnecting connection",
		"connection_id", connectionID.String(),
		"accounts", len(accounts),
	)
	if err := conn.Disconnect("all synced accounts exhausted their retry budget"); err != nil {
		return false, err
	}
	if err := h.connections.Update(ctx, conn); err != nil {
		return false, err
	}
	return true, nil
}
