package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/connection"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/domain/synclog"
	"github.com/matteobad/badget-sync/internal/provider"
)

// ConnectionSyncer runs one connection-level sync pass: probe the provider,
// update connection status and fan out per-account sync tasks.
type ConnectionSyncer struct {
	connections connection.Repository
	accounts    account.Repository
	providers   *provider.Registry
	publisher   TaskPublisher
	syncLog     synclog.Repository
	fanOutDelay time.Duration
	logger      *slog.Logger
}

func NewConnectionSyncer(
	connections connection.Repository,
	accounts account.Repository,
	providers *provider.Registry,
	publisher TaskPublisher,
	syncLog synclog.Repository,
	fanOutDelay time.Duration,
	logger *slog.Logger,
) *ConnectionSyncer {
	return &ConnectionSyncer{
		connections: connections,
		accounts:    accounts,
		providers:   providers,
		publisher:   publisher,
		syncLog:     syncLog,
		fanOutDelay: fanOutDelay,
		logger:      logger,
	}
}

// Sync probes the connection at the provider, records the resulting status
// and, when connected, publishes one sync task per enabled synced account.
func (s *ConnectionSyncer) Sync(ctx context.Context, payload *shared.SyncConnectionPayload) error {
	logger := s.logger.With("connection_id", payload.ConnectionID.String(), "manual_sync", payload.ManualSync)

	conn, err := s.connections.GetByID(ctx, payload.ConnectionID)
	if err != nil {
		return err
	}

	client, err := s.providers.Get(conn.Provider)
	if err != nil {
		s.recordRun(ctx, conn, payload.ManualSync, synclog.OutcomeFailed, err.Error())
		return err
	}

	status, err := client.GetConnectionStatus(ctx, conn.ReferenceID)
	if err != nil {
		logger.Error("Provider status probe failed", "provider", conn.Provider, "error", err)
		return fmt.Errorf("failed to probe connection status: %w", err)
	}

	if status.Status != string(connection.StatusConnected) {
		logger.Warn("Provider reports connection disconnected", "provider", conn.Provider)
		if err := conn.Disconnect("provider reported the link as disconnected"); err != nil {
			return err
		}
		if err := s.connections.Update(ctx, conn); err != nil {
			return err
		}
		s.recordRun(ctx, conn, payload.ManualSync, synclog.OutcomeFailed, "connection disconnected at provider")
		return nil
	}

	if err := conn.TransitionTo(connection.StatusConnected); err != nil {
		return err
	}
	if err := s.connections.Update(ctx, conn); err != nil {
		return err
	}

	published, err := s.fanOutAccounts(ctx, conn, payload.ManualSync)
	if err != nil {
		return err
	}

	logger.Info("Connection sync fanned out", "accounts", published)
	s.recordRun(ctx, conn, payload.ManualSync, synclog.OutcomeSucceeded, "")
	return nil
}

// fanOutAccounts publishes one account sync task per enabled synced account.
// Background runs are throttled between publishes to spread provider load.
func (s *ConnectionSyncer) fanOutAccounts(ctx context.Context, conn *connection.Connection, manual bool) (int, error) {
	accounts, err := s.accounts.ListEnabledSyncable(ctx, conn.ID)
	if err != nil {
		return 0, err
	}

	published := 0
	for i, acc := range accounts {
		if !manual && s.fanOutDelay > 0 && i > 0 {
			select {
			case <-ctx.Done():
				return published, ctx.Err()
			case <-time.After(s.fanOutDelay):
			}
		}

		task, err := shared.NewSyncTask(shared.TaskKindSyncAccount, &shared.SyncAccountPayload{
			AccountID:      acc.ID,
			ConnectionID:   conn.ID,
			OrganizationID: acc.OrganizationID,
			ErrorRetries:   acc.ErrorRetries,
			Provider:       conn.Provider,
			ManualSync:     manual,
		})
		if err != nil {
			return published, err
		}
		if err := s.publisher.Publish(ctx, acc.ID.String(), task); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (s *ConnectionSyncer) recordRun(ctx context.Context, conn *connection.Connection, manual bool, outcome synclog.Outcome, errMsg string) {
	entry := &synclog.Entry{
		ID:             uuid.New(),
		OrganizationID: conn.OrganizationID,
		Kind:           synclog.RunKindConnectionSync,
		ConnectionID:   &conn.ID,
		ManualSync:     manual,
		Outcome:        outcome,
		Error:          errMsg,
		CreatedAt:      time.Now(),
	}
	if err := s.syncLog.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to record connection sync run", "connection_id", conn.ID.String(), "error", err)
	}
}
