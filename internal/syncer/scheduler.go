package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matteobad/badget-sync/internal/domain/connection"
	"github.com/matteobad/badget-sync/internal/domain/shared"
)

// Scheduler periodically fans out background sync tasks: one connection
// sync task per known connection, across every organization. Disconnected
// connections are included so a successful re-auth is picked up by the next
// probe without user action.
type Scheduler struct {
	connections connection.Repository
	publisher   TaskPublisher
	interval    time.Duration
	logger      *slog.Logger
}

func NewScheduler(connections connection.Repository, publisher TaskPublisher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		connections: connections,
		publisher:   publisher,
		interval:    interval,
		logger:      logger,
	}
}

// Run ticks until the context is cancelled. The first pass runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Starting sync scheduler", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping sync scheduler")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	orgs, err := s.connections.ListOrganizations(ctx)
	if err != nil {
		s.logger.Error("Failed to list organizations for scheduling", "error", err)
		return
	}
	if len(orgs) == 0 {
		s.logger.Debug("No organizations with connections, nothing to schedule")
		return
	}

	total := 0
	for _, org := range orgs {
		published, err := s.scheduleOrganization(ctx, org)
		if err != nil {
			s.logger.Error("Failed to schedule organization sync", "organization_id", org.String(), "error", err)
			continue
		}
		total += published
	}
	s.logger.Info("Scheduled background sync pass", "organizations", len(orgs), "connections", total)
}

func (s *Scheduler) scheduleOrganization(ctx context.Context, organizationID uuid.UUID) (int, error) {
	conns, err := s.connections.ListByOrganization(ctx, organizationID)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, conn := range conns {
		task, err := shared.NewSyncTask(shared.TaskKindSyncConnection, &shared.SyncConnectionPayload{
			ConnectionID: conn.ID,
			ManualSync:   false,
		})
		if err != nil {
			return published, err
		}
		if err := s.publisher.Publish(ctx, conn.ID.String(), task); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}
