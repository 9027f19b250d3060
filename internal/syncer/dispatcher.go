package syncer

import (
	"context"
	"fmt"

	"github.com/matteobad/badget-sync/internal/domain/shared"
)

// Dispatcher routes a sync task to the component that handles its kind
type Dispatcher struct {
	connectionSyncer *ConnectionSyncer
	accountSyncer    *AccountSyncer
	upserter         *Upserter
}

func NewDispatcher(connectionSyncer *ConnectionSyncer, accountSyncer *AccountSyncer, upserter *Upserter) *Dispatcher {
	return &Dispatcher{
		connectionSyncer: connectionSyncer,
		accountSyncer:    accountSyncer,
		upserter:         upserter,
	}
}

// Process decodes the task payload and executes it
func (d *Dispatcher) Process(ctx context.Context, task *shared.SyncTask) error {
	switch task.Kind {
	case shared.TaskKindSyncConnection:
		var payload shared.SyncConnectionPayload
		if err := task.Decode(&payload); err != nil {
			return err
		}
		return d.connectionSyncer.Sync(ctx, &payload)

	case shared.TaskKindSyncAccount:
		var payload shared.SyncAccountPayload
		if err := task.Decode(&payload); err != nil {
			return err
		}
		return d.accountSyncer.Sync(ctx, &payload)

	case shared.TaskKindUpsertTransactions:
		var payload shared.UpsertTransactionsPayload
		if err := task.Decode(&payload); err != nil {
			return err
		}
		return d.upserter.Upsert(ctx, &payload)

	case shared.TaskKindRecalculate:
		var payload shared.RecalculatePayload
		if err := task.Decode(&payload); err != nil {
			return err
		}
		return d.upserter.Recalculate(ctx, &payload)

	default:
		return fmt.Errorf("unknown sync task kind: %q", task.Kind)
	}
}
