package syncer

import (
	"context"

	"github.com/matteobad/badget-sync/internal/domain/shared"
)

// TaskProcessor executes one sync task to completion or failure
type TaskProcessor interface {
	Process(ctx context.Context, task *shared.SyncTask) error
}

// TaskPublisher publishes sync task envelopes under a message key
type TaskPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
