package syncer

import (
	"context"
	"log/slog"

	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessor wraps a TaskProcessor with a bounded worker pool so
// that expensive tasks (provider calls, recalculations) run with limited
// concurrency regardless of how fast the consumer fetches messages.
type WorkerPoolProcessor struct {
	base   TaskProcessor
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessor(base TaskProcessor, config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessor{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// Process submits the task to the worker pool and waits for its result so
// the caller can decide whether to commit the message offset.
func (p *WorkerPoolProcessor) Process(ctx context.Context, task *shared.SyncTask) error {
	resultChan := make(chan error, 1)

	taskCopy := *task
	err := p.pool.Submit(func() {
		resultChan <- p.base.Process(ctx, &taskCopy)
		close(resultChan)
	})
	if err != nil {
		p.logger.Error("Failed to submit task to worker pool",
			"kind", task.Kind,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (p *WorkerPoolProcessor) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of running workers in the pool.
func (p *WorkerPoolProcessor) Running() int {
	return p.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (p *WorkerPoolProcessor) Capacity() int {
	return p.pool.Cap()
}
