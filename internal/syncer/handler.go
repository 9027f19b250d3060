package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matteobad/badget-sync/internal/domain/account"
	"github.com/matteobad/badget-sync/internal/domain/connection"
	"github.com/matteobad/badget-sync/internal/domain/shared"
	"github.com/matteobad/badget-sync/internal/platform/messaging/producers"
	"github.com/matteobad/badget-sync/internal/provider"
)

// TaskEventHandler consumes sync task messages: it runs them through the
// processor, republishes transient failures with an incremented attempt
// counter and dead-letters terminal or exhausted tasks.
type TaskEventHandler struct {
	processor TaskProcessor
	publisher TaskPublisher
	dlq       producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewTaskEventHandler(
	logger *slog.Logger,
	processor TaskProcessor,
	publisher TaskPublisher,
	dlq producers.DeadLetterPublisher,
) *TaskEventHandler {
	return &TaskEventHandler{
		processor: processor,
		publisher: publisher,
		dlq:       dlq,
		logger:    logger,
	}
}

// HandleMessage processes one Kafka message. A nil return commits the
// offset; an error leaves it uncommitted for redelivery.
func (h *TaskEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var task shared.SyncTask
	if err := json.Unmarshal(value, &task); err != nil {
		h.logger.Error("Failed to unmarshal sync task", "error", err, "message_key", string(key))
		return h.deadLetter(ctx, key, value, string(shared.FailureReasonInvalidPayload), err)
	}

	logger := h.logger.With("kind", task.Kind, "attempt", task.Attempts, "message_key", string(key))
	logger.Debug("Received sync task")

	err := h.processor.Process(ctx, &task)
	if err == nil {
		logger.Debug("Sync task completed")
		return nil
	}

	if reason, terminal := classify(err); terminal {
		logger.Warn("Sync task failed terminally", "reason", reason, "error", err)
		return h.deadLetter(ctx, key, value, string(reason), err)
	}

	if task.Attempts >= shared.MaxTaskAttempts {
		logger.Warn("Sync task exhausted its attempts", "error", err)
		return h.deadLetter(ctx, key, value, string(shared.FailureReasonMaxAttemptsReached), err)
	}

	task.Attempts++
	if pubErr := h.publisher.Publish(ctx, string(key), &task); pubErr != nil {
		logger.Error("Failed to republish sync task for retry", "error", pubErr)
		// Offset stays uncommitted, the original delivery will come back.
		return fmt.Errorf("failed to republish task for retry: %w", pubErr)
	}

	logger.Info("Republished sync task for retry", "next_attempt", task.Attempts, "error", err)
	return nil
}

// deadLetter records a terminal failure. If the DLQ write fails the error is
// returned so the offset stays uncommitted.
func (h *TaskEventHandler) deadLetter(ctx context.Context, key []byte, value []byte, reason string, cause error) error {
	if h.dlq == nil {
		h.logger.Error("Dropping terminal sync task, DLQ disabled", "reason", reason, "error", cause)
		return nil
	}

	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if err := h.dlq.PublishToDLQ(ctx, string(key), value, dlqReason); err != nil {
		h.logger.Error("Failed to publish sync task to DLQ", "reason", reason, "error", err)
		return fmt.Errorf("failed to dead-letter task: %w", err)
	}
	return nil
}

// classify maps an error to a terminal failure reason. Anything not listed
// is treated as transient and retried.
func classify(err error) (shared.FailureReason, bool) {
	var accNotFound account.ErrAccountNotFound
	if errors.As(err, &accNotFound) {
		return shared.FailureReasonAccountNotFound, true
	}
	var connNotFound connection.ErrConnectionNotFound
	if errors.As(err, &connNotFound) {
		return shared.FailureReasonConnectionNotFound, true
	}
	if errors.Is(err, provider.ErrUnknownProvider) {
		return shared.FailureReasonProviderUnknown, true
	}
	if errors.Is(err, provider.ErrDisconnected) {
		return shared.FailureReasonDisconnected, true
	}
	return shared.FailureReasonUnknownError, false
}
