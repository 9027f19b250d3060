package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/matteobad/badget-sync/internal/config"
	"github.com/segmentio/kafka-go"
)

// SyncTaskProducer publishes sync task envelopes to the sync topic. Messages
// are keyed (connection or account id) so tasks for the same entity stay on
// one partition and are consumed in order.
type SyncTaskProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSyncTaskProducer creates the producer and ensures the sync topic exists
func NewSyncTaskProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SyncTaskProducer, error) {
	if cfg.SyncTopic == "" {
		return nil, fmt.Errorf("kafka sync topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for sync task producer: %w", err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, cfg.SyncTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure sync topic %s exists: %w", cfg.SyncTopic, err)
	}

	writer := &kafka.Writer{
		Addr: kafka.TCP(cfg.Brokers),
		Topic: cfg.SyncTopic,
		// Hash balancer keeps same-key tasks on one partition, which is what
		// gives per-account ordering between upsert batches and recalculation.
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &SyncTaskProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SyncTopic,
	}, nil
}

// Publish marshals the value and writes it under the given key
func (p *SyncTaskProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal sync task: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish sync task",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish sync task to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published sync task", "topic", p.topic, "key", key)
	return nil
}

func (p *SyncTaskProducer) Close() error {
	p.logger.Info("Closing sync task producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close sync task writer for topic %s: %w", p.topic, err)
	}
	return nil
}
