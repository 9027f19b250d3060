package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes sync tasks to their level topic.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher routes terminally failed tasks to the DLQ topic.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter abstracts the kafka.Writer so producers can be tested with
// an in-memory fake.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
