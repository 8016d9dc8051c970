package core

import (
	"context"
	"encoding/json"

	kafka "github.com/segmentio/kafka-go"
)

// EventLog appends product events to a durable log. The primary store
// remains the source of truth; the log is an advisory projection.
type EventLog interface {
	Append(ctx context.Context, event ProductEvent) error
	Close() error
}

// kafkaWriter is the narrow slice of kafka.Writer used, so tests can
// substitute a recording fake.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventLog appends events to a Kafka topic.
type KafkaEventLog struct {
	writer kafkaWriter
}

func NewKafkaEventLog(brokers []string, topic string) *KafkaEventLog {
	return &KafkaEventLog{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}}
}

// NewKafkaEventLogWithWriter wires a custom writer; used by tests.
func NewKafkaEventLogWithWriter(w kafkaWriter) *KafkaEventLog {
	return &KafkaEventLog{writer: w}
}

// Append writes the event keyed by product id, so per-product ordering is
// preserved within a partition.
func (l *KafkaEventLog) Append(ctx context.Context, event ProductEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return l.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ProductID),
		Value: value,
	})
}

func (l *KafkaEventLog) Close() error {
	return l.writer.Close()
}

// NoopEventLog is used when the event log is disabled by configuration.
type NoopEventLog struct{}

func (NoopEventLog) Append(ctx context.Context, event ProductEvent) error { return nil }
func (NoopEventLog) Close() error                                         { return nil }
