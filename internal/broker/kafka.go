// Package broker publishes contact submissions to a Kafka topic so a
// downstream consumer can persist them.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kataria/backend/internal/model"
)

const headerStorageBackend = "storage-backend"

// ErrNotConfigured is returned by Write on a publisher without brokers.
var ErrNotConfigured = errors.New("broker: not configured")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is a writer tier backed by a synchronous kafka.Writer. A Write
// returns only after the broker acknowledged the message.
type Publisher struct {
	w     messageWriter
	topic string
}

// NewWriter keys messages by submission ID with RequireAll acks; a tier
// write has to be durable before it counts.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           5 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
}

// NewPublisher returns a Publisher. With no brokers or no topic it is
// unconfigured and the writer skips it.
func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return &Publisher{topic: topic}
	}
	return &Publisher{w: NewWriter(brokers, topic), topic: topic}
}

func (p *Publisher) Name() string     { return "kafka" }
func (p *Publisher) Configured() bool { return p.w != nil }

func (p *Publisher) Write(ctx context.Context, s *model.ContactSubmission) error {
	if p.w == nil {
		return ErrNotConfigured
	}
	msg, err := Message(s)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("broker: publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

// Message encodes a submission as a Kafka message keyed by its ID.
func Message(s *model.ContactSubmission) (kafka.Message, error) {
	value, err := json.Marshal(s)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("broker: encode submission: %w", err)
	}
	return kafka.Message{
		Key:   []byte(s.SubmissionID),
		Value: value,
		Time:  s.SubmittedAt,
		Headers: []kafka.Header{
			{Key: headerStorageBackend, Value: []byte(s.StorageBackend)},
		},
	}, nil
}
