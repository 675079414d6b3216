package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// Publisher emits sync lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded events to a single Kafka topic, keyed so
// messages for one athlete stay ordered within a partition.
type Producer struct {
	writer messageWriter
	logger *log.Logger
}

// ProducerOption configures producer behaviour.
type ProducerOption func(*Producer)

// WithProducerLogger sets a custom logger.
func WithProducerLogger(l *log.Logger) ProducerOption {
	return func(p *Producer) { p.logger = l }
}

// NewProducer constructs a Producer writing to topic on the given brokers.
func NewProducer(brokers []string, topic string, opts ...ProducerOption) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return newProducer(writer, opts...)
}

func newProducer(writer messageWriter, opts ...ProducerOption) *Producer {
	p := &Producer{writer: writer, logger: log.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish encodes payload as JSON and writes it with an event_type header.
func (p *Producer) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}
	p.logger.Printf("published (type=%s key=%s)", eventType, key)
	return nil
}

// Close releases the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
