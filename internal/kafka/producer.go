package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer streams post-commit domain events (order updates, completed
// sales) to external consumers such as reporting and the SMS scheduler.
// Publishing is fire-and-forget from the core's point of view: callers log
// failures and move on.
type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NoopProducer satisfies the publisher interface when Kafka is disabled
// (single-terminal installs without a broker).
type NoopProducer struct{}

func (NoopProducer) Publish(topic string, key string, value []byte) error { return nil }

func (NoopProducer) Close() error { return nil }
