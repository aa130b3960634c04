package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes sequence events through one synchronous writer. The topic travels on
// each message, and only topics named in the event catalog are accepted. Keys are hashed, so every
// event for a user lands on the same partition.
type KafkaProducer struct {
	writer *kafka.Writer
	topics map[string]struct{}
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	topics := make(map[string]struct{}, len(eventCatalog))
	for _, spec := range eventCatalog {
		topics[spec.Topic] = struct{}{}
	}
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			BatchTimeout: 50 * time.Millisecond,
		},
		topics: topics,
	}
}

// WriteMessages publishes msgs to topic and blocks until the brokers acknowledge them.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if _, ok := p.topics[topic]; !ok {
		return fmt.Errorf("topic %q is not in the event catalog", topic)
	}
	routed := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		msg.Topic = topic
		routed[i] = msg
	}
	return p.writer.WriteMessages(ctx, routed...)
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
