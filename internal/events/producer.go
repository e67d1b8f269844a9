package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes CloudEvents to kafka topics.
type Producer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewProducer creates a producer for the given brokers.
func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireOne,
		},
		logger: logger,
	}
}

// PublishEvent writes one envelope to the topic, keyed by event id.
func (p *Producer) PublishEvent(ctx context.Context, topic string, ce CloudEvent) error {
	value, err := json.Marshal(ce)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(ce.ID),
		Value: value,
	})
	if err != nil {
		return err
	}
	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("type", ce.Type),
		zap.String("id", ce.ID),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
