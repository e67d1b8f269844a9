package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one kafka message. Returning an error leaves the
// offset uncommitted so the message is redelivered.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Consumer is a kafka group consumer.
type Consumer struct {
	reader *kafkago.Reader
	logger *zap.Logger
}

// NewConsumer creates a group consumer for one topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger: logger,
	}
}

// Consume fetches messages and hands them to the handler, committing only
// after the handler succeeds. At-least-once: a crash between handling and
// commit redelivers the message.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := handler(ctx, msg); err != nil {
			c.logger.Error("message handling failed, leaving offset uncommitted",
				zap.String("topic", msg.Topic),
				zap.Error(err),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit offset", zap.Error(err))
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
