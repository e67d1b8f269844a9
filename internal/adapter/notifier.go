package adapter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/events"
)

// Notifier is the fire-and-forget notification dispatcher port. Callers
// always catch and log errors from Send; a failed notification must never
// roll back ledger state.
type Notifier interface {
	Send(ctx context.Context, kind, recipient string, payload map[string]string) error
}

// KafkaNotifier hands notification requests to the dispatcher via the
// notification topic.
type KafkaNotifier struct {
	producer *events.Producer
	logger   *zap.Logger
}

// NewKafkaNotifier creates a kafka-backed notifier.
func NewKafkaNotifier(producer *events.Producer, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, logger: logger}
}

// Send publishes a NotificationRequested event.
func (n *KafkaNotifier) Send(ctx context.Context, kind, recipient string, payload map[string]string) error {
	evt := events.NotificationRequestedEvent{
		Kind:       kind,
		Recipient:  recipient,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	ce, err := events.NewCloudEvent("service-reservation", events.NotificationRequested, evt)
	if err != nil {
		return err
	}
	return n.producer.PublishEvent(ctx, events.TopicNotificationEvents, ce)
}

// LogNotifier logs instead of dispatching, for development.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification request.
func (n *LogNotifier) Send(ctx context.Context, kind, recipient string, payload map[string]string) error {
	n.logger.Info("[NOTIFY] notification requested",
		zap.String("kind", kind),
		zap.String("recipient", recipient),
		zap.Any("payload", payload),
	)
	return nil
}
