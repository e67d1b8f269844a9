package application

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/events"
)

// PaymentEventHandler routes payment-topic messages into the confirmation
// routine. Offsets commit only after handling succeeds, so the broker
// redelivers on failure; the confirmation routine absorbs the duplicates.
type PaymentEventHandler struct {
	confirmSvc *ConfirmationService
	logger     *zap.Logger
}

// NewPaymentEventHandler creates a handler for the payment events topic.
func NewPaymentEventHandler(confirmSvc *ConfirmationService, logger *zap.Logger) *PaymentEventHandler {
	return &PaymentEventHandler{confirmSvc: confirmSvc, logger: logger}
}

// Handle processes one message from the payment events topic.
func (h *PaymentEventHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	ce, err := events.ParseCloudEvent(msg.Value)
	if err != nil {
		// Unparseable messages are dropped, not retried; redelivery cannot fix them.
		h.logger.Error("dropping malformed payment event", zap.Error(err))
		return nil
	}

	switch ce.Type {
	case events.PaymentCompleted:
		return h.handlePaymentCompleted(ctx, ce)
	default:
		h.logger.Debug("ignoring payment event type", zap.String("type", ce.Type))
		return nil
	}
}

func (h *PaymentEventHandler) handlePaymentCompleted(ctx context.Context, ce events.CloudEvent) error {
	var evt events.PaymentCompletedEvent
	if err := ce.ParseData(&evt); err != nil {
		h.logger.Error("dropping malformed payment.completed payload",
			zap.String("event_id", ce.ID),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Info("payment.completed received",
		zap.String("event_id", ce.ID),
		zap.String("session_id", evt.SessionID),
		zap.Int("booking_count", len(evt.BookingIDs)),
	)

	_, err := h.confirmSvc.ConfirmPayment(ctx, PaymentConfirmation{
		SessionID:      evt.SessionID,
		BookingIDs:     evt.BookingIDs,
		AccountID:      evt.AccountID,
		DiscountCode:   evt.DiscountCode,
		PreTotalCents:  evt.PreTotalCents,
		PostTotalCents: evt.PostTotalCents,
	})
	return err
}
