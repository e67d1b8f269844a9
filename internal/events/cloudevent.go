package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic and event type names shared by producers and consumers.
const (
	TopicPaymentEvents      = "payment.events"
	TopicReservationEvents  = "reservation.events"
	TopicNotificationEvents = "notification.events"

	PaymentCompleted      = "payment.completed"
	ReservationCreated    = "reservation.created"
	NotificationRequested = "notification.requested"
)

// CloudEvent is the envelope every message on the wire uses.
type CloudEvent struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// NewCloudEvent wraps data in an envelope.
func NewCloudEvent(source, eventType string, data interface{}) (CloudEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return CloudEvent{}, err
	}
	return CloudEvent{
		ID:     uuid.New().String(),
		Source: source,
		Type:   eventType,
		Time:   time.Now().UTC(),
		Data:   raw,
	}, nil
}

// ParseCloudEvent decodes an envelope from raw bytes.
func ParseCloudEvent(raw []byte) (CloudEvent, error) {
	var ce CloudEvent
	if err := json.Unmarshal(raw, &ce); err != nil {
		return CloudEvent{}, err
	}
	return ce, nil
}

// ParseData decodes the envelope payload into v.
func (ce CloudEvent) ParseData(v interface{}) error {
	return json.Unmarshal(ce.Data, v)
}

// PaymentCompletedEvent is the deferred-path completion notice. The
// processor may deliver it more than once; every consumer of it must be
// idempotent.
type PaymentCompletedEvent struct {
	SessionID      string      `json:"session_id"`
	BookingIDs     []uuid.UUID `json:"booking_ids"`
	AccountID      *uuid.UUID  `json:"account_id,omitempty"`
	DiscountCode   string      `json:"discount_code,omitempty"`
	PreTotalCents  int64       `json:"pre_total_cents"`
	PostTotalCents int64       `json:"post_total_cents"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// ReservationCreatedEvent announces a successful checkout.
type ReservationCreatedEvent struct {
	BookingIDs    []uuid.UUID `json:"booking_ids"`
	AccountID     *uuid.UUID  `json:"account_id,omitempty"`
	PaymentMethod string      `json:"payment_method"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// NotificationRequestedEvent asks the dispatcher to send a message.
// Best-effort: losing one never affects ledger state.
type NotificationRequestedEvent struct {
	Kind       string            `json:"kind"`
	Recipient  string            `json:"recipient"`
	Payload    map[string]string `json:"payload"`
	OccurredAt time.Time         `json:"occurred_at"`
}
