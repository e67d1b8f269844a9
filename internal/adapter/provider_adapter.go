package adapter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentProvider is the anti-corruption layer over the external payment
// processor. The deferred path hands a checkout session to the client; the
// processor later reports completion through the webhook or event topic.
type PaymentProvider interface {
	// CreateCheckoutSession registers a deferred payment for the booking set
	// and returns the provider session id plus the client-facing URL.
	CreateCheckoutSession(ctx context.Context, bookingIDs []uuid.UUID, amountCents int64, customerEmail string) (sessionID, checkoutURL string, err error)

	// CancelSession voids an unpaid session.
	CancelSession(ctx context.Context, sessionID string) error
}

// MockPaymentProvider simulates the processor for development and tests.
type MockPaymentProvider struct {
	logger *zap.Logger
}

// NewMockPaymentProvider creates a mock provider.
func NewMockPaymentProvider(logger *zap.Logger) *MockPaymentProvider {
	return &MockPaymentProvider{logger: logger}
}

// CreateCheckoutSession returns mock session identifiers.
func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, bookingIDs []uuid.UUID, amountCents int64, customerEmail string) (string, string, error) {
	sessionID := fmt.Sprintf("cs_mock_%s", uuid.New().String()[:8])
	url := fmt.Sprintf("https://pay.example.test/s/%s", sessionID)

	m.logger.Info("[MOCK PROVIDER] checkout session created",
		zap.String("session_id", sessionID),
		zap.Int("bookings", len(bookingIDs)),
		zap.Int64("amount_cents", amountCents),
		zap.String("customer_email", customerEmail),
	)
	return sessionID, url, nil
}

// CancelSession logs the cancellation.
func (m *MockPaymentProvider) CancelSession(ctx context.Context, sessionID string) error {
	m.logger.Info("[MOCK PROVIDER] checkout session cancelled",
		zap.String("session_id", sessionID),
	)
	return nil
}
