//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/domain/cart"
	"github.com/glowbook/service-reservation/internal/events"
	"github.com/glowbook/service-reservation/internal/repository"
)

// TestPaymentCompleted_RedeliveredThrice_CreditsOnce verifies the core
// at-most-once guarantee under the broker's at-least-once delivery: the same
// payment.completed event delivered three times confirms the booking once and
// credits the referrer exactly one reward.
func TestPaymentCompleted_RedeliveredThrice_CreditsOnce(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupReservationStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	referrerID := seedAccount(t, infra.DB, "referrer@example.com", "REFER001", nil)
	referredID := seedAccount(t, infra.DB, "referred@example.com", "REFER002", &referrerID)
	bookingID := seedPendingBooking(t, infra.DB, &referredID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Consume(ctx, stack.Handler.Handle) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := events.PaymentCompletedEvent{
		SessionID:      "cs_integ_1",
		BookingIDs:     []uuid.UUID{bookingID},
		AccountID:      &referredID,
		PreTotalCents:  10000,
		PostTotalCents: 10000,
		OccurredAt:     time.Now().UTC(),
	}
	for i := 0; i < 3; i++ {
		publishTestEvent(t, infra.KafkaBrokers, events.TopicPaymentEvents,
			"payment-processor", events.PaymentCompleted, evt)
	}

	// Assert: booking confirmed.
	model := waitForBookingStatus(t, infra.DB, bookingID, "confirmed", 20*time.Second)
	assert.Equal(t, "card", model.PaymentMethod)

	// Assert: exactly one reward row, balance credited once. Poll past the
	// redeliveries to catch a late double-credit.
	require.Eventually(t, func() bool {
		var count int64
		infra.DB.Model(&repository.ReferralRewardModel{}).
			Where("referred_account_id = ?", referredID).Count(&count)
		return count == 1
	}, 15*time.Second, 200*time.Millisecond, "expected one reward row")
	time.Sleep(2 * time.Second)

	var rewardCount int64
	require.NoError(t, infra.DB.Model(&repository.ReferralRewardModel{}).
		Where("referred_account_id = ?", referredID).Count(&rewardCount).Error)
	assert.Equal(t, int64(1), rewardCount)

	var referrer repository.AccountModel
	require.NoError(t, infra.DB.Where("id = ?", referrerID).First(&referrer).Error)
	assert.Equal(t, int64(100), referrer.Points, "points credited exactly once across redeliveries")
	assert.Equal(t, 1, referrer.ReferralUses)
}

// TestCashCheckout_ConfirmsSynchronously verifies the immediate path: a cash
// checkout consumes the cart, creates bookings, and confirms them inline
// through the same confirmation routine.
func TestCashCheckout_ConfirmsSynchronously(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupReservationStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	accountID := seedAccount(t, infra.DB, "buyer@example.com", "BUYER001", nil)
	owner := cart.AccountOwner(accountID)

	_, err := stack.CartSvc.AddItem(context.Background(), owner, application.CartItemRequest{
		ServiceID: uuid.New(), SlotDate: "2026-09-20", TimeSlot: "14:00-15:00",
	})
	require.NoError(t, err)

	resp, err := stack.BookingSvc.Checkout(context.Background(), owner, application.CheckoutRequest{
		PaymentMethod: "cash",
		ContactName:   "Buyer",
		ContactPhone:  "+60123456789",
		TotalCents:    5000,
	})
	require.NoError(t, err)
	require.Len(t, resp.BookingIDs, 1)
	assert.Equal(t, "confirmed", resp.Status)

	model := waitForBookingStatus(t, infra.DB, resp.BookingIDs[0], "confirmed", 5*time.Second)
	assert.Equal(t, "cash", model.PaymentMethod)

	// The cart was consumed by the checkout.
	items, err := stack.CartSvc.ListItems(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// TestCancelledBooking_IgnoresLatePayment verifies that a payment notice
// arriving after a staff cancellation does not resurrect the booking.
func TestCancelledBooking_IgnoresLatePayment(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupReservationStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	bookingID := seedPendingBooking(t, infra.DB, nil)
	_, err := stack.BookingSvc.CancelBooking(context.Background(), bookingID)
	require.NoError(t, err)

	result, err := stack.ConfirmSvc.ConfirmPayment(context.Background(), application.PaymentConfirmation{
		SessionID:  "cs_late",
		BookingIDs: []uuid.UUID{bookingID},
	})
	require.NoError(t, err)
	assert.Empty(t, result.ConfirmedBookingIDs)
	assert.Equal(t, []uuid.UUID{bookingID}, result.SkippedCancelledIDs)

	var model repository.BookingModel
	require.NoError(t, infra.DB.Where("id = ?", bookingID).First(&model).Error)
	assert.Equal(t, "cancelled", model.Status)
}
