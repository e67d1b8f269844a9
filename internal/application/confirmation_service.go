package application

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/adapter"
	"github.com/glowbook/service-reservation/internal/domain"
	bookingDomain "github.com/glowbook/service-reservation/internal/domain/booking"
	"github.com/glowbook/service-reservation/internal/domain/promo"
)

// PaymentConfirmation is the normalized form both confirmation paths reduce
// to: the synchronous cash path and the deferred provider path (webhook or
// payment event) all converge on ConfirmPayment with one of these.
type PaymentConfirmation struct {
	SessionID      string
	BookingIDs     []uuid.UUID
	AccountID      *uuid.UUID
	PayerContact   string
	DiscountCode   string
	PreTotalCents  int64
	PostTotalCents int64
}

// ConfirmationResult reports, per booking, what this delivery did.
type ConfirmationResult struct {
	ConfirmedBookingIDs []uuid.UUID    `json:"confirmed_booking_ids"`
	AlreadyConfirmedIDs []uuid.UUID    `json:"already_confirmed_ids,omitempty"`
	SkippedCancelledIDs []uuid.UUID    `json:"skipped_cancelled_ids,omitempty"`
	Reward              *RewardOutcome `json:"-"`
}

// ConfirmationService is the single routine every payment confirmation goes
// through, however it arrived. Deliveries are at-least-once; every step is
// guarded so reprocessing the same confirmation is a no-op.
type ConfirmationService struct {
	bookingRepo bookingDomain.Repository
	promoRepo   promo.Repository
	rewardSvc   *RewardService
	notifier    adapter.Notifier
	logger      *zap.Logger
}

// NewConfirmationService creates a new ConfirmationService.
func NewConfirmationService(
	bookingRepo bookingDomain.Repository,
	promoRepo promo.Repository,
	rewardSvc *RewardService,
	notifier adapter.Notifier,
	logger *zap.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		bookingRepo: bookingRepo,
		promoRepo:   promoRepo,
		rewardSvc:   rewardSvc,
		notifier:    notifier,
		logger:      logger,
	}
}

// ConfirmPayment moves the bookings pending → confirmed and applies the
// payment's side effects. The status transition is conditional, so the first
// delivery wins and every later one observes already-confirmed. Side effects
// run whenever at least one booking is (or already was) confirmed: each one
// carries its own idempotency guard, so a crash between the transition and a
// side effect is healed by the next redelivery instead of double-applying.
func (s *ConfirmationService) ConfirmPayment(ctx context.Context, conf PaymentConfirmation) (*ConfirmationResult, error) {
	if len(conf.BookingIDs) == 0 {
		return nil, domain.NewValidationError("confirmation carries no booking ids")
	}

	result := &ConfirmationResult{}
	for _, id := range conf.BookingIDs {
		transitioned, err := s.bookingRepo.TransitionStatus(ctx, id, bookingDomain.StatusPending, bookingDomain.StatusConfirmed)
		if err != nil {
			return nil, err
		}
		if transitioned {
			result.ConfirmedBookingIDs = append(result.ConfirmedBookingIDs, id)
			continue
		}

		b, err := s.bookingRepo.FindByID(ctx, id)
		if err != nil {
			s.logger.Warn("confirmation references unknown booking",
				zap.String("booking_id", id.String()),
				zap.String("session_id", conf.SessionID),
			)
			continue
		}
		switch b.Status() {
		case bookingDomain.StatusCancelled:
			// Cancelled before the payment notice landed; the money side is
			// the provider's refund flow, never a resurrection here.
			result.SkippedCancelledIDs = append(result.SkippedCancelledIDs, id)
		default:
			result.AlreadyConfirmedIDs = append(result.AlreadyConfirmedIDs, id)
		}
	}

	if len(result.ConfirmedBookingIDs) == 0 && len(result.AlreadyConfirmedIDs) == 0 {
		s.logger.Info("confirmation had no effect, all bookings cancelled or unknown",
			zap.String("session_id", conf.SessionID),
		)
		return result, nil
	}

	if err := s.recordDiscountUsage(ctx, conf); err != nil {
		return nil, err
	}

	if conf.AccountID != nil {
		outcome, err := s.rewardSvc.CreditReferralIfEligible(ctx, *conf.AccountID, conf.BookingIDs[0])
		if err != nil {
			return nil, err
		}
		result.Reward = outcome
	}

	s.notifyConfirmed(ctx, conf, result)

	s.logger.Info("payment confirmation processed",
		zap.String("session_id", conf.SessionID),
		zap.Int("confirmed", len(result.ConfirmedBookingIDs)),
		zap.Int("already_confirmed", len(result.AlreadyConfirmedIDs)),
		zap.Int("skipped_cancelled", len(result.SkippedCancelledIDs)),
	)
	return result, nil
}

// recordDiscountUsage writes the usage row for the checkout's code, at most
// once. The row is keyed to the checkout's first booking, and the unique
// index on that key makes a redelivered write a silent skip. The code's
// redemption counter only moves when the row actually inserted.
func (s *ConfirmationService) recordDiscountUsage(ctx context.Context, conf PaymentConfirmation) error {
	if conf.DiscountCode == "" {
		return nil
	}

	code, err := s.promoRepo.FindByCode(ctx, conf.DiscountCode)
	if err != nil {
		s.logger.Warn("confirmation references unknown discount code",
			zap.String("code", conf.DiscountCode),
			zap.String("session_id", conf.SessionID),
		)
		return nil
	}

	usage := &promo.Usage{
		ID:             uuid.New(),
		CodeID:         code.ID(),
		AccountID:      conf.AccountID,
		PayerContact:   conf.PayerContact,
		BookingID:      conf.BookingIDs[0],
		DiscountCents:  conf.PreTotalCents - conf.PostTotalCents,
		PreTotalCents:  conf.PreTotalCents,
		PostTotalCents: conf.PostTotalCents,
		UsedAt:         time.Now().UTC(),
	}

	inserted, err := s.promoRepo.SaveUsageIfAbsent(ctx, usage)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	code.IncrementUses()
	return s.promoRepo.Update(ctx, code)
}

// notifyConfirmed asks the dispatcher to tell the customer, and the referrer
// when a reward was credited on this delivery. Best-effort: failures are
// logged and never fail the confirmation.
func (s *ConfirmationService) notifyConfirmed(ctx context.Context, conf PaymentConfirmation, result *ConfirmationResult) {
	if len(result.ConfirmedBookingIDs) > 0 {
		recipient := conf.PayerContact
		if conf.AccountID != nil {
			recipient = conf.AccountID.String()
		}
		payload := map[string]string{
			"session_id":    conf.SessionID,
			"booking_count": strconv.Itoa(len(result.ConfirmedBookingIDs)),
		}
		if err := s.notifier.Send(ctx, "booking.confirmed", recipient, payload); err != nil {
			s.logger.Warn("confirmation notification failed",
				zap.String("session_id", conf.SessionID),
				zap.Error(err),
			)
		}
	}

	if result.Reward == nil || result.Reward.Status != RewardCredited {
		return
	}
	rewardPayload := map[string]string{
		"points_earned": strconv.FormatInt(result.Reward.PointsEarned, 10),
		"total_points":  strconv.FormatInt(result.Reward.TotalPoints, 10),
	}
	if err := s.notifier.Send(ctx, "reward.credited", result.Reward.ReferrerID.String(), rewardPayload); err != nil {
		s.logger.Warn("reward notification failed",
			zap.String("referrer_id", result.Reward.ReferrerID.String()),
			zap.Error(err),
		)
	}
}
