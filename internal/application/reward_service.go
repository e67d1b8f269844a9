package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/glowbook/service-reservation/internal/domain/account"
	"github.com/glowbook/service-reservation/internal/domain/reward"
)

// RewardStatus classifies the outcome of a crediting attempt.
type RewardStatus string

const (
	RewardCredited        RewardStatus = "credited"
	RewardAlreadyCredited RewardStatus = "already_credited"
	RewardNotReferred     RewardStatus = "not_referred"
)

// RewardOutcome reports what a crediting attempt did. Every redelivery of the
// same qualifying payment gets AlreadyCredited, never a second credit.
type RewardOutcome struct {
	Status       RewardStatus
	ReferrerID   *uuid.UUID
	PointsEarned int64
	TotalPoints  int64
}

// RewardService credits referral rewards exactly once per referred account.
type RewardService struct {
	ledger      reward.Ledger
	accountRepo account.Repository
	points      int64
	logger      *zap.Logger
}

// NewRewardService creates a new RewardService.
func NewRewardService(ledger reward.Ledger, accountRepo account.Repository, points int64, logger *zap.Logger) *RewardService {
	return &RewardService{
		ledger:      ledger,
		accountRepo: accountRepo,
		points:      points,
		logger:      logger,
	}
}

// CreditReferralIfEligible credits the referrer of the given account if this
// is the account's first confirmed payment. The fast path reads the ledger;
// the unique constraint inside Credit is what actually holds the at-most-once
// line when two deliveries race past the read.
func (s *RewardService) CreditReferralIfEligible(ctx context.Context, referredAccountID, bookingID uuid.UUID) (*RewardOutcome, error) {
	acct, err := s.accountRepo.FindByID(ctx, referredAccountID)
	if err != nil {
		return nil, err
	}

	referrerID := acct.ReferredBy()
	if referrerID == nil {
		return &RewardOutcome{Status: RewardNotReferred}, nil
	}

	exists, err := s.ledger.ExistsForReferred(ctx, referredAccountID)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.alreadyCredited(ctx, *referrerID)
	}

	r := reward.New(*referrerID, referredAccountID, bookingID, s.points)
	if err := s.ledger.Credit(ctx, r); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race to a concurrent delivery; the winner's credit stands.
			return s.alreadyCredited(ctx, *referrerID)
		}
		return nil, err
	}

	total, err := s.ledger.TotalPoints(ctx, *referrerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("referral reward credited",
		zap.String("referrer_id", referrerID.String()),
		zap.String("referred_account_id", referredAccountID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Int64("points", s.points),
	)
	return &RewardOutcome{
		Status:       RewardCredited,
		ReferrerID:   referrerID,
		PointsEarned: s.points,
		TotalPoints:  total,
	}, nil
}

func (s *RewardService) alreadyCredited(ctx context.Context, referrerID uuid.UUID) (*RewardOutcome, error) {
	total, err := s.ledger.TotalPoints(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	return &RewardOutcome{
		Status:      RewardAlreadyCredited,
		ReferrerID:  &referrerID,
		TotalPoints: total,
	}, nil
}
