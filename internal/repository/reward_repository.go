package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowbook/service-reservation/internal/domain"
	rewardDomain "github.com/glowbook/service-reservation/internal/domain/reward"
)

// ReferralRewardModel is the GORM persistence model for referral_rewards.
// The unique index on referred_account_id is the lifetime at-most-once
// guarantee: no matter how the crediting code races, the second insert for
// the same referred account cannot commit.
type ReferralRewardModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReferrerID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ReferredAccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	BookingID         uuid.UUID `gorm:"type:uuid;not null"`
	Points            int64     `gorm:"not null"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (ReferralRewardModel) TableName() string { return "referral_rewards" }

// GormRewardLedger implements reward.Ledger using GORM.
type GormRewardLedger struct {
	db *gorm.DB
}

// NewGormRewardLedger creates a GORM-based reward ledger.
func NewGormRewardLedger(db *gorm.DB) *GormRewardLedger {
	return &GormRewardLedger{db: db}
}

// ExistsForReferred reports whether the account has already triggered a
// reward.
func (l *GormRewardLedger) ExistsForReferred(ctx context.Context, referredAccountID uuid.UUID) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&ReferralRewardModel{}).
		Where("referred_account_id = ?", referredAccountID).
		Count(&count).Error
	return count > 0, err
}

// Credit runs the reward insert and the referrer balance increments in one
// transaction. Insert first: if the referred-account unique constraint
// rejects the row, the transaction rolls back before any balance moved, so a
// lost race can never leave a half-applied credit.
func (l *GormRewardLedger) Credit(ctx context.Context, r *rewardDomain.ReferralReward) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ReferralRewardModel{
			ID:                r.ID,
			ReferrerID:        r.ReferrerID,
			ReferredAccountID: r.ReferredAccountID,
			BookingID:         r.BookingID,
			Points:            r.Points,
			CreatedAt:         r.CreatedAt,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&AccountModel{}).Where("id = ?", r.ReferrerID).
			Updates(map[string]interface{}{
				"points":        gorm.Expr("points + ?", r.Points),
				"referral_uses": gorm.Expr("referral_uses + 1"),
				"updated_at":    time.Now().UTC(),
			}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("referral reward already credited for this account")
	}
	return err
}

// TotalPoints returns the account's current point balance.
func (l *GormRewardLedger) TotalPoints(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var model AccountModel
	if err := l.db.WithContext(ctx).Select("points").Where("id = ?", accountID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.NewNotFoundError("Account", accountID.String())
		}
		return 0, err
	}
	return model.Points, nil
}
