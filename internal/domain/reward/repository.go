package reward

import (
	"context"

	"github.com/google/uuid"
)

// Ledger defines the idempotency-critical persistence operations for
// referral rewards.
type Ledger interface {
	// ExistsForReferred reports whether a reward row already references the
	// account as the referred party.
	ExistsForReferred(ctx context.Context, referredAccountID uuid.UUID) (bool, error)

	// Credit inserts the reward row and increments the referrer's point
	// balance and referral-use counter in one atomic transaction. When the
	// insert loses a race on the referred-account unique constraint the
	// whole transaction rolls back, so the increments never happened, and a
	// conflict error is returned.
	Credit(ctx context.Context, r *ReferralReward) error

	// TotalPoints returns the referrer's balance after crediting.
	TotalPoints(ctx context.Context, accountID uuid.UUID) (int64, error)
}
