package reward

import (
	"time"

	"github.com/google/uuid"
)

// ReferralReward is an immutable record crediting points to a referrer for a
// referred account's first completed payment. At most one row exists per
// referred account for that account's lifetime. The row's existence, not a
// flag on the account, answers "has this account ever triggered a reward",
// which survives a crash between the point increment and any flag write.
type ReferralReward struct {
	ID                uuid.UUID
	ReferrerID        uuid.UUID
	ReferredAccountID uuid.UUID
	BookingID         uuid.UUID
	Points            int64
	CreatedAt         time.Time
}

// New creates a reward record for a qualifying payment.
func New(referrerID, referredAccountID, bookingID uuid.UUID, points int64) *ReferralReward {
	return &ReferralReward{
		ID:                uuid.New(),
		ReferrerID:        referrerID,
		ReferredAccountID: referredAccountID,
		BookingID:         bookingID,
		Points:            points,
		CreatedAt:         time.Now().UTC(),
	}
}
