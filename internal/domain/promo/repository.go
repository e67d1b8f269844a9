package promo

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for discount codes and usages.
type Repository interface {
	Save(ctx context.Context, c *Code) error
	Update(ctx context.Context, c *Code) error
	FindByCode(ctx context.Context, code string) (*Code, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Code, error)
	FindActive(ctx context.Context) ([]*Code, error)

	// SaveUsageIfAbsent records one redemption unless a usage row already
	// references the booking. Returns false when skipped (redelivery).
	SaveUsageIfAbsent(ctx context.Context, usage *Usage) (bool, error)

	HasBookingUsage(ctx context.Context, bookingID uuid.UUID) (bool, error)
	HasAccountUsedCode(ctx context.Context, codeID, accountID uuid.UUID) (bool, error)
}
