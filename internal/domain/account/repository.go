package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	Save(ctx context.Context, a *Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByReferralCode(ctx context.Context, code string) (*Account, error)
}
