package cart

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for cart items.
type Repository interface {
	FindByOwner(ctx context.Context, owner Owner) ([]*Item, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// SaveIfAbsent persists the item unless a live row with the same owner
	// and slot key already exists. The duplicate check and the insert run
	// inside one transaction so a racing insert is either observed or
	// rejected by the unique constraint. Returns false when skipped.
	SaveIfAbsent(ctx context.Context, item *Item) (bool, error)

	// Update persists an edited item. Returns a conflict error when the new
	// slot key collides with another live row of the same owner.
	Update(ctx context.Context, item *Item) error

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByOwner(ctx context.Context, owner Owner) error

	// DeleteDuplicates removes, for every slot key of the owner mapping to
	// more than one row, all rows except the one with the latest creation
	// timestamp. Returns the number of rows removed.
	DeleteDuplicates(ctx context.Context, owner Owner) (int, error)
}
