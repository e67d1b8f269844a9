package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for bookings.
type Repository interface {
	Save(ctx context.Context, b *Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, page, limit int) ([]*Booking, int64, error)
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// TransitionStatus atomically moves a booking from one status to another.
	// Returns false without error when the booking is not currently in the
	// `from` status; this is the guard that makes redelivered confirmations
	// safe under arbitrary interleaving.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)

	// Update persists non-status fields (rating, contact edits).
	Update(ctx context.Context, b *Booking) error

	Delete(ctx context.Context, id uuid.UUID) error

	// CountForSlot returns the number of non-cancelled bookings for a slot.
	// Advisory only; capacity is never enforced here.
	CountForSlot(ctx context.Context, serviceID uuid.UUID, slotDate, timeSlot string) (int64, error)

	// CountByStatus returns the number of bookings per status.
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
