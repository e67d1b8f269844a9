package booking

import (
	"time"

	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentMethod tags how a booking is paid.
type PaymentMethod string

const (
	// MethodCash is the immediate, cash-equivalent path: payment is verified
	// synchronously at checkout.
	MethodCash PaymentMethod = "cash"
	// MethodCard is the deferred path: confirmation is driven by provider
	// events delivered at least once.
	MethodCard PaymentMethod = "card"
)

// Contact holds the booking's contact info.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Booking is a committed reservation.
type Booking struct {
	id             uuid.UUID
	serviceID      uuid.UUID
	slotDate       string
	timeSlot       string
	contact        Contact
	paymentMethod  PaymentMethod
	status         Status
	accountID      *uuid.UUID
	attachmentRefs []string
	rating         *int
	ratingComment  string
	createdAt      time.Time
	updatedAt      time.Time
}

// New creates a booking in pending state. Both payment paths start pending;
// only the confirmation routine advances the status.
func New(serviceID uuid.UUID, slotDate, timeSlot string, contact Contact, method PaymentMethod, accountID *uuid.UUID, attachmentRefs []string) (*Booking, error) {
	if serviceID == uuid.Nil {
		return nil, domain.NewValidationError("service id is required")
	}
	if slotDate == "" || timeSlot == "" {
		return nil, domain.NewValidationError("slot date and time slot are required")
	}
	if contact.Name == "" || contact.Phone == "" {
		return nil, domain.NewValidationError("contact name and phone are required")
	}
	if method != MethodCash && method != MethodCard {
		return nil, domain.NewValidationError("unknown payment method")
	}
	now := time.Now().UTC()
	return &Booking{
		id:             uuid.New(),
		serviceID:      serviceID,
		slotDate:       slotDate,
		timeSlot:       timeSlot,
		contact:        contact,
		paymentMethod:  method,
		status:         StatusPending,
		accountID:      accountID,
		attachmentRefs: attachmentRefs,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstitute rebuilds a Booking from persisted data.
func Reconstitute(
	id, serviceID uuid.UUID,
	slotDate, timeSlot string,
	contact Contact,
	method PaymentMethod,
	status Status,
	accountID *uuid.UUID,
	attachmentRefs []string,
	rating *int,
	ratingComment string,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:             id,
		serviceID:      serviceID,
		slotDate:       slotDate,
		timeSlot:       timeSlot,
		contact:        contact,
		paymentMethod:  method,
		status:         status,
		accountID:      accountID,
		attachmentRefs: attachmentRefs,
		rating:         rating,
		ratingComment:  ratingComment,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (b *Booking) ID() uuid.UUID                 { return b.id }
func (b *Booking) ServiceID() uuid.UUID          { return b.serviceID }
func (b *Booking) SlotDate() string              { return b.slotDate }
func (b *Booking) TimeSlot() string              { return b.timeSlot }
func (b *Booking) Contact() Contact              { return b.contact }
func (b *Booking) PaymentMethod() PaymentMethod  { return b.paymentMethod }
func (b *Booking) Status() Status                { return b.status }
func (b *Booking) AccountID() *uuid.UUID         { return b.accountID }
func (b *Booking) AttachmentRefs() []string      { return b.attachmentRefs }
func (b *Booking) Rating() *int                  { return b.rating }
func (b *Booking) RatingComment() string         { return b.ratingComment }
func (b *Booking) CreatedAt() time.Time          { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time          { return b.updatedAt }

// Confirm transitions pending → confirmed.
func (b *Booking) Confirm() error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	b.status = StatusConfirmed
	b.updatedAt = time.Now().UTC()
	return nil
}

// Complete transitions confirmed → completed. Only completed bookings unlock
// rating eligibility.
func (b *Booking) Complete() error {
	if b.status != StatusConfirmed {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	b.status = StatusCompleted
	b.updatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions pending or confirmed → cancelled.
func (b *Booking) Cancel() error {
	if b.status != StatusPending && b.status != StatusConfirmed {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	b.status = StatusCancelled
	b.updatedAt = time.Now().UTC()
	return nil
}

// Rate records a rating on a completed booking.
func (b *Booking) Rate(stars int, comment string) error {
	if b.status != StatusCompleted {
		return domain.NewConflictError("only completed bookings can be rated")
	}
	if stars < 1 || stars > 5 {
		return domain.NewValidationError("rating must be between 1 and 5")
	}
	b.rating = &stars
	b.ratingComment = comment
	b.updatedAt = time.Now().UTC()
	return nil
}
