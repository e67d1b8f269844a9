package cart

import (
	"time"

	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// DateLayout is the canonical calendar-date representation for slot keys.
const DateLayout = "2006-01-02"

// Owner identifies who a cart item belongs to: either an authenticated
// account or an anonymous device. Never both.
type Owner struct {
	accountID   *uuid.UUID
	deviceToken string
}

// AccountOwner creates an Owner for an authenticated account.
func AccountOwner(accountID uuid.UUID) Owner {
	return Owner{accountID: &accountID}
}

// DeviceOwner creates an Owner for an anonymous device token.
func DeviceOwner(token string) Owner {
	return Owner{deviceToken: token}
}

func (o Owner) AccountID() *uuid.UUID { return o.accountID }
func (o Owner) DeviceToken() string   { return o.deviceToken }
func (o Owner) IsAccount() bool       { return o.accountID != nil }

// Key returns a stable string form used as the storage scope for the
// per-owner uniqueness invariant.
func (o Owner) Key() string {
	if o.accountID != nil {
		return "acct:" + o.accountID.String()
	}
	return "dev:" + o.deviceToken
}

// SlotKey is the canonical key for detecting equivalent cart items. Two items
// with the same key represent the same reservation intent.
type SlotKey struct {
	ServiceID uuid.UUID
	Date      string
	TimeSlot  string
}

// NormalizeDate strips sub-day precision, keeping the calendar date as
// represented in the value's own location.
func NormalizeDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Item is an intended reservation not yet committed to a booking.
type Item struct {
	id             uuid.UUID
	owner          Owner
	serviceID      uuid.UUID
	slotDate       string
	timeSlot       string
	attachmentRefs []string
	createdAt      time.Time
}

// NewItem creates a cart item for the given owner and slot.
func NewItem(owner Owner, serviceID uuid.UUID, slotDate time.Time, timeSlot string, attachmentRefs []string) (*Item, error) {
	if serviceID == uuid.Nil {
		return nil, domain.NewValidationError("service id is required")
	}
	if timeSlot == "" {
		return nil, domain.NewValidationError("time slot is required")
	}
	if !owner.IsAccount() && owner.DeviceToken() == "" {
		return nil, domain.NewValidationError("cart owner is required")
	}
	return &Item{
		id:             uuid.New(),
		owner:          owner,
		serviceID:      serviceID,
		slotDate:       NormalizeDate(slotDate),
		timeSlot:       timeSlot,
		attachmentRefs: attachmentRefs,
		createdAt:      time.Now().UTC(),
	}, nil
}

// Reconstitute rebuilds an Item from persisted data.
func Reconstitute(id uuid.UUID, owner Owner, serviceID uuid.UUID, slotDate, timeSlot string, attachmentRefs []string, createdAt time.Time) *Item {
	return &Item{
		id:             id,
		owner:          owner,
		serviceID:      serviceID,
		slotDate:       slotDate,
		timeSlot:       timeSlot,
		attachmentRefs: attachmentRefs,
		createdAt:      createdAt,
	}
}

func (i *Item) ID() uuid.UUID            { return i.id }
func (i *Item) Owner() Owner             { return i.owner }
func (i *Item) ServiceID() uuid.UUID     { return i.serviceID }
func (i *Item) SlotDate() string         { return i.slotDate }
func (i *Item) TimeSlot() string         { return i.timeSlot }
func (i *Item) AttachmentRefs() []string { return i.attachmentRefs }
func (i *Item) CreatedAt() time.Time     { return i.createdAt }

// Key returns the item's canonical slot key.
func (i *Item) Key() SlotKey {
	return SlotKey{ServiceID: i.serviceID, Date: i.slotDate, TimeSlot: i.timeSlot}
}

// Edit mutates the item in place. The caller re-validates the uniqueness
// invariant against the new key, excluding this item.
func (i *Item) Edit(serviceID uuid.UUID, slotDate time.Time, timeSlot string, attachmentRefs []string) error {
	if serviceID == uuid.Nil {
		return domain.NewValidationError("service id is required")
	}
	if timeSlot == "" {
		return domain.NewValidationError("time slot is required")
	}
	i.serviceID = serviceID
	i.slotDate = NormalizeDate(slotDate)
	i.timeSlot = timeSlot
	i.attachmentRefs = attachmentRefs
	return nil
}
