package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/glowbook/service-reservation/internal/domain"
	bookingDomain "github.com/glowbook/service-reservation/internal/domain/booking"
)

// BookingModel is the GORM persistence model for the bookings table.
type BookingModel struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	ServiceID      uuid.UUID                   `gorm:"type:uuid;not null;index:ix_bookings_slot,priority:1"`
	SlotDate       string                      `gorm:"type:varchar(10);not null;index:ix_bookings_slot,priority:2"`
	TimeSlot       string                      `gorm:"type:varchar(40);not null;index:ix_bookings_slot,priority:3"`
	ContactName    string                      `gorm:"type:varchar(120);not null"`
	ContactPhone   string                      `gorm:"type:varchar(40);not null"`
	ContactEmail   string                      `gorm:"type:varchar(255)"`
	PaymentMethod  string                      `gorm:"type:varchar(20);not null"`
	Status         string                      `gorm:"type:varchar(20);not null;index"`
	AccountID      *uuid.UUID                  `gorm:"type:uuid;index"`
	AttachmentRefs datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Rating         *int                        `gorm:"type:smallint"`
	RatingComment  string                      `gorm:"type:text"`
	CreatedAt      time.Time                   `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time                   `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (BookingModel) TableName() string { return "bookings" }

// GormBookingRepository implements booking.Repository using GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a GORM-based booking repository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Save inserts a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, b *bookingDomain.Booking) error {
	return r.db.WithContext(ctx).Create(toBookingModel(b)).Error
}

// FindByID returns one booking.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, err
	}
	return toBookingDomain(&model), nil
}

// FindByAccount returns the account's bookings, newest first, with the total
// count for pagination.
func (r *GormBookingRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&BookingModel{}).Where("account_id = ?", accountID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []BookingModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return toBookingDomainSlice(models), total, nil
}

// ListAll returns all bookings, newest first, for the staff views.
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return toBookingDomainSlice(models), total, nil
}

// TransitionStatus performs a conditional update: the row moves to `to` only
// if it is still in `from`. RowsAffected == 0 means some other delivery of
// the same confirmation (or a cancellation) got there first.
func (r *GormBookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to bookingDomain.Status) (bool, error) {
	result := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Update persists non-status fields.
func (r *GormBookingRepository) Update(ctx context.Context, b *bookingDomain.Booking) error {
	model := toBookingModel(b)
	return r.db.WithContext(ctx).Model(&BookingModel{}).Where("id = ?", b.ID()).
		Select("ContactName", "ContactPhone", "ContactEmail", "AttachmentRefs", "Rating", "RatingComment", "UpdatedAt").
		Updates(model).Error
}

// Delete removes a booking.
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&BookingModel{}).Error
}

// CountForSlot counts non-cancelled bookings holding the slot.
func (r *GormBookingRepository) CountForSlot(ctx context.Context, serviceID uuid.UUID, slotDate, timeSlot string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("service_id = ? AND slot_date = ? AND time_slot = ? AND status <> ?",
			serviceID, slotDate, timeSlot, string(bookingDomain.StatusCancelled)).
		Count(&count).Error
	return count, err
}

// CountByStatus groups the bookings table by status.
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[bookingDomain.Status]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[bookingDomain.Status]int64, len(rows))
	for _, row := range rows {
		counts[bookingDomain.Status(row.Status)] = row.Count
	}
	return counts, nil
}

func toBookingDomainSlice(models []BookingModel) []*bookingDomain.Booking {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bookings[i] = toBookingDomain(&models[i])
	}
	return bookings
}

func toBookingDomain(m *BookingModel) *bookingDomain.Booking {
	return bookingDomain.Reconstitute(
		m.ID, m.ServiceID,
		m.SlotDate, m.TimeSlot,
		bookingDomain.Contact{Name: m.ContactName, Phone: m.ContactPhone, Email: m.ContactEmail},
		bookingDomain.PaymentMethod(m.PaymentMethod),
		bookingDomain.Status(m.Status),
		m.AccountID,
		m.AttachmentRefs,
		m.Rating,
		m.RatingComment,
		m.CreatedAt, m.UpdatedAt,
	)
}

func toBookingModel(b *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:             b.ID(),
		ServiceID:      b.ServiceID(),
		SlotDate:       b.SlotDate(),
		TimeSlot:       b.TimeSlot(),
		ContactName:    b.Contact().Name,
		ContactPhone:   b.Contact().Phone,
		ContactEmail:   b.Contact().Email,
		PaymentMethod:  string(b.PaymentMethod()),
		Status:         string(b.Status()),
		AccountID:      b.AccountID(),
		AttachmentRefs: datatypes.NewJSONSlice(b.AttachmentRefs()),
		Rating:         b.Rating(),
		RatingComment:  b.RatingComment(),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
	}
}
