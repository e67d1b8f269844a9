package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowbook/service-reservation/internal/domain"
	promoDomain "github.com/glowbook/service-reservation/internal/domain/promo"
)

// DiscountCodeModel is the GORM persistence model for the discount_codes
// table.
type DiscountCodeModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code             string    `gorm:"type:varchar(40);not null;uniqueIndex"`
	DiscountType     string    `gorm:"type:varchar(20);not null"`
	DiscountValue    int64     `gorm:"not null"`
	MinTotalCents    int64     `gorm:"not null;default:0"`
	MaxDiscountCents int64     `gorm:"not null;default:0"`
	MaxUses          int       `gorm:"not null;default:0"`
	CurrentUses      int       `gorm:"not null;default:0"`
	ValidFrom        time.Time `gorm:"type:timestamptz;not null"`
	ValidUntil       time.Time `gorm:"type:timestamptz;not null"`
	CreatedBy        uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (DiscountCodeModel) TableName() string { return "discount_codes" }

// DiscountUsageModel is the GORM persistence model for discount_usages. The
// unique index on booking_id is the hard guarantee that a redelivered
// confirmation cannot record a second usage for the same checkout.
type DiscountUsageModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CodeID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	AccountID      *uuid.UUID `gorm:"type:uuid;index"`
	PayerContact   string     `gorm:"type:varchar(40)"`
	BookingID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	DiscountCents  int64      `gorm:"not null"`
	PreTotalCents  int64      `gorm:"not null"`
	PostTotalCents int64      `gorm:"not null"`
	UsedAt         time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (DiscountUsageModel) TableName() string { return "discount_usages" }

// GormPromoRepository implements promo.Repository using GORM.
type GormPromoRepository struct {
	db *gorm.DB
}

// NewGormPromoRepository creates a GORM-based promo repository.
func NewGormPromoRepository(db *gorm.DB) *GormPromoRepository {
	return &GormPromoRepository{db: db}
}

// Save inserts a new discount code.
func (r *GormPromoRepository) Save(ctx context.Context, c *promoDomain.Code) error {
	err := r.db.WithContext(ctx).Create(toPromoModel(c)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("discount code already exists")
	}
	return err
}

// Update persists code changes, including the redemption counter.
func (r *GormPromoRepository) Update(ctx context.Context, c *promoDomain.Code) error {
	return r.db.WithContext(ctx).Model(&DiscountCodeModel{}).Where("id = ?", c.ID()).
		Updates(map[string]interface{}{
			"current_uses": c.CurrentUses(),
			"valid_until":  c.ValidUntil(),
			"max_uses":     c.MaxUses(),
			"updated_at":   c.UpdatedAt(),
		}).Error
}

// FindByCode looks a code up case-insensitively.
func (r *GormPromoRepository) FindByCode(ctx context.Context, code string) (*promoDomain.Code, error) {
	var model DiscountCodeModel
	if err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("DiscountCode", code)
		}
		return nil, err
	}
	return toPromoDomain(&model), nil
}

// FindByID returns one discount code.
func (r *GormPromoRepository) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.Code, error) {
	var model DiscountCodeModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("DiscountCode", id.String())
		}
		return nil, err
	}
	return toPromoDomain(&model), nil
}

// FindActive returns codes inside their validity window.
func (r *GormPromoRepository) FindActive(ctx context.Context) ([]*promoDomain.Code, error) {
	now := time.Now().UTC()
	var models []DiscountCodeModel
	if err := r.db.WithContext(ctx).
		Where("valid_from <= ? AND valid_until >= ?", now, now).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	codes := make([]*promoDomain.Code, len(models))
	for i := range models {
		codes[i] = toPromoDomain(&models[i])
	}
	return codes, nil
}

// SaveUsageIfAbsent records one redemption unless the booking already has a
// usage row. The booking_id unique index closes the race between concurrent
// redeliveries of the same confirmation.
func (r *GormPromoRepository) SaveUsageIfAbsent(ctx context.Context, usage *promoDomain.Usage) (bool, error) {
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DiscountUsageModel{}).
			Where("booking_id = ?", usage.BookingID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(toUsageModel(usage)).Error; err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return inserted, nil
}

// HasBookingUsage reports whether a usage row references the booking.
func (r *GormPromoRepository) HasBookingUsage(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DiscountUsageModel{}).
		Where("booking_id = ?", bookingID).
		Count(&count).Error
	return count > 0, err
}

// HasAccountUsedCode reports whether the account has redeemed the code before.
func (r *GormPromoRepository) HasAccountUsedCode(ctx context.Context, codeID, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DiscountUsageModel{}).
		Where("code_id = ? AND account_id = ?", codeID, accountID).
		Count(&count).Error
	return count > 0, err
}

func toPromoDomain(m *DiscountCodeModel) *promoDomain.Code {
	return promoDomain.Reconstitute(
		m.ID, m.Code,
		promoDomain.DiscountType(m.DiscountType),
		m.DiscountValue, m.MinTotalCents, m.MaxDiscountCents,
		m.MaxUses, m.CurrentUses,
		m.ValidFrom, m.ValidUntil,
		m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
}

func toPromoModel(c *promoDomain.Code) *DiscountCodeModel {
	return &DiscountCodeModel{
		ID:               c.ID(),
		Code:             c.CodeString(),
		DiscountType:     string(c.DiscountType()),
		DiscountValue:    c.DiscountValue(),
		MinTotalCents:    c.MinTotalCents(),
		MaxDiscountCents: c.MaxDiscountCents(),
		MaxUses:          c.MaxUses(),
		CurrentUses:      c.CurrentUses(),
		ValidFrom:        c.ValidFrom(),
		ValidUntil:       c.ValidUntil(),
		CreatedBy:        c.CreatedBy(),
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}
}

func toUsageModel(u *promoDomain.Usage) *DiscountUsageModel {
	return &DiscountUsageModel{
		ID:             u.ID,
		CodeID:         u.CodeID,
		AccountID:      u.AccountID,
		PayerContact:   u.PayerContact,
		BookingID:      u.BookingID,
		DiscountCents:  u.DiscountCents,
		PreTotalCents:  u.PreTotalCents,
		PostTotalCents: u.PostTotalCents,
		UsedAt:         u.UsedAt,
	}
}
