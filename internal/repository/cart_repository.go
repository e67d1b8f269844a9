package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/glowbook/service-reservation/internal/domain"
	cartDomain "github.com/glowbook/service-reservation/internal/domain/cart"
)

// CartItemModel is the GORM persistence model for the cart_items table.
// owner_key scopes the per-owner slot uniqueness constraint, which backstops
// the pre-insert duplicate check against racing merges.
type CartItemModel struct {
	ID             uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	OwnerKey       string                     `gorm:"type:varchar(80);not null;index;uniqueIndex:ux_cart_owner_slot,priority:1"`
	ServiceID      uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:ux_cart_owner_slot,priority:2"`
	SlotDate       string                     `gorm:"type:varchar(10);not null;uniqueIndex:ux_cart_owner_slot,priority:3"`
	TimeSlot       string                     `gorm:"type:varchar(40);not null;uniqueIndex:ux_cart_owner_slot,priority:4"`
	AttachmentRefs datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt      time.Time                  `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (CartItemModel) TableName() string { return "cart_items" }

// GormCartRepository implements cart.Repository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a GORM-based cart repository.
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByOwner returns the owner's live cart items, oldest first.
func (r *GormCartRepository) FindByOwner(ctx context.Context, owner cartDomain.Owner) ([]*cartDomain.Item, error) {
	var models []CartItemModel
	if err := r.db.WithContext(ctx).
		Where("owner_key = ?", owner.Key()).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	items := make([]*cartDomain.Item, len(models))
	for i := range models {
		items[i] = toCartDomain(&models[i])
	}
	return items, nil
}

// FindByID returns one cart item.
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cartDomain.Item, error) {
	var model CartItemModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("CartItem", id.String())
		}
		return nil, err
	}
	return toCartDomain(&model), nil
}

// SaveIfAbsent inserts the item unless its slot key is already taken for the
// owner. The duplicate check runs inside the insert transaction, and the
// unique constraint catches the race the check cannot see.
func (r *GormCartRepository) SaveIfAbsent(ctx context.Context, item *cartDomain.Item) (bool, error) {
	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&CartItemModel{}).
			Where("owner_key = ? AND service_id = ? AND slot_date = ? AND time_slot = ?",
				item.Owner().Key(), item.ServiceID(), item.SlotDate(), item.TimeSlot()).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(toCartModel(item)).Error; err != nil {
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

// Update persists an edited item, re-validating the slot key against the
// owner's other live rows.
func (r *GormCartRepository) Update(ctx context.Context, item *cartDomain.Item) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&CartItemModel{}).
			Where("owner_key = ? AND service_id = ? AND slot_date = ? AND time_slot = ? AND id <> ?",
				item.Owner().Key(), item.ServiceID(), item.SlotDate(), item.TimeSlot(), item.ID()).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.NewConflictError("this slot is already in the cart")
		}
		model := toCartModel(item)
		return tx.Model(&CartItemModel{}).Where("id = ?", item.ID()).
			Select("ServiceID", "SlotDate", "TimeSlot", "AttachmentRefs").
			Updates(model).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("this slot is already in the cart")
	}
	return err
}

// Delete removes one item.
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&CartItemModel{}).Error
}

// DeleteByOwner removes the owner's whole cart. Used when checkout consumes
// the cart.
func (r *GormCartRepository) DeleteByOwner(ctx context.Context, owner cartDomain.Owner) error {
	return r.db.WithContext(ctx).Where("owner_key = ?", owner.Key()).Delete(&CartItemModel{}).Error
}

// DeleteDuplicates keeps, per slot key, only the row with the latest
// creation timestamp and deletes the rest. Second-pass cleanup for rows that
// raced past the insert guard before the unique index existed or while it
// was bypassed by concurrent merges.
func (r *GormCartRepository) DeleteDuplicates(ctx context.Context, owner cartDomain.Owner) (int, error) {
	var models []CartItemModel
	if err := r.db.WithContext(ctx).
		Where("owner_key = ?", owner.Key()).
		Order("created_at DESC, id DESC").
		Find(&models).Error; err != nil {
		return 0, err
	}

	seen := make(map[cartDomain.SlotKey]bool, len(models))
	var extra []uuid.UUID
	for i := range models {
		key := cartDomain.SlotKey{
			ServiceID: models[i].ServiceID,
			Date:      models[i].SlotDate,
			TimeSlot:  models[i].TimeSlot,
		}
		if seen[key] {
			extra = append(extra, models[i].ID)
			continue
		}
		seen[key] = true
	}

	if len(extra) == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", extra).Delete(&CartItemModel{}).Error; err != nil {
		return 0, err
	}
	return len(extra), nil
}

// toCartDomain maps a model row back to the domain item.
func toCartDomain(m *CartItemModel) *cartDomain.Item {
	var owner cartDomain.Owner
	switch {
	case strings.HasPrefix(m.OwnerKey, "acct:"):
		if id, err := uuid.Parse(strings.TrimPrefix(m.OwnerKey, "acct:")); err == nil {
			owner = cartDomain.AccountOwner(id)
		}
	case strings.HasPrefix(m.OwnerKey, "dev:"):
		owner = cartDomain.DeviceOwner(strings.TrimPrefix(m.OwnerKey, "dev:"))
	}
	return cartDomain.Reconstitute(m.ID, owner, m.ServiceID, m.SlotDate, m.TimeSlot, m.AttachmentRefs, m.CreatedAt)
}

func toCartModel(item *cartDomain.Item) *CartItemModel {
	return &CartItemModel{
		ID:             item.ID(),
		OwnerKey:       item.Owner().Key(),
		ServiceID:      item.ServiceID(),
		SlotDate:       item.SlotDate(),
		TimeSlot:       item.TimeSlot(),
		AttachmentRefs: datatypes.NewJSONSlice(item.AttachmentRefs()),
		CreatedAt:      item.CreatedAt(),
	}
}
