package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/glowbook/service-reservation/internal/domain/cart"
)

// CartItemRequest is the DTO for adding or editing a cart item.
type CartItemRequest struct {
	ServiceID      uuid.UUID `json:"service_id" binding:"required"`
	SlotDate       string    `json:"slot_date" binding:"required"`
	TimeSlot       string    `json:"time_slot" binding:"required"`
	AttachmentRefs []string  `json:"attachment_refs,omitempty"`
}

// CartItemDTO is the API response DTO for cart item data.
type CartItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ServiceID      uuid.UUID `json:"service_id"`
	SlotDate       string    `json:"slot_date"`
	TimeSlot       string    `json:"time_slot"`
	AttachmentRefs []string  `json:"attachment_refs,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MergeResult summarizes one identity-consolidation pass.
type MergeResult struct {
	MergedCount       int `json:"merged_count"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	FailedCount       int `json:"failed_count"`
}

// CartService is the application service for cart use cases.
type CartService struct {
	repo   cart.Repository
	logger *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(repo cart.Repository, logger *zap.Logger) *CartService {
	return &CartService{repo: repo, logger: logger}
}

// AddItem puts a slot in the owner's cart. Adding a slot that is already in
// the cart is a conflict, not a second row; the cart never holds two items
// with the same canonical slot key.
func (s *CartService) AddItem(ctx context.Context, owner cart.Owner, req CartItemRequest) (*CartItemDTO, error) {
	slotDate, err := parseSlotDate(req.SlotDate)
	if err != nil {
		return nil, err
	}

	item, err := cart.NewItem(owner, req.ServiceID, slotDate, req.TimeSlot, req.AttachmentRefs)
	if err != nil {
		return nil, err
	}

	inserted, err := s.repo.SaveIfAbsent(ctx, item)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, domain.NewConflictError("this slot is already in the cart")
	}

	dto := toCartItemDTO(item)
	return &dto, nil
}

// ListItems returns the owner's cart.
func (s *CartService) ListItems(ctx context.Context, owner cart.Owner) ([]CartItemDTO, error) {
	items, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	dtos := make([]CartItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toCartItemDTO(item)
	}
	return dtos, nil
}

// UpdateItem edits a cart item the owner holds.
func (s *CartService) UpdateItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID, req CartItemRequest) (*CartItemDTO, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Owner().Key() != owner.Key() {
		return nil, domain.NewNotFoundError("CartItem", itemID.String())
	}

	slotDate, err := parseSlotDate(req.SlotDate)
	if err != nil {
		return nil, err
	}
	if err := item.Edit(req.ServiceID, slotDate, req.TimeSlot, req.AttachmentRefs); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	dto := toCartItemDTO(item)
	return &dto, nil
}

// RemoveItem deletes a cart item the owner holds.
func (s *CartService) RemoveItem(ctx context.Context, owner cart.Owner, itemID uuid.UUID) error {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Owner().Key() != owner.Key() {
		return domain.NewNotFoundError("CartItem", itemID.String())
	}
	return s.repo.Delete(ctx, itemID)
}

// GuestCartItem is one anonymous cart row carried in the login payload.
type GuestCartItem struct {
	ServiceID      uuid.UUID `json:"service_id"`
	SlotDate       string    `json:"slot_date"`
	TimeSlot       string    `json:"time_slot"`
	AttachmentRefs []string  `json:"attachment_refs,omitempty"`
}

// MergeIntoAccount folds anonymous cart state into the account's cart: first
// the items the client carried in the login payload, then any rows persisted
// under the device token. Per-item failures are logged and skipped so one bad
// row never aborts the merge, and a final dedup pass removes any rows that
// raced in with equal slot keys, keeping the most recent.
func (s *CartService) MergeIntoAccount(ctx context.Context, accountID uuid.UUID, deviceToken string, guestItems []GuestCartItem) MergeResult {
	owner := cart.AccountOwner(accountID)
	result := MergeResult{}

	for _, gi := range guestItems {
		slotDate, err := parseSlotDate(gi.SlotDate)
		if err != nil {
			s.logger.Warn("skipping unparseable guest cart item",
				zap.String("account_id", accountID.String()),
				zap.String("slot_date", gi.SlotDate),
				zap.Error(err),
			)
			result.FailedCount++
			continue
		}

		item, err := cart.NewItem(owner, gi.ServiceID, slotDate, gi.TimeSlot, gi.AttachmentRefs)
		if err != nil {
			s.logger.Warn("skipping invalid guest cart item",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
			result.FailedCount++
			continue
		}

		inserted, err := s.repo.SaveIfAbsent(ctx, item)
		if err != nil {
			s.logger.Warn("failed to merge guest cart item",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
			result.FailedCount++
			continue
		}
		if inserted {
			result.MergedCount++
		} else {
			result.DuplicatesSkipped++
		}
	}

	if deviceToken != "" {
		s.mergeDeviceRows(ctx, owner, deviceToken, &result)
	}

	removed, err := s.repo.DeleteDuplicates(ctx, owner)
	if err != nil {
		s.logger.Warn("cart dedup pass failed",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
	}
	result.DuplicatesSkipped += removed

	s.logger.Info("cart merge finished",
		zap.String("account_id", accountID.String()),
		zap.Int("merged", result.MergedCount),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("failed", result.FailedCount),
	)
	return result
}

// mergeDeviceRows moves persisted device-owned rows under the account, then
// drops the device cart.
func (s *CartService) mergeDeviceRows(ctx context.Context, owner cart.Owner, deviceToken string, result *MergeResult) {
	deviceOwner := cart.DeviceOwner(deviceToken)
	items, err := s.repo.FindByOwner(ctx, deviceOwner)
	if err != nil {
		s.logger.Warn("failed to load device cart for merge",
			zap.String("device_token", deviceToken),
			zap.Error(err),
		)
		return
	}

	for _, di := range items {
		reowned := cart.Reconstitute(uuid.New(), owner, di.ServiceID(), di.SlotDate(), di.TimeSlot(), di.AttachmentRefs(), di.CreatedAt())
		inserted, err := s.repo.SaveIfAbsent(ctx, reowned)
		if err != nil {
			s.logger.Warn("failed to merge device cart item",
				zap.String("item_id", di.ID().String()),
				zap.Error(err),
			)
			result.FailedCount++
			continue
		}
		if inserted {
			result.MergedCount++
		} else {
			result.DuplicatesSkipped++
		}
	}

	if err := s.repo.DeleteByOwner(ctx, deviceOwner); err != nil {
		s.logger.Warn("failed to clear device cart after merge",
			zap.String("device_token", deviceToken),
			zap.Error(err),
		)
	}
}

func parseSlotDate(raw string) (time.Time, error) {
	t, err := time.Parse(cart.DateLayout, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError("slot_date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

func toCartItemDTO(item *cart.Item) CartItemDTO {
	return CartItemDTO{
		ID:             item.ID(),
		ServiceID:      item.ServiceID(),
		SlotDate:       item.SlotDate(),
		TimeSlot:       item.TimeSlot(),
		AttachmentRefs: item.AttachmentRefs(),
		CreatedAt:      item.CreatedAt(),
	}
}
