package promo

import (
	"strings"
	"time"

	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// DiscountType represents how a code discounts a total.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Code is the aggregate root for discount codes.
type Code struct {
	id               uuid.UUID
	code             string
	discountType     DiscountType
	discountValue    int64 // percentage (1-100) or fixed amount in cents
	minTotalCents    int64
	maxDiscountCents int64
	maxUses          int
	currentUses      int
	validFrom        time.Time
	validUntil       time.Time
	createdBy        uuid.UUID
	createdAt        time.Time
	updatedAt        time.Time
}

// NewCode creates a discount code.
func NewCode(code string, discountType DiscountType, discountValue, minTotalCents, maxDiscountCents int64, maxUses int, validFrom, validUntil time.Time, createdBy uuid.UUID) (*Code, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.NewValidationError("discount code is required")
	}
	if discountType != DiscountPercentage && discountType != DiscountFixed {
		return nil, domain.NewValidationError("unknown discount type")
	}
	if discountValue <= 0 {
		return nil, domain.NewValidationError("discount value must be positive")
	}
	if discountType == DiscountPercentage && discountValue > 100 {
		return nil, domain.NewValidationError("percentage discount cannot exceed 100")
	}
	if validUntil.Before(validFrom) {
		return nil, domain.NewValidationError("valid_until must be after valid_from")
	}

	now := time.Now().UTC()
	return &Code{
		id:               uuid.New(),
		code:             code,
		discountType:     discountType,
		discountValue:    discountValue,
		minTotalCents:    minTotalCents,
		maxDiscountCents: maxDiscountCents,
		maxUses:          maxUses,
		validFrom:        validFrom,
		validUntil:       validUntil,
		createdBy:        createdBy,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstitute rebuilds a Code from persistence.
func Reconstitute(id uuid.UUID, code string, discountType DiscountType, discountValue, minTotalCents, maxDiscountCents int64, maxUses, currentUses int, validFrom, validUntil time.Time, createdBy uuid.UUID, createdAt, updatedAt time.Time) *Code {
	return &Code{
		id: id, code: code, discountType: discountType, discountValue: discountValue,
		minTotalCents: minTotalCents, maxDiscountCents: maxDiscountCents,
		maxUses: maxUses, currentUses: currentUses,
		validFrom: validFrom, validUntil: validUntil,
		createdBy: createdBy, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// IsValid reports whether the code is currently redeemable.
func (c *Code) IsValid() bool {
	now := time.Now().UTC()
	return now.After(c.validFrom) && now.Before(c.validUntil) && (c.maxUses == 0 || c.currentUses < c.maxUses)
}

// Discount calculates the discount for a pre-discount total.
func (c *Code) Discount(totalCents int64) (int64, error) {
	if !c.IsValid() {
		return 0, domain.NewConflictError("discount code is no longer valid")
	}
	if totalCents < c.minTotalCents {
		return 0, domain.NewValidationError("order total below minimum for this code")
	}

	var discount int64
	switch c.discountType {
	case DiscountPercentage:
		discount = totalCents * c.discountValue / 100
	case DiscountFixed:
		discount = c.discountValue
	}

	if c.maxDiscountCents > 0 && discount > c.maxDiscountCents {
		discount = c.maxDiscountCents
	}
	if discount > totalCents {
		discount = totalCents
	}
	return discount, nil
}

// IncrementUses bumps the redemption count.
func (c *Code) IncrementUses() {
	c.currentUses++
	c.updatedAt = time.Now().UTC()
}

func (c *Code) ID() uuid.UUID              { return c.id }
func (c *Code) CodeString() string         { return c.code }
func (c *Code) DiscountType() DiscountType { return c.discountType }
func (c *Code) DiscountValue() int64       { return c.discountValue }
func (c *Code) MinTotalCents() int64       { return c.minTotalCents }
func (c *Code) MaxDiscountCents() int64    { return c.maxDiscountCents }
func (c *Code) MaxUses() int               { return c.maxUses }
func (c *Code) CurrentUses() int           { return c.currentUses }
func (c *Code) ValidFrom() time.Time       { return c.validFrom }
func (c *Code) ValidUntil() time.Time      { return c.validUntil }
func (c *Code) CreatedBy() uuid.UUID       { return c.createdBy }
func (c *Code) CreatedAt() time.Time       { return c.createdAt }
func (c *Code) UpdatedAt() time.Time       { return c.updatedAt }

// Usage is an immutable record of one code redemption against a booking.
// Exactly one usage row exists per checkout that applied a code; never
// mutated.
type Usage struct {
	ID             uuid.UUID
	CodeID         uuid.UUID
	AccountID      *uuid.UUID
	PayerContact   string // phone of an anonymous payer, empty for accounts
	BookingID      uuid.UUID
	DiscountCents  int64
	PreTotalCents  int64
	PostTotalCents int64
	UsedAt         time.Time
}
