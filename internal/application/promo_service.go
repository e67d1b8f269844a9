package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/glowbook/service-reservation/internal/domain/promo"
)

// CreateDiscountCodeRequest is the DTO for creating a discount code.
type CreateDiscountCodeRequest struct {
	Code             string    `json:"code" binding:"required"`
	DiscountType     string    `json:"discount_type" binding:"required"`
	DiscountValue    int64     `json:"discount_value" binding:"required,gt=0"`
	MinTotalCents    int64     `json:"min_total_cents,omitempty"`
	MaxDiscountCents int64     `json:"max_discount_cents,omitempty"`
	MaxUses          int       `json:"max_uses,omitempty"`
	ValidFrom        time.Time `json:"valid_from" binding:"required"`
	ValidUntil       time.Time `json:"valid_until" binding:"required"`
}

// DiscountCodeDTO is the API response DTO for discount code data.
type DiscountCodeDTO struct {
	ID               uuid.UUID `json:"id"`
	Code             string    `json:"code"`
	DiscountType     string    `json:"discount_type"`
	DiscountValue    int64     `json:"discount_value"`
	MinTotalCents    int64     `json:"min_total_cents"`
	MaxDiscountCents int64     `json:"max_discount_cents"`
	MaxUses          int       `json:"max_uses"`
	CurrentUses      int       `json:"current_uses"`
	ValidFrom        time.Time `json:"valid_from"`
	ValidUntil       time.Time `json:"valid_until"`
	CreatedAt        time.Time `json:"created_at"`
}

// DiscountPreviewDTO is the response for a pre-checkout code validation.
type DiscountPreviewDTO struct {
	Code           string `json:"code"`
	DiscountCents  int64  `json:"discount_cents"`
	PreTotalCents  int64  `json:"pre_total_cents"`
	PostTotalCents int64  `json:"post_total_cents"`
}

// PromoService is the application service for discount code use cases.
type PromoService struct {
	repo   promo.Repository
	logger *zap.Logger
}

// NewPromoService creates a new PromoService.
func NewPromoService(repo promo.Repository, logger *zap.Logger) *PromoService {
	return &PromoService{repo: repo, logger: logger}
}

// CreateCode creates a discount code. Staff operation.
func (s *PromoService) CreateCode(ctx context.Context, createdBy uuid.UUID, req CreateDiscountCodeRequest) (*DiscountCodeDTO, error) {
	code, err := promo.NewCode(
		req.Code,
		promo.DiscountType(req.DiscountType),
		req.DiscountValue,
		req.MinTotalCents,
		req.MaxDiscountCents,
		req.MaxUses,
		req.ValidFrom,
		req.ValidUntil,
		createdBy,
	)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, code); err != nil {
		return nil, err
	}

	s.logger.Info("discount code created",
		zap.String("code", code.CodeString()),
		zap.String("created_by", createdBy.String()),
	)
	dto := toDiscountCodeDTO(code)
	return &dto, nil
}

// ListActive returns codes inside their validity window.
func (s *PromoService) ListActive(ctx context.Context) ([]DiscountCodeDTO, error) {
	codes, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]DiscountCodeDTO, len(codes))
	for i, c := range codes {
		dtos[i] = toDiscountCodeDTO(c)
	}
	return dtos, nil
}

// Preview validates a code against a total without redeeming anything.
func (s *PromoService) Preview(ctx context.Context, codeStr string, totalCents int64, accountID *uuid.UUID) (*DiscountPreviewDTO, error) {
	if totalCents <= 0 {
		return nil, domain.NewValidationError("total_cents must be positive")
	}
	code, err := s.repo.FindByCode(ctx, codeStr)
	if err != nil {
		return nil, err
	}
	if accountID != nil {
		used, err := s.repo.HasAccountUsedCode(ctx, code.ID(), *accountID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, domain.NewConflictError("discount code already used by this account")
		}
	}

	discount, err := code.Discount(totalCents)
	if err != nil {
		return nil, err
	}
	return &DiscountPreviewDTO{
		Code:           code.CodeString(),
		DiscountCents:  discount,
		PreTotalCents:  totalCents,
		PostTotalCents: totalCents - discount,
	}, nil
}

func toDiscountCodeDTO(c *promo.Code) DiscountCodeDTO {
	return DiscountCodeDTO{
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
		CreatedAt:        c.CreatedAt(),
	}
}
