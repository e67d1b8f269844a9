package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/domain"
	accountDomain "github.com/glowbook/service-reservation/internal/domain/account"
)

// RegisterRequest is the DTO for creating an account. ReferralCode, when
// present, links the new account to its referrer permanently.
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// LoginRequest is the DTO for authenticating. The anonymous cart travels
// with the login: items the client held locally plus the device token whose
// persisted rows should fold into the account.
type LoginRequest struct {
	Email       string          `json:"email" binding:"required,email"`
	Password    string          `json:"password" binding:"required"`
	DeviceToken string          `json:"device_token,omitempty"`
	GuestItems  []GuestCartItem `json:"guest_cart_items,omitempty"`
}

// AccountDTO is the API response DTO for account data.
type AccountDTO struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	ReferralCode string    `json:"referral_code"`
	Points       int64     `json:"points"`
	ReferralUses int       `json:"referral_uses"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginResponse carries the token plus the merge outcome so the client can
// drop its local cart state.
type LoginResponse struct {
	Token     string      `json:"token"`
	Account   AccountDTO  `json:"account"`
	CartMerge MergeResult `json:"cart_merge"`
}

// AccountService is the application service for account use cases.
type AccountService struct {
	repo       accountDomain.Repository
	jwtManager *auth.JWTManager
	cartSvc    *CartService
	logger     *zap.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(repo accountDomain.Repository, jwtManager *auth.JWTManager, cartSvc *CartService, logger *zap.Logger) *AccountService {
	return &AccountService{
		repo:       repo,
		jwtManager: jwtManager,
		cartSvc:    cartSvc,
		logger:     logger,
	}
}

// Register creates a customer account. An unknown referral code is a
// validation error rather than a silent drop, so a typo never costs the
// referrer their credit.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*AccountDTO, error) {
	var referredBy *uuid.UUID
	if req.ReferralCode != "" {
		referrer, err := s.repo.FindByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("unknown referral code")
			}
			return nil, err
		}
		id := referrer.ID()
		referredBy = &id
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct, err := accountDomain.New(req.Email, string(hash), req.Name, req.Phone, string(auth.RoleCustomer), newReferralCode(), referredBy)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, acct); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		zap.String("account_id", acct.ID().String()),
		zap.Bool("referred", referredBy != nil),
	)
	dto := toAccountDTO(acct)
	return &dto, nil
}

// Login authenticates and consolidates the anonymous cart into the account.
// A failed merge never fails the login; partial results are reported back.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	acct, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewVerificationError("invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash()), []byte(req.Password)); err != nil {
		return nil, domain.NewVerificationError("invalid email or password")
	}

	token, err := s.jwtManager.Generate(acct.ID(), auth.Role(acct.Role()))
	if err != nil {
		return nil, err
	}

	merge := s.cartSvc.MergeIntoAccount(ctx, acct.ID(), req.DeviceToken, req.GuestItems)

	return &LoginResponse{
		Token:     token,
		Account:   toAccountDTO(acct),
		CartMerge: merge,
	}, nil
}

// GetProfile returns the account with its point balance and referral stats.
func (s *AccountService) GetProfile(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toAccountDTO(acct)
	return &dto, nil
}

// newReferralCode derives a short shareable code. Collisions bounce off the
// unique index at save time.
func newReferralCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:8])
}

func toAccountDTO(a *accountDomain.Account) AccountDTO {
	return AccountDTO{
		ID:           a.ID(),
		Email:        a.Email(),
		Name:         a.Name(),
		Phone:        a.Phone(),
		Role:         a.Role(),
		ReferralCode: a.ReferralCode(),
		Points:       a.Points(),
		ReferralUses: a.ReferralUses(),
		CreatedAt:    a.CreatedAt(),
	}
}
