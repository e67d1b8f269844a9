package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowbook/service-reservation/internal/domain"
	accountDomain "github.com/glowbook/service-reservation/internal/domain/account"
)

// AccountModel is the GORM persistence model for the accounts table.
type AccountModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	Name         string     `gorm:"type:varchar(120);not null"`
	Phone        string     `gorm:"type:varchar(40)"`
	Role         string     `gorm:"type:varchar(20);not null;default:'customer'"`
	ReferralCode string     `gorm:"type:varchar(20);not null;uniqueIndex"`
	ReferredBy   *uuid.UUID `gorm:"type:uuid;index"`
	Points       int64      `gorm:"not null;default:0"`
	ReferralUses int        `gorm:"not null;default:0"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (AccountModel) TableName() string { return "accounts" }

// GormAccountRepository implements account.Repository using GORM.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a GORM-based account repository.
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Save inserts a new account.
func (r *GormAccountRepository) Save(ctx context.Context, a *accountDomain.Account) error {
	err := r.db.WithContext(ctx).Create(toAccountModel(a)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("email or referral code already registered")
	}
	return err
}

// FindByID returns one account.
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Account", id.String())
		}
		return nil, err
	}
	return toAccountDomain(&model), nil
}

// FindByEmail looks an account up by normalized email.
func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*accountDomain.Account, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Account", email)
		}
		return nil, err
	}
	return toAccountDomain(&model), nil
}

// FindByReferralCode resolves a shareable referral code to its owner.
func (r *GormAccountRepository) FindByReferralCode(ctx context.Context, code string) (*accountDomain.Account, error) {
	var model AccountModel
	if err := r.db.WithContext(ctx).Where("referral_code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Account", code)
		}
		return nil, err
	}
	return toAccountDomain(&model), nil
}

func toAccountDomain(m *AccountModel) *accountDomain.Account {
	return accountDomain.Reconstitute(
		m.ID, m.Email, m.PasswordHash, m.Name, m.Phone, m.Role,
		m.ReferralCode, m.ReferredBy, m.Points, m.ReferralUses,
		m.CreatedAt, m.UpdatedAt,
	)
}

func toAccountModel(a *accountDomain.Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID(),
		Email:        a.Email(),
		PasswordHash: a.PasswordHash(),
		Name:         a.Name(),
		Phone:        a.Phone(),
		Role:         a.Role(),
		ReferralCode: a.ReferralCode(),
		ReferredBy:   a.ReferredBy(),
		Points:       a.Points(),
		ReferralUses: a.ReferralUses(),
		CreatedAt:    a.CreatedAt(),
		UpdatedAt:    a.UpdatedAt(),
	}
}
