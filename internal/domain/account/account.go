package account

import (
	"strings"
	"time"

	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/google/uuid"
)

// Account is the aggregate root for platform accounts. It carries the
// referral linkage the reward ledger consults: referredBy is set once at
// signup and never changes afterwards.
type Account struct {
	id           uuid.UUID
	email        string
	passwordHash string
	name         string
	phone        string
	role         string
	referralCode string
	referredBy   *uuid.UUID
	points       int64
	referralUses int
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates an account. referralCode is the account's own shareable code;
// referredBy links to the account whose code was used at signup, if any.
func New(email, passwordHash, name, phone, role, referralCode string, referredBy *uuid.UUID) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.NewValidationError("email is required")
	}
	if passwordHash == "" {
		return nil, domain.NewValidationError("password is required")
	}
	if name == "" {
		return nil, domain.NewValidationError("name is required")
	}
	now := time.Now().UTC()
	return &Account{
		id:           uuid.New(),
		email:        email,
		passwordHash: passwordHash,
		name:         name,
		phone:        phone,
		role:         role,
		referralCode: referralCode,
		referredBy:   referredBy,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstitute rebuilds an Account from persisted data.
func Reconstitute(id uuid.UUID, email, passwordHash, name, phone, role, referralCode string, referredBy *uuid.UUID, points int64, referralUses int, createdAt, updatedAt time.Time) *Account {
	return &Account{
		id:           id,
		email:        email,
		passwordHash: passwordHash,
		name:         name,
		phone:        phone,
		role:         role,
		referralCode: referralCode,
		referredBy:   referredBy,
		points:       points,
		referralUses: referralUses,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (a *Account) ID() uuid.UUID          { return a.id }
func (a *Account) Email() string          { return a.email }
func (a *Account) PasswordHash() string   { return a.passwordHash }
func (a *Account) Name() string           { return a.name }
func (a *Account) Phone() string          { return a.phone }
func (a *Account) Role() string           { return a.role }
func (a *Account) ReferralCode() string   { return a.referralCode }
func (a *Account) ReferredBy() *uuid.UUID { return a.referredBy }
func (a *Account) Points() int64          { return a.points }
func (a *Account) ReferralUses() int      { return a.referralUses }
func (a *Account) CreatedAt() time.Time   { return a.createdAt }
func (a *Account) UpdatedAt() time.Time   { return a.updatedAt }
