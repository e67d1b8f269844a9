package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/domain"
	"github.com/glowbook/service-reservation/internal/domain/cart"
)

func newAccountFixture() (*AccountService, *fakeAccountRepo, *fakeCartRepo) {
	accountRepo := newFakeAccountRepo()
	cartRepo := newFakeCartRepo()
	logger := zap.NewNop()
	cartSvc := NewCartService(cartRepo, logger)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	return NewAccountService(accountRepo, jwtManager, cartSvc, logger), accountRepo, cartRepo
}

func TestRegister_WithReferralCode(t *testing.T) {
	svc, repo, _ := newAccountFixture()

	referrer, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ref@example.com", Password: "password123", Name: "Referrer",
	})
	require.NoError(t, err)
	require.NotEmpty(t, referrer.ReferralCode)

	referred, err := svc.Register(context.Background(), RegisterRequest{
		Email: "new@example.com", Password: "password123", Name: "New User",
		ReferralCode: referrer.ReferralCode,
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), referred.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReferredBy())
	assert.Equal(t, referrer.ID, *stored.ReferredBy())
}

func TestRegister_UnknownReferralCode(t *testing.T) {
	svc, _, _ := newAccountFixture()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "x@example.com", Password: "password123", Name: "X",
		ReferralCode: "NOPE1234",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newAccountFixture()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "a@example.com", Password: "password123", Name: "A",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVerification))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "password123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVerification), "unknown email looks identical to wrong password")
}

func TestLogin_MergesGuestCart(t *testing.T) {
	svc, _, cartRepo := newAccountFixture()

	acct, err := svc.Register(context.Background(), RegisterRequest{
		Email: "a@example.com", Password: "password123", Name: "A",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email: "a@example.com", Password: "password123",
		GuestItems: []GuestCartItem{
			{ServiceID: uuid.New(), SlotDate: "2026-09-15", TimeSlot: "10:00"},
			{ServiceID: uuid.New(), SlotDate: "2026-09-15", TimeSlot: "11:00"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 2, resp.CartMerge.MergedCount)

	items, err := cartRepo.FindByOwner(context.Background(), cart.AccountOwner(acct.ID))
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
