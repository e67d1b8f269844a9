package application

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	accountDomain "github.com/glowbook/service-reservation/internal/domain/account"
)

func seedAccount(t *testing.T, repo *fakeAccountRepo, email, referralCode string, referredBy *uuid.UUID) *accountDomain.Account {
	t.Helper()
	a, err := accountDomain.New(email, "hash", "Test User", "", "customer", referralCode, referredBy)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), a))
	return a
}

func TestCreditReferral_NotReferred(t *testing.T) {
	repo := newFakeAccountRepo()
	ledger := newFakeRewardLedger()
	svc := NewRewardService(ledger, repo, 100, zap.NewNop())

	acct := seedAccount(t, repo, "solo@example.com", "SOLO0001", nil)

	outcome, err := svc.CreditReferralIfEligible(context.Background(), acct.ID(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, RewardNotReferred, outcome.Status)
	assert.Zero(t, outcome.PointsEarned)
}

func TestCreditReferral_CreditedThenAlready(t *testing.T) {
	repo := newFakeAccountRepo()
	ledger := newFakeRewardLedger()
	svc := NewRewardService(ledger, repo, 100, zap.NewNop())

	referrer := seedAccount(t, repo, "a@example.com", "AAAA0001", nil)
	referrerID := referrer.ID()
	referred := seedAccount(t, repo, "b@example.com", "BBBB0001", &referrerID)

	first, err := svc.CreditReferralIfEligible(context.Background(), referred.ID(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, RewardCredited, first.Status)
	assert.Equal(t, int64(100), first.PointsEarned)
	assert.Equal(t, int64(100), first.TotalPoints)

	second, err := svc.CreditReferralIfEligible(context.Background(), referred.ID(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, RewardAlreadyCredited, second.Status)
	assert.Equal(t, int64(100), second.TotalPoints, "balance unchanged on replay")
}

func TestCreditReferral_ConcurrentDeliveries(t *testing.T) {
	repo := newFakeAccountRepo()
	ledger := newFakeRewardLedger()
	svc := NewRewardService(ledger, repo, 100, zap.NewNop())

	referrer := seedAccount(t, repo, "a@example.com", "AAAA0002", nil)
	referrerID := referrer.ID()
	referred := seedAccount(t, repo, "b@example.com", "BBBB0002", &referrerID)
	bookingID := uuid.New()

	const deliveries = 50
	outcomes := make([]RewardStatus, deliveries)

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			outcome, err := svc.CreditReferralIfEligible(context.Background(), referred.ID(), bookingID)
			require.NoError(t, err)
			outcomes[n] = outcome.Status
		}(i)
	}
	wg.Wait()

	credited := 0
	for _, s := range outcomes {
		switch s {
		case RewardCredited:
			credited++
		case RewardAlreadyCredited:
		default:
			t.Fatalf("unexpected outcome %q", s)
		}
	}
	assert.Equal(t, 1, credited, "exactly one delivery wins the credit")

	total, err := ledger.TotalPoints(context.Background(), referrerID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
}
