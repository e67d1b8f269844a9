package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(policies map[string]Policy) (*Gate, *time.Time) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(policies, WithClock(func() time.Time { return current }))
	return g, &current
}

func TestAdmit_WindowBudget(t *testing.T) {
	g, clock := newTestGate(map[string]Policy{
		"checkout": {Window: 60 * time.Second, MaxRequests: 5},
	})
	defer g.Stop()

	for i := 0; i < 5; i++ {
		d := g.Admit("checkout", "client-a")
		require.True(t, d.Allowed, "call %d should be admitted", i+1)
	}

	d := g.Admit("checkout", "client-a")
	assert.False(t, d.Allowed, "6th call should be denied")
	assert.LessOrEqual(t, d.RetryAfterSeconds, 60)
	assert.GreaterOrEqual(t, d.RetryAfterSeconds, 1)

	// After the window elapses the identity is admitted again.
	*clock = clock.Add(61 * time.Second)
	d = g.Admit("checkout", "client-a")
	assert.True(t, d.Allowed)
}

func TestAdmit_IdentitiesAreIndependent(t *testing.T) {
	g, _ := newTestGate(map[string]Policy{
		"auth": {Window: time.Minute, MaxRequests: 1},
	})
	defer g.Stop()

	require.True(t, g.Admit("auth", "client-a").Allowed)
	assert.False(t, g.Admit("auth", "client-a").Allowed)
	assert.True(t, g.Admit("auth", "client-b").Allowed, "another identity keeps its own budget")
}

func TestAdmit_PoliciesAreIndependent(t *testing.T) {
	g, _ := newTestGate(map[string]Policy{
		"auth":     {Window: time.Minute, MaxRequests: 1},
		"checkout": {Window: time.Minute, MaxRequests: 1},
	})
	defer g.Stop()

	require.True(t, g.Admit("auth", "client-a").Allowed)
	require.False(t, g.Admit("auth", "client-a").Allowed)

	// Exhausting "auth" must not touch the "checkout" budget.
	assert.True(t, g.Admit("checkout", "client-a").Allowed)
}

func TestAdmit_UnknownPolicyAllows(t *testing.T) {
	g, _ := newTestGate(map[string]Policy{})
	defer g.Stop()

	assert.True(t, g.Admit("nope", "client-a").Allowed)
}

func TestAdmit_RetryAfterShrinksAsWindowAges(t *testing.T) {
	g, clock := newTestGate(map[string]Policy{
		"general": {Window: 60 * time.Second, MaxRequests: 1},
	})
	defer g.Stop()

	require.True(t, g.Admit("general", "c").Allowed)

	*clock = clock.Add(45 * time.Second)
	d := g.Admit("general", "c")
	require.False(t, d.Allowed)
	assert.LessOrEqual(t, d.RetryAfterSeconds, 15)
}

func TestAdmit_Concurrent(t *testing.T) {
	g, _ := newTestGate(map[string]Policy{
		"general": {Window: time.Minute, MaxRequests: 50},
	})
	defer g.Stop()

	const calls = 100
	var wg sync.WaitGroup
	allowed := make(chan bool, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- g.Admit("general", "shared").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	var n int
	for ok := range allowed {
		if ok {
			n++
		}
	}
	assert.Equal(t, 50, n, fmt.Sprintf("exactly the policy maximum should be admitted, got %d", n))
}
