package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Policy configures one admission window class.
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
}

// window is a fixed-window counter for one identity.
type window struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

// policyTable holds the windows for one policy, isolated from every other
// policy so exhausting one class's budget never affects another.
type policyTable struct {
	mu      sync.RWMutex
	policy  Policy
	windows map[string]*window
}

// Gate is the fixed-window admission gate guarding mutating endpoints.
// State is process-local; swapping in a distributed counter only requires
// replacing this component, not its callers.
type Gate struct {
	tables map[string]*policyTable
	now    func() time.Time

	cleanupTick *time.Ticker
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock injects a clock, used by tests to step time.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a gate with the given named policies and starts the
// background sweep that drops expired windows.
func NewGate(policies map[string]Policy, opts ...Option) *Gate {
	g := &Gate{
		tables:      make(map[string]*policyTable, len(policies)),
		now:         time.Now,
		cleanupTick: time.NewTicker(5 * time.Minute),
		stopCleanup: make(chan struct{}),
	}
	for name, p := range policies {
		g.tables[name] = &policyTable{policy: p, windows: make(map[string]*window)}
	}
	for _, opt := range opts {
		opt(g)
	}
	go g.cleanup()
	return g
}

// Admit checks the identity against the named policy. A fresh or expired
// window starts at count 1 and allows; otherwise the count is incremented
// and the call is denied once it exceeds the policy maximum, reporting the
// seconds remaining until the window expires. Admit cannot fail, only deny.
func (g *Gate) Admit(policyName, identity string) Decision {
	table, ok := g.tables[policyName]
	if !ok {
		return Decision{Allowed: true}
	}

	table.mu.RLock()
	w, exists := table.windows[identity]
	table.mu.RUnlock()

	if !exists {
		table.mu.Lock()
		w, exists = table.windows[identity]
		if !exists {
			w = &window{}
			table.windows[identity] = w
		}
		table.mu.Unlock()
	}

	now := g.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.expiresAt.IsZero() || !now.Before(w.expiresAt) {
		w.count = 1
		w.expiresAt = now.Add(table.policy.Window)
		return Decision{Allowed: true}
	}

	w.count++
	if w.count > table.policy.MaxRequests {
		retry := int(math.Ceil(w.expiresAt.Sub(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return Decision{Allowed: false, RetryAfterSeconds: retry}
	}
	return Decision{Allowed: true}
}

// cleanup periodically drops long-expired windows so idle identities do not
// accumulate.
func (g *Gate) cleanup() {
	for {
		select {
		case <-g.cleanupTick.C:
			now := g.now()
			for _, table := range g.tables {
				table.mu.Lock()
				for id, w := range table.windows {
					w.mu.Lock()
					expired := !w.expiresAt.IsZero() && now.Sub(w.expiresAt) > time.Hour
					w.mu.Unlock()
					if expired {
						delete(table.windows, id)
					}
				}
				table.mu.Unlock()
			}
		case <-g.stopCleanup:
			return
		}
	}
}

// Stop terminates the cleanup sweep.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() {
		g.cleanupTick.Stop()
		close(g.stopCleanup)
	})
}
