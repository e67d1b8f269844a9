package application

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/glowbook/service-reservation/internal/domain"
	accountDomain "github.com/glowbook/service-reservation/internal/domain/account"
	bookingDomain "github.com/glowbook/service-reservation/internal/domain/booking"
	"github.com/glowbook/service-reservation/internal/domain/cart"
	"github.com/glowbook/service-reservation/internal/domain/promo"
	"github.com/glowbook/service-reservation/internal/domain/reward"
)

// In-memory fakes mirroring the persistence guarantees the GORM
// implementations get from the database: key uniqueness, conditional status
// updates, atomic crediting.

type fakeCartRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*cart.Item
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: make(map[uuid.UUID]*cart.Item)}
}

func (r *fakeCartRepo) FindByOwner(_ context.Context, owner cart.Owner) ([]*cart.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*cart.Item
	for _, it := range r.items {
		if it.Owner().Key() == owner.Key() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeCartRepo) FindByID(_ context.Context, id uuid.UUID) (*cart.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("CartItem", id.String())
	}
	return it, nil
}

func (r *fakeCartRepo) SaveIfAbsent(_ context.Context, item *cart.Item) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Owner().Key() == item.Owner().Key() && it.Key() == item.Key() {
			return false, nil
		}
	}
	r.items[item.ID()] = item
	return true, nil
}

func (r *fakeCartRepo) Update(_ context.Context, item *cart.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID() != item.ID() && it.Owner().Key() == item.Owner().Key() && it.Key() == item.Key() {
			return domain.NewConflictError("this slot is already in the cart")
		}
	}
	r.items[item.ID()] = item
	return nil
}

func (r *fakeCartRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeCartRepo) DeleteByOwner(_ context.Context, owner cart.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, it := range r.items {
		if it.Owner().Key() == owner.Key() {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *fakeCartRepo) DeleteDuplicates(_ context.Context, owner cart.Owner) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[cart.SlotKey]uuid.UUID)
	for id, it := range r.items {
		if it.Owner().Key() != owner.Key() {
			continue
		}
		cur, ok := latest[it.Key()]
		if !ok || it.CreatedAt().After(r.items[cur].CreatedAt()) {
			latest[it.Key()] = id
		}
	}
	removed := 0
	for id, it := range r.items {
		if it.Owner().Key() != owner.Key() {
			continue
		}
		if latest[it.Key()] != id {
			delete(r.items, id)
			removed++
		}
	}
	return removed, nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*bookingDomain.Booking)}
}

func (r *fakeBookingRepo) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID()] = b
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return b, nil
}

func (r *fakeBookingRepo) FindByAccount(_ context.Context, accountID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range r.bookings {
		if b.AccountID() != nil && *b.AccountID() == accountID {
			out = append(out, b)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) ListAll(_ context.Context, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, b := range r.bookings {
		out = append(out, b)
	}
	return out, int64(len(out)), nil
}

func (r *fakeBookingRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to bookingDomain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status() != from {
		return false, nil
	}
	r.bookings[id] = bookingDomain.Reconstitute(
		b.ID(), b.ServiceID(), b.SlotDate(), b.TimeSlot(), b.Contact(),
		b.PaymentMethod(), to, b.AccountID(), b.AttachmentRefs(),
		b.Rating(), b.RatingComment(), b.CreatedAt(), b.UpdatedAt(),
	)
	return true, nil
}

func (r *fakeBookingRepo) Update(_ context.Context, b *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID()] = b
	return nil
}

func (r *fakeBookingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bookings, id)
	return nil
}

func (r *fakeBookingRepo) CountForSlot(_ context.Context, serviceID uuid.UUID, slotDate, timeSlot string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if b.ServiceID() == serviceID && b.SlotDate() == slotDate && b.TimeSlot() == timeSlot && b.Status() != bookingDomain.StatusCancelled {
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[bookingDomain.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[bookingDomain.Status]int64)
	for _, b := range r.bookings {
		counts[b.Status()]++
	}
	return counts, nil
}

type fakePromoRepo struct {
	mu     sync.Mutex
	codes  map[uuid.UUID]*promo.Code
	usages map[uuid.UUID]*promo.Usage // keyed by booking id
}

func newFakePromoRepo() *fakePromoRepo {
	return &fakePromoRepo{
		codes:  make(map[uuid.UUID]*promo.Code),
		usages: make(map[uuid.UUID]*promo.Usage),
	}
}

func (r *fakePromoRepo) Save(_ context.Context, c *promo.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[c.ID()] = c
	return nil
}

func (r *fakePromoRepo) Update(_ context.Context, c *promo.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[c.ID()] = c
	return nil
}

func (r *fakePromoRepo) FindByCode(_ context.Context, code string) (*promo.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.CodeString() == code {
			return c, nil
		}
	}
	return nil, domain.NewNotFoundError("DiscountCode", code)
}

func (r *fakePromoRepo) FindByID(_ context.Context, id uuid.UUID) (*promo.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, domain.NewNotFoundError("DiscountCode", id.String())
	}
	return c, nil
}

func (r *fakePromoRepo) FindActive(_ context.Context) ([]*promo.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*promo.Code
	for _, c := range r.codes {
		if c.IsValid() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakePromoRepo) SaveUsageIfAbsent(_ context.Context, usage *promo.Usage) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.usages[usage.BookingID]; exists {
		return false, nil
	}
	r.usages[usage.BookingID] = usage
	return true, nil
}

func (r *fakePromoRepo) HasBookingUsage(_ context.Context, bookingID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.usages[bookingID]
	return ok, nil
}

func (r *fakePromoRepo) HasAccountUsedCode(_ context.Context, codeID, accountID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.usages {
		if u.CodeID == codeID && u.AccountID != nil && *u.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*accountDomain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*accountDomain.Account)}
}

func (r *fakeAccountRepo) Save(_ context.Context, a *accountDomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.accounts {
		if other.Email() == a.Email() || other.ReferralCode() == a.ReferralCode() {
			return domain.NewConflictError("email or referral code already registered")
		}
	}
	r.accounts[a.ID()] = a
	return nil
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*accountDomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.NewNotFoundError("Account", id.String())
	}
	return a, nil
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*accountDomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email() == email {
			return a, nil
		}
	}
	return nil, domain.NewNotFoundError("Account", email)
}

func (r *fakeAccountRepo) FindByReferralCode(_ context.Context, code string) (*accountDomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ReferralCode() == code {
			return a, nil
		}
	}
	return nil, domain.NewNotFoundError("Account", code)
}

// fakeRewardLedger models the referred-account unique constraint with a map
// guarded by one mutex, so concurrent Credit calls race exactly like
// concurrent inserts.
type fakeRewardLedger struct {
	mu      sync.Mutex
	rewards map[uuid.UUID]*reward.ReferralReward // keyed by referred account id
	points  map[uuid.UUID]int64
}

func newFakeRewardLedger() *fakeRewardLedger {
	return &fakeRewardLedger{
		rewards: make(map[uuid.UUID]*reward.ReferralReward),
		points:  make(map[uuid.UUID]int64),
	}
}

func (l *fakeRewardLedger) ExistsForReferred(_ context.Context, referredAccountID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.rewards[referredAccountID]
	return ok, nil
}

func (l *fakeRewardLedger) Credit(_ context.Context, r *reward.ReferralReward) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.rewards[r.ReferredAccountID]; exists {
		return domain.NewConflictError("referral reward already credited for this account")
	}
	l.rewards[r.ReferredAccountID] = r
	l.points[r.ReferrerID] += r.Points
	return nil
}

func (l *fakeRewardLedger) TotalPoints(_ context.Context, accountID uuid.UUID) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.points[accountID], nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []string
}

func (n *fakeNotifier) Send(_ context.Context, kind, _ string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, kind)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

func (n *fakeNotifier) kindCount(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, k := range n.sends {
		if k == kind {
			c++
		}
	}
	return c
}
