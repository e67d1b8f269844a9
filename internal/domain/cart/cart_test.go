package cart

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate_DropsTimeOfDay(t *testing.T) {
	d1 := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 9, 15, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2026-09-15", NormalizeDate(d1))
	assert.Equal(t, NormalizeDate(d1), NormalizeDate(d2))
}

func TestSlotKey_EquivalentItemsCollide(t *testing.T) {
	owner := DeviceOwner("dev-123")
	serviceID := uuid.New()

	a, err := NewItem(owner, serviceID, time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC), "10:00-11:00", nil)
	require.NoError(t, err)
	b, err := NewItem(owner, serviceID, time.Date(2026, 9, 15, 18, 30, 0, 0, time.UTC), "10:00-11:00", []string{"photo-1"})
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key(), "same service, date and slot must collide regardless of time-of-day or attachments")

	c, err := NewItem(owner, serviceID, time.Date(2026, 9, 16, 9, 0, 0, 0, time.UTC), "10:00-11:00", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestOwnerKey(t *testing.T) {
	accountID := uuid.New()
	acct := AccountOwner(accountID)
	dev := DeviceOwner("tok-9")

	assert.Equal(t, "acct:"+accountID.String(), acct.Key())
	assert.Equal(t, "dev:tok-9", dev.Key())
	assert.True(t, acct.IsAccount())
	assert.False(t, dev.IsAccount())
}

func TestNewItem_Validation(t *testing.T) {
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	_, err := NewItem(DeviceOwner("d"), uuid.Nil, date, "10:00", nil)
	assert.Error(t, err)

	_, err = NewItem(DeviceOwner("d"), uuid.New(), date, "", nil)
	assert.Error(t, err)

	_, err = NewItem(Owner{}, uuid.New(), date, "10:00", nil)
	assert.Error(t, err, "ownerless items are invalid")
}

func TestEdit_RewritesSlotKey(t *testing.T) {
	item, err := NewItem(DeviceOwner("d"), uuid.New(), time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), "10:00", nil)
	require.NoError(t, err)

	newService := uuid.New()
	require.NoError(t, item.Edit(newService, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), "14:00", []string{"ref"}))

	assert.Equal(t, newService, item.ServiceID())
	assert.Equal(t, "2026-10-01", item.SlotDate())
	assert.Equal(t, "14:00", item.TimeSlot())
}
