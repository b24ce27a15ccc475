package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/duely/duely/internal/subscription/domain"
)

func TestRenewalPeriodKey_DistinctBillingDates(t *testing.T) {
	first := RenewalPeriodKey(time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC))
	second := RenewalPeriodKey(time.Date(2026, time.October, 8, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "2026-09-08", first)
	assert.Equal(t, "2026-10-08", second)
	assert.NotEqual(t, first, second)
}

func TestBudgetPeriodKey_SameMonthSameKey(t *testing.T) {
	early := BudgetPeriodKey(time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC))
	late := BudgetPeriodKey(time.Date(2026, time.September, 30, 23, 59, 0, 0, time.UTC))
	next := BudgetPeriodKey(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "2026-09", early)
	assert.Equal(t, early, late)
	assert.Equal(t, "2026-10", next)
}

func TestGuard_ReportsExistingNotification(t *testing.T) {
	store := newMemoryNotificationStore()
	guard := NewGuard(store)

	exists, err := guard.Exists("u1", "renewal_reminder", "sub-1", "2026-09-08")
	assert.NoError(t, err)
	assert.False(t, exists)

	store.notifications[dedupKey("u1", "renewal_reminder", "sub-1", "2026-09-08")] = domain.Notification{
		UserID: "u1", Type: "renewal_reminder", EntityID: "sub-1", PeriodKey: "2026-09-08",
	}

	exists, err = guard.Exists("u1", "renewal_reminder", "sub-1", "2026-09-08")
	assert.NoError(t, err)
	assert.True(t, exists)
}
