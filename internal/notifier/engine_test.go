package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duely/duely/internal/subscription/domain"
	"github.com/duely/duely/internal/user"
)

var testNow = time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

func datePlusDays(days int) time.Time {
	return time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func activeSubscription(id, userID string, nextBilling time.Time) domain.Subscription {
	return domain.Subscription{
		ID:          id,
		UserID:      userID,
		Name:        "Netflix",
		Amount:      9.99,
		Currency:    "USD",
		Frequency:   domain.FrequencyMonthly,
		NextBilling: nextBilling,
		Status:      domain.StatusActive,
	}
}

func prefsFor(userID string, leadDays int) user.NotificationPrefs {
	return user.NotificationPrefs{
		UserID:                userID,
		Email:                 userID + "@example.com",
		Login:                 userID,
		Currency:              "USD",
		ReminderLeadDays:      leadDays,
		EmailRemindersEnabled: true,
		PushEnabled:           true,
	}
}

type engineFixture struct {
	engine        *Engine
	store         *memoryNotificationStore
	push          *mockPushSender
	emails        *mockEmailSender
	subscriptions *mockSubscriptionSource
	categories    *mockCategorySource
}

func newEngineFixture(subscriptions []domain.Subscription, categories []domain.Category, prefs []user.NotificationPrefs) *engineFixture {
	subscriptionSource := &mockSubscriptionSource{subscriptions: subscriptions}
	categorySource := &mockCategorySource{categories: categories}
	scanner := NewScanner(subscriptionSource, categorySource, &mockPrefsSource{prefs: prefs})

	store := newMemoryNotificationStore()
	push := &mockPushSender{failFor: map[string]bool{}}
	emails := &mockEmailSender{}
	writer := NewWriter(store, push, emails, testLogger())

	return &engineFixture{
		engine:        NewEngine(scanner, NewGuard(store), writer, &stubPinger{}, testLogger()),
		store:         store,
		push:          push,
		emails:        emails,
		subscriptions: subscriptionSource,
		categories:    categorySource,
	}
}

func TestGenerateAll_SecondRunCreatesNothing(t *testing.T) {
	budget := 100.0
	fixture := newEngineFixture(
		[]domain.Subscription{
			activeSubscription("sub-due", "u1", datePlusDays(3)),
			activeSubscription("sub-overdue", "u1", datePlusDays(-2)),
			{
				ID: "sub-yearly", UserID: "u1", Name: "Cloud", Amount: 1300, Currency: "USD",
				Frequency: domain.FrequencyYearly, NextBilling: datePlusDays(200),
				Status: domain.StatusActive, CategoryID: strPtr("cat-1"),
			},
		},
		[]domain.Category{{ID: "cat-1", UserID: "u1", Name: "Infra", BudgetLimit: &budget}},
		[]user.NotificationPrefs{prefsFor("u1", 7)},
	)

	first, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 1, first.RenewalReminders.Created)
	assert.Equal(t, 1, first.OverdueNotifications.Created)
	assert.Equal(t, 1, first.BudgetAlerts.Created)
	assert.Equal(t, 3, first.TotalNotificationsCreated)

	second, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.TotalNotificationsCreated)
	assert.Equal(t, 1, second.RenewalReminders.Skipped)
	assert.Equal(t, 1, second.OverdueNotifications.Skipped)
	assert.Equal(t, 1, second.BudgetAlerts.Skipped)
}

func TestRenewalReminder_RespectsLeadWindow(t *testing.T) {
	subscription := activeSubscription("sub-1", "u1", datePlusDays(3))

	withinWindow := newEngineFixture(
		[]domain.Subscription{subscription}, nil,
		[]user.NotificationPrefs{prefsFor("u1", 7)},
	)
	summary, err := withinWindow.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RenewalReminders.Created)

	outsideWindow := newEngineFixture(
		[]domain.Subscription{subscription}, nil,
		[]user.NotificationPrefs{prefsFor("u1", 2)},
	)
	summary, err = outsideWindow.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.RenewalReminders.Created)
}

func TestRenewalReminder_WindowBoundariesInclusive(t *testing.T) {
	fixture := newEngineFixture(
		[]domain.Subscription{
			activeSubscription("sub-today", "u1", datePlusDays(0)),
			activeSubscription("sub-boundary", "u1", datePlusDays(7)),
			activeSubscription("sub-beyond", "u1", datePlusDays(8)),
		},
		nil,
		[]user.NotificationPrefs{prefsFor("u1", 7)},
	)

	summary, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RenewalReminders.Created)
}

func TestOverdue_OneNotificationPerBillingDate(t *testing.T) {
	fixture := newEngineFixture(
		[]domain.Subscription{activeSubscription("sub-1", "u1", datePlusDays(-5))},
		nil,
		[]user.NotificationPrefs{prefsFor("u1", 7)},
	)

	summary, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OverdueNotifications.Created)

	summary, err = fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.OverdueNotifications.Created)

	// a new billing cycle with a new past-due date is a new eligible key
	fixture.subscriptions.subscriptions[0].NextBilling = datePlusDays(-1)
	summary, err = fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OverdueNotifications.Created)
	assert.Len(t, fixture.store.byType(domain.NotificationTypeOverdue), 2)
}

func TestBudgetAlert_YearlySubscriptionMonthlyEquivalent(t *testing.T) {
	budget := 100.0
	fixture := newEngineFixture(
		[]domain.Subscription{{
			ID: "sub-1", UserID: "u1", Name: "Cloud", Amount: 1300, Currency: "USD",
			Frequency: domain.FrequencyYearly, NextBilling: datePlusDays(100),
			Status: domain.StatusActive, CategoryID: strPtr("cat-1"),
		}},
		[]domain.Category{{ID: "cat-1", UserID: "u1", Name: "Infra", BudgetLimit: &budget}},
		[]user.NotificationPrefs{prefsFor("u1", 7)},
	)

	// 1300 / 12 ≈ 108.33, over the 100 limit
	summary, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BudgetAlerts.Created)

	summary, err = fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BudgetAlerts.Created)
	assert.Equal(t, 1, summary.BudgetAlerts.Skipped)

	nextMonth := testNow.AddDate(0, 1, 0)
	summary, err = fixture.engine.GenerateAll(context.Background(), nextMonth)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BudgetAlerts.Created)
	assert.Len(t, fixture.store.byType(domain.NotificationTypeBudget), 2)
}

func TestBudgetAlert_UnderLimitCreatesNothing(t *testing.T) {
	budget := 100.0
	fixture := newEngineFixture(
		[]domain.Subscription{{
			ID: "sub-1", UserID: "u1", Name: "Cloud", Amount: 1100, Currency: "USD",
			Frequency: domain.FrequencyYearly, NextBilling: datePlusDays(100),
			Status: domain.StatusActive, CategoryID: strPtr("cat-1"),
		}},
		[]domain.Category{{ID: "cat-1", UserID: "u1", Name: "Infra", BudgetLimit: &budget}},
		[]user.NotificationPrefs{prefsFor("u1", 7)},
	)

	summary, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BudgetAlerts.Created)
}

func TestGenerateAll_OverdueScanFailureIsolated(t *testing.T) {
	budget := 50.0
	fixture := newEngineFixture(
		[]domain.Subscription{
			activeSubscription("sub-due", "u1", datePlusDays(3)),
			{
				ID: "sub-monthly", UserID: "u1", Name: "Gym", Amount: 60, Currency: "USD",
				Frequency: domain.FrequencyMonthly, NextBilling: datePlusDays(20),
				Status: domain.StatusActive, CategoryID: strPtr("cat-1"),
			},
		},
		[]domain.Category{{ID: "cat-1", UserID: "u1", Name: "Health", BudgetLimit: &budget}},
		[]user.NotificationPrefs{prefsFor("u1", 7)},
	)
	fixture.engine.scanner = &failingScanner{inner: fixture.engine.scanner, failOverdue: true}

	summary, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.True(t, summary.OverdueNotifications.Failed)
	assert.NotEmpty(t, summary.OverdueNotifications.Errors)
	assert.Equal(t, 0, summary.OverdueNotifications.Created)
	assert.Equal(t, 1, summary.RenewalReminders.Created)
	assert.Equal(t, 1, summary.BudgetAlerts.Created)
}

func TestGenerateAll_StoreUnreachable(t *testing.T) {
	fixture := newEngineFixture(nil, nil, nil)
	fixture.engine.pinger = &stubPinger{err: errors.New("connection refused")}

	summary, err := fixture.engine.GenerateAll(context.Background(), testNow)
	assert.Error(t, err)
	assert.False(t, summary.Success)
	assert.Equal(t, 0, summary.TotalNotificationsCreated)
}

func TestPushFailure_DoesNotBlockPersistenceOrOtherUsers(t *testing.T) {
	fixture := newEngineFixture(
		[]domain.Subscription{
			activeSubscription("sub-1", "u1", datePlusDays(3)),
			activeSubscription("sub-2", "u2", datePlusDays(3)),
		},
		nil,
		[]user.NotificationPrefs{prefsFor("u1", 7), prefsFor("u2", 7)},
	)
	fixture.push.failFor["u1"] = true

	summary, err := fixture.engine.GenerateAll(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RenewalReminders.Created)
	assert.Equal(t, 1, fixture.push.failures)
	assert.Equal(t, []string{"u2"}, fixture.push.sent)
	assert.Len(t, fixture.store.byType(domain.NotificationTypeRenewal), 2)
}

func strPtr(s string) *string {
	return &s
}
