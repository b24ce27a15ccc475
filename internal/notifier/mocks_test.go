package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	emailService "github.com/duely/duely/internal/email"
	"github.com/duely/duely/internal/subscription/domain"
	"github.com/duely/duely/internal/user"
)

type mockSubscriptionSource struct {
	subscriptions []domain.Subscription
	shouldFail    bool
}

func (m *mockSubscriptionSource) FindAllActive() ([]domain.Subscription, error) {
	if m.shouldFail {
		return nil, errors.New("subscription query failed")
	}
	var active []domain.Subscription
	for _, subscription := range m.subscriptions {
		if subscription.Status == domain.StatusActive {
			active = append(active, subscription)
		}
	}
	return active, nil
}

type mockCategorySource struct {
	categories []domain.Category
	shouldFail bool
}

func (m *mockCategorySource) FindAllBudgeted() ([]domain.Category, error) {
	if m.shouldFail {
		return nil, errors.New("category query failed")
	}
	var budgeted []domain.Category
	for _, category := range m.categories {
		if category.BudgetLimit != nil {
			budgeted = append(budgeted, category)
		}
	}
	return budgeted, nil
}

type mockPrefsSource struct {
	prefs      []user.NotificationPrefs
	shouldFail bool
}

func (m *mockPrefsSource) ListNotificationPrefs() ([]user.NotificationPrefs, error) {
	if m.shouldFail {
		return nil, errors.New("prefs query failed")
	}
	return m.prefs, nil
}

// memoryNotificationStore backs both the guard and the writer, mirroring the
// unique-index semantics of the real repository.
type memoryNotificationStore struct {
	notifications map[string]domain.Notification
	createErr     error
}

func newMemoryNotificationStore() *memoryNotificationStore {
	return &memoryNotificationStore{notifications: make(map[string]domain.Notification)}
}

func dedupKey(userID, notificationType, entityID, periodKey string) string {
	return fmt.Sprintf("%s|%s|%s|%s", userID, notificationType, entityID, periodKey)
}

func (m *memoryNotificationStore) Create(notification *domain.Notification) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	key := dedupKey(notification.UserID, notification.Type, notification.EntityID, notification.PeriodKey)
	if _, exists := m.notifications[key]; exists {
		return false, nil
	}
	m.notifications[key] = *notification
	return true, nil
}

func (m *memoryNotificationStore) Exists(userID, notificationType, entityID, periodKey string) (bool, error) {
	_, exists := m.notifications[dedupKey(userID, notificationType, entityID, periodKey)]
	return exists, nil
}

func (m *memoryNotificationStore) byType(notificationType string) []domain.Notification {
	var matched []domain.Notification
	for _, notification := range m.notifications {
		if notification.Type == notificationType {
			matched = append(matched, notification)
		}
	}
	return matched
}

type mockPushSender struct {
	sent     []string
	failFor  map[string]bool
	failures int
}

func (m *mockPushSender) SendToUser(userID, title, body string) error {
	if m.failFor[userID] {
		m.failures++
		return errors.New("push endpoint gone")
	}
	m.sent = append(m.sent, userID)
	return nil
}

type queuedEmail struct {
	to   string
	data emailService.EmailData
}

type mockEmailSender struct {
	queued []queuedEmail
}

func (m *mockEmailSender) QueueEmail(to string, data emailService.EmailData) {
	m.queued = append(m.queued, queuedEmail{to: to, data: data})
}

type stubPinger struct {
	err error
}

func (p *stubPinger) PingContext(ctx context.Context) error {
	return p.err
}

// failingScanner wraps a real scanner but fails a chosen class, used for the
// partial failure isolation tests.
type failingScanner struct {
	inner       EligibilityScanner
	failOverdue bool
	failRenewal bool
	failBudget  bool
}

func (f *failingScanner) DueRenewals(now time.Time) ([]RenewalCandidate, error) {
	if f.failRenewal {
		return nil, errors.New("renewal scan failed")
	}
	return f.inner.DueRenewals(now)
}

func (f *failingScanner) Overdue(now time.Time) ([]RenewalCandidate, error) {
	if f.failOverdue {
		return nil, errors.New("overdue scan failed")
	}
	return f.inner.Overdue(now)
}

func (f *failingScanner) BudgetBreaches(now time.Time) ([]BudgetCandidate, error) {
	if f.failBudget {
		return nil, errors.New("budget scan failed")
	}
	return f.inner.BudgetBreaches(now)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
