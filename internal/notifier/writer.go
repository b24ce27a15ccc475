package notifier

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	emailService "github.com/duely/duely/internal/email"
	"github.com/duely/duely/internal/subscription/domain"
)

type NotificationStore interface {
	Create(notification *domain.Notification) (bool, error)
}

type PushSender interface {
	SendToUser(userID, title, body string) error
}

// Writer persists notification rows and fans out best-effort delivery. The
// row is authoritative, push and email failures are logged and never undo it.
type Writer struct {
	store  NotificationStore
	push   PushSender
	emails emailService.EmailSender
	logger *logrus.Logger
}

func NewWriter(store NotificationStore, push PushSender, emails emailService.EmailSender, logger *logrus.Logger) *Writer {
	return &Writer{
		store:  store,
		push:   push,
		emails: emails,
		logger: logger,
	}
}

// WriteRenewal persists a renewal-reminder or overdue notification for the
// candidate. Returns whether a row was actually created, a concurrent run may
// have inserted the same key first.
func (w *Writer) WriteRenewal(candidate RenewalCandidate, periodKey string, overdue bool) (bool, error) {
	subscription := candidate.Subscription
	billingDate := subscription.NextBilling.UTC().Format("2006-01-02")
	amount := fmt.Sprintf("%.2f %s", subscription.Amount, subscription.Currency)

	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    subscription.UserID,
		EntityID:  subscription.ID,
		PeriodKey: periodKey,
	}
	if overdue {
		notification.Type = domain.NotificationTypeOverdue
		notification.Title = fmt.Sprintf("Payment overdue: %s", subscription.Name)
		notification.Body = fmt.Sprintf("%s was due on %s (%s) and is now overdue.", subscription.Name, billingDate, amount)
	} else {
		notification.Type = domain.NotificationTypeRenewal
		notification.Title = fmt.Sprintf("Upcoming renewal: %s", subscription.Name)
		notification.Body = fmt.Sprintf("%s renews on %s for %s.", subscription.Name, billingDate, amount)
	}

	created, err := w.store.Create(notification)
	if err != nil || !created {
		return created, err
	}

	w.deliver(candidate.Prefs.UserID, notification, candidate.Prefs.PushEnabled, candidate.Prefs.EmailRemindersEnabled, candidate.Prefs.Email, emailService.RenewalReminderData{
		UserName:         candidate.Prefs.Login,
		SubscriptionName: subscription.Name,
		Amount:           amount,
		RenewalDate:      billingDate,
		Overdue:          overdue,
	})
	return true, nil
}

// WriteBudget persists a budget-alert notification for the candidate's
// category and current month.
func (w *Writer) WriteBudget(candidate BudgetCandidate, periodKey string) (bool, error) {
	category := candidate.Category
	limit := fmt.Sprintf("%.2f", *category.BudgetLimit)
	spend := fmt.Sprintf("%.2f", candidate.MonthlySpend)

	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    category.UserID,
		Type:      domain.NotificationTypeBudget,
		EntityID:  category.ID,
		PeriodKey: periodKey,
		Title:     fmt.Sprintf("Budget alert: %s", category.Name),
		Body:      fmt.Sprintf("Monthly spend in %s reached %s, at or above your budget of %s.", category.Name, spend, limit),
	}

	created, err := w.store.Create(notification)
	if err != nil || !created {
		return created, err
	}

	w.deliver(candidate.Prefs.UserID, notification, candidate.Prefs.PushEnabled, candidate.Prefs.EmailRemindersEnabled, candidate.Prefs.Email, emailService.BudgetAlertData{
		UserName:     candidate.Prefs.Login,
		CategoryName: category.Name,
		Limit:        limit,
		Spend:        spend,
	})
	return true, nil
}

func (w *Writer) deliver(userID string, notification *domain.Notification, pushEnabled, emailEnabled bool, email string, data emailService.EmailData) {
	if pushEnabled && w.push != nil {
		if err := w.push.SendToUser(userID, notification.Title, notification.Body); err != nil {
			w.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"type":    notification.Type,
			}).Warnf("push delivery failed: %v", err)
		}
	}
	if emailEnabled && w.emails != nil {
		w.emails.QueueEmail(email, data)
	}
}
