package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/duely/duely/internal/subscription/domain"
)

type EligibilityScanner interface {
	DueRenewals(now time.Time) ([]RenewalCandidate, error)
	Overdue(now time.Time) ([]RenewalCandidate, error)
	BudgetBreaches(now time.Time) ([]BudgetCandidate, error)
}

type DuplicateGuard interface {
	Exists(userID, notificationType, entityID, periodKey string) (bool, error)
}

type NotificationWriter interface {
	WriteRenewal(candidate RenewalCandidate, periodKey string, overdue bool) (bool, error)
	WriteBudget(candidate BudgetCandidate, periodKey string) (bool, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type ClassResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Failed  bool     `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type Summary struct {
	Success                   bool        `json:"success"`
	TotalNotificationsCreated int         `json:"total_notifications_created"`
	RenewalReminders          ClassResult `json:"renewal_reminders"`
	OverdueNotifications      ClassResult `json:"overdue_notifications"`
	BudgetAlerts              ClassResult `json:"budget_alerts"`
}

// Engine runs the scan→guard→write pass for the three notification classes in
// sequence. Each run re-derives eligibility from the store, so repeated runs
// are idempotent given the duplicate guard.
type Engine struct {
	scanner EligibilityScanner
	guard   DuplicateGuard
	writer  NotificationWriter
	pinger  Pinger
	logger  *logrus.Logger

	mu         sync.Mutex
	lastRun    Summary
	lastRunAt  time.Time
	hasLastRun bool
}

func NewEngine(scanner EligibilityScanner, guard DuplicateGuard, writer NotificationWriter, pinger Pinger, logger *logrus.Logger) *Engine {
	return &Engine{
		scanner: scanner,
		guard:   guard,
		writer:  writer,
		pinger:  pinger,
		logger:  logger,
	}
}

// GenerateAll runs all three classes against the store. A class failure marks
// that class failed and moves on; only an unreachable store before any class
// runs fails the whole operation.
func (e *Engine) GenerateAll(ctx context.Context, now time.Time) (Summary, error) {
	if err := e.pinger.PingContext(ctx); err != nil {
		engineRuns.WithLabelValues("failed").Inc()
		return Summary{Success: false}, fmt.Errorf("notification store unreachable: %w", err)
	}

	summary := Summary{Success: true}

	summary.RenewalReminders = e.runRenewalClass(now, false)
	summary.OverdueNotifications = e.runRenewalClass(now, true)
	summary.BudgetAlerts = e.runBudgetClass(now)

	summary.TotalNotificationsCreated = summary.RenewalReminders.Created +
		summary.OverdueNotifications.Created +
		summary.BudgetAlerts.Created

	engineRuns.WithLabelValues("completed").Inc()
	lastRunTimestamp.SetToCurrentTime()

	e.mu.Lock()
	e.lastRun = summary
	e.lastRunAt = now
	e.hasLastRun = true
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"created":  summary.TotalNotificationsCreated,
		"renewals": summary.RenewalReminders.Created,
		"overdue":  summary.OverdueNotifications.Created,
		"budget":   summary.BudgetAlerts.Created,
	}).Info("notification generation run completed")

	return summary, nil
}

// LastRun reports the summary of the most recent completed run, if any.
func (e *Engine) LastRun() (Summary, time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRun, e.lastRunAt, e.hasLastRun
}

// runRenewalClass handles both renewal reminders and overdue notifications,
// the two classes differ only in the eligibility scan and notification type.
func (e *Engine) runRenewalClass(now time.Time, overdue bool) ClassResult {
	class := "renewal_reminders"
	notificationType := domain.NotificationTypeRenewal
	scan := e.scanner.DueRenewals
	if overdue {
		class = "overdue_notifications"
		notificationType = domain.NotificationTypeOverdue
		scan = e.scanner.Overdue
	}

	var result ClassResult
	candidates, err := scan(now)
	if err != nil {
		e.logger.Errorf("%s scan failed: %v", class, err)
		result.Failed = true
		result.Errors = append(result.Errors, err.Error())
		notificationsFailed.WithLabelValues(class).Inc()
		return result
	}

	for _, candidate := range candidates {
		subscription := candidate.Subscription
		periodKey := RenewalPeriodKey(subscription.NextBilling)

		exists, err := e.guard.Exists(subscription.UserID, notificationType, subscription.ID, periodKey)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("subscription %s: %v", subscription.ID, err))
			notificationsFailed.WithLabelValues(class).Inc()
			continue
		}
		if exists {
			result.Skipped++
			notificationsSkipped.WithLabelValues(class).Inc()
			continue
		}

		created, err := e.writer.WriteRenewal(candidate, periodKey, overdue)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("subscription %s: %v", subscription.ID, err))
			notificationsFailed.WithLabelValues(class).Inc()
			continue
		}
		if !created {
			result.Skipped++
			notificationsSkipped.WithLabelValues(class).Inc()
			continue
		}
		result.Created++
		notificationsCreated.WithLabelValues(class).Inc()
	}
	return result
}

func (e *Engine) runBudgetClass(now time.Time) ClassResult {
	const class = "budget_alerts"

	var result ClassResult
	candidates, err := e.scanner.BudgetBreaches(now)
	if err != nil {
		e.logger.Errorf("%s scan failed: %v", class, err)
		result.Failed = true
		result.Errors = append(result.Errors, err.Error())
		notificationsFailed.WithLabelValues(class).Inc()
		return result
	}

	periodKey := BudgetPeriodKey(now)
	for _, candidate := range candidates {
		category := candidate.Category

		exists, err := e.guard.Exists(category.UserID, domain.NotificationTypeBudget, category.ID, periodKey)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("category %s: %v", category.ID, err))
			notificationsFailed.WithLabelValues(class).Inc()
			continue
		}
		if exists {
			result.Skipped++
			notificationsSkipped.WithLabelValues(class).Inc()
			continue
		}

		created, err := e.writer.WriteBudget(candidate, periodKey)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("category %s: %v", category.ID, err))
			notificationsFailed.WithLabelValues(class).Inc()
			continue
		}
		if !created {
			result.Skipped++
			notificationsSkipped.WithLabelValues(class).Inc()
			continue
		}
		result.Created++
		notificationsCreated.WithLabelValues(class).Inc()
	}
	return result
}
