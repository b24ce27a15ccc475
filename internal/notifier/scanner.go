package notifier

import (
	"time"

	"github.com/duely/duely/internal/subscription/domain"
	"github.com/duely/duely/internal/user"
)

type SubscriptionSource interface {
	FindAllActive() ([]domain.Subscription, error)
}

type CategorySource interface {
	FindAllBudgeted() ([]domain.Category, error)
}

type PrefsSource interface {
	ListNotificationPrefs() ([]user.NotificationPrefs, error)
}

type RenewalCandidate struct {
	Subscription domain.Subscription
	Prefs        user.NotificationPrefs
}

type BudgetCandidate struct {
	Category     domain.Category
	Prefs        user.NotificationPrefs
	MonthlySpend float64
}

// Scanner performs the read-only eligibility pass for each notification
// class. It holds no state between calls, eligibility is re-derived from the
// store on every run.
type Scanner struct {
	subscriptions SubscriptionSource
	categories    CategorySource
	prefs         PrefsSource
}

func NewScanner(subscriptions SubscriptionSource, categories CategorySource, prefs PrefsSource) *Scanner {
	return &Scanner{
		subscriptions: subscriptions,
		categories:    categories,
		prefs:         prefs,
	}
}

func (s *Scanner) loadPrefs() (map[string]user.NotificationPrefs, error) {
	prefs, err := s.prefs.ListNotificationPrefs()
	if err != nil {
		return nil, err
	}
	prefsByUser := make(map[string]user.NotificationPrefs, len(prefs))
	for _, p := range prefs {
		prefsByUser[p.UserID] = p
	}
	return prefsByUser, nil
}

// startOfDay truncates to a UTC date so window comparisons work on calendar
// days, not wall-clock instants.
func startOfDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DueRenewals returns active subscriptions whose next billing date falls
// within the owner's reminder lead window, boundary days inclusive.
func (s *Scanner) DueRenewals(now time.Time) ([]RenewalCandidate, error) {
	prefsByUser, err := s.loadPrefs()
	if err != nil {
		return nil, err
	}
	subscriptions, err := s.subscriptions.FindAllActive()
	if err != nil {
		return nil, err
	}

	today := startOfDay(now)
	var candidates []RenewalCandidate
	for _, subscription := range subscriptions {
		prefs, ok := prefsByUser[subscription.UserID]
		if !ok {
			continue
		}
		billingDay := startOfDay(subscription.NextBilling)
		windowEnd := today.AddDate(0, 0, prefs.ReminderLeadDays)
		if billingDay.Before(today) || billingDay.After(windowEnd) {
			continue
		}
		candidates = append(candidates, RenewalCandidate{Subscription: subscription, Prefs: prefs})
	}
	return candidates, nil
}

// Overdue returns active subscriptions whose next billing date is strictly in
// the past.
func (s *Scanner) Overdue(now time.Time) ([]RenewalCandidate, error) {
	prefsByUser, err := s.loadPrefs()
	if err != nil {
		return nil, err
	}
	subscriptions, err := s.subscriptions.FindAllActive()
	if err != nil {
		return nil, err
	}

	today := startOfDay(now)
	var candidates []RenewalCandidate
	for _, subscription := range subscriptions {
		prefs, ok := prefsByUser[subscription.UserID]
		if !ok {
			continue
		}
		if !startOfDay(subscription.NextBilling).Before(today) {
			continue
		}
		candidates = append(candidates, RenewalCandidate{Subscription: subscription, Prefs: prefs})
	}
	return candidates, nil
}

// BudgetBreaches returns categories whose active subscriptions'
// monthly-equivalent spend meets or exceeds the budget limit.
func (s *Scanner) BudgetBreaches(now time.Time) ([]BudgetCandidate, error) {
	prefsByUser, err := s.loadPrefs()
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.FindAllBudgeted()
	if err != nil {
		return nil, err
	}
	subscriptions, err := s.subscriptions.FindAllActive()
	if err != nil {
		return nil, err
	}

	spendByCategory := make(map[string]float64)
	for _, subscription := range subscriptions {
		if subscription.CategoryID == nil {
			continue
		}
		spendByCategory[*subscription.CategoryID] += subscription.MonthlyEquivalent()
	}

	var candidates []BudgetCandidate
	for _, category := range categories {
		prefs, ok := prefsByUser[category.UserID]
		if !ok {
			continue
		}
		if category.BudgetLimit == nil {
			continue
		}
		spend := spendByCategory[category.ID]
		if spend < *category.BudgetLimit {
			continue
		}
		candidates = append(candidates, BudgetCandidate{
			Category:     category,
			Prefs:        prefs,
			MonthlySpend: spend,
		})
	}
	return candidates, nil
}
