package notifier

import "time"

// Period keys distinguish successive eligible instances of the same recurring
// condition. Renewal and overdue notifications key on the billing date, so a
// new billing cycle produces a new key; budget alerts key on the UTC calendar
// month.

func RenewalPeriodKey(nextBilling time.Time) string {
	return nextBilling.UTC().Format("2006-01-02")
}

func BudgetPeriodKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

type GuardStore interface {
	Exists(userID, notificationType, entityID, periodKey string) (bool, error)
}

// Guard answers whether a notification for the exact
// (user, type, entity, period) tuple was already created. The unique index
// behind NotificationStore.Create closes the window between this check and
// the insert, so a concurrent run cannot double-create.
type Guard struct {
	store GuardStore
}

func NewGuard(store GuardStore) *Guard {
	return &Guard{store: store}
}

func (g *Guard) Exists(userID, notificationType, entityID, periodKey string) (bool, error) {
	return g.store.Exists(userID, notificationType, entityID, periodKey)
}
