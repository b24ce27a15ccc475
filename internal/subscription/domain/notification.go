package domain

import "time"

const (
	NotificationTypeRenewal = "renewal_reminder"
	NotificationTypeOverdue = "overdue"
	NotificationTypeBudget  = "budget_alert"
)

// Notification is created by the batch engine or read/updated through the API.
// The (UserID, Type, EntityID, PeriodKey) tuple is unique, the repository's
// Create reports whether a row was actually inserted.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Type      string    `json:"type"`
	EntityID  string    `json:"entity_id"`
	PeriodKey string    `json:"period_key"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationRepository interface {
	Create(notification *Notification) (bool, error)
	Exists(userID, notificationType, entityID, periodKey string) (bool, error)
	FindByUser(userID string, unreadOnly bool, limit, page int) ([]Notification, error)
	CountUnread(userID string) (int, error)
	MarkRead(notificationID, userID string) error
	MarkAllRead(userID string) error
}
