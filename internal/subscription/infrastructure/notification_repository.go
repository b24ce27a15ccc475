package infrastructure

import (
	"database/sql"

	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts the notification, relying on the unique index over
// (user_id, type, entity_id, period_key) to swallow concurrent duplicates.
// Returns false when the row already existed.
func (r *NotificationRepository) Create(notification *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, user_id, type, entity_id, period_key, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW())
		ON CONFLICT (user_id, type, entity_id, period_key) DO NOTHING
	`
	res, err := r.db.Exec(query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.EntityID,
		notification.PeriodKey,
		notification.Title,
		notification.Body,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *NotificationRepository) Exists(userID, notificationType, entityID, periodKey string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND type = $2 AND entity_id = $3 AND period_key = $4
		)
	`
	err := r.db.QueryRow(query, userID, notificationType, entityID, periodKey).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *NotificationRepository) FindByUser(userID string, unreadOnly bool, limit, page int) ([]domain.Notification, error) {
	query := `
		SELECT id, user_id, type, entity_id, period_key, title, body, read, created_at
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Type,
			&notification.EntityID,
			&notification.PeriodKey,
			&notification.Title,
			&notification.Body,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) CountUnread(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	return count, err
}

func (r *NotificationRepository) MarkRead(notificationID, userID string) error {
	res, err := r.db.Exec(`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return subscriptionErrors.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(userID string) error {
	_, err := r.db.Exec(`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	return err
}
