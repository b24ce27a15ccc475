package push

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrSubscriptionNotFound = errors.New("push subscription not found")

// Subscription is one browser push endpoint registered by a user. A user can
// hold several, one per device/browser.
type Subscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"-"`
	Auth      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	save(subscription *Subscription) error
	findByUser(userID string) ([]Subscription, error)
	deleteByEndpoint(userID, endpoint string) error
	deleteEndpoint(endpoint string) error
}

type pushRepository struct {
	db *sql.DB
}

func NewPushRepository(db *sql.DB) Repository {
	return &pushRepository{db: db}
}

func (r *pushRepository) save(subscription *Subscription) error {
	query := `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth
	`
	_, err := r.db.Exec(query, subscription.ID, subscription.UserID, subscription.Endpoint, subscription.P256dh, subscription.Auth)
	if err != nil {
		return fmt.Errorf("could not save push subscription: %v", err)
	}
	return nil
}

func (r *pushRepository) findByUser(userID string) ([]Subscription, error) {
	query := `SELECT id, user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE user_id = $1`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not list push subscriptions: %v", err)
	}
	defer rows.Close()

	var subscriptions []Subscription
	for rows.Next() {
		var subscription Subscription
		if err := rows.Scan(&subscription.ID, &subscription.UserID, &subscription.Endpoint, &subscription.P256dh, &subscription.Auth, &subscription.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan push subscription: %v", err)
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, rows.Err()
}

func (r *pushRepository) deleteByEndpoint(userID, endpoint string) error {
	res, err := r.db.Exec(`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	if err != nil {
		return fmt.Errorf("could not delete push subscription: %v", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *pushRepository) deleteEndpoint(endpoint string) error {
	_, err := r.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("could not prune push subscription: %v", err)
	}
	return nil
}
