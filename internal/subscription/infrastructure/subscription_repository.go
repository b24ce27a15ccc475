package infrastructure

import (
	"database/sql"
	"errors"

	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, category_id, name, amount, currency, frequency, next_billing, status, notes, created_at, updated_at`

func (r *SubscriptionRepository) Save(subscription domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, category_id, name, amount, currency, frequency, next_billing, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	_, err := r.db.Exec(query,
		subscription.ID,
		subscription.UserID,
		subscription.CategoryID,
		subscription.Name,
		subscription.Amount,
		subscription.Currency,
		subscription.Frequency,
		subscription.NextBilling,
		subscription.Status,
		subscription.Notes,
	)
	return err
}

func (r *SubscriptionRepository) FindByUser(userID string) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY next_billing`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func (r *SubscriptionRepository) FindByID(subscriptionID, userID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND user_id = $2`
	row := r.db.QueryRow(query, subscriptionID, userID)

	var subscription domain.Subscription
	err := scanSubscription(row, &subscription)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscriptionErrors.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *SubscriptionRepository) Update(subscription domain.Subscription) error {
	query := `
		UPDATE subscriptions
		SET category_id = $1,
		    name = $2,
		    amount = $3,
		    currency = $4,
		    frequency = $5,
		    next_billing = $6,
		    status = $7,
		    notes = $8,
		    updated_at = NOW()
		WHERE id = $9 AND user_id = $10
	`
	res, err := r.db.Exec(query,
		subscription.CategoryID,
		subscription.Name,
		subscription.Amount,
		subscription.Currency,
		subscription.Frequency,
		subscription.NextBilling,
		subscription.Status,
		subscription.Notes,
		subscription.ID,
		subscription.UserID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return subscriptionErrors.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) Delete(subscriptionID, userID string) error {
	res, err := r.db.Exec(`DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, subscriptionID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return subscriptionErrors.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) FindAllActive() ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status = 'active'`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner, subscription *domain.Subscription) error {
	return row.Scan(
		&subscription.ID,
		&subscription.UserID,
		&subscription.CategoryID,
		&subscription.Name,
		&subscription.Amount,
		&subscription.Currency,
		&subscription.Frequency,
		&subscription.NextBilling,
		&subscription.Status,
		&subscription.Notes,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)
}

func scanSubscriptions(rows *sql.Rows) ([]domain.Subscription, error) {
	var subscriptions []domain.Subscription
	for rows.Next() {
		var subscription domain.Subscription
		if err := scanSubscription(rows, &subscription); err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, rows.Err()
}
