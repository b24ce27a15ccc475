package admin

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// UserSummary is the admin-facing view of an account, without credential
// material.
type UserSummary struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Login            string    `json:"login"`
	IsActive         bool      `json:"is_active"`
	IsAdmin          bool      `json:"is_admin"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

type Repository interface {
	listUsers(limit, offset int) ([]UserSummary, error)
	countUsers() (int, error)
	setUserActive(userID string, active bool) error
}

type adminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) Repository {
	return &adminRepository{db: db}
}

func (r *adminRepository) listUsers(limit, offset int) ([]UserSummary, error) {
	query := `
		SELECT id, email, login, is_active, is_admin, two_factor_enabled, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("could not list users: %v", err)
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var summary UserSummary
		if err := rows.Scan(&summary.ID, &summary.Email, &summary.Login, &summary.IsActive, &summary.IsAdmin, &summary.TwoFactorEnabled, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan user row: %v", err)
		}
		users = append(users, summary)
	}
	return users, rows.Err()
}

func (r *adminRepository) countUsers() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("could not count users: %v", err)
	}
	return count, nil
}

func (r *adminRepository) setUserActive(userID string, active bool) error {
	res, err := r.db.Exec(`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, userID)
	if err != nil {
		return fmt.Errorf("could not update user active flag: %v", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
