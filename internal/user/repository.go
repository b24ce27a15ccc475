package user

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrNoTwoFactorCodeGenerated = errors.New("no two-factor authentication code generated")
	ErrSettingsNotFound         = errors.New("user settings not found")
)

type Repository interface {
	createUser(user *User) error
	createDefaultSettings(userID string, leadDays int) error
	getUserByEmail(email string) (*User, error)
	userExistsByLoginOrEmail(login, email string) (*User, error)
	getUserByLoginOrEmail(loginOrEmail string) (*User, error)
	getUserByID(id string) (*User, error)
	saveEmailVerificationCode(userID string, code string, expiresAt time.Time, codeType, newEmail string) error
	updateEmailVerified(userID string, verified bool) error
	getEmailVerificationCode(userID string) (string, string, string, time.Time, time.Time, error)
	deleteEmailTwoFactorCode(userID string) error
	updateUserPasswordAndHashToken(userID, newPasswordHash, newHashToken string) error
	updateEmail(userID, newEmail string) error
	getSettings(userID string) (*Settings, error)
	updateSettings(settings *Settings) error
	listNotificationPrefs() ([]NotificationPrefs, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) createUser(user *User) error {
	query := `
		INSERT INTO users (email, login, password_hash, two_factor_enabled, two_factor_method, hash_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id;
	`
	var id string
	err := r.db.QueryRow(query, user.Email, user.Login, user.PasswordHash, user.TwoFactorEnabled, user.TwoFactorMethod, user.HashToken).Scan(&id)
	if err != nil {
		return fmt.Errorf("could not create user: %v", err)
	}

	user.ID = id
	return nil
}

func (r *userRepository) createDefaultSettings(userID string, leadDays int) error {
	query := `
		INSERT INTO user_settings (user_id, reminder_lead_days, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(query, userID, leadDays)
	if err != nil {
		return fmt.Errorf("could not create default settings: %v", err)
	}
	return nil
}

func (r *userRepository) getUserByEmail(email string) (*User, error) {
	query := `
		SELECT id, email, login, password_hash, two_factor_enabled, two_factor_method, hash_token, is_active, is_admin, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.QueryRow(query, email))
}

func (r *userRepository) getUserByID(id string) (*User, error) {
	query := `
		SELECT id, email, login, password_hash, two_factor_enabled, two_factor_method, hash_token, is_active, is_admin, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRow(query, id))
}

func (r *userRepository) getUserByLoginOrEmail(loginOrEmail string) (*User, error) {
	query := `
		SELECT id, email, login, password_hash, two_factor_enabled, two_factor_method, hash_token, is_active, is_admin, created_at, updated_at
		FROM users
		WHERE login = $1 OR email = $1
	`
	return r.scanUser(r.db.QueryRow(query, loginOrEmail))
}

func (r *userRepository) userExistsByLoginOrEmail(login, email string) (*User, error) {
	query := `
		SELECT id, email, login, password_hash, two_factor_enabled, two_factor_method, hash_token, is_active, is_admin, created_at, updated_at
		FROM users
		WHERE login = $1 OR email = $2
	`
	return r.scanUser(r.db.QueryRow(query, login, email))
}

func (r *userRepository) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Login,
		&user.PasswordHash,
		&user.TwoFactorEnabled,
		&user.TwoFactorMethod,
		&user.HashToken,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not get user: %v", err)
	}
	return &user, nil
}

func (r *userRepository) saveEmailVerificationCode(userID string, code string, expiresAt time.Time, codeType, newEmail string) error {
	query := `
		INSERT INTO user_email_verification_codes (user_id, code, code_type, new_email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET code = EXCLUDED.code,
		    code_type = EXCLUDED.code_type,
		    new_email = EXCLUDED.new_email,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`
	_, err := r.db.Exec(query, userID, code, codeType, newEmail, expiresAt)
	if err != nil {
		return fmt.Errorf("could not save verification code: %v", err)
	}
	return nil
}

func (r *userRepository) getEmailVerificationCode(userID string) (string, string, string, time.Time, time.Time, error) {
	query := `
		SELECT code, code_type, new_email, expires_at, created_at
		FROM user_email_verification_codes
		WHERE user_id = $1
	`
	var code, codeType, newEmail string
	var expiresAt, createdAt time.Time
	err := r.db.QueryRow(query, userID).Scan(&code, &codeType, &newEmail, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", "", time.Time{}, time.Time{}, ErrNoTwoFactorCodeGenerated
		}
		return "", "", "", time.Time{}, time.Time{}, fmt.Errorf("could not get verification code: %v", err)
	}
	return code, codeType, newEmail, expiresAt, createdAt, nil
}

func (r *userRepository) deleteEmailTwoFactorCode(userID string) error {
	query := `DELETE FROM user_email_verification_codes WHERE user_id = $1`
	_, err := r.db.Exec(query, userID)
	if err != nil {
		return fmt.Errorf("could not delete verification code: %v", err)
	}
	return nil
}

func (r *userRepository) updateEmailVerified(userID string, verified bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(query, verified, userID)
	if err != nil {
		return fmt.Errorf("could not update verified flag: %v", err)
	}
	return nil
}

func (r *userRepository) updateUserPasswordAndHashToken(userID, newPasswordHash, newHashToken string) error {
	query := `UPDATE users SET password_hash = $1, hash_token = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.Exec(query, newPasswordHash, newHashToken, userID)
	if err != nil {
		return fmt.Errorf("could not update user password: %v", err)
	}
	return nil
}

func (r *userRepository) updateEmail(userID, newEmail string) error {
	query := `UPDATE users SET email = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(query, newEmail, userID)
	if err != nil {
		return fmt.Errorf("could not update user email: %v", err)
	}
	return nil
}

func (r *userRepository) getSettings(userID string) (*Settings, error) {
	query := `
		SELECT user_id, currency, reminder_lead_days, email_reminders_enabled, push_enabled, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
	`
	var s Settings
	err := r.db.QueryRow(query, userID).Scan(
		&s.UserID,
		&s.Currency,
		&s.ReminderLeadDays,
		&s.EmailRemindersEnabled,
		&s.PushEnabled,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("could not get user settings: %v", err)
	}
	return &s, nil
}

func (r *userRepository) updateSettings(settings *Settings) error {
	query := `
		UPDATE user_settings
		SET currency = $1,
		    reminder_lead_days = $2,
		    email_reminders_enabled = $3,
		    push_enabled = $4,
		    updated_at = NOW()
		WHERE user_id = $5
	`
	res, err := r.db.Exec(query, settings.Currency, settings.ReminderLeadDays, settings.EmailRemindersEnabled, settings.PushEnabled, settings.UserID)
	if err != nil {
		return fmt.Errorf("could not update user settings: %v", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrSettingsNotFound
	}
	return nil
}

func (r *userRepository) listNotificationPrefs() ([]NotificationPrefs, error) {
	query := `
		SELECT u.id, u.email, u.login, s.currency, s.reminder_lead_days, s.email_reminders_enabled, s.push_enabled
		FROM users u
		JOIN user_settings s ON s.user_id = u.id
		WHERE u.is_active = TRUE
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("could not list notification prefs: %v", err)
	}
	defer rows.Close()

	var prefs []NotificationPrefs
	for rows.Next() {
		var p NotificationPrefs
		if err := rows.Scan(&p.UserID, &p.Email, &p.Login, &p.Currency, &p.ReminderLeadDays, &p.EmailRemindersEnabled, &p.PushEnabled); err != nil {
			return nil, fmt.Errorf("could not scan notification prefs: %v", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
