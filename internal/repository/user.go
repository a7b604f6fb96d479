package repository

import (
	"context"
	"time"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/models"
)

// CreateUser inserts a new account. The caller must have normalized the
// email and hashed the password already.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, username, password_hash, login_history, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '[]', ?, ?)`,
		user.Name, user.Email, user.Username, user.PasswordHash, now, now)
	if err != nil {
		return wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by their normalized email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UsernameExists reports whether a username is taken.
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE username = ?`, username); err != nil {
		return false, wrapError(err)
	}
	return count > 0, nil
}

// UpdateVerificationState writes the secret and resend-throttle fields of a
// pending verification in a single row update.
func (r *Repository) UpdateVerificationState(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET otp_hash = ?, otp_expires_at = ?, token_hash = ?, token_expires_at = ?,
		     resend_count = ?, last_sent_at = ?, next_resend_at = ?, updated_at = ?
		 WHERE id = ?`,
		user.OTPHash, user.OTPExpiresAt, user.TokenHash, user.TokenExpiresAt,
		user.ResendCount, user.LastSentAt, user.NextResendAt, time.Now().UTC(), user.ID)
	return wrapError(err)
}

// MarkVerified flips the account to verified and clears all secret and
// resend-throttle fields together. This is the terminal transition of the
// verification lifecycle.
func (r *Repository) MarkVerified(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET verified = 1,
		     otp_hash = NULL, otp_expires_at = NULL,
		     token_hash = NULL, token_expires_at = NULL,
		     resend_count = 0, last_sent_at = NULL, next_resend_at = NULL,
		     updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), userID)
	return wrapError(err)
}

// ClearVerificationSecrets removes a pending secret without touching the
// resend-throttle fields. Used to roll back an undeliverable secret.
func (r *Repository) ClearVerificationSecrets(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET otp_hash = NULL, otp_expires_at = NULL,
		     token_hash = NULL, token_expires_at = NULL,
		     updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), userID)
	return wrapError(err)
}

// UpdateLoginGuard persists the failed-login counter, lock window and
// bounded history in a single row update.
func (r *Repository) UpdateLoginGuard(ctx context.Context, userID int64, attempts int64, lockExpiresAt *time.Time, history models.LoginHistory) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET login_attempts = ?, lock_expires_at = ?, login_history = ?, updated_at = ?
		 WHERE id = ?`,
		attempts, lockExpiresAt, history, time.Now().UTC(), userID)
	return wrapError(err)
}
