package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// MaxLoginHistory bounds the number of retained login attempts per user.
const MaxLoginHistory = 20

// User is the central account entity. Credential and verification secret
// state is never serialized outward.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`

	Verified bool `db:"verified" json:"verified"`

	OTPHash        *string    `db:"otp_hash" json:"-"`
	OTPExpiresAt   *time.Time `db:"otp_expires_at" json:"-"`
	TokenHash      *string    `db:"token_hash" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"-"`

	ResendCount  int64      `db:"resend_count" json:"-"`
	LastSentAt   *time.Time `db:"last_sent_at" json:"-"`
	NextResendAt *time.Time `db:"next_resend_at" json:"-"`

	LoginAttempts int64        `db:"login_attempts" json:"-"`
	LockExpiresAt *time.Time   `db:"lock_expires_at" json:"-"`
	LoginHistory  LoginHistory `db:"login_history" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LoginAttempt is a single entry in a user's login history.
type LoginAttempt struct { //nolint:govet // fieldalignment: readability over optimization
	Success   bool      `json:"success"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// LoginHistory is stored as a JSON column on the user row so that every
// guard update stays a single-row write.
type LoginHistory []LoginAttempt

// Append adds an attempt and evicts the oldest entries beyond MaxLoginHistory.
// Insertion order is preserved among the survivors.
func (h LoginHistory) Append(attempt LoginAttempt) LoginHistory {
	next := append(h, attempt)
	return lo.Subset(next, -MaxLoginHistory, MaxLoginHistory)
}

// Value implements driver.Valuer.
func (h LoginHistory) Value() (driver.Value, error) {
	if h == nil {
		h = LoginHistory{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encoding login history: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (h *LoginHistory) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*h = LoginHistory{}
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("unsupported login history type %T", src)
	}
}

// Locked reports whether the account is locked out of login at the given instant.
func (u *User) Locked(now time.Time) bool {
	return u.LockExpiresAt != nil && now.Before(*u.LockExpiresAt)
}
