// Package auth implements account registration and the login attempt guard:
// failed-login counting, temporary lockout, and bounded login history.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/apperror"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/config"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/models"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/repository"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/services/geoip"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// incorrectCredentials is returned for wrong passwords, unknown accounts and
// unverified accounts alike. An unauthenticated caller must not be able to
// tell these apart.
const incorrectCredentials = "Incorrect email or password"

// dummyHash is used for constant-time login to prevent timing attacks.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Locator resolves an origin address to a coarse geographic label.
type Locator interface {
	Lookup(ctx context.Context, ip string) (geoip.Location, error)
}

// Service handles registration and login.
type Service struct {
	repo    *repository.Repository
	locator Locator
	cfg     config.AuthConfig
	now     func() time.Time
}

// NewService creates an auth service.
func NewService(repo *repository.Repository, locator Locator, cfg config.AuthConfig) *Service {
	return &Service{
		repo:    repo,
		locator: locator,
		cfg:     cfg,
		now:     time.Now,
	}
}

// RegisterParams holds the parameters for account registration.
type RegisterParams struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// Register creates a new unverified account. The password is hashed and the
// username derived before anything is persisted.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if err := validateRegistration(params); err != nil {
		return nil, err
	}

	email := NormalizeEmail(params.Email)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	username, err := s.deriveUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(params.Name),
		Email:        email,
		Username:     username,
		PasswordHash: string(passwordHash),
		LoginHistory: models.LoginHistory{},
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperror.Conflict("Email is already in use")
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, apperror.Conflict("Username is already in use")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", email)
	return user, nil
}

// GetUser returns the account with the given ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("No account found with that ID")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// LoginParams holds a login attempt and its request origin.
type LoginParams struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Login verifies credentials under the attempt guard. Every attempt, allowed
// or not, lands in the bounded login history.
func (s *Service) Login(ctx context.Context, params LoginParams) (*models.User, error) {
	if params.Email == "" || params.Password == "" {
		return nil, apperror.Validation("Please provide your email and password")
	}

	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform a bcrypt comparison so unknown
			// accounts are indistinguishable from wrong passwords.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(params.Password))
			slog.Warn("login_failed", "email", params.Email, "reason", "user_not_found")
			return nil, apperror.BadRequest(incorrectCredentials)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := s.now()
	entry := s.historyEntry(ctx, params, now)

	if user.Locked(now) {
		entry.Success = false
		if guardErr := s.recordAttempt(ctx, user, entry, user.LoginAttempts, user.LockExpiresAt); guardErr != nil {
			return nil, guardErr
		}
		minutes := ceilMinutes(user.LockExpiresAt.Sub(now))
		slog.Warn("login_blocked", "user_id", user.ID, "minutes_remaining", minutes)
		return nil, apperror.New(apperror.CodeTooManyRequests, http.StatusBadRequest,
			fmt.Sprintf("Too many failed login attempts. Try again in %d minutes", minutes))
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)) != nil {
		entry.Success = false
		attempts := user.LoginAttempts + 1
		var lockExpires *time.Time
		if attempts >= int64(s.cfg.MaxLoginAttempts) {
			// Reaching the threshold opens a lock window and resets the
			// counter; it never persists past the threshold value.
			lockedUntil := now.Add(s.cfg.LockoutDuration)
			lockExpires = &lockedUntil
			attempts = 0
			slog.Warn("login_locked", "user_id", user.ID, "until", lockedUntil)
		}
		if guardErr := s.recordAttempt(ctx, user, entry, attempts, lockExpires); guardErr != nil {
			return nil, guardErr
		}
		slog.Warn("login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, apperror.BadRequest(incorrectCredentials)
	}

	entry.Success = true
	if guardErr := s.recordAttempt(ctx, user, entry, 0, nil); guardErr != nil {
		return nil, guardErr
	}

	if !user.Verified {
		// Same message as a wrong password; verification status is never
		// revealed to an unauthenticated caller.
		slog.Warn("login_failed", "user_id", user.ID, "reason", "unverified")
		return nil, apperror.Conflict(incorrectCredentials)
	}

	slog.Info("login_success", "user_id", user.ID)
	return user, nil
}

// recordAttempt appends a history entry and persists the guard state in one
// row update.
func (s *Service) recordAttempt(ctx context.Context, user *models.User, entry models.LoginAttempt, attempts int64, lockExpires *time.Time) error {
	user.LoginHistory = user.LoginHistory.Append(entry)
	user.LoginAttempts = attempts
	user.LockExpiresAt = lockExpires

	if err := s.repo.UpdateLoginGuard(ctx, user.ID, attempts, lockExpires, user.LoginHistory); err != nil {
		return fmt.Errorf("failed to update login guard: %w", err)
	}
	return nil
}

func (s *Service) historyEntry(ctx context.Context, params LoginParams, now time.Time) models.LoginAttempt {
	entry := models.LoginAttempt{
		IPAddress: params.IPAddress,
		UserAgent: params.UserAgent,
		Timestamp: now,
	}
	if s.locator != nil && params.IPAddress != "" {
		loc, err := s.locator.Lookup(ctx, params.IPAddress)
		if err != nil {
			slog.Debug("geoip_lookup_failed", "ip", params.IPAddress, "error", err)
		}
		entry.Location = loc.Label()
	}
	return entry
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(params RegisterParams) error {
	name := strings.TrimSpace(params.Name)
	if name == "" || strings.TrimSpace(params.Email) == "" ||
		strings.TrimSpace(params.Password) == "" || strings.TrimSpace(params.PasswordConfirm) == "" {
		return apperror.Validation("Please provide your name, email, password and password confirmation")
	}
	if len(name) < 3 || len(name) > 50 {
		return apperror.Validation("Name must be between 3 and 50 characters")
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return apperror.Validation("Please provide a valid email")
	}
	if len(params.Password) < 8 {
		return apperror.Validation("Password must be at least 8 characters")
	}
	if params.Password != params.PasswordConfirm {
		return apperror.Validation("Passwords do not match")
	}
	return nil
}

// deriveUsername builds a unique username from the email local part,
// appending a random suffix on collision.
func (s *Service) deriveUsername(ctx context.Context, email string) (string, error) {
	base := email
	if at := strings.IndexByte(base, '@'); at > 0 {
		base = base[:at]
	}
	base = sanitizeUsername(base)
	if base == "" {
		base = "user"
	}

	candidate := base
	for range 3 {
		taken, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + uuid.NewString()[:8]
	}
	return candidate, nil
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// ceilMinutes rounds a duration up to whole minutes.
func ceilMinutes(d time.Duration) int64 {
	return int64((d + time.Minute - 1) / time.Minute)
}
