// Package verification owns the account verification lifecycle: issuing
// OTPs and link tokens, throttling resends, and consuming a secret exactly
// once.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/apperror"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/config"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/models"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/repository"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/secrets"
)

// Method selects how the verification secret is delivered.
type Method string

const (
	MethodOTP  Method = "otp"
	MethodLink Method = "link"
)

// ParseMethod normalizes a request-supplied method, defaulting to OTP.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", string(MethodOTP):
		return MethodOTP, nil
	case string(MethodLink):
		return MethodLink, nil
	default:
		return "", apperror.BadRequest(fmt.Sprintf("Unknown verification method: %s", s))
	}
}

// Mailer delivers an issued secret to the account holder. Implementations
// handle their own retry policy; an error means delivery has terminally
// failed.
type Mailer interface {
	SendOTP(ctx context.Context, to, name, otp string) error
	SendLink(ctx context.Context, to, name, token string) error
}

// Service is the verification state machine.
type Service struct {
	repo   *repository.Repository
	mailer Mailer
	cfg    config.AuthConfig
	now    func() time.Time
}

// NewService creates a verification service.
func NewService(repo *repository.Repository, mailer Mailer, cfg config.AuthConfig) *Service {
	return &Service{
		repo:   repo,
		mailer: mailer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// IssueAndSend issues a fresh secret for a newly registered account and
// dispatches it. The initial issuance does not count against the resend
// throttle.
func (s *Service) IssueAndSend(ctx context.Context, user *models.User, method Method) error {
	return s.issue(ctx, user, method, false)
}

// Resend re-issues a verification secret, subject to the cooldown policy.
func (s *Service) Resend(ctx context.Context, email string, method Method) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("No account found with that email address")
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.Verified {
		return apperror.Conflict("Email is already verified")
	}

	now := s.now()
	if user.NextResendAt != nil && now.Before(*user.NextResendAt) {
		wait := ceilSeconds(user.NextResendAt.Sub(now))
		return apperror.TooManyRequests(
			fmt.Sprintf("Please wait %d seconds before requesting another verification email", wait))
	}

	return s.issue(ctx, user, method, true)
}

// issue generates the secret for the chosen method, stores its hash and
// throttle state, and dispatches it. Exactly one of the OTP and token field
// pairs is populated; the other is cleared.
func (s *Service) issue(ctx context.Context, user *models.User, method Method, resend bool) error {
	var secret secrets.Secret
	var err error

	switch method {
	case MethodLink:
		secret, err = secrets.NewToken(s.cfg.TokenLength, s.cfg.SecretTTL)
	default:
		secret, err = secrets.NewOTP(s.cfg.OTPLength, s.cfg.SecretTTL)
	}
	if err != nil {
		return fmt.Errorf("failed to issue verification secret: %w", err)
	}

	now := s.now()
	if resend {
		user.ResendCount++
	}

	hash := secret.Hash
	expires := secret.ExpiresAt
	if method == MethodLink {
		user.TokenHash = &hash
		user.TokenExpiresAt = &expires
		user.OTPHash = nil
		user.OTPExpiresAt = nil
	} else {
		user.OTPHash = &hash
		user.OTPExpiresAt = &expires
		user.TokenHash = nil
		user.TokenExpiresAt = nil
	}

	user.LastSentAt = &now
	nextResend := now.Add(Cooldown(user.ResendCount, s.cfg.ResendBaseWait, s.cfg.ResendMaxWait))
	user.NextResendAt = &nextResend

	if err := s.repo.UpdateVerificationState(ctx, user); err != nil {
		return fmt.Errorf("failed to store verification secret: %w", err)
	}

	s.dispatch(ctx, user, method, secret.Plaintext)
	return nil
}

// dispatch delivers the secret and rolls it back if delivery terminally
// fails. Delivery problems are not surfaced to the caller; an account must
// not be left holding an undeliverable secret.
func (s *Service) dispatch(ctx context.Context, user *models.User, method Method, plaintext string) {
	var err error
	if method == MethodLink {
		err = s.mailer.SendLink(ctx, user.Email, user.Name, plaintext)
	} else {
		err = s.mailer.SendOTP(ctx, user.Email, user.Name, plaintext)
	}
	if err == nil {
		slog.Info("verification_sent", "user_id", user.ID, "method", string(method))
		return
	}

	slog.Error("verification_delivery_failed", "user_id", user.ID, "method", string(method), "error", err)

	if rbErr := s.repo.ClearVerificationSecrets(ctx, user.ID); rbErr != nil {
		slog.Error("verification_rollback_failed", "user_id", user.ID, "error", rbErr)
		return
	}
	user.OTPHash = nil
	user.OTPExpiresAt = nil
	user.TokenHash = nil
	user.TokenExpiresAt = nil
}

// Consume validates a supplied secret and marks the account verified.
// Exactly one of otp and token must be supplied. The failure message never
// distinguishes a wrong secret from an expired one.
func (s *Service) Consume(ctx context.Context, email, otp, token string) (*models.User, error) {
	if otp != "" && token != "" {
		return nil, apperror.BadRequest("Provide either an OTP or a verification token, not both")
	}
	if otp == "" && token == "" {
		return nil, apperror.BadRequest("An OTP or a verification token is required")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("No account found with that email address")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Verified {
		return nil, apperror.Conflict("Email is already verified")
	}

	var storedHash *string
	var expiresAt *time.Time
	supplied := otp
	if token != "" {
		supplied = token
		storedHash = user.TokenHash
		expiresAt = user.TokenExpiresAt
	} else {
		storedHash = user.OTPHash
		expiresAt = user.OTPExpiresAt
	}

	now := s.now()
	if storedHash == nil || expiresAt == nil ||
		secrets.Hash(supplied) != *storedHash || !expiresAt.After(now) {
		slog.Warn("verification_failed", "user_id", user.ID)
		return nil, apperror.BadRequest("Verification code is invalid or has expired")
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}

	user.Verified = true
	user.OTPHash = nil
	user.OTPExpiresAt = nil
	user.TokenHash = nil
	user.TokenExpiresAt = nil
	user.ResendCount = 0
	user.LastSentAt = nil
	user.NextResendAt = nil

	slog.Info("verification_success", "user_id", user.ID)
	return user, nil
}

// ceilSeconds rounds a duration up to whole seconds.
func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
