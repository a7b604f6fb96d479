// Package email delivers verification secrets over SMTP with a bounded
// retry policy.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/config"
	"github.com/sethvargo/go-retry"
	"github.com/wneessen/go-mail"
)

const verificationSubject = "Verify your email"

// Service sends verification emails.
type Service struct { //nolint:govet // fieldalignment: readability over optimization
	cfg        config.SMTPConfig
	baseURL    string
	secretTTL  time.Duration
	retries    int
	retryDelay time.Duration
}

// NewService creates an email service.
func NewService(smtp config.SMTPConfig, auth config.AuthConfig, baseURL string) (*Service, error) {
	if smtp.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if smtp.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	retries := auth.EmailRetries
	if retries < 1 {
		retries = 1
	}

	return &Service{
		cfg:        smtp,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secretTTL:  auth.SecretTTL,
		retries:    retries,
		retryDelay: auth.EmailRetryDelay,
	}, nil
}

// SendOTP sends a verification passcode.
func (s *Service) SendOTP(ctx context.Context, to, name, otp string) error {
	html, err := renderOTP(name, otp, s.secretTTL)
	if err != nil {
		return fmt.Errorf("rendering otp email: %w", err)
	}
	text := fmt.Sprintf("Your OTP for email verification is: %s", otp)
	return s.sendWithRetry(ctx, to, verificationSubject, text, html)
}

// SendLink sends a verification link carrying the token.
func (s *Service) SendLink(ctx context.Context, to, name, token string) error {
	verifyURL := fmt.Sprintf("%s/api/v1/verify-link?token=%s&email=%s",
		s.baseURL, url.QueryEscape(token), url.QueryEscape(to))

	html, err := renderLink(name, verifyURL)
	if err != nil {
		return fmt.Errorf("rendering link email: %w", err)
	}
	text := fmt.Sprintf("Click this link to verify your email: %s", verifyURL)
	return s.sendWithRetry(ctx, to, verificationSubject, text, html)
}

// sendWithRetry attempts delivery up to the configured bound with a fixed
// inter-attempt delay. The caller-supplied context bounds the whole loop.
func (s *Service) sendWithRetry(ctx context.Context, to, subject, text, html string) error {
	backoff := retry.WithMaxRetries(uint64(s.retries-1), retry.NewConstant(s.retryDelay)) //nolint:gosec // retries is clamped positive

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if sendErr := s.send(to, subject, text, html); sendErr != nil {
			slog.Warn("email_send_failed", "to", to, "attempt", attempt, "error", sendErr)
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sending email after %d attempts: %w", attempt, err)
	}
	return nil
}

// send sends one email via SMTP using go-mail.
func (s *Service) send(to, subject, text, html string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
