package verification

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/apperror"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/config"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/repository"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/secrets"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	otps   []string
	tokens []string
	err    error
}

func (m *fakeMailer) SendOTP(_ context.Context, _, _, otp string) error {
	if m.err != nil {
		return m.err
	}
	m.otps = append(m.otps, otp)
	return nil
}

func (m *fakeMailer) SendLink(_ context.Context, _, _, token string) error {
	if m.err != nil {
		return m.err
	}
	m.tokens = append(m.tokens, token)
	return nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		OTPLength:      6,
		TokenLength:    32,
		SecretTTL:      10 * time.Minute,
		ResendBaseWait: 10 * time.Second,
		ResendMaxWait:  time.Hour,
	}
}

func newTestService(t *testing.T) (*Service, *repository.Repository, *fakeMailer) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	mailer := &fakeMailer{}
	return NewService(repo, mailer, testAuthConfig()), repo, mailer
}

func TestIssueAndSend_OTP(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	require.Len(t, mailer.otps, 1)
	otp := mailer.otps[0]
	assert.Regexp(t, "^[0-9]{6}$", otp)

	stored, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.OTPHash)
	assert.Equal(t, secrets.Hash(otp), *stored.OTPHash)
	require.NotNil(t, stored.OTPExpiresAt)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *stored.OTPExpiresAt, 5*time.Second)

	// only one secret active at a time
	assert.Nil(t, stored.TokenHash)
	assert.Nil(t, stored.TokenExpiresAt)

	// initial issuance does not count as a resend and imposes no wait
	assert.EqualValues(t, 0, stored.ResendCount)
	require.NotNil(t, stored.LastSentAt)
	require.NotNil(t, stored.NextResendAt)
	assert.WithinDuration(t, *stored.LastSentAt, *stored.NextResendAt, time.Second)
}

func TestIssueAndSend_Link(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "bob@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodLink))

	require.Len(t, mailer.tokens, 1)
	assert.Regexp(t, "^[0-9a-f]{64}$", mailer.tokens[0])

	stored, err := repo.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.TokenHash)
	assert.Equal(t, secrets.Hash(mailer.tokens[0]), *stored.TokenHash)
	assert.Nil(t, stored.OTPHash)
	assert.Nil(t, stored.OTPExpiresAt)
}

func TestIssueAndSend_RollbackOnDeliveryFailure(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()
	mailer.err = errors.New("smtp unreachable")

	user := testutil.NewTestUser(t, repo, "carol@example.com")

	// delivery failure must not fail the request
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	stored, err := repo.GetUserByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Nil(t, stored.OTPHash)
	assert.Nil(t, stored.OTPExpiresAt)
	assert.Nil(t, stored.TokenHash)
	assert.Nil(t, stored.TokenExpiresAt)
	assert.False(t, stored.Verified)
}

func TestResend_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Resend(context.Background(), "ghost@example.com", MethodOTP)

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
}

func TestResend_AlreadyVerified(t *testing.T) {
	svc, repo, _ := newTestService(t)

	testutil.NewVerifiedTestUser(t, repo, "dave@example.com")

	err := svc.Resend(context.Background(), "dave@example.com", MethodOTP)

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestResend_CooldownActive(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "erin@example.com")

	now := time.Now()
	svc.now = func() time.Time { return now }

	next := now.Add(25*time.Second + 500*time.Millisecond)
	user.NextResendAt = &next
	require.NoError(t, repo.UpdateVerificationState(ctx, user))

	err := svc.Resend(ctx, "erin@example.com", MethodOTP)

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTooManyRequests, appErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	// remaining wait is rounded up to whole seconds
	assert.Contains(t, appErr.Message, "26 seconds")
}

func TestResend_IncrementsCountAndSchedulesNext(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "frank@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	now := time.Now().Add(time.Minute)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Resend(ctx, "frank@example.com", MethodOTP))

	stored, err := repo.GetUserByEmail(ctx, "frank@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.ResendCount)
	require.NotNil(t, stored.NextResendAt)
	assert.WithinDuration(t, now.Add(10*time.Second), *stored.NextResendAt, time.Second)
	assert.Len(t, mailer.otps, 2)

	// second resend waits twice the base unit
	now = now.Add(time.Minute)
	require.NoError(t, svc.Resend(ctx, "frank@example.com", MethodOTP))

	stored, err = repo.GetUserByEmail(ctx, "frank@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.ResendCount)
	assert.WithinDuration(t, now.Add(20*time.Second), *stored.NextResendAt, time.Second)
}

func TestResend_CapAfterFiveResends(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "grace@example.com")
	user.ResendCount = 4
	require.NoError(t, repo.UpdateVerificationState(ctx, user))

	now := time.Now()
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Resend(ctx, "grace@example.com", MethodOTP))

	stored, err := repo.GetUserByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 5, stored.ResendCount)
	require.NotNil(t, stored.NextResendAt)
	assert.WithinDuration(t, now.Add(time.Hour), *stored.NextResendAt, time.Second)
}

func TestResend_SwitchingMethodReplacesSecret(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "heidi@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	now := time.Now().Add(time.Minute)
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Resend(ctx, "heidi@example.com", MethodLink))

	stored, err := repo.GetUserByEmail(ctx, "heidi@example.com")
	require.NoError(t, err)
	assert.Nil(t, stored.OTPHash)
	assert.Nil(t, stored.OTPExpiresAt)
	require.NotNil(t, stored.TokenHash)
	assert.Len(t, mailer.tokens, 1)
}

func TestConsume_RequiresExactlyOneSecret(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "x@example.com", "123456", "sometoken")
	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBadRequest, appErr.Code)

	_, err = svc.Consume(ctx, "x@example.com", "", "")
	appErr, ok = apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBadRequest, appErr.Code)
}

func TestConsume_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Consume(context.Background(), "ghost@example.com", "123456", "")

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
}

func TestConsume_WrongOTP(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "ivan@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	wrong := "000000"
	if mailer.otps[0] == wrong {
		wrong = "000001"
	}

	_, err := svc.Consume(ctx, "ivan@example.com", wrong, "")

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBadRequest, appErr.Code)
	assert.Equal(t, "Verification code is invalid or has expired", appErr.Message)
}

func TestConsume_ExpiryBoundary(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "judy@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	stored, err := repo.GetUserByEmail(ctx, "judy@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.OTPExpiresAt)

	// the boundary instant itself is already expired
	svc.now = func() time.Time { return *stored.OTPExpiresAt }

	_, err = svc.Consume(ctx, "judy@example.com", mailer.otps[0], "")

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, "Verification code is invalid or has expired", appErr.Message)
}

func TestConsume_Success(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "kate@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	verified, err := svc.Consume(ctx, "kate@example.com", mailer.otps[0], "")
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	stored, err := repo.GetUserByEmail(ctx, "kate@example.com")
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Nil(t, stored.OTPHash)
	assert.Nil(t, stored.OTPExpiresAt)
	assert.Nil(t, stored.TokenHash)
	assert.Nil(t, stored.TokenExpiresAt)
	assert.EqualValues(t, 0, stored.ResendCount)
	assert.Nil(t, stored.LastSentAt)
	assert.Nil(t, stored.NextResendAt)
}

func TestConsume_ReplayFails(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "leo@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodOTP))

	_, err := svc.Consume(ctx, "leo@example.com", mailer.otps[0], "")
	require.NoError(t, err)

	_, err = svc.Consume(ctx, "leo@example.com", mailer.otps[0], "")

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestConsume_TokenPath(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "mallory@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodLink))

	verified, err := svc.Consume(ctx, "mallory@example.com", "", mailer.tokens[0])

	require.NoError(t, err)
	assert.True(t, verified.Verified)
}

func TestConsume_OTPAgainstIssuedLink(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "nina@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, user, MethodLink))

	_, err := svc.Consume(ctx, "nina@example.com", "123456", "")

	appErr, ok := apperror.From(err)
	require.True(t, ok)
	assert.Equal(t, "Verification code is invalid or has expired", appErr.Message)
}

func TestParseMethod(t *testing.T) {
	method, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodOTP, method)

	method, err = ParseMethod("link")
	require.NoError(t, err)
	assert.Equal(t, MethodLink, method)

	_, err = ParseMethod("carrier-pigeon")
	assert.True(t, apperror.IsOperational(err))
}
