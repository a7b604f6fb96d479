package handlers

import (
	"net/http"
	"strconv"

	"github.com/Majd-Alhourani98/advanced-auth-system/internal/apperror"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/services/auth"
	"github.com/Majd-Alhourani98/advanced-auth-system/internal/services/verification"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for registration, verification and login.
type AuthHandlers struct {
	auth         *auth.Service
	verification *verification.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(authService *auth.Service, verificationService *verification.Service) *AuthHandlers {
	return &AuthHandlers{
		auth:         authService,
		verification: verificationService,
	}
}

// SignupRequest is the request body for registration.
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	VerifyMethod    string `json:"verifyMethod"`
}

// Signup registers a new account and dispatches its first verification
// secret. Delivery problems never fail the request.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}

	method, err := verification.ParseMethod(req.VerifyMethod)
	if err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), auth.RegisterParams{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return err
	}

	if err := h.verification.IssueAndSend(c.Request().Context(), user, method); err != nil {
		return err
	}

	return respondData(c, http.StatusCreated, envelope{"user": user})
}

// ResendRequest is the request body for re-issuing a verification secret.
type ResendRequest struct {
	Email        string `json:"email"`
	VerifyMethod string `json:"verifyMethod"`
}

// ResendVerification re-issues a verification secret under the cooldown
// policy.
func (h *AuthHandlers) ResendVerification(c echo.Context) error {
	var req ResendRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if req.Email == "" {
		return apperror.Validation("Please provide your email")
	}

	method, err := verification.ParseMethod(req.VerifyMethod)
	if err != nil {
		return err
	}

	if err := h.verification.Resend(c.Request().Context(), auth.NormalizeEmail(req.Email), method); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, "Verification email sent")
}

// VerifyLink consumes a link token from the query string.
func (h *AuthHandlers) VerifyLink(c echo.Context) error {
	token := c.QueryParam("token")
	email := c.QueryParam("email")
	if token == "" || email == "" {
		return apperror.Validation("Token and email are required")
	}

	user, err := h.verification.Consume(c.Request().Context(), auth.NormalizeEmail(email), "", token)
	if err != nil {
		return err
	}

	return respondData(c, http.StatusOK, envelope{"user": user})
}

// VerifyOTPRequest is the request body for OTP verification.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP consumes a one-time passcode.
func (h *AuthHandlers) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	if req.Email == "" || req.OTP == "" {
		return apperror.Validation("Email and OTP are required")
	}

	user, err := h.verification.Consume(c.Request().Context(), auth.NormalizeEmail(req.Email), req.OTP, "")
	if err != nil {
		return err
	}

	return respondData(c, http.StatusOK, envelope{"user": user})
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user under the login attempt guard. The client
// address comes from the transport layer, not the payload.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}

	user, err := h.auth.Login(c.Request().Context(), auth.LoginParams{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}

	return respondData(c, http.StatusOK, envelope{"user": user})
}

// GetUser returns a sanitized account by ID.
func (h *AuthHandlers) GetUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.BadRequest("Invalid user ID")
	}

	user, err := h.auth.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return respondData(c, http.StatusOK, envelope{"user": user})
}
