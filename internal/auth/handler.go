package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hoaxify/hoaxify-server/internal/httputil"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/ratelimit"
	"github.com/hoaxify/hoaxify-server/internal/user"
)

// PasswordResetter handles the two-step password recovery flow.
type PasswordResetter interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	resets      PasswordResetter
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, resets PasswordResetter, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		resets:      resets,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Image    *string   `json:"image"`
	Token    string    `json:"token"`
}

// PasswordResetRequest represents the password reset request body
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordUpdateRequest represents the password reset completion body
type PasswordUpdateRequest struct {
	PasswordResetToken string `json:"passwordResetToken"`
	Password           string `json:"password"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive an opaque session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      403 {object} ErrorResponse "Account not activated"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := httputil.ClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "login")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for login", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	account, token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		if errors.Is(err, user.ErrAccountInactive) {
			logger.Warn("login failed: account not activated")
			respondError(w, "account is not active", httputil.CodeAccountInactive, http.StatusForbidden)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		respondError(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in successfully", "user_id", account.ID)

	respondJSON(w, LoginResponse{
		ID:       account.ID,
		Username: account.Username,
		Image:    account.Image,
		Token:    token,
	}, http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Revoke the presented session token. Succeeds whether or not a valid token was sent.
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if raw, ok := bearerToken(r); ok {
		if err := h.service.Logout(r.Context(), raw); err != nil {
			logger.Warn("failed to revoke session token", "error", err.Error())
		}
	}

	logger.Info("user logged out")

	respondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// RequestPasswordReset handles password reset requests
// @Summary      Request password reset
// @Description  Send a password reset email to the account with the given address
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body PasswordResetRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      403 {object} ErrorResponse "Account not activated"
// @Failure      404 {object} ErrorResponse "Email not found"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Failure      502 {object} ErrorResponse "Email delivery failure"
// @Router       /auth/password [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := httputil.ClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "password_reset")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for password reset", "ip", ip)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid password reset request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "password_reset"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	if err := h.resets.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("password reset requested for unknown email")
			respondError(w, "email not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		if errors.Is(err, user.ErrAccountInactive) {
			logger.Warn("password reset requested for inactive account")
			respondError(w, "account is not active", httputil.CodeAccountInactive, http.StatusForbidden)
			return
		}
		if errors.Is(err, user.ErrEmailDelivery) {
			logger.Error("password reset email delivery failed", "error", err.Error())
			respondError(w, "failed to deliver email", httputil.CodeInternalError, http.StatusBadGateway)
			return
		}
		logger.Error("password reset request failed: internal error", "error", err.Error())
		respondError(w, "failed to process password reset", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password reset email sent")

	respondJSON(w, map[string]string{
		"message": "Check your e-mail for resetting your password",
	}, http.StatusOK)
}

// ResetPassword handles password reset completion
// @Summary      Reset password
// @Description  Set a new password using a valid reset token. All sessions of the account are revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body PasswordUpdateRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid request or password"
// @Failure      403 {object} ErrorResponse "Invalid reset token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/password [put]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req PasswordUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid password update request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.resets.ResetPassword(r.Context(), req.PasswordResetToken, req.Password); err != nil {
		if errors.Is(err, user.ErrInvalidResetToken) {
			logger.Warn("password reset failed: invalid token")
			respondError(w, "invalid password reset token", httputil.CodeForbidden, http.StatusForbidden)
			return
		}
		if errors.Is(err, user.ErrPasswordRequired) || errors.Is(err, user.ErrPasswordTooShort) {
			logger.Warn("password reset failed: validation error", "error", err.Error())
			respondError(w, err.Error(), httputil.CodeValidationFailure, http.StatusBadRequest)
			return
		}
		logger.Error("password reset failed: internal error", "error", err.Error())
		respondError(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password reset successfully")

	respondJSON(w, map[string]string{
		"message": "Password updated successfully",
	}, http.StatusOK)
}

// bearerToken extracts the opaque token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
