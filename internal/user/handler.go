package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoaxify/hoaxify-server/internal/httputil"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/ratelimit"
	"github.com/hoaxify/hoaxify-server/internal/token"
)

// Handler contains HTTP handlers for the user endpoints.
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRequest represents the profile update request body
type UpdateRequest struct {
	Username string  `json:"username"`
	Image    *string `json:"image"` // base64-encoded
}

// Response represents a user in API responses
type Response struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Image    *string   `json:"image"`
}

func toResponse(u *User) Response {
	return Response{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Image:    u.Image,
	}
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new inactive account; an activation e-mail is sent.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration fields"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Router       /api/v1/users [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := httputil.ClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "register")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for register", "ip", ip)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "register"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	newUser, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists", "email", req.Email)
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case isValidationError(err):
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailure, http.StatusBadRequest)
		default:
			logger.Error("registration failed", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)
	httputil.RespondJSON(w, map[string]string{"message": "User created"}, http.StatusOK)
}

// Activate handles account activation
// @Summary      Activate an account
// @Tags         users
// @Produce      json
// @Param        token path string true "Activation token"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid token"
// @Router       /api/v1/users/token/{token} [post]
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	err := h.service.Activate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, ErrInvalidActivationToken) {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidToken, http.StatusBadRequest)
			return
		}
		logger.Error("activation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to activate account", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "Account activated"}, http.StatusOK)
}

// List handles the paginated user listing
// @Summary      List users
// @Description  Page of active users. An authenticated caller is excluded from the results.
// @Tags         users
// @Produce      json
// @Param        page query int false "Page number" default(0)
// @Param        size query int false "Page size (max 10)" default(10)
// @Success      200 {object} httputil.Paged[Response]
// @Router       /api/v1/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	p := httputil.ParsePagination(r)

	callerID := uuid.Nil
	if identity, ok := token.IdentityFromContext(r.Context()); ok {
		callerID = identity.ID
	}

	users, total, err := h.service.List(r.Context(), callerID, p.Size, p.Offset())
	if err != nil {
		logger.Error("failed to list users", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list users", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	content := make([]Response, 0, len(users))
	for i := range users {
		content = append(content, toResponse(&users[i]))
	}

	httputil.RespondJSON(w, httputil.NewPaged(content, p, total), http.StatusOK)
}

// Get handles fetching a single user
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} Response
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/v1/users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get user", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, toResponse(u), http.StatusOK)
}

// Update handles profile updates
// @Summary      Update a user
// @Description  Change the username and optionally replace the profile image (base64).
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body UpdateRequest true "Fields to update"
// @Security     BearerAuth
// @Success      200 {object} Response
// @Failure      403 {object} httputil.ErrorResponse "Not the account owner"
// @Router       /api/v1/users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), id, req.Username, req.Image)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update user", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, toResponse(updated), http.StatusOK)
}

// Delete handles account deletion
// @Summary      Delete a user
// @Description  Deletes the account and revokes every session.
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      403 {object} httputil.ErrorResponse "Not the account owner"
// @Router       /api/v1/users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete user", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user deleted", "user_id", id)
	httputil.RespondJSON(w, map[string]string{"message": "User deleted"}, http.StatusOK)
}

// requireOwner parses {id} and checks the authenticated caller owns that
// account. Anonymous callers and other users both get 403.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeNotFound, http.StatusNotFound)
		return uuid.Nil, false
	}

	identity, ok := token.IdentityFromContext(r.Context())
	if !ok || identity.ID != id {
		httputil.RespondErrorWithCode(w, "you are not authorized to perform this action", httputil.CodeForbidden, http.StatusForbidden)
		return uuid.Nil, false
	}

	return id, true
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrUsernameRequired,
		ErrUsernameLength,
		ErrEmailRequired,
		ErrInvalidEmailFormat,
		ErrPasswordRequired,
		ErrPasswordTooShort,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
