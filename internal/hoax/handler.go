package hoax

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoaxify/hoaxify-server/internal/httputil"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/token"
	"github.com/hoaxify/hoaxify-server/internal/user"
)

// Handler contains HTTP handlers for the hoax endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// CreateRequest represents the hoax submission body
type CreateRequest struct {
	Content          string     `json:"content"`
	FileAttachmentID *uuid.UUID `json:"fileAttachment"`
}

// Create handles hoax submission
// @Summary      Post a hoax
// @Description  Post a hoax for the authenticated user, optionally binding a previously uploaded attachment
// @Tags         hoaxes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Hoax content and optional attachment id"
// @Success      201 {object} Hoax
// @Failure      400 {object} httputil.ErrorResponse "Invalid content"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Router       /api/v1/hoaxes [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := token.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid hoax request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), identity.ID, req.Content, req.FileAttachmentID)
	if err != nil {
		if errors.Is(err, ErrContentRequired) || errors.Is(err, ErrContentLength) {
			logger.Warn("hoax rejected: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailure, http.StatusBadRequest)
			return
		}
		logger.Error("failed to create hoax", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to save hoax", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("hoax created", "hoax_id", created.ID, "user_id", identity.ID)

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Feed handles the global hoax feed
// @Summary      List hoaxes
// @Description  Page through all hoaxes, newest first
// @Tags         hoaxes
// @Produce      json
// @Param        page query int false "Page number (0-based)"
// @Param        size query int false "Page size (max 10)"
// @Success      200 {object} httputil.Paged[Hoax]
// @Router       /api/v1/hoaxes [get]
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	p := httputil.ParsePagination(r)

	hoaxes, total, err := h.service.Feed(r.Context(), p.Size, p.Offset())
	if err != nil {
		logger.Error("failed to list hoaxes", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list hoaxes", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, httputil.NewPaged(hoaxes, p, total), http.StatusOK)
}

// UserFeed handles a single user's hoax feed
// @Summary      List a user's hoaxes
// @Description  Page through one user's hoaxes, newest first
// @Tags         hoaxes
// @Produce      json
// @Param        id path string true "User ID"
// @Param        page query int false "Page number (0-based)"
// @Param        size query int false "Page size (max 10)"
// @Success      200 {object} httputil.Paged[Hoax]
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /api/v1/users/{id}/hoaxes [get]
func (h *Handler) UserFeed(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	p := httputil.ParsePagination(r)

	hoaxes, total, err := h.service.UserFeed(r.Context(), userID, p.Size, p.Offset())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to list user hoaxes", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list hoaxes", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, httputil.NewPaged(hoaxes, p, total), http.StatusOK)
}

// Delete handles hoax deletion
// @Summary      Delete a hoax
// @Description  Delete a hoax the authenticated user owns, along with its attachment
// @Tags         hoaxes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Hoax ID"
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      403 {object} httputil.ErrorResponse "Hoax belongs to another user"
// @Failure      404 {object} httputil.ErrorResponse "Hoax not found"
// @Router       /api/v1/hoaxes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := token.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	hoaxID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "hoax not found", httputil.CodeNotFound, http.StatusNotFound)
		return
	}

	if err := h.service.Delete(r.Context(), hoaxID, identity.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "hoax not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrNotOwner) {
			logger.Warn("hoax delete rejected: not the owner", "hoax_id", hoaxID, "user_id", identity.ID)
			httputil.RespondErrorWithCode(w, "you are not authorized to delete this hoax", httputil.CodeForbidden, http.StatusForbidden)
			return
		}
		logger.Error("failed to delete hoax", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete hoax", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("hoax deleted", "hoax_id", hoaxID, "user_id", identity.ID)

	httputil.RespondJSON(w, map[string]string{"message": "Hoax is removed"}, http.StatusOK)
}

// UploadAttachment handles attachment upload
// @Summary      Upload an attachment
// @Description  Upload a file to attach to a hoax posted later. The returned id is referenced in the hoax submission.
// @Tags         hoaxes
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Attachment file"
// @Security     BearerAuth
// @Success      200 {object} Attachment
// @Failure      400 {object} httputil.ErrorResponse "Missing or invalid file"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      413 {object} httputil.ErrorResponse "File too large"
// @Router       /api/v1/hoaxes/attachments [post]
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if _, ok := token.IdentityFromContext(r.Context()); !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxAttachmentSize)
	if err := r.ParseMultipartForm(MaxAttachmentSize); err != nil {
		logger.Warn("failed to parse attachment upload", "error", err.Error())
		httputil.RespondErrorWithCode(w, "attachment exceeds the size limit", httputil.CodeValidationFailure, http.StatusRequestEntityTooLarge)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.RespondErrorWithCode(w, "file is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("failed to read attachment upload", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to read file", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	attachment, err := h.service.StoreAttachment(r.Context(), data)
	if err != nil {
		if errors.Is(err, ErrAttachmentEmpty) {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailure, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrAttachmentTooLarge) {
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailure, http.StatusRequestEntityTooLarge)
			return
		}
		logger.Error("failed to store attachment", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to store attachment", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("attachment stored", "attachment_id", attachment.ID)

	httputil.RespondJSON(w, attachment, http.StatusOK)
}
