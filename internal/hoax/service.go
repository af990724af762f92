package hoax

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/storage"
	"github.com/hoaxify/hoaxify-server/internal/user"
)

var (
	ErrContentRequired    = errors.New("hoax content is required")
	ErrContentLength      = errors.New("hoax must be between 10 and 5000 characters")
	ErrNotOwner           = errors.New("hoax belongs to another user")
	ErrAttachmentTooLarge = errors.New("attachment exceeds the size limit")
	ErrAttachmentEmpty    = errors.New("attachment is empty")
)

const (
	minContentLength  = 10
	maxContentLength  = 5000
	MaxAttachmentSize = 5 * 1024 * 1024
)

// extensions maps sniffed content types to stored file extensions.
// Unknown types fall back to no extension.
var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// UserStore is the slice of the user store the hoax service needs.
type UserStore interface {
	GetActiveByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Service handles hoax business logic.
type Service struct {
	store  Store
	users  UserStore
	files  storage.FileStore
	logger *logging.Logger
	now    func() time.Time
}

func NewService(store Store, users UserStore, files storage.FileStore, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		users:  users,
		files:  files,
		logger: logger,
		now:    time.Now,
	}
}

// Create posts a hoax for the given user, binding the pending attachment
// when one is referenced. A missing attachment does not fail the post.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, content string, attachmentID *uuid.UUID) (*Hoax, error) {
	if content == "" {
		return nil, ErrContentRequired
	}
	if len(content) < minContentLength || len(content) > maxContentLength {
		return nil, ErrContentLength
	}

	created, err := s.store.Create(ctx, userID, content, s.now())
	if err != nil {
		return nil, err
	}

	if attachmentID != nil {
		if err := s.store.AttachToHoax(ctx, *attachmentID, created.ID); err != nil {
			s.logger.Warn("failed to bind attachment to hoax",
				"hoax_id", created.ID, "attachment_id", *attachmentID, "error", err.Error())
			return created, nil
		}
		attachment, err := s.store.GetAttachment(ctx, *attachmentID)
		if err == nil {
			created.Attachment = attachment
		}
	}

	return created, nil
}

// Feed returns a page of all hoaxes, newest first.
func (s *Service) Feed(ctx context.Context, limit, offset int) ([]Hoax, int, error) {
	return s.store.Feed(ctx, limit, offset)
}

// UserFeed returns a page of one user's hoaxes, newest first. The user must
// exist and be active.
func (s *Service) UserFeed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Hoax, int, error) {
	if _, err := s.users.GetActiveByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.store.UserFeed(ctx, userID, limit, offset)
}

// Delete removes a hoax owned by the caller along with its attachment file.
func (s *Service) Delete(ctx context.Context, hoaxID, callerID uuid.UUID) error {
	existing, err := s.store.GetByID(ctx, hoaxID)
	if err != nil {
		return err
	}
	if existing.User.ID != callerID {
		return ErrNotOwner
	}

	if existing.Attachment != nil {
		if err := s.files.DeleteAttachment(ctx, existing.Attachment.Filename); err != nil {
			s.logger.Warn("failed to delete attachment file",
				"hoax_id", hoaxID, "filename", existing.Attachment.Filename, "error", err.Error())
		}
	}

	return s.store.Delete(ctx, hoaxID)
}

// StoreAttachment saves an uploaded file and records it as pending. The
// file type is sniffed from the content, not taken from the client.
func (s *Service) StoreAttachment(ctx context.Context, data []byte) (*Attachment, error) {
	if len(data) == 0 {
		return nil, ErrAttachmentEmpty
	}
	if len(data) > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	fileType := http.DetectContentType(data)
	filename, err := s.files.SaveAttachment(ctx, data, extensions[fileType])
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment file: %w", err)
	}

	attachment, err := s.store.SaveAttachment(ctx, filename, &fileType, s.now())
	if err != nil {
		if removeErr := s.files.DeleteAttachment(ctx, filename); removeErr != nil {
			s.logger.Warn("failed to remove attachment file after insert failure",
				"filename", filename, "error", removeErr.Error())
		}
		return nil, err
	}

	return attachment, nil
}

// CleanupOrphanAttachments deletes attachments that were uploaded but never
// bound to a hoax within the grace period. Returns the number removed.
func (s *Service) CleanupOrphanAttachments(ctx context.Context, olderThan time.Duration) (int, error) {
	orphans, err := s.store.ListOrphanAttachments(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, orphan := range orphans {
		if err := s.files.DeleteAttachment(ctx, orphan.Filename); err != nil {
			s.logger.Warn("failed to delete orphan attachment file",
				"filename", orphan.Filename, "error", err.Error())
		}
		if err := s.store.DeleteAttachment(ctx, orphan.ID); err != nil {
			s.logger.Warn("failed to delete orphan attachment row",
				"attachment_id", orphan.ID, "error", err.Error())
			continue
		}
		removed++
	}

	return removed, nil
}
