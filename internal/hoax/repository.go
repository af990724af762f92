package hoax

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/hoaxify/hoaxify-server/internal/database"
)

var (
	ErrNotFound           = errors.New("hoax not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, content string, timestamp time.Time) (*Hoax, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Hoax, error)
	Feed(ctx context.Context, limit, offset int) ([]Hoax, int, error)
	UserFeed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Hoax, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SaveAttachment(ctx context.Context, filename string, fileType *string, uploadDate time.Time) (*Attachment, error)
	GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error)
	// AttachToHoax binds a pending attachment to a hoax. Attachments that
	// already belong to a hoax are not rebound.
	AttachToHoax(ctx context.Context, attachmentID, hoaxID uuid.UUID) error
	ListOrphanAttachments(ctx context.Context, cutoff time.Time) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
}

// Repository handles hoax data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID uuid.UUID, content string, timestamp time.Time) (*Hoax, error) {
	dbHoax := &database.Hoax{
		Content:   content,
		Timestamp: timestamp,
		UserID:    userID,
	}

	_, err := r.db.NewInsert().
		Model(dbHoax).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create hoax: %w", err)
	}

	return r.GetByID(ctx, dbHoax.ID)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Hoax, error) {
	dbHoax := new(database.Hoax)
	err := r.db.NewSelect().
		Model(dbHoax).
		Relation("User").
		Relation("Attachment").
		Where("h.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hoax: %w", err)
	}

	return mapDBHoaxToModel(dbHoax), nil
}

// Feed returns a page of hoaxes across all users, newest first.
func (r *Repository) Feed(ctx context.Context, limit, offset int) ([]Hoax, int, error) {
	return r.list(ctx, limit, offset, nil)
}

// UserFeed returns a page of the given user's hoaxes, newest first.
func (r *Repository) UserFeed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Hoax, int, error) {
	return r.list(ctx, limit, offset, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("h.user_id = ?", userID)
	})
}

func (r *Repository) list(ctx context.Context, limit, offset int, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]Hoax, int, error) {
	var dbHoaxes []database.Hoax

	q := r.db.NewSelect().
		Model(&dbHoaxes).
		Relation("User").
		Relation("Attachment").
		Order("h.timestamp DESC").
		Limit(limit).
		Offset(offset)
	if filter != nil {
		q = filter(q)
	}

	count, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list hoaxes: %w", err)
	}

	hoaxes := make([]Hoax, 0, len(dbHoaxes))
	for i := range dbHoaxes {
		hoaxes = append(hoaxes, *mapDBHoaxToModel(&dbHoaxes[i]))
	}

	return hoaxes, count, nil
}

// Delete removes the hoax row; its attachment row cascades in the schema.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Hoax)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete hoax: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAttachment records an uploaded file with no owning hoax yet.
func (r *Repository) SaveAttachment(ctx context.Context, filename string, fileType *string, uploadDate time.Time) (*Attachment, error) {
	dbAttachment := &database.FileAttachment{
		Filename:   filename,
		FileType:   fileType,
		UploadDate: uploadDate,
	}

	_, err := r.db.NewInsert().
		Model(dbAttachment).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to save attachment: %w", err)
	}

	return mapDBAttachmentToModel(dbAttachment), nil
}

func (r *Repository) GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	dbAttachment := new(database.FileAttachment)
	err := r.db.NewSelect().
		Model(dbAttachment).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return mapDBAttachmentToModel(dbAttachment), nil
}

func (r *Repository) AttachToHoax(ctx context.Context, attachmentID, hoaxID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.FileAttachment)(nil)).
		Set("hoax_id = ?", hoaxID).
		Where("id = ?", attachmentID).
		Where("hoax_id IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to attach file to hoax: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAttachmentNotFound
	}

	return nil
}

// ListOrphanAttachments returns attachments uploaded before the cutoff that
// never got bound to a hoax.
func (r *Repository) ListOrphanAttachments(ctx context.Context, cutoff time.Time) ([]Attachment, error) {
	var dbAttachments []database.FileAttachment

	err := r.db.NewSelect().
		Model(&dbAttachments).
		Where("hoax_id IS NULL").
		Where("upload_date < ?", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan attachments: %w", err)
	}

	attachments := make([]Attachment, 0, len(dbAttachments))
	for i := range dbAttachments {
		attachments = append(attachments, *mapDBAttachmentToModel(&dbAttachments[i]))
	}

	return attachments, nil
}

func (r *Repository) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.FileAttachment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

// mapDBHoaxToModel converts database model to domain model
func mapDBHoaxToModel(dbh *database.Hoax) *Hoax {
	h := &Hoax{
		ID:        dbh.ID,
		Content:   dbh.Content,
		Timestamp: dbh.Timestamp,
	}
	if dbh.User != nil {
		h.User = Author{
			ID:       dbh.User.ID,
			Username: dbh.User.Username,
			Email:    dbh.User.Email,
			Image:    dbh.User.Image,
		}
	}
	if dbh.Attachment != nil {
		h.Attachment = mapDBAttachmentToModel(dbh.Attachment)
	}
	return h
}

func mapDBAttachmentToModel(dba *database.FileAttachment) *Attachment {
	return &Attachment{
		ID:         dba.ID,
		Filename:   dba.Filename,
		FileType:   dba.FileType,
		UploadDate: dba.UploadDate,
	}
}
