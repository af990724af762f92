package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/hoaxify/hoaxify-server/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, username, email, passwordHash, activationToken string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByActivationToken(ctx context.Context, token string) (*User, error)
	GetByPasswordResetToken(ctx context.Context, token string) (*User, error)
	ListActive(ctx context.Context, excludeID uuid.UUID, limit, offset int) ([]User, int, error)
	Activate(ctx context.Context, id uuid.UUID) error
	UpdateProfile(ctx context.Context, id uuid.UUID, username string, image *string) error
	SetPasswordResetToken(ctx context.Context, id uuid.UUID, token string) error
	// UpdatePassword saves the new hash and clears the reset token in the
	// same statement.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new, inactive user with a pending activation token.
func (r *Repository) Create(ctx context.Context, username, email, passwordHash, activationToken string) (*User, error) {
	dbUser := &database.User{
		Username:        username,
		Email:           email,
		PasswordHash:    passwordHash,
		Active:          false,
		ActivationToken: &activationToken,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// GetActiveByID is the public lookup: inactive accounts are invisible.
func (r *Repository) GetActiveByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id).Where("active = ?", true)
	})
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("email = ?", email)
	})
}

func (r *Repository) GetByActivationToken(ctx context.Context, token string) (*User, error) {
	return r.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("activation_token = ?", token)
	})
}

func (r *Repository) GetByPasswordResetToken(ctx context.Context, token string) (*User, error) {
	return r.getOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("password_reset_token = ?", token)
	})
}

// ListActive returns a page of active users, excluding the caller, along
// with the total count for that filter.
func (r *Repository) ListActive(ctx context.Context, excludeID uuid.UUID, limit, offset int) ([]User, int, error) {
	var dbUsers []database.User

	count, err := r.db.NewSelect().
		Model(&dbUsers).
		Where("active = ?", true).
		Where("id != ?", excludeID).
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, *mapDBUserToModel(&dbUsers[i]))
	}

	return users, count, nil
}

// Activate marks the account active and consumes the activation token.
func (r *Repository) Activate(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("active = ?", true).
			Set("activation_token = ?", nil)
	})
}

func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, username string, image *string) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		q = q.Set("username = ?", username)
		if image != nil {
			q = q.Set("image = ?", *image)
		}
		return q
	})
}

func (r *Repository) SetPasswordResetToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("password_reset_token = ?", token)
	})
}

func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("password_hash = ?", passwordHash).
			Set("password_reset_token = ?", nil)
	})
}

// Delete removes the user row; tokens and hoaxes cascade in the schema.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
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

func (r *Repository) getOne(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	dbUser := new(database.User)
	err := filter(r.db.NewSelect().Model(dbUser)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id)

	result, err := set(q).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                 dbu.ID,
		Username:           dbu.Username,
		Email:              dbu.Email,
		PasswordHash:       dbu.PasswordHash,
		Active:             dbu.Active,
		ActivationToken:    dbu.ActivationToken,
		PasswordResetToken: dbu.PasswordResetToken,
		Image:              dbu.Image,
		CreatedAt:          dbu.CreatedAt,
		UpdatedAt:          dbu.UpdatedAt,
	}
}
