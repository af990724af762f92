package token

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

// ErrNotFound is returned by FindValid when no live row matches the token.
var ErrNotFound = errors.New("token not found")

// Repository defines the persistence contract for session tokens.
type Repository interface {
	Insert(ctx context.Context, t *Token) error
	// FindValid returns the row for the exact token string whose
	// last_used_at is after cutoff. Absent and stale rows both yield
	// ErrNotFound; stale rows are never deleted here.
	FindValid(ctx context.Context, token string, cutoff time.Time) (*Token, error)
	// Touch refreshes last_used_at for the sliding expiration window.
	Touch(ctx context.Context, token string, now time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
	// DeleteStale removes every row with last_used_at before cutoff and
	// reports how many were purged.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresRepository stores tokens in the tokens table.
type PostgresRepository struct {
	db *bun.DB
}

func NewPostgresRepository(db *bun.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, t *Token) error {
	row := &database.Token{
		Token:      t.Token,
		UserID:     t.UserID,
		LastUsedAt: t.LastUsedAt,
	}

	_, err := r.db.NewInsert().
		Model(row).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindValid(ctx context.Context, token string, cutoff time.Time) (*Token, error) {
	row := new(database.Token)
	err := r.db.NewSelect().
		Model(row).
		Where("token = ?", token).
		Where("last_used_at > ?", cutoff).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}

	return &Token{
		Token:      row.Token,
		UserID:     row.UserID,
		LastUsedAt: row.LastUsedAt,
	}, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, token string, now time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*database.Token)(nil)).
		Set("last_used_at = ?", now).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.NewDelete().
		Model((*database.Token)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.Token)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user tokens: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Token)(nil)).
		Where("last_used_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale tokens: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tokens: %w", err)
	}

	return deleted, nil
}
