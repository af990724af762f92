package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenLength is the character length of an issued token: 32 random
	// bytes hex-encoded, truncated to 32 characters.
	TokenLength = 32

	// DefaultWindow is the sliding expiration window. A token stays valid
	// as long as it is used at least this often.
	DefaultWindow = 7 * 24 * time.Hour
)

// Service owns the session-token lifecycle: issuing, verification with
// sliding-window refresh, and revocation.
type Service struct {
	repo   Repository
	window time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

func NewService(repo Repository, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		repo:   repo,
		window: window,
		now:    time.Now,
	}
}

// Issue creates a new session token for the user and returns the opaque
// string. Collisions are left to entropy; a unique violation from the store
// is surfaced as a fatal error, not retried.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	t := &Token{
		Token:      raw,
		UserID:     userID,
		LastUsedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return "", err
	}

	return raw, nil
}

// Verify resolves a bearer token to an identity. A hit refreshes
// last_used_at, so every use pushes expiration out by the full window.
// A miss (unknown or stale token) returns (nil, nil): not being
// authenticated is a normal outcome, not an error. Stale rows are left in
// place for the reaper.
func (s *Service) Verify(ctx context.Context, raw string) (*Identity, error) {
	now := s.now()

	t, err := s.repo.FindValid(ctx, raw, now.Add(-s.window))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := s.repo.Touch(ctx, raw, now); err != nil {
		return nil, err
	}

	return &Identity{ID: t.UserID}, nil
}

// Revoke deletes the session with that exact token string. Revoking a token
// that does not exist is not an error.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	return s.repo.Delete(ctx, raw)
}

// RevokeAll deletes every session of the user. Called on password reset and
// account deletion.
func (s *Service) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteForUser(ctx, userID)
}

// Window returns the sliding expiration window the service enforces.
func (s *Service) Window() time.Duration {
	return s.window
}

func generateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:TokenLength], nil
}
