package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hoaxify/hoaxify-server/internal/cryptox"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/user"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the slice of the user store that login needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// SessionIssuer creates and revokes opaque session tokens.
type SessionIssuer interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
	Revoke(ctx context.Context, raw string) error
}

// Service handles authentication business logic
type Service struct {
	users    UserStore
	sessions SessionIssuer
	logger   *logging.Logger
}

func NewService(users UserStore, sessions SessionIssuer, logger *logging.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// Authenticate verifies credentials and issues a session token.
// Inactive accounts are rejected even when the password matches.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if !cryptox.VerifyPassword(existing.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	if !existing.Active {
		return nil, "", user.ErrAccountInactive
	}

	token, err := s.sessions.Issue(ctx, existing.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return existing, token, nil
}

// Logout revokes the presented session token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, raw string) error {
	return s.sessions.Revoke(ctx, raw)
}
