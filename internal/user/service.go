package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"github.com/hoaxify/hoaxify-server/internal/cryptox"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/storage"
)

var (
	ErrUsernameRequired       = errors.New("username is required")
	ErrUsernameLength         = errors.New("username must be between 4 and 32 characters")
	ErrEmailRequired          = errors.New("email is required")
	ErrInvalidEmailFormat     = errors.New("invalid email format")
	ErrPasswordRequired       = errors.New("password is required")
	ErrPasswordTooShort       = errors.New("password must be at least 8 characters")
	ErrInvalidActivationToken = errors.New("invalid token sent, account activation failed")
	ErrInvalidResetToken      = errors.New("invalid password reset token")
	ErrAccountInactive        = errors.New("account is not activated")
	ErrEmailDelivery          = errors.New("failed to deliver email")
)

const (
	activationTokenLength = 16
	resetTokenLength      = 8
)

// EmailSender delivers the account lifecycle mails.
type EmailSender interface {
	SendAccountActivation(ctx context.Context, toEmail, token string) error
	SendPasswordReset(ctx context.Context, toEmail, token string) error
}

// SessionRevoker kills sessions when an account changes hands or dies.
// Satisfied by the token service.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// Service handles account lifecycle business logic.
type Service struct {
	store    Store
	sessions SessionRevoker
	email    EmailSender
	files    storage.FileStore
	logger   *logging.Logger
}

func NewService(store Store, sessions SessionRevoker, email EmailSender, files storage.FileStore, logger *logging.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		email:    email,
		files:    files,
		logger:   logger,
	}
}

// Register creates an inactive account and mails its activation token.
// The mail is sent from a goroutine; a delivery failure is logged, the
// user can be re-sent the token later.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	activationToken, err := generateOneShotToken(activationTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate activation token: %w", err)
	}

	newUser, err := s.store.Create(ctx, username, email, passwordHash, activationToken)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.email.SendAccountActivation(emailCtx, email, activationToken); err != nil {
			s.logger.Warn("failed to send activation email", "email", email, "error", err)
		}
	}()

	return newUser, nil
}

// Activate redeems an activation token. The token is consumed exactly once.
func (s *Service) Activate(ctx context.Context, token string) error {
	u, err := s.store.GetByActivationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidActivationToken
		}
		return fmt.Errorf("failed to find user by activation token: %w", err)
	}

	if err := s.store.Activate(ctx, u.ID); err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}

	return nil
}

// List returns a page of active users, excluding the caller when one is
// authenticated.
func (s *Service) List(ctx context.Context, callerID uuid.UUID, limit, offset int) ([]User, int, error) {
	return s.store.ListActive(ctx, callerID, limit, offset)
}

// Get returns an active user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetActiveByID(ctx, id)
}

// Update changes the username and, when a base64 image is provided,
// replaces the stored profile image, deleting the previous file.
func (s *Service) Update(ctx context.Context, id uuid.UUID, username string, imageBase64 *string) (*User, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if username == "" {
		username = current.Username
	}

	var newImage *string
	if imageBase64 != nil {
		name, err := s.files.SaveProfileImage(ctx, *imageBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to store profile image: %w", err)
		}
		newImage = &name
	}

	if err := s.store.UpdateProfile(ctx, id, username, newImage); err != nil {
		return nil, err
	}

	if newImage != nil && current.Image != nil {
		if err := s.files.DeleteProfileImage(ctx, *current.Image); err != nil {
			s.logger.Warn("failed to delete replaced profile image", "image", *current.Image, "error", err)
		}
	}

	return s.store.GetByID(ctx, id)
}

// Delete removes the account: every session is revoked, the profile image
// file is deleted, and the row goes away (tokens and hoaxes cascade).
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	if current.Image != nil {
		if err := s.files.DeleteProfileImage(ctx, *current.Image); err != nil {
			s.logger.Warn("failed to delete profile image", "image", *current.Image, "error", err)
		}
	}

	return s.store.Delete(ctx, id)
}

// RequestPasswordReset stores a one-shot reset token on the account and
// mails it. Unknown addresses and inactive accounts are rejected.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find user by email: %w", err)
	}

	if !u.Active {
		return ErrAccountInactive
	}

	token, err := generateOneShotToken(resetTokenLength)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.store.SetPasswordResetToken(ctx, u.ID, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.email.SendPasswordReset(ctx, email, token); err != nil {
		return ErrEmailDelivery
	}

	return nil
}

// ResetPassword redeems a reset token. The new password is saved (and the
// token cleared) before sessions are revoked, so a crash mid-sequence never
// leaves the old password usable with sessions already gone.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	u, err := s.store.GetByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to find user by reset token: %w", err)
	}

	passwordHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, u.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.RevokeAll(ctx, u.ID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", "user_id", u.ID, "error", err)
	}

	return nil
}

func validateRegistration(username, email, password string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if len(username) < 4 || len(username) > 32 {
		return ErrUsernameLength
	}
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmailFormat
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

// generateOneShotToken creates an n-character hex token for activation and
// password reset flows.
func generateOneShotToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}
