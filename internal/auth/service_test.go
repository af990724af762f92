package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoaxify/hoaxify-server/internal/cryptox"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/user"
)

type fakeUserStore struct {
	users map[string]*user.User
	err   error
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

type fakeSessions struct {
	issued  []uuid.UUID
	revoked []string
	token   string
}

func (f *fakeSessions) Issue(_ context.Context, userID uuid.UUID) (string, error) {
	f.issued = append(f.issued, userID)
	return f.token, nil
}

func (f *fakeSessions) Revoke(_ context.Context, raw string) error {
	f.revoked = append(f.revoked, raw)
	return nil
}

func newAuthService(active bool) (*Service, *fakeSessions, *user.User) {
	hash, err := cryptox.HashPassword("P4ssword!")
	if err != nil {
		panic(err)
	}
	u := &user.User{
		ID:           uuid.New(),
		Username:     "john",
		Email:        "john@example.com",
		PasswordHash: hash,
		Active:       active,
	}
	sessions := &fakeSessions{token: "0123456789abcdef0123456789abcdef"}
	store := &fakeUserStore{users: map[string]*user.User{u.Email: u}}
	return NewService(store, sessions, logging.NewLogger(true)), sessions, u
}

func TestAuthenticateIssuesToken(t *testing.T) {
	svc, sessions, u := newAuthService(true)

	account, token, err := svc.Authenticate(context.Background(), u.Email, "P4ssword!")
	require.NoError(t, err)

	assert.Equal(t, u.ID, account.ID)
	assert.Equal(t, sessions.token, token)
	require.Len(t, sessions.issued, 1)
	assert.Equal(t, u.ID, sessions.issued[0])
}

func TestAuthenticateRejectsBadPassword(t *testing.T) {
	svc, sessions, u := newAuthService(true)

	_, _, err := svc.Authenticate(context.Background(), u.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, sessions.issued)
}

func TestAuthenticateRejectsUnknownEmail(t *testing.T) {
	svc, sessions, _ := newAuthService(true)

	_, _, err := svc.Authenticate(context.Background(), "nobody@example.com", "P4ssword!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, sessions.issued)
}

func TestAuthenticateRejectsInactiveAccount(t *testing.T) {
	svc, sessions, u := newAuthService(false)

	// even with the right password, no token for an unactivated account
	_, _, err := svc.Authenticate(context.Background(), u.Email, "P4ssword!")
	assert.ErrorIs(t, err, user.ErrAccountInactive)
	assert.Empty(t, sessions.issued)
}

func TestAuthenticateRejectsEmptyCredentials(t *testing.T) {
	svc, _, _ := newAuthService(true)

	_, _, err := svc.Authenticate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, sessions, _ := newAuthService(true)

	require.NoError(t, svc.Logout(context.Background(), "some-token"))
	assert.Equal(t, []string{"some-token"}, sessions.revoked)
}
