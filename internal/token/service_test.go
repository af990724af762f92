package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository used by the kernel tests.
type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]Token

	insertErr error
	findErr   error
	touchErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]Token)}
}

func (f *fakeRepo) Insert(_ context.Context, t *Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows[t.Token] = *t
	return nil
}

func (f *fakeRepo) FindValid(_ context.Context, token string, cutoff time.Time) (*Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	row, ok := f.rows[token]
	if !ok || !row.LastUsedAt.After(cutoff) {
		return nil, ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (f *fakeRepo) Touch(_ context.Context, token string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	if row, ok := f.rows[token]; ok {
		row.LastUsedAt = now
		f.rows[token] = row
	}
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, token)
	return nil
}

func (f *fakeRepo) DeleteForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, row := range f.rows {
		if row.UserID == userID {
			delete(f.rows, k)
		}
	}
	return nil
}

func (f *fakeRepo) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for k, row := range f.rows {
		if row.LastUsedAt.Before(cutoff) {
			delete(f.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeRepo) lastUsedAt(t *testing.T, token string) time.Time {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[token]
	require.True(t, ok, "token %q not in store", token)
	return row.LastUsedAt
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fixedClock lets tests move time forward deterministically.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(repo *fakeRepo) (*Service, *fixedClock) {
	clock := &fixedClock{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(repo, DefaultWindow)
	svc.now = clock.now
	return svc, clock
}

func TestIssueThenVerify(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	userID := uuid.New()

	raw, err := svc.Issue(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, raw, TokenLength)
	assert.Regexp(t, "^[0-9a-f]+$", raw)

	identity, err := svc.Verify(ctx, raw)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, userID, identity.ID)
}

func TestVerifyRefreshIsMonotonic(t *testing.T) {
	repo := newFakeRepo()
	svc, clock := newTestService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)

	prev := repo.lastUsedAt(t, raw)
	for i := 0; i < 5; i++ {
		clock.advance(30 * time.Minute)

		identity, err := svc.Verify(ctx, raw)
		require.NoError(t, err)
		require.NotNil(t, identity)

		current := repo.lastUsedAt(t, raw)
		assert.False(t, current.Before(prev), "last_used_at went backwards")
		prev = current
	}
}

func TestVerifyRejectsStaleRowWithoutDeleting(t *testing.T) {
	repo := newFakeRepo()
	svc, clock := newTestService(repo)
	ctx := context.Background()

	stale := &Token{
		Token:      "deadbeefdeadbeefdeadbeefdeadbeef",
		UserID:     uuid.New(),
		LastUsedAt: clock.now().Add(-8 * 24 * time.Hour),
	}
	require.NoError(t, repo.Insert(ctx, stale))

	identity, err := svc.Verify(ctx, stale.Token)
	require.NoError(t, err)
	assert.Nil(t, identity, "stale token must not verify")

	// Only the reaper deletes stale rows; verification leaves them alone.
	assert.Equal(t, 1, repo.count())
}

func TestVerifyUnknownTokenIsNotAnError(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	identity, err := svc.Verify(context.Background(), "nosuchtoken")
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestVerifyPropagatesStorageErrors(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	repo.findErr = errors.New("connection refused")

	identity, err := svc.Verify(context.Background(), "whatever")
	require.Error(t, err)
	assert.Nil(t, identity)
}

func TestSlidingWindowExtendsOnUse(t *testing.T) {
	repo := newFakeRepo()
	svc, clock := newTestService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)

	// Six days after issue: still inside the window, refreshes it.
	clock.advance(6 * 24 * time.Hour)
	identity, err := svc.Verify(ctx, raw)
	require.NoError(t, err)
	require.NotNil(t, identity)

	// Twelve days after issue but only six since the last use: the window
	// slides, so the token is still alive.
	clock.advance(6 * 24 * time.Hour)
	identity, err = svc.Verify(ctx, raw)
	require.NoError(t, err)
	require.NotNil(t, identity, "expiration must be measured from last use, not issuance")

	// Go quiet past the full window and the token dies.
	clock.advance(7*24*time.Hour + time.Minute)
	identity, err = svc.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestRevokeIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, raw))

	identity, err := svc.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Nil(t, identity)

	// Revoking an already-revoked token is not an error.
	require.NoError(t, svc.Revoke(ctx, raw))
}

func TestRevokeAllLeavesOtherUsersAlone(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	userU := uuid.New()
	userV := uuid.New()

	t1, err := svc.Issue(ctx, userU)
	require.NoError(t, err)
	t2, err := svc.Issue(ctx, userU)
	require.NoError(t, err)
	t3, err := svc.Issue(ctx, userV)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, userU))

	for _, revoked := range []string{t1, t2} {
		identity, err := svc.Verify(ctx, revoked)
		require.NoError(t, err)
		assert.Nil(t, identity)
	}

	identity, err := svc.Verify(ctx, t3)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, userV, identity.ID)
}

func TestIssuePropagatesStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	repo.insertErr = errors.New("duplicate key value violates unique constraint")

	_, err := svc.Issue(context.Background(), uuid.New())
	require.Error(t, err)
}
