package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoaxify/hoaxify-server/internal/logging"
)

type fakeVerifier struct {
	verify func(ctx context.Context, token string) (*Identity, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	return f.verify(ctx, token)
}

// gateRequest runs one request through the gate and reports what the
// downstream handler observed.
func gateRequest(t *testing.T, verifier Verifier, authHeader string) (*Identity, bool, int) {
	t.Helper()

	var gotIdentity *Identity
	var gotOK bool
	handler := Authenticate(verifier, logging.NewLogger(true))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotIdentity, gotOK = IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	r := httptest.NewRequest("GET", "/api/v1/hoaxes", nil)
	if authHeader != "" {
		r.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	return gotIdentity, gotOK, w.Code
}

func TestGateWithoutTokenIsAnonymous(t *testing.T) {
	calls := 0
	verifier := &fakeVerifier{verify: func(context.Context, string) (*Identity, error) {
		calls++
		return nil, nil
	}}

	identity, ok, status := gateRequest(t, verifier, "")
	assert.Nil(t, identity)
	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, status, "the gate never rejects")
	assert.Equal(t, 0, calls, "no token means zero store round-trips")
}

func TestGateAttachesIdentityForValidToken(t *testing.T) {
	userID := uuid.New()
	calls := 0
	verifier := &fakeVerifier{verify: func(_ context.Context, raw string) (*Identity, error) {
		calls++
		require.Equal(t, "sometoken", raw)
		return &Identity{ID: userID}, nil
	}}

	identity, ok, status := gateRequest(t, verifier, "Bearer sometoken")
	require.True(t, ok)
	assert.Equal(t, userID, identity.ID)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, calls, "exactly one verify per request")
}

func TestGateInvalidTokenProceedsAnonymously(t *testing.T) {
	verifier := &fakeVerifier{verify: func(context.Context, string) (*Identity, error) {
		return nil, nil
	}}

	identity, ok, status := gateRequest(t, verifier, "Bearer expired-or-unknown")
	assert.Nil(t, identity)
	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, status)
}

func TestGateFailsOpenOnStorageError(t *testing.T) {
	verifier := &fakeVerifier{verify: func(context.Context, string) (*Identity, error) {
		return nil, errors.New("store unreachable")
	}}

	identity, ok, status := gateRequest(t, verifier, "Bearer sometoken")
	assert.Nil(t, identity)
	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, status, "storage errors must not block requests")
}

func TestGateIgnoresMalformedAuthorizationHeader(t *testing.T) {
	calls := 0
	verifier := &fakeVerifier{verify: func(context.Context, string) (*Identity, error) {
		calls++
		return nil, nil
	}}

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer"} {
		identity, ok, status := gateRequest(t, verifier, header)
		assert.Nil(t, identity)
		assert.False(t, ok)
		assert.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, 0, calls)
}
