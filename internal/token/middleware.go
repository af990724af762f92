package token

import (
	"context"
	"net/http"
	"strings"

	"github.com/hoaxify/hoaxify-server/internal/logging"
)

// Verifier resolves a bearer token to an identity. Satisfied by *Service.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// IdentityContextKey holds the *Identity attached by Authenticate.
const IdentityContextKey ContextKey = "identity"

// Authenticate is the authorization gate. It runs on every request, attaches
// an identity to the context when a valid bearer token is presented, and
// otherwise lets the request through anonymously. It never writes a
// response; whether anonymous access is acceptable is decided per endpoint
// by downstream handlers.
//
// A storage failure during verification is treated as anonymous (fail-open):
// availability is preserved and downstream ownership checks still reject
// writes.
func Authenticate(verifier Verifier, logger *logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				logger.Error("token verification failed, proceeding anonymously", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from the request
// context. ok is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*Identity)
	return identity, ok
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}
