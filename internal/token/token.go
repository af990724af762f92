package token

import (
	"time"

	"github.com/google/uuid"
)

// Token is one authenticated session. The opaque token string is the lookup
// key; LastUsedAt doubles as issued-at until the first verification.
type Token struct {
	Token      string
	UserID     uuid.UUID
	LastUsedAt time.Time
}

// Identity is the authenticated-user result attached to a request after a
// successful verification.
type Identity struct {
	ID uuid.UUID
}
