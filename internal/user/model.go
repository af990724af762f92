package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                 uuid.UUID `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"` // Never expose password hash in JSON
	Active             bool      `json:"-"`
	ActivationToken    *string   `json:"-"`
	PasswordResetToken *string   `json:"-"`
	Image              *string   `json:"image"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
