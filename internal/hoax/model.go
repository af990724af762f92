package hoax

import (
	"time"

	"github.com/google/uuid"
)

// Hoax is a posted hoax with its author and optional attachment.
type Hoax struct {
	ID         uuid.UUID   `json:"id"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	User       Author      `json:"user"`
	Attachment *Attachment `json:"fileAttachment,omitempty"`
}

// Author is the subset of the account shown on a hoax.
type Author struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Image    *string   `json:"image"`
}

// Attachment is an uploaded file, stored before the hoax that carries it.
type Attachment struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	FileType   *string   `json:"fileType"`
	UploadDate time.Time `json:"-"`
}
