package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID                 uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Username           string    `bun:"username,notnull"`
	Email              string    `bun:"email,notnull,unique"`
	PasswordHash       string    `bun:"password_hash,notnull"`
	Active             bool      `bun:"active,notnull,default:false"`
	ActivationToken    *string   `bun:"activation_token"`
	PasswordResetToken *string   `bun:"password_reset_token"`
	Image              *string   `bun:"image"`
	CreatedAt          time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt          time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Token is the tokens table. The opaque token string itself is the primary
// key; rows are removed when the owning user is deleted.
type Token struct {
	bun.BaseModel `bun:"table:tokens"`

	Token      string    `bun:"token,pk"`
	UserID     uuid.UUID `bun:"user_id,notnull,type:uuid"`
	LastUsedAt time.Time `bun:"last_used_at,notnull"`
}

// Hoax is the hoaxes table.
type Hoax struct {
	bun.BaseModel `bun:"table:hoaxes,alias:h"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Content   string    `bun:"content,notnull"`
	Timestamp time.Time `bun:"timestamp,notnull"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`

	User       *User           `bun:"rel:belongs-to,join:user_id=id"`
	Attachment *FileAttachment `bun:"rel:has-one,join:id=hoax_id"`
}

// FileAttachment is the file_attachments table. HoaxID stays NULL between
// upload and hoax submission; unassociated rows are cleaned up later.
type FileAttachment struct {
	bun.BaseModel `bun:"table:file_attachments,alias:fa"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Filename   string     `bun:"filename,notnull"`
	FileType   *string    `bun:"file_type"`
	UploadDate time.Time  `bun:"upload_date,notnull"`
	HoaxID     *uuid.UUID `bun:"hoax_id,type:uuid"`
}
