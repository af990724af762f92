package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Folder names under the upload root, shared by every backend.
const (
	ProfileFolder    = "profile"
	AttachmentFolder = "attachment"
)

// FileStore persists uploaded files: profile images (sent base64-encoded in
// profile updates) and hoax attachments (raw multipart bytes). Backends
// generate the stored name; callers keep it as the file reference.
type FileStore interface {
	SaveProfileImage(ctx context.Context, encoded string) (string, error)
	DeleteProfileImage(ctx context.Context, name string) error
	// SaveAttachment stores raw bytes under a random name; ext, when
	// non-empty, becomes the file extension.
	SaveAttachment(ctx context.Context, data []byte, ext string) (string, error)
	DeleteAttachment(ctx context.Context, name string) error
}

// randomName returns a 32-character hex file name.
func randomName() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	return hex.EncodeToString(b)[:32], nil
}
