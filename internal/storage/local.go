package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Local stores uploads on the local filesystem under a root directory with
// profile/ and attachment/ subfolders. The root is what the HTTP layer
// serves under /images.
type Local struct {
	root string
}

// NewLocal creates the upload folders if they do not exist.
func NewLocal(root string) (*Local, error) {
	for _, dir := range []string{root, filepath.Join(root, ProfileFolder), filepath.Join(root, AttachmentFolder)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload folder %s: %w", dir, err)
		}
	}
	return &Local{root: root}, nil
}

// Root returns the upload root directory.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) SaveProfileImage(_ context.Context, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid base64 image: %w", err)
	}

	name, err := randomName()
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(l.root, ProfileFolder, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write profile image: %w", err)
	}

	return name, nil
}

func (l *Local) DeleteProfileImage(_ context.Context, name string) error {
	return l.remove(filepath.Join(l.root, ProfileFolder, filepath.Base(name)))
}

func (l *Local) SaveAttachment(_ context.Context, data []byte, ext string) (string, error) {
	name, err := randomName()
	if err != nil {
		return "", err
	}
	if ext != "" {
		name += "." + ext
	}

	if err := os.WriteFile(filepath.Join(l.root, AttachmentFolder, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	return name, nil
}

func (l *Local) DeleteAttachment(_ context.Context, name string) error {
	return l.remove(filepath.Join(l.root, AttachmentFolder, filepath.Base(name)))
}

// remove tolerates already-missing files so deletes stay idempotent.
func (l *Local) remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}
