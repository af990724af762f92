package storage

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalCreatesFolders(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")

	_, err := NewLocal(root)
	require.NoError(t, err)

	for _, dir := range []string{ProfileFolder, AttachmentFolder} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestProfileImageRoundTrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	payload := []byte("fake-png-bytes")
	name, err := store.SaveProfileImage(ctx, base64.StdEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Len(t, name, 32)

	got, err := os.ReadFile(filepath.Join(store.Root(), ProfileFolder, name))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, store.DeleteProfileImage(ctx, name))
	_, err = os.Stat(filepath.Join(store.Root(), ProfileFolder, name))
	assert.True(t, os.IsNotExist(err))

	// deleting again is fine
	require.NoError(t, store.DeleteProfileImage(ctx, name))
}

func TestSaveProfileImageRejectsBadBase64(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveProfileImage(context.Background(), "not@base64!!")
	assert.Error(t, err)
}

func TestAttachmentExtension(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	name, err := store.SaveAttachment(ctx, []byte{0x89, 0x50, 0x4e, 0x47}, "png")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(name))

	bare, err := store.SaveAttachment(ctx, []byte("plain"), "")
	require.NoError(t, err)
	assert.Empty(t, filepath.Ext(bare))

	require.NoError(t, store.DeleteAttachment(ctx, name))
	require.NoError(t, store.DeleteAttachment(ctx, bare))
}
