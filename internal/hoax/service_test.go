package hoax

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/user"
)

type fakeStore struct {
	mu          sync.Mutex
	hoaxes      map[uuid.UUID]*Hoax
	attachments map[uuid.UUID]*Attachment
	attachedTo  map[uuid.UUID]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hoaxes:      make(map[uuid.UUID]*Hoax),
		attachments: make(map[uuid.UUID]*Attachment),
		attachedTo:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeStore) Create(_ context.Context, userID uuid.UUID, content string, timestamp time.Time) (*Hoax, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &Hoax{
		ID:        uuid.New(),
		Content:   content,
		Timestamp: timestamp,
		User:      Author{ID: userID, Username: "someone"},
	}
	f.hoaxes[h.ID] = h
	copied := *h
	return &copied, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Hoax, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hoaxes[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *h
	for aid, hid := range f.attachedTo {
		if hid == id {
			a := *f.attachments[aid]
			copied.Attachment = &a
		}
	}
	return &copied, nil
}

func (f *fakeStore) Feed(_ context.Context, limit, offset int) ([]Hoax, int, error) {
	return f.page(limit, offset, func(*Hoax) bool { return true })
}

func (f *fakeStore) UserFeed(_ context.Context, userID uuid.UUID, limit, offset int) ([]Hoax, int, error) {
	return f.page(limit, offset, func(h *Hoax) bool { return h.User.ID == userID })
}

func (f *fakeStore) page(limit, offset int, match func(*Hoax) bool) ([]Hoax, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []Hoax
	for _, h := range f.hoaxes {
		if match(h) {
			all = append(all, *h)
		}
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.hoaxes[id]; !ok {
		return ErrNotFound
	}
	delete(f.hoaxes, id)
	for aid, hid := range f.attachedTo {
		if hid == id {
			delete(f.attachedTo, aid)
			delete(f.attachments, aid)
		}
	}
	return nil
}

func (f *fakeStore) SaveAttachment(_ context.Context, filename string, fileType *string, uploadDate time.Time) (*Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &Attachment{ID: uuid.New(), Filename: filename, FileType: fileType, UploadDate: uploadDate}
	f.attachments[a.ID] = a
	copied := *a
	return &copied, nil
}

func (f *fakeStore) GetAttachment(_ context.Context, id uuid.UUID) (*Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attachments[id]
	if !ok {
		return nil, ErrAttachmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) AttachToHoax(_ context.Context, attachmentID, hoaxID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.attachments[attachmentID]; !ok {
		return ErrAttachmentNotFound
	}
	if _, taken := f.attachedTo[attachmentID]; taken {
		return ErrAttachmentNotFound
	}
	f.attachedTo[attachmentID] = hoaxID
	return nil
}

func (f *fakeStore) ListOrphanAttachments(_ context.Context, cutoff time.Time) ([]Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orphans []Attachment
	for id, a := range f.attachments {
		if _, bound := f.attachedTo[id]; !bound && a.UploadDate.Before(cutoff) {
			orphans = append(orphans, *a)
		}
	}
	return orphans, nil
}

func (f *fakeStore) DeleteAttachment(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attachments, id)
	return nil
}

type fakeUsers struct {
	known map[uuid.UUID]bool
}

func (f *fakeUsers) GetActiveByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if !f.known[id] {
		return nil, user.ErrNotFound
	}
	return &user.User{ID: id, Active: true}, nil
}

type fakeFiles struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (f *fakeFiles) SaveProfileImage(context.Context, string) (string, error) { return "", nil }

func (f *fakeFiles) DeleteProfileImage(context.Context, string) error { return nil }

func (f *fakeFiles) SaveAttachment(_ context.Context, _ []byte, ext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	f.saved = append(f.saved, name)
	return name, nil
}

func (f *fakeFiles) DeleteAttachment(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

func newTestService() (*Service, *fakeStore, *fakeUsers, *fakeFiles) {
	store := newFakeStore()
	users := &fakeUsers{known: make(map[uuid.UUID]bool)}
	files := &fakeFiles{}
	svc := NewService(store, users, files, logging.NewLogger(true))
	return svc, store, users, files
}

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestCreateValidatesContent(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	author := uuid.New()

	_, err := svc.Create(ctx, author, "", nil)
	assert.ErrorIs(t, err, ErrContentRequired)

	_, err = svc.Create(ctx, author, "too short", nil)
	assert.ErrorIs(t, err, ErrContentLength)

	_, err = svc.Create(ctx, author, strings.Repeat("x", 5001), nil)
	assert.ErrorIs(t, err, ErrContentLength)

	created, err := svc.Create(ctx, author, "a hoax long enough to pass validation", nil)
	require.NoError(t, err)
	assert.Equal(t, author, created.User.ID)
}

func TestCreateBindsPendingAttachment(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	attachment, err := store.SaveAttachment(ctx, "file.png", nil, time.Now())
	require.NoError(t, err)

	created, err := svc.Create(ctx, uuid.New(), "a hoax with a picture attached to it", &attachment.ID)
	require.NoError(t, err)
	require.NotNil(t, created.Attachment)
	assert.Equal(t, "file.png", created.Attachment.Filename)

	// a bound attachment no longer counts as an orphan
	orphans, err := store.ListOrphanAttachments(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestCreateToleratesMissingAttachment(t *testing.T) {
	svc, _, _, _ := newTestService()

	bogus := uuid.New()
	created, err := svc.Create(context.Background(), uuid.New(), "a hoax whose attachment vanished", &bogus)
	require.NoError(t, err)
	assert.Nil(t, created.Attachment)
}

func TestAttachmentCannotBeRebound(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	attachment, err := store.SaveAttachment(ctx, "file.png", nil, time.Now())
	require.NoError(t, err)

	first, err := svc.Create(ctx, uuid.New(), "the first hoax claims the attachment", &attachment.ID)
	require.NoError(t, err)
	require.NotNil(t, first.Attachment)

	second, err := svc.Create(ctx, uuid.New(), "the second hoax cannot steal it away", &attachment.ID)
	require.NoError(t, err)
	assert.Nil(t, second.Attachment)
}

func TestUserFeedRequiresKnownUser(t *testing.T) {
	svc, _, users, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.UserFeed(ctx, uuid.New(), 10, 0)
	assert.ErrorIs(t, err, user.ErrNotFound)

	known := uuid.New()
	users.known[known] = true
	_, total, err := svc.UserFeed(ctx, known, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDeleteIsOwnerOnly(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, "a hoax that only its owner may remove", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, created.ID, uuid.New()), ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, created.ID, owner))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID, owner), ErrNotFound)
}

func TestDeleteRemovesAttachmentFile(t *testing.T) {
	svc, store, _, files := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	attachment, err := store.SaveAttachment(ctx, "picture.png", nil, time.Now())
	require.NoError(t, err)
	created, err := svc.Create(ctx, owner, "a hoax with a doomed attachment file", &attachment.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID, owner))
	assert.Contains(t, files.deleted, "picture.png")
}

func TestStoreAttachmentSniffsFileType(t *testing.T) {
	svc, store, _, files := newTestService()

	attachment, err := svc.StoreAttachment(context.Background(), pngHeader)
	require.NoError(t, err)

	require.NotNil(t, attachment.FileType)
	assert.Equal(t, "image/png", *attachment.FileType)
	assert.True(t, strings.HasSuffix(attachment.Filename, ".png"))
	assert.Len(t, files.saved, 1)

	stored, err := store.GetAttachment(context.Background(), attachment.ID)
	require.NoError(t, err)
	assert.Equal(t, attachment.Filename, stored.Filename)
}

func TestStoreAttachmentEnforcesLimits(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.StoreAttachment(ctx, nil)
	assert.ErrorIs(t, err, ErrAttachmentEmpty)

	_, err = svc.StoreAttachment(ctx, make([]byte, MaxAttachmentSize+1))
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)
}

func TestCleanupRemovesOnlyAgedOrphans(t *testing.T) {
	svc, store, _, files := newTestService()
	ctx := context.Background()
	base := time.Now()
	svc.now = func() time.Time { return base }

	old, err := store.SaveAttachment(ctx, "old.png", nil, base.Add(-2*time.Hour))
	require.NoError(t, err)
	fresh, err := store.SaveAttachment(ctx, "fresh.png", nil, base.Add(-time.Minute))
	require.NoError(t, err)
	bound, err := store.SaveAttachment(ctx, "bound.png", nil, base.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.New(), "a hoax keeping its old attachment alive", &bound.ID)
	require.NoError(t, err)

	removed, err := svc.CleanupOrphanAttachments(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"old.png"}, files.deleted)

	_, err = store.GetAttachment(ctx, old.ID)
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
	_, err = store.GetAttachment(ctx, fresh.ID)
	assert.NoError(t, err)
}
