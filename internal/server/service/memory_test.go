package service_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/capsulehq/keepsake/internal/blob"
	"github.com/capsulehq/keepsake/internal/database"
	"github.com/capsulehq/keepsake/internal/kserror"
	"github.com/capsulehq/keepsake/internal/server/service"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobs records batch deletions and can inject per-location failures.
type fakeBlobs struct {
	mu      sync.Mutex
	batches [][]string
	fail    map[string]error
}

func (f *fakeBlobs) SignUpload(_ context.Context, filename, contentType string) (*blob.Grant, error) {
	return &blob.Grant{
		UploadURL: "https://sign.blob.lan/put/" + filename,
		Location:  "https://blob.lan/" + filename,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *fakeBlobs) DeleteObjects(_ context.Context, locations []string) map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, locations)
	failed := map[string]error{}
	for _, location := range locations {
		if err, ok := f.fail[location]; ok {
			failed[location] = err
		}
	}
	return failed
}

func (f *fakeBlobs) deletions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []string
	for _, batch := range f.batches {
		all = append(all, batch...)
	}
	return all
}

func setup(t *testing.T) (*service.Memories, database.Client, *fakeBlobs, func()) {
	tmpfile, err := os.CreateTemp("", "keepsake.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	require.NoError(t, err)

	blobs := &fakeBlobs{fail: map[string]error{}}
	return service.NewMemories(db, blobs), db, blobs, func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func TestCreateValidation(t *testing.T) {
	memories, _, _, cleanup := setup(t)
	defer cleanup()

	_, err := memories.Create(service.CreateParams{Title: "  "})
	require.Error(t, err)
	assert.Equal(t, "validation", kserror.Tag(err))

	_, err = memories.Create(service.CreateParams{
		Title:         "too many",
		GalleryImages: []string{"a", "b", "c", "d", "e", "f"},
	})
	require.Error(t, err)
	assert.Equal(t, "validation", kserror.Tag(err))
}

func TestCreateAllocatesUniqueCodes(t *testing.T) {
	memories, _, _, cleanup := setup(t)
	defer cleanup()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		memory, err := memories.Create(service.CreateParams{Title: "Beach Day"})
		require.NoError(t, err)
		assert.Len(t, memory.Code, 8)
		assert.Len(t, memory.SecretKey, 24)
		assert.False(t, seen[memory.Code], "code collision")
		seen[memory.Code] = true
	}
}

func TestGet(t *testing.T) {
	memories, _, _, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{Title: "Beach Day"})
	require.NoError(t, err)

	found, err := memories.Get(created.Code)
	require.NoError(t, err)
	assert.Equal(t, "Beach Day", found.Title)

	_, err = memories.Get("bogus123")
	require.Error(t, err)
	assert.Equal(t, "not-found", kserror.Tag(err))
}

func TestSummariesOmitsUnresolvableCodes(t *testing.T) {
	memories, _, _, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{Title: "Beach Day"})
	require.NoError(t, err)

	summaries := memories.Summaries([]string{created.Code, "bogus123"})
	require.Len(t, summaries, 1)
	assert.Equal(t, created.Code, summaries[0].Code)
	assert.Equal(t, "Beach Day", summaries[0].Title)
	assert.False(t, summaries[0].CreatedAt.IsZero())
}

func TestUpdateForbidden(t *testing.T) {
	memories, db, _, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{Title: "Beach Day"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = memories.Update(context.Background(), created.Code, "wrong-key", service.UpdateParams{Title: &title})
	require.Error(t, err)
	assert.Equal(t, "forbidden", kserror.Tag(err))

	stored, err := db.FindMemory(created.Code)
	require.NoError(t, err)
	assert.Equal(t, "Beach Day", stored.Title)
}

func TestUpdateBlobDiff(t *testing.T) {
	memories, _, blobs, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{
		Title:         "Beach Day",
		GalleryImages: []string{"https://blob.lan/a.jpg", "https://blob.lan/b.jpg", "https://blob.lan/c.jpg"},
	})
	require.NoError(t, err)

	gallery := []string{"https://blob.lan/a.jpg", "https://blob.lan/c.jpg"}
	merged, err := memories.Update(context.Background(), created.Code, created.SecretKey,
		service.UpdateParams{GalleryImages: &gallery})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://blob.lan/b.jpg"}, blobs.deletions())
	assert.Equal(t, gallery, merged.GalleryImages)
	assert.Equal(t, "Beach Day", merged.Title, "omitted fields keep their stored value")
}

func TestUpdateMovedImageIsNotDeleted(t *testing.T) {
	memories, _, blobs, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{
		Title:         "Beach Day",
		GalleryImages: []string{"https://blob.lan/a.jpg"},
	})
	require.NoError(t, err)

	// a.jpg leaves the gallery but becomes the cover: still referenced.
	gallery := []string{}
	cover := "https://blob.lan/a.jpg"
	merged, err := memories.Update(context.Background(), created.Code, created.SecretKey,
		service.UpdateParams{GalleryImages: &gallery, CoverImage: &cover})
	require.NoError(t, err)

	assert.Empty(t, blobs.deletions())
	assert.Equal(t, cover, merged.CoverImage)
}

func TestUpdateRemovesAvatarOnEmptyString(t *testing.T) {
	memories, _, blobs, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{
		Title:       "Beach Day",
		AvatarImage: "https://blob.lan/avatar.jpg",
	})
	require.NoError(t, err)

	empty := ""
	merged, err := memories.Update(context.Background(), created.Code, created.SecretKey,
		service.UpdateParams{AvatarImage: &empty})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://blob.lan/avatar.jpg"}, blobs.deletions())
	assert.Empty(t, merged.AvatarImage)
}

func TestUpdateAbortsOnBlobDeleteFailure(t *testing.T) {
	memories, db, blobs, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{
		Title:         "Beach Day",
		GalleryImages: []string{"https://blob.lan/a.jpg", "https://blob.lan/b.jpg"},
	})
	require.NoError(t, err)
	before, err := db.FindMemory(created.Code)
	require.NoError(t, err)

	blobs.fail["https://blob.lan/b.jpg"] = errors.New("access denied")

	gallery := []string{"https://blob.lan/a.jpg"}
	_, err = memories.Update(context.Background(), created.Code, created.SecretKey,
		service.UpdateParams{GalleryImages: &gallery})
	require.Error(t, err)
	assert.Equal(t, "storage-failure", kserror.Tag(err))

	after, err := db.FindMemory(created.Code)
	require.NoError(t, err)
	assert.Equal(t, before, after, "stored record must be unchanged after an aborted update")
}

func TestDeleteIdempotent(t *testing.T) {
	memories, _, _, cleanup := setup(t)
	defer cleanup()

	assert.NoError(t, memories.Delete(context.Background(), "bogus123", "whatever"))
}

func TestDeleteForbidden(t *testing.T) {
	memories, db, _, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{Title: "Beach Day"})
	require.NoError(t, err)

	err = memories.Delete(context.Background(), created.Code, "wrong-key")
	require.Error(t, err)
	assert.Equal(t, "forbidden", kserror.Tag(err))

	_, err = db.FindMemory(created.Code)
	assert.NoError(t, err, "record must survive a forbidden delete")
}

func TestDeleteRemovesBlobsThenRecord(t *testing.T) {
	memories, db, blobs, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{
		Title:         "Beach Day",
		GalleryImages: []string{"https://blob.lan/a.jpg"},
		AvatarImage:   "https://blob.lan/avatar.jpg",
		CoverImage:    "https://blob.lan/cover.jpg",
	})
	require.NoError(t, err)

	require.NoError(t, memories.Delete(context.Background(), created.Code, created.SecretKey))
	assert.ElementsMatch(t,
		[]string{"https://blob.lan/a.jpg", "https://blob.lan/avatar.jpg", "https://blob.lan/cover.jpg"},
		blobs.deletions())

	_, err = db.FindMemory(created.Code)
	assert.True(t, db.IsNotFound(err))
}

func TestDeleteKeepsRecordOnBlobFailure(t *testing.T) {
	memories, db, blobs, cleanup := setup(t)
	defer cleanup()

	created, err := memories.Create(service.CreateParams{
		Title:         "Beach Day",
		GalleryImages: []string{"https://blob.lan/a.jpg"},
	})
	require.NoError(t, err)

	blobs.fail["https://blob.lan/a.jpg"] = errors.New("slow down")

	err = memories.Delete(context.Background(), created.Code, created.SecretKey)
	require.Error(t, err)
	assert.Equal(t, "storage-failure", kserror.Tag(err))

	_, err = db.FindMemory(created.Code)
	assert.NoError(t, err, "record must survive a failed blob cleanup")
}
