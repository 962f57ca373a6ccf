package database_test

import (
	"os"
	"testing"

	"github.com/capsulehq/keepsake/internal/database"
	"github.com/capsulehq/keepsake/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (database.Client, func()) {
	tmpfile, err := os.CreateTemp("", "keepsake.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	require.NoError(t, err)

	return db, func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func TestStormMemoryRoundTrip(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	memory := &model.Memory{
		Code:          "GmEV7Nph",
		Title:         "Beach Day",
		ShortMessage:  "What a day",
		GalleryImages: []string{"https://blob.lan/a.jpg"},
		SecretKey:     "s3cret",
	}
	require.NoError(t, db.Save(memory))
	assert.False(t, memory.CreatedAt.IsZero())
	assert.False(t, memory.UpdatedAt.IsZero())

	found, err := db.FindMemory("GmEV7Nph")
	require.NoError(t, err)
	assert.Equal(t, "Beach Day", found.Title)
	assert.Equal(t, []string{"https://blob.lan/a.jpg"}, found.GalleryImages)
	assert.Equal(t, "s3cret", found.SecretKey)

	// Update must not reset the creation date.
	created := found.CreatedAt
	found.Title = "Beach Week"
	require.NoError(t, db.Save(found))
	found, err = db.FindMemory("GmEV7Nph")
	require.NoError(t, err)
	assert.Equal(t, "Beach Week", found.Title)
	assert.Equal(t, created, found.CreatedAt)

	require.NoError(t, db.Delete(found))
	_, err = db.FindMemory("GmEV7Nph")
	assert.True(t, db.IsNotFound(err))
}

func TestStormContainsMemory(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	ok, err := db.ContainsMemory("nope1234")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Save(&model.Memory{Code: "nope1234", Title: "t", SecretKey: "k"}))

	ok, err = db.ContainsMemory("nope1234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStormIsNotFound(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	_, err := db.FindMemory("missing0")
	assert.Error(t, err)
	assert.True(t, db.IsNotFound(err))
	assert.False(t, db.IsNotFound(nil))
}
