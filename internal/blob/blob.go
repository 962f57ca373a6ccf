// Package blob adapts an object store for direct client uploads and batch
// cleanup. The adapter keeps no local state; it only derives object keys,
// signs upload grants and deletes objects by their public locations.
package blob

import (
	"context"
	"time"
)

type (
	// A Grant permits one direct client-to-storage upload. It does not reserve
	// space and nothing verifies the upload ever happens.
	Grant struct {
		UploadURL string    `json:"upload_url"`
		Location  string    `json:"location"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	// A Store can interacts with the blob store.
	Store interface {
		// SignUpload derives a fresh object key from the given filename and
		// returns a short-lived upload grant for it.
		SignUpload(ctx context.Context, filename, contentType string) (*Grant, error)
		// DeleteObjects removes the objects at the given public locations.
		// Best effort: the result maps each failed location to its error and is
		// empty when every deletion succeeded. Locations that do not belong to
		// this store are skipped with a warning, never reported as failures.
		DeleteObjects(ctx context.Context, locations []string) map[string]error
	}
)
