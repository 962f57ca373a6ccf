package service

import (
	"time"
)

// A Summary is the lightweight render used by code-list lookups.
type Summary struct {
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateParams are the fields accepted when creating a memory.
type CreateParams struct {
	Title         string   `json:"title"`
	ShortMessage  string   `json:"short_message"`
	Story         string   `json:"story"`
	GalleryImages []string `json:"gallery_images"`
	AvatarImage   string   `json:"avatar_image"`
	CoverImage    string   `json:"cover_image"`
}

// UpdateParams are the fields accepted when updating a memory. A nil pointer
// means "keep the stored value". An empty avatar or cover image means "remove
// it" (JSON null decodes like an absent field, so empty string is the
// removal form).
type UpdateParams struct {
	Title         *string   `json:"title"`
	ShortMessage  *string   `json:"short_message"`
	Story         *string   `json:"story"`
	GalleryImages *[]string `json:"gallery_images"`
	AvatarImage   *string   `json:"avatar_image"`
	CoverImage    *string   `json:"cover_image"`
}
