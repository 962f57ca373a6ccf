package serializer

import "github.com/capsulehq/keepsake/internal/model"

// Memory serializes the public render of a memory. The secret key is never
// part of it.
func Memory(m *model.Memory) map[string]interface{} {
	gallery := m.GalleryImages
	if gallery == nil {
		gallery = []string{}
	}

	return map[string]interface{}{
		"code":           m.Code,
		"title":          m.Title,
		"short_message":  m.ShortMessage,
		"story":          m.Story,
		"gallery_images": gallery,
		"avatar_image":   m.AvatarImage,
		"cover_image":    m.CoverImage,
		"created_at":     m.CreatedAt.UTC(),
		"updated_at":     m.UpdatedAt.UTC(),
	}
}

// CreatedMemory serializes the creation render. This is the single place the
// secret key is ever returned; the creator stores it in its own ledger.
func CreatedMemory(m *model.Memory) map[string]interface{} {
	return map[string]interface{}{
		"code":       m.Code,
		"secret_key": m.SecretKey,
	}
}
