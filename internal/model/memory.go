package model

// MaxGalleryImages is the hard cap on gallery entries, enforced server-side.
const MaxGalleryImages = 5

// A Memory represents a shareable memory capsule. It is keyed by its public
// sharing code. SecretKey is the sole write credential; it is persisted with
// the record and stripped from every read render.
type Memory struct {
	Base `msgpack:",inline" storm:"inline"`

	Code          string   `json:"code"           msgpack:"code" storm:"id"`
	Title         string   `json:"title"          msgpack:"title"`
	ShortMessage  string   `json:"short_message"  msgpack:"short_message"`
	Story         string   `json:"story"          msgpack:"story"`
	GalleryImages []string `json:"gallery_images" msgpack:"gallery_images"`
	AvatarImage   string   `json:"avatar_image"   msgpack:"avatar_image"`
	CoverImage    string   `json:"cover_image"    msgpack:"cover_image"`
	SecretKey     string   `json:"secret_key"     msgpack:"secret_key"`
}

// GetID returns the memory's code.
func (m *Memory) GetID() string {
	return m.Code
}

// References returns every blob location the memory points at.
func (m *Memory) References() []string {
	refs := make([]string, 0, len(m.GalleryImages)+2)
	refs = append(refs, m.GalleryImages...)
	if m.AvatarImage != "" {
		refs = append(refs, m.AvatarImage)
	}
	if m.CoverImage != "" {
		refs = append(refs, m.CoverImage)
	}
	return refs
}
