package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, ".jpg", normalizeExt("holiday.JPG"))
	assert.Equal(t, ".jpeg", normalizeExt("a.b.c.jpeg"))
	assert.Equal(t, ".png", normalizeExt("snapshot.png"))
	assert.Equal(t, "", normalizeExt("noextension"))
	assert.Equal(t, "", normalizeExt("dot."))
	assert.Equal(t, "", normalizeExt("weird.j pg"))
	assert.Equal(t, "", normalizeExt("trailing.j/g"))
	assert.Equal(t, "", normalizeExt("too.longextension"))
}

func TestKeyFromLocation(t *testing.T) {
	s := &s3store{public: "https://memories.s3.eu-west-1.amazonaws.com"}

	key, ok := s.keyFromLocation("https://memories.s3.eu-west-1.amazonaws.com/abc.jpg")
	assert.True(t, ok)
	assert.Equal(t, "abc.jpg", key)

	_, ok = s.keyFromLocation("https://elsewhere.example.com/abc.jpg")
	assert.False(t, ok)

	_, ok = s.keyFromLocation("https://memories.s3.eu-west-1.amazonaws.com/")
	assert.False(t, ok)

	_, ok = s.keyFromLocation("https://memories.s3.eu-west-1.amazonaws.com/nested/abc.jpg")
	assert.False(t, ok)
}

func TestPublicBase(t *testing.T) {
	assert.Equal(t,
		"https://memories.s3.eu-west-1.amazonaws.com",
		publicBase(S3Config{Bucket: "memories", Region: "eu-west-1"}))

	assert.Equal(t,
		"http://localhost:9000/memories",
		publicBase(S3Config{Bucket: "memories", Endpoint: "http://localhost:9000/"}))

	assert.Equal(t,
		"https://cdn.keepsake.lan",
		publicBase(S3Config{Bucket: "memories", PublicURL: "https://cdn.keepsake.lan/"}))
}
