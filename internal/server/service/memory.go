package service

import (
	"context"
	"strings"
	"sync"

	"github.com/capsulehq/keepsake/internal/blob"
	"github.com/capsulehq/keepsake/internal/database"
	"github.com/capsulehq/keepsake/internal/kserror"
	"github.com/capsulehq/keepsake/internal/model"
	"github.com/capsulehq/keepsake/internal/shortcode"
	"github.com/sirupsen/logrus"
)

// Memories implements the memory record lifecycle. It holds no per-request
// state; the metadata record is always the first write on create and the last
// write on update/delete, so the two stores disagree for the smallest
// possible window.
type Memories struct {
	db    database.Client
	blobs blob.Store
	codes *shortcode.Generator
}

// NewMemories returns the memory record service.
func NewMemories(db database.Client, blobs blob.Store) *Memories {
	return &Memories{
		db:    db,
		blobs: blobs,
		codes: shortcode.NewGenerator(db),
	}
}

// Create validates the payload, allocates a code and persists the record in a
// single put. A failed allocation writes nothing. The returned record still
// carries its secret key; this is the one moment it may be rendered.
func (s *Memories) Create(params CreateParams) (*model.Memory, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, kserror.Validation("Title can't be empty.")
	}
	if len(params.GalleryImages) > model.MaxGalleryImages {
		return nil, kserror.Validation("A memory can hold at most 5 gallery images.")
	}

	code, err := s.codes.Allocate()
	if err != nil {
		return nil, err
	}

	memory := &model.Memory{
		Code:          code,
		Title:         params.Title,
		ShortMessage:  params.ShortMessage,
		Story:         params.Story,
		GalleryImages: append([]string{}, params.GalleryImages...),
		AvatarImage:   params.AvatarImage,
		CoverImage:    params.CoverImage,
		SecretKey:     shortcode.Secret(shortcode.SecretLength),
	}

	if err := s.db.Save(memory); err != nil {
		logrus.WithError(err).Error("could not persist memory record")
		return nil, kserror.Storage("Could not persist the memory record.")
	}
	return memory, nil
}

// Get returns the stored record for the given code.
func (s *Memories) Get(code string) (*model.Memory, error) {
	memory, err := s.db.FindMemory(code)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kserror.NotFound("Memory not found.")
		}
		logrus.WithError(err).WithField("code", code).Error("could not fetch memory record")
		return nil, kserror.Storage("Could not fetch the memory record.")
	}
	return memory, nil
}

// Summaries fetches the given codes concurrently, best effort. Codes that do
// not resolve are omitted from the result; no ordering is imposed.
func (s *Memories) Summaries(codes []string) []Summary {
	summaries := make([]Summary, 0, len(codes))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()

			memory, err := s.db.FindMemory(code)
			if err != nil {
				logrus.WithField("code", code).Debug("summary lookup miss")
				return
			}

			mu.Lock()
			summaries = append(summaries, Summary{
				Code:      memory.Code,
				Title:     memory.Title,
				CreatedAt: memory.CreatedAt,
			})
			mu.Unlock()
		}(code)
	}
	wg.Wait()

	return summaries
}

// Update merges the given fields over the stored record after an ownership
// check. Images no longer referenced after the merge are deleted from blob
// storage first; any deletion failure aborts the update and leaves the stored
// record untouched, so a retry of the whole update stays safe.
func (s *Memories) Update(ctx context.Context, code, secret string, params UpdateParams) (*model.Memory, error) {
	stored, err := s.Get(code)
	if err != nil {
		return nil, err
	}
	if !shortcode.SecureCompare(stored.SecretKey, secret) {
		return nil, kserror.Forbidden()
	}

	merged, err := merge(stored, params)
	if err != nil {
		return nil, err
	}

	orphans := difference(stored.References(), merged.References())
	if len(orphans) > 0 {
		if failed := s.blobs.DeleteObjects(ctx, orphans); len(failed) > 0 {
			logDeleteFailures(code, failed)
			return nil, kserror.Storage("Could not delete removed images; the memory was left unchanged.")
		}
	}

	if err := s.db.Save(merged); err != nil {
		logrus.WithError(err).WithField("code", code).Error("could not persist merged memory record")
		return nil, kserror.Storage("Could not persist the memory record.")
	}
	return merged, nil
}

// Delete removes the record and every blob it references. Deleting an absent
// code succeeds (idempotent). The metadata record is only deleted once every
// blob deletion went through: a live record pointing at undeletable blobs
// beats unreferenced orphans.
func (s *Memories) Delete(ctx context.Context, code, secret string) error {
	memory, err := s.db.FindMemory(code)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil
		}
		logrus.WithError(err).WithField("code", code).Error("could not fetch memory record")
		return kserror.Storage("Could not fetch the memory record.")
	}
	if !shortcode.SecureCompare(memory.SecretKey, secret) {
		return kserror.Forbidden()
	}

	if refs := memory.References(); len(refs) > 0 {
		if failed := s.blobs.DeleteObjects(ctx, refs); len(failed) > 0 {
			logDeleteFailures(code, failed)
			return kserror.Storage("Could not delete the memory's images; the memory was kept.")
		}
	}

	if err := s.db.Delete(memory); err != nil {
		logrus.WithError(err).WithField("code", code).Error("could not delete memory record")
		return kserror.Storage("Could not delete the memory record.")
	}
	return nil
}

// Grant requests an upload grant from the blob store.
func (s *Memories) Grant(ctx context.Context, filename, contentType string) (*blob.Grant, error) {
	if contentType == "" {
		return nil, kserror.Validation("Content type can't be empty.")
	}
	return s.blobs.SignUpload(ctx, filename, contentType)
}

// merge applies params over a copy of stored. The stored record is never
// mutated, so an aborted update leaves it bit-identical.
func merge(stored *model.Memory, params UpdateParams) (*model.Memory, error) {
	merged := *stored
	merged.GalleryImages = append([]string{}, stored.GalleryImages...)

	if params.Title != nil {
		if strings.TrimSpace(*params.Title) == "" {
			return nil, kserror.Validation("Title can't be empty.")
		}
		merged.Title = *params.Title
	}
	if params.ShortMessage != nil {
		merged.ShortMessage = *params.ShortMessage
	}
	if params.Story != nil {
		merged.Story = *params.Story
	}
	if params.GalleryImages != nil {
		if len(*params.GalleryImages) > model.MaxGalleryImages {
			return nil, kserror.Validation("A memory can hold at most 5 gallery images.")
		}
		merged.GalleryImages = append([]string{}, *params.GalleryImages...)
	}
	if params.AvatarImage != nil {
		merged.AvatarImage = *params.AvatarImage
	}
	if params.CoverImage != nil {
		merged.CoverImage = *params.CoverImage
	}

	return &merged, nil
}

// difference returns the locations referenced before but not after, preserving
// order. A location moved between fields is still referenced and never listed.
func difference(before, after []string) []string {
	kept := map[string]bool{}
	for _, location := range after {
		kept[location] = true
	}

	orphans := make([]string, 0, len(before))
	for _, location := range before {
		if !kept[location] {
			orphans = append(orphans, location)
			kept[location] = true // dedupe
		}
	}
	return orphans
}

func logDeleteFailures(code string, failed map[string]error) {
	for location, err := range failed {
		logrus.WithError(err).WithFields(logrus.Fields{
			"code":     code,
			"location": location,
		}).Error("blob deletion failed")
	}
}
