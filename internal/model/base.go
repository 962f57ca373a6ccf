package model

import (
	"time"
)

type (
	// A Model defines an object that can be stored in database.
	Model interface {
		// GetID returns the model's primary key.
		GetID() string
		// GetCreatedAt returns the model's creation date.
		GetCreatedAt() time.Time
		// SetCreatedAt defines the model's creation date.
		SetCreatedAt(time.Time)
		// SetUpdatedAt defines the model's last update date.
		SetUpdatedAt(time.Time)
	}

	// A Base contains the default model timestamps. The primary key belongs to
	// the embedding struct because it is domain data (the public sharing code),
	// not storage plumbing.
	Base struct {
		CreatedAt time.Time `json:"created_at" msgpack:"created_at" storm:"index"`
		UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at" storm:"index"`
	}
)

// GetCreatedAt returns the model's creation date.
func (m *Base) GetCreatedAt() time.Time {
	return m.CreatedAt
}

// SetCreatedAt defines the model's creation date.
func (m *Base) SetCreatedAt(t time.Time) {
	m.CreatedAt = t
}

// SetUpdatedAt defines the model's last update date.
func (m *Base) SetUpdatedAt(t time.Time) {
	m.UpdatedAt = t
}
