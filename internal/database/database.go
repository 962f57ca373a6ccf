package database

import (
	"github.com/capsulehq/keepsake/internal/model"
)

type (
	// A Client can interacts with the database. Only single-key operations are
	// offered; there are no cross-record transactions.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool

		MemoryInteraction
	}

	// A MemoryInteraction defines all the methods used to interact with a memory record.
	MemoryInteraction interface {
		// FindMemory returns the memory for the given code.
		FindMemory(code string) (*model.Memory, error)
		// ContainsMemory returns true when a memory exists at the given code.
		ContainsMemory(code string) (bool, error)
	}
)
