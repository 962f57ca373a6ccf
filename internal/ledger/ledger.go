// Package ledger keeps the device-local record of which memories this device
// created (with their secret keys) and which ones it merely visited. It lives
// entirely outside the server, which stays stateless and trusts only the
// presented secret.
package ledger

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/pkg/errors"
)

type (
	// An Entry is one known memory on this device.
	Entry struct {
		Code      string    `msgpack:"code"       storm:"id"`
		SecretKey string    `msgpack:"secret_key"`
		Title     string    `msgpack:"title"`
		Owned     bool      `msgpack:"owned"      storm:"index"`
		SeenAt    time.Time `msgpack:"seen_at"    storm:"index"`
	}

	// A Ledger records owned and visited memories.
	Ledger struct {
		db *storm.DB
	}
)

// Open returns a ledger stored at the given path.
func Open(path string) (*Ledger, error) {
	db, err := storm.Open(path, storm.Codec(msgpack.Codec))
	if err != nil {
		return nil, errors.Wrap(err, "could not open ledger")
	}
	return &Ledger{db: db}, nil
}

// Close the ledger.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordOwned stores the code with its secret key. The secret key is the only
// copy this device will ever get.
func (l *Ledger) RecordOwned(code, secret, title string) error {
	entry := Entry{
		Code:      code,
		SecretKey: secret,
		Title:     title,
		Owned:     true,
		SeenAt:    time.Now().UTC(),
	}
	return errors.Wrap(l.db.Save(&entry), "could not record owned memory")
}

// RecordVisited stores the code as merely visited. An owned entry is never
// downgraded: visiting your own memory keeps its secret.
func (l *Ledger) RecordVisited(code, title string) error {
	var existing Entry
	err := l.db.One("Code", code, &existing)
	if err == nil && existing.Owned {
		existing.Title = title
		existing.SeenAt = time.Now().UTC()
		return errors.Wrap(l.db.Save(&existing), "could not refresh owned memory")
	}
	if err != nil && err != storm.ErrNotFound {
		return errors.Wrap(err, "could not look up ledger entry")
	}

	entry := Entry{
		Code:   code,
		Title:  title,
		SeenAt: time.Now().UTC(),
	}
	return errors.Wrap(l.db.Save(&entry), "could not record visited memory")
}

// Forget drops the code from the ledger. Forgetting an unknown code is fine.
func (l *Ledger) Forget(code string) error {
	err := l.db.DeleteStruct(&Entry{Code: code})
	if err == storm.ErrNotFound {
		return nil
	}
	return errors.Wrap(err, "could not forget memory")
}

// Secret returns the stored secret key for the given code, empty when this
// device does not own it.
func (l *Ledger) Secret(code string) (string, error) {
	var entry Entry
	err := l.db.One("Code", code, &entry)
	if err == storm.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "could not look up ledger entry")
	}
	return entry.SecretKey, nil
}

// Entries returns every known memory, most recently seen first.
func (l *Ledger) Entries() ([]Entry, error) {
	entries := make([]Entry, 0)
	err := l.db.AllByIndex("SeenAt", &entries, storm.Reverse())
	if err != nil && err != storm.ErrNotFound {
		return nil, errors.Wrap(err, "could not list ledger entries")
	}
	return entries, nil
}
