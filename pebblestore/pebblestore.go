// Package pebblestore implements the bridge's persistent Store on PebbleDB.
package pebblestore

import (
	"errors"

	evmbridge "github.com/branched-services/go-evmbridge"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

var _ evmbridge.Store = (*Store)(nil)

// Store implements evmbridge.Store using PebbleDB.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a database in dir.
func Open(dir string) (*Store, error) {
	return open(dir, &pebble.Options{})
}

// OpenInMemory opens a database on an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

func open(dir string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get retrieves a value from the database.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	v, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	// v is only valid until closer is closed
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Commit applies all writes in one synced batch.
func (s *Store) Commit(writes []evmbridge.Write) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, w := range writes {
		if err := batch.Set(w.Key, w.Value, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
