package evmbridge

import (
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// Write is a single key/value pair of an atomic Store commit.
type Write struct {
	Key   []byte
	Value []byte
}

// Store is the persistent key/value storage behind the mapping cache.
// Commit must apply all writes atomically.
type Store interface {
	Get(key []byte) (value []byte, found bool, err error)
	Commit(writes []Write) error
}

// MemoryStore is an in-memory Store backed by go-ethereum's memorydb.
type MemoryStore struct {
	db *memorydb.Database
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: memorydb.New()}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key []byte) ([]byte, bool, error) {
	ok, err := s.db.Has(key)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := s.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Commit writes all pairs in one batch.
func (s *MemoryStore) Commit(writes []Write) error {
	batch := s.db.NewBatch()
	for _, w := range writes {
		if err := batch.Put(w.Key, w.Value); err != nil {
			return err
		}
	}
	return batch.Write()
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	return s.db.Len()
}

// Close releases the underlying database.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}
