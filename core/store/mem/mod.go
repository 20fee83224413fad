// Package mem implements an in-memory store and a staging layer that buffers
// the writes of a transaction on top of a parent store.
package mem

import (
	"sort"
	"sync"

	"go.dedis.ch/agrireg/core/store"
	"golang.org/x/xerrors"
)

// Store is a simple key/value store backed by a map. It is safe for
// concurrent use.
//
// - implements store.Snapshot
type Store struct {
	sync.RWMutex

	entries map[string][]byte
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string][]byte),
	}
}

// Get implements store.Readable. It returns the value associated to the key,
// or nil if it does not exist.
func (s *Store) Get(key []byte) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	return s.entries[string(key)], nil
}

// Set implements store.Writable. It sets the value of the key.
func (s *Store) Set(key, value []byte) error {
	s.Lock()
	s.entries[string(key)] = value
	s.Unlock()

	return nil
}

// Delete implements store.Writable. It removes the key from the store.
func (s *Store) Delete(key []byte) error {
	s.Lock()
	delete(s.entries, string(key))
	s.Unlock()

	return nil
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.entries)
}

// Staging records the updates of a single execution on top of a parent store.
// Reads look up the staged updates first and follow the parent otherwise.
// Nothing reaches the parent until Apply is called.
//
// - implements store.Snapshot
type Staging struct {
	parent  store.Readable
	updates map[string][]byte
	deleted map[string]struct{}
}

// NewStaging creates a staging layer over the parent store.
func NewStaging(parent store.Readable) *Staging {
	return &Staging{
		parent:  parent,
		updates: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

// Get implements store.Readable.
func (s *Staging) Get(key []byte) ([]byte, error) {
	str := string(key)

	if _, found := s.deleted[str]; found {
		return nil, nil
	}

	val, found := s.updates[str]
	if found {
		return val, nil
	}

	val, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent store: %v", err)
	}

	return val, nil
}

// Set implements store.Writable.
func (s *Staging) Set(key, value []byte) error {
	str := string(key)

	delete(s.deleted, str)
	s.updates[str] = value

	return nil
}

// Delete implements store.Writable.
func (s *Staging) Delete(key []byte) error {
	str := string(key)

	delete(s.updates, str)
	s.deleted[str] = struct{}{}

	return nil
}

// Len returns the number of staged updates and deletions.
func (s *Staging) Len() int {
	return len(s.updates) + len(s.deleted)
}

// Apply writes the staged updates to the store in a deterministic order.
func (s *Staging) Apply(w store.Writable) error {
	keys := make([]string, 0, len(s.updates))
	for key := range s.updates {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := w.Set([]byte(key), s.updates[key])
		if err != nil {
			return xerrors.Errorf("failed to set key '%x': %v", key, err)
		}
	}

	keys = keys[:0]
	for key := range s.deleted {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := w.Delete([]byte(key))
		if err != nil {
			return xerrors.Errorf("failed to delete key '%x': %v", key, err)
		}
	}

	return nil
}
