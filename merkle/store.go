// Package merkle implements tokenchain's authenticated key-value store:
// a durable, bbolt-backed key-value layer with a pending-transaction
// buffer and a deterministic Merkle root over the live (key, value)
// multiset, plus inclusion proofs against that root.
//
// bbolt gives durability and consistent read snapshots (its own MVCC);
// it has no Merkle semantics of its own, so the authenticated-KV layer —
// root hashing, proofs — is tokenchain's, the same division of labor the
// original implementation had between a conventional embedded store and
// the `merk` crate layered on top of it.
package merkle

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"
)

var dataBucket = []byte("data")

// Store is a persistent, authenticated key-value store. All mutations
// go through a pending buffer; nothing is visible to readers of the
// committed state until Commit flushes it.
type Store struct {
	db *bbolt.DB

	mu      sync.Mutex
	pending map[string][]byte // nil value = tombstone
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("merkle: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("merkle: init bucket: %w", err)
	}
	return &Store{db: db, pending: make(map[string][]byte)}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the value for key, checking the pending buffer first so
// writes are visible to later reads within the same block.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	if v, ok := s.pending[string(key)]; ok {
		s.mu.Unlock()
		if v == nil {
			return nil, false, nil
		}
		return append([]byte{}, v...), true, nil
	}
	s.mu.Unlock()

	var value []byte
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(dataBucket).Get(key)
		if v != nil {
			value = append([]byte{}, v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("merkle: get: %w", err)
	}
	return value, found, nil
}

// Put stages key=value in the pending buffer.
func (s *Store) Put(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[string(key)] = append([]byte{}, value...)
}

// Delete stages a tombstone for key in the pending buffer.
func (s *Store) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[string(key)] = nil
}

// Entry is one key-value pair, returned by Iterate in key order.
type Entry struct {
	Key   []byte
	Value []byte
}

// Iterate returns every live entry whose key has the given prefix, in
// ascending key order, merging the pending buffer over the committed
// state.
func (s *Store) Iterate(prefix []byte) ([]Entry, error) {
	merged := make(map[string][]byte)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(dataBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			merged[string(k)] = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merkle: iterate: %w", err)
	}

	s.mu.Lock()
	for k, v := range s.pending {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	s.mu.Unlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: []byte(k), Value: merged[k]})
	}
	return out, nil
}

// Commit flushes the pending buffer to durable storage and returns the
// new Merkle root, a pure function of the resulting live (key, value)
// multiset.
func (s *Store) Commit() ([32]byte, error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string][]byte)
	s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)
		for k, v := range pending {
			if v == nil {
				if err := b.Delete([]byte(k)); err != nil {
					return err
				}
				continue
			}
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return [32]byte{}, fmt.Errorf("merkle: commit: %w", err)
	}

	return s.root()
}

// root recomputes the Merkle root over every live key in the store.
func (s *Store) root() ([32]byte, error) {
	var leaves [][2][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(dataBucket).ForEach(func(k, v []byte) error {
			leaves = append(leaves, [2][]byte{append([]byte{}, k...), append([]byte{}, v...)})
			return nil
		})
	})
	if err != nil {
		return [32]byte{}, fmt.Errorf("merkle: root: %w", err)
	}
	return rootHash(leaves), nil
}

// Root recomputes the Merkle root over the currently committed state,
// without staging or flushing any writes. Callers that need the app
// hash outside of Commit (Info, on a restart with an empty pending
// buffer) use this instead of re-deriving it from a snapshot.
func (s *Store) Root() ([32]byte, error) {
	return s.root()
}

// Rollback discards the pending buffer without committing — used when
// the whole block must proceed with no pending effects at all (cold
// start recovery, e.g.).
func (s *Store) Rollback() {
	s.mu.Lock()
	s.pending = make(map[string][]byte)
	s.mu.Unlock()
}

// Checkpoint returns a copy of the pending buffer's current contents,
// suitable for a later RestoreTo. Bridge's per-transaction delivery
// loop takes one before running each transaction's module dispatch,
// so a single failing transaction can be undone without discarding
// the writes of transactions already delivered earlier in the same
// block.
func (s *Store) Checkpoint() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string][]byte, len(s.pending))
	for k, v := range s.pending {
		cp[k] = v
	}
	return cp
}

// RestoreTo replaces the pending buffer with cp, undoing every write
// staged since the matching Checkpoint call.
func (s *Store) RestoreTo(cp map[string][]byte) {
	s.mu.Lock()
	s.pending = cp
	s.mu.Unlock()
}
