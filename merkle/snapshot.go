package merkle

import (
	"bytes"
	"fmt"

	"go.etcd.io/bbolt"
)

// Snapshot is a read-only view of the committed store, stable across
// later commits. It is what query handling reads from, never the
// pending buffer.
//
// bbolt's own MVCC read transactions already give us this for free: a
// transaction started with View/Begin(false) sees a consistent point in
// time regardless of writes that land after it starts.
type Snapshot struct {
	tx *bbolt.Tx
}

// Snapshot opens a new read-only view of the store's last committed
// state. The caller must call Release when done with it.
func (s *Store) Snapshot() (*Snapshot, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("merkle: snapshot: %w", err)
	}
	return &Snapshot{tx: tx}, nil
}

// Release closes the underlying read transaction, letting bbolt reclaim
// the pages it was pinning.
func (sn *Snapshot) Release() error { return sn.tx.Rollback() }

// Get returns the value for key as of the snapshot's point in time.
func (sn *Snapshot) Get(key []byte) ([]byte, bool, error) {
	v := sn.tx.Bucket(dataBucket).Get(key)
	if v == nil {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

// Iterate returns every entry with the given prefix, in key order, as
// of the snapshot's point in time.
func (sn *Snapshot) Iterate(prefix []byte) []Entry {
	var out []Entry
	c := sn.tx.Bucket(dataBucket).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		out = append(out, Entry{Key: append([]byte{}, k...), Value: append([]byte{}, v...)})
	}
	return out
}

// Root recomputes the Merkle root visible at this snapshot.
func (sn *Snapshot) Root() [32]byte {
	var leaves [][2][]byte
	sn.tx.Bucket(dataBucket).ForEach(func(k, v []byte) error {
		leaves = append(leaves, [2][]byte{append([]byte{}, k...), append([]byte{}, v...)})
		return nil
	})
	return rootHash(leaves)
}
