package merkle

import (
	"bytes"
	"crypto/sha256"
	"sort"

	"go.etcd.io/bbolt"
)

// leafHash hashes one (key, value) pair. Domain-separated from the
// internal-node hash so a leaf and a two-child internal node can never
// collide in value.
func leafHash(key, value []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{0x00})
	h.Write(key)
	h.Write(value)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func nodeHash(left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{0x01})
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// rootHash computes the Merkle root over leaves, sorted by key first so
// the result depends only on the multiset of (key, value) pairs, never
// on the order leaves were supplied in.
func rootHash(leaves [][2][]byte) [32]byte {
	if len(leaves) == 0 {
		return sha256.Sum256(nil)
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i][0], leaves[j][0]) < 0
	})
	level := make([][32]byte, len(leaves))
	for i, l := range leaves {
		level[i] = leafHash(l[0], l[1])
	}
	return collapse(level)
}

// collapse repeatedly pairs adjacent nodes until one root remains. An
// odd trailing node is carried up unchanged rather than paired with
// itself, so the tree's shape is fully determined by the leaf count.
func collapse(level [][32]byte) [32]byte {
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, nodeHash(level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0]
}

// ProofStep is one sibling hash on the path from a leaf to the root,
// tagged with whether the sibling sits on the left or the right.
type ProofStep struct {
	Sibling [32]byte
	OnLeft  bool
}

// Proof is an inclusion proof for one key against a specific root.
type Proof struct {
	Key   []byte
	Value []byte
	Steps []ProofStep
}

// Verify recomputes the path from p's leaf to the root and checks it
// matches root, independent of any live store.
func (p Proof) Verify(root [32]byte) bool {
	h := leafHash(p.Key, p.Value)
	for _, step := range p.Steps {
		if step.OnLeft {
			h = nodeHash(step.Sibling, h)
		} else {
			h = nodeHash(h, step.Sibling)
		}
	}
	return h == root
}

// Prove builds an inclusion proof for key against the store's current
// committed state. It returns ok=false if key is not present.
func (s *Store) Prove(key []byte) (Proof, bool, error) {
	var leaves [][2][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(dataBucket).ForEach(func(k, v []byte) error {
			leaves = append(leaves, [2][]byte{append([]byte{}, k...), append([]byte{}, v...)})
			return nil
		})
	})
	if err != nil {
		return Proof{}, false, err
	}

	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i][0], leaves[j][0]) < 0
	})

	idx := -1
	for i, l := range leaves {
		if bytes.Equal(l[0], key) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Proof{}, false, nil
	}

	level := make([][32]byte, len(leaves))
	for i, l := range leaves {
		level[i] = leafHash(l[0], l[1])
	}

	var steps []ProofStep
	pos := idx
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			if i == pos-(pos%2) {
				if pos%2 == 0 {
					steps = append(steps, ProofStep{Sibling: level[i+1], OnLeft: false})
				} else {
					steps = append(steps, ProofStep{Sibling: level[i], OnLeft: true})
				}
			}
			next = append(next, nodeHash(level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		pos = pos / 2
		level = next
	}

	return Proof{Key: leaves[idx][0], Value: leaves[idx][1], Steps: steps}, true, nil
}
