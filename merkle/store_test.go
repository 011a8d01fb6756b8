package merkle_test

import (
	"path/filepath"
	"testing"

	"github.com/blockberries/tokenchain/merkle"
)

func openTestStore(t *testing.T) *merkle.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := merkle.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetBeforeCommit(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/accounts/a"), []byte("alice"))

	v, ok, err := s.Get([]byte("/accounts/a"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || string(v) != "alice" {
		t.Fatalf("expected pending write visible before commit, got %q, %v", v, ok)
	}
}

func TestCommitPersists(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/accounts/a"), []byte("alice"))
	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	v, ok, err := s.Get([]byte("/accounts/a"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || string(v) != "alice" {
		t.Fatalf("expected committed write visible, got %q, %v", v, ok)
	}
}

func TestRollbackDiscardsPending(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/accounts/a"), []byte("alice"))
	s.Rollback()

	_, ok, err := s.Get([]byte("/accounts/a"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected rolled-back write to be absent")
	}
}

func TestRootIndependentOfInsertionOrder(t *testing.T) {
	a := openTestStore(t)
	a.Put([]byte("/k1"), []byte("v1"))
	a.Put([]byte("/k2"), []byte("v2"))
	rootA, err := a.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	b := openTestStore(t)
	b.Put([]byte("/k2"), []byte("v2"))
	b.Put([]byte("/k1"), []byte("v1"))
	rootB, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if rootA != rootB {
		t.Fatalf("expected roots independent of insertion order: %x != %x", rootA, rootB)
	}
}

func TestIteratePrefix(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/accounts/a"), []byte("alice"))
	s.Put([]byte("/accounts/b"), []byte("bob"))
	s.Put([]byte("/balances/a"), []byte("100"))
	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	entries, err := s.Iterate([]byte("/accounts/"))
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries under /accounts/, got %d", len(entries))
	}
	if string(entries[0].Key) != "/accounts/a" || string(entries[1].Key) != "/accounts/b" {
		t.Fatalf("expected ascending key order, got %q, %q", entries[0].Key, entries[1].Key)
	}
}

func TestSnapshotStableAcrossCommits(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/k"), []byte("v1"))
	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	defer snap.Release()

	s.Put([]byte("/k"), []byte("v2"))
	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	v, ok, err := snap.Get([]byte("/k"))
	if err != nil {
		t.Fatalf("snapshot Get failed: %v", err)
	}
	if !ok || string(v) != "v1" {
		t.Fatalf("expected snapshot to retain pre-commit value, got %q", v)
	}
}

func TestProveAndVerify(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/k1"), []byte("v1"))
	s.Put([]byte("/k2"), []byte("v2"))
	s.Put([]byte("/k3"), []byte("v3"))
	root, err := s.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	proof, ok, err := s.Prove([]byte("/k2"))
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}
	if !ok {
		t.Fatal("expected /k2 to be provable")
	}
	if !proof.Verify(root) {
		t.Fatal("expected proof to verify against the committed root")
	}
}

func TestProveMissingKey(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/k1"), []byte("v1"))
	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	_, ok, err := s.Prove([]byte("/missing"))
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}
	if ok {
		t.Fatal("expected Prove to report absence for a missing key")
	}
}

func TestCheckpointRestoreUndoesLaterWritesOnly(t *testing.T) {
	s := openTestStore(t)
	s.Put([]byte("/k1"), []byte("first"))

	cp := s.Checkpoint()
	s.Put([]byte("/k2"), []byte("second"))

	s.RestoreTo(cp)

	_, ok, err := s.Get([]byte("/k2"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected /k2 to be undone by RestoreTo")
	}

	v, ok, err := s.Get([]byte("/k1"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || string(v) != "first" {
		t.Fatalf("expected /k1 from before the checkpoint to survive, got %q, %v", v, ok)
	}
}
