package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blockberries/tokenchain/merkle"
)

func openTestStore(t *testing.T) *merkle.Store {
	t.Helper()
	s, err := merkle.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrations.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func fullRegistry() *Registry {
	return NewRegistry(AccountCountDataAttribute, Block9400, MemoMigration, DummyHotfix, TokenMigration)
}

const fullConfig = `
migrations:
  - name: "Account Count Data Attribute"
    block_height: 0
  - name: "Block 9400"
    block_height: 9400
  - name: "Memo Migration"
    block_height: 100
  - name: "Dummy Hotfix"
    block_height: 1
    disabled: true
  - name: "Token Migration"
    block_height: 1
`

func TestLoadAcceptsCompleteConfig(t *testing.T) {
	path := writeConfig(t, fullConfig)
	if _, err := fullRegistry().Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestLoadRejectsMissingMigration(t *testing.T) {
	path := writeConfig(t, `
migrations:
  - name: "Account Count Data Attribute"
    block_height: 0
`)
	if _, err := fullRegistry().Load(path); err == nil {
		t.Fatal("expected Load to reject a config missing required migrations")
	}
}

func TestLoadRejectsUnknownMigration(t *testing.T) {
	path := writeConfig(t, fullConfig+`
  - name: "Not A Real Migration"
    block_height: 1
`)
	if _, err := fullRegistry().Load(path); err == nil {
		t.Fatal("expected Load to reject an unknown migration name")
	}
}

func TestIsActiveRespectsHeightAndDisabled(t *testing.T) {
	path := writeConfig(t, fullConfig)
	set, err := fullRegistry().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if set.IsActive("Block 9400", 9399) {
		t.Error("expected Block 9400 inactive one block before its height")
	}
	if !set.IsActive("Block 9400", 9400) {
		t.Error("expected Block 9400 active at its configured height")
	}
	if set.IsActive("Dummy Hotfix", 1000) {
		t.Error("expected a disabled migration to never be active")
	}
}

func TestAccountCountDataAttributeInitialize(t *testing.T) {
	store := openTestStore(t)
	store.Put([]byte("/balances/a/SYM"), []byte{100})
	store.Put([]byte("/balances/b/SYM"), []byte{})
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := AccountCountDataAttribute.Initialize(store, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	total, ok, err := store.Get(MetaAccountCountKey)
	if err != nil || !ok {
		t.Fatalf("expected account count to be set, err=%v ok=%v", err, ok)
	}
	if decodeUint64(total) != 2 {
		t.Fatalf("expected total count 2, got %d", decodeUint64(total))
	}

	nonZero, ok, err := store.Get(MetaNonZeroAccountCountKey)
	if err != nil || !ok {
		t.Fatalf("expected non-zero count to be set, err=%v ok=%v", err, ok)
	}
	if decodeUint64(nonZero) != 1 {
		t.Fatalf("expected non-zero count 1, got %d", decodeUint64(nonZero))
	}
}

func TestDummyHotfixIsANoOp(t *testing.T) {
	store := openTestStore(t)
	if err := DummyHotfix.Initialize(store, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := DummyHotfix.TransformRead([]byte("k"), []byte("v")); string(got) != "v" {
		t.Fatalf("expected TransformRead to pass data through unchanged, got %q", got)
	}
}

func TestTokenMigrationRenamesSubresourceCounter(t *testing.T) {
	store := openTestStore(t)
	store.Put(MetaLegacyAccountCounterKey, encodeUint32(7))
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := TokenMigration.Initialize(store, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	_, oldOK, _ := store.Get(MetaLegacyAccountCounterKey)
	if oldOK {
		t.Fatal("expected the legacy counter key to be removed")
	}
	newVal, newOK, _ := store.Get(MetaSubresourceCounterKey)
	if !newOK {
		t.Fatal("expected the new counter key to be present")
	}
	if string(newVal) != string(encodeUint32(7)) {
		t.Fatalf("expected the counter value to carry over, got %v", newVal)
	}
}

func TestTokenMigrationSeedsCounterWhenAbsent(t *testing.T) {
	store := openTestStore(t)
	if err := TokenMigration.Initialize(store, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	val, ok, _ := store.Get(MetaSubresourceCounterKey)
	if !ok {
		t.Fatal("expected the counter to be seeded")
	}
	if string(val) != string(encodeUint32(0)) {
		t.Fatalf("expected a zero-seeded counter, got %v", val)
	}
}
