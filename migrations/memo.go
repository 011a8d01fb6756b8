package migrations

import (
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/merkle"
)

const multisigPrefix = "/multisig/"

// legacyMultisigMemo is the pre-migration shape of the memo/data pair
// stored alongside a multisig transaction: a bare optional string and
// an independent optional data blob, the representation this system's
// multisig module used before it grew a single typed Memo field.
type legacyMultisigMemo struct {
	LegacyMemo *string `cramberry:"90"`
	LegacyData []byte  `cramberry:"91"`
	Memo       *string `cramberry:"92"`
	Data       []byte  `cramberry:"93"`
}

// memoMigration upcasts every stored multisig transaction's legacy
// bare-string memo and independent data blob into the unified
// {memo, data} pair, so later reads never need to special-case the old
// shape.
//
// Grounded on the original's "Memo Migration": it walked every event
// log and multisig transaction row, and wherever the new `memo` field
// was unset but either of the legacy `memo_`/`data_` fields was,
// synthesized the new field from them.
type memoMigration struct{}

// MemoMigration is the named migration instance.
var MemoMigration Migration = memoMigration{}

func (memoMigration) Name() string { return "Memo Migration" }

func (memoMigration) Initialize(store *merkle.Store, _ map[string]string) error {
	entries, err := store.Iterate([]byte(multisigPrefix))
	if err != nil {
		return err
	}

	for _, e := range entries {
		var m legacyMultisigMemo
		if err := codec.Unmarshal(e.Value, &m); err != nil {
			continue
		}
		if m.Memo != nil {
			continue
		}
		if m.LegacyMemo == nil && m.LegacyData == nil {
			continue
		}

		m.Memo = m.LegacyMemo
		m.Data = m.LegacyData
		m.LegacyMemo = nil
		m.LegacyData = nil

		encoded, err := codec.Marshal(m)
		if err != nil {
			continue
		}
		store.Put(e.Key, encoded)
	}

	return nil
}

func (memoMigration) TransformRead(_, data []byte) []byte { return data }

func (memoMigration) EndpointGate(string) bool { return true }
