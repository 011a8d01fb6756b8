package migrations

import (
	"encoding/binary"
	"math/big"

	"github.com/blockberries/tokenchain/merkle"
)

// MetaAccountCountKey and MetaNonZeroAccountCountKey hold the two
// counters AccountCountDataAttribute maintains.
var (
	MetaAccountCountKey        = []byte("/meta/account-total-count")
	MetaNonZeroAccountCountKey = []byte("/meta/account-nonzero-count")
)

const balancesPrefix = "/balances/"

// accountCountDataAttribute recomputes, once at activation, the total
// number of distinct balance entries and the number with a non-zero
// amount, publishing both as query-able counters under /meta/.
//
// Grounded on the original's "Account Count Data Attribute" migration:
// it scanned every row under /balances and kept two running totals
// (unique accounts, non-zero accounts) as DataIndex counters.
type accountCountDataAttribute struct{}

// AccountCountDataAttribute is the named migration instance.
var AccountCountDataAttribute Migration = accountCountDataAttribute{}

func (accountCountDataAttribute) Name() string { return "Account Count Data Attribute" }

func (accountCountDataAttribute) Initialize(store *merkle.Store, _ map[string]string) error {
	entries, err := store.Iterate([]byte(balancesPrefix))
	if err != nil {
		return err
	}

	var total, nonZero uint64
	for _, e := range entries {
		total++
		if new(big.Int).SetBytes(e.Value).Sign() != 0 {
			nonZero++
		}
	}

	store.Put(MetaAccountCountKey, encodeUint64(total))
	store.Put(MetaNonZeroAccountCountKey, encodeUint64(nonZero))
	return nil
}

func (accountCountDataAttribute) TransformRead(_, data []byte) []byte { return data }

func (accountCountDataAttribute) EndpointGate(string) bool { return true }

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
