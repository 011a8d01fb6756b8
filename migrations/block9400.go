package migrations

import (
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/envelope"
	"github.com/blockberries/tokenchain/merkle"
)

// block9400FixedTimestamp is the historical response timestamp this
// migration pins, carried over from the original hotfix (github issue
// #205: a single response's timestamp had drifted and needed a fixed
// replacement for the affected peers to agree on a hash again).
const block9400FixedTimestamp = 1658348752

// block9400TxKey is the one historical transaction's event-log key this
// migration rewrites on read. The original gated on a specific
// transaction id (hex 241e00000001); this project's equivalent keys
// committed event logs under /meta/events/<id>.
var block9400TxKey = []byte("/meta/events/241e00000001")

// block9400 fixes up one specific historical response's timestamp,
// the archetype of a migration that exists purely to keep old block
// hashes reproducible after a point release changed clock handling.
type block9400 struct{}

// Block9400 is the named migration instance.
var Block9400 Migration = block9400{}

func (block9400) Name() string { return "Block 9400" }

func (block9400) Initialize(*merkle.Store, map[string]string) error { return nil }

func (block9400) TransformRead(key, data []byte) []byte {
	if string(key) != string(block9400TxKey) {
		return data
	}
	var resp envelope.Response
	if err := codec.Unmarshal(data, &resp); err != nil {
		return data
	}
	resp.Timestamp = block9400FixedTimestamp
	fixed, err := codec.Marshal(resp)
	if err != nil {
		return data
	}
	return fixed
}

func (block9400) EndpointGate(string) bool { return true }
