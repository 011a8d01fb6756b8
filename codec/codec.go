// Package codec is tokenchain's thin wrapper around cramberry, the
// struct-tag-driven deterministic binary codec shared by every wire
// format in this repo: envelopes, ledger entities, migration state,
// and the consensus bridge's own request/response types.
//
// cramberry's encoding is already canonical by construction — field
// order follows the `cramberry:"N"` tag rather than struct declaration
// order or map iteration, so two peers that agree on the Go types agree
// on the bytes. This package exists so call sites import one local name
// instead of reaching into cramberry directly, and so the three
// CBOR-derived application tags live in one place.
package codec

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Tag numbers for the tagged values this repo puts on the wire, carried
// over from the many-protocol encoding this system replaces: address
// (tag 10000), timestamp (tag 1), and signed envelope (tag 18).
const (
	TagTimestamp     = 1
	TagSignedMessage = 18
	TagAddress       = 10000
)

// Marshal encodes v using cramberry's deterministic struct-tag layout.
func Marshal(v any) ([]byte, error) {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal decodes data into v, which must be a pointer.
func Unmarshal(data []byte, v any) error {
	if err := cramberry.Unmarshal(data, v); err != nil {
		return fmt.Errorf("codec: unmarshal: %w", err)
	}
	return nil
}

// MustMarshal is Marshal for call sites that have already validated v
// and treat a marshal failure as a programmer error, the same as the
// handful of internally-constructed values elsewhere that skip
// error-checked marshaling.
func MustMarshal(v any) []byte {
	data, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
