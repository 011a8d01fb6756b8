// Package types defines the wire-level data types the bridge exchanges
// with the consensus engine. These are plain Go structs with cramberry
// struct tags for deterministic binary serialization.
package types

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// AppHash is a deterministic fingerprint of the application state
// after a block is committed.
type AppHash [32]byte

// Tx is an opaque transaction; the consensus engine never inspects
// its contents. Tokenchain's bridge decodes it as a signed envelope.
type Tx []byte

// QueryPath is a structured key for state queries, e.g.
// "/ledger/balance" (the address travels in the query's Data).
type QueryPath string

// BlockID uniquely identifies a point in the chain.
type BlockID struct {
	Height uint64 `cramberry:"1"`
	Hash   Hash   `cramberry:"2"`
}

// Timestamp is a wire-safe point in time: seconds since the Unix
// epoch plus a nanosecond offset, ensuring deterministic
// serialization independent of any local clock's resolution.
type Timestamp struct {
	Seconds int64 `cramberry:"1"`
	Nanos   int32 `cramberry:"2"`
}

// ValidatorAddress is the 20-byte address derived from a validator's
// public key.
type ValidatorAddress [20]byte

// Event is an application-defined key/value annotation attached to a
// transaction or block outcome, surfaced to observers but never
// consumed by state transitions.
type Event struct {
	Type       string            `cramberry:"1"`
	Attributes map[string]string `cramberry:"2"`
}
