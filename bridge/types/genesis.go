package types

import "github.com/blockberries/tokenchain/address"

// GenesisDistribution seeds one holder's opening balance of a
// genesis-declared token.
type GenesisDistribution struct {
	Holder address.Address `cramberry:"1"`
	Amount []byte          `cramberry:"2"` // big.Int bytes
}

// GenesisToken declares one token that must exist at height zero.
type GenesisToken struct {
	Symbol        address.Address       `cramberry:"1"`
	Ticker        string                `cramberry:"2"`
	Name          string                `cramberry:"3"`
	Decimals      uint8                 `cramberry:"4"`
	MaxSupply     []byte                `cramberry:"5"` // empty = unset
	Distributions []GenesisDistribution `cramberry:"6"`
}

// GenesisDoc is the declarative seed document init-chain consumes: the
// token authority's identity, the tokens it mints at genesis, and an
// optional expected root for sanity-checking a restored snapshot.
type GenesisDoc struct {
	TokenAuthority address.Address `cramberry:"1"`
	// AuthorityImplicit mirrors the genesis field controlling whether
	// the authority may create tokens for itself without an explicit
	// role grant.
	AuthorityImplicit bool           `cramberry:"2"`
	Tokens            []GenesisToken `cramberry:"3"`
	ExpectedRoot      *Hash          `cramberry:"4"`
}
