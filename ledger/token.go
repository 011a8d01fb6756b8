package ledger

import (
	"math/big"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codec"
)

// removedOwner is the sentinel Owner value recorded once a token's
// owner is removed, making the token permanently immutable.
var removedOwner = address.Address{Kind: address.Kind(0xff)}

// ExtInfoEntry is one entry of a token's extended-info map: either a
// memo string or a logo, which is either a single unicode code point
// or a typed binary image.
type ExtInfoEntry struct {
	Memo          *string `cramberry:"1"`
	LogoCodepoint *int32  `cramberry:"2"`
	LogoImageType string  `cramberry:"3"`
	LogoImageData []byte  `cramberry:"4"`
}

// wireToken is Token's on-disk encoding. Token itself exposes *big.Int
// supply fields; wireToken carries them as bytes since cramberry has
// no native bignum support.
type wireToken struct {
	Symbol            address.Address         `cramberry:"1"`
	Ticker            string                  `cramberry:"2"`
	Name              string                  `cramberry:"3"`
	Decimals          uint8                   `cramberry:"4"`
	Owner             address.Address         `cramberry:"5"`
	TotalSupply       []byte                  `cramberry:"6"`
	CirculatingSupply []byte                  `cramberry:"7"`
	MaxSupply         []byte                  `cramberry:"8"` // empty = unset
	ExtInfo           map[string]ExtInfoEntry `cramberry:"9"`
}

// Token is a token's full metadata. Supply fields are *big.Int so
// arithmetic never silently overflows.
type Token struct {
	Symbol            address.Address
	Ticker            string
	Name              string
	Decimals          uint8
	Owner             address.Address
	TotalSupply       *big.Int
	CirculatingSupply *big.Int
	MaxSupply         *big.Int // nil = unset
	ExtInfo           map[string]ExtInfoEntry
}

// Immutable reports whether t's owner has been removed.
func (t Token) Immutable() bool { return t.Owner.Equal(removedOwner) }

// Encode serializes t to its wire form, for callers (the bridge's
// dispatch layer) that need to embed a token in a transaction result.
func (t Token) Encode() ([]byte, error) { return t.encode() }

// DecodeToken parses a token previously produced by Encode.
func DecodeToken(data []byte) (Token, error) { return decodeToken(data) }

func (t Token) encode() ([]byte, error) {
	w := wireToken{
		Symbol:            t.Symbol,
		Ticker:            t.Ticker,
		Name:              t.Name,
		Decimals:          t.Decimals,
		Owner:             t.Owner,
		TotalSupply:       t.TotalSupply.Bytes(),
		CirculatingSupply: t.CirculatingSupply.Bytes(),
		ExtInfo:           t.ExtInfo,
	}
	if t.MaxSupply != nil {
		w.MaxSupply = t.MaxSupply.Bytes()
	}
	return codec.Marshal(w)
}

func decodeToken(data []byte) (Token, error) {
	var w wireToken
	if err := codec.Unmarshal(data, &w); err != nil {
		return Token{}, err
	}
	t := Token{
		Symbol:            w.Symbol,
		Ticker:            w.Ticker,
		Name:              w.Name,
		Decimals:          w.Decimals,
		Owner:             w.Owner,
		TotalSupply:       new(big.Int).SetBytes(w.TotalSupply),
		CirculatingSupply: new(big.Int).SetBytes(w.CirculatingSupply),
		ExtInfo:           w.ExtInfo,
	}
	if len(w.MaxSupply) > 0 {
		t.MaxSupply = new(big.Int).SetBytes(w.MaxSupply)
	}
	return t, nil
}
