// Package address implements tokenchain's identity type: a tagged union
// over anonymous, public-key-derived, and subresource addresses, with a
// checksummed text form for logs, CLIs, and config files.
//
// The binary shape and text form are carried over from the many-protocol
// identity encoding this system replaces (SHA3-224 digest of the public
// key, "o"-prefixed base32 with a CRC16 checksum) — renamed to this
// project's own "tkn" prefix and carrying a CRC32 checksum instead.
package address

import (
	"crypto/sha3"
	"encoding/base32"
	"fmt"
	"hash/crc32"
)

// Kind discriminates the variants of Address.
type Kind byte

const (
	KindAnonymous  Kind = 0
	KindPublicKey  Kind = 1
	KindSubresource Kind = 2
)

// digestSize is the SHA3-224 output size used to derive a PublicKey
// address from a public key.
const digestSize = 28

// Address is tokenchain's identity type. The zero value is Anonymous.
// Tagged for direct use as a field in any cramberry-encoded struct
// (envelopes, ledger entries, migration state).
type Address struct {
	Kind Kind `cramberry:"1"`

	// Hash is the SHA3-224 digest of the owning public key. Set for
	// KindPublicKey and KindSubresource (where it identifies the parent
	// account).
	Hash [digestSize]byte `cramberry:"2"`

	// Index is the per-parent counter minted by Subresource. Set only
	// for KindSubresource.
	Index uint32 `cramberry:"3"`
}

// Anonymous is the well-known anonymous identity: unauthenticated
// requests, or genesis entries with no specific owner.
var Anonymous = Address{Kind: KindAnonymous}

// FromPublicKey derives a PublicKey address from a raw public key's
// canonical byte encoding (e.g. an ed25519 or PKIX-encoded P256 key).
func FromPublicKey(pub []byte) Address {
	sum := sha3.Sum224(pub)
	return Address{Kind: KindPublicKey, Hash: sum}
}

// Subresource mints a deterministic child address under a which must
// itself be a PublicKey address — the pattern used to mint account
// addresses and token symbols without a fresh signing key. index is a dense per-parent counter maintained by the caller
// (ledger's or account's own next-subresource counter).
func (a Address) Subresource(index uint32) (Address, error) {
	if a.Kind != KindPublicKey {
		return Address{}, fmt.Errorf("address: Subresource requires a public-key address, got kind %d", a.Kind)
	}
	if index >= 1<<31 {
		return Address{}, fmt.Errorf("address: subresource index %d exceeds the 31-bit index space", index)
	}
	return Address{Kind: KindSubresource, Hash: a.Hash, Index: index}, nil
}

// IsAnonymous reports whether a is the anonymous identity.
func (a Address) IsAnonymous() bool { return a.Kind == KindAnonymous }

// CanSign reports whether a can be the signer of an envelope. Only
// public-key addresses hold a private counterpart; anonymous and
// subresource addresses cannot sign.
func (a Address) CanSign() bool { return a.Kind == KindPublicKey }

// CanBeSource reports whether a may appear as ledger.send's source.
func (a Address) CanBeSource() bool {
	return a.Kind == KindAnonymous || a.Kind == KindPublicKey
}

// Equal reports whether a and b denote the same identity. Anonymous
// addresses are always equal to each other; public-key and subresource
// addresses compare by hash (and, for subresources, by index).
func (a Address) Equal(b Address) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindAnonymous:
		return true
	case KindPublicKey:
		return a.Hash == b.Hash
	case KindSubresource:
		return a.Hash == b.Hash && a.Index == b.Index
	default:
		return false
	}
}

// Bytes returns the identity's canonical binary encoding.
func (a Address) Bytes() []byte { return a.toVec() }

// toVec returns the identity's canonical binary encoding: a tag byte
// followed by variant-specific fields, matching the variable-length
// encoding the original identity type used on the wire.
func (a Address) toVec() []byte {
	switch a.Kind {
	case KindAnonymous:
		return []byte{byte(KindAnonymous)}
	case KindPublicKey:
		out := make([]byte, 1+digestSize)
		out[0] = byte(KindPublicKey)
		copy(out[1:], a.Hash[:])
		return out
	case KindSubresource:
		out := make([]byte, 1+digestSize+4)
		out[0] = byte(KindSubresource)
		copy(out[1:1+digestSize], a.Hash[:])
		out[1+digestSize] = byte(a.Index >> 24)
		out[2+digestSize] = byte(a.Index >> 16)
		out[3+digestSize] = byte(a.Index >> 8)
		out[4+digestSize] = byte(a.Index)
		return out
	default:
		panic(fmt.Sprintf("address: unknown kind %d", a.Kind))
	}
}

func fromVec(b []byte) (Address, error) {
	if len(b) == 0 {
		return Address{}, fmt.Errorf("address: empty identity bytes")
	}
	switch Kind(b[0]) {
	case KindAnonymous:
		if len(b) != 1 {
			return Address{}, fmt.Errorf("address: malformed anonymous identity")
		}
		return Anonymous, nil
	case KindPublicKey:
		if len(b) != 1+digestSize {
			return Address{}, fmt.Errorf("address: malformed public-key identity")
		}
		var a Address
		a.Kind = KindPublicKey
		copy(a.Hash[:], b[1:])
		return a, nil
	case KindSubresource:
		if len(b) != 1+digestSize+4 {
			return Address{}, fmt.Errorf("address: malformed subresource identity")
		}
		var a Address
		a.Kind = KindSubresource
		copy(a.Hash[:], b[1:1+digestSize])
		a.Index = uint32(b[1+digestSize])<<24 | uint32(b[2+digestSize])<<16 | uint32(b[3+digestSize])<<8 | uint32(b[4+digestSize])
		return a, nil
	default:
		return Address{}, fmt.Errorf("address: unknown identity kind %d", b[0])
	}
}

const prefix = "tkn"

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// String renders a in its checksummed text form: "tkn" followed by a
// 4-character CRC32 checksum and the base32 encoding of the identity's
// binary form, or "tknaaaa" for the anonymous identity.
func (a Address) String() string {
	if a.IsAnonymous() {
		return prefix + "aaaa"
	}
	data := a.toVec()
	sum := crc32.ChecksumIEEE(data)
	var sumBytes [4]byte
	sumBytes[0] = byte(sum >> 24)
	sumBytes[1] = byte(sum >> 16)
	sumBytes[2] = byte(sum >> 8)
	sumBytes[3] = byte(sum)
	checksum := b32.EncodeToString(sumBytes[:])[:4]
	return prefix + checksum + b32.EncodeToString(data)
}

// Parse parses the text form produced by String, verifying the checksum.
func Parse(s string) (Address, error) {
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return Address{}, fmt.Errorf("address: missing %q prefix", prefix)
	}
	rest := s[len(prefix):]
	if rest == "aaaa" {
		return Anonymous, nil
	}
	if len(rest) < 5 {
		return Address{}, fmt.Errorf("address: malformed identity text %q", s)
	}
	encoded := rest[4:]
	data, err := b32.DecodeString(encoded)
	if err != nil {
		return Address{}, fmt.Errorf("address: bad base32 encoding: %w", err)
	}
	a, err := fromVec(data)
	if err != nil {
		return Address{}, err
	}
	if a.String() != s {
		return Address{}, fmt.Errorf("address: checksum mismatch for %q", s)
	}
	return a, nil
}

