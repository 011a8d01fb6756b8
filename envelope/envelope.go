// Package envelope implements tokenchain's signed request/response
// format: a structured-binary envelope carrying an endpoint name, an
// opaque payload, and zero or more detached signatures, plus the
// replay-protection and WebAuthn-compatibility rules that guard it.
//
// The wire shape follows the many-protocol signed-message envelope this
// system replaces: a tagged array of (protected headers, unprotected
// headers, payload, signatures), CBOR tag 18. tokenchain carries the
// same field layout through cramberry struct tags instead of CBOR tags
// on the outer container, since cramberry's tag space is the struct
// tag, not a wire-level CBOR tag marker.
package envelope

import (
	"fmt"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codec"
)

// ProtocolVersion is the only version this codebase emits or accepts.
const ProtocolVersion = 1

// Request is the payload map signed inside a SignedEnvelope: fields
// 0 through 8 of the wire request map.
type Request struct {
	Version  uint8           `cramberry:"0"`
	From     address.Address `cramberry:"1"`
	To       address.Address `cramberry:"2"`
	Endpoint string          `cramberry:"3"`
	Payload  []byte          `cramberry:"4"`
	Timestamp int64          `cramberry:"5"`
	ID        []byte         `cramberry:"6"`
	Nonce     []byte         `cramberry:"7"`

	// Attributes carries per-request attribute extensions keyed by a
	// small integer tag, the slot migrations' endpoint-gate hooks and
	// future async-request support key off. tokenchain does not
	// implement an async job queue; the slot exists so a migration can
	// still observe and react to attributes a client sets.
	Attributes map[uint64][]byte `cramberry:"8"`
}

// Result is a response's outcome: either a success payload, or a
// structured error (numeric code, message template, argument map),
// mirroring codeerr.Error's shape so bridge/query can convert one into
// the other without loss.
type Result struct {
	Code     int32             `cramberry:"1"`
	Payload  []byte            `cramberry:"2"`
	Template string            `cramberry:"3"`
	Args     map[string]string `cramberry:"4"`
}

// OK reports whether the result represents success (code 0).
func (r Result) OK() bool { return r.Code == 0 }

// Response is the payload map inside a signed response envelope.
type Response struct {
	From      address.Address `cramberry:"1"`
	To        address.Address `cramberry:"2"`
	Result    Result          `cramberry:"3"`
	Timestamp int64           `cramberry:"4"`
	ID        []byte          `cramberry:"5"`
}

// SignedEnvelope is the outer wire container: a detached-signature
// structure over a canonically-encoded payload.
type SignedEnvelope struct {
	Protected   []byte            `cramberry:"1"`
	Unprotected map[string][]byte `cramberry:"2"`
	Payload     []byte            `cramberry:"3"`
	Signatures  []Signature       `cramberry:"4"`
}

// IsAnonymous reports whether env carries zero signatures — permitted
// on read endpoints, forbidden on mutating ones.
func (env SignedEnvelope) IsAnonymous() bool { return len(env.Signatures) == 0 }

// DecodeRequest decodes the envelope's payload into a Request. It does
// not verify signatures; call Verify first on any envelope that isn't
// already known-anonymous.
func (env SignedEnvelope) DecodeRequest() (Request, error) {
	var req Request
	if err := codec.Unmarshal(env.Payload, &req); err != nil {
		return Request{}, fmt.Errorf("envelope: decode request payload: %w", err)
	}
	return req, nil
}

// EncodeRequest builds an unsigned SignedEnvelope around req, ready for
// Sign to attach one or more signatures, or for use as-is if req.From
// is address.Anonymous.
func EncodeRequest(req Request) (SignedEnvelope, error) {
	payload, err := codec.Marshal(req)
	if err != nil {
		return SignedEnvelope{}, fmt.Errorf("envelope: encode request payload: %w", err)
	}
	return SignedEnvelope{Payload: payload}, nil
}
