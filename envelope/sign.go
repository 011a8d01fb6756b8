package envelope

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/blockberries/tokenchain/address"
)

// Algorithm names the signature scheme a Signature was produced with.
type Algorithm string

const (
	AlgEd25519   Algorithm = "Ed25519"
	AlgECDSAP256 Algorithm = "ES256"
)

// Signature is one detached signature over an envelope's payload,
// binding a public key and algorithm to the signature bytes.
type Signature struct {
	Algorithm Algorithm `cramberry:"1"`
	PublicKey []byte    `cramberry:"2"`
	Bytes     []byte    `cramberry:"3"`
}

// Signer produces signatures for one identity. Both of this system's
// supported key types (Ed25519, ECDSA-P256) implement it.
type Signer interface {
	Algorithm() Algorithm
	Address() address.Address
	Sign(message []byte) (Signature, error)
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	addr address.Address
}

// NewEd25519Signer wraps priv as a Signer, deriving its address from
// the corresponding public key.
func NewEd25519Signer(priv ed25519.PrivateKey) Signer {
	pub := priv.Public().(ed25519.PublicKey)
	return ed25519Signer{priv: priv, addr: address.FromPublicKey(pub)}
}

func (s ed25519Signer) Algorithm() Algorithm      { return AlgEd25519 }
func (s ed25519Signer) Address() address.Address  { return s.addr }

func (s ed25519Signer) Sign(message []byte) (Signature, error) {
	sig := ed25519.Sign(s.priv, message)
	pub := s.priv.Public().(ed25519.PublicKey)
	return Signature{Algorithm: AlgEd25519, PublicKey: []byte(pub), Bytes: sig}, nil
}

type ecdsaP256Signer struct {
	priv *ecdsa.PrivateKey
	addr address.Address
	pub  []byte
}

// NewECDSAP256Signer wraps priv as a Signer. priv's curve must be P256.
func NewECDSAP256Signer(priv *ecdsa.PrivateKey) (Signer, error) {
	if priv.Curve != elliptic.P256() {
		return nil, fmt.Errorf("envelope: ECDSA signer requires the P256 curve")
	}
	pub, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal ECDSA public key: %w", err)
	}
	return ecdsaP256Signer{priv: priv, addr: address.FromPublicKey(pub), pub: pub}, nil
}

func (s ecdsaP256Signer) Algorithm() Algorithm     { return AlgECDSAP256 }
func (s ecdsaP256Signer) Address() address.Address { return s.addr }

func (s ecdsaP256Signer) Sign(message []byte) (Signature, error) {
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, s.priv, digest[:])
	if err != nil {
		return Signature{}, fmt.Errorf("envelope: ECDSA sign: %w", err)
	}
	return Signature{Algorithm: AlgECDSAP256, PublicKey: s.pub, Bytes: sig}, nil
}

// Sign attaches one signature from signer over env.Payload, appending
// it to any existing signatures (multi-signature composition, spec
// §4.2 — "order does not affect validity").
func Sign(env SignedEnvelope, signer Signer) (SignedEnvelope, error) {
	sig, err := signer.Sign(env.Payload)
	if err != nil {
		return SignedEnvelope{}, err
	}
	out := env
	out.Signatures = append(append([]Signature{}, env.Signatures...), sig)
	return out, nil
}

// Verify checks every signature on env against env.Payload, derives
// each signer's address from its embedded public key, and returns the
// set of verified signer addresses. An envelope with no signatures
// verifies trivially to an empty set (the caller decides whether that
// is acceptable for the endpoint in question).
func Verify(env SignedEnvelope) (map[address.Address]bool, error) {
	verified := make(map[address.Address]bool, len(env.Signatures))
	for _, sig := range env.Signatures {
		addr, err := verifyOne(env.Payload, sig)
		if err != nil {
			return nil, err
		}
		verified[addr] = true
	}
	return verified, nil
}

func verifyOne(message []byte, sig Signature) (address.Address, error) {
	switch sig.Algorithm {
	case AlgEd25519:
		if len(sig.PublicKey) != ed25519.PublicKeySize {
			return address.Address{}, fmt.Errorf("envelope: invalid-signature: malformed Ed25519 public key")
		}
		pub := ed25519.PublicKey(sig.PublicKey)
		if !ed25519.Verify(pub, message, sig.Bytes) {
			return address.Address{}, fmt.Errorf("envelope: invalid-signature")
		}
		return address.FromPublicKey(pub), nil
	case AlgECDSAP256:
		key, err := x509.ParsePKIXPublicKey(sig.PublicKey)
		if err != nil {
			return address.Address{}, fmt.Errorf("envelope: invalid-signature: malformed ECDSA public key: %w", err)
		}
		pub, ok := key.(*ecdsa.PublicKey)
		if !ok || pub.Curve != elliptic.P256() {
			return address.Address{}, fmt.Errorf("envelope: invalid-signature: not a P256 key")
		}
		digest := sha256.Sum256(message)
		if !ecdsa.VerifyASN1(pub, digest[:], sig.Bytes) {
			return address.Address{}, fmt.Errorf("envelope: invalid-signature")
		}
		return address.FromPublicKey(sig.PublicKey), nil
	default:
		return address.Address{}, fmt.Errorf("envelope: unknown-algorithm: %q", sig.Algorithm)
	}
}
