package envelope

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/blockberries/tokenchain/address"
)

// WebAuthnSignature is the alternate signing mode: the signed message
// is authenticatorData || sha256(clientDataJSON), not the envelope
// payload directly.
type WebAuthnSignature struct {
	Algorithm         Algorithm `cramberry:"1"`
	PublicKey         []byte    `cramberry:"2"`
	Bytes             []byte    `cramberry:"3"`
	AuthenticatorData []byte    `cramberry:"4"`
	ClientDataJSON    []byte    `cramberry:"5"`
}

// VerifyWebAuthn reconstructs the WebAuthn signed message and checks
// sig against it, returning the signer's derived address.
func VerifyWebAuthn(sig WebAuthnSignature) (address.Address, error) {
	clientDataHash := sha256.Sum256(sig.ClientDataJSON)
	message := append(append([]byte{}, sig.AuthenticatorData...), clientDataHash[:]...)

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

// Endpoint describes one dispatchable endpoint's signing requirements.
// WebAuthnOnly marks an endpoint as accepting only WebAuthn signatures.
// The endpoint registry in bridge/node does not use this type, so no
// request is rejected with webauthn-required.
type Endpoint struct {
	Name         string
	WebAuthnOnly bool
}
