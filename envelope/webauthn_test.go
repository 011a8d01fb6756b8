package envelope_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/blockberries/tokenchain/envelope"
)

func TestVerifyWebAuthnRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	authenticatorData := []byte("authenticator-data")
	clientDataJSON := []byte(`{"type":"webauthn.get"}`)
	clientDataHash := sha256.Sum256(clientDataJSON)
	message := append(append([]byte{}, authenticatorData...), clientDataHash[:]...)
	sigBytes := ed25519.Sign(priv, message)

	sig := envelope.WebAuthnSignature{
		Algorithm:         envelope.AlgEd25519,
		PublicKey:         pub,
		Bytes:             sigBytes,
		AuthenticatorData: authenticatorData,
		ClientDataJSON:    clientDataJSON,
	}

	addr, err := envelope.VerifyWebAuthn(sig)
	if err != nil {
		t.Fatalf("VerifyWebAuthn failed: %v", err)
	}
	if !addr.CanSign() {
		t.Fatalf("expected a public-key address, got %+v", addr)
	}
}

func TestVerifyWebAuthnRejectsWrongClientData(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	authenticatorData := []byte("authenticator-data")
	clientDataJSON := []byte(`{"type":"webauthn.get"}`)
	clientDataHash := sha256.Sum256(clientDataJSON)
	message := append(append([]byte{}, authenticatorData...), clientDataHash[:]...)
	sigBytes := ed25519.Sign(priv, message)

	sig := envelope.WebAuthnSignature{
		Algorithm:         envelope.AlgEd25519,
		PublicKey:         pub,
		Bytes:             sigBytes,
		AuthenticatorData: authenticatorData,
		ClientDataJSON:    []byte(`{"type":"webauthn.get","tampered":true}`),
	}

	if _, err := envelope.VerifyWebAuthn(sig); err == nil {
		t.Fatal("expected VerifyWebAuthn to reject mismatched client data")
	}
}
