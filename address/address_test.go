package address_test

import (
	"strings"
	"testing"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codec"
)

func TestAnonymousStringRoundTrip(t *testing.T) {
	s := address.Anonymous.String()
	if s != "tknaaaa" {
		t.Fatalf("expected tknaaaa, got %q", s)
	}
	got, err := address.Parse(s)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !got.Equal(address.Anonymous) {
		t.Fatalf("expected anonymous, got %+v", got)
	}
}

func TestPublicKeyStringRoundTrip(t *testing.T) {
	a := address.FromPublicKey([]byte("a fake ed25519 public key......"))
	s := a.String()
	if !strings.HasPrefix(s, "tkn") {
		t.Fatalf("expected tkn prefix, got %q", s)
	}
	got, err := address.Parse(s)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !got.Equal(a) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, a)
	}
}

func TestSubresourceRoundTrip(t *testing.T) {
	parent := address.FromPublicKey([]byte("another fake public key........"))
	child, err := parent.Subresource(7)
	if err != nil {
		t.Fatalf("Subresource failed: %v", err)
	}
	got, err := address.Parse(child.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !got.Equal(child) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, child)
	}
	if got.Index != 7 {
		t.Fatalf("expected subresource index 7, got %d", got.Index)
	}
}

func TestSubresourceRejectsNonPublicKeyParent(t *testing.T) {
	if _, err := address.Anonymous.Subresource(0); err == nil {
		t.Fatal("expected Subresource to reject an anonymous parent")
	}
}

func TestParseRejectsBadChecksum(t *testing.T) {
	a := address.FromPublicKey([]byte("yet another fake public key...."))
	s := a.String()
	// Flip the last character of the encoded data to corrupt the checksum.
	corrupted := s[:len(s)-1] + flipChar(s[len(s)-1])
	if _, err := address.Parse(corrupted); err == nil {
		t.Fatal("expected Parse to reject a corrupted address")
	}
}

func flipChar(c byte) string {
	if c == 'A' {
		return "B"
	}
	return "A"
}

func TestParseRejectsMissingPrefix(t *testing.T) {
	if _, err := address.Parse("notanaddress"); err == nil {
		t.Fatal("expected Parse to reject a string without the tkn prefix")
	}
}

func TestCramberryRoundTrip(t *testing.T) {
	type wrapper struct {
		Addr address.Address `cramberry:"1"`
	}
	a := address.FromPublicKey([]byte("third fake public key..........."))
	data, err := codec.Marshal(wrapper{Addr: a})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out wrapper
	if err := codec.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !out.Addr.Equal(a) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out.Addr, a)
	}
}

func TestCanSignAndCanBeSource(t *testing.T) {
	pk := address.FromPublicKey([]byte("fourth fake public key.........."))
	if !pk.CanSign() {
		t.Error("expected a public-key address to be able to sign")
	}
	if address.Anonymous.CanSign() {
		t.Error("expected the anonymous address to not be able to sign")
	}
	if !address.Anonymous.CanBeSource() {
		t.Error("expected the anonymous address to be a valid send source")
	}
}
