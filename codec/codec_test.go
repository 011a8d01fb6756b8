package codec_test

import (
	"testing"

	"github.com/blockberries/tokenchain/codec"
)

type sample struct {
	A uint64 `cramberry:"1"`
	B string `cramberry:"2"`
	C []byte `cramberry:"3"`
}

func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	data, err := codec.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out T
	if err := codec.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	v := sample{A: 42, B: "hello", C: []byte{1, 2, 3}}
	got := roundTrip(t, v)
	if got.A != v.A || got.B != v.B || string(got.C) != string(v.C) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var out sample
	if err := codec.Unmarshal([]byte{0xff, 0xff, 0xff}, &out); err == nil {
		t.Fatal("expected Unmarshal to reject malformed input")
	}
}

func TestMustMarshalPanicsOnBadInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustMarshal to panic on an unmarshalable value")
		}
	}()
	codec.MustMarshal(make(chan int))
}
