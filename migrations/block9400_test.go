package migrations

import (
	"testing"

	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/envelope"
)

func TestBlock9400RewritesTargetResponse(t *testing.T) {
	resp := envelope.Response{Timestamp: 1111111111}
	data, err := codec.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got := Block9400.TransformRead(block9400TxKey, data)

	var out envelope.Response
	if err := codec.Unmarshal(got, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Timestamp != block9400FixedTimestamp {
		t.Fatalf("expected timestamp %d, got %d", block9400FixedTimestamp, out.Timestamp)
	}
}

func TestBlock9400LeavesOtherKeysAlone(t *testing.T) {
	resp := envelope.Response{Timestamp: 1111111111}
	data, _ := codec.Marshal(resp)

	got := Block9400.TransformRead([]byte("/meta/events/other"), data)
	if string(got) != string(data) {
		t.Fatal("expected an unrelated key's data to pass through unchanged")
	}
}
