package query

import (
	"context"
	"testing"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/bridge/bridgetest"
	"github.com/blockberries/tokenchain/bridge/local"
	"github.com/blockberries/tokenchain/bridge/types"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/envelope"
)

func anonymousRequest(t *testing.T, endpoint string) []byte {
	t.Helper()
	req := envelope.Request{
		Version:  envelope.ProtocolVersion,
		From:     address.Anonymous,
		Endpoint: endpoint,
	}
	env, err := envelope.EncodeRequest(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	data, err := codec.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}

func TestHandleQueryRoutesToConnectionQuery(t *testing.T) {
	mock := &bridgetest.MockApp{
		QueryFn: func(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
			if req.Path != "/ledger/info" {
				t.Fatalf("unexpected query path: %s", req.Path)
			}
			return types.StateQueryResult{Value: []byte("ok")}, nil
		},
	}
	conn := local.NewConnection(mock)
	if _, err := conn.InitChain(context.Background(), types.InitChainRequest{}); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	srv := NewServer(conn)

	respBytes, err := srv.HandleQuery(context.Background(), anonymousRequest(t, "/ledger/info"))
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}

	var env envelope.SignedEnvelope
	if err := codec.Unmarshal(respBytes, &env); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	var resp envelope.Response
	if err := codec.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatalf("decode response payload: %v", err)
	}
	if !resp.Result.OK() {
		t.Fatalf("expected success result, got code=%d template=%q", resp.Result.Code, resp.Result.Template)
	}
	if string(resp.Result.Payload) != "ok" {
		t.Fatalf("payload = %q, want %q", resp.Result.Payload, "ok")
	}
}

func TestHandleQueryPropagatesModuleError(t *testing.T) {
	mock := &bridgetest.MockApp{
		QueryFn: func(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
			return types.StateQueryResult{Code: 42, Info: "unknown-symbol"}, nil
		},
	}
	conn := local.NewConnection(mock)
	if _, err := conn.InitChain(context.Background(), types.InitChainRequest{}); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	srv := NewServer(conn)

	respBytes, err := srv.HandleQuery(context.Background(), anonymousRequest(t, "/ledger/balance"))
	if err != nil {
		t.Fatalf("HandleQuery: %v", err)
	}

	var env envelope.SignedEnvelope
	if err := codec.Unmarshal(respBytes, &env); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	var resp envelope.Response
	if err := codec.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatalf("decode response payload: %v", err)
	}
	if resp.Result.OK() {
		t.Fatal("expected a failure result")
	}
	if resp.Result.Code != 42 {
		t.Fatalf("result code = %d, want 42", resp.Result.Code)
	}
}

func TestHandleTxGateChecksAgainstMempool(t *testing.T) {
	mock := &bridgetest.MockApp{
		CheckTxFn: func(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error) {
			return types.CheckTxResult{Code: 0}, nil
		},
	}
	conn := local.NewConnection(mock)
	if _, err := conn.InitChain(context.Background(), types.InitChainRequest{}); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	srv := NewServer(conn)

	respBytes, err := srv.HandleTx(context.Background(), anonymousRequest(t, "ledger.send"))
	if err != nil {
		t.Fatalf("HandleTx: %v", err)
	}
	if mock.CheckTxCalls.Load() != 1 {
		t.Fatalf("expected exactly one CheckTx call, got %d", mock.CheckTxCalls.Load())
	}

	var env envelope.SignedEnvelope
	if err := codec.Unmarshal(respBytes, &env); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	var resp envelope.Response
	if err := codec.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatalf("decode response payload: %v", err)
	}
	if !resp.Result.OK() {
		t.Fatalf("expected success result, got code=%d", resp.Result.Code)
	}
}
