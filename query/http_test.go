package query

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blockberries/tokenchain/bridge/bridgetest"
	"github.com/blockberries/tokenchain/bridge/local"
	"github.com/blockberries/tokenchain/bridge/types"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/envelope"
)

func TestHTTPHandlerQueryEndpoint(t *testing.T) {
	mock := &bridgetest.MockApp{
		QueryFn: func(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
			return types.StateQueryResult{Value: []byte("pong")}, nil
		},
	}
	conn := local.NewConnection(mock)
	if _, err := conn.InitChain(context.Background(), types.InitChainRequest{}); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	srv := NewServer(conn)
	ts := httptest.NewServer(srv.HTTPHandler())
	defer ts.Close()

	body := anonymousRequest(t, "/ledger/info")
	resp, err := http.Post(ts.URL+"/v1/query", "application/octet-stream", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/query: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response body: %v", err)
	}
	var env envelope.SignedEnvelope
	if err := codec.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	var out envelope.Response
	if err := codec.Unmarshal(env.Payload, &out); err != nil {
		t.Fatalf("decode response payload: %v", err)
	}
	if string(out.Result.Payload) != "pong" {
		t.Fatalf("payload = %q, want %q", out.Result.Payload, "pong")
	}
}

func TestHTTPHandlerRejectsNonPost(t *testing.T) {
	mock := &bridgetest.MockApp{}
	srv := NewServer(local.NewConnection(mock))
	ts := httptest.NewServer(srv.HTTPHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/query")
	if err != nil {
		t.Fatalf("GET /v1/query: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
