package bridgetest

import (
	"context"
	"testing"

	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/server"
	"github.com/blockberries/tokenchain/bridge/types"
)

// Harness provides a convenient test harness for application
// developers to exercise a bridge.Application against the lifecycle
// state machine the same way the consensus engine would.
type Harness struct {
	t   *testing.T
	srv *server.Server
}

// NewHarness creates a test harness wrapping the given application.
func NewHarness(t *testing.T, app bridge.Application) *Harness {
	t.Helper()
	return &Harness{t: t, srv: server.New(app)}
}

// Server returns the underlying server for direct access.
func (h *Harness) Server() *server.Server {
	return h.srv
}

// InitChain seeds genesis state with req.
func (h *Harness) InitChain(req types.InitChainRequest) types.InitChainResponse {
	h.t.Helper()
	resp, err := h.srv.InitChain(context.Background(), req)
	if err != nil {
		h.t.Fatalf("InitChain failed: %v", err)
	}
	return resp
}

// BeginBlock opens height's delivery window.
func (h *Harness) BeginBlock(header types.BlockHeader) types.BeginBlockResponse {
	h.t.Helper()
	resp, err := h.srv.BeginBlock(context.Background(), header)
	if err != nil {
		h.t.Fatalf("BeginBlock (height=%d) failed: %v", header.Height, err)
	}
	return resp
}

// DeliverTx delivers one transaction within the currently open block.
func (h *Harness) DeliverTx(tx types.Tx) types.DeliverTxResult {
	h.t.Helper()
	result, err := h.srv.DeliverTx(context.Background(), tx)
	if err != nil {
		h.t.Fatalf("DeliverTx failed: %v", err)
	}
	return result
}

// EndBlock closes the block's delivery window.
func (h *Harness) EndBlock(height uint64) types.EndBlockResponse {
	h.t.Helper()
	resp, err := h.srv.EndBlock(context.Background(), height)
	if err != nil {
		h.t.Fatalf("EndBlock (height=%d) failed: %v", height, err)
	}
	return resp
}

// Commit commits the last-opened block.
func (h *Harness) Commit() types.CommitResult {
	h.t.Helper()
	result, err := h.srv.Commit(context.Background())
	if err != nil {
		h.t.Fatalf("Commit failed: %v", err)
	}
	return result
}

// RunBlock begins, delivers txs, ends, and commits one block, in the
// order the consensus engine guarantees (package doc on bridge.Application).
func (h *Harness) RunBlock(header types.BlockHeader, txs ...types.Tx) (types.CommitResult, []types.DeliverTxResult) {
	h.t.Helper()
	h.BeginBlock(header)
	results := make([]types.DeliverTxResult, len(txs))
	for i, tx := range txs {
		results[i] = h.DeliverTx(tx)
	}
	h.EndBlock(header.Height)
	return h.Commit(), results
}

// CheckTx submits a transaction for mempool gate-checking.
func (h *Harness) CheckTx(tx types.Tx) types.CheckTxResult {
	h.t.Helper()
	result, err := h.srv.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
	if err != nil {
		h.t.Fatalf("CheckTx failed: %v", err)
	}
	return result
}

// Query reads application state at the latest committed height.
func (h *Harness) Query(path types.QueryPath, data []byte) types.StateQueryResult {
	h.t.Helper()
	result, err := h.srv.Query(context.Background(), types.StateQuery{
		Path: path,
		Data: data,
	})
	if err != nil {
		h.t.Fatalf("Query failed: %v", err)
	}
	return result
}

// MustAcceptTx asserts that a transaction is admitted to the mempool.
func (h *Harness) MustAcceptTx(tx types.Tx) {
	h.t.Helper()
	v := h.CheckTx(tx)
	if !v.Accepted() {
		h.t.Fatalf("expected tx accepted, got code=%d info=%q", v.Code, v.Info)
	}
}

// MustRejectTx asserts that a transaction is rejected by the mempool gate.
func (h *Harness) MustRejectTx(tx types.Tx) {
	h.t.Helper()
	v := h.CheckTx(tx)
	if v.Accepted() {
		h.t.Fatal("expected tx rejected, got accepted")
	}
}

// --- Helper factories ---

// MakeHeader builds a BlockHeader at height with a deterministic
// time, so compliance tests never read the wall clock.
func MakeHeader(height uint64) types.BlockHeader {
	return types.BlockHeader{
		Height: height,
		Time:   types.Timestamp{Seconds: 1704067200 + int64(height)*5},
	}
}
