// Package bridgetest provides test utilities for bridge.Application
// implementations: a configurable mock, a test harness, and a
// lifecycle compliance suite exercising tokenchain's 8-method
// bridge.Application shape.
package bridgetest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/types"
)

// Compile-time check that MockApp satisfies bridge.Application.
var _ bridge.Application = (*MockApp)(nil)

// MockApp is a configurable mock bridge.Application for consensus
// engine testing. All methods are configurable via function fields;
// unconfigured methods return sensible zero-value defaults.
type MockApp struct {
	mu sync.Mutex

	InfoFn       func(context.Context, types.InfoRequest) (types.InfoResponse, error)
	InitChainFn  func(context.Context, types.InitChainRequest) (types.InitChainResponse, error)
	BeginBlockFn func(context.Context, types.BlockHeader) (types.BeginBlockResponse, error)
	CheckTxFn    func(context.Context, types.Tx, types.MempoolContext) (types.CheckTxResult, error)
	DeliverTxFn  func(context.Context, types.Tx) (types.DeliverTxResult, error)
	EndBlockFn   func(context.Context, uint64) (types.EndBlockResponse, error)
	CommitFn     func(context.Context) (types.CommitResult, error)
	QueryFn      func(context.Context, types.StateQuery) (types.StateQueryResult, error)

	// Call counters (atomic for concurrent access).
	InfoCalls       atomic.Int64
	InitChainCalls  atomic.Int64
	CheckTxCalls    atomic.Int64
	DeliverTxCalls  atomic.Int64
	CommitCalls     atomic.Int64
	QueryCalls      atomic.Int64
}

func (m *MockApp) Info(ctx context.Context, req types.InfoRequest) (types.InfoResponse, error) {
	m.InfoCalls.Add(1)
	if m.InfoFn != nil {
		return m.InfoFn(ctx, req)
	}
	return types.InfoResponse{}, nil
}

func (m *MockApp) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	m.InitChainCalls.Add(1)
	if m.InitChainFn != nil {
		return m.InitChainFn(ctx, req)
	}
	return types.InitChainResponse{AppHash: types.AppHash{0x01}}, nil
}

func (m *MockApp) BeginBlock(ctx context.Context, header types.BlockHeader) (types.BeginBlockResponse, error) {
	if m.BeginBlockFn != nil {
		return m.BeginBlockFn(ctx, header)
	}
	return types.BeginBlockResponse{}, nil
}

func (m *MockApp) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error) {
	m.CheckTxCalls.Add(1)
	if m.CheckTxFn != nil {
		return m.CheckTxFn(ctx, tx, mctx)
	}
	return types.CheckTxResult{Code: 0}, nil
}

func (m *MockApp) DeliverTx(ctx context.Context, tx types.Tx) (types.DeliverTxResult, error) {
	m.DeliverTxCalls.Add(1)
	if m.DeliverTxFn != nil {
		return m.DeliverTxFn(ctx, tx)
	}
	return types.DeliverTxResult{Code: 0}, nil
}

func (m *MockApp) EndBlock(ctx context.Context, height uint64) (types.EndBlockResponse, error) {
	if m.EndBlockFn != nil {
		return m.EndBlockFn(ctx, height)
	}
	return types.EndBlockResponse{}, nil
}

func (m *MockApp) Commit(ctx context.Context) (types.CommitResult, error) {
	m.CommitCalls.Add(1)
	if m.CommitFn != nil {
		return m.CommitFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.CommitResult{AppHash: types.AppHash{0x01}}, nil
}

func (m *MockApp) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	m.QueryCalls.Add(1)
	if m.QueryFn != nil {
		return m.QueryFn(ctx, req)
	}
	return types.StateQueryResult{}, nil
}
