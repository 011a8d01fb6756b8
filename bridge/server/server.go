package server

import (
	"context"
	"sync"

	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/types"
)

// Server wraps an Application with lifecycle enforcement. The
// consensus engine interacts with the application exclusively
// through this wrapper.
type Server struct {
	app   bridge.Application
	guard *LifecycleGuard

	mu               sync.Mutex
	lastBlockHeight  uint64
	deliveringHeight uint64
}

// New creates a Server wrapping app.
func New(app bridge.Application) *Server {
	return &Server{app: app, guard: NewLifecycleGuard()}
}

// Info reports the application's last committed state. Safe to call
// before InitChain.
func (s *Server) Info(ctx context.Context, req types.InfoRequest) (types.InfoResponse, error) {
	resp, err := s.app.Info(ctx, req)
	if err != nil {
		return resp, err
	}
	// An application with committed state skips InitChain; Info
	// reporting a non-zero height moves the guard to Ready instead.
	if resp.LastBlockHeight > 0 && !s.guard.initDone.Load() {
		s.guard.AcquireInit()
		s.guard.CompleteInit()
	}
	return resp, nil
}

// InitChain seeds genesis state, transitioning Init → Ready.
func (s *Server) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	s.guard.AcquireInit()

	resp, err := s.app.InitChain(ctx, req)
	if err != nil {
		s.guard.FailInit()
		return resp, err
	}
	s.guard.CompleteInit()
	return resp, nil
}

// BeginBlock opens a new block's delivery window.
func (s *Server) BeginBlock(ctx context.Context, header types.BlockHeader) (types.BeginBlockResponse, error) {
	s.guard.AcquireBeginBlock()

	resp, err := s.app.BeginBlock(ctx, header)
	if err != nil {
		s.guard.FailBeginBlock()
		return resp, err
	}

	s.mu.Lock()
	s.deliveringHeight = header.Height
	s.mu.Unlock()

	s.guard.CompleteBeginBlock()
	return resp, nil
}

// CheckTx gate-checks a transaction for mempool admission. Safe for
// concurrent use, including concurrent with DeliverTx.
func (s *Server) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error) {
	s.guard.CheckConcurrent()
	return s.app.CheckTx(ctx, tx, mctx)
}

// DeliverTx executes one transaction within the currently open block.
// Must only be called between BeginBlock and EndBlock, in block order.
func (s *Server) DeliverTx(ctx context.Context, tx types.Tx) (types.DeliverTxResult, error) {
	s.guard.CheckDelivering()
	return s.app.DeliverTx(ctx, tx)
}

// EndBlock closes the block's delivery window.
func (s *Server) EndBlock(ctx context.Context, height uint64) (types.EndBlockResponse, error) {
	s.guard.AcquireEndBlock()

	resp, err := s.app.EndBlock(ctx, height)
	if err != nil {
		s.guard.FailEndBlock()
		return resp, err
	}

	s.guard.CompleteEndBlock()
	return resp, nil
}

// Commit persists the block's accumulated state changes.
func (s *Server) Commit(ctx context.Context) (types.CommitResult, error) {
	s.guard.AcquireCommit()

	result, err := s.app.Commit(ctx)

	s.mu.Lock()
	s.lastBlockHeight = s.deliveringHeight
	s.mu.Unlock()

	s.guard.CompleteCommit()
	return result, err
}

// Query reads application state. Safe for concurrent use.
func (s *Server) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	s.guard.CheckConcurrent()
	return s.app.Query(ctx, req)
}

// LastBlockHeight returns the height of the most recently committed
// block.
func (s *Server) LastBlockHeight() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBlockHeight
}

// Close is a no-op for the server wrapper.
func (s *Server) Close() error { return nil }
