// Package bridge defines the consensus engine's application
// boundary: the exact method set a consensus-driven node exposes
// (Info, InitChain, BeginBlock, CheckTx, DeliverTx, EndBlock, Commit,
// Query).
package bridge

import (
	"context"

	"github.com/blockberries/tokenchain/bridge/types"
)

// Application is the interface every consensus-driven node must
// implement. The engine guarantees the following call order:
//  1. Info is called exactly once on startup.
//  2. InitChain is called exactly once, only on a fresh chain
//     (Info reported height zero).
//  3. BeginBlock, then zero or more DeliverTx, then EndBlock, then
//     Commit: exactly once per block, in that order.
//  4. CheckTx and Query may be called concurrently at any time once
//     InitChain has completed (or Info has reported existing state).
type Application interface {
	// Info reports the application's last committed height and app
	// hash, so the engine can detect and recover from divergence.
	Info(ctx context.Context, req types.InfoRequest) (types.InfoResponse, error)

	// InitChain seeds the Merkle store from a declarative genesis
	// document: the token authority's identity, initial tokens and
	// distributions, and an optional expected root hash.
	InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error)

	// BeginBlock records block height, time, and proposer, advances
	// active migrations, and purges expired multisig transactions.
	// Must not read the wall clock; block time comes from the header.
	BeginBlock(ctx context.Context, header types.BlockHeader) (types.BeginBlockResponse, error)

	// CheckTx gate-checks a transaction before it enters the
	// mempool. MUST NOT mutate committed state and MUST be safe for
	// concurrent use.
	CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error)

	// DeliverTx decodes, verifies, replay-checks, and dispatches one
	// transaction. Every call ends with the pending buffer either
	// fully extended (success) or fully rolled back (failure).
	DeliverTx(ctx context.Context, tx types.Tx) (types.DeliverTxResult, error)

	// EndBlock is a no-op hook reserved for future use.
	EndBlock(ctx context.Context, height uint64) (types.EndBlockResponse, error)

	// Commit flushes the pending buffer to durable storage and
	// returns the new root as the block's app hash.
	Commit(ctx context.Context) (types.CommitResult, error)

	// Query routes a read-only endpoint against the committed
	// snapshot, never the pending buffer. Must be safe for
	// concurrent use, including concurrent with DeliverTx.
	Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error)
}

// Connection represents a transport-agnostic connection to an
// Application. Both the gRPC client and the in-process adapter
// implement this.
type Connection interface {
	Application
	Close() error
}

// HaltError signals a fatal condition, such as storage corruption or a
// migration registry mismatch, that must abort the process rather
// than roll back a single transaction.
type HaltError struct {
	Reason string
	Cause  error
}

func (e *HaltError) Error() string {
	if e.Cause != nil {
		return "halt: " + e.Reason + ": " + e.Cause.Error()
	}
	return "halt: " + e.Reason
}

func (e *HaltError) Unwrap() error { return e.Cause }
