// Package server provides the engine-side wrapper that enforces the
// bridge's lifecycle state machine and routes calls to the
// Application.
package server

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// lifecycleState represents a state in the bridge's lifecycle state
// machine.
type lifecycleState uint32

const (
	// stateInit: waiting for Info/InitChain. No other calls allowed.
	stateInit lifecycleState = iota
	// stateReady: InitChain complete (or Info found existing state).
	// Waiting for consensus to decide a block. Concurrent calls
	// allowed: CheckTx, Query.
	stateReady
	// stateBeginningBlock: BeginBlock has been called, waiting for
	// it to return.
	stateBeginningBlock
	// stateDelivering: BeginBlock returned; sequential DeliverTx
	// calls are allowed, one at a time, block order.
	stateDelivering
	// stateEndingBlock: EndBlock has been called, waiting for it to
	// return.
	stateEndingBlock
	// stateExecuted: EndBlock returned. Commit is the only valid
	// next sequential call.
	stateExecuted
	// stateCommitting: Commit has been called, waiting for it to
	// return.
	stateCommitting
)

func (s lifecycleState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateReady:
		return "Ready"
	case stateBeginningBlock:
		return "BeginningBlock"
	case stateDelivering:
		return "Delivering"
	case stateEndingBlock:
		return "EndingBlock"
	case stateExecuted:
		return "Executed"
	case stateCommitting:
		return "Committing"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// LifecycleGuard enforces the lifecycle state machine. The engine
// wraps the Application with this guard to ensure correct call
// ordering.
type LifecycleGuard struct {
	state atomic.Uint32
	// Mutex for sequential calls (BeginBlock, DeliverTx, EndBlock,
	// Commit).
	seqMu sync.Mutex
	// Tracks whether InitChain/Info has completed (for concurrent
	// call gating).
	initDone atomic.Bool
}

// NewLifecycleGuard creates a guard in the Init state.
func NewLifecycleGuard() *LifecycleGuard {
	g := &LifecycleGuard{}
	g.state.Store(uint32(stateInit))
	return g
}

// State returns the current lifecycle state.
func (g *LifecycleGuard) State() string {
	return lifecycleState(g.state.Load()).String()
}

// AcquireInit transitions Init → Ready. Panics if not in Init state.
func (g *LifecycleGuard) AcquireInit() {
	if !g.state.CompareAndSwap(uint32(stateInit), uint32(stateReady)) {
		panic(fmt.Sprintf("tokenchain/bridge: InitChain called in state %s (expected Init)",
			lifecycleState(g.state.Load())))
	}
}

// CompleteInit marks init as done, enabling concurrent calls.
func (g *LifecycleGuard) CompleteInit() {
	g.initDone.Store(true)
}

// FailInit rolls back state to Init if InitChain fails.
func (g *LifecycleGuard) FailInit() {
	g.state.Store(uint32(stateInit))
}

// AcquireBeginBlock transitions Ready → BeginningBlock. Blocks if
// another sequential operation is in progress. Panics if not in
// Ready state.
func (g *LifecycleGuard) AcquireBeginBlock() {
	g.seqMu.Lock()
	if state := lifecycleState(g.state.Load()); state != stateReady {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("tokenchain/bridge: BeginBlock called in state %s (expected Ready)", state))
	}
	g.state.Store(uint32(stateBeginningBlock))
}

// CompleteBeginBlock transitions BeginningBlock → Delivering, opening
// the window for the block's sequential DeliverTx calls, and releases
// the sequential lock acquired by AcquireBeginBlock.
func (g *LifecycleGuard) CompleteBeginBlock() {
	if !g.state.CompareAndSwap(uint32(stateBeginningBlock), uint32(stateDelivering)) {
		panic(fmt.Sprintf("tokenchain/bridge: CompleteBeginBlock called in state %s (expected BeginningBlock)",
			lifecycleState(g.state.Load())))
	}
	g.seqMu.Unlock()
}

// FailBeginBlock transitions BeginningBlock → Ready on error,
// releasing the sequential lock without opening the delivery window.
func (g *LifecycleGuard) FailBeginBlock() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// CheckDelivering verifies a DeliverTx call is happening inside an
// open block. Panics otherwise — DeliverTx outside BeginBlock/EndBlock
// would break the single-consumer ordering rule.
func (g *LifecycleGuard) CheckDelivering() {
	if state := lifecycleState(g.state.Load()); state != stateDelivering {
		panic(fmt.Sprintf("tokenchain/bridge: DeliverTx called in state %s (expected Delivering)", state))
	}
}

// AcquireEndBlock transitions Delivering → EndingBlock. Panics if not
// in Delivering state.
func (g *LifecycleGuard) AcquireEndBlock() {
	g.seqMu.Lock()
	if !g.state.CompareAndSwap(uint32(stateDelivering), uint32(stateEndingBlock)) {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("tokenchain/bridge: EndBlock called in state %s (expected Delivering)",
			lifecycleState(g.state.Load())))
	}
}

// CompleteEndBlock transitions EndingBlock → Executed.
func (g *LifecycleGuard) CompleteEndBlock() {
	g.state.Store(uint32(stateExecuted))
	g.seqMu.Unlock()
}

// FailEndBlock transitions EndingBlock → Ready on error, allowing
// retry of the whole block cycle.
func (g *LifecycleGuard) FailEndBlock() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// AcquireCommit transitions Executed → Committing. Panics if not in
// Executed state.
func (g *LifecycleGuard) AcquireCommit() {
	g.seqMu.Lock()
	if state := lifecycleState(g.state.Load()); state != stateExecuted {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("tokenchain/bridge: Commit called in state %s (expected Executed)", state))
	}
	g.state.Store(uint32(stateCommitting))
}

// CompleteCommit transitions Committing → Ready.
func (g *LifecycleGuard) CompleteCommit() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// CheckConcurrent verifies that concurrent calls are allowed (any
// state after InitChain). Panics if InitChain has not completed.
func (g *LifecycleGuard) CheckConcurrent() {
	if !g.initDone.Load() {
		panic("tokenchain/bridge: concurrent call before InitChain completed")
	}
}

// IsReady returns true if the guard is in the Ready state.
func (g *LifecycleGuard) IsReady() bool {
	return lifecycleState(g.state.Load()) == stateReady
}
