package envelope

import (
	"sync"
	"time"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codeerr"
)

// DefaultReplayWindow is the default envelope acceptance window:
// accepted at now-300s, rejected at now-301s.
const DefaultReplayWindow = 300 * time.Second

type replayKey struct {
	from  address.Address
	nonce string
}

// ReplayGuard tracks which (from, nonce) pairs have been seen within
// the replay window, so CheckReplay can reject duplicates. Each
// pipeline (mempool, committed) owns its own instance.
type ReplayGuard struct {
	window time.Duration

	mu   sync.Mutex
	seen map[replayKey]time.Time
}

// NewReplayGuard builds a guard with the given acceptance window.
func NewReplayGuard(window time.Duration) *ReplayGuard {
	return &ReplayGuard{window: window, seen: make(map[replayKey]time.Time)}
}

// CheckReplay validates req's timestamp against now and records its
// (from, nonce) pair if it is new. now is always the caller's clock —
// wall time for check-tx's mempool guard, block-header time for
// deliver-tx's committed guard; deliver never reads the wall clock.
func (g *ReplayGuard) CheckReplay(req Request, now time.Time) error {
	ts := time.Unix(req.Timestamp, 0)
	// Timestamps carry whole seconds, so the window is measured against
	// now truncated to the second.
	nowSec := time.Unix(now.Unix(), 0)
	if nowSec.Sub(ts) > g.window || ts.Sub(nowSec) > g.window {
		return codeerr.TimestampOutOfRange()
	}

	key := replayKey{from: req.From, nonce: string(req.Nonce)}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.purge(now)
	if _, dup := g.seen[key]; dup {
		return codeerr.DuplicateMessage()
	}
	g.seen[key] = ts
	return nil
}

// purge drops entries older than the window. Callers hold g.mu.
func (g *ReplayGuard) purge(now time.Time) {
	for k, ts := range g.seen {
		if now.Sub(ts) > g.window {
			delete(g.seen, k)
		}
	}
}

// Size reports how many (from, nonce) pairs are currently tracked —
// used by tests to observe purge behavior.
func (g *ReplayGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
