package bridgetest

import (
	"context"
	"sync"
	"testing"

	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/types"
)

// RunComplianceSuite runs a standard compliance test suite against a
// bridge.Application to verify correct lifecycle behavior. factory
// must return a fresh application instance for each test.
func RunComplianceSuite(t *testing.T, factory func() bridge.Application) {
	t.Helper()

	t.Run("init_chain_returns_app_hash", func(t *testing.T) {
		app := factory()
		h := NewHarness(t, app)
		resp := h.InitChain(types.InitChainRequest{})
		if resp.AppHash == (types.AppHash{}) {
			t.Error("InitChain should return a non-zero AppHash")
		}
	})

	t.Run("begin_deliver_commit_cycle", func(t *testing.T) {
		app := factory()
		h := NewHarness(t, app)
		h.InitChain(types.InitChainRequest{})

		for i := uint64(1); i <= 5; i++ {
			commit, _ := h.RunBlock(MakeHeader(i))
			if commit.AppHash == (types.AppHash{}) {
				t.Errorf("height %d: zero app hash", i)
			}
		}
	})

	t.Run("empty_blocks_deterministic", func(t *testing.T) {
		app1 := factory()
		h1 := NewHarness(t, app1)
		h1.InitChain(types.InitChainRequest{})

		app2 := factory()
		h2 := NewHarness(t, app2)
		h2.InitChain(types.InitChainRequest{})

		for i := uint64(1); i <= 3; i++ {
			c1, _ := h1.RunBlock(MakeHeader(i))
			c2, _ := h2.RunBlock(MakeHeader(i))
			if c1.AppHash != c2.AppHash {
				t.Errorf("height %d: non-deterministic: %x != %x", i, c1.AppHash, c2.AppHash)
			}
		}
	})

	t.Run("concurrent_checktx_after_init", func(t *testing.T) {
		app := factory()
		h := NewHarness(t, app)
		h.InitChain(types.InitChainRequest{})

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.Server().CheckTx(context.Background(), types.Tx{0x01}, types.MempoolFirstSeen)
				if err != nil {
					t.Errorf("concurrent CheckTx failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("concurrent_query_after_init", func(t *testing.T) {
		app := factory()
		h := NewHarness(t, app)
		h.InitChain(types.InitChainRequest{})

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.Server().Query(context.Background(), types.StateQuery{Path: "/test"})
				if err != nil {
					t.Errorf("concurrent Query failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("query_after_commits_succeeds", func(t *testing.T) {
		app := factory()
		h := NewHarness(t, app)
		h.InitChain(types.InitChainRequest{})

		h.RunBlock(MakeHeader(1))
		h.RunBlock(MakeHeader(2))

		result := h.Query("/test", nil)
		_ = result // apps without the path respond with a not-found code; height is app-defined
	})

	t.Run("lifecycle_guard_rejects_out_of_order_commit", func(t *testing.T) {
		app := factory()
		h := NewHarness(t, app)
		h.InitChain(types.InitChainRequest{})

		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic committing before BeginBlock")
			}
		}()
		h.Commit()
	})
}
