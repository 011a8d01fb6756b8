package bridgegrpc_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	bridgegrpc "github.com/blockberries/tokenchain/bridge/grpc"
	"github.com/blockberries/tokenchain/bridge/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// stubApp is a minimal in-memory Application, just enough to exercise
// the gRPC transport's wiring independent of the real node dispatch
// logic (same shape bridge/local's tests use).
type stubApp struct {
	mu    sync.Mutex
	count uint64
}

func (a *stubApp) Info(ctx context.Context, req types.InfoRequest) (types.InfoResponse, error) {
	return types.InfoResponse{}, nil
}

func (a *stubApp) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	return types.InitChainResponse{}, nil
}

func (a *stubApp) BeginBlock(ctx context.Context, header types.BlockHeader) (types.BeginBlockResponse, error) {
	return types.BeginBlockResponse{}, nil
}

func (a *stubApp) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error) {
	return types.CheckTxResult{}, nil
}

func (a *stubApp) DeliverTx(ctx context.Context, tx types.Tx) (types.DeliverTxResult, error) {
	a.mu.Lock()
	a.count += uint64(len(tx))
	a.mu.Unlock()
	return types.DeliverTxResult{}, nil
}

func (a *stubApp) EndBlock(ctx context.Context, height uint64) (types.EndBlockResponse, error) {
	return types.EndBlockResponse{}, nil
}

func (a *stubApp) Commit(ctx context.Context) (types.CommitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return types.CommitResult{AppHash: types.AppHash{byte(a.count)}}, nil
}

func (a *stubApp) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return types.StateQueryResult{Value: []byte{byte(a.count)}}, nil
}

// startServer starts a gRPC server on a random port and returns its
// address and a cleanup function.
func startServer(t *testing.T, app *stubApp) (string, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	gs := grpc.NewServer()
	bridgegrpc.NewServer(app).Register(gs)

	go func() {
		_ = gs.Serve(lis)
	}()

	return lis.Addr().String(), gs.GracefulStop
}

func dial(t *testing.T, addr string) *bridgegrpc.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := bridgegrpc.Dial(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return client
}

func TestFullBlockCycleOverGRPC(t *testing.T) {
	addr, cleanup := startServer(t, &stubApp{})
	defer cleanup()

	client := dial(t, addr)
	defer client.Close()

	ctx := context.Background()

	if _, err := client.InitChain(ctx, types.InitChainRequest{}); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if _, err := client.BeginBlock(ctx, types.BlockHeader{Height: 1}); err != nil {
		t.Fatalf("BeginBlock: %v", err)
	}

	result, err := client.DeliverTx(ctx, types.Tx("abc"))
	if err != nil {
		t.Fatalf("DeliverTx: %v", err)
	}
	if !result.OK() {
		t.Fatalf("tx failed: %s", result.Info)
	}

	if _, err := client.EndBlock(ctx, 1); err != nil {
		t.Fatalf("EndBlock: %v", err)
	}

	commit, err := client.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if commit.AppHash == (types.AppHash{}) {
		t.Fatal("expected non-zero app hash")
	}

	qr, err := client.Query(ctx, types.StateQuery{Path: "/count"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(qr.Value) == 0 {
		t.Fatal("expected non-empty query value")
	}
}

func TestCheckTxConcurrentOverGRPC(t *testing.T) {
	addr, cleanup := startServer(t, &stubApp{})
	defer cleanup()

	client := dial(t, addr)
	defer client.Close()

	if _, err := client.InitChain(context.Background(), types.InitChainRequest{}); err != nil {
		t.Fatalf("InitChain: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, err := client.CheckTx(context.Background(), types.Tx("x"), types.MempoolFirstSeen)
			if err != nil {
				t.Errorf("CheckTx error: %v", err)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
