package bridgegrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/types"

	"google.golang.org/grpc"
)

// Compile-time interface check.
var _ bridge.Connection = (*Client)(nil)

// Client implements bridge.Connection for a remote Application over
// gRPC using cramberry serialization. No protobuf types or conversion
// layer — domain types are serialized directly.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote bridge service at addr.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge grpc client: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) Info(ctx context.Context, req types.InfoRequest) (types.InfoResponse, error) {
	resp := new(types.InfoResponse)
	if err := c.cc.Invoke(ctx, fullMethod("Info"), &req, resp); err != nil {
		return types.InfoResponse{}, err
	}
	return *resp, nil
}

func (c *Client) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	resp := new(types.InitChainResponse)
	if err := c.cc.Invoke(ctx, fullMethod("InitChain"), &req, resp); err != nil {
		return types.InitChainResponse{}, err
	}
	return *resp, nil
}

func (c *Client) BeginBlock(ctx context.Context, header types.BlockHeader) (types.BeginBlockResponse, error) {
	resp := new(types.BeginBlockResponse)
	if err := c.cc.Invoke(ctx, fullMethod("BeginBlock"), &header, resp); err != nil {
		return types.BeginBlockResponse{}, err
	}
	return *resp, nil
}

func (c *Client) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error) {
	req := &CheckTxRequest{Tx: tx, Context: mctx}
	resp := new(types.CheckTxResult)
	if err := c.cc.Invoke(ctx, fullMethod("CheckTx"), req, resp); err != nil {
		return types.CheckTxResult{}, err
	}
	return *resp, nil
}

func (c *Client) DeliverTx(ctx context.Context, tx types.Tx) (types.DeliverTxResult, error) {
	req := &DeliverTxRequest{Tx: tx}
	resp := new(types.DeliverTxResult)
	if err := c.cc.Invoke(ctx, fullMethod("DeliverTx"), req, resp); err != nil {
		return types.DeliverTxResult{}, err
	}
	return *resp, nil
}

func (c *Client) EndBlock(ctx context.Context, height uint64) (types.EndBlockResponse, error) {
	req := &EndBlockRequest{Height: height}
	resp := new(types.EndBlockResponse)
	if err := c.cc.Invoke(ctx, fullMethod("EndBlock"), req, resp); err != nil {
		return types.EndBlockResponse{}, err
	}
	return *resp, nil
}

func (c *Client) Commit(ctx context.Context) (types.CommitResult, error) {
	req := &CommitRequest{}
	resp := new(types.CommitResult)
	if err := c.cc.Invoke(ctx, fullMethod("Commit"), req, resp); err != nil {
		return types.CommitResult{}, err
	}
	return *resp, nil
}

func (c *Client) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	resp := new(types.StateQueryResult)
	if err := c.cc.Invoke(ctx, fullMethod("Query"), &req, resp); err != nil {
		return types.StateQueryResult{}, err
	}
	return *resp, nil
}
