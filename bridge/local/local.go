// Package local provides a zero-copy, in-process bridge connection.
//
// For tokenchaind compiled into the same binary as the consensus
// engine, this adapter wraps the Application with lifecycle state
// machine enforcement, with no serialization overhead.
package local

import (
	"context"

	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/server"
	"github.com/blockberries/tokenchain/bridge/types"
)

var _ bridge.Connection = (*Connection)(nil)

// Connection wraps a local Application with lifecycle enforcement.
type Connection struct {
	srv *server.Server
}

// NewConnection creates an in-process bridge connection wrapping app.
func NewConnection(app bridge.Application) *Connection {
	return &Connection{srv: server.New(app)}
}

func (c *Connection) Info(ctx context.Context, req types.InfoRequest) (types.InfoResponse, error) {
	return c.srv.Info(ctx, req)
}

func (c *Connection) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	return c.srv.InitChain(ctx, req)
}

func (c *Connection) BeginBlock(ctx context.Context, header types.BlockHeader) (types.BeginBlockResponse, error) {
	return c.srv.BeginBlock(ctx, header)
}

func (c *Connection) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error) {
	return c.srv.CheckTx(ctx, tx, mctx)
}

func (c *Connection) DeliverTx(ctx context.Context, tx types.Tx) (types.DeliverTxResult, error) {
	return c.srv.DeliverTx(ctx, tx)
}

func (c *Connection) EndBlock(ctx context.Context, height uint64) (types.EndBlockResponse, error) {
	return c.srv.EndBlock(ctx, height)
}

func (c *Connection) Commit(ctx context.Context) (types.CommitResult, error) {
	return c.srv.Commit(ctx)
}

func (c *Connection) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	return c.srv.Query(ctx, req)
}

func (c *Connection) Close() error { return nil }

// Server returns the underlying server for advanced use cases.
func (c *Connection) Server() *server.Server {
	return c.srv
}
