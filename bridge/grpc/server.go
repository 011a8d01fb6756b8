package bridgegrpc

import (
	"context"
	"net"

	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/server"
	"github.com/blockberries/tokenchain/bridge/types"

	"google.golang.org/grpc"
)

// Compile-time interface check.
var _ ServiceServer = (*Server)(nil)

// Server exposes a bridge.Application over gRPC. It wraps the same
// bridge/server.Server lifecycle guard the in-process bridge/local
// adapter uses, so a remote consensus engine gets the identical
// call-order enforcement a same-process one does.
type Server struct {
	srv *server.Server
}

// NewServer wraps app for gRPC service.
func NewServer(app bridge.Application) *Server {
	return &Server{srv: server.New(app)}
}

// Register adds the bridge service to a gRPC server.
func (s *Server) Register(gs *grpc.Server) {
	RegisterServiceServer(gs, s)
}

// Serve starts a gRPC server on lis and blocks until it stops. addr is
// the caller's concern — lis is typically the result of net.Listen on
// the configured port.
func (s *Server) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

func (s *Server) Info(ctx context.Context, req *types.InfoRequest) (*types.InfoResponse, error) {
	resp, err := s.srv.Info(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) InitChain(ctx context.Context, req *types.InitChainRequest) (*types.InitChainResponse, error) {
	resp, err := s.srv.InitChain(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) BeginBlock(ctx context.Context, header *types.BlockHeader) (*types.BeginBlockResponse, error) {
	resp, err := s.srv.BeginBlock(ctx, *header)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) CheckTx(ctx context.Context, req *CheckTxRequest) (*types.CheckTxResult, error) {
	result, err := s.srv.CheckTx(ctx, req.Tx, req.Context)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Server) DeliverTx(ctx context.Context, req *DeliverTxRequest) (*types.DeliverTxResult, error) {
	result, err := s.srv.DeliverTx(ctx, req.Tx)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Server) EndBlock(ctx context.Context, req *EndBlockRequest) (*types.EndBlockResponse, error) {
	resp, err := s.srv.EndBlock(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Server) Commit(ctx context.Context, _ *CommitRequest) (*types.CommitResult, error) {
	result, err := s.srv.Commit(ctx)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Server) Query(ctx context.Context, req *types.StateQuery) (*types.StateQueryResult, error) {
	result, err := s.srv.Query(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
