package bridgegrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/tokenchain/bridge/types"

	"google.golang.org/grpc"
)

const serviceName = "github.com/blockberries/tokenchain.v1.BridgeService"

// ServiceServer is the server-side interface for the bridge gRPC
// service: one unary RPC per bridge.Application method, exposed as a
// socket transport over a configurable port.
type ServiceServer interface {
	Info(context.Context, *types.InfoRequest) (*types.InfoResponse, error)
	InitChain(context.Context, *types.InitChainRequest) (*types.InitChainResponse, error)
	BeginBlock(context.Context, *types.BlockHeader) (*types.BeginBlockResponse, error)
	CheckTx(context.Context, *CheckTxRequest) (*types.CheckTxResult, error)
	DeliverTx(context.Context, *DeliverTxRequest) (*types.DeliverTxResult, error)
	EndBlock(context.Context, *EndBlockRequest) (*types.EndBlockResponse, error)
	Commit(context.Context, *CommitRequest) (*types.CommitResult, error)
	Query(context.Context, *types.StateQuery) (*types.StateQueryResult, error)
}

// RegisterServiceServer registers srv on a gRPC server.
func RegisterServiceServer(s *grpc.Server, srv ServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// --- Handler functions ---

func handlerInfo(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.InfoRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).Info(ctx, req)
}

func handlerInitChain(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.InitChainRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).InitChain(ctx, req)
}

func handlerBeginBlock(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.BlockHeader)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).BeginBlock(ctx, req)
}

func handlerCheckTx(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(CheckTxRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).CheckTx(ctx, req)
}

func handlerDeliverTx(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(DeliverTxRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).DeliverTx(ctx, req)
}

func handlerEndBlock(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(EndBlockRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).EndBlock(ctx, req)
}

func handlerCommit(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(CommitRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).Commit(ctx, req)
}

func handlerQuery(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.StateQuery)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ServiceServer).Query(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor for the bridge.
// No .proto file or generated stub is involved; cramberry carries the
// wire format end to end.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Info", Handler: handlerInfo},
		{MethodName: "InitChain", Handler: handlerInitChain},
		{MethodName: "BeginBlock", Handler: handlerBeginBlock},
		{MethodName: "CheckTx", Handler: handlerCheckTx},
		{MethodName: "DeliverTx", Handler: handlerDeliverTx},
		{MethodName: "EndBlock", Handler: handlerEndBlock},
		{MethodName: "Commit", Handler: handlerCommit},
		{MethodName: "Query", Handler: handlerQuery},
	},
	Metadata: "github.com/blockberries/tokenchain/v1/bridge.cram",
}
