package bridgegrpc

import "github.com/blockberries/tokenchain/bridge/types"

// Transport-specific wrapper types for RPC methods whose Application
// signatures take more than one argument. cramberry serializes each
// as a single struct, bridging multi-arg methods onto single-message
// RPCs.

// CheckTxRequest wraps the parameters for Application.CheckTx.
type CheckTxRequest struct {
	Tx      types.Tx               `cramberry:"1"`
	Context types.MempoolContext `cramberry:"2"`
}

// DeliverTxRequest wraps the parameter for Application.DeliverTx.
type DeliverTxRequest struct {
	Tx types.Tx `cramberry:"1"`
}

// EndBlockRequest wraps the parameter for Application.EndBlock.
type EndBlockRequest struct {
	Height uint64 `cramberry:"1"`
}

// CommitRequest is the (empty) request for Application.Commit.
type CommitRequest struct{}
