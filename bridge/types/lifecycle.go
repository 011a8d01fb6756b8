package types

// InfoRequest carries nothing; the engine calls Info on every startup
// to learn what the application last committed.
type InfoRequest struct{}

// InfoResponse reports the application's last committed height and
// app hash so the engine can detect divergence. Info and InitChain are
// split into separate calls rather than one merged handshake.
type InfoResponse struct {
	LastBlockHeight  uint64   `cramberry:"1"`
	LastBlockAppHash *AppHash `cramberry:"2"`
}

// InitChainRequest carries the genesis document, populated only on a
// fresh chain (LastBlockHeight == 0 at Info time).
type InitChainRequest struct {
	Genesis GenesisDoc `cramberry:"1"`
}

// InitChainResponse reports the app hash after seeding genesis state.
type InitChainResponse struct {
	AppHash AppHash `cramberry:"1"`
}

// BlockHeader carries the fields a block's lifecycle needs: height,
// time, and the proposer, none of which may be read from the wall
// clock inside DeliverTx.
type BlockHeader struct {
	Height   uint64           `cramberry:"1"`
	Time     Timestamp        `cramberry:"2"`
	Proposer ValidatorAddress `cramberry:"3"`
	LastHash Hash             `cramberry:"4"`
}

// BeginBlockResponse is a no-op-today hook's reply. Begin-block
// advances active migrations and purges expired multisig transactions;
// it returns nothing observers need.
type BeginBlockResponse struct{}

// MempoolContext tells CheckTx whether a transaction is being seen
// for the first time or re-validated after state changed.
type MempoolContext uint8

const (
	MempoolFirstSeen    MempoolContext = 1
	MempoolRevalidation MempoolContext = 2
)

// CheckTxResult is the mempool gate's verdict. Must not reflect any
// committed-state mutation.
type CheckTxResult struct {
	Code uint32 `cramberry:"1"`
	Info string `cramberry:"2"`
}

// Accepted reports whether the transaction was admitted to the
// mempool.
func (v CheckTxResult) Accepted() bool { return v.Code == 0 }

// DeliverTxResult is one transaction's execution outcome.
type DeliverTxResult struct {
	Code   uint32  `cramberry:"1"`
	Info   string  `cramberry:"2"`
	Data   []byte  `cramberry:"3"`
	Events []Event `cramberry:"4"`
}

// OK reports whether the transaction executed successfully.
func (t DeliverTxResult) OK() bool { return t.Code == 0 }

// EndBlockResponse is end-block's reply, a no-op hook reserved for
// future use, so it carries nothing today.
type EndBlockResponse struct{}

// CommitResult is returned after the application persists state to
// disk; AppHash becomes the block's app-hash.
type CommitResult struct {
	AppHash      AppHash `cramberry:"1"`
	RetainHeight uint64  `cramberry:"2"`
}

// StateQuery is a request to read application state from the
// committed snapshot, never the pending buffer.
type StateQuery struct {
	Path   QueryPath `cramberry:"1"`
	Data   []byte    `cramberry:"2"`
	Height *uint64   `cramberry:"3"`
	Prove  bool      `cramberry:"4"`
}

// StateQueryResult is the application's response to a state query.
type StateQueryResult struct {
	Code   uint32 `cramberry:"1"`
	Key    []byte `cramberry:"2"`
	Value  []byte `cramberry:"3"`
	Height uint64 `cramberry:"4"`
	Info   string `cramberry:"5"`
}
