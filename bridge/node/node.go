// Package node implements tokenchain's concrete bridge application: it
// verifies and dispatches envelope requests against the ledger,
// account, multisig, and kvstore modules, and answers state queries
// from a committed snapshot.
package node

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/blockberries/tokenchain/account"
	"github.com/blockberries/tokenchain/account/multisig"
	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/types"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/envelope"
	"github.com/blockberries/tokenchain/kvstore"
	"github.com/blockberries/tokenchain/ledger"
	"github.com/blockberries/tokenchain/merkle"
	"github.com/blockberries/tokenchain/migrations"
)

var (
	_ bridge.Application = (*Node)(nil)
	_ multisig.Executor  = (*Node)(nil)
)

const (
	genesisKey    = "/meta/genesis"
	chainStateKey = "/meta/chain-state"
)

type chainState struct {
	Height uint64 `cramberry:"1"`
}

// Node wires the ledger, account, multisig, and kvstore modules over a
// shared merkle.Store, dispatching mutating endpoints through
// DeliverTx and answering reads from a committed snapshot in Query.
// It implements both bridge.Application and multisig.Executor: the
// same closed endpoint registry serves an ordinary signed request and
// a multisig transaction's deferred inner request.
type Node struct {
	store      *merkle.Store
	activation *migrations.ActivationSet

	ledger   *ledger.Ledger
	accounts *account.Store
	multisig *multisig.Store
	kv       *kvstore.Store

	mempoolReplay   *envelope.ReplayGuard
	committedReplay *envelope.ReplayGuard

	mu              sync.Mutex
	currentHeight   uint64
	currentTime     time.Time
	currentProposer types.ValidatorAddress
}

// New builds a Node over store, gated by activation. If store already
// holds a genesis document (a restart against existing state), the
// module handles are wired immediately; otherwise they remain nil
// until InitChain runs.
func New(store *merkle.Store, activation *migrations.ActivationSet) (*Node, error) {
	n := &Node{
		store:           store,
		activation:      activation,
		mempoolReplay:   envelope.NewReplayGuard(envelope.DefaultReplayWindow),
		committedReplay: envelope.NewReplayGuard(envelope.DefaultReplayWindow),
	}
	raw, ok, err := store.Get([]byte(genesisKey))
	if err != nil {
		return nil, fmt.Errorf("node: load genesis record: %w", err)
	}
	if ok {
		var gen types.GenesisDoc
		if err := codec.Unmarshal(raw, &gen); err != nil {
			return nil, fmt.Errorf("node: decode genesis record: %w", err)
		}
		n.wire(gen)
	}
	return n, nil
}

func (n *Node) wire(gen types.GenesisDoc) {
	n.accounts = account.New(n.store, gen.TokenAuthority)
	n.ledger = ledger.New(n.store, n.accounts, gen.TokenAuthority, gen.AuthorityImplicit)
	n.multisig = multisig.New(n.store, n.accounts)
	n.kv = kvstore.New(n.store, n.accounts)
}

func (n *Node) loadHeight() (uint64, error) {
	raw, ok, err := n.store.Get([]byte(chainStateKey))
	if err != nil || !ok {
		return 0, err
	}
	var cs chainState
	if err := codec.Unmarshal(raw, &cs); err != nil {
		return 0, err
	}
	return cs.Height, nil
}

// Info reports the application's last committed height and app hash,
// completing one half of the info/init-chain handshake.
func (n *Node) Info(ctx context.Context, req types.InfoRequest) (types.InfoResponse, error) {
	height, err := n.loadHeight()
	if err != nil {
		return types.InfoResponse{}, codeerr.StorageCorruption(err.Error())
	}
	if height == 0 {
		return types.InfoResponse{}, nil
	}
	root, err := n.store.Root()
	if err != nil {
		return types.InfoResponse{}, codeerr.StorageCorruption(err.Error())
	}
	hash := types.AppHash(root)
	return types.InfoResponse{LastBlockHeight: height, LastBlockAppHash: &hash}, nil
}

// InitChain seeds the Merkle store from the genesis document: the
// token authority, and every genesis-declared token with its opening
// distribution.
func (n *Node) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	gen := req.Genesis
	n.wire(gen)

	genData, err := codec.Marshal(gen)
	if err != nil {
		return types.InitChainResponse{}, fmt.Errorf("node: encode genesis record: %w", err)
	}
	n.store.Put([]byte(genesisKey), genData)

	for _, gt := range gen.Tokens {
		t := ledger.Token{
			Symbol:            gt.Symbol,
			Ticker:            gt.Ticker,
			Name:              gt.Name,
			Decimals:          gt.Decimals,
			Owner:             gen.TokenAuthority,
			TotalSupply:       big.NewInt(0),
			CirculatingSupply: big.NewInt(0),
			MaxSupply:         bigPtrFromBytes(gt.MaxSupply),
		}
		dist := make([]ledger.Distribution, 0, len(gt.Distributions))
		for _, d := range gt.Distributions {
			dist = append(dist, ledger.Distribution{Holder: d.Holder, Amount: bigFromBytes(d.Amount)})
		}
		if err := n.ledger.SeedToken(t, dist); err != nil {
			return types.InitChainResponse{}, fmt.Errorf("node: seed genesis token %s: %w", gt.Symbol, err)
		}
	}

	csData, err := codec.Marshal(chainState{Height: 0})
	if err != nil {
		return types.InitChainResponse{}, fmt.Errorf("node: encode chain state: %w", err)
	}
	n.store.Put([]byte(chainStateKey), csData)

	root, err := n.store.Commit()
	if err != nil {
		return types.InitChainResponse{}, &bridge.HaltError{Reason: "commit genesis state", Cause: err}
	}
	if gen.ExpectedRoot != nil && types.Hash(root) != *gen.ExpectedRoot {
		return types.InitChainResponse{}, codeerr.StorageCorruption("genesis root does not match the expected root")
	}
	return types.InitChainResponse{AppHash: types.AppHash(root)}, nil
}

// BeginBlock records the block header, advances migrations that just
// activated, and purges multisig transactions that expired as of this
// block's time. It never reads the wall clock.
func (n *Node) BeginBlock(ctx context.Context, header types.BlockHeader) (types.BeginBlockResponse, error) {
	blockTime := time.Unix(header.Time.Seconds, int64(header.Time.Nanos))

	n.mu.Lock()
	n.currentHeight = header.Height
	n.currentTime = blockTime
	n.currentProposer = header.Proposer
	n.mu.Unlock()

	if err := n.activation.RunInitializers(header.Height, n.store); err != nil {
		return types.BeginBlockResponse{}, &bridge.HaltError{Reason: "run migration initializers", Cause: err}
	}
	if n.multisig != nil {
		if err := n.multisig.ExpirePending(blockTime.Unix()); err != nil {
			return types.BeginBlockResponse{}, fmt.Errorf("node: expire pending multisig transactions: %w", err)
		}
	}
	return types.BeginBlockResponse{}, nil
}

// CheckTx gate-checks a transaction for mempool admission: it must
// decode, name a known and currently-enabled mutating endpoint, carry
// a valid signature covering its From address, and pass the mempool's
// wall-clock replay guard. It never mutates committed state.
func (n *Node) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.CheckTxResult, error) {
	env, req, checkErr := decodeEnvelope(tx)
	if checkErr != nil {
		return rejected(checkErr), nil
	}

	n.mu.Lock()
	height := n.currentHeight
	n.mu.Unlock()

	def, ok := registry[req.Endpoint]
	if !ok || !def.mutating || !n.activation.EndpointEnabled(height, req.Endpoint) {
		return rejected(codeerr.UnknownEndpoint(req.Endpoint)), nil
	}
	if _, checkErr := n.verifiedSigner(env, req); checkErr != nil {
		return rejected(checkErr), nil
	}
	if err := n.mempoolReplay.CheckReplay(req, time.Now()); err != nil {
		return rejected(err), nil
	}
	return types.CheckTxResult{}, nil
}

// DeliverTx decodes, verifies, replay-checks, and dispatches one
// transaction against the pending buffer. A failing transaction is
// checkpointed and rolled back without discarding writes staged by
// transactions already delivered earlier in the same block: the buffer
// ends either fully extended or fully rolled back, never in between.
func (n *Node) DeliverTx(ctx context.Context, tx types.Tx) (types.DeliverTxResult, error) {
	env, req, err := decodeEnvelope(tx)
	if err != nil {
		return errResult(err), nil
	}

	n.mu.Lock()
	height := n.currentHeight
	blockTime := n.currentTime
	n.mu.Unlock()

	def, ok := registry[req.Endpoint]
	if !ok || !def.mutating || !n.activation.EndpointEnabled(height, req.Endpoint) {
		return errResult(codeerr.UnknownEndpoint(req.Endpoint)), nil
	}
	signer, err := n.verifiedSigner(env, req)
	if err != nil {
		return errResult(err), nil
	}
	if err := n.committedReplay.CheckReplay(req, blockTime); err != nil {
		return errResult(err), nil
	}

	checkpoint := n.store.Checkpoint()
	data, err := def.handler(n, signer, req.Payload)
	if err != nil {
		n.store.RestoreTo(checkpoint)
		if halt, ok := err.(*bridge.HaltError); ok {
			return types.DeliverTxResult{}, halt
		}
		return errResult(err), nil
	}
	return types.DeliverTxResult{Data: data}, nil
}

// EndBlock is a no-op hook reserved for future use.
func (n *Node) EndBlock(ctx context.Context, height uint64) (types.EndBlockResponse, error) {
	return types.EndBlockResponse{}, nil
}

// Commit flushes the pending buffer, embedding the block's height in
// the same atomic write so the resulting root reflects it, and returns
// the new root as the block's app hash.
func (n *Node) Commit(ctx context.Context) (types.CommitResult, error) {
	n.mu.Lock()
	height := n.currentHeight
	n.mu.Unlock()

	csData, err := codec.Marshal(chainState{Height: height})
	if err != nil {
		return types.CommitResult{}, fmt.Errorf("node: encode chain state: %w", err)
	}
	n.store.Put([]byte(chainStateKey), csData)

	root, err := n.store.Commit()
	if err != nil {
		return types.CommitResult{}, &bridge.HaltError{Reason: "commit block state", Cause: err}
	}
	return types.CommitResult{AppHash: types.AppHash(root)}, nil
}

// Execute implements multisig.Executor: it runs innerRequest's
// endpoint as if onBehalf itself had signed it, through the same
// registry DeliverTx uses, against the pending buffer already open for
// the delivering transaction that triggered this execution.
func (n *Node) Execute(onBehalf address.Address, innerRequest []byte) error {
	var req envelope.Request
	if err := codec.Unmarshal(innerRequest, &req); err != nil {
		return codeerr.DecodeError(err.Error())
	}

	n.mu.Lock()
	height := n.currentHeight
	n.mu.Unlock()

	def, ok := registry[req.Endpoint]
	if !ok || !def.mutating || !n.activation.EndpointEnabled(height, req.Endpoint) {
		return codeerr.UnknownEndpoint(req.Endpoint)
	}
	_, err := def.handler(n, onBehalf, req.Payload)
	return err
}

func decodeEnvelope(tx types.Tx) (envelope.SignedEnvelope, envelope.Request, error) {
	var env envelope.SignedEnvelope
	if err := codec.Unmarshal(tx, &env); err != nil {
		return envelope.SignedEnvelope{}, envelope.Request{}, codeerr.DecodeError(err.Error())
	}
	req, err := env.DecodeRequest()
	if err != nil {
		return envelope.SignedEnvelope{}, envelope.Request{}, codeerr.DecodeError(err.Error())
	}
	return env, req, nil
}

// verifiedSigner enforces the signature rule for a mutating endpoint:
// env must carry at least one signature, and one of them must cover
// req.From.
func (n *Node) verifiedSigner(env envelope.SignedEnvelope, req envelope.Request) (address.Address, error) {
	if env.IsAnonymous() {
		return address.Address{}, codeerr.CannotBeAnonymous()
	}
	verified, err := envelope.Verify(env)
	if err != nil {
		return address.Address{}, codeerr.InvalidSignature()
	}
	if !verified[req.From] {
		return address.Address{}, codeerr.InvalidSignature()
	}
	return req.From, nil
}

func rejected(err error) types.CheckTxResult {
	return types.CheckTxResult{Code: 1, Info: err.Error()}
}

func errResult(err error) types.DeliverTxResult {
	code := uint32(1)
	if ce, ok := err.(*codeerr.Error); ok {
		code = uint32(ce.Code)
		if code == 0 {
			code = 1
		}
	}
	return types.DeliverTxResult{Code: code, Info: err.Error()}
}

func bigFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func bigPtrFromBytes(b []byte) *big.Int {
	if len(b) == 0 {
		return nil
	}
	return new(big.Int).SetBytes(b)
}
