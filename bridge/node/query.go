package node

import (
	"context"
	"fmt"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/bridge/types"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/merkle"
)

// tokenBalance pairs a symbol's text form with a holder's balance
// under it, mirroring ledger.Balance's own map[string]*big.Int shape.
type tokenBalance struct {
	Symbol string `cramberry:"1"`
	Amount []byte `cramberry:"2"`
}

type balanceResult struct {
	Balances []tokenBalance `cramberry:"1"`
}

type tokenList struct {
	Tokens [][]byte `cramberry:"1"` // each entry is a ledger.Token.Encode() blob
}

// Query answers a read-only endpoint against a fresh snapshot of the
// committed state, never the pending buffer. Safe for concurrent use,
// including concurrent with DeliverTx: it never touches the store's
// pending-buffer lock.
func (n *Node) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	sn, err := n.store.Snapshot()
	if err != nil {
		return types.StateQueryResult{}, fmt.Errorf("node: open query snapshot: %w", err)
	}
	defer sn.Release()

	switch req.Path {
	case "/ledger/info":
		return queryLedgerInfo(sn)
	case "/ledger/balance":
		return queryLedgerBalance(sn, req.Data)
	case "/tokens":
		return queryToken(sn, req.Data)
	case "/accounts":
		return queryAccount(sn, req.Data)
	case "/kvstore":
		return queryKvStore(sn, req.Data)
	case "/multisig":
		return queryMultisig(sn, req.Data)
	default:
		return notFoundResult(codeerr.UnknownEndpoint(string(req.Path))), nil
	}
}

func decodeQueryAddress(data []byte) (address.Address, error) {
	var a address.Address
	if err := codec.Unmarshal(data, &a); err != nil {
		return address.Address{}, codeerr.DecodeError(err.Error())
	}
	return a, nil
}

func queryLedgerInfo(sn *merkle.Snapshot) (types.StateQueryResult, error) {
	entries := sn.Iterate([]byte("/tokens/"))
	var list tokenList
	for _, e := range entries {
		list.Tokens = append(list.Tokens, e.Value)
	}
	data, err := codec.Marshal(list)
	if err != nil {
		return types.StateQueryResult{}, fmt.Errorf("node: encode ledger info: %w", err)
	}
	return types.StateQueryResult{Value: data}, nil
}

func queryLedgerBalance(sn *merkle.Snapshot, data []byte) (types.StateQueryResult, error) {
	holder, err := decodeQueryAddress(data)
	if err != nil {
		return notFoundResult(err), nil
	}
	prefix := []byte(fmt.Sprintf("/balances/%s/", holder))
	entries := sn.Iterate(prefix)
	var result balanceResult
	for _, e := range entries {
		result.Balances = append(result.Balances, tokenBalance{
			Symbol: string(e.Key[len(prefix):]),
			Amount: e.Value,
		})
	}
	out, err := codec.Marshal(result)
	if err != nil {
		return types.StateQueryResult{}, fmt.Errorf("node: encode balance result: %w", err)
	}
	return types.StateQueryResult{Value: out}, nil
}

func queryToken(sn *merkle.Snapshot, data []byte) (types.StateQueryResult, error) {
	symbol, err := decodeQueryAddress(data)
	if err != nil {
		return notFoundResult(err), nil
	}
	raw, ok, err := sn.Get([]byte(fmt.Sprintf("/tokens/%s", symbol)))
	if err != nil {
		return types.StateQueryResult{}, err
	}
	if !ok {
		return notFoundResult(codeerr.UnknownSymbol(symbol.String())), nil
	}
	return types.StateQueryResult{Key: data, Value: raw}, nil
}

func queryAccount(sn *merkle.Snapshot, data []byte) (types.StateQueryResult, error) {
	addr, err := decodeQueryAddress(data)
	if err != nil {
		return notFoundResult(err), nil
	}
	raw, ok, err := sn.Get([]byte(fmt.Sprintf("/accounts/%s", addr)))
	if err != nil {
		return types.StateQueryResult{}, err
	}
	if !ok {
		return notFoundResult(codeerr.KeyNotFound()), nil
	}
	return types.StateQueryResult{Key: data, Value: raw}, nil
}

func queryKvStore(sn *merkle.Snapshot, key []byte) (types.StateQueryResult, error) {
	raw, ok, err := sn.Get([]byte(fmt.Sprintf("/kvstore/%x", key)))
	if err != nil {
		return types.StateQueryResult{}, err
	}
	if !ok {
		return notFoundResult(codeerr.KeyNotFound()), nil
	}
	// raw is a kvstore.Entry blob; the caller decodes it directly since
	// Entry's fields are already cramberry-tagged and exported.
	return types.StateQueryResult{Key: key, Value: raw}, nil
}

func queryMultisig(sn *merkle.Snapshot, token []byte) (types.StateQueryResult, error) {
	raw, ok, err := sn.Get([]byte(fmt.Sprintf("/multisig/%x", token)))
	if err != nil {
		return types.StateQueryResult{}, err
	}
	if !ok {
		return notFoundResult(codeerr.TransactionNotFound()), nil
	}
	return types.StateQueryResult{Key: token, Value: raw}, nil
}

func notFoundResult(err error) types.StateQueryResult {
	code := uint32(1)
	if ce, ok := err.(*codeerr.Error); ok {
		code = uint32(ce.Code)
		if code == 0 {
			code = 1
		}
	}
	return types.StateQueryResult{Code: code, Info: err.Error()}
}
