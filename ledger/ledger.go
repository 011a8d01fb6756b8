// Package ledger implements tokenchain's balance and token-metadata
// state machine: ledger.info/balance/send and the tokens.* family.
// State lives entirely in a merkle.Store under the /balances,
// /tokens, and /meta key prefixes.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/merkle"
)

// Roles tokens.* endpoints require. account owns the actual role set;
// ledger only needs the names to ask an Authorizer about them.
const (
	RoleCreate        = "canTokensCreate"
	RoleUpdate        = "canTokensUpdate"
	RoleAddExtInfo    = "canTokensAddExtendedInfo"
	RoleRemoveExtInfo = "canTokensRemoveExtendedInfo"
	RoleMint          = "canTokensMint"
	RoleBurn          = "canTokensBurn"
	RoleTransact      = "canLedgerTransact"
)

// Authorizer resolves whether signer may act on behalf of onBehalf
// under the given role. It is implemented by the account package;
// ledger depends only on this narrow interface to avoid an import
// cycle.
type Authorizer interface {
	HasRole(onBehalf, signer address.Address, role string) bool
}

// Ledger is the ledger module's handle onto the committed state.
type Ledger struct {
	store     *merkle.Store
	authz     Authorizer
	authority address.Address // token-authority address, set at init-chain

	// authorityImplicit is true when the genesis document set
	// token_identity, granting the authority an implicit
	// canTokensCreate when acting for itself.
	authorityImplicit bool
}

// New builds a Ledger over store. authority is the token-authority
// address declared at init-chain; it owns the subresource counter
// tokens.create mints symbols from. authorityImplicit mirrors whether
// the genesis document set token_identity.
func New(store *merkle.Store, authz Authorizer, authority address.Address, authorityImplicit bool) *Ledger {
	return &Ledger{store: store, authz: authz, authority: authority, authorityImplicit: authorityImplicit}
}

func balanceKey(holder, symbol address.Address) []byte {
	return []byte(fmt.Sprintf("/balances/%s/%s", holder, symbol))
}

func tokenKey(symbol address.Address) []byte {
	return []byte(fmt.Sprintf("/tokens/%s", symbol))
}

func (l *Ledger) nextSubresourceKey() []byte {
	return []byte(fmt.Sprintf("/meta/next-subresource/%s", l.authority))
}

// effectiveSender resolves the authorization rule for on-behalf-of
// actions: the signer acts for itself unless onBehalf is
// non-anonymous, in which case signer must hold role on onBehalf.
func (l *Ledger) effectiveSender(onBehalf, signer address.Address, role string) (address.Address, error) {
	if onBehalf.IsAnonymous() {
		return signer, nil
	}
	if !l.authz.HasRole(onBehalf, signer, role) {
		return address.Address{}, errMissingPermission(role)
	}
	return onBehalf, nil
}

func (l *Ledger) balance(holder, symbol address.Address) (*big.Int, error) {
	raw, ok, err := l.store.Get(balanceKey(holder, symbol))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(raw), nil
}

func (l *Ledger) setBalance(holder, symbol address.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		l.store.Delete(balanceKey(holder, symbol))
		return
	}
	l.store.Put(balanceKey(holder, symbol), amount.Bytes())
}

func (l *Ledger) loadToken(symbol address.Address) (Token, error) {
	raw, ok, err := l.store.Get(tokenKey(symbol))
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, errUnknownSymbol(symbol.String())
	}
	return decodeToken(raw)
}

func (l *Ledger) saveToken(t Token) error {
	data, err := t.encode()
	if err != nil {
		return err
	}
	l.store.Put(tokenKey(t.Symbol), data)
	return nil
}

// Info returns every known token's metadata.
func (l *Ledger) Info() ([]Token, error) {
	entries, err := l.store.Iterate([]byte("/tokens/"))
	if err != nil {
		return nil, err
	}
	out := make([]Token, 0, len(entries))
	for _, e := range entries {
		t, err := decodeToken(e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Balance returns holder's balance for each requested symbol, or for
// every symbol it holds a token row for if symbols is empty.
func (l *Ledger) Balance(holder address.Address, symbols []address.Address) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int)
	if len(symbols) > 0 {
		for _, sym := range symbols {
			if _, err := l.loadToken(sym); err != nil {
				return nil, err
			}
			bal, err := l.balance(holder, sym)
			if err != nil {
				return nil, err
			}
			out[sym.String()] = bal
		}
		return out, nil
	}

	prefix := []byte(fmt.Sprintf("/balances/%s/", holder))
	entries, err := l.store.Iterate(prefix)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		symText := string(e.Key[len(prefix):])
		out[symText] = new(big.Int).SetBytes(e.Value)
	}
	return out, nil
}

// SendRequest is ledger.send's argument set. The debited account (the
// wire protocol's "from") is the resolved effective sender: Signer
// itself, or OnBehalf when Signer holds canLedgerTransact on it.
type SendRequest struct {
	OnBehalf address.Address
	Signer   address.Address
	To       address.Address
	Symbol   address.Address
	Amount   *big.Int
}

// Send debits From and credits To atomically within the block's
// pending buffer.
func (l *Ledger) Send(req SendRequest) error {
	from, err := l.effectiveSender(req.OnBehalf, req.Signer, RoleTransact)
	if err != nil {
		return err
	}
	if req.Amount == nil || req.Amount.Sign() == 0 {
		return errAmountIsZero()
	}
	if req.Amount.Sign() < 0 {
		return errAmountIsNegative()
	}
	if from.Equal(req.To) {
		return errDestinationIsSource()
	}
	if req.To.IsAnonymous() {
		return errAnonymousCannotHoldFunds()
	}
	if _, err := l.loadToken(req.Symbol); err != nil {
		return err
	}

	fromBal, err := l.balance(from, req.Symbol)
	if err != nil {
		return err
	}
	if fromBal.Cmp(req.Amount) < 0 {
		return errInsufficientFunds()
	}

	toBal, err := l.balance(req.To, req.Symbol)
	if err != nil {
		return err
	}

	l.setBalance(from, req.Symbol, new(big.Int).Sub(fromBal, req.Amount))
	l.setBalance(req.To, req.Symbol, new(big.Int).Add(toBal, req.Amount))
	return nil
}
