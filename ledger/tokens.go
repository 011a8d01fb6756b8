package ledger

import (
	"encoding/binary"
	"math/big"

	"github.com/blockberries/tokenchain/address"
)

// Distribution is an initial or minted distribution entry: an amount
// credited to a holder.
type Distribution struct {
	Holder address.Address
	Amount *big.Int
}

func sumDistribution(dist []Distribution) *big.Int {
	total := big.NewInt(0)
	for _, d := range dist {
		total.Add(total, d.Amount)
	}
	return total
}

func (l *Ledger) nextSubresource() (address.Address, error) {
	raw, _, err := l.store.Get(l.nextSubresourceKey())
	if err != nil {
		return address.Address{}, err
	}
	var counter uint32
	if len(raw) == 4 {
		counter = binary.BigEndian.Uint32(raw)
	}
	sym, err := l.authority.Subresource(counter)
	if err != nil {
		return address.Address{}, err
	}
	next := make([]byte, 4)
	binary.BigEndian.PutUint32(next, counter+1)
	l.store.Put(l.nextSubresourceKey(), next)
	return sym, nil
}

// CreateTokenRequest is tokens.create's argument set.
type CreateTokenRequest struct {
	OnBehalf     address.Address
	Signer       address.Address
	Ticker       string
	Name         string
	Decimals     uint8
	Distribution []Distribution
	MaxSupply    *big.Int // nil = unset
	ExtInfo      map[string]ExtInfoEntry
	Owner        *address.Address // nil = signer
}

// CreateToken mints a token whose symbol is the next subresource of
// the token-authority address and credits its initial distribution.
func (l *Ledger) CreateToken(req CreateTokenRequest) (Token, error) {
	owner, err := l.canCreateTokens(req.OnBehalf, req.Signer)
	if err != nil {
		return Token{}, err
	}
	if req.Owner != nil {
		owner = *req.Owner
	}

	total := sumDistribution(req.Distribution)
	if req.MaxSupply != nil && total.Cmp(req.MaxSupply) > 0 {
		return Token{}, errMaxSupplyExceeded()
	}

	symbol, err := l.nextSubresource()
	if err != nil {
		return Token{}, err
	}

	t := Token{
		Symbol:            symbol,
		Ticker:            req.Ticker,
		Name:              req.Name,
		Decimals:          req.Decimals,
		Owner:             owner,
		TotalSupply:       new(big.Int).Set(total),
		CirculatingSupply: new(big.Int).Set(total),
		MaxSupply:         req.MaxSupply,
		ExtInfo:           req.ExtInfo,
	}
	for _, d := range req.Distribution {
		bal, err := l.balance(d.Holder, symbol)
		if err != nil {
			return Token{}, err
		}
		l.setBalance(d.Holder, symbol, new(big.Int).Add(bal, d.Amount))
	}
	if err := l.saveToken(t); err != nil {
		return Token{}, err
	}
	return t, nil
}

func (l *Ledger) authorizedToken(onBehalf, signer, symbol address.Address, role string) (Token, error) {
	t, err := l.loadToken(symbol)
	if err != nil {
		return Token{}, err
	}
	if t.Immutable() {
		return Token{}, errImmutableToken()
	}
	who, err := l.effectiveSender(onBehalf, signer, role)
	if err != nil {
		return Token{}, err
	}
	if !who.Equal(t.Owner) {
		return Token{}, errUnauthorized()
	}
	return t, nil
}

// SeedToken installs t and credits dist directly, bypassing the
// canTokensCreate check and the subresource counter — used only by
// init-chain to install the genesis document's declared tokens, whose
// symbols are fixed by the document rather than minted.
func (l *Ledger) SeedToken(t Token, dist []Distribution) error {
	for _, d := range dist {
		bal, err := l.balance(d.Holder, t.Symbol)
		if err != nil {
			return err
		}
		l.setBalance(d.Holder, t.Symbol, new(big.Int).Add(bal, d.Amount))
	}
	return l.saveToken(t)
}

// UpdateTokenRequest is tokens.update's argument set. Only non-nil
// fields are applied.
type UpdateTokenRequest struct {
	OnBehalf    address.Address
	Signer      address.Address
	Symbol      address.Address
	Name        *string
	Owner       *address.Address // ignored when RemoveOwner is set
	RemoveOwner bool
}

// UpdateToken mutates a token's mutable fields.
func (l *Ledger) UpdateToken(req UpdateTokenRequest) (Token, error) {
	t, err := l.authorizedToken(req.OnBehalf, req.Signer, req.Symbol, RoleUpdate)
	if err != nil {
		return Token{}, err
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.RemoveOwner {
		t.Owner = removedOwner
	} else if req.Owner != nil {
		t.Owner = *req.Owner
	}
	if err := l.saveToken(t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// AddExtInfo adds or replaces extended-info entries keyed by tag.
func (l *Ledger) AddExtInfo(onBehalf, signer, symbol address.Address, entries map[string]ExtInfoEntry) (Token, error) {
	t, err := l.authorizedToken(onBehalf, signer, symbol, RoleAddExtInfo)
	if err != nil {
		return Token{}, err
	}
	if t.ExtInfo == nil {
		t.ExtInfo = make(map[string]ExtInfoEntry)
	}
	for k, v := range entries {
		t.ExtInfo[k] = v
	}
	if err := l.saveToken(t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// RemoveExtInfo removes extended-info entries by tag.
func (l *Ledger) RemoveExtInfo(onBehalf, signer, symbol address.Address, tags []string) (Token, error) {
	t, err := l.authorizedToken(onBehalf, signer, symbol, RoleRemoveExtInfo)
	if err != nil {
		return Token{}, err
	}
	for _, tag := range tags {
		if _, ok := t.ExtInfo[tag]; !ok {
			return Token{}, errExtInfoNotFound()
		}
		delete(t.ExtInfo, tag)
	}
	if err := l.saveToken(t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Mint credits dist and increases circulating (and total) supply,
// rejecting anything that would exceed max supply.
func (l *Ledger) Mint(onBehalf, signer, symbol address.Address, dist []Distribution) (Token, error) {
	t, err := l.authorizedToken(onBehalf, signer, symbol, RoleMint)
	if err != nil {
		return Token{}, err
	}
	amount := sumDistribution(dist)
	newCirculating := new(big.Int).Add(t.CirculatingSupply, amount)
	newTotal := t.TotalSupply
	if newCirculating.Cmp(newTotal) > 0 {
		newTotal = newCirculating
	}
	if t.MaxSupply != nil && newTotal.Cmp(t.MaxSupply) > 0 {
		return Token{}, errMaxSupplyExceeded()
	}
	for _, d := range dist {
		bal, err := l.balance(d.Holder, symbol)
		if err != nil {
			return Token{}, err
		}
		l.setBalance(d.Holder, symbol, new(big.Int).Add(bal, d.Amount))
	}
	t.TotalSupply = newTotal
	t.CirculatingSupply = newCirculating
	if err := l.saveToken(t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Burn debits dist and decreases circulating supply, failing on
// insufficient balance.
func (l *Ledger) Burn(onBehalf, signer, symbol address.Address, dist []Distribution) (Token, error) {
	t, err := l.authorizedToken(onBehalf, signer, symbol, RoleBurn)
	if err != nil {
		return Token{}, err
	}
	for _, d := range dist {
		bal, err := l.balance(d.Holder, symbol)
		if err != nil {
			return Token{}, err
		}
		if bal.Cmp(d.Amount) < 0 {
			return Token{}, errInsufficientFunds()
		}
	}
	for _, d := range dist {
		bal, _ := l.balance(d.Holder, symbol)
		l.setBalance(d.Holder, symbol, new(big.Int).Sub(bal, d.Amount))
	}
	amount := sumDistribution(dist)
	t.TotalSupply = new(big.Int).Sub(t.TotalSupply, amount)
	t.CirculatingSupply = new(big.Int).Sub(t.CirculatingSupply, amount)
	if err := l.saveToken(t); err != nil {
		return Token{}, err
	}
	return t, nil
}
