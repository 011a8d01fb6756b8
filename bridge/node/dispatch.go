package node

import (
	"github.com/blockberries/tokenchain/account"
	"github.com/blockberries/tokenchain/account/multisig"
	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/kvstore"
	"github.com/blockberries/tokenchain/ledger"
)

// endpointHandler decodes payload, runs the module operation as
// signer, and returns the operation's encoded result (nil for
// operations with no result payload worth returning).
type endpointHandler func(n *Node, signer address.Address, payload []byte) ([]byte, error)

type endpointDef struct {
	mutating bool
	handler  endpointHandler
}

// registry is the closed set of mutating endpoints DeliverTx and
// multisig execution may dispatch. Read endpoints (ledger.info,
// ledger.balance, accounts.get, kvstore.query) are served directly
// from a snapshot by Query instead — see query.go.
var registry = map[string]endpointDef{
	"ledger.send":             {mutating: true, handler: handleSend},
	"tokens.create":           {mutating: true, handler: handleCreateToken},
	"tokens.update":           {mutating: true, handler: handleUpdateToken},
	"tokens.add-ext-info":     {mutating: true, handler: handleAddExtInfo},
	"tokens.remove-ext-info":  {mutating: true, handler: handleRemoveExtInfo},
	"tokens.mint":             {mutating: true, handler: handleMint},
	"tokens.burn":             {mutating: true, handler: handleBurn},
	"account.create":          {mutating: true, handler: handleAccountCreate},
	"account.set-description": {mutating: true, handler: handleAccountSetDescription},
	"account.add-roles":       {mutating: true, handler: handleAccountAddRoles},
	"account.remove-roles":    {mutating: true, handler: handleAccountRemoveRoles},
	"account.add-features":    {mutating: true, handler: handleAccountAddFeatures},
	"account.disable":         {mutating: true, handler: handleAccountDisable},
	"multisig.submit":         {mutating: true, handler: handleMultisigSubmit},
	"multisig.approve":        {mutating: true, handler: handleMultisigApprove},
	"multisig.revoke":         {mutating: true, handler: handleMultisigRevoke},
	"multisig.execute":        {mutating: true, handler: handleMultisigExecute},
	"multisig.withdraw":       {mutating: true, handler: handleMultisigWithdraw},
	"multisig.set-defaults":   {mutating: true, handler: handleMultisigSetDefaults},
	"kvstore.put":             {mutating: true, handler: handleKvPut},
	"kvstore.disable":         {mutating: true, handler: handleKvDisable},
}

func decodePayload(payload []byte, v any) error {
	if err := codec.Unmarshal(payload, v); err != nil {
		return codeerr.DecodeError(err.Error())
	}
	return nil
}

func handleSend(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p sendPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	err := n.ledger.Send(ledger.SendRequest{
		OnBehalf: p.OnBehalf,
		Signer:   signer,
		To:       p.To,
		Symbol:   p.Symbol,
		Amount:   bigFromBytes(p.Amount),
	})
	return nil, err
}

func handleCreateToken(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p createTokenPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.ledger.CreateToken(ledger.CreateTokenRequest{
		OnBehalf:     p.OnBehalf,
		Signer:       signer,
		Ticker:       p.Ticker,
		Name:         p.Name,
		Decimals:     p.Decimals,
		Distribution: toDistribution(p.Distribution),
		MaxSupply:    bigPtrFromBytes(p.MaxSupply),
		ExtInfo:      p.ExtInfo,
		Owner:        p.Owner,
	})
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleUpdateToken(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p updateTokenPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.ledger.UpdateToken(ledger.UpdateTokenRequest{
		OnBehalf:    p.OnBehalf,
		Signer:      signer,
		Symbol:      p.Symbol,
		Name:        p.Name,
		Owner:       p.Owner,
		RemoveOwner: p.RemoveOwner,
	})
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleAddExtInfo(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p extInfoPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.ledger.AddExtInfo(p.OnBehalf, signer, p.Symbol, p.Entries)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleRemoveExtInfo(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p removeExtInfoPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.ledger.RemoveExtInfo(p.OnBehalf, signer, p.Symbol, p.Tags)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleMint(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p mintBurnPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.ledger.Mint(p.OnBehalf, signer, p.Symbol, toDistribution(p.Distribution))
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleBurn(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p mintBurnPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.ledger.Burn(p.OnBehalf, signer, p.Symbol, toDistribution(p.Distribution))
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleAccountCreate(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p createAccountPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	roles := make(map[address.Address][]account.Role, len(p.Roles))
	for _, g := range p.Roles {
		rs := make([]account.Role, 0, len(g.Roles))
		for _, r := range g.Roles {
			rs = append(rs, account.Role(r))
		}
		roles[g.Target] = rs
	}
	features := make([]account.Feature, 0, len(p.Features))
	for _, f := range p.Features {
		features = append(features, account.Feature(f))
	}
	a, err := n.accounts.Create(account.CreateRequest{
		Signer:      signer,
		Description: p.Description,
		Roles:       roles,
		Features:    features,
		Multisig:    p.Multisig,
	})
	if err != nil {
		return nil, err
	}
	return a.Encode()
}

func handleAccountSetDescription(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p setDescriptionPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	a, err := n.accounts.SetDescription(p.Account, signer, p.Description)
	if err != nil {
		return nil, err
	}
	return a.Encode()
}

func handleAccountAddRoles(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p roleChangePayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	roles := make([]account.Role, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, account.Role(r))
	}
	a, err := n.accounts.AddRoles(p.Account, signer, p.Target, roles)
	if err != nil {
		return nil, err
	}
	return a.Encode()
}

func handleAccountRemoveRoles(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p roleChangePayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	roles := make([]account.Role, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, account.Role(r))
	}
	a, err := n.accounts.RemoveRoles(p.Account, signer, p.Target, roles)
	if err != nil {
		return nil, err
	}
	return a.Encode()
}

func handleAccountAddFeatures(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p addFeaturesPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	features := make([]account.Feature, 0, len(p.Features))
	for _, f := range p.Features {
		features = append(features, account.Feature(f))
	}
	a, err := n.accounts.AddFeatures(p.Account, signer, features, p.Multisig)
	if err != nil {
		return nil, err
	}
	return a.Encode()
}

func handleAccountDisable(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p disableAccountPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	a, err := n.accounts.Disable(p.Account, signer)
	if err != nil {
		return nil, err
	}
	return a.Encode()
}

func handleMultisigSubmit(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p multisigSubmitPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	n.mu.Lock()
	blockTime := n.currentTime
	n.mu.Unlock()

	t, err := n.multisig.Submit(multisig.SubmitRequest{
		Signer:               signer,
		Account:              p.Account,
		InnerRequest:         p.InnerRequest,
		Memo:                 p.Memo,
		Threshold:            p.Threshold,
		ExpireInSeconds:      p.ExpireInSeconds,
		ExecuteAutomatically: p.ExecuteAutomatically,
		DataHash:             p.DataHash,
		BlockTime:            blockTime.Unix(),
	}, n)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleMultisigApprove(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p multisigTokenPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.multisig.Approve(p.Token, signer, n)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleMultisigRevoke(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p multisigTokenPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.multisig.Revoke(p.Token, signer)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleMultisigExecute(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p multisigTokenPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.multisig.Execute(p.Token, signer, n)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleMultisigWithdraw(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p multisigTokenPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	t, err := n.multisig.Withdraw(p.Token, signer)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}

func handleMultisigSetDefaults(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p multisigSetDefaultsPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	a, err := n.multisig.SetDefaults(multisig.SetDefaultsRequest{
		Account:              p.Account,
		Signer:               signer,
		Threshold:            p.Threshold,
		ExpireInSeconds:      p.ExpireInSeconds,
		ExecuteAutomatically: p.ExecuteAutomatically,
	})
	if err != nil {
		return nil, err
	}
	return a.Encode()
}

func handleKvPut(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p kvPutPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	err := n.kv.Put(kvstore.PutRequest{
		Signer:   signer,
		Key:      p.Key,
		Value:    p.Value,
		AltOwner: p.AltOwner,
	})
	return nil, err
}

func handleKvDisable(n *Node, signer address.Address, payload []byte) ([]byte, error) {
	var p kvDisablePayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	err := n.kv.Disable(kvstore.DisableRequest{
		Signer: signer,
		Key:    p.Key,
		Reason: p.Reason,
	})
	return nil, err
}
