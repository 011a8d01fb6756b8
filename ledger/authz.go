package ledger

import "github.com/blockberries/tokenchain/address"

// canCreateTokens: canTokensCreate is implicit for the token authority
// only when genesis declared a token_identity (l.authorityImplicit);
// otherwise every creator, including the authority acting for itself,
// needs the role granted explicitly on some account.
func (l *Ledger) canCreateTokens(onBehalf, signer address.Address) (address.Address, error) {
	if onBehalf.IsAnonymous() {
		if l.authorityImplicit && signer.Equal(l.authority) {
			return signer, nil
		}
		return address.Address{}, errMissingPermission(RoleCreate)
	}
	if !l.authz.HasRole(onBehalf, signer, RoleCreate) {
		return address.Address{}, errMissingPermission(RoleCreate)
	}
	return onBehalf, nil
}
