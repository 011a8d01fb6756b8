package ledger

import "github.com/blockberries/tokenchain/codeerr"

// Error codes live in tokenchain's module-local space, attribute 2 —
// the same attribute number the original ledger module's
// define_attribute_many_error! block used, so the numbering lines up
// with the original registry even though the template text is ported
// rather than quoted verbatim.
const (
	codeUnknownSymbol            = 2001
	codeUnauthorized             = 2002
	codeInsufficientFunds        = 2003
	codeAnonymousCannotHoldFunds = 2004
	codeDestinationIsSource      = 2008
	codeAmountIsZero             = 2009
	codeImmutableToken           = 2010
	codeMaxSupplyExceeded        = 2011
	codeExtInfoNotFound          = 2012
	codeMissingPermission        = 2013
	codeAmountIsNegative         = 2014
)

func errUnknownSymbol(symbol string) error {
	return codeerr.New(codeUnknownSymbol, "Symbol not supported by this ledger: {symbol}.", "symbol", symbol)
}

func errUnauthorized() error {
	return codeerr.New(codeUnauthorized, "Unauthorized to do this operation.")
}

func errMissingPermission(role string) error {
	return codeerr.New(codeMissingPermission, "Missing required permission: {role}.", "role", role)
}

func errInsufficientFunds() error {
	return codeerr.New(codeInsufficientFunds, "Insufficient funds.")
}

func errAnonymousCannotHoldFunds() error {
	return codeerr.New(codeAnonymousCannotHoldFunds, "Anonymous is not a valid account identity.")
}

func errDestinationIsSource() error {
	return codeerr.New(codeDestinationIsSource, "Unable to send tokens to a destination (to) that is the same as the source (from).")
}

func errAmountIsZero() error {
	return codeerr.New(codeAmountIsZero, "Unable to send zero (0) token.")
}

func errAmountIsNegative() error {
	return codeerr.New(codeAmountIsNegative, "Amount must not be negative.")
}

func errImmutableToken() error {
	return codeerr.New(codeImmutableToken, "Token is immutable: owner has been removed.")
}

func errMaxSupplyExceeded() error {
	return codeerr.New(codeMaxSupplyExceeded, "Operation would exceed the token's maximum supply.")
}

func errExtInfoNotFound() error {
	return codeerr.New(codeExtInfoNotFound, "Extended info entry not found.")
}
