package account

import "github.com/blockberries/tokenchain/codeerr"

// Error codes live in tokenchain's module-local space, attribute 3 —
// the account module's own namespace, one above ledger's (attribute
// 2, see ledger/errors.go).
const (
	codeAccountNotFound   = 3001
	codeMissingPermission = 3002
)

func errAccountNotFound() error {
	return codeerr.New(codeAccountNotFound, "Account not found.")
}

func errMissingPermission(role string) error {
	return codeerr.New(codeMissingPermission, "Missing required permission: {role}.", "role", role)
}
