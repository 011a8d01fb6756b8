package codeerr

// Protocol-level errors (negative codes).
const (
	CodeInvalidSignature    int32 = -1
	CodeCannotBeAnonymous   int32 = -2
	CodeTimestampOutOfRange int32 = -3
	CodeDuplicateMessage    int32 = -4
	CodeUnknownEndpoint     int32 = -5
	CodeWebAuthnRequired    int32 = -6
	CodeDecodeError         int32 = -7
	CodeUnknownAlgorithm    int32 = -8
	CodePublicKeyMismatch   int32 = -9
)

func InvalidSignature() *Error {
	return New(CodeInvalidSignature, "Invalid signature.")
}

func CannotBeAnonymous() *Error {
	return New(CodeCannotBeAnonymous, "Identity cannot be anonymous for this endpoint.")
}

func TimestampOutOfRange() *Error {
	return New(CodeTimestampOutOfRange, "Timestamp is out of range.")
}

func DuplicateMessage() *Error {
	return New(CodeDuplicateMessage, "Duplicate message.")
}

func UnknownEndpoint(name string) *Error {
	return New(CodeUnknownEndpoint, "Unknown endpoint '{endpoint}'.", "endpoint", name)
}

func WebAuthnRequired() *Error {
	return New(CodeWebAuthnRequired, "This endpoint requires a WebAuthn signature.")
}

func DecodeError(reason string) *Error {
	return New(CodeDecodeError, "Could not decode message: {reason}.", "reason", reason)
}

func UnknownAlgorithm(alg string) *Error {
	return New(CodeUnknownAlgorithm, "Unknown signature algorithm '{alg}'.", "alg", alg)
}

func PublicKeyMismatch() *Error {
	return New(CodePublicKeyMismatch, "Public key does not match the claimed identity.")
}

// Authorization errors.
const (
	CodeUnauthorized      int32 = 1
	CodeMissingPermission int32 = 2
	CodeImmutableToken    int32 = 3
)

func Unauthorized() *Error {
	return New(CodeUnauthorized, "Unauthorized to do this operation.")
}

func MissingPermission(role string) *Error {
	return New(CodeMissingPermission, "Missing permission '{role}'.", "role", role)
}

func ImmutableToken() *Error {
	return New(CodeImmutableToken, "This token is immutable; its owner has been removed.")
}

// Domain errors. Each module's code space starts at a different
// hundred to keep codes stable as modules evolve independently.
const (
	CodeUnknownSymbol      int32 = 101
	CodeInsufficientFunds  int32 = 102
	CodeAmountIsZero       int32 = 103
	CodeMaxSupplyExceeded  int32 = 104
	CodeExtInfoNotFound    int32 = 105
	CodeDestinationIsSrc   int32 = 106

	CodeTransactionNotFound int32 = 201
	CodeCannotExecuteYet    int32 = 202
	CodeAlreadyApproved     int32 = 203
	CodeAlreadyRevoked      int32 = 204

	CodeEmptyKey     int32 = 301
	CodeDisabledKey  int32 = 302
	CodeKeyNotFound  int32 = 303
)

func UnknownSymbol(symbol string) *Error {
	return New(CodeUnknownSymbol, "Symbol not supported by this ledger: {symbol}.", "symbol", symbol)
}

func InsufficientFunds() *Error {
	return New(CodeInsufficientFunds, "Insufficient funds.")
}

func AmountIsZero() *Error {
	return New(CodeAmountIsZero, "Unable to send zero (0) token.")
}

func MaxSupplyExceeded(symbol string) *Error {
	return New(CodeMaxSupplyExceeded, "Maximum supply exceeded for symbol '{symbol}'.", "symbol", symbol)
}

func ExtInfoNotFound() *Error {
	return New(CodeExtInfoNotFound, "Extended info entry not found.")
}

func DestinationIsSource() *Error {
	return New(CodeDestinationIsSrc, "Unable to send tokens to a destination that is the same as the source.")
}

func TransactionNotFound() *Error {
	return New(CodeTransactionNotFound, "Multisig transaction not found.")
}

func CannotExecuteYet() *Error {
	return New(CodeCannotExecuteYet, "Cannot execute yet; threshold has not been reached.")
}

func AlreadyApproved() *Error {
	return New(CodeAlreadyApproved, "This identity has already approved this transaction.")
}

func AlreadyRevoked() *Error {
	return New(CodeAlreadyRevoked, "This identity has already revoked or never approved this transaction.")
}

func EmptyKey() *Error {
	return New(CodeEmptyKey, "Key must not be empty.")
}

func DisabledKey() *Error {
	return New(CodeDisabledKey, "This key has been disabled.")
}

func KeyNotFound() *Error {
	return New(CodeKeyNotFound, "Key not found.")
}

// Fatal errors. These abort the process.
const (
	CodeStorageCorruption    int32 = 9001
	CodeMigrationRegistryBad int32 = 9002
)

func StorageCorruption(reason string) *Error {
	return Fatal(CodeStorageCorruption, "Storage corruption detected: {reason}.", "reason", reason)
}

func MigrationRegistryMismatch(reason string) *Error {
	return Fatal(CodeMigrationRegistryBad, "Migration registry mismatch: {reason}.", "reason", reason)
}

// Migration loader errors.
const (
	CodeMissingMigration     int32 = 9011
	CodeUnsupportedMigration int32 = 9012
)

func MissingMigration(name string) *Error {
	return Fatal(CodeMissingMigration, "Migration configuration file is missing migration(s): {name}.", "name", name)
}

func UnsupportedMigrationType(name string) *Error {
	return Fatal(CodeUnsupportedMigration, "Unsupported migration type: {name}.", "name", name)
}
