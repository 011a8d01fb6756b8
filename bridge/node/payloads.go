package node

import (
	"github.com/blockberries/tokenchain/account"
	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/ledger"
)

// Every wire payload below is the endpoint-specific argument tuple
// carried in envelope.Request.Payload. OnBehalf fields use
// address.Anonymous as "act as the signer", the same sentinel the
// module packages already use internally.

type sendPayload struct {
	OnBehalf address.Address `cramberry:"1"`
	To       address.Address `cramberry:"2"`
	Symbol   address.Address `cramberry:"3"`
	Amount   []byte          `cramberry:"4"`
}

type distributionEntry struct {
	Holder address.Address `cramberry:"1"`
	Amount []byte          `cramberry:"2"`
}

type createTokenPayload struct {
	OnBehalf     address.Address                `cramberry:"1"`
	Ticker       string                         `cramberry:"2"`
	Name         string                         `cramberry:"3"`
	Decimals     uint8                          `cramberry:"4"`
	Distribution []distributionEntry            `cramberry:"5"`
	MaxSupply    []byte                         `cramberry:"6"` // empty = unset
	ExtInfo      map[string]ledger.ExtInfoEntry `cramberry:"7"`
	Owner        *address.Address               `cramberry:"8"`
}

type updateTokenPayload struct {
	OnBehalf    address.Address  `cramberry:"1"`
	Symbol      address.Address  `cramberry:"2"`
	Name        *string          `cramberry:"3"`
	Owner       *address.Address `cramberry:"4"`
	RemoveOwner bool             `cramberry:"5"`
}

type extInfoPayload struct {
	OnBehalf address.Address                `cramberry:"1"`
	Symbol   address.Address                `cramberry:"2"`
	Entries  map[string]ledger.ExtInfoEntry `cramberry:"3"`
}

type removeExtInfoPayload struct {
	OnBehalf address.Address `cramberry:"1"`
	Symbol   address.Address `cramberry:"2"`
	Tags     []string        `cramberry:"3"`
}

type mintBurnPayload struct {
	OnBehalf     address.Address     `cramberry:"1"`
	Symbol       address.Address     `cramberry:"2"`
	Distribution []distributionEntry `cramberry:"3"`
}

func toDistribution(entries []distributionEntry) []ledger.Distribution {
	out := make([]ledger.Distribution, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledger.Distribution{Holder: e.Holder, Amount: bigFromBytes(e.Amount)})
	}
	return out
}

type roleGrant struct {
	Target address.Address `cramberry:"1"`
	Roles  []string        `cramberry:"2"`
}

type createAccountPayload struct {
	Description string                   `cramberry:"1"`
	Roles       []roleGrant              `cramberry:"2"`
	Features    []string                 `cramberry:"3"`
	Multisig    account.MultisigDefaults `cramberry:"4"`
}

type setDescriptionPayload struct {
	Account     address.Address `cramberry:"1"`
	Description string          `cramberry:"2"`
}

type roleChangePayload struct {
	Account address.Address `cramberry:"1"`
	Target  address.Address `cramberry:"2"`
	Roles   []string        `cramberry:"3"`
}

type addFeaturesPayload struct {
	Account  address.Address          `cramberry:"1"`
	Features []string                 `cramberry:"2"`
	Multisig account.MultisigDefaults `cramberry:"3"`
}

type disableAccountPayload struct {
	Account address.Address `cramberry:"1"`
}

type multisigSubmitPayload struct {
	Account              address.Address `cramberry:"1"`
	InnerRequest         []byte          `cramberry:"2"`
	Memo                 *string         `cramberry:"3"`
	Threshold            *uint32         `cramberry:"4"`
	ExpireInSeconds      *uint64         `cramberry:"5"`
	ExecuteAutomatically *bool           `cramberry:"6"`
	DataHash             []byte          `cramberry:"7"`
}

type multisigTokenPayload struct {
	Token []byte `cramberry:"1"`
}

type multisigSetDefaultsPayload struct {
	Account              address.Address `cramberry:"1"`
	Threshold            *uint32         `cramberry:"2"`
	ExpireInSeconds      *uint64         `cramberry:"3"`
	ExecuteAutomatically *bool           `cramberry:"4"`
}

type kvPutPayload struct {
	Key      []byte           `cramberry:"1"`
	Value    []byte           `cramberry:"2"`
	AltOwner *address.Address `cramberry:"3"`
}

type kvDisablePayload struct {
	Key    []byte `cramberry:"1"`
	Reason string `cramberry:"2"`
}
