// Package account implements tokenchain's account objects: addresses
// minted as subresources of their creator, carrying a role map and a
// set of enabled features. The multisig feature's transaction
// lifecycle lives in the sibling account/multisig package.
package account

import (
	"encoding/binary"
	"fmt"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/merkle"
)

// Role is one of the fixed, enumerated role names allowed on an
// account's role map.
type Role string

const (
	RoleOwner                    Role = "owner"
	RoleMultisigSubmit           Role = "canMultisigSubmit"
	RoleMultisigApprove          Role = "canMultisigApprove"
	RoleLedgerTransact           Role = "canLedgerTransact"
	RoleKvStorePut               Role = "canKvStorePut"
	RoleKvStoreDisable           Role = "canKvStoreDisable"
	RoleTokensCreate             Role = "canTokensCreate"
	RoleTokensUpdate             Role = "canTokensUpdate"
	RoleTokensAddExtendedInfo    Role = "canTokensAddExtendedInfo"
	RoleTokensRemoveExtendedInfo Role = "canTokensRemoveExtendedInfo"
	RoleTokensMint               Role = "canTokensMint"
	RoleTokensBurn               Role = "canTokensBurn"
)

// Feature is one of the fixed, enumerated feature tags an account may
// enable.
type Feature string

const (
	FeatureMultisig Feature = "multisig"
	FeatureLedger   Feature = "ledger"
	FeatureKVStore  Feature = "kvstore"
)

// MultisigDefaults holds the feature's configured threshold, expiry,
// and auto-execute defaults.
type MultisigDefaults struct {
	Threshold            uint32 `cramberry:"1"`
	ExpireInSeconds      uint64 `cramberry:"2"`
	ExecuteAutomatically bool   `cramberry:"3"`
}

// wireAccount is Account's cramberry-tagged wire encoding. Go maps
// don't carry cramberry tags directly, so roles are flattened into a
// parallel key/value-set pair and features into a tagged list.
type wireAccount struct {
	Address     address.Address   `cramberry:"1"`
	Description string            `cramberry:"2"`
	RoleKeys    []address.Address `cramberry:"3"`
	RoleSets    [][]string        `cramberry:"4"`
	Features    []string          `cramberry:"5"`
	Multisig    MultisigDefaults  `cramberry:"6"`
	Disabled    bool              `cramberry:"7"`
}

// Account is tokenchain's multi-principal identity: a subresource
// address with a role map and a set of enabled features.
type Account struct {
	Address     address.Address
	Description string
	Roles       map[address.Address]map[Role]bool
	Features    map[Feature]bool
	Multisig    MultisigDefaults
	Disabled    bool
}

func newAccount(addr address.Address) Account {
	return Account{
		Address:  addr,
		Roles:    make(map[address.Address]map[Role]bool),
		Features: make(map[Feature]bool),
	}
}

// HasRole reports whether signer holds role on the account.
func (a Account) HasRole(signer address.Address, role Role) bool {
	roles, ok := a.Roles[signer]
	return ok && roles[role]
}

func (a *Account) grant(signer address.Address, roles ...Role) {
	set, ok := a.Roles[signer]
	if !ok {
		set = make(map[Role]bool)
		a.Roles[signer] = set
	}
	for _, r := range roles {
		set[r] = true
	}
}

func (a *Account) revoke(signer address.Address, roles ...Role) {
	set, ok := a.Roles[signer]
	if !ok {
		return
	}
	for _, r := range roles {
		delete(set, r)
	}
	if len(set) == 0 {
		delete(a.Roles, signer)
	}
}

// Encode serializes a to its wire form, for callers (the bridge's
// dispatch layer) that need to embed an account in a transaction
// result.
func (a Account) Encode() ([]byte, error) { return a.encode() }

// DecodeAccount parses an account previously produced by Encode.
func DecodeAccount(data []byte) (Account, error) { return decodeAccount(data) }

func (a Account) encode() ([]byte, error) {
	w := wireAccount{
		Address:     a.Address,
		Description: a.Description,
		Multisig:    a.Multisig,
		Disabled:    a.Disabled,
	}
	for addr, roles := range a.Roles {
		names := make([]string, 0, len(roles))
		for r := range roles {
			names = append(names, string(r))
		}
		w.RoleKeys = append(w.RoleKeys, addr)
		w.RoleSets = append(w.RoleSets, names)
	}
	for f := range a.Features {
		w.Features = append(w.Features, string(f))
	}
	return codec.Marshal(w)
}

func decodeAccount(data []byte) (Account, error) {
	var w wireAccount
	if err := codec.Unmarshal(data, &w); err != nil {
		return Account{}, err
	}
	a := newAccount(w.Address)
	a.Description = w.Description
	a.Multisig = w.Multisig
	a.Disabled = w.Disabled
	for i, addr := range w.RoleKeys {
		if i >= len(w.RoleSets) {
			break
		}
		for _, r := range w.RoleSets[i] {
			a.grant(addr, Role(r))
		}
	}
	for _, f := range w.Features {
		a.Features[Feature(f)] = true
	}
	return a, nil
}

// Store is account's handle over the committed state: a thin wrapper
// over merkle.Store scoped to /accounts/ and its own subresource
// counter.
type Store struct {
	store  *merkle.Store
	parent address.Address // creator whose subresource counter mints account addresses
}

// New builds a Store rooted at parent's subresource counter.
func New(store *merkle.Store, parent address.Address) *Store {
	return &Store{store: store, parent: parent}
}

func accountKey(addr address.Address) []byte {
	return []byte(fmt.Sprintf("/accounts/%s", addr))
}

func (s *Store) counterKey() []byte {
	return []byte(fmt.Sprintf("/meta/next-subresource/%s", s.parent))
}

func (s *Store) nextAddress() (address.Address, error) {
	raw, _, err := s.store.Get(s.counterKey())
	if err != nil {
		return address.Address{}, err
	}
	var counter uint32
	if len(raw) == 4 {
		counter = binary.BigEndian.Uint32(raw)
	}
	addr, err := s.parent.Subresource(counter)
	if err != nil {
		return address.Address{}, err
	}
	next := make([]byte, 4)
	binary.BigEndian.PutUint32(next, counter+1)
	s.store.Put(s.counterKey(), next)
	return addr, nil
}

// Get loads the account at addr.
func (s *Store) Get(addr address.Address) (Account, error) {
	raw, ok, err := s.store.Get(accountKey(addr))
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, errAccountNotFound()
	}
	return decodeAccount(raw)
}

func (s *Store) save(a Account) error {
	data, err := a.encode()
	if err != nil {
		return err
	}
	s.store.Put(accountKey(a.Address), data)
	return nil
}

// CreateRequest is account.create's argument set.
type CreateRequest struct {
	Signer      address.Address
	Description string
	Roles       map[address.Address][]Role
	Features    []Feature
	Multisig    MultisigDefaults
}

// Create mints a new account as a subresource of s's parent, granting
// the signer owner by default if no explicit role map names it.
func (s *Store) Create(req CreateRequest) (Account, error) {
	addr, err := s.nextAddress()
	if err != nil {
		return Account{}, err
	}
	a := newAccount(addr)
	a.Description = req.Description
	for addr, roles := range req.Roles {
		a.grant(addr, roles...)
	}
	if _, ok := a.Roles[req.Signer]; !ok {
		a.grant(req.Signer, RoleOwner)
	}
	for _, f := range req.Features {
		a.Features[f] = true
	}
	if a.Features[FeatureMultisig] {
		a.Multisig = req.Multisig
	}
	if err := s.save(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (s *Store) requireOwner(addr, signer address.Address) (Account, error) {
	a, err := s.Get(addr)
	if err != nil {
		return Account{}, err
	}
	if !a.HasRole(signer, RoleOwner) {
		return Account{}, errMissingPermission(string(RoleOwner))
	}
	return a, nil
}

// SetDescription mutates an account's description (owner only).
func (s *Store) SetDescription(addr, signer address.Address, description string) (Account, error) {
	a, err := s.requireOwner(addr, signer)
	if err != nil {
		return Account{}, err
	}
	a.Description = description
	if err := s.save(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// AddRoles grants roles to target on addr (owner only).
func (s *Store) AddRoles(addr, signer, target address.Address, roles []Role) (Account, error) {
	a, err := s.requireOwner(addr, signer)
	if err != nil {
		return Account{}, err
	}
	a.grant(target, roles...)
	if err := s.save(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// RemoveRoles revokes roles from target on addr (owner only).
func (s *Store) RemoveRoles(addr, signer, target address.Address, roles []Role) (Account, error) {
	a, err := s.requireOwner(addr, signer)
	if err != nil {
		return Account{}, err
	}
	a.revoke(target, roles...)
	if err := s.save(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// AddFeatures enables features on addr (owner only).
func (s *Store) AddFeatures(addr, signer address.Address, features []Feature, defaults MultisigDefaults) (Account, error) {
	a, err := s.requireOwner(addr, signer)
	if err != nil {
		return Account{}, err
	}
	for _, f := range features {
		a.Features[f] = true
		if f == FeatureMultisig {
			a.Multisig = defaults
		}
	}
	if err := s.save(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// SetMultisigDefaults overwrites addr's configured multisig threshold,
// expiry, and auto-execute defaults (owner only).
func (s *Store) SetMultisigDefaults(addr, signer address.Address, defaults MultisigDefaults) (Account, error) {
	a, err := s.requireOwner(addr, signer)
	if err != nil {
		return Account{}, err
	}
	a.Multisig = defaults
	if err := s.save(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Disable marks addr disabled; it can no longer be acted on
// (owner only).
func (s *Store) Disable(addr, signer address.Address) (Account, error) {
	a, err := s.requireOwner(addr, signer)
	if err != nil {
		return Account{}, err
	}
	a.Disabled = true
	if err := s.save(a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// HasRole implements ledger.Authorizer and kvstore.Authorizer: signer
// holds role on the account at onBehalf.
func (s *Store) HasRole(onBehalf, signer address.Address, role string) bool {
	a, err := s.Get(onBehalf)
	if err != nil || a.Disabled {
		return false
	}
	return a.HasRole(signer, Role(role))
}
