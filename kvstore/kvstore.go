// Package kvstore implements tokenchain's key-value module: an owned,
// disable-once namespace layered directly on the merkle store.
package kvstore

import (
	"fmt"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/merkle"
)

const (
	codeKeyNotFound       = 5001
	codeKeyDisabled       = 5002
	codeNotOwner          = 5003
	codeMissingPermission = 5004
)

func errKeyNotFound() error {
	return codeerr.New(codeKeyNotFound, "Key not found.")
}

func errKeyDisabled(reason string) error {
	if reason == "" {
		return codeerr.New(codeKeyDisabled, "Key is disabled.")
	}
	return codeerr.New(codeKeyDisabled, "Key is disabled: {reason}.", "reason", reason)
}

func errNotOwner() error {
	return codeerr.New(codeNotOwner, "Sender does not own this key.")
}

func errMissingPermission(role string) error {
	return codeerr.New(codeMissingPermission, "Missing required permission: {role}.", "role", role)
}

// Authorizer checks whether signer holds role on onBehalf. Implemented
// by account.Store; kvstore takes it as a narrow interface so it never
// imports account, the same shape used by ledger.Authorizer.
type Authorizer interface {
	HasRole(onBehalf, signer address.Address, role string) bool
}

const (
	roleKvStorePut     = "canKvStorePut"
	roleKvStoreDisable = "canKvStoreDisable"
)

// Entry is one key's stored record.
type Entry struct {
	Owner    address.Address `cramberry:"1"`
	Value    []byte          `cramberry:"2"`
	Disabled bool            `cramberry:"3"`
	Reason   string          `cramberry:"4"`
}

// QueryResult is kvstore.query's response shape.
type QueryResult struct {
	Owner    address.Address
	Disabled bool
	Reason   string
}

// Store is kvstore's handle over the committed state.
type Store struct {
	store *merkle.Store
	authz Authorizer
}

// New builds a Store backed by ms, using authz to resolve
// canKvStorePut/canKvStoreDisable grants on alternate owners.
func New(ms *merkle.Store, authz Authorizer) *Store {
	return &Store{store: ms, authz: authz}
}

func entryKey(key []byte) []byte {
	return []byte(fmt.Sprintf("/kvstore/%x", key))
}

func (s *Store) load(key []byte) (Entry, bool, error) {
	raw, ok, err := s.store.Get(entryKey(key))
	if err != nil || !ok {
		return Entry{}, ok, err
	}
	var e Entry
	if err := codec.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *Store) save(key []byte, e Entry) error {
	data, err := codec.Marshal(e)
	if err != nil {
		return err
	}
	s.store.Put(entryKey(key), data)
	return nil
}

// PutRequest is kvstore.put's argument set.
type PutRequest struct {
	Signer   address.Address
	Key      []byte
	Value    []byte
	AltOwner *address.Address
}

// Put stores value under key. The sender must be the key's current
// owner or the key must be unset; when AltOwner is supplied, the
// sender must hold canKvStorePut on that account and the stored owner
// becomes the account.
func (s *Store) Put(req PutRequest) error {
	if len(req.Key) == 0 {
		return codeerr.EmptyKey()
	}
	owner := req.Signer
	if req.AltOwner != nil {
		if !s.authz.HasRole(*req.AltOwner, req.Signer, roleKvStorePut) {
			return errMissingPermission(roleKvStorePut)
		}
		owner = *req.AltOwner
	}

	existing, ok, err := s.load(req.Key)
	if err != nil {
		return err
	}
	if ok && !existing.Owner.Equal(req.Signer) && !existing.Owner.Equal(owner) {
		return errNotOwner()
	}

	return s.save(req.Key, Entry{Owner: owner, Value: req.Value})
}

// Get returns the value stored at key. Returns a structured error if
// the key is missing or disabled.
func (s *Store) Get(key []byte) ([]byte, error) {
	e, ok, err := s.load(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errKeyNotFound()
	}
	if e.Disabled {
		return nil, errKeyDisabled(e.Reason)
	}
	return e.Value, nil
}

// Query returns key's ownership and disabled metadata, whether or not
// the key is disabled.
func (s *Store) Query(key []byte) (QueryResult, error) {
	e, ok, err := s.load(key)
	if err != nil {
		return QueryResult{}, err
	}
	if !ok {
		return QueryResult{}, errKeyNotFound()
	}
	return QueryResult{Owner: e.Owner, Disabled: e.Disabled, Reason: e.Reason}, nil
}

// DisableRequest is kvstore.disable's argument set.
type DisableRequest struct {
	Signer address.Address
	Key    []byte
	Reason string
}

// Disable marks key disabled, symmetric with Put's ownership check but
// gated by canKvStoreDisable instead.
func (s *Store) Disable(req DisableRequest) error {
	if len(req.Key) == 0 {
		return codeerr.EmptyKey()
	}
	e, ok, err := s.load(req.Key)
	if err != nil {
		return err
	}
	if !ok {
		return errKeyNotFound()
	}
	if !e.Owner.Equal(req.Signer) && !s.authz.HasRole(e.Owner, req.Signer, roleKvStoreDisable) {
		return errMissingPermission(roleKvStoreDisable)
	}
	e.Disabled = true
	e.Reason = req.Reason
	return s.save(req.Key, e)
}
