// Package multisig implements the multisig feature's transaction
// lifecycle: submit, approve, revoke, execute, withdraw, and the
// account owner's set-defaults override. Transactions are
// content-addressed by an opaque token and stored under /multisig/.
package multisig

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/blockberries/tokenchain/account"
	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/merkle"
)

// State is a transaction's lifecycle state.
type State uint8

const (
	StatePending State = iota
	StateExecuted
	StateWithdrawn
	StateExpired
)

const (
	codeTransactionNotFound = 4001
	codeCannotExecuteYet    = 4002
	codeMissingPermission   = 4003
)

func errTransactionNotFound() error {
	return codeerr.New(codeTransactionNotFound, "Transaction not found.")
}

func errCannotExecuteYet() error {
	return codeerr.New(codeCannotExecuteYet, "Cannot execute the transaction yet: threshold not met.")
}

func errMissingPermission(role string) error {
	return codeerr.New(codeMissingPermission, "Missing required permission: {role}.", "role", role)
}

// wireTransaction is Transaction's cramberry-tagged wire shape.
// Approvers are flattened into parallel key/value slices since
// cramberry has no native map-of-bool support demonstrated in the
// teacher's own types.
type wireTransaction struct {
	Token         []byte            `cramberry:"1"`
	Submitter     address.Address   `cramberry:"2"`
	Account       address.Address   `cramberry:"3"`
	InnerRequest  []byte            `cramberry:"4"`
	Threshold     uint32            `cramberry:"5"`
	ApproverAddrs []address.Address `cramberry:"6"`
	ApproverVotes []bool            `cramberry:"7"`
	State         uint8             `cramberry:"8"`
	SubmitTime    int64             `cramberry:"9"`
	ExpireTime    int64             `cramberry:"10"`
	Memo          *string           `cramberry:"11"`
	DataHash      []byte            `cramberry:"12"`
	ExecuteAuto   bool              `cramberry:"13"`
}

// Transaction is a deferred inner request awaiting threshold approval
// on an account.
type Transaction struct {
	Token        []byte
	Submitter    address.Address
	Account      address.Address
	InnerRequest []byte
	Threshold    uint32
	Approvers    map[address.Address]bool // true = approved, false = revoked
	State        State
	SubmitTime   int64
	ExpireTime   int64
	Memo         *string
	DataHash     []byte
	ExecuteAuto  bool
}

// ApprovalCount returns the number of addresses currently approving.
func (t Transaction) ApprovalCount() int {
	n := 0
	for _, approved := range t.Approvers {
		if approved {
			n++
		}
	}
	return n
}

// Expired reports whether t should be considered expired at blockTime.
// Compared against the block header's time, never wall-clock, so
// replaying a block stays deterministic.
func (t Transaction) Expired(blockTime int64) bool {
	return t.State == StatePending && t.ExpireTime < blockTime
}

// Encode serializes t to its wire form, for callers (the bridge's
// dispatch layer) that need to embed a transaction in a result.
func (t Transaction) Encode() ([]byte, error) { return t.encode() }

// DecodeTransaction parses a transaction previously produced by
// Encode.
func DecodeTransaction(data []byte) (Transaction, error) { return decodeTransaction(data) }

func (t Transaction) encode() ([]byte, error) {
	w := wireTransaction{
		Token:        t.Token,
		Submitter:    t.Submitter,
		Account:      t.Account,
		InnerRequest: t.InnerRequest,
		Threshold:    t.Threshold,
		State:        uint8(t.State),
		SubmitTime:   t.SubmitTime,
		ExpireTime:   t.ExpireTime,
		Memo:         t.Memo,
		DataHash:     t.DataHash,
		ExecuteAuto:  t.ExecuteAuto,
	}
	for addr, vote := range t.Approvers {
		w.ApproverAddrs = append(w.ApproverAddrs, addr)
		w.ApproverVotes = append(w.ApproverVotes, vote)
	}
	return codec.Marshal(w)
}

func decodeTransaction(data []byte) (Transaction, error) {
	var w wireTransaction
	if err := codec.Unmarshal(data, &w); err != nil {
		return Transaction{}, err
	}
	t := Transaction{
		Token:        w.Token,
		Submitter:    w.Submitter,
		Account:      w.Account,
		InnerRequest: w.InnerRequest,
		Threshold:    w.Threshold,
		Approvers:    make(map[address.Address]bool, len(w.ApproverAddrs)),
		State:        State(w.State),
		SubmitTime:   w.SubmitTime,
		ExpireTime:   w.ExpireTime,
		Memo:         w.Memo,
		DataHash:     w.DataHash,
		ExecuteAuto:  w.ExecuteAuto,
	}
	for i, addr := range w.ApproverAddrs {
		if i >= len(w.ApproverVotes) {
			break
		}
		t.Approvers[addr] = w.ApproverVotes[i]
	}
	return t, nil
}

// Executor runs a transaction's inner request as if the account
// itself had sent it. Implemented by the bridge's dispatch layer;
// multisig depends only on this narrow interface to avoid an import
// cycle.
type Executor interface {
	Execute(onBehalf address.Address, innerRequest []byte) error
}

// Store is multisig's handle over the committed state.
type Store struct {
	store    *merkle.Store
	accounts *account.Store
}

// New builds a Store backed by ms, using accounts to resolve account
// roles and multisig defaults.
func New(ms *merkle.Store, accounts *account.Store) *Store {
	return &Store{store: ms, accounts: accounts}
}

func txKey(token []byte) []byte {
	return []byte(fmt.Sprintf("/multisig/%x", token))
}

const counterKey = "/meta/next-multisig-counter"

// nextCounter returns the next value of the submit counter folded into
// a freshly minted token, persisting the incremented value in the same
// merkle store the transaction itself is written to, so it is covered
// by the block-commit discipline the same way the ledger's and
// account's own subresource counters are.
func (s *Store) nextCounter() (uint64, error) {
	raw, _, err := s.store.Get([]byte(counterKey))
	if err != nil {
		return 0, err
	}
	var counter uint64
	if len(raw) == 8 {
		counter = binary.BigEndian.Uint64(raw)
	}
	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, counter+1)
	s.store.Put([]byte(counterKey), next)
	return counter + 1, nil
}

func mintToken(acct, submitter address.Address, submitTime int64, counter uint64) []byte {
	h := sha256.New()
	h.Write(acct.Bytes())
	h.Write(submitter.Bytes())
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(submitTime))
	binary.BigEndian.PutUint64(buf[8:], counter)
	h.Write(buf[:])
	return h.Sum(nil)
}

// Get loads the transaction identified by token.
func (s *Store) Get(token []byte) (Transaction, error) {
	raw, ok, err := s.store.Get(txKey(token))
	if err != nil {
		return Transaction{}, err
	}
	if !ok {
		return Transaction{}, errTransactionNotFound()
	}
	return decodeTransaction(raw)
}

func (s *Store) save(t Transaction) error {
	data, err := t.encode()
	if err != nil {
		return err
	}
	s.store.Put(txKey(t.Token), data)
	return nil
}

// SubmitRequest is account.multisigSubmitTransaction's argument set.
type SubmitRequest struct {
	Signer               address.Address
	Account              address.Address
	InnerRequest         []byte
	Memo                 *string
	Threshold            *uint32
	ExpireInSeconds      *uint64
	ExecuteAutomatically *bool
	DataHash             []byte
	BlockTime            int64
}

// Submit stores the inner request under a freshly minted token,
// records the submitter as first approver, and snapshots the
// threshold/expiry from the account's defaults unless overridden
// (overrides require owner). If auto-execute is set and the
// threshold is already met, it executes immediately.
func (s *Store) Submit(req SubmitRequest, exec Executor) (Transaction, error) {
	acct, err := s.accounts.Get(req.Account)
	if err != nil {
		return Transaction{}, err
	}
	if !acct.HasRole(req.Signer, account.RoleMultisigSubmit) && !acct.HasRole(req.Signer, account.RoleOwner) {
		return Transaction{}, errMissingPermission(string(account.RoleMultisigSubmit))
	}

	isOwner := acct.HasRole(req.Signer, account.RoleOwner)
	threshold := acct.Multisig.Threshold
	if req.Threshold != nil {
		if !isOwner {
			return Transaction{}, errMissingPermission(string(account.RoleOwner))
		}
		threshold = *req.Threshold
	}
	expireIn := acct.Multisig.ExpireInSeconds
	if req.ExpireInSeconds != nil {
		if !isOwner {
			return Transaction{}, errMissingPermission(string(account.RoleOwner))
		}
		expireIn = *req.ExpireInSeconds
	}
	autoExec := acct.Multisig.ExecuteAutomatically
	if req.ExecuteAutomatically != nil {
		if !isOwner {
			return Transaction{}, errMissingPermission(string(account.RoleOwner))
		}
		autoExec = *req.ExecuteAutomatically
	}

	counter, err := s.nextCounter()
	if err != nil {
		return Transaction{}, err
	}
	token := mintToken(req.Account, req.Signer, req.BlockTime, counter)
	t := Transaction{
		Token:        token,
		Submitter:    req.Signer,
		Account:      req.Account,
		InnerRequest: req.InnerRequest,
		Threshold:    threshold,
		Approvers:    map[address.Address]bool{req.Signer: true},
		State:        StatePending,
		SubmitTime:   req.BlockTime,
		ExpireTime:   req.BlockTime + int64(expireIn),
		Memo:         req.Memo,
		DataHash:     req.DataHash,
		ExecuteAuto:  autoExec,
	}
	if err := s.save(t); err != nil {
		return Transaction{}, err
	}
	if autoExec && t.ApprovalCount() >= int(threshold) {
		if err := s.execute(&t, exec); err != nil {
			return Transaction{}, err
		}
	}
	return t, nil
}

// SetDefaultsRequest is account.multisigSetDefaults's argument set.
// Nil fields leave the corresponding default unchanged.
type SetDefaultsRequest struct {
	Account              address.Address
	Signer               address.Address
	Threshold            *uint32
	ExpireInSeconds      *uint64
	ExecuteAutomatically *bool
}

// SetDefaults overrides an account's configured multisig threshold,
// expiry, and auto-execute defaults (owner only).
func (s *Store) SetDefaults(req SetDefaultsRequest) (account.Account, error) {
	acct, err := s.accounts.Get(req.Account)
	if err != nil {
		return account.Account{}, err
	}
	defaults := acct.Multisig
	if req.Threshold != nil {
		defaults.Threshold = *req.Threshold
	}
	if req.ExpireInSeconds != nil {
		defaults.ExpireInSeconds = *req.ExpireInSeconds
	}
	if req.ExecuteAutomatically != nil {
		defaults.ExecuteAutomatically = *req.ExecuteAutomatically
	}
	return s.accounts.SetMultisigDefaults(req.Account, req.Signer, defaults)
}

// Approve adds signer to the approver set, executing automatically if
// the account enabled it and the threshold is now met.
func (s *Store) Approve(token []byte, signer address.Address, exec Executor) (Transaction, error) {
	t, err := s.Get(token)
	if err != nil {
		return Transaction{}, err
	}
	if t.State != StatePending {
		return Transaction{}, errTransactionNotFound()
	}
	acct, err := s.accounts.Get(t.Account)
	if err != nil {
		return Transaction{}, err
	}
	if !acct.HasRole(signer, account.RoleMultisigApprove) && !acct.HasRole(signer, account.RoleOwner) {
		return Transaction{}, errMissingPermission(string(account.RoleMultisigApprove))
	}
	t.Approvers[signer] = true
	if t.ExecuteAuto && t.ApprovalCount() >= int(t.Threshold) {
		if err := s.execute(&t, exec); err != nil {
			return Transaction{}, err
		}
		return t, nil
	}
	if err := s.save(t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Revoke unsets signer's approval, leaving the transaction pending.
// Withdrawing it outright is a separate operation (Withdraw).
func (s *Store) Revoke(token []byte, signer address.Address) (Transaction, error) {
	t, err := s.Get(token)
	if err != nil {
		return Transaction{}, err
	}
	if t.State != StatePending {
		return Transaction{}, errTransactionNotFound()
	}
	t.Approvers[signer] = false
	if err := s.save(t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Execute runs the inner request once approvals meet the threshold.
// Any approver may call it; before threshold it fails with
// cannot-execute-yet, and after a terminal state with
// transaction-not-found.
func (s *Store) Execute(token []byte, signer address.Address, exec Executor) (Transaction, error) {
	t, err := s.Get(token)
	if err != nil {
		return Transaction{}, err
	}
	if t.State != StatePending {
		return Transaction{}, errTransactionNotFound()
	}
	acct, err := s.accounts.Get(t.Account)
	if err != nil {
		return Transaction{}, err
	}
	if !acct.HasRole(signer, account.RoleMultisigApprove) && !acct.HasRole(signer, account.RoleOwner) {
		return Transaction{}, errMissingPermission(string(account.RoleMultisigApprove))
	}
	if t.ApprovalCount() < int(t.Threshold) {
		return Transaction{}, errCannotExecuteYet()
	}
	if err := s.execute(&t, exec); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (s *Store) execute(t *Transaction, exec Executor) error {
	if err := exec.Execute(t.Account, t.InnerRequest); err != nil {
		return err
	}
	t.State = StateExecuted
	return s.save(*t)
}

// Withdraw transitions a pending transaction to withdrawn. Callable
// by the submitter or the account owner.
func (s *Store) Withdraw(token []byte, signer address.Address) (Transaction, error) {
	t, err := s.Get(token)
	if err != nil {
		return Transaction{}, err
	}
	if t.State != StatePending {
		return Transaction{}, errTransactionNotFound()
	}
	acct, err := s.accounts.Get(t.Account)
	if err != nil {
		return Transaction{}, err
	}
	if !signer.Equal(t.Submitter) && !acct.HasRole(signer, account.RoleOwner) {
		return Transaction{}, errMissingPermission(string(account.RoleOwner))
	}
	t.State = StateWithdrawn
	if err := s.save(t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// ExpirePending marks every pending transaction in the store expired if
// its expire-time has passed blockTime. Node.BeginBlock calls it at
// every consensus block boundary. Reads (Get, Approve, Execute and the
// queries) do not check expiry, so an overdue transaction reads as
// pending until the next block boundary.
func (s *Store) ExpirePending(blockTime int64) error {
	entries, err := s.store.Iterate([]byte("/multisig/"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		t, err := decodeTransaction(e.Value)
		if err != nil {
			return err
		}
		if t.Expired(blockTime) {
			t.State = StateExpired
			if err := s.save(t); err != nil {
				return err
			}
		}
	}
	return nil
}
