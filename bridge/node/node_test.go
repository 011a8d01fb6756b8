package node

import (
	"context"
	"crypto/ed25519"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blockberries/tokenchain/account"
	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/bridge/types"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/envelope"
	"github.com/blockberries/tokenchain/kvstore"
	"github.com/blockberries/tokenchain/ledger"
	"github.com/blockberries/tokenchain/account/multisig"
	"github.com/blockberries/tokenchain/merkle"
	"github.com/blockberries/tokenchain/migrations"
)

func newTestNode(t *testing.T) (*Node, *merkle.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := merkle.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfgPath := filepath.Join(dir, "migrations.yaml")
	if err := os.WriteFile(cfgPath, []byte("migrations: []\n"), 0o600); err != nil {
		t.Fatalf("write migrations config: %v", err)
	}
	activation, err := migrations.NewRegistry().Load(cfgPath)
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}

	n, err := New(store, activation)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return n, store
}

func newSigner(t *testing.T) envelope.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return envelope.NewEd25519Signer(priv)
}

func signedTx(t *testing.T, signer envelope.Signer, endpoint string, payload any, nonce string) types.Tx {
	t.Helper()
	payloadBytes, err := codec.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := envelope.Request{
		Version:   envelope.ProtocolVersion,
		From:      signer.Address(),
		Endpoint:  endpoint,
		Payload:   payloadBytes,
		Timestamp: time.Now().Unix(),
		Nonce:     []byte(nonce),
	}
	env, err := envelope.EncodeRequest(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	signed, err := envelope.Sign(env, signer)
	if err != nil {
		t.Fatalf("sign request: %v", err)
	}
	data, err := codec.Marshal(signed)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return types.Tx(data)
}

func deliverOK(t *testing.T, n *Node, tx types.Tx) types.DeliverTxResult {
	t.Helper()
	result, err := n.DeliverTx(context.Background(), tx)
	if err != nil {
		t.Fatalf("deliver tx: %v", err)
	}
	if !result.OK() {
		t.Fatalf("tx rejected: code=%d info=%s", result.Code, result.Info)
	}
	return result
}

func beginBlock(t *testing.T, n *Node, height uint64) {
	t.Helper()
	_, err := n.BeginBlock(context.Background(), types.BlockHeader{
		Height: height,
		Time:   types.Timestamp{Seconds: time.Now().Unix()},
	})
	if err != nil {
		t.Fatalf("begin block %d: %v", height, err)
	}
}

func commitBlock(t *testing.T, n *Node) types.CommitResult {
	t.Helper()
	if _, err := n.EndBlock(context.Background(), 0); err != nil {
		t.Fatalf("end block: %v", err)
	}
	result, err := n.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return result
}

func encodeAddress(t *testing.T, addr address.Address) []byte {
	t.Helper()
	data, err := codec.Marshal(addr)
	if err != nil {
		t.Fatalf("encode address: %v", err)
	}
	return data
}

func TestLedgerCreateMintSendBurnFlow(t *testing.T) {
	n, _ := newTestNode(t)
	authority := newSigner(t)
	alice := newSigner(t)
	bob := newSigner(t)

	info, err := n.Info(context.Background(), types.InfoRequest{})
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.LastBlockHeight != 0 {
		t.Fatalf("expected a fresh chain, got height %d", info.LastBlockHeight)
	}

	if _, err := n.InitChain(context.Background(), types.InitChainRequest{
		Genesis: types.GenesisDoc{
			TokenAuthority:    authority.Address(),
			AuthorityImplicit: true,
		},
	}); err != nil {
		t.Fatalf("init chain: %v", err)
	}

	beginBlock(t, n, 1)

	createResult := deliverOK(t, n, signedTx(t, authority, "tokens.create", createTokenPayload{
		OnBehalf: address.Anonymous,
		Ticker:   "GEM",
		Name:     "Gemstone",
		Decimals: 2,
	}, "create-1"))
	token, err := ledger.DecodeToken(createResult.Data)
	if err != nil {
		t.Fatalf("decode created token: %v", err)
	}
	symbol := token.Symbol

	deliverOK(t, n, signedTx(t, authority, "tokens.mint", mintBurnPayload{
		OnBehalf: address.Anonymous,
		Symbol:   symbol,
		Distribution: []distributionEntry{
			{Holder: alice.Address(), Amount: big.NewInt(1000).Bytes()},
		},
	}, "mint-1"))

	deliverOK(t, n, signedTx(t, alice, "ledger.send", sendPayload{
		OnBehalf: address.Anonymous,
		To:       bob.Address(),
		Symbol:   symbol,
		Amount:   big.NewInt(400).Bytes(),
	}, "send-1"))

	deliverOK(t, n, signedTx(t, authority, "tokens.burn", mintBurnPayload{
		OnBehalf: address.Anonymous,
		Symbol:   symbol,
		Distribution: []distributionEntry{
			{Holder: alice.Address(), Amount: big.NewInt(100).Bytes()},
		},
	}, "burn-1"))

	commitResult := commitBlock(t, n)
	if commitResult.AppHash == (types.AppHash{}) {
		t.Fatal("expected a non-zero app hash after commit")
	}

	bobQuery, err := n.Query(context.Background(), types.StateQuery{
		Path: "/ledger/balance",
		Data: encodeAddress(t, bob.Address()),
	})
	if err != nil {
		t.Fatalf("query bob balance: %v", err)
	}
	var bobBalances balanceResult
	if err := codec.Unmarshal(bobQuery.Value, &bobBalances); err != nil {
		t.Fatalf("decode balance result: %v", err)
	}
	if len(bobBalances.Balances) != 1 {
		t.Fatalf("expected bob to hold exactly one symbol, got %d", len(bobBalances.Balances))
	}
	if got := new(big.Int).SetBytes(bobBalances.Balances[0].Amount); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected bob balance 400, got %s", got)
	}

	aliceBal, err := n.ledger.Balance(alice.Address(), nil)
	if err != nil {
		t.Fatalf("ledger balance: %v", err)
	}
	if got := aliceBal[symbol.String()]; got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected alice balance 500 (1000 minted - 400 sent - 100 burned), got %s", got)
	}
}

func TestCheckTxRejectsUnknownEndpoint(t *testing.T) {
	n, _ := newTestNode(t)
	authority := newSigner(t)
	if _, err := n.InitChain(context.Background(), types.InitChainRequest{
		Genesis: types.GenesisDoc{TokenAuthority: authority.Address(), AuthorityImplicit: true},
	}); err != nil {
		t.Fatalf("init chain: %v", err)
	}
	beginBlock(t, n, 1)

	tx := signedTx(t, authority, "not.a.real.endpoint", sendPayload{}, "x-1")
	result, err := n.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
	if err != nil {
		t.Fatalf("check tx: %v", err)
	}
	if result.Accepted() {
		t.Fatal("expected an unknown endpoint to be rejected")
	}
}

func TestCheckTxRejectsAnonymousMutation(t *testing.T) {
	n, _ := newTestNode(t)
	authority := newSigner(t)
	if _, err := n.InitChain(context.Background(), types.InitChainRequest{
		Genesis: types.GenesisDoc{TokenAuthority: authority.Address(), AuthorityImplicit: true},
	}); err != nil {
		t.Fatalf("init chain: %v", err)
	}
	beginBlock(t, n, 1)

	payloadBytes, err := codec.Marshal(sendPayload{OnBehalf: address.Anonymous, To: authority.Address()})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := envelope.Request{
		Version:  envelope.ProtocolVersion,
		From:     authority.Address(),
		Endpoint: "ledger.send",
		Payload:  payloadBytes,
	}
	env, err := envelope.EncodeRequest(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	data, err := codec.Marshal(env) // never signed
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	result, err := n.CheckTx(context.Background(), types.Tx(data), types.MempoolFirstSeen)
	if err != nil {
		t.Fatalf("check tx: %v", err)
	}
	if result.Accepted() {
		t.Fatal("expected an unsigned mutating request to be rejected")
	}
}

func TestMultisigSubmitApproveExecuteFlow(t *testing.T) {
	n, _ := newTestNode(t)
	authority := newSigner(t)
	alice := newSigner(t)
	bob := newSigner(t)
	carol := newSigner(t)

	if _, err := n.InitChain(context.Background(), types.InitChainRequest{
		Genesis: types.GenesisDoc{TokenAuthority: authority.Address(), AuthorityImplicit: true},
	}); err != nil {
		t.Fatalf("init chain: %v", err)
	}
	beginBlock(t, n, 1)

	createResult := deliverOK(t, n, signedTx(t, authority, "tokens.create", createTokenPayload{
		OnBehalf: address.Anonymous,
		Ticker:   "GEM",
		Name:     "Gemstone",
		Decimals: 0,
	}, "create-1"))
	token, err := ledger.DecodeToken(createResult.Data)
	if err != nil {
		t.Fatalf("decode created token: %v", err)
	}
	symbol := token.Symbol

	acctResult := deliverOK(t, n, signedTx(t, alice, "account.create", createAccountPayload{
		Description: "two-of-two wallet",
		Roles: []roleGrant{
			{Target: alice.Address(), Roles: []string{"owner"}},
			{Target: bob.Address(), Roles: []string{"owner"}},
		},
		Features: []string{"multisig"},
		Multisig: account.MultisigDefaults{Threshold: 2, ExpireInSeconds: 3600},
	}, "acct-1"))
	acct, err := account.DecodeAccount(acctResult.Data)
	if err != nil {
		t.Fatalf("decode created account: %v", err)
	}

	deliverOK(t, n, signedTx(t, authority, "tokens.mint", mintBurnPayload{
		OnBehalf: address.Anonymous,
		Symbol:   symbol,
		Distribution: []distributionEntry{
			{Holder: acct.Address, Amount: big.NewInt(500).Bytes()},
		},
	}, "mint-1"))

	innerReq := envelope.Request{
		Endpoint: "ledger.send",
	}
	sendPayloadBytes, err := codec.Marshal(sendPayload{
		OnBehalf: address.Anonymous,
		To:       carol.Address(),
		Symbol:   symbol,
		Amount:   big.NewInt(200).Bytes(),
	})
	if err != nil {
		t.Fatalf("marshal inner send payload: %v", err)
	}
	innerReq.Payload = sendPayloadBytes
	innerReqBytes, err := codec.Marshal(innerReq)
	if err != nil {
		t.Fatalf("marshal inner request: %v", err)
	}

	submitResult := deliverOK(t, n, signedTx(t, alice, "multisig.submit", multisigSubmitPayload{
		Account:      acct.Address,
		InnerRequest: innerReqBytes,
	}, "ms-submit-1"))
	tx, err := multisig.DecodeTransaction(submitResult.Data)
	if err != nil {
		t.Fatalf("decode submitted transaction: %v", err)
	}
	if tx.State != multisig.StatePending {
		t.Fatalf("expected the transaction to remain pending after submit, got state %v", tx.State)
	}

	approveResult := deliverOK(t, n, signedTx(t, bob, "multisig.approve", multisigTokenPayload{
		Token: tx.Token,
	}, "ms-approve-1"))
	tx, err = multisig.DecodeTransaction(approveResult.Data)
	if err != nil {
		t.Fatalf("decode approved transaction: %v", err)
	}
	if tx.State != multisig.StatePending {
		t.Fatalf("expected the transaction to still be pending (auto-execute disabled), got state %v", tx.State)
	}
	if tx.ApprovalCount() != 2 {
		t.Fatalf("expected 2 approvals, got %d", tx.ApprovalCount())
	}

	executeResult := deliverOK(t, n, signedTx(t, alice, "multisig.execute", multisigTokenPayload{
		Token: tx.Token,
	}, "ms-execute-1"))
	tx, err = multisig.DecodeTransaction(executeResult.Data)
	if err != nil {
		t.Fatalf("decode executed transaction: %v", err)
	}
	if tx.State != multisig.StateExecuted {
		t.Fatalf("expected the transaction to be executed, got state %v", tx.State)
	}

	commitBlock(t, n)

	carolBal, err := n.ledger.Balance(carol.Address(), []address.Address{symbol})
	if err != nil {
		t.Fatalf("carol balance: %v", err)
	}
	if got := carolBal[symbol.String()]; got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected carol to receive 200 via multisig execution, got %s", got)
	}

	acctBal, err := n.ledger.Balance(acct.Address, []address.Address{symbol})
	if err != nil {
		t.Fatalf("account balance: %v", err)
	}
	if got := acctBal[symbol.String()]; got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected the multisig account to retain 300 after the transfer, got %s", got)
	}
}

func TestKVStoreDisableRetainsQueryMetadata(t *testing.T) {
	n, _ := newTestNode(t)
	authority := newSigner(t)
	alice := newSigner(t)

	if _, err := n.InitChain(context.Background(), types.InitChainRequest{
		Genesis: types.GenesisDoc{TokenAuthority: authority.Address(), AuthorityImplicit: true},
	}); err != nil {
		t.Fatalf("init chain: %v", err)
	}
	beginBlock(t, n, 1)

	key := []byte("profile:alice")
	deliverOK(t, n, signedTx(t, alice, "kvstore.put", kvPutPayload{
		Key:   key,
		Value: []byte("hello"),
	}, "kv-put-1"))

	deliverOK(t, n, signedTx(t, alice, "kvstore.disable", kvDisablePayload{
		Key:    key,
		Reason: "superseded",
	}, "kv-disable-1"))

	commitBlock(t, n)

	result, err := n.Query(context.Background(), types.StateQuery{Path: "/kvstore", Data: key})
	if err != nil {
		t.Fatalf("query kvstore: %v", err)
	}
	var entry kvstore.Entry
	if err := codec.Unmarshal(result.Value, &entry); err != nil {
		t.Fatalf("decode kvstore entry: %v", err)
	}
	if !entry.Disabled {
		t.Fatal("expected the key to be reported disabled")
	}
	if entry.Reason != "superseded" {
		t.Fatalf("expected the disable reason to survive, got %q", entry.Reason)
	}
	if !entry.Owner.Equal(alice.Address()) {
		t.Fatal("expected ownership metadata to survive disabling")
	}
}

func TestInfoAndWiringSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "state.db")
	cfgPath := filepath.Join(dir, "migrations.yaml")
	if err := os.WriteFile(cfgPath, []byte("migrations: []\n"), 0o600); err != nil {
		t.Fatalf("write migrations config: %v", err)
	}
	activation, err := migrations.NewRegistry().Load(cfgPath)
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}

	authority := newSigner(t)

	store, err := merkle.Open(storePath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	n, err := New(store, activation)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	if _, err := n.InitChain(context.Background(), types.InitChainRequest{
		Genesis: types.GenesisDoc{TokenAuthority: authority.Address(), AuthorityImplicit: true},
	}); err != nil {
		t.Fatalf("init chain: %v", err)
	}
	beginBlock(t, n, 1)
	deliverOK(t, n, signedTx(t, authority, "tokens.create", createTokenPayload{
		OnBehalf: address.Anonymous,
		Ticker:   "GEM",
		Name:     "Gemstone",
	}, "create-1"))
	commitResult := commitBlock(t, n)
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := merkle.Open(storePath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	restarted, err := New(reopened, activation)
	if err != nil {
		t.Fatalf("new node on restart: %v", err)
	}

	info, err := restarted.Info(context.Background(), types.InfoRequest{})
	if err != nil {
		t.Fatalf("info after restart: %v", err)
	}
	if info.LastBlockHeight != 1 {
		t.Fatalf("expected height 1 to survive restart, got %d", info.LastBlockHeight)
	}
	if info.LastBlockAppHash == nil || *info.LastBlockAppHash != commitResult.AppHash {
		t.Fatal("expected the app hash to survive restart unchanged")
	}

	tokens, err := restarted.ledger.Info()
	if err != nil {
		t.Fatalf("ledger info after restart: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected the token created in block 1 to survive restart, got %d tokens", len(tokens))
	}
}
