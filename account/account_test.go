package account

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/merkle"
)

func openTestStore(t *testing.T) *merkle.Store {
	t.Helper()
	s, err := merkle.Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testAddr(seed byte) address.Address {
	return address.FromPublicKey([]byte{seed})
}

func TestCreateGrantsSignerOwnerByDefault(t *testing.T) {
	ms := openTestStore(t)
	parent := testAddr(1)
	owner := testAddr(2)
	s := New(ms, parent)

	acct, err := s.Create(CreateRequest{Signer: owner, Description: "test"})
	require.NoError(t, err)
	require.True(t, acct.HasRole(owner, RoleOwner))

	loaded, err := s.Get(acct.Address)
	require.NoError(t, err)
	require.Equal(t, "test", loaded.Description)
	require.True(t, loaded.HasRole(owner, RoleOwner))
}

func TestAddAndRemoveRolesRequireOwner(t *testing.T) {
	ms := openTestStore(t)
	parent := testAddr(1)
	owner := testAddr(2)
	other := testAddr(3)
	target := testAddr(4)
	s := New(ms, parent)

	acct, err := s.Create(CreateRequest{Signer: owner})
	require.NoError(t, err)

	_, err = s.AddRoles(acct.Address, other, target, []Role{RoleMultisigApprove})
	require.Error(t, err, "expected a non-owner to be rejected")

	updated, err := s.AddRoles(acct.Address, owner, target, []Role{RoleMultisigApprove})
	require.NoError(t, err)
	require.True(t, updated.HasRole(target, RoleMultisigApprove))

	updated, err = s.RemoveRoles(acct.Address, owner, target, []Role{RoleMultisigApprove})
	require.NoError(t, err)
	require.False(t, updated.HasRole(target, RoleMultisigApprove))
}

func TestHasRoleImplementsAuthorizer(t *testing.T) {
	ms := openTestStore(t)
	parent := testAddr(1)
	owner := testAddr(2)
	approver := testAddr(3)
	s := New(ms, parent)

	acct, err := s.Create(CreateRequest{Signer: owner})
	require.NoError(t, err)
	_, err = s.AddRoles(acct.Address, owner, approver, []Role{RoleTokensCreate})
	require.NoError(t, err)

	require.True(t, s.HasRole(acct.Address, approver, string(RoleTokensCreate)))
	require.False(t, s.HasRole(acct.Address, approver, string(RoleTokensMint)))
	require.False(t, s.HasRole(acct.Address, owner, string(RoleTokensCreate)))
}

func TestDisabledAccountDeniesHasRole(t *testing.T) {
	ms := openTestStore(t)
	parent := testAddr(1)
	owner := testAddr(2)
	s := New(ms, parent)

	acct, err := s.Create(CreateRequest{Signer: owner})
	require.NoError(t, err)
	_, err = s.Disable(acct.Address, owner)
	require.NoError(t, err)

	require.False(t, s.HasRole(acct.Address, owner, string(RoleOwner)))
}

func TestAccountAddressesAreDistinctSubresources(t *testing.T) {
	ms := openTestStore(t)
	parent := testAddr(1)
	owner := testAddr(2)
	s := New(ms, parent)

	first, err := s.Create(CreateRequest{Signer: owner})
	require.NoError(t, err)
	second, err := s.Create(CreateRequest{Signer: owner})
	require.NoError(t, err)

	require.False(t, first.Address.Equal(second.Address))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ms := openTestStore(t)
	parent := testAddr(1)
	owner := testAddr(2)
	s := New(ms, parent)

	acct, err := s.Create(CreateRequest{
		Signer:      owner,
		Description: "multisig account",
		Features:    []Feature{FeatureMultisig},
		Multisig:    MultisigDefaults{Threshold: 2, ExpireInSeconds: 3600},
	})
	require.NoError(t, err)

	loaded, err := s.Get(acct.Address)
	require.NoError(t, err)
	require.True(t, loaded.Features[FeatureMultisig])
	require.Equal(t, uint32(2), loaded.Multisig.Threshold)
	require.Equal(t, uint64(3600), loaded.Multisig.ExpireInSeconds)
}
