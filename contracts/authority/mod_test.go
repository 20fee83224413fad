package authority

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/execution"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/store/mem"
	"go.dedis.ch/agrireg/core/txn/basic"
	"go.dedis.ch/agrireg/internal/testing/fake"
)

const (
	admin access.Principal = "SP0ADMIN"
	alice access.Principal = "SP2ALICE"
)

func TestRegisterContract(t *testing.T) {
	exec := native.NewExecution()
	RegisterContract(exec, NewContract(admin))

	snap := mem.NewStore()

	step := makeStep(admin, CmdGrant, alice)

	res, err := exec.Execute(snap, step)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	ok, err := NewOracle().IsVerifiedAuthority(snap, alice)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestContract_Execute(t *testing.T) {
	contract := NewContract(admin)
	snap := mem.NewStore()
	oracle := NewOracle()

	err := contract.Execute(snap, makeStep(alice, CmdGrant, alice))
	require.EqualError(t, err, "'SP2ALICE' is not an administrator")

	err = contract.Execute(snap, makeStep(admin, "", alice))
	require.EqualError(t, err, "'authority:command' not found in tx arg")

	err = contract.Execute(snap, makeStep(admin, CmdGrant, ""))
	require.EqualError(t, err, "'authority:principal' not found in tx arg")

	err = contract.Execute(snap, makeStep(admin, "PROMOTE", alice))
	require.EqualError(t, err, "unknown command: PROMOTE")

	err = contract.Execute(snap, makeStep(admin, CmdGrant, access.BurnPrincipal))
	require.EqualError(t, err, "failed to GRANT: invalid principal 'SP000000000000000000002Q6VF78'")

	err = contract.Execute(snap, makeStep(admin, CmdGrant, alice))
	require.NoError(t, err)

	ok, err := oracle.IsVerifiedAuthority(snap, alice)
	require.NoError(t, err)
	require.True(t, ok)

	err = contract.Execute(snap, makeStep(admin, CmdRevoke, alice))
	require.NoError(t, err)

	ok, err = oracle.IsVerifiedAuthority(snap, alice)
	require.NoError(t, err)
	require.False(t, ok)

	err = contract.Execute(fake.NewBadSnapshot(), makeStep(admin, CmdGrant, alice))
	require.EqualError(t, err, fake.Err("failed to GRANT: failed to store 'SP2ALICE'"))

	err = contract.Execute(fake.NewBadSnapshot(), makeStep(admin, CmdRevoke, alice))
	require.EqualError(t, err, fake.Err("failed to REVOKE: failed to delete 'SP2ALICE'"))
}

func TestOracle_IsVerifiedAuthority(t *testing.T) {
	oracle := NewOracle()
	snap := mem.NewStore()

	require.NoError(t, Grant(snap, alice, admin))

	ok, err := oracle.IsVerifiedAuthority(snap, admin)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = oracle.IsVerifiedAuthority(snap, "")
	require.NoError(t, err)
	require.False(t, ok)

	// The keys of the other contracts are not visible.
	require.NoError(t, snap.Set([]byte("SP3BOB"), []byte{1}))

	ok, err = oracle.IsVerifiedAuthority(snap, "SP3BOB")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = oracle.IsVerifiedAuthority(fake.NewBadSnapshot(), alice)
	require.EqualError(t, err, fake.Err("failed to read authority"))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeStep(caller access.Principal, cmd Command, principal access.Principal) execution.Step {
	tx := basic.NewTransaction(0, caller,
		basic.WithArg(native.ContractArg, []byte(ContractName)),
		basic.WithArg(CmdArg, []byte(cmd)),
		basic.WithArg(PrincipalArg, []byte(principal)),
	)

	return execution.Step{Current: tx}
}
