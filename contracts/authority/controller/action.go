package controller

import (
	"fmt"

	"go.dedis.ch/agrireg/cli/node"
	"go.dedis.ch/agrireg/contracts/authority"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/ledger"
	ledgerctl "go.dedis.ch/agrireg/core/ledger/controller"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/txn"
	"golang.org/x/xerrors"
)

// changeAction is an action to grant or revoke an authority.
//
// - implements node.ActionTemplate
type changeAction struct {
	cmd authority.Command
}

// Execute implements node.ActionTemplate. It submits a transaction to the
// authority contract.
func (a changeAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	caller := access.Principal(ctx.Flags.String("caller"))
	principal := ctx.Flags.String("principal")

	err = ledgerctl.SubmitTx(l, caller,
		txn.Arg{Key: native.ContractArg, Value: []byte(authority.ContractName)},
		txn.Arg{Key: authority.CmdArg, Value: []byte(a.cmd)},
		txn.Arg{Key: authority.PrincipalArg, Value: []byte(principal)},
	)
	if err != nil {
		return xerrors.Errorf("failed to %s: %v", a.cmd, err)
	}

	fmt.Fprintf(ctx.Out, "%s %s", a.cmd, principal)

	return nil
}

// checkAction is an action to print whether a principal is verified.
//
// - implements node.ActionTemplate
type checkAction struct{}

// Execute implements node.ActionTemplate.
func (checkAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var oracle authority.Oracle
	err = ctx.Injector.Resolve(&oracle)
	if err != nil {
		return xerrors.Errorf("failed to resolve oracle: %v", err)
	}

	principal := access.Principal(ctx.Flags.String("principal"))

	var verified bool

	err = l.View(func(r store.Readable) error {
		verified, err = oracle.IsVerifiedAuthority(r, principal)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to check: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%t", verified)

	return nil
}
