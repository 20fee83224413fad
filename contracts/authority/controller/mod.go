// Package controller implements a controller for the authority contract.
package controller

import (
	"go.dedis.ch/agrireg/cli"
	"go.dedis.ch/agrireg/cli/node"
	"go.dedis.ch/agrireg/contracts/authority"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/ledger"
	ledgerctl "go.dedis.ch/agrireg/core/ledger/controller"
	"go.dedis.ch/agrireg/core/store"
	"golang.org/x/xerrors"
)

// miniController is a CLI initializer to register the authority contract and
// manage the verified authorities.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new minimal controller for the authority contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the commands to grant,
// revoke and check an authority.
func (miniController) SetCommands(builder node.Builder) {
	callerFlag := cli.StringFlag{
		Name:     "caller",
		Usage:    "principal of the administrator issuing the transaction",
		Required: true,
	}

	principalFlag := cli.StringFlag{
		Name:     "principal",
		Usage:    "principal of the authority",
		Required: true,
	}

	cmd := builder.SetCommand("authority")
	cmd.SetDescription("manage the verified authorities")

	sub := cmd.SetSubCommand("grant")
	sub.SetDescription("verify an authority")
	sub.SetFlags(callerFlag, principalFlag)
	sub.SetAction(builder.MakeAction(changeAction{cmd: authority.CmdGrant}))

	sub = cmd.SetSubCommand("revoke")
	sub.SetDescription("revoke a verified authority")
	sub.SetFlags(callerFlag, principalFlag)
	sub.SetAction(builder.MakeAction(changeAction{cmd: authority.CmdRevoke}))

	sub = cmd.SetSubCommand("check")
	sub.SetDescription("print whether the principal is a verified authority")
	sub.SetFlags(principalFlag)
	sub.SetAction(builder.MakeAction(checkAction{}))
}

// OnStart implements node.Initializer. It registers the authority contract and
// writes the initial authorities on the first start.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	var l *ledger.Ledger
	err = inj.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var genesis ledgerctl.Genesis
	err = inj.Resolve(&genesis)
	if err != nil {
		return xerrors.Errorf("failed to resolve genesis: %v", err)
	}

	authority.RegisterContract(exec, authority.NewContract(genesis.AdminPrincipals()...))

	_, err = l.Init(authority.ContractName, func(snap store.Snapshot) error {
		return authority.Grant(snap, genesis.AuthorityPrincipals()...)
	})
	if err != nil {
		return xerrors.Errorf("failed to write genesis: %v", err)
	}

	inj.Inject(authority.NewOracle())

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}
