package controller

import (
	"fmt"

	"go.dedis.ch/agrireg/cli/node"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/ledger"
	"go.dedis.ch/agrireg/core/txn"
	"go.dedis.ch/agrireg/core/txn/basic"
	"golang.org/x/xerrors"
)

// heightAction is an action to print the height of the ledger.
//
// - implements node.ActionTemplate
type heightAction struct{}

// Execute implements node.ActionTemplate.
func (heightAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	height, err := l.Height()
	if err != nil {
		return xerrors.Errorf("failed to read height: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%d", height)

	return nil
}

// blocksAction is an action to print the committed blocks.
//
// - implements node.ActionTemplate
type blocksAction struct{}

// Execute implements node.ActionTemplate. It prints a line per block.
func (blocksAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	blocks, err := l.Blocks()
	if err != nil {
		return xerrors.Errorf("failed to read blocks: %v", err)
	}

	for _, block := range blocks {
		fmt.Fprintf(ctx.Out, "%d %s %s\n", block.Index, block.TxID, block.Identity)
	}

	return nil
}

// SubmitTx creates a transaction of the caller with the arguments and submits
// it to the ledger. The height of the ledger is used as the nonce, so that
// identical requests produce distinct transactions. A rejected transaction is
// returned as an error carrying the reason of the contract.
func SubmitTx(l *ledger.Ledger, caller access.Principal, args ...txn.Arg) error {
	if caller.IsZero() {
		return xerrors.New("missing caller")
	}

	height, err := l.Height()
	if err != nil {
		return xerrors.Errorf("failed to read height: %v", err)
	}

	tx, err := basic.NewManager(caller, height).Make(args...)
	if err != nil {
		return xerrors.Errorf("failed to create transaction: %v", err)
	}

	res, err := l.Submit(tx)
	if err != nil {
		return xerrors.Errorf("failed to submit transaction: %v", err)
	}

	if !res.Accepted && res.Err != nil {
		return xerrors.Errorf("transaction rejected: %w", res.Err)
	}

	if !res.Accepted {
		return xerrors.Errorf("transaction rejected: %s", res.Message)
	}

	return nil
}
