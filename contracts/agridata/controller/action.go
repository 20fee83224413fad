package controller

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.dedis.ch/agrireg/cli/node"
	"go.dedis.ch/agrireg/contracts/agridata"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/fee"
	"go.dedis.ch/agrireg/core/ledger"
	ledgerctl "go.dedis.ch/agrireg/core/ledger/controller"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/txn"
	"go.dedis.ch/agrireg/proxy"
	"golang.org/x/xerrors"
)

// registerAction is an action to register a new entry.
//
// - implements node.ActionTemplate
type registerAction struct{}

// Execute implements node.ActionTemplate. It submits the registration and
// prints the identifier of the new entry.
func (registerAction) Execute(ctx node.Context) error {
	hash := ctx.Flags.String("hash")

	err := submit(ctx, agridata.CmdRegister,
		arg(agridata.HashArg, hash),
		arg(agridata.MetadataArg, ctx.Flags.String("metadata")),
		arg(agridata.LocationArg, ctx.Flags.String("location")),
		arg(agridata.CropArg, ctx.Flags.String("crop")),
		arg(agridata.CaptureDateArg, strconv.FormatInt(ctx.Flags.Int64("capture-date"), 10)),
		arg(agridata.PriceArg, strconv.FormatInt(ctx.Flags.Int64("price"), 10)),
		arg(agridata.DataTypeArg, ctx.Flags.String("data-type")),
		arg(agridata.ResolutionArg, strconv.FormatInt(ctx.Flags.Int64("resolution"), 10)),
		arg(agridata.LatArg, strconv.FormatFloat(ctx.Flags.Float64("lat"), 'f', -1, 64)),
		arg(agridata.LonArg, strconv.FormatFloat(ctx.Flags.Float64("lon"), 'f', -1, 64)),
		arg(agridata.SensorArg, ctx.Flags.String("sensor")),
		arg(agridata.FormatArg, ctx.Flags.String("format")),
	)
	if err != nil {
		return err
	}

	var entry *agridata.DataEntry

	err = view(ctx, func(registry *agridata.Registry, r store.Readable) error {
		entry, err = registry.GetByHash(r, hash)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read entry: %v", err)
	}

	if entry == nil {
		return xerrors.Errorf("entry with hash '%s' not found", hash)
	}

	fmt.Fprintf(ctx.Out, "%d", entry.ID)

	return nil
}

// updateAction is an action to update the metadata and the price of an entry.
//
// - implements node.ActionTemplate
type updateAction struct{}

// Execute implements node.ActionTemplate.
func (updateAction) Execute(ctx node.Context) error {
	id := ctx.Flags.Int64("id")

	err := submit(ctx, agridata.CmdUpdate,
		arg(agridata.IDArg, strconv.FormatInt(id, 10)),
		arg(agridata.MetadataArg, ctx.Flags.String("metadata")),
		arg(agridata.PriceArg, strconv.FormatInt(ctx.Flags.Int64("price"), 10)),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "entry %d updated", id)

	return nil
}

// bindAction is an action to bind the authority contract.
//
// - implements node.ActionTemplate
type bindAction struct{}

// Execute implements node.ActionTemplate.
func (bindAction) Execute(ctx node.Context) error {
	principal := ctx.Flags.String("principal")

	err := submit(ctx, agridata.CmdBind, arg(agridata.PrincipalArg, principal))
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "bound to %s", principal)

	return nil
}

// feeAction is an action to set the upload fee.
//
// - implements node.ActionTemplate
type feeAction struct{}

// Execute implements node.ActionTemplate.
func (feeAction) Execute(ctx node.Context) error {
	amount := strconv.FormatInt(ctx.Flags.Int64("amount"), 10)

	err := submit(ctx, agridata.CmdSetFee, arg(agridata.FeeArg, amount))
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "upload fee set to %s", amount)

	return nil
}

// showAction is an action to print an entry as JSON.
//
// - implements node.ActionTemplate
type showAction struct{}

// Execute implements node.ActionTemplate. The hash takes precedence over the
// identifier when both are given.
func (showAction) Execute(ctx node.Context) error {
	hash := ctx.Flags.String("hash")
	id := ctx.Flags.Int64("id")

	if hash == "" && id < 0 {
		return xerrors.New("expect an identifier or a hash")
	}

	var entry *agridata.DataEntry

	err := view(ctx, func(registry *agridata.Registry, r store.Readable) error {
		var err error
		if hash != "" {
			entry, err = registry.GetByHash(r, hash)
		} else {
			entry, err = registry.GetByID(r, uint64(id))
		}

		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read entry: %v", err)
	}

	if entry == nil {
		return xerrors.New("entry not found")
	}

	return printJSON(ctx, entry)
}

// countAction is an action to print the number of entries.
//
// - implements node.ActionTemplate
type countAction struct{}

// Execute implements node.ActionTemplate.
func (countAction) Execute(ctx node.Context) error {
	var count uint64

	err := view(ctx, func(registry *agridata.Registry, r store.Readable) error {
		var err error
		count, err = registry.Count(r)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to count: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%d", count)

	return nil
}

// existsAction is an action to print whether a hash is registered.
//
// - implements node.ActionTemplate
type existsAction struct{}

// Execute implements node.ActionTemplate.
func (existsAction) Execute(ctx node.Context) error {
	var found bool

	err := view(ctx, func(registry *agridata.Registry, r store.Readable) error {
		var err error
		found, err = registry.ExistsByHash(r, ctx.Flags.String("hash"))
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to look up hash: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%t", found)

	return nil
}

// historyAction is an action to print the audit record of an entry.
//
// - implements node.ActionTemplate
type historyAction struct{}

// Execute implements node.ActionTemplate.
func (historyAction) Execute(ctx node.Context) error {
	id := ctx.Flags.Int64("id")
	if id < 0 {
		return xerrors.New("expect an identifier")
	}

	var update *agridata.DataUpdate

	err := view(ctx, func(registry *agridata.Registry, r store.Readable) error {
		var err error
		update, err = registry.GetUpdate(r, uint64(id))
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read update: %v", err)
	}

	if update == nil {
		fmt.Fprintf(ctx.Out, "entry %d has no update", id)
		return nil
	}

	return printJSON(ctx, update)
}

// receiptsAction is an action to print the receipts of the fee journal.
//
// - implements node.ActionTemplate
type receiptsAction struct{}

// Execute implements node.ActionTemplate. It prints a line per receipt.
func (receiptsAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var journal fee.Journal
	err = ctx.Injector.Resolve(&journal)
	if err != nil {
		return xerrors.Errorf("failed to resolve journal: %v", err)
	}

	var receipts []fee.Receipt

	err = l.View(func(r store.Readable) error {
		receipts, err = journal.List(r)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to list receipts: %v", err)
	}

	for _, receipt := range receipts {
		fmt.Fprintf(ctx.Out, "%d %s -> %s: %d\n", receipt.Index, receipt.From,
			receipt.To, receipt.Amount)
	}

	return nil
}

// serveAction is an action to register the query handler on the proxy.
//
// - implements node.ActionTemplate
type serveAction struct{}

// Execute implements node.ActionTemplate.
func (serveAction) Execute(ctx node.Context) error {
	var p proxy.Proxy
	err := ctx.Injector.Resolve(&p)
	if err != nil {
		return xerrors.Errorf("failed to resolve proxy: %v", err)
	}

	var l *ledger.Ledger
	err = ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var registry *agridata.Registry
	err = ctx.Injector.Resolve(&registry)
	if err != nil {
		return xerrors.Errorf("failed to resolve registry: %v", err)
	}

	prefix := ctx.Flags.String("prefix")
	if prefix == "" {
		prefix = DefaultPrefix
	}

	handler := newQueryHandler(prefix, l, registry)

	p.RegisterHandler(handler.prefix+"/", handler.ServeHTTP)

	fmt.Fprintf(ctx.Out, "registered registry queries on %q", handler.prefix)

	return nil
}

func arg(key, value string) txn.Arg {
	return txn.Arg{Key: key, Value: []byte(value)}
}

// submit sends a transaction with the command of the registry on behalf of the
// caller flag. The error of a rejected transaction keeps the kind of the
// registry error.
func submit(ctx node.Context, cmd agridata.Command, args ...txn.Arg) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	args = append([]txn.Arg{
		arg(native.ContractArg, agridata.ContractName),
		arg(agridata.CmdArg, string(cmd)),
	}, args...)

	caller := access.Principal(ctx.Flags.String("caller"))

	return ledgerctl.SubmitTx(l, caller, args...)
}

func view(ctx node.Context, fn func(*agridata.Registry, store.Readable) error) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var registry *agridata.Registry
	err = ctx.Injector.Resolve(&registry)
	if err != nil {
		return xerrors.Errorf("failed to resolve registry: %v", err)
	}

	return l.View(func(r store.Readable) error {
		return fn(registry, r)
	})
}

func printJSON(ctx node.Context, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to encode: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%s", data)

	return nil
}
