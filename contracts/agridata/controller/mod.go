// Package controller implements a controller for the data registry contract.
//
// The controller registers the contract on start and adds the commands to
// submit and query the entries of a running node.
package controller

import (
	"go.dedis.ch/agrireg/cli"
	"go.dedis.ch/agrireg/cli/node"
	"go.dedis.ch/agrireg/contracts/agridata"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/fee"
	"go.dedis.ch/agrireg/core/ledger"
	ledgerctl "go.dedis.ch/agrireg/core/ledger/controller"
	"go.dedis.ch/agrireg/core/store"
	"golang.org/x/xerrors"
)

// miniController is a CLI initializer to register the data registry contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new minimal controller for the data registry.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the commands of the
// registry.
func (miniController) SetCommands(builder node.Builder) {
	callerFlag := cli.StringFlag{
		Name:     "caller",
		Usage:    "principal submitting the transaction",
		Required: true,
	}

	hashFlag := cli.StringFlag{
		Name:  "hash",
		Usage: "hash of the data",
	}

	idFlag := cli.Int64Flag{
		Name:  "id",
		Usage: "identifier of the entry",
		Value: -1,
	}

	metadataFlag := cli.StringFlag{
		Name:  "metadata",
		Usage: "description of the data",
	}

	priceFlag := cli.Int64Flag{
		Name:  "price",
		Usage: "price of the data",
	}

	cmd := builder.SetCommand("agridata")
	cmd.SetDescription("submit and query agricultural data")

	sub := cmd.SetSubCommand("register")
	sub.SetDescription("register a new data submission")
	sub.SetFlags(
		callerFlag,
		hashFlag,
		metadataFlag,
		cli.StringFlag{Name: "location", Usage: "location of the field"},
		cli.StringFlag{Name: "crop", Usage: "crop type (wheat, corn, rice, soybean)"},
		cli.Int64Flag{Name: "capture-date", Usage: "capture date as a unix timestamp"},
		priceFlag,
		cli.StringFlag{Name: "data-type", Usage: "data type (ndvi, aerial, thermal)"},
		cli.Int64Flag{Name: "resolution", Usage: "resolution in centimeters per pixel"},
		cli.Float64Flag{Name: "lat", Usage: "latitude in degrees"},
		cli.Float64Flag{Name: "lon", Usage: "longitude in degrees"},
		cli.StringFlag{Name: "sensor", Usage: "sensor type (drone, satellite, ground)"},
		cli.StringFlag{Name: "format", Usage: "file format (geojson, tiff, jpeg)"},
	)
	sub.SetAction(builder.MakeAction(registerAction{}))

	sub = cmd.SetSubCommand("update")
	sub.SetDescription("update the metadata and the price of an entry")
	sub.SetFlags(callerFlag, idFlag, metadataFlag, priceFlag)
	sub.SetAction(builder.MakeAction(updateAction{}))

	sub = cmd.SetSubCommand("bind")
	sub.SetDescription("bind the authority contract receiving the fees")
	sub.SetFlags(callerFlag, cli.StringFlag{
		Name:     "principal",
		Usage:    "principal of the authority contract",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(bindAction{}))

	sub = cmd.SetSubCommand("fee")
	sub.SetDescription("set the upload fee")
	sub.SetFlags(callerFlag, cli.Int64Flag{
		Name:     "amount",
		Usage:    "fee charged per registration",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(feeAction{}))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print an entry by identifier or by hash")
	sub.SetFlags(idFlag, hashFlag)
	sub.SetAction(builder.MakeAction(showAction{}))

	sub = cmd.SetSubCommand("count")
	sub.SetDescription("print the number of entries")
	sub.SetAction(builder.MakeAction(countAction{}))

	sub = cmd.SetSubCommand("exists")
	sub.SetDescription("print whether a hash is registered")
	sub.SetFlags(hashFlag)
	sub.SetAction(builder.MakeAction(existsAction{}))

	sub = cmd.SetSubCommand("history")
	sub.SetDescription("print the last update of an entry")
	sub.SetFlags(idFlag)
	sub.SetAction(builder.MakeAction(historyAction{}))

	sub = cmd.SetSubCommand("receipts")
	sub.SetDescription("print the fee receipts")
	sub.SetAction(builder.MakeAction(receiptsAction{}))

	sub = cmd.SetSubCommand("serve")
	sub.SetDescription("serve the queries of the registry on the proxy")
	sub.SetFlags(cli.StringFlag{
		Name:  "prefix",
		Usage: "path prefix of the queries",
		Value: DefaultPrefix,
	})
	sub.SetAction(builder.MakeAction(serveAction{}))
}

// OnStart implements node.Initializer. It creates the registry, registers the
// contract and writes the initial configuration on the first start.
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

	var oracle access.Oracle
	err = inj.Resolve(&oracle)
	if err != nil {
		return xerrors.Errorf("failed to resolve oracle: %v", err)
	}

	journal := fee.NewJournal()

	registry := agridata.NewRegistry(oracle, journal, registryOptions(genesis)...)

	agridata.RegisterContract(exec, agridata.NewContract(registry))

	_, err = l.Init(agridata.ContractName, func(snap store.Snapshot) error {
		_, err := registry.Init(snap)
		if err != nil {
			return err
		}

		if genesis.AuthorityContract == "" {
			return nil
		}

		principal := access.Principal(genesis.AuthorityContract)

		err = registry.BindAuthorityContract(snap, principal)
		if err != nil {
			return xerrors.Errorf("failed to bind '%s': %v", principal, err)
		}

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to write genesis: %v", err)
	}

	inj.Inject(registry)
	inj.Inject(journal)

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}

func registryOptions(genesis ledgerctl.Genesis) []agridata.Option {
	opts := []agridata.Option{}

	if genesis.MaxEntries > 0 {
		opts = append(opts, agridata.WithMaxEntries(genesis.MaxEntries))
	}

	if genesis.UploadFee != nil {
		opts = append(opts, agridata.WithUploadFee(*genesis.UploadFee))
	}

	return opts
}
