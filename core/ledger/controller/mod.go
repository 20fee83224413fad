// Package controller implements the controller that opens the database and
// starts the ledger of the node. The other controllers resolve the ledger, the
// native execution service and the genesis from the injector.
package controller

import (
	"path/filepath"

	"go.dedis.ch/agrireg/cli"
	"go.dedis.ch/agrireg/cli/node"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/ledger"
	"go.dedis.ch/agrireg/core/store/kv"
	"golang.org/x/xerrors"
)

// newDB is the function used to open the database. It allows us to use a
// different database in the tests.
var newDB = kv.New

// miniController is a CLI initializer to start the ledger.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new controller for the ledger.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It adds the genesis flag to the
// start command and sets the commands to inspect the ledger.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.StringFlag{
		Name:  "genesis",
		Usage: "path to the YAML genesis file, only read on the first start",
	})

	cmd := builder.SetCommand("ledger")
	cmd.SetDescription("inspect the ledger")

	sub := cmd.SetSubCommand("height")
	sub.SetDescription("print the number of committed blocks")
	sub.SetAction(builder.MakeAction(heightAction{}))

	sub = cmd.SetSubCommand("blocks")
	sub.SetDescription("print the committed blocks")
	sub.SetAction(builder.MakeAction(blocksAction{}))
}

// OnStart implements node.Initializer. It opens the database, creates the
// ledger and injects it alongside the execution service and the genesis.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	settings, err := LoadSettings()
	if err != nil {
		return xerrors.Errorf("failed to load settings: %v", err)
	}

	path := flags.String("genesis")
	if path == "" {
		path = settings.Genesis
	}

	genesis, err := LoadGenesis(path)
	if err != nil {
		return xerrors.Errorf("failed to load genesis: %v", err)
	}

	db, err := newDB(filepath.Join(flags.Path("config"), settings.DBFile))
	if err != nil {
		return xerrors.Errorf("failed to open db: %v", err)
	}

	exec := native.NewExecution()

	l, err := ledger.NewLedger(db, exec)
	if err != nil {
		db.Close()
		return xerrors.Errorf("failed to create ledger: %v", err)
	}

	inj.Inject(db)
	inj.Inject(exec)
	inj.Inject(l)
	inj.Inject(genesis)
	inj.Inject(settings)

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (miniController) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("failed to resolve db: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("failed to close db: %v", err)
	}

	return nil
}
