// Package agridata implements the native contract of the agricultural data
// registry.
//
// The registry records submissions of sensor data (satellite, drone or ground
// imagery metadata). A verified authority registers an entry by paying the
// upload fee to the bound authority contract. Each data hash can only be
// registered once, and the identifiers are assigned sequentially from zero.
// The owner of an entry can later amend its metadata and price, in which case
// the amendment is kept as the audit record of the entry.
package agridata

import (
	"math"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/agrireg"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/execution"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the registry contract. This interface helps
// in testing the contract.
type commands interface {
	register(snap store.Snapshot, step execution.Step) error
	update(snap store.Snapshot, step execution.Step) error
	bind(snap store.Snapshot, step execution.Step) error
	setFee(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/agrireg.AgriData"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "agridata:command"

	// HashArg is the argument's name of the data hash.
	HashArg = "agridata:hash"

	// MetadataArg is the argument's name of the metadata.
	MetadataArg = "agridata:metadata"

	// LocationArg is the argument's name of the location.
	LocationArg = "agridata:location"

	// CropArg is the argument's name of the crop type.
	CropArg = "agridata:crop"

	// CaptureDateArg is the argument's name of the capture date, as a decimal
	// integer.
	CaptureDateArg = "agridata:capture_date"

	// PriceArg is the argument's name of the price, as a decimal integer.
	PriceArg = "agridata:price"

	// DataTypeArg is the argument's name of the data type.
	DataTypeArg = "agridata:data_type"

	// ResolutionArg is the argument's name of the resolution, as a decimal
	// integer.
	ResolutionArg = "agridata:resolution"

	// LatArg is the argument's name of the latitude in degrees.
	LatArg = "agridata:lat"

	// LonArg is the argument's name of the longitude in degrees.
	LonArg = "agridata:lon"

	// SensorArg is the argument's name of the sensor type.
	SensorArg = "agridata:sensor"

	// FormatArg is the argument's name of the file format.
	FormatArg = "agridata:format"

	// IDArg is the argument's name of the identifier of an entry.
	IDArg = "agridata:id"

	// FeeArg is the argument's name of the new upload fee.
	FeeArg = "agridata:fee"

	// PrincipalArg is the argument's name of the authority contract to bind.
	PrincipalArg = "agridata:principal"
)

// Command defines a type of command for the registry contract.
type Command string

const (
	// CmdRegister defines the command to register a new entry.
	CmdRegister Command = "REGISTER"

	// CmdUpdate defines the command to update the metadata and the price of an
	// entry.
	CmdUpdate Command = "UPDATE"

	// CmdBind defines the command to bind the authority contract.
	CmdBind Command = "BIND"

	// CmdSetFee defines the command to change the upload fee.
	CmdSetFee Command = "SETFEE"
)

// The counters are only moved by committed transactions.
var (
	promRegistrations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agrireg_agridata_registrations_total",
		Help: "total number of registered entries",
	})

	promUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agrireg_agridata_updates_total",
		Help: "total number of entry updates",
	})

	promFees = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agrireg_agridata_fees_total",
		Help: "sum of the upload fees charged",
	})
)

func init() {
	agrireg.PromCollectors = append(agrireg.PromCollectors, promRegistrations,
		promUpdates, promFees)
}

// RegisterContract registers the registry contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the native contract exposing the registry to the transactions.
//
// - implements native.Contract
type Contract struct {
	registry *Registry

	// cmd provides the commands that can be executed by this smart contract
	cmd commands
}

// NewContract creates a new registry contract.
func NewContract(registry *Registry) Contract {
	contract := Contract{
		registry: registry,
	}

	contract.cmd = registryCommand{Contract: &contract}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command. The
// error of a failed command keeps the kind of the failure in its chain.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdRegister:
		err := c.cmd.register(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to REGISTER: %w", err)
		}
	case CmdUpdate:
		err := c.cmd.update(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to UPDATE: %w", err)
		}
	case CmdBind:
		err := c.cmd.bind(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to BIND: %w", err)
		}
	case CmdSetFee:
		err := c.cmd.setFee(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to SETFEE: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// registryCommand implements the commands of the registry contract
//
// - implements commands
type registryCommand struct {
	*Contract
}

// register implements commands. It performs the REGISTER command. Malformed
// numbers are replaced by a value out of the bounds of their field so that the
// validation reports them in order.
func (c registryCommand) register(snap store.Snapshot, step execution.Step) error {
	tx := step.Current

	fields := Fields{
		DataHash:    string(tx.GetArg(HashArg)),
		Metadata:    string(tx.GetArg(MetadataArg)),
		Location:    string(tx.GetArg(LocationArg)),
		CropType:    ParseCropType(string(tx.GetArg(CropArg))),
		CaptureDate: parseInt(tx.GetArg(CaptureDateArg), 0),
		Price:       parseInt(tx.GetArg(PriceArg), -1),
		DataType:    ParseDataType(string(tx.GetArg(DataTypeArg))),
		Resolution:  parseInt(tx.GetArg(ResolutionArg), 0),
		Coordinates: Coordinates{
			Lat: parseFloat(tx.GetArg(LatArg)),
			Lon: parseFloat(tx.GetArg(LonArg)),
		},
		SensorType: ParseSensorType(string(tx.GetArg(SensorArg))),
		Format:     ParseFormat(string(tx.GetArg(FormatArg))),
	}

	_, err := c.registry.Register(snap, tx.GetIdentity(), step.Height, fields)
	if err != nil {
		return err
	}

	// The fee cannot change within the transaction, so the current one is the
	// fee that was charged.
	cfg, err := c.registry.GetConfig(snap)
	if err != nil {
		return xerrors.Errorf("failed to read config: %v", err)
	}

	step.Commit.OnCommit(func() {
		promRegistrations.Inc()
		promFees.Add(float64(cfg.UploadFee))
	})

	return nil
}

// update implements commands. It performs the UPDATE command.
func (c registryCommand) update(snap store.Snapshot, step execution.Step) error {
	tx := step.Current

	id, err := strconv.ParseUint(string(tx.GetArg(IDArg)), 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid '%s' arg: %v", IDArg, err)
	}

	metadata := string(tx.GetArg(MetadataArg))
	price := parseInt(tx.GetArg(PriceArg), -1)

	err = c.registry.Update(snap, tx.GetIdentity(), step.Height, id, metadata, price)
	if err != nil {
		return err
	}

	step.Commit.OnCommit(promUpdates.Inc)

	return nil
}

// bind implements commands. It performs the BIND command.
func (c registryCommand) bind(snap store.Snapshot, step execution.Step) error {
	principal := access.Principal(step.Current.GetArg(PrincipalArg))

	return c.registry.BindAuthorityContract(snap, principal)
}

// setFee implements commands. It performs the SETFEE command.
func (c registryCommand) setFee(snap store.Snapshot, step execution.Step) error {
	fee, err := strconv.ParseUint(string(step.Current.GetArg(FeeArg)), 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid '%s' arg: %v", FeeArg, err)
	}

	return c.registry.SetUploadFee(snap, fee)
}

func parseInt(arg []byte, fallback int64) int64 {
	value, err := strconv.ParseInt(string(arg), 10, 64)
	if err != nil {
		return fallback
	}

	return value
}

// parseFloat returns NaN for a malformed number, which never passes the
// bounds check.
func parseFloat(arg []byte) float64 {
	value, err := strconv.ParseFloat(string(arg), 64)
	if err != nil {
		return math.NaN()
	}

	return value
}
