// Package authority implements a native contract that maintains the set of
// verified authorities. Only a verified authority can submit data to the
// registry.
//
// The set is changed with the GRANT and REVOKE commands, which are restricted
// to the administrators given when the contract is created. The Oracle reads
// the set from the ledger state.
package authority

import (
	"github.com/rs/zerolog"
	"go.dedis.ch/agrireg"
	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/execution"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/store/prefixed"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/agrireg.Authority"

	// StorePrefix isolates the keys of the contract in the ledger state.
	StorePrefix = "authority"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "authority:command"

	// PrincipalArg is the argument's name of the principal to grant or revoke.
	PrincipalArg = "authority:principal"
)

// Command defines a type of command for the authority contract.
type Command string

const (
	// CmdGrant defines the command to add a verified authority.
	CmdGrant Command = "GRANT"

	// CmdRevoke defines the command to remove a verified authority.
	CmdRevoke Command = "REVOKE"
)

var grantedValue = []byte{1}

// RegisterContract registers the authority contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the contract that grants and revokes the verified authorities.
//
// - implements native.Contract
type Contract struct {
	admins map[access.Principal]struct{}
	logger zerolog.Logger
}

// NewContract creates a new authority contract administered by the given
// principals.
func NewContract(admins ...access.Principal) Contract {
	set := make(map[access.Principal]struct{}, len(admins))
	for _, admin := range admins {
		set[admin] = struct{}{}
	}

	return Contract{
		admins: set,
		logger: agrireg.Logger.With().Str("contract", ContractName).Logger(),
	}
}

// IsAdmin returns true if the principal administers the contract.
func (c Contract) IsAdmin(p access.Principal) bool {
	_, found := c.admins[p]
	return found
}

// Execute implements native.Contract.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	caller := step.Current.GetIdentity()
	if !c.IsAdmin(caller) {
		return xerrors.Errorf("'%s' is not an administrator", caller)
	}

	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	principal := access.Principal(step.Current.GetArg(PrincipalArg))
	if principal.IsZero() {
		return xerrors.Errorf("'%s' not found in tx arg", PrincipalArg)
	}

	switch Command(cmd) {
	case CmdGrant:
		err := Grant(snap, principal)
		if err != nil {
			return xerrors.Errorf("failed to GRANT: %v", err)
		}

		c.logger.Info().Str("principal", principal.String()).Msg("authority granted")
	case CmdRevoke:
		err := Revoke(snap, principal)
		if err != nil {
			return xerrors.Errorf("failed to REVOKE: %v", err)
		}

		c.logger.Info().Str("principal", principal.String()).Msg("authority revoked")
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// Grant adds the principals to the verified authorities of the snapshot. It is
// also used to write the initial authorities.
func Grant(snap store.Snapshot, principals ...access.Principal) error {
	pstore := prefixed.NewSnapshot(StorePrefix, snap)

	for _, p := range principals {
		if p.IsZero() || p.IsBurn() {
			return xerrors.Errorf("invalid principal '%s'", p)
		}

		err := pstore.Set([]byte(p), grantedValue)
		if err != nil {
			return xerrors.Errorf("failed to store '%s': %v", p, err)
		}
	}

	return nil
}

// Revoke removes the principal from the verified authorities of the snapshot.
func Revoke(snap store.Snapshot, principal access.Principal) error {
	err := prefixed.NewSnapshot(StorePrefix, snap).Delete([]byte(principal))
	if err != nil {
		return xerrors.Errorf("failed to delete '%s': %v", principal, err)
	}

	return nil
}

// Oracle answers whether a principal is verified by looking up the state of
// the authority contract.
//
// - implements access.Oracle
type Oracle struct{}

// NewOracle returns a new oracle.
func NewOracle() Oracle {
	return Oracle{}
}

// IsVerifiedAuthority implements access.Oracle.
func (Oracle) IsVerifiedAuthority(r store.Readable, p access.Principal) (bool, error) {
	if p.IsZero() {
		return false, nil
	}

	value, err := prefixed.NewReadable(StorePrefix, r).Get([]byte(p))
	if err != nil {
		return false, xerrors.Errorf("failed to read authority: %v", err)
	}

	return value != nil, nil
}
