// Package access defines the identities of the ledger and the abstraction
// answering whether an identity is a verified authority.
package access

import (
	"sort"
	"strings"

	"go.dedis.ch/agrireg/core/store"
)

// BurnPrincipal is the reserved principal that nobody controls. It can never
// be used as a recipient of fees.
const BurnPrincipal Principal = "SP000000000000000000002Q6VF78"

// Principal uniquely identifies a party of the ledger, either a user or a
// contract.
type Principal string

// IsZero returns true if the principal is empty.
func (p Principal) IsZero() bool {
	return strings.TrimSpace(string(p)) == ""
}

// IsBurn returns true if the principal is the reserved burn principal.
func (p Principal) IsBurn() bool {
	return p == BurnPrincipal
}

// String implements fmt.Stringer.
func (p Principal) String() string {
	return string(p)
}

// MarshalText implements encoding.TextMarshaler.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p), nil
}

// Oracle answers whether a principal is a verified authority, which is the
// condition to submit data to the registry.
type Oracle interface {
	IsVerifiedAuthority(store.Readable, Principal) (bool, error)
}

// StaticOracle is an oracle over a fixed set of principals that ignores the
// store.
//
// - implements access.Oracle
type StaticOracle struct {
	authorities map[Principal]struct{}
}

// NewStaticOracle returns an oracle that verifies the given principals.
func NewStaticOracle(principals ...Principal) StaticOracle {
	authorities := make(map[Principal]struct{}, len(principals))
	for _, p := range principals {
		authorities[p] = struct{}{}
	}

	return StaticOracle{authorities: authorities}
}

// IsVerifiedAuthority implements access.Oracle.
func (o StaticOracle) IsVerifiedAuthority(_ store.Readable, p Principal) (bool, error) {
	_, found := o.authorities[p]
	return found, nil
}

// List returns the sorted list of verified principals.
func (o StaticOracle) List() []Principal {
	res := make([]Principal, 0, len(o.authorities))
	for p := range o.authorities {
		res = append(res, p)
	}

	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })

	return res
}
