// Package txn defines the abstraction of transactions.
//
// A transaction is a smart contract input. It is created by an identity that is
// used by the contracts for access control, and it carries a set of arguments
// identified by their keys.
package txn

import (
	"go.dedis.ch/agrireg/core/access"
)

// Transaction is what triggers a smart contract execution by passing it as part
// of the input.
type Transaction interface {
	// GetID returns the unique identifier for the transaction.
	GetID() []byte

	// GetIdentity returns the identity that created the transaction.
	GetIdentity() access.Principal

	// GetArg is a getter for the arguments of the transaction.
	GetArg(key string) []byte
}

// Arg is a generic argument that can be stored in a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager creates transactions on behalf of an identity. It helps to fill the
// information a transaction requires besides its arguments, like the nonce.
type Manager interface {
	Make(args ...Arg) (Transaction, error)
}
