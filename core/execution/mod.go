// Package execution defines the primitives to execute a transaction against a
// snapshot of the ledger state.
package execution

import (
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/txn"
)

// Step is the input of an execution. It contains the transaction to execute
// and the height of the ledger it executes at.
type Step struct {
	// Current is the transaction being executed.
	Current txn.Transaction

	// Height is the number of blocks committed before this transaction. It is
	// the clock available to the contracts.
	Height uint64

	// Commit collects what must happen only once the transaction is durably
	// committed. It can be nil.
	Commit *Commit
}

// Commit is the list of functions to run after the ledger commits a
// transaction. They are dropped if the transaction is rejected or if the
// commit fails.
type Commit struct {
	fns []func()
}

// OnCommit adds the function to the list. It does nothing on a nil commit.
func (c *Commit) OnCommit(fn func()) {
	if c == nil {
		return
	}

	c.fns = append(c.fns, fn)
}

// Run calls the functions in the order they were added.
func (c *Commit) Run() {
	if c == nil {
		return
	}

	for _, fn := range c.fns {
		fn()
	}
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string

	// Err is the error of a rejected transaction. It is not persisted but lets
	// a local caller branch on the cause.
	Err error
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
