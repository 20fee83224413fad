// Package native implements an execution service to run native smart contracts.
//
// A native smart contract is written in Go and packaged with the application.
// Each contract executes against a staging layer of the snapshot so that the
// writes of a failed execution never reach the snapshot.
package native

import (
	"go.dedis.ch/agrireg/core/execution"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/store/mem"
	"golang.org/x/xerrors"
)

const (
	// ContractArg is the argument key in the transaction to look up a contract.
	ContractArg = "go.dedis.ch/agrireg.ContractArg"
)

// Contract is the interface to implement to register a smart contract that will
// be executed natively.
type Contract interface {
	Execute(store.Snapshot, execution.Step) error
}

// Service is an execution service for packaged applications. Those
// applications have complete access to the snapshot and can directly update
// it.
//
// - implements execution.Service
type Service struct {
	contracts map[string]Contract
}

// NewExecution returns a new native execution. The given service will be
// executed for every incoming transaction.
func NewExecution() *Service {
	return &Service{
		contracts: map[string]Contract{},
	}
}

// Set stores the contract using the name as the key. A transaction can trigger
// this contract by using the same name as the contract argument. It panics if
// a contract is already registered under that name.
func (ns *Service) Set(name string, contract Contract) {
	if _, ok := ns.contracts[name]; ok {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	ns.contracts[name] = contract
}

// Execute implements execution.Service. It uses the executor to process the
// incoming transaction and return the result. The updates are applied to the
// snapshot only if the contract accepts the transaction.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract := ns.contracts[name]
	if contract == nil {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	stage := mem.NewStaging(snap)

	err := contract.Execute(stage, step)
	if err != nil {
		res := execution.Result{
			Accepted: false,
			Message:  err.Error(),
			Err:      err,
		}

		return res, nil
	}

	err = stage.Apply(snap)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to apply updates: %v", err)
	}

	return execution.Result{Accepted: true}, nil
}
