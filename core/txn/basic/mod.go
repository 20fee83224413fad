// Package basic implements a transaction issued by a principal. Signatures are
// not part of the transaction: the identity is trusted as given by the node
// that submits it.
package basic

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sort"

	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/txn"
)

// Transaction is a transaction with an identity and a set of arguments.
//
// - implements txn.Transaction
type Transaction struct {
	nonce    uint64
	identity access.Principal
	args     map[string][]byte
	hash     []byte
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*Transaction)

// WithArg is an option to set an argument with the key and the value.
func WithArg(key string, value []byte) TransactionOption {
	return func(tx *Transaction) {
		tx.args[key] = value
	}
}

// WithArgs is an option to set a list of arguments.
func WithArgs(args ...txn.Arg) TransactionOption {
	return func(tx *Transaction) {
		for _, arg := range args {
			tx.args[arg.Key] = arg.Value
		}
	}
}

// NewTransaction creates a new transaction for the identity with the provided
// nonce.
func NewTransaction(nonce uint64, identity access.Principal, opts ...TransactionOption) Transaction {
	tx := Transaction{
		nonce:    nonce,
		identity: identity,
		args:     make(map[string][]byte),
	}

	for _, opt := range opts {
		opt(&tx)
	}

	tx.hash = tx.fingerprint()

	return tx
}

// GetID implements txn.Transaction. It returns the digest of the transaction.
func (t Transaction) GetID() []byte {
	return append([]byte{}, t.hash...)
}

// GetNonce returns the nonce of the transaction.
func (t Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction.
func (t Transaction) GetIdentity() access.Principal {
	return t.identity
}

// GetArgs returns the sorted list of argument keys.
func (t Transaction) GetArgs() []string {
	args := make([]string, 0, len(t.args))
	for key := range t.args {
		args = append(args, key)
	}

	sort.Strings(args)

	return args
}

// GetArg implements txn.Transaction. It returns the value of the argument if it
// is set, otherwise nil.
func (t Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// fingerprint computes a deterministic digest of the nonce, the identity and
// the arguments sorted by key.
func (t Transaction) fingerprint() []byte {
	h := sha256.New()

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, t.nonce)
	h.Write(buffer)

	writeField(h, []byte(t.identity))

	for _, key := range t.GetArgs() {
		writeField(h, []byte(key))
		writeField(h, t.args[key])
	}

	return h.Sum(nil)
}

func writeField(w io.Writer, data []byte) {
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(len(data)))

	w.Write(length)
	w.Write(data)
}

// Manager creates transactions for a single identity and keeps track of the
// nonce.
//
// - implements txn.Manager
type Manager struct {
	identity access.Principal
	nonce    uint64
}

// NewManager creates a transaction manager for the identity. The first
// transaction uses the given nonce.
func NewManager(identity access.Principal, nonce uint64) *Manager {
	return &Manager{identity: identity, nonce: nonce}
}

// Make creates a transaction populated with the arguments.
func (m *Manager) Make(args ...txn.Arg) (txn.Transaction, error) {
	tx := NewTransaction(m.nonce, m.identity, WithArgs(args...))
	m.nonce++

	return tx, nil
}
