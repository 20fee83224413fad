// Package store defines the primitives of the key/value storage the ledger
// state lives in.
//
// A snapshot is the view a transaction executes against. Writes are only
// visible through the snapshot until the owner of the snapshot commits it.
package store

// Readable is the interface for a readable store. Get returns a nil value
// without error when the key is missing.
type Readable interface {
	Get(key []byte) ([]byte, error)
}

// Writable is the interface for a writable store.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Snapshot is a state of the store that can be read and written
// independently. A write is applied only to the snapshot reference.
type Snapshot interface {
	Readable
	Writable
}
