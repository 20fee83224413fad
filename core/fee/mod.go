// Package fee defines the sink that moves the fees charged by the contracts
// and a journal implementation recording a receipt for each transfer.
//
// The journal writes in the snapshot of the transaction that charges the fee,
// so a receipt is committed or rolled back together with the rest of the
// transaction.
package fee

import (
	"encoding/binary"
	"encoding/json"

	"go.dedis.ch/agrireg/core/access"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/store/prefixed"
	"golang.org/x/xerrors"
)

// StorePrefix is the prefix of the keys written by the journal.
const StorePrefix = "fee"

var (
	counterKey    = []byte("count")
	receiptPrefix = []byte("receipt:")
)

// Sink moves an amount from a principal to another one. Any error must leave
// the snapshot untouched or be followed by a rollback of the snapshot by the
// caller.
type Sink interface {
	Transfer(snap store.Snapshot, amount uint64, from, to access.Principal) error
}

// Receipt is the record of a transfer.
type Receipt struct {
	Index  uint64           `json:"index"`
	Amount uint64           `json:"amount"`
	From   access.Principal `json:"from"`
	To     access.Principal `json:"to"`
}

// Journal is a sink that records the transfers as receipts in the ledger.
//
// - implements fee.Sink
type Journal struct{}

// NewJournal returns a new journal.
func NewJournal() Journal {
	return Journal{}
}

// Transfer implements fee.Sink. It appends a receipt to the journal.
func (Journal) Transfer(snap store.Snapshot, amount uint64, from, to access.Principal) error {
	if from.IsZero() {
		return xerrors.New("missing sender")
	}

	if to.IsZero() || to.IsBurn() {
		return xerrors.Errorf("invalid recipient '%s'", to)
	}

	pstore := prefixed.NewSnapshot(StorePrefix, snap)

	count, err := readCount(pstore)
	if err != nil {
		return err
	}

	receipt := Receipt{
		Index:  count,
		Amount: amount,
		From:   from,
		To:     to,
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		return xerrors.Errorf("failed to encode receipt: %v", err)
	}

	err = pstore.Set(receiptKey(count), data)
	if err != nil {
		return xerrors.Errorf("failed to store receipt: %v", err)
	}

	err = pstore.Set(counterKey, encodeUint64(count+1))
	if err != nil {
		return xerrors.Errorf("failed to store counter: %v", err)
	}

	return nil
}

// List returns the receipts in the order of the transfers.
func (Journal) List(r store.Readable) ([]Receipt, error) {
	pstore := prefixed.NewReadable(StorePrefix, r)

	count, err := readCount(pstore)
	if err != nil {
		return nil, err
	}

	receipts := make([]Receipt, 0, count)

	for i := uint64(0); i < count; i++ {
		data, err := pstore.Get(receiptKey(i))
		if err != nil {
			return nil, xerrors.Errorf("failed to read receipt %d: %v", i, err)
		}

		var receipt Receipt
		err = json.Unmarshal(data, &receipt)
		if err != nil {
			return nil, xerrors.Errorf("failed to decode receipt %d: %v", i, err)
		}

		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

// Total returns the sum of the amounts received by the principal.
func (j Journal) Total(r store.Readable, to access.Principal) (uint64, error) {
	receipts, err := j.List(r)
	if err != nil {
		return 0, err
	}

	total := uint64(0)
	for _, receipt := range receipts {
		if receipt.To == to {
			total += receipt.Amount
		}
	}

	return total, nil
}

func readCount(r store.Readable) (uint64, error) {
	data, err := r.Get(counterKey)
	if err != nil {
		return 0, xerrors.Errorf("failed to read counter: %v", err)
	}

	if len(data) != 8 {
		return 0, nil
	}

	return binary.BigEndian.Uint64(data), nil
}

func receiptKey(index uint64) []byte {
	return append(append([]byte{}, receiptPrefix...), encodeUint64(index)...)
}

func encodeUint64(value uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)

	return buffer
}
