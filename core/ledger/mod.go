// Package ledger implements the sequential ledger the registry runs on.
//
// Every transaction is executed inside a single writable transaction of the
// database, which admits one writer at a time: the transactions are applied
// one after the other, in the order they are submitted, without interleaving.
// An accepted transaction is committed as a new block and increases the height
// of the ledger. A rejected one leaves the state as it was.
//
// Reads are served by read-only transactions of the database. They can run
// concurrently with each other and with a writer, and always observe the state
// of the last committed block.
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/agrireg"
	"go.dedis.ch/agrireg/core/execution"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/store/kv"
	"go.dedis.ch/agrireg/core/store/prefixed"
	"go.dedis.ch/agrireg/core/txn"
	"golang.org/x/xerrors"
)

// StorePrefix is the prefix of the keys written by the ledger itself.
const StorePrefix = "ledger"

var (
	// Bucket is the name of the database bucket holding the state.
	Bucket = []byte("agrireg")

	heightKey   = []byte("height")
	blockPrefix = []byte("block:")
	initPrefix  = []byte("init:")
)

var (
	promHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agrireg_ledger_height",
		Help: "number of blocks committed",
	})

	promAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agrireg_ledger_transactions_accepted_total",
		Help: "total number of accepted transactions",
	})

	promRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agrireg_ledger_transactions_rejected_total",
		Help: "total number of rejected transactions",
	})
)

func init() {
	agrireg.PromCollectors = append(agrireg.PromCollectors, promHeight,
		promAccepted, promRejected)
}

// Block is the record of a committed transaction.
type Block struct {
	Index    uint64 `json:"index"`
	TxID     string `json:"txid"`
	Identity string `json:"identity"`
}

// Ledger executes transactions on the state stored in the database.
type Ledger struct {
	db     kv.DB
	exec   execution.Service
	logger zerolog.Logger
}

// NewLedger creates a ledger on top of the database. The bucket is created if
// it does not exist yet.
func NewLedger(db kv.DB, exec execution.Service) (*Ledger, error) {
	err := db.Update(Bucket, func(kv.Bucket) error { return nil })
	if err != nil {
		return nil, xerrors.Errorf("failed to prepare bucket: %v", err)
	}

	l := &Ledger{
		db:     db,
		exec:   exec,
		logger: agrireg.Logger.With().Str("component", "ledger").Logger(),
	}

	height, err := l.Height()
	if err != nil {
		return nil, xerrors.Errorf("failed to read height: %v", err)
	}

	promHeight.Set(float64(height))

	return l, nil
}

// Submit executes the transaction. The result tells if the transaction is
// accepted, and an error is returned only if the execution could not happen.
// What the contract deferred to the commit of the step runs after the database
// transaction succeeds.
func (l *Ledger) Submit(tx txn.Transaction) (execution.Result, error) {
	var res execution.Result
	var height uint64

	commit := &execution.Commit{}

	err := l.db.Update(Bucket, func(b kv.Bucket) error {
		snap := kv.NewSnapshot(b)
		meta := prefixed.NewSnapshot(StorePrefix, snap)

		var err error
		height, err = readHeight(meta)
		if err != nil {
			return err
		}

		step := execution.Step{
			Current: tx,
			Height:  height,
			Commit:  commit,
		}

		res, err = l.exec.Execute(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to execute tx: %v", err)
		}

		if !res.Accepted {
			return nil
		}

		return writeBlock(meta, height, tx)
	})

	if err != nil {
		return execution.Result{}, err
	}

	if !res.Accepted {
		promRejected.Inc()

		l.logger.Debug().
			Hex("txid", tx.GetID()).
			Str("identity", tx.GetIdentity().String()).
			Str("reason", res.Message).
			Msg("transaction rejected")

		return res, nil
	}

	commit.Run()

	promAccepted.Inc()
	promHeight.Set(float64(height + 1))

	l.logger.Info().
		Hex("txid", tx.GetID()).
		Uint64("height", height).
		Msg("block committed")

	return res, nil
}

// Init runs the function in a writable transaction outside of the execution
// of a contract, unless a function has already been run under the same name.
// It is meant to write the genesis state of a component and does not create a
// block. It returns true if the function has been run.
func (l *Ledger) Init(name string, fn func(store.Snapshot) error) (bool, error) {
	done := false

	err := l.db.Update(Bucket, func(b kv.Bucket) error {
		snap := kv.NewSnapshot(b)
		meta := prefixed.NewSnapshot(StorePrefix, snap)

		key := append(append([]byte{}, initPrefix...), name...)

		marker, err := meta.Get(key)
		if err != nil {
			return xerrors.Errorf("failed to read marker: %v", err)
		}

		if marker != nil {
			return nil
		}

		err = fn(snap)
		if err != nil {
			return err
		}

		done = true

		return meta.Set(key, []byte{1})
	})

	if err != nil {
		return false, xerrors.Errorf("failed to init '%s': %v", name, err)
	}

	if done {
		l.logger.Info().Str("name", name).Msg("genesis written")
	}

	return done, nil
}

// View runs the function on a read-only view of the last committed state.
func (l *Ledger) View(fn func(store.Readable) error) error {
	return l.db.View(Bucket, func(b kv.Bucket) error {
		return fn(kv.NewSnapshot(b))
	})
}

// Height returns the number of committed blocks.
func (l *Ledger) Height() (uint64, error) {
	var height uint64

	err := l.View(func(r store.Readable) error {
		var err error
		height, err = readHeight(prefixed.NewReadable(StorePrefix, r))
		return err
	})

	if err != nil {
		return 0, err
	}

	return height, nil
}

// GetBlock returns the block at the given index, or nil if it does not exist.
func (l *Ledger) GetBlock(index uint64) (*Block, error) {
	var block *Block

	err := l.View(func(r store.Readable) error {
		data, err := prefixed.NewReadable(StorePrefix, r).Get(blockKey(index))
		if err != nil {
			return xerrors.Errorf("failed to read block: %v", err)
		}

		if data == nil {
			return nil
		}

		block = &Block{}
		err = json.Unmarshal(data, block)
		if err != nil {
			return xerrors.Errorf("failed to decode block: %v", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return block, nil
}

// Blocks returns the committed blocks in order.
func (l *Ledger) Blocks() ([]Block, error) {
	prefix := prefixed.NewPrefixedKey([]byte(StorePrefix+string(prefixed.Separator)), blockPrefix)

	var blocks []Block

	err := l.db.View(Bucket, func(b kv.Bucket) error {
		return b.Scan(prefix, func(key, value []byte) error {
			var block Block

			err := json.Unmarshal(value, &block)
			if err != nil {
				return xerrors.Errorf("failed to decode block %x: %v", key, err)
			}

			blocks = append(blocks, block)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return blocks, nil
}

func readHeight(r store.Readable) (uint64, error) {
	data, err := r.Get(heightKey)
	if err != nil {
		return 0, xerrors.Errorf("failed to read height: %v", err)
	}

	if len(data) != 8 {
		return 0, nil
	}

	return binary.BigEndian.Uint64(data), nil
}

func writeBlock(w store.Writable, height uint64, tx txn.Transaction) error {
	block := Block{
		Index:    height,
		TxID:     hex.EncodeToString(tx.GetID()),
		Identity: tx.GetIdentity().String(),
	}

	data, err := json.Marshal(block)
	if err != nil {
		return xerrors.Errorf("failed to encode block: %v", err)
	}

	err = w.Set(blockKey(height), data)
	if err != nil {
		return xerrors.Errorf("failed to write block: %v", err)
	}

	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, height+1)

	err = w.Set(heightKey, buffer)
	if err != nil {
		return xerrors.Errorf("failed to write height: %v", err)
	}

	return nil
}

func blockKey(index uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], index)

	return key
}
