package ledger

import (
	"encoding/hex"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/agrireg/core/execution"
	"go.dedis.ch/agrireg/core/execution/native"
	"go.dedis.ch/agrireg/core/store"
	"go.dedis.ch/agrireg/core/store/kv"
	"go.dedis.ch/agrireg/core/txn/basic"
	"go.dedis.ch/agrireg/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestLedger_Submit(t *testing.T) {
	l := makeLedger(t)

	tx := makeTx(0, "ok")

	res, err := l.Submit(tx)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)

	block, err := l.GetBlock(0)
	require.NoError(t, err)
	require.Equal(t, &Block{
		Index:    0,
		TxID:     hex.EncodeToString(tx.GetID()),
		Identity: "ST1TEST",
	}, block)

	block, err = l.GetBlock(1)
	require.NoError(t, err)
	require.Nil(t, block)

	err = l.View(func(r store.Readable) error {
		value, err := r.Get([]byte("last"))
		require.NoError(t, err)
		require.Equal(t, []byte{0}, value)
		return nil
	})
	require.NoError(t, err)
}

func TestLedger_SubmitRejected(t *testing.T) {
	l := makeLedger(t)

	res, err := l.Submit(makeTx(0, "reject"))
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, "rejected", res.Message)

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(0), height)

	err = l.View(func(r store.Readable) error {
		value, err := r.Get([]byte("last"))
		require.NoError(t, err)
		require.Nil(t, value)
		return nil
	})
	require.NoError(t, err)

	_, err = l.Submit(makeTx(1, "unknown"))
	require.EqualError(t, err, "failed to execute tx: unknown contract 'unknown'")
}

func TestLedger_HeightIsStepHeight(t *testing.T) {
	l := makeLedger(t)

	for i := 0; i < 3; i++ {
		res, err := l.Submit(makeTx(uint64(i), "ok"))
		require.NoError(t, err)
		require.True(t, res.Accepted)
	}

	err := l.View(func(r store.Readable) error {
		value, err := r.Get([]byte("last"))
		require.NoError(t, err)
		require.Equal(t, []byte{2}, value)
		return nil
	})
	require.NoError(t, err)
}

func TestLedger_ConcurrentSubmit(t *testing.T) {
	l := makeLedger(t)

	n := 20
	wg := sync.WaitGroup{}
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()

			res, err := l.Submit(makeTx(uint64(i), "ok"))
			require.NoError(t, err)
			require.True(t, res.Accepted)
		}(i)
	}

	wg.Wait()

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(n), height)

	for i := 0; i < n; i++ {
		block, err := l.GetBlock(uint64(i))
		require.NoError(t, err)
		require.NotNil(t, block)
		require.Equal(t, uint64(i), block.Index)
	}
}

func TestLedger_Init(t *testing.T) {
	l := makeLedger(t)

	done, err := l.Init("a", func(snap store.Snapshot) error {
		snap.Set([]byte("genesis"), []byte("overwritten"))
		return fake.GetError()
	})
	require.EqualError(t, err, fake.Err("failed to init 'a'"))
	require.False(t, done)

	done, err = l.Init("a", func(snap store.Snapshot) error {
		return snap.Set([]byte("genesis"), []byte("done"))
	})
	require.NoError(t, err)
	require.True(t, done)

	// A second initialization with the same name is skipped.
	done, err = l.Init("a", func(snap store.Snapshot) error {
		return snap.Set([]byte("genesis"), []byte("overwritten"))
	})
	require.NoError(t, err)
	require.False(t, done)

	err = l.View(func(r store.Readable) error {
		value, err := r.Get([]byte("genesis"))
		require.NoError(t, err)
		require.Equal(t, []byte("done"), value)
		return nil
	})
	require.NoError(t, err)

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(0), height)
}

func TestLedger_Blocks(t *testing.T) {
	l := makeLedger(t)

	blocks, err := l.Blocks()
	require.NoError(t, err)
	require.Empty(t, blocks)

	for i := 0; i < 3; i++ {
		_, err := l.Submit(makeTx(uint64(i), "ok"))
		require.NoError(t, err)
	}

	_, err = l.Submit(makeTx(3, "reject"))
	require.NoError(t, err)

	blocks, err = l.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	for i, block := range blocks {
		require.Equal(t, uint64(i), block.Index)
	}
}

func TestLedger_CommitHooks(t *testing.T) {
	db, err := kv.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	defer db.Close()

	calls := &fake.Call{}

	exec := native.NewExecution()
	exec.Set("ok", hookContract{calls: calls})
	exec.Set("reject", hookContract{calls: calls, err: xerrors.New("rejected")})

	l, err := NewLedger(db, exec)
	require.NoError(t, err)

	res, err := l.Submit(makeTx(0, "ok"))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, 1, calls.Len())
	require.Equal(t, uint64(0), calls.Get(0, 0))

	res, err = l.Submit(makeTx(1, "reject"))
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, 1, calls.Len())

	// The commit of the database fails after the execution accepted the
	// transaction.
	l.db = failCommitDB{DB: db}

	_, err = l.Submit(makeTx(1, "ok"))
	require.EqualError(t, err, fake.GetError().Error())
	require.Equal(t, 1, calls.Len())

	l.db = db

	height, err := l.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)
}

func TestNewLedger(t *testing.T) {
	_, err := NewLedger(badDB{}, native.NewExecution())
	require.EqualError(t, err, fake.Err("failed to prepare bucket"))
}

// -----------------------------------------------------------------------------
// Utility functions

func makeLedger(t *testing.T) *Ledger {
	db, err := kv.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	exec := native.NewExecution()
	exec.Set("ok", heightContract{})
	exec.Set("reject", heightContract{err: xerrors.New("rejected")})

	l, err := NewLedger(db, exec)
	require.NoError(t, err)

	return l
}

func makeTx(nonce uint64, contract string) basic.Transaction {
	return basic.NewTransaction(nonce, "ST1TEST",
		basic.WithArg(native.ContractArg, []byte(contract)))
}

// heightContract writes the height it executes at.
type heightContract struct {
	err error
}

func (c heightContract) Execute(snap store.Snapshot, step execution.Step) error {
	err := snap.Set([]byte("last"), []byte{byte(step.Height)})
	if err != nil {
		return err
	}

	return c.err
}

type badDB struct {
	kv.DB
}

func (badDB) Update([]byte, func(kv.Bucket) error) error {
	return fake.GetError()
}

// hookContract defers a call with the height until the commit.
type hookContract struct {
	calls *fake.Call
	err   error
}

func (c hookContract) Execute(snap store.Snapshot, step execution.Step) error {
	step.Commit.OnCommit(func() {
		c.calls.Add(step.Height)
	})

	return c.err
}

// failCommitDB runs the update and then fails so that it is rolled back.
type failCommitDB struct {
	kv.DB
}

func (db failCommitDB) Update(bucket []byte, fn func(kv.Bucket) error) error {
	return db.DB.Update(bucket, func(b kv.Bucket) error {
		err := fn(b)
		if err != nil {
			return err
		}

		return fake.GetError()
	})
}
