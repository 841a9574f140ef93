package utxo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
)

func seedUTXO(st *Store, txid ids.ID, n int) *txs.Transaction {
	tx := &txs.Transaction{Version: 1}
	for i := 0; i < n; i++ {
		op := txs.OutPoint{TxID: txid, Index: uint32(i)}
		st.Create(op, 1000, make([]byte, 32))
		tx.Inputs = append(tx.Inputs, txs.TxInput{Prev: op})
	}
	tx.Outputs = []txs.TxOutput{{Value: 100, ScriptPubKey: make([]byte, 32)}}
	return tx
}

func TestLockInputsAtomic(t *testing.T) {
	st := NewStore()
	base := ids.ID{9}
	tx := seedUTXO(st, base, 3)
	txID := ids.ID{1}

	require.NoError(t, st.LockInputs(txID, tx, 0))
	for _, op := range tx.InputIDs() {
		s, err := st.GetState(op)
		require.NoError(t, err)
		require.Equal(t, Locked, s.Status)
		require.Equal(t, txID, s.ByTxID)
	}
}

func TestLockInputsPartialFailureLeavesNoMutation(t *testing.T) {
	st := NewStore()
	base := ids.ID{9}
	tx := seedUTXO(st, base, 3)

	// Pre-lock the second input with a different tx.
	other := ids.ID{2}
	second := tx.InputIDs()[1]
	require.NoError(t, st.LockInputs(other, &txs.Transaction{Inputs: []txs.TxInput{{Prev: second}}}, 0))

	txID := ids.ID{1}
	err := st.LockInputs(txID, tx, 0)
	require.Error(t, err)

	// The first and third inputs must remain Unspent (P3).
	first := tx.InputIDs()[0]
	third := tx.InputIDs()[2]
	s1, err := st.GetState(first)
	require.NoError(t, err)
	require.Equal(t, Unspent, s1.Status)

	s3, err := st.GetState(third)
	require.NoError(t, err)
	require.Equal(t, Unspent, s3.Status)
}

func TestFullLifecycle(t *testing.T) {
	st := NewStore()
	base := ids.ID{9}
	tx := seedUTXO(st, base, 1)
	txID := ids.ID{1}

	require.NoError(t, st.LockInputs(txID, tx, 0))
	require.NoError(t, st.PromoteLocallyAccepted(txID, tx, 1))
	require.NoError(t, st.PromoteFinalized(txID, tx, ids.ID{0xAA}, 2))

	op := tx.InputIDs()[0]
	s, err := st.GetState(op)
	require.NoError(t, err)
	require.Equal(t, GloballyFinalized, s.Status)
	require.Equal(t, ids.ID{0xAA}, s.VFPHash)

	// Output created by this tx must be Unspent immediately (inherits finality).
	outState, err := st.GetState(txs.OutPoint{TxID: txID, Index: 0})
	require.NoError(t, err)
	require.Equal(t, Unspent, outState.Status)

	require.NoError(t, st.Archive(txID, tx, 42))
	s, err = st.GetState(op)
	require.NoError(t, err)
	require.Equal(t, Archived, s.Status)
	require.Equal(t, uint64(42), s.BlockHeight)
}

// TestConcurrentLockingNoDeadlock exercises many goroutines racing to lock
// overlapping outpoint sets in different orders; the fixed lock-acquisition
// order in LockInputs must prevent deadlock regardless of call order.
func TestConcurrentLockingNoDeadlock(t *testing.T) {
	st := NewStore()
	base := ids.ID{9}
	const n = 8
	ops := make([]txs.OutPoint, n)
	for i := 0; i < n; i++ {
		ops[i] = txs.OutPoint{TxID: base, Index: uint32(i)}
		st.Create(ops[i], 1000, make([]byte, 32))
	}

	var wg sync.WaitGroup
	successCount := make([]int32, 1)
	var mu sync.Mutex
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			a, b := a, b
			wg.Add(1)
			go func() {
				defer wg.Done()
				tx := &txs.Transaction{Inputs: []txs.TxInput{{Prev: ops[b]}, {Prev: ops[a]}}}
				txID := ids.ID(ids.Empty)
				txID[0] = byte(a)
				txID[1] = byte(b)
				if err := st.LockInputs(txID, tx, 0); err == nil {
					mu.Lock()
					successCount[0]++
					mu.Unlock()
				}
			}()
		}
	}
	wg.Wait()
	require.Greater(t, successCount[0], int32(0))
}
