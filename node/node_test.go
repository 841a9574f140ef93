package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/time-coin/time-core/finality"
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

func newTestNode() *Node {
	return &Node{
		Store:  utxo.NewStore(),
		txByID: make(map[ids.ID]*txs.Transaction),
	}
}

func TestConflictingFinalizedTxDetectsDoubleSpend(t *testing.T) {
	n := newTestNode()
	op := txs.OutPoint{TxID: ids.ID{0x01}, Index: 0}
	n.Store.Create(op, 1000, []byte("pk"))

	winner := ids.ID{0x10}
	winnerTx := &txs.Transaction{
		Inputs:  []txs.TxInput{{Prev: op}},
		Outputs: []txs.TxOutput{{Value: 900, ScriptPubKey: []byte("a")}},
	}
	require.NoError(t, n.Store.LockInputs(winner, winnerTx, 0))
	require.NoError(t, n.Store.PromoteLocallyAccepted(winner, winnerTx, 0))
	require.NoError(t, n.Store.PromoteFinalized(winner, winnerTx, ids.ID{0xAA}, 0))

	rival := ids.ID{0x20}
	rivalTx := &txs.Transaction{Inputs: []txs.TxInput{{Prev: op}}}

	other, conflict := n.conflictingFinalizedTx(rival, rivalTx)
	require.True(t, conflict, "a second VFP over an outpoint already finalized by another tx must be flagged")
	require.Equal(t, winner, other)
}

func TestFinalizedVFPHashRequiresGloballyFinalized(t *testing.T) {
	n := newTestNode()
	op := txs.OutPoint{TxID: ids.ID{0x01}, Index: 0}
	n.Store.Create(op, 1000, []byte("pk"))

	txid := ids.ID{0x10}
	tx := &txs.Transaction{
		Inputs:  []txs.TxInput{{Prev: op}},
		Outputs: []txs.TxOutput{{Value: 900, ScriptPubKey: []byte("a")}},
	}

	_, ok := n.finalizedVFPHash(txid, tx)
	require.False(t, ok, "not yet locked")

	require.NoError(t, n.Store.LockInputs(txid, tx, 0))
	require.NoError(t, n.Store.PromoteLocallyAccepted(txid, tx, 0))
	_, ok = n.finalizedVFPHash(txid, tx)
	require.False(t, ok, "LocallyAccepted is not yet finalized")

	vfpHash := ids.ID{0xBB}
	require.NoError(t, n.Store.PromoteFinalized(txid, tx, vfpHash, 0))
	got, ok := n.finalizedVFPHash(txid, tx)
	require.True(t, ok)
	require.Equal(t, vfpHash, got)
}

func TestHaltedGatesMutatingEntryPoints(t *testing.T) {
	n := newTestNode()
	n.Halt = finality.NewHaltCoordinator(zap.NewNop(), func(finality.SafetyViolation) {})
	n.Halt.Halt(finality.SafetyViolation{Kind: "test"})

	_, err := n.SubmitTransaction(&txs.Transaction{})
	require.ErrorIs(t, err, ErrHalted)

	_, _, err = n.RunConsensusRound(context.Background(), ids.ID{})
	require.ErrorIs(t, err, ErrHalted)

	_, err = n.TryProduceSlot(0)
	require.ErrorIs(t, err, ErrHalted)

	err = n.AcceptBlock(nil, nil, nil)
	require.ErrorIs(t, err, ErrHalted)
}
