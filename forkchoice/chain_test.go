package forkchoice

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/tsdc"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

func genesisNode() *Node {
	return &Node{Hash: ids.ID{0xFF}, CumulativeScore: uint256.NewInt(0)}
}

func TestForkChoicePrefersLargerFinalizedHeight(t *testing.T) {
	c := NewChain(genesisNode())

	lowHeader := tsdc.Header{PrevHash: ids.ID{0xFF}, SlotIndex: 1}
	lowHash := ids.ID{0x01}
	require.NoError(t, c.AddCandidate(lowHeader, lowHash, ids.NewSet(), false))
	require.Equal(t, lowHash, c.Tip())

	highHeader := tsdc.Header{PrevHash: ids.ID{0xFF}, SlotIndex: 1}
	highHash := ids.ID{0x02}
	require.NoError(t, c.AddCandidate(highHeader, highHash, ids.NewSet(), true))
	require.Equal(t, highHash, c.Tip(), "the branch that advanced finalized height wins")
}

func TestForkChoiceRefusesArchiveCrossing(t *testing.T) {
	c := NewChain(genesisNode())

	archivedTx := ids.ID{0xAA}
	h1 := tsdc.Header{PrevHash: ids.ID{0xFF}, SlotIndex: 1}
	hash1 := ids.ID{0x01}
	require.NoError(t, c.AddCandidate(h1, hash1, ids.NewSet(archivedTx), true))
	require.Equal(t, hash1, c.Tip())

	// A rival branch that does NOT carry archivedTx, at the same finalized
	// height, whose higher tip hash would otherwise win the tie-break.
	h2 := tsdc.Header{PrevHash: ids.ID{0xFF}, SlotIndex: 1}
	hash2 := ids.ID{0x02}
	err := c.AddCandidate(h2, hash2, ids.NewSet(), true)
	require.ErrorIs(t, err, ErrCrossesArchive)
	require.Equal(t, hash1, c.Tip(), "tip must not move on a refused reorg")
}

func TestAddCandidateArchivesFinalizedTxOnTipAdvance(t *testing.T) {
	store := utxo.NewStore()
	op := txs.OutPoint{TxID: ids.ID{0x10}, Index: 0}
	store.Create(op, 1000, []byte("pk"))

	txid := ids.ID{0x20}
	tx := &txs.Transaction{
		Inputs:  []txs.TxInput{{Prev: op}},
		Outputs: []txs.TxOutput{{Value: 900, ScriptPubKey: []byte("pk2")}},
	}
	require.NoError(t, store.LockInputs(txid, tx, 0))
	require.NoError(t, store.PromoteLocallyAccepted(txid, tx, 0))
	require.NoError(t, store.PromoteFinalized(txid, tx, ids.ID{0x99}, 0))

	lookup := func(id ids.ID) (*txs.Transaction, bool) {
		if id == txid {
			return tx, true
		}
		return nil, false
	}

	c := NewChain(genesisNode())
	c.SetArchiver(store, lookup)

	header := tsdc.Header{PrevHash: ids.ID{0xFF}, SlotIndex: 1}
	hash := ids.ID{0x01}
	require.NoError(t, c.AddCandidate(header, hash, ids.NewSet(txid), true))

	st, err := store.GetState(op)
	require.NoError(t, err)
	require.Equal(t, utxo.Archived, st.Status, "the newly canonical block's txids must be archived")
}
