package avalanche

import (
	"context"
	"crypto/ed25519"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/consensus/snowball"
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

// allValidQuerier answers every query as Valid with the querier's own
// candidate, simulating a network where the sample unanimously agrees.
type allValidQuerier struct{}

func (allValidQuerier) Query(_ context.Context, _ ids.ID, q SampleQuery) (SampleResponse, error) {
	return SampleResponse{Vote: VoteValid, Preference: q.Candidate}, nil
}

type recordingEmitter struct {
	emitted []ids.ID
}

func (e *recordingEmitter) EmitFinalityVote(txid ids.ID, _ ids.ID) {
	e.emitted = append(e.emitted, txid)
}

// fixedWeightSnapshot registers n validators, brings every one of them to
// AVS-live (a signed heartbeat plus WitnessMin distinct attestations from
// its peers), and builds the slot-1 snapshot the engine samples from.
func fixedWeightSnapshot(t *testing.T, n int) *avs.Manager {
	m := avs.NewManager(100)

	type keyed struct {
		v  avs.Validator
		sk ed25519.PrivateKey
	}
	validators := make([]keyed, n)
	for i := 0; i < n; i++ {
		pk, sk, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		var v avs.Validator
		v.Address[0] = byte(i + 1)
		copy(v.SignPubKey[:], pk)
		v.Stake = 100
		v.Tier = avs.Bronze
		m.RegisterValidator(v)
		validators[i] = keyed{v, sk}
	}

	for i, kv := range validators {
		hb := &avs.Heartbeat{Validator: kv.v.Address, Seq: 0, SlotIndex: 1}
		require.NoError(t, hb.Sign(kv.sk))
		require.NoError(t, m.RecordHeartbeat(hb, 1000))

		for w := 1; w <= avs.WitnessMin; w++ {
			witness := validators[(i+w)%n]
			att := &avs.WitnessAttestation{Witness: witness.v.Address, HeartbeatHash: hb.Hash(), SlotIndex: 1}
			require.NoError(t, att.Sign(witness.sk))
			require.NoError(t, m.RecordWitness(att, witness.v.SignPubKey[:], kv.v.Address))
		}
	}

	m.BuildSnapshot(1, 1000)
	return m
}

func makeTx(t *testing.T, seed byte) (*txs.Transaction, ids.ID) {
	tx := &txs.Transaction{
		Version: 1,
		Inputs: []txs.TxInput{{
			Prev: txs.OutPoint{TxID: ids.ID{seed}, Index: 0},
		}},
		Outputs: []txs.TxOutput{{Value: 10_000, ScriptPubKey: []byte{seed}}},
	}
	txid, err := txs.ID(tx)
	require.NoError(t, err)
	return tx, txid
}

func TestEngineRoundSealsAtBetaLocal(t *testing.T) {
	avsMgr := fixedWeightSnapshot(t, 25)
	store := utxo.NewStore()

	tx, txid := makeTx(t, 1)
	store.Create(tx.Inputs[0].Prev, 20_000, nil)
	require.NoError(t, store.LockInputs(txid, tx, 0))

	cs := snowball.New(ids.ID{0xAA})
	cs.AddMember(txid, true)

	txByID := map[ids.ID]*txs.Transaction{txid: tx}
	emitter := &recordingEmitter{}
	eng := NewEngine(
		snowball.Parameters{K: 5, Alpha: 4, BetaLocal: 3, BetaMax: 20, PollTimeout: 0},
		avsMgr, store, allValidQuerier{}, emitter,
		func() uint64 { return 1 },
		func(id ids.ID) (*txs.Transaction, bool) { tx, ok := txByID[id]; return tx, ok },
	)
	eng.Rand = rand.New(rand.NewSource(42))
	eng.Params.PollTimeout = 1 << 30 // effectively unbounded for this synchronous querier

	var sealed bool
	var accepted ids.ID
	var err error
	for i := 0; i < 5 && !sealed; i++ {
		sealed, accepted, err = eng.RunRound(context.Background(), cs)
		require.NoError(t, err)
	}
	require.True(t, sealed)
	require.Equal(t, txid, accepted)

	st, err := store.GetState(tx.Inputs[0].Prev)
	require.NoError(t, err)
	require.Equal(t, utxo.LocallyAccepted, st.Status)
	require.Contains(t, emitter.emitted, txid)
}

func TestSampleRejectsInsufficientValidators(t *testing.T) {
	avsMgr := fixedWeightSnapshot(t, 3)
	snap, ok := avsMgr.Snapshot(1)
	require.True(t, ok)
	_, err := Sample(snap, 5, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestResponderReportsUnknownForUnregisteredConflictSet(t *testing.T) {
	r := &Responder{Registry: func(ids.ID) (*snowball.ConflictSet, bool) { return nil, false }}
	resp := r.Respond(SampleQuery{ConflictSetID: ids.ID{1}})
	require.Equal(t, VoteUnknown, resp.Vote)
}
