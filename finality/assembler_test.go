package finality

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/ids"
)

type keyed struct {
	v  avs.Validator
	sk ed25519.PrivateKey
}

func newKeyedValidator(t *testing.T, addrByte byte, stake uint64) keyed {
	pk, sk, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var v avs.Validator
	v.Address[0] = addrByte
	copy(v.SignPubKey[:], pk)
	v.Stake = stake
	v.Tier = avs.Bronze
	return keyed{v, sk}
}

type captureSink struct {
	proofs []*VFP
}

func (c *captureSink) OnFinalityProof(p *VFP) { c.proofs = append(c.proofs, p) }

func TestAssemblerEmitsVFPAtTwoThirdsQuorum(t *testing.T) {
	m := avs.NewManager(10)
	validators := []keyed{
		newKeyedValidator(t, 1, 100),
		newKeyedValidator(t, 2, 100),
		newKeyedValidator(t, 3, 100),
	}
	for _, kv := range validators {
		m.RegisterValidator(kv.v)
	}
	// Go through the real heartbeat/witness liveness path: BuildSnapshot only
	// includes AVS-live validators, so give each one a self-consistent
	// liveness history before snapshotting.
	for _, kv := range validators {
		hb := &avs.Heartbeat{Validator: kv.v.Address, Seq: 0, SlotIndex: 1}
		require.NoError(t, hb.Sign(kv.sk))
		require.NoError(t, m.RecordHeartbeat(hb, 1000))
	}
	// WitnessMin=3 distinct witnesses are required per heartbeat; use a
	// dedicated pool of witnesses (zero stake, so they don't affect the
	// finality-weight math) rather than the three voting validators.
	extra := []keyed{newKeyedValidator(t, 10, 0), newKeyedValidator(t, 11, 0), newKeyedValidator(t, 12, 0)}
	for _, e := range extra {
		m.RegisterValidator(e.v)
	}
	for _, kv := range validators {
		hbHash := mustHash(t, m, kv)
		for _, w := range extra {
			att := &avs.WitnessAttestation{Witness: w.v.Address, HeartbeatHash: hbHash, SlotIndex: 1}
			require.NoError(t, att.Sign(w.sk))
			require.NoError(t, m.RecordWitness(att, w.v.SignPubKey[:], kv.v.Address))
		}
	}

	m.BuildSnapshot(1, 1000)

	sink := &captureSink{}
	asm := NewAssembler(m, sink)

	txid := ids.ID{0x42}

	v1 := Vote{TxID: txid, Voter: validators[0].v.Address, SlotIndex: 1}
	require.NoError(t, v1.Sign(validators[0].sk))
	require.NoError(t, asm.AddVote(v1))
	require.Empty(t, sink.proofs, "one of three validators is not yet 2/3 weight")

	v2 := Vote{TxID: txid, Voter: validators[1].v.Address, SlotIndex: 1}
	require.NoError(t, v2.Sign(validators[1].sk))
	require.NoError(t, asm.AddVote(v2))
	require.Len(t, sink.proofs, 1, "two of three equal-weight validators crosses 2/3")

	require.NoError(t, Validate(sink.proofs[0], mustSnapshot(t, m), m.PublicKey))
}

func mustHash(t *testing.T, m *avs.Manager, kv keyed) ids.ID {
	hb := &avs.Heartbeat{Validator: kv.v.Address, Seq: 0, SlotIndex: 1}
	require.NoError(t, hb.Sign(kv.sk))
	return hb.Hash()
}

func mustSnapshot(t *testing.T, m *avs.Manager) *avs.Snapshot {
	s, ok := m.Snapshot(1)
	require.True(t, ok)
	return s
}
