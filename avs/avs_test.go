package avs

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/ids"
)

func newTestValidator(t *testing.T, addrByte byte) (Validator, ed25519.PrivateKey) {
	signPK, signSK, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var v Validator
	v.Address[0] = addrByte
	copy(v.SignPubKey[:], signPK)
	v.Stake = 100
	v.Tier = Bronze
	return v, signSK
}

func TestAVSLivenessRequiresWitnessThreshold(t *testing.T) {
	m := NewManager(100)
	v, sk := newTestValidator(t, 1)
	m.RegisterValidator(v)

	hb := &Heartbeat{Validator: v.Address, Seq: 0, SlotIndex: 1}
	require.NoError(t, hb.Sign(sk))
	require.NoError(t, m.RecordHeartbeat(hb, 1000))

	require.False(t, m.IsLive(v.Address, 1000), "no witnesses yet")

	for i := 0; i < WitnessMin; i++ {
		wv, wsk := newTestValidator(t, byte(10+i))
		m.RegisterValidator(wv)
		att := &WitnessAttestation{Witness: wv.Address, HeartbeatHash: hb.Hash(), SlotIndex: 1}
		require.NoError(t, att.Sign(wsk))
		require.NoError(t, m.RecordWitness(att, wv.SignPubKey[:], v.Address))
	}

	require.True(t, m.IsLive(v.Address, 1000))
}

func TestAVSLivenessExpiresWithAge(t *testing.T) {
	m := NewManager(100)
	v, sk := newTestValidator(t, 1)
	m.RegisterValidator(v)

	hb := &Heartbeat{Validator: v.Address, Seq: 0, SlotIndex: 1}
	require.NoError(t, hb.Sign(sk))
	require.NoError(t, m.RecordHeartbeat(hb, 1000))
	for i := 0; i < WitnessMin; i++ {
		wv, wsk := newTestValidator(t, byte(10+i))
		m.RegisterValidator(wv)
		att := &WitnessAttestation{Witness: wv.Address, HeartbeatHash: hb.Hash(), SlotIndex: 1}
		require.NoError(t, att.Sign(wsk))
		require.NoError(t, m.RecordWitness(att, wv.SignPubKey[:], v.Address))
	}

	require.True(t, m.IsLive(v.Address, 1000+HeartbeatTTL))
	require.False(t, m.IsLive(v.Address, 1000+HeartbeatTTL+1))
}

func TestByzantineWitnessCannotForgeDistinctAttestations(t *testing.T) {
	m := NewManager(100)
	v, sk := newTestValidator(t, 1)
	m.RegisterValidator(v)
	hb := &Heartbeat{Validator: v.Address, Seq: 0, SlotIndex: 1}
	require.NoError(t, hb.Sign(sk))
	require.NoError(t, m.RecordHeartbeat(hb, 1000))

	attacker, attackerSK := newTestValidator(t, 99)
	m.RegisterValidator(attacker)
	for i := 0; i < WitnessMin; i++ {
		att := &WitnessAttestation{Witness: attacker.Address, HeartbeatHash: hb.Hash(), SlotIndex: 1}
		require.NoError(t, att.Sign(attackerSK))
		require.NoError(t, m.RecordWitness(att, attacker.SignPubKey[:], v.Address))
	}
	// All three attestations came from the same witness address, so the
	// distinct-validator threshold is never met.
	require.False(t, m.IsLive(v.Address, 1000))
}

func TestHeartbeatChainRejectsSequenceReset(t *testing.T) {
	m := NewManager(100)
	v, sk := newTestValidator(t, 1)
	m.RegisterValidator(v)

	hb1 := &Heartbeat{Validator: v.Address, Seq: 0, SlotIndex: 1}
	require.NoError(t, hb1.Sign(sk))
	require.NoError(t, m.RecordHeartbeat(hb1, 1000))

	// An attacker replaying seq 0 again (instead of advancing to 1) must
	// be rejected by the chain check.
	replay := &Heartbeat{Validator: v.Address, Seq: 0, SlotIndex: 2}
	require.NoError(t, replay.Sign(sk))
	require.ErrorIs(t, m.RecordHeartbeat(replay, 1001), ErrBadSequence)
}

func TestSnapshotRetentionAndPin(t *testing.T) {
	idx := NewSnapshotIndex(2)
	idx.Put(&Snapshot{SlotIndex: 1, Weights: map[ids.ID]uint64{}})
	idx.Pin(1)
	idx.Put(&Snapshot{SlotIndex: 2, Weights: map[ids.ID]uint64{}})
	idx.Put(&Snapshot{SlotIndex: 3, Weights: map[ids.ID]uint64{}})

	require.True(t, idx.Pinned(1))
	idx.Unpin(1)
	require.False(t, idx.Pinned(1))
}
