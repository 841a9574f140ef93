package tsdc

import (
	"crypto/ed25519"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/ids"
)

func TestProducerBuildsValidatableBlock(t *testing.T) {
	signPK, signSK, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	vrfPK, vrfSK, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	m := avs.NewManager(10)
	self := ids.ID{0x7}
	var v avs.Validator
	v.Address = self
	copy(v.SignPubKey[:], signPK)
	copy(v.VRFPubKey[:], vrfPK)
	v.Stake = 100
	v.Tier = avs.Bronze
	m.RegisterValidator(v)

	hb := &avs.Heartbeat{Validator: self, Seq: 0, SlotIndex: 1}
	require.NoError(t, hb.Sign(signSK))
	require.NoError(t, m.RecordHeartbeat(hb, 1000))
	for i := 0; i < avs.WitnessMin; i++ {
		wpk, wsk, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		var wv avs.Validator
		wv.Address[0] = byte(i + 100)
		copy(wv.SignPubKey[:], wpk)
		m.RegisterValidator(wv)
		att := &avs.WitnessAttestation{Witness: wv.Address, HeartbeatHash: hb.Hash(), SlotIndex: 1}
		require.NoError(t, att.Sign(wsk))
		require.NoError(t, m.RecordWitness(att, wv.SignPubKey[:], self))
	}
	m.BuildSnapshot(1, 1000)

	p := &Producer{AVS: m, SignSK: signSK, VRFSK: vrfSK, Self: self}

	block, err := p.TryProduce(1, ids.ID{}, CandidateSource{
		TxIDs:   []ids.ID{{0x1}, {0x2}},
		VFPRefs: []ids.ID{{0x9}},
	})
	require.NoError(t, err)
	require.NoError(t, block.Validate(signPK, vrfPK))
}

func TestLeaderPicksSmallestScore(t *testing.T) {
	a, b := ids.ID{1}, ids.ID{2}
	candidates := map[ids.ID]*uint256.Int{
		a: uint256.NewInt(100),
		b: uint256.NewInt(50),
	}
	winner, ok := Leader(candidates)
	require.True(t, ok)
	require.Equal(t, b, winner)
}
