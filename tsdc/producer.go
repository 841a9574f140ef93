package tsdc

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/ids"
)

var (
	ErrNotLive    = errors.New("tsdc: this validator is not AVS-live for the slot")
	ErrNoSnapshot = errors.New("tsdc: no AVS snapshot for the slot")
)

// CandidateSource supplies the txids and VFP hashes ready for inclusion
// at a slot boundary (spec.md §4.7: "candidate assembly" pulls from the
// mempool/finality layers; Producer only depends on this narrow struct
// so it stays unit-testable without a live mempool).
type CandidateSource struct {
	TxIDs   []ids.ID
	VFPRefs []ids.ID
}

// Producer builds and signs candidate blocks for a slot (spec.md §4.7).
// Because each validator's VRF output is unknown to everyone else until
// revealed, a validator cannot tell in advance whether it holds the
// globally smallest score: every AVS-live validator evaluates sortition
// and produces its own candidate, and fork choice (package forkchoice)
// resolves which one becomes canonical by cumulative VRF score.
type Producer struct {
	Clock  SlotClock
	AVS    *avs.Manager
	SignSK ed25519.PrivateKey
	VRFSK  ed25519.PrivateKey
	Self   ids.ID
}

// TryProduce evaluates this node's sortition for slot and, if it is
// AVS-live in the slot's snapshot, assembles and signs a candidate block.
func (p *Producer) TryProduce(slot uint64, prevHash ids.ID, candidates CandidateSource) (*Block, error) {
	snap, ok := p.AVS.Snapshot(slot)
	if !ok {
		return nil, ErrNoSnapshot
	}
	if _, live := snap.WeightOf(p.Self); !live {
		return nil, ErrNotLive
	}

	beta, pi, err := Evaluate(p.VRFSK, prevHash, slot)
	if err != nil {
		return nil, err
	}

	block := &Block{TxIDs: candidates.TxIDs, VFPRefs: candidates.VFPRefs}
	block.Header = Header{
		PrevHash:     prevHash,
		SlotIndex:    slot,
		ProducerAddr: p.Self,
		VRFOutput:    beta,
		VRFProof:     pi,
		Timestamp:    time.Now().Unix(),
	}
	block.BuildRoots()
	if err := block.Header.Sign(p.SignSK); err != nil {
		return nil, err
	}
	return block, nil
}
