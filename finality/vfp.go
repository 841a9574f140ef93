package finality

import (
	"crypto/ed25519"
	"errors"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/ids"
)

var ErrInsufficientWeight = errors.New("finality: aggregated weight does not meet the finality quorum")

// QFinalityNumerator/Denominator express the 2/3 finality quorum of
// spec.md §4.6 as an exact-rational comparison, avoiding floating point
// near a safety-critical threshold.
const (
	QFinalityNumerator   = 2
	QFinalityDenominator = 3
)

// VFP is a Verifiable Finality Proof: the set of deduplicated votes that
// pushed txid's aggregated weight past the finality quorum within the
// snapshot it is anchored to (spec.md §4.6).
type VFP struct {
	TxID      ids.ID
	SlotIndex uint64
	Votes     []Vote
	Weight    uint64 // sum of WeightOf(voter) for every vote's voter, at assembly time
}

// Hash identifies this VFP (used as utxo.State.VFPHash).
func (p *VFP) Hash() ids.ID {
	parts := make([][]byte, 0, len(p.Votes)+1)
	parts = append(parts, p.TxID[:])
	for _, v := range p.Votes {
		parts = append(parts, v.Voter[:], v.Signature)
	}
	return crypto.HashMulti(parts...)
}

// Validate independently re-verifies every vote in p against snapshot and
// recomputes the aggregated weight, rejecting p unless the recomputed
// weight still meets the quorum (spec.md §4.6: "a VFP's validity does not
// depend on trusting its assembler — any node can independently verify
// it").
func Validate(p *VFP, snapshot *avs.Snapshot, pubKeyOf func(ids.ID) (ed25519.PublicKey, bool)) error {
	if snapshot.SlotIndex != p.SlotIndex {
		return ErrStaleSnapshot
	}

	seen := make(map[ids.ID]struct{}, len(p.Votes))
	var weight uint64
	for _, v := range p.Votes {
		if v.TxID != p.TxID || v.SlotIndex != p.SlotIndex {
			return errors.New("finality: vote does not match VFP context")
		}
		if _, dup := seen[v.Voter]; dup {
			continue // (txid, voter) dedup — a second vote from the same voter adds no weight
		}
		pk, ok := pubKeyOf(v.Voter)
		if !ok {
			return ErrUnknownVoter
		}
		if err := v.Verify(pk); err != nil {
			return err
		}
		w, ok := snapshot.WeightOf(v.Voter)
		if !ok {
			return ErrUnknownVoter
		}
		seen[v.Voter] = struct{}{}
		weight += w
	}

	if weight*QFinalityDenominator < snapshot.TotalWeight()*QFinalityNumerator {
		return ErrInsufficientWeight
	}
	return nil
}
