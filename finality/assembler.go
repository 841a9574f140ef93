package finality

import (
	"crypto/ed25519"
	"sync"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/ids"
)

// Sink receives newly-assembled VFPs, typically wired to
// utxo.Store.PromoteFinalized and to gossip (spec.md §4.6).
type Sink interface {
	OnFinalityProof(p *VFP)
}

// Assembler accumulates incoming votes per txid, deduplicating by
// (txid, voter), and emits a VFP the moment the aggregated weight crosses
// the quorum for the vote's anchoring snapshot (spec.md §4.6).
type Assembler struct {
	mu       sync.Mutex
	pending  map[ids.ID]map[ids.ID]Vote // txid -> voter -> vote
	done     ids.Set                    // txids already finalized; further votes are no-ops
	avs      *avs.Manager
	pubKeyOf func(ids.ID) (ed25519.PublicKey, bool)
	sink     Sink
}

func NewAssembler(avsMgr *avs.Manager, sink Sink) *Assembler {
	return &Assembler{
		pending:  make(map[ids.ID]map[ids.ID]Vote),
		done:     ids.NewSet(),
		avs:      avsMgr,
		pubKeyOf: avsMgr.PublicKey,
		sink:     sink,
	}
}

// AddVote records a verified vote and, if this pushes txid's weight past
// quorum, emits a VFP to the sink exactly once.
func (a *Assembler) AddVote(v Vote) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done.Contains(v.TxID) {
		return nil
	}

	pk, ok := a.pubKeyOf(v.Voter)
	if !ok {
		return ErrUnknownVoter
	}
	if err := v.Verify(pk); err != nil {
		return err
	}

	snap, ok := a.avs.Snapshot(v.SlotIndex)
	if !ok {
		return ErrStaleSnapshot
	}
	if _, ok := snap.WeightOf(v.Voter); !ok {
		return ErrUnknownVoter
	}

	votes, ok := a.pending[v.TxID]
	if !ok {
		votes = make(map[ids.ID]Vote)
		a.pending[v.TxID] = votes
	}
	votes[v.Voter] = v // last-write-wins per voter; dedup is the map key itself

	var weight uint64
	list := make([]Vote, 0, len(votes))
	for _, vv := range votes {
		w, _ := snap.WeightOf(vv.Voter)
		weight += w
		list = append(list, vv)
	}

	if weight*QFinalityDenominator < snap.TotalWeight()*QFinalityNumerator {
		return nil
	}

	p := &VFP{TxID: v.TxID, SlotIndex: v.SlotIndex, Votes: list, Weight: weight}
	a.done.Add(v.TxID)
	delete(a.pending, v.TxID)
	if a.sink != nil {
		a.sink.OnFinalityProof(p)
	}
	return nil
}

// Pending reports how many distinct voters have voted for txid so far,
// for diagnostics/tests.
func (a *Assembler) Pending(txid ids.ID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending[txid])
}
