package avalanche

import (
	"context"
	"math/rand"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/consensus/snowball"
	"github.com/time-coin/time-core/errs"
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

// Vote is one validator's answer to a SampleQuery (spec.md §4.5/§5).
type Vote int

const (
	VoteUnknown Vote = iota
	VoteValid
	VoteInvalid
)

// SampleQuery asks a sampled validator for its current preference within
// a conflict set.
type SampleQuery struct {
	ConflictSetID ids.ID
	Candidate     ids.ID // the querier's current preference, being polled for agreement
}

// SampleResponse is a validator's answer, optionally piggybacking a
// FinalityVote for a transaction the validator has already locally
// accepted (spec.md §4.5: "responses piggyback finality votes").
type SampleResponse struct {
	Vote          Vote
	Preference    ids.ID // the responder's own current preference, if it disagrees
	PiggybackedTx ids.ID // non-zero if a FinalityVote is being piggybacked for this tx
}

// Querier sends a SampleQuery to validator and returns its response,
// subject to ctx cancellation/timeout. Implementations live at the
// transport boundary (package message); avalanche only depends on this
// interface so the round driver is transport-agnostic and unit-testable.
type Querier interface {
	Query(ctx context.Context, validator ids.ID, q SampleQuery) (SampleResponse, error)
}

// VoteEmitter hands a locally-accepted conflict-set decision to the
// finality layer (package finality) so it can be turned into a signed
// FinalityVote and gossiped (spec.md §4.6).
type VoteEmitter interface {
	EmitFinalityVote(txid ids.ID, conflictSetID ids.ID)
}

// Engine drives every open conflict set's Snowball state to a decision.
// It mirrors the teacher's avalanche.Consensus round driver, adapted to
// spec.md's flat conflict-set model instead of the teacher's DAG.
type Engine struct {
	Params   snowball.Parameters
	AVS      *avs.Manager
	Store    *utxo.Store
	Querier  Querier
	Emitter  VoteEmitter
	Rand     *rand.Rand
	SlotFunc func() uint64 // current slot index, for snapshot selection

	// TxLookup resolves a conflict set member's txid back to its full
	// Transaction, needed to release the loser's locks via Store once a
	// conflict set seals (spec.md §4.5 step 4).
	TxLookup func(ids.ID) (*txs.Transaction, bool)
}

// NewEngine constructs an Engine with the given parameters. Rand is seeded
// with the fixed source 1, so sampling is deterministic unless the caller
// replaces Engine.Rand.
func NewEngine(params snowball.Parameters, avsMgr *avs.Manager, store *utxo.Store, q Querier, emitter VoteEmitter, slotFunc func() uint64, txLookup func(ids.ID) (*txs.Transaction, bool)) *Engine {
	return &Engine{
		Params:   params,
		AVS:      avsMgr,
		Store:    store,
		Querier:  q,
		Emitter:  emitter,
		Rand:     rand.New(rand.NewSource(1)),
		SlotFunc: slotFunc,
		TxLookup: txLookup,
	}
}

// RunRound executes one Avalanche round against cs (spec.md §4.5 steps
// 1-4): sample k validators from the current AVS snapshot, query each for
// its preference between cs's current preference and the rest of cs's
// members, tally responses, and apply the quorum/confidence rule. Returns
// whether cs sealed this round and, if so, the accepted txid.
func (e *Engine) RunRound(ctx context.Context, cs *snowball.ConflictSet) (sealed bool, accepted ids.ID, err error) {
	if sealed, accepted := cs.Sealed(); sealed {
		return true, accepted, nil
	}

	slot := e.SlotFunc()
	snap, ok := e.AVS.Snapshot(slot)
	if !ok {
		return false, ids.ID{}, errs.ErrSnapshotExpired
	}

	sampled, err := Sample(snap, e.Params.K, e.Rand)
	if err != nil {
		return false, ids.ID{}, err
	}

	roundCtx, cancel := context.WithTimeout(ctx, e.Params.PollTimeout)
	defer cancel()

	preference := cs.Preference()
	tally := ids.NewBag()
	tally.SetThreshold(e.Params.Alpha)

	type result struct {
		resp SampleResponse
		err  error
	}
	results := make(chan result, len(sampled))
	for _, v := range sampled {
		v := v
		go func() {
			resp, qerr := e.Querier.Query(roundCtx, v, SampleQuery{ConflictSetID: cs.ID, Candidate: preference})
			results <- result{resp, qerr}
		}()
	}

	for i := 0; i < len(sampled); i++ {
		r := <-results
		if r.err != nil || r.resp.Vote != VoteValid {
			continue
		}
		vote := preference
		if r.resp.Preference != ids.Empty {
			vote = r.resp.Preference
		}
		tally.Add(vote)
		if r.resp.PiggybackedTx != ids.Empty && e.Emitter != nil {
			e.Emitter.EmitFinalityVote(r.resp.PiggybackedTx, cs.ID)
		}
	}

	winner := ids.ID{}
	for _, candidate := range tally.Threshold().List() {
		winner = candidate
		break
	}

	sealed, accepted = cs.RecordRoundResult(winner, e.Params.BetaLocal)
	if sealed {
		if err := e.Store.PromoteLocallyAccepted(accepted, mustLookup(e.TxLookup, accepted), e.SlotFunc()); err != nil {
			return true, accepted, err
		}
		for _, rejectedTxID := range cs.RejectedMembers() {
			tx, ok := e.TxLookup(rejectedTxID)
			if !ok {
				continue // never locked (lost the initial race) - nothing to release
			}
			_ = e.Store.ReleaseLocked(rejectedTxID, tx)
		}
		if e.Emitter != nil {
			e.Emitter.EmitFinalityVote(accepted, cs.ID)
		}
	}
	return sealed, accepted, nil
}

func mustLookup(lookup func(ids.ID) (*txs.Transaction, bool), txid ids.ID) *txs.Transaction {
	tx, _ := lookup(txid)
	return tx
}

// Responder answers incoming SampleQuery messages on behalf of this node
// (spec.md §5): it reports this node's own preference for the named
// conflict set and, opportunistically, piggybacks a finality vote for any
// member it has already locally accepted.
type Responder struct {
	Registry func(ids.ID) (*snowball.ConflictSet, bool)
}

func (r *Responder) Respond(q SampleQuery) SampleResponse {
	cs, ok := r.Registry(q.ConflictSetID)
	if !ok {
		return SampleResponse{Vote: VoteUnknown}
	}
	if sealed, accepted := cs.Sealed(); sealed {
		return SampleResponse{Vote: VoteValid, Preference: accepted, PiggybackedTx: accepted}
	}
	pref := cs.Preference()
	if pref == ids.Empty {
		return SampleResponse{Vote: VoteUnknown}
	}
	return SampleResponse{Vote: VoteValid, Preference: pref}
}
