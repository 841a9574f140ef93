package snowball

import (
	"sync"

	"github.com/time-coin/time-core/ids"
)

// Member is one transaction competing within a conflict set.
type Member struct {
	TxID ids.ID
	// Locked is true once this member actually holds its input locks
	// (utxo.Store.LockInputs succeeded for it). A member that lost the
	// lock race still joins the conflict set (so it can be revived if the
	// current preference is later rejected) but cannot become preference
	// until Locked becomes true (spec.md §4.5).
	Locked bool
}

// ConflictSet is the Snowball state for one set of mutually-conflicting
// transactions (spec.md §4.5): a preference, a per-member confidence
// counter, and the round-sequencing bookkeeping needed to reset confidence
// when a round is skipped.
type ConflictSet struct {
	mu sync.Mutex // single-writer (the round executor); responders read through the locking accessors (Preference, Sealed, Members)

	ID ids.ID // identifies the conflict set itself (e.g. hash of its first-seen outpoint)

	members map[ids.ID]*Member

	preference         ids.ID
	confidence         map[ids.ID]uint32
	lastPollPreference ids.ID
	lastRoundSeen      map[ids.ID]int // member -> round index confidence was last bumped at
	currentRound       int

	sealed       bool
	acceptedTxID ids.ID
}

// New creates an empty conflict set identified by id.
func New(id ids.ID) *ConflictSet {
	return &ConflictSet{
		ID:            id,
		members:       make(map[ids.ID]*Member),
		confidence:    make(map[ids.ID]uint32),
		lastRoundSeen: make(map[ids.ID]int),
	}
}

// AddMember registers txid as a competitor in this conflict set. If txid
// is locked and either no preference exists yet or txid is
// lexicographically smaller than the current (locked) preference, txid
// becomes the new initial preference — the tie-break rule of spec.md
// §4.5 ("the one with lexicographically smaller txid becomes initial
// preference").
func (cs *ConflictSet) AddMember(txid ids.ID, locked bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.sealed {
		return
	}
	cs.members[txid] = &Member{TxID: txid, Locked: locked}
	if !locked {
		return
	}
	if _, hasPref := cs.members[cs.preference]; cs.preference == ids.Empty || !hasPref || !cs.members[cs.preference].Locked {
		cs.preference = txid
		return
	}
	if txid.Less(cs.preference) {
		cs.preference = txid
	}
}

// MarkLocked flips a member from not-locked to locked once its input
// locks are released-and-reacquired (e.g. the previous preference was
// rejected). It may cause this member to become the new preference under
// the same tie-break rule.
func (cs *ConflictSet) MarkLocked(txid ids.ID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	m, ok := cs.members[txid]
	if !ok || cs.sealed {
		return
	}
	m.Locked = true
	if _, hasPref := cs.members[cs.preference]; cs.preference == ids.Empty || !hasPref || !cs.members[cs.preference].Locked {
		cs.preference = txid
	} else if txid.Less(cs.preference) {
		cs.preference = txid
	}
}

// Preference returns the current Snowball preference (spec.md §4.5).
func (cs *ConflictSet) Preference() ids.ID {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.preference
}

// Members returns a snapshot of every member's (txid, locked) pair, used
// by the responder path (SampleQuery handling needs a consistent view
// without holding the round executor's lock — spec.md §5).
func (cs *ConflictSet) Members() []Member {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]Member, 0, len(cs.members))
	for _, m := range cs.members {
		out = append(out, *m)
	}
	return out
}

func (cs *ConflictSet) Sealed() (bool, ids.ID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.sealed, cs.acceptedTxID
}

// RecordRoundResult applies one round's outcome (spec.md §4.5 steps 3-4):
// if a candidate x received >= alpha valid votes, either bump the
// preference's confidence (x == preference) or switch preference to x
// with confidence reset to 1. A winner that is not a Locked member makes
// no progress. If confidence[preference] then reaches beta_local, the
// conflict set seals. Returns (sealed, acceptedTxID).
//
// winner may be ids.Empty if no candidate reached alpha this round — in
// that case no confidence progress is made (spec.md §4.5 failure modes).
func (cs *ConflictSet) RecordRoundResult(winner ids.ID, betaLocal int) (sealed bool, accepted ids.ID) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.currentRound++
	if cs.sealed {
		return true, cs.acceptedTxID
	}
	if winner == ids.Empty {
		return false, ids.ID{}
	}

	if winner == cs.preference {
		if cs.lastRoundSeen[winner]+1 != cs.currentRound {
			cs.confidence[winner] = 0
		}
		cs.confidence[winner]++
	} else {
		if m, ok := cs.members[winner]; !ok || !m.Locked {
			return false, ids.ID{}
		}
		cs.preference = winner
		cs.confidence[winner] = 1
	}
	cs.lastRoundSeen[winner] = cs.currentRound
	cs.lastPollPreference = winner

	if int(cs.confidence[cs.preference]) >= betaLocal {
		cs.sealed = true
		cs.acceptedTxID = cs.preference
		return true, cs.acceptedTxID
	}
	return false, ids.ID{}
}

// RejectedMembers returns every member other than the accepted winner,
// once sealed — these lose their locks (spec.md §4.5 step 4).
func (cs *ConflictSet) RejectedMembers() []ids.ID {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]ids.ID, 0, len(cs.members))
	for txid := range cs.members {
		if txid != cs.acceptedTxID {
			out = append(out, txid)
		}
	}
	return out
}

// ConfidenceOf exposes the confidence counter for diagnostics/tests.
func (cs *ConflictSet) ConfidenceOf(txid ids.ID) uint32 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.confidence[txid]
}
