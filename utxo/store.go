package utxo

import (
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
)

const numShards = 256

// shardFor maps an outpoint to one of numShards buckets, so unrelated
// outpoints can be locked/read concurrently (spec.md §5: "sharded by key,
// permitting parallel readers and bounded-contention writers").
func shardFor(op txs.OutPoint) int {
	k := op.Key()
	return int(k[0])
}

type shard struct {
	mu      sync.RWMutex
	records map[[36]byte]*State
}

// lockedIndex is an ordered view of currently-Locked outpoints, kept in a
// google/btree.BTreeG so operators/tests can enumerate in-flight locks in
// deterministic order without locking every shard at once.
type lockedIndex struct {
	mu   sync.Mutex
	tree *btree.BTreeG[txs.OutPoint]
}

func newLockedIndex() *lockedIndex {
	return &lockedIndex{
		tree: btree.NewG(32, func(a, b txs.OutPoint) bool { return a.Less(b) }),
	}
}

func (l *lockedIndex) add(op txs.OutPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tree.ReplaceOrInsert(op)
}

func (l *lockedIndex) remove(op txs.OutPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tree.Delete(op)
}

// List returns every currently-Locked outpoint in ascending order.
func (l *lockedIndex) List() []txs.OutPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]txs.OutPoint, 0, l.tree.Len())
	l.tree.Ascend(func(op txs.OutPoint) bool {
		out = append(out, op)
		return true
	})
	return out
}

// Store is the per-outpoint state machine of spec.md §4.3.
type Store struct {
	shards [numShards]*shard
	locked *lockedIndex

	byScriptMu sync.Mutex
	byScript   map[string]map[txs.OutPoint]struct{}
}

func NewStore() *Store {
	s := &Store{
		locked:   newLockedIndex(),
		byScript: make(map[string]map[txs.OutPoint]struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[[36]byte]*State)}
	}
	return s
}

// Create seeds an outpoint directly into Unspent — used when a
// transaction's parent becomes GloballyFinalized and its outputs inherit
// finality (spec.md §3).
func (st *Store) Create(op txs.OutPoint, value uint64, scriptPubKey []byte) {
	sh := st.shards[shardFor(op)]
	sh.mu.Lock()
	sh.records[op.Key()] = &State{
		Status:       Unspent,
		Value:        value,
		ScriptPubKey: scriptPubKey,
	}
	sh.mu.Unlock()

	st.byScriptMu.Lock()
	defer st.byScriptMu.Unlock()
	key := string(scriptPubKey)
	set, ok := st.byScript[key]
	if !ok {
		set = make(map[txs.OutPoint]struct{})
		st.byScript[key] = set
	}
	set[op] = struct{}{}
}

// UnspentByScript returns every outpoint still Unspent under
// scriptPubKey, for listunspent and getbalance (spec.md §6). The index
// is best-effort (an outpoint can still be mid-transition between the
// index update and this read), so each candidate's live status is
// re-checked before being returned.
func (st *Store) UnspentByScript(scriptPubKey []byte) []txs.OutPoint {
	st.byScriptMu.Lock()
	set := st.byScript[string(scriptPubKey)]
	candidates := make([]txs.OutPoint, 0, len(set))
	for op := range set {
		candidates = append(candidates, op)
	}
	st.byScriptMu.Unlock()

	out := make([]txs.OutPoint, 0, len(candidates))
	for _, op := range candidates {
		rec, err := st.GetState(op)
		if err == nil && rec.Status == Unspent {
			out = append(out, op)
		}
	}
	return out
}

// unindexScript drops op from the scriptPubKey index once it leaves
// Unspent; ReleaseLocked adds it back if the lock is released.
func (st *Store) unindexScript(op txs.OutPoint, scriptPubKey []byte) {
	st.byScriptMu.Lock()
	defer st.byScriptMu.Unlock()
	set := st.byScript[string(scriptPubKey)]
	if set == nil {
		return
	}
	delete(set, op)
	if len(set) == 0 {
		delete(st.byScript, string(scriptPubKey))
	}
}

// GetState returns a copy of the outpoint's current record.
func (st *Store) GetState(op txs.OutPoint) (State, error) {
	sh := st.shards[shardFor(op)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.records[op.Key()]
	if !ok {
		return State{}, ErrNotFound
	}
	return *rec, nil
}

// sortedInputs returns tx's inputs sorted by the fixed lexicographic
// (txid, index) order spec.md §4.3 mandates for deadlock-free acquisition.
func sortedInputs(tx *txs.Transaction) []txs.OutPoint {
	ops := tx.InputIDs()
	sort.Slice(ops, func(i, j int) bool { return ops[i].Less(ops[j]) })
	return ops
}

// LockInputs atomically moves every input of tx from Unspent to
// Locked{by=txid}. If any input is not Unspent, no mutation occurs at all
// (P3: lock atomicity) — the implementation acquires shard locks in the
// fixed total order above, checks every input is Unspent, and only then
// commits every transition; any failure releases whatever shard locks it
// had already taken without having written anything.
func (st *Store) LockInputs(txID ids.ID, tx *txs.Transaction, atSlot uint64) error {
	ops := sortedInputs(tx)

	// De-duplicate shard indices so a shard is locked at most once even if
	// multiple outpoints land in it (holding the same *sync.RWMutex twice
	// would deadlock).
	touched := make(map[int]struct{}, len(ops))
	var shardOrder []int
	for _, op := range ops {
		s := shardFor(op)
		if _, ok := touched[s]; !ok {
			touched[s] = struct{}{}
			shardOrder = append(shardOrder, s)
		}
	}
	sort.Ints(shardOrder)

	for _, s := range shardOrder {
		st.shards[s].mu.Lock()
	}
	defer func() {
		for _, s := range shardOrder {
			st.shards[s].mu.Unlock()
		}
	}()

	for _, op := range ops {
		sh := st.shards[shardFor(op)]
		rec, ok := sh.records[op.Key()]
		if !ok {
			return ErrNotFound
		}
		if rec.Status != Unspent {
			return &AlreadyLockedError{OutPoint: op, OtherTx: rec.ByTxID}
		}
	}

	for _, op := range ops {
		sh := st.shards[shardFor(op)]
		rec := sh.records[op.Key()]
		rec.Status = Locked
		rec.ByTxID = txID
		rec.At = atSlot
		st.locked.add(op)
		st.unindexScript(op, rec.ScriptPubKey)
	}
	return nil
}

// ReleaseLocked moves every input of tx back to Unspent. Only permitted
// when the transaction has been definitively displaced by consensus
// (rejected in its conflict set, or superseded on reorg) — the caller, not
// the store, is responsible for that precondition (spec.md §4.3).
func (st *Store) ReleaseLocked(txID ids.ID, tx *txs.Transaction) error {
	ops := tx.InputIDs()
	if err := st.transitionAll(ops, func(rec *State, op txs.OutPoint) error {
		if rec.Status != Locked && rec.Status != LocallyAccepted {
			return ErrUnexpectedState
		}
		if rec.ByTxID != txID {
			return ErrUnexpectedState
		}
		rec.Status = Unspent
		rec.ByTxID = ids.ID{}
		st.locked.remove(op)
		return nil
	}); err != nil {
		return err
	}
	for _, op := range ops {
		if rec, err := st.GetState(op); err == nil {
			st.byScriptMu.Lock()
			set, ok := st.byScript[string(rec.ScriptPubKey)]
			if !ok {
				set = make(map[txs.OutPoint]struct{})
				st.byScript[string(rec.ScriptPubKey)] = set
			}
			set[op] = struct{}{}
			st.byScriptMu.Unlock()
		}
	}
	return nil
}

// PromoteLocallyAccepted moves every input from Locked to LocallyAccepted
// once the Avalanche engine reaches local finality (beta_local, spec.md
// §4.5) for txID.
func (st *Store) PromoteLocallyAccepted(txID ids.ID, tx *txs.Transaction, atSlot uint64) error {
	return st.transitionAll(tx.InputIDs(), func(rec *State, _ txs.OutPoint) error {
		if rec.Status != Locked || rec.ByTxID != txID {
			return ErrUnexpectedState
		}
		rec.Status = LocallyAccepted
		rec.At = atSlot
		return nil
	})
}

// PromoteFinalized moves every input from LocallyAccepted to
// GloballyFinalized once a valid VFP is assembled (spec.md §4.6), and
// creates the transaction's outputs directly into Unspent — outputs
// inherit finality (spec.md §3).
func (st *Store) PromoteFinalized(txID ids.ID, tx *txs.Transaction, vfpHash ids.ID, atSlot uint64) error {
	if err := st.transitionAll(tx.InputIDs(), func(rec *State, op txs.OutPoint) error {
		if rec.Status != LocallyAccepted || rec.ByTxID != txID {
			return ErrUnexpectedState
		}
		rec.Status = GloballyFinalized
		rec.VFPHash = vfpHash
		rec.At = atSlot
		st.locked.remove(op)
		return nil
	}); err != nil {
		return err
	}

	for i, out := range tx.Outputs {
		st.Create(txs.OutPoint{TxID: txID, Index: uint32(i)}, out.Value, out.ScriptPubKey)
	}
	return nil
}

// Archive moves every input from GloballyFinalized to Archived once the
// block containing txID is canonical (spec.md §4.3). By I2, ByTxID is
// already immutable at this point; Archive only ever adds BlockHeight.
func (st *Store) Archive(txID ids.ID, tx *txs.Transaction, height uint64) error {
	return st.transitionAll(tx.InputIDs(), func(rec *State, _ txs.OutPoint) error {
		if rec.Status != GloballyFinalized || rec.ByTxID != txID {
			return ErrUnexpectedState
		}
		rec.Status = Archived
		rec.BlockHeight = height
		return nil
	})
}

// Unarchive reverses Archive during a reorg (spec.md §4.8): outputs return
// to GloballyFinalized and remain eligible for re-inclusion. It is the
// caller's (fork choice's) responsibility to ensure this is only invoked
// for txids that are not present in the winning branch's ancestry.
func (st *Store) Unarchive(txID ids.ID, tx *txs.Transaction) error {
	return st.transitionAll(tx.InputIDs(), func(rec *State, _ txs.OutPoint) error {
		if rec.Status != Archived || rec.ByTxID != txID {
			return ErrUnexpectedState
		}
		rec.Status = GloballyFinalized
		rec.BlockHeight = 0
		return nil
	})
}

// transitionAll applies fn to every outpoint in ops, locking exactly the
// shards involved and validating every record before mutating any of them
// — the same all-or-nothing discipline LockInputs uses, reused by every
// later transition in the matrix (spec.md §4.3 table).
func (st *Store) transitionAll(ops []txs.OutPoint, fn func(rec *State, op txs.OutPoint) error) error {
	sorted := append([]txs.OutPoint(nil), ops...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	touched := make(map[int]struct{}, len(sorted))
	var shardOrder []int
	for _, op := range sorted {
		s := shardFor(op)
		if _, ok := touched[s]; !ok {
			touched[s] = struct{}{}
			shardOrder = append(shardOrder, s)
		}
	}
	sort.Ints(shardOrder)

	for _, s := range shardOrder {
		st.shards[s].mu.Lock()
	}
	defer func() {
		for _, s := range shardOrder {
			st.shards[s].mu.Unlock()
		}
	}()

	records := make([]*State, len(sorted))
	for i, op := range sorted {
		sh := st.shards[shardFor(op)]
		rec, ok := sh.records[op.Key()]
		if !ok {
			return ErrNotFound
		}
		records[i] = rec
	}
	// Apply fn to copies first so a failing predicate never partially
	// mutates live state — preserves the same atomicity LockInputs gives.
	dryRun := make([]State, len(records))
	for i, rec := range records {
		dryRun[i] = *rec
		if err := fn(&dryRun[i], sorted[i]); err != nil {
			return err
		}
	}
	for i, rec := range records {
		*rec = dryRun[i]
	}
	return nil
}

// LockedOutpoints exposes the ordered lock index for diagnostics and
// reorg bookkeeping.
func (st *Store) LockedOutpoints() []txs.OutPoint {
	return st.locked.List()
}
