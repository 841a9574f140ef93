// Package mempool holds transactions that have been admitted by
// txs.Validate and locked against the UTXO store, but not yet finalized,
// evicting the lowest fee-rate entries once the pool's tx-count or
// byte-size bound is exceeded (spec.md §4.2, §6: mempool_tx_max=10000,
// mempool_bytes_max=300_000_000). Grounded on the teacher's
// vms/avm mempool, which applies the same bounded-pool-plus-eviction
// shape to its own UTXO transaction set.
package mempool

import (
	"container/heap"
	"sync"

	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
)

const (
	MaxTxCount = 10_000
	MaxBytes   = 300_000_000
)

type entry struct {
	txid    ids.ID
	tx      *txs.Transaction
	feeRate float64 // fee / size, sats-per-byte equivalent
	size    int
	index   int // heap.Interface bookkeeping
}

// feeHeap is a min-heap on feeRate, so the lowest fee-rate entry — the
// one eviction removes first — is always at the root.
type feeHeap []*entry

func (h feeHeap) Len() int            { return len(h) }
func (h feeHeap) Less(i, j int) bool  { return h[i].feeRate < h[j].feeRate }
func (h feeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *feeHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *feeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Pool is the bounded, fee-rate-ordered transaction pool.
type Pool struct {
	mu        sync.Mutex
	byTxID    map[ids.ID]*entry
	byFeeRate feeHeap
	bytes     int
}

func New() *Pool {
	return &Pool{byTxID: make(map[ids.ID]*entry)}
}

// Add inserts tx, evicting lowest-fee-rate entries as needed to respect
// MaxTxCount/MaxBytes. Returns the txids evicted to make room, if any.
func (p *Pool) Add(txid ids.ID, tx *txs.Transaction, fee uint64) []ids.ID {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byTxID[txid]; exists {
		return nil
	}

	size := approxSize(tx)
	e := &entry{txid: txid, tx: tx, size: size}
	if size > 0 {
		e.feeRate = float64(fee) / float64(size)
	}

	heap.Push(&p.byFeeRate, e)
	p.byTxID[txid] = e
	p.bytes += size

	var evicted []ids.ID
	for (len(p.byTxID) > MaxTxCount || p.bytes > MaxBytes) && p.byFeeRate.Len() > 0 {
		victim := heap.Pop(&p.byFeeRate).(*entry)
		if victim.txid == txid {
			// The transaction we just inserted is itself the
			// lowest fee-rate member: it does not get admitted.
			delete(p.byTxID, txid)
			p.bytes -= victim.size
			return []ids.ID{txid}
		}
		delete(p.byTxID, victim.txid)
		p.bytes -= victim.size
		evicted = append(evicted, victim.txid)
	}
	return evicted
}

// Remove drops txid from the pool (spec.md §4.2: once a tx reaches
// Archived, it is garbage-collected from in-memory pools).
func (p *Pool) Remove(txid ids.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byTxID[txid]
	if !ok {
		return
	}
	heap.Remove(&p.byFeeRate, e.index)
	delete(p.byTxID, txid)
	p.bytes -= e.size
}

// Get returns the pooled transaction for txid, if present.
func (p *Pool) Get(txid ids.ID) (*txs.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.byTxID[txid]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// TxIDs returns every pooled transaction id, in no particular order —
// the candidate set a slot producer draws from (spec.md §4.7).
func (p *Pool) TxIDs() []ids.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ids.ID, 0, len(p.byTxID))
	for txid := range p.byTxID {
		out = append(out, txid)
	}
	return out
}

// Len and Bytes expose current pool occupancy for getmempoolinfo.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byTxID)
}

func (p *Pool) Bytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}

// approxSize estimates a transaction's encoded size, used for both the
// byte-size bound and fee-rate computation; the exact figure comes from
// txs.Transaction.Encode, but a cheap estimate avoids re-encoding on
// every insertion into a hot pool.
func approxSize(tx *txs.Transaction) int {
	const (
		inputOverhead  = 36 + 4 + 64 // outpoint + sequence + ed25519 sig
		outputOverhead = 8 + 4       // value + a typical scriptPubKey length
	)
	return 12 + len(tx.Inputs)*inputOverhead + len(tx.Outputs)*outputOverhead
}
