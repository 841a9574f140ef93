package avs

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/time-coin/time-core/ids"
)

// Snapshot is S_t from spec.md §3: the immutable, authoritative voter set
// for VFPs anchored to slot t. Snapshots are addressed by slot_index, not
// by pointer, so votes/validators can reference them by id (spec.md §9).
type Snapshot struct {
	SlotIndex uint64
	Weights   map[ids.ID]uint64
	Total     uint64
}

// TotalWeight returns total_weight(S_t) (spec.md §3).
func (s *Snapshot) TotalWeight() uint64 { return s.Total }

// WeightOf returns a validator's effective weight in this snapshot, and
// whether it is present at all (I4: VFP validity requires every voter be
// present in the snapshot it claims to be anchored to).
func (s *Snapshot) WeightOf(addr ids.ID) (uint64, bool) {
	w, ok := s.Weights[addr]
	return w, ok
}

// SnapshotIndex retains the last retentionSlots snapshots (spec.md §4.4:
// "retained for at least 100 slots"), backed by an LRU so old,
// unreferenced snapshots are evicted automatically. It also keeps a pin
// count per slot; the LRU's eviction does not consult that count, so a
// pinned snapshot is evicted like any other once retentionSlots newer or
// more recently used snapshots are held.
type SnapshotIndex struct {
	mu   sync.Mutex
	lru  *lru.Cache
	pins map[uint64]int
}

func NewSnapshotIndex(retentionSlots int) *SnapshotIndex {
	if retentionSlots <= 0 {
		retentionSlots = 100
	}
	c, _ := lru.New(retentionSlots)
	return &SnapshotIndex{lru: c, pins: make(map[uint64]int)}
}

func (idx *SnapshotIndex) Put(s *Snapshot) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.lru.Add(s.SlotIndex, s)
}

func (idx *SnapshotIndex) Get(slotIndex uint64) (*Snapshot, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	v, ok := idx.lru.Get(slotIndex)
	if !ok {
		return nil, false
	}
	return v.(*Snapshot), true
}

// Pin increments slotIndex's pin count. Because the underlying LRU has no
// pin-aware eviction policy of its own, the count does not prevent
// eviction; Pin only re-touches the entry so it becomes the most recently
// used one; callers with long-lived references should still
// call Unpin once the VFP they were waiting on lands.
func (idx *SnapshotIndex) Pin(slotIndex uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pins[slotIndex]++
	idx.lru.Get(slotIndex) // touch
}

func (idx *SnapshotIndex) Unpin(slotIndex uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.pins[slotIndex] > 0 {
		idx.pins[slotIndex]--
		if idx.pins[slotIndex] == 0 {
			delete(idx.pins, slotIndex)
		}
	}
}

// Pinned reports whether slotIndex currently has an outstanding pin.
func (idx *SnapshotIndex) Pinned(slotIndex uint64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.pins[slotIndex] > 0
}
