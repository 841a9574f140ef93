package message

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/holiman/bloomfilter/v2"

	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/ids"
)

// bloomFPR/bloomCapacity size the dedup filter for spec.md §4.9's target
// (~0.1% false-positive rate).
const (
	bloomFPR      = 0.001
	bloomCapacity = 1_000_000
)

// contentHash folds an envelope's kind, the identifying fields of its
// SampleQuery, FinalityVoteGossip, VFPGossip, BlockBroadcast, Heartbeat or
// WitnessAttestation payload (other payloads contribute nothing), and its
// nonce into one BLAKE3 digest (spec.md §4.9: "deduplicated by (kind, content_hash)").
func contentHash(e *Envelope) ids.ID {
	var kindBuf [1]byte
	kindBuf[0] = byte(e.Kind)
	parts := [][]byte{kindBuf[:]}

	switch {
	case e.SampleQuery != nil:
		parts = append(parts, e.SampleQuery.ConflictSetID[:], e.SampleQuery.Candidate[:])
	case e.FinalityVoteGossip != nil:
		parts = append(parts, e.FinalityVoteGossip.TxID[:], e.FinalityVoteGossip.Voter[:])
	case e.VFPGossip != nil:
		h := e.VFPGossip.Hash()
		parts = append(parts, h[:])
	case e.BlockBroadcast != nil:
		h := e.BlockBroadcast.Header.Hash()
		parts = append(parts, h[:])
	case e.Heartbeat != nil:
		h := e.Heartbeat.Hash()
		parts = append(parts, h[:])
	case e.WitnessAttestation != nil:
		parts = append(parts, e.WitnessAttestation.Witness[:], e.WitnessAttestation.HeartbeatHash[:])
	}

	var nonceBuf [8]byte
	binary.LittleEndian.PutUint64(nonceBuf[:], e.Nonce)
	parts = append(parts, nonceBuf[:])

	return crypto.HashMulti(parts...)
}

// Dedup is a rotating pair of Bloom filters (spec.md §4.9: "rotated
// every 5-10 minutes"): the active filter absorbs new entries while the
// previous one still answers membership queries, so an entry is never
// forgotten mid-rotation.
type Dedup struct {
	mu            sync.Mutex
	active, prior *bloomfilter.Filter
	rotatedAt     time.Time
	period        time.Duration
}

// NewDedup builds a Dedup rotating every period (spec.md §4.9 default:
// 5-10 minutes; callers typically pick 7*time.Minute).
func NewDedup(period time.Duration) *Dedup {
	f, _ := bloomfilter.NewOptimal(bloomCapacity, bloomFPR)
	return &Dedup{active: f, rotatedAt: time.Now(), period: period}
}

// Seen reports whether id has already been observed (in either the
// active or prior filter) and, if not, records it as seen in the active
// filter. Rotation happens lazily on the next call after period elapses.
func (d *Dedup) Seen(id ids.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if time.Since(d.rotatedAt) > d.period {
		f, _ := bloomfilter.NewOptimal(bloomCapacity, bloomFPR)
		d.prior = d.active
		d.active = f
		d.rotatedAt = time.Now()
	}

	key := bloomKey(id)
	if d.active.Contains(key) || (d.prior != nil && d.prior.Contains(key)) {
		return true
	}
	d.active.Add(key)
	return false
}

func bloomKey(id ids.ID) *filterKey {
	return (*filterKey)(&id)
}

// filterKey adapts ids.ID to bloomfilter.Filter's Hashable key interface
// (a 64-bit digest is enough entropy for Bloom membership; the dedup
// hash itself is already a cryptographic digest).
type filterKey ids.ID

func (k *filterKey) Sum64() uint64 {
	return binary.LittleEndian.Uint64(k[:8])
}
