// Package tsdc implements slot-based checkpoint block production: the
// slot clock, ECVRF leader sortition, candidate assembly, and reward
// split of spec.md §4.7. It is grounded on the teacher's
// vms/proposervm package, which drives block production off a similar
// time-sliced leader schedule, generalized here from the teacher's
// height-indexed proposer window to spec.md's fixed 600-second slot.
package tsdc

import "time"

// SlotSecs is the default slot duration (spec.md §4.7, §6: slot_secs=600).
const SlotSecs = 600

// FutureTolerance bounds how far into the future a received block's slot
// may be before it is rejected outright rather than queued (spec.md
// §4.7: FUTURE_TOLERANCE=5s).
const FutureTolerance = 5 * time.Second

// GraceDefault is the default late-block acceptance window (spec.md
// §4.7: "grace period (default 30s)").
const GraceDefault = 30 * time.Second

// SlotClock converts wall-clock time to slot indices against a fixed
// genesis timestamp (spec.md §4.7: t = floor((now - GENESIS_TS)/SLOT_SECS)).
type SlotClock struct {
	GenesisTS int64 // unix seconds
	SlotSecs  int64
}

func NewSlotClock(genesisTS int64, slotSecs int64) SlotClock {
	if slotSecs <= 0 {
		slotSecs = SlotSecs
	}
	return SlotClock{GenesisTS: genesisTS, SlotSecs: slotSecs}
}

// SlotAt returns the slot index covering wall-clock time now.
func (c SlotClock) SlotAt(now time.Time) uint64 {
	delta := now.Unix() - c.GenesisTS
	if delta < 0 {
		return 0
	}
	return uint64(delta / c.SlotSecs)
}

// StartOf returns the wall-clock instant a slot begins.
func (c SlotClock) StartOf(slot uint64) time.Time {
	return time.Unix(c.GenesisTS+int64(slot)*c.SlotSecs, 0)
}

// DeadlineOf returns the wall-clock instant after which a block for slot
// is considered late (start of slot + the grace period).
func (c SlotClock) DeadlineOf(slot uint64, grace time.Duration) time.Time {
	return c.StartOf(slot).Add(grace)
}

// IsFuture reports whether slot starts more than FutureTolerance beyond
// now, i.e. the block should be rejected rather than merely queued.
func (c SlotClock) IsFuture(slot uint64, now time.Time) bool {
	return c.StartOf(slot).After(now.Add(FutureTolerance))
}
