package tsdc

import "github.com/time-coin/time-core/ids"

// ProducerShareNumerator/Denominator express the producer's 10% cut of
// a slot's subsidy+fees (spec.md §4.7).
const (
	ProducerShareNumerator   = 1
	ProducerShareDenominator = 10
)

// Rewards is the deterministic payout for one slot: the producer's flat
// share plus every AVS-live validator's proportional share of the
// remainder, computed purely from S_t so every honest node derives the
// identical result (spec.md §4.7: "must be identical on every honest
// node").
type Rewards struct {
	Producer ids.ID
	ToEach   map[ids.ID]uint64
}

// Compute splits subsidyPlusFees between the producer (10%) and every
// validator in weights (90%, proportional to effective weight), using
// integer division with the remainder folded into the producer's share
// so the sum always equals subsidyPlusFees exactly.
func Compute(producer ids.ID, subsidyPlusFees uint64, weights map[ids.ID]uint64, totalWeight uint64) Rewards {
	producerShare := subsidyPlusFees * ProducerShareNumerator / ProducerShareDenominator
	remainder := subsidyPlusFees - producerShare

	toEach := make(map[ids.ID]uint64, len(weights))
	var distributed uint64
	if totalWeight > 0 {
		for addr, w := range weights {
			share := remainder * w / totalWeight
			toEach[addr] = share
			distributed += share
		}
	}
	// Integer division leaves dust; the producer absorbs it so totals
	// reconcile exactly (spec.md §4.7 makes no provision for a remainder
	// pool, and silently dropping value would violate conservation).
	producerShare += remainder - distributed
	toEach[producer] += producerShare
	return Rewards{Producer: producer, ToEach: toEach}
}
