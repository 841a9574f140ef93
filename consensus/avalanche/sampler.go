// Package avalanche drives conflict sets (consensus/snowball) to a
// decision by repeatedly sampling the Active Validator Set, querying the
// sample, and applying the quorum/confidence rule of spec.md §4.5. It is
// adapted from the teacher's snow/consensus/avalanche.Consensus round
// driver, generalized from the teacher's DAG-vertex model down to the
// flat per-conflict-set model spec.md names (see DESIGN.md).
package avalanche

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/ids"
)

var errInsufficientValidators = errors.New("avalanche: not enough live validators in snapshot to sample k")

// ErrUnknownConflictSet is returned when a caller asks to drive a round
// for a conflict set id the engine's registry has never seen.
var ErrUnknownConflictSet = errors.New("avalanche: unknown conflict set")

// Sample draws k distinct validator addresses from snapshot without
// replacement, weighted by effective stake (spec.md §4.5: "k validators
// sampled with probability proportional to effective weight"). rng is
// injected so tests can make sampling deterministic.
func Sample(snapshot *avs.Snapshot, k int, rng *rand.Rand) ([]ids.ID, error) {
	addrs := make([]ids.ID, 0, len(snapshot.Weights))
	weights := make([]float64, 0, len(snapshot.Weights))
	for addr, w := range snapshot.Weights {
		addrs = append(addrs, addr)
		weights = append(weights, float64(w))
	}
	if len(addrs) < k {
		return nil, errInsufficientValidators
	}

	idx := make([]int, k)
	wrs := sampleuv.NewWeighted(weights, rng)
	picked := make(map[int]struct{}, k)
	for i := 0; i < k; {
		j, ok := wrs.Take()
		if !ok {
			return nil, errInsufficientValidators
		}
		if _, dup := picked[j]; dup {
			continue
		}
		picked[j] = struct{}{}
		idx[i] = j
		i++
	}

	out := make([]ids.ID, k)
	for i, j := range idx {
		out[i] = addrs[j]
	}
	return out, nil
}
