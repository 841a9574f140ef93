package tsdc

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/ids"
)

// alpha builds the ECVRF input for slot sortition: the per-slot seed a
// validator proves over (spec.md §4.7).
func alpha(prevHash ids.ID, slot uint64) []byte {
	var slotBuf [8]byte
	binary.BigEndian.PutUint64(slotBuf[:], slot)
	return crypto.HashMulti(prevHash[:], slotBuf[:])[:]
}

// Evaluate runs ECVRF_prove over the slot's seed and returns the raw
// (beta, pi) pair a candidate block carries in its header. sk is a
// standard 64-byte Ed25519 private key.
func Evaluate(sk ed25519.PrivateKey, prevHash ids.ID, slot uint64) (beta [32]byte, pi [80]byte, err error) {
	return crypto.ECVRFProve(sk, alpha(prevHash, slot))
}

// VerifyEvaluation checks a header's (vrf_output, vrf_proof) against the
// producer's VRF public key and returns the recovered beta.
func VerifyEvaluation(pk ed25519.PublicKey, prevHash ids.ID, slot uint64, pi [80]byte) (beta [32]byte, ok bool, err error) {
	return crypto.ECVRFVerify(pk, alpha(prevHash, slot), pi)
}

// Score computes a validator's sortition score for a slot: beta
// interpreted as a big-endian u256 divided by effective weight, smaller
// wins (spec.md §4.7). Division is performed in u256 space so relative
// ordering across validators with very different weights is exact.
func Score(beta [32]byte, effectiveWeight uint64) *uint256.Int {
	betaInt := new(uint256.Int).SetBytes(beta[:])
	weight := uint256.NewInt(effectiveWeight)
	if weight.IsZero() {
		return uint256.NewInt(0).Not(uint256.NewInt(0)) // max u256: a zero-weight validator never wins
	}
	return new(uint256.Int).Div(betaInt, weight)
}

// MaxU256 is used by fork choice's cumulative-VRF-score tie-break
// (spec.md §4.8: "sum over blocks of (MAX_U256 - beta_as_u256)").
func MaxU256() *uint256.Int {
	max := uint256.NewInt(0)
	return max.Not(max)
}

// ContributionToCumulativeScore returns MAX_U256 - beta_as_u256 for one
// block's VRF output, the per-block term fork choice sums.
func ContributionToCumulativeScore(beta [32]byte) *uint256.Int {
	betaInt := new(uint256.Int).SetBytes(beta[:])
	return new(uint256.Int).Sub(MaxU256(), betaInt)
}

// Leader picks the AVS-live validator with the smallest sortition score
// among candidates (spec.md §4.7: "the canonical producer is the
// AVS-live validator with the smallest score").
func Leader(candidates map[ids.ID]*uint256.Int) (ids.ID, bool) {
	var (
		best    ids.ID
		bestSet bool
		bestVal *uint256.Int
	)
	for addr, score := range candidates {
		if !bestSet || score.Lt(bestVal) || (score.Eq(bestVal) && addr.Less(best)) {
			best, bestVal, bestSet = addr, score, true
		}
	}
	return best, bestSet
}
