package tsdc

import (
	"crypto/ed25519"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/ids"
)

// TestECVRFEvaluationIsDeterministic is P5: re-evaluating the same
// validator's VRF over the same (prevHash, slot) alpha always reproduces
// the same (beta, pi), and the proof independently verifies to that same
// beta - regardless of how many times it's repeated or which slot/prevHash
// pair is chosen.
func TestECVRFEvaluationIsDeterministic(t *testing.T) {
	vrfPK, vrfSK, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated evaluation and verification agree", prop.ForAll(
		func(prevByte byte, slot uint64) bool {
			prevHash := ids.ID{prevByte}

			beta1, pi1, err := Evaluate(vrfSK, prevHash, slot)
			if err != nil {
				return false
			}
			beta2, pi2, err := Evaluate(vrfSK, prevHash, slot)
			if err != nil {
				return false
			}
			if beta1 != beta2 || pi1 != pi2 {
				return false
			}

			recovered, ok, err := VerifyEvaluation(vrfPK, prevHash, slot, pi1)
			if err != nil || !ok {
				return false
			}
			return recovered == beta1
		},
		gen.UInt8(),
		gen.UInt64(),
	))

	properties.Property("different slots produce different beta outputs with overwhelming probability", prop.ForAll(
		func(prevByte byte, slotA, slotB uint64) bool {
			if slotA == slotB {
				return true
			}
			prevHash := ids.ID{prevByte}
			betaA, _, err := Evaluate(vrfSK, prevHash, slotA)
			if err != nil {
				return false
			}
			betaB, _, err := Evaluate(vrfSK, prevHash, slotB)
			if err != nil {
				return false
			}
			return betaA != betaB
		},
		gen.UInt8(),
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
