// Package crypto implements the C1 primitives: BLAKE3 commitment hashing,
// Ed25519 sign/verify, and ECVRF (RFC 9381, Edwards25519-SHA512-TAI)
// evaluate/verify. Every signature-heavy call path is expected to be
// dispatched through Pool (pool.go) rather than called inline on an async
// task goroutine.
package crypto

import (
	"crypto/sha256"

	"github.com/time-coin/time-core/ids"
	"github.com/zeebo/blake3"
)

// Hash computes the internal commitment hash used everywhere in the core:
// BLAKE3-256 truncated to ids.IDLen bytes (BLAKE3's native output is
// already 32 bytes at default length, so no truncation actually occurs —
// the spec's "[0..32]" wording is satisfied exactly).
func Hash(msg []byte) ids.ID {
	sum := blake3.Sum256(msg)
	return ids.ID(sum)
}

// HashMulti hashes the concatenation of several byte slices without an
// intermediate allocation of the joined buffer where avoidable.
func HashMulti(parts ...[]byte) ids.ID {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out ids.ID
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out
}

// SHA256 is provided only for boundary formats that explicitly call for it
// (none of the core's internal commitments do); see spec.md §3.
func SHA256(msg []byte) [32]byte {
	return sha256.Sum256(msg)
}
