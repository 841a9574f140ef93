package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
)

const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
	SignatureSize  = ed25519.SignatureSize
)

// GenerateKey produces a fresh Ed25519 keypair, used by tests and by the
// boundary wallet/CLI collaborator (excluded here) to mint validator keys.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign produces the 64-byte signature over msg required by script_sig
// (spec.md §3) and by every signed protocol payload (heartbeats, witness
// attestations, finality votes, block headers).
func Sign(sk ed25519.PrivateKey, msg []byte) ([]byte, error) {
	if len(sk) != PrivateKeySize {
		return nil, ErrInvalidPrivateKeyLength
	}
	return ed25519.Sign(sk, msg), nil
}

// Verify reports whether sig is a valid Ed25519 signature over msg by pk.
// Verification itself is constant-time (crypto/ed25519 guarantees this).
// A wrong-length key or signature is reported as an error rather than as
// a false bool, matching spec.md §4.1's contract that length/format
// errors are distinguishable failures from a false verify.
func Verify(pk ed25519.PublicKey, msg, sig []byte) (bool, error) {
	if len(pk) != PublicKeySize {
		return false, ErrInvalidPublicKeyLength
	}
	if len(sig) != SignatureSize {
		return false, ErrInvalidSignatureLength
	}
	return ed25519.Verify(pk, msg, sig), nil
}

// VerifyBatchResult is the result of one signature within a VerifyBatch
// call, preserved per-index so batching is observably identical to
// sequential verification (spec.md §4.1: "batching is permitted but
// results must be identical to sequential verification").
type VerifyBatchResult struct {
	Valid bool
	Err   error
}

// VerifyBatch verifies N independent (pk, msg, sig) triples. There is no
// cryptographic batch-verification speedup for plain Ed25519 without an
// extension library the pack does not carry; this performs
// the equivalent sequential verifications, but is still useful as a single
// call site that the blocking pool (pool.go) can dispatch as one unit of
// work instead of N round-trips through the scheduler.
func VerifyBatch(pks []ed25519.PublicKey, msgs [][]byte, sigs [][]byte) []VerifyBatchResult {
	n := len(pks)
	out := make([]VerifyBatchResult, n)
	for i := 0; i < n; i++ {
		ok, err := Verify(pks[i], msgs[i], sigs[i])
		out[i] = VerifyBatchResult{Valid: ok, Err: err}
	}
	return out
}
