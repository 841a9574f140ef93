package crypto

import (
	"crypto/ed25519"

	vrf "github.com/yoseplee/vrf"
)

const (
	// VRFOutputSize is the size of beta, the VRF hash output (spec.md §3,
	// §4.1: 32 bytes).
	VRFOutputSize = 32
	// VRFProofSize is the size of pi, the VRF proof (spec.md §3, §4.1: 80
	// bytes — gamma (32) || c (16) || s (32) per RFC 9381 §5.1.4 for the
	// ed25519-sha512-tai suite).
	VRFProofSize = 80
)

// ECVRFProve evaluates ECVRF-EDWARDS25519-SHA512-TAI (RFC 9381) on alpha with
// sk, returning the verifiable output beta and the proof pi. sk must be a
// standard 64-byte Ed25519 private key (seed||public, as returned by
// crypto/ed25519.GenerateKey); its embedded public key is what
// ecvrf_verify checks proofs against.
func ECVRFProve(sk ed25519.PrivateKey, alpha []byte) (beta [VRFOutputSize]byte, pi [VRFProofSize]byte, err error) {
	if len(sk) != PrivateKeySize {
		err = ErrInvalidPrivateKeyLength
		return
	}
	pk := sk.Public().(ed25519.PublicKey)
	proof, hash, proveErr := vrf.Prove(pk, sk, alpha)
	if proveErr != nil {
		err = wrap("ecvrf prove: " + proveErr.Error())
		return
	}
	if len(proof) != VRFProofSize || len(hash) != VRFOutputSize {
		err = ErrInvalidProofLength
		return
	}
	copy(pi[:], proof)
	copy(beta[:], hash)
	return
}

// ECVRFVerify checks pi against alpha and pk per RFC 9381. On success it
// returns (beta, true, nil) with beta equal to the value ecvrf_prove would
// have produced for the corresponding secret key; ok is false (with a zero
// beta) when the proof does not verify, and err is returned only for
// malformed input (wrong key/proof length), distinguishable from "verifies
// but false" per spec.md §4.1.
func ECVRFVerify(pk ed25519.PublicKey, alpha []byte, pi [VRFProofSize]byte) (beta [VRFOutputSize]byte, ok bool, err error) {
	if len(pk) != PublicKeySize {
		err = ErrInvalidPublicKeyLength
		return
	}
	valid, hash, verifyErr := vrf.Verify(pk, pi[:], alpha)
	if verifyErr != nil {
		err = wrap("ecvrf verify: " + verifyErr.Error())
		return
	}
	if !valid {
		return beta, false, nil
	}
	if len(hash) != VRFOutputSize {
		err = ErrInvalidProofLength
		return
	}
	copy(beta[:], hash)
	return beta, true, nil
}
