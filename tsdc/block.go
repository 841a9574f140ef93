package tsdc

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/ids"
)

var (
	ErrBadSignature  = errors.New("tsdc: block signature does not verify")
	ErrBadVRFProof   = errors.New("tsdc: vrf proof does not verify against producer key")
	ErrMerkleMismatch = errors.New("tsdc: merkle_root does not match included txids")
	ErrFinalizedRootMismatch = errors.New("tsdc: finalized_root does not match included vfp refs")
)

// Header is a checkpoint block's header (spec.md §3).
type Header struct {
	PrevHash      ids.ID
	SlotIndex     uint64
	ProducerAddr  ids.ID
	VRFOutput     [32]byte
	VRFProof      [80]byte
	MerkleRoot    ids.ID // BLAKE3 over txids
	FinalizedRoot ids.ID // BLAKE3 over vfp_refs
	Timestamp     int64
	Signature     []byte
}

// Block is a TSDC checkpoint block (spec.md §3): a header plus the
// txids and VFP hashes it certifies.
type Block struct {
	Header   Header
	TxIDs    []ids.ID
	VFPRefs  []ids.ID
}

func merkleOf(list []ids.ID) ids.ID {
	parts := make([][]byte, len(list))
	for i, id := range list {
		parts[i] = id[:]
	}
	return crypto.HashMulti(parts...)
}

// BuildRoots fills in MerkleRoot/FinalizedRoot from b's txids/vfp_refs.
func (b *Block) BuildRoots() {
	b.Header.MerkleRoot = merkleOf(b.TxIDs)
	b.Header.FinalizedRoot = merkleOf(b.VFPRefs)
}

func (h *Header) signingMessage() []byte {
	var buf [8 + 8]byte
	binary.LittleEndian.PutUint64(buf[0:8], h.SlotIndex)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.Timestamp))
	return crypto.HashMulti(
		h.PrevHash[:], buf[:], h.ProducerAddr[:],
		h.VRFOutput[:], h.VRFProof[:],
		h.MerkleRoot[:], h.FinalizedRoot[:],
	)[:]
}

// Sign fills in h.Signature using the producer's signing key.
func (h *Header) Sign(sk ed25519.PrivateKey) error {
	sig, err := crypto.Sign(sk, h.signingMessage())
	if err != nil {
		return err
	}
	h.Signature = sig
	return nil
}

// Hash identifies this block for prev_hash chaining and fork choice.
func (h *Header) Hash() ids.ID {
	return crypto.HashMulti(h.signingMessage(), h.Signature)
}

// Validate checks b's internal consistency: roots match their contents,
// the VRF proof verifies against the producer's VRF key, and the header
// signature verifies against the producer's signing key (spec.md §3/§4.7).
// It does NOT check the txid-has-a-matching-VFP or outpoint-finalized
// conditions, which require store/snapshot access at the call site.
func (b *Block) Validate(producerSignPK ed25519.PublicKey, producerVRFPK ed25519.PublicKey) error {
	if merkleOf(b.TxIDs) != b.Header.MerkleRoot {
		return ErrMerkleMismatch
	}
	if merkleOf(b.VFPRefs) != b.Header.FinalizedRoot {
		return ErrFinalizedRootMismatch
	}
	ok, err := crypto.Verify(producerSignPK, b.Header.signingMessage(), b.Header.Signature)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadSignature
	}
	beta, ok, err := VerifyEvaluation(producerVRFPK, b.Header.PrevHash, b.Header.SlotIndex, b.Header.VRFProof)
	if err != nil {
		return err
	}
	if !ok || beta != b.Header.VRFOutput {
		return ErrBadVRFProof
	}
	return nil
}
