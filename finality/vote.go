// Package finality assembles Verifiable Finality Proofs (spec.md §4.6)
// from individual validator FinalityVotes, the way the teacher's
// platformvm assembles a block's signature set before marking it
// accepted, adapted from per-block BLS aggregation down to per-tx
// Ed25519 votes (BLS aggregation is dropped — a VFP carries individual
// signatures, not an aggregate).
package finality

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/ids"
)

var (
	ErrBadSignature  = errors.New("finality: vote signature does not verify")
	ErrUnknownVoter  = errors.New("finality: voter not present in the named snapshot")
	ErrStaleSnapshot = errors.New("finality: snapshot no longer available")
)

// Vote is one validator's signed claim that txid reached local
// acceptance, anchored to the snapshot it saw at SlotIndex (spec.md §4.6,
// I4).
type Vote struct {
	TxID      ids.ID
	Voter     ids.ID
	SlotIndex uint64 // identifies the snapshot S_t this vote is anchored to
	Signature []byte
}

func (v *Vote) signingMessage() []byte {
	var slotBuf [8]byte
	binary.LittleEndian.PutUint64(slotBuf[:], v.SlotIndex)
	return crypto.HashMulti(v.TxID[:], v.Voter[:], slotBuf[:])[:]
}

// Sign fills in v.Signature using the voter's signing key.
func (v *Vote) Sign(sk ed25519.PrivateKey) error {
	sig, err := crypto.Sign(sk, v.signingMessage())
	if err != nil {
		return err
	}
	v.Signature = sig
	return nil
}

// Verify checks v's signature against pk.
func (v *Vote) Verify(pk ed25519.PublicKey) error {
	ok, err := crypto.Verify(pk, v.signingMessage(), v.Signature)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}

// key identifies a vote for deduplication: (txid, voter) pairs collapse
// to the vote's most recent signature (spec.md §4.6: "at most one vote
// per (txid, voter) counted toward the threshold").
type key struct {
	tx    ids.ID
	voter ids.ID
}
