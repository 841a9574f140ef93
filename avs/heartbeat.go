package avs

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/ids"
)

var (
	ErrBadSequence     = errors.New("avs: heartbeat sequence did not advance")
	ErrChainMismatch   = errors.New("avs: heartbeat does not chain to the previous one")
	ErrBadSignature    = errors.New("avs: heartbeat signature does not verify")
	ErrDuplicateWitness = errors.New("avs: witness attestation from a validator already counted")
	ErrNotRegistered    = errors.New("avs: validator not registered")
)

// Heartbeat is a single link in a validator's append-only liveness chain
// (spec.md §4.4). PrevHeartbeatHash chains to the previous heartbeat to
// prevent an attacker from resetting Seq to fake long-lived liveness.
type Heartbeat struct {
	Validator         ids.ID
	Seq               uint64
	SlotIndex         uint64
	PrevHeartbeatHash ids.ID
	Signature         []byte
}

// signingMessage is the payload a heartbeat's signature covers.
func (h *Heartbeat) signingMessage() []byte {
	var buf [8 + 8]byte
	binary.LittleEndian.PutUint64(buf[0:8], h.Seq)
	binary.LittleEndian.PutUint64(buf[8:16], h.SlotIndex)
	return crypto.HashMulti(h.Validator[:], buf[:], h.PrevHeartbeatHash[:])[:]
}

// Hash identifies this heartbeat for the next one's PrevHeartbeatHash.
func (h *Heartbeat) Hash() ids.ID {
	return crypto.HashMulti(h.signingMessage(), h.Signature)
}

// Sign fills in Signature over this heartbeat's canonical message.
func (h *Heartbeat) Sign(sk ed25519.PrivateKey) error {
	sig, err := crypto.Sign(sk, h.signingMessage())
	if err != nil {
		return err
	}
	h.Signature = sig
	return nil
}

// Verify checks h's signature against pk and that it chains correctly onto
// prev (nil if h is the validator's first heartbeat).
func Verify(h *Heartbeat, pk ed25519.PublicKey, prev *Heartbeat) error {
	ok, err := crypto.Verify(pk, h.signingMessage(), h.Signature)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadSignature
	}
	if prev == nil {
		if h.Seq != 0 {
			return ErrBadSequence
		}
		return nil
	}
	if h.Seq != prev.Seq+1 {
		return ErrBadSequence
	}
	if h.PrevHeartbeatHash != prev.Hash() {
		return ErrChainMismatch
	}
	return nil
}

// WitnessAttestation is another validator vouching that heartbeatHash was
// observed at slotIndex (spec.md §4.4).
type WitnessAttestation struct {
	Witness       ids.ID
	HeartbeatHash ids.ID
	SlotIndex     uint64
	Signature     []byte
}

func (a *WitnessAttestation) signingMessage() []byte {
	var slotBuf [8]byte
	binary.LittleEndian.PutUint64(slotBuf[:], a.SlotIndex)
	return crypto.HashMulti(a.Witness[:], a.HeartbeatHash[:], slotBuf[:])[:]
}

func (a *WitnessAttestation) Sign(sk ed25519.PrivateKey) error {
	sig, err := crypto.Sign(sk, a.signingMessage())
	if err != nil {
		return err
	}
	a.Signature = sig
	return nil
}

func VerifyAttestation(a *WitnessAttestation, pk ed25519.PublicKey) (bool, error) {
	return crypto.Verify(pk, a.signingMessage(), a.Signature)
}
