package txs

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/ids"
)

var (
	ErrNoInputs       = errors.New("txs: transaction has no inputs")
	ErrNoOutputs      = errors.New("txs: transaction has no outputs")
	ErrDustOutput     = errors.New("txs: output value below dust threshold")
	ErrInsufficientIn = errors.New("txs: sum(inputs) < sum(outputs)")
	ErrInsufficientFee = errors.New("txs: fee below minimum")
	ErrNotMature      = errors.New("txs: locktime not yet reached")
	ErrUnknownInput   = errors.New("txs: resolver has no value for input")
	ErrValueOverflow  = errors.New("txs: output value sum overflows")
)

// ID computes the txid: BLAKE3 over the canonical serialization with every
// input's script_sig zeroed out (spec.md §3). Signing an input never
// changes the tx's own identity.
func ID(tx *Transaction) (ids.ID, error) {
	b, err := tx.encode(true)
	if err != nil {
		return ids.ID{}, err
	}
	return crypto.Hash(b), nil
}

// outputsCommitment is BLAKE3(canonical(outputs)), the half of the sighash
// that binds every input to the full set of outputs (spec.md §3): mutating
// any output after signing changes this commitment and therefore every
// input's sighash, invalidating every existing signature (P6).
func outputsCommitment(tx *Transaction) (ids.ID, error) {
	var buf bytes.Buffer
	if err := writeVarint(&buf, uint64(len(tx.Outputs))); err != nil {
		return ids.ID{}, err
	}
	for i := range tx.Outputs {
		if err := tx.Outputs[i].encode(&buf); err != nil {
			return ids.ID{}, err
		}
	}
	return crypto.Hash(buf.Bytes()), nil
}

// SigHash computes the commitment signed by input i: BLAKE3(txid ||
// u32_le(i) || BLAKE3(canonical(outputs))) (spec.md §3).
func SigHash(tx *Transaction, i int) (ids.ID, error) {
	txid, err := ID(tx)
	if err != nil {
		return ids.ID{}, err
	}
	outCommit, err := outputsCommitment(tx)
	if err != nil {
		return ids.ID{}, err
	}
	var idxBuf [4]byte
	binary.LittleEndian.PutUint32(idxBuf[:], uint32(i))
	return crypto.HashMulti(txid[:], idxBuf[:], outCommit[:]), nil
}

// Resolver answers the value of a prior output, so Fee can be computed
// without the caller handing over full Transaction objects for every
// input (the UTXO store is the usual resolver).
type Resolver func(OutPoint) (uint64, bool)

// Fee returns sum(inputs) - sum(outputs), looking up each input's value via
// resolve. It returns ErrUnknownInput if any input cannot be resolved, and
// ErrInsufficientIn if the outputs spend more than the inputs provide.
func Fee(tx *Transaction, resolve Resolver) (uint64, error) {
	var inSum, outSum uint64
	for _, in := range tx.Inputs {
		v, ok := resolve(in.Prev)
		if !ok {
			return 0, ErrUnknownInput
		}
		inSum += v
	}
	for _, out := range tx.Outputs {
		outSum += out.Value
	}
	if inSum < outSum {
		return 0, ErrInsufficientIn
	}
	return inSum - outSum, nil
}

// Validate checks the structural and fee constraints of spec.md §4.2:
// size already enforced by Decode/encode, at least one input and output,
// dust-free outputs, inputs covering outputs, and fee >= max(MinFee,
// outputs_sum/1000). wallSlot is the current slot index used to check
// locktime admissibility (locktime <= wallSlot).
func Validate(tx *Transaction, resolve Resolver, wallSlot uint64) error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if uint64(tx.Locktime) > wallSlot {
		return ErrNotMature
	}

	var outSum uint64
	for _, out := range tx.Outputs {
		if out.Value > 0 && out.Value < DustThreshold {
			return ErrDustOutput
		}
		if outSum+out.Value < outSum {
			return ErrValueOverflow
		}
		outSum += out.Value
	}

	fee, err := Fee(tx, resolve)
	if err != nil {
		return err
	}
	minFee := MinFee
	if byRate := outSum / 1000; int(byRate) > minFee {
		minFee = int(byRate)
	}
	if fee < uint64(minFee) {
		return ErrInsufficientFee
	}
	return nil
}
