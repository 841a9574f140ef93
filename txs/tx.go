package txs

import (
	"bytes"

	"github.com/time-coin/time-core/ids"
)

// DustThreshold and MinFee are the admission constants from spec.md §4.2
// / §6. Validate always uses these values; config.Config's dust_threshold
// and min_fee keys are not passed to it.
const (
	DustThreshold = 546
	MinFee        = 1000
)

// minInputSize and minOutputSize are the smallest possible encoded size
// of a TxInput/TxOutput (empty script_sig/script_pubkey), used to cap a
// decoded element count against what the remaining input could actually
// hold.
const (
	minInputSize  = 36 + 1 + 4 // outpoint + empty script_sig varint + sequence
	minOutputSize = 8 + 1      // value + empty script_pubkey varint
)

// OutPoint identifies a single transaction output: (txid, index).
type OutPoint struct {
	TxID  ids.ID
	Index uint32
}

// Key returns a byte-comparable, lexicographically-orderable encoding of
// the outpoint, used both as a map key and as the sort key the UTXO store
// uses to acquire per-shard locks in a fixed total order (spec.md §4.3).
func (o OutPoint) Key() [36]byte {
	var k [36]byte
	copy(k[:32], o.TxID[:])
	k[32] = byte(o.Index >> 24)
	k[33] = byte(o.Index >> 16)
	k[34] = byte(o.Index >> 8)
	k[35] = byte(o.Index)
	return k
}

// Less gives OutPoints the lexicographic-on-(txid,index) total order
// spec.md §4.3 requires for deadlock-free multi-input locking.
func (o OutPoint) Less(other OutPoint) bool {
	ka, kb := o.Key(), other.Key()
	return bytes.Compare(ka[:], kb[:]) < 0
}

func (o OutPoint) encode(w *bytes.Buffer) error {
	if err := writeBytes(w, o.TxID[:]); err != nil {
		return err
	}
	return writeUint32(w, o.Index)
}

func decodeOutPoint(r *bytes.Reader) (OutPoint, error) {
	var o OutPoint
	txidBytes, err := readBytes(r, ids.IDLen)
	if err != nil {
		return o, err
	}
	txid, err := ids.ToID(txidBytes)
	if err != nil {
		return o, ErrMalformed
	}
	index, err := readUint32(r)
	if err != nil {
		return o, err
	}
	o.TxID, o.Index = txid, index
	return o, nil
}

// TxInput spends a prior output.
type TxInput struct {
	Prev      OutPoint
	ScriptSig []byte // 64-byte Ed25519 signature over the input's sighash
	Sequence  uint32
}

func (in *TxInput) encode(w *bytes.Buffer, emptyScriptSig bool) error {
	if err := in.Prev.encode(w); err != nil {
		return err
	}
	script := in.ScriptSig
	if emptyScriptSig {
		script = nil
	}
	if err := writeBytes(w, script); err != nil {
		return err
	}
	return writeUint32(w, in.Sequence)
}

func decodeInput(r *bytes.Reader) (TxInput, error) {
	var in TxInput
	prev, err := decodeOutPoint(r)
	if err != nil {
		return in, err
	}
	script, err := readBytes(r, MaxTxBytes)
	if err != nil {
		return in, err
	}
	seq, err := readUint32(r)
	if err != nil {
		return in, err
	}
	in.Prev, in.ScriptSig, in.Sequence = prev, script, seq
	return in, nil
}

// TxOutput creates spendable value. ScriptPubKey is, in the standard case,
// a 32-byte Ed25519 public key (spec.md §3).
type TxOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

func (out *TxOutput) encode(w *bytes.Buffer) error {
	if err := writeUint64(w, out.Value); err != nil {
		return err
	}
	return writeBytes(w, out.ScriptPubKey)
}

func decodeOutput(r *bytes.Reader) (TxOutput, error) {
	var out TxOutput
	value, err := readUint64(r)
	if err != nil {
		return out, err
	}
	spk, err := readBytes(r, MaxTxBytes)
	if err != nil {
		return out, err
	}
	out.Value, out.ScriptPubKey = value, spk
	return out, nil
}

// Transaction is the canonical UTXO transaction (spec.md §3).
type Transaction struct {
	Version  uint32
	Inputs   []TxInput
	Outputs  []TxOutput
	Locktime uint32
}

// encode writes the canonical little-endian serialization. When
// emptyScriptSigs is true, every input's script_sig is written as a
// zero-length field — the form txid hashes over (spec.md §3).
func (tx *Transaction) encode(emptyScriptSigs bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeUint32(&buf, tx.Version); err != nil {
		return nil, err
	}
	if err := writeVarint(&buf, uint64(len(tx.Inputs))); err != nil {
		return nil, err
	}
	for i := range tx.Inputs {
		if err := tx.Inputs[i].encode(&buf, emptyScriptSigs); err != nil {
			return nil, err
		}
	}
	if err := writeVarint(&buf, uint64(len(tx.Outputs))); err != nil {
		return nil, err
	}
	for i := range tx.Outputs {
		if err := tx.Outputs[i].encode(&buf); err != nil {
			return nil, err
		}
	}
	if err := writeUint32(&buf, tx.Locktime); err != nil {
		return nil, err
	}
	if buf.Len() > MaxTxBytes {
		return nil, ErrMalformed
	}
	return buf.Bytes(), nil
}

// Encode produces the wire/storage representation of tx, script_sigs
// included.
func Encode(tx *Transaction) ([]byte, error) {
	return tx.encode(false)
}

// Decode parses the wire representation produced by Encode. Decode(Encode(tx))
// reproduces tx field-for-field (spec.md §8 round-trip law).
func Decode(b []byte) (*Transaction, error) {
	if len(b) > MaxTxBytes {
		return nil, ErrMalformed
	}
	r := bytes.NewReader(b)
	tx := &Transaction{}

	version, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	tx.Version = version

	numInputs, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	// Bound the slice allocation against what the remaining bytes could
	// actually encode: an untrusted varint count (up to 2^64-1) sized
	// straight into make() lets a few wire bytes request an
	// exabyte-scale allocation.
	if numInputs > uint64(r.Len())/minInputSize {
		return nil, ErrMalformed
	}
	tx.Inputs = make([]TxInput, numInputs)
	for i := range tx.Inputs {
		in, err := decodeInput(r)
		if err != nil {
			return nil, err
		}
		tx.Inputs[i] = in
	}

	numOutputs, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if numOutputs > uint64(r.Len())/minOutputSize {
		return nil, ErrMalformed
	}
	tx.Outputs = make([]TxOutput, numOutputs)
	for i := range tx.Outputs {
		out, err := decodeOutput(r)
		if err != nil {
			return nil, err
		}
		tx.Outputs[i] = out
	}

	locktime, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	tx.Locktime = locktime

	if r.Len() != 0 {
		return nil, ErrMalformed
	}
	return tx, nil
}

// InputIDs returns the outpoints tx spends, used to build conflict sets
// (two transactions conflict iff InputIDs() intersect).
func (tx *Transaction) InputIDs() []OutPoint {
	out := make([]OutPoint, len(tx.Inputs))
	for i := range tx.Inputs {
		out[i] = tx.Inputs[i].Prev
	}
	return out
}
