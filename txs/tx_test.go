package txs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/time-coin/time-core/ids"
)

func sampleTx() *Transaction {
	return &Transaction{
		Version: 1,
		Inputs: []TxInput{
			{Prev: OutPoint{TxID: ids.ID{1}, Index: 0}, ScriptSig: make([]byte, 64), Sequence: 0xffffffff},
		},
		Outputs: []TxOutput{
			{Value: 90_000, ScriptPubKey: make([]byte, 32)},
			{Value: 9_000, ScriptPubKey: make([]byte, 32)},
		},
		Locktime: 0,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tx := sampleTx()
	b, err := Encode(tx)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, tx, got)
}

func TestTxIDIgnoresScriptSig(t *testing.T) {
	tx := sampleTx()
	id1, err := ID(tx)
	require.NoError(t, err)

	tx.Inputs[0].ScriptSig = append([]byte{}, tx.Inputs[0].ScriptSig...)
	tx.Inputs[0].ScriptSig[0] = 0xFF
	id2, err := ID(tx)
	require.NoError(t, err)

	require.Equal(t, id1, id2, "txid must not depend on script_sig bytes")
}

func TestSigHashChangesWithOutputs(t *testing.T) {
	tx := sampleTx()
	sh1, err := SigHash(tx, 0)
	require.NoError(t, err)

	tx.Outputs[0].Value--
	tx.Outputs[1].Value++
	sh2, err := SigHash(tx, 0)
	require.NoError(t, err)

	require.NotEqual(t, sh1, sh2, "mutating outputs after signing must invalidate the sighash (P6)")
}

func TestValidateDust(t *testing.T) {
	tx := sampleTx()
	tx.Outputs = append(tx.Outputs, TxOutput{Value: 100, ScriptPubKey: make([]byte, 32)})

	resolve := func(OutPoint) (uint64, bool) { return 200_000, true }
	err := Validate(tx, resolve, 0)
	require.ErrorIs(t, err, ErrDustOutput)
}

func TestValidateInsufficientFee(t *testing.T) {
	tx := sampleTx()
	resolve := func(OutPoint) (uint64, bool) { return 99_000, true }
	err := Validate(tx, resolve, 0)
	require.ErrorIs(t, err, ErrInsufficientFee)
}

func TestDecodeRejectsOversizeElementCount(t *testing.T) {
	// version(4) + varint prefix 0xFF + a u64 claiming ~1.8e19 inputs.
	payload := []byte{
		0, 0, 0, 0,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	_, err := Decode(payload)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestValidateLocktime(t *testing.T) {
	tx := sampleTx()
	tx.Locktime = 100
	resolve := func(OutPoint) (uint64, bool) { return 200_000, true }
	require.ErrorIs(t, Validate(tx, resolve, 50), ErrNotMature)
	require.NoError(t, Validate(tx, resolve, 100))
}
