// Package txs implements the C2 transaction & UTXO model: canonical
// encoding, txid/sighash commitments, and the admission constraints from
// spec.md §4.2.
package txs

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrMalformed is returned by Decode for any structurally invalid input
// (short read, bad length prefix, oversize transaction).
var ErrMalformed = errors.New("txs: malformed encoding")

// MaxTxBytes is the tx_bytes_max configuration default (spec.md §4.2, §6).
const MaxTxBytes = 1_000_000

// writeVarint writes a length using the spec's (u8, then u16 if 0xFD, u32
// if 0xFE, u64 if 0xFF) varint scheme — the same prefix convention Bitcoin-
// family formats use and the one spec.md §6 pins byte-for-byte.
func writeVarint(w io.Writer, n uint64) error {
	switch {
	case n < 0xFD:
		return writeUint8(w, uint8(n))
	case n <= 0xFFFF:
		if err := writeUint8(w, 0xFD); err != nil {
			return err
		}
		return writeUint16(w, uint16(n))
	case n <= 0xFFFFFFFF:
		if err := writeUint8(w, 0xFE); err != nil {
			return err
		}
		return writeUint32(w, uint32(n))
	default:
		if err := writeUint8(w, 0xFF); err != nil {
			return err
		}
		return writeUint64(w, n)
	}
}

func readVarint(r io.Reader) (uint64, error) {
	prefix, err := readUint8(r)
	if err != nil {
		return 0, err
	}
	switch prefix {
	case 0xFD:
		v, err := readUint16(r)
		return uint64(v), err
	case 0xFE:
		v, err := readUint32(r)
		return uint64(v), err
	case 0xFF:
		return readUint64(r)
	default:
		return uint64(prefix), nil
	}
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrMalformed
	}
	return b[0], nil
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrMalformed
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrMalformed
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ErrMalformed
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeVarint(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader, max uint64) ([]byte, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if n > max {
		return nil, ErrMalformed
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, ErrMalformed
		}
	}
	return buf, nil
}
