// Package address implements the bech32m-encoded validator/wallet
// address format (spec.md §6's bech32 HRP "time"), grounded on
// btcsuite/btcd/btcutil/bech32 the way the teacher's own address
// packages wrap the same library for segwit-style addresses.
package address

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/time-coin/time-core/ids"
)

// HRP is the human-readable prefix for every address this chain mints.
const HRP = "time"

// WitnessVersion is the single supported payload version: a raw 32-byte
// Ed25519 public key (no script hashing, unlike Bitcoin's segwit
// versions — masternode addresses identify a signing key directly).
const WitnessVersion = 0

var (
	ErrWrongHRP        = errors.New("address: unexpected human-readable prefix")
	ErrWrongWitnessVer = errors.New("address: unsupported witness version")
	ErrWrongPayloadLen = errors.New("address: payload is not a 32-byte key")
)

// Encode renders a validator/wallet address as bech32m: HRP 1 + witness
// version + the 32-byte Ed25519 public key.
func Encode(pubKey [32]byte) (string, error) {
	data, err := bech32.ConvertBits(pubKey[:], 8, 5, true)
	if err != nil {
		return "", err
	}
	withVersion := append([]byte{WitnessVersion}, data...)
	return bech32.EncodeM(HRP, withVersion)
}

// Decode parses a bech32m address back into its 32-byte key.
func Decode(addr string) (ids.ID, error) {
	hrp, data, version, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return ids.ID{}, err
	}
	if version != bech32.VersionM {
		return ids.ID{}, errors.New("address: not a bech32m-encoded address")
	}
	if hrp != HRP {
		return ids.ID{}, ErrWrongHRP
	}
	if len(data) == 0 || data[0] != WitnessVersion {
		return ids.ID{}, ErrWrongWitnessVer
	}
	payload, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return ids.ID{}, err
	}
	if len(payload) != 32 {
		return ids.ID{}, ErrWrongPayloadLen
	}
	var id ids.ID
	copy(id[:], payload)
	return id, nil
}
