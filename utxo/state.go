// Package utxo implements the C3 UTXO state store: a per-outpoint state
// machine with atomic multi-input locking (spec.md §4.3, invariants I1-I3).
package utxo

import "github.com/time-coin/time-core/ids"

// Status enumerates the five UTXOState variants from spec.md §3.
type Status uint8

const (
	Unspent Status = iota
	Locked
	LocallyAccepted
	GloballyFinalized
	Archived
)

func (s Status) String() string {
	switch s {
	case Unspent:
		return "Unspent"
	case Locked:
		return "Locked"
	case LocallyAccepted:
		return "LocallyAccepted"
	case GloballyFinalized:
		return "GloballyFinalized"
	case Archived:
		return "Archived"
	default:
		return "Unknown"
	}
}

// State is the full per-outpoint record. Fields beyond Status are only
// meaningful for the variants that carry them, mirroring the tagged-union
// shape of spec.md §3's UTXOState.
type State struct {
	Status Status

	ByTxID ids.ID // Locked, LocallyAccepted, GloballyFinalized, Archived

	VFPHash     ids.ID // GloballyFinalized only
	BlockHeight uint64 // Archived only

	At uint64 // slot index the transition happened at (Locked/LocallyAccepted/GloballyFinalized)

	Value        uint64 // the output's own value, once known (creation)
	ScriptPubKey []byte
}
