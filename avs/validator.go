// Package avs implements the C4 Active Validator Set: heartbeat chains,
// witness attestation, AVS-live liveness, and slot-indexed stake-weighted
// snapshots (spec.md §4.4).
package avs

import "github.com/time-coin/time-core/ids"

// Tier is the masternode collateral tier; each tier carries a fixed weight
// multiplier over raw stake (spec.md §3).
type Tier uint8

const (
	Free Tier = iota
	Bronze
	Silver
	Gold
)

// tierMultiplier implements the {1, 10, 100, 1000} table from spec.md §3.
func (t Tier) multiplier() uint64 {
	switch t {
	case Free:
		return 1
	case Bronze:
		return 10
	case Silver:
		return 100
	case Gold:
		return 1000
	default:
		return 0
	}
}

// Validator is a masternode's static identity plus mutable liveness
// bookkeeping (spec.md §3).
type Validator struct {
	Address     ids.ID
	VRFPubKey   [32]byte
	SignPubKey  [32]byte
	Stake       uint64
	Tier        Tier
	LastHeartbeat uint64 // unix seconds
}

// EffectiveWeight is tier_multiplier * stake_units (spec.md §3).
func (v *Validator) EffectiveWeight() uint64 {
	return v.Tier.multiplier() * v.Stake
}
