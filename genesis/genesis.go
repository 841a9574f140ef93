// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis defines the chain's genesis state: its chain id and
// genesis timestamp (spec.md §6), the initial Active Validator Set, and
// the initial UTXO allocation. Adapted from this file's original
// multi-chain platform genesis (network id table, initial staking set,
// initial allocations) down to this module's single UTXO chain.
package genesis

import (
	"errors"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
)

var ErrUnknownNetwork = errors.New("genesis: unknown network name")

// Network names mirror the original mainnet/testnet/local split.
const (
	Mainnet = "mainnet"
	Testnet = "testnet"
	Local   = "local"
)

// Allocation seeds one initial UTXO at genesis.
type Allocation struct {
	Outpoint     txs.OutPoint
	Value        uint64
	ScriptPubKey []byte
}

// State is the complete genesis state for one network.
type State struct {
	ChainID     string
	GenesisTS   int64
	Validators  []avs.Validator
	Allocations []Allocation
}

// Networks holds the hardcoded genesis state per named network. Local is
// intentionally empty — test code builds its own State with explicit
// validators/allocations rather than relying on a baked-in local genesis.
var Networks = map[string]State{
	Mainnet: {ChainID: "time-mainnet-1", GenesisTS: 1_700_000_000},
	Testnet: {ChainID: "time-testnet-1", GenesisTS: 1_700_000_000},
}

// Load returns the genesis state for a named network.
func Load(network string) (State, error) {
	s, ok := Networks[network]
	if !ok {
		return State{}, ErrUnknownNetwork
	}
	return s, nil
}

// GenesisHash identifies a genesis state deterministically; it is the
// zero hash, the PrevHash TSDC's first real block chains from.
func (s State) GenesisHash() ids.ID {
	return ids.ID{}
}
