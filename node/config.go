// Package node wires every consensus, finality, and storage component
// into one running process, the way the teacher's node package wires
// its own chain manager, network, and API router behind a single
// Config struct — generalized here to this module's single UTXO chain
// instead of the teacher's multi-chain platform.
package node

import (
	"crypto/ed25519"
	"fmt"

	"github.com/time-coin/time-core/address"
	"github.com/time-coin/time-core/config"
	"github.com/time-coin/time-core/ids"
)

// Identity is this node's long-lived validator identity: a signing
// keypair (Ed25519, used for block/vote signatures) and a VRF keypair
// (used for TSDC sortition, spec.md §4.7). Both live on disk as raw
// seeds; Address is derived from SignPK the way the teacher derives a
// NodeID from its staking certificate.
type Identity struct {
	SignSK ed25519.PrivateKey
	SignPK ed25519.PublicKey
	VRFSK  ed25519.PrivateKey
	VRFPK  ed25519.PublicKey
	Address ids.ID
}

// NewIdentity generates a fresh Identity. Production deployments load
// one from disk instead (see LoadIdentity); tests and local networks
// can call this directly.
func NewIdentity() (Identity, error) {
	signPK, signSK, err := ed25519.GenerateKey(nil)
	if err != nil {
		return Identity{}, err
	}
	vrfPK, vrfSK, err := ed25519.GenerateKey(nil)
	if err != nil {
		return Identity{}, err
	}
	var addr ids.ID
	copy(addr[:], signPK)
	return Identity{
		SignSK:  signSK,
		SignPK:  signPK,
		VRFSK:   vrfSK,
		VRFPK:   vrfPK,
		Address: addr,
	}, nil
}

// LoadIdentity rebuilds an Identity from raw seeds persisted on disk
// (signSeed/vrfSeed are each the 32-byte ed25519 seed, not the 64-byte
// expanded key).
func LoadIdentity(signSeed, vrfSeed []byte) (Identity, error) {
	if len(signSeed) != ed25519.SeedSize || len(vrfSeed) != ed25519.SeedSize {
		return Identity{}, fmt.Errorf("node: identity seed must be %d bytes", ed25519.SeedSize)
	}
	signSK := ed25519.NewKeyFromSeed(signSeed)
	vrfSK := ed25519.NewKeyFromSeed(vrfSeed)
	signPK := signSK.Public().(ed25519.PublicKey)
	vrfPK := vrfSK.Public().(ed25519.PublicKey)
	var addr ids.ID
	copy(addr[:], signPK)
	return Identity{
		SignSK:  signSK,
		SignPK:  signPK,
		VRFSK:   vrfSK,
		VRFPK:   vrfPK,
		Address: addr,
	}, nil
}

// BechAddress renders this identity's address in the chain's bech32m
// encoding (spec.md §3, GLOSSARY: "address").
func (id Identity) BechAddress() (string, error) {
	var pk [32]byte
	copy(pk[:], id.SignPK)
	return address.Encode(pk)
}

// Config bundles the static tunables (config.Config) with this
// process's runtime identity and chosen network name.
type Config struct {
	config.Config
	Network  string
	Identity Identity
}
