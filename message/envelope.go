// Package message defines the protocol envelope, per-peer rate
// limiting, and dedup filter of spec.md §4.9, grounded on the teacher's
// network package (its message router and throttler apply the same
// kind-tagged envelope and token-bucket shape this package generalizes).
package message

import (
	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/consensus/avalanche"
	"github.com/time-coin/time-core/finality"
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/tsdc"
)

// Kind tags an Envelope's payload type (spec.md §4.9).
type Kind uint8

const (
	KindSampleQuery       Kind = iota
	KindSampleResponse
	KindFinalityVoteGossip
	KindVFPGossip
	KindBlockBroadcast
	KindHeartbeat
	KindWitnessAttestation
	KindSnapshotRequest
	KindSnapshotResponse
)

// Envelope is the opaque wire wrapper every message type travels in
// (spec.md §4.9: "kind, payload, optional signature").
type Envelope struct {
	Kind      Kind
	Nonce     uint64 // replay protection within the dedup window, for signed payloads
	Signature []byte

	SampleQuery        *avalanche.SampleQuery
	SampleResponse     *SampleResponseMsg
	FinalityVoteGossip *finality.Vote
	VFPGossip          *finality.VFP
	BlockBroadcast     *tsdc.Block
	Heartbeat          *avs.Heartbeat
	WitnessAttestation *avs.WitnessAttestation
	SnapshotRequest    *SnapshotRequestMsg
	SnapshotResponse   *SnapshotResponseMsg
}

// SampleResponseMsg is the wire form of a SampleQuery answer, carrying
// an optional piggybacked finality vote (spec.md §4.9).
type SampleResponseMsg struct {
	TxID         ids.ID
	Vote         avalanche.Vote
	Competing    *ids.ID
	FinalityVote *finality.Vote
}

// SnapshotRequestMsg/SnapshotResponseMsg support a joining validator
// bootstrapping AVS state (spec.md §4.9: "full AVS reconstructed from
// heartbeats" — the response carries only a summary, never the
// authoritative snapshot itself).
type SnapshotRequestMsg struct {
	SlotIndex uint64
}

type SnapshotResponseMsg struct {
	SlotIndex   uint64
	TotalWeight uint64
	VoterCount  int
}

// ContentHash identifies e for dedup purposes: (kind, payload digest).
func (e *Envelope) ContentHash() ids.ID {
	return contentHash(e)
}
