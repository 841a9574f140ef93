// Package rpc defines the query surface spec.md §6 enumerates
// (sendrawtransaction, getrawtransaction, getblock, ...), as a set of Go
// interfaces wired directly to node.Node's own synchronous methods and
// public fields. The HTTP/JSON-RPC framing a real wallet or explorer
// would speak against is explicitly out of scope (spec.md §6
// Non-goals) — Surface is the collaborator a future transport would
// sit in front of.
package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/tsdc"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

// ErrTimeout is returned by WaitTransactionFinality when ctx expires
// before the transaction reaches GloballyFinalized.
var ErrTimeout = errors.New("rpc: wait for finality timed out")

// TxInfo is the getrawtransaction response shape.
type TxInfo struct {
	TxID   ids.ID
	Tx     *txs.Transaction
	Status utxo.Status
}

// UnspentEntry is one row of a listunspent response.
type UnspentEntry struct {
	OutPoint txs.OutPoint
	Value    uint64
}

// MempoolInfo is the getmempoolinfo response shape.
type MempoolInfo struct {
	Count int
	Bytes int
}

// ConsensusInfo is the getconsensusinfo response shape.
type ConsensusInfo struct {
	CurrentSlot     uint64
	ChainTip        ids.ID
	FinalizedHeight uint64
}

// NetworkInfo is the getnetworkinfo response shape.
type NetworkInfo struct {
	ChainID  string
	SlotSecs int64
}

// MasternodeEntry is one row of a masternodelist response.
type MasternodeEntry struct {
	Address ids.ID
	Tier    string
	Live    bool
}

// BlockInfo is the getblock response shape.
type BlockInfo struct {
	Hash   ids.ID
	Header tsdc.Header
	TxIDs  []ids.ID
}

// Core is the set of node.Node methods Surface needs; node.Node satisfies
// it through SubmitTransaction and the adapter methods in node/rpc.go
// (LookupTransaction, TransactionState, ChainTip, ConsensusSnapshot, ...).
type Core interface {
	SubmitTransaction(tx *txs.Transaction) (ids.ID, error)
	LookupTransaction(txid ids.ID) (*txs.Transaction, bool)
	TransactionState(txid ids.ID) (utxo.Status, error)
	UnspentByScript(scriptPubKey []byte) []UnspentEntry
	MempoolSnapshot() MempoolInfo
	ChainTip() (BlockInfo, bool)
	BlockByHash(hash ids.ID) (BlockInfo, bool)
	ConsensusSnapshot() ConsensusInfo
	NetworkSnapshot() NetworkInfo
	Masternodes() []MasternodeEntry
	PendingVotes(txid ids.ID) int
}

// Surface implements spec.md §6's query functions against a Core.
type Surface struct {
	core Core
}

func New(core Core) *Surface {
	return &Surface{core: core}
}

// SendRawTransaction admits tx to the mempool and conflict-set registry.
func (s *Surface) SendRawTransaction(tx *txs.Transaction) (ids.ID, error) {
	return s.core.SubmitTransaction(tx)
}

// GetRawTransaction returns the last known copy of txid plus its UTXO
// lifecycle status.
func (s *Surface) GetRawTransaction(txid ids.ID) (TxInfo, error) {
	tx, ok := s.core.LookupTransaction(txid)
	if !ok {
		return TxInfo{}, errors.New("rpc: unknown transaction")
	}
	status, err := s.core.TransactionState(txid)
	if err != nil {
		return TxInfo{}, err
	}
	return TxInfo{TxID: txid, Tx: tx, Status: status}, nil
}

// GetBlock returns the checkpoint block with the given hash.
func (s *Surface) GetBlock(hash ids.ID) (BlockInfo, error) {
	b, ok := s.core.BlockByHash(hash)
	if !ok {
		return BlockInfo{}, errors.New("rpc: unknown block")
	}
	return b, nil
}

// GetBlockCount returns the canonical tip's finalized height.
func (s *Surface) GetBlockCount() (uint64, error) {
	if _, ok := s.core.ChainTip(); !ok {
		return 0, errors.New("rpc: no chain tip")
	}
	return s.core.ConsensusSnapshot().FinalizedHeight, nil
}

// GetBalance sums every Unspent output locked by scriptPubKey.
func (s *Surface) GetBalance(scriptPubKey []byte) uint64 {
	var total uint64
	for _, e := range s.core.UnspentByScript(scriptPubKey) {
		total += e.Value
	}
	return total
}

// ListUnspent returns every Unspent output locked by scriptPubKey.
func (s *Surface) ListUnspent(scriptPubKey []byte) []UnspentEntry {
	return s.core.UnspentByScript(scriptPubKey)
}

func (s *Surface) GetMempoolInfo() MempoolInfo {
	return s.core.MempoolSnapshot()
}

func (s *Surface) GetNetworkInfo() NetworkInfo {
	return s.core.NetworkSnapshot()
}

func (s *Surface) GetPeerInfo() []string {
	// Peer-connection tracking lives in a real transport, which spec.md
	// §6 excludes; this node only ever gossips over an in-memory pipe
	// in tests, so there is nothing to report yet.
	return nil
}

func (s *Surface) MasternodeList() []MasternodeEntry {
	return s.core.Masternodes()
}

func (s *Surface) GetConsensusInfo() ConsensusInfo {
	return s.core.ConsensusSnapshot()
}

// GetTransactionFinality reports whether txid has reached
// GloballyFinalized, plus how many distinct votes it has collected so
// far toward Q_finality.
func (s *Surface) GetTransactionFinality(txid ids.ID) (finalized bool, votes int, err error) {
	status, err := s.core.TransactionState(txid)
	if err != nil {
		return false, 0, err
	}
	return status == utxo.GloballyFinalized, s.core.PendingVotes(txid), nil
}

// WaitTransactionFinality blocks until txid reaches GloballyFinalized or
// ctx is cancelled/times out.
func (s *Surface) WaitTransactionFinality(ctx context.Context, txid ids.ID) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		status, err := s.core.TransactionState(txid)
		if err == nil && status == utxo.GloballyFinalized {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-ticker.C:
		}
	}
}
