package node

import (
	"time"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/rpc"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

// The methods below satisfy rpc.Core, letting rpc.Surface drive this
// node's query surface (spec.md §6) without reaching back into its
// internals.

func (n *Node) LookupTransaction(txid ids.ID) (*txs.Transaction, bool) {
	return n.lookupTx(txid)
}

// TransactionState resolves txid's UTXO lifecycle status from the spend
// state its inputs record for it (spec.md §3: status is a property of
// the transaction, not the outpoint), falling back to the state of its
// first output when no input records txid.
func (n *Node) TransactionState(txid ids.ID) (utxo.Status, error) {
	tx, ok := n.lookupTx(txid)
	if !ok {
		return 0, utxo.ErrNotFound
	}
	for _, in := range tx.Inputs {
		st, err := n.Store.GetState(in.Prev)
		if err != nil {
			continue
		}
		if st.ByTxID == txid {
			return st.Status, nil
		}
	}
	if len(tx.Outputs) > 0 {
		if st, err := n.Store.GetState(txs.OutPoint{TxID: txid, Index: 0}); err == nil {
			return st.Status, nil
		}
	}
	return 0, utxo.ErrNotFound
}

func (n *Node) UnspentByScript(scriptPubKey []byte) []rpc.UnspentEntry {
	ops := n.Store.UnspentByScript(scriptPubKey)
	out := make([]rpc.UnspentEntry, 0, len(ops))
	for _, op := range ops {
		st, err := n.Store.GetState(op)
		if err != nil {
			continue
		}
		out = append(out, rpc.UnspentEntry{OutPoint: op, Value: st.Value})
	}
	return out
}

func (n *Node) MempoolSnapshot() rpc.MempoolInfo {
	return rpc.MempoolInfo{Count: n.Mempool.Len(), Bytes: n.Mempool.Bytes()}
}

func (n *Node) ChainTip() (rpc.BlockInfo, bool) {
	return n.BlockByHash(n.Chain.Tip())
}

func (n *Node) BlockByHash(hash ids.ID) (rpc.BlockInfo, bool) {
	block, ok := n.Chain.Get(hash)
	if !ok {
		return rpc.BlockInfo{}, false
	}
	return rpc.BlockInfo{Hash: hash, Header: block.Header, TxIDs: block.ArchivedTxIDs.List()}, true
}

func (n *Node) ConsensusSnapshot() rpc.ConsensusInfo {
	tip, _ := n.Chain.Get(n.Chain.Tip())
	var finalizedHeight uint64
	if tip != nil {
		finalizedHeight = tip.FinalizedHeight
	}
	return rpc.ConsensusInfo{
		CurrentSlot:     n.currentSlot(),
		ChainTip:        n.Chain.Tip(),
		FinalizedHeight: finalizedHeight,
	}
}

func (n *Node) NetworkSnapshot() rpc.NetworkInfo {
	return rpc.NetworkInfo{ChainID: n.Config.ChainID, SlotSecs: n.Config.SlotSecs}
}

func (n *Node) Masternodes() []rpc.MasternodeEntry {
	now := uint64(time.Now().Unix())
	validators := n.AVS.RegisteredValidators()
	out := make([]rpc.MasternodeEntry, 0, len(validators))
	for _, v := range validators {
		out = append(out, rpc.MasternodeEntry{
			Address: v.Address,
			Tier:    tierName(v.Tier),
			Live:    n.AVS.IsLive(v.Address, now),
		})
	}
	return out
}

func (n *Node) PendingVotes(txid ids.ID) int {
	return n.Assembler.Pending(txid)
}

func tierName(t avs.Tier) string {
	switch t {
	case avs.Free:
		return "free"
	case avs.Bronze:
		return "bronze"
	case avs.Silver:
		return "silver"
	case avs.Gold:
		return "gold"
	default:
		return "unknown"
	}
}
