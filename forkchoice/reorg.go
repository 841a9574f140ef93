package forkchoice

import (
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

// TxLookup resolves a txid to its full transaction, needed to drive
// Store.Archive/Unarchive (which operate per-input).
type TxLookup func(ids.ID) (*txs.Transaction, bool)

// ApplyReorg walks from oldTip down to ancestor un-archiving every txid
// the losing branch had archived, then walks from newTip down to
// ancestor archiving every txid the winning branch archives (spec.md
// §4.8: "un-archive txids on the losing branch ... apply winning
// branch's archivals"). Blocks not present in this chain's node map are
// skipped defensively; the caller is expected to have already confirmed
// ancestor via Chain.reconsiderTip's bookkeeping.
func ApplyReorg(chain *Chain, oldTip, newTip, ancestor ids.ID, store *utxo.Store, lookup TxLookup) error {
	for cur, ok := chain.Get(oldTip); ok && cur.Hash != ancestor; cur, ok = chain.Get(cur.Parent) {
		for _, txid := range cur.ArchivedTxIDs.List() {
			tx, found := lookup(txid)
			if !found {
				continue
			}
			if err := store.Unarchive(txid, tx); err != nil {
				return err
			}
		}
	}

	var winning []*Node
	for cur, ok := chain.Get(newTip); ok && cur.Hash != ancestor; cur, ok = chain.Get(cur.Parent) {
		winning = append(winning, cur)
	}
	for i := len(winning) - 1; i >= 0; i-- {
		cur := winning[i]
		for _, txid := range cur.ArchivedTxIDs.List() {
			tx, found := lookup(txid)
			if !found {
				continue
			}
			if err := store.Archive(txid, tx, cur.FinalizedHeight); err != nil {
				return err
			}
		}
	}
	return nil
}
