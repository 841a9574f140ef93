// Package forkchoice selects the canonical chain tip among competing
// TSDC candidate blocks and performs bounded reorgs (spec.md §4.8). It
// is grounded on the teacher's vms/proposervm fork-tracking, generalized
// from the teacher's height-only comparison to spec.md's
// (finalized-height, cumulative-VRF-score, tip-hash) tuple.
package forkchoice

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/metrics"
	"github.com/time-coin/time-core/tsdc"
	"github.com/time-coin/time-core/utxo"
)

// ReorgDepthMax bounds how far a reorg may walk back (spec.md §4.8, §6:
// reorg_depth_max=1000).
const ReorgDepthMax = 1000

var (
	ErrReorgTooDeep  = errors.New("forkchoice: proposed reorg exceeds the maximum depth")
	ErrCrossesArchive = errors.New("forkchoice: reorg would drop an already-archived txid")
	ErrUnknownBlock  = errors.New("forkchoice: block not tracked by this chain")
)

// Node is one tracked block in the candidate DAG: its header, its
// parent, and bookkeeping derived from the chain it roots (finalized
// height and cumulative VRF score up to and including this block).
type Node struct {
	Hash               ids.ID
	Header             tsdc.Header
	Parent             ids.ID
	FinalizedHeight    uint64 // count of blocks on this chain whose txids are all finalized-and-archived
	CumulativeScore    *uint256.Int
	ArchivedTxIDs      ids.Set // txids this block archived (for the crosses-archive check)
}

// Chain tracks every known block and the current canonical tip (spec.md
// §4.8).
type Chain struct {
	nodes map[ids.ID]*Node
	tip   ids.ID

	store  *utxo.Store
	lookup TxLookup
}

func NewChain(genesis *Node) *Chain {
	if genesis.CumulativeScore == nil {
		genesis.CumulativeScore = uint256.NewInt(0)
	}
	c := &Chain{nodes: make(map[ids.ID]*Node)}
	c.nodes[genesis.Hash] = genesis
	c.tip = genesis.Hash
	return c
}

// SetArchiver wires the chain to utxo.Store so that tip switches
// actually move output state through the GloballyFinalized <-> Archived
// transition (spec.md §4.3's last row, §4.8's reorg dataflow) instead of
// just moving the tip pointer. Tests that only exercise fork-choice
// selection may leave this unset.
func (c *Chain) SetArchiver(store *utxo.Store, lookup TxLookup) {
	c.store = store
	c.lookup = lookup
}

// Tip returns the current canonical tip's hash.
func (c *Chain) Tip() ids.ID { return c.tip }

func (c *Chain) Get(hash ids.ID) (*Node, bool) {
	n, ok := c.nodes[hash]
	return n, ok
}

// AddCandidate records a new candidate block extending an already-known
// parent, computing its cumulative fields, and re-runs fork choice
// against the current tip.
func (c *Chain) AddCandidate(header tsdc.Header, hash ids.ID, archivedTxIDs ids.Set, addsFinalizedHeight bool) error {
	parent, ok := c.nodes[header.PrevHash]
	if !ok {
		return ErrUnknownBlock
	}

	finalizedHeight := parent.FinalizedHeight
	if addsFinalizedHeight {
		finalizedHeight++
	}

	node := &Node{
		Hash:            hash,
		Header:          header,
		Parent:          header.PrevHash,
		FinalizedHeight: finalizedHeight,
		CumulativeScore: new(uint256.Int).Add(parent.CumulativeScore, tsdc.ContributionToCumulativeScore(header.VRFOutput)),
		ArchivedTxIDs:   archivedTxIDs,
	}
	c.nodes[hash] = node

	return c.reconsiderTip(node)
}

// reconsiderTip applies spec.md §4.8's selection rule: (1) larger
// finalized height wins, (2) tie -> larger cumulative VRF score wins,
// (3) tie -> lexicographically larger tip hash wins. It refuses (without
// mutating the tip) any switch that would reorg deeper than
// ReorgDepthMax or drop an already-archived txid not present on the
// candidate's branch.
func (c *Chain) reconsiderTip(candidate *Node) error {
	current := c.nodes[c.tip]
	if !c.preferCandidate(candidate, current) {
		return nil
	}

	ancestor, depth, err := c.commonAncestor(candidate, current)
	if err != nil {
		return err
	}
	if depth > ReorgDepthMax {
		return ErrReorgTooDeep
	}

	if err := c.checkNoArchiveCrossing(candidate, current, ancestor); err != nil {
		return err
	}

	if c.store != nil {
		if err := ApplyReorg(c, current.Hash, candidate.Hash, ancestor.Hash, c.store, c.lookup); err != nil {
			return err
		}
	}

	metrics.ReorgDepth.Observe(float64(depth))
	c.tip = candidate.Hash
	return nil
}

func (c *Chain) preferCandidate(candidate, current *Node) bool {
	if candidate.FinalizedHeight != current.FinalizedHeight {
		return candidate.FinalizedHeight > current.FinalizedHeight
	}
	if cmp := candidate.CumulativeScore.Cmp(current.CumulativeScore); cmp != 0 {
		return cmp > 0
	}
	return candidate.Hash.Compare(current.Hash) > 0
}

// commonAncestor walks both branches back to their first shared block,
// returning it and the reorg depth (the longer of the two branches'
// distances from their tips to the ancestor).
func (c *Chain) commonAncestor(a, b *Node) (*Node, int, error) {
	seen := make(map[ids.ID]int)
	depth := 0
	for cur := b; ; {
		seen[cur.Hash] = depth
		parent, ok := c.nodes[cur.Parent]
		if !ok {
			break // cur is the genesis block tracked by this Chain
		}
		cur = parent
		depth++
	}

	for cur, d := a, 0; ; {
		if bDepth, ok := seen[cur.Hash]; ok {
			if d > bDepth {
				return cur, d, nil
			}
			return cur, bDepth, nil
		}
		parent, ok := c.nodes[cur.Parent]
		if !ok {
			return nil, 0, ErrUnknownBlock
		}
		cur = parent
		d++
	}
}

// checkNoArchiveCrossing enforces spec.md §4.8: "if a txid is present in
// an ancestor's archive on the current chain, no reorg may drop it
// unless the alternative chain also archives it."
func (c *Chain) checkNoArchiveCrossing(candidate, current, ancestor *Node) error {
	currentOnly := ids.NewSet()
	for cur := current; cur != ancestor; {
		currentOnly.Union(cur.ArchivedTxIDs)
		parent, ok := c.nodes[cur.Parent]
		if !ok {
			break
		}
		cur = parent
	}

	candidateArchived := ids.NewSet()
	for cur := candidate; cur != ancestor; {
		candidateArchived.Union(cur.ArchivedTxIDs)
		parent, ok := c.nodes[cur.Parent]
		if !ok {
			break
		}
		cur = parent
	}

	for _, txid := range currentOnly.List() {
		if !candidateArchived.Contains(txid) {
			return ErrCrossesArchive
		}
	}
	return nil
}
