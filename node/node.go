package node

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/time-coin/time-core/avs"
	"github.com/time-coin/time-core/consensus/avalanche"
	"github.com/time-coin/time-core/consensus/snowball"
	"github.com/time-coin/time-core/crypto"
	"github.com/time-coin/time-core/errs"
	"github.com/time-coin/time-core/finality"
	"github.com/time-coin/time-core/forkchoice"
	"github.com/time-coin/time-core/genesis"
	"github.com/time-coin/time-core/ids"
	"github.com/time-coin/time-core/logging"
	"github.com/time-coin/time-core/mempool"
	"github.com/time-coin/time-core/message"
	"github.com/time-coin/time-core/metrics"
	"github.com/time-coin/time-core/network"
	"github.com/time-coin/time-core/tsdc"
	"github.com/time-coin/time-core/txs"
	"github.com/time-coin/time-core/utxo"
)

// Node wires every component named in spec.md §4 into one process: the
// UTXO store, the Active Validator Set, the Avalanche sampling engine,
// the finality assembler, TSDC block production, and fork choice. It
// plays the role the teacher's node.Node plays for a multi-chain
// platform, collapsed to this module's single chain.
type Node struct {
	Config Config
	Log    *zap.Logger

	Store    *utxo.Store
	AVS      *avs.Manager
	Mempool  *mempool.Pool
	Engine   *avalanche.Engine
	Assembler *finality.Assembler
	Chain    *forkchoice.Chain
	Producer *tsdc.Producer
	Clock    tsdc.SlotClock
	Halt     *finality.HaltCoordinator
	Dedup    *message.Dedup
	Limiter  *message.PerPeerRateLimiter
	Crypto   *crypto.Pool
	Gossip   *network.Broadcaster

	mu               sync.Mutex
	conflictSets     map[ids.ID]*snowball.ConflictSet
	outpointConflict map[txs.OutPoint]ids.ID
	txByID           map[ids.ID]*txs.Transaction
}

// ErrHalted is returned by SubmitTransaction, RunConsensusRound,
// TryProduceSlot and AcceptBlock once the halt coordinator has fired, and
// OnFinalityProof then promotes nothing (spec.md §7: a Safety-class
// violation halts local consensus progress; the node keeps serving reads
// until restarted).
var ErrHalted = errors.New("node: halted on safety violation, read-only")

// loopbackQuerier answers SampleQuery against this node's own conflict
// set registry; a real deployment replaces this with a Querier backed
// by package message's transport, but a single-node network (tests,
// local dev) needs no transport at all.
type loopbackQuerier struct {
	responder *avalanche.Responder
}

func (q *loopbackQuerier) Query(_ context.Context, _ ids.ID, query avalanche.SampleQuery) (avalanche.SampleResponse, error) {
	return q.responder.Respond(query), nil
}

// New builds a Node from cfg, its genesis state, and a gossip sender
// (may be nil, in which case gossip is a no-op — suitable for
// single-node local networks).
func New(cfg Config, genesisState genesis.State, sender network.Sender) (*Node, error) {
	log, err := logging.New(logging.Level(cfg.LogLevel), false, "auto")
	if err != nil {
		return nil, err
	}

	n := &Node{
		Config:           cfg,
		Log:              log,
		Store:            utxo.NewStore(),
		AVS:              avs.NewManager(100 + cfg.ReorgDepthMax),
		Mempool:          mempool.New(),
		Dedup:            message.NewDedup(7 * time.Minute),
		Limiter:          message.NewPerPeerRateLimiter(50, 20),
		Crypto:           crypto.NewPool(0),
		conflictSets:     make(map[ids.ID]*snowball.ConflictSet),
		outpointConflict: make(map[txs.OutPoint]ids.ID),
		txByID:           make(map[ids.ID]*txs.Transaction),
	}

	for _, v := range genesisState.Validators {
		n.AVS.RegisterValidator(v)
	}
	for _, alloc := range genesisState.Allocations {
		n.Store.Create(alloc.Outpoint, alloc.Value, alloc.ScriptPubKey)
	}

	n.Clock = tsdc.NewSlotClock(cfg.GenesisTS, cfg.SlotSecs)
	n.Halt = finality.NewHaltCoordinator(log, n.onHalt)
	n.Assembler = finality.NewAssembler(n.AVS, n)

	genesisNode := &forkchoice.Node{
		Hash:            genesisState.GenesisHash(),
		ArchivedTxIDs:   ids.NewSet(),
		FinalizedHeight: 0,
	}
	n.Chain = forkchoice.NewChain(genesisNode)
	n.Chain.SetArchiver(n.Store, n.lookupTx)

	n.Producer = &tsdc.Producer{
		Clock:  n.Clock,
		AVS:    n.AVS,
		SignSK: cfg.Identity.SignSK,
		VRFSK:  cfg.Identity.VRFSK,
		Self:   cfg.Identity.Address,
	}

	responder := &avalanche.Responder{Registry: n.lookupConflictSet}
	querier := &loopbackQuerier{responder: responder}
	params := snowball.Parameters{
		K:           cfg.AvalancheK,
		Alpha:       cfg.AvalancheAlpha,
		BetaLocal:   cfg.AvalancheBetaLocal,
		BetaMax:     cfg.AvalancheBetaMax,
		PollTimeout: cfg.PollTimeout(),
	}
	n.Engine = avalanche.NewEngine(params, n.AVS, n.Store, querier, n, n.currentSlot, n.lookupTx)

	var broadcastSender network.Sender = sender
	if broadcastSender == nil {
		broadcastSender = noopSender{}
	}
	n.Gossip = network.NewBroadcaster(broadcastSender, network.NewWaitingThrottler(100))

	return n, nil
}

type noopSender struct{}

func (noopSender) Send(context.Context, string, *message.Envelope) error { return nil }

func (n *Node) currentSlot() uint64 {
	return n.Clock.SlotAt(time.Now())
}

func (n *Node) lookupTx(txid ids.ID) (*txs.Transaction, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	tx, ok := n.txByID[txid]
	return tx, ok
}

func (n *Node) lookupConflictSet(csID ids.ID) (*snowball.ConflictSet, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	cs, ok := n.conflictSets[csID]
	return cs, ok
}

// SubmitTransaction validates tx, locks its inputs, and joins it to the
// conflict set for whichever outpoints it spends (spec.md §4.4-§4.5:
// a conflict set is the set of transactions racing to spend the same
// outpoint(s)). Returns the transaction's id.
func (n *Node) SubmitTransaction(tx *txs.Transaction) (ids.ID, error) {
	if n.Halt.Halted() {
		return ids.ID{}, ErrHalted
	}
	txid, err := txs.ID(tx)
	if err != nil {
		return ids.ID{}, err
	}
	if err := txs.Validate(tx, n.resolveOutpoint, n.currentSlot()); err != nil {
		return ids.ID{}, err
	}
	fee, err := txs.Fee(tx, n.resolveOutpoint)
	if err != nil {
		return ids.ID{}, err
	}

	atSlot := n.currentSlot()
	if err := n.Store.LockInputs(txid, tx, atSlot); err != nil {
		return ids.ID{}, err
	}

	n.mu.Lock()
	n.txByID[txid] = tx
	cs := n.conflictSetForLocked(tx, txid)
	n.mu.Unlock()
	cs.AddMember(txid, true)

	evicted := n.Mempool.Add(txid, tx, fee)
	metrics.MempoolSize.Set(float64(n.Mempool.Len()))
	for _, e := range evicted {
		if e == txid {
			// tx was itself the lowest fee-rate candidate against an
			// already-full pool: unwind the lock it took above so its
			// inputs are spendable again.
			n.mu.Lock()
			delete(n.txByID, txid)
			n.mu.Unlock()
			if relErr := n.Store.ReleaseLocked(txid, tx); relErr != nil {
				n.Log.Error("failed to release lock on mempool-full rejection", zap.Error(relErr))
			}
			return ids.ID{}, errs.ErrMempoolFull
		}
	}
	return txid, nil
}

func (n *Node) resolveOutpoint(op txs.OutPoint) (uint64, bool) {
	st, err := n.Store.GetState(op)
	if err != nil {
		return 0, false
	}
	return st.Value, true
}

// conflictSetForLocked must be called with n.mu held. It finds the
// conflict set already tracking any of tx's inputs, or creates one
// keyed by the hash of the first input's outpoint.
func (n *Node) conflictSetForLocked(tx *txs.Transaction, txid ids.ID) *snowball.ConflictSet {
	for _, in := range tx.Inputs {
		if csID, ok := n.outpointConflict[in.Prev]; ok {
			return n.conflictSets[csID]
		}
	}
	var csID ids.ID
	if len(tx.Inputs) > 0 {
		key := tx.Inputs[0].Prev.Key()
		csID = crypto.Hash(key[:])
	} else {
		csID = txid
	}
	cs, ok := n.conflictSets[csID]
	if !ok {
		cs = snowball.New(csID)
		n.conflictSets[csID] = cs
	}
	for _, in := range tx.Inputs {
		n.outpointConflict[in.Prev] = csID
	}
	return cs
}

// RunConsensusRound drives one Avalanche round for the conflict set
// csID, if it exists and is still open.
func (n *Node) RunConsensusRound(ctx context.Context, csID ids.ID) (sealed bool, accepted ids.ID, err error) {
	if n.Halt.Halted() {
		return false, ids.ID{}, ErrHalted
	}
	cs, ok := n.lookupConflictSet(csID)
	if !ok {
		return false, ids.ID{}, avalanche.ErrUnknownConflictSet
	}
	ctx, span := metrics.StartSpan(ctx, "avalanche.RunRound")
	defer span.End()
	sealed, accepted, err = n.Engine.RunRound(ctx, cs)
	outcome := "open"
	if sealed {
		outcome = "sealed"
	}
	if err != nil {
		outcome = "error"
	}
	metrics.ConsensusRounds.WithLabelValues(outcome).Inc()
	return sealed, accepted, err
}

// EmitFinalityVote implements avalanche.VoteEmitter: once a conflict
// set locally accepts txid, this node signs and submits its own
// FinalityVote (spec.md §4.6) and hands it to Gossip.Broadcast. The node
// keeps no peer list and passes none, so the vote is not sent to any peer.
func (n *Node) EmitFinalityVote(txid ids.ID, _ ids.ID) {
	slot := n.currentSlot()
	v := finality.Vote{TxID: txid, Voter: n.Config.Identity.Address, SlotIndex: slot}
	if err := v.Sign(n.Config.Identity.SignSK); err != nil {
		n.Log.Error("failed to sign finality vote", zap.Error(err))
		return
	}
	if err := n.Assembler.AddVote(v); err != nil {
		n.Log.Warn("local finality vote rejected", zap.Error(err))
		return
	}
	metrics.FinalityVotesEmitted.Inc()
	n.Gossip.Broadcast(context.Background(), nil, &message.Envelope{
		Kind:               message.KindFinalityVoteGossip,
		FinalityVoteGossip: &v,
	})
}

// conflictingFinalizedTx reports whether one of tx's inputs has already
// been driven to GloballyFinalized or Archived by a transaction other
// than txid — the double-spend-at-finality condition spec.md §4.6/§8
// (scenario 6) requires this node to treat as a safety violation rather
// than a quiet PromoteFinalized rejection.
func (n *Node) conflictingFinalizedTx(txid ids.ID, tx *txs.Transaction) (ids.ID, bool) {
	for _, in := range tx.Inputs {
		st, err := n.Store.GetState(in.Prev)
		if err != nil {
			continue
		}
		if st.ByTxID != txid && (st.Status == utxo.GloballyFinalized || st.Status == utxo.Archived) {
			return st.ByTxID, true
		}
	}
	return ids.ID{}, false
}

// OnFinalityProof implements finality.Sink: a freshly-assembled VFP
// promotes its transaction's UTXOs to globally finalized and is handed
// to Gossip.Broadcast with no peer list, so it is not sent to any peer
// (spec.md §4.6). A VFP that conflicts with an already-finalized
// transaction halts local consensus progress instead (spec.md §4.6, §7:
// ConflictingVFP is a Safety-class violation). Once halted, it promotes
// nothing.
func (n *Node) OnFinalityProof(p *finality.VFP) {
	if n.Halt.Halted() {
		return
	}
	tx, ok := n.lookupTx(p.TxID)
	if !ok {
		return
	}
	if other, conflict := n.conflictingFinalizedTx(p.TxID, tx); conflict {
		n.Halt.Halt(finality.SafetyViolation{
			Kind:   "ConflictingVFP",
			Detail: "finality proof assembled for a transaction that spends an outpoint already finalized by another transaction",
			TxA:    p.TxID,
			TxB:    other,
		})
		return
	}
	if err := n.Store.PromoteFinalized(p.TxID, tx, p.Hash(), p.SlotIndex); err != nil {
		n.Log.Error("failed to promote finalized utxo", zap.Error(err), zap.Stringer("txid", idStringer(p.TxID)))
		return
	}
	metrics.VFPsAssembled.Inc()
	n.Gossip.Broadcast(context.Background(), nil, &message.Envelope{
		Kind:      message.KindVFPGossip,
		VFPGossip: p,
	})
}

type idStringer ids.ID

func (s idStringer) String() string { return ids.ID(s).String() }

func (n *Node) onHalt(v finality.SafetyViolation) {
	n.Log.Error("node halted on safety violation", zap.String("kind", v.Kind))
}

// finalizedVFPHash returns the VFP hash stamped on txid's inputs if tx
// has reached GloballyFinalized, or false if it hasn't (still Locked /
// LocallyAccepted) or has already moved past it (Archived) — a
// checkpoint block may only reference the former (spec.md §4.7).
func (n *Node) finalizedVFPHash(txid ids.ID, tx *txs.Transaction) (ids.ID, bool) {
	for _, in := range tx.Inputs {
		st, err := n.Store.GetState(in.Prev)
		if err != nil {
			continue
		}
		if st.ByTxID == txid && st.Status == utxo.GloballyFinalized {
			return st.VFPHash, true
		}
	}
	return ids.ID{}, false
}

type finalizedCandidate struct {
	txid ids.ID
	vfp  ids.ID
}

// finalizedCandidates selects, in deterministic txid order, every
// mempool transaction with a valid, unarchived VFP — the only txids
// spec.md §4.7 permits a checkpoint block to include — paired with the
// vfp_hash each contributes to finalized_root.
func (n *Node) finalizedCandidates() ([]ids.ID, []ids.ID) {
	var cands []finalizedCandidate
	for _, txid := range n.Mempool.TxIDs() {
		tx, ok := n.lookupTx(txid)
		if !ok {
			continue
		}
		vfpHash, ok := n.finalizedVFPHash(txid, tx)
		if !ok {
			continue
		}
		cands = append(cands, finalizedCandidate{txid: txid, vfp: vfpHash})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].txid.Less(cands[j].txid) })

	txids := make([]ids.ID, len(cands))
	vfpRefs := make([]ids.ID, len(cands))
	for i, c := range cands {
		txids[i] = c.txid
		vfpRefs[i] = c.vfp
	}
	return txids, vfpRefs
}

// TryProduceSlot attempts TSDC block production for slot (spec.md
// §4.7): every AVS-live validator calls this independently; fork
// choice resolves whichever candidate becomes canonical.
func (n *Node) TryProduceSlot(slot uint64) (*tsdc.Block, error) {
	if n.Halt.Halted() {
		return nil, ErrHalted
	}
	prevHash := n.Chain.Tip()
	txids, vfpRefs := n.finalizedCandidates()
	candidates := tsdc.CandidateSource{
		TxIDs:   txids,
		VFPRefs: vfpRefs,
	}
	b, err := n.Producer.TryProduce(slot, prevHash, candidates)
	if err != nil {
		return nil, err
	}
	metrics.BlocksProduced.Inc()
	return b, nil
}

// AcceptBlock validates and offers a produced or received block to
// fork choice (spec.md §4.8). A rejection that spec.md §7 classifies as
// fatal to local consensus progress (a too-deep reorg, or one that
// would cross an already-archived txid) halts the node instead of being
// silently propagated.
func (n *Node) AcceptBlock(b *tsdc.Block, producerSignPK, producerVRFPK []byte) error {
	if n.Halt.Halted() {
		return ErrHalted
	}
	var signPK, vrfPK [32]byte
	copy(signPK[:], producerSignPK)
	copy(vrfPK[:], producerVRFPK)
	if err := b.Validate(signPK[:], vrfPK[:]); err != nil {
		return err
	}
	hash := b.Header.Hash()
	archived := ids.NewSet()
	for _, txid := range b.TxIDs {
		archived.Add(txid)
	}
	if err := n.Chain.AddCandidate(b.Header, hash, archived, true); err != nil {
		if errors.Is(err, forkchoice.ErrReorgTooDeep) || errors.Is(err, forkchoice.ErrCrossesArchive) {
			kind := "ReorgTooDeep"
			if errors.Is(err, forkchoice.ErrCrossesArchive) {
				kind = "ArchiveCrossingReorg"
			}
			n.Halt.Halt(finality.SafetyViolation{
				Kind:   kind,
				Detail: err.Error(),
			})
		}
		return err
	}
	return nil
}

// Run starts the background slot-production loop until ctx is
// cancelled. It does not drive consensus rounds; those run only through
// RunConsensusRound.
func (n *Node) Run(ctx context.Context) {
	go n.slotLoop(ctx)
}

func (n *Node) slotLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(n.Config.SlotSecs) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slot := n.currentSlot()
			if n.AVS.IsLive(n.Config.Identity.Address, uint64(time.Now().Unix())) {
				if _, err := n.TryProduceSlot(slot); err != nil {
					n.Log.Debug("slot production skipped", zap.Error(err))
				}
			}
		}
	}
}
