package finality

import (
	"sync"

	"go.uber.org/zap"

	"github.com/time-coin/time-core/ids"
)

// SafetyViolation records an observed contradiction that is only possible
// if the finality quorum was Byzantine-compromised (spec.md §8: two valid
// VFPs for conflicting transactions, or a canonical chain reorg deeper
// than the bound). Detecting one halts the node rather than continuing on
// inconsistent state.
type SafetyViolation struct {
	Kind    string
	Detail  string
	TxA, TxB ids.ID
}

// HaltCoordinator is the single halt switch shared by the finality and
// forkchoice layers (spec.md §8: "a detected safety violation MUST halt
// the affected subsystem rather than silently continue"). It fires its
// callback at most once, the way the teacher's node shutdown path is
// guarded by a sync.Once.
type HaltCoordinator struct {
	once    sync.Once
	log     *zap.Logger
	onHalt  func(SafetyViolation)
	didHalt bool
	mu      sync.Mutex
}

func NewHaltCoordinator(log *zap.Logger, onHalt func(SafetyViolation)) *HaltCoordinator {
	return &HaltCoordinator{log: log, onHalt: onHalt}
}

// Halt reports v and triggers onHalt exactly once, regardless of how many
// goroutines observe a violation concurrently.
func (h *HaltCoordinator) Halt(v SafetyViolation) {
	h.once.Do(func() {
		h.mu.Lock()
		h.didHalt = true
		h.mu.Unlock()
		if h.log != nil {
			h.log.Error("safety violation detected, halting",
				zap.String("kind", v.Kind),
				zap.String("detail", v.Detail),
				zap.Stringer("tx_a", h.stringer(v.TxA)),
				zap.Stringer("tx_b", h.stringer(v.TxB)),
			)
		}
		if h.onHalt != nil {
			h.onHalt(v)
		}
	})
}

func (h *HaltCoordinator) stringer(id ids.ID) idStringer { return idStringer(id) }

type idStringer ids.ID

func (s idStringer) String() string { return ids.ID(s).String() }

// Halted reports whether Halt has already fired.
func (h *HaltCoordinator) Halted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.didHalt
}
