package avs

import (
	"crypto/ed25519"
	"sync"

	"github.com/time-coin/time-core/ids"
)

// HeartbeatTTL is the default liveness window: a validator's most recent
// heartbeat must be no older than this many seconds (spec.md §4.4, §6:
// heartbeat_ttl_secs=180, "3 heartbeats" at the default 60s period).
const HeartbeatTTL = 180

// WitnessMin is the default number of distinct-validator attestations a
// heartbeat needs before its validator counts as AVS-live (spec.md §4.4,
// §6: witness_min=3).
const WitnessMin = 3

type validatorState struct {
	info Validator

	lastHB     *Heartbeat
	lastHBTime uint64 // unix seconds the heartbeat was recorded at

	// witnesses[heartbeatHash] = set of distinct witness addresses
	witnesses map[ids.ID]ids.Set
}

// Manager maintains the live registry of heartbeats and witness
// attestations and produces immutable per-slot snapshots (spec.md §4.4).
// It is a single logical shared collaborator (spec.md §9): callers pass it
// explicitly rather than reaching for global state.
type Manager struct {
	mu         sync.RWMutex
	validators map[ids.ID]*validatorState
	snapshots  *SnapshotIndex

	heartbeatTTL uint64
	witnessMin   int
}

// NewManager constructs a Manager using the HeartbeatTTL and WitnessMin
// defaults. A Manager has no setter for either, so config.Config's
// heartbeat_ttl_secs and witness_min values are not applied to it.
func NewManager(retentionSlots int) *Manager {
	return &Manager{
		validators:   make(map[ids.ID]*validatorState),
		snapshots:    NewSnapshotIndex(retentionSlots),
		heartbeatTTL: HeartbeatTTL,
		witnessMin:   WitnessMin,
	}
}

// RegisterValidator seeds a validator's static identity (address, keys,
// stake, tier). It does not by itself make the validator AVS-live — a
// heartbeat chain and witness threshold are still required.
func (m *Manager) RegisterValidator(v Validator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs, ok := m.validators[v.Address]
	if !ok {
		vs = &validatorState{witnesses: make(map[ids.ID]ids.Set)}
		m.validators[v.Address] = vs
	}
	vs.info = v
}

// RecordHeartbeat verifies hb's signature and chain linkage against the
// validator's previously recorded heartbeat (if any) and, on success,
// updates the validator's liveness clock.
func (m *Manager) RecordHeartbeat(hb *Heartbeat, now uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	vs, ok := m.validators[hb.Validator]
	if !ok {
		return ErrNotRegistered
	}
	if err := Verify(hb, vs.info.SignPubKey[:], vs.lastHB); err != nil {
		return err
	}
	vs.lastHB = hb
	vs.lastHBTime = now
	if _, ok := vs.witnesses[hb.Hash()]; !ok {
		vs.witnesses[hb.Hash()] = ids.NewSet()
	}
	return nil
}

// RecordWitness verifies att's signature and, if valid, credits the
// attesting validator toward the WITNESS_MIN threshold for the heartbeat
// it names. Attestations from the same witness are de-duplicated per
// heartbeat hash (spec.md §4.4: "distinct validators").
func (m *Manager) RecordWitness(att *WitnessAttestation, witnessPK ed25519.PublicKey, target ids.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := VerifyAttestation(att, witnessPK)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadSignature
	}

	vs, registered := m.validators[target]
	if !registered {
		return ErrNotRegistered
	}
	set, ok := vs.witnesses[att.HeartbeatHash]
	if !ok {
		set = ids.NewSet()
		vs.witnesses[att.HeartbeatHash] = set
	}
	set.Add(att.Witness)
	return nil
}

// IsLive reports whether target is AVS-live at wall-clock now: its most
// recent heartbeat is within HeartbeatTTL seconds and has at least
// WitnessMin distinct attestations (spec.md §4.4).
func (m *Manager) IsLive(target ids.ID, now uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isLiveLocked(target, now)
}

func (m *Manager) isLiveLocked(target ids.ID, now uint64) bool {
	vs, ok := m.validators[target]
	if !ok || vs.lastHB == nil {
		return false
	}
	if now < vs.lastHBTime || now-vs.lastHBTime > m.heartbeatTTL {
		return false
	}
	witnessSet, ok := vs.witnesses[vs.lastHB.Hash()]
	if !ok {
		return false
	}
	return witnessSet.Len() >= m.witnessMin
}

// BuildSnapshot enumerates every AVS-live validator at the slot boundary
// and produces (and retains) the authoritative snapshot for slotIndex
// (spec.md §4.4). now is the wall-clock time used to evaluate liveness.
func (m *Manager) BuildSnapshot(slotIndex uint64, now uint64) *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &Snapshot{SlotIndex: slotIndex, Weights: make(map[ids.ID]uint64)}
	for addr, vs := range m.validators {
		if !m.isLiveLocked(addr, now) {
			continue
		}
		w := vs.info.EffectiveWeight()
		if w == 0 {
			continue
		}
		snap.Weights[addr] = w
		snap.Total += w
	}
	m.snapshots.Put(snap)
	return snap
}

// Snapshot looks up a previously built snapshot by slot index.
func (m *Manager) Snapshot(slotIndex uint64) (*Snapshot, bool) {
	return m.snapshots.Get(slotIndex)
}

// Pin records that an in-flight VFP references slotIndex's snapshot and
// marks it most recently used. The snapshot index's LRU eviction does not
// consult pins, so a pinned snapshot can still be evicted (see
// SnapshotIndex).
func (m *Manager) Pin(slotIndex uint64) { m.snapshots.Pin(slotIndex) }

// Unpin releases a Pin once the referencing VFP has landed or been
// abandoned.
func (m *Manager) Unpin(slotIndex uint64) { m.snapshots.Unpin(slotIndex) }

// PublicKey returns the signing key registered for a validator, used by
// callers verifying votes/blocks against a snapshot.
func (m *Manager) PublicKey(addr ids.ID) (ed25519.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vs, ok := m.validators[addr]
	if !ok {
		return nil, false
	}
	pk := append(ed25519.PublicKey(nil), vs.info.SignPubKey[:]...)
	return pk, true
}

// VRFPublicKey returns the VRF key registered for a validator (used by
// TSDC sortition verification, C7).
func (m *Manager) VRFPublicKey(addr ids.ID) (ed25519.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vs, ok := m.validators[addr]
	if !ok {
		return nil, false
	}
	pk := append(ed25519.PublicKey(nil), vs.info.VRFPubKey[:]...)
	return pk, true
}

// RegisteredValidators returns every registered validator's static
// identity, for masternodelist (spec.md §6). Liveness is evaluated
// separately via IsLive, since it is a function of wall-clock time.
func (m *Manager) RegisteredValidators() []Validator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Validator, 0, len(m.validators))
	for _, vs := range m.validators {
		out = append(out, vs.info)
	}
	return out
}
