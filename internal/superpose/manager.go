package superpose

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// ErrInvalidState indicates a malformed initial superposition.
var ErrInvalidState = errors.New("invalid initial superposition")

// ErrUnknownSystem indicates an operation on an absent system id.
var ErrUnknownSystem = errors.New("unknown quantum system")

// defaultCoherenceTime is how long a fresh system stays coherent.
const defaultCoherenceTime = 30 * time.Second

// Manager owns all quantum systems and their entanglements.
// Mutation of a single system is serialized via the system's own mutex;
// distinct systems may be advanced in parallel.
type Manager struct {
	// mu guards the systems and entanglements maps, not system internals.
	mu sync.RWMutex
	// systems maps system id to the system.
	systems map[string]*System
	// entanglements maps a canonical pair key to the entanglement record.
	entanglements map[string]*Entanglement

	// rng is the injected random source; guarded by rngMu because
	// math/rand.Rand is not safe for concurrent use.
	rng   *rand.Rand
	rngMu sync.Mutex

	// interferenceChance is the probability an Evolve tick also applies
	// a random interference pass to a system.
	interferenceChance float64
}

// NewManager creates a Manager using the given random source.
// Pass a seeded source for reproducible measurement sequences.
func NewManager(rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		systems:            make(map[string]*System),
		entanglements:      make(map[string]*Entanglement),
		rng:                rng,
		interferenceChance: 0.05,
	}
}

// random returns a uniform float in [0,1) from the injected source.
func (m *Manager) random() float64 {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Float64()
}

// CreateSystem registers a new system with the given initial states.
// Amplitudes are normalized so probabilities sum to 1; components without
// an explicit phase get a default spread across [0, 2π).
func (m *Manager) CreateSystem(id string, initial []InitialState) (*System, error) {
	if len(initial) < 1 {
		return nil, fmt.Errorf("%w: system %s has no states", ErrInvalidState, id)
	}
	for _, st := range initial {
		if st.Label == "" {
			return nil, fmt.Errorf("%w: system %s has an unlabelled state", ErrInvalidState, id)
		}
	}

	sys := &System{
		ID:              id,
		States:          make(map[string]*StateVector, len(initial)),
		CoherenceTime:   defaultCoherenceTime,
		DecoherenceRate: 0.01,
		LastMeasurement: time.Now(),
	}
	for i, st := range initial {
		phase := st.Phase
		if phase == 0 {
			phase = 2 * math.Pi * float64(i) / float64(len(initial))
		}
		sys.States[st.Label] = &StateVector{
			Amplitude: math.Abs(st.Amplitude),
			Phase:     phase,
			Energy:    st.Energy,
		}
	}
	sys.normalizeLocked()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.systems[id]; exists {
		return nil, fmt.Errorf("%w: system %s already exists", ErrInvalidState, id)
	}
	m.systems[id] = sys
	return sys, nil
}

// Reweight replaces a system's superposition components in place,
// preserving the system's entanglements. Components absent from states
// are dropped, new labels are added, and a component keeping its label
// also keeps its phase unless states provides one. Amplitudes are
// renormalized.
func (m *Manager) Reweight(id string, states []InitialState) error {
	sys, err := m.system(id)
	if err != nil {
		return err
	}
	if len(states) < 1 {
		return fmt.Errorf("%w: system %s reweighted to no states", ErrInvalidState, id)
	}
	for _, st := range states {
		if st.Label == "" {
			return fmt.Errorf("%w: system %s has an unlabelled state", ErrInvalidState, id)
		}
	}

	sys.mu.Lock()
	defer sys.mu.Unlock()
	next := make(map[string]*StateVector, len(states))
	for _, st := range states {
		phase := st.Phase
		if phase == 0 {
			if prev, ok := sys.States[st.Label]; ok {
				phase = prev.Phase
			}
		}
		next[st.Label] = &StateVector{
			Amplitude: math.Abs(st.Amplitude),
			Phase:     phase,
			Energy:    st.Energy,
		}
	}
	sys.States = next
	sys.Collapsed = len(next) == 1
	sys.normalizeLocked()
	return nil
}

// RemoveSystem destroys a system and every entanglement touching it.
func (m *Manager) RemoveSystem(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sys, ok := m.systems[id]
	if !ok {
		return
	}
	delete(m.systems, id)

	for _, partnerID := range sys.EntangledWith {
		delete(m.entanglements, pairKey(id, partnerID))
		if partner, ok := m.systems[partnerID]; ok {
			partner.mu.Lock()
			partner.EntangledWith = removeString(partner.EntangledWith, id)
			partner.mu.Unlock()
		}
	}
}

// system looks up a system by id under the map lock.
func (m *Manager) system(id string) (*System, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sys, ok := m.systems[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, id)
	}
	return sys, nil
}

// Snapshot returns read-only copies of all systems, ordered by id.
func (m *Manager) Snapshot() []SystemSnapshot {
	m.mu.RLock()
	systems := make([]*System, 0, len(m.systems))
	for _, sys := range m.systems {
		systems = append(systems, sys)
	}
	m.mu.RUnlock()

	snaps := make([]SystemSnapshot, 0, len(systems))
	for _, sys := range systems {
		snaps = append(snaps, sys.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps
}

// Count returns the number of registered systems.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.systems)
}

// AverageCoherence returns the mean probability concentration across all
// systems: 1 when every system is fully collapsed, lower when spread.
func (m *Manager) AverageCoherence() float64 {
	snaps := m.Snapshot()
	if len(snaps) == 0 {
		return 1
	}
	var total float64
	for _, snap := range snaps {
		var peak float64
		for _, sv := range snap.States {
			if sv.Probability > peak {
				peak = sv.Probability
			}
		}
		total += peak
	}
	return total / float64(len(snaps))
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
