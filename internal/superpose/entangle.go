package superpose

import (
	"fmt"
	"math"
	"sort"
)

// EntanglementType classifies how two systems are coupled.
type EntanglementType string

const (
	// EntanglementSpatial couples systems that are physically close.
	EntanglementSpatial EntanglementType = "spatial"
	// EntanglementTemporal couples systems with overlapping schedules.
	EntanglementTemporal EntanglementType = "temporal"
	// EntanglementFunctional couples systems with a dependency relation.
	EntanglementFunctional EntanglementType = "functional"
)

// Valid returns true if the type is a known entanglement type.
func (t EntanglementType) Valid() bool {
	switch t {
	case EntanglementSpatial, EntanglementTemporal, EntanglementFunctional:
		return true
	default:
		return false
	}
}

// Entanglement records an undirected correlation between two systems.
type Entanglement struct {
	// System1 and System2 are the endpoint ids; System1 < System2.
	System1 string `json:"system1"`
	System2 string `json:"system2"`
	// Correlation is the phase/amplitude alignment in [-1,1].
	Correlation float64 `json:"correlation"`
	// Strength scales how hard the coupling pulls, in [0,2].
	Strength float64 `json:"strength"`
	// Type classifies the coupling.
	Type EntanglementType `json:"type"`
}

// pairKey builds the canonical lookup key for an undirected pair.
func pairKey(id1, id2 string) string {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return id1 + "\x00" + id2
}

// Entangle records a coupling between two systems and nudges both toward
// their mutual average phase and amplitude, proportional to
// correlation × strength. Returns the stored entanglement.
func (m *Manager) Entangle(id1, id2 string, etype EntanglementType, strength float64) (*Entanglement, error) {
	if id1 == id2 {
		return nil, fmt.Errorf("%w: cannot entangle %s with itself", ErrInvalidState, id1)
	}
	if !etype.Valid() {
		return nil, fmt.Errorf("%w: unknown entanglement type %q", ErrInvalidState, etype)
	}
	strength = clamp(strength, 0, 2)

	sys1, err := m.system(id1)
	if err != nil {
		return nil, err
	}
	sys2, err := m.system(id2)
	if err != nil {
		return nil, err
	}

	// Lock in id order so concurrent entangle calls cannot deadlock.
	first, second := sys1, sys2
	if first.ID > second.ID {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	defer second.mu.Unlock()
	defer first.mu.Unlock()

	correlation := alignmentLocked(sys1, sys2)
	pull := correlation * strength * 0.5

	nudgeTowardLocked(sys1, sys2, pull)
	nudgeTowardLocked(sys2, sys1, pull)
	sys1.normalizeLocked()
	sys2.normalizeLocked()

	if !containsString(sys1.EntangledWith, id2) {
		sys1.EntangledWith = append(sys1.EntangledWith, id2)
	}
	if !containsString(sys2.EntangledWith, id1) {
		sys2.EntangledWith = append(sys2.EntangledWith, id1)
	}

	ent := &Entanglement{
		System1:     minString(id1, id2),
		System2:     maxString(id1, id2),
		Correlation: correlation,
		Strength:    strength,
		Type:        etype,
	}

	m.mu.Lock()
	m.entanglements[pairKey(id1, id2)] = ent
	m.mu.Unlock()
	return ent, nil
}

// EntanglementBetween returns the recorded entanglement for a pair,
// regardless of argument order, or nil if none exists.
func (m *Manager) EntanglementBetween(id1, id2 string) *Entanglement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entanglements[pairKey(id1, id2)]
}

// Entanglements returns all recorded entanglements ordered by endpoints.
func (m *Manager) Entanglements() []*Entanglement {
	m.mu.RLock()
	list := make([]*Entanglement, 0, len(m.entanglements))
	for _, ent := range m.entanglements {
		list = append(list, ent)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].System1 != list[j].System1 {
			return list[i].System1 < list[j].System1
		}
		return list[i].System2 < list[j].System2
	})
	return list
}

// PruneEntanglements stochastically decays weak entanglements: each
// recorded pair survives a tick with probability proportional to its
// strength. Returns the number removed.
func (m *Manager) PruneEntanglements(decayChance float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for key, ent := range m.entanglements {
		weakness := 1 - clamp(ent.Strength/2, 0, 1)
		if m.random() < decayChance*weakness {
			delete(m.entanglements, key)
			if s1, ok := m.systems[ent.System1]; ok {
				s1.mu.Lock()
				s1.EntangledWith = removeString(s1.EntangledWith, ent.System2)
				s1.mu.Unlock()
			}
			if s2, ok := m.systems[ent.System2]; ok {
				s2.mu.Lock()
				s2.EntangledWith = removeString(s2.EntangledWith, ent.System1)
				s2.mu.Unlock()
			}
			removed++
		}
	}
	return removed
}

// alignmentLocked computes the initial correlation between two systems
// from their leading components' phase and amplitude alignment.
// Callers hold both system locks.
func alignmentLocked(a, b *System) float64 {
	la := a.labelsByEnergyLocked()
	lb := b.labelsByEnergyLocked()
	if len(la) == 0 || len(lb) == 0 {
		return 0
	}
	sva, svb := a.States[la[0]], b.States[lb[0]]
	phaseAlign := math.Cos(sva.Phase - svb.Phase)
	ampAlign := 1 - math.Abs(sva.Amplitude-svb.Amplitude)
	return clamp(phaseAlign*ampAlign, -1, 1)
}

// nudgeTowardLocked pulls sys's components toward other's matching
// components by the given fraction. Callers hold both system locks.
func nudgeTowardLocked(sys, other *System, pull float64) {
	for label, sv := range sys.States {
		osv, ok := other.States[label]
		if !ok {
			continue
		}
		sv.Phase = wrapPhase(sv.Phase + (osv.Phase-sv.Phase)*pull*0.5)
		sv.Amplitude += (osv.Amplitude - sv.Amplitude) * pull * 0.5
		if sv.Amplitude < 0 {
			sv.Amplitude = 0
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func minString(a, b string) string {
	if a < b {
		return a
	}
	return b
}

func maxString(a, b string) string {
	if a > b {
		return a
	}
	return b
}
