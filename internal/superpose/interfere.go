package superpose

import (
	"fmt"
	"math"
)

// InterferenceKind selects how an interference pass adjusts amplitudes.
type InterferenceKind string

const (
	// InterferenceConstructive reinforces phase-aligned components.
	InterferenceConstructive InterferenceKind = "constructive"
	// InterferenceDestructive cancels phase-aligned components.
	InterferenceDestructive InterferenceKind = "destructive"
	// InterferenceMixed randomizes the sign per component pair.
	InterferenceMixed InterferenceKind = "mixed"
)

// Valid returns true if the kind is a known interference kind.
func (k InterferenceKind) Valid() bool {
	switch k {
	case InterferenceConstructive, InterferenceDestructive, InterferenceMixed:
		return true
	default:
		return false
	}
}

// interferenceGain scales how strongly one component perturbs another.
const interferenceGain = 0.1

// ApplyInterference runs a pairwise phase-difference-weighted amplitude
// adjustment over the system's components and renormalizes.
func (m *Manager) ApplyInterference(id string, kind InterferenceKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown interference kind %q", ErrInvalidState, kind)
	}
	sys, err := m.system(id)
	if err != nil {
		return err
	}

	sys.mu.Lock()
	defer sys.mu.Unlock()

	labels := sys.labelsByEnergyLocked()
	adjust := make(map[string]float64, len(labels))
	for i, la := range labels {
		for j, lb := range labels {
			if i == j {
				continue
			}
			a, b := sys.States[la], sys.States[lb]
			delta := math.Cos(a.Phase-b.Phase) * interferenceGain * b.Amplitude
			switch kind {
			case InterferenceDestructive:
				delta = -delta
			case InterferenceMixed:
				if m.random() < 0.5 {
					delta = -delta
				}
			}
			adjust[la] += delta
		}
	}
	for label, delta := range adjust {
		sv := sys.States[label]
		sv.Amplitude += delta
		if sv.Amplitude < 0 {
			sv.Amplitude = 0
		}
	}
	sys.normalizeLocked()
	return nil
}
