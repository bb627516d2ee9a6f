// Package superpose manages probabilistic quantum systems: superposition
// states, gate transforms, entanglement, measurement, and decoherence.
package superpose

import (
	"math"
	"sync"
	"time"
)

// StateVector is one labelled component of a system's superposition.
type StateVector struct {
	// Amplitude is the real amplitude of this component.
	Amplitude float64 `json:"amplitude"`
	// Phase is the component's phase in radians.
	Phase float64 `json:"phase"`
	// Probability is Amplitude squared, maintained by normalization.
	Probability float64 `json:"probability"`
	// Energy is the component's energy level, used for ordering.
	Energy float64 `json:"energy"`
}

// InitialState describes one component when creating a system.
type InitialState struct {
	// Label names the component.
	Label string
	// Amplitude is the unnormalized starting amplitude.
	Amplitude float64
	// Phase is the starting phase; zero means "assign a default spread".
	Phase float64
	// Energy is the component's energy level.
	Energy float64
}

// System is one quantum system, usually paired 1:1 with a task.
// All mutation goes through the owning Manager, which serializes access
// per system id via this mutex.
type System struct {
	mu sync.Mutex

	// ID is the unique identifier for this system.
	ID string
	// States maps component labels to their state vectors.
	States map[string]*StateVector
	// EntangledWith lists ids of systems entangled with this one.
	EntangledWith []string
	// CoherenceTime is how long the system stays coherent without
	// measurement.
	CoherenceTime time.Duration
	// DecoherenceRate scales natural decoherence per second.
	DecoherenceRate float64
	// LastMeasurement is when the system was last measured.
	LastMeasurement time.Time
	// Collapsed is true after a measurement until the next gate.
	Collapsed bool
}

// normalizeLocked rescales amplitudes so probabilities sum to 1 and
// refreshes each component's Probability. Caller holds s.mu.
func (s *System) normalizeLocked() {
	var total float64
	for _, sv := range s.States {
		total += sv.Amplitude * sv.Amplitude
	}
	if total <= 0 {
		// Degenerate state: spread evenly.
		n := float64(len(s.States))
		if n == 0 {
			return
		}
		amp := 1 / math.Sqrt(n)
		for _, sv := range s.States {
			sv.Amplitude = amp
			sv.Probability = amp * amp
		}
		return
	}
	norm := math.Sqrt(total)
	for _, sv := range s.States {
		sv.Amplitude /= norm
		sv.Probability = sv.Amplitude * sv.Amplitude
	}
}

// labelsByEnergyLocked returns component labels ordered by ascending
// energy, ties broken by label. Caller holds s.mu.
func (s *System) labelsByEnergyLocked() []string {
	labels := make([]string, 0, len(s.States))
	for label := range s.States {
		labels = append(labels, label)
	}
	// Insertion sort keeps this allocation-free for the tiny state maps
	// systems carry in practice.
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0; j-- {
			a, b := s.States[labels[j-1]], s.States[labels[j]]
			if a.Energy < b.Energy || (a.Energy == b.Energy && labels[j-1] < labels[j]) {
				break
			}
			labels[j-1], labels[j] = labels[j], labels[j-1]
		}
	}
	return labels
}

// Snapshot returns a deep copy of the system's state for observers.
func (s *System) Snapshot() SystemSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make(map[string]StateVector, len(s.States))
	for label, sv := range s.States {
		states[label] = *sv
	}
	entangled := make([]string, len(s.EntangledWith))
	copy(entangled, s.EntangledWith)

	return SystemSnapshot{
		ID:              s.ID,
		States:          states,
		EntangledWith:   entangled,
		Collapsed:       s.Collapsed,
		LastMeasurement: s.LastMeasurement,
	}
}

// SystemSnapshot is a read-only copy of a system's state.
type SystemSnapshot struct {
	ID              string                 `json:"id"`
	States          map[string]StateVector `json:"states"`
	EntangledWith   []string               `json:"entangled_with,omitempty"`
	Collapsed       bool                   `json:"collapsed"`
	LastMeasurement time.Time              `json:"last_measurement"`
}

// TotalProbability returns the sum of component probabilities.
func (s SystemSnapshot) TotalProbability() float64 {
	var total float64
	for _, sv := range s.States {
		total += sv.Probability
	}
	return total
}
