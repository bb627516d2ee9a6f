package superpose

import (
	"fmt"
	"time"
)

// Measurement records one collapse of a system.
type Measurement struct {
	// SystemID is the measured system.
	SystemID string `json:"system_id"`
	// Outcome is the label the system collapsed to.
	Outcome string `json:"outcome"`
	// At is when the measurement happened.
	At time.Time `json:"at"`
	// Cascaded is true when the collapse was forced by an entangled
	// partner's measurement rather than a direct call.
	Cascaded bool `json:"cascaded"`
}

// Measure collapses a system to a single state chosen by a weighted
// random draw over current probabilities, then propagates through
// entanglements: partners with |correlation × strength| > 0.5 collapse
// in the same call, weaker partners receive a partial decoherence step.
//
// The returned slice holds the direct measurement first, followed by any
// cascaded measurements.
func (m *Manager) Measure(id string) ([]Measurement, error) {
	if _, err := m.system(id); err != nil {
		return nil, err
	}
	visited := make(map[string]bool)
	return m.measure(id, false, visited)
}

func (m *Manager) measure(id string, cascaded bool, visited map[string]bool) ([]Measurement, error) {
	if visited[id] {
		return nil, nil
	}
	visited[id] = true

	sys, err := m.system(id)
	if err != nil {
		if cascaded {
			// Partner disappeared between lookup and collapse; the
			// direct measurement already succeeded.
			return nil, nil
		}
		return nil, err
	}

	sys.mu.Lock()
	outcome := m.collapseLocked(sys)
	now := time.Now()
	sys.LastMeasurement = now
	sys.Collapsed = true
	partners := make([]string, len(sys.EntangledWith))
	copy(partners, sys.EntangledWith)
	sys.mu.Unlock()

	events := []Measurement{{SystemID: id, Outcome: outcome, At: now, Cascaded: cascaded}}

	for _, partnerID := range partners {
		ent := m.EntanglementBetween(id, partnerID)
		if ent == nil {
			continue
		}
		coupling := ent.Correlation * ent.Strength
		if coupling < 0 {
			coupling = -coupling
		}
		if coupling > 0.5 {
			cascadedEvents, err := m.measure(partnerID, true, visited)
			if err != nil {
				return events, err
			}
			events = append(events, cascadedEvents...)
		} else {
			m.partialDecohere(partnerID, coupling)
		}
	}
	return events, nil
}

// collapseLocked performs the cumulative-distribution draw and rewrites
// the system as a single definite state. Caller holds sys.mu.
func (m *Manager) collapseLocked(sys *System) string {
	r := m.random()
	labels := sys.labelsByEnergyLocked()

	var cumulative float64
	outcome := ""
	for _, label := range labels {
		cumulative += sys.States[label].Probability
		if r <= cumulative {
			outcome = label
			break
		}
	}
	if outcome == "" && len(labels) > 0 {
		// Floating-point shortfall: fall back to the last component.
		outcome = labels[len(labels)-1]
	}

	energy := 0.0
	if sv, ok := sys.States[outcome]; ok {
		energy = sv.Energy
	}
	sys.States = map[string]*StateVector{
		outcome: {Amplitude: 1, Phase: 0, Probability: 1, Energy: energy},
	}
	return outcome
}

// partialDecohere dampens a weakly-coupled partner toward its dominant
// component without collapsing it.
func (m *Manager) partialDecohere(id string, amount float64) {
	sys, err := m.system(id)
	if err != nil {
		return
	}

	sys.mu.Lock()
	defer sys.mu.Unlock()

	labels := sys.labelsByEnergyLocked()
	var dominant string
	var peak float64
	for _, label := range labels {
		if p := sys.States[label].Probability; p > peak {
			peak = p
			dominant = label
		}
	}
	for label, sv := range sys.States {
		if label == dominant {
			sv.Amplitude *= 1 + amount*0.5
		} else {
			sv.Amplitude *= 1 - amount*0.5
		}
	}
	sys.normalizeLocked()
}

// Outcome is a convenience wrapper for callers that only need the direct
// measurement's label.
func (m *Manager) Outcome(id string) (string, error) {
	events, err := m.Measure(id)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownSystem, id)
	}
	return events[0].Outcome, nil
}
