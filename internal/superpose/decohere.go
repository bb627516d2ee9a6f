package superpose

import (
	"math"
	"time"
)

// Evolve applies one background evolution tick to every system: natural
// decoherence proportional to time since the last measurement (phase
// jitter plus amplitude damping toward uniform), and occasionally a
// mixed interference pass. This runs on a fixed cadence, independent of
// planning.
func (m *Manager) Evolve(dt time.Duration) {
	m.mu.RLock()
	systems := make([]*System, 0, len(m.systems))
	for _, sys := range m.systems {
		systems = append(systems, sys)
	}
	m.mu.RUnlock()

	for _, sys := range systems {
		m.decohereSystem(sys, dt)
		if m.random() < m.interferenceChance {
			_ = m.ApplyInterference(sys.ID, InterferenceMixed)
		}
	}
}

// decohereSystem drifts one system toward the maximally mixed state.
func (m *Manager) decohereSystem(sys *System, dt time.Duration) {
	sys.mu.Lock()
	defer sys.mu.Unlock()

	if len(sys.States) < 2 {
		return
	}

	elapsed := time.Since(sys.LastMeasurement)
	if elapsed <= 0 {
		return
	}
	// Decoherence accelerates the longer a system goes unmeasured,
	// saturating at its coherence time.
	age := math.Min(elapsed.Seconds()/sys.CoherenceTime.Seconds(), 1)
	damping := sys.DecoherenceRate * dt.Seconds() * age
	if damping <= 0 {
		return
	}

	uniform := 1 / math.Sqrt(float64(len(sys.States)))
	for _, sv := range sys.States {
		sv.Amplitude += (uniform - sv.Amplitude) * damping
		jitter := (m.random() - 0.5) * damping * math.Pi
		sv.Phase = wrapPhase(sv.Phase + jitter)
	}
	sys.Collapsed = false
	sys.normalizeLocked()
}
