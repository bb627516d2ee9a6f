package superpose

import (
	"fmt"
	"math"
)

// Gate identifies one of the supported gate transforms.
type Gate string

const (
	// GateHadamard spreads amplitude equally across all components.
	GateHadamard Gate = "hadamard"
	// GatePauliX swaps the amplitudes of the two lowest-energy components.
	GatePauliX Gate = "pauli-x"
	// GatePauliY swaps the two lowest-energy components and rotates their
	// phases by ±π/2.
	GatePauliY Gate = "pauli-y"
	// GatePauliZ flips the phase of the second component by π.
	GatePauliZ Gate = "pauli-z"
	// GatePhase adds a parameterized phase shift to every component.
	GatePhase Gate = "phase"
	// GateRotation adds a parameterized phase rotation scaled per component.
	GateRotation Gate = "rotation"
)

// Valid returns true if the gate is a known transform.
func (g Gate) Valid() bool {
	switch g {
	case GateHadamard, GatePauliX, GatePauliY, GatePauliZ, GatePhase, GateRotation:
		return true
	default:
		return false
	}
}

// ApplyGate applies a gate transform to the system's state map and
// renormalizes. The params slice is interpreted per gate: phase and
// rotation read params[0] as the angle in radians.
func (m *Manager) ApplyGate(id string, gate Gate, params ...float64) error {
	if !gate.Valid() {
		return fmt.Errorf("%w: unknown gate %q", ErrInvalidState, gate)
	}
	sys, err := m.system(id)
	if err != nil {
		return err
	}

	sys.mu.Lock()
	defer sys.mu.Unlock()

	switch gate {
	case GateHadamard:
		m.applyHadamardLocked(sys)
	case GatePauliX:
		applyPauliXLocked(sys)
	case GatePauliY:
		applyPauliYLocked(sys)
	case GatePauliZ:
		applyPauliZLocked(sys)
	case GatePhase:
		applyPhaseLocked(sys, gateAngle(params))
	case GateRotation:
		applyRotationLocked(sys, gateAngle(params))
	}

	sys.Collapsed = false
	sys.normalizeLocked()
	return nil
}

func gateAngle(params []float64) float64 {
	if len(params) > 0 {
		return params[0]
	}
	return math.Pi / 4
}

// applyHadamardLocked spreads amplitude equally across components with a
// random phase re-seed.
func (m *Manager) applyHadamardLocked(sys *System) {
	n := float64(len(sys.States))
	if n == 0 {
		return
	}
	amp := 1 / math.Sqrt(n)
	for _, sv := range sys.States {
		sv.Amplitude = amp
		sv.Phase = m.random() * 2 * math.Pi
	}
}

func applyPauliXLocked(sys *System) {
	labels := sys.labelsByEnergyLocked()
	if len(labels) < 2 {
		return
	}
	a, b := sys.States[labels[0]], sys.States[labels[1]]
	a.Amplitude, b.Amplitude = b.Amplitude, a.Amplitude
}

func applyPauliYLocked(sys *System) {
	labels := sys.labelsByEnergyLocked()
	if len(labels) < 2 {
		return
	}
	a, b := sys.States[labels[0]], sys.States[labels[1]]
	a.Amplitude, b.Amplitude = b.Amplitude, a.Amplitude
	a.Phase = wrapPhase(a.Phase + math.Pi/2)
	b.Phase = wrapPhase(b.Phase - math.Pi/2)
}

func applyPauliZLocked(sys *System) {
	labels := sys.labelsByEnergyLocked()
	if len(labels) < 2 {
		return
	}
	sv := sys.States[labels[1]]
	sv.Phase = wrapPhase(sv.Phase + math.Pi)
}

func applyPhaseLocked(sys *System, angle float64) {
	for _, sv := range sys.States {
		sv.Phase = wrapPhase(sv.Phase + angle)
	}
}

// applyRotationLocked rotates each component's phase proportionally to
// its position in the energy ordering, so components drift apart.
func applyRotationLocked(sys *System, angle float64) {
	labels := sys.labelsByEnergyLocked()
	for i, label := range labels {
		sv := sys.States[label]
		sv.Phase = wrapPhase(sv.Phase + angle*float64(i+1))
	}
}

// wrapPhase folds a phase into [0, 2π).
func wrapPhase(phase float64) float64 {
	phase = math.Mod(phase, 2*math.Pi)
	if phase < 0 {
		phase += 2 * math.Pi
	}
	return phase
}
