package interference

import (
	"fmt"
	"math"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// ApplyResonance boosts two waves' amplitudes and drifts their
// frequencies toward the shared mean. Resonance strengthens the closer
// the frequencies already are.
func (e *Engine) ApplyResonance(taskID1, taskID2 string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	w1, w2, err := e.wavePairLocked(taskID1, taskID2)
	if err != nil {
		return err
	}

	mean := (w1.Frequency + w2.Frequency) / 2
	detune := math.Abs(w1.Frequency - w2.Frequency)
	// Lorentzian-style response: strong near matching frequencies.
	gain := 1 / (1 + detune*detune*4)

	w1.Frequency += (mean - w1.Frequency) * gain
	w2.Frequency += (mean - w2.Frequency) * gain
	w1.Amplitude *= 1 + 0.25*gain
	w2.Amplitude *= 1 + 0.25*gain
	return nil
}

// CreateStandingWave pins two waves into fixed antinode positions on the
// line between them and zeroes their velocities.
func (e *Engine) CreateStandingWave(taskID1, taskID2 string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	w1, w2, err := e.wavePairLocked(taskID1, taskID2)
	if err != nil {
		return err
	}

	mid := models.Vector3{
		X: (w1.Position.X + w2.Position.X) / 2,
		Y: (w1.Position.Y + w2.Position.Y) / 2,
		Z: (w1.Position.Z + w2.Position.Z) / 2,
	}
	wavelength := (w1.Wavelength + w2.Wavelength) / 2
	quarter := wavelength / 4

	dir := w2.Position.Add(w1.Position.Scale(-1))
	dist := w1.Position.DistanceTo(w2.Position)
	if dist > 0 {
		dir = dir.Scale(1 / dist)
	} else {
		dir = models.Vector3{X: 1}
	}

	// Antinodes sit a quarter wavelength either side of the midpoint.
	w1.Position = mid.Add(dir.Scale(-quarter))
	w2.Position = mid.Add(dir.Scale(quarter))
	w1.Velocity = models.Vector3{}
	w2.Velocity = models.Vector3{}
	w1.Phase = 0
	w2.Phase = math.Pi

	e.rebuildGridLocked()
	return nil
}

// QuantumBeating returns the magnitude of the frequency-difference
// envelope between two waves.
func (e *Engine) QuantumBeating(taskID1, taskID2 string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w1, w2, err := e.wavePairLocked(taskID1, taskID2)
	if err != nil {
		return 0, err
	}
	return math.Abs(w1.Frequency - w2.Frequency), nil
}

func (e *Engine) wavePairLocked(taskID1, taskID2 string) (*TaskWave, *TaskWave, error) {
	w1, ok := e.waves[taskID1]
	if !ok {
		return nil, nil, fmt.Errorf("no wave for task %s", taskID1)
	}
	w2, ok := e.waves[taskID2]
	if !ok {
		return nil, nil, fmt.Errorf("no wave for task %s", taskID2)
	}
	return w1, w2, nil
}
