// Package interference converts tasks into spatial waves and derives
// priority adjustments from their superposed amplitudes.
package interference

import (
	"math"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// TaskWave is the ephemeral wave derived from one task. Waves are
// regenerated from tasks every time the engine is seeded; nothing here
// survives a reseed.
type TaskWave struct {
	// TaskID identifies the originating task.
	TaskID string `json:"task_id"`
	// Amplitude is the wave's peak height.
	Amplitude float64 `json:"amplitude"`
	// Frequency is derived from the task's priority.
	Frequency float64 `json:"frequency"`
	// Phase is the task's priority folded into [0, 2π).
	Phase float64 `json:"phase"`
	// Position is the wave's current center.
	Position models.Vector3 `json:"position"`
	// Velocity moves the wave during propagation.
	Velocity models.Vector3 `json:"velocity"`
	// Wavelength is the spatial period.
	Wavelength float64 `json:"wavelength"`
	// Damping attenuates amplitude with distance.
	Damping float64 `json:"damping"`
}

// amplitudeAt returns the wave's contribution at a point, attenuated by
// distance and offset by phase.
func (w *TaskWave) amplitudeAt(p models.Vector3, t float64) float64 {
	dist := w.Position.DistanceTo(p)
	if w.Wavelength <= 0 {
		return 0
	}
	attenuation := math.Exp(-w.Damping * dist)
	k := 2 * math.Pi / w.Wavelength
	return w.Amplitude * attenuation * math.Cos(k*dist-2*math.Pi*w.Frequency*t+w.Phase)
}

// baseFrequency converts a task priority into a wave frequency.
func baseFrequency(priority float64) float64 {
	if priority < 0 {
		priority = 0
	}
	return 0.5 + priority*0.1
}

// wrap2Pi folds a value into [0, 2π).
func wrap2Pi(v float64) float64 {
	v = math.Mod(v, 2*math.Pi)
	if v < 0 {
		v += 2 * math.Pi
	}
	return v
}
