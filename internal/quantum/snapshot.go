package quantum

import (
	"sort"
	"time"

	"github.com/danieleschmidt/quantum-mesh-planner/internal/interference"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/superpose"
	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// TaskSnapshot is the read-only view of one task.
type TaskSnapshot struct {
	ID        string           `json:"id" yaml:"id"`
	Title     string           `json:"title" yaml:"title"`
	Priority  float64          `json:"priority" yaml:"priority"`
	Dominant  models.TaskState `json:"dominant" yaml:"dominant"`
	Coherence float64          `json:"coherence" yaml:"coherence"`
	Entangled []string         `json:"entangled,omitempty" yaml:"entangled,omitempty"`
	Completed bool             `json:"completed" yaml:"completed"`
}

// Snapshot is a consistent point-in-time view of the mesh, suitable for
// serialization.
type Snapshot struct {
	TakenAt       time.Time                  `json:"taken_at" yaml:"taken_at"`
	Tasks         []TaskSnapshot             `json:"tasks" yaml:"tasks"`
	Systems       []superpose.SystemSnapshot `json:"systems" yaml:"systems"`
	Entanglements []*superpose.Entanglement  `json:"entanglements" yaml:"entanglements"`
	Waves         []interference.TaskWave    `json:"waves" yaml:"waves"`
	Metrics       Metrics                    `json:"metrics" yaml:"metrics"`
	// Traces of the most recent annealed planning pass, empty when every
	// pass so far used the direct planner.
	AnnealingEnergyTrace      []float64 `json:"annealing_energy_trace,omitempty" yaml:"annealing_energy_trace,omitempty"`
	AnnealingTemperatureTrace []float64 `json:"annealing_temperature_trace,omitempty" yaml:"annealing_temperature_trace,omitempty"`
}

// Snapshot captures the current mesh state.
func (i *Integration) Snapshot() Snapshot {
	i.mu.RLock()
	tasks := make([]TaskSnapshot, 0, len(i.tasks))
	for _, task := range i.tasks {
		snap := TaskSnapshot{
			ID:        task.ID,
			Title:     task.Title,
			Priority:  task.Priority,
			Completed: task.Completed(),
		}
		if task.Quantum != nil {
			snap.Dominant = task.Quantum.Dominant()
			snap.Coherence = task.Quantum.Coherence
			snap.Entangled = append([]string(nil), task.Quantum.Entangled...)
		}
		tasks = append(tasks, snap)
	}
	i.mu.RUnlock()
	sort.Slice(tasks, func(a, b int) bool { return tasks[a].ID < tasks[b].ID })

	energyTrace, tempTrace := i.annealTraces()
	return Snapshot{
		TakenAt:                   time.Now(),
		Tasks:                     tasks,
		Systems:                   i.superpose.Snapshot(),
		Entanglements:             i.superpose.Entanglements(),
		Waves:                     i.engine.Waves(),
		Metrics:                   i.computeMetrics(),
		AnnealingEnergyTrace:      energyTrace,
		AnnealingTemperatureTrace: tempTrace,
	}
}
