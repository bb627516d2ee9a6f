package quantum

import "time"

// metricsTTL is how long a computed metrics snapshot stays fresh.
const metricsTTL = time.Second

// Metrics summarizes planner health for dashboards and the CLI.
type Metrics struct {
	// TotalTasks is the number of registered tasks.
	TotalTasks int `json:"total_tasks"`
	// CompletedTasks is how many of them have finished.
	CompletedTasks int `json:"completed_tasks"`
	// QuantumSystems is the live superposition-system count.
	QuantumSystems int `json:"quantum_systems"`
	// Entanglements is the live entanglement-link count.
	Entanglements int `json:"entanglements"`
	// AverageCoherence is the mean task coherence in [0,1].
	AverageCoherence float64 `json:"average_coherence"`
	// InterferenceEvents counts priority adjustments applied so far.
	InterferenceEvents int64 `json:"interference_events"`
	// Measurements counts state collapses, cascades included.
	Measurements int64 `json:"measurements"`
	// TasksPlanned counts plan results produced across all passes.
	TasksPlanned int64 `json:"tasks_planned"`
	// Executions counts completed execution jobs.
	Executions int64 `json:"executions"`
	// OptimizationGain is the energy improvement of the latest annealed
	// pass over its greedy starting point.
	OptimizationGain float64 `json:"optimization_gain"`
	// DroppedEvents counts events lost to slow subscribers.
	DroppedEvents uint64 `json:"dropped_events"`
}

// Metrics returns the current mesh metrics. Snapshots are memoized
// briefly so hot dashboards do not rescan the task map every call.
func (i *Integration) Metrics() Metrics {
	return i.cache.Compute("metrics", metricsTTL, i.computeMetrics)
}

func (i *Integration) computeMetrics() Metrics {
	i.mu.RLock()
	total := len(i.tasks)
	completed := 0
	coherence := 0.0
	for _, task := range i.tasks {
		if task.Completed() {
			completed++
		}
		if task.Quantum != nil {
			coherence += task.Quantum.Coherence
		}
	}
	i.mu.RUnlock()

	avg := 0.0
	if total > 0 {
		avg = coherence / float64(total)
	}

	i.gainMu.Lock()
	gain := i.lastGain
	i.gainMu.Unlock()

	return Metrics{
		TotalTasks:         total,
		CompletedTasks:     completed,
		QuantumSystems:     i.superpose.Count(),
		Entanglements:      len(i.superpose.Entanglements()),
		AverageCoherence:   avg,
		InterferenceEvents: i.interferenceEvents.Load(),
		Measurements:       i.measurements.Load(),
		TasksPlanned:       i.tasksPlanned.Load(),
		Executions:         i.executions.Load(),
		OptimizationGain:   gain,
		DroppedEvents:      i.emitter.Dropped(),
	}
}
