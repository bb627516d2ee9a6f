package models

import "time"

// PlanResult is the outcome of one planning pass for a single task.
type PlanResult struct {
	// TaskID identifies the planned task.
	TaskID string `json:"task_id"`
	// AssignedAgents lists the agents allocated to the task, in order.
	AssignedAgents []string `json:"assigned_agents"`
	// ExecutionProbability estimates how likely the task is to execute
	// successfully with this assignment, in [0,1].
	ExecutionProbability float64 `json:"execution_probability"`
	// EstimatedStart is when the task is expected to begin.
	EstimatedStart time.Time `json:"estimated_start"`
	// EstimatedCompletion is when the task is expected to finish.
	EstimatedCompletion time.Time `json:"estimated_completion"`
	// Annealed is true when the assignment came from the annealing
	// optimizer rather than the direct planner.
	Annealed bool `json:"annealed"`
}

// AnnealingResult summarizes one optimize call across all chains.
type AnnealingResult struct {
	// BestSolution maps task id to its assigned agent ids.
	BestSolution map[string][]string `json:"best_solution"`
	// BestEnergy is the lowest energy found across all chains.
	BestEnergy float64 `json:"best_energy"`
	// Iterations is the total number of iterations executed.
	Iterations int `json:"iterations"`
	// ConvergedAt is the iteration at which the best energy last improved,
	// or -1 if the search never improved on the initial solution.
	ConvergedAt int `json:"converged_at"`
	// FinalTemperature is the temperature when the search stopped.
	FinalTemperature float64 `json:"final_temperature"`
	// TunnelingEvents counts accepted tunneling moves.
	TunnelingEvents int `json:"tunneling_events"`
	// SuperpositionCollapses counts superposition-move selections.
	SuperpositionCollapses int `json:"superposition_collapses"`
	// CoherentTransitions counts accepted classical moves.
	CoherentTransitions int `json:"coherent_transitions"`
	// EnergyTrace is the per-iteration best energy of the winning chain.
	EnergyTrace []float64 `json:"energy_trace,omitempty"`
	// TemperatureTrace is the per-iteration temperature of the winning chain.
	TemperatureTrace []float64 `json:"temperature_trace,omitempty"`
}
