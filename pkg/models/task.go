package models

import (
	"math"
	"time"
)

// TaskState represents the lifecycle label of a planned task.
type TaskState string

const (
	// TaskStateWaiting indicates the task has not been scheduled yet.
	TaskStateWaiting TaskState = "waiting"
	// TaskStateReady indicates the task has agents assigned and can start.
	TaskStateReady TaskState = "ready"
	// TaskStateExecuting indicates the task is being worked on.
	TaskStateExecuting TaskState = "executing"
	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"
)

// Valid returns true if the state is a known lifecycle label.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateWaiting, TaskStateReady, TaskStateExecuting, TaskStateCompleted:
		return true
	default:
		return false
	}
}

// LifecycleStates lists all lifecycle labels in transition order.
func LifecycleStates() []TaskState {
	return []TaskState{TaskStateWaiting, TaskStateReady, TaskStateExecuting, TaskStateCompleted}
}

// ConstraintKind classifies a scheduling constraint.
type ConstraintKind string

const (
	// ConstraintTime limits when a task may run.
	ConstraintTime ConstraintKind = "time"
	// ConstraintResource limits which resources a task may consume.
	ConstraintResource ConstraintKind = "resource"
	// ConstraintDependency requires another task to finish first.
	ConstraintDependency ConstraintKind = "dependency"
	// ConstraintSpatial ties a task to a region of space.
	ConstraintSpatial ConstraintKind = "spatial"
)

// Valid returns true if the kind is a known constraint kind.
func (k ConstraintKind) Valid() bool {
	switch k {
	case ConstraintTime, ConstraintResource, ConstraintDependency, ConstraintSpatial:
		return true
	default:
		return false
	}
}

// Constraint is a weighted scheduling requirement attached to a task.
type Constraint struct {
	// Kind classifies the constraint.
	Kind ConstraintKind `json:"kind"`
	// Value is the constraint payload, interpreted per kind.
	Value float64 `json:"value"`
	// Weight scales the constraint's penalty in the energy function.
	Weight float64 `json:"weight"`
}

// Vector3 is a position in the simulation space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns the component-wise sum of two vectors.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns the vector multiplied by a scalar.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// DistanceTo returns the euclidean distance to another position.
func (v Vector3) DistanceTo(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// QuantumTaskState is the probabilistic state embedded in every task.
type QuantumTaskState struct {
	// Superposition maps lifecycle labels to non-negative weights.
	// Weights sum to 1 after every mutation.
	Superposition map[TaskState]float64 `json:"superposition"`
	// Entangled lists ids of tasks coupled to this one.
	Entangled []string `json:"entangled,omitempty"`
	// Coherence summarizes how decided the state is, in [0,1].
	Coherence float64 `json:"coherence"`
	// Interference is the last applied interference contribution.
	Interference float64 `json:"interference"`
}

// NewQuantumTaskState returns a fresh state concentrated on "waiting".
func NewQuantumTaskState() *QuantumTaskState {
	return &QuantumTaskState{
		Superposition: map[TaskState]float64{
			TaskStateWaiting:   0.7,
			TaskStateReady:     0.2,
			TaskStateExecuting: 0.05,
			TaskStateCompleted: 0.05,
		},
		Coherence: 1.0,
	}
}

// Normalize rescales superposition weights so they sum to 1.
// Negative weights are clipped to zero first.
func (q *QuantumTaskState) Normalize() {
	var total float64
	for label, w := range q.Superposition {
		if w < 0 {
			q.Superposition[label] = 0
			continue
		}
		total += w
	}
	if total <= 0 {
		// Degenerate state collapses back to waiting.
		for label := range q.Superposition {
			q.Superposition[label] = 0
		}
		q.Superposition[TaskStateWaiting] = 1
		return
	}
	for label, w := range q.Superposition {
		if w > 0 {
			q.Superposition[label] = w / total
		}
	}
}

// Dominant returns the label with the highest weight.
func (q *QuantumTaskState) Dominant() TaskState {
	best := TaskStateWaiting
	bestW := -1.0
	for _, label := range LifecycleStates() {
		if w := q.Superposition[label]; w > bestW {
			best = label
			bestW = w
		}
	}
	return best
}

// Task represents a unit of work to be assigned to agents.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Priority is the scheduling priority, adjusted by interference.
	Priority float64 `json:"priority"`
	// DependsOn lists task IDs that must complete before this task.
	DependsOn []string `json:"depends_on,omitempty"`
	// EstimatedDuration is the expected execution time.
	EstimatedDuration time.Duration `json:"estimated_duration"`
	// RequiredAgents is the number of agents this task needs.
	RequiredAgents int `json:"required_agents"`
	// Position is the task's location in space, if known.
	Position *Vector3 `json:"position,omitempty"`
	// Constraints are the weighted scheduling requirements.
	Constraints []Constraint `json:"constraints,omitempty"`
	// Quantum is the task's probabilistic state.
	Quantum *QuantumTaskState `json:"quantum,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task was completed, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed returns true if the task has finished.
func (t *Task) Completed() bool {
	if t.CompletedAt != nil {
		return true
	}
	return t.Quantum != nil && t.Quantum.Dominant() == TaskStateCompleted
}
