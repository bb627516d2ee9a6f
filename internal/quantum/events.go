// Package quantum is the planning integration façade: it owns the task
// registry, drives planning cycles, schedules continuous quantum-state
// evolution, and exposes metrics and visualization snapshots.
package quantum

import (
	"time"
)

// EventType represents the type of planner event.
type EventType string

const (
	// EventTaskCreated indicates a task was registered.
	EventTaskCreated EventType = "task_created"
	// EventPlanningComplete indicates a planning pass finished.
	EventPlanningComplete EventType = "planning_complete"
	// EventPlanningError indicates a planning pass failed.
	EventPlanningError EventType = "planning_error"
	// EventExecutionStarted indicates a planned task began executing.
	EventExecutionStarted EventType = "task_execution_started"
	// EventExecutionCompleted indicates a task finished executing.
	EventExecutionCompleted EventType = "task_execution_completed"
	// EventReplanningRequired indicates committed plans went stale, for
	// example after an agent was removed or a task tunneled back to
	// waiting.
	EventReplanningRequired EventType = "replanning_required"
	// EventMeasurement indicates a quantum system collapsed.
	EventMeasurement EventType = "measurement"
	// EventEntanglementCreated indicates two tasks were entangled.
	EventEntanglementCreated EventType = "entanglement_created"
)

// Event is one planner event delivered to external subscribers.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// PlannedTasks is the number of tasks covered (planning events).
	PlannedTasks int
	// Outcome is the collapsed label (measurement events).
	Outcome string
}
