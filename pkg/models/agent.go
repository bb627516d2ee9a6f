package models

// AgentStatus represents the reported state of an agent in the mesh.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent is available for assignment.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusBusy indicates the agent is working on a task.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusOffline indicates the agent is unreachable.
	AgentStatusOffline AgentStatus = "offline"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusBusy, AgentStatusOffline:
		return true
	default:
		return false
	}
}

// AgentInfo describes one agent as reported by the agent directory.
// Directory data is an untrusted signal: energy may be stale or noisy,
// so consumers clamp it rather than assume it is accurate.
type AgentInfo struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Energy is the agent's remaining capacity in [0,1].
	Energy float64 `json:"energy"`
	// Status is the agent's reported availability.
	Status AgentStatus `json:"status"`
	// Position is the agent's location, if the position source knows it.
	Position *Vector3 `json:"position,omitempty"`
}

// Available returns true if the agent can accept new work.
func (a AgentInfo) Available() bool {
	return a.Status == AgentStatusIdle
}

// ClampedEnergy returns the energy forced into [0,1].
func (a AgentInfo) ClampedEnergy() float64 {
	switch {
	case a.Energy < 0:
		return 0
	case a.Energy > 1:
		return 1
	default:
		return a.Energy
	}
}
