package quantum

import (
	"sort"
	"sync"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// AgentDirectory is the collaborator supplying agent availability.
// Implementations may be backed by the mesh transport; the data is
// treated as a noisy signal and clamped at the boundary.
type AgentDirectory interface {
	// ListAgents returns the ids of all known agents.
	ListAgents() []string
	// GetAgent returns the info for one agent and whether it is known.
	GetAgent(id string) (models.AgentInfo, bool)
}

// MemoryDirectory is an in-memory AgentDirectory for tests and local
// simulation.
type MemoryDirectory struct {
	mu     sync.RWMutex
	agents map[string]models.AgentInfo
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{agents: make(map[string]models.AgentInfo)}
}

// Upsert adds or replaces an agent record.
func (d *MemoryDirectory) Upsert(agent models.AgentInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agents[agent.ID] = agent
}

// Remove deletes an agent record. Returns true if it existed.
func (d *MemoryDirectory) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.agents[id]; !ok {
		return false
	}
	delete(d.agents, id)
	return true
}

// ListAgents returns all agent ids in lexical order.
func (d *MemoryDirectory) ListAgents() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.agents))
	for id := range d.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetAgent returns one agent's info.
func (d *MemoryDirectory) GetAgent(id string) (models.AgentInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	agent, ok := d.agents[id]
	return agent, ok
}
