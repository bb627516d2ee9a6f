// Package graph provides the task dependency graph used by the planner.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on.
	edges map[string][]string
	// completed tracks which tasks have been marked complete.
	completed map[string]bool
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]*models.Task),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
	}
}

// Build constructs the graph from a slice of tasks.
// Returns an error if a cycle is detected or a dependency references an
// unknown task.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*models.Task, len(tasks))
	g.edges = make(map[string][]string, len(tasks))
	g.completed = make(map[string]bool)

	for _, task := range tasks {
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		if task.Completed() {
			g.completed[task.ID] = true
		}
	}

	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked runs DFS coloring to find back edges. Caller holds the lock.
func (g *DependencyGraph) hasCycleLocked() bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// TopologicalSort returns task IDs with every dependency before its
// dependents. Returns ErrCycleDetected if the graph has a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool, len(g.nodes))
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.edges[id] {
			visit(depID)
		}
		result = append(result, id)
	}

	// Deterministic order regardless of map iteration.
	ids := g.sortedIDsLocked()
	for _, id := range ids {
		visit(id)
	}
	return result, nil
}

// Ready returns incomplete tasks whose dependencies are all complete,
// ordered by descending priority.
func (g *DependencyGraph) Ready() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for id, task := range g.nodes {
		if g.completed[id] {
			continue
		}
		if g.satisfiedLocked(id) {
			ready = append(ready, task)
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].ID < ready[j].ID
	})
	return ready
}

// satisfiedLocked reports whether every dependency of id is complete.
func (g *DependencyGraph) satisfiedLocked(id string) bool {
	for _, depID := range g.edges[id] {
		if !g.completed[depID] {
			return false
		}
	}
	return true
}

// Satisfaction returns the fraction of the task's dependencies that are
// complete, in [0,1]. A task with no dependencies is fully satisfied.
func (g *DependencyGraph) Satisfaction(taskID string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps := g.edges[taskID]
	if len(deps) == 0 {
		return 1
	}
	var done int
	for _, depID := range deps {
		if g.completed[depID] {
			done++
		}
	}
	return float64(done) / float64(len(deps))
}

// MarkComplete marks a task as completed, unblocking its dependents.
func (g *DependencyGraph) MarkComplete(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[taskID] = true
}

// Task returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the IDs of tasks that the given task depends on.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	deps := make([]string, len(g.edges[taskID]))
	copy(deps, g.edges[taskID])
	return deps
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

// sortedIDsLocked returns all node IDs in lexical order. Caller holds the lock.
func (g *DependencyGraph) sortedIDsLocked() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
