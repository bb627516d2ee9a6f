// Package planner orchestrates one planning pass: interference-adjusted
// priorities, annealed or direct agent assignment, and superposition
// updates from the results.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/danieleschmidt/quantum-mesh-planner/internal/anneal"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/graph"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/interference"
	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// ErrNoValidTasks indicates planning was called with nothing resolvable.
var ErrNoValidTasks = errors.New("no valid tasks to plan")

const (
	// dependencyPenalty scales execution probability when dependencies
	// are unmet.
	dependencyPenalty = 0.3
	// coherenceFloor triggers a tunneling reset when crossed.
	coherenceFloor = 0.2
	// resetCoherence is the coherence a tunneled task restarts with.
	resetCoherence = 0.3
)

// Config tunes one Planner.
type Config struct {
	// AnnealingEnabled selects the annealing optimizer over the direct
	// planner.
	AnnealingEnabled bool
	// InterferenceEnabled applies wave interference to priorities before
	// assignment.
	InterferenceEnabled bool
	// Annealing is the optimizer tuning used when annealing is enabled.
	Annealing anneal.Config
}

// DefaultConfig returns the reference planner tuning.
func DefaultConfig() Config {
	return Config{
		AnnealingEnabled:    true,
		InterferenceEnabled: true,
		Annealing:           anneal.DefaultConfig(),
	}
}

// Planner runs planning passes over a task set.
type Planner struct {
	cfg    Config
	engine *interference.Engine
	rng    *rand.Rand

	// LastAnnealing holds the optimizer result of the most recent Plan
	// call, nil when the pass used the direct planner.
	LastAnnealing *models.AnnealingResult
}

// New creates a Planner. The engine may be nil when interference is
// disabled.
func New(cfg Config, engine *interference.Engine, rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, engine: engine, rng: rng}
}

// Plan executes one planning pass over the given tasks and agents and
// returns a result per task. Task superpositions and priorities are
// updated in place. Returns ErrNoValidTasks when the task set is empty.
func (p *Planner) Plan(ctx context.Context, tasks []*models.Task, agents []models.AgentInfo) (map[string]*models.PlanResult, error) {
	if len(tasks) == 0 {
		return nil, ErrNoValidTasks
	}

	deps := graph.New()
	if err := deps.Build(tasks); err != nil {
		return nil, fmt.Errorf("build dependency graph: %w", err)
	}

	// Interference must complete before the energy function reads
	// priorities.
	if p.cfg.InterferenceEnabled && p.engine != nil {
		p.engine.SeedWaves(tasks)
		for _, adj := range p.engine.Calculate(tasks) {
			if task := deps.Task(adj.TaskID); task != nil {
				task.Priority = adj.ModifiedPriority
				if task.Quantum != nil {
					task.Quantum.Interference = adj.Delta
				}
			}
		}
	}

	available := availableAgentIDs(agents)

	var assignment anneal.Assignment
	annealed := false
	p.LastAnnealing = nil
	if p.cfg.AnnealingEnabled && len(available) > 0 {
		res, err := anneal.OptimizeTaskSchedule(ctx, p.cfg.Annealing, tasks, available)
		if err != nil {
			log.Printf("[planner] annealing failed, falling back to direct planner: %v", err)
		} else {
			assignment = anneal.Assignment(res.BestSolution)
			annealed = true
			p.LastAnnealing = res
		}
	}
	if assignment == nil {
		assignment = p.directPlan(tasks, available, deps)
	}

	now := time.Now()
	results := make(map[string]*models.PlanResult, len(tasks))
	for _, task := range tasks {
		assigned := assignment[task.ID]
		result := &models.PlanResult{
			TaskID:               task.ID,
			AssignedAgents:       assigned,
			ExecutionProbability: p.executionProbability(task, assigned, agents, deps),
			Annealed:             annealed,
		}
		result.EstimatedStart, result.EstimatedCompletion = p.estimateTimes(task, assigned, deps, now)
		results[task.ID] = result

		p.applyOutcome(task, len(assigned) > 0)
	}
	return results, nil
}

// directPlan is the lighter fallback: agents are dealt greedily to
// dependency-satisfied tasks in priority order.
func (p *Planner) directPlan(tasks []*models.Task, agents []string, deps *graph.DependencyGraph) anneal.Assignment {
	assignment := make(anneal.Assignment, len(tasks))
	remaining := make([]string, len(agents))
	copy(remaining, agents)

	for _, task := range deps.Ready() {
		want := task.RequiredAgents
		if want > len(remaining) {
			want = len(remaining)
		}
		if want <= 0 {
			assignment[task.ID] = nil
			continue
		}
		assignment[task.ID] = remaining[:want]
		remaining = remaining[want:]
	}
	for _, task := range tasks {
		if _, ok := assignment[task.ID]; !ok {
			assignment[task.ID] = nil
		}
	}
	return assignment
}

// executionProbability combines agent sufficiency, coherence, normalized
// priority, and the dependency penalty.
func (p *Planner) executionProbability(task *models.Task, assigned []string, agents []models.AgentInfo, deps *graph.DependencyGraph) float64 {
	sufficiency := 1.0
	if task.RequiredAgents > 0 {
		sufficiency = float64(len(assigned)) / float64(task.RequiredAgents)
		if sufficiency > 1 {
			sufficiency = 1
		}
	}

	// Scale by mean reported energy of the assigned agents; directory
	// data is noisy, so it is clamped at the boundary.
	if len(assigned) > 0 {
		byID := make(map[string]models.AgentInfo, len(agents))
		for _, a := range agents {
			byID[a.ID] = a
		}
		var energy float64
		for _, id := range assigned {
			energy += byID[id].ClampedEnergy()
		}
		sufficiency *= energy / float64(len(assigned))
	}

	coherence := 1.0
	if task.Quantum != nil {
		coherence = task.Quantum.Coherence
	}

	priority := task.Priority / 10
	if priority > 1 {
		priority = 1
	}
	if priority < 0 {
		priority = 0
	}

	prob := sufficiency * coherence * priority
	if deps.Satisfaction(task.ID) < 1 {
		prob *= dependencyPenalty
	}
	return prob
}

// estimateTimes derives start and completion estimates from unmet
// dependency durations and a stochastic agent-availability term.
func (p *Planner) estimateTimes(task *models.Task, assigned []string, deps *graph.DependencyGraph, now time.Time) (time.Time, time.Time) {
	var depDelay time.Duration
	for _, depID := range deps.Dependencies(task.ID) {
		dep := deps.Task(depID)
		if dep == nil || dep.Completed() {
			continue
		}
		if dep.EstimatedDuration > depDelay {
			depDelay = dep.EstimatedDuration
		}
	}

	// Agents rarely pick work up instantly; model availability as a
	// random delay up to 20% of the task duration.
	jitter := time.Duration(p.rng.Float64() * 0.2 * float64(task.EstimatedDuration))
	start := now.Add(depDelay).Add(jitter)

	duration := task.EstimatedDuration
	if task.RequiredAgents > 0 && len(assigned) < task.RequiredAgents {
		// Understaffed tasks stretch proportionally.
		shortfall := float64(task.RequiredAgents-len(assigned)) / float64(task.RequiredAgents)
		duration += time.Duration(shortfall * float64(task.EstimatedDuration))
	}
	return start, start.Add(duration)
}

// applyOutcome updates a task's superposition and coherence from its
// assignment outcome: success moves weight toward ready, failure moves
// it back toward waiting.
func (p *Planner) applyOutcome(task *models.Task, assigned bool) {
	if task.Quantum == nil {
		return
	}
	q := task.Quantum

	if assigned {
		shift := q.Superposition[models.TaskStateWaiting] * 0.4
		q.Superposition[models.TaskStateWaiting] -= shift
		q.Superposition[models.TaskStateReady] += shift
		q.Coherence = min(1, q.Coherence+0.1)
	} else {
		shift := q.Superposition[models.TaskStateReady] * 0.5
		q.Superposition[models.TaskStateReady] -= shift
		q.Superposition[models.TaskStateWaiting] += shift
		q.Coherence *= 0.9
	}
	q.Normalize()
}

// CheckCoherence applies the tunneling reset: a task whose coherence has
// fallen below the floor is released for re-planning with a hard reset
// to waiting. Returns true if the task was reset.
func (p *Planner) CheckCoherence(task *models.Task) bool {
	if task.Quantum == nil || task.Quantum.Coherence >= coherenceFloor {
		return false
	}
	if task.Quantum.Dominant() == models.TaskStateCompleted {
		return false
	}

	for label := range task.Quantum.Superposition {
		task.Quantum.Superposition[label] = 0
	}
	task.Quantum.Superposition[models.TaskStateWaiting] = 1
	task.Quantum.Coherence = resetCoherence
	log.Printf("[planner] task %s tunneled back to waiting (coherence floor)", task.ID)
	return true
}

func availableAgentIDs(agents []models.AgentInfo) []string {
	var ids []string
	for _, a := range agents {
		if a.Available() {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
