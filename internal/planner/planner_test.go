package planner

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danieleschmidt/quantum-mesh-planner/internal/graph"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/interference"
	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

func newTask(id string, priority float64, required int, deps ...string) *models.Task {
	return &models.Task{
		ID:                id,
		Priority:          priority,
		RequiredAgents:    required,
		DependsOn:         deps,
		EstimatedDuration: time.Minute,
		Quantum:           models.NewQuantumTaskState(),
		CreatedAt:         time.Now(),
	}
}

func idleAgents(ids ...string) []models.AgentInfo {
	agents := make([]models.AgentInfo, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, models.AgentInfo{ID: id, Energy: 1, Status: models.AgentStatusIdle})
	}
	return agents
}

func directPlanner() *Planner {
	cfg := DefaultConfig()
	cfg.AnnealingEnabled = false
	cfg.InterferenceEnabled = false
	return New(cfg, nil, rand.New(rand.NewSource(3)))
}

func TestPlanEmptyTaskSet(t *testing.T) {
	p := directPlanner()
	_, err := p.Plan(context.Background(), nil, idleAgents("a1"))
	if !errors.Is(err, ErrNoValidTasks) {
		t.Fatalf("expected ErrNoValidTasks, got %v", err)
	}
}

func TestPlanDirectRespectsRequiredAgents(t *testing.T) {
	p := directPlanner()
	t1 := newTask("t1", 5, 2)
	t2 := newTask("t2", 3, 1, "t1")

	results, err := p.Plan(context.Background(), []*models.Task{t1, t2}, idleAgents("a1", "a2", "a3"))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	if got := len(results["t1"].AssignedAgents); got > 2 {
		t.Errorf("t1 assigned %d agents, want at most 2", got)
	}
	if results["t1"].ExecutionProbability <= 0 {
		t.Error("expected positive execution probability for staffed t1")
	}
}

func TestPlanDependencyPenalty(t *testing.T) {
	p := directPlanner()

	pending := newTask("dep", 5, 1)
	blocked := newTask("t", 5, 1, "dep")
	deps := graph.New()
	if err := deps.Build([]*models.Task{pending, blocked}); err != nil {
		t.Fatalf("build graph: %v", err)
	}

	agents := idleAgents("a1")
	withUnmet := p.executionProbability(blocked, []string{"a1"}, agents, deps)

	deps.MarkComplete("dep")
	withMet := p.executionProbability(blocked, []string{"a1"}, agents, deps)

	if withMet <= 0 {
		t.Fatal("expected positive probability with met dependency")
	}
	if withUnmet > dependencyPenalty*withMet+1e-12 {
		t.Errorf("unmet-dependency probability %v exceeds %v× met probability %v",
			withUnmet, dependencyPenalty, withMet)
	}
}

func TestPlanUpdatesSuperposition(t *testing.T) {
	p := directPlanner()
	t1 := newTask("t1", 5, 1)
	readyBefore := t1.Quantum.Superposition[models.TaskStateReady]

	_, err := p.Plan(context.Background(), []*models.Task{t1}, idleAgents("a1"))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	if t1.Quantum.Superposition[models.TaskStateReady] <= readyBefore {
		t.Error("expected assignment to move weight toward ready")
	}

	var total float64
	for _, w := range t1.Quantum.Superposition {
		total += w
	}
	if total < 1-1e-9 || total > 1+1e-9 {
		t.Errorf("superposition not normalized after planning: sum=%v", total)
	}
}

func TestPlanNoAgentsDecaysCoherence(t *testing.T) {
	p := directPlanner()
	t1 := newTask("t1", 5, 1)
	before := t1.Quantum.Coherence

	_, err := p.Plan(context.Background(), []*models.Task{t1}, nil)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if t1.Quantum.Coherence >= before {
		t.Errorf("expected coherence decay without agents, got %v -> %v", before, t1.Quantum.Coherence)
	}
}

func TestPlanAnnealedPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InterferenceEnabled = false
	cfg.Annealing.MaxIterations = 200
	p := New(cfg, nil, rand.New(rand.NewSource(3)))

	t1 := newTask("t1", 5, 2)
	results, err := p.Plan(context.Background(), []*models.Task{t1}, idleAgents("a1", "a2", "a3"))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if !results["t1"].Annealed {
		t.Error("expected annealed result")
	}
	if len(results["t1"].AssignedAgents) == 0 {
		t.Error("expected agents assigned by annealing")
	}
}

func TestPlanWithInterferenceAdjustsPriorities(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnnealingEnabled = false
	engine := interference.NewEngine(rand.New(rand.NewSource(5)))
	engine.AddPattern(interference.Pattern{
		ID:       "field",
		Type:     interference.PatternConstructive,
		Strength: 4,
		Radius:   1000,
	})
	p := New(cfg, engine, rand.New(rand.NewSource(5)))

	pos := models.Vector3{X: 0, Y: 0, Z: 0}
	t1 := newTask("t1", 5, 1)
	t1.Position = &pos

	_, err := p.Plan(context.Background(), []*models.Task{t1}, idleAgents("a1"))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if t1.Priority == 5 {
		t.Error("expected interference to adjust priority")
	}
	if t1.Quantum.Interference == 0 {
		t.Error("expected interference contribution recorded")
	}
}

func TestEstimateTimesIncludeDependencyDelay(t *testing.T) {
	p := directPlanner()

	dep := newTask("dep", 5, 1)
	dep.EstimatedDuration = 10 * time.Minute
	task := newTask("t", 5, 1, "dep")

	deps := graph.New()
	if err := deps.Build([]*models.Task{dep, task}); err != nil {
		t.Fatalf("build graph: %v", err)
	}

	now := time.Now()
	start, completion := p.estimateTimes(task, []string{"a1"}, deps, now)
	if start.Before(now.Add(10 * time.Minute)) {
		t.Errorf("expected start after dependency duration, got %v", start.Sub(now))
	}
	if !completion.After(start) {
		t.Error("expected completion after start")
	}
}

func TestCheckCoherenceTunnelingReset(t *testing.T) {
	p := directPlanner()
	task := newTask("t1", 5, 1)
	task.Quantum.Coherence = 0.1
	task.Quantum.Superposition = map[models.TaskState]float64{
		models.TaskStateReady:     0.6,
		models.TaskStateExecuting: 0.4,
	}

	if !p.CheckCoherence(task) {
		t.Fatal("expected reset below coherence floor")
	}
	if task.Quantum.Superposition[models.TaskStateWaiting] != 1 {
		t.Errorf("expected hard reset to waiting, got %v", task.Quantum.Superposition)
	}
	if task.Quantum.Coherence != resetCoherence {
		t.Errorf("expected coherence %v, got %v", resetCoherence, task.Quantum.Coherence)
	}
}

func TestCheckCoherenceLeavesHealthyTasks(t *testing.T) {
	p := directPlanner()
	task := newTask("t1", 5, 1)
	task.Quantum.Coherence = 0.9

	if p.CheckCoherence(task) {
		t.Error("expected no reset above coherence floor")
	}
}

func TestCheckCoherenceLeavesCompletedTasks(t *testing.T) {
	p := directPlanner()
	task := newTask("t1", 5, 1)
	task.Quantum.Coherence = 0.05
	task.Quantum.Superposition = map[models.TaskState]float64{models.TaskStateCompleted: 1}

	if p.CheckCoherence(task) {
		t.Error("expected completed task left alone")
	}
}
