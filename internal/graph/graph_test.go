package graph

import (
	"errors"
	"testing"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

func buildGraph(t *testing.T, tasks []*models.Task) *DependencyGraph {
	t.Helper()
	g := New()
	if err := g.Build(tasks); err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	return g
}

func TestBuildRejectsUnknownDependency(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{
		{ID: "t1", DependsOn: []string{"missing"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	g := New()
	err := g.Build([]*models.Task{
		{ID: "t1", DependsOn: []string{"t2"}},
		{ID: "t2", DependsOn: []string{"t1"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestReadyOrdersByPriority(t *testing.T) {
	g := buildGraph(t, []*models.Task{
		{ID: "low", Priority: 1},
		{ID: "high", Priority: 9},
		{ID: "mid", Priority: 5},
	})

	ready := g.Ready()
	if len(ready) != 3 {
		t.Fatalf("expected 3 ready tasks, got %d", len(ready))
	}
	if ready[0].ID != "high" || ready[2].ID != "low" {
		t.Errorf("expected priority ordering high..low, got %s..%s", ready[0].ID, ready[2].ID)
	}
}

func TestReadyExcludesBlockedTasks(t *testing.T) {
	g := buildGraph(t, []*models.Task{
		{ID: "t1"},
		{ID: "t2", DependsOn: []string{"t1"}},
	})

	ready := g.Ready()
	if len(ready) != 1 || ready[0].ID != "t1" {
		t.Fatalf("expected only t1 ready, got %v", ready)
	}

	g.MarkComplete("t1")
	ready = g.Ready()
	if len(ready) != 1 || ready[0].ID != "t2" {
		t.Fatalf("expected only t2 ready after t1 completes, got %v", ready)
	}
}

func TestTopologicalSort(t *testing.T) {
	g := buildGraph(t, []*models.Task{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
	})

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("expected a before b before c, got %v", order)
	}
}

func TestSatisfaction(t *testing.T) {
	g := buildGraph(t, []*models.Task{
		{ID: "d1"},
		{ID: "d2"},
		{ID: "t", DependsOn: []string{"d1", "d2"}},
	})

	if got := g.Satisfaction("t"); got != 0 {
		t.Errorf("expected satisfaction 0, got %v", got)
	}
	g.MarkComplete("d1")
	if got := g.Satisfaction("t"); got != 0.5 {
		t.Errorf("expected satisfaction 0.5, got %v", got)
	}
	if got := g.Satisfaction("d1"); got != 1 {
		t.Errorf("expected no-dependency satisfaction 1, got %v", got)
	}
}

func TestDependents(t *testing.T) {
	g := buildGraph(t, []*models.Task{
		{ID: "root"},
		{ID: "child1", DependsOn: []string{"root"}},
		{ID: "child2", DependsOn: []string{"root"}},
	})

	deps := g.Dependents("root")
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents, got %v", deps)
	}
}
