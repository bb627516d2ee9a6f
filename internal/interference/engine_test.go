package interference

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

func newTestEngine() *Engine {
	return NewEngine(rand.New(rand.NewSource(7)))
}

func positioned(id string, priority float64, x, y, z float64) *models.Task {
	return &models.Task{
		ID:       id,
		Priority: priority,
		Position: &models.Vector3{X: x, Y: y, Z: z},
	}
}

func TestSeedWavesDerivesFromPriority(t *testing.T) {
	e := newTestEngine()
	e.SeedWaves([]*models.Task{positioned("t1", 5, 0, 0, 0)})

	w, ok := e.Wave("t1")
	if !ok {
		t.Fatal("expected wave for t1")
	}
	if w.Frequency != baseFrequency(5) {
		t.Errorf("expected frequency %v, got %v", baseFrequency(5), w.Frequency)
	}
	if math.Abs(w.Phase-wrap2Pi(5)) > 1e-9 {
		t.Errorf("expected phase %v, got %v", wrap2Pi(5), w.Phase)
	}
}

func TestSeedWavesRandomPlacementIsDeterministic(t *testing.T) {
	e1 := NewEngine(rand.New(rand.NewSource(99)))
	e2 := NewEngine(rand.New(rand.NewSource(99)))
	task := &models.Task{ID: "t1", Priority: 1}

	e1.SeedWaves([]*models.Task{task})
	e2.SeedWaves([]*models.Task{task})

	w1, _ := e1.Wave("t1")
	w2, _ := e2.Wave("t1")
	if w1.Position != w2.Position {
		t.Errorf("expected identical placement for identical seeds, got %v vs %v", w1.Position, w2.Position)
	}
}

func TestSeedWavesKeepsPlacementAcrossReseed(t *testing.T) {
	e := newTestEngine()
	task := &models.Task{ID: "t1", Priority: 1}

	e.SeedWaves([]*models.Task{task})
	before, _ := e.Wave("t1")
	e.SeedWaves([]*models.Task{task})
	after, _ := e.Wave("t1")

	if before.Position != after.Position {
		t.Errorf("expected positionless task to keep its placement, got %v vs %v", before.Position, after.Position)
	}
}

func TestCalculateClampsPriority(t *testing.T) {
	e := newTestEngine()
	tasks := []*models.Task{
		positioned("t1", 0.1, 0, 0, 0),
		positioned("t2", 9.9, 1, 0, 0),
	}
	e.SeedWaves(tasks)
	e.AddPattern(Pattern{
		ID:       "boost",
		Type:     PatternConstructive,
		Strength: 100,
		Radius:   1000,
	})

	for _, adj := range e.Calculate(tasks) {
		if adj.ModifiedPriority < 0 || adj.ModifiedPriority > maxPriority {
			t.Errorf("task %s priority %v outside [0,%v]", adj.TaskID, adj.ModifiedPriority, maxPriority)
		}
	}
}

func TestCalculateRecordsDominantPatterns(t *testing.T) {
	e := newTestEngine()
	tasks := []*models.Task{positioned("t1", 5, 0, 0, 0)}
	e.SeedWaves(tasks)
	e.AddPattern(Pattern{ID: "weak", Type: PatternConstructive, Strength: 0.1, Radius: 100})
	e.AddPattern(Pattern{ID: "strong", Type: PatternConstructive, Strength: 5, Radius: 100})

	adjs := e.Calculate(tasks)
	if len(adjs) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(adjs))
	}
	if len(adjs[0].DominantPatterns) != 2 || adjs[0].DominantPatterns[0] != "strong" {
		t.Errorf("expected strong pattern first, got %v", adjs[0].DominantPatterns)
	}
}

func TestCalculateIgnoresExpiredPatterns(t *testing.T) {
	e := newTestEngine()
	tasks := []*models.Task{positioned("t1", 5, 0, 0, 0)}
	e.SeedWaves(tasks)
	e.AddPattern(Pattern{
		ID:        "gone",
		Type:      PatternConstructive,
		Strength:  5,
		Radius:    100,
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	adjs := e.Calculate(tasks)
	if len(adjs[0].DominantPatterns) != 0 {
		t.Errorf("expected expired pattern ignored, got %v", adjs[0].DominantPatterns)
	}
}

func TestCalculateDistantWavesDoNotCouple(t *testing.T) {
	e := newTestEngine()
	tasks := []*models.Task{
		positioned("near", 5, 0, 0, 0),
		positioned("far", 5, 1000, 1000, 1000),
	}
	e.SeedWaves(tasks)

	for _, adj := range e.Calculate(tasks) {
		if adj.Delta != 0 {
			t.Errorf("task %s received delta %v from a wave outside the cutoff", adj.TaskID, adj.Delta)
		}
	}
}

func TestPropagateMovesWaves(t *testing.T) {
	e := newTestEngine()
	e.SeedWaves([]*models.Task{positioned("t1", 5, 0, 0, 0)})

	before, _ := e.Wave("t1")
	e.Propagate(2 * time.Second)
	after, _ := e.Wave("t1")

	want := before.Position.Add(before.Velocity.Scale(2))
	if math.Abs(after.Position.X-want.X) > 1e-9 || math.Abs(after.Position.Y-want.Y) > 1e-9 {
		t.Errorf("expected position %v, got %v", want, after.Position)
	}
}

func TestApplyResonancePullsFrequenciesTogether(t *testing.T) {
	e := newTestEngine()
	e.SeedWaves([]*models.Task{
		positioned("t1", 2, 0, 0, 0),
		positioned("t2", 3, 1, 0, 0),
	})

	b1, _ := e.Wave("t1")
	b2, _ := e.Wave("t2")
	gapBefore := math.Abs(b1.Frequency - b2.Frequency)

	if err := e.ApplyResonance("t1", "t2"); err != nil {
		t.Fatalf("resonance failed: %v", err)
	}

	a1, _ := e.Wave("t1")
	a2, _ := e.Wave("t2")
	gapAfter := math.Abs(a1.Frequency - a2.Frequency)

	if gapAfter >= gapBefore {
		t.Errorf("expected frequency gap to close, got %v -> %v", gapBefore, gapAfter)
	}
	if a1.Amplitude <= b1.Amplitude {
		t.Errorf("expected amplitude boost, got %v -> %v", b1.Amplitude, a1.Amplitude)
	}
}

func TestCreateStandingWavePinsWaves(t *testing.T) {
	e := newTestEngine()
	e.SeedWaves([]*models.Task{
		positioned("t1", 2, 0, 0, 0),
		positioned("t2", 2, 10, 0, 0),
	})

	if err := e.CreateStandingWave("t1", "t2"); err != nil {
		t.Fatalf("standing wave failed: %v", err)
	}

	w1, _ := e.Wave("t1")
	w2, _ := e.Wave("t2")
	if (w1.Velocity != models.Vector3{}) || (w2.Velocity != models.Vector3{}) {
		t.Error("expected pinned waves to have zero velocity")
	}
	if math.Abs(w1.Phase-0) > 1e-9 || math.Abs(w2.Phase-math.Pi) > 1e-9 {
		t.Errorf("expected antinode phases 0 and π, got %v and %v", w1.Phase, w2.Phase)
	}

	// Propagation must not move pinned waves.
	e.Propagate(time.Second)
	p1, _ := e.Wave("t1")
	if p1.Position != w1.Position {
		t.Errorf("expected pinned wave to stay put, moved to %v", p1.Position)
	}
}

func TestQuantumBeating(t *testing.T) {
	e := newTestEngine()
	e.SeedWaves([]*models.Task{
		positioned("t1", 2, 0, 0, 0),
		positioned("t2", 4, 1, 0, 0),
	})

	beat, err := e.QuantumBeating("t1", "t2")
	if err != nil {
		t.Fatalf("beating failed: %v", err)
	}
	want := math.Abs(baseFrequency(2) - baseFrequency(4))
	if math.Abs(beat-want) > 1e-9 {
		t.Errorf("expected beat %v, got %v", want, beat)
	}

	if _, err := e.QuantumBeating("t1", "missing"); err == nil {
		t.Error("expected error for missing wave")
	}
}
