package superpose

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager(rand.New(rand.NewSource(42)))
}

func twoStateSystem(t *testing.T, m *Manager, id string) *System {
	t.Helper()
	sys, err := m.CreateSystem(id, []InitialState{
		{Label: "a", Amplitude: 1},
		{Label: "b", Amplitude: 1, Energy: 1},
	})
	if err != nil {
		t.Fatalf("failed to create system %s: %v", id, err)
	}
	return sys
}

func checkNormalized(t *testing.T, m *Manager, id string) {
	t.Helper()
	sys, err := m.system(id)
	if err != nil {
		t.Fatalf("lookup %s: %v", id, err)
	}
	snap := sys.Snapshot()
	if total := snap.TotalProbability(); math.Abs(total-1) > 1e-9 {
		t.Errorf("system %s probabilities sum to %v, want 1", id, total)
	}
}

func TestCreateSystemNormalizes(t *testing.T) {
	m := newTestManager()
	sys, err := m.CreateSystem("s1", []InitialState{
		{Label: "a", Amplitude: 3},
		{Label: "b", Amplitude: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := sys.Snapshot()
	if math.Abs(snap.States["a"].Probability-0.36) > 1e-9 {
		t.Errorf("expected probability 0.36 for a, got %v", snap.States["a"].Probability)
	}
	checkNormalized(t, m, "s1")
}

func TestCreateSystemRejectsEmpty(t *testing.T) {
	m := newTestManager()
	if _, err := m.CreateSystem("s1", nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCreateSystemRejectsDuplicate(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")
	_, err := m.CreateSystem("s1", []InitialState{{Label: "a", Amplitude: 1}})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for duplicate id, got %v", err)
	}
}

func TestApplyGateUnknownSystem(t *testing.T) {
	m := newTestManager()
	if err := m.ApplyGate("nope", GateHadamard); !errors.Is(err, ErrUnknownSystem) {
		t.Fatalf("expected ErrUnknownSystem, got %v", err)
	}
}

func TestGatesPreserveNormalization(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")

	gates := []Gate{GateHadamard, GatePauliX, GatePauliY, GatePauliZ, GatePhase, GateRotation}
	for _, gate := range gates {
		if err := m.ApplyGate("s1", gate, math.Pi/3); err != nil {
			t.Fatalf("gate %s failed: %v", gate, err)
		}
		checkNormalized(t, m, "s1")
	}
}

func TestPauliXSwapsLeadingAmplitudes(t *testing.T) {
	m := newTestManager()
	_, err := m.CreateSystem("s1", []InitialState{
		{Label: "a", Amplitude: 0.8},
		{Label: "b", Amplitude: 0.6, Energy: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.ApplyGate("s1", GatePauliX); err != nil {
		t.Fatalf("pauli-x failed: %v", err)
	}

	sys, _ := m.system("s1")
	snap := sys.Snapshot()
	if math.Abs(snap.States["a"].Amplitude-0.6) > 1e-9 || math.Abs(snap.States["b"].Amplitude-0.8) > 1e-9 {
		t.Errorf("expected amplitudes swapped to a=0.6 b=0.8, got a=%v b=%v",
			snap.States["a"].Amplitude, snap.States["b"].Amplitude)
	}
}

func TestReweightPreservesEntanglements(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")
	twoStateSystem(t, m, "s2")

	if _, err := m.Entangle("s1", "s2", EntanglementFunctional, 1.0); err != nil {
		t.Fatalf("entangle failed: %v", err)
	}

	err := m.Reweight("s1", []InitialState{
		{Label: "a", Amplitude: 0.9},
		{Label: "b", Amplitude: 0.1, Energy: 1},
	})
	if err != nil {
		t.Fatalf("reweight failed: %v", err)
	}

	if m.EntanglementBetween("s1", "s2") == nil {
		t.Fatal("reweight severed the entanglement")
	}
	checkNormalized(t, m, "s1")

	// The strong coupling must still cascade through measurement.
	events, err := m.Measure("s1")
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected cascade to s2, got %d measurement(s)", len(events))
	}
}

func TestReweightReplacesComponents(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")

	err := m.Reweight("s1", []InitialState{
		{Label: "b", Amplitude: 0.5, Energy: 1},
		{Label: "c", Amplitude: 0.5, Energy: 2},
	})
	if err != nil {
		t.Fatalf("reweight failed: %v", err)
	}

	sys, _ := m.system("s1")
	snap := sys.Snapshot()
	if _, ok := snap.States["a"]; ok {
		t.Error("expected component a to be dropped")
	}
	if _, ok := snap.States["c"]; !ok {
		t.Error("expected component c to be added")
	}
	checkNormalized(t, m, "s1")
}

func TestReweightRejectsBadInput(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")

	if err := m.Reweight("ghost", []InitialState{{Label: "a", Amplitude: 1}}); !errors.Is(err, ErrUnknownSystem) {
		t.Errorf("expected ErrUnknownSystem, got %v", err)
	}
	if err := m.Reweight("s1", nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for empty states, got %v", err)
	}
}

func TestInterferencePreservesNormalization(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")

	for _, kind := range []InterferenceKind{InterferenceConstructive, InterferenceDestructive, InterferenceMixed} {
		if err := m.ApplyInterference("s1", kind); err != nil {
			t.Fatalf("interference %s failed: %v", kind, err)
		}
		checkNormalized(t, m, "s1")
	}
}

func TestMeasureCollapsesToSingleState(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")

	events, err := m.Measure("s1")
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(events))
	}

	sys, _ := m.system("s1")
	snap := sys.Snapshot()
	if len(snap.States) != 1 {
		t.Fatalf("expected exactly 1 surviving state, got %d", len(snap.States))
	}
	sv := snap.States[events[0].Outcome]
	if sv.Probability != 1 || sv.Amplitude != 1 || sv.Phase != 0 {
		t.Errorf("expected collapsed state amplitude=1 probability=1 phase=0, got %+v", sv)
	}
	if !snap.Collapsed {
		t.Error("expected system marked collapsed")
	}
}

func TestMeasureUnknownSystem(t *testing.T) {
	m := newTestManager()
	if _, err := m.Measure("nope"); !errors.Is(err, ErrUnknownSystem) {
		t.Fatalf("expected ErrUnknownSystem, got %v", err)
	}
}

func TestMeasureFrequencies(t *testing.T) {
	m := newTestManager()

	const trials = 1000
	counts := map[string]int{}
	for i := 0; i < trials; i++ {
		id := fmt.Sprintf("s%d", i)
		twoStateSystem(t, m, id)
		outcome, err := m.Outcome(id)
		if err != nil {
			t.Fatalf("measure %s: %v", id, err)
		}
		counts[outcome]++
	}

	// Equal amplitudes should split 50/50 within 5%.
	for _, label := range []string{"a", "b"} {
		freq := float64(counts[label]) / trials
		if math.Abs(freq-0.5) > 0.05 {
			t.Errorf("outcome %q frequency %v, want 0.5±0.05", label, freq)
		}
	}
}

func TestEntangleStrongCascade(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")
	twoStateSystem(t, m, "s2")

	ent, err := m.Entangle("s1", "s2", EntanglementFunctional, 1.0)
	if err != nil {
		t.Fatalf("entangle failed: %v", err)
	}
	if math.Abs(ent.Correlation*ent.Strength) <= 0.5 {
		t.Fatalf("expected strong coupling for identical systems, got correlation=%v strength=%v",
			ent.Correlation, ent.Strength)
	}

	events, err := m.Measure("s1")
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected cascaded measurement of both systems, got %d events", len(events))
	}
	if !events[1].Cascaded || events[1].SystemID != "s2" {
		t.Errorf("expected second event to be cascaded collapse of s2, got %+v", events[1])
	}

	sys2, _ := m.system("s2")
	if snap := sys2.Snapshot(); len(snap.States) != 1 {
		t.Errorf("expected s2 collapsed to 1 state, got %d", len(snap.States))
	}
}

func TestEntangleLookupEitherOrder(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")
	twoStateSystem(t, m, "s2")

	if _, err := m.Entangle("s2", "s1", EntanglementSpatial, 0.5); err != nil {
		t.Fatalf("entangle failed: %v", err)
	}
	if m.EntanglementBetween("s1", "s2") == nil {
		t.Error("expected lookup to work in either key order")
	}
	if m.EntanglementBetween("s2", "s1") == nil {
		t.Error("expected lookup to work in reverse key order")
	}
}

func TestEntangleMissingSystem(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")
	if _, err := m.Entangle("s1", "nope", EntanglementSpatial, 1); !errors.Is(err, ErrUnknownSystem) {
		t.Fatalf("expected ErrUnknownSystem, got %v", err)
	}
}

func TestRemoveSystemDropsEntanglements(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")
	twoStateSystem(t, m, "s2")
	if _, err := m.Entangle("s1", "s2", EntanglementTemporal, 1); err != nil {
		t.Fatalf("entangle failed: %v", err)
	}

	m.RemoveSystem("s1")
	if m.Count() != 1 {
		t.Errorf("expected 1 system left, got %d", m.Count())
	}
	if m.EntanglementBetween("s1", "s2") != nil {
		t.Error("expected entanglement removed with endpoint")
	}

	sys2, _ := m.system("s2")
	if snap := sys2.Snapshot(); len(snap.EntangledWith) != 0 {
		t.Errorf("expected s2 entanglement list cleared, got %v", snap.EntangledWith)
	}
}

func TestEvolveDecoheresTowardUniform(t *testing.T) {
	m := newTestManager()
	m.interferenceChance = 0
	sys, err := m.CreateSystem("s1", []InitialState{
		{Label: "a", Amplitude: 0.95},
		{Label: "b", Amplitude: 0.31, Energy: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sys.mu.Lock()
	sys.LastMeasurement = time.Now().Add(-time.Minute)
	sys.DecoherenceRate = 0.5
	sys.mu.Unlock()

	before := sys.Snapshot().States["a"].Probability
	m.Evolve(time.Second)
	after := sys.Snapshot().States["a"].Probability

	if after >= before {
		t.Errorf("expected dominant probability to shrink, got %v -> %v", before, after)
	}
	checkNormalized(t, m, "s1")
}

func TestPruneEntanglementsDecaysWeakPairs(t *testing.T) {
	m := newTestManager()
	twoStateSystem(t, m, "s1")
	twoStateSystem(t, m, "s2")
	if _, err := m.Entangle("s1", "s2", EntanglementSpatial, 0); err != nil {
		t.Fatalf("entangle failed: %v", err)
	}

	// Zero-strength pairs decay with certainty at decayChance 1.
	removed := m.PruneEntanglements(1)
	if removed != 1 {
		t.Fatalf("expected 1 entanglement removed, got %d", removed)
	}
	if len(m.Entanglements()) != 0 {
		t.Error("expected entanglement table empty after prune")
	}
}
