package quantum

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/danieleschmidt/quantum-mesh-planner/internal/planner"
)

// entanglementDecayChance is the per-tick survival pressure applied to
// entanglement links.
const entanglementDecayChance = 0.02

// coherenceDecayPerSecond is how much task-level coherence erodes per
// second of evolution when the task is not being worked.
const coherenceDecayPerSecond = 0.05

// defaultMemoryBudget bounds the heap before the pressure handler
// starts reclaiming pools and cache entries.
const defaultMemoryBudget = 512 << 20

// Evolve advances the whole mesh by dt: quantum-state decoherence, wave
// propagation, entanglement decay, coherence resets, and queued
// execution work. It is a no-op while a planning pass is active, so the
// single background scheduler never races the planner.
func (i *Integration) Evolve(ctx context.Context, dt time.Duration) {
	if i.planningActive.Load() {
		return
	}

	i.superpose.Evolve(dt)
	i.engine.Propagate(dt)
	i.superpose.PruneEntanglements(entanglementDecayChance)

	i.decayCoherence(dt)

	p := planner.New(i.plannerConfig(), i.engine, i.chainRand())
	i.mu.RLock()
	tasks := make([]string, 0, len(i.tasks))
	for id := range i.tasks {
		tasks = append(tasks, id)
	}
	i.mu.RUnlock()
	for _, id := range tasks {
		i.mu.Lock()
		task, ok := i.tasks[id]
		var reset bool
		if ok {
			reset = p.CheckCoherence(task)
		}
		i.mu.Unlock()
		if reset {
			i.syncSystem(task, nil)
			i.emitter.emit(Event{
				Type:    EventReplanningRequired,
				TaskID:  id,
				Message: "coherence fell below floor",
			})
		}
	}

	i.queue.Drain(ctx)
	i.checkPressure()
}

// decayCoherence erodes coherence on incomplete tasks as simulated
// time passes without progress.
func (i *Integration) decayCoherence(dt time.Duration) {
	loss := coherenceDecayPerSecond * dt.Seconds()
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, task := range i.tasks {
		if task.Quantum == nil || task.Completed() {
			continue
		}
		task.Quantum.Coherence -= loss
		if task.Quantum.Coherence < 0 {
			task.Quantum.Coherence = 0
		}
	}
}

// checkPressure samples the heap against the memory budget and lets the
// pressure handler reclaim when it is crossed.
func (i *Integration) checkPressure() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	i.pressure.Check(float64(stats.HeapAlloc) / float64(defaultMemoryBudget))
}

// Start launches the single background evolution loop. One ticker
// drives decoherence, propagation, and execution draining together;
// there are no per-component timers to drift apart.
func (i *Integration) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		interval := i.evolutionInterval()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				i.Evolve(ctx, now.Sub(last))
				last = now
				if next := i.evolutionInterval(); next != interval {
					interval = next
					ticker.Reset(interval)
				}
			}
		}
	}()
	log.Printf("[quantum] evolution loop started (interval %s)", i.evolutionInterval())
}

// Stop halts the background loop and closes the event stream.
func (i *Integration) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
	i.wg.Wait()
	i.emitter.Close()
	log.Printf("[quantum] evolution loop stopped")
}
