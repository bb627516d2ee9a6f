package interference

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

const (
	// interactionCutoff is the spatial range within which waves couple.
	interactionCutoff = 25.0
	// placementSpread is the extent of random default placement.
	placementSpread = 50.0
	// maxPriority bounds modified priorities.
	maxPriority = 10.0
)

// Adjustment is the per-task result of one interference calculation.
type Adjustment struct {
	// TaskID identifies the adjusted task.
	TaskID string `json:"task_id"`
	// OriginalPriority is the priority before adjustment.
	OriginalPriority float64 `json:"original_priority"`
	// ModifiedPriority is the clamped post-interference priority.
	ModifiedPriority float64 `json:"modified_priority"`
	// Delta is the signed priority change before clamping.
	Delta float64 `json:"delta"`
	// DominantPatterns lists pattern ids that contributed most, strongest
	// first.
	DominantPatterns []string `json:"dominant_patterns,omitempty"`
}

// Engine turns tasks into waves, superposes them, and converts net
// amplitude at each task's position into a priority adjustment.
type Engine struct {
	mu sync.Mutex

	// waves maps task id to its current wave.
	waves map[string]*TaskWave
	// patterns maps pattern id to active interference patterns.
	patterns map[string]*Pattern
	// grid bounds pairwise wave lookups to nearby cells.
	grid *spatialGrid
	// simTime is the simulation clock advanced by PropagateWaves.
	simTime float64
	// rng seeds default placement; all other math is deterministic.
	rng *rand.Rand
	// now is injectable for pattern expiry tests.
	now func() time.Time
}

// NewEngine creates an Engine using the given random source for default
// wave placement. Pass a seeded source for reproducible runs.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		waves:    make(map[string]*TaskWave),
		patterns: make(map[string]*Pattern),
		grid:     newSpatialGrid(interactionCutoff),
		rng:      rng,
		now:      time.Now,
	}
}

// SeedWaves regenerates one wave per task, discarding previous waves for
// tasks no longer present. Tasks without a position get a random
// placement so every wave participates in the spatial index.
func (e *Engine) SeedWaves(tasks []*models.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fresh := make(map[string]*TaskWave, len(tasks))
	for _, task := range tasks {
		fresh[task.ID] = e.waveFromTask(task)
	}
	e.waves = fresh
	e.rebuildGridLocked()
}

func (e *Engine) waveFromTask(task *models.Task) *TaskWave {
	pos := models.Vector3{}
	if task.Position != nil {
		pos = *task.Position
	} else if prev, ok := e.waves[task.ID]; ok {
		// Keep the previous placement so reseeding does not teleport
		// positionless tasks.
		pos = prev.Position
	} else {
		pos = models.Vector3{
			X: (e.rng.Float64() - 0.5) * placementSpread,
			Y: (e.rng.Float64() - 0.5) * placementSpread,
			Z: (e.rng.Float64() - 0.5) * placementSpread,
		}
	}

	freq := baseFrequency(task.Priority)
	phase := wrap2Pi(task.Priority)
	return &TaskWave{
		TaskID:     task.ID,
		Amplitude:  1 + task.Priority*0.1,
		Frequency:  freq,
		Phase:      phase,
		Position:   pos,
		Velocity:   models.Vector3{X: math.Cos(phase), Y: math.Sin(phase), Z: 0},
		Wavelength: 10 / freq,
		Damping:    0.05,
	}
}

// Calculate produces one Adjustment per task from the superposed
// amplitude of nearby waves plus all active patterns at the task's wave
// position.
func (e *Engine) Calculate(tasks []*models.Task) []Adjustment {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	out := make([]Adjustment, 0, len(tasks))
	for _, task := range tasks {
		wave, ok := e.waves[task.ID]
		if !ok {
			wave = e.waveFromTask(task)
			e.waves[task.ID] = wave
			e.grid.insert(wave)
		}

		var net float64
		for _, other := range e.grid.near(wave.Position) {
			if other.TaskID == task.ID {
				continue
			}
			if other.Position.DistanceTo(wave.Position) > interactionCutoff {
				continue
			}
			net += other.amplitudeAt(wave.Position, e.simTime)
		}

		type patternHit struct {
			id           string
			contribution float64
		}
		var hits []patternHit
		for _, p := range e.patterns {
			if !p.activeAt(wave.Position, now) {
				continue
			}
			c := p.contributionAt(wave.Position, e.simTime)
			net += c
			hits = append(hits, patternHit{id: p.ID, contribution: c})
		}
		sort.Slice(hits, func(i, j int) bool {
			ai, aj := math.Abs(hits[i].contribution), math.Abs(hits[j].contribution)
			if ai != aj {
				return ai > aj
			}
			return hits[i].id < hits[j].id
		})
		var dominant []string
		for _, h := range hits {
			dominant = append(dominant, h.id)
		}

		delta := net * 0.5
		modified := clampPriority(task.Priority + delta)
		out = append(out, Adjustment{
			TaskID:           task.ID,
			OriginalPriority: task.Priority,
			ModifiedPriority: modified,
			Delta:            delta,
			DominantPatterns: dominant,
		})
	}
	return out
}

// Propagate advances every wave by velocity×dt, re-buckets the spatial
// index, and moves the simulation clock forward.
func (e *Engine) Propagate(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seconds := dt.Seconds()
	for _, w := range e.waves {
		w.Position = w.Position.Add(w.Velocity.Scale(seconds))
	}
	e.simTime += seconds
	e.rebuildGridLocked()
}

func (e *Engine) rebuildGridLocked() {
	all := make([]*TaskWave, 0, len(e.waves))
	for _, w := range e.waves {
		all = append(all, w)
	}
	e.grid.rebuild(all)
}

// AddPattern registers an interference pattern. Patterns with an unknown
// type are normalized to mixed.
func (e *Engine) AddPattern(p Pattern) {
	if !p.Type.Valid() {
		p.Type = PatternMixed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := p
	e.patterns[p.ID] = &stored
}

// RemovePattern drops a pattern by id.
func (e *Engine) RemovePattern(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.patterns, id)
}

// Wave returns a copy of the wave for a task id, and whether it exists.
func (e *Engine) Wave(taskID string) (TaskWave, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.waves[taskID]
	if !ok {
		return TaskWave{}, false
	}
	return *w, true
}

// Waves returns copies of all current waves ordered by task id.
func (e *Engine) Waves() []TaskWave {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TaskWave, 0, len(e.waves))
	for _, w := range e.waves {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

func clampPriority(p float64) float64 {
	return math.Min(maxPriority, math.Max(0, p))
}
