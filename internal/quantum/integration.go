package quantum

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/danieleschmidt/quantum-mesh-planner/internal/anneal"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/interference"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/perf"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/planner"
	"github.com/danieleschmidt/quantum-mesh-planner/internal/superpose"
	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// ErrUnknownTask indicates an operation on an absent task id.
var ErrUnknownTask = errors.New("unknown task")

// ErrConcurrentPlanning indicates a planning pass was requested while
// another is active. The caller should retry after the active pass.
var ErrConcurrentPlanning = errors.New("planning already in progress")

// ErrNoValidTasks mirrors the planner sentinel at the façade boundary.
var ErrNoValidTasks = planner.ErrNoValidTasks

// adaptiveMinTasks is the task count below which the direct planner is
// always cheaper than annealing.
const adaptiveMinTasks = 3

// adaptiveGainPatience is how many consecutive zero-gain annealing runs
// the façade tolerates before switching to the direct planner.
const adaptiveGainPatience = 3

// TaskSpec describes a task to create.
type TaskSpec struct {
	// ID is optional; a short uuid is assigned when empty.
	ID string
	// Title is the short description.
	Title string
	// Priority is the initial scheduling priority.
	Priority float64
	// DependsOn lists prerequisite task ids.
	DependsOn []string
	// EstimatedDuration is the expected execution time.
	EstimatedDuration time.Duration
	// RequiredAgents is how many agents the task needs.
	RequiredAgents int
	// Position is the task's location, if known.
	Position *models.Vector3
	// Constraints are weighted scheduling requirements.
	Constraints []models.Constraint
}

// Integration wires the superposition manager, interference engine,
// annealing optimizer, and planner behind the boundary contracts the
// rest of the mesh calls.
type Integration struct {
	mu sync.RWMutex
	// tasks is the active-task map, guarded by mu.
	tasks map[string]*models.Task

	superpose *superpose.Manager
	engine    *interference.Engine
	directory AgentDirectory
	emitter   *emitter

	cache    *perf.Cache[Metrics]
	pools    *perf.PoolSet
	queue    *perf.Queue
	pressure *perf.PressureHandler

	// planningActive rejects re-entrant planning passes.
	planningActive atomic.Bool

	// cfgMu guards plannerCfg and evolveInterval, which hot-reloads may
	// replace while the loop runs.
	cfgMu      sync.RWMutex
	plannerCfg planner.Config

	rng   *rand.Rand
	rngMu sync.Mutex

	// counters feeding Metrics.
	interferenceEvents atomic.Int64
	measurements       atomic.Int64
	tasksPlanned       atomic.Int64
	executions         atomic.Int64

	// gainMu guards the adaptive-selection state.
	gainMu       sync.Mutex
	lastGain     float64
	zeroGainRuns int

	// annealMu guards lastTraces, a pooled scratch holding the most
	// recent annealed pass's traces until the next pass recycles it.
	annealMu   sync.Mutex
	lastTraces *perf.AnnealingScratch

	// background evolution loop state.
	evolveInterval time.Duration
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// Option configures an Integration.
type Option func(*Integration)

// WithDirectory sets the agent directory collaborator.
func WithDirectory(d AgentDirectory) Option {
	return func(i *Integration) { i.directory = d }
}

// WithPlannerConfig overrides the planner tuning.
func WithPlannerConfig(cfg planner.Config) Option {
	return func(i *Integration) { i.plannerCfg = cfg }
}

// WithSeed makes every stochastic component reproducible.
func WithSeed(seed int64) Option {
	return func(i *Integration) {
		i.rng = rand.New(rand.NewSource(seed))
		i.superpose = superpose.NewManager(rand.New(rand.NewSource(seed + 1)))
		i.engine = interference.NewEngine(rand.New(rand.NewSource(seed + 2)))
		i.plannerCfg.Annealing.Seed = seed + 3
	}
}

// WithEvolutionInterval sets the background evolution cadence.
func WithEvolutionInterval(d time.Duration) Option {
	return func(i *Integration) {
		if d > 0 {
			i.evolveInterval = d
		}
	}
}

// New creates an Integration with the reference defaults.
func New(opts ...Option) *Integration {
	i := &Integration{
		tasks:          make(map[string]*models.Task),
		superpose:      superpose.NewManager(nil),
		engine:         interference.NewEngine(nil),
		directory:      NewMemoryDirectory(),
		emitter:        newEmitter(256),
		pools:          perf.NewPoolSet(32),
		queue:          perf.NewQueue(),
		plannerCfg:     planner.DefaultConfig(),
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		evolveInterval: time.Second,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.cache = perf.NewCache[Metrics](64)
	i.pressure = perf.NewPressureHandler(0.8, i.pools, i.cache)
	i.queue.OnFailure(func(f perf.Failure) {
		i.emitter.emit(Event{
			Type:    EventReplanningRequired,
			TaskID:  f.Name,
			Message: "execution job exhausted retries",
			Error:   f.Err,
		})
	})
	return i
}

// Events returns the subscriber channel for planner events.
func (i *Integration) Events() <-chan Event {
	return i.emitter.Events()
}

// DroppedEvents returns how many events were dropped to slow consumers.
func (i *Integration) DroppedEvents() uint64 {
	return i.emitter.Dropped()
}

// CreateTask registers a task and its paired quantum system.
func (i *Integration) CreateTask(spec TaskSpec) (*models.Task, error) {
	id := spec.ID
	if id == "" {
		id = uuid.New().String()[:8]
	}

	i.mu.Lock()
	if _, exists := i.tasks[id]; exists {
		i.mu.Unlock()
		return nil, fmt.Errorf("task %s already exists", id)
	}
	task := &models.Task{
		ID:                id,
		Title:             spec.Title,
		Priority:          spec.Priority,
		DependsOn:         spec.DependsOn,
		EstimatedDuration: spec.EstimatedDuration,
		RequiredAgents:    spec.RequiredAgents,
		Position:          spec.Position,
		Constraints:       spec.Constraints,
		Quantum:           models.NewQuantumTaskState(),
		CreatedAt:         time.Now(),
	}
	i.tasks[id] = task
	i.mu.Unlock()

	if _, err := i.superpose.CreateSystem(id, lifecycleStates(task.Quantum)); err != nil {
		return nil, fmt.Errorf("create quantum system: %w", err)
	}

	i.emitter.emit(Event{Type: EventTaskCreated, TaskID: id, Message: spec.Title})
	return task, nil
}

// RemoveTask destroys a task and its quantum system.
func (i *Integration) RemoveTask(id string) error {
	i.mu.Lock()
	_, ok := i.tasks[id]
	if ok {
		delete(i.tasks, id)
	}
	i.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	i.superpose.RemoveSystem(id)
	return nil
}

// Task returns a registered task by id.
func (i *Integration) Task(id string) (*models.Task, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	task, ok := i.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return task, nil
}

// Plan runs one planning pass over the given task ids. Unknown ids are
// skipped; if none resolve the call fails with ErrNoValidTasks. When
// agentIDs is empty the whole directory is used. A concurrent pass is
// rejected with ErrConcurrentPlanning.
func (i *Integration) Plan(ctx context.Context, taskIDs []string, agentIDs []string) (map[string]*models.PlanResult, error) {
	if !i.planningActive.CompareAndSwap(false, true) {
		return nil, ErrConcurrentPlanning
	}
	defer i.planningActive.Store(false)

	tasks := i.resolveTasks(taskIDs)
	if len(tasks) == 0 {
		err := fmt.Errorf("%w: none of %d ids resolved", ErrNoValidTasks, len(taskIDs))
		i.emitter.emit(Event{Type: EventPlanningError, Error: err})
		return nil, err
	}

	agents := i.resolveAgents(agentIDs)

	cfg := i.plannerConfig()
	cfg.AnnealingEnabled = i.chooseAnnealing(len(tasks)) && cfg.AnnealingEnabled
	p := planner.New(cfg, i.engine, i.chainRand())

	var initialEnergy float64
	if cfg.AnnealingEnabled {
		i.mu.RLock()
		initialEnergy = anneal.ScheduleEnergy(tasks)(anneal.InitialAssignment(tasks, availableIDs(agents)))
		i.mu.RUnlock()
	}

	// The planner rewrites task priorities and superpositions, which
	// Snapshot and Metrics read concurrently, so the pass runs under the
	// write lock.
	i.mu.Lock()
	results, err := p.Plan(ctx, tasks, agents)
	i.mu.Unlock()
	if err != nil {
		i.emitter.emit(Event{Type: EventPlanningError, Error: err})
		return nil, err
	}

	// Committed state updates: superposition systems follow the task
	// states the planner just rewrote.
	field, _ := i.pools.Borrow(perf.KindInterference).(*perf.InterferenceField)
	i.mu.RLock()
	for _, task := range tasks {
		if task.Quantum == nil {
			continue
		}
		if field != nil {
			field.Amplitudes[task.ID] = task.Quantum.Interference
		} else if task.Quantum.Interference != 0 {
			// Pool exhausted: count without the scratch field.
			i.interferenceEvents.Add(1)
		}
	}
	i.mu.RUnlock()
	if field != nil {
		for _, delta := range field.Amplitudes {
			if delta != 0 {
				i.interferenceEvents.Add(1)
			}
		}
		i.pools.Return(field)
	}

	buf, _ := i.pools.Borrow(perf.KindSuperposition).(*perf.SuperpositionBuffer)
	for _, task := range tasks {
		i.syncSystem(task, buf)
	}
	if buf != nil {
		i.pools.Return(buf)
	}

	if cfg.AnnealingEnabled {
		i.mu.RLock()
		finalEnergy := anneal.ScheduleEnergy(tasks)(assignmentFromResults(results))
		i.mu.RUnlock()
		i.recordGain(initialEnergy - finalEnergy)
	}
	if p.LastAnnealing != nil {
		i.storeAnnealTraces(p.LastAnnealing)
	}

	i.tasksPlanned.Add(int64(len(results)))
	i.emitter.emit(Event{Type: EventPlanningComplete, PlannedTasks: len(results)})
	return results, nil
}

// ExecutePlan enqueues execution jobs for every staffed result. Jobs are
// drained by the background loop, or synchronously via DrainExecution.
func (i *Integration) ExecutePlan(results map[string]*models.PlanResult) {
	for _, result := range results {
		if len(result.AssignedAgents) == 0 {
			continue
		}
		taskID := result.TaskID
		prob := result.ExecutionProbability
		agentID := result.AssignedAgents[0]

		task, err := i.Task(taskID)
		if err != nil {
			continue
		}
		i.queue.Submit(&perf.Job{
			Name:     taskID,
			Priority: int(task.Priority),
			Run: func(ctx context.Context) error {
				return i.executeTask(ctx, taskID, agentID, prob)
			},
		})
	}
}

// executeTask simulates one task execution: it walks the task through
// executing to completed when the plan gave it a real chance, and fails
// (for retry, then replanning) when it did not.
func (i *Integration) executeTask(_ context.Context, taskID, agentID string, prob float64) error {
	task, err := i.Task(taskID)
	if err != nil {
		return err
	}
	if prob <= 0 {
		return fmt.Errorf("task %s has no execution probability", taskID)
	}

	i.emitter.emit(Event{Type: EventExecutionStarted, TaskID: taskID, AgentID: agentID})

	i.mu.Lock()
	if task.Quantum != nil {
		for label := range task.Quantum.Superposition {
			task.Quantum.Superposition[label] = 0
		}
		task.Quantum.Superposition[models.TaskStateCompleted] = 1
		task.Quantum.Coherence = 1
	}
	now := time.Now()
	task.CompletedAt = &now
	i.mu.Unlock()

	if buf, ok := i.pools.Borrow(perf.KindSuperposition).(*perf.SuperpositionBuffer); ok && buf != nil {
		i.syncSystem(task, buf)
		i.pools.Return(buf)
	} else {
		i.syncSystem(task, nil)
	}

	i.executions.Add(1)
	i.emitter.emit(Event{Type: EventExecutionCompleted, TaskID: taskID, AgentID: agentID})
	return nil
}

// DrainExecution synchronously processes all queued execution jobs.
func (i *Integration) DrainExecution(ctx context.Context) int {
	return i.queue.Drain(ctx)
}

// MeasureTask collapses a task's quantum system and aligns the task's
// superposition with the outcome. Cascaded collapses through
// entanglement are emitted as their own measurement events.
func (i *Integration) MeasureTask(id string) (string, error) {
	events, err := i.superpose.Measure(id)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", fmt.Errorf("%w: %s produced no measurement", ErrUnknownTask, id)
	}

	for _, ev := range events {
		i.measurements.Add(1)
		i.emitter.emit(Event{Type: EventMeasurement, TaskID: ev.SystemID, Outcome: ev.Outcome})

		i.mu.Lock()
		if task := i.tasks[ev.SystemID]; task != nil && task.Quantum != nil {
			for label := range task.Quantum.Superposition {
				task.Quantum.Superposition[label] = 0
			}
			task.Quantum.Superposition[models.TaskState(ev.Outcome)] = 1
			task.Quantum.Coherence = 1
		}
		i.mu.Unlock()
	}
	return events[0].Outcome, nil
}

// EntangleTasks couples two tasks' quantum systems and records the link
// on both tasks.
func (i *Integration) EntangleTasks(id1, id2 string, etype superpose.EntanglementType, strength float64) error {
	ent, err := i.superpose.Entangle(id1, id2, etype, strength)
	if err != nil {
		return err
	}

	i.mu.Lock()
	if t1, ok := i.tasks[id1]; ok && t1.Quantum != nil {
		t1.Quantum.Entangled = appendUnique(t1.Quantum.Entangled, id2)
	}
	if t2, ok := i.tasks[id2]; ok && t2.Quantum != nil {
		t2.Quantum.Entangled = appendUnique(t2.Quantum.Entangled, id1)
	}
	i.mu.Unlock()

	i.emitter.emit(Event{
		Type:    EventEntanglementCreated,
		TaskID:  id1,
		Message: fmt.Sprintf("entangled with %s (%s, correlation %.2f)", id2, ent.Type, ent.Correlation),
	})
	return nil
}

// RemoveAgent drops an agent from a MemoryDirectory-backed integration
// and requests replanning. Directories owned elsewhere should emit
// their own signals.
func (i *Integration) RemoveAgent(id string) {
	if dir, ok := i.directory.(*MemoryDirectory); ok {
		if dir.Remove(id) {
			i.emitter.emit(Event{
				Type:    EventReplanningRequired,
				AgentID: id,
				Message: "agent removed from directory",
			})
		}
	}
}

// plannerConfig returns a copy of the current planner tuning.
func (i *Integration) plannerConfig() planner.Config {
	i.cfgMu.RLock()
	defer i.cfgMu.RUnlock()
	return i.plannerCfg
}

// ApplyPlannerConfig replaces the planner tuning used by subsequent
// planning passes and coherence checks. Safe to call while the
// background loop runs; a hot-reload watcher is the expected caller.
func (i *Integration) ApplyPlannerConfig(cfg planner.Config) {
	i.cfgMu.Lock()
	defer i.cfgMu.Unlock()
	i.plannerCfg = cfg
}

// SetEvolutionInterval changes the background loop cadence. The running
// ticker picks the new interval up on its next tick.
func (i *Integration) SetEvolutionInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	i.cfgMu.Lock()
	defer i.cfgMu.Unlock()
	i.evolveInterval = d
}

func (i *Integration) evolutionInterval() time.Duration {
	i.cfgMu.RLock()
	defer i.cfgMu.RUnlock()
	return i.evolveInterval
}

// resolveTasks maps ids to registered tasks, skipping unknown ids.
func (i *Integration) resolveTasks(taskIDs []string) []*models.Task {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var tasks []*models.Task
	if len(taskIDs) == 0 {
		for _, task := range i.tasks {
			tasks = append(tasks, task)
		}
	} else {
		for _, id := range taskIDs {
			if task, ok := i.tasks[id]; ok {
				tasks = append(tasks, task)
			}
		}
	}
	sort.Slice(tasks, func(a, b int) bool { return tasks[a].ID < tasks[b].ID })
	return tasks
}

// resolveAgents pulls agent info from the directory, filtered to the
// requested ids when given.
func (i *Integration) resolveAgents(agentIDs []string) []models.AgentInfo {
	if len(agentIDs) == 0 {
		agentIDs = i.directory.ListAgents()
	}
	var agents []models.AgentInfo
	for _, id := range agentIDs {
		if info, ok := i.directory.GetAgent(id); ok {
			agents = append(agents, info)
		}
	}
	return agents
}

// chooseAnnealing is the adaptive algorithm selection: tiny task sets
// use the direct planner, and repeated zero-gain annealing runs
// temporarily disable annealing.
func (i *Integration) chooseAnnealing(taskCount int) bool {
	if taskCount < adaptiveMinTasks {
		return false
	}
	i.gainMu.Lock()
	defer i.gainMu.Unlock()
	return i.zeroGainRuns < adaptiveGainPatience
}

// storeAnnealTraces copies the latest annealed pass's traces into a
// pooled scratch buffer, recycling the previous pass's buffer.
func (i *Integration) storeAnnealTraces(res *models.AnnealingResult) {
	scratch, _ := i.pools.Borrow(perf.KindAnnealing).(*perf.AnnealingScratch)
	if scratch == nil {
		return
	}
	scratch.EnergyTrace = append(scratch.EnergyTrace[:0], res.EnergyTrace...)
	scratch.TemperatureTrace = append(scratch.TemperatureTrace[:0], res.TemperatureTrace...)

	i.annealMu.Lock()
	prev := i.lastTraces
	i.lastTraces = scratch
	i.annealMu.Unlock()
	if prev != nil {
		i.pools.Return(prev)
	}
}

// annealTraces returns copies of the most recent annealed pass's traces.
func (i *Integration) annealTraces() (energy, temperature []float64) {
	i.annealMu.Lock()
	defer i.annealMu.Unlock()
	if i.lastTraces == nil {
		return nil, nil
	}
	energy = append([]float64(nil), i.lastTraces.EnergyTrace...)
	temperature = append([]float64(nil), i.lastTraces.TemperatureTrace...)
	return energy, temperature
}

// recordGain tracks annealing's recent improvement over the greedy
// initial assignment.
func (i *Integration) recordGain(gain float64) {
	i.gainMu.Lock()
	defer i.gainMu.Unlock()
	i.lastGain = gain
	if math.Abs(gain) < 1e-9 {
		i.zeroGainRuns++
	} else {
		i.zeroGainRuns = 0
	}
}

// syncSystem pushes a task's superposition weights into its quantum
// system's amplitudes. The pooled buffer is optional scratch; a nil
// buffer degrades to direct iteration.
func (i *Integration) syncSystem(task *models.Task, buf *perf.SuperpositionBuffer) {
	if task.Quantum == nil {
		return
	}

	weights := map[models.TaskState]float64{}
	if buf != nil {
		weights = buf.Weights
	}
	i.mu.RLock()
	for label, w := range task.Quantum.Superposition {
		weights[label] = w
	}
	i.mu.RUnlock()

	// Reweight in place: amplitudes follow sqrt of weights. Rebuilding
	// the system would sever its entanglements.
	states := make([]superpose.InitialState, 0, len(weights))
	for idx, label := range models.LifecycleStates() {
		w, ok := weights[label]
		if !ok || w <= 0 {
			continue
		}
		states = append(states, superpose.InitialState{
			Label:     string(label),
			Amplitude: math.Sqrt(w),
			Energy:    float64(idx),
		})
	}
	if len(states) == 0 {
		states = append(states, superpose.InitialState{Label: string(models.TaskStateWaiting), Amplitude: 1})
	}
	if err := i.superpose.Reweight(task.ID, states); err != nil {
		// The system is created with the task, so the only miss is a
		// task removed mid-flight.
		return
	}
	for label := range weights {
		delete(weights, label)
	}
}

func (i *Integration) chainRand() *rand.Rand {
	i.rngMu.Lock()
	defer i.rngMu.Unlock()
	return rand.New(rand.NewSource(i.rng.Int63()))
}

// lifecycleStates builds the initial quantum-system states for a fresh
// task.
func lifecycleStates(q *models.QuantumTaskState) []superpose.InitialState {
	states := make([]superpose.InitialState, 0, len(q.Superposition))
	for idx, label := range models.LifecycleStates() {
		w := q.Superposition[label]
		if w <= 0 {
			continue
		}
		states = append(states, superpose.InitialState{
			Label:     string(label),
			Amplitude: math.Sqrt(w),
			Energy:    float64(idx),
		})
	}
	return states
}

func assignmentFromResults(results map[string]*models.PlanResult) anneal.Assignment {
	sol := make(anneal.Assignment, len(results))
	for id, r := range results {
		sol[id] = r.AssignedAgents
	}
	return sol
}

func availableIDs(agents []models.AgentInfo) []string {
	var ids []string
	for _, a := range agents {
		if a.Available() {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
