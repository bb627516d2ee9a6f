package anneal

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// Assignment maps task ids to their ordered agent-id lists.
type Assignment map[string][]string

// Clone returns a deep copy of the assignment.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for taskID, agents := range a {
		cp := make([]string, len(agents))
		copy(cp, agents)
		out[taskID] = cp
	}
	return out
}

// penalty weights for the task-schedule energy function.
const (
	mismatchWeight   = 2.0
	dependencyWeight = 1.5
	contentionWeight = 0.5
)

// ScheduleEnergy builds the energy function for a task→agents search:
// it penalizes agent-count mismatch, unmet dependencies, agent
// contention, and weighted constraint violations.
func ScheduleEnergy(tasks []*models.Task) EnergyFunc[Assignment] {
	byID := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	return func(sol Assignment) float64 {
		var energy float64
		agentLoad := make(map[string]int)

		for _, task := range tasks {
			assigned := sol[task.ID]
			for _, agentID := range assigned {
				agentLoad[agentID]++
			}

			mismatch := float64(task.RequiredAgents - len(assigned))
			energy += math.Abs(mismatch) * mismatchWeight

			if len(assigned) > 0 {
				for _, depID := range task.DependsOn {
					dep, known := byID[depID]
					depPlanned := len(sol[depID]) > 0
					depDone := known && dep.Completed()
					if !depPlanned && !depDone {
						energy += dependencyWeight
					}
				}
			}

			energy += constraintPenalty(task, assigned)
		}

		// Agents stretched across many tasks cost extra.
		for _, load := range agentLoad {
			if load > 1 {
				energy += float64(load-1) * contentionWeight
			}
		}
		return energy
	}
}

// constraintPenalty scores one task's constraint violations for a given
// agent list.
func constraintPenalty(task *models.Task, assigned []string) float64 {
	var penalty float64
	for _, c := range task.Constraints {
		var violation float64
		switch c.Kind {
		case models.ConstraintResource:
			// Value is the agent budget for this task.
			if over := float64(len(assigned)) - c.Value; over > 0 {
				violation = over
			}
		case models.ConstraintTime:
			// Value is the deadline budget in seconds.
			if c.Value > 0 {
				if over := task.EstimatedDuration.Seconds() - c.Value; over > 0 {
					violation = over / c.Value
				}
			}
		case models.ConstraintDependency:
			if len(assigned) > 0 && len(task.DependsOn) == 0 {
				// A dependency constraint without any declared dependency
				// is unsatisfiable bookkeeping; charge a fixed unit.
				violation = 1
			}
		case models.ConstraintSpatial:
			if task.Position == nil {
				violation = 1
			}
		}
		penalty += violation * c.Weight
	}
	return penalty
}

// ScheduleNeighbor builds the neighbor generator: each move reassigns a
// single task's agent list from the available pool.
func ScheduleNeighbor(tasks []*models.Task, agents []string) NeighborFunc[Assignment] {
	taskIDs := make([]string, len(tasks))
	required := make(map[string]int, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
		required[t.ID] = t.RequiredAgents
	}

	return func(sol Assignment, rng *rand.Rand) Assignment {
		if len(taskIDs) == 0 || len(agents) == 0 {
			return sol.Clone()
		}
		next := sol.Clone()
		taskID := taskIDs[rng.Intn(len(taskIDs))]

		// Jitter the head count around the requirement so the search can
		// trade agents between tasks.
		want := required[taskID]
		switch rng.Intn(4) {
		case 0:
			want--
		case 1:
			want++
		}
		if want < 0 {
			want = 0
		}
		if want > len(agents) {
			want = len(agents)
		}

		perm := rng.Perm(len(agents))
		picked := make([]string, 0, want)
		for _, idx := range perm[:want] {
			picked = append(picked, agents[idx])
		}
		sort.Strings(picked)
		next[taskID] = picked
		return next
	}
}

// InitialAssignment deals agents round-robin to tasks in priority order,
// giving the search a feasible starting point.
func InitialAssignment(tasks []*models.Task, agents []string) Assignment {
	ordered := make([]*models.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	sol := make(Assignment, len(tasks))
	cursor := 0
	for _, task := range ordered {
		var picked []string
		for i := 0; i < task.RequiredAgents && len(agents) > 0; i++ {
			picked = append(picked, agents[cursor%len(agents)])
			cursor++
		}
		sol[task.ID] = dedupe(picked)
	}
	return sol
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// OptimizeTaskSchedule is the convenience wrapper: it builds the energy
// function and neighbor generator for the task set and runs the
// optimizer, returning the result in the shared model shape.
func OptimizeTaskSchedule(ctx context.Context, cfg Config, tasks []*models.Task, agents []string) (*models.AnnealingResult, error) {
	opt, err := New(cfg, ScheduleEnergy(tasks), ScheduleNeighbor(tasks, agents))
	if err != nil {
		return nil, err
	}

	res, err := opt.Optimize(ctx, InitialAssignment(tasks, agents))
	if err != nil {
		return nil, err
	}

	return &models.AnnealingResult{
		BestSolution:           map[string][]string(res.Best),
		BestEnergy:             res.BestEnergy,
		Iterations:             res.Iterations,
		ConvergedAt:            res.ConvergedAt,
		FinalTemperature:       res.FinalTemperature,
		TunnelingEvents:        res.TunnelingEvents,
		SuperpositionCollapses: res.SuperpositionCollapses,
		CoherentTransitions:    res.CoherentTransitions,
		EnergyTrace:            res.EnergyTrace,
		TemperatureTrace:       res.TemperatureTrace,
	}, nil
}
