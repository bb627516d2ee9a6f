package anneal

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// EnergyFunc scores a solution; lower is better.
type EnergyFunc[S any] func(S) float64

// NeighborFunc returns a new candidate solution one move away from the
// given one. Implementations must not mutate the input.
type NeighborFunc[S any] func(S, *rand.Rand) S

// moveKind classifies the candidate-generation strategy of one iteration.
type moveKind int

const (
	moveClassical moveKind = iota
	moveTunneling
	moveSuperposition
)

// Result is the outcome of one Optimize call across every chain.
type Result[S any] struct {
	// Best is the lowest-energy solution found.
	Best S
	// BestEnergy is the energy of Best.
	BestEnergy float64
	// Iterations is the summed iteration count across all chains.
	Iterations int
	// ConvergedAt is the winning chain's iteration of last improvement,
	// or -1 if it never improved on the initial solution.
	ConvergedAt int
	// FinalTemperature is the winning chain's temperature at stop.
	FinalTemperature float64
	// TunnelingEvents counts accepted tunneling moves across all chains.
	TunnelingEvents int
	// SuperpositionCollapses counts superposition moves across all chains.
	SuperpositionCollapses int
	// CoherentTransitions counts accepted classical moves across all chains.
	CoherentTransitions int
	// EnergyTrace is the winning chain's per-iteration best energy.
	EnergyTrace []float64
	// TemperatureTrace is the winning chain's per-iteration temperature.
	TemperatureTrace []float64
}

// Optimizer runs simulated annealing over an arbitrary solution type
// with an injected energy function and neighbor generator.
type Optimizer[S any] struct {
	cfg      Config
	energy   EnergyFunc[S]
	neighbor NeighborFunc[S]
}

// New creates an Optimizer. Returns ErrInvalidConfig if the config is
// malformed.
func New[S any](cfg Config, energy EnergyFunc[S], neighbor NeighborFunc[S]) (*Optimizer[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer[S]{cfg: cfg.withDefaults(), energy: energy, neighbor: neighbor}, nil
}

// Optimize runs cfg.ParallelChains independent annealing chains from the
// initial solution and returns the globally best state. The context
// cancels in-flight chains between iterations.
func (o *Optimizer[S]) Optimize(ctx context.Context, initial S) (Result[S], error) {
	chains := make([]chainResult[S], o.cfg.ParallelChains)

	// Keep the parent context separate: the errgroup cancels its derived
	// context as soon as Wait returns, which must not look like a
	// caller-requested cancellation.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < o.cfg.ParallelChains; i++ {
		g.Go(func() error {
			chains[i] = o.runChain(gctx, initial, o.cfg.Seed+int64(i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result[S]{}, err
	}

	best := 0
	for i := 1; i < len(chains); i++ {
		if chains[i].bestEnergy < chains[best].bestEnergy {
			best = i
		}
	}

	result := Result[S]{
		Best:             chains[best].best,
		BestEnergy:       chains[best].bestEnergy,
		ConvergedAt:      chains[best].convergedAt,
		FinalTemperature: chains[best].finalTemperature,
		EnergyTrace:      chains[best].energyTrace,
		TemperatureTrace: chains[best].temperatureTrace,
	}
	for _, c := range chains {
		result.Iterations += c.iterations
		result.TunnelingEvents += c.tunnelingEvents
		result.SuperpositionCollapses += c.superpositionCollapses
		result.CoherentTransitions += c.coherentTransitions
	}
	return result, ctx.Err()
}

// chainResult is the chain-local state returned by one annealing run.
type chainResult[S any] struct {
	best                   S
	bestEnergy             float64
	iterations             int
	convergedAt            int
	finalTemperature       float64
	tunnelingEvents        int
	superpositionCollapses int
	coherentTransitions    int
	energyTrace            []float64
	temperatureTrace       []float64
}

// runChain executes one independent annealing chain. All state here is
// chain-local; no cross-chain locking is needed.
func (o *Optimizer[S]) runChain(ctx context.Context, initial S, seed int64) chainResult[S] {
	rng := rand.New(rand.NewSource(seed))

	current := initial
	currentEnergy := o.energy(current)
	res := chainResult[S]{
		best:        current,
		bestEnergy:  currentEnergy,
		convergedAt: -1,
	}

	temp := o.cfg.InitialTemperature
	cooling := newCoolingState(o.cfg)
	sinceImprovement := 0

	for i := 0; i < o.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			break
		}
		res.iterations++

		kind := o.pickMove(rng)
		candidate, candidateEnergy := o.generate(current, kind, temp, rng)
		delta := candidateEnergy - currentEnergy

		accepted := o.accept(delta, temp, kind, rng)
		if accepted {
			current = candidate
			currentEnergy = candidateEnergy
			switch kind {
			case moveTunneling:
				res.tunnelingEvents++
			case moveClassical:
				res.coherentTransitions++
			}
		}
		if kind == moveSuperposition {
			res.superpositionCollapses++
		}

		// Every strict improvement becomes the new best; the convergence
		// threshold only decides whether it counts as progress for the
		// patience counter.
		if currentEnergy < res.bestEnergy {
			if res.bestEnergy-currentEnergy > o.cfg.ConvergenceThreshold {
				sinceImprovement = 0
			} else {
				sinceImprovement++
			}
			res.best = current
			res.bestEnergy = currentEnergy
			res.convergedAt = i
		} else {
			sinceImprovement++
		}

		res.energyTrace = append(res.energyTrace, res.bestEnergy)
		res.temperatureTrace = append(res.temperatureTrace, temp)

		if sinceImprovement >= o.cfg.Patience {
			break
		}
		temp = cooling.next(temp, i, accepted)
	}

	res.finalTemperature = temp
	return res
}

// pickMove selects the candidate-generation strategy for one iteration.
func (o *Optimizer[S]) pickMove(rng *rand.Rand) moveKind {
	r := rng.Float64()
	switch {
	case r < o.cfg.TunnelingProbability:
		return moveTunneling
	case r < o.cfg.TunnelingProbability+o.cfg.SuperpositionProbability:
		return moveSuperposition
	default:
		return moveClassical
	}
}

// generate produces a candidate solution for the given move kind.
func (o *Optimizer[S]) generate(current S, kind moveKind, temp float64, rng *rand.Rand) (S, float64) {
	switch kind {
	case moveTunneling:
		// Stack several neighbor steps to escape a local minimum.
		candidate := current
		for d := 0; d < o.cfg.TunnelingDepth; d++ {
			candidate = o.neighbor(candidate, rng)
		}
		return candidate, o.energy(candidate)

	case moveSuperposition:
		// Explore an extended neighborhood "at once", then collapse to
		// one candidate weighted by a softmax over energy.
		candidates := make([]S, o.cfg.SuperpositionWidth)
		energies := make([]float64, o.cfg.SuperpositionWidth)
		weights := make([]float64, o.cfg.SuperpositionWidth)
		var total float64
		for i := range candidates {
			candidates[i] = o.neighbor(current, rng)
			energies[i] = o.energy(candidates[i])
			weights[i] = math.Exp(-energies[i] / math.Max(temp, 1e-12))
			total += weights[i]
		}
		if total <= 0 || math.IsInf(total, 1) {
			// Softmax under/overflow: pick uniformly.
			i := rng.Intn(len(candidates))
			return candidates[i], energies[i]
		}
		r := rng.Float64() * total
		var cum float64
		for i := range candidates {
			cum += weights[i]
			if r <= cum {
				return candidates[i], energies[i]
			}
		}
		last := len(candidates) - 1
		return candidates[last], energies[last]

	default:
		candidate := o.neighbor(current, rng)
		return candidate, o.energy(candidate)
	}
}

// accept decides whether to take a candidate. Improving moves are always
// taken; worsening moves are taken with probability
// exp(-Δe/T) × (1 + tunnelingBonus), which intentionally may exceed 1
// for tunneling moves and then always accepts.
func (o *Optimizer[S]) accept(delta, temp float64, kind moveKind, rng *rand.Rand) bool {
	if delta < 0 {
		return true
	}
	if temp <= 0 {
		return false
	}
	p := math.Exp(-delta / temp)
	if kind == moveTunneling {
		p *= 1 + o.cfg.TunnelingBonus
	}
	return rng.Float64() < p
}

// coolingState carries the per-chain bookkeeping a schedule needs.
type coolingState struct {
	cfg Config
	// expRate is the per-iteration geometric decay for exponential and
	// adaptive cooling.
	expRate float64
	// window is the trailing acceptance window for adaptive cooling.
	window []bool
}

const (
	adaptiveWindow = 50
	adaptiveTarget = 0.3
)

func newCoolingState(cfg Config) *coolingState {
	rate := math.Pow(cfg.FinalTemperature/cfg.InitialTemperature, 1/float64(cfg.MaxIterations))
	return &coolingState{cfg: cfg, expRate: rate}
}

// next returns the temperature for the following iteration.
func (c *coolingState) next(temp float64, iter int, accepted bool) float64 {
	cfg := c.cfg
	var next float64
	switch cfg.Cooling {
	case CoolingLinear:
		frac := float64(iter+1) / float64(cfg.MaxIterations)
		next = cfg.InitialTemperature - (cfg.InitialTemperature-cfg.FinalTemperature)*frac
	case CoolingLogarithmic:
		next = cfg.InitialTemperature / math.Log(math.E+float64(iter+1))
	case CoolingAdaptive:
		c.window = append(c.window, accepted)
		if len(c.window) > adaptiveWindow {
			c.window = c.window[1:]
		}
		rate := c.expRate
		if acceptanceRate(c.window) < adaptiveTarget {
			// Too few acceptances: cool faster to settle.
			rate *= 0.98
		} else {
			// Plenty of acceptances: linger at this temperature.
			rate = math.Min(rate*1.02, 0.9999)
		}
		next = temp * rate
	default: // CoolingExponential
		next = temp * c.expRate
	}

	return math.Max(next, cfg.FinalTemperature)
}

func acceptanceRate(window []bool) float64 {
	if len(window) == 0 {
		return 1
	}
	var n int
	for _, a := range window {
		if a {
			n++
		}
	}
	return float64(n) / float64(len(window))
}
