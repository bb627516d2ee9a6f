// Package anneal implements a generic simulated-annealing optimizer with
// quantum-inspired tunneling and superposition moves.
package anneal

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates a malformed optimizer configuration.
var ErrInvalidConfig = errors.New("invalid annealing config")

// CoolingSchedule selects how temperature decays per iteration.
type CoolingSchedule string

const (
	// CoolingLinear interpolates temperature linearly to the final value.
	CoolingLinear CoolingSchedule = "linear"
	// CoolingExponential decays temperature geometrically.
	CoolingExponential CoolingSchedule = "exponential"
	// CoolingLogarithmic decays temperature as T0/ln(e+i).
	CoolingLogarithmic CoolingSchedule = "logarithmic"
	// CoolingAdaptive speeds cooling up when the trailing acceptance rate
	// is below target and slows it down otherwise.
	CoolingAdaptive CoolingSchedule = "adaptive"
)

// Valid returns true if the schedule is a known value.
func (c CoolingSchedule) Valid() bool {
	switch c {
	case CoolingLinear, CoolingExponential, CoolingLogarithmic, CoolingAdaptive:
		return true
	default:
		return false
	}
}

// Config holds the optimizer's tuning parameters.
type Config struct {
	// InitialTemperature is the search's starting temperature.
	InitialTemperature float64
	// FinalTemperature is the floor the temperature decays toward.
	FinalTemperature float64
	// Cooling selects the temperature schedule.
	Cooling CoolingSchedule
	// MaxIterations bounds each chain's iteration count.
	MaxIterations int
	// ConvergenceThreshold is the minimum best-energy improvement that
	// counts as progress.
	ConvergenceThreshold float64
	// Patience is how many non-improving iterations a chain tolerates
	// before stopping early. Zero derives a schedule-dependent default.
	Patience int
	// TunnelingProbability gates tunneling moves per iteration.
	TunnelingProbability float64
	// SuperpositionProbability gates superposition moves per iteration.
	SuperpositionProbability float64
	// TunnelingBonus is added to the acceptance multiplier for tunneling
	// moves: exp(-Δe/T) × (1 + bonus).
	TunnelingBonus float64
	// TunnelingDepth is how many neighbor steps a tunneling move stacks.
	TunnelingDepth int
	// SuperpositionWidth is how many candidates a superposition move
	// samples among before collapsing.
	SuperpositionWidth int
	// ParallelChains is how many independent chains run per Optimize call.
	ParallelChains int
	// Seed seeds the chains' random sources; chain i uses Seed+i.
	Seed int64
}

// DefaultConfig returns a Config with the reference tuning.
func DefaultConfig() Config {
	return Config{
		InitialTemperature:       100,
		FinalTemperature:         0.01,
		Cooling:                  CoolingExponential,
		MaxIterations:            1000,
		ConvergenceThreshold:     1e-6,
		TunnelingProbability:     0.1,
		SuperpositionProbability: 0.1,
		TunnelingBonus:           0.2,
		TunnelingDepth:           3,
		SuperpositionWidth:       4,
		ParallelChains:           4,
		Seed:                     1,
	}
}

// Validate rejects configurations the optimizer cannot run with.
// Malformed configuration is the only eagerly-rejected condition in the
// core; everything downstream degrades instead of failing.
func (c Config) Validate() error {
	if c.InitialTemperature <= 0 {
		return fmt.Errorf("%w: initial temperature must be positive", ErrInvalidConfig)
	}
	if c.FinalTemperature <= 0 || c.FinalTemperature > c.InitialTemperature {
		return fmt.Errorf("%w: final temperature must be in (0, initial]", ErrInvalidConfig)
	}
	if !c.Cooling.Valid() {
		return fmt.Errorf("%w: unknown cooling schedule %q", ErrInvalidConfig, c.Cooling)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1", ErrInvalidConfig)
	}
	if c.TunnelingProbability < 0 || c.TunnelingProbability > 1 {
		return fmt.Errorf("%w: tunneling probability must be in [0,1]", ErrInvalidConfig)
	}
	if c.SuperpositionProbability < 0 || c.TunnelingProbability+c.SuperpositionProbability > 1 {
		return fmt.Errorf("%w: move probabilities must not exceed 1 combined", ErrInvalidConfig)
	}
	if c.ParallelChains < 1 {
		return fmt.Errorf("%w: parallel chains must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// withDefaults fills zero-value knobs that have sane fallbacks.
func (c Config) withDefaults() Config {
	if c.TunnelingDepth < 1 {
		c.TunnelingDepth = 3
	}
	if c.SuperpositionWidth < 2 {
		c.SuperpositionWidth = 4
	}
	if c.Patience < 1 {
		// Logarithmic cooling lingers at high temperatures, so it gets a
		// longer patience window.
		if c.Cooling == CoolingLogarithmic {
			c.Patience = c.MaxIterations / 2
		} else {
			c.Patience = c.MaxIterations / 5
		}
		if c.Patience < 10 {
			c.Patience = 10
		}
	}
	return c
}
