package interference

import (
	"math"
	"time"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// PatternType classifies how a pattern perturbs wave amplitudes.
type PatternType string

const (
	// PatternConstructive adds amplitude inside the pattern's range.
	PatternConstructive PatternType = "constructive"
	// PatternDestructive subtracts amplitude inside the pattern's range.
	PatternDestructive PatternType = "destructive"
	// PatternMixed alternates sign with the pattern's own oscillation.
	PatternMixed PatternType = "mixed"
)

// Valid returns true if the type is a known pattern type.
func (t PatternType) Valid() bool {
	switch t {
	case PatternConstructive, PatternDestructive, PatternMixed:
		return true
	default:
		return false
	}
}

// Pattern is a spatial/temporal field applied to all waves within range,
// independent of any single task.
type Pattern struct {
	// ID is the unique identifier for this pattern.
	ID string `json:"id"`
	// Type classifies the perturbation.
	Type PatternType `json:"type"`
	// Strength scales the perturbation.
	Strength float64 `json:"strength"`
	// Frequency is the pattern's own oscillation frequency.
	Frequency float64 `json:"frequency"`
	// Phase offsets the pattern's oscillation.
	Phase float64 `json:"phase"`
	// Center is the pattern's spatial origin.
	Center models.Vector3 `json:"center"`
	// Radius is the spatial range; positions beyond it are unaffected.
	Radius float64 `json:"radius"`
	// ExpiresAt bounds the temporal range; zero means no expiry.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// activeAt reports whether the pattern covers the position at the given
// wall-clock instant.
func (p *Pattern) activeAt(pos models.Vector3, now time.Time) bool {
	if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
		return false
	}
	return p.Center.DistanceTo(pos) <= p.Radius
}

// contributionAt returns the pattern's signed amplitude contribution at
// a position, given the engine's simulation clock.
func (p *Pattern) contributionAt(pos models.Vector3, simTime float64) float64 {
	dist := p.Center.DistanceTo(pos)
	falloff := 1.0
	if p.Radius > 0 {
		falloff = 1 - dist/p.Radius
	}
	osc := math.Cos(2*math.Pi*p.Frequency*simTime + p.Phase)
	base := p.Strength * falloff
	switch p.Type {
	case PatternConstructive:
		return base * math.Abs(osc)
	case PatternDestructive:
		return -base * math.Abs(osc)
	default:
		return base * osc
	}
}
