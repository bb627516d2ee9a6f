package interference

import (
	"math"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// cellKey identifies one cell of the uniform spatial grid.
type cellKey struct {
	x, y, z int
}

// spatialGrid buckets waves into uniform cells keyed by truncated
// coordinates, bounding pairwise lookups to nearby cells instead of the
// full O(n²) sweep.
type spatialGrid struct {
	// cellSize is the edge length of one cell, matching the engine's
	// interaction cutoff.
	cellSize float64
	cells    map[cellKey][]*TaskWave
}

func newSpatialGrid(cellSize float64) *spatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &spatialGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]*TaskWave),
	}
}

func (g *spatialGrid) key(p models.Vector3) cellKey {
	return cellKey{
		x: int(math.Floor(p.X / g.cellSize)),
		y: int(math.Floor(p.Y / g.cellSize)),
		z: int(math.Floor(p.Z / g.cellSize)),
	}
}

// insert adds a wave to the cell covering its position.
func (g *spatialGrid) insert(w *TaskWave) {
	k := g.key(w.Position)
	g.cells[k] = append(g.cells[k], w)
}

// rebuild clears the grid and re-buckets all waves.
func (g *spatialGrid) rebuild(waves []*TaskWave) {
	g.cells = make(map[cellKey][]*TaskWave, len(waves))
	for _, w := range waves {
		g.insert(w)
	}
}

// near returns all waves in the cell covering p and its 26 neighbors.
func (g *spatialGrid) near(p models.Vector3) []*TaskWave {
	center := g.key(p)
	var out []*TaskWave
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				k := cellKey{x: center.x + dx, y: center.y + dy, z: center.z + dz}
				out = append(out, g.cells[k]...)
			}
		}
	}
	return out
}
