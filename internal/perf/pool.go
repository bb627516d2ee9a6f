package perf

import (
	"sync"

	"github.com/danieleschmidt/quantum-mesh-planner/pkg/models"
)

// ResourceKind enumerates the pooled quantum object kinds. Each kind is
// its own concrete type with its own reset logic, selected by a type
// switch rather than a string-keyed lookup.
type ResourceKind int

const (
	// KindSuperposition pools superposition scratch buffers.
	KindSuperposition ResourceKind = iota
	// KindEntanglement pools entanglement pair records.
	KindEntanglement
	// KindInterference pools wave scratch fields.
	KindInterference
	// KindAnnealing pools annealing trace buffers.
	KindAnnealing
)

// String returns the kind's display name.
func (k ResourceKind) String() string {
	switch k {
	case KindSuperposition:
		return "superposition"
	case KindEntanglement:
		return "entanglement"
	case KindInterference:
		return "interference"
	case KindAnnealing:
		return "annealing"
	default:
		return "unknown"
	}
}

// Resource is one poolable object.
type Resource interface {
	// Kind reports which pool the resource belongs to.
	Kind() ResourceKind
	// reset restores kind-specific defaults before re-entering the pool.
	reset()
}

// SuperpositionBuffer holds per-label weights reused across planning
// passes.
type SuperpositionBuffer struct {
	Weights map[models.TaskState]float64
}

func (b *SuperpositionBuffer) Kind() ResourceKind { return KindSuperposition }

func (b *SuperpositionBuffer) reset() {
	for k := range b.Weights {
		delete(b.Weights, k)
	}
}

// EntanglementRecord holds a reusable pair record.
type EntanglementRecord struct {
	System1, System2 string
	Correlation      float64
	Strength         float64
}

func (r *EntanglementRecord) Kind() ResourceKind { return KindEntanglement }

func (r *EntanglementRecord) reset() {
	*r = EntanglementRecord{}
}

// InterferenceField holds reusable per-task amplitude scratch.
type InterferenceField struct {
	Amplitudes map[string]float64
}

func (f *InterferenceField) Kind() ResourceKind { return KindInterference }

func (f *InterferenceField) reset() {
	for k := range f.Amplitudes {
		delete(f.Amplitudes, k)
	}
}

// AnnealingScratch holds reusable trace buffers.
type AnnealingScratch struct {
	EnergyTrace      []float64
	TemperatureTrace []float64
}

func (s *AnnealingScratch) Kind() ResourceKind { return KindAnnealing }

func (s *AnnealingScratch) reset() {
	s.EnergyTrace = s.EnergyTrace[:0]
	s.TemperatureTrace = s.TemperatureTrace[:0]
}

// newResource allocates a fresh resource of the given kind.
func newResource(kind ResourceKind) Resource {
	switch kind {
	case KindSuperposition:
		return &SuperpositionBuffer{Weights: make(map[models.TaskState]float64)}
	case KindEntanglement:
		return &EntanglementRecord{}
	case KindInterference:
		return &InterferenceField{Amplitudes: make(map[string]float64)}
	case KindAnnealing:
		return &AnnealingScratch{}
	default:
		return nil
	}
}

// Pool manages reusable resources of a single kind. Invariant: a
// resource is in available or inUse, never both, and
// len(available) + len(inUse) == currentSize <= maxSize.
type Pool struct {
	mu sync.Mutex
	// kind is the resource kind this pool serves.
	kind ResourceKind
	// available holds resources ready to borrow.
	available []Resource
	// inUse tracks borrowed resources by identity.
	inUse map[Resource]bool
	// maxSize caps currentSize.
	maxSize int
}

// NewPool creates a pool for one resource kind.
func NewPool(kind ResourceKind, maxSize int) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Pool{
		kind:    kind,
		inUse:   make(map[Resource]bool),
		maxSize: maxSize,
	}
}

// Borrow takes a resource from the pool, allocating a new one when the
// pool is empty but under max. Returns nil when the pool is exhausted.
func (p *Pool) Borrow() Resource {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.available); n > 0 {
		res := p.available[n-1]
		p.available = p.available[:n-1]
		p.inUse[res] = true
		return res
	}
	if len(p.inUse) >= p.maxSize {
		return nil
	}
	res := newResource(p.kind)
	p.inUse[res] = true
	return res
}

// Return gives a borrowed resource back, resetting it to kind defaults.
// Resources the pool does not own are ignored.
func (p *Pool) Return(res Resource) {
	if res == nil || res.Kind() != p.kind {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inUse[res] {
		return
	}
	delete(p.inUse, res)
	res.reset()
	p.available = append(p.available, res)
}

// Shrink drops idle resources until currentSize is at most target.
// Borrowed resources are never reclaimed. Returns how many were dropped.
func (p *Pool) Shrink(target int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if target < 0 {
		target = 0
	}
	var dropped int
	for len(p.available)+len(p.inUse) > target && len(p.available) > 0 {
		p.available = p.available[:len(p.available)-1]
		dropped++
	}
	return dropped
}

// Stats returns the available count, in-use count, and max size.
func (p *Pool) Stats() (available, inUse, maxSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available), len(p.inUse), p.maxSize
}

// PoolSet bundles one pool per resource kind.
type PoolSet struct {
	pools map[ResourceKind]*Pool
}

// NewPoolSet creates all four kind pools with a shared max size.
func NewPoolSet(maxPerKind int) *PoolSet {
	kinds := []ResourceKind{KindSuperposition, KindEntanglement, KindInterference, KindAnnealing}
	pools := make(map[ResourceKind]*Pool, len(kinds))
	for _, kind := range kinds {
		pools[kind] = NewPool(kind, maxPerKind)
	}
	return &PoolSet{pools: pools}
}

// Pool returns the pool for a kind, or nil for an unknown kind.
func (s *PoolSet) Pool(kind ResourceKind) *Pool {
	return s.pools[kind]
}

// Borrow takes a resource of the given kind.
func (s *PoolSet) Borrow(kind ResourceKind) Resource {
	if p := s.pools[kind]; p != nil {
		return p.Borrow()
	}
	return nil
}

// Return gives a resource back to its kind's pool.
func (s *PoolSet) Return(res Resource) {
	if res == nil {
		return
	}
	if p := s.pools[res.Kind()]; p != nil {
		p.Return(res)
	}
}

// ShrinkAll shrinks every pool toward the given fraction of its max.
func (s *PoolSet) ShrinkAll(fraction float64) int {
	var dropped int
	for _, p := range s.pools {
		_, _, max := p.Stats()
		dropped += p.Shrink(int(float64(max) * fraction))
	}
	return dropped
}
