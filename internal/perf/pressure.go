package perf

import "log"

// ExpiringStore is anything that can drop expired entries. Cache[V]
// satisfies it for every V.
type ExpiringStore interface {
	ClearExpired() int
}

// PressureHandler reacts to memory pressure by clearing expired cache
// entries and shrinking pools toward half of their max size.
type PressureHandler struct {
	// threshold is the usage fraction above which the handler acts.
	threshold float64
	pools     *PoolSet
	stores    []ExpiringStore
}

// NewPressureHandler creates a handler with the given usage threshold in
// (0,1].
func NewPressureHandler(threshold float64, pools *PoolSet, stores ...ExpiringStore) *PressureHandler {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	return &PressureHandler{threshold: threshold, pools: pools, stores: stores}
}

// Check runs the pressure response when usedFraction crosses the
// threshold. Returns true if anything was reclaimed.
func (h *PressureHandler) Check(usedFraction float64) bool {
	if usedFraction < h.threshold {
		return false
	}

	var reclaimed int
	for _, store := range h.stores {
		reclaimed += store.ClearExpired()
	}
	if h.pools != nil {
		reclaimed += h.pools.ShrinkAll(0.5)
	}
	if reclaimed > 0 {
		log.Printf("[perf] memory pressure %.2f: reclaimed %d cached entries and pooled resources",
			usedFraction, reclaimed)
	}
	return reclaimed > 0
}
