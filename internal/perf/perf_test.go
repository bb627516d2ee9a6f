package perf

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCacheComputesOnce(t *testing.T) {
	c := NewCache[int](10)

	var calls int
	compute := func() int {
		calls++
		return 42
	}

	first := c.Compute("k", time.Minute, compute)
	second := c.Compute("k", time.Minute, compute)

	if calls != 1 {
		t.Errorf("expected 1 compute call, got %d", calls)
	}
	if first != 42 || second != 42 {
		t.Errorf("expected both results 42, got %d and %d", first, second)
	}
	if c.HitCount("k") != 1 {
		t.Errorf("expected 1 hit, got %d", c.HitCount("k"))
	}
}

func TestCacheRecomputesAfterTTL(t *testing.T) {
	c := NewCache[int](10)
	current := time.Now()
	c.now = func() time.Time { return current }

	var calls int
	compute := func() int {
		calls++
		return calls
	}

	c.Compute("k", time.Second, compute)
	current = current.Add(2 * time.Second)
	got := c.Compute("k", time.Second, compute)

	if calls != 2 {
		t.Errorf("expected recompute after TTL, got %d calls", calls)
	}
	if got != 2 {
		t.Errorf("expected fresh result 2, got %d", got)
	}
}

func TestCacheEvictsOldestTenPercent(t *testing.T) {
	c := NewCache[int](20)
	current := time.Now()
	c.now = func() time.Time { return current }

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("k%02d", i)
		c.Compute(key, time.Hour, func() int { return i })
		current = current.Add(time.Millisecond)
	}

	// At capacity: the next insert evicts the 2 oldest entries.
	c.Compute("new", time.Hour, func() int { return -1 })

	if c.Len() != 19 {
		t.Errorf("expected 19 entries after eviction, got %d", c.Len())
	}
	var calls int
	c.Compute("k00", time.Hour, func() int { calls++; return 0 })
	if calls != 1 {
		t.Error("expected oldest entry k00 to have been evicted")
	}
}

func TestCacheClearExpired(t *testing.T) {
	c := NewCache[string](10)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Compute("short", time.Second, func() string { return "a" })
	c.Compute("long", time.Hour, func() string { return "b" })

	current = current.Add(time.Minute)
	if removed := c.ClearExpired(); removed != 1 {
		t.Errorf("expected 1 entry cleared, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", c.Len())
	}
}

func checkPoolInvariant(t *testing.T, p *Pool) {
	t.Helper()
	available, inUse, maxSize := p.Stats()
	if available+inUse > maxSize {
		t.Fatalf("pool invariant violated: available=%d inUse=%d max=%d", available, inUse, maxSize)
	}
}

func TestPoolBorrowReturnCycle(t *testing.T) {
	p := NewPool(KindSuperposition, 4)

	res := p.Borrow()
	if res == nil {
		t.Fatal("expected allocation under max")
	}
	buf, ok := res.(*SuperpositionBuffer)
	if !ok {
		t.Fatalf("expected *SuperpositionBuffer, got %T", res)
	}
	buf.Weights["waiting"] = 0.5
	checkPoolInvariant(t, p)

	p.Return(res)
	checkPoolInvariant(t, p)

	again := p.Borrow()
	if again != res {
		t.Error("expected returned resource to be reused")
	}
	if len(again.(*SuperpositionBuffer).Weights) != 0 {
		t.Error("expected resource reset before reuse")
	}
}

func TestPoolExhaustionReturnsNil(t *testing.T) {
	p := NewPool(KindAnnealing, 2)

	a, b := p.Borrow(), p.Borrow()
	if a == nil || b == nil {
		t.Fatal("expected borrows under max to succeed")
	}
	if c := p.Borrow(); c != nil {
		t.Error("expected nil when pool is exhausted, got a resource")
	}
	checkPoolInvariant(t, p)
}

func TestPoolIgnoresForeignResources(t *testing.T) {
	p := NewPool(KindEntanglement, 2)
	q := NewPool(KindInterference, 2)

	res := q.Borrow()
	p.Return(res) // wrong kind, ignored
	if available, _, _ := p.Stats(); available != 0 {
		t.Error("expected foreign resource rejected")
	}

	// Double return must not duplicate the resource.
	own := p.Borrow()
	p.Return(own)
	p.Return(own)
	available, inUse, _ := p.Stats()
	if available != 1 || inUse != 0 {
		t.Errorf("expected 1 available after double return, got available=%d inUse=%d", available, inUse)
	}
}

func TestPoolShrink(t *testing.T) {
	p := NewPool(KindInterference, 8)
	var borrowed []Resource
	for i := 0; i < 6; i++ {
		borrowed = append(borrowed, p.Borrow())
	}
	for _, r := range borrowed {
		p.Return(r)
	}

	dropped := p.Shrink(2)
	if dropped != 4 {
		t.Errorf("expected 4 dropped, got %d", dropped)
	}
	available, inUse, _ := p.Stats()
	if available != 2 || inUse != 0 {
		t.Errorf("expected 2 available, got available=%d inUse=%d", available, inUse)
	}
}

func TestPoolSetRoutesByKind(t *testing.T) {
	s := NewPoolSet(4)
	res := s.Borrow(KindEntanglement)
	if _, ok := res.(*EntanglementRecord); !ok {
		t.Fatalf("expected *EntanglementRecord, got %T", res)
	}
	s.Return(res)
	available, _, _ := s.Pool(KindEntanglement).Stats()
	if available != 1 {
		t.Errorf("expected resource returned to its kind pool, got %d available", available)
	}
}

func TestQueueOrdersByPriority(t *testing.T) {
	q := NewQueue()
	var order []string
	run := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	q.Submit(&Job{ID: "low", Priority: 1, Run: run("low")})
	q.Submit(&Job{ID: "high", Priority: 9, Run: run("high")})
	q.Submit(&Job{ID: "mid", Priority: 5, Run: run("mid")})

	q.Drain(context.Background())

	want := []string{"high", "mid", "low"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestQueueRetriesWithPriorityDecay(t *testing.T) {
	q := NewQueue()

	var attempts int
	var failures []Failure
	q.OnFailure(func(f Failure) { failures = append(failures, f) })

	q.Submit(&Job{ID: "flaky", Priority: 5, Run: func(context.Context) error {
		attempts++
		return errors.New("boom")
	}})

	runs := q.Drain(context.Background())
	if attempts != 4 {
		t.Errorf("expected 4 attempts (1 + 3 retries), got %d", attempts)
	}
	if runs != 4 {
		t.Errorf("expected 4 executions, got %d", runs)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 terminal failure, got %d", len(failures))
	}
	if !errors.Is(failures[0].Err, ErrWorkerTaskFailed) {
		t.Errorf("expected ErrWorkerTaskFailed, got %v", failures[0].Err)
	}
	if failures[0].Attempts != 4 {
		t.Errorf("expected 4 attempts reported, got %d", failures[0].Attempts)
	}
}

func TestQueueRetrySinksBelowFreshJobs(t *testing.T) {
	q := NewQueue()
	var order []string

	q.Submit(&Job{ID: "flaky", Priority: 5, Run: func(context.Context) error {
		order = append(order, "flaky")
		return errors.New("boom")
	}})
	q.Submit(&Job{ID: "steady", Priority: 5, Run: func(context.Context) error {
		order = append(order, "steady")
		return nil
	}})

	// First ProcessOne runs flaky (tied priority, "flaky" < "steady"),
	// which fails and re-enters at priority 4; steady now outranks it.
	q.ProcessOne(context.Background())
	q.ProcessOne(context.Background())

	if len(order) != 2 || order[1] != "steady" {
		t.Errorf("expected steady to outrank decayed retry, got %v", order)
	}
}

func TestPressureHandlerBelowThresholdDoesNothing(t *testing.T) {
	pools := NewPoolSet(4)
	h := NewPressureHandler(0.8, pools)
	if h.Check(0.5) {
		t.Error("expected no action below threshold")
	}
}

func TestPressureHandlerShrinksAndClears(t *testing.T) {
	cache := NewCache[int](10)
	current := time.Now()
	cache.now = func() time.Time { return current }
	cache.Compute("stale", time.Second, func() int { return 1 })
	current = current.Add(time.Minute)

	pools := NewPoolSet(4)
	pool := pools.Pool(KindAnnealing)
	var borrowed []Resource
	for i := 0; i < 4; i++ {
		borrowed = append(borrowed, pool.Borrow())
	}
	for _, r := range borrowed {
		pool.Return(r)
	}

	h := NewPressureHandler(0.8, pools, cache)
	if !h.Check(0.9) {
		t.Fatal("expected reclaim above threshold")
	}
	if cache.Len() != 0 {
		t.Errorf("expected expired cache entries cleared, got %d", cache.Len())
	}
	available, _, _ := pool.Stats()
	if available != 2 {
		t.Errorf("expected pool shrunk to half of max, got %d available", available)
	}
}
