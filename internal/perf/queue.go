package perf

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// ErrWorkerTaskFailed indicates a job exhausted its retry budget.
var ErrWorkerTaskFailed = errors.New("worker task failed")

// maxJobAttempts bounds retries: a job runs at most this many times.
const maxJobAttempts = 4

// Job is one unit of queued work.
type Job struct {
	// ID identifies the job in logs and failure reports.
	ID string
	// Name is a human-readable label.
	Name string
	// Priority orders dequeueing; higher runs first. Each retry
	// decrements it so flapping jobs sink down the queue.
	Priority int
	// Run executes the job.
	Run func(ctx context.Context) error

	attempts int
	index    int
}

// jobHeap implements heap.Interface ordered by descending priority.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].ID < h[j].ID
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	job := x.(*Job)
	job.index = len(*h)
	*h = append(*h, job)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// Failure reports a job that exhausted its retry budget.
type Failure struct {
	// JobID identifies the failed job.
	JobID string
	// Name is the job's label.
	Name string
	// Attempts is how many times the job ran.
	Attempts int
	// Err is the terminal error, wrapping ErrWorkerTaskFailed.
	Err error
}

// Queue is a priority worker queue with bounded retries. Failed jobs are
// requeued with decremented priority up to the retry budget, then
// reported as terminal failures.
type Queue struct {
	mu   sync.Mutex
	heap jobHeap
	// onFailure, if set, receives terminal failures.
	onFailure func(Failure)
	// processed and failed are lifetime counters.
	processed int
	failed    int
}

// NewQueue creates an empty worker queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.heap)
	return q
}

// OnFailure registers the terminal-failure callback.
func (q *Queue) OnFailure(fn func(Failure)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onFailure = fn
}

// Submit enqueues a job. A missing ID is filled with a short uuid.
func (q *Queue) Submit(job *Job) {
	if job == nil || job.Run == nil {
		return
	}
	if job.ID == "" {
		job.ID = uuid.New().String()[:8]
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.heap, job)
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// ProcessOne dequeues and runs the highest-priority job. It returns
// false when the queue is empty. A failing job is requeued with its
// priority decremented until the retry budget runs out, at which point
// the failure is reported and the job dropped.
func (q *Queue) ProcessOne(ctx context.Context) bool {
	q.mu.Lock()
	if q.heap.Len() == 0 {
		q.mu.Unlock()
		return false
	}
	job := heap.Pop(&q.heap).(*Job)
	q.mu.Unlock()

	job.attempts++
	err := job.Run(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	if err == nil {
		q.processed++
		return true
	}

	if job.attempts < maxJobAttempts {
		job.Priority--
		heap.Push(&q.heap, job)
		log.Printf("[queue] job %s (%s) attempt %d failed, requeued at priority %d: %v",
			job.ID, job.Name, job.attempts, job.Priority, err)
		return true
	}

	q.failed++
	failure := Failure{
		JobID:    job.ID,
		Name:     job.Name,
		Attempts: job.attempts,
		Err:      fmt.Errorf("%w: %s after %d attempts: %v", ErrWorkerTaskFailed, job.ID, job.attempts, err),
	}
	log.Printf("[queue] job %s (%s) failed terminally after %d attempts: %v",
		job.ID, job.Name, job.attempts, err)
	if q.onFailure != nil {
		// Invoke outside the lock so callbacks may resubmit.
		cb := q.onFailure
		q.mu.Unlock()
		cb(failure)
		q.mu.Lock()
	}
	return true
}

// Drain processes jobs until the queue is empty or the context is done.
// Returns the number of job executions (including retries).
func (q *Queue) Drain(ctx context.Context) int {
	var runs int
	for ctx.Err() == nil {
		if !q.ProcessOne(ctx) {
			break
		}
		runs++
	}
	return runs
}

// Stats returns lifetime processed and terminally-failed counts.
func (q *Queue) Stats() (processed, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processed, q.failed
}
