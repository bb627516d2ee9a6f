package quantum

import (
	"log"
	"sync/atomic"
	"time"
)

// emitter delivers events to subscribers over a buffered channel.
// Slow subscribers cause drops rather than blocking the scheduler.
type emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

func newEmitter(bufferSize int) *emitter {
	return &emitter{
		events: make(chan Event, bufferSize),
	}
}

// emit sends an event, stamping the timestamp if unset. If the channel
// stays full past a short grace period the event is dropped and counted.
func (e *emitter) emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	// Give the receiver a moment to drain before dropping.
	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[quantum] WARNING: event channel full, dropped event (total dropped: %d): type=%s",
				count, event.Type)
		}
	}
}

// Dropped returns the total number of dropped events.
func (e *emitter) Dropped() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only subscriber channel.
func (e *emitter) Events() <-chan Event {
	return e.events
}

// Close closes the channel; call only after all emitters have stopped.
func (e *emitter) Close() {
	close(e.events)
}
