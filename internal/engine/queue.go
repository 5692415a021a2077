package engine

import (
	"sync"

	"github.com/finchley/marionette/internal/choreo"
)

// signalQueue is a thread-safe FIFO buffer for signals awaiting the next
// tick.
//
// HandleSignal may be called from any goroutine, including from a sink
// callback while a tick is in flight. Queuing and draining at tick start
// keeps performance creation non-reentrant with branch advancement, so no
// torn state is observable.
//
// The queue is unbounded: a burst of orchestrator signals must never
// block the producer. The live-performance quota bounds the damage a
// runaway producer can do downstream.
type signalQueue struct {
	mu      sync.Mutex
	signals []choreo.Signal
	closed  bool
}

func newSignalQueue() *signalQueue {
	return &signalQueue{signals: make([]choreo.Signal, 0, 16)}
}

// Enqueue adds a signal to the back of the queue.
// Returns false if the queue has been closed by Dispose.
func (q *signalQueue) Enqueue(sig choreo.Signal) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.signals = append(q.signals, sig)
	return true
}

// Drain removes and returns every queued signal in arrival order.
func (q *signalQueue) Drain() []choreo.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.signals) == 0 {
		return nil
	}
	out := q.signals
	q.signals = make([]choreo.Signal, 0, 16)
	return out
}

// Len returns the number of queued signals.
func (q *signalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.signals)
}

// Close rejects all future enqueues. Idempotent.
func (q *signalQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.signals = nil
}
