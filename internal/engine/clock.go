package engine

import (
	"sync"
	"time"
)

// Clock abstracts the engine's tick source. No other component reads
// wall-clock time; everything downstream works in delta-milliseconds.
//
// Two implementations ship with the engine:
//   - TickerClock: real-time frame driver backed by time.Ticker
//   - ManualClock: deterministic driver advanced explicitly by tests
type Clock interface {
	// Now returns elapsed milliseconds since the clock started.
	Now() int64

	// OnTick registers a callback invoked with the delta since the
	// previous tick. The returned function cancels the registration.
	OnTick(cb func(deltaMs int64)) (cancel func())
}

// TickerClock drives ticks from wall time at a fixed interval. This is the
// production frame driver; the measured (not nominal) delta is passed to
// callbacks so slow frames do not slow the choreography down.
type TickerClock struct {
	interval time.Duration

	mu      sync.Mutex
	start   time.Time
	nextID  int
	cbs     map[int]func(int64)
	stopped bool
	stop    chan struct{}
}

// NewTickerClock creates a real-time clock ticking at the given interval.
// A zero or negative interval defaults to ~60 frames per second.
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TickerClock{
		interval: interval,
		start:    time.Now(),
		cbs:      make(map[int]func(int64)),
		stop:     make(chan struct{}),
	}
}

// Now implements Clock.
func (c *TickerClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start).Milliseconds()
}

// OnTick implements Clock. The first registration starts the ticker
// goroutine; callbacks run on that goroutine sequentially.
func (c *TickerClock) OnTick(cb func(deltaMs int64)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return func() {}
	}

	id := c.nextID
	c.nextID++
	c.cbs[id] = cb
	if len(c.cbs) == 1 {
		go c.run()
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.cbs, id)
	}
}

// Stop halts the ticker goroutine and drops all registrations.
func (c *TickerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
	c.cbs = make(map[int]func(int64))
}

func (c *TickerClock) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			delta := now.Sub(last).Milliseconds()
			last = now
			if delta <= 0 {
				continue
			}
			for _, cb := range c.snapshot() {
				cb(delta)
			}
		}
	}
}

// snapshot copies callbacks in registration order so a callback cancelling
// itself mid-tick cannot corrupt iteration.
func (c *TickerClock) snapshot() []func(int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(int64), 0, len(c.cbs))
	for id := 0; id < c.nextID; id++ {
		if cb, ok := c.cbs[id]; ok {
			out = append(out, cb)
		}
	}
	return out
}

// ManualClock is the deterministic tick driver for tests. Time moves only
// when Advance is called; callbacks run synchronously on the caller's
// goroutine, in registration order.
type ManualClock struct {
	mu     sync.Mutex
	now    int64
	nextID int
	cbs    map[int]func(int64)
}

// NewManualClock creates a manual clock at t=0.
func NewManualClock() *ManualClock {
	return &ManualClock{cbs: make(map[int]func(int64))}
}

// Now implements Clock.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// OnTick implements Clock.
func (c *ManualClock) OnTick(cb func(deltaMs int64)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.cbs[id] = cb
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.cbs, id)
	}
}

// Advance moves the clock forward and delivers one tick of the given delta
// to every callback. Negative deltas are ignored; a zero delta is
// delivered (the engine treats it as "no time passed").
func (c *ManualClock) Advance(deltaMs int64) {
	if deltaMs < 0 {
		return
	}
	c.mu.Lock()
	c.now += deltaMs
	cbs := make([]func(int64), 0, len(c.cbs))
	for id := 0; id < c.nextID; id++ {
		if cb, ok := c.cbs[id]; ok {
			cbs = append(cbs, cb)
		}
	}
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(deltaMs)
	}
}

// AdvanceBy delivers n ticks of deltaMs each. Convenience for scenario
// scripts ("tick at dt=250 for 1000ms" is AdvanceBy(4, 250)).
func (c *ManualClock) AdvanceBy(n int, deltaMs int64) {
	for i := 0; i < n; i++ {
		c.Advance(deltaMs)
	}
}
