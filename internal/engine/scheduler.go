package engine

import (
	"fmt"
	"maps"
	"sync"

	"github.com/finchley/marionette/internal/choreo"
)

// PerformanceStatus is the lifecycle state of a live performance.
type PerformanceStatus string

const (
	// StatusRunning means at least one branch is still advancing.
	StatusRunning PerformanceStatus = "running"
	// StatusInterrupted means the performance was cancelled by a newer
	// performance of the same program and is finishing its onInterrupt
	// branches (if any).
	StatusInterrupted PerformanceStatus = "interrupted"
	// StatusDone means every branch finished; the performance is retired
	// and emits no further commands.
	StatusDone PerformanceStatus = "done"
)

// DefaultMaxPerformances caps the live-performance set. A matching signal
// that would exceed the cap is dropped with a QUOTA_EXCEEDED diagnostic;
// this bounds what a runaway orchestrator can cost the render layer.
const DefaultMaxPerformances = 256

// performance is one live instance of a program responding to one signal
// occurrence. Owned exclusively by the Scheduler.
type performance struct {
	id            string
	program       *choreo.Program
	correlationID string

	// payload is the triggering signal's payload snapshot. SignalRef
	// params resolve against it; it is never re-read from the signal.
	payload map[string]any

	status PerformanceStatus

	// branches holds every branch in creation order: the root first,
	// then parallel children as they spawn. Done branches stay until
	// the performance retires so join checks stay O(children).
	branches []*branch

	// interruptConsumed marks that the one allowed onInterrupt divert
	// has happened; a second interruption tears branches down.
	interruptConsumed bool
}

func (p *performance) allBranchesDone() bool {
	for _, b := range p.branches {
		if !b.done {
			return false
		}
	}
	return true
}

// PerformanceInfo is a read-only snapshot of a live performance for
// introspection and logging.
type PerformanceInfo struct {
	ID            string
	ProgramID     string
	CorrelationID string
	Status        PerformanceStatus
	Branches      int
}

// Scheduler owns the set of live performances and drives them forward on
// each clock tick. It is the only component that mutates performance
// state; the step executor logic (executor.go) runs inside its tick.
//
// Thread-safety model:
//   - HandleSignal: safe from any goroutine (queues for next tick)
//   - Tick: serialized by an internal mutex; normally driven by one Clock
//   - Dispose: safe from any goroutine except a sink callback
type Scheduler struct {
	registry *Registry
	sink     CommandSink
	diag     Diagnostics
	idGen    IDGenerator
	maxLive  int

	queue *signalQueue

	mu       sync.Mutex
	live     []*performance // creation order
	disposed bool
	stopTick func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDiagnostics routes runtime errors to d instead of the default
// slog-backed reporter.
func WithDiagnostics(d Diagnostics) Option {
	return func(s *Scheduler) { s.diag = d }
}

// WithIDGenerator replaces the UUIDv7 performance-ID generator. Tests use
// SequentialGenerator or FixedGenerator for reproducible traces.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Scheduler) { s.idGen = g }
}

// WithMaxPerformances sets the live-performance cap.
// Default: DefaultMaxPerformances.
func WithMaxPerformances(n int) Option {
	return func(s *Scheduler) { s.maxLive = n }
}

// NewScheduler creates a scheduler over the given registry and sink.
// A nil sink discards all commands.
func NewScheduler(registry *Registry, sink CommandSink, opts ...Option) *Scheduler {
	if sink == nil {
		sink = NopSink{}
	}
	s := &Scheduler{
		registry: registry,
		sink:     sink,
		diag:     slogDiagnostics{},
		idGen:    UUIDv7Generator{},
		maxLive:  DefaultMaxPerformances,
		queue:    newSignalQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleSignal submits a signal for matching. The signal is queued and
// applied at the start of the next tick, which keeps performance creation
// deterministic relative to branch advancement.
//
// Returns false if the scheduler has been disposed.
func (s *Scheduler) HandleSignal(sig choreo.Signal) bool {
	if !s.queue.Enqueue(sig) {
		s.diag.Report(&RuntimeError{
			Code:    ErrCodeDisposed,
			Message: fmt.Sprintf("signal %q dropped: scheduler disposed", sig.Type),
		})
		return false
	}
	return true
}

// Attach registers Tick on the clock and returns the cancel function.
// The cancel is also invoked by Dispose.
func (s *Scheduler) Attach(clock Clock) (stop func()) {
	cancel := clock.OnTick(s.Tick)
	s.mu.Lock()
	s.stopTick = cancel
	s.mu.Unlock()
	return cancel
}

// Tick advances every live performance by deltaMs. All signal dispatch,
// branch advancement, join resolution and retirement for the tick happen
// synchronously before Tick returns.
func (s *Scheduler) Tick(deltaMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || deltaMs < 0 {
		return
	}

	// Phase 1: queued signals become performances (primed with dt=0:
	// leading instants execute, the first animated step emits start).
	for _, sig := range s.queue.Drain() {
		s.dispatch(sig)
	}

	// Phase 2: advance branches in performance-creation then
	// branch-creation order. Snapshot first: parallel steps entered this
	// tick spawn children that already received their share of the delta
	// inline and must not be advanced twice.
	var snapshot []*branch
	for _, p := range s.live {
		snapshot = append(snapshot, p.branches...)
	}
	for _, b := range snapshot {
		if !b.done {
			s.advanceBranch(b, deltaMs)
		}
	}

	// Phase 3: branches blocked on a parallel whose children all finished
	// this tick advance past the join within the same tick.
	s.resolveJoins()

	// Phase 4: retire performances whose branches all reached done.
	s.retire()
}

// dispatch matches one signal against the registry and creates
// performances, applying the when-filter, interruption policy and quota.
func (s *Scheduler) dispatch(sig choreo.Signal) {
	for _, prog := range s.registry.Lookup(sig.Type) {
		if pred := prog.Predicate(); pred != nil && !pred.Eval(sig.Payload) {
			continue
		}

		// Self-interrupt: a program firing again cancels its own live
		// performances before the replacement starts.
		if prog.Interrupts {
			s.interruptProgram(prog.ID)
		}

		if s.liveActive() >= s.maxLive {
			s.diag.Report(&RuntimeError{
				Code:      ErrCodeQuotaExceeded,
				Message:   fmt.Sprintf("live performance cap %d reached, dropping match for signal %q", s.maxLive, sig.Type),
				ProgramID: prog.ID,
			})
			continue
		}

		perf := &performance{
			id:            s.idGen.Generate(),
			program:       prog,
			correlationID: sig.CorrelationID,
			payload:       maps.Clone(sig.Payload),
			status:        StatusRunning,
		}
		root := newBranch(perf, prog.Steps)
		perf.branches = []*branch{root}
		s.live = append(s.live, perf)
		s.advanceBranch(root, 0)
	}
}

// interruptProgram interrupts every live performance of the given program,
// regardless of correlation ID.
func (s *Scheduler) interruptProgram(programID string) {
	for _, p := range s.live {
		if p.program.ID == programID && !p.allBranchesDone() {
			s.interruptPerformance(p)
		}
	}
}

// interruptPerformance applies the interruption policy: every active branch
// emits exactly one interrupt command; a branch whose current step has an
// adjacent onInterrupt sibling
// diverts into those children (once per performance), every other branch
// tears down immediately. onArrive children are never entered this way.
func (s *Scheduler) interruptPerformance(p *performance) {
	divertAllowed := !p.interruptConsumed
	p.interruptConsumed = true
	p.status = StatusInterrupted

	active := make([]*branch, 0, len(p.branches))
	for _, b := range p.branches {
		if !b.done {
			active = append(active, b)
		}
	}
	for _, b := range active {
		s.sink.OnInterrupt(InterruptCommand{
			PerformanceID: p.id,
			EntityRef:     b.currentEntity(),
		})
		b.anim = nil
		b.waitingJoin = false
		b.joinChildren = nil

		if divertAllowed {
			if children, ok := b.interruptContinuation(); ok {
				b.divert(children)
				s.advanceBranch(b, 0)
				continue
			}
		}
		b.done = true
	}
}

// resolveJoins repeatedly advances branches whose parallel children all
// finished, until the tick reaches a fixed point.
func (s *Scheduler) resolveJoins() {
	for {
		progressed := false
		for _, p := range s.live {
			// Index loop: advancing past a join can spawn new branches.
			for i := 0; i < len(p.branches); i++ {
				b := p.branches[i]
				if b.done || !b.waitingJoin || !branchesDone(b.joinChildren) {
					continue
				}
				s.advanceBranch(b, 0)
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// retire removes performances whose branches all reached done.
func (s *Scheduler) retire() {
	kept := s.live[:0]
	for _, p := range s.live {
		if p.allBranchesDone() {
			p.status = StatusDone
			continue
		}
		kept = append(kept, p)
	}
	// Nil out the tail so retired performances can be collected.
	for i := len(kept); i < len(s.live); i++ {
		s.live[i] = nil
	}
	s.live = kept
}

// liveActive counts performances that still have work.
func (s *Scheduler) liveActive() int {
	n := 0
	for _, p := range s.live {
		if !p.allBranchesDone() {
			n++
		}
	}
	return n
}

// LiveCount returns the number of live performances. Zero between
// choreographies.
func (s *Scheduler) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// PendingSignals returns the number of signals queued for the next tick.
func (s *Scheduler) PendingSignals() int {
	return s.queue.Len()
}

// LivePerformances returns read-only snapshots of the live set, in
// creation order.
func (s *Scheduler) LivePerformances() []PerformanceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PerformanceInfo, 0, len(s.live))
	for _, p := range s.live {
		out = append(out, PerformanceInfo{
			ID:            p.id,
			ProgramID:     p.program.ID,
			CorrelationID: p.correlationID,
			Status:        p.status,
			Branches:      len(p.branches),
		})
	}
	return out
}

// Dispose force-interrupts every live performance and stops ticking. Each
// active branch emits exactly one interrupt command; onInterrupt branches
// are not entered because no further ticks will run. Used for full engine
// teardown, e.g. a theme switch. Idempotent.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.queue.Close()

	for _, p := range s.live {
		for _, b := range p.branches {
			if b.done {
				continue
			}
			s.sink.OnInterrupt(InterruptCommand{
				PerformanceID: p.id,
				EntityRef:     b.currentEntity(),
			})
			b.anim = nil
			b.done = true
		}
		p.status = StatusDone
	}
	s.live = nil

	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
}
