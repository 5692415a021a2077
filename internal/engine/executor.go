package engine

import (
	"fmt"
	"strings"

	"github.com/finchley/marionette/internal/choreo"
	"github.com/finchley/marionette/internal/easing"
)

// frame is one level of a branch's cursor: a sibling slice plus an index.
// onArrive continuations push a frame; exhausting a frame pops back to the
// parent's next sibling.
type frame struct {
	steps []choreo.Step
	idx   int
}

// activeAnimation is the transient state of one animated (or wait) step.
// Params are resolved exactly once at step start and never re-resolved
// mid-flight.
type activeAnimation struct {
	action   choreo.Action
	stepID   string
	entity   string
	params   map[string]any
	elapsed  int64
	duration int64
	fn       easing.Fn

	// lastProgress guards monotonicity against easing functions that are
	// not perfectly monotone in floating point.
	lastProgress float64
}

// branch is a cursor walking one linear sequence of sibling steps within a
// performance, carrying the elapsed state of its current step.
type branch struct {
	perf   *performance
	frames []frame

	// delayCharged records that the current step's delay was loaded into
	// delayLeft. Reset whenever the cursor moves.
	delayCharged bool
	delayLeft    int64

	anim *activeAnimation

	// waitingJoin is set while blocked on a parallel step; joinChildren
	// are the spawned sub-branches.
	waitingJoin  bool
	joinChildren []*branch

	done bool
}

func newBranch(perf *performance, steps []choreo.Step) *branch {
	return &branch{perf: perf, frames: []frame{{steps: steps}}}
}

func (b *branch) top() *frame {
	if len(b.frames) == 0 {
		return nil
	}
	return &b.frames[len(b.frames)-1]
}

func (b *branch) push(steps []choreo.Step) {
	b.frames = append(b.frames, frame{steps: steps})
	b.delayCharged = false
}

func (b *branch) pop() {
	b.frames = b.frames[:len(b.frames)-1]
	b.delayCharged = false
}

// currentStep returns the step under the cursor, or nil at a frame edge.
func (b *branch) currentStep() *choreo.Step {
	f := b.top()
	if f == nil || f.idx >= len(f.steps) {
		return nil
	}
	return &f.steps[f.idx]
}

// currentEntity names the entity of the currently-executing step for
// interrupt commands. Empty when the branch sits between steps.
func (b *branch) currentEntity() string {
	if step := b.currentStep(); step != nil {
		return step.EntityRef()
	}
	return ""
}

// interruptContinuation scans the current step's following siblings for an
// adjacent onInterrupt node and returns its children. Only continuation
// nodes may sit between the step and its onInterrupt.
func (b *branch) interruptContinuation() ([]choreo.Step, bool) {
	f := b.top()
	if f == nil || f.idx >= len(f.steps) {
		return nil, false
	}
	for j := f.idx + 1; j < len(f.steps); j++ {
		switch f.steps[j].Action {
		case choreo.ActionOnInterrupt:
			return f.steps[j].Children, true
		case choreo.ActionOnArrive:
			continue
		default:
			return nil, false
		}
	}
	return nil, false
}

// divert replaces the branch's entire cursor with the onInterrupt
// children. The branch never returns to its normal flow afterwards.
func (b *branch) divert(steps []choreo.Step) {
	b.frames = []frame{{steps: steps}}
	b.delayCharged = false
	b.anim = nil
}

// completeStep moves the cursor past the step at f.idx after natural
// completion, entering an adjacent onArrive continuation as a sub-frame
// when one exists. Interruption never reaches this path.
func (b *branch) completeStep() {
	f := b.top()
	cur := f.idx
	f.idx++
	b.delayCharged = false

	for j := cur + 1; j < len(f.steps); j++ {
		switch f.steps[j].Action {
		case choreo.ActionOnArrive:
			b.push(f.steps[j].Children)
			return
		case choreo.ActionOnInterrupt:
			continue
		default:
			return
		}
	}
}

// advanceBranch drives one branch as far as deltaMs permits. A step
// finishing mid-tick hands its leftover delta to the next step, so a
// sequence of short steps plays out within a single tick. A zero delta
// primes the branch: leading instants execute and the first animated step
// emits its start command.
//
// This is the step-executor half of the engine; it owns the per-step
// lifecycle and delegates structural nodes back to the scheduler's branch
// set (parallel spawns, join waits).
func (s *Scheduler) advanceBranch(b *branch, deltaMs int64) {
	remaining := deltaMs

	for {
		f := b.top()
		if f == nil {
			b.done = true
			return
		}
		if f.idx >= len(f.steps) {
			if len(b.frames) == 1 {
				b.done = true
				return
			}
			b.pop()
			continue
		}

		step := &f.steps[f.idx]

		// Continuations are only reachable via completion or
		// interruption; linear iteration skips them.
		if step.Action == choreo.ActionOnArrive || step.Action == choreo.ActionOnInterrupt {
			f.idx++
			continue
		}

		// Charge the step's delay before anything else happens for it.
		if !b.delayCharged {
			b.delayCharged = true
			b.delayLeft = step.Delay
		}
		if b.delayLeft > 0 {
			if remaining < b.delayLeft {
				b.delayLeft -= remaining
				return
			}
			remaining -= b.delayLeft
			b.delayLeft = 0
		}

		switch {
		case step.Action == choreo.ActionParallel:
			if !b.waitingJoin {
				b.spawnParallel(s, step, remaining)
				return
			}
			if !branchesDone(b.joinChildren) {
				return
			}
			b.waitingJoin = false
			b.joinChildren = nil
			f.idx++
			b.delayCharged = false
			// The join consumed the tick; the next step starts fresh.
			remaining = 0
			continue

		case step.Action == choreo.ActionWait:
			if b.anim == nil {
				b.anim = &activeAnimation{action: step.Action, stepID: step.ID, duration: step.Duration}
			}
			b.anim.elapsed += remaining
			if b.anim.elapsed < b.anim.duration {
				return
			}
			remaining = b.anim.elapsed - b.anim.duration
			b.anim = nil
			b.completeStep()
			continue

		case step.Action.IsInstant():
			s.sink.OnActionExecute(ExecuteCommand{
				Action:        step.Action,
				EntityRef:     step.EntityRef(),
				Params:        s.resolveParams(b.perf, step),
				PerformanceID: b.perf.id,
				StepID:        step.ID,
			})
			b.completeStep()
			continue

		case step.Action.IsAnimated():
			if b.anim == nil {
				params := s.resolveParams(b.perf, step)
				fn, ok := easing.Lookup(step.Easing)
				if !ok {
					// Unreachable past registration; degrade to linear.
					fn = easing.Linear
				}
				b.anim = &activeAnimation{
					action:   step.Action,
					stepID:   step.ID,
					entity:   step.EntityRef(),
					params:   params,
					duration: step.Duration,
					fn:       fn,
				}
				s.sink.OnActionStart(StartCommand{
					Action:        step.Action,
					EntityRef:     b.anim.entity,
					Params:        params,
					PerformanceID: b.perf.id,
					StepID:        step.ID,
				})
			}
			if remaining == 0 {
				return
			}
			b.anim.elapsed += remaining
			if b.anim.elapsed >= b.anim.duration {
				// Zero-duration steps land here on their first advancing
				// tick: start, update(1.0), complete, no division.
				s.sink.OnActionUpdate(UpdateCommand{
					Action:        b.anim.action,
					EntityRef:     b.anim.entity,
					Progress:      1.0,
					PerformanceID: b.perf.id,
					StepID:        b.anim.stepID,
				})
				s.sink.OnActionComplete(CompleteCommand{
					Action:        b.anim.action,
					EntityRef:     b.anim.entity,
					PerformanceID: b.perf.id,
					StepID:        b.anim.stepID,
				})
				remaining = b.anim.elapsed - b.anim.duration
				b.anim = nil
				b.completeStep()
				continue
			}
			t := easing.Clamp(float64(b.anim.elapsed) / float64(b.anim.duration))
			progress := easing.Clamp(b.anim.fn(t))
			if progress < b.anim.lastProgress {
				progress = b.anim.lastProgress
			}
			b.anim.lastProgress = progress
			s.sink.OnActionUpdate(UpdateCommand{
				Action:        b.anim.action,
				EntityRef:     b.anim.entity,
				Progress:      progress,
				PerformanceID: b.perf.id,
				StepID:        b.anim.stepID,
			})
			return

		default:
			// Validation rejects unknown actions; defensive skip only.
			s.diag.Report(&RuntimeError{
				Code:          ErrCodeUnknownAction,
				Message:       fmt.Sprintf("unknown action %q reached the executor", step.Action),
				ProgramID:     b.perf.program.ID,
				PerformanceID: b.perf.id,
				StepID:        step.ID,
			})
			f.idx++
			b.delayCharged = false
			continue
		}
	}
}

// spawnParallel creates one child branch per child run and gives each the
// tick's remaining delta. A "run" is a child step plus any continuation
// nodes directly following it, so onArrive/onInterrupt authored inside a
// parallel stay attached to their step.
func (b *branch) spawnParallel(s *Scheduler, step *choreo.Step, remaining int64) {
	b.waitingJoin = true
	b.joinChildren = nil

	runs := splitChildRuns(step.Children)
	for _, run := range runs {
		child := newBranch(b.perf, run)
		b.joinChildren = append(b.joinChildren, child)
		b.perf.branches = append(b.perf.branches, child)
		s.advanceBranch(child, remaining)
	}
}

// splitChildRuns partitions a parallel's children into per-branch sibling
// slices: each run starts at a non-continuation step and extends over the
// continuation nodes that follow it.
func splitChildRuns(children []choreo.Step) [][]choreo.Step {
	var runs [][]choreo.Step
	start := -1
	for i := range children {
		a := children[i].Action
		if a == choreo.ActionOnArrive || a == choreo.ActionOnInterrupt {
			continue
		}
		if start >= 0 {
			runs = append(runs, children[start:i])
		}
		start = i
	}
	if start >= 0 {
		runs = append(runs, children[start:])
	}
	return runs
}

func branchesDone(branches []*branch) bool {
	for _, b := range branches {
		if !b.done {
			return false
		}
	}
	return true
}

// resolveParams resolves a step's compiled params against the
// performance's payload snapshot. Unresolved references degrade the step
// (the param is omitted) and report through the diagnostics side channel;
// the tick loop never sees an error.
func (s *Scheduler) resolveParams(p *performance, step *choreo.Step) map[string]any {
	compiled := p.program.ParamsFor(step.ID)
	resolved, missing := compiled.Resolve(p.payload)
	if len(missing) > 0 {
		s.diag.Report(&RuntimeError{
			Code:          ErrCodeUnresolvedReference,
			Message:       fmt.Sprintf("params [%s] reference payload fields that do not exist", strings.Join(missing, ", ")),
			ProgramID:     p.program.ID,
			PerformanceID: p.id,
			StepID:        step.ID,
			Details:       map[string]string{"params": strings.Join(missing, ",")},
		})
	}
	return resolved
}
