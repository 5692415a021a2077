package engine

import (
	"sync"

	"github.com/finchley/marionette/internal/choreo"
)

// StartCommand opens the lifecycle of an animated step.
type StartCommand struct {
	Action        choreo.Action  `json:"action"`
	EntityRef     string         `json:"entityRef"`
	Params        map[string]any `json:"params,omitempty"`
	PerformanceID string         `json:"performanceId"`
	StepID        string         `json:"stepId"`
}

// UpdateCommand carries eased progress for a running animated step.
// Progress is in [0,1], non-decreasing per step, and reaches exactly 1.0
// before the matching CompleteCommand.
type UpdateCommand struct {
	Action        choreo.Action `json:"action"`
	EntityRef     string        `json:"entityRef"`
	Progress      float64       `json:"progress"`
	PerformanceID string        `json:"performanceId"`
	StepID        string        `json:"stepId"`
}

// CompleteCommand closes the lifecycle of an animated step.
type CompleteCommand struct {
	Action        choreo.Action `json:"action"`
	EntityRef     string        `json:"entityRef"`
	PerformanceID string        `json:"performanceId"`
	StepID        string        `json:"stepId"`
}

// ExecuteCommand is the single command emitted for instant actions.
type ExecuteCommand struct {
	Action        choreo.Action  `json:"action"`
	EntityRef     string         `json:"entityRef"`
	Params        map[string]any `json:"params,omitempty"`
	PerformanceID string         `json:"performanceId"`
	StepID        string         `json:"stepId"`
}

// InterruptCommand is the single terminal command emitted for each active
// branch when a performance is interrupted or the scheduler is disposed.
type InterruptCommand struct {
	PerformanceID string `json:"performanceId"`
	EntityRef     string `json:"entityRef,omitempty"`
}

// CommandSink is the render-layer collaborator receiving the engine's
// output protocol. The engine only calls it and never inspects results;
// a sink is free to no-op any entityRef it does not know.
//
// Sinks are invoked synchronously from inside the tick loop, so
// implementations must be fast and must not call back into the scheduler
// except through HandleSignal (which queues for the next tick).
type CommandSink interface {
	OnActionStart(cmd StartCommand)
	OnActionUpdate(cmd UpdateCommand)
	OnActionComplete(cmd CompleteCommand)
	OnActionExecute(cmd ExecuteCommand)
	OnInterrupt(cmd InterruptCommand)
}

// NopSink discards every command. Useful as a default and in benchmarks.
type NopSink struct{}

func (NopSink) OnActionStart(StartCommand)       {}
func (NopSink) OnActionUpdate(UpdateCommand)     {}
func (NopSink) OnActionComplete(CompleteCommand) {}
func (NopSink) OnActionExecute(ExecuteCommand)   {}
func (NopSink) OnInterrupt(InterruptCommand)     {}

// MultiSink fans every command out to each sink in order. Lets a render
// sink and a trace store observe the same performance.
type MultiSink []CommandSink

func (m MultiSink) OnActionStart(cmd StartCommand) {
	for _, s := range m {
		s.OnActionStart(cmd)
	}
}

func (m MultiSink) OnActionUpdate(cmd UpdateCommand) {
	for _, s := range m {
		s.OnActionUpdate(cmd)
	}
}

func (m MultiSink) OnActionComplete(cmd CompleteCommand) {
	for _, s := range m {
		s.OnActionComplete(cmd)
	}
}

func (m MultiSink) OnActionExecute(cmd ExecuteCommand) {
	for _, s := range m {
		s.OnActionExecute(cmd)
	}
}

func (m MultiSink) OnInterrupt(cmd InterruptCommand) {
	for _, s := range m {
		s.OnInterrupt(cmd)
	}
}

// CommandKind tags a recorded command.
type CommandKind string

const (
	KindStart     CommandKind = "start"
	KindUpdate    CommandKind = "update"
	KindComplete  CommandKind = "complete"
	KindExecute   CommandKind = "execute"
	KindInterrupt CommandKind = "interrupt"
)

// Recorded is one command captured by a Recorder, flattened for assertions
// and canonical serialization.
type Recorded struct {
	Kind          CommandKind
	Action        choreo.Action
	EntityRef     string
	Params        map[string]any
	Progress      float64
	PerformanceID string
	StepID        string
}

// ToMap flattens the command for canonical JSON. Zero-valued fields are
// omitted so golden traces stay compact.
func (r Recorded) ToMap() map[string]any {
	m := map[string]any{"kind": string(r.Kind)}
	if r.Action != "" {
		m["action"] = string(r.Action)
	}
	if r.EntityRef != "" {
		m["entity"] = r.EntityRef
	}
	if len(r.Params) > 0 {
		m["params"] = r.Params
	}
	if r.Kind == KindUpdate {
		m["progress"] = r.Progress
	}
	if r.PerformanceID != "" {
		m["performance_id"] = r.PerformanceID
	}
	if r.StepID != "" {
		m["step_id"] = r.StepID
	}
	return m
}

// Recorder is a CommandSink that captures every command in emission order.
// Tests and the scenario harness read Commands back to assert ordering.
//
// Thread-safety: guarded by a mutex so a ticker-driven scheduler can emit
// while a test inspects.
type Recorder struct {
	mu       sync.Mutex
	commands []Recorded
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.commands))
	copy(out, r.commands)
	return out
}

// Reset discards recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

func (r *Recorder) append(cmd Recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

func (r *Recorder) OnActionStart(cmd StartCommand) {
	r.append(Recorded{Kind: KindStart, Action: cmd.Action, EntityRef: cmd.EntityRef, Params: cmd.Params, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (r *Recorder) OnActionUpdate(cmd UpdateCommand) {
	r.append(Recorded{Kind: KindUpdate, Action: cmd.Action, EntityRef: cmd.EntityRef, Progress: cmd.Progress, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (r *Recorder) OnActionComplete(cmd CompleteCommand) {
	r.append(Recorded{Kind: KindComplete, Action: cmd.Action, EntityRef: cmd.EntityRef, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (r *Recorder) OnActionExecute(cmd ExecuteCommand) {
	r.append(Recorded{Kind: KindExecute, Action: cmd.Action, EntityRef: cmd.EntityRef, Params: cmd.Params, PerformanceID: cmd.PerformanceID, StepID: cmd.StepID})
}

func (r *Recorder) OnInterrupt(cmd InterruptCommand) {
	r.append(Recorded{Kind: KindInterrupt, EntityRef: cmd.EntityRef, PerformanceID: cmd.PerformanceID})
}
