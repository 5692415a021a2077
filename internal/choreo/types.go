package choreo

// Action names the closed vocabulary of step actions.
type Action string

// The full action vocabulary. Validation rejects anything else.
const (
	// Animated actions: start/update/complete lifecycle over a duration.
	ActionMove     Action = "move"
	ActionFly      Action = "fly"
	ActionFlash    Action = "flash"
	ActionPulse    Action = "pulse"
	ActionDrawBeam Action = "drawBeam"
	ActionTypeText Action = "typeText"

	// Instant actions: single execute command, cursor advances same tick.
	ActionSpawn     Action = "spawn"
	ActionDestroy   Action = "destroy"
	ActionPlaySound Action = "playSound"

	// Wait consumes its duration without emitting any command.
	ActionWait Action = "wait"

	// Structural actions: carry children, never emit commands themselves.
	ActionParallel    Action = "parallel"
	ActionOnArrive    Action = "onArrive"
	ActionOnInterrupt Action = "onInterrupt"
)

// IsAnimated reports whether the action has a start/update/complete lifecycle.
func (a Action) IsAnimated() bool {
	switch a {
	case ActionMove, ActionFly, ActionFlash, ActionPulse, ActionDrawBeam, ActionTypeText:
		return true
	}
	return false
}

// IsInstant reports whether the action emits a single execute command.
func (a Action) IsInstant() bool {
	switch a {
	case ActionSpawn, ActionDestroy, ActionPlaySound:
		return true
	}
	return false
}

// IsStructural reports whether the action is a container for child steps.
func (a Action) IsStructural() bool {
	switch a {
	case ActionParallel, ActionOnArrive, ActionOnInterrupt:
		return true
	}
	return false
}

// IsKnown reports whether the action belongs to the vocabulary at all.
func (a Action) IsKnown() bool {
	return a.IsAnimated() || a.IsInstant() || a.IsStructural() || a == ActionWait
}

// Step is one node of a program's action tree. Steps are immutable once the
// owning program is registered.
//
// Invariant: non-structural actions never have Children; structural actions
// always have a Children slice (possibly empty). Validate enforces this.
type Step struct {
	ID     string `json:"id"`
	Action Action `json:"action"`

	// Entity and Target are semantic names resolved by the render layer,
	// never by the engine.
	Entity string `json:"entity,omitempty"`
	Target string `json:"target,omitempty"`

	// Duration and Delay are milliseconds. Delay is the gap before the step
	// starts, relative to its predecessor.
	Duration int64  `json:"duration,omitempty"`
	Easing   string `json:"easing,omitempty"`
	Delay    int64  `json:"delay,omitempty"`

	// Params is the action-specific payload ("to", "color", "text", ...).
	// String values of the form "signal.<path>" are compiled into payload
	// references; see CompileParams.
	Params map[string]any `json:"params,omitempty"`

	// Children is set only on structural actions.
	Children []Step `json:"children,omitempty"`
}

// EntityRef returns the name the render layer should resolve for this step:
// Entity if set, else Target.
func (s *Step) EntityRef() string {
	if s.Entity != "" {
		return s.Entity
	}
	return s.Target
}

// Program is a registered declarative choreography definition. Immutable
// after registration; created by authoring tools and loaded via the compiler.
type Program struct {
	ID string `json:"id"`

	// On is the signal type this program triggers on.
	On string `json:"on"`

	// When is an optional boolean filter over the signal payload, e.g.
	// `status == 'error' && retries > 2`. Empty means always match.
	When string `json:"when,omitempty"`

	// Interrupts makes a new performance of this program cancel any live
	// performance of the same program before starting.
	Interrupts bool `json:"interrupts"`

	Steps []Step `json:"steps"`

	// predicate is the compiled form of When, populated by Validate.
	predicate Predicate

	// compiledParams maps step IDs to their compiled params, populated by
	// Validate so runtime resolution never re-parses placeholder strings.
	compiledParams map[string]Params
}

// Predicate returns the compiled when-filter, or nil if the program has none.
// Only meaningful after Validate has succeeded.
func (p *Program) Predicate() Predicate {
	return p.predicate
}

// ParamsFor returns the compiled params for a step ID.
// Only meaningful after Validate has succeeded.
func (p *Program) ParamsFor(stepID string) Params {
	return p.compiledParams[stepID]
}

// Signal is the envelope consumed from the orchestrator. The engine reads
// Type, Payload and CorrelationID; the remaining fields pass through
// untouched for collaborators to log.
type Signal struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Payload       map[string]any `json:"payload"`
	Timestamp     int64          `json:"timestamp"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Source        string         `json:"source,omitempty"`
}
