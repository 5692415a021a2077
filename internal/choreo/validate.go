package choreo

import (
	"fmt"
	"strings"
)

// Validation error codes (V100-V199)
const (
	ErrProgramIDEmpty        = "V100" // program id is required
	ErrProgramOnEmpty        = "V101" // trigger signal type is required
	ErrProgramNoSteps        = "V102" // at least one step required
	ErrStepIDEmpty           = "V103" // step id is required
	ErrDuplicateStepID       = "V104" // step ids must be unique within a program
	ErrUnknownAction         = "V105" // action not in the vocabulary
	ErrLeafWithChildren      = "V106" // non-structural step carries children
	ErrNegativeDuration      = "V107" // duration/delay must be >= 0
	ErrOrphanContinuation    = "V108" // onArrive/onInterrupt has no preceding leaf step
	ErrDuplicateContinuation = "V109" // two continuations of the same kind on one step
	ErrNestedContinuation    = "V110" // onArrive/onInterrupt nested inside a continuation
	ErrBadPredicate          = "V111" // when-expression failed to parse
	ErrUnknownEasing         = "V112" // easing name outside the engine vocabulary
)

// ValidationError rejects a program at registration time. It names the
// offending step so authoring tools can point at it.
type ValidationError struct {
	Code    string `json:"code"`
	StepID  string `json:"step_id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %q: %s: %s", e.Code, e.StepID, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors aggregates every problem found in one program.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Compile validates the program and compiles its when-predicate and param
// placeholders in place. It returns every error found rather than failing
// fast. A program that fails Compile must not be registered (atomic
// rejection, no partial registration).
func (p *Program) Compile() ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, ValidationError{
			Code: ErrProgramIDEmpty, Field: "id",
			Message: "program id is required",
		})
	}
	if strings.TrimSpace(p.On) == "" {
		errs = append(errs, ValidationError{
			Code: ErrProgramOnEmpty, Field: "on",
			Message: "trigger signal type is required",
		})
	}
	if len(p.Steps) == 0 {
		errs = append(errs, ValidationError{
			Code: ErrProgramNoSteps, Field: "steps",
			Message: "program must contain at least one step",
		})
	}

	pred, err := ParsePredicate(p.When)
	if err != nil {
		errs = append(errs, ValidationError{
			Code: ErrBadPredicate, Field: "when",
			Message: err.Error(),
		})
	}

	seen := make(map[string]bool)
	compiled := make(map[string]Params)
	errs = append(errs, validateSiblings(p.Steps, false, seen, compiled)...)

	if len(errs) > 0 {
		return errs
	}
	p.predicate = pred
	p.compiledParams = compiled
	return nil
}

// validateSiblings walks one sibling list. inContinuation is true inside an
// onArrive/onInterrupt subtree, where further continuations are rejected to
// keep interruption handling non-re-entrant.
func validateSiblings(steps []Step, inContinuation bool, seen map[string]bool, compiled map[string]Params) ValidationErrors {
	var errs ValidationErrors

	// A continuation attaches to the leaf step immediately before it.
	prevLeaf := false
	// Continuation kinds already attached to the current leaf.
	attached := make(map[Action]bool)

	for i := range steps {
		step := &steps[i]
		errs = append(errs, validateStep(step, seen, compiled)...)

		switch step.Action {
		case ActionOnArrive, ActionOnInterrupt:
			if inContinuation {
				errs = append(errs, ValidationError{
					Code: ErrNestedContinuation, StepID: step.ID, Field: "action",
					Message: fmt.Sprintf("%s may not nest inside another continuation", step.Action),
				})
			}
			if !prevLeaf {
				errs = append(errs, ValidationError{
					Code: ErrOrphanContinuation, StepID: step.ID, Field: "action",
					Message: fmt.Sprintf("%s must directly follow a non-structural step", step.Action),
				})
			}
			if attached[step.Action] {
				errs = append(errs, ValidationError{
					Code: ErrDuplicateContinuation, StepID: step.ID, Field: "action",
					Message: fmt.Sprintf("step already has an %s continuation", step.Action),
				})
			}
			attached[step.Action] = true
			errs = append(errs, validateSiblings(step.Children, true, seen, compiled)...)
		case ActionParallel:
			prevLeaf = false
			attached = make(map[Action]bool)
			errs = append(errs, validateSiblings(step.Children, inContinuation, seen, compiled)...)
		default:
			prevLeaf = true
			attached = make(map[Action]bool)
		}
	}
	return errs
}

func validateStep(step *Step, seen map[string]bool, compiled map[string]Params) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(step.ID) == "" {
		errs = append(errs, ValidationError{
			Code: ErrStepIDEmpty, Field: "id",
			Message: "step id is required",
		})
	} else if seen[step.ID] {
		errs = append(errs, ValidationError{
			Code: ErrDuplicateStepID, StepID: step.ID, Field: "id",
			Message: "step id already used in this program",
		})
	} else {
		seen[step.ID] = true
	}

	if !step.Action.IsKnown() {
		errs = append(errs, ValidationError{
			Code: ErrUnknownAction, StepID: step.ID, Field: "action",
			Message: fmt.Sprintf("unknown action %q", step.Action),
		})
		return errs
	}

	if !step.Action.IsStructural() && len(step.Children) > 0 {
		errs = append(errs, ValidationError{
			Code: ErrLeafWithChildren, StepID: step.ID, Field: "children",
			Message: fmt.Sprintf("action %q may not have children", step.Action),
		})
	}
	if step.Duration < 0 {
		errs = append(errs, ValidationError{
			Code: ErrNegativeDuration, StepID: step.ID, Field: "duration",
			Message: "duration must be >= 0",
		})
	}
	if step.Delay < 0 {
		errs = append(errs, ValidationError{
			Code: ErrNegativeDuration, StepID: step.ID, Field: "delay",
			Message: "delay must be >= 0",
		})
	}

	compiled[step.ID] = CompileParams(step.Params)
	return errs
}
