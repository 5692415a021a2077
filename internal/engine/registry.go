package engine

import (
	"fmt"
	"sync"

	"github.com/finchley/marionette/internal/choreo"
	"github.com/finchley/marionette/internal/easing"
)

// Registry stores registered choreography programs indexed by the signal
// type they trigger on. Pure data plus lookup; the scheduler queries it on
// every signal.
//
// Registration is atomic: a program that fails validation is not stored,
// in whole or in part. After registration programs are read-only; the
// scheduler never mutates them.
//
// Thread-safety: guarded by an RWMutex. During normal operation the
// registry is read-only (lookups from the tick loop); registration and
// hot-reload happen between scenes.
type Registry struct {
	mu       sync.RWMutex
	programs []*choreo.Program            // registration order, for deterministic tie-break
	byType   map[string][]*choreo.Program // On -> programs, registration order preserved
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]*choreo.Program)}
}

// Register validates and stores a program. The program is compiled in
// place (when-predicate, param placeholders) and must not be mutated by
// the caller afterwards.
//
// Registering the same program ID twice is allowed: both instances match
// and fire in registration order. This mirrors how authoring tools layer
// theme variants.
func (r *Registry) Register(p *choreo.Program) error {
	if errs := p.Compile(); len(errs) > 0 {
		return errs
	}
	if errs := validateEasings(p.Steps); len(errs) > 0 {
		return errs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs = append(r.programs, p)
	r.byType[p.On] = append(r.byType[p.On], p)
	return nil
}

// Lookup returns every program triggered by the given signal type, in
// registration order. The returned slice is a copy; callers may not see
// concurrent registrations.
func (r *Registry) Lookup(signalType string) []*choreo.Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := r.byType[signalType]
	if len(matches) == 0 {
		return nil
	}
	out := make([]*choreo.Program, len(matches))
	copy(out, matches)
	return out
}

// Programs returns all registered programs in registration order.
func (r *Registry) Programs() []*choreo.Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*choreo.Program, len(r.programs))
	copy(out, r.programs)
	return out
}

// Len returns the number of registered programs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.programs)
}

// UnregisterAll clears the registry. Used on theme or scene teardown
// before loading a new program set.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs = nil
	r.byType = make(map[string][]*choreo.Program)
}

// validateEasings walks the step tree rejecting unknown easing names.
// This lives here rather than in choreo because the easing vocabulary
// belongs to the engine, not the data model.
func validateEasings(steps []choreo.Step) choreo.ValidationErrors {
	var errs choreo.ValidationErrors
	for i := range steps {
		step := &steps[i]
		if _, ok := easing.Lookup(step.Easing); !ok {
			errs = append(errs, choreo.ValidationError{
				Code:    choreo.ErrUnknownEasing,
				StepID:  step.ID,
				Field:   "easing",
				Message: fmt.Sprintf("unknown easing %q (known: %v)", step.Easing, easing.Names()),
			})
		}
		errs = append(errs, validateEasings(step.Children)...)
	}
	return errs
}
