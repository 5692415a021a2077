package harness

import (
	"fmt"

	"github.com/finchley/marionette/internal/engine"
)

// checkAssertion returns an empty string on success, else a failure
// message.
func checkAssertion(a *Assertion, commands []engine.Recorded) string {
	switch a.Type {
	case AssertTraceContains:
		m := a.matcher()
		for i := range commands {
			if m.matches(&commands[i]) {
				return ""
			}
		}
		return fmt.Sprintf("trace does not contain %s", m)

	case AssertTraceCount:
		m := a.matcher()
		n := 0
		for i := range commands {
			if m.matches(&commands[i]) {
				n++
			}
		}
		if n != a.Count {
			return fmt.Sprintf("expected %d commands matching %s, found %d", a.Count, m, n)
		}
		return ""

	case AssertTraceOrder:
		pos := 0
		for i := range commands {
			if pos < len(a.Sequence) && a.Sequence[pos].matches(&commands[i]) {
				pos++
			}
		}
		if pos < len(a.Sequence) {
			return fmt.Sprintf("trace order broken: %s never matched after its predecessors", a.Sequence[pos])
		}
		return ""
	}
	return fmt.Sprintf("unknown assertion type %q", a.Type)
}

func (a *Assertion) matcher() Matcher {
	return Matcher{Kind: a.Kind, Action: a.Action, Entity: a.Entity, StepID: a.StepID}
}

func (m Matcher) matches(cmd *engine.Recorded) bool {
	if m.Kind != "" && string(cmd.Kind) != m.Kind {
		return false
	}
	if m.Action != "" && string(cmd.Action) != m.Action {
		return false
	}
	if m.Entity != "" && cmd.EntityRef != m.Entity {
		return false
	}
	if m.StepID != "" && cmd.StepID != m.StepID {
		return false
	}
	return true
}

// String renders the matcher for failure messages.
func (m Matcher) String() string {
	s := "{"
	sep := ""
	for _, part := range []struct{ k, v string }{
		{"kind", m.Kind}, {"action", m.Action}, {"entity", m.Entity}, {"step_id", m.StepID},
	} {
		if part.v != "" {
			s += sep + part.k + "=" + part.v
			sep = ", "
		}
	}
	return s + "}"
}
