package choreo

import (
	"sort"
	"strings"
)

// signalPrefix marks a param string as a reference into the triggering
// signal's payload snapshot, e.g. "signal.to" or "signal.usage.promptTokens".
const signalPrefix = "signal."

// Param is a sealed interface over the two param variants.
// Only Literal and SignalRef implement it.
type Param interface {
	param() // Sealed.
}

// Literal is a param value used as-is.
type Literal struct {
	Value any
}

func (Literal) param() {}

// SignalRef is a param that resolves a dotted path into the performance's
// payload snapshot at step start.
type SignalRef struct {
	Path []string
}

func (SignalRef) param() {}

// Params is the compiled form of a step's params map.
type Params map[string]Param

// CompileParams converts a raw params map into its compiled form. String
// values starting with "signal." become SignalRefs; everything else is a
// Literal. Compilation cannot fail: an empty path after the prefix is kept
// as a literal rather than rejected, since "signal." alone is just a string.
func CompileParams(raw map[string]any) Params {
	if len(raw) == 0 {
		return nil
	}
	compiled := make(Params, len(raw))
	for key, val := range raw {
		compiled[key] = compileParam(val)
	}
	return compiled
}

func compileParam(val any) Param {
	s, ok := val.(string)
	if !ok || !strings.HasPrefix(s, signalPrefix) {
		return Literal{Value: val}
	}
	rest := strings.TrimPrefix(s, signalPrefix)
	if rest == "" {
		return Literal{Value: val}
	}
	return SignalRef{Path: strings.Split(rest, ".")}
}

// Resolve evaluates the compiled params against a payload snapshot.
// Literals pass through; SignalRefs look up their path. Unresolved refs are
// omitted from the result and returned by name so the caller can report them
// without aborting the step (fail open).
func (p Params) Resolve(payload map[string]any) (map[string]any, []string) {
	if len(p) == 0 {
		return nil, nil
	}
	resolved := make(map[string]any, len(p))
	var missing []string
	for key, param := range p {
		switch v := param.(type) {
		case Literal:
			resolved[key] = v.Value
		case SignalRef:
			val, ok := LookupPath(payload, v.Path)
			if !ok {
				missing = append(missing, key)
				continue
			}
			resolved[key] = val
		}
	}
	// Map iteration order leaks into diagnostics otherwise.
	sort.Strings(missing)
	return resolved, missing
}

// LookupPath walks a dotted path through nested map[string]any values.
// Returns false if any segment is absent or a non-map is traversed.
func LookupPath(payload map[string]any, path []string) (any, bool) {
	var current any = payload
	for _, seg := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
