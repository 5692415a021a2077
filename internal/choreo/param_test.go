package choreo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompileParams_SignalRefs tests placeholder detection at compile time.
func TestCompileParams_SignalRefs(t *testing.T) {
	compiled := CompileParams(map[string]any{
		"to":    "signal.to",
		"deep":  "signal.usage.promptTokens",
		"color": "#ff0000",
		"count": float64(3),
		"note":  "signal.", // Prefix with no path stays literal.
	})

	assert.Equal(t, SignalRef{Path: []string{"to"}}, compiled["to"])
	assert.Equal(t, SignalRef{Path: []string{"usage", "promptTokens"}}, compiled["deep"])
	assert.Equal(t, Literal{Value: "#ff0000"}, compiled["color"])
	assert.Equal(t, Literal{Value: float64(3)}, compiled["count"])
	assert.Equal(t, Literal{Value: "signal."}, compiled["note"])
}

// TestCompileParams_Empty tests that empty input compiles to nil.
func TestCompileParams_Empty(t *testing.T) {
	assert.Nil(t, CompileParams(nil))
	assert.Nil(t, CompileParams(map[string]any{}))
}

// TestParams_Resolve tests snapshot resolution with literals passing through.
func TestParams_Resolve(t *testing.T) {
	compiled := CompileParams(map[string]any{
		"to":    "signal.agentId",
		"text":  "signal.message.body",
		"color": "#00ff00",
	})
	payload := map[string]any{
		"agentId": "agent-7",
		"message": map[string]any{"body": "hello"},
	}

	resolved, missing := compiled.Resolve(payload)
	require.Empty(t, missing)
	assert.Equal(t, map[string]any{
		"to":    "agent-7",
		"text":  "hello",
		"color": "#00ff00",
	}, resolved)
}

// TestParams_Resolve_Missing tests that unresolved refs are omitted and
// reported by param name, sorted.
func TestParams_Resolve_Missing(t *testing.T) {
	compiled := CompileParams(map[string]any{
		"to":   "signal.missing",
		"from": "signal.also.missing",
		"kept": "literal",
	})

	resolved, missing := compiled.Resolve(map[string]any{"other": 1})
	assert.Equal(t, []string{"from", "to"}, missing)
	assert.Equal(t, map[string]any{"kept": "literal"}, resolved)
}

// TestLookupPath tests dotted-path traversal edge cases.
func TestLookupPath(t *testing.T) {
	payload := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 42},
		},
		"leaf": "x",
	}

	val, ok := LookupPath(payload, []string{"a", "b", "c"})
	require.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = LookupPath(payload, []string{"a", "nope"})
	assert.False(t, ok)

	// Traversing through a non-map fails rather than panics.
	_, ok = LookupPath(payload, []string{"leaf", "deeper"})
	assert.False(t, ok)

	val, ok = LookupPath(payload, []string{"a"})
	require.True(t, ok)
	assert.Equal(t, payload["a"], val)
}
