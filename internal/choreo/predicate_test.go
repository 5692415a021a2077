package choreo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParsePredicate_Empty tests that an empty expression matches everything.
func TestParsePredicate_Empty(t *testing.T) {
	pred, err := ParsePredicate("")
	require.NoError(t, err)
	assert.Nil(t, pred)

	pred, err = ParsePredicate("   ")
	require.NoError(t, err)
	assert.Nil(t, pred)
}

// TestPredicate_Eval tests expression evaluation against payloads.
func TestPredicate_Eval(t *testing.T) {
	payload := map[string]any{
		"status":  "error",
		"retries": float64(3),
		"urgent":  true,
		"usage": map[string]any{
			"promptTokens": float64(1200),
		},
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"string equality", "status == 'error'", true},
		{"string inequality", "status != 'ok'", true},
		{"string mismatch", "status == 'ok'", false},
		{"numeric gt", "retries > 2", true},
		{"numeric gte boundary", "retries >= 3", true},
		{"numeric lt", "retries < 3", false},
		{"nested path", "usage.promptTokens > 1000", true},
		{"bare truthy", "urgent", true},
		{"and both true", "status == 'error' && retries > 2", true},
		{"and one false", "status == 'error' && retries > 5", false},
		{"or short circuit", "status == 'ok' || urgent", true},
		{"parens", "(status == 'ok' || urgent) && retries > 0", true},
		{"bool literal", "urgent == true", true},
		{"int vs float equality", "retries == 3.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := ParsePredicate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pred.Eval(payload))
		})
	}
}

// TestPredicate_MissingFields tests that comparisons against absent payload
// fields evaluate false instead of erroring.
func TestPredicate_MissingFields(t *testing.T) {
	payload := map[string]any{"status": "ok"}

	tests := []string{
		"missing == 'x'",
		"missing != 'x'",
		"missing > 1",
		"missing",
		"status.nested == 'x'",
	}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			pred, err := ParsePredicate(expr)
			require.NoError(t, err)
			assert.False(t, pred.Eval(payload))
		})
	}
}

// TestPredicate_TypeMismatch tests ordered comparison of non-numeric values.
func TestPredicate_TypeMismatch(t *testing.T) {
	pred, err := ParsePredicate("status > 2")
	require.NoError(t, err)
	assert.False(t, pred.Eval(map[string]any{"status": "error"}))
}

// TestParsePredicate_Errors tests rejection of malformed expressions.
func TestParsePredicate_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"unterminated string", "status == 'error"},
		{"double-quoted string", `status == "error"`},
		{"missing close paren", "(status == 'error'"},
		{"trailing garbage", "status == 'error' garbage"},
		{"dangling operator", "retries >"},
		{"empty path segment", "usage..tokens > 1"},
		{"bare operator", "== 'error'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePredicate(tt.expr)
			assert.Error(t, err)
		})
	}
}
