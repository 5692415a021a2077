package choreo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshalCanonical_KeyOrder tests RFC 8785 key ordering.
func TestMarshalCanonical_KeyOrder(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(b))
}

// TestMarshalCanonical_UTF16Order tests that supplementary-plane keys sort
// by UTF-16 code units, not UTF-8 bytes.
func TestMarshalCanonical_UTF16Order(t *testing.T) {
	// U+1D11E encodes as a surrogate pair starting 0xD834, so it sorts
	// before U+FB01 in UTF-16 order; UTF-8 byte order would reverse them.
	b, err := MarshalCanonical(map[string]any{
		"\U0001D11E": "clef",
		"ﬁ":     "fi",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"𝄞":"clef","ﬁ":"fi"}`, string(b))
}

// TestMarshalCanonical_Scalars tests scalar and float rendering.
func TestMarshalCanonical_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"true", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"whole float as integer", float64(60), "60"},
		{"fractional float", 0.25, "0.25"},
		{"string", "hello", `"hello"`},
		{"no html escaping", "<a>&</a>", `"<a>&</a>"`},
		{"array", []any{1, "x", false}, `[1,"x",false]`},
		{"nested", map[string]any{"a": []any{map[string]any{"b": 1}}}, `{"a":[{"b":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

// TestMarshalCanonical_NFC tests composed/decomposed strings normalize to
// the same bytes.
func TestMarshalCanonical_NFC(t *testing.T) {
	composed, err := MarshalCanonical("café")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("café")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

// TestMarshalCanonical_UnsupportedType tests rejection of non-JSON values.
func TestMarshalCanonical_UnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}
