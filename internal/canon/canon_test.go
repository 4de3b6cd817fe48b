package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"negative", int64(-7), "-7"},
		{"uint32", uint32(9), "9"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"string slice", []string{"a", "b"}, `["a","b"]`},
		{"uint32 slice", []uint32{1, 2}, "[1,2]"},
		{"object", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"nested", map[string]any{"z": map[string]string{"k": "v"}, "a": []int{3}}, `{"a":[3],"z":{"k":"v"}}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshal_Rejects(t *testing.T) {
	_, err := Marshal(1.5)
	assert.Error(t, err)

	_, err = Marshal([]any{struct{}{}})
	assert.ErrorContains(t, err, "array[0]")

	_, err = Marshal(map[string]any{"f": float32(1)})
	assert.ErrorContains(t, err, `value for key "f"`)
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	got, err := Marshal(map[string]any{"\uE000": 1, "\U00010000": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshal_NFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshal_LineSeparators(t *testing.T) {
	got, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))

	got, err = Marshal(`lit\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"lit\\u2028"`, string(got))
}

func TestHash_Stable(t *testing.T) {
	a, err := Hash("splitcore/test/v1", map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := Hash("splitcore/test/v1", map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := Hash("splitcore/other/v1", map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
