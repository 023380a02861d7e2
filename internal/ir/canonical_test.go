package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalValueBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"float", Float(1.5), "1.5"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"simple object", Object{"a": Int(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalValueSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{"b": Int(1), "a": Int(2)},
		"a": Int(3),
	}

	result, err := MarshalValue(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalValueNoHTMLEscape(t *testing.T) {
	result, err := MarshalValue(String("<a> & \"b\""))
	require.NoError(t, err)
	assert.Equal(t, `"<a> & \"b\""`, string(result))
}

func TestMarshalValueKeepsComposition(t *testing.T) {
	result, err := MarshalValue(Object{"note": String("cafe\u0301")})
	require.NoError(t, err)
	assert.Equal(t, "{\"note\":\"cafe\u0301\"}", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point
	result, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))

	composed, err := MarshalCanonical(Array{String("\u00e9")})
	require.NoError(t, err)
	decomposed, err := MarshalCanonical(Array{String("e\u0301")})
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)

	assert.Equal(t, "\u00e9", Normalize("e\u0301"))
}

func TestMarshalValueRejectsNaN(t *testing.T) {
	_, err := MarshalValue(Array{Float(nan())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[0]")
}

func TestMarshalIndent(t *testing.T) {
	result, err := MarshalIndent(Object{"a": Array{Int(1)}}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1\n  ]\n}", string(result))
}

func TestJSONMarshalUsesValueRendering(t *testing.T) {
	data, err := json.Marshal(map[string]Value{"out": Object{"b": Null{}, "a": Array{String("x")}}})
	require.NoError(t, err)
	assert.Equal(t, `{"out":{"a":["x"],"b":null}}`, string(data))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
