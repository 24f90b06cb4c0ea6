package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		typ      Type
		expected Value
	}{
		{"int", 5, TypeInt, Int(5)},
		{"int from whole float", 5.0, TypeInt, Int(5)},
		{"int64", 1 << 40, TypeInt64, Int64(1 << 40)},
		{"bool", true, TypeBool, Bool(true)},
		{"float from int", 2, TypeFloat, Float(2)},
		{"double", 0.25, TypeDouble, Double(0.25)},
		{"string", "hi", TypeString, String("hi")},
		{"buffer", "aGk=", TypeBuffer, Buffer("hi")},
		{"vector3", []any{1, 2.5, 3}, TypeVector3, Vector3{1, 2.5, 3}},
		{"quaternion", []any{1, 0, 0, 0}, TypeQuaternion, IdentityQuaternion},
		{"color", []any{1, 1, 1, 0.5}, TypeColor, Color{1, 1, 1, 0.5}},
		{"int vector", []any{3, 4}, TypeIntVector2, IntVector2{3, 4}},
		{"string vector", []any{"a", "b"}, TypeStringVector, StringVector{"a", "b"}},
		{"variant vector", []any{1, "x"}, TypeVariantVector, VariantVector{Int(1), String("x")}},
		{"variant map", map[string]any{"Score": 3}, TypeVariantMap, VariantMap{Hash("Score"): Int(3)}},
		{"none", nil, TypeNone, None{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(tt.raw, tt.typ)
			require.NoError(t, err)
			assert.True(t, Equal(tt.expected, v), "got %#v", v)
		})
	}
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		typ  Type
	}{
		{"int overflow", int64(1) << 40, TypeInt},
		{"fractional int", 1.5, TypeInt},
		{"bool from string", "true", TypeBool},
		{"vector arity", []any{1, 2}, TypeVector3},
		{"bad base64", "!!", TypeBuffer},
		{"string vector element", []any{1}, TypeStringVector},
		{"none with value", 1, TypeNone},
		{"unknown type", 1, Type(99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.raw, tt.typ)
			assert.Error(t, err)
		})
	}
}

func TestInfer(t *testing.T) {
	v, err := Infer(map[string]any{"type": "Vector3", "value": []any{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, Vector3{1, 2, 3}, v)

	v, err = Infer(int64(1) << 40)
	require.NoError(t, err)
	assert.Equal(t, Int64(1<<40), v)

	v, err = Infer(1.25)
	require.NoError(t, err)
	assert.Equal(t, Float(1.25), v)

	// A map with other keys is a VariantMap, even when it has a "type" key.
	v, err = Infer(map[string]any{"type": "x", "other": 1})
	require.NoError(t, err)
	assert.Equal(t, TypeVariantMap, v.Type())

	_, err = Infer(map[string]any{"type": "Nope", "value": 1})
	require.Error(t, err)
}
