package variant

import (
	"encoding/base64"
	"fmt"
	"math"
)

// Coerce converts YAML- or JSON-decoded data into a Value of kind t.
//
// Numbers are accepted as int, int64, uint64 or float64. Vectors are numeric
// lists of the exact arity. Buffers are base64 strings. VariantMap keys are
// identifiers or "0x" hashes (see ParseStringHash) and their values are
// inferred with Infer.
func Coerce(raw any, t Type) (Value, error) {
	switch t {
	case TypeNone:
		if raw != nil {
			return nil, fmt.Errorf("None takes no value, got %T", raw)
		}
		return None{}, nil
	case TypeInt:
		n, err := toInt(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d overflows Int", n)
		}
		return Int(n), nil
	case TypeInt64:
		n, err := toInt(raw)
		if err != nil {
			return nil, err
		}
		return Int64(n), nil
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return Bool(b), nil
	case TypeFloat:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case TypeDouble:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		return Double(f), nil
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return String(s), nil
	case TypeBuffer:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 buffer: %w", err)
		}
		return Buffer(b), nil
	case TypeVector2:
		f, err := toFloats(raw, 2)
		if err != nil {
			return nil, err
		}
		return Vector2{f[0], f[1]}, nil
	case TypeVector3:
		f, err := toFloats(raw, 3)
		if err != nil {
			return nil, err
		}
		return Vector3{f[0], f[1], f[2]}, nil
	case TypeVector4:
		f, err := toFloats(raw, 4)
		if err != nil {
			return nil, err
		}
		return Vector4{f[0], f[1], f[2], f[3]}, nil
	case TypeQuaternion:
		f, err := toFloats(raw, 4)
		if err != nil {
			return nil, err
		}
		return Quaternion{f[0], f[1], f[2], f[3]}, nil
	case TypeColor:
		f, err := toFloats(raw, 4)
		if err != nil {
			return nil, err
		}
		return Color{f[0], f[1], f[2], f[3]}, nil
	case TypeIntVector2:
		list, ok := raw.([]any)
		if !ok || len(list) != 2 {
			return nil, fmt.Errorf("expected list of 2 integers, got %v", raw)
		}
		x, err := toInt(list[0])
		if err != nil {
			return nil, err
		}
		y, err := toInt(list[1])
		if err != nil {
			return nil, err
		}
		return IntVector2{int32(x), int32(y)}, nil
	case TypeVariantVector:
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list, got %T", raw)
		}
		out := make(VariantVector, len(list))
		for i, elem := range list {
			v, err := Infer(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case TypeVariantMap:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected map, got %T", raw)
		}
		out := make(VariantMap, len(m))
		for k, elem := range m {
			v, err := Infer(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[ParseStringHash(k)] = v
		}
		return out, nil
	case TypeStringVector:
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list of strings, got %T", raw)
		}
		out := make(StringVector, len(list))
		for i, elem := range list {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("[%d]: expected string, got %T", i, elem)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value type %v", t)
	}
}

// Infer picks a kind for untyped data. A map of exactly {type, value} is an
// explicitly typed value; any other map is a VariantMap. Integers become Int
// (Int64 when out of range) and floats become Float.
func Infer(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return None{}, nil
	case bool:
		return Bool(val), nil
	case int, int64, uint64:
		n, err := toInt(val)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return Int64(n), nil
		}
		return Int(n), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case []any:
		return Coerce(val, TypeVariantVector)
	case map[string]any:
		if name, ok := val["type"].(string); ok && len(val) == 2 {
			if inner, ok := val["value"]; ok {
				t, err := ParseType(name)
				if err != nil {
					return nil, err
				}
				return Coerce(inner, t)
			}
		}
		return Coerce(val, TypeVariantMap)
	default:
		return nil, fmt.Errorf("cannot infer value kind of %T", raw)
	}
}

func toInt(raw any) (int64, error) {
	switch n := raw.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows Int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func toFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

func toFloats(raw any, n int) ([]float32, error) {
	list, ok := raw.([]any)
	if !ok || len(list) != n {
		return nil, fmt.Errorf("expected list of %d numbers, got %v", n, raw)
	}
	out := make([]float32, n)
	for i, elem := range list {
		f, err := toFloat(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
