package variant

import (
	"bytes"
	"fmt"
	"slices"
)

// Type identifies the kind of a tagged value. The numeric value is written
// on the wire as the tag byte, so existing constants must never be reordered.
type Type uint8

const (
	TypeNone Type = iota
	TypeInt
	TypeBool
	TypeFloat
	TypeVector2
	TypeVector3
	TypeVector4
	TypeQuaternion
	TypeColor
	TypeString
	TypeBuffer
	TypeVariantVector
	TypeVariantMap
	TypeIntVector2
	TypeDouble
	TypeStringVector
	TypeInt64

	typeCount
)

var typeNames = [typeCount]string{
	TypeNone:          "None",
	TypeInt:           "Int",
	TypeBool:          "Bool",
	TypeFloat:         "Float",
	TypeVector2:       "Vector2",
	TypeVector3:       "Vector3",
	TypeVector4:       "Vector4",
	TypeQuaternion:    "Quaternion",
	TypeColor:         "Color",
	TypeString:        "String",
	TypeBuffer:        "Buffer",
	TypeVariantVector: "VariantVector",
	TypeVariantMap:    "VariantMap",
	TypeIntVector2:    "IntVector2",
	TypeDouble:        "Double",
	TypeStringVector:  "StringVector",
	TypeInt64:         "Int64",
}

// String returns the schema name of the type.
func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Valid reports whether t is a known kind.
func (t Type) Valid() bool {
	return t < typeCount
}

// ParseType resolves a schema type name ("Vector3", "Int", ...).
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return TypeNone, fmt.Errorf("unknown value type %q", name)
}

// Value is a sealed interface representing a tagged value.
// Only the types declared in this file implement it.
type Value interface {
	Type() Type
	sealed()
}

// None is the empty value.
type None struct{}

// Int is a 32-bit signed integer.
type Int int32

// Int64 is a 64-bit signed integer.
type Int64 int64

// Bool is a boolean.
type Bool bool

// Float is a 32-bit float.
type Float float32

// Double is a 64-bit float.
type Double float64

// String is a UTF-8 string.
type String string

// Buffer is an opaque byte payload.
type Buffer []byte

// Vector2 is a 2D float vector.
type Vector2 struct{ X, Y float32 }

// Vector3 is a 3D float vector.
type Vector3 struct{ X, Y, Z float32 }

// Vector4 is a 4D float vector.
type Vector4 struct{ X, Y, Z, W float32 }

// Quaternion is a rotation, stored W first.
type Quaternion struct{ W, X, Y, Z float32 }

// Color is an RGBA color.
type Color struct{ R, G, B, A float32 }

// IntVector2 is a 2D integer vector.
type IntVector2 struct{ X, Y int32 }

// VariantVector is an ordered list of values.
type VariantVector []Value

// VariantMap maps hashed keys to values. Use SortedKeys for iteration.
type VariantMap map[StringHash]Value

// StringVector is an ordered list of strings.
type StringVector []string

func (None) Type() Type          { return TypeNone }
func (Int) Type() Type           { return TypeInt }
func (Int64) Type() Type         { return TypeInt64 }
func (Bool) Type() Type          { return TypeBool }
func (Float) Type() Type         { return TypeFloat }
func (Double) Type() Type        { return TypeDouble }
func (String) Type() Type        { return TypeString }
func (Buffer) Type() Type        { return TypeBuffer }
func (Vector2) Type() Type       { return TypeVector2 }
func (Vector3) Type() Type       { return TypeVector3 }
func (Vector4) Type() Type       { return TypeVector4 }
func (Quaternion) Type() Type    { return TypeQuaternion }
func (Color) Type() Type         { return TypeColor }
func (IntVector2) Type() Type    { return TypeIntVector2 }
func (VariantVector) Type() Type { return TypeVariantVector }
func (VariantMap) Type() Type    { return TypeVariantMap }
func (StringVector) Type() Type  { return TypeStringVector }

func (None) sealed()          {}
func (Int) sealed()           {}
func (Int64) sealed()         {}
func (Bool) sealed()          {}
func (Float) sealed()         {}
func (Double) sealed()        {}
func (String) sealed()        {}
func (Buffer) sealed()        {}
func (Vector2) sealed()       {}
func (Vector3) sealed()       {}
func (Vector4) sealed()       {}
func (Quaternion) sealed()    {}
func (Color) sealed()         {}
func (IntVector2) sealed()    {}
func (VariantVector) sealed() {}
func (VariantMap) sealed()    {}
func (StringVector) sealed()  {}

// IdentityQuaternion is the rotation that leaves vectors unchanged.
var IdentityQuaternion = Quaternion{W: 1}

// Default returns the zero value of a kind. Unknown kinds yield None.
func Default(t Type) Value {
	switch t {
	case TypeInt:
		return Int(0)
	case TypeInt64:
		return Int64(0)
	case TypeBool:
		return Bool(false)
	case TypeFloat:
		return Float(0)
	case TypeDouble:
		return Double(0)
	case TypeString:
		return String("")
	case TypeBuffer:
		return Buffer{}
	case TypeVector2:
		return Vector2{}
	case TypeVector3:
		return Vector3{}
	case TypeVector4:
		return Vector4{}
	case TypeQuaternion:
		return IdentityQuaternion
	case TypeColor:
		return Color{}
	case TypeIntVector2:
		return IntVector2{}
	case TypeVariantVector:
		return VariantVector{}
	case TypeVariantMap:
		return VariantMap{}
	case TypeStringVector:
		return StringVector{}
	default:
		return None{}
	}
}

// As returns v when it already has kind t, otherwise the default of t.
// A nil v is treated as None.
func As(v Value, t Type) Value {
	if v != nil && v.Type() == t {
		return v
	}
	return Default(t)
}

// SortedKeys returns the map keys in ascending order.
func (m VariantMap) SortedKeys() []StringHash {
	keys := make([]StringHash, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Equal reports whether two values have the same kind and content.
// Nil is equal only to nil.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case Buffer:
		return bytes.Equal(av, b.(Buffer))
	case StringVector:
		return slices.Equal(av, b.(StringVector))
	case VariantVector:
		bv := b.(VariantVector)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case VariantMap:
		bv := b.(VariantMap)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
