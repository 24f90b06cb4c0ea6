package schema

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/variant"
)

const definitionsFile = "schema.cue"

//go:embed schema.cue
var definitions string

// AttributeSpec is one compiled attribute.
type AttributeSpec struct {
	Name    string
	Type    variant.Type
	Default variant.Value
	Net     bool
}

// ClassSpec is one compiled component class.
type ClassSpec struct {
	Name       string
	Hash       variant.StringHash
	Attributes []AttributeSpec
}

// Class converts c into a registrable scene class.
func (c ClassSpec) Class() scene.Class {
	attrs := make([]scene.AttributeInfo, len(c.Attributes))
	for i, a := range c.Attributes {
		attrs[i] = scene.AttributeInfo{Name: a.Name, Type: a.Type, Default: a.Default, Net: a.Net}
	}
	return scene.Class{Name: c.Name, Hash: c.Hash, Attributes: attrs}
}

// CompileClass compiles a single class value, e.g. the value at
// "component.Health". The class name is the field label unless the struct
// sets name explicitly.
func CompileClass(v cue.Value) (*ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("cue", err)
	}

	spec := &ClassSpec{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	def := v.Context().CompileString(definitions, cue.Filename(definitionsFile)).
		LookupPath(cue.ParsePath("#Component"))
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(spec.Name, err)
	}

	// Fields are read from v itself so positions point into the user's file.
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError("name", err)
		}
		spec.Name = name
	}
	if spec.Name == "" {
		return nil, &CompileError{Field: "name", Message: "component name is required", Pos: v.Pos()}
	}

	spec.Hash = variant.Hash(spec.Name)
	if hashVal := v.LookupPath(cue.ParsePath("hash")); hashVal.Exists() {
		s, err := hashVal.String()
		if err != nil {
			return nil, formatCUEError("hash", err)
		}
		spec.Hash = variant.ParseStringHash(s)
	}

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return spec, nil
	}
	iter, err := attrsVal.List()
	if err != nil {
		return nil, formatCUEError("attributes", err)
	}
	seen := make(map[string]bool)
	for i := 0; iter.Next(); i++ {
		attr, err := compileAttribute(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		if seen[attr.Name] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("attributes[%d].name", i),
				Message: fmt.Sprintf("duplicate attribute %q", attr.Name),
				Pos:     iter.Value().Pos(),
			}
		}
		seen[attr.Name] = true
		spec.Attributes = append(spec.Attributes, attr)
	}
	return spec, nil
}

func compileAttribute(v cue.Value, i int) (AttributeSpec, error) {
	field := fmt.Sprintf("attributes[%d]", i)
	var attr AttributeSpec

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return attr, formatCUEError(field+".name", err)
	}
	attr.Name = name

	typeName, err := v.LookupPath(cue.ParsePath("type")).String()
	if err != nil {
		return attr, formatCUEError(field+".type", err)
	}
	attr.Type, err = variant.ParseType(typeName)
	if err != nil {
		return attr, &CompileError{Field: field + ".type", Message: err.Error(), Pos: v.Pos()}
	}

	attr.Net = true
	if nv := v.LookupPath(cue.ParsePath("net")); nv.Exists() {
		attr.Net, err = nv.Bool()
		if err != nil {
			return attr, formatCUEError(field+".net", err)
		}
	}

	attr.Default = variant.Default(attr.Type)
	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		raw, err := toGo(dv)
		if err != nil {
			return attr, formatCUEError(field+".default", err)
		}
		val, err := variant.Coerce(raw, attr.Type)
		if err != nil {
			return attr, &CompileError{
				Field:   field + ".default",
				Message: fmt.Sprintf("%s: %v", attr.Name, err),
				Pos:     dv.Pos(),
			}
		}
		attr.Default = val
	}
	return attr, nil
}

// toGo converts a concrete CUE value into the plain data variant.Coerce
// accepts.
func toGo(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		var out []any
		for iter.Next() {
			elem, err := toGo(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any)
		for iter.Next() {
			elem, err := toGo(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = elem
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of kind %v is not concrete", v.IncompleteKind())
	}
}

// Compile compiles every class under the top-level "component" field.
// All errors are collected; classes that compiled are returned alongside.
func Compile(v cue.Value) ([]ClassSpec, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError("cue", err)}
	}
	components := v.LookupPath(cue.ParsePath("component"))
	if !components.Exists() {
		return nil, []error{&CompileError{Field: "component", Message: "no component classes defined", Pos: v.Pos()}}
	}
	iter, err := components.Fields()
	if err != nil {
		return nil, []error{formatCUEError("component", err)}
	}

	var specs []ClassSpec
	var errs []error
	for iter.Next() {
		spec, err := CompileClass(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		specs = append(specs, *spec)
	}
	return specs, errs
}

// Register adds the classes to reg in order and stops at the first
// rejected class.
func Register(reg *scene.Registry, specs []ClassSpec) error {
	for _, spec := range specs {
		if _, err := reg.Register(spec.Class()); err != nil {
			return fmt.Errorf("register %s: %w", spec.Name, err)
		}
	}
	return nil
}
