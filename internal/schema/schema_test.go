package schema

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/variant"
)

func compileOne(t *testing.T, src, path string) (*ClassSpec, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return CompileClass(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileClassBasic(t *testing.T) {
	spec, err := compileOne(t, `
		component: Health: attributes: [
			{name: "Current", type: "Int", default: 100},
			{name: "Label", type: "String", net: false},
			{name: "Regen", type: "Float"},
		]
	`, "component.Health")
	require.NoError(t, err)

	assert.Equal(t, "Health", spec.Name)
	assert.Equal(t, variant.Hash("Health"), spec.Hash)
	assert.Equal(t, []AttributeSpec{
		{Name: "Current", Type: variant.TypeInt, Default: variant.Int(100), Net: true},
		{Name: "Label", Type: variant.TypeString, Default: variant.String(""), Net: false},
		{Name: "Regen", Type: variant.TypeFloat, Default: variant.Float(0), Net: true},
	}, spec.Attributes)
}

func TestCompileClassNameAndHashOverride(t *testing.T) {
	spec, err := compileOne(t, `
		component: Light: {
			name: "Point Light"
			hash: "0x0000beef"
			attributes: []
		}
	`, "component.Light")
	require.NoError(t, err)
	assert.Equal(t, "Point Light", spec.Name)
	assert.Equal(t, variant.StringHash(0xbeef), spec.Hash)
	assert.Empty(t, spec.Attributes)
}

func TestCompileClassVectorDefaults(t *testing.T) {
	spec, err := compileOne(t, `
		component: Mover: attributes: [
			{name: "Velocity", type: "Vector3", default: [1, 0.5, 0]},
			{name: "Facing", type: "Quaternion"},
			{name: "Cell", type: "IntVector2", default: [3, 4]},
		]
	`, "component.Mover")
	require.NoError(t, err)
	require.Len(t, spec.Attributes, 3)
	assert.Equal(t, variant.Vector3{X: 1, Y: 0.5}, spec.Attributes[0].Default)
	assert.Equal(t, variant.IdentityQuaternion, spec.Attributes[1].Default)
	assert.Equal(t, variant.IntVector2{X: 3, Y: 4}, spec.Attributes[2].Default)
}

func TestCompileClassErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		path    string
		field   string
		message string
	}{
		{
			name:  "unknown type",
			src:   `component: C: attributes: [{name: "A", type: "Matrix3"}]`,
			path:  "component.C",
			field: "C",
		},
		{
			name:  "missing attribute name",
			src:   `component: C: attributes: [{type: "Int"}]`,
			path:  "component.C",
			field: "C",
		},
		{
			name:  "unknown field",
			src:   `component: C: {attributes: [], color: "red"}`,
			path:  "component.C",
			field: "C",
		},
		{
			name:    "default of wrong kind",
			src:     `component: C: attributes: [{name: "A", type: "Int", default: "many"}]`,
			path:    "component.C",
			field:   "attributes[0].default",
			message: "A",
		},
		{
			name:    "vector arity",
			src:     `component: C: attributes: [{name: "A", type: "Vector2", default: [1, 2, 3]}]`,
			path:    "component.C",
			field:   "attributes[0].default",
			message: "list of 2",
		},
		{
			name:    "duplicate attribute",
			src:     `component: C: attributes: [{name: "A", type: "Int"}, {name: "A", type: "Bool"}]`,
			path:    "component.C",
			field:   "attributes[1].name",
			message: "duplicate",
		},
		{
			name:  "malformed hash",
			src:   `component: C: {hash: "beef", attributes: []}`,
			path:  "component.C",
			field: "C",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, tt.path)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
			if tt.message != "" {
				assert.Contains(t, ce.Message, tt.message)
			}
		})
	}
}

func TestCompileCollectsErrors(t *testing.T) {
	classes, errs := CompileSource("bad.cue", `
		component: Good: attributes: [{name: "A", type: "Int"}]
		component: Bad: attributes: [{name: "A", type: "Nope"}]
		component: AlsoGood: attributes: []
	`)
	require.Len(t, errs, 1)
	require.Len(t, classes, 2)
	assert.Equal(t, "Good", classes[0].Name)
	assert.Equal(t, "AlsoGood", classes[1].Name)
}

func TestCompileNoComponents(t *testing.T) {
	_, errs := CompileSource("x.cue", `other: 1`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no component classes")
}

func TestCompileSyntaxError(t *testing.T) {
	_, errs := CompileSource("broken.cue", `component: {`)
	require.Len(t, errs, 1)
	var ce *CompileError
	require.ErrorAs(t, errs[0], &ce)
	assert.Equal(t, "broken.cue", ce.Pos.Filename())
}

func TestClassSpec_Register(t *testing.T) {
	classes, errs := CompileSource("c.cue", `
		component: Health: attributes: [
			{name: "Current", type: "Int", default: 100},
			{name: "Label", type: "String", net: false},
		]
	`)
	require.Empty(t, errs)

	reg := scene.DefaultRegistry()
	require.NoError(t, Register(reg, classes))

	class, ok := reg.ClassByName("Health")
	require.True(t, ok)
	require.Len(t, class.NetworkAttributes(), 1)
	assert.Equal(t, "Current", class.NetworkAttributes()[0].Name)

	err := Register(reg, classes)
	assert.ErrorIs(t, err, scene.ErrDuplicateClass)
}

func TestLoadDir(t *testing.T) {
	result, errs := LoadDir("testdata/components")
	require.Empty(t, errs)
	assert.Equal(t, 2, result.FileCount)

	names := make([]string, len(result.Classes))
	for i, c := range result.Classes {
		names[i] = c.Name
	}
	assert.ElementsMatch(t, []string{"Health", "Weapon", "Point Light"}, names)

	for _, c := range result.Classes {
		if c.Name == "Weapon" {
			assert.Equal(t, variant.StringHash(0xbeef), c.Hash)
			assert.Equal(t, variant.Vector3{Y: 0.25, Z: 1}, c.Attributes[1].Default)
		}
		if c.Name == "Point Light" {
			assert.Equal(t, variant.Color{R: 1, G: 1, B: 1, A: 1}, c.Attributes[0].Default)
			assert.Equal(t, variant.StringVector{"lamp"}, c.Attributes[1].Default)
		}
	}
}

func TestLoadDir_Invalid(t *testing.T) {
	result, errs := LoadDir("testdata/invalid")
	require.Len(t, errs, 2)
	require.NotNil(t, result)
	require.Len(t, result.Classes, 1)
	assert.Equal(t, "Good", result.Classes[0].Name)
	for _, err := range errs {
		assert.Contains(t, err.Error(), "bad.cue")
	}
}

func TestLoadDir_Missing(t *testing.T) {
	_, errs := LoadDir("testdata/nope")
	require.Len(t, errs, 1)

	_, errs = LoadDir("testdata/empty")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no CUE files")
}
