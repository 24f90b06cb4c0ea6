package scene

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/replica/internal/variant"
)

// AttributeInfo describes one attribute of a serializable object.
type AttributeInfo struct {
	Name    string
	Type    variant.Type
	Default variant.Value
	// Net marks attributes that travel in snapshots.
	Net bool
}

// Serializable is an object whose network attributes can be read and
// written by index. Index i refers to NetworkAttributes()[i].
type Serializable interface {
	NetworkAttributes() []AttributeInfo
	Attribute(i int) variant.Value
	SetAttribute(i int, v variant.Value) error
	ApplyAttributes()
	Intercepted() bool
}

// AttributeApplier is implemented by behaviors that need a hook after a
// batch of attribute writes.
type AttributeApplier interface {
	ApplyAttributes()
}

// Snapper is implemented by behaviors that interpolate toward a target and
// can jump there immediately.
type Snapper interface {
	SnapToTarget()
}

// Class is a registered component type.
type Class struct {
	Name       string
	Hash       variant.StringHash
	Attributes []AttributeInfo
	// Factory builds the behavior attached to a new component. Optional.
	Factory func(c *Component) any

	net    []AttributeInfo
	netIdx []int
	byName map[string]int
}

// NetworkAttributes returns the Net subset of Attributes in declared order.
func (c *Class) NetworkAttributes() []AttributeInfo {
	return c.net
}

// AttributeIndex returns the position of the named attribute in Attributes.
func (c *Class) AttributeIndex(name string) (int, bool) {
	i, ok := c.byName[name]
	return i, ok
}

// Registry maps type hashes to classes.
type Registry struct {
	classes map[variant.StringHash]*Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[variant.StringHash]*Class)}
}

// DefaultRegistry returns a registry holding the built-in classes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if _, err := r.Register(SmoothedTransformClass()); err != nil {
		panic(err)
	}
	return r
}

// Register validates and adds a class. A zero Hash is computed from Name.
// Missing defaults are filled with the zero value of the declared kind.
func (r *Registry) Register(c Class) (*Class, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("class name is required")
	}
	if c.Hash == 0 {
		c.Hash = variant.Hash(c.Name)
	}
	if existing, ok := r.classes[c.Hash]; ok {
		return nil, fmt.Errorf("%w: %s (hash %s, held by %s)", ErrDuplicateClass, c.Name, c.Hash, existing.Name)
	}

	c.Attributes = slices.Clone(c.Attributes)
	c.byName = make(map[string]int, len(c.Attributes))
	c.net = nil
	c.netIdx = nil
	for i := range c.Attributes {
		attr := &c.Attributes[i]
		if attr.Name == "" {
			return nil, fmt.Errorf("class %s: attribute %d has no name", c.Name, i)
		}
		if !attr.Type.Valid() || attr.Type == variant.TypeNone {
			return nil, fmt.Errorf("class %s: attribute %q has invalid type %v", c.Name, attr.Name, attr.Type)
		}
		if _, dup := c.byName[attr.Name]; dup {
			return nil, fmt.Errorf("class %s: duplicate attribute %q", c.Name, attr.Name)
		}
		if attr.Default == nil {
			attr.Default = variant.Default(attr.Type)
		} else if attr.Default.Type() != attr.Type {
			return nil, fmt.Errorf("class %s: attribute %q default is %v, want %v",
				c.Name, attr.Name, attr.Default.Type(), attr.Type)
		}
		c.byName[attr.Name] = i
		if attr.Net {
			c.net = append(c.net, *attr)
			c.netIdx = append(c.netIdx, i)
		}
	}

	registered := &c
	r.classes[c.Hash] = registered
	return registered, nil
}

// Class looks up a class by type hash.
func (r *Registry) Class(h variant.StringHash) (*Class, bool) {
	c, ok := r.classes[h]
	return c, ok
}

// ClassByName looks up a class by name.
func (r *Registry) ClassByName(name string) (*Class, bool) {
	return r.Class(variant.Hash(name))
}

// Classes returns all registered classes sorted by name.
func (r *Registry) Classes() []*Class {
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Class) int { return strings.Compare(a.Name, b.Name) })
	return out
}
