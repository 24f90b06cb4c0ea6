package scene

import (
	"fmt"

	"github.com/roach88/replica/internal/variant"
)

// Component is an instance of a Class attached to a node.
type Component struct {
	id       uint32
	class    *Class
	node     *Node
	mode     CreateMode
	values   []variant.Value
	behavior any
	removed  bool
}

func newComponent(id uint32, class *Class, node *Node, mode CreateMode) *Component {
	values := make([]variant.Value, len(class.Attributes))
	for i, attr := range class.Attributes {
		values[i] = attr.Default
	}
	return &Component{id: id, class: class, node: node, mode: mode, values: values}
}

func (c *Component) ID() uint32               { return c.id }
func (c *Component) Type() variant.StringHash { return c.class.Hash }
func (c *Component) Class() *Class            { return c.class }
func (c *Component) Mode() CreateMode         { return c.mode }
func (c *Component) Removed() bool            { return c.removed }

// Node returns the owner, or nil once the component is removed.
func (c *Component) Node() *Node { return c.node }

// Behavior returns the object built by the class factory, if any.
func (c *Component) Behavior() any { return c.behavior }

// Intercepted implements Serializable. Components never carry a parent
// attribute, so they are never intercepted.
func (c *Component) Intercepted() bool { return false }

// Get returns an attribute by name.
func (c *Component) Get(name string) (variant.Value, bool) {
	i, ok := c.class.byName[name]
	if !ok {
		return nil, false
	}
	return c.values[i], true
}

// Set assigns an attribute by name.
func (c *Component) Set(name string, v variant.Value) error {
	i, ok := c.class.byName[name]
	if !ok {
		return fmt.Errorf("class %s has no attribute %q", c.class.Name, name)
	}
	return c.set(i, v)
}

func (c *Component) set(i int, v variant.Value) error {
	attr := c.class.Attributes[i]
	if v == nil || v.Type() != attr.Type {
		return fmt.Errorf("%w: %s.%s wants %v", ErrAttributeType, c.class.Name, attr.Name, attr.Type)
	}
	c.values[i] = v
	return nil
}

// NetworkAttributes implements Serializable.
func (c *Component) NetworkAttributes() []AttributeInfo {
	return c.class.net
}

// Attribute implements Serializable.
func (c *Component) Attribute(i int) variant.Value {
	if i < 0 || i >= len(c.class.netIdx) {
		return nil
	}
	return c.values[c.class.netIdx[i]]
}

// SetAttribute implements Serializable.
func (c *Component) SetAttribute(i int, v variant.Value) error {
	if i < 0 || i >= len(c.class.netIdx) {
		return fmt.Errorf("%s network attribute index %d out of range", c.class.Name, i)
	}
	return c.set(c.class.netIdx[i], v)
}

// ApplyAttributes runs the behavior's late-apply hook.
func (c *Component) ApplyAttributes() {
	if a, ok := c.behavior.(AttributeApplier); ok {
		a.ApplyAttributes()
	}
}

// Remove detaches the component from its node.
func (c *Component) Remove() {
	if c.node != nil {
		c.node.RemoveComponent(c)
	}
}

func (c *Component) release() {
	if c.removed {
		return
	}
	if c.node != nil && c.node.scene != nil {
		delete(c.node.scene.components, c.id)
	}
	c.node = nil
	c.removed = true
}
