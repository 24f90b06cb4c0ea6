package scene

import (
	"fmt"
	"slices"

	"github.com/roach88/replica/internal/variant"
)

// ParentAttribute is the node attribute carrying the parent's id. It is
// only transferred for intercepted nodes; otherwise the tree structure of a
// snapshot determines parenthood.
const ParentAttribute = "Network Parent Node"

const (
	attrEnabled = iota
	attrName
	attrTags
	attrPosition
	attrRotation
	attrScale
	attrParent
)

var nodeAttributes = []AttributeInfo{
	attrEnabled:  {Name: "Is Enabled", Type: variant.TypeBool, Default: variant.Bool(true), Net: true},
	attrName:     {Name: "Name", Type: variant.TypeString, Default: variant.String(""), Net: true},
	attrTags:     {Name: "Tags", Type: variant.TypeStringVector, Default: variant.StringVector{}, Net: true},
	attrPosition: {Name: "Position", Type: variant.TypeVector3, Default: variant.Vector3{}, Net: true},
	attrRotation: {Name: "Rotation", Type: variant.TypeQuaternion, Default: variant.IdentityQuaternion, Net: true},
	attrScale:    {Name: "Scale", Type: variant.TypeVector3, Default: variant.Vector3{X: 1, Y: 1, Z: 1}, Net: true},
	attrParent:   {Name: ParentAttribute, Type: variant.TypeInt, Default: variant.Int(0), Net: true},
}

// NodeAttributes returns the network attribute descriptors shared by all
// nodes.
func NodeAttributes() []AttributeInfo {
	return slices.Clone(nodeAttributes)
}

// Node is an entity in the scene tree.
type Node struct {
	id          uint32
	scene       *Scene
	mode        CreateMode
	parent      *Node
	children    []*Node
	components  []*Component
	removed     bool
	intercepted bool

	enabled  bool
	name     string
	tags     []string
	position variant.Vector3
	rotation variant.Quaternion
	scale    variant.Vector3

	varKeys []variant.StringHash
	vars    map[variant.StringHash]variant.Value
}

func newNode(s *Scene, id uint32, mode CreateMode) *Node {
	return &Node{
		id:       id,
		scene:    s,
		mode:     mode,
		enabled:  true,
		rotation: variant.IdentityQuaternion,
		scale:    variant.Vector3{X: 1, Y: 1, Z: 1},
		vars:     make(map[variant.StringHash]variant.Value),
	}
}

func (n *Node) ID() uint32        { return n.id }
func (n *Node) Mode() CreateMode  { return n.mode }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Removed() bool     { return n.removed }
func (n *Node) IsRoot() bool      { return n.scene != nil && n == n.scene.root }
func (n *Node) Intercepted() bool { return n.intercepted }

// SetIntercepted marks the node as intercepted. Intercepted nodes transfer
// their parent id as an attribute.
func (n *Node) SetIntercepted(b bool) { n.intercepted = b }

// Scene returns the owning scene, or nil once the node is removed.
func (n *Node) Scene() *Scene { return n.scene }

// Children returns a copy of the child list in insertion order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Components returns a copy of the component list in insertion order.
func (n *Node) Components() []*Component { return slices.Clone(n.components) }

func (n *Node) Enabled() bool       { return n.enabled }
func (n *Node) SetEnabled(b bool)   { n.enabled = b }
func (n *Node) Name() string        { return n.name }
func (n *Node) SetName(name string) { n.name = name }

func (n *Node) Tags() []string        { return slices.Clone(n.tags) }
func (n *Node) SetTags(tags []string) { n.tags = slices.Clone(tags) }

func (n *Node) Position() variant.Vector3     { return n.position }
func (n *Node) SetPosition(p variant.Vector3) { n.position = p }

func (n *Node) Rotation() variant.Quaternion     { return n.rotation }
func (n *Node) SetRotation(q variant.Quaternion) { n.rotation = q }

func (n *Node) Scale() variant.Vector3     { return n.scale }
func (n *Node) SetScale(s variant.Vector3) { n.scale = s }

// CreateChild creates a child node. Id 0 allocates the next free id in the
// mode's range; a non-zero id is used as given and must be unused.
func (n *Node) CreateChild(id uint32, mode CreateMode) (*Node, error) {
	if n.removed {
		return nil, ErrRemoved
	}
	id, err := n.scene.claimNodeID(id, mode)
	if err != nil {
		return nil, err
	}
	child := newNode(n.scene, id, mode)
	n.scene.nodes[id] = child
	child.parent = n
	n.children = append(n.children, child)
	return child, nil
}

// IsAncestorOf reports whether n is a strict ancestor of other.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// SetParent moves n under parent, keeping its id and contents.
func (n *Node) SetParent(parent *Node) error {
	switch {
	case n.removed || parent == nil || parent.removed:
		return ErrRemoved
	case parent.scene != n.scene:
		return fmt.Errorf("%w: node %d belongs to another scene", ErrInvalidParent, parent.id)
	case parent == n || n.IsAncestorOf(parent):
		return fmt.Errorf("%w: node %d cannot become a child of %d", ErrInvalidParent, n.id, parent.id)
	case n.IsRoot():
		return fmt.Errorf("%w: root cannot be reparented", ErrInvalidParent)
	}
	if n.parent == parent {
		return nil
	}
	n.detach()
	n.parent = parent
	parent.children = append(parent.children, n)
	return nil
}

func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	if i := slices.Index(siblings, n); i >= 0 {
		n.parent.children = slices.Delete(siblings, i, i+1)
	}
	n.parent = nil
}

// Remove detaches n from its parent and removes it, its components and all
// descendants from the scene. The root cannot be removed.
func (n *Node) Remove() {
	if n.removed || n.IsRoot() {
		return
	}
	n.detach()
	n.release()
}

func (n *Node) release() {
	for _, child := range n.children {
		child.parent = nil
		child.release()
	}
	n.children = nil
	for _, c := range n.components {
		c.release()
	}
	n.components = nil
	if n.scene != nil {
		delete(n.scene.nodes, n.id)
	}
	n.scene = nil
	n.removed = true
}

// CreateComponent instantiates a registered class on n. Id 0 allocates.
func (n *Node) CreateComponent(typ variant.StringHash, mode CreateMode, id uint32) (*Component, error) {
	if n.removed {
		return nil, ErrRemoved
	}
	class, ok := n.scene.registry.Class(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponentType, typ)
	}
	id, err := n.scene.claimComponentID(id, mode)
	if err != nil {
		return nil, err
	}
	c := newComponent(id, class, n, mode)
	n.scene.components[id] = c
	n.components = append(n.components, c)
	if class.Factory != nil {
		c.behavior = class.Factory(c)
	}
	return c, nil
}

// RemoveComponent removes c from n. It is a no-op if c belongs elsewhere.
func (n *Node) RemoveComponent(c *Component) {
	if c == nil || c.node != n {
		return
	}
	if i := slices.Index(n.components, c); i >= 0 {
		n.components = slices.Delete(n.components, i, i+1)
	}
	c.release()
}

// Component returns the first component of the given type.
func (n *Node) Component(typ variant.StringHash) *Component {
	for _, c := range n.components {
		if c.class.Hash == typ {
			return c
		}
	}
	return nil
}

// SetVar sets a user variable. New keys are appended to the key order.
func (n *Node) SetVar(key variant.StringHash, v variant.Value) {
	if v == nil {
		v = variant.None{}
	}
	if _, ok := n.vars[key]; !ok {
		n.varKeys = append(n.varKeys, key)
	}
	n.vars[key] = v
}

// Var returns a user variable.
func (n *Node) Var(key variant.StringHash) (variant.Value, bool) {
	v, ok := n.vars[key]
	return v, ok
}

// RemoveVar deletes a user variable and reports whether it existed.
func (n *Node) RemoveVar(key variant.StringHash) bool {
	if _, ok := n.vars[key]; !ok {
		return false
	}
	delete(n.vars, key)
	n.varKeys = slices.DeleteFunc(n.varKeys, func(k variant.StringHash) bool { return k == key })
	return true
}

// VarKeys returns variable keys in insertion order.
func (n *Node) VarKeys() []variant.StringHash { return slices.Clone(n.varKeys) }

// VarCount returns the number of user variables.
func (n *Node) VarCount() int { return len(n.varKeys) }

// NetworkAttributes implements Serializable.
func (n *Node) NetworkAttributes() []AttributeInfo { return nodeAttributes }

// Attribute implements Serializable.
func (n *Node) Attribute(i int) variant.Value {
	switch i {
	case attrEnabled:
		return variant.Bool(n.enabled)
	case attrName:
		return variant.String(n.name)
	case attrTags:
		return variant.StringVector(slices.Clone(n.tags))
	case attrPosition:
		return n.position
	case attrRotation:
		return n.rotation
	case attrScale:
		return n.scale
	case attrParent:
		if n.parent == nil {
			return variant.Int(0)
		}
		return variant.Int(int32(n.parent.id))
	default:
		return nil
	}
}

// SetAttribute implements Serializable. Position and rotation go to a
// smoothing behavior's target when the node has one.
func (n *Node) SetAttribute(i int, v variant.Value) error {
	if i < 0 || i >= len(nodeAttributes) {
		return fmt.Errorf("node attribute index %d out of range", i)
	}
	if v == nil || v.Type() != nodeAttributes[i].Type {
		return fmt.Errorf("%w: %q wants %v", ErrAttributeType, nodeAttributes[i].Name, nodeAttributes[i].Type)
	}
	switch i {
	case attrEnabled:
		n.enabled = bool(v.(variant.Bool))
	case attrName:
		n.name = string(v.(variant.String))
	case attrTags:
		n.tags = slices.Clone([]string(v.(variant.StringVector)))
	case attrPosition:
		if st := n.smoothing(); st != nil {
			st.SetTargetPosition(v.(variant.Vector3))
		} else {
			n.position = v.(variant.Vector3)
		}
	case attrRotation:
		if st := n.smoothing(); st != nil {
			st.SetTargetRotation(v.(variant.Quaternion))
		} else {
			n.rotation = v.(variant.Quaternion)
		}
	case attrScale:
		n.scale = v.(variant.Vector3)
	case attrParent:
		return n.setNetParent(uint32(v.(variant.Int)))
	}
	return nil
}

func (n *Node) setNetParent(id uint32) error {
	if n.scene == nil {
		return ErrRemoved
	}
	parent := n.scene.Node(id)
	if parent == nil {
		return fmt.Errorf("%w: node %d not found", ErrInvalidParent, id)
	}
	return n.SetParent(parent)
}

// ApplyAttributes runs the late-apply hook of every component and then
// recurses into children.
func (n *Node) ApplyAttributes() {
	for _, c := range n.components {
		c.ApplyAttributes()
	}
	for _, child := range n.children {
		child.ApplyAttributes()
	}
}

func (n *Node) smoothing() *SmoothedTransform {
	for _, c := range n.components {
		if st, ok := c.behavior.(*SmoothedTransform); ok {
			return st
		}
	}
	return nil
}
