package scene

import (
	"fmt"
	"math"
	"slices"
)

// CreateMode records whether an object is shared with peers or client-only.
type CreateMode uint8

const (
	Replicated CreateMode = iota
	Local
)

func (m CreateMode) String() string {
	if m == Local {
		return "local"
	}
	return "replicated"
}

// FirstLocalID is the first id of the local range.
const FirstLocalID uint32 = 0x01000000

// Scene is a tree of nodes rooted at an id-0 root node.
type Scene struct {
	root       *Node
	registry   *Registry
	nodes      map[uint32]*Node
	components map[uint32]*Component

	nextNode      [2]uint32 // indexed by CreateMode
	nextComponent [2]uint32
}

// New returns an empty scene. A nil registry uses DefaultRegistry.
func New(reg *Registry) *Scene {
	if reg == nil {
		reg = DefaultRegistry()
	}
	s := &Scene{
		registry:      reg,
		nodes:         make(map[uint32]*Node),
		components:    make(map[uint32]*Component),
		nextNode:      [2]uint32{1, FirstLocalID},
		nextComponent: [2]uint32{1, FirstLocalID},
	}
	s.root = newNode(s, 0, Replicated)
	s.root.name = "Root"
	return s
}

// Root returns the root node. It is never replicated.
func (s *Scene) Root() *Node { return s.root }

// Registry returns the component class registry.
func (s *Scene) Registry() *Registry { return s.registry }

// Node looks up a node by id. Id 0 is the root.
func (s *Scene) Node(id uint32) *Node {
	if id == 0 {
		return s.root
	}
	return s.nodes[id]
}

// Component looks up a component by id anywhere in the scene.
func (s *Scene) Component(id uint32) *Component {
	return s.components[id]
}

// NodeCount returns the number of nodes excluding the root.
func (s *Scene) NodeCount() int { return len(s.nodes) }

// ComponentCount returns the number of live components.
func (s *Scene) ComponentCount() int { return len(s.components) }

// NodeIDs returns the ids of all nodes except the root, ascending.
func (s *Scene) NodeIDs() []uint32 {
	ids := make([]uint32, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func rangeEnd(mode CreateMode) uint32 {
	if mode == Local {
		return math.MaxUint32
	}
	return FirstLocalID - 1
}

func rangeStart(mode CreateMode) uint32 {
	if mode == Local {
		return FirstLocalID
	}
	return 1
}

// allocate finds the next free id in the mode's range, wrapping once.
func allocate[T any](next *[2]uint32, used map[uint32]T, mode CreateMode) (uint32, error) {
	start, end := rangeStart(mode), rangeEnd(mode)
	id := next[mode]
	for range uint64(end-start) + 1 {
		if _, taken := used[id]; !taken {
			if id == end {
				next[mode] = start
			} else {
				next[mode] = id + 1
			}
			return id, nil
		}
		if id == end {
			id = start
		} else {
			id++
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrIDSpaceExhausted, mode)
}

func (s *Scene) claimNodeID(id uint32, mode CreateMode) (uint32, error) {
	if id == 0 {
		return allocate(&s.nextNode, s.nodes, mode)
	}
	if _, taken := s.nodes[id]; taken {
		return 0, fmt.Errorf("%w: node %d", ErrDuplicateID, id)
	}
	return id, nil
}

func (s *Scene) claimComponentID(id uint32, mode CreateMode) (uint32, error) {
	if id == 0 {
		return allocate(&s.nextComponent, s.components, mode)
	}
	if _, taken := s.components[id]; taken {
		return 0, fmt.Errorf("%w: component %d", ErrDuplicateID, id)
	}
	return id, nil
}
