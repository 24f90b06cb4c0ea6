package scene

import "github.com/roach88/replica/internal/variant"

// Dump renders the scene as plain data for MarshalCanonical. The root is
// omitted; its children are listed under "nodes" in insertion order.
func Dump(s *Scene) map[string]any {
	nodes := make([]any, 0, len(s.root.children))
	for _, child := range s.root.children {
		nodes = append(nodes, DumpNode(child))
	}
	return map[string]any{"nodes": nodes}
}

// DumpNode renders one node and its subtree.
func DumpNode(n *Node) map[string]any {
	vars := make(map[string]any, len(n.varKeys))
	for _, k := range n.varKeys {
		vars[k.String()] = variant.Plain(n.vars[k])
	}

	components := make([]any, 0, len(n.components))
	for _, c := range n.components {
		attrs := make(map[string]any, len(c.values))
		for i, attr := range c.class.Attributes {
			attrs[attr.Name] = variant.Plain(c.values[i])
		}
		components = append(components, map[string]any{
			"id":         int64(c.id),
			"type":       c.class.Name,
			"attributes": attrs,
		})
	}

	children := make([]any, 0, len(n.children))
	for _, child := range n.children {
		children = append(children, DumpNode(child))
	}

	return map[string]any{
		"id":         int64(n.id),
		"name":       n.name,
		"enabled":    n.enabled,
		"tags":       variant.Plain(variant.StringVector(n.tags)),
		"position":   variant.Plain(n.position),
		"rotation":   variant.Plain(n.rotation),
		"scale":      variant.Plain(n.scale),
		"vars":       vars,
		"components": components,
		"children":   children,
	}
}
