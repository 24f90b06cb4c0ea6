package snapshot

import (
	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/variant"
	"github.com/roach88/replica/internal/wire"
)

// WriteState encodes the live registered roots of s into a new buffer.
// Expired roots are compacted out of the registration list first. Roots
// attached to a different scene are left registered but not written.
func (e *Engine) WriteState(s *scene.Scene) []byte {
	var w wire.Writer
	e.AppendState(&w, s)
	return w.Bytes()
}

// AppendState is WriteState writing into an existing buffer.
func (e *Engine) AppendState(w *wire.Writer, s *scene.Scene) {
	e.compact()

	live := make([]*scene.Node, 0, len(e.roots))
	for _, wp := range e.roots {
		if n := wp.Value(); n != nil && n.Scene() == s {
			live = append(live, n)
		}
	}

	w.WriteVLE(uint32(len(live)))
	for _, n := range live {
		e.writeEntity(w, n)
	}
}

func (e *Engine) writeEntity(w *wire.Writer, n *scene.Node) {
	w.WriteUint32(n.ID())
	e.writeAttributes(w, n)

	keys := n.VarKeys()
	w.WriteVLE(uint32(len(keys)))
	for _, k := range keys {
		v, _ := n.Var(k)
		w.WriteStringHash(k)
		w.WriteVariant(v)
	}

	components := n.Components()
	w.WriteVLE(uint32(len(components)))
	for _, c := range components {
		e.writeComponent(w, c)
	}

	children := n.Children()
	w.WriteVLE(uint32(len(children)))
	for _, child := range children {
		e.writeEntity(w, child)
	}
}

func (e *Engine) writeComponent(w *wire.Writer, c *scene.Component) {
	w.WriteUint32(c.ID())
	w.WriteStringHash(c.Type())
	e.writeAttributes(w, c)
}

// writeAttributes writes every network attribute as untagged value data in
// its declared kind.
func (e *Engine) writeAttributes(w *wire.Writer, obj scene.Serializable) {
	write := func(w *wire.Writer) {
		for i, attr := range obj.NetworkAttributes() {
			if skipAttribute(obj, attr) {
				continue
			}
			w.WriteVariantData(variant.As(obj.Attribute(i), attr.Type))
		}
	}
	if e.framed {
		w.WriteFrame(write)
		return
	}
	write(w)
}

// skipAttribute excludes the parent attribute unless obj is intercepted.
// Without interception the snapshot's tree shape decides parenthood.
func skipAttribute(obj scene.Serializable, attr scene.AttributeInfo) bool {
	return attr.Name == scene.ParentAttribute && !obj.Intercepted()
}
