package snapshot

import (
	"errors"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/variant"
	"github.com/roach88/replica/internal/wire"
)

// Minimum encoded sizes, used to reject impossible counts before looping.
const (
	minEntitySize    = 4 // id; the counts may be cut off by a short stream
	minComponentSize = 8 // id + type
	minVarSize       = 5 // key + tag
)

// readPass holds the state of one ReadState call.
type readPass struct {
	e     *Engine
	s     *scene.Scene
	stats ReadStats
}

// ReadState reconciles s against the snapshot in buf.
//
// Registered roots of s that the snapshot does not mention are removed
// (cascading) once the whole buffer has been read. A *DecodeError is
// returned when the buffer cannot be framed and then nothing is pruned.
// A stream that desynchronized on an unknown component type is still pruned
// unless WithSkipPruneOnDesync is set. Changes applied before a failure are
// kept.
func (e *Engine) ReadState(buf []byte, s *scene.Scene) (ReadStats, error) {
	e.seedUnused(s)
	defer e.clearUnused()

	p := &readPass{e: e, s: s}
	r := wire.NewReader(buf)

	count, err := r.ReadCount(minEntitySize)
	if err != nil {
		return p.stats, decodeError(err, 0, "reading root count")
	}
	for range count {
		if err := p.readEntity(r, s.Root()); err != nil {
			return p.stats, err
		}
	}
	if !r.EOF() {
		e.logger.Warn("trailing bytes after snapshot", "offset", r.Offset(), "remaining", r.Remaining())
	}

	if p.stats.Desynchronized && e.holdPrune {
		e.logger.Error("snapshot desynchronized, skipping prune", "pending", len(e.unused))
		return p.stats, nil
	}
	for _, n := range e.pending {
		if _, unused := e.unused[n]; unused && !n.Removed() {
			e.logger.Debug("removing absent root", "id", n.ID())
			n.Remove()
			p.stats.EntitiesRemoved++
		}
	}
	return p.stats, nil
}

// seedUnused fills the working set with the live roots attached to s.
func (e *Engine) seedUnused(s *scene.Scene) {
	e.clearUnused()
	for _, wp := range e.roots {
		n, ok := alive(wp)
		if !ok || n.Scene() != s {
			continue
		}
		if _, dup := e.unused[n]; dup {
			continue
		}
		e.unused[n] = struct{}{}
		e.pending = append(e.pending, n)
	}
}

// clearUnused empties the working set so it holds no strong references
// between passes.
func (e *Engine) clearUnused() {
	clear(e.unused)
	clear(e.pending)
	e.pending = e.pending[:0]
}

func (p *readPass) entities(parent *scene.Node) resolver[*scene.Node] {
	return resolver[*scene.Node]{
		lookup: func(id uint32) (*scene.Node, bool) {
			n := p.s.Node(id)
			return n, n != nil
		},
		create: func(id uint32) (*scene.Node, error) {
			return parent.CreateChild(id, scene.Local)
		},
	}
}

func (p *readPass) components(owner *scene.Node, typ variant.StringHash) resolver[*scene.Component] {
	return resolver[*scene.Component]{
		lookup: func(id uint32) (*scene.Component, bool) {
			c := p.s.Component(id)
			return c, c != nil
		},
		matches: func(c *scene.Component) bool {
			return c.Type() == typ && c.Node() == owner
		},
		destroy: func(c *scene.Component) {
			c.Remove()
		},
		create: func(id uint32) (*scene.Component, error) {
			return owner.CreateComponent(typ, scene.Local, id)
		},
	}
}

func (p *readPass) readEntity(r *wire.Reader, parent *scene.Node) error {
	id, err := r.ReadUint32()
	if err != nil {
		return decodeError(err, 0, "reading entity id")
	}
	if id == 0 {
		return &DecodeError{Code: ErrCodeMalformed, Message: "entity id 0 is reserved for the scene root", Offset: r.Offset() - 4}
	}

	n, res, err := p.entities(parent).resolve(id)
	if err != nil {
		return &DecodeError{Code: ErrCodeEntityCreate, Message: err.Error(), Offset: r.Offset(), EntityID: id, Err: err}
	}
	isNew := res == resolvedCreated
	if isNew {
		p.stats.EntitiesCreated++
		if p.e.interceptNew {
			n.SetIntercepted(true)
		}
		if p.e.autoRegister && parent.IsRoot() {
			p.e.Register(n)
		}
	} else {
		delete(p.e.unused, n)
		p.stats.EntitiesUpdated++
	}

	if err := p.readObject(r, n, entityKind); err != nil {
		return withEntity(err, id)
	}

	varCount, err := p.readCount(r, minVarSize)
	if err != nil {
		return decodeError(err, id, "reading variable count")
	}
	var seen map[variant.StringHash]struct{}
	if p.e.pruneVars {
		seen = make(map[variant.StringHash]struct{}, varCount)
	}
	for range varCount {
		key, err := r.ReadStringHash()
		if err != nil {
			return decodeError(err, id, "reading variable key")
		}
		v, err := r.ReadVariant()
		if err != nil {
			return decodeError(err, id, "reading variable value")
		}
		n.SetVar(key, v)
		p.stats.VariablesSet++
		if seen != nil {
			seen[key] = struct{}{}
		}
	}
	if seen != nil {
		for _, key := range n.VarKeys() {
			if _, ok := seen[key]; !ok {
				n.RemoveVar(key)
				p.stats.VariablesPruned++
			}
		}
	}

	compCount, err := p.readCount(r, minComponentSize)
	if err != nil {
		return decodeError(err, id, "reading component count")
	}
	for range compCount {
		if err := p.readComponent(r, n); err != nil {
			return withEntity(err, id)
		}
	}

	// Snap after components rather than between attributes and variables,
	// so a smoothing component created by this pass lands on its target.
	if isNew {
		p.e.snap(n)
	}

	childCount, err := p.readCount(r, minEntitySize)
	if err != nil {
		return decodeError(err, id, "reading child count")
	}
	for range childCount {
		if err := p.readEntity(r, n); err != nil {
			return err
		}
	}
	return nil
}

// readCount reads a per-entity count. A stream that ends exactly before
// the count reads as zero, matching the tolerance for short attribute
// streams.
func (p *readPass) readCount(r *wire.Reader, minSize int) (int, error) {
	if r.EOF() {
		return 0, nil
	}
	return r.ReadCount(minSize)
}

func (p *readPass) readComponent(r *wire.Reader, owner *scene.Node) error {
	id, err := r.ReadUint32()
	if err != nil {
		return decodeError(err, 0, "reading component id")
	}
	typ, err := r.ReadStringHash()
	if err != nil {
		return decodeError(err, 0, "reading component type")
	}

	c, res, err := p.components(owner, typ).resolve(id)
	if err != nil {
		return p.skipComponent(r, owner, id, typ, err)
	}
	switch res {
	case resolvedCreated:
		p.stats.ComponentsCreated++
	case resolvedReplaced:
		p.stats.ComponentsReplaced++
	default:
		p.stats.ComponentsUpdated++
	}
	return p.readObject(r, c, componentKind)
}

// skipComponent handles a component that could not be constructed. In a
// framed stream its attribute frame is skipped. Otherwise the attribute
// bytes cannot be delimited; the read continues in a desynchronized state.
func (p *readPass) skipComponent(r *wire.Reader, owner *scene.Node, id uint32, typ variant.StringHash, cause error) error {
	p.stats.ComponentsSkipped++
	if p.e.framed {
		p.e.logger.Warn("skipping component",
			"id", id,
			"type", typ.String(),
			"node", owner.ID(),
			"error", cause,
		)
		if _, err := r.ReadFrame(); err != nil {
			return decodeError(err, 0, "skipping component frame")
		}
		return nil
	}
	p.e.logger.Error("component creation failed, snapshot desynchronized",
		"id", id,
		"type", typ.String(),
		"node", owner.ID(),
		"error", cause,
	)
	p.stats.Desynchronized = true
	return nil
}

// readObject reads the attribute stream of obj and runs its late-apply hook
// when the kind has one.
func (p *readPass) readObject(r *wire.Reader, obj scene.Serializable, kind objectKind) error {
	if err := p.readAttributes(r, obj); err != nil {
		return err
	}
	if kind.lateApply() {
		obj.ApplyAttributes()
	}
	return nil
}

// readAttributes sets attributes in declared order until the descriptors or
// the source run out. Rejected values are logged and skipped.
func (p *readPass) readAttributes(r *wire.Reader, obj scene.Serializable) error {
	src := r
	if p.e.framed {
		frame, err := r.ReadFrame()
		if err != nil {
			return decodeError(err, 0, "reading attribute frame")
		}
		src = frame
	}

	for i, attr := range obj.NetworkAttributes() {
		if src.EOF() {
			break
		}
		if skipAttribute(obj, attr) {
			continue
		}
		v, err := src.ReadVariantData(attr.Type)
		if err != nil {
			if p.e.framed {
				// The frame bounds the damage; later fields are intact.
				p.e.logger.Warn("attribute frame ended inside a value", "attribute", attr.Name, "error", err)
				return nil
			}
			return decodeError(err, 0, "reading attribute "+attr.Name)
		}
		if err := obj.SetAttribute(i, v); err != nil {
			p.e.logger.Warn("attribute rejected", "attribute", attr.Name, "error", err)
		}
	}
	return nil
}

// withEntity fills in the entity id of a DecodeError that lacks one.
func withEntity(err error, id uint32) error {
	var de *DecodeError
	if errors.As(err, &de) && de.EntityID == 0 {
		de.EntityID = id
	}
	return err
}
