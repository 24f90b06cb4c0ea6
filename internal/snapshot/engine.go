package snapshot

import (
	"log/slog"
	"slices"
	"weak"

	"github.com/roach88/replica/internal/scene"
)

// Engine tracks a set of root nodes and moves their state through snapshots.
type Engine struct {
	roots []weak.Pointer[scene.Node]

	// Working set of a read pass. unused holds registered roots not yet seen;
	// pending keeps them in registration order for pruning.
	unused  map[*scene.Node]struct{}
	pending []*scene.Node

	logger       *slog.Logger
	framed       bool
	pruneVars    bool
	interceptNew bool
	autoRegister bool
	holdPrune    bool
	snap         func(*scene.Node)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for recoverable decode problems.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFraming length-prefixes every attribute stream. Unknown component
// types are then skipped cleanly and a short attribute stream never shifts
// later fields. Both peers must use the same setting.
func WithFraming(on bool) Option {
	return func(e *Engine) { e.framed = on }
}

// WithPruneMissingVariables removes node variables absent from a snapshot.
// By default variables are sticky: a read only ever sets them.
func WithPruneMissingVariables(on bool) Option {
	return func(e *Engine) { e.pruneVars = on }
}

// WithInterceptNewEntities marks nodes created by a read as intercepted
// before their attributes are read, so their parent attribute is applied.
//
// Interception changes the attribute layout of a node and is not carried on
// the wire. The writer must have marked the same nodes intercepted, or every
// field after the parent slot is misread.
func WithInterceptNewEntities(on bool) Option {
	return func(e *Engine) { e.interceptNew = on }
}

// WithAutoRegister registers root-level nodes created by a read as roots,
// making them subject to pruning by later snapshots.
func WithAutoRegister(on bool) Option {
	return func(e *Engine) { e.autoRegister = on }
}

// WithSkipPruneOnDesync keeps registered roots when an unframed read met an
// unknown component type. Roots are pruned by default.
func WithSkipPruneOnDesync(on bool) Option {
	return func(e *Engine) { e.holdPrune = on }
}

// WithSnapFunc replaces the smoothing snap applied once to every node
// created by a read.
func WithSnapFunc(fn func(*scene.Node)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.snap = fn
		}
	}
}

// New creates an Engine with no registered roots.
func New(opts ...Option) *Engine {
	e := &Engine{
		unused: make(map[*scene.Node]struct{}),
		logger: slog.Default(),
		snap:   SnapSmoothing,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Framed reports whether attribute streams are length-prefixed.
func (e *Engine) Framed() bool { return e.framed }

// SnapSmoothing calls SnapToTarget on every component behavior of n that
// supports it.
func SnapSmoothing(n *scene.Node) {
	for _, c := range n.Components() {
		if s, ok := c.Behavior().(scene.Snapper); ok {
			s.SnapToTarget()
		}
	}
}

// Register adds n to the tracked roots. The engine holds a weak reference
// only. Registering the same node twice has no effect.
func (e *Engine) Register(n *scene.Node) {
	if n == nil || n.Removed() {
		return
	}
	wp := weak.Make(n)
	if slices.Contains(e.roots, wp) {
		return
	}
	e.roots = append(e.roots, wp)
}

// Roots returns the live registered roots in registration order.
func (e *Engine) Roots() []*scene.Node {
	out := make([]*scene.Node, 0, len(e.roots))
	for _, wp := range e.roots {
		if n, ok := alive(wp); ok {
			out = append(out, n)
		}
	}
	return out
}

// RegisteredCount returns the length of the registration list, including
// references that expired since the last write pass.
func (e *Engine) RegisteredCount() int { return len(e.roots) }

// alive resolves a weak reference to a node still attached to a scene.
func alive(wp weak.Pointer[scene.Node]) (*scene.Node, bool) {
	n := wp.Value()
	if n == nil || n.Removed() {
		return nil, false
	}
	return n, true
}

// compact drops expired references, keeping the order of the rest.
func (e *Engine) compact() {
	e.roots = slices.DeleteFunc(e.roots, func(wp weak.Pointer[scene.Node]) bool {
		_, ok := alive(wp)
		return !ok
	})
}
