package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/testutil"
	"github.com/roach88/replica/internal/variant"
)

func newTestEngine(opts ...Option) *Engine {
	return New(append([]Option{WithLogger(testutil.SilentLogger())}, opts...)...)
}

// dump returns the canonical JSON of the whole scene.
func dump(t *testing.T, s *scene.Scene) string {
	t.Helper()
	b, err := variant.MarshalCanonical(scene.Dump(s))
	require.NoError(t, err)
	return string(b)
}

type fixture struct {
	scene  *scene.Scene
	engine *Engine

	player *scene.Node
	weapon *scene.Node
	crate  *scene.Node
	health *scene.Component
}

// authority builds the authoritative scene used by most tests:
//
//	player(1) [Health] var score=7
//	  weapon(2)
//	crate(3)
func authority(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := scene.New(testutil.Registry(t))

	player := testutil.Node(t, s.Root(), 1, "player")
	player.SetPosition(variant.Vector3{X: 1, Y: 2, Z: 3})
	player.SetTags([]string{"hero"})
	player.SetVar(variant.Hash("score"), variant.Int(7))
	health := testutil.Component(t, player, "Health", 0)
	require.NoError(t, health.Set("Current", variant.Int(80)))

	weapon := testutil.Node(t, player, 2, "weapon")
	crate := testutil.Node(t, s.Root(), 3, "crate")

	e := newTestEngine(opts...)
	e.Register(player)
	e.Register(crate)
	return &fixture{scene: s, engine: e, player: player, weapon: weapon, crate: crate, health: health}
}

// client returns an empty scene and an engine that registers what it
// creates at the root.
func client(t *testing.T, opts ...Option) (*scene.Scene, *Engine) {
	t.Helper()
	opts = append([]Option{WithAutoRegister(true)}, opts...)
	return scene.New(testutil.Registry(t)), newTestEngine(opts...)
}
