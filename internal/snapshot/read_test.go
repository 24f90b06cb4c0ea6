package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/testutil"
	"github.com/roach88/replica/internal/variant"
	"github.com/roach88/replica/internal/wire"
)

func TestReadState_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		framed bool
	}{
		{name: "unframed", framed: false},
		{name: "framed", framed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := authority(t, WithFraming(tt.framed))
			local, e := client(t, WithFraming(tt.framed))

			stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
			require.NoError(t, err)

			assert.Equal(t, dump(t, f.scene), dump(t, local))
			assert.Equal(t, ReadStats{
				EntitiesCreated:   3,
				ComponentsCreated: 1,
				VariablesSet:      1,
			}, stats)

			weapon := local.Node(2)
			require.NotNil(t, weapon)
			assert.Equal(t, uint32(1), weapon.Parent().ID())
			assert.Equal(t, scene.Local, weapon.Mode())

			health := local.Component(f.health.ID())
			require.NotNil(t, health)
			assert.Same(t, local.Node(1), health.Node())
		})
	}
}

func TestReadState_IdempotentRedecode(t *testing.T) {
	f := authority(t)
	local, e := client(t)
	buf := f.engine.WriteState(f.scene)

	_, err := e.ReadState(buf, local)
	require.NoError(t, err)
	first := dump(t, local)
	player := local.Node(1)
	health := local.Component(f.health.ID())

	stats, err := e.ReadState(buf, local)
	require.NoError(t, err)

	assert.Equal(t, first, dump(t, local))
	assert.Equal(t, 3, local.NodeCount())
	assert.Equal(t, 1, local.ComponentCount())
	assert.Same(t, player, local.Node(1), "existing entities are reused")
	assert.Same(t, health, local.Component(f.health.ID()), "existing components are reused")
	assert.Equal(t, ReadStats{
		EntitiesUpdated:   3,
		ComponentsUpdated: 1,
		VariablesSet:      1,
	}, stats)
}

func TestReadState_DeletionByAbsence(t *testing.T) {
	f := authority(t)
	local, e := client(t)
	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)
	player := local.Node(1)
	weapon := local.Node(2)
	crate := local.Node(3)

	f.player.Remove()
	stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EntitiesRemoved)
	assert.True(t, player.Removed())
	assert.True(t, weapon.Removed(), "removal cascades to children")
	assert.Nil(t, local.Node(1))
	assert.Nil(t, local.Component(f.health.ID()), "removal cascades to components")
	assert.Same(t, crate, local.Node(3))
	assert.False(t, crate.Removed())
}

func TestReadState_OnlyRegisteredRootsPruned(t *testing.T) {
	f := authority(t)
	local, e := client(t)
	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	// A local-only root the engine does not track survives any snapshot.
	effect := testutil.Node(t, local.Root(), 500, "effect")

	// Children absent from the snapshot are left alone.
	f.weapon.Remove()
	_, err = e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	assert.False(t, effect.Removed())
	assert.NotNil(t, local.Node(2))
}

func TestReadState_WithoutAutoRegisterNothingPruned(t *testing.T) {
	f := authority(t)
	local := scene.New(testutil.Registry(t))
	e := newTestEngine()
	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)
	assert.Equal(t, 0, e.RegisteredCount())

	f.crate.Remove()
	_, err = e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)
	assert.NotNil(t, local.Node(3))

	// Explicit registration makes it prunable.
	e.Register(local.Node(3))
	stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntitiesRemoved)
	assert.Nil(t, local.Node(3))
}

func TestReadState_ComponentIdentityChurn(t *testing.T) {
	f := authority(t)
	local, e := client(t)
	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)
	id := f.health.ID()
	old := local.Component(id)
	require.NotNil(t, old)

	f.health.Remove()
	testutil.Component(t, f.player, scene.SmoothedTransformName, id)

	stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ComponentsReplaced)
	assert.True(t, old.Removed())
	got := local.Component(id)
	require.NotNil(t, got)
	assert.Equal(t, variant.Hash(scene.SmoothedTransformName), got.Type())
	assert.Len(t, local.Node(1).Components(), 1, "old and new are never both present")
}

func TestReadState_ComponentMovedBetweenEntities(t *testing.T) {
	f := authority(t)
	local, e := client(t)
	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)
	id := f.health.ID()

	f.health.Remove()
	testutil.Component(t, f.crate, "Health", id)

	stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ComponentsReplaced)
	assert.Same(t, local.Node(3), local.Component(id).Node())
	assert.Empty(t, local.Node(1).Components())
}

func TestReadState_PartialAttributeStream(t *testing.T) {
	var w wire.Writer
	w.WriteVLE(1)
	w.WriteUint32(5)
	w.WriteBool(false) // Is Enabled; the remaining attributes are missing

	local, e := client(t)
	stats, err := e.ReadState(w.Bytes(), local)
	require.NoError(t, err)

	n := local.Node(5)
	require.NotNil(t, n)
	assert.False(t, n.Enabled())
	assert.Equal(t, "", n.Name())
	assert.Equal(t, variant.Vector3{X: 1, Y: 1, Z: 1}, n.Scale())
	assert.Equal(t, 1, stats.EntitiesCreated)
}

func TestReadState_PartialAttributeStreamFramed(t *testing.T) {
	var w wire.Writer
	w.WriteVLE(1)
	w.WriteUint32(5)
	w.WriteFrame(func(w *wire.Writer) {
		w.WriteBool(false)
		w.WriteString("crate")
	})
	w.WriteVLE(1)
	w.WriteStringHash(variant.Hash("hp"))
	w.WriteVariant(variant.Int(3))
	w.WriteVLE(0)
	w.WriteVLE(0)

	local, e := client(t, WithFraming(true))
	_, err := e.ReadState(w.Bytes(), local)
	require.NoError(t, err)

	n := local.Node(5)
	require.NotNil(t, n)
	assert.Equal(t, "crate", n.Name())
	assert.Equal(t, variant.IdentityQuaternion, n.Rotation())
	v, ok := n.Var(variant.Hash("hp"))
	require.True(t, ok, "fields after a short frame are intact")
	assert.Equal(t, variant.Int(3), v)
}

func TestReadState_FramedValueCutInsideFrame(t *testing.T) {
	var w wire.Writer
	w.WriteVLE(1)
	w.WriteUint32(5)
	w.WriteFrame(func(w *wire.Writer) {
		w.WriteBool(true)
		w.WriteVLE(200) // name length with no bytes behind it
	})
	w.WriteVLE(1)
	w.WriteStringHash(variant.Hash("hp"))
	w.WriteVariant(variant.Int(3))
	w.WriteVLE(0)
	w.WriteVLE(0)

	local, e := client(t, WithFraming(true))
	_, err := e.ReadState(w.Bytes(), local)
	require.NoError(t, err)

	n := local.Node(5)
	require.NotNil(t, n)
	assert.Equal(t, "", n.Name())
	_, ok := n.Var(variant.Hash("hp"))
	assert.True(t, ok)
}

func TestReadState_NewEntitySnapsOnce(t *testing.T) {
	s := scene.New(testutil.Registry(t))
	n := testutil.Node(t, s.Root(), 1, "ship")
	st := testutil.Component(t, n, scene.SmoothedTransformName, 0).Behavior().(*scene.SmoothedTransform)
	n.SetPosition(variant.Vector3{X: 1, Y: 2, Z: 3})
	st.SetTargetPosition(variant.Vector3{X: 1, Y: 2, Z: 3})
	remote := newTestEngine()
	remote.Register(n)

	local, e := client(t)
	_, err := e.ReadState(remote.WriteState(s), local)
	require.NoError(t, err)

	ln := local.Node(1)
	require.NotNil(t, ln)
	lst := ln.Components()[0].Behavior().(*scene.SmoothedTransform)
	assert.Equal(t, 1, lst.Snaps())
	assert.Equal(t, variant.Vector3{X: 1, Y: 2, Z: 3}, ln.Position())

	n.SetPosition(variant.Vector3{X: 5})
	st.SetTargetPosition(variant.Vector3{X: 5})
	_, err = e.ReadState(remote.WriteState(s), local)
	require.NoError(t, err)

	assert.Equal(t, 1, lst.Snaps(), "existing entities are not snapped")
	assert.Equal(t, variant.Vector3{X: 1, Y: 2, Z: 3}, ln.Position())
	assert.Equal(t, variant.Vector3{X: 5}, lst.TargetPosition())
}

func TestReadState_SnapFuncCalledForNewEntitiesOnly(t *testing.T) {
	f := authority(t)
	var snapped []uint32
	local, e := client(t, WithSnapFunc(func(n *scene.Node) { snapped = append(snapped, n.ID()) }))
	buf := f.engine.WriteState(f.scene)

	_, err := e.ReadState(buf, local)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{1, 2, 3}, snapped)

	snapped = nil
	_, err = e.ReadState(buf, local)
	require.NoError(t, err)
	assert.Empty(t, snapped)
}

func TestReadState_ComponentLateApply(t *testing.T) {
	reg := testutil.Registry(t)
	applied := 0
	class := scene.Class{
		Name:       "Counter",
		Attributes: []scene.AttributeInfo{{Name: "Value", Type: variant.TypeInt, Net: true}},
		Factory:    func(*scene.Component) any { return applier(func() { applied++ }) },
	}
	_, err := reg.Register(class)
	require.NoError(t, err)

	s := scene.New(reg)
	n := testutil.Node(t, s.Root(), 1, "a")
	testutil.Component(t, n, "Counter", 0)
	testutil.Node(t, n, 2, "child")
	remote := newTestEngine()
	remote.Register(n)
	buf := remote.WriteState(s)
	applied = 0

	local := scene.New(reg)
	_, err = newTestEngine().ReadState(buf, local)
	require.NoError(t, err)
	assert.Equal(t, 1, applied, "one late apply per component, none cascading from entities")
}

type applier func()

func (a applier) ApplyAttributes() { a() }

func TestReadState_UnknownComponentFramedSkipped(t *testing.T) {
	f := authority(t, WithFraming(true))

	// The client does not know the Health class.
	local := scene.New(scene.DefaultRegistry())
	e := newTestEngine(WithFraming(true), WithAutoRegister(true))
	stale := testutil.Node(t, local.Root(), 9, "stale")
	e.Register(stale)

	stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ComponentsSkipped)
	assert.False(t, stats.Desynchronized)
	assert.Equal(t, "weapon", local.Node(2).Name(), "siblings after the skipped component decode")
	assert.Equal(t, "crate", local.Node(3).Name())
	assert.True(t, stale.Removed(), "a clean skip still prunes")
}

func TestReadState_UnknownComponentUnframedDesynchronizes(t *testing.T) {
	s := scene.New(testutil.Registry(t))
	n := testutil.Node(t, s.Root(), 1, "player")
	h := testutil.Component(t, n, "Health", 0)
	require.NoError(t, h.Set("Current", variant.Int(0)))
	remote := newTestEngine()
	remote.Register(n)
	buf := remote.WriteState(s)

	tests := []struct {
		name        string
		opts        []Option
		wantRemoved bool
	}{
		{"prunes by default", nil, true},
		{"skip prune on desync", []Option{WithSkipPruneOnDesync(true)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := scene.New(scene.DefaultRegistry())
			e := newTestEngine(append([]Option{WithAutoRegister(true)}, tt.opts...)...)
			stale := testutil.Node(t, local.Root(), 9, "stale")
			e.Register(stale)

			stats, err := e.ReadState(buf, local)
			require.NoError(t, err)

			assert.True(t, stats.Desynchronized)
			assert.Equal(t, 1, stats.ComponentsSkipped)
			assert.Equal(t, tt.wantRemoved, stale.Removed())
			assert.NotNil(t, local.Node(1))
		})
	}
}

func TestReadState_UnknownComponentWithoutAttributesPrunes(t *testing.T) {
	reg := scene.DefaultRegistry()
	_, err := reg.Register(scene.Class{Name: "Marker"})
	require.NoError(t, err)
	s := scene.New(reg)
	n := testutil.Node(t, s.Root(), 1, "flag")
	testutil.Component(t, n, "Marker", 0)
	remote := newTestEngine()
	remote.Register(n)

	local := scene.New(scene.DefaultRegistry())
	e := newTestEngine()
	stale := testutil.Node(t, local.Root(), 9, "stale")
	e.Register(stale)

	stats, err := e.ReadState(remote.WriteState(s), local)
	require.NoError(t, err)

	assert.Equal(t, ReadStats{EntitiesCreated: 1, EntitiesRemoved: 1, ComponentsSkipped: 1, Desynchronized: true}, stats)
	assert.True(t, stale.Removed())
	require.NotNil(t, local.Node(1))
	assert.Equal(t, "flag", local.Node(1).Name())
}

func TestReadState_VariablesSticky(t *testing.T) {
	f := authority(t)
	f.player.SetVar(variant.Hash("shield"), variant.Float(0.5))
	local, e := client(t)
	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	f.player.RemoveVar(variant.Hash("shield"))
	f.player.SetVar(variant.Hash("score"), variant.Int(8))
	stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	n := local.Node(1)
	v, ok := n.Var(variant.Hash("shield"))
	require.True(t, ok, "absent variables are kept by default")
	assert.Equal(t, variant.Float(0.5), v)
	v, _ = n.Var(variant.Hash("score"))
	assert.Equal(t, variant.Int(8), v)
	assert.Equal(t, 0, stats.VariablesPruned)
}

func TestReadState_PruneMissingVariables(t *testing.T) {
	f := authority(t)
	f.player.SetVar(variant.Hash("shield"), variant.Float(0.5))
	local, e := client(t, WithPruneMissingVariables(true))
	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	f.player.RemoveVar(variant.Hash("shield"))
	stats, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)

	n := local.Node(1)
	_, ok := n.Var(variant.Hash("shield"))
	assert.False(t, ok)
	assert.Equal(t, 1, n.VarCount())
	assert.Equal(t, 1, stats.VariablesPruned)
}

func TestReadState_InterceptNewEntities(t *testing.T) {
	f := authority(t)
	plain := len(f.engine.WriteState(f.scene))

	for _, n := range []*scene.Node{f.player, f.weapon, f.crate} {
		n.SetIntercepted(true)
	}
	buf := f.engine.WriteState(f.scene)
	assert.Equal(t, plain+3*4, len(buf), "intercepted nodes carry the parent attribute")

	local, e := client(t, WithInterceptNewEntities(true))
	_, err := e.ReadState(buf, local)
	require.NoError(t, err)

	for _, id := range []uint32{1, 2, 3} {
		assert.True(t, local.Node(id).Intercepted(), "node %d", id)
	}
	assert.Same(t, local.Node(1), local.Node(2).Parent())
	assert.Equal(t, dump(t, f.scene), dump(t, local))
}

func TestReadState_TruncatedNeverPrunes(t *testing.T) {
	s := scene.New(testutil.Registry(t))
	testutil.Node(t, s.Root(), 1, "hello world")
	remote := newTestEngine()
	remote.Register(s.Node(1))
	full := remote.WriteState(s)

	local, e := client(t)
	stale := testutil.Node(t, local.Root(), 9, "stale")
	e.Register(stale)

	// count, id, enabled, name length and two bytes of the name
	_, err := e.ReadState(full[:9], local)
	require.Error(t, err)
	assert.True(t, IsTruncated(err))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, uint32(1), de.EntityID)
	assert.False(t, stale.Removed())
}

func TestReadState_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		buf       []byte
		truncated bool
	}{
		{name: "empty buffer", buf: nil, truncated: true},
		{name: "entity id zero", buf: []byte{1, 0, 0, 0, 0}},
		{name: "root count overflow", buf: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x0f}},
		{name: "root count exceeds buffer", buf: []byte{0x80, 0x01}, truncated: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, e := client(t)
			stale := testutil.Node(t, local.Root(), 9, "stale")
			e.Register(stale)

			_, err := e.ReadState(tt.buf, local)
			require.Error(t, err)
			assert.Equal(t, tt.truncated, IsTruncated(err))
			assert.Equal(t, !tt.truncated, IsMalformed(err))
			assert.False(t, stale.Removed())
		})
	}
}

func TestReadState_ShortStreamAfterAttributes(t *testing.T) {
	// A stream that ends after the attributes reads the counts as zero.
	f := authority(t)
	f.player.Remove()
	full := f.engine.WriteState(f.scene)
	// Drop the trailing var, component and child counts of the crate.
	buf := full[:len(full)-3]

	local, e := client(t)
	stats, err := e.ReadState(buf, local)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntitiesCreated)
	assert.NotNil(t, local.Node(3))
}

func TestReadState_ExistingEntityNotReparented(t *testing.T) {
	f := authority(t)
	local, e := client(t)
	// Node 2 exists locally as a root; the snapshot nests it under node 1.
	// It is updated in place, not reparented.
	testutil.Node(t, local.Root(), 2, "weapon")

	_, err := e.ReadState(f.engine.WriteState(f.scene), local)
	require.NoError(t, err)
	assert.True(t, local.Node(2).Parent().IsRoot())
}
