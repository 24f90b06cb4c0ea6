package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/variant"
)

func TestRegistry_HasHealthAndSmoothing(t *testing.T) {
	reg := Registry(t)

	health, ok := reg.ClassByName("Health")
	require.True(t, ok)
	require.Len(t, health.NetworkAttributes(), 2)
	assert.Equal(t, "Current", health.NetworkAttributes()[0].Name)
	assert.Equal(t, "Regen", health.NetworkAttributes()[1].Name)

	_, ok = reg.ClassByName(scene.SmoothedTransformName)
	assert.True(t, ok)
}

func TestNodeAndComponent(t *testing.T) {
	s := scene.New(Registry(t))
	n := Node(t, s.Root(), 5, "crate")
	c := Component(t, n, "Health", 0)

	assert.Equal(t, uint32(5), n.ID())
	assert.Equal(t, "crate", n.Name())
	v, ok := c.Get("Current")
	require.True(t, ok)
	assert.Equal(t, variant.Int(100), v)
}

func TestSilentLogger(t *testing.T) {
	l := SilentLogger()
	l.Error("discarded")
	assert.NotNil(t, l)
}
