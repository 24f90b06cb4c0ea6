package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replica/internal/variant"
)

func TestDump_Canonical(t *testing.T) {
	s := New(nil)
	n, err := s.Root().CreateChild(1, Replicated)
	require.NoError(t, err)
	n.SetName("crate")
	n.SetVar(variant.StringHash(0x10), variant.Int(5))
	_, err = n.CreateChild(2, Replicated)
	require.NoError(t, err)

	data, err := variant.MarshalCanonical(Dump(s))
	require.NoError(t, err)

	expected := `{"nodes":[{"children":[{"children":[],"components":[],"enabled":true,"id":2,` +
		`"name":"","position":[0,0,0],"rotation":[1,0,0,0],"scale":[1,1,1],"tags":[],"vars":{}}],` +
		`"components":[],"enabled":true,"id":1,"name":"crate","position":[0,0,0],` +
		`"rotation":[1,0,0,0],"scale":[1,1,1],"tags":[],"vars":{"0x00000010":5}}]}`
	assert.Equal(t, expected, string(data))
}

func TestDump_Components(t *testing.T) {
	s := New(nil)
	n, _ := s.Root().CreateChild(1, Replicated)
	_, err := n.CreateComponent(variant.Hash(SmoothedTransformName), Replicated, 7)
	require.NoError(t, err)

	d := DumpNode(n)
	comps := d["components"].([]any)
	require.Len(t, comps, 1)
	comp := comps[0].(map[string]any)
	assert.Equal(t, int64(7), comp["id"])
	assert.Equal(t, SmoothedTransformName, comp["type"])
	assert.Contains(t, comp["attributes"], "Smoothing Constant")
}
