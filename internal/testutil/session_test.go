package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedSessionGenerator("match-7")
	assert.Equal(t, "match-7", gen.Generate())
	assert.Equal(t, "match-7", gen.Generate())
}

func TestFixedSessionGenerator_EmptyDefault(t *testing.T) {
	assert.Equal(t, "test-session-default", NewFixedSessionGenerator("").Generate())
}
