package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/variant"
)

// HealthClass is a small component class used across package tests. Label
// is local-only; Current and Regen are replicated.
func HealthClass() scene.Class {
	return scene.Class{
		Name: "Health",
		Attributes: []scene.AttributeInfo{
			{Name: "Current", Type: variant.TypeInt, Default: variant.Int(100), Net: true},
			{Name: "Label", Type: variant.TypeString, Default: variant.String("")},
			{Name: "Regen", Type: variant.TypeFloat, Default: variant.Float(0), Net: true},
		},
	}
}

// Registry returns the default registry plus HealthClass.
func Registry(t testing.TB) *scene.Registry {
	t.Helper()
	reg := scene.DefaultRegistry()
	if _, err := reg.Register(HealthClass()); err != nil {
		t.Fatalf("register Health: %v", err)
	}
	return reg
}

// Node creates a replicated child of parent with the given id, failing the
// test on error.
func Node(t testing.TB, parent *scene.Node, id uint32, name string) *scene.Node {
	t.Helper()
	n, err := parent.CreateChild(id, scene.Replicated)
	if err != nil {
		t.Fatalf("CreateChild(%d): %v", id, err)
	}
	n.SetName(name)
	return n
}

// Component attaches a component of the named class to n.
func Component(t testing.TB, n *scene.Node, class string, id uint32) *scene.Component {
	t.Helper()
	c, err := n.CreateComponent(variant.Hash(class), scene.Replicated, id)
	if err != nil {
		t.Fatalf("CreateComponent(%s): %v", class, err)
	}
	return c
}

// SilentLogger returns a logger that discards everything.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
