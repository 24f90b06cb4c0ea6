package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/variant"
)

// AssertionError describes one failed expectation.
type AssertionError struct {
	Check    string // expect clause, e.g. "present" or "components"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluate runs every expect clause against the client scene.
func (h *Harness) evaluate(result *Result) {
	exp := h.scenario.Expect
	var errs []error

	for _, id := range exp.Present {
		if h.local.Node(id) == nil {
			errs = append(errs, &AssertionError{
				Check:    "present",
				Expected: fmt.Sprintf("node %d in client scene", id),
				Actual:   "missing",
			})
		}
	}
	for _, id := range exp.Absent {
		if n := h.local.Node(id); n != nil {
			errs = append(errs, &AssertionError{
				Check:    "absent",
				Expected: fmt.Sprintf("node %d removed", id),
				Actual:   fmt.Sprintf("present (name %q)", n.Name()),
			})
		}
	}
	if exp.Snapped != nil {
		errs = append(errs, h.assertSnapped(exp.Snapped)...)
	}
	for _, c := range exp.Components {
		if err := h.assertComponent(c); err != nil {
			errs = append(errs, err)
		}
	}
	for _, v := range exp.Vars {
		errs = append(errs, h.assertVars(v)...)
	}
	errs = append(errs, assertStats(exp, result)...)

	for _, err := range errs {
		result.AddError(err.Error())
	}
}

// assertSnapped checks that exactly the listed nodes snapped, once each.
func (h *Harness) assertSnapped(ids []uint32) []error {
	want := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var errs []error
	for _, id := range h.local.NodeIDs() {
		n := h.local.Node(id)
		st := smoothing(n)
		if st == nil {
			if want[id] {
				errs = append(errs, &AssertionError{
					Check:    "snapped",
					Expected: fmt.Sprintf("node %d snapped once", id),
					Actual:   "node has no smoothing",
				})
			}
			continue
		}
		expected := 0
		if want[id] {
			expected = 1
		}
		if st.Snaps() != expected {
			errs = append(errs, &AssertionError{
				Check:    "snapped",
				Expected: fmt.Sprintf("node %d snapped %d time(s)", id, expected),
				Actual:   fmt.Sprintf("%d", st.Snaps()),
			})
		}
	}
	for _, id := range ids {
		if h.local.Node(id) == nil {
			errs = append(errs, &AssertionError{
				Check:    "snapped",
				Expected: fmt.Sprintf("node %d snapped once", id),
				Actual:   "node missing",
			})
		}
	}
	return errs
}

func smoothing(n *scene.Node) *scene.SmoothedTransform {
	c := n.Component(variant.Hash(scene.SmoothedTransformName))
	if c == nil {
		return nil
	}
	st, _ := c.Behavior().(*scene.SmoothedTransform)
	return st
}

func (h *Harness) assertComponent(exp ComponentExpect) error {
	n := h.local.Node(exp.Node)
	if n == nil {
		return &AssertionError{
			Check:    "components",
			Expected: fmt.Sprintf("node %d with %s", exp.Node, exp.Type),
			Actual:   "node missing",
		}
	}

	c := n.Component(variant.Hash(exp.Type))
	if exp.Missing {
		if c != nil {
			return &AssertionError{
				Check:    "components",
				Expected: fmt.Sprintf("node %d without %s", exp.Node, exp.Type),
				Actual:   fmt.Sprintf("component %d", c.ID()),
			}
		}
		return nil
	}
	if c == nil {
		return &AssertionError{
			Check:    "components",
			Expected: fmt.Sprintf("node %d with %s", exp.Node, exp.Type),
			Actual:   "no such component",
		}
	}
	if exp.ID != 0 && c.ID() != exp.ID {
		return &AssertionError{
			Check:    "components",
			Expected: fmt.Sprintf("%s on node %d has id %d", exp.Type, exp.Node, exp.ID),
			Actual:   fmt.Sprintf("id %d", c.ID()),
		}
	}

	class := c.Class()
	for _, name := range sortedKeys(exp.Attributes) {
		i, ok := class.AttributeIndex(name)
		if !ok {
			return fmt.Errorf("components: class %s has no attribute %q", class.Name, name)
		}
		want, err := variant.Coerce(exp.Attributes[name], class.Attributes[i].Type)
		if err != nil {
			return fmt.Errorf("components: %s.%s: %w", class.Name, name, err)
		}
		got, _ := c.Get(name)
		if !variant.Equal(want, got) {
			return &AssertionError{
				Check:    "components",
				Expected: fmt.Sprintf("node %d %s.%s = %v", exp.Node, class.Name, name, variant.Plain(want)),
				Actual:   fmt.Sprintf("%v", variant.Plain(got)),
			}
		}
	}
	return nil
}

func (h *Harness) assertVars(exp VarExpect) []error {
	n := h.local.Node(exp.Node)
	if n == nil {
		return []error{&AssertionError{
			Check:    "vars",
			Expected: fmt.Sprintf("node %d", exp.Node),
			Actual:   "node missing",
		}}
	}

	var errs []error
	for _, key := range sortedKeys(exp.Values) {
		want, err := variant.Infer(exp.Values[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("vars: %s: %w", key, err))
			continue
		}
		got, ok := n.Var(variant.ParseStringHash(key))
		if !ok {
			errs = append(errs, &AssertionError{
				Check:    "vars",
				Expected: fmt.Sprintf("node %d var %s = %v", exp.Node, key, variant.Plain(want)),
				Actual:   "unset",
			})
			continue
		}
		if !variant.Equal(want, got) {
			errs = append(errs, &AssertionError{
				Check:    "vars",
				Expected: fmt.Sprintf("node %d var %s = %v (%v)", exp.Node, key, variant.Plain(want), want.Type()),
				Actual:   fmt.Sprintf("%v (%v)", variant.Plain(got), got.Type()),
			})
		}
	}
	for _, key := range exp.Absent {
		if got, ok := n.Var(variant.ParseStringHash(key)); ok {
			errs = append(errs, &AssertionError{
				Check:    "vars",
				Expected: fmt.Sprintf("node %d var %s unset", exp.Node, key),
				Actual:   fmt.Sprintf("%v", variant.Plain(got)),
			})
		}
	}
	return errs
}

func assertStats(exp Expect, result *Result) []error {
	var errs []error
	for i, want := range exp.Stats {
		if i >= len(result.Stats) {
			errs = append(errs, &AssertionError{
				Check:    "stats",
				Expected: fmt.Sprintf("pass %d", i+1),
				Actual:   fmt.Sprintf("only %d pass(es) ran", len(result.Stats)),
			})
			break
		}
		if got := result.Stats[i]; got != want {
			errs = append(errs, &AssertionError{
				Check:    "stats",
				Expected: fmt.Sprintf("pass %d: %+v", i+1, want),
				Actual:   fmt.Sprintf("%+v", got),
			})
		}
	}
	return errs
}
