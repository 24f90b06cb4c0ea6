package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/schema"
	"github.com/roach88/replica/internal/snapshot"
	"github.com/roach88/replica/internal/testutil"
	"github.com/roach88/replica/internal/variant"
)

// Harness holds the two peers of a scenario run.
type Harness struct {
	scenario *Scenario
	logger   *slog.Logger

	remote       *scene.Scene
	local        *scene.Scene
	remoteEngine *snapshot.Engine
	localEngine  *snapshot.Engine
}

// RunOption configures Run.
type RunOption func(*Harness)

// WithLogger sets the logger handed to both engines. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) RunOption {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the class registries from the scenario schema
//  2. Build the remote tree and encode it
//  3. Build the local tree and register the client roots
//  4. Decode the snapshot Passes times
//  5. Evaluate Expect against the client scene
//
// A returned error means the scenario itself could not be set up; failed
// expectations are reported through Result.Errors.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	h := &Harness{scenario: scenario, logger: testutil.SilentLogger()}
	for _, opt := range opts {
		opt(h)
	}

	_, localReg, err := scenario.Registries()
	if err != nil {
		return nil, err
	}

	h.remote, h.remoteEngine, err = scenario.BuildRemote(h.logger)
	if err != nil {
		return nil, err
	}
	h.local = scene.New(localReg)
	if err := BuildNodes(h.local.Root(), scenario.Local); err != nil {
		return nil, fmt.Errorf("build local: %w", err)
	}

	o := scenario.Options
	h.localEngine = snapshot.New(
		snapshot.WithLogger(h.logger),
		snapshot.WithFraming(o.Framed),
		snapshot.WithPruneMissingVariables(o.PruneMissingVariables),
		snapshot.WithInterceptNewEntities(o.InterceptNewEntities),
		snapshot.WithAutoRegister(o.AutoRegister),
		snapshot.WithSkipPruneOnDesync(o.SkipPruneOnDesync),
	)
	for _, id := range scenario.Register {
		n := h.local.Node(id)
		if n == nil {
			return nil, fmt.Errorf("register: no local node %d", id)
		}
		h.localEngine.Register(n)
	}

	buf := h.remoteEngine.WriteState(h.remote)
	if scenario.Truncate > 0 && scenario.Truncate < len(buf) {
		buf = buf[:scenario.Truncate]
	}

	result := NewResult()
	result.SnapshotSize = len(buf)
	h.decode(buf, result)
	h.evaluate(result)

	result.Scene = scene.Dump(h.local)
	dump, err := variant.MarshalCanonical(result.Scene)
	if err != nil {
		return nil, fmt.Errorf("dump local scene: %w", err)
	}
	result.Dump = dump
	return result, nil
}

// Registries compiles the scenario schema into one registry per peer. The
// client registry leaves out Options.ClientUnknown.
func (s *Scenario) Registries() (remote, local *scene.Registry, err error) {
	var specs []schema.ClassSpec
	if s.Schema != "" {
		var errs []error
		specs, errs = schema.CompileSource(s.Name+".cue", s.Schema)
		if len(errs) > 0 {
			return nil, nil, fmt.Errorf("schema: %w", errors.Join(errs...))
		}
	}

	remote = scene.DefaultRegistry()
	if err := schema.Register(remote, specs); err != nil {
		return nil, nil, fmt.Errorf("schema: %w", err)
	}

	known := make([]schema.ClassSpec, 0, len(specs))
	for _, spec := range specs {
		if !slices.Contains(s.Options.ClientUnknown, spec.Name) {
			known = append(known, spec)
		}
	}
	local = scene.DefaultRegistry()
	if err := schema.Register(local, known); err != nil {
		return nil, nil, fmt.Errorf("schema: %w", err)
	}
	return remote, local, nil
}

// BuildRemote builds the authoritative scene and an encoding engine with
// every top-level node registered.
func (s *Scenario) BuildRemote(logger *slog.Logger) (*scene.Scene, *snapshot.Engine, error) {
	reg, _, err := s.Registries()
	if err != nil {
		return nil, nil, err
	}
	remote := scene.New(reg)
	if err := BuildNodes(remote.Root(), s.Remote); err != nil {
		return nil, nil, fmt.Errorf("build remote: %w", err)
	}
	e := snapshot.New(
		snapshot.WithLogger(logger),
		snapshot.WithFraming(s.Options.Framed),
	)
	for _, n := range remote.Root().Children() {
		e.Register(n)
	}
	return remote, e, nil
}

// decode runs the configured number of passes, stopping at the first error.
func (h *Harness) decode(buf []byte, result *Result) {
	passes := h.scenario.Passes
	if passes == 0 {
		passes = 1
	}
	want := h.scenario.Expect.Error

	for i := range passes {
		stats, err := h.localEngine.ReadState(buf, h.local)
		result.Stats = append(result.Stats, stats)
		if err == nil {
			continue
		}
		switch {
		case want == ExpectTruncated && snapshot.IsTruncated(err):
		case want == ExpectMalformed && snapshot.IsMalformed(err):
		default:
			result.AddError(fmt.Sprintf("pass %d: unexpected decode error: %v", i+1, err))
		}
		return
	}
	if want != "" {
		result.AddError(fmt.Sprintf("expected %s decode error, all %d passes succeeded", want, passes))
	}
}

// BuildNodes creates specs under parent, depth first.
func BuildNodes(parent *scene.Node, specs []NodeSpec) error {
	for _, spec := range specs {
		mode := scene.Replicated
		if spec.Local {
			mode = scene.Local
		}
		n, err := parent.CreateChild(spec.ID, mode)
		if err != nil {
			return fmt.Errorf("node %d: %w", spec.ID, err)
		}
		if err := applyNode(n, spec, mode); err != nil {
			return fmt.Errorf("node %d: %w", spec.ID, err)
		}
		if err := BuildNodes(n, spec.Children); err != nil {
			return err
		}
	}
	return nil
}

func applyNode(n *scene.Node, spec NodeSpec, mode scene.CreateMode) error {
	n.SetName(spec.Name)
	if spec.Enabled != nil {
		n.SetEnabled(*spec.Enabled)
	}
	if spec.Tags != nil {
		n.SetTags(spec.Tags)
	}
	n.SetIntercepted(spec.Intercepted)

	if spec.Position != nil {
		v, err := variant.Coerce(spec.Position, variant.TypeVector3)
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
		n.SetPosition(v.(variant.Vector3))
	}
	if spec.Rotation != nil {
		v, err := variant.Coerce(spec.Rotation, variant.TypeQuaternion)
		if err != nil {
			return fmt.Errorf("rotation: %w", err)
		}
		n.SetRotation(v.(variant.Quaternion))
	}
	if spec.Scale != nil {
		v, err := variant.Coerce(spec.Scale, variant.TypeVector3)
		if err != nil {
			return fmt.Errorf("scale: %w", err)
		}
		n.SetScale(v.(variant.Vector3))
	}

	for _, key := range sortedKeys(spec.Vars) {
		v, err := variant.Infer(spec.Vars[key])
		if err != nil {
			return fmt.Errorf("var %s: %w", key, err)
		}
		n.SetVar(variant.ParseStringHash(key), v)
	}

	for _, cs := range spec.Components {
		c, err := n.CreateComponent(variant.Hash(cs.Type), mode, cs.ID)
		if err != nil {
			return fmt.Errorf("component %s: %w", cs.Type, err)
		}
		if err := setAttributes(c, cs.Attributes); err != nil {
			return fmt.Errorf("component %s: %w", cs.Type, err)
		}
	}
	return nil
}

func setAttributes(c *scene.Component, attrs map[string]any) error {
	class := c.Class()
	for _, name := range sortedKeys(attrs) {
		i, ok := class.AttributeIndex(name)
		if !ok {
			return fmt.Errorf("class %s has no attribute %q", class.Name, name)
		}
		v, err := variant.Coerce(attrs[name], class.Attributes[i].Type)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		if err := c.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
