package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/replica/internal/snapshot"
)

// Scenario defines a reconciliation scenario: an authoritative tree is
// encoded, then decoded one or more times into a client tree, and the
// client's final state is checked against Expect.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is CUE source declaring the component classes both peers know.
	Schema string `yaml:"schema,omitempty"`

	// Options configures both engines.
	Options Options `yaml:"options,omitempty"`

	// Remote is the authoritative tree. Every top-level node is registered
	// with the encoding engine.
	Remote []NodeSpec `yaml:"remote"`

	// Local is the client tree before the first decode.
	Local []NodeSpec `yaml:"local,omitempty"`

	// Register lists client node ids registered as roots before decoding.
	Register []uint32 `yaml:"register,omitempty"`

	// Truncate cuts the encoded snapshot to this many bytes when positive.
	Truncate int `yaml:"truncate,omitempty"`

	// Passes is how many times the same snapshot is decoded. Defaults to 1.
	Passes int `yaml:"passes,omitempty"`

	// Expect holds the checks run after the last pass.
	Expect Expect `yaml:"expect"`
}

// Options are the engine flags of a scenario.
type Options struct {
	Framed                bool `yaml:"framed,omitempty"`
	PruneMissingVariables bool `yaml:"prune_missing_variables,omitempty"`
	InterceptNewEntities  bool `yaml:"intercept_new_entities,omitempty"`
	AutoRegister          bool `yaml:"auto_register,omitempty"`
	SkipPruneOnDesync     bool `yaml:"skip_prune_on_desync,omitempty"`

	// ClientUnknown lists classes the client registry leaves out.
	ClientUnknown []string `yaml:"client_unknown,omitempty"`
}

// NodeSpec describes one node and its subtree.
type NodeSpec struct {
	ID          uint32          `yaml:"id"`
	Name        string          `yaml:"name,omitempty"`
	Local       bool            `yaml:"local,omitempty"`
	Enabled     *bool           `yaml:"enabled,omitempty"`
	Tags        []string        `yaml:"tags,omitempty"`
	Position    any             `yaml:"position,omitempty"`
	Rotation    any             `yaml:"rotation,omitempty"`
	Scale       any             `yaml:"scale,omitempty"`
	Intercepted bool            `yaml:"intercepted,omitempty"`
	Vars        map[string]any  `yaml:"vars,omitempty"`
	Components  []ComponentSpec `yaml:"components,omitempty"`
	Children    []NodeSpec      `yaml:"children,omitempty"`
}

// ComponentSpec describes one component. Attributes are coerced to the
// declared attribute types.
type ComponentSpec struct {
	ID         uint32         `yaml:"id"`
	Type       string         `yaml:"type"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// Expect lists the checks of a scenario. Empty fields are skipped.
type Expect struct {
	// Error is the decode error code expected from the first failing pass:
	// "truncated" or "malformed". Empty means every pass must succeed.
	Error string `yaml:"error,omitempty"`

	// Present lists node ids that must exist in the client scene.
	Present []uint32 `yaml:"present,omitempty"`

	// Absent lists node ids that must not exist in the client scene.
	Absent []uint32 `yaml:"absent,omitempty"`

	// Snapped lists node ids whose smoothing must have snapped exactly once.
	// Any other node carrying smoothing must not have snapped.
	Snapped []uint32 `yaml:"snapped,omitempty"`

	Components []ComponentExpect `yaml:"components,omitempty"`
	Vars       []VarExpect       `yaml:"vars,omitempty"`

	// Stats holds the expected counters of the first len(Stats) passes.
	Stats []snapshot.ReadStats `yaml:"stats,omitempty"`
}

// ComponentExpect checks one component of a node by type.
type ComponentExpect struct {
	Node uint32 `yaml:"node"`
	Type string `yaml:"type"`

	// ID, when non-zero, must match the component id.
	ID uint32 `yaml:"id,omitempty"`

	// Missing asserts the node has no component of Type.
	Missing bool `yaml:"missing,omitempty"`

	// Attributes is a subset match on attribute values.
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// VarExpect checks the variables of a node.
type VarExpect struct {
	Node   uint32         `yaml:"node"`
	Values map[string]any `yaml:"values,omitempty"`
	Absent []string       `yaml:"absent,omitempty"`
}

// Decode error codes accepted by Expect.Error.
const (
	ExpectTruncated = "truncated"
	ExpectMalformed = "malformed"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "precent:" for "present:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the *.yaml files in dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain path separators or spaces", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Passes < 0 {
		return fmt.Errorf("passes must be non-negative")
	}
	if s.Truncate < 0 {
		return fmt.Errorf("truncate must be non-negative")
	}

	switch s.Expect.Error {
	case "", ExpectTruncated, ExpectMalformed:
	default:
		return fmt.Errorf("expect.error: unknown code %q", s.Expect.Error)
	}

	seen := make(map[uint32]string)
	if err := validateNodes("remote", s.Remote, seen); err != nil {
		return err
	}
	seen = make(map[uint32]string)
	if err := validateNodes("local", s.Local, seen); err != nil {
		return err
	}

	for i, c := range s.Expect.Components {
		if c.Node == 0 {
			return fmt.Errorf("expect.components[%d]: node is required", i)
		}
		if c.Type == "" {
			return fmt.Errorf("expect.components[%d]: type is required", i)
		}
		if c.Missing && len(c.Attributes) > 0 {
			return fmt.Errorf("expect.components[%d]: missing excludes attributes", i)
		}
	}
	for i, v := range s.Expect.Vars {
		if v.Node == 0 {
			return fmt.Errorf("expect.vars[%d]: node is required", i)
		}
	}
	return nil
}

func validateNodes(path string, nodes []NodeSpec, seen map[uint32]string) error {
	for i, n := range nodes {
		at := fmt.Sprintf("%s[%d]", path, i)
		if n.ID == 0 {
			return fmt.Errorf("%s: id is required", at)
		}
		if prev, ok := seen[n.ID]; ok {
			return fmt.Errorf("%s: duplicate node id %d (first at %s)", at, n.ID, prev)
		}
		seen[n.ID] = at
		for j, c := range n.Components {
			if c.Type == "" {
				return fmt.Errorf("%s.components[%d]: type is required", at, j)
			}
		}
		if err := validateNodes(at+".children", n.Children, seen); err != nil {
			return err
		}
	}
	return nil
}
