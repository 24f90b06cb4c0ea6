package snapshot

// ReadStats counts what a read pass did to the scene.
type ReadStats struct {
	EntitiesCreated int `json:"entities_created" yaml:"entities_created"`
	EntitiesUpdated int `json:"entities_updated" yaml:"entities_updated"`
	EntitiesRemoved int `json:"entities_removed" yaml:"entities_removed"`

	ComponentsCreated  int `json:"components_created" yaml:"components_created"`
	ComponentsUpdated  int `json:"components_updated" yaml:"components_updated"`
	ComponentsReplaced int `json:"components_replaced" yaml:"components_replaced"`
	ComponentsSkipped  int `json:"components_skipped" yaml:"components_skipped"`

	VariablesSet    int `json:"variables_set" yaml:"variables_set"`
	VariablesPruned int `json:"variables_pruned" yaml:"variables_pruned"`

	// Desynchronized is set when an unknown component type was met in an
	// unframed stream. Fields read after that point may be garbage.
	Desynchronized bool `json:"desynchronized" yaml:"desynchronized"`
}

// Add accumulates other into s.
func (s *ReadStats) Add(other ReadStats) {
	s.EntitiesCreated += other.EntitiesCreated
	s.EntitiesUpdated += other.EntitiesUpdated
	s.EntitiesRemoved += other.EntitiesRemoved
	s.ComponentsCreated += other.ComponentsCreated
	s.ComponentsUpdated += other.ComponentsUpdated
	s.ComponentsReplaced += other.ComponentsReplaced
	s.ComponentsSkipped += other.ComponentsSkipped
	s.VariablesSet += other.VariablesSet
	s.VariablesPruned += other.VariablesPruned
	s.Desynchronized = s.Desynchronized || other.Desynchronized
}
