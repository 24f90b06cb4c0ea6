package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/replica/internal/snapshot"
)

// Config is the full replica configuration.
type Config struct {
	Log    LogConfig    `koanf:"log" json:"log"`
	Engine EngineConfig `koanf:"engine" json:"engine"`
	Store  StoreConfig  `koanf:"store" json:"store"`
	Schema SchemaConfig `koanf:"schema" json:"schema"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level" json:"level"`
	// Format is text or json.
	Format string `koanf:"format" json:"format"`
}

// EngineConfig mirrors the snapshot engine options.
type EngineConfig struct {
	Framed                bool `koanf:"framed" json:"framed"`
	PruneMissingVariables bool `koanf:"prune_missing_variables" json:"prune_missing_variables"`
	InterceptNewEntities  bool `koanf:"intercept_new_entities" json:"intercept_new_entities"`
	AutoRegister          bool `koanf:"auto_register" json:"auto_register"`
	SkipPruneOnDesync     bool `koanf:"skip_prune_on_desync" json:"skip_prune_on_desync"`
}

// StoreConfig locates the snapshot archive.
type StoreConfig struct {
	Path string `koanf:"path" json:"path"`
}

// SchemaConfig locates CUE component classes. Empty means built-in classes
// only.
type SchemaConfig struct {
	Dir string `koanf:"dir" json:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Path: "replica.db"},
	}
}

// defaultMap is Default in koanf key form.
func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"log.level":                      d.Log.Level,
		"log.format":                     d.Log.Format,
		"engine.framed":                  d.Engine.Framed,
		"engine.prune_missing_variables": d.Engine.PruneMissingVariables,
		"engine.intercept_new_entities":  d.Engine.InterceptNewEntities,
		"engine.auto_register":           d.Engine.AutoRegister,
		"engine.skip_prune_on_desync":    d.Engine.SkipPruneOnDesync,
		"store.path":                     d.Store.Path,
		"schema.dir":                     d.Schema.Dir,
	}
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// EngineOptions converts the engine section into snapshot options.
func (c EngineConfig) EngineOptions(logger *slog.Logger) []snapshot.Option {
	return []snapshot.Option{
		snapshot.WithLogger(logger),
		snapshot.WithFraming(c.Framed),
		snapshot.WithPruneMissingVariables(c.PruneMissingVariables),
		snapshot.WithInterceptNewEntities(c.InterceptNewEntities),
		snapshot.WithAutoRegister(c.AutoRegister),
		snapshot.WithSkipPruneOnDesync(c.SkipPruneOnDesync),
	}
}

// NewLogger builds a slog logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log.format must be text or json, got %q", c.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
