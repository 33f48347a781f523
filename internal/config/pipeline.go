package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"flagfold/internal/spec"
)

const SupportedSchema = "v1"

// ErrSchema marks config files written for another schema version.
var ErrSchema = errors.New("unsupported schema_version")

// LoadPipelineSpec parses a job YAML, validates schema_version and resolves
// source roots and the dir sink output against the job file's directory.
func LoadPipelineSpec(path string) (spec.File, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("pipeline schema_version %q (want %q): %w", cfg.SchemaVersion, SupportedSchema, ErrSchema)
	}
	base := filepath.Dir(path)
	for i, root := range cfg.Source.Roots {
		cfg.Source.Roots[i] = resolve(base, root)
	}
	if out := cfg.SinkConfigs.Dir.Out; out != "" {
		cfg.SinkConfigs.Dir.Out = resolve(base, out)
	}
	applyPipelineDefaults(&cfg)
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func applyPipelineDefaults(c *spec.File) {
	if c.Source.Kind == "" {
		c.Source.Kind = "fs"
	}
	if c.Source.Suffix == "" {
		c.Source.Suffix = ".ast.json"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []string{"stdout"}
	}
}
