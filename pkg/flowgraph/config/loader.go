package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/template"
)

// LoadOption configures loading.
type LoadOption func(*loadConfig)

type loadConfig struct {
	vars map[string]any
}

// WithVars sets the values for ${NAME} references instead of the
// environment.
func WithVars(vars map[string]any) LoadOption {
	return func(c *loadConfig) {
		c.vars = vars
	}
}

// FromFile loads a .yaml, .yml or .json file.
func FromFile(path string, opts ...LoadOption) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data, opts...)
	case ".json":
		return FromJSON(data, opts...)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data.
func FromYAML(data []byte, opts ...LoadOption) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return expand(m, opts)
}

// FromJSON parses JSON data.
func FromJSON(data []byte, opts ...LoadOption) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return expand(m, opts)
}

func expand(m map[string]any, opts []LoadOption) (Config, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.vars == nil {
		cfg.vars = environ()
	}

	exp := template.NewExpander(template.WithDollarStyle(true))
	expanded, err := exp.ExpandMap(m, cfg.vars)
	if err != nil {
		return Config{}, fmt.Errorf("expand config: %w", err)
	}
	return New(expanded), nil
}

func environ() map[string]any {
	env := os.Environ()
	vars := make(map[string]any, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars
}
