package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file and returns a fully defaulted,
// clamped Config.
//
// The file's "preset" field (if any) selects the base profile; the remaining
// fields override it. Clamping adjustments are logged as warnings rather
// than returned as errors, per the validation philosophy of this package.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes. See Load.
func Parse(data []byte) (*Config, error) {
	// Decode once to learn the preset, then decode again over the preset's
	// values so explicit fields win.
	var probe struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Preset(probe.Preset)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	for _, w := range Validate(&cfg) {
		slog.Warn("config value adjusted", "component", "config", "adjustment", w)
	}
	return &cfg, nil
}
