package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvOutputRoot overrides output_root when set.
const EnvOutputRoot = "REPSIM_OUTPUT_ROOT"

// LoadFromPath reads a run configuration file (YAML or JSON), applies defaults
// and validates it. Format is detected by extension (.yaml/.yml → YAML,
// .json → JSON) or by content (first non-whitespace char).
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses configuration bytes. ext is a format hint; empty = detect from content.
func Load(data []byte, ext string) (*Config, error) {
	cfg, err := parse(data, ext)
	if err != nil {
		return nil, err
	}
	if root := os.Getenv(EnvOutputRoot); root != "" {
		cfg.OutputRoot = root
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte, ext string) (*Config, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	c := defaultConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("%w: parse config json: %v", ErrInvalid, err)
		}
		return &c, nil
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse config yaml: %v", ErrInvalid, err)
	}
	return &c, nil
}
