package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models craftplan.yml.
type Config struct {
	Dataset struct {
		Path string `yaml:"path"`
	} `yaml:"dataset"`
	Plan struct {
		DefaultQuantity int `yaml:"default_quantity"`
	} `yaml:"plan"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Default returns the workspace defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Dataset.Path = filepath.Join("data", "recipes.csv")
	cfg.Plan.DefaultQuantity = 1
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Server.BasePath = "/v0"
	return cfg
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "craftplan.yml")
}

// Load reads craftplan.yml from the workspace, falling back to defaults
// when the file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates a config document, filling defaults for
// omitted fields.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return fmt.Errorf("config.dataset.path is required")
	}
	if c.Plan.DefaultQuantity < 1 {
		return fmt.Errorf("config.plan.default_quantity must be at least 1")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	return nil
}

// Write saves the config to the workspace as YAML.
func (c *Config) Write(workspace string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(workspace), data, 0o644)
}
