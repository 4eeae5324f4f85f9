package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/aika/sim/cluster"
)

// RunConfig is the full YAML configuration accepted by --config.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Engine     cluster.Config `yaml:"engine"`
	Model      ModelConfig    `yaml:"model"`
	Sequential bool           `yaml:"sequential"` // run a single World instead of the hybrid engine
}

// DefaultRunConfig returns the configuration used when no file is given.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Engine: cluster.DefaultConfig(),
		Model: ModelConfig{
			Name:   "gossip",
			Agents: 64,
			Delay:  8,
			Period: 4,
			Tokens: 1,
			Seed:   42,
		},
	}
}

// Validate reports the first invalid field.
func (c RunConfig) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if c.Sequential && c.Model.Agents > c.Engine.World.ArenaCapacity {
		return fmt.Errorf("model: %d agents exceed the arena capacity of %d", c.Model.Agents, c.Engine.World.ArenaCapacity)
	}
	return nil
}

// LoadRunConfig reads path over the defaults. Fields missing from the file
// keep their default values; unknown fields are errors.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	// Parse YAML with strict field checking: typos must cause errors
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
