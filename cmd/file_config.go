package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/supplychain-sim/supplychain-sim/sim"
	"github.com/supplychain-sim/supplychain-sim/sim/catalog"
	"github.com/supplychain-sim/supplychain-sim/sim/store"
	"github.com/supplychain-sim/supplychain-sim/sim/trace"
)

// ExportConfig names the output files written at the end of a run.
type ExportConfig struct {
	Dir         string `yaml:"dir"`
	Inventory   string `yaml:"inventory_file"`
	Fulfillment string `yaml:"fulfillment_file"`
}

// RunConfig represents the full run configuration file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Seed       int64                   `yaml:"seed"`
	Simulation sim.Config              `yaml:"simulation"`
	Catalog    catalog.GeneratorConfig `yaml:"catalog"`
	Database   DatabaseConfig          `yaml:"database"`
	Export     ExportConfig            `yaml:"export"`
}

// DefaultRunConfig returns the configuration used when no file is given.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Seed:       42,
		Simulation: sim.DefaultConfig(),
		Catalog:    catalog.DefaultGeneratorConfig(),
		Database:   DatabaseConfig{Driver: store.DriverSQLite, Path: store.DefaultSQLitePath},
		Export: ExportConfig{
			Dir:         ".",
			Inventory:   trace.DefaultInventoryFile,
			Fulfillment: trace.DefaultFulfillmentFile,
		},
	}
}

// loadRunConfig reads a YAML file over the defaults. Fields the file omits
// keep their default values; unknown fields are an error.
func loadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c RunConfig) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if c.Export.Inventory == "" || c.Export.Fulfillment == "" {
		return fmt.Errorf("export: file names must not be empty")
	}
	return nil
}

func (c RunConfig) exportFiles() trace.ExportFiles {
	return trace.ExportFiles{Dir: c.Export.Dir, Inventory: c.Export.Inventory, Fulfillment: c.Export.Fulfillment}
}
