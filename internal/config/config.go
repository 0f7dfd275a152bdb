// Package config loads run configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/model"
)

// Defaults applied by Load when the file leaves a field unset.
const (
	DefaultHorizon   = 6
	DefaultWorkers   = 4
	DefaultOutputDir = "output"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load model parameters from a separate YAML (e.g.
	// examples/models/*.yaml). If both ModelFile and Model are
	// provided, Model overrides ModelFile.
	ModelFile string         `yaml:"model_file"`
	Model     ModelConfig    `yaml:"model"`
	Forecast  ForecastConfig `yaml:"forecast"`
	Storage   StorageConfig  `yaml:"storage"`
	Output    OutputConfig   `yaml:"output"`
}

// ModelConfig selects and parameterizes the regression model client.
type ModelConfig struct {
	Kind      string `yaml:"kind"`       // "http" | "naive"
	Endpoint  string `yaml:"endpoint"`   // model service base URL
	TimeoutMs int64  `yaml:"timeout_ms"` // per-call timeout, 0 uses the client default
}

// ForecastConfig shapes the batch run.
type ForecastConfig struct {
	Horizon  int      `yaml:"horizon"`
	Workers  int      `yaml:"workers"`
	Entities []string `yaml:"entities"` // optional subset; empty means all
	Verbose  bool     `yaml:"verbose"`
}

// StorageConfig selects the backing stores.
type StorageConfig struct {
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// OutputConfig names the artifact directory.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads, defaults, and validates a config file.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not default or
// validate it. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If model_file is set, load it and merge in any explicit
	// overrides from c.Model.
	if c.ModelFile != "" {
		modelPath := c.ModelFile
		if !filepath.IsAbs(modelPath) {
			// Prefer interpreting relative paths as relative to the
			// config file directory, but fall back to the provided
			// path (relative to cwd) if that doesn't exist.
			cand := filepath.Join(filepath.Dir(path), modelPath)
			if _, err := os.Stat(cand); err == nil {
				modelPath = cand
			}
		}
		loaded, err := loadModelFile(modelPath)
		if err != nil {
			return nil, err
		}
		c.Model = MergeModel(loaded, c.Model)
	}
	return &c, nil
}

// ApplyDefaults fills unset fields with the package defaults.
func (c *Config) ApplyDefaults() {
	if c.Model.Kind == "" {
		c.Model.Kind = domain.ModelKindNaive
	}
	if c.Forecast.Horizon == 0 {
		c.Forecast.Horizon = DefaultHorizon
	}
	if c.Forecast.Workers == 0 {
		c.Forecast.Workers = DefaultWorkers
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
}

// Validate checks the config for usability. Storage DSNs are left to
// the binaries: flags may still override them.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be >= 1, got %d", c.Forecast.Horizon)
	}
	if c.Forecast.Workers < 1 {
		return fmt.Errorf("forecast.workers must be >= 1, got %d", c.Forecast.Workers)
	}
	// Validate model params by constructing a model client.
	if _, err := model.FromConfig(c.Model.ToDomain()); err != nil {
		return fmt.Errorf("model config invalid: %w", err)
	}
	return nil
}

// ToDomain converts the YAML shape to the domain model config.
func (m ModelConfig) ToDomain() domain.ModelConfig {
	return domain.ModelConfig{
		Kind:      m.Kind,
		Endpoint:  m.Endpoint,
		TimeoutMs: m.TimeoutMs,
	}
}

type modelFileWrapper struct {
	Model ModelConfig `yaml:"model"`
}

func loadModelFile(path string) (ModelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ModelConfig{}, err
	}
	var w modelFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return ModelConfig{}, err
	}
	return w.Model, nil
}

// MergeModel overlays non-zero fields from override onto base.
// This is used when loading a model file and then applying overrides
// from the main config.
func MergeModel(base, override ModelConfig) ModelConfig {
	out := base
	if override.Kind != "" {
		out.Kind = override.Kind
	}
	if override.Endpoint != "" {
		out.Endpoint = override.Endpoint
	}
	if override.TimeoutMs != 0 {
		out.TimeoutMs = override.TimeoutMs
	}
	return out
}
