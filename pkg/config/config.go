package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/flowstat/pkg/models"
	"github.com/pario-ai/flowstat/pkg/timeline"
)

// Aggregation engines.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
)

// Config holds all flowstat configuration.
type Config struct {
	Pricing           models.Pricing `yaml:"pricing"`
	Percentile        float64        `yaml:"percentile"`
	Granularity       string         `yaml:"granularity"`
	ReportGranularity string         `yaml:"report_granularity"`
	Endpoint          string         `yaml:"endpoint"`
	Engine            string         `yaml:"engine"`
	// RequireCategorical drops records with an empty categorical cell, in
	// addition to records with a null timestamp.
	RequireCategorical bool      `yaml:"require_categorical"`
	Workers            int       `yaml:"workers"`
	Log                LogConfig `yaml:"log"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	File   string `yaml:"file"`
	// MaxSizeMB and MaxBackups apply only when File is set.
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
}

// Default returns a Config with the standard GPT-4o pricing and
// second-level expansion into minute buckets.
func Default() *Config {
	return &Config{
		Pricing: models.Pricing{
			InputPerMillion:  2.50,
			OutputPerMillion: 10.00,
		},
		Percentile:         0.90,
		Granularity:        "second",
		ReportGranularity:  "minute",
		Endpoint:           "exclusive",
		Engine:             EngineMemory,
		RequireCategorical: true,
		Workers:            4,
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
// A .env file beside the config, if present, is loaded first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty and returns Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		loadDotEnv(".env")
		return Default(), nil
	}
	return Load(path)
}

// loadDotEnv does not override variables that are already set.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

// Validate checks enumerated fields and numeric ranges.
func (c *Config) Validate() error {
	if c.Percentile < 0 || c.Percentile > 1 {
		return fmt.Errorf("invalid config: percentile %v outside [0, 1]", c.Percentile)
	}
	if _, err := timeline.ParseGranularity(c.Granularity); err != nil {
		return fmt.Errorf("invalid config: granularity: %w", err)
	}
	if _, err := timeline.ParseGranularity(c.ReportGranularity); err != nil {
		return fmt.Errorf("invalid config: report_granularity: %w", err)
	}
	if _, err := timeline.ParseEndpoint(c.Endpoint); err != nil {
		return fmt.Errorf("invalid config: endpoint: %w", err)
	}
	switch c.Engine {
	case EngineMemory, EngineSQLite:
	default:
		return fmt.Errorf("invalid config: unknown engine %q", c.Engine)
	}
	if c.Pricing.InputPerMillion < 0 || c.Pricing.OutputPerMillion < 0 {
		return fmt.Errorf("invalid config: negative pricing")
	}
	return nil
}
