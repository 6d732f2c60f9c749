package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Pricing.InputPerMillion != 2.50 {
		t.Errorf("expected 2.50 input price, got %v", cfg.Pricing.InputPerMillion)
	}
	if cfg.Pricing.OutputPerMillion != 10.00 {
		t.Errorf("expected 10.00 output price, got %v", cfg.Pricing.OutputPerMillion)
	}
	if cfg.Percentile != 0.90 {
		t.Errorf("expected 0.90 percentile, got %v", cfg.Percentile)
	}
	if cfg.Endpoint != "exclusive" {
		t.Errorf("expected exclusive endpoint, got %s", cfg.Endpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("FLOWSTAT_OUT_PRICE", "15.5")

	content := `
pricing:
  input_per_1m: 3.00
  output_per_1m: ${FLOWSTAT_OUT_PRICE}
granularity: minute
endpoint: inclusive
engine: sqlite
log:
  level: debug
`
	dir := t.TempDir()
	path := filepath.Join(dir, "flowstat.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Pricing.InputPerMillion != 3.00 {
		t.Errorf("expected 3.00, got %v", cfg.Pricing.InputPerMillion)
	}
	if cfg.Pricing.OutputPerMillion != 15.5 {
		t.Errorf("env var not expanded: got %v", cfg.Pricing.OutputPerMillion)
	}
	if cfg.Granularity != "minute" {
		t.Errorf("expected minute, got %s", cfg.Granularity)
	}
	if cfg.Engine != EngineSQLite {
		t.Errorf("expected sqlite engine, got %s", cfg.Engine)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Log.Level)
	}
	// Unset keys keep their defaults.
	if cfg.Percentile != 0.90 {
		t.Errorf("expected default percentile, got %v", cfg.Percentile)
	}
	if cfg.ReportGranularity != "minute" {
		t.Errorf("expected default report granularity, got %s", cfg.ReportGranularity)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FLOWSTAT_TEST_IN_PRICE=1.25\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "flowstat.yaml")
	if err := os.WriteFile(path, []byte("pricing:\n  input_per_1m: ${FLOWSTAT_TEST_IN_PRICE}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("FLOWSTAT_TEST_IN_PRICE") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pricing.InputPerMillion != 1.25 {
		t.Errorf("expected .env value 1.25, got %v", cfg.Pricing.InputPerMillion)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/flowstat.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"percentile above one", func(c *Config) { c.Percentile = 1.5 }},
		{"unknown granularity", func(c *Config) { c.Granularity = "fortnight" }},
		{"unknown report granularity", func(c *Config) { c.ReportGranularity = "" }},
		{"unknown endpoint", func(c *Config) { c.Endpoint = "open" }},
		{"unknown engine", func(c *Config) { c.Engine = "duckdb" }},
		{"negative price", func(c *Config) { c.Pricing.InputPerMillion = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
