package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Optimizer.TargetResolution = 1600
	cfg.Optimizer.OutputFormat = "webp"
	cfg.Vision.Timeout = Duration{90 * time.Second}
	cfg.Scoring.Category = "small_jewelry"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Optimizer.TargetResolution != 1600 || loaded.Optimizer.OutputFormat != "webp" {
		t.Errorf("Unexpected optimizer section %+v", loaded.Optimizer)
	}
	if loaded.Vision.Timeout.Duration != 90*time.Second {
		t.Errorf("Expected 90s timeout, got %v", loaded.Vision.Timeout)
	}
	if loaded.Scoring.Category != "small_jewelry" {
		t.Errorf("Expected category to survive, got %q", loaded.Scoring.Category)
	}
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "[batch]\nworkers = 8\n\n[vision]\ntimeout = \"45s\"\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Batch.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", cfg.Batch.Workers)
	}
	if cfg.Vision.Timeout.Duration != 45*time.Second {
		t.Errorf("Expected 45s, got %v", cfg.Vision.Timeout)
	}
	if cfg.Optimizer.TargetResolution != 2000 {
		t.Errorf("Expected default target resolution, got %d", cfg.Optimizer.TargetResolution)
	}
}

func TestLoadFromFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[batch]\nthreads = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvVisionURL, "")
	t.Setenv(EnvRedisAddr, "")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Error("Expected exists to be false")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected env log level, got %q", cfg.Log.Level)
	}

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvVisionURL: "http://gpu-box:8080",
		EnvRedisAddr: "redis:6379",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if !cfg.Vision.Enabled || cfg.Vision.URL != "http://gpu-box:8080" {
		t.Errorf("Expected vision override, got %+v", cfg.Vision)
	}
	if !cfg.Cache.Enabled || cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("Expected cache override, got %+v", cfg.Cache)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected log level untouched, got %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"working size", func(c *Config) { c.Analyzer.WorkingSize = 0 }},
		{"formats", func(c *Config) { c.Analyzer.SupportedFormats = nil }},
		{"platform", func(c *Config) { c.Scoring.Platform = "amazon" }},
		{"category", func(c *Config) { c.Scoring.Category = "spaceships" }},
		{"size band", func(c *Config) { c.Scoring.FileSizeMaxKB = 100 }},
		{"upscale", func(c *Config) { c.Optimizer.MaxUpscale = 0.5 }},
		{"quality", func(c *Config) { c.Optimizer.Qualities = []int{90, 0} }},
		{"output format", func(c *Config) { c.Optimizer.OutputFormat = "tiff" }},
		{"backend", func(c *Config) { c.Vision.Backend = "openai" }},
		{"vision url", func(c *Config) { c.Vision.Enabled = true; c.Vision.URL = "" }},
		{"redis addr", func(c *Config) { c.Cache.Enabled = true; c.Cache.RedisAddr = "" }},
		{"log level", func(c *Config) { c.Log.Level = "trace" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
