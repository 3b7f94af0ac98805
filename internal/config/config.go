package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/scoring"
)

// Environment variables that override file values
const (
	EnvVisionURL = "PHOTO_GRADER_VISION_URL"
	EnvRedisAddr = "PHOTO_GRADER_REDIS_ADDR"
	EnvLogLevel  = "PHOTO_GRADER_LOG_LEVEL"
)

// Config holds the application configuration
type Config struct {
	Analyzer  AnalyzerConfig  `toml:"analyzer"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Optimizer OptimizerConfig `toml:"optimizer"`
	Batch     BatchConfig     `toml:"batch"`
	Vision    VisionConfig    `toml:"vision"`
	Cache     CacheConfig     `toml:"cache"`
	Log       LogConfig       `toml:"log"`
}

// AnalyzerConfig holds configuration for metric extraction
type AnalyzerConfig struct {
	WorkingSize      int      `toml:"working_size"`
	SupportedFormats []string `toml:"supported_formats"`
}

// ScoringConfig holds the defaults applied when a request names none
type ScoringConfig struct {
	Platform      string  `toml:"platform"`
	Category      string  `toml:"category"`
	FileSizeMinKB float64 `toml:"file_size_min_kb"`
	FileSizeMaxKB float64 `toml:"file_size_max_kb"`
}

// OptimizerConfig holds the transform pipeline targets. TargetResolution also
// anchors the scorer's dimension curve.
type OptimizerConfig struct {
	TargetResolution int     `toml:"target_resolution"`
	MaxUpscale       float64 `toml:"max_upscale"`
	SharpenSigma     float64 `toml:"sharpen_sigma"`
	Qualities        []int   `toml:"qualities"`
	OutputFormat     string  `toml:"output_format"`
	WebPLossless     bool    `toml:"webp_lossless"`
}

// BatchConfig holds worker pool settings
type BatchConfig struct {
	Workers int `toml:"workers"`
}

// VisionConfig selects the vision model backend
type VisionConfig struct {
	Enabled      bool     `toml:"enabled"`
	Backend      string   `toml:"backend"`
	URL          string   `toml:"url"`
	Model        string   `toml:"model"`
	Timeout      Duration `toml:"timeout"`
	MaxDimension int      `toml:"max_dimension"`
}

// CacheConfig controls the analysis result cache
type CacheConfig struct {
	Enabled   bool     `toml:"enabled"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
	Prefix    string   `toml:"prefix"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string such as "90s" in TOML
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			WorkingSize:      500,
			SupportedFormats: []string{"jpeg", "png", "gif", "webp"},
		},
		Scoring: ScoringConfig{
			Platform:      compliance.DefaultPlatform,
			Category:      "",
			FileSizeMinKB: 500,
			FileSizeMaxKB: 2048,
		},
		Optimizer: OptimizerConfig{
			TargetResolution: 2000,
			MaxUpscale:       1.5,
			SharpenSigma:     1.5,
			Qualities:        []int{92, 85, 80, 72},
			OutputFormat:     "jpeg",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Vision: VisionConfig{
			Enabled:      false,
			Backend:      "ollama",
			URL:          "http://localhost:11434",
			Model:        "minicpm-v",
			Timeout:      Duration{5 * time.Minute},
			MaxDimension: 1024,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			TTL:       Duration{24 * time.Hour},
			Prefix:    "photo-grader:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path when it exists, otherwise starts from defaults, then
// applies environment overrides and validates. The bool reports whether the
// file existed.
func Load(path string) (*Config, bool, error) {
	cfg, err := LoadFromFile(path)
	exists := err == nil
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, err
		}
		cfg = Default()
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, exists, err
	}
	return cfg, exists, nil
}

// LoadFromFile loads configuration from a TOML file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Default()
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a TOML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides values from the environment. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvVisionURL)); v != "" {
		c.Vision.URL = v
		c.Vision.Enabled = true
	}
	if v := strings.TrimSpace(getenv(EnvRedisAddr)); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Enabled = true
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Analyzer.WorkingSize < 16 {
		return fmt.Errorf("analyzer.working_size must be at least 16")
	}
	if len(c.Analyzer.SupportedFormats) == 0 {
		return fmt.Errorf("analyzer.supported_formats cannot be empty")
	}

	if _, err := compliance.Lookup(c.Scoring.Platform); err != nil {
		return fmt.Errorf("scoring.platform: %w", err)
	}
	if c.Scoring.Category != "" {
		if _, err := scoring.ParseCategory(c.Scoring.Category); err != nil {
			return fmt.Errorf("scoring.category: %w", err)
		}
	}
	if c.Scoring.FileSizeMinKB < 0 || c.Scoring.FileSizeMaxKB <= c.Scoring.FileSizeMinKB {
		return fmt.Errorf("scoring.file_size_max_kb must be greater than file_size_min_kb")
	}

	if c.Optimizer.TargetResolution < 1 {
		return fmt.Errorf("optimizer.target_resolution must be positive")
	}
	if c.Optimizer.MaxUpscale < 1 {
		return fmt.Errorf("optimizer.max_upscale must be at least 1")
	}
	if len(c.Optimizer.Qualities) == 0 {
		return fmt.Errorf("optimizer.qualities cannot be empty")
	}
	for _, q := range c.Optimizer.Qualities {
		if q < 1 || q > 100 {
			return fmt.Errorf("optimizer.qualities must be between 1 and 100")
		}
	}
	switch c.Optimizer.OutputFormat {
	case "jpeg", "png", "webp":
	default:
		return fmt.Errorf("optimizer.output_format must be jpeg, png or webp")
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers cannot be negative")
	}

	switch c.Vision.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("vision.backend must be ollama or llamacpp")
	}
	if c.Vision.Enabled && c.Vision.URL == "" {
		return fmt.Errorf("vision.url is required when vision is enabled")
	}

	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when the cache is enabled")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text")
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./photo-grader.toml"
	}
	return filepath.Join(home, ".config", "photo-grader", "config.toml")
}
