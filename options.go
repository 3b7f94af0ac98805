package photograder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/menta2k/photo-grader/internal/cache"
	"github.com/menta2k/photo-grader/internal/config"
	"github.com/menta2k/photo-grader/pkg/analyzer"
	"github.com/menta2k/photo-grader/pkg/client"
	"github.com/menta2k/photo-grader/pkg/detection"
	"github.com/menta2k/photo-grader/pkg/llamacpp"
	"github.com/menta2k/photo-grader/pkg/ollama"
	"github.com/menta2k/photo-grader/pkg/scoring"
)

// Vision backends accepted in the configuration
const (
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// NewVisionClient creates the client for the configured backend
func NewVisionClient(cfg config.VisionConfig) (client.VisionClient, error) {
	switch cfg.Backend {
	case "", BackendOllama:
		c, err := ollama.NewClient(cfg.URL, cfg.Timeout.Duration)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.URL, cfg.Timeout.Duration)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown vision backend %q", cfg.Backend)
	}
}

// NewDetector builds a vision-backed classifier and locator from configuration
func NewDetector(cfg config.VisionConfig) (*detection.Detector, error) {
	c, err := NewVisionClient(cfg)
	if err != nil {
		return nil, err
	}
	return detection.NewDetector(c, detection.Options{
		Model:        cfg.Model,
		MaxDimension: cfg.MaxDimension,
	}), nil
}

// FromConfig turns a loaded configuration into engine options. When the
// cache is enabled it connects to Redis and falls back to an in-process
// store if Redis does not answer.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Options, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := DefaultOptions()
	opts.Logger = logger

	opts.Analyzer = analyzer.Config{
		WorkingSize:      cfg.Analyzer.WorkingSize,
		SupportedFormats: cfg.Analyzer.SupportedFormats,
	}
	opts.Platform = cfg.Scoring.Platform
	opts.Category = cfg.Scoring.Category
	opts.Workers = cfg.Batch.Workers

	opts.Optimizer.TargetResolution = cfg.Optimizer.TargetResolution
	opts.Optimizer.MaxUpscale = cfg.Optimizer.MaxUpscale
	opts.Optimizer.SharpenSigma = cfg.Optimizer.SharpenSigma
	opts.Optimizer.Qualities = cfg.Optimizer.Qualities
	opts.Optimizer.OutputFormat = cfg.Optimizer.OutputFormat
	opts.Optimizer.WebPLossless = cfg.Optimizer.WebPLossless

	opts.Curves = scoring.Curves{
		TargetDimension: cfg.Optimizer.TargetResolution,
		FileSizeMinKB:   cfg.Scoring.FileSizeMinKB,
		FileSizeMaxKB:   cfg.Scoring.FileSizeMaxKB,
	}

	if cfg.Vision.Enabled {
		d, err := NewDetector(cfg.Vision)
		if err != nil {
			return Options{}, err
		}
		opts.Classifier = d
		opts.Locator = d
		logger.Info("vision backend enabled", "backend", cfg.Vision.Backend, "url", cfg.Vision.URL, "model", cfg.Vision.Model)
	}

	if cfg.Cache.Enabled {
		opts.CacheTTL = cfg.Cache.TTL.Duration
		opts.CachePrefix = cfg.Cache.Prefix
		opts.Cache = connectCache(ctx, cfg.Cache.RedisAddr, logger)
	}
	return opts, nil
}

func connectCache(ctx context.Context, addr string, logger *slog.Logger) cache.Store {
	store := cache.NewRedisStore(addr)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, using in-memory cache", "addr", addr, "error", err)
		store.Close()
		return cache.NewMemoryStore()
	}
	return store
}
