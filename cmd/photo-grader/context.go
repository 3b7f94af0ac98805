package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	photograder "github.com/menta2k/photo-grader"
	"github.com/menta2k/photo-grader/internal/config"
	"github.com/menta2k/photo-grader/internal/logging"
	"github.com/menta2k/photo-grader/internal/metrics"
	"github.com/menta2k/photo-grader/internal/utils"
	"github.com/menta2k/photo-grader/pkg/processing"
)

type commandContext struct {
	configFlag   string
	logLevelFlag string
	metricsFlag  string
	jsonFlag     bool

	config       *config.Config
	configPath   string
	configExists bool
	logger       *slog.Logger
	metrics      *metrics.Metrics
	engine       *photograder.Engine
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}

	path := strings.TrimSpace(c.configFlag)
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, exists, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl := strings.TrimSpace(c.logLevelFlag); lvl != "" {
		cfg.Log.Level = strings.ToLower(lvl)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	c.config, c.configPath, c.configExists, c.logger = cfg, path, exists, logger
	return cfg, nil
}

// newEngine builds the engine from the loaded configuration. Commands adjust
// c.config from their flags before calling it.
func (c *commandContext) newEngine(ctx context.Context) (*photograder.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts, err := photograder.FromConfig(ctx, cfg, c.logger)
	if err != nil {
		return nil, err
	}
	if c.metricsFlag != "" {
		c.metrics = metrics.New()
		opts.Metrics = c.metrics
	}
	engine, err := photograder.NewWithOptions(opts)
	if err != nil {
		return nil, err
	}
	c.engine = engine
	return engine, nil
}

// finish closes the engine and flushes metrics
func (c *commandContext) finish() error {
	if c.engine != nil {
		if err := c.engine.Close(); err != nil {
			c.logger.Warn("close engine", "error", err)
		}
	}
	if c.metricsFlag != "" && c.metrics != nil {
		if err := c.metrics.WriteTextfile(c.metricsFlag); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// loadSources expands directories and reads every file or URL
func loadSources(ctx context.Context, args []string) ([]string, [][]byte, error) {
	sources, err := utils.ExpandInputs(args)
	if err != nil {
		return nil, nil, err
	}
	p := processing.NewProcessor()
	images := make([][]byte, len(sources))
	for i, src := range sources {
		data, err := p.Load(ctx, src)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", src, err)
		}
		images[i] = data
	}
	return sources, images, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
