// Package photograder grades and improves marketplace product photos.
//
// It combines deterministic pixel measurements, marketplace compliance rules
// and category-weighted scoring, and can edit an image to raise its score.
//
// Basic usage:
//
//	engine, err := photograder.NewWithOptions(photograder.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	data, _ := os.ReadFile("ring.jpg")
//	result, err := engine.Analyze(ctx, data, photograder.AnalyzeOptions{Title: "Silver ring"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Score %.0f (%s)\n", result.Score.Overall, result.Score.Category)
//
//	optimized, err := engine.Optimize(ctx, data, photograder.OptimizeOptions{})
//	if err == nil && !optimized.AlreadyOptimized {
//		os.WriteFile("ring_optimized.jpg", optimized.OutputBytes, 0644)
//	}
//
// The package is a facade over:
//
//  1. Analyzer (pkg/analyzer): decoding and raw pixel metrics
//  2. Compliance (pkg/compliance): marketplace technical rules
//  3. Scoring (pkg/scoring): category-weighted quality score
//  4. Fusion (pkg/fusion): merge with classifier attributes
//  5. Optimizer (pkg/optimizer): transform pipeline
//  6. Listing (pkg/listing): multi-image aggregation
//  7. Cropper (pkg/cropper): product-box smart crop
//
// An optional vision model (pkg/detection over pkg/ollama or pkg/llamacpp)
// supplies semantic attributes, product boxes and the authoritative score.
package photograder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/menta2k/photo-grader/internal/cache"
	"github.com/menta2k/photo-grader/internal/metrics"
	"github.com/menta2k/photo-grader/pkg/analyzer"
	"github.com/menta2k/photo-grader/pkg/batch"
	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/cropper"
	"github.com/menta2k/photo-grader/pkg/detection"
	"github.com/menta2k/photo-grader/pkg/fusion"
	"github.com/menta2k/photo-grader/pkg/listing"
	"github.com/menta2k/photo-grader/pkg/optimizer"
	"github.com/menta2k/photo-grader/pkg/scoring"
	"github.com/menta2k/photo-grader/pkg/types"
)

// Version of the photo grader library
const Version = "1.0.0"

// Options wires the engine. Zero values fall back to package defaults; nil
// collaborators disable the feature that needs them.
type Options struct {
	Analyzer  analyzer.Config
	Curves    scoring.Curves
	Optimizer optimizer.Config
	Cropper   cropper.CropConfig
	Blend     compliance.Weights
	Workers   int
	Platform  string
	// Category is used when a request names neither category nor title
	Category string

	Classifier detection.Classifier
	Locator    detection.Locator

	Cache       cache.Store
	CacheTTL    time.Duration
	CachePrefix string

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// DefaultOptions returns a deterministic, offline configuration
func DefaultOptions() Options {
	return Options{
		Analyzer:    analyzer.DefaultConfig(),
		Curves:      scoring.DefaultCurves(),
		Optimizer:   optimizer.DefaultConfig(),
		Cropper:     cropper.DefaultConfig(),
		Blend:       compliance.DefaultWeights,
		Platform:    compliance.DefaultPlatform,
		CacheTTL:    24 * time.Hour,
		CachePrefix: "photo-grader:",
	}
}

// Engine is the high-level entry point. It is safe for concurrent use.
type Engine struct {
	analyzer   *analyzer.ImageAnalyzer
	scorer     *scoring.Scorer
	pipeline   *optimizer.Pipeline
	cropper    *cropper.SmartCropper
	pool       *batch.Pool
	platform   compliance.Platform
	category   string
	blend      compliance.Weights
	classifier detection.Classifier
	locator    detection.Locator
	cache      cache.Store
	cacheTTL   time.Duration
	prefix     string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates an Engine with default options
func New() *Engine {
	e, err := NewWithOptions(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return e
}

// NewWithOptions creates an Engine. The optimizer's target resolution also
// anchors the scorer's dimension curve unless Curves sets its own.
func NewWithOptions(opts Options) (*Engine, error) {
	platform, err := compliance.Lookup(opts.Platform)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Optimizer.TargetResolution <= 0 {
		opts.Optimizer.TargetResolution = optimizer.DefaultConfig().TargetResolution
	}
	if opts.Curves.TargetDimension <= 0 {
		opts.Curves.TargetDimension = opts.Optimizer.TargetResolution
	}
	if opts.Blend.Visual <= 0 && opts.Blend.Compliance <= 0 {
		opts.Blend = compliance.DefaultWeights
	}

	a := analyzer.NewWithConfig(opts.Analyzer)
	s := scoring.NewWithCurves(opts.Curves)

	return &Engine{
		analyzer:   a,
		scorer:     s,
		pipeline:   optimizer.New(a, s, opts.Optimizer, logger),
		cropper:    cropper.NewWithConfig(opts.Cropper),
		pool:       batch.New(opts.Workers, logger),
		platform:   platform,
		category:   opts.Category,
		blend:      opts.Blend,
		classifier: opts.Classifier,
		locator:    opts.Locator,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		prefix:     opts.CachePrefix,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// Close releases the cache connection
func (e *Engine) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

// Platform returns the default platform rules
func (e *Engine) Platform() compliance.Platform {
	return e.platform
}

// AnalyzeOptions selects how one image is analyzed
type AnalyzeOptions struct {
	// Category wins over Title; both empty means the default category
	Category string
	Title    string
	Platform string
	// Attributes overrides the classifier when set
	Attributes *types.SemanticAttributes
	// Main marks the listing's first photo, which is also checked for thumbnail safety
	Main bool
}

// AnalysisResult is the full report for one image
type AnalysisResult struct {
	ContentHash string                `json:"contentHash"`
	Format      string                `json:"format"`
	ColorSpace  string                `json:"colorSpace"`
	Metrics     analyzer.RawMetrics   `json:"metrics"`
	Severity    analyzer.Severity     `json:"severity"`
	Score       scoring.PhotoScore    `json:"score"`
	Compliance  compliance.Result     `json:"compliance"`
	Fused       fusion.Record         `json:"fused"`
	FinalScore  float64               `json:"finalScore"`
	Suggestions []string              `json:"suggestions"`
	Product     *types.Detection      `json:"product,omitempty"`
	Classifier  *types.Classification `json:"classifier,omitempty"`
	Cached      bool                  `json:"cached"`
}

func (e *Engine) resolvePlatform(name string) (compliance.Platform, error) {
	if name == "" {
		return e.platform, nil
	}
	return compliance.Lookup(name)
}

func (e *Engine) resolveCategory(category, title string) scoring.Category {
	if category == "" && title == "" {
		category = e.category
	}
	return scoring.Resolve(category, title)
}

// Analyze measures, scores and checks one image. Classifier and locator
// failures fall back to conservative defaults; only undecodable input errors.
func (e *Engine) Analyze(ctx context.Context, data []byte, opts AnalyzeOptions) (*AnalysisResult, error) {
	start := time.Now()
	platform, err := e.resolvePlatform(opts.Platform)
	if err != nil {
		return nil, err
	}
	category := e.resolveCategory(opts.Category, opts.Title)
	hash := analyzer.ContentHash(data)

	cacheable := e.cache != nil && opts.Attributes == nil
	key := cache.Key(e.prefix, "analysis", hash, platform.Name, string(category), fmt.Sprint(opts.Main))
	if cacheable {
		cached, ok, err := cache.GetJSON[AnalysisResult](ctx, e.cache, key)
		switch {
		case err != nil:
			e.metrics.ObserveCache("error")
			e.logger.Warn("cache lookup failed", "error", err)
		case ok:
			e.metrics.ObserveCache("hit")
			cached.Cached = true
			return &cached, nil
		default:
			e.metrics.ObserveCache("miss")
		}
	}

	raw, err := e.analyzer.Decode(data)
	if err != nil {
		e.metrics.ObserveAnalysis(string(category), 0, 0, err)
		return nil, err
	}
	m, sev := e.analyzer.Measure(raw)
	score := e.scorer.Score(m, category)
	comp := compliance.Evaluate(platform, compliance.Specs{
		Width:         raw.Width,
		Height:        raw.Height,
		FileSizeBytes: raw.Size,
		ColorProfile:  raw.ColorSpace,
		Format:        raw.Format,
	})

	res := &AnalysisResult{
		ContentHash: hash,
		Format:      raw.Format,
		ColorSpace:  raw.ColorSpace,
		Metrics:     m,
		Severity:    sev,
		Score:       score,
		Compliance:  comp,
		FinalScore:  compliance.Blend(score.Overall, comp.Overall, e.blend),
		Suggestions: score.Suggestions,
	}

	// a result built on a fallback is not cached, so a recovered backend is asked again
	complete := true
	attrs := opts.Attributes
	if attrs == nil && e.classifier != nil {
		if cls, err := e.classifier.Classify(ctx, data); err != nil {
			complete = false
			e.metrics.ObserveClassifier("unavailable")
			e.logger.Warn("classifier unavailable, using default attributes", "hash", hash, "error", err)
		} else {
			e.metrics.ObserveClassifier("ok")
			res.Classifier = &cls
			attrs = &cls.Attributes
		}
	}

	var thumbSafe *bool
	if opts.Main && e.locator != nil {
		if det, err := e.locator.Locate(ctx, data); err != nil {
			if !errors.Is(err, detection.ErrNoDetection) {
				complete = false
			}
			e.logger.Debug("product not located", "hash", hash, "error", err)
		} else {
			res.Product = &det
			safe := cropper.ThumbnailSafe(raw.Width, raw.Height, det.Box, e.cropper.Config().ThumbnailMargin)
			thumbSafe = &safe
		}
	}

	res.Fused = fusion.Fuse(platform, fusion.Input{
		Metrics:       m,
		Severity:      sev,
		ColorSpace:    raw.ColorSpace,
		Attributes:    attrs,
		ThumbnailSafe: thumbSafe,
		Main:          opts.Main,
	})

	elapsed := time.Since(start)
	e.metrics.ObserveAnalysis(string(category), score.Overall, elapsed, nil)
	e.logger.Debug("image analyzed", "hash", hash, "category", category, "score", score.Overall,
		"compliance", comp.Overall, "gate", res.Fused.GateScore, "elapsed", elapsed)

	if cacheable && complete {
		if err := cache.SetJSON(ctx, e.cache, key, res, e.cacheTTL); err != nil {
			e.logger.Warn("cache store failed", "error", err)
		}
	}
	return res, nil
}

// OptimizeOptions selects how one image is optimized
type OptimizeOptions struct {
	Category   string
	Title      string
	Platform   string
	Attributes *types.SemanticAttributes
	// ProductBox centers the aspect crop on the product. When nil and
	// LocateProduct is set, the engine's locator is asked for one.
	ProductBox    *types.Rect
	LocateProduct bool
}

// Optimize runs the transform pipeline on one image
func (e *Engine) Optimize(ctx context.Context, data []byte, opts OptimizeOptions) (*optimizer.Result, error) {
	platform, err := e.resolvePlatform(opts.Platform)
	if err != nil {
		return nil, err
	}

	box := opts.ProductBox
	if box == nil && opts.LocateProduct && e.locator != nil {
		if det, err := e.locator.Locate(ctx, data); err != nil {
			e.logger.Debug("product not located, using center crop", "error", err)
		} else {
			box = &det.Box
		}
	}

	res, err := e.pipeline.Optimize(ctx, optimizer.Request{
		Data:       data,
		Category:   e.resolveCategory(opts.Category, opts.Title),
		Platform:   platform,
		Attributes: opts.Attributes,
		ProductBox: box,
	})
	if err != nil {
		e.metrics.ObserveOptimization(metrics.OutcomeFailed, 0)
		return nil, err
	}

	switch {
	case res.TransformFailed:
		e.metrics.ObserveOptimization(metrics.OutcomeFailed, 0)
	case res.AlreadyOptimized:
		e.metrics.ObserveOptimization(metrics.OutcomeAlreadyOptimal, 0)
	case res.Improvement > 0:
		e.metrics.ObserveOptimization(metrics.OutcomeImproved, res.Improvement)
	default:
		e.metrics.ObserveOptimization(metrics.OutcomeNotImproved, res.Improvement)
	}
	return res, nil
}

func (e *Engine) checkCapacity(n int, platformName string) (compliance.Platform, error) {
	platform, err := e.resolvePlatform(platformName)
	if err != nil {
		return compliance.Platform{}, err
	}
	if err := batch.CheckCapacity(n, platform.MaxPhotos); err != nil {
		e.metrics.ObserveRejectedBatch()
		return compliance.Platform{}, err
	}
	return platform, nil
}

// AnalyzeBatch analyzes every image on the worker pool. The first image is
// treated as the main photo. Per-image failures are reported in their
// outcome; only an oversized batch is rejected as a whole.
func (e *Engine) AnalyzeBatch(ctx context.Context, images [][]byte, opts AnalyzeOptions) (*batch.Result[*AnalysisResult], error) {
	if _, err := e.checkCapacity(len(images), opts.Platform); err != nil {
		return nil, err
	}
	return batch.Run(ctx, e.pool, len(images), func(ctx context.Context, i int) (*AnalysisResult, error) {
		o := opts
		o.Main = i == 0
		return e.Analyze(ctx, images[i], o)
	}), nil
}

// OptimizeBatch optimizes every image on the worker pool
func (e *Engine) OptimizeBatch(ctx context.Context, images [][]byte, opts OptimizeOptions) (*batch.Result[*optimizer.Result], error) {
	if _, err := e.checkCapacity(len(images), opts.Platform); err != nil {
		return nil, err
	}
	return batch.Run(ctx, e.pool, len(images), func(ctx context.Context, i int) (*optimizer.Result, error) {
		return e.Optimize(ctx, images[i], opts)
	}), nil
}

// ScoreListingAuthoritative scores a listing from the classifier's own
// scores. Any image still unscored after one retry fails the whole listing.
func (e *Engine) ScoreListingAuthoritative(ctx context.Context, images [][]byte, platformName string) (listing.Result, error) {
	platform, err := e.checkCapacity(len(images), platformName)
	if err != nil {
		return listing.Result{}, err
	}
	if len(images) == 0 {
		return listing.Result{}, listing.ErrNoImages
	}
	if e.classifier == nil {
		return listing.Result{}, fmt.Errorf("%w: %w", batch.ErrAuthoritativeUnavailable, detection.ErrClassifierUnavailable)
	}

	requestID, classes, err := batch.Authoritative(ctx, e.pool, images, e.classifier)
	if err != nil {
		e.metrics.ObserveClassifier("unavailable")
		return listing.Result{}, err
	}
	e.metrics.ObserveClassifier("ok")

	results := make([]listing.ImageResult, len(classes))
	for i, c := range classes {
		results[i] = listing.ImageResult{Score: float64(c.Score), ShotTypes: c.Attributes.ShotTypes}
	}
	res, err := listing.AggregateForPlatform(platform, results)
	if err != nil {
		return listing.Result{}, err
	}
	e.logger.Info("authoritative listing scored", "request_id", requestID, "images", len(images), "score", res.OverallListingScore)
	return res, nil
}

// AggregateListing combines per-image results into one listing score
func (e *Engine) AggregateListing(platformName string, results []listing.ImageResult) (listing.Result, error) {
	platform, err := e.resolvePlatform(platformName)
	if err != nil {
		return listing.Result{}, err
	}
	return listing.AggregateForPlatform(platform, results)
}

// ListingInputs turns batch outcomes into aggregator input using the local
// photo score and the fused shot types. Positions are kept; failed images are
// marked so the aggregator can reject a failed main image.
func ListingInputs(outcomes []batch.Outcome[*AnalysisResult]) []listing.ImageResult {
	out := make([]listing.ImageResult, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil || o.Value == nil {
			out[i] = listing.ImageResult{Failed: true}
			continue
		}
		out[i] = listing.ImageResult{Score: o.Value.Score.Overall, ShotTypes: o.Value.Fused.ShotTypes()}
	}
	return out
}

// SmartCrop converts a product box into a crop rectangle. Zero fill or
// aspect use the configured defaults.
func (e *Engine) SmartCrop(width, height int, box types.Rect, fillPercent, aspect float64) (cropper.CropResult, error) {
	return e.cropper.LocateWith(width, height, box, fillPercent, aspect)
}

// LocateProduct asks the configured locator for the product box
func (e *Engine) LocateProduct(ctx context.Context, data []byte) (types.Detection, error) {
	if e.locator == nil {
		return types.Detection{}, errors.New("no product locator configured")
	}
	return e.locator.Locate(ctx, data)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
