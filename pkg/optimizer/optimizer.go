// Package optimizer edits a product photo to raise its score and re-scores the result.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/photo-grader/pkg/analyzer"
	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/cropper"
	"github.com/menta2k/photo-grader/pkg/fusion"
	"github.com/menta2k/photo-grader/pkg/processing"
	"github.com/menta2k/photo-grader/pkg/scoring"
	"github.com/menta2k/photo-grader/pkg/types"
)

// ErrTransform marks a failed resize, filter or encode step. Callers see it
// through Result.TransformFailed rather than as a returned error.
var ErrTransform = errors.New("image transform failed")

// Transform names a step the pipeline applied
type Transform string

const (
	TransformCrop       Transform = "crop_to_aspect"
	TransformResize     Transform = "resize"
	TransformSharpen    Transform = "sharpen"
	TransformBrighten   Transform = "brighten"
	TransformDarken     Transform = "darken"
	TransformRecompress Transform = "recompress"
)

// Config holds the pipeline targets
type Config struct {
	TargetResolution    int     `toml:"target_resolution"`
	TargetAspect        float64 `toml:"target_aspect"`
	MaxUpscale          float64 `toml:"max_upscale"`
	ResolutionTolerance float64 `toml:"resolution_tolerance"`
	AspectTolerance     float64 `toml:"aspect_tolerance"`
	SharpnessThreshold  float64 `toml:"sharpness_threshold"`
	ScoreThreshold      float64 `toml:"score_threshold"`
	SharpenSigma        float64 `toml:"sharpen_sigma"`
	SaturationBoost     float64 `toml:"saturation_boost"`
	Qualities           []int   `toml:"qualities"`
	OutputFormat        string  `toml:"output_format"`
	WebPLossless        bool    `toml:"webp_lossless"`
}

// DefaultConfig targets a 2000px square JPEG
func DefaultConfig() Config {
	return Config{
		TargetResolution:    2000,
		TargetAspect:        1,
		MaxUpscale:          1.5,
		ResolutionTolerance: 0.10,
		AspectTolerance:     0.05,
		SharpnessThreshold:  60,
		ScoreThreshold:      85,
		SharpenSigma:        1.5,
		SaturationBoost:     5,
		Qualities:           []int{92, 85, 80, 72},
		OutputFormat:        "jpeg",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetResolution <= 0 {
		c.TargetResolution = d.TargetResolution
	}
	if c.TargetAspect <= 0 {
		c.TargetAspect = d.TargetAspect
	}
	if c.MaxUpscale < 1 {
		c.MaxUpscale = d.MaxUpscale
	}
	if c.ResolutionTolerance <= 0 {
		c.ResolutionTolerance = d.ResolutionTolerance
	}
	if c.AspectTolerance <= 0 {
		c.AspectTolerance = d.AspectTolerance
	}
	if c.SharpnessThreshold <= 0 {
		c.SharpnessThreshold = d.SharpnessThreshold
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = d.ScoreThreshold
	}
	if c.SharpenSigma <= 0 {
		c.SharpenSigma = d.SharpenSigma
	}
	if len(c.Qualities) == 0 {
		c.Qualities = d.Qualities
	}
	if c.OutputFormat == "" {
		c.OutputFormat = d.OutputFormat
	}
	return c
}

// Request is one optimization job
type Request struct {
	Data       []byte
	Category   scoring.Category
	Platform   compliance.Platform
	Attributes *types.SemanticAttributes
	// ProductBox centers the aspect crop on the product when set
	ProductBox *types.Rect
}

// Evaluation is the full measurement of one version of an image
type Evaluation struct {
	Metrics    analyzer.RawMetrics `json:"metrics"`
	Severity   analyzer.Severity   `json:"severity"`
	Score      scoring.PhotoScore  `json:"score"`
	Compliance compliance.Result   `json:"compliance"`
	Fused      fusion.Record       `json:"fused"`
	Format     string              `json:"format"`
}

// Result is the outcome of one optimization
type Result struct {
	OriginalScore     float64     `json:"originalScore"`
	NewScore          float64     `json:"newScore"`
	Improvement       float64     `json:"improvement"`
	TransformsApplied []Transform `json:"transformsApplied"`
	OutputBytes       []byte      `json:"-"`
	AlreadyOptimized  bool        `json:"alreadyOptimized"`
	UpscaleCapped     bool        `json:"upscaleCapped"`
	OutputWidth       int         `json:"outputWidth"`
	OutputHeight      int         `json:"outputHeight"`
	OutputFormat      string      `json:"outputFormat"`
	Quality           int         `json:"quality,omitempty"`
	FitsSizeLimit     bool        `json:"fitsSizeLimit"`
	TransformFailed   bool        `json:"transformFailed"`
	FailureReason     string      `json:"failureReason,omitempty"`
	Message           string      `json:"message"`
	Before            Evaluation  `json:"before"`
	After             Evaluation  `json:"after"`
}

type encodeFunc func(img image.Image, format string, quality int, lossless bool) ([]byte, error)

// Pipeline runs the conditional transform sequence. It holds no per-request state.
type Pipeline struct {
	config   Config
	analyzer *analyzer.ImageAnalyzer
	scorer   *scoring.Scorer
	logger   *slog.Logger
	encode   encodeFunc
}

// New creates a pipeline. A nil logger uses slog.Default().
func New(a *analyzer.ImageAnalyzer, s *scoring.Scorer, config Config, logger *slog.Logger) *Pipeline {
	if a == nil {
		a = analyzer.New()
	}
	if s == nil {
		s = scoring.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		config:   config.withDefaults(),
		analyzer: a,
		scorer:   s,
		logger:   logger,
		encode:   processing.Encode,
	}
}

// Config returns the effective pipeline configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Evaluate measures, scores and checks compliance for a decoded image
func (p *Pipeline) Evaluate(raw *analyzer.RawImage, category scoring.Category, platform compliance.Platform, attrs *types.SemanticAttributes) Evaluation {
	m, sev := p.analyzer.Measure(raw)
	return Evaluation{
		Metrics:  m,
		Severity: sev,
		Score:    p.scorer.Score(m, category),
		Compliance: compliance.Evaluate(platform, compliance.Specs{
			Width:         raw.Width,
			Height:        raw.Height,
			FileSizeBytes: raw.Size,
			ColorProfile:  raw.ColorSpace,
			Format:        raw.Format,
		}),
		Fused: fusion.Fuse(platform, fusion.Input{
			Metrics:    m,
			Severity:   sev,
			ColorSpace: raw.ColorSpace,
			Attributes: attrs,
		}),
		Format: raw.Format,
	}
}

// Optimize runs the pipeline. Undecodable input returns an error wrapping
// analyzer.ErrDecode; a failing transform returns the original bytes with
// TransformFailed set.
func (p *Pipeline) Optimize(ctx context.Context, req Request) (*Result, error) {
	raw, err := p.analyzer.Decode(req.Data)
	if err != nil {
		return nil, err
	}
	if req.Platform.Name == "" {
		req.Platform = compliance.MustLookup(compliance.DefaultPlatform)
	}

	before := p.Evaluate(raw, req.Category, req.Platform, req.Attributes)
	log := p.logger.With("category", before.Score.Category, "platform", req.Platform.Name)
	log.Debug("evaluated original", "score", before.Score.Overall, "sharpness", before.Metrics.Sharpness,
		"brightness", before.Metrics.Brightness, "width", raw.Width, "height", raw.Height)

	unchanged := func() *Result {
		return &Result{
			OriginalScore:     before.Score.Overall,
			NewScore:          before.Score.Overall,
			TransformsApplied: []Transform{},
			OutputBytes:       req.Data,
			OutputWidth:       raw.Width,
			OutputHeight:      raw.Height,
			OutputFormat:      raw.Format,
			FitsSizeLimit:     raw.Size <= req.Platform.MaxFileSizeBytes,
			Before:            before,
			After:             before,
		}
	}

	if p.isAlreadyOptimal(before, req.Platform) {
		res := unchanged()
		res.AlreadyOptimized = true
		res.Message = fmt.Sprintf("Already optimized (score %.0f); no transforms applied", before.Score.Overall)
		log.Info("image already optimal", "score", before.Score.Overall)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := p.transform(ctx, raw, before, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		res := unchanged()
		res.TransformFailed = true
		res.FailureReason = err.Error()
		res.Message = "Optimization failed; original image returned unchanged"
		log.Warn("transform failed, returning original", "error", err)
		return res, nil
	}

	outRaw, err := p.analyzer.Decode(out.data)
	if err != nil {
		res := unchanged()
		res.TransformFailed = true
		res.FailureReason = fmt.Errorf("%w: re-decode output: %v", ErrTransform, err).Error()
		res.Message = "Optimization failed; original image returned unchanged"
		log.Warn("optimized output could not be decoded", "error", err)
		return res, nil
	}

	after := p.Evaluate(outRaw, req.Category, req.Platform, req.Attributes)
	res := &Result{
		OriginalScore:     before.Score.Overall,
		NewScore:          after.Score.Overall,
		Improvement:       after.Score.Overall - before.Score.Overall,
		TransformsApplied: out.transforms,
		OutputBytes:       out.data,
		UpscaleCapped:     out.upscaleCapped,
		OutputWidth:       outRaw.Width,
		OutputHeight:      outRaw.Height,
		OutputFormat:      outRaw.Format,
		Quality:           out.quality,
		FitsSizeLimit:     len(out.data) <= req.Platform.MaxFileSizeBytes,
		Before:            before,
		After:             after,
	}
	res.Message = summarize(res)

	if res.Improvement < 0 {
		log.Warn("optimization regressed score", "before", res.OriginalScore, "after", res.NewScore, "transforms", res.TransformsApplied)
	} else {
		log.Info("optimization complete", "before", res.OriginalScore, "after", res.NewScore, "transforms", res.TransformsApplied)
	}
	return res, nil
}

type transformOutput struct {
	data          []byte
	transforms    []Transform
	quality       int
	upscaleCapped bool
}

// transform applies the conditional steps in order. Panics from imaging or
// the encoders are converted into ErrTransform.
func (p *Pipeline) transform(ctx context.Context, raw *analyzer.RawImage, before Evaluation, req Request) (out transformOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrTransform, r)
		}
	}()

	c := p.config
	img := raw.Image
	out.transforms = []Transform{}

	plan := c.planResize(raw.Width, raw.Height, req.ProductBox)
	if plan.NeedsCrop {
		img = cropper.Apply(img, plan.Crop)
		out.transforms = append(out.transforms, TransformCrop)
	}
	if plan.NeedsResize {
		img = imaging.Resize(img, plan.Width, plan.Height, imaging.Lanczos)
		out.transforms = append(out.transforms, TransformResize)
	}
	out.upscaleCapped = plan.UpscaleCapped
	if plan.UpscaleCapped {
		p.logger.Debug("upscale capped", "max_upscale", c.MaxUpscale, "width", plan.Width, "height", plan.Height)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	if before.Metrics.Sharpness < c.SharpnessThreshold {
		img = imaging.Sharpen(img, c.SharpenSigma)
		out.transforms = append(out.transforms, TransformSharpen)
	}

	if needsBrightness(before.Metrics) {
		lo, _ := scoring.BrightnessBand()
		shift := brightnessShift(analyzer.MeanBrightness(img))
		img = imaging.AdjustBrightness(img, shift)
		if before.Metrics.Brightness < lo {
			if c.SaturationBoost != 0 {
				img = imaging.AdjustSaturation(img, c.SaturationBoost)
			}
			out.transforms = append(out.transforms, TransformBrighten)
		} else {
			out.transforms = append(out.transforms, TransformDarken)
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	data, quality, err := p.encodeWithinLimit(img, req.Platform.MaxFileSizeBytes)
	if err != nil {
		return out, err
	}
	out.data = data
	out.quality = quality
	out.transforms = append(out.transforms, TransformRecompress)
	return out, nil
}

// encodeWithinLimit steps down the quality ladder until the output fits.
// When nothing fits the smallest attempt is returned.
func (p *Pipeline) encodeWithinLimit(img image.Image, limit int) ([]byte, int, error) {
	c := p.config
	format := strings.ToLower(c.OutputFormat)

	if format == "png" || (format == "webp" && c.WebPLossless) {
		data, err := p.encode(img, format, 100, true)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrTransform, err)
		}
		return data, 0, nil
	}

	var data []byte
	quality := 0
	for _, q := range c.Qualities {
		encoded, err := p.encode(img, format, q, false)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: encode at quality %d: %v", ErrTransform, q, err)
		}
		data, quality = encoded, q
		if limit <= 0 || len(encoded) <= limit {
			break
		}
		p.logger.Debug("encoded output over size limit", "quality", q, "bytes", len(encoded), "limit", limit)
	}
	return data, quality, nil
}

func summarize(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score %.0f -> %.0f (%+.0f) as %s %dx%d", r.OriginalScore, r.NewScore, r.Improvement, r.OutputFormat, r.OutputWidth, r.OutputHeight)
	if r.Quality > 0 {
		fmt.Fprintf(&b, " at quality %d", r.Quality)
	}
	if r.UpscaleCapped {
		b.WriteString("; upscale capped, source resolution too low for target")
	}
	if !r.FitsSizeLimit {
		b.WriteString("; output still exceeds platform size limit")
	}
	return b.String()
}
