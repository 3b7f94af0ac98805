// Package detection adapts a vision model into the classifier and locator
// ports the grading core depends on.
package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/menta2k/photo-grader/pkg/client"
	"github.com/menta2k/photo-grader/pkg/processing"
	"github.com/menta2k/photo-grader/pkg/types"
)

var (
	// ErrClassifierUnavailable means the classifier could not produce a valid result
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrNoDetection means the locator found no product
	ErrNoDetection = errors.New("no product detected")
)

// Classifier returns an authoritative score plus semantic attributes for one image
type Classifier interface {
	Classify(ctx context.Context, data []byte) (types.Classification, error)
}

// Locator returns one product bounding box in source pixel coordinates
type Locator interface {
	Locate(ctx context.Context, data []byte) (types.Detection, error)
}

// ClassifierFunc adapts a function to the Classifier interface
type ClassifierFunc func(ctx context.Context, data []byte) (types.Classification, error)

func (f ClassifierFunc) Classify(ctx context.Context, data []byte) (types.Classification, error) {
	return f(ctx, data)
}

// LocatorFunc adapts a function to the Locator interface
type LocatorFunc func(ctx context.Context, data []byte) (types.Detection, error)

func (f LocatorFunc) Locate(ctx context.Context, data []byte) (types.Detection, error) {
	return f(ctx, data)
}

// Options controls how images are sent to the model
type Options struct {
	Model string
	// MaxDimension bounds the longest side of the image sent to the model
	MaxDimension int
	Quality      int
}

// DefaultOptions returns sensible defaults for local vision models
func DefaultOptions() Options {
	return Options{Model: "minicpm-v", MaxDimension: 1024, Quality: 85}
}

// Detector implements Classifier and Locator on top of a VisionClient
type Detector struct {
	client client.VisionClient
	opts   Options
}

var (
	_ Classifier = (*Detector)(nil)
	_ Locator    = (*Detector)(nil)
)

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient, opts Options) *Detector {
	d := DefaultOptions()
	if opts.Model == "" {
		opts.Model = d.Model
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = d.MaxDimension
	}
	if opts.Quality <= 0 {
		opts.Quality = d.Quality
	}
	return &Detector{client: c, opts: opts}
}

// prepare decodes the bytes once and returns the model payload plus both sizes
func (d *Detector) prepare(data []byte) (b64 string, source, sent image.Point, err error) {
	img, err := processing.DecodeOriented(data)
	if err != nil {
		return "", image.Point{}, image.Point{}, err
	}
	b64, sent, err = processing.EncodeForModel(img, d.opts.MaxDimension, d.opts.Quality)
	return b64, img.Bounds().Size(), sent, err
}

// Describe asks the model for a short free-text description, useful to check
// that the backend can actually see images
func (d *Detector) Describe(ctx context.Context, data []byte) (string, error) {
	b64, _, _, err := d.prepare(data)
	if err != nil {
		return "", err
	}
	answer, err := d.client.SimpleQuery(ctx, d.opts.Model, DescribePrompt, b64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	return strings.TrimSpace(answer), nil
}

// classifierPayload is the flat JSON object ClassifyPrompt asks for
type classifierPayload struct {
	types.SemanticAttributes
	Score             *float64 `json:"overall_score"`
	DetectedPhotoType string   `json:"detected_photo_type"`
	HasStudioShot     bool     `json:"has_studio_shot"`
	HasLifestyleShot  bool     `json:"has_lifestyle_shot"`
	HasScaleShot      bool     `json:"has_scale_shot"`
	HasDetailShot     bool     `json:"has_detail_shot"`
	HasGroupShot      bool     `json:"has_group_shot"`
	HasPackagingShot  bool     `json:"has_packaging_shot"`
	HasProcessShot    bool     `json:"has_process_shot"`
}

// Classify sends the image to the model and validates the answer. Transport
// failures and malformed or out-of-range answers wrap ErrClassifierUnavailable.
func (d *Detector) Classify(ctx context.Context, data []byte) (types.Classification, error) {
	b64, _, _, err := d.prepare(data)
	if err != nil {
		return types.Classification{}, err
	}

	raw, err := d.client.JSONQuery(ctx, d.opts.Model, ClassifyPrompt, b64)
	if err != nil {
		return types.Classification{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	return ParseClassification(raw)
}

// ParseClassification validates a classifier JSON answer
func ParseClassification(raw string) (types.Classification, error) {
	var p classifierPayload
	if err := json.Unmarshal([]byte(client.SanitizeJSON(raw)), &p); err != nil {
		return types.Classification{}, fmt.Errorf("%w: invalid JSON: %v", ErrClassifierUnavailable, err)
	}
	if p.Score == nil {
		return types.Classification{}, fmt.Errorf("%w: missing overall_score", ErrClassifierUnavailable)
	}
	score := *p.Score
	if math.IsNaN(score) || score < 0 || score > 100 {
		return types.Classification{}, fmt.Errorf("%w: overall_score %v out of range", ErrClassifierUnavailable, score)
	}

	attrs := p.SemanticAttributes
	flags := []struct {
		set  bool
		shot types.ShotType
	}{
		{p.HasStudioShot, types.ShotStudio},
		{p.HasLifestyleShot, types.ShotLifestyle},
		{p.HasDetailShot, types.ShotDetail},
		{p.HasScaleShot, types.ShotScale},
		{p.HasGroupShot, types.ShotGroup},
		{p.HasPackagingShot, types.ShotPackaging},
		{p.HasProcessShot, types.ShotProcess},
	}
	candidates := append([]types.ShotType(nil), attrs.ShotTypes...)
	if t, ok := types.ParseShotType(strings.ToLower(p.DetectedPhotoType)); ok {
		candidates = append(candidates, t)
	}
	for _, f := range flags {
		if f.set {
			candidates = append(candidates, f.shot)
		}
	}
	attrs.ShotTypes = normalizeShotTypes(candidates)

	return types.Classification{Score: int(math.Round(score)), Attributes: attrs}, nil
}

// normalizeShotTypes drops unknown values and duplicates, keeping canonical order
func normalizeShotTypes(in []types.ShotType) []types.ShotType {
	seen := map[types.ShotType]bool{}
	for _, s := range in {
		if t, ok := types.ParseShotType(strings.ToLower(string(s))); ok {
			seen[t] = true
		}
	}
	var out []types.ShotType
	for _, t := range types.AllShotTypes() {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

type locatorPayload struct {
	Primary struct {
		Label      string    `json:"label"`
		Confidence float64   `json:"confidence"`
		Box        types.Box `json:"box"`
	} `json:"primary"`
}

// Locate asks the model for the product box and maps it to source pixels
func (d *Detector) Locate(ctx context.Context, data []byte) (types.Detection, error) {
	b64, source, sent, err := d.prepare(data)
	if err != nil {
		return types.Detection{}, err
	}

	raw, err := d.client.JSONQuery(ctx, d.opts.Model, LocatePrompt, b64)
	if err != nil {
		return types.Detection{}, fmt.Errorf("locate: %w", err)
	}

	var p locatorPayload
	if err := json.Unmarshal([]byte(client.SanitizeJSON(raw)), &p); err != nil {
		return types.Detection{}, fmt.Errorf("locate: invalid JSON: %v", err)
	}

	label := strings.ToLower(strings.TrimSpace(p.Primary.Label))
	if label == "" || label == "none" || p.Primary.Confidence <= 0 {
		return types.Detection{}, ErrNoDetection
	}

	box := normalizeBox(p.Primary.Box, sent.X, sent.Y)
	rect := box.ToRect(source.X, source.Y)
	if rect.Empty() {
		return types.Detection{}, ErrNoDetection
	}
	return types.Detection{
		Label:      label,
		Confidence: clamp(p.Primary.Confidence, 0, 1),
		Box:        rect,
	}, nil
}

// normalizeBox ensures box coordinates are within [0,1]. Models occasionally
// answer in pixels of the image they were sent; those are rescaled.
func normalizeBox(b types.Box, imgW, imgH int) types.Box {
	if (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) && imgW > 0 && imgH > 0 {
		b = types.Box{
			X: b.X / float64(imgW),
			Y: b.Y / float64(imgH),
			W: b.W / float64(imgW),
			H: b.H / float64(imgH),
		}
	}
	return types.Box{
		X: clamp(b.X, 0, 1),
		Y: clamp(b.Y, 0, 1),
		W: clamp(b.W, 0, 1),
		H: clamp(b.H, 0, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
