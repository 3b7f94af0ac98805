// Package fusion merges measured image metrics with perceptual attributes
// supplied by an external classifier.
package fusion

import (
	"math"
	"strings"

	"github.com/menta2k/photo-grader/pkg/analyzer"
	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/types"
)

// Source records where the perceptual fields came from
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceDefault    Source = "default"
)

// Gate penalties, applied once each
const (
	PenaltyBelowMinimumWidth  = 15.0
	PenaltyBelowBenchmark     = 10.0
	PenaltyFileTooLarge       = 8.0
	PenaltyNotSRGB            = 5.0
	PenaltyThumbnailUnsafe    = 25.0
	PenaltySevereBlur         = 20.0
	PenaltySevereLighting     = 15.0
	PenaltyNotDistinguishable = 12.0
)

// Input is everything fusion needs for one image
type Input struct {
	Metrics    analyzer.RawMetrics
	Severity   analyzer.Severity
	ColorSpace string
	// Attributes is nil when the classifier was unavailable
	Attributes *types.SemanticAttributes
	// ThumbnailSafe is only consulted for the main image; nil means unknown
	ThumbnailSafe *bool
	Main          bool
}

// Deduction is one failed gate
type Deduction struct {
	Rule        string  `json:"rule"`
	Penalty     float64 `json:"penalty"`
	Explanation string  `json:"explanation"`
}

// Record is the fused view of one image
type Record struct {
	Metrics    analyzer.RawMetrics      `json:"metrics"`
	Severity   analyzer.Severity        `json:"severity"`
	Attributes types.SemanticAttributes `json:"attributes"`
	Source     Source                   `json:"source"`
	GateScore  float64                  `json:"gateScore"`
	Deductions []Deduction              `json:"deductions"`
	Passed     []string                 `json:"passed"`
}

// Fuse builds a Record. Measured fields always come from the extractor and
// perceptual fields from the classifier, defaulting to false when it is absent.
func Fuse(p compliance.Platform, in Input) Record {
	r := Record{
		Metrics:  in.Metrics,
		Severity: in.Severity,
		Source:   SourceDefault,
	}
	if in.Attributes != nil {
		r.Attributes = *in.Attributes
		r.Attributes.ShotTypes = append([]types.ShotType(nil), in.Attributes.ShotTypes...)
		r.Source = SourceClassifier
	}

	score := 100.0
	gate := func(failed bool, d Deduction, passed string) {
		if failed {
			r.Deductions = append(r.Deductions, d)
			score -= d.Penalty
			return
		}
		if passed != "" {
			r.Passed = append(r.Passed, passed)
		}
	}

	minWidth := p.MinResolution / 2
	gate(in.Metrics.Width < minWidth, Deduction{
		Rule:        "Below minimum width",
		Penalty:     PenaltyBelowMinimumWidth,
		Explanation: "Image is narrower than the marketplace minimum and may be rejected or shown blurry.",
	}, "Width meets minimum")

	gate(in.Metrics.MinDimension() < p.MinResolution, Deduction{
		Rule:        "Shortest side below quality benchmark",
		Penalty:     PenaltyBelowBenchmark,
		Explanation: "Buyers cannot zoom in on detail when the shortest side is below the benchmark.",
	}, "Shortest side meets benchmark")

	gate(in.Metrics.FileSizeBytes > p.MaxFileSizeBytes, Deduction{
		Rule:        "File size over limit",
		Penalty:     PenaltyFileTooLarge,
		Explanation: "File exceeds the " + p.MaxFileSizeLabel() + " upload limit.",
	}, "File size under limit")

	gate(in.ColorSpace != "" && !strings.EqualFold(in.ColorSpace, "srgb"), Deduction{
		Rule:        "Not sRGB",
		Penalty:     PenaltyNotSRGB,
		Explanation: "Colors may shift in browsers that assume sRGB.",
	}, "sRGB color profile")

	if in.Main && in.ThumbnailSafe != nil {
		gate(!*in.ThumbnailSafe, Deduction{
			Rule:        "First photo not thumbnail-safe",
			Penalty:     PenaltyThumbnailUnsafe,
			Explanation: "A centered 1:1 thumbnail crop would cut off the product.",
		}, "Thumbnail-safe")
	}

	gate(in.Severity.SevereBlur, Deduction{
		Rule:        "Severe blur",
		Penalty:     PenaltySevereBlur,
		Explanation: "Image lacks sharpness and clarity.",
	}, "Sharp and clear")

	gate(in.Severity.SevereLighting, Deduction{
		Rule:        "Severe lighting failure",
		Penalty:     PenaltySevereLighting,
		Explanation: "Lighting is too dark, too bright, or clipped.",
	}, "Good lighting quality")

	gate(!in.Severity.ProductDistinguishable, Deduction{
		Rule:        "Product not clearly distinguishable",
		Penalty:     PenaltyNotDistinguishable,
		Explanation: "Product is difficult to identify at thumbnail size.",
	}, "Product clearly visible")

	r.GateScore = math.Max(0, math.Round(score))
	return r
}

// ShotTypes returns the classifier's shot types, or nil when defaults are in effect
func (r Record) ShotTypes() []types.ShotType {
	if r.Source != SourceClassifier {
		return nil
	}
	return r.Attributes.ShotTypes
}

// PerceptualCount returns how many perceptual quality flags are set
func (r Record) PerceptualCount() int {
	a := r.Attributes
	n := 0
	for _, v := range []bool{a.CleanBackground, a.Centered, a.GoodLighting, a.SharpFocus, a.WatermarkFree, a.ProfessionalAppearance} {
		if v {
			n++
		}
	}
	return n
}
