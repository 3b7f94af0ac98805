// Package scoring maps raw image metrics to a category-weighted 0-100 photo score.
package scoring

import (
	"fmt"
	"math"

	"github.com/menta2k/photo-grader/pkg/analyzer"
)

// Breakdown holds the three weighted components of a photo score
type Breakdown struct {
	Technical    float64 `json:"technical"`
	Presentation float64 `json:"presentation"`
	Composition  float64 `json:"composition"`
}

// PhotoScore is a recomputable quality score. It is never the system of record.
type PhotoScore struct {
	Overall     float64   `json:"overall"`
	Category    Category  `json:"category"`
	Breakdown   Breakdown `json:"breakdown"`
	Suggestions []string  `json:"suggestions"`
}

// Scorer applies the reward curves. It holds no mutable state.
type Scorer struct {
	curves Curves
}

// New creates a Scorer with default curves
func New() *Scorer {
	return &Scorer{curves: DefaultCurves()}
}

// NewWithCurves creates a Scorer with custom curve anchors
func NewWithCurves(c Curves) *Scorer {
	d := DefaultCurves()
	if c.TargetDimension <= 0 {
		c.TargetDimension = d.TargetDimension
	}
	if c.FileSizeMaxKB <= 0 {
		c.FileSizeMinKB, c.FileSizeMaxKB = d.FileSizeMinKB, d.FileSizeMaxKB
	}
	return &Scorer{curves: c}
}

// Curves returns the curve anchors in use
func (s *Scorer) Curves() Curves {
	return s.curves
}

// Technical sums brightness, sharpness and file size points, capped at 100
func (s *Scorer) Technical(m analyzer.RawMetrics) float64 {
	pts := BrightnessPoints(m.Brightness) + SharpnessPoints(m.Sharpness) + s.curves.FileSizePoints(m.FileSizeKB())
	return math.Min(100, pts)
}

// Composition sums squareness and minimum dimension points, capped at 100
func (s *Scorer) Composition(m analyzer.RawMetrics) float64 {
	pts := SquarenessPoints(m.AspectRatio) + s.curves.DimensionPoints(m.MinDimension())
	return math.Min(100, pts)
}

// Score computes the category-weighted photo score with suggestions
func (s *Scorer) Score(m analyzer.RawMetrics, c Category) PhotoScore {
	if _, ok := categoryWeights[c]; !ok {
		c = DefaultCategory
	}
	b := Breakdown{
		Technical:    s.Technical(m),
		Presentation: Presentation(c, m.BackgroundVariance),
		Composition:  s.Composition(m),
	}
	return PhotoScore{
		Overall:     Weighted(b, WeightsFor(c)),
		Category:    c,
		Breakdown:   b,
		Suggestions: s.Suggestions(m, c, b),
	}
}

// Weighted combines a breakdown with a weight triple into a rounded, clamped score
func Weighted(b Breakdown, w Weights) float64 {
	sum := b.Technical*float64(w.Technical) + b.Presentation*float64(w.Presentation) + b.Composition*float64(w.Composition)
	return clamp(math.Round(sum/100), 0, 100)
}

// Suggestions lists deterministic, ordered advice for values outside their reward bands
func (s *Scorer) Suggestions(m analyzer.RawMetrics, c Category, b Breakdown) []string {
	var out []string

	if BrightnessPoints(m.Brightness) < MaxBrightnessPoints {
		lo, _ := BrightnessBand()
		if m.Brightness < lo {
			out = append(out, fmt.Sprintf("Image is too dark (brightness: %.0f%%). Increase exposure or add lighting.", m.Brightness))
		} else {
			out = append(out, fmt.Sprintf("Image is overexposed (brightness: %.0f%%). Reduce exposure.", m.Brightness))
		}
	}

	if SharpnessPoints(m.Sharpness) < 30 {
		out = append(out, "Image lacks sharpness. Use a tripod or apply sharpening filter.")
	}

	kb := m.FileSizeKB()
	if s.curves.FileSizePoints(kb) < MaxFileSizePoints {
		if kb < s.curves.FileSizeMinKB {
			out = append(out, fmt.Sprintf("Image may be over-compressed (%.0fKB). Consider using higher quality.", kb))
		} else {
			out = append(out, fmt.Sprintf("Compress image to under %.0fKB. Current size: %.0fKB.", s.curves.FileSizeMaxKB, kb))
		}
	}

	if SquarenessPoints(m.AspectRatio) < MaxSquarenessPoints {
		out = append(out, "Crop to a square 1:1 frame for consistent thumbnails.")
	}

	if s.curves.DimensionPoints(m.MinDimension()) < MaxDimensionPoints {
		out = append(out, fmt.Sprintf("Increase image resolution. Shortest side is %dpx, aim for at least %dpx.", m.MinDimension(), s.curves.TargetDimension))
	}

	if b.Presentation < 70 {
		switch PresentationRuleFor(c).Style {
		case StyleClean:
			out = append(out, fmt.Sprintf("Use a cleaner, simpler background for %s photos.", c.Name()))
		case StyleLifestyle:
			out = append(out, fmt.Sprintf("Add lifestyle context or styled props for %s photos.", c.Name()))
		default:
			out = append(out, "Consider better staging or background.")
		}
	}

	if c == SmallJewelry && b.Composition < 75 {
		out = append(out, "For jewelry: ensure product fills 70-80% of frame with size reference.")
	}

	return out
}
