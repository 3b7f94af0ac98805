package optimizer

import (
	"math"

	"github.com/menta2k/photo-grader/pkg/analyzer"
	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/cropper"
	"github.com/menta2k/photo-grader/pkg/scoring"
	"github.com/menta2k/photo-grader/pkg/types"
)

// resizePlan is the geometry step of the pipeline
type resizePlan struct {
	Crop          types.Rect
	NeedsCrop     bool
	Width         int
	Height        int
	NeedsResize   bool
	UpscaleCapped bool
}

// planResize crops to the target aspect (centered on the product box when
// given) and scales the shortest side to the target resolution, never
// upscaling past MaxUpscale.
func (c Config) planResize(width, height int, box *types.Rect) resizePlan {
	var crop types.Rect
	full := types.Rect{Width: width, Height: height}
	if math.Abs(float64(width)/float64(height)-c.TargetAspect) <= aspectExact {
		crop = full
	} else if box != nil && !box.Empty() {
		cx := float64(box.X) + float64(box.Width)/2
		cy := float64(box.Y) + float64(box.Height)/2
		crop = cropper.CropAround(width, height, c.TargetAspect, cx, cy)
	} else {
		crop = cropper.CenterCrop(width, height, c.TargetAspect)
	}

	plan := resizePlan{
		Crop:      crop,
		NeedsCrop: crop != full,
		Width:     crop.Width,
		Height:    crop.Height,
	}

	shortest := min(crop.Width, crop.Height)
	target := float64(c.TargetResolution)
	if math.Abs(float64(shortest)-target) <= c.ResolutionTolerance*target {
		return plan
	}

	scale := target / float64(shortest)
	if scale > c.MaxUpscale {
		scale = c.MaxUpscale
		plan.UpscaleCapped = true
	}
	plan.Width = int(math.Round(float64(crop.Width) * scale))
	plan.Height = int(math.Round(float64(crop.Height) * scale))
	plan.NeedsResize = plan.Width != crop.Width || plan.Height != crop.Height
	return plan
}

// aspectExact is the deviation below which no aspect crop is made
const aspectExact = 0.005

// isAlreadyOptimal is the short-circuit predicate. Every condition reuses the
// scorer's own point functions so the pipeline never disagrees with scoring.
func (p *Pipeline) isAlreadyOptimal(e Evaluation, platform compliance.Platform) bool {
	m := e.Metrics
	c := p.config
	curves := p.scorer.Curves()
	target := float64(c.TargetResolution)

	switch {
	case math.Abs(m.AspectRatio-c.TargetAspect) > c.AspectTolerance:
		return false
	case math.Abs(float64(m.MinDimension())-target) > c.ResolutionTolerance*target:
		return false
	case curves.FileSizePoints(m.FileSizeKB()) < scoring.MaxFileSizePoints:
		return false
	case m.FileSizeBytes > platform.MaxFileSizeBytes:
		return false
	case scoring.BrightnessPoints(m.Brightness) < scoring.MaxBrightnessPoints:
		return false
	case m.Sharpness < c.SharpnessThreshold:
		return false
	case e.Score.Breakdown.Technical < c.ScoreThreshold:
		return false
	case e.Score.Breakdown.Composition < c.ScoreThreshold:
		return false
	case e.Score.Overall < c.ScoreThreshold:
		return false
	}
	return true
}

// brightnessShift returns the AdjustBrightness percentage that moves the
// current mean to the middle of the reward band
func brightnessShift(current float64) float64 {
	lo, hi := scoring.BrightnessBand()
	return (lo+hi)/2 - current
}

// needsBrightness reports whether measured brightness earns less than full points
func needsBrightness(m analyzer.RawMetrics) bool {
	return scoring.BrightnessPoints(m.Brightness) < scoring.MaxBrightnessPoints
}
