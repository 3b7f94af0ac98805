package scoring

import "math"

// Curves holds the tunable anchors of the technical and composition reward curves
type Curves struct {
	// TargetDimension is the shortest side that earns full resolution points
	TargetDimension int     `json:"targetDimension" toml:"target_dimension"`
	FileSizeMinKB   float64 `json:"fileSizeMinKB" toml:"file_size_min_kb"`
	FileSizeMaxKB   float64 `json:"fileSizeMaxKB" toml:"file_size_max_kb"`
}

// DefaultCurves peaks at 2000px and a 500KB-2MB file size band
func DefaultCurves() Curves {
	return Curves{
		TargetDimension: 2000,
		FileSizeMinKB:   500,
		FileSizeMaxKB:   2048,
	}
}

// Point maxima for each reward curve
const (
	MaxBrightnessPoints = 40.0
	MaxSharpnessPoints  = 35.0
	MaxFileSizePoints   = 25.0
	MaxSquarenessPoints = 60.0
	MaxDimensionPoints  = 40.0
)

// brightnessBands is ordered innermost first; the first band containing the value wins
var brightnessBands = []struct {
	lo, hi float64
	points float64
}{
	{50, 75, 40},
	{40, 85, 30},
	{30, 90, 20},
	{20, 95, 10},
}

// BrightnessBand returns the range that earns full brightness points
func BrightnessBand() (lo, hi float64) {
	return brightnessBands[0].lo, brightnessBands[0].hi
}

// BrightnessPoints rewards exposure on the 0-100 brightness scale
func BrightnessPoints(brightness float64) float64 {
	for _, b := range brightnessBands {
		if brightness >= b.lo && brightness <= b.hi {
			return b.points
		}
	}
	return 0
}

// SharpnessPoints rewards the 0-100 sharpness measurement
func SharpnessPoints(sharpness float64) float64 {
	switch {
	case sharpness >= 80:
		return 35
	case sharpness >= 60:
		return 30
	case sharpness >= 40:
		return 22
	case sharpness >= 20:
		return 12
	case sharpness >= 10:
		return 5
	}
	return 0
}

// FileSizePoints rewards file sizes inside the band and penalises both sides
func (c Curves) FileSizePoints(kb float64) float64 {
	switch {
	case kb >= c.FileSizeMinKB && kb <= c.FileSizeMaxKB:
		return 25
	case kb < c.FileSizeMinKB:
		switch {
		case kb >= 0.4*c.FileSizeMinKB:
			return 20
		case kb >= 0.2*c.FileSizeMinKB:
			return 10
		}
		return 5
	case kb <= 2*c.FileSizeMaxKB:
		return 15
	}
	return 5
}

// SquarenessPoints rewards aspect ratios close to 1:1
func SquarenessPoints(aspectRatio float64) float64 {
	d := math.Abs(aspectRatio - 1)
	switch {
	case d < 0.05:
		return 60
	case d < 0.15:
		return 50
	case d < 0.35:
		return 40
	case d < 0.6:
		return 25
	}
	return 10
}

// DimensionPoints rewards the shortest side relative to the target dimension
func (c Curves) DimensionPoints(minDimension int) float64 {
	if c.TargetDimension <= 0 {
		return MaxDimensionPoints
	}
	f := float64(minDimension) / float64(c.TargetDimension)
	switch {
	case f >= 1:
		return 40
	case f >= 0.75:
		return 32
	case f >= 0.5:
		return 24
	case f >= 0.25:
		return 12
	}
	return 4
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
