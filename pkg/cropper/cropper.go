package cropper

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/menta2k/photo-grader/pkg/types"
)

// ErrInvalidBox is returned for empty or out-of-frame product boxes
var ErrInvalidBox = errors.New("invalid product bounding box")

// AspectRatio represents common aspect ratios
type AspectRatio struct {
	Width  int
	Height int
	Name   string
}

// Ratio returns width divided by height
func (a AspectRatio) Ratio() float64 {
	return float64(a.Width) / float64(a.Height)
}

// Common aspect ratios
var (
	Square    = AspectRatio{1, 1, "square"}
	Portrait  = AspectRatio{3, 4, "portrait"}
	Landscape = AspectRatio{4, 3, "landscape"}
	Instagram = AspectRatio{4, 5, "instagram"}
)

// CommonAspectRatios returns a list of commonly used listing aspect ratios
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Square, Portrait, Landscape, Instagram}
}

// ParseAspectRatio accepts a preset name or a "W:H" string
func ParseAspectRatio(s string) (AspectRatio, error) {
	for _, a := range CommonAspectRatios() {
		if s == a.Name {
			return a, nil
		}
	}
	var w, h int
	if _, err := fmt.Sscanf(s, "%d:%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q", s)
	}
	return AspectRatio{w, h, s}, nil
}

// CropConfig holds configuration for smart cropping
type CropConfig struct {
	// TargetFillPercent is the share of the crop the product should occupy
	TargetFillPercent float64
	AspectRatio       AspectRatio
	// MinFillPercent and MaxFillPercent bound the fill that needs no zoom
	MinFillPercent  float64
	MaxFillPercent  float64
	MaxZoom         float64
	ThumbnailMargin float64
}

// DefaultConfig targets 75% fill at 4:3
func DefaultConfig() CropConfig {
	return CropConfig{
		TargetFillPercent: 75,
		AspectRatio:       Landscape,
		MinFillPercent:    70,
		MaxFillPercent:    85,
		MaxZoom:           2.0,
		ThumbnailMargin:   0.1,
	}
}

// SmartCropper turns a product bounding box into a crop rectangle
type SmartCropper struct {
	config CropConfig
}

// New creates a new SmartCropper with default configuration
func New() *SmartCropper {
	return &SmartCropper{config: DefaultConfig()}
}

// NewWithConfig creates a new SmartCropper with custom configuration
func NewWithConfig(config CropConfig) *SmartCropper {
	d := DefaultConfig()
	if config.TargetFillPercent <= 0 {
		config.TargetFillPercent = d.TargetFillPercent
	}
	if config.AspectRatio.Width <= 0 || config.AspectRatio.Height <= 0 {
		config.AspectRatio = d.AspectRatio
	}
	if config.MinFillPercent <= 0 && config.MaxFillPercent <= 0 {
		config.MinFillPercent, config.MaxFillPercent = d.MinFillPercent, d.MaxFillPercent
	}
	if config.MaxZoom <= 0 {
		config.MaxZoom = d.MaxZoom
	}
	if config.ThumbnailMargin <= 0 {
		config.ThumbnailMargin = d.ThumbnailMargin
	}
	return &SmartCropper{config: config}
}

// Config returns the cropper configuration
func (c *SmartCropper) Config() CropConfig {
	return c.config
}

// CropResult describes the computed crop
type CropResult struct {
	Crop               types.Rect `json:"crop"`
	AspectRatio        float64    `json:"aspectRatio"`
	CurrentFillPercent float64    `json:"currentFillPercent"`
	CropFillPercent    float64    `json:"cropFillPercent"`
	NeedsZoom          bool       `json:"needsZoom"`
	RecommendedZoom    float64    `json:"recommendedZoom"`
	ThumbnailSafe      bool       `json:"thumbnailSafe"`
	Quality            float64    `json:"quality"`
}

// Locate computes a crop using the configured fill and aspect ratio
func (c *SmartCropper) Locate(width, height int, box types.Rect) (CropResult, error) {
	return c.LocateWith(width, height, box, c.config.TargetFillPercent, c.config.AspectRatio.Ratio())
}

// LocateWith computes a crop centered on the box centroid, sized so the box
// fills fillPercent of it at the given aspect ratio, clamped to the image.
func (c *SmartCropper) LocateWith(width, height int, box types.Rect, fillPercent, aspect float64) (CropResult, error) {
	if width <= 0 || height <= 0 {
		return CropResult{}, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if box.Empty() || box.X < 0 || box.Y < 0 || box.X+box.Width > width || box.Y+box.Height > height {
		return CropResult{}, fmt.Errorf("%w: %+v in %dx%d", ErrInvalidBox, box, width, height)
	}
	if fillPercent <= 0 || fillPercent > 100 {
		fillPercent = c.config.TargetFillPercent
	}
	if aspect <= 0 {
		aspect = c.config.AspectRatio.Ratio()
	}

	fw, fh := float64(width), float64(height)
	centerX := float64(box.X) + float64(box.Width)/2
	centerY := float64(box.Y) + float64(box.Height)/2

	targetArea := float64(box.Area()) / (fillPercent / 100)
	cropW := math.Sqrt(targetArea * aspect)
	cropH := cropW / aspect

	if cropW > fw {
		cropW = fw
		cropH = cropW / aspect
	}
	if cropH > fh {
		cropH = fh
		cropW = cropH * aspect
	}

	x := centerX - cropW/2
	y := centerY - cropH/2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+cropW > fw {
		x = fw - cropW
	}
	if y+cropH > fh {
		y = fh - cropH
	}

	crop := clampRect(types.Rect{
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  int(math.Round(cropW)),
		Height: int(math.Round(cropH)),
	}, width, height)

	current := float64(box.Area()) / (fw * fh) * 100
	needsZoom := current < c.config.MinFillPercent || current > c.config.MaxFillPercent
	zoom := 1.0
	if current < c.config.MinFillPercent {
		zoom = math.Min(math.Sqrt(fillPercent/current), c.config.MaxZoom)
	}

	return CropResult{
		Crop:               crop,
		AspectRatio:        aspect,
		CurrentFillPercent: current,
		CropFillPercent:    float64(intersection(box, crop).Area()) / float64(crop.Area()) * 100,
		NeedsZoom:          needsZoom,
		RecommendedZoom:    zoom,
		ThumbnailSafe:      ThumbnailSafe(width, height, box, c.config.ThumbnailMargin),
		Quality:            c.calculateCropQuality(width, height, box, crop, aspect),
	}, nil
}

// CenterCrop returns the largest rectangle of the given aspect ratio centered in the frame
func CenterCrop(width, height int, aspect float64) types.Rect {
	return CropAround(width, height, aspect, float64(width)/2, float64(height)/2)
}

// CropAround returns the largest rectangle of the given aspect ratio centered
// as close to (cx, cy) as the frame allows
func CropAround(width, height int, aspect, cx, cy float64) types.Rect {
	fw, fh := float64(width), float64(height)
	cropW, cropH := fw, fw/aspect
	if cropH > fh {
		cropH = fh
		cropW = fh * aspect
	}
	x := math.Max(0, math.Min(fw-cropW, cx-cropW/2))
	y := math.Max(0, math.Min(fh-cropH, cy-cropH/2))
	return clampRect(types.Rect{
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  int(math.Round(cropW)),
		Height: int(math.Round(cropH)),
	}, width, height)
}

// ThumbnailSafe reports whether a centered 1:1 crop contains the box with a
// margin expressed as a fraction of the crop side
func ThumbnailSafe(width, height int, box types.Rect, margin float64) bool {
	side := width
	if height < side {
		side = height
	}
	cropX := float64(width-side) / 2
	cropY := float64(height-side) / 2
	m := float64(side) * margin

	return float64(box.X) >= cropX+m &&
		float64(box.X+box.Width) <= cropX+float64(side)-m &&
		float64(box.Y) >= cropY+m &&
		float64(box.Y+box.Height) <= cropY+float64(side)-m
}

// Apply crops the image to the rectangle
func Apply(img image.Image, r types.Rect) image.Image {
	b := img.Bounds()
	rect := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(b.Min)
	return imaging.Crop(img, rect)
}

// calculateCropQuality rates a crop in [0,1] by product coverage, ratio accuracy and centering
func (c *SmartCropper) calculateCropQuality(width, height int, box, crop types.Rect, targetRatio float64) float64 {
	if crop.Empty() {
		return 0
	}

	// 1. How much of the product survives the crop
	preserved := float64(intersection(box, crop).Area()) / float64(box.Area())

	// 2. How close the crop ratio is to the target ratio
	cropRatio := float64(crop.Width) / float64(crop.Height)
	ratioAccuracy := 1.0 - math.Abs(cropRatio-targetRatio)/math.Max(cropRatio, targetRatio)

	// 3. How close the fill is to the target fill
	fill := float64(intersection(box, crop).Area()) / float64(crop.Area()) * 100
	fillAccuracy := 1.0 - math.Min(1, math.Abs(fill-c.config.TargetFillPercent)/c.config.TargetFillPercent)

	// 4. How well the product is centered inside the crop
	bx := float64(box.X) + float64(box.Width)/2
	by := float64(box.Y) + float64(box.Height)/2
	cx := float64(crop.X) + float64(crop.Width)/2
	cy := float64(crop.Y) + float64(crop.Height)/2
	maxDistance := math.Hypot(float64(width), float64(height))
	centering := 1.0 - math.Hypot(bx-cx, by-cy)/maxDistance

	q := 0.4*preserved + 0.2*ratioAccuracy + 0.3*fillAccuracy + 0.1*centering
	return math.Max(0, math.Min(1, q))
}

func intersection(a, b types.Rect) types.Rect {
	x0 := max(a.X, b.X)
	y0 := max(a.Y, b.Y)
	x1 := min(a.X+a.Width, b.X+b.Width)
	y1 := min(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return types.Rect{}
	}
	return types.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clampRect(r types.Rect, width, height int) types.Rect {
	if r.Width > width {
		r.Width = width
	}
	if r.Height > height {
		r.Height = height
	}
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X+r.Width > width {
		r.X = width - r.Width
	}
	if r.Y+r.Height > height {
		r.Y = height - r.Height
	}
	return r
}
