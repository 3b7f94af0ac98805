package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is a pixel-space rectangle. Smart-crop and product boxes use it.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the pixel area of the rectangle
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ToRect converts a normalized box into pixel coordinates for an image of w×h
func (b Box) ToRect(w, h int) Rect {
	fw, fh := float64(w), float64(h)
	x0 := int(clamp01(b.X)*fw + 0.5)
	y0 := int(clamp01(b.Y)*fh + 0.5)
	x1 := int(clamp01(b.X+b.W)*fw + 0.5)
	y1 := int(clamp01(b.Y+b.H)*fh + 0.5)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ShotType is the semantic purpose of a listing photo
type ShotType string

const (
	ShotStudio    ShotType = "studio"
	ShotLifestyle ShotType = "lifestyle"
	ShotDetail    ShotType = "detail"
	ShotScale     ShotType = "scale"
	ShotGroup     ShotType = "group"
	ShotPackaging ShotType = "packaging"
	ShotProcess   ShotType = "process"
)

// AllShotTypes lists every shot type in canonical order
func AllShotTypes() []ShotType {
	return []ShotType{ShotStudio, ShotLifestyle, ShotDetail, ShotScale, ShotGroup, ShotPackaging, ShotProcess}
}

// Label returns a human readable name for the shot type
func (s ShotType) Label() string {
	switch s {
	case ShotStudio:
		return "Studio shot"
	case ShotLifestyle:
		return "Lifestyle shot"
	case ShotDetail:
		return "Detail/close-up shot"
	case ShotScale:
		return "Scale reference shot"
	case ShotGroup:
		return "Multiple products/variations"
	case ShotPackaging:
		return "Packaging shot"
	case ShotProcess:
		return "Behind-the-scenes shot"
	}
	return string(s)
}

// ParseShotType accepts both "studio" and "studio_shot" spellings
func ParseShotType(s string) (ShotType, bool) {
	for _, t := range AllShotTypes() {
		if s == string(t) || s == string(t)+"_shot" {
			return t, true
		}
	}
	return "", false
}

// SemanticAttributes are perceptual flags supplied by an external classifier.
// The zero value is the conservative default used when the classifier is absent.
type SemanticAttributes struct {
	CleanBackground        bool       `json:"has_clean_white_background"`
	Centered               bool       `json:"is_product_centered"`
	GoodLighting           bool       `json:"has_good_lighting"`
	SharpFocus             bool       `json:"is_sharp_focus"`
	WatermarkFree          bool       `json:"has_no_watermarks"`
	ProfessionalAppearance bool       `json:"professional_appearance"`
	ShotTypes              []ShotType `json:"shot_types,omitempty"`
}

// Classification is what an external vision classifier returns for one image
type Classification struct {
	// Score is the classifier's authoritative 0-100 score
	Score      int                `json:"score"`
	Attributes SemanticAttributes `json:"attributes"`
}

// Detection is one product bounding box from an external object locator
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Rect    `json:"box"`
}
