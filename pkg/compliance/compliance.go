// Package compliance scores declared image metadata against a marketplace's
// technical specification. It never looks at pixels.
package compliance

import (
	"fmt"
	"math"
	"strings"
)

// Status is the qualitative label attached to a dimension score
type Status string

const (
	StatusPerfect    Status = "perfect"
	StatusExcellent  Status = "excellent"
	StatusGood       Status = "good"
	StatusAcceptable Status = "acceptable"
	StatusPoor       Status = "poor"
	StatusCritical   Status = "critical"
)

// Specs is the declared technical metadata of one image
type Specs struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	FileSizeBytes int    `json:"fileSizeBytes"`
	ColorProfile  string `json:"colorProfile"`
	Format        string `json:"format"`
}

// Check is the result for one compliance dimension
type Check struct {
	Score   float64 `json:"score"`
	Status  Status  `json:"status"`
	Message string  `json:"message"`
}

// Result is the full compliance breakdown. A low score is a normal result, not an error.
type Result struct {
	Platform     string  `json:"platform"`
	AspectRatio  Check   `json:"aspectRatio"`
	Resolution   Check   `json:"resolution"`
	FileSize     Check   `json:"fileSize"`
	ColorProfile Check   `json:"colorProfile"`
	Format       Check   `json:"format"`
	Overall      float64 `json:"overall"`
}

// NamedCheck pairs a dimension name with its check, for reporting
type NamedCheck struct {
	Name string
	Check
}

// Breakdown returns the five dimensions in a fixed order
func (r Result) Breakdown() []NamedCheck {
	return []NamedCheck{
		{"aspect_ratio", r.AspectRatio},
		{"resolution", r.Resolution},
		{"file_size", r.FileSize},
		{"color_profile", r.ColorProfile},
		{"format", r.Format},
	}
}

// Evaluate scores specs against a platform row. Overall is the unweighted
// mean of the five dimension scores, since any one can cause rejection.
func Evaluate(p Platform, s Specs) Result {
	r := Result{
		Platform:     p.Name,
		AspectRatio:  scoreAspectRatio(p, s.Width, s.Height),
		Resolution:   scoreResolution(p, s.Width, s.Height),
		FileSize:     scoreFileSize(p, s.FileSizeBytes),
		ColorProfile: scoreColorProfile(p, s.ColorProfile),
		Format:       scoreFormat(p, s.Format),
	}
	sum := 0.0
	for _, c := range r.Breakdown() {
		sum += c.Score
	}
	r.Overall = sum / 5
	return r
}

func scoreAspectRatio(p Platform, width, height int) Check {
	if width <= 0 || height <= 0 {
		return Check{40, StatusPoor, "Invalid dimensions - aspect ratio cannot be determined"}
	}
	ratio := float64(width) / float64(height)
	deviation := math.Abs(ratio - p.AspectRatio())
	label := p.AspectLabel()

	switch {
	case deviation < 0.01:
		return Check{100, StatusPerfect, fmt.Sprintf("Perfect %s aspect ratio (recommended by %s)", label, p.DisplayName)}
	case deviation < 0.05:
		return Check{95, StatusExcellent, fmt.Sprintf("Near-perfect %s aspect ratio", label)}
	case deviation < 0.15:
		return Check{85, StatusGood, fmt.Sprintf("Close to %s aspect ratio", label)}
	case ratio >= p.MinAcceptRatio && ratio <= p.MaxAcceptRatio:
		return Check{70, StatusAcceptable, fmt.Sprintf("Acceptable aspect ratio, but not optimal for %s", p.DisplayName)}
	}
	return Check{40, StatusPoor, "Non-standard aspect ratio - will be cropped in thumbnails"}
}

func scoreResolution(p Platform, width, height int) Check {
	shortest := width
	if height < shortest {
		shortest = height
	}
	minRes := float64(p.MinResolution)
	s := float64(shortest)

	switch {
	case s >= 1.5*minRes:
		return Check{100, StatusPerfect, fmt.Sprintf("Exceeds %s recommended resolution (%.0fpx+)", p.DisplayName, 1.5*minRes)}
	case s >= minRes:
		return Check{90, StatusExcellent, fmt.Sprintf("Meets %s quality benchmark (>=%dpx shortest side)", p.DisplayName, p.MinResolution)}
	case s >= 0.75*minRes:
		return Check{75, StatusGood, fmt.Sprintf("Good resolution, but below %s quality benchmark", p.DisplayName)}
	case s >= 0.5*minRes:
		return Check{60, StatusAcceptable, fmt.Sprintf("Meets %s minimum (%.0fpx), but not quality benchmark", p.DisplayName, 0.5*minRes)}
	}
	return Check{30, StatusPoor, fmt.Sprintf("Below %s minimum size requirement (%.0fpx)", p.DisplayName, 0.5*minRes)}
}

func scoreFileSize(p Platform, size int) Check {
	limit := float64(p.MaxFileSizeBytes)
	s := float64(size)
	label := p.MaxFileSizeLabel()

	switch {
	case s <= 0.5*limit:
		return Check{100, StatusPerfect, "Optimal file size - fast loading"}
	case s <= 0.8*limit:
		return Check{95, StatusExcellent, fmt.Sprintf("Excellent file size - under %s limit with room to spare", p.DisplayName)}
	case s < limit:
		return Check{90, StatusGood, fmt.Sprintf("Good file size - under %s %s limit", p.DisplayName, label)}
	case s < 2*limit:
		return Check{40, StatusCritical, fmt.Sprintf("Exceeds %s %s limit - will be rejected", p.DisplayName, label)}
	}
	return Check{20, StatusCritical, fmt.Sprintf("Far exceeds %s %s limit - will be rejected", p.DisplayName, label)}
}

func scoreColorProfile(p Platform, profile string) Check {
	lp := strings.ToLower(profile)
	switch {
	case lp == "srgb":
		return Check{100, StatusPerfect, fmt.Sprintf("Correct sRGB color profile (%s recommended)", p.DisplayName)}
	case strings.Contains(lp, "rgb"):
		return Check{80, StatusAcceptable, "RGB color space - should convert to sRGB for consistency"}
	case lp == "cmyk":
		return Check{50, StatusPoor, "CMYK color space - must convert to sRGB for web display"}
	}
	return Check{70, StatusAcceptable, fmt.Sprintf("%s color profile - recommend sRGB", profile)}
}

func scoreFormat(p Platform, format string) Check {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return Check{100, StatusPerfect, "JPEG format - optimal for photos"}
	case "png":
		return Check{95, StatusExcellent, "PNG format - acceptable, but larger file sizes"}
	case "gif":
		return Check{90, StatusGood, "GIF format - acceptable for simple graphics"}
	case "webp":
		return Check{85, StatusGood, fmt.Sprintf("WebP format - excellent quality, but convert to JPG for %s", p.DisplayName)}
	}
	return Check{40, StatusCritical, fmt.Sprintf("%s format not supported by %s - must convert", format, p.DisplayName)}
}

// Weights controls how a visual quality score and a compliance score are blended
type Weights struct {
	Visual     float64 `json:"visual" toml:"visual"`
	Compliance float64 `json:"compliance" toml:"compliance"`
}

// DefaultWeights is 60% visual quality, 40% compliance
var DefaultWeights = Weights{Visual: 0.6, Compliance: 0.4}

// Blend combines a visual quality score with a compliance score into a rounded final score
func Blend(visual, compliance float64, w Weights) float64 {
	total := w.Visual + w.Compliance
	if total <= 0 {
		w, total = DefaultWeights, 1
	}
	v := (visual*w.Visual + compliance*w.Compliance) / total
	return math.Round(math.Max(0, math.Min(100, v)))
}
