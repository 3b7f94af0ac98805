package analyzer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when bytes are not a decodable, supported image
var ErrDecode = errors.New("image decode failed")

// laplacian is the 4-neighbour edge kernel used for the sharpness measurement
var laplacian = [9]float64{
	0, -1, 0,
	-1, 4, -1,
	0, -1, 0,
}

const (
	// SevereBlurVariance is the Laplacian variance below which an image is severely blurred
	SevereBlurVariance = 100.0

	sharpnessOffset = 50.0
	sharpnessScale  = 25.0
	contrastScale   = 0.6

	darkMean         = 30.0
	brightMean       = 225.0
	blownHighlight   = 250
	crushedShadow    = 5
	distinctStdDev   = 20.0
	exifUncalibrated = 0xFFFF
)

// ImageAnalyzer turns raw bytes into deterministic pixel measurements
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the metric extractor
type Config struct {
	// WorkingSize bounds the image (both sides) used for the Laplacian measurement
	WorkingSize      int
	SupportedFormats []string
}

// DefaultConfig returns the extractor defaults
func DefaultConfig() Config {
	return Config{
		WorkingSize:      500,
		SupportedFormats: []string{"jpeg", "png", "gif", "webp"},
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	if config.WorkingSize <= 0 {
		config.WorkingSize = DefaultConfig().WorkingSize
	}
	if len(config.SupportedFormats) == 0 {
		config.SupportedFormats = DefaultConfig().SupportedFormats
	}
	return &ImageAnalyzer{config: config}
}

// RawImage is an immutable byte buffer plus its decoded metadata
type RawImage struct {
	Bytes      []byte
	Image      image.Image
	Width      int
	Height     int
	Format     string
	ColorSpace string
	Size       int
}

// RawMetrics are pure pixel-domain measurements of a RawImage
type RawMetrics struct {
	Sharpness     float64 `json:"sharpness"`
	Brightness    float64 `json:"brightness"`
	ContrastScore float64 `json:"contrastScore"`
	// BackgroundVariance is the mean per-channel standard deviation on the 0-255 scale
	BackgroundVariance float64 `json:"backgroundVariance"`
	LaplacianVariance  float64 `json:"laplacianVariance"`
	AspectRatio        float64 `json:"aspectRatio"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	FileSizeBytes      int     `json:"fileSizeBytes"`
}

// MinDimension returns the shortest side
func (m RawMetrics) MinDimension() int {
	if m.Width < m.Height {
		return m.Width
	}
	return m.Height
}

// FileSizeKB returns the file size in KiB
func (m RawMetrics) FileSizeKB() float64 {
	return float64(m.FileSizeBytes) / 1024
}

// Severity holds boolean defect flags derived from the same measurements as RawMetrics
type Severity struct {
	SevereBlur             bool `json:"hasSevereBlur"`
	SevereLighting         bool `json:"hasSevereLighting"`
	BlownHighlights        bool `json:"hasBlownHighlights"`
	CrushedShadows         bool `json:"hasCrushedShadows"`
	ProductDistinguishable bool `json:"isProductDistinguishable"`
}

// ChannelStats are first and second order statistics of one color channel
type ChannelStats struct {
	Mean   float64
	StdDev float64
	Min    uint8
	Max    uint8
}

// Decode parses bytes into a RawImage. EXIF orientation is applied.
func (a *ImageAnalyzer) Decode(data []byte) (*RawImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !a.isFormatSupported(format) {
		return nil, fmt.Errorf("%w: unsupported image format: %s", ErrDecode, format)
	}

	img, err := decodePixels(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecode, b.Dx(), b.Dy())
	}

	return &RawImage{
		Bytes:      data,
		Image:      img,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Format:     format,
		ColorSpace: detectColorSpace(data, cfg.ColorModel),
		Size:       len(data),
	}, nil
}

// decodePixels decodes with imaging first and falls back to the libwebp decoder
func decodePixels(data []byte, format string) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if format == "webp" {
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			return wimg, nil
		}
	}
	return nil, err
}

// detectColorSpace names the declared color space using the decoder's color
// model and the EXIF ColorSpace tag when present.
func detectColorSpace(data []byte, model color.Model) string {
	switch model {
	case color.CMYKModel:
		return "cmyk"
	case color.GrayModel, color.Gray16Model:
		return "b-w"
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// no EXIF: decoders in this package only produce sRGB-compatible models
		return "srgb"
	}
	tag, err := x.Get(exif.ColorSpace)
	if err != nil || tag == nil {
		return "srgb"
	}
	v, err := tag.Int(0)
	if err != nil {
		return "srgb"
	}
	if v == exifUncalibrated {
		return "rgb"
	}
	return "srgb"
}

// Measure computes RawMetrics and Severity for a decoded image. Identical
// inputs always yield bit-identical outputs.
func (a *ImageAnalyzer) Measure(raw *RawImage) (RawMetrics, Severity) {
	nrgba := imaging.Clone(raw.Image)
	stats := ChannelStatistics(nrgba)
	lapVar := a.laplacianVariance(nrgba)

	var meanSum, stdSum float64
	var blown, crushed bool
	for _, ch := range stats {
		meanSum += ch.Mean
		stdSum += ch.StdDev
		if ch.Max > blownHighlight {
			blown = true
		}
		if ch.Min < crushedShadow {
			crushed = true
		}
	}
	avgMean := meanSum / float64(len(stats))
	avgStd := stdSum / float64(len(stats))

	metrics := RawMetrics{
		Sharpness:          SharpnessFromVariance(lapVar),
		Brightness:         round1(clamp(avgMean/255*100, 0, 100)),
		ContrastScore:      math.Round(clamp(avgStd/contrastScale, 0, 100)),
		BackgroundVariance: round1(avgStd),
		LaplacianVariance:  lapVar,
		AspectRatio:        float64(raw.Width) / float64(raw.Height),
		Width:              raw.Width,
		Height:             raw.Height,
		FileSizeBytes:      raw.Size,
	}

	severeBlur := IsSevereBlur(lapVar)
	severity := Severity{
		SevereBlur:             severeBlur,
		SevereLighting:         avgMean < darkMean || avgMean > brightMean || blown || crushed,
		BlownHighlights:        blown,
		CrushedShadows:         crushed,
		ProductDistinguishable: avgStd > distinctStdDev && !severeBlur,
	}
	return metrics, severity
}

// Analyze decodes and measures in one step
func (a *ImageAnalyzer) Analyze(data []byte) (*RawImage, RawMetrics, Severity, error) {
	raw, err := a.Decode(data)
	if err != nil {
		return nil, RawMetrics{}, Severity{}, err
	}
	m, s := a.Measure(raw)
	return raw, m, s, nil
}

// SharpnessFromVariance maps a Laplacian variance onto the 0-100 sharpness scale
func SharpnessFromVariance(variance float64) float64 {
	return math.Round(clamp((variance-sharpnessOffset)/sharpnessScale, 0, 100))
}

// IsSevereBlur classifies a Laplacian variance as severely blurred
func IsSevereBlur(variance float64) bool {
	return variance < SevereBlurVariance
}

// laplacianVariance measures edge energy on a grayscale copy bounded to the working size
func (a *ImageAnalyzer) laplacianVariance(img *image.NRGBA) float64 {
	size := a.config.WorkingSize
	work := imaging.Fit(img, size, size, imaging.Lanczos)
	gray := imaging.Grayscale(work)
	edges := imaging.Convolve3x3(gray, laplacian, nil)

	var sum, sumSq uint64
	n := 0
	for y := 0; y < edges.Rect.Dy(); y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+edges.Rect.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			v := uint64(row[i])
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := float64(sum) / float64(n)
	return float64(sumSq)/float64(n) - mean*mean
}

// ChannelStatistics returns R, G and B statistics. Alpha is ignored.
func ChannelStatistics(img *image.NRGBA) [3]ChannelStats {
	var sum, sumSq [3]uint64
	minV := [3]uint8{255, 255, 255}
	var maxV [3]uint8
	n := 0
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			for c := 0; c < 3; c++ {
				v := row[i+c]
				sum[c] += uint64(v)
				sumSq[c] += uint64(v) * uint64(v)
				if v < minV[c] {
					minV[c] = v
				}
				if v > maxV[c] {
					maxV[c] = v
				}
			}
			n++
		}
	}

	var out [3]ChannelStats
	if n == 0 {
		return out
	}
	for c := 0; c < 3; c++ {
		mean := float64(sum[c]) / float64(n)
		variance := float64(sumSq[c])/float64(n) - mean*mean
		if variance < 0 {
			variance = 0
		}
		out[c] = ChannelStats{Mean: mean, StdDev: math.Sqrt(variance), Min: minV[c], Max: maxV[c]}
	}
	return out
}

// MeanBrightness returns the unrounded 0-100 brightness of an in-memory image
func MeanBrightness(img image.Image) float64 {
	stats := ChannelStatistics(imaging.Clone(img))
	return (stats[0].Mean + stats[1].Mean + stats[2].Mean) / 3 / 255 * 100
}

// ContentHash returns the hex sha256 of the bytes, used as a cache and idempotency key
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
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

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
