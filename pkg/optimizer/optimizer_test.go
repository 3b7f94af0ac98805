package optimizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"slices"
	"testing"

	"github.com/menta2k/photo-grader/pkg/analyzer"
	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/scoring"
	"github.com/menta2k/photo-grader/pkg/types"
)

// checkerboard creates a one-pixel checkerboard of two gray values
func checkerboard(size int, a, b uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := a
			if (x+y)%2 == 1 {
				v = b
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// gradient creates a dark, soft gradient that scores poorly
func gradient(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(20 + (x*40)/width)
			img.Set(x, y, color.RGBA{v, v, uint8(30 + (y*20)/height), 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func newPipeline(target int) *Pipeline {
	cfg := DefaultConfig()
	cfg.TargetResolution = target
	scorer := scoring.NewWithCurves(scoring.Curves{TargetDimension: target, FileSizeMinKB: 0, FileSizeMaxKB: 2048})
	return New(analyzer.New(), scorer, cfg, nil)
}

func TestOptimizeAlreadyOptimalIsIdempotent(t *testing.T) {
	p := newPipeline(256)
	data := encodePNG(t, checkerboard(256, 96, 200))
	req := Request{Data: data, Category: scoring.SmallJewelry, Platform: compliance.MustLookup("etsy")}

	for i := 0; i < 2; i++ {
		res, err := p.Optimize(context.Background(), req)
		if err != nil {
			t.Fatalf("Optimize failed: %v", err)
		}
		if !res.AlreadyOptimized {
			t.Fatalf("Expected image to be already optimized, got score %v breakdown %+v", res.OriginalScore, res.Before.Score.Breakdown)
		}
		if res.Improvement != 0 {
			t.Errorf("Expected improvement 0, got %v", res.Improvement)
		}
		if len(res.TransformsApplied) != 0 {
			t.Errorf("Expected no transforms, got %v", res.TransformsApplied)
		}
		if !bytes.Equal(res.OutputBytes, data) {
			t.Error("Expected output bytes to equal input bytes")
		}
		if res.OriginalScore != 90 {
			t.Errorf("Expected score 90, got %v", res.OriginalScore)
		}
		req.Data = res.OutputBytes
	}
}

func TestOptimizeCapsUpscale(t *testing.T) {
	p := newPipeline(1000)
	data := encodePNG(t, gradient(500, 500))

	res, err := p.Optimize(context.Background(), Request{Data: data, Category: scoring.SmallCrafts})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if res.AlreadyOptimized || res.TransformFailed {
		t.Fatalf("Expected transforms to run, got %+v", res)
	}
	if res.OutputWidth != 750 || res.OutputHeight != 750 {
		t.Errorf("Expected 750x750 output, got %dx%d", res.OutputWidth, res.OutputHeight)
	}
	if !res.UpscaleCapped {
		t.Error("Expected UpscaleCapped to be set")
	}
	if slices.Contains(res.TransformsApplied, TransformCrop) {
		t.Error("Expected no crop for a square input")
	}
	for _, want := range []Transform{TransformResize, TransformBrighten, TransformRecompress} {
		if !slices.Contains(res.TransformsApplied, want) {
			t.Errorf("Expected %s in %v", want, res.TransformsApplied)
		}
	}
	if res.OutputFormat != "jpeg" {
		t.Errorf("Expected jpeg output, got %s", res.OutputFormat)
	}
	if res.Improvement != res.NewScore-res.OriginalScore {
		t.Errorf("Expected improvement %v, got %v", res.NewScore-res.OriginalScore, res.Improvement)
	}
	if res.After.Metrics.Width != 750 {
		t.Errorf("Expected re-measured width 750, got %d", res.After.Metrics.Width)
	}
}

func TestOptimizeCropsToSquare(t *testing.T) {
	p := newPipeline(256)
	data := encodePNG(t, gradient(400, 300))

	res, err := p.Optimize(context.Background(), Request{Data: data, Category: scoring.SmallJewelry})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if res.OutputWidth != 256 || res.OutputHeight != 256 {
		t.Errorf("Expected 256x256 output, got %dx%d", res.OutputWidth, res.OutputHeight)
	}
	if res.TransformsApplied[0] != TransformCrop {
		t.Errorf("Expected crop first, got %v", res.TransformsApplied)
	}
	if res.UpscaleCapped {
		t.Error("Expected no upscale cap when downscaling")
	}
	if res.Quality != 92 {
		t.Errorf("Expected first quality step 92, got %d", res.Quality)
	}
	if res.After.Score.Breakdown.Composition <= res.Before.Score.Breakdown.Composition {
		t.Errorf("Expected composition to improve: %v -> %v", res.Before.Score.Breakdown.Composition, res.After.Score.Breakdown.Composition)
	}
}

func TestOptimizeDecodeError(t *testing.T) {
	p := newPipeline(256)
	_, err := p.Optimize(context.Background(), Request{Data: []byte("not an image")})
	if !errors.Is(err, analyzer.ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestOptimizeTransformFailureReturnsOriginal(t *testing.T) {
	data := encodePNG(t, gradient(300, 200))

	tests := []struct {
		name   string
		encode encodeFunc
	}{
		{"error", func(image.Image, string, int, bool) ([]byte, error) {
			return nil, errors.New("encoder broke")
		}},
		{"panic", func(image.Image, string, int, bool) ([]byte, error) {
			panic("encoder exploded")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(256)
			p.encode = tt.encode
			res, err := p.Optimize(context.Background(), Request{Data: data})
			if err != nil {
				t.Fatalf("Expected failure to be reported in the result, got error %v", err)
			}
			if !res.TransformFailed {
				t.Error("Expected TransformFailed")
			}
			if res.FailureReason == "" {
				t.Error("Expected a failure reason")
			}
			if !bytes.Equal(res.OutputBytes, data) {
				t.Error("Expected original bytes to be returned")
			}
			if res.Improvement != 0 {
				t.Errorf("Expected improvement 0, got %v", res.Improvement)
			}
		})
	}
}

func TestOptimizeCanceledContext(t *testing.T) {
	p := newPipeline(256)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Optimize(ctx, Request{Data: encodePNG(t, gradient(300, 200))})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEncodeWithinLimitStepsDownQuality(t *testing.T) {
	p := newPipeline(256)
	var seen []int
	p.encode = func(_ image.Image, _ string, q int, _ bool) ([]byte, error) {
		seen = append(seen, q)
		return make([]byte, q*10), nil
	}

	data, q, err := p.encodeWithinLimit(gradient(10, 10), 820)
	if err != nil {
		t.Fatal(err)
	}
	if q != 80 || len(data) != 800 {
		t.Errorf("Expected quality 80 at 800 bytes, got %d at %d", q, len(data))
	}
	if !slices.Equal(seen, []int{92, 85, 80}) {
		t.Errorf("Expected ladder 92,85,80, got %v", seen)
	}

	seen = nil
	_, q, _ = p.encodeWithinLimit(gradient(10, 10), 100)
	if q != 72 || len(seen) != 4 {
		t.Errorf("Expected the smallest attempt when nothing fits, got quality %d after %d tries", q, len(seen))
	}
}

func TestPlanResize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetResolution = 1000

	tests := []struct {
		name          string
		width, height int
		box           *types.Rect
		wantCrop      types.Rect
		wantW, wantH  int
		capped        bool
	}{
		{"capped upscale", 500, 500, nil, types.Rect{Width: 500, Height: 500}, 750, 750, true},
		{"within tolerance", 950, 950, nil, types.Rect{Width: 950, Height: 950}, 950, 950, false},
		{"center crop and downscale", 3000, 2000, nil, types.Rect{X: 500, Width: 2000, Height: 2000}, 1000, 1000, false},
		{"box centered crop", 400, 200, &types.Rect{X: 300, Y: 50, Width: 80, Height: 80}, types.Rect{X: 200, Width: 200, Height: 200}, 300, 300, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := cfg.planResize(tt.width, tt.height, tt.box)
			if plan.Crop != tt.wantCrop {
				t.Errorf("Expected crop %+v, got %+v", tt.wantCrop, plan.Crop)
			}
			if plan.Width != tt.wantW || plan.Height != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, plan.Width, plan.Height)
			}
			if plan.UpscaleCapped != tt.capped {
				t.Errorf("Expected UpscaleCapped %v, got %v", tt.capped, plan.UpscaleCapped)
			}
		})
	}
}

func TestBrightnessShift(t *testing.T) {
	if got := brightnessShift(30); got != 32.5 {
		t.Errorf("Expected +32.5, got %v", got)
	}
	if got := brightnessShift(90); got != -27.5 {
		t.Errorf("Expected -27.5, got %v", got)
	}
}
