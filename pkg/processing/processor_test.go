package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	_ "golang.org/x/image/webp"

	"github.com/menta2k/photo-grader/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 100, 255})
		}
	}
	return img
}

func TestEncodeFormats(t *testing.T) {
	img := createTestImage(64, 48)
	for _, format := range []string{"jpeg", "png", "gif", "webp"} {
		t.Run(format, func(t *testing.T) {
			data, err := Encode(img, format, 85, false)
			if err != nil {
				t.Fatalf("Encode(%s) failed: %v", format, err)
			}
			cfg, got, err := image.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("DecodeConfig failed: %v", err)
			}
			if got != format {
				t.Errorf("Expected format %s, got %s", format, got)
			}
			if cfg.Width != 64 || cfg.Height != 48 {
				t.Errorf("Expected 64x48, got %dx%d", cfg.Width, cfg.Height)
			}
		})
	}

	if _, err := Encode(img, "tiff", 85, false); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestEncodeJPEGQualityLowersSize(t *testing.T) {
	img := createTestImage(256, 256)
	high, err := Encode(img, "jpeg", 95, false)
	if err != nil {
		t.Fatal(err)
	}
	low, err := Encode(img, "jpeg", 40, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Errorf("Expected lower quality to shrink output: %d >= %d", len(low), len(high))
	}
}

func TestLoadFile(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "photo.png")
	want, _ := Encode(createTestImage(10, 10), "png", 0, false)
	if err := os.WriteFile(path, want, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := p.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("Loaded bytes differ from file contents")
	}

	if _, err := p.Load(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadFromURL(t *testing.T) {
	payload, _ := Encode(createTestImage(10, 10), "png", 0, false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(payload)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	got, err := p.Load(context.Background(), srv.URL+"/photo.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("Downloaded bytes differ")
	}

	if _, err := p.Load(context.Background(), srv.URL+"/page"); err == nil {
		t.Error("Expected error for non-image content type")
	}
	if _, err := p.Load(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := p.LoadFromURL(context.Background(), "ftp://example.com/a.png"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}

func TestEncodeForModel(t *testing.T) {
	encoded, sent, err := EncodeForModel(createTestImage(400, 200), 100, 80)
	if err != nil {
		t.Fatalf("EncodeForModel failed: %v", err)
	}
	if sent.X != 100 || sent.Y != 50 {
		t.Errorf("Expected sent size 100x50, got %v", sent)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Invalid base64: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if format != "jpeg" || cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("Expected 100x50 jpeg, got %dx%d %s", cfg.Width, cfg.Height, format)
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	out := CreateDebugOverlay(img, types.Rect{X: 50, Y: 50, Width: 100, Height: 100}, types.Rect{X: 20, Y: 20, Width: 160, Height: 160})

	if got := color.NRGBAModel.Convert(out.At(50, 80)).(color.NRGBA); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("Expected product box edge to be green, got %v", got)
	}
	if got := color.NRGBAModel.Convert(out.At(20, 60)).(color.NRGBA); got != (color.NRGBA{255, 204, 0, 255}) {
		t.Errorf("Expected crop box edge to be gold, got %v", got)
	}
	if img.At(50, 80) != (color.RGBA{}) {
		t.Error("Expected the source image to be left untouched")
	}
}
