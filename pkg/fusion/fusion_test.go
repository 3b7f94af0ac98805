package fusion

import (
	"testing"

	"github.com/menta2k/photo-grader/pkg/analyzer"
	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/types"
)

func cleanInput() Input {
	return Input{
		Metrics: analyzer.RawMetrics{
			Sharpness:     90,
			Brightness:    60,
			AspectRatio:   4.0 / 3.0,
			Width:         4000,
			Height:        3000,
			FileSizeBytes: 400 * 1024,
		},
		Severity:   analyzer.Severity{ProductDistinguishable: true},
		ColorSpace: "srgb",
	}
}

func TestFuseDefaultsWhenClassifierAbsent(t *testing.T) {
	r := Fuse(compliance.MustLookup("etsy"), cleanInput())

	if r.Source != SourceDefault {
		t.Errorf("Expected default source, got %s", r.Source)
	}
	if r.PerceptualCount() != 0 {
		t.Errorf("Expected all perceptual flags false, got %d set", r.PerceptualCount())
	}
	if r.ShotTypes() != nil {
		t.Errorf("Expected no shot types, got %v", r.ShotTypes())
	}
	if r.GateScore != 100 {
		t.Errorf("Expected gate score 100, got %v (%+v)", r.GateScore, r.Deductions)
	}
}

func TestFuseMeasuredFieldsWin(t *testing.T) {
	in := cleanInput()
	in.Severity.SevereBlur = true
	in.Attributes = &types.SemanticAttributes{
		SharpFocus:   true,
		GoodLighting: true,
		ShotTypes:    []types.ShotType{types.ShotStudio},
	}

	r := Fuse(compliance.MustLookup("etsy"), in)

	if r.Source != SourceClassifier {
		t.Errorf("Expected classifier source, got %s", r.Source)
	}
	if !r.Attributes.SharpFocus || !r.Attributes.GoodLighting {
		t.Error("Expected perceptual flags from the classifier")
	}
	if !r.Severity.SevereBlur {
		t.Error("Expected measured severe blur to be kept regardless of the classifier")
	}
	if r.Metrics != in.Metrics {
		t.Error("Expected measured metrics to pass through unchanged")
	}
	if r.GateScore != 80 {
		t.Errorf("Expected severe blur deduction to give 80, got %v", r.GateScore)
	}
	if len(r.ShotTypes()) != 1 || r.ShotTypes()[0] != types.ShotStudio {
		t.Errorf("Expected studio shot type, got %v", r.ShotTypes())
	}
}

func TestFuseCopiesShotTypes(t *testing.T) {
	attrs := &types.SemanticAttributes{ShotTypes: []types.ShotType{types.ShotDetail}}
	in := cleanInput()
	in.Attributes = attrs

	r := Fuse(compliance.MustLookup("etsy"), in)
	attrs.ShotTypes[0] = types.ShotScale

	if r.Attributes.ShotTypes[0] != types.ShotDetail {
		t.Error("Expected fused record to own its shot type slice")
	}
}

func TestFuseGates(t *testing.T) {
	unsafe := false
	tests := []struct {
		name   string
		modify func(*Input)
		want   float64
	}{
		{"small image", func(in *Input) { in.Metrics.Width, in.Metrics.Height = 900, 900 }, 75},
		{"below benchmark", func(in *Input) { in.Metrics.Height = 1500 }, 90},
		{"too large", func(in *Input) { in.Metrics.FileSizeBytes = 2 << 20 }, 92},
		{"cmyk", func(in *Input) { in.ColorSpace = "cmyk" }, 95},
		{"thumbnail unsafe main", func(in *Input) { in.Main, in.ThumbnailSafe = true, &unsafe }, 75},
		{"thumbnail unsafe secondary", func(in *Input) { in.ThumbnailSafe = &unsafe }, 100},
		{"everything wrong", func(in *Input) {
			in.Metrics.Width, in.Metrics.Height = 100, 100
			in.Metrics.FileSizeBytes = 5 << 20
			in.ColorSpace = "cmyk"
			in.Main, in.ThumbnailSafe = true, &unsafe
			in.Severity = analyzer.Severity{SevereBlur: true, SevereLighting: true}
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cleanInput()
			tt.modify(&in)
			r := Fuse(compliance.MustLookup("etsy"), in)
			if r.GateScore != tt.want {
				t.Errorf("Expected gate score %v, got %v (%+v)", tt.want, r.GateScore, r.Deductions)
			}
		})
	}
}
