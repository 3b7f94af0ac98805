package scoring

import (
	"math"
	"reflect"
	"testing"

	"github.com/menta2k/photo-grader/pkg/analyzer"
)

func goodMetrics() analyzer.RawMetrics {
	return analyzer.RawMetrics{
		Sharpness:          85,
		Brightness:         62,
		ContrastScore:      40,
		BackgroundVariance: 20,
		AspectRatio:        1,
		Width:              2000,
		Height:             2000,
		FileSizeBytes:      800 * 1024,
	}
}

func TestWeightsSumToOne(t *testing.T) {
	for _, c := range Categories() {
		w := WeightsFor(c)
		if w.Sum() != 100 {
			t.Errorf("%s: weights sum to %d%%, want 100%%", c, w.Sum())
		}
		a, b, d := w.Fractions()
		if math.Abs(a+b+d-1) > 1e-12 {
			t.Errorf("%s: fractions sum to %v", c, a+b+d)
		}
	}
}

func TestEveryCategoryHasRules(t *testing.T) {
	for _, c := range Categories() {
		if _, ok := categoryWeights[c]; !ok {
			t.Errorf("%s has no weights", c)
		}
		if _, ok := presentationTable[c]; !ok {
			t.Errorf("%s has no presentation rule", c)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := New()
	m := goodMetrics()
	first := s.Score(m, SmallJewelry)
	for i := 0; i < 5; i++ {
		if got := s.Score(m, SmallJewelry); !reflect.DeepEqual(first, got) {
			t.Fatalf("Score not deterministic: %+v vs %+v", first, got)
		}
	}
}

func TestScoreGoodJewelryPhoto(t *testing.T) {
	got := New().Score(goodMetrics(), SmallJewelry)

	if got.Breakdown.Technical != 100 {
		t.Errorf("Expected technical 100, got %v", got.Breakdown.Technical)
	}
	if got.Breakdown.Composition != 100 {
		t.Errorf("Expected composition 100, got %v", got.Breakdown.Composition)
	}
	if got.Breakdown.Presentation != 95 {
		t.Errorf("Expected presentation 95, got %v", got.Breakdown.Presentation)
	}
	// 0.60*100 + 0.25*95 + 0.15*100 = 98.75
	if got.Overall != 99 {
		t.Errorf("Expected overall 99, got %v", got.Overall)
	}
	if len(got.Suggestions) != 0 {
		t.Errorf("Expected no suggestions, got %v", got.Suggestions)
	}
}

func TestScoreUnknownCategoryFallsBack(t *testing.T) {
	got := New().Score(goodMetrics(), Category("spaceships"))
	if got.Category != DefaultCategory {
		t.Errorf("Expected fallback to %s, got %s", DefaultCategory, got.Category)
	}
}

func TestScoreBounds(t *testing.T) {
	s := New()
	extremes := []analyzer.RawMetrics{
		{},
		{Sharpness: 100, Brightness: 100, BackgroundVariance: 200, AspectRatio: 10, Width: 10000, Height: 1000, FileSizeBytes: 1 << 30},
		{Sharpness: 0, Brightness: 0, AspectRatio: 0.01, Width: 1, Height: 100},
	}
	for _, m := range extremes {
		for _, c := range Categories() {
			got := s.Score(m, c)
			for name, v := range map[string]float64{
				"overall":      got.Overall,
				"technical":    got.Breakdown.Technical,
				"presentation": got.Breakdown.Presentation,
				"composition":  got.Breakdown.Composition,
			} {
				if v < 0 || v > 100 {
					t.Errorf("%s %s out of range: %v", c, name, v)
				}
			}
		}
	}
}

func TestBrightnessPoints(t *testing.T) {
	tests := []struct {
		brightness float64
		want       float64
	}{
		{62, 40}, {50, 40}, {75, 40},
		{45, 30}, {80, 30},
		{35, 20}, {88, 20},
		{25, 10}, {93, 10},
		{10, 0}, {99, 0},
	}
	for _, tt := range tests {
		if got := BrightnessPoints(tt.brightness); got != tt.want {
			t.Errorf("BrightnessPoints(%v) = %v, want %v", tt.brightness, got, tt.want)
		}
	}
}

func TestFileSizePoints(t *testing.T) {
	c := DefaultCurves()
	tests := []struct {
		kb   float64
		want float64
	}{
		{500, 25}, {1500, 25}, {2048, 25},
		{300, 20}, {150, 10}, {50, 5},
		{3000, 15}, {5000, 5},
	}
	for _, tt := range tests {
		if got := c.FileSizePoints(tt.kb); got != tt.want {
			t.Errorf("FileSizePoints(%v) = %v, want %v", tt.kb, got, tt.want)
		}
	}
}

func TestCompositionCurves(t *testing.T) {
	c := DefaultCurves()
	if got := SquarenessPoints(1.0); got != 60 {
		t.Errorf("Expected square to earn 60, got %v", got)
	}
	if got := SquarenessPoints(4.0 / 3.0); got != 40 {
		t.Errorf("Expected 4:3 to earn 40, got %v", got)
	}
	if got := c.DimensionPoints(2000); got != 40 {
		t.Errorf("Expected 2000px to earn 40, got %v", got)
	}
	if got := c.DimensionPoints(1000); got != 24 {
		t.Errorf("Expected 1000px to earn 24, got %v", got)
	}
}

func TestPresentationTable(t *testing.T) {
	tests := []struct {
		category Category
		variance float64
		want     float64
	}{
		{SmallJewelry, 10, 95},
		{SmallJewelry, 100, 50},
		{HomeDecorWallArt, 10, 60},
		{HomeDecorWallArt, 60, 90},
		{Furniture, 60, 90},
		{VintageItems, 10, 65},
		{VintageItems, 100, 90},
		{DigitalProducts, 100, 50},
		{WearablesClothing, 50, 75},
	}
	for _, tt := range tests {
		if got := Presentation(tt.category, tt.variance); got != tt.want {
			t.Errorf("Presentation(%s, %v) = %v, want %v", tt.category, tt.variance, got, tt.want)
		}
	}
}

func TestPresentationClamped(t *testing.T) {
	for _, c := range Categories() {
		for _, v := range []float64{0, 10, 30, 50, 70, 90, 120, 255} {
			got := Presentation(c, v)
			if got < 50 || got > 95 {
				t.Errorf("Presentation(%s, %v) = %v outside [50,95]", c, v, got)
			}
		}
	}
}

func TestSuggestions(t *testing.T) {
	m := goodMetrics()
	m.Brightness = 20
	m.Sharpness = 10
	m.Width, m.Height = 1000, 1500

	got := New().Score(m, SmallJewelry).Suggestions
	want := []string{
		"Image is too dark (brightness: 20%). Increase exposure or add lighting.",
		"Image lacks sharpness. Use a tripod or apply sharpening filter.",
		"Crop to a square 1:1 frame for consistent thumbnails.",
		"Increase image resolution. Shortest side is 1000px, aim for at least 2000px.",
		"For jewelry: ensure product fills 70-80% of frame with size reference.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unexpected suggestions:\n got %q\nwant %q", got, want)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		title string
		want  Category
	}{
		{"", SmallCrafts},
		{"Sterling silver ring", SmallJewelry},
		{"Large canvas print", HomeDecorWallArt},
		{"Linen summer dress", WearablesClothing},
		{"Leather bag", WearablesAccessories},
		{"Oak side table", Furniture},
		{"Vintage brass lamp", VintageItems},
		{"Digital planner template", DigitalProducts},
		{"Original oil painting", FlatArtwork},
		{"Yarn supply bundle", CraftSupplies},
		{"Handmade candle", SmallCrafts},
		// first match wins: "printable" contains "print"
		{"Printable planner", HomeDecorWallArt},
	}
	for _, tt := range tests {
		if got := InferCategory(tt.title); got != tt.want {
			t.Errorf("InferCategory(%q) = %s, want %s", tt.title, got, tt.want)
		}
	}
}

func TestParseCategoryAndResolve(t *testing.T) {
	if c, err := ParseCategory("small-jewelry"); err != nil || c != SmallJewelry {
		t.Errorf("Expected small-jewelry to parse, got %s %v", c, err)
	}
	if c, err := ParseCategory("Wall Art"); err != nil || c != HomeDecorWallArt {
		t.Errorf("Expected wall art alias, got %s %v", c, err)
	}
	if _, err := ParseCategory("rockets"); err == nil {
		t.Error("Expected error for unknown category")
	}
	if got := Resolve("", "Gold necklace"); got != SmallJewelry {
		t.Errorf("Expected title inference, got %s", got)
	}
	if got := Resolve("furniture", "Gold necklace"); got != Furniture {
		t.Errorf("Expected explicit category to win, got %s", got)
	}
	if got := SmallJewelry.Name(); got != "Small Jewelry" {
		t.Errorf("Expected Small Jewelry, got %s", got)
	}
}
