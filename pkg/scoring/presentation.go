package scoring

import "math"

const (
	presentationBase = 55.0
	presentationMin  = 50.0
	presentationMax  = 95.0
)

// BackgroundStyle is the kind of background a category is rewarded for
type BackgroundStyle string

const (
	StyleClean     BackgroundStyle = "clean"
	StyleNeutral   BackgroundStyle = "neutral"
	StyleLifestyle BackgroundStyle = "lifestyle"
	StyleAuthentic BackgroundStyle = "authentic"
)

// VarianceTier awards Points when background variance is below Below
type VarianceTier struct {
	Below  float64
	Points float64
}

// PresentationRule is one row of the presentation lookup table
type PresentationRule struct {
	Style BackgroundStyle
	Tiers []VarianceTier
}

var inf = math.Inf(1)

var (
	cleanTiers = []VarianceTier{
		{25, 40}, {40, 30}, {50, 20}, {80, 5}, {inf, -5},
	}
	mockupTiers = []VarianceTier{
		{20, 40}, {40, 30}, {60, 10}, {inf, -5},
	}
	neutralTiers = []VarianceTier{
		{30, 30}, {60, 20}, {80, 5}, {inf, 0},
	}
	artworkTiers = []VarianceTier{
		{40, 30}, {60, 20}, {inf, 5},
	}
	lifestyleTiers = []VarianceTier{
		{20, 5}, {35, 15}, {90, 35}, {inf, 20},
	}
	authenticTiers = []VarianceTier{
		{30, 10}, {50, 20}, {80, 30}, {inf, 35},
	}
)

// presentationTable maps each category to its ordered variance thresholds
var presentationTable = map[Category]PresentationRule{
	SmallJewelry:         {StyleClean, cleanTiers},
	SmallCrafts:          {StyleClean, cleanTiers},
	CraftSupplies:        {StyleClean, cleanTiers},
	DigitalProducts:      {StyleClean, mockupTiers},
	FlatArtwork:          {StyleNeutral, artworkTiers},
	WearablesClothing:    {StyleNeutral, neutralTiers},
	WearablesAccessories: {StyleNeutral, neutralTiers},
	HomeDecorWallArt:     {StyleLifestyle, lifestyleTiers},
	Furniture:            {StyleLifestyle, lifestyleTiers},
	VintageItems:         {StyleAuthentic, authenticTiers},
}

// PresentationRuleFor returns the lookup row for a category
func PresentationRuleFor(c Category) PresentationRule {
	if r, ok := presentationTable[c]; ok {
		return r
	}
	return presentationTable[DefaultCategory]
}

// Presentation scores background appropriateness for a category.
// backgroundVariance is the mean channel standard deviation on the 0-255 scale.
func Presentation(c Category, backgroundVariance float64) float64 {
	rule := PresentationRuleFor(c)
	bonus := 0.0
	for _, tier := range rule.Tiers {
		if backgroundVariance < tier.Below {
			bonus = tier.Points
			break
		}
	}
	return clamp(presentationBase+bonus, presentationMin, presentationMax)
}
