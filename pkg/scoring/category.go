package scoring

import (
	"fmt"
	"strings"
)

// Category is the product photography category that selects weights and reward curves
type Category string

const (
	SmallJewelry         Category = "small_jewelry"
	FlatArtwork          Category = "flat_artwork"
	WearablesClothing    Category = "wearables_clothing"
	WearablesAccessories Category = "wearables_accessories"
	HomeDecorWallArt     Category = "home_decor_wall_art"
	Furniture            Category = "furniture"
	SmallCrafts          Category = "small_crafts"
	CraftSupplies        Category = "craft_supplies"
	VintageItems         Category = "vintage_items"
	DigitalProducts      Category = "digital_products"
)

// DefaultCategory is used when neither a category nor a matching title is supplied
const DefaultCategory = SmallCrafts

// Categories lists every category in canonical order
func Categories() []Category {
	return []Category{
		SmallJewelry, FlatArtwork, WearablesClothing, WearablesAccessories, HomeDecorWallArt,
		Furniture, SmallCrafts, CraftSupplies, VintageItems, DigitalProducts,
	}
}

var categoryAliases = map[string]Category{
	"small_jewelry":        SmallJewelry,
	"jewelry":              SmallJewelry,
	"flat_artwork":         FlatArtwork,
	"artwork":              FlatArtwork,
	"wearable_clothing":    WearablesClothing,
	"clothing":             WearablesClothing,
	"wearable_accessory":   WearablesAccessories,
	"wearable_accessories": WearablesAccessories,
	"accessories":          WearablesAccessories,
	"wall_art":             HomeDecorWallArt,
	"home_decor":           HomeDecorWallArt,
	"small_craft":          SmallCrafts,
	"crafts":               SmallCrafts,
	"craft_supply":         CraftSupplies,
	"vintage":              VintageItems,
	"digital_product":      DigitalProducts,
	"digital":              DigitalProducts,
}

// ParseCategory accepts canonical names, hyphenated spellings and a few short aliases
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, c := range Categories() {
		if key == string(c) {
			return c, nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Name returns a human readable category name
func (c Category) Name() string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Weights is a category's weight triple, stored as integer percentages summing to 100
type Weights struct {
	Technical    int `json:"technical"`
	Presentation int `json:"presentation"`
	Composition  int `json:"composition"`
}

// Sum returns the total of the three percentages
func (w Weights) Sum() int {
	return w.Technical + w.Presentation + w.Composition
}

// Fractions returns the weights as fractions of 1
func (w Weights) Fractions() (technical, presentation, composition float64) {
	return float64(w.Technical) / 100, float64(w.Presentation) / 100, float64(w.Composition) / 100
}

var categoryWeights = map[Category]Weights{
	SmallJewelry:         {Technical: 60, Presentation: 25, Composition: 15},
	FlatArtwork:          {Technical: 50, Presentation: 25, Composition: 25},
	WearablesClothing:    {Technical: 45, Presentation: 35, Composition: 20},
	WearablesAccessories: {Technical: 50, Presentation: 30, Composition: 20},
	HomeDecorWallArt:     {Technical: 35, Presentation: 40, Composition: 25},
	Furniture:            {Technical: 40, Presentation: 40, Composition: 20},
	SmallCrafts:          {Technical: 50, Presentation: 25, Composition: 25},
	CraftSupplies:        {Technical: 50, Presentation: 25, Composition: 25},
	VintageItems:         {Technical: 50, Presentation: 30, Composition: 20},
	DigitalProducts:      {Technical: 50, Presentation: 30, Composition: 20},
}

// WeightsFor returns the weight triple for a category, falling back to the default category
func WeightsFor(c Category) Weights {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return categoryWeights[DefaultCategory]
}

// titleRules is evaluated in order; the first rule with a matching keyword wins
var titleRules = []struct {
	category Category
	keywords []string
}{
	{HomeDecorWallArt, []string{"canvas", "wall art", "print"}},
	{SmallJewelry, []string{"ring", "necklace", "earring", "bracelet"}},
	{WearablesClothing, []string{"dress", "shirt", "pant", "clothing"}},
	{WearablesAccessories, []string{"bag", "purse", "scarf", "hat"}},
	{Furniture, []string{"furniture", "table", "chair"}},
	{VintageItems, []string{"vintage"}},
	{DigitalProducts, []string{"digital", "printable", "template"}},
	{FlatArtwork, []string{"art", "painting"}},
	{CraftSupplies, []string{"supply", "material"}},
}

// InferCategory picks a category from a free-text listing title
func InferCategory(title string) Category {
	lower := strings.ToLower(title)
	if strings.TrimSpace(lower) == "" {
		return DefaultCategory
	}
	for _, rule := range titleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}

// Resolve returns the explicit category when valid, else infers from the title
func Resolve(category, title string) Category {
	if category != "" {
		if c, err := ParseCategory(category); err == nil {
			return c
		}
	}
	return InferCategory(title)
}
