// Package listing combines per-image scores into one listing-level score.
package listing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/photo-grader/pkg/compliance"
	"github.com/menta2k/photo-grader/pkg/types"
)

var (
	// ErrNoImages is returned when aggregating an empty listing
	ErrNoImages = errors.New("no image results provided")
	// ErrMainImageFailed is returned when the image at index 0 could not be scored
	ErrMainImageFailed = errors.New("main image could not be scored")
)

// Listing weights in percent
const (
	WeightMain         = 40
	WeightAverage      = 30
	WeightVariety      = 20
	WeightCompleteness = 10

	// CompletenessThreshold is the image count that earns the completeness bonus
	CompletenessThreshold = 5
	optimalPhotoCount     = 8
	redundantAfter        = 2
)

// varietyPoints is the only source of variety score; the other shot types earn nothing
var varietyPoints = []struct {
	shot   types.ShotType
	points float64
}{
	{types.ShotStudio, 30},
	{types.ShotLifestyle, 25},
	{types.ShotDetail, 25},
	{types.ShotScale, 20},
}

// ImageResult is one scored image in listing order. Index 0 is the main image.
// Failed marks a position whose image could not be scored.
type ImageResult struct {
	Score     float64          `json:"score"`
	ShotTypes []types.ShotType `json:"shotTypes"`
	Failed    bool             `json:"failed,omitempty"`
}

// PhotoCountStatus classifies how many photos a listing carries
type PhotoCountStatus string

const (
	CountPenalty  PhotoCountStatus = "penalty"
	CountBaseline PhotoCountStatus = "baseline"
	CountOptimal  PhotoCountStatus = "optimal"
)

// PhotoCount is the informational photo-count analysis
type PhotoCount struct {
	Count   int              `json:"count"`
	Status  PhotoCountStatus `json:"status"`
	Message string           `json:"message"`
}

// WeightedBreakdown shows each weighted contribution to the listing score
type WeightedBreakdown struct {
	Main         float64 `json:"main"`
	Average      float64 `json:"average"`
	Variety      float64 `json:"variety"`
	Completeness float64 `json:"completeness"`
}

// Result is the listing-level score
type Result struct {
	OverallListingScore float64           `json:"overallListingScore"`
	MainImageScore      float64           `json:"mainImageScore"`
	AverageImageScore   float64           `json:"averageImageScore"`
	VarietyScore        float64           `json:"varietyScore"`
	CompletenessScore   float64           `json:"completenessScore"`
	CompletenessBonus   bool              `json:"completenessBonus"`
	DetectedTypes       []types.ShotType  `json:"detectedTypes"`
	MissingTypes        []types.ShotType  `json:"missingTypes"`
	MissingMessages     []string          `json:"missingMessages"`
	RedundantCount      int               `json:"redundantCount"`
	PhotoCount          PhotoCount        `json:"photoCount"`
	WeightedBreakdown   WeightedBreakdown `json:"weightedBreakdown"`
	FailedIndexes       []int             `json:"failedIndexes,omitempty"`
}

// Aggregate scores a listing using the default platform's messaging
func Aggregate(results []ImageResult) (Result, error) {
	return AggregateForPlatform(compliance.MustLookup(compliance.DefaultPlatform), results)
}

// AggregateForPlatform scores a listing. Input scores are clamped to [0,100].
// Failed positions after the main image are left out of every component and
// reported in FailedIndexes; a failed main image is an error.
func AggregateForPlatform(p compliance.Platform, all []ImageResult) (Result, error) {
	if len(all) == 0 {
		return Result{}, ErrNoImages
	}
	if all[0].Failed {
		return Result{}, ErrMainImageFailed
	}

	results := make([]ImageResult, 0, len(all))
	var failed []int
	for i, r := range all {
		if r.Failed {
			failed = append(failed, i)
			continue
		}
		results = append(results, r)
	}

	count := len(results)
	main := clampScore(results[0].Score)
	total := 0.0
	for _, r := range results {
		total += clampScore(r.Score)
	}
	average := math.Round(total / float64(count))

	seen := make(map[types.ShotType]int)
	for _, r := range results {
		unique := make(map[types.ShotType]bool)
		for _, s := range r.ShotTypes {
			unique[s] = true
		}
		for s := range unique {
			seen[s]++
		}
	}

	var detected []types.ShotType
	for _, s := range types.AllShotTypes() {
		if seen[s] > 0 {
			detected = append(detected, s)
		}
	}

	variety := 0.0
	var missing []types.ShotType
	var missingMessages []string
	for _, vp := range varietyPoints {
		if seen[vp.shot] > 0 {
			variety += vp.points
			continue
		}
		missing = append(missing, vp.shot)
		missingMessages = append(missingMessages, fmt.Sprintf("No %s detected", strings.ToLower(vp.shot.Label())))
	}

	bonus := count >= CompletenessThreshold
	completeness := 100.0
	if !bonus {
		completeness = float64(count) / CompletenessThreshold * 100
	}

	wb := WeightedBreakdown{
		Main:         main * WeightMain / 100,
		Average:      average * WeightAverage / 100,
		Variety:      variety * WeightVariety / 100,
		Completeness: completeness * WeightCompleteness / 100,
	}
	overall := math.Round((main*WeightMain + average*WeightAverage + variety*WeightVariety + completeness*WeightCompleteness) / 100)

	return Result{
		OverallListingScore: clampScore(overall),
		MainImageScore:      main,
		AverageImageScore:   average,
		VarietyScore:        variety,
		CompletenessScore:   completeness,
		CompletenessBonus:   bonus,
		DetectedTypes:       detected,
		MissingTypes:        missing,
		MissingMessages:     missingMessages,
		RedundantCount:      redundantCount(results, seen),
		PhotoCount:          photoCountStatus(p, count),
		WeightedBreakdown:   wb,
		FailedIndexes:       failed,
	}, nil
}

// redundantCount counts images beyond two of the same shot type plus untyped filler images
func redundantCount(results []ImageResult, seen map[types.ShotType]int) int {
	n := 0
	for _, c := range seen {
		if c > redundantAfter {
			n += c - redundantAfter
		}
	}
	for _, r := range results {
		if len(r.ShotTypes) == 0 {
			n++
		}
	}
	return n
}

func photoCountStatus(p compliance.Platform, count int) PhotoCount {
	switch {
	case count < CompletenessThreshold:
		plural := "s"
		if count == 1 {
			plural = ""
		}
		return PhotoCount{count, CountPenalty, fmt.Sprintf(
			"Only %d photo%s - %s penalizes listings with fewer than %d photos. Add %d more for baseline compliance.",
			count, plural, p.DisplayName, CompletenessThreshold, CompletenessThreshold-count)}
	case count < optimalPhotoCount:
		return PhotoCount{count, CountBaseline, fmt.Sprintf(
			"%d photos - Meets %s's minimum. Adding %d more quality photos could boost visibility.",
			count, p.DisplayName, p.MaxPhotos-count)}
	}
	return PhotoCount{count, CountOptimal, fmt.Sprintf(
		"%d photos - Optimal range for %s. Good photo coverage increases conversion.", count, p.DisplayName)}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
