package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	photograder "github.com/menta2k/photo-grader"
	"github.com/menta2k/photo-grader/pkg/listing"
	"github.com/menta2k/photo-grader/pkg/types"
)

func newListingCommand(ctx *commandContext) *cobra.Command {
	var req requestFlags
	var authoritative bool

	cmd := &cobra.Command{
		Use:   "listing <image|dir|url>...",
		Short: "Score a whole listing; the first image is the main photo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			_, images, err := loadSources(cmd.Context(), args)
			if err != nil {
				return err
			}

			var res listing.Result
			if authoritative {
				res, err = engine.ScoreListingAuthoritative(cmd.Context(), images, req.platform)
				if err != nil {
					return err
				}
			} else {
				batch, err := engine.AnalyzeBatch(cmd.Context(), images, photograder.AnalyzeOptions{
					Category: req.category,
					Title:    req.title,
					Platform: req.platform,
				})
				if err != nil {
					return err
				}
				for _, f := range batch.Failed() {
					ctx.logger.Warn("image skipped", "index", f.Index, "error", f.Err)
				}
				res, err = engine.AggregateListing(req.platform, photograder.ListingInputs(batch.Outcomes))
				if err != nil {
					return err
				}
			}

			if ctx.jsonFlag {
				return writeJSON(cmd, res)
			}
			printListing(cmd, res)
			return nil
		},
	}

	req.register(cmd)
	cmd.Flags().BoolVar(&authoritative, "authoritative", false, "Use the vision model's scores; fails if any image cannot be scored")
	return cmd
}

func printListing(cmd *cobra.Command, res listing.Result) {
	w := res.WeightedBreakdown
	rows := [][]string{
		{"Overall", fmt.Sprintf("%.1f", res.OverallListingScore), ""},
		{"Main image", fmt.Sprintf("%.1f", res.MainImageScore), fmt.Sprintf("%.1f", w.Main)},
		{"Average image", fmt.Sprintf("%.1f", res.AverageImageScore), fmt.Sprintf("%.1f", w.Average)},
		{"Variety", fmt.Sprintf("%.1f", res.VarietyScore), fmt.Sprintf("%.1f", w.Variety)},
		{"Completeness", fmt.Sprintf("%.1f", res.CompletenessScore), fmt.Sprintf("%.1f", w.Completeness)},
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Component", "Score", "Weighted"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight}))

	fmt.Fprintf(out, "Photos: %d (%s) %s\n", res.PhotoCount.Count, res.PhotoCount.Status, res.PhotoCount.Message)
	fmt.Fprintf(out, "Shot types: %s\n", shotList(res.DetectedTypes))
	if len(res.MissingTypes) > 0 {
		fmt.Fprintf(out, "Missing: %s\n", shotList(res.MissingTypes))
		for _, m := range res.MissingMessages {
			fmt.Fprintf(out, "  - %s\n", m)
		}
	}
	if res.RedundantCount > 0 {
		fmt.Fprintf(out, "Redundant photos: %d\n", res.RedundantCount)
	}
	if len(res.FailedIndexes) > 0 {
		fmt.Fprintf(out, "Unscored photos (index): %v\n", res.FailedIndexes)
	}
	fmt.Fprintf(out, "Completeness bonus: %s\n", yesNo(res.CompletenessBonus))
}

func shotList(ts []types.ShotType) string {
	if len(ts) == 0 {
		return "none"
	}
	labels := make([]string, len(ts))
	for i, t := range ts {
		labels[i] = t.Label()
	}
	return strings.Join(labels, ", ")
}
