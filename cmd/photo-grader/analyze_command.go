package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	photograder "github.com/menta2k/photo-grader"
	"github.com/menta2k/photo-grader/pkg/compliance"
)

type requestFlags struct {
	category string
	title    string
	platform string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "Product category (defaults to the title guess or scoring.category)")
	cmd.Flags().StringVar(&f.title, "title", "", "Listing title used to infer the category")
	cmd.Flags().StringVar(&f.platform, "platform", "", "Marketplace rules to apply: "+platformNames())
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var req requestFlags

	cmd := &cobra.Command{
		Use:   "analyze <image|dir|url>...",
		Short: "Score photos and check marketplace compliance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			sources, images, err := loadSources(cmd.Context(), args)
			if err != nil {
				return err
			}

			res, err := engine.AnalyzeBatch(cmd.Context(), images, photograder.AnalyzeOptions{
				Category: req.category,
				Title:    req.title,
				Platform: req.platform,
			})
			if err != nil {
				return err
			}

			if ctx.jsonFlag {
				type entry struct {
					Source string                      `json:"source"`
					Result *photograder.AnalysisResult `json:"result,omitempty"`
					Error  string                      `json:"error,omitempty"`
				}
				out := make([]entry, len(res.Outcomes))
				for i, o := range res.Outcomes {
					out[i] = entry{Source: sources[i], Result: o.Value}
					if o.Err != nil {
						out[i].Error = o.Err.Error()
					}
				}
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(res.Outcomes))
			for i, o := range res.Outcomes {
				name := filepath.Base(sources[i])
				if o.Err != nil {
					rows = append(rows, []string{name, "error: " + o.Err.Error()})
					continue
				}
				a := o.Value
				rows = append(rows, []string{
					name,
					string(a.Score.Category),
					fmt.Sprintf("%dx%d", a.Metrics.Width, a.Metrics.Height),
					fmt.Sprintf("%.0f", a.Score.Overall),
					fmt.Sprintf("%.0f", a.Compliance.Overall),
					fmt.Sprintf("%.0f", a.FinalScore),
					fmt.Sprintf("%.0f", a.Fused.GateScore),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Image", "Category", "Size", "Photo", "Compliance", "Final", "Gate"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			if len(res.Outcomes) == 1 && res.Outcomes[0].Err == nil {
				printAnalysisDetail(cmd, res.Outcomes[0].Value)
			}
			return nil
		},
	}

	req.register(cmd)
	return cmd
}

func printAnalysisDetail(cmd *cobra.Command, a *photograder.AnalysisResult) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, 5)
	for _, c := range a.Compliance.Breakdown() {
		rows = append(rows, []string{c.Name, fmt.Sprintf("%.0f", c.Check.Score), string(c.Check.Status), c.Check.Message})
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "Score", "Status", "Detail"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}))

	b := a.Score.Breakdown
	fmt.Fprintf(out, "Technical %.0f, presentation %.0f, composition %.0f\n", b.Technical, b.Presentation, b.Composition)
	for _, d := range a.Fused.Deductions {
		fmt.Fprintf(out, "  -%.0f %s\n", d.Penalty, d.Explanation)
	}
	if len(a.Suggestions) > 0 {
		fmt.Fprintln(out, "Suggestions:")
		for _, s := range a.Suggestions {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
}

func platformNames() string {
	return strings.Join(compliance.Names(), ", ")
}
