package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	photograder "github.com/menta2k/photo-grader"
	"github.com/menta2k/photo-grader/internal/utils"
	"github.com/menta2k/photo-grader/pkg/optimizer"
)

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var req requestFlags
	var outDir, format string
	var locate bool

	cmd := &cobra.Command{
		Use:   "optimize <image|dir|url>...",
		Short: "Crop, resize, correct and recompress photos to raise their score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if format != "" {
				cfg.Optimizer.OutputFormat = strings.ToLower(format)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			engine, err := ctx.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			sources, images, err := loadSources(cmd.Context(), args)
			if err != nil {
				return err
			}
			if err := utils.EnsureDir(outDir); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			res, err := engine.OptimizeBatch(cmd.Context(), images, photograder.OptimizeOptions{
				Category:      req.category,
				Title:         req.title,
				Platform:      req.platform,
				LocateProduct: locate,
			})
			if err != nil {
				return err
			}

			paths := make([]string, len(res.Outcomes))
			for i, o := range res.Outcomes {
				if o.Err != nil || o.Value.AlreadyOptimized || o.Value.TransformFailed {
					continue
				}
				path := utils.OutputPath(sources[i], outDir, "_optimized", o.Value.OutputFormat)
				if err := os.WriteFile(path, o.Value.OutputBytes, 0644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				paths[i] = path
			}

			if ctx.jsonFlag {
				type entry struct {
					Source string            `json:"source"`
					Output string            `json:"output,omitempty"`
					Result *optimizer.Result `json:"result,omitempty"`
					Error  string            `json:"error,omitempty"`
				}
				out := make([]entry, len(res.Outcomes))
				for i, o := range res.Outcomes {
					out[i] = entry{Source: sources[i], Output: paths[i], Result: o.Value}
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
				r := o.Value
				rows = append(rows, []string{
					name,
					fmt.Sprintf("%.0f", r.OriginalScore),
					fmt.Sprintf("%.0f", r.NewScore),
					fmt.Sprintf("%+.0f", r.Improvement),
					fmt.Sprintf("%dx%d", r.OutputWidth, r.OutputHeight),
					utils.FormatFileSize(int64(len(r.OutputBytes))),
					joinTransforms(r.TransformsApplied),
					filepath.Base(paths[i]),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Image", "Before", "After", "Change", "Size", "Bytes", "Transforms", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			for i, o := range res.Outcomes {
				if o.Err == nil && o.Value.Message != "" {
					fmt.Fprintf(out, "%s: %s\n", filepath.Base(sources[i]), o.Value.Message)
				}
			}
			return nil
		},
	}

	req.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "optimized", "Output directory")
	cmd.Flags().StringVar(&format, "format", "", "Output format override: jpeg, png or webp")
	cmd.Flags().BoolVar(&locate, "locate", false, "Center the aspect crop on the product found by the vision model")
	return cmd
}

func joinTransforms(ts []optimizer.Transform) string {
	if len(ts) == 0 {
		return "-"
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
