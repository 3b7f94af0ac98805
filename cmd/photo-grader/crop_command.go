package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/photo-grader/internal/utils"
	"github.com/menta2k/photo-grader/pkg/cropper"
	"github.com/menta2k/photo-grader/pkg/processing"
	"github.com/menta2k/photo-grader/pkg/types"
)

func newCropCommand(ctx *commandContext) *cobra.Command {
	var boxFlag, aspectFlag, outDir string
	var fill float64
	var debug bool

	cmd := &cobra.Command{
		Use:   "crop <image|url>",
		Short: "Crop a photo around the product at a target fill and aspect ratio",
		Long: "Crop a photo around the product. The product box comes from --box or, " +
			"when omitted, from the configured vision model.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var aspect float64
			if aspectFlag != "" {
				a, err := cropper.ParseAspectRatio(aspectFlag)
				if err != nil {
					return err
				}
				aspect = a.Ratio()
			}

			engine, err := ctx.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			sources, images, err := loadSources(cmd.Context(), args[:1])
			if err != nil {
				return err
			}
			img, err := processing.DecodeOriented(images[0])
			if err != nil {
				return err
			}
			size := img.Bounds().Size()

			var box types.Rect
			if boxFlag != "" {
				if box, err = parseBox(boxFlag); err != nil {
					return err
				}
			} else {
				det, err := engine.LocateProduct(cmd.Context(), images[0])
				if err != nil {
					return fmt.Errorf("locate product (pass --box to skip the vision model): %w", err)
				}
				box = det.Box
				ctx.logger.Info("product located", "label", det.Label, "confidence", det.Confidence, "box", det.Box)
			}

			res, err := engine.SmartCrop(size.X, size.Y, box, fill, aspect)
			if err != nil {
				return err
			}

			if err := utils.EnsureDir(outDir); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			cfg := ctx.config
			quality := cfg.Optimizer.Qualities[0]
			data, err := processing.Encode(cropper.Apply(img, res.Crop), cfg.Optimizer.OutputFormat, quality, cfg.Optimizer.WebPLossless)
			if err != nil {
				return err
			}
			path := utils.OutputPath(sources[0], outDir, "_crop", cfg.Optimizer.OutputFormat)
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			var overlayPath string
			if debug {
				overlay, err := processing.Encode(processing.CreateDebugOverlay(img, box, res.Crop), "png", 0, false)
				if err != nil {
					return err
				}
				overlayPath = utils.OutputPath(sources[0], outDir, "_debug", "png")
				if err := os.WriteFile(overlayPath, overlay, 0644); err != nil {
					return fmt.Errorf("write %s: %w", overlayPath, err)
				}
			}

			if ctx.jsonFlag {
				return writeJSON(cmd, struct {
					cropper.CropResult
					Output  string `json:"output"`
					Overlay string `json:"overlay,omitempty"`
				}{res, path, overlayPath})
			}

			c := res.Crop
			rows := [][]string{
				{"Crop", fmt.Sprintf("%dx%d at %d,%d", c.Width, c.Height, c.X, c.Y)},
				{"Product fill", fmt.Sprintf("%.1f%% -> %.1f%%", res.CurrentFillPercent, res.CropFillPercent)},
				{"Needs zoom", yesNo(res.NeedsZoom)},
				{"Thumbnail safe", yesNo(res.ThumbnailSafe)},
				{"Quality", fmt.Sprintf("%.0f", res.Quality)},
				{"Output", path},
			}
			if res.NeedsZoom {
				rows = append(rows, []string{"Recommended zoom", fmt.Sprintf("%.2fx", res.RecommendedZoom)})
			}
			if overlayPath != "" {
				rows = append(rows, []string{"Overlay", overlayPath})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&boxFlag, "box", "", "Product box in source pixels: x,y,width,height")
	cmd.Flags().Float64Var(&fill, "fill", 0, "Share of the crop the product should fill, in percent (default from cropper)")
	cmd.Flags().StringVar(&aspectFlag, "aspect", "", "Target aspect ratio such as 4:3 or 1:1")
	cmd.Flags().StringVarP(&outDir, "out", "o", "cropped", "Output directory")
	cmd.Flags().BoolVar(&debug, "debug", false, "Also write an overlay showing the product box and crop")
	return cmd
}

// parseBox reads "x,y,width,height"
func parseBox(s string) (types.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.Rect{}, fmt.Errorf("invalid box %q: want x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return types.Rect{}, fmt.Errorf("invalid box %q: %w", s, err)
		}
		v[i] = n
	}
	return types.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
