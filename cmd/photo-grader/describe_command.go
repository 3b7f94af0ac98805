package main

import (
	"fmt"

	"github.com/spf13/cobra"

	photograder "github.com/menta2k/photo-grader"
)

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	var backend, url, model string

	cmd := &cobra.Command{
		Use:   "describe <image|url>",
		Short: "Ask the vision model to describe a photo",
		Long:  "Ask the vision model to describe a photo. Useful to check that the backend is reachable and can see images.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			vision := cfg.Vision
			if backend != "" {
				vision.Backend = backend
			}
			if url != "" {
				vision.URL = url
			}
			if model != "" {
				vision.Model = model
			}

			detector, err := photograder.NewDetector(vision)
			if err != nil {
				return err
			}
			_, images, err := loadSources(cmd.Context(), args[:1])
			if err != nil {
				return err
			}
			text, err := detector.Describe(cmd.Context(), images[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Vision backend override: ollama or llamacpp")
	cmd.Flags().StringVar(&url, "url", "", "Vision server URL override")
	cmd.Flags().StringVar(&model, "model", "", "Model name override")
	return cmd
}
