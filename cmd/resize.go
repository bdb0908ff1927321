package main

import (
	"agroscan/internal/submission"
	"agroscan/pkg/imaging"
	"agroscan/pkg/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// resizeCommand applies the upload downscale to a local file, which helps
// checking what the detection API actually receives.
func resizeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resize",
		Short: "Downscales a local image the way uploads are",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")

			raw, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("could not read image: %w", err)
			}

			resized, bounds, err := imaging.Resize(raw, submission.NewOptions(a.cfg).Imaging)
			if err != nil {
				return err //nolint: wrapcheck
			}

			if err := os.WriteFile(out, resized, 0o600); err != nil {
				return fmt.Errorf("could not write image: %w", err)
			}
			logger.Info(cmd.Context(), "image resized",
				zap.String("out", out),
				zap.Int("width", bounds.Dx()),
				zap.Int("height", bounds.Dy()),
				zap.Int("bytes", len(resized)))

			return nil
		},
	}

	cmd.Flags().String("in", "", "Source image")
	cmd.Flags().String("out", "", "Destination JPEG")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
