package main

import (
	"agroscan/internal/submission"
	"agroscan/pkg/domain"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var errNoInput = errors.New("one of --file or --url is required")

// detectCommand runs a single submission from the terminal, the same way the form does.
func detectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "detect",
		Short:   "Runs object detection on a local image or an image URL",
		PreRunE: a.requireDetector,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			imageURL, _ := cmd.Flags().GetString("url")
			raw, _ := cmd.Flags().GetBool("raw")
			summary, _ := cmd.Flags().GetBool("summary")

			sub, err := buildSubmission(file, imageURL)
			if err != nil {
				return err
			}

			svc := submission.New(a.newDetector(nil), submission.NewOptions(a.cfg))
			res, err := svc.Submit(cmd.Context(), sub)
			if err != nil {
				return err //nolint: wrapcheck
			}

			return printResult(cmd.OutOrStdout(), res, raw, summary)
		},
	}

	cmd.Flags().String("file", "", "Path of the image to upload")
	cmd.Flags().String("url", "", "Publicly reachable image URL")
	cmd.Flags().Bool("raw", false, "Print the response exactly as received")
	cmd.Flags().Bool("summary", false, "Print one line per prediction")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	cmd.MarkFlagsMutuallyExclusive("raw", "summary")

	return cmd
}

func buildSubmission(file, imageURL string) (submission.Submission, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return submission.Submission{}, fmt.Errorf("could not read image: %w", err)
		}
		dataURI, err := submission.FromFile("", data)
		if err != nil {
			return submission.Submission{}, err //nolint: wrapcheck
		}

		return submission.Submission{Method: domain.MethodUpload, ImageDataURI: dataURI}, nil
	case imageURL != "":
		return submission.Submission{Method: domain.MethodURL, ImageURL: imageURL}, nil
	default:
		return submission.Submission{}, errNoInput
	}
}

func printResult(w io.Writer, res domain.RawResult, raw, summary bool) error {
	switch {
	case raw:
		_, err := w.Write(res)

		return err //nolint: wrapcheck
	case summary:
		parsed, err := domain.ParseResult(res)
		if err != nil {
			return err //nolint: wrapcheck
		}
		_, _ = fmt.Fprintf(w, "%d prediction(s) on %dx%d in %.3fs\n",
			len(parsed.Predictions), parsed.ImageWidth, parsed.ImageHeight, parsed.Time)
		for _, p := range parsed.Predictions {
			_, _ = fmt.Fprintf(w, "%-20s %5.1f%%  x=%.0f y=%.0f w=%.0f h=%.0f\n",
				p.Class, p.Confidence*100, p.X, p.Y, p.Width, p.Height)
		}

		return nil
	default:
		pretty, err := res.Pretty()
		if err != nil {
			return err //nolint: wrapcheck
		}
		_, err = fmt.Fprintln(w, pretty)

		return err //nolint: wrapcheck
	}
}
