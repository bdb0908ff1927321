// Package main provides the CLI entrypoint for the detection service.
// It wires subcommands (serve, detect, resize), loads configuration, and initializes logging.
package main

import (
	"agroscan/internal/config"
	"agroscan/pkg/detector/roboflow"
	"agroscan/pkg/logger"
	"agroscan/pkg/metrics"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries state shared by subcommands once the root command has loaded it.
type app struct {
	configPath string
	cfg        *config.Config
}

// load reads the configuration and sets up logging. It runs before every subcommand.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err //nolint: wrapcheck
	}
	a.cfg = cfg

	logger.Setup(cfg.Environment)
	logger.Debug(cmd.Context(), "config loaded", zap.String("path", a.configPath))

	return nil
}

// requireDetector fails commands that call the detection API when its settings are missing.
func (a *app) requireDetector(_ *cobra.Command, _ []string) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// newDetector builds the detection API client from configuration.
func (a *app) newDetector(m *metrics.Upstream) *roboflow.Client {
	return roboflow.New(&http.Client{Timeout: a.cfg.Detector.Timeout}, roboflow.Options{
		BaseURL: a.cfg.Detector.BaseURL,
		Model:   a.cfg.Detector.Model,
		Version: a.cfg.Detector.Version,
		APIKey:  a.cfg.Detector.APIKey,
	}, m)
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "agroscan",
		Short:             "Object detection for produce images",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yml", "Config File Path")

	rootCmd.AddCommand(
		serveCommand(a),
		detectCommand(a),
		resizeCommand(a),
	)

	return rootCmd
}

func main() {
	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync()

			panic(p)
		}
	}()

	err := newRootCommand().ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
