package main

import (
	"agroscan/internal/api"
	"agroscan/internal/api/handler/v1handler"
	"agroscan/internal/submission"
	"agroscan/pkg/logger"
	"agroscan/pkg/metrics"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, deps api.Deps, opts api.Options) func(ctx context.Context) {
	server := api.NewServer(ctx, deps, opts)

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", opts.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func serveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Starts the detection web server",
		PreRunE: a.requireDetector,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mp, err := metrics.NewMeterProvider(prometheus.DefaultRegisterer)
			if err != nil {
				return err //nolint: wrapcheck
			}
			upstream, err := metrics.NewUpstream(mp)
			if err != nil {
				return fmt.Errorf("could not create upstream metrics: %w", err)
			}

			client := a.newDetector(upstream)
			deps := api.Deps{Deps: v1handler.Deps{
				Submission: submission.New(client, submission.NewOptions(a.cfg)),
				Detector:   client,
			}}
			stopWebserver := setupServer(ctx, deps, api.NewOptions(a.cfg))

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "could not stop meter provider", zap.Error(err))
			}

			return nil
		},
	}

	return cmd
}
