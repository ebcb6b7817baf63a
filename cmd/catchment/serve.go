package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/catchment"
	"github.com/aretw0/catchment/internal/cli"
	"github.com/aretw0/catchment/internal/presentation/tui"
	chttp "github.com/aretw0/catchment/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the delineation engine as a JSON API over HTTP:

  POST /delineate        one region mapping
  POST /delineate/batch  {"regions": [...]}
  GET  /dataset          flow grid metadata
  GET  /metrics          Prometheus metrics
  GET  /healthz`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, cfg, logger, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("rate") {
			cfg.HTTP.Rate, _ = cmd.Flags().GetFloat64("rate")
		}

		opts := []chttp.Option{
			chttp.WithLogger(logger),
			chttp.WithMetrics(rt.Registry),
			chttp.WithRateLimit(cfg.HTTP.Rate, cfg.HTTP.Burst),
		}
		if cfg.HTTP.MaxBatch > 0 {
			opts = append(opts, chttp.WithMaxBatch(cfg.HTTP.MaxBatch))
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           chttp.NewHandler(rt.Engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cli.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr, strings.TrimSpace(catchment.Version))
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting catchment server", "address", srv.Addr, "dataset", cfg.Flow)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-cmd.Context().Done():
			logger.Info("shutting down", "signal", signalOf(cmd))

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("catchment server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on, overrides http.port")
	serveCmd.Flags().Float64("rate", 0, "Delineation requests per second, 0 for unlimited; overrides http.rate")
}

// signalOf names the signal that cancelled the command, if any.
func signalOf(cmd *cobra.Command) string {
	if sc, ok := cmd.Context().(*cli.SignalContext); ok && sc.Signal() != nil {
		return sc.Signal().String()
	}
	return "none"
}
