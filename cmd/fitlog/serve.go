// ABOUTME: CLI command for the read-only JSON API.
// ABOUTME: Serves coverage, plan, summary, and series endpoints until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/fitlog/internal/api"
	"github.com/spf13/cobra"
)

var (
	serveAddr        string
	serveCORSOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored data as a JSON API",
	Long: `Start a read-only HTTP server over the store.

ENDPOINTS:

  GET /api/metrics                          Stored metrics with day counts
  GET /api/metrics/{metric}/series          Aggregated series (?start=&end=&bucket=)
  GET /api/metrics/{metric}/days/{day}      One day table
  GET /api/coverage                         Coverage and gaps per metric
  GET /api/plan                             The update plan (never fetches)
  GET /api/summary                          Health summary (?start=&end=)

EXAMPLES:

  fitlog serve
  fitlog serve --addr :9000 --cors-origin http://localhost:5173`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plannerOpts, err := cfg.PlannerOptions()
		if err != nil {
			return err
		}

		handler := api.NewHandler(store, plannerOpts, logger)
		router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: serveCORSOrigins})

		server := &http.Server{
			Addr:         serveAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		ctx, cancel := signalContext()
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			color.Green("✓ Serving on http://%s/api", serveAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().StringSliceVar(&serveCORSOrigins, "cors-origin", nil, "allowed CORS origin (repeatable)")
	rootCmd.AddCommand(serveCmd)
}
