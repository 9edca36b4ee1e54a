package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mejba13/meetverse-ai-sub000/pkg/api"
	"github.com/mejba13/meetverse-ai-sub000/pkg/buildinfo"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/workers"
)

// NewServeCommand creates the serve command: API server plus queue workers.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the processing API server and queue workers",
		Long: `Run the full processing service: the HTTP API plus a pool of workers
draining the Redis processing queue.

The API exposes:
  POST /api/meetings/{id}/process            run the pipeline synchronously
  POST /api/meetings/{id}/queue              enqueue a pipeline run
  POST /api/meetings/{id}/reprocess          re-run analysis on the stored transcript
  GET  /api/meetings/{id}/processing-status  derived processing status
  GET  /healthz, /metrics, /version

Examples:
  # Run with defaults (listens on :8084)
  meetverse-processing serve

  # Run with an explicit config file
  meetverse-processing serve --config /etc/meetverse/processing.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	pool := workers.NewPool(workers.DefaultConfig(a.cfg.Processing.WorkerCount), a.queue, queueHandler(a.pipeline), a.logger,
		workers.WithDepthObserver(a.metrics.SetQueueDepth))
	pool.Start()
	defer pool.Stop()

	router := api.NewRouter(a.pipeline, a.pool, a.redis, a.registry, a.logger)
	server := &http.Server{
		Addr:    a.cfg.HTTP.Address,
		Handler: router.SetupRoutes(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("API server listening",
			logging.F("address", a.cfg.HTTP.Address),
			logging.F("version", buildinfo.String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
