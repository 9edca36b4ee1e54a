package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/workers"
)

// NewWorkerCommand creates the worker command: queue workers without the API.
func NewWorkerCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run queue workers without the API server",
		Long: `Run only the queue worker pool. Useful for scaling processing
throughput independently of the API.

Examples:
  # Run with the configured worker count
  meetverse-processing worker

  # Run with 8 workers
  meetverse-processing worker --workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(count)
		},
	}

	cmd.Flags().IntVar(&count, "workers", 0, "number of workers (0 uses the configured count)")
	return cmd
}

func runWorker(count int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if count <= 0 {
		count = a.cfg.Processing.WorkerCount
	}

	pool := workers.NewPool(workers.DefaultConfig(count), a.queue, queueHandler(a.pipeline), a.logger,
		workers.WithDepthObserver(a.metrics.SetQueueDepth))
	pool.Start()

	<-ctx.Done()
	a.logger.Info("Shutting down workers")
	pool.Stop()

	stats := pool.Stats()
	a.logger.Info("Worker pool drained",
		logging.F("processed", stats.Processed),
		logging.F("failed", stats.Failed),
	)
	return nil
}
