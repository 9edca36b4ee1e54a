package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mejba13/meetverse-ai-sub000/pkg/db"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	var (
		dir    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Long: `Apply pending .sql migrations from the migrations directory. Applied
versions are tracked in a schema_migrations table and never re-run.

Examples:
  # Apply all pending migrations
  meetverse-processing migrate

  # Show pending migrations without applying them
  meetverse-processing migrate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newAppLogger(cfg)

			if dir == "" {
				dir = cfg.MigrationsDir
			}

			pool, err := db.ConnectWithRetry(ctx, &cfg.Database, 5, 2*time.Second)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			if dryRun {
				pending, err := db.GetPendingMigrations(ctx, pool, dir)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					cmd.Println("No pending migrations")
					return nil
				}
				for _, m := range pending {
					cmd.Printf("pending: %s (%s)\n", m.Version, m.Name)
				}
				return nil
			}

			result, err := db.RunMigrations(ctx, pool, dir)
			if err != nil {
				return err
			}

			for _, v := range result.Applied {
				cmd.Printf("applied: %s\n", v)
			}
			cmd.Printf("%d applied, %d already up to date\n", len(result.Applied), len(result.Skipped))
			if len(result.Errors) > 0 {
				return fmt.Errorf("migration failed: %v", result.Errors[0])
			}

			logger.Info("Migrations complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to the configured path)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	return cmd
}
