// Package cmd provides CLI commands for the meetverse-processing service.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "meetverse-processing",
		Short: "Post-meeting processing service for Meetverse",
		Long: `meetverse-processing turns ended meetings into transcripts, AI summaries,
and action items.

It can run as a long-lived service (API server plus queue workers) or as a
one-shot tool for operating on a single meeting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $MEETVERSE_CONFIG_DIR/config.yaml)")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewWorkerCommand())
	rootCmd.AddCommand(NewProcessCommand())
	rootCmd.AddCommand(NewReprocessCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
