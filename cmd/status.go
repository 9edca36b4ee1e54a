package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status <meeting-id>",
		Short: "Show the derived processing status of a meeting",
		Long: `Show the processing status of a meeting as JSON: the derived status
plus whether a transcript and summary exist and how many action items are
stored.

Examples:
  meetverse-processing status mtg-123`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.pipeline.GetProcessingStatus(ctx, args[0])
			if err != nil {
				return err
			}
			if output == "text" {
				cmd.Printf("status: %s\ntranscript: %t\nsummary: %t\naction items: %d\n",
					report.Status, report.HasTranscript, report.HasSummary, report.ActionItemCount)
				return nil
			}
			return printJSON(report)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or text")
	return cmd
}
