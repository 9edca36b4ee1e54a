package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewReprocessCommand creates the reprocess command.
func NewReprocessCommand() *cobra.Command {
	var (
		viaQueue bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "reprocess <meeting-id>",
		Short: "Re-run AI analysis over a meeting's stored transcript",
		Long: `Re-run summarization, action item extraction, and sentiment analysis
over the transcript already stored for a meeting. Existing action items are
replaced by the new extraction. Transcription is never re-run.

Useful after model or prompt updates, or when an earlier run failed partway.

Examples:
  meetverse-processing reprocess mtg-123

  # Enqueue for a worker instead of running inline
  meetverse-processing reprocess mtg-123 --queue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, viaQueue)
			if err != nil {
				return err
			}
			defer a.close()

			if viaQueue {
				ack := a.pipeline.QueueMeetingForReprocessing(ctx, args[0])
				if !ack.Queued {
					return fmt.Errorf("failed to queue meeting %s", args[0])
				}
				if output == "text" {
					cmd.Printf("queued %s as %s\n", args[0], ack.JobID)
					return nil
				}
				return printJSON(ack)
			}

			result := a.pipeline.ReprocessMeeting(ctx, args[0])
			if err := printResult(cmd, result, output); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("reprocessing failed for meeting %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&viaQueue, "queue", false, "enqueue the re-run instead of executing inline")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or text")
	return cmd
}
