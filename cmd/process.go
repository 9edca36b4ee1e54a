package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mejba13/meetverse-ai-sub000/pkg/processing"
)

// NewProcessCommand creates the process command for one-shot pipeline runs.
func NewProcessCommand() *cobra.Command {
	var (
		audioURL          string
		skipTranscription bool
		skipAnalysis      bool
		notifyFlag        bool
		viaQueue          bool
		output            string
	)

	cmd := &cobra.Command{
		Use:   "process <meeting-id>",
		Short: "Run the processing pipeline for one meeting",
		Long: `Run the post-meeting processing pipeline for a single meeting and
print the result as JSON.

Examples:
  # Process using the stored transcript
  meetverse-processing process mtg-123

  # Transcribe a recording first
  meetverse-processing process mtg-123 --audio-url https://cdn.example.com/rec.mp4

  # Enqueue instead of running inline
  meetverse-processing process mtg-123 --queue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, viaQueue)
			if err != nil {
				return err
			}
			defer a.close()

			opts := processing.Options{
				SkipTranscription:  skipTranscription,
				SkipAnalysis:       skipAnalysis,
				AudioURL:           audioURL,
				NotifyParticipants: notifyFlag,
			}

			if viaQueue {
				ack := a.pipeline.QueueMeetingForProcessing(ctx, args[0], opts)
				if !ack.Queued {
					return fmt.Errorf("failed to queue meeting %s", args[0])
				}
				if output == "text" {
					cmd.Printf("queued %s as %s\n", args[0], ack.JobID)
					return nil
				}
				return printJSON(ack)
			}

			result := a.pipeline.ProcessMeeting(ctx, args[0], opts)
			if err := printResult(cmd, result, output); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("processing failed for meeting %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&audioURL, "audio-url", "", "recording URL to transcribe when no transcript exists")
	cmd.Flags().BoolVar(&skipTranscription, "skip-transcription", false, "never call the transcription provider")
	cmd.Flags().BoolVar(&skipAnalysis, "skip-analysis", false, "never call the analysis provider")
	cmd.Flags().BoolVar(&notifyFlag, "notify", false, "notify participants when a summary is produced")
	cmd.Flags().BoolVar(&viaQueue, "queue", false, "enqueue the run instead of executing inline")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or text")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult renders a pipeline result in the requested format.
func printResult(cmd *cobra.Command, result *processing.Result, output string) error {
	if output != "text" {
		return printJSON(result)
	}

	state := "succeeded"
	if !result.Success {
		state = "failed"
	}
	cmd.Printf("meeting %s: %s (%d segments, %d action items, %dms)\n",
		result.MeetingID, state, result.SegmentsCreated, result.ActionItemsCreated,
		result.ProcessingTime.Milliseconds())
	if result.Summary != nil {
		cmd.Printf("summary: %s\n", result.Summary.Title)
	}
	if len(result.Errors) > 0 {
		cmd.Printf("notices:\n  %s\n", strings.Join(result.Errors, "\n  "))
	}
	return nil
}
