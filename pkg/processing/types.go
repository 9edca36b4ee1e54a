// Package processing implements the post-meeting processing pipeline: it
// resolves a transcript, runs LLM analysis, persists results, and exposes
// queueing, reprocessing, and status derivation on top.
package processing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mejba13/meetverse-ai-sub000/pkg/ai"
	"github.com/mejba13/meetverse-ai-sub000/pkg/asr"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
	"github.com/mejba13/meetverse-ai-sub000/pkg/queue"
)

// Store is the persistence surface the pipeline depends on.
type Store interface {
	GetMeeting(ctx context.Context, id string) (*meetings.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id string, status meetings.MeetingStatus, actualEnd *time.Time) error
	SetProcessingState(ctx context.Context, id string, state meetings.ProcessingState) error
	ListTranscriptSegments(ctx context.Context, meetingID string) ([]meetings.TranscriptSegment, error)
	CreateTranscriptSegments(ctx context.Context, meetingID string, segments []meetings.TranscriptSegment) error
	SaveAnalysis(ctx context.Context, meetingID string, summary *meetings.StoredSummary, items []meetings.ActionItem, replaceItems bool) error
	StatusSnapshot(ctx context.Context, meetingID string) (*meetings.StatusSnapshot, error)
}

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string, cfg asr.TranscriptionConfig) (*asr.Result, error)
}

// Analyzer is the LLM collaborator with its three independent capabilities.
type Analyzer interface {
	Summarize(ctx context.Context, transcript, title string, participants []string) (*ai.MeetingSummary, error)
	ExtractActionItems(ctx context.Context, transcript string, participants []string) ([]ai.ExtractedActionItem, error)
	AnalyzeSentiment(ctx context.Context, transcript string) (*ai.SentimentResult, error)
}

// Enqueuer schedules a processing message for asynchronous execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *queue.ProcessingMessage) error
}

// Options control one pipeline run. The zero value runs the full pipeline
// without notification.
type Options struct {
	SkipTranscription  bool
	SkipAnalysis       bool
	AudioURL           string
	ExistingTranscript string
	NotifyParticipants bool

	// replaceActionItems makes result persistence delete existing action
	// items in the same transaction as the inserts. Set by reprocessing.
	replaceActionItems bool
}

// Result is the outcome of one pipeline run. Errors holds every non-fatal
// notice collected along the way, including "skipped" notices for stages
// that degraded to no-ops; Success reflects only real failures.
type Result struct {
	Success            bool                    `json:"success"`
	MeetingID          string                  `json:"meetingId"`
	SegmentsCreated    int                     `json:"segmentsCreated"`
	ActionItemsCreated int                     `json:"actionItemsCreated"`
	Summary            *meetings.StoredSummary `json:"summary,omitempty"`
	Errors             []string                `json:"errors"`
	ProcessingTime     time.Duration           `json:"-"`
}

// MarshalJSON emits the processing time in whole milliseconds alongside the
// other result fields.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		ProcessingTimeMs int64 `json:"processingTimeMs"`
	}{plain(r), r.ProcessingTime.Milliseconds()})
}

// Ack acknowledges a queued processing request.
type Ack struct {
	Queued bool   `json:"queued"`
	JobID  string `json:"jobId,omitempty"`
}

// Status values reported by GetProcessingStatus.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StatusReport is the derived processing status of a meeting.
type StatusReport struct {
	Status          string `json:"status"`
	HasTranscript   bool   `json:"hasTranscript"`
	HasSummary      bool   `json:"hasSummary"`
	ActionItemCount int    `json:"actionItemCount"`
}

// errorCollector accumulates run notices. Merged skip notices land in the
// result's error list but do not fail the run; failures do.
type errorCollector struct {
	entries []string
	failed  bool
}

func (c *errorCollector) fail(msg string) {
	c.entries = append(c.entries, msg)
	c.failed = true
}

func (c *errorCollector) merge(other []string, failed bool) {
	c.entries = append(c.entries, other...)
	if failed {
		c.failed = true
	}
}
