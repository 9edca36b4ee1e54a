package processing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mejba13/meetverse-ai-sub000/pkg/ai"
	apperrors "github.com/mejba13/meetverse-ai-sub000/pkg/errors"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
	"github.com/mejba13/meetverse-ai-sub000/pkg/metrics"
	"github.com/mejba13/meetverse-ai-sub000/pkg/notify"
	"github.com/mejba13/meetverse-ai-sub000/pkg/queue"
)

// Pipeline orchestrates post-meeting processing. Collaborators are injected
// at construction; a nil transcriber or analyzer degrades the corresponding
// stage to a no-op with a recorded notice.
type Pipeline struct {
	store       Store
	transcriber Transcriber
	analyzer    Analyzer
	notifier    notify.Notifier
	enqueuer    Enqueuer
	logger      logging.Logger
	metrics     *metrics.PipelineMetrics
	tracer      trace.Tracer
	locks       *meetingLocks
	now         func() time.Time
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithTranscriber wires the speech-to-text collaborator.
func WithTranscriber(t Transcriber) PipelineOption {
	return func(p *Pipeline) { p.transcriber = t }
}

// WithAnalyzer wires the LLM collaborator.
func WithAnalyzer(a Analyzer) PipelineOption {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithNotifier wires the participant notifier.
func WithNotifier(n notify.Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

// WithEnqueuer wires the durable queue used by QueueMeetingForProcessing.
// Without one, queued runs fall back to an in-process goroutine.
func WithEnqueuer(e Enqueuer) PipelineOption {
	return func(p *Pipeline) { p.enqueuer = e }
}

// WithMetrics wires pipeline instrumentation.
func WithMetrics(m *metrics.PipelineMetrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline with the given store and options.
func NewPipeline(store Store, logger logging.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:  store,
		logger: logger.With(logging.F("component", "processing_pipeline")),
		tracer: otel.Tracer("meetverse/processing"),
		locks:  newMeetingLocks(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessMeeting runs the full pipeline for one meeting. It never returns an
// error and never panics outward; every failure is reported through the
// result. Runs against the same meeting id are serialized.
func (p *Pipeline) ProcessMeeting(ctx context.Context, meetingID string, opts Options) (result *Result) {
	start := p.now()
	result = &Result{MeetingID: meetingID}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Pipeline panic recovered",
				logging.F("meeting_id", meetingID),
				logging.F("panic", fmt.Sprint(r)),
			)
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("internal error: %v", r))
		}
		result.ProcessingTime = p.now().Sub(start)
		p.metrics.RecordRun(result.Success, result.ProcessingTime.Seconds(), result.SegmentsCreated, result.ActionItemsCreated)
	}()

	ctx, span := p.tracer.Start(ctx, "processing.ProcessMeeting",
		trace.WithAttributes(attribute.String("meeting.id", meetingID)))
	defer span.End()

	unlock := p.locks.Lock(meetingID)
	defer unlock()

	collector := &errorCollector{}

	meeting, err := p.store.GetMeeting(ctx, meetingID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			result.Errors = []string{"Meeting not found"}
		} else {
			result.Errors = []string{fmt.Sprintf("Failed to load meeting: %v", err)}
		}
		return result
	}

	if err := p.store.SetProcessingState(ctx, meetingID, meetings.ProcessingRunning); err != nil {
		p.logger.Warn("Failed to mark processing as running",
			logging.F("meeting_id", meetingID), logging.Err(err))
	}

	participants := participantNames(meeting)

	resolution := p.resolveTranscript(ctx, meetingID, opts)
	collector.merge(resolution.Errors, resolution.Failed)
	result.SegmentsCreated = resolution.SegmentsCreated

	analysis := p.invokeAnalysis(ctx, resolution.Text, meeting.Title, participants, opts)
	collector.merge(analysis.Errors, analysis.Failed)

	if analysis.Summary != nil {
		stored := buildStoredSummary(analysis, len(participants))
		items := p.buildActionItems(meetingID, meeting, analysis.ActionItems)

		if err := p.store.SaveAnalysis(ctx, meetingID, stored, items, opts.replaceActionItems); err != nil {
			collector.fail(fmt.Sprintf("Failed to persist analysis: %v", err))
		} else {
			result.Summary = stored
			result.ActionItemsCreated = len(items)
		}
	}

	// The conferencing session has already concluded by the time this runs,
	// so the meeting record is ended regardless of pipeline outcome.
	endedAt := p.now()
	if err := p.store.UpdateMeetingStatus(ctx, meetingID, meetings.StatusEnded, &endedAt); err != nil {
		collector.fail(fmt.Sprintf("Failed to update meeting status: %v", err))
	}

	if opts.NotifyParticipants && result.Summary != nil && p.notifier != nil {
		p.sendNotification(ctx, meeting, result.Summary)
	}

	result.Errors = collector.entries
	result.Success = !collector.failed

	finalState := meetings.ProcessingSucceeded
	if !result.Success {
		finalState = meetings.ProcessingFailed
	}
	if err := p.store.SetProcessingState(ctx, meetingID, finalState); err != nil {
		p.logger.Warn("Failed to record final processing state",
			logging.F("meeting_id", meetingID), logging.Err(err))
	}

	span.SetAttributes(
		attribute.Bool("processing.success", result.Success),
		attribute.Int("processing.action_items", result.ActionItemsCreated),
	)

	p.logger.Info("Pipeline run finished",
		logging.F("meeting_id", meetingID),
		logging.F("success", result.Success),
		logging.F("segments_created", result.SegmentsCreated),
		logging.F("action_items_created", result.ActionItemsCreated),
		logging.F("errors", len(result.Errors)),
	)

	return result
}

// ReprocessMeeting re-runs analysis for a meeting that already has a
// transcript. Prior action items are replaced wholesale by the new
// extraction; transcription is bypassed entirely.
func (p *Pipeline) ReprocessMeeting(ctx context.Context, meetingID string) *Result {
	segments, err := p.store.ListTranscriptSegments(ctx, meetingID)
	if err != nil {
		return &Result{
			MeetingID: meetingID,
			Errors:    []string{fmt.Sprintf("Failed to load transcript: %v", err)},
		}
	}
	if len(segments) == 0 {
		return &Result{
			MeetingID: meetingID,
			Errors:    []string{"No transcript available for reprocessing"},
		}
	}

	return p.ProcessMeeting(ctx, meetingID, Options{
		SkipTranscription:  true,
		ExistingTranscript: formatSegments(segments),
		replaceActionItems: true,
	})
}

// QueueMeetingForProcessing schedules a pipeline run without blocking the
// caller. With a durable queue wired in, delivery is at-least-once with
// retry; without one, the run is fired on a detached goroutine.
func (p *Pipeline) QueueMeetingForProcessing(ctx context.Context, meetingID string, opts Options) *Ack {
	jobID := fmt.Sprintf("job_%s_%d", meetingID, p.now().UnixNano())

	if err := p.store.SetProcessingState(ctx, meetingID, meetings.ProcessingPending); err != nil {
		p.logger.Warn("Failed to mark processing as pending",
			logging.F("meeting_id", meetingID), logging.Err(err))
	}

	if p.enqueuer != nil {
		msg := &queue.ProcessingMessage{
			MeetingID:          meetingID,
			JobID:              jobID,
			SkipTranscription:  opts.SkipTranscription,
			SkipAnalysis:       opts.SkipAnalysis,
			AudioURL:           opts.AudioURL,
			ExistingTranscript: opts.ExistingTranscript,
			NotifyParticipants: opts.NotifyParticipants,
			Priority:           queue.PriorityNormal,
			QueuedAt:           p.now(),
		}
		if err := p.enqueuer.Enqueue(ctx, msg); err != nil {
			p.logger.Error("Failed to enqueue processing job",
				logging.F("meeting_id", meetingID), logging.Err(err))
			return &Ack{Queued: false}
		}
		return &Ack{Queued: true, JobID: jobID}
	}

	go func() {
		// Detached from the request context; the caller already has its ack.
		result := p.ProcessMeeting(context.Background(), meetingID, opts)
		if !result.Success {
			p.logger.Error("Background processing failed",
				logging.F("meeting_id", meetingID),
				logging.F("job_id", jobID),
				logging.F("errors", strings.Join(result.Errors, "; ")),
			)
		}
	}()

	return &Ack{Queued: true, JobID: jobID}
}

// QueueMeetingForReprocessing schedules an analysis-only re-run over the
// stored transcript. Reprocess runs are user initiated, so they queue at
// high priority.
func (p *Pipeline) QueueMeetingForReprocessing(ctx context.Context, meetingID string) *Ack {
	jobID := fmt.Sprintf("job_%s_%d", meetingID, p.now().UnixNano())

	if err := p.store.SetProcessingState(ctx, meetingID, meetings.ProcessingPending); err != nil {
		p.logger.Warn("Failed to mark processing as pending",
			logging.F("meeting_id", meetingID), logging.Err(err))
	}

	if p.enqueuer != nil {
		msg := &queue.ProcessingMessage{
			MeetingID: meetingID,
			JobID:     jobID,
			Reprocess: true,
			Priority:  queue.PriorityHigh,
			QueuedAt:  p.now(),
		}
		if err := p.enqueuer.Enqueue(ctx, msg); err != nil {
			p.logger.Error("Failed to enqueue reprocessing job",
				logging.F("meeting_id", meetingID), logging.Err(err))
			return &Ack{Queued: false}
		}
		return &Ack{Queued: true, JobID: jobID}
	}

	go func() {
		result := p.ReprocessMeeting(context.Background(), meetingID)
		if !result.Success {
			p.logger.Error("Background reprocessing failed",
				logging.F("meeting_id", meetingID),
				logging.F("job_id", jobID),
				logging.F("errors", strings.Join(result.Errors, "; ")),
			)
		}
	}()

	return &Ack{Queued: true, JobID: jobID}
}

func (p *Pipeline) sendNotification(ctx context.Context, meeting *meetings.Meeting, summary *meetings.StoredSummary) {
	recipients := make([]string, 0, len(meeting.Participants)+1)
	if meeting.HostEmail != "" {
		recipients = append(recipients, meeting.HostEmail)
	}
	for _, participant := range meeting.Participants {
		if participant.Email != "" {
			recipients = append(recipients, participant.Email)
		}
	}

	// Best effort: a notification failure never affects the run outcome.
	if err := p.notifier.NotifyParticipants(ctx, notify.Notification{
		MeetingID:    meeting.ID,
		MeetingTitle: meeting.Title,
		Recipients:   recipients,
		SummaryTitle: summary.Title,
		Overview:     summary.Overview,
	}); err != nil {
		p.logger.Warn("Participant notification failed",
			logging.F("meeting_id", meeting.ID), logging.Err(err))
	}
}

// participantNames builds the display name list: host first, then each
// participant, preferring linked user name, then email, then a generic label.
func participantNames(m *meetings.Meeting) []string {
	host := meetings.Participant{Name: m.HostName, Email: m.HostEmail}
	names := []string{host.DisplayName()}
	for _, p := range m.Participants {
		names = append(names, p.DisplayName())
	}
	return names
}

// buildStoredSummary flattens the summary and sentiment results into the
// single persisted record.
func buildStoredSummary(a *analysisOutcome, participantCount int) *meetings.StoredSummary {
	s := a.Summary
	return &meetings.StoredSummary{
		Title:            s.Title,
		Overview:         s.Overview,
		KeyPoints:        s.KeyPoints,
		Decisions:        s.Decisions,
		Topics:           s.Topics,
		NextSteps:        s.NextSteps,
		Sentiment:        a.Sentiment,
		EngagementScore:  a.EngagementScore,
		Duration:         s.Duration,
		ParticipantCount: participantCount,
	}
}

// buildActionItems converts extracted items to persistable rows. The
// assignee defaults to the meeting host unless the extraction names a
// participant with a linked user account.
func (p *Pipeline) buildActionItems(meetingID string, meeting *meetings.Meeting, extracted []ai.ExtractedActionItem) []meetings.ActionItem {
	items := make([]meetings.ActionItem, 0, len(extracted))
	for _, e := range extracted {
		item := meetings.ActionItem{
			MeetingID:    meetingID,
			Title:        e.Title,
			Description:  e.Description,
			AssigneeID:   resolveAssignee(meeting, e.Assignee),
			DueDate:      parseDueDate(e.DueDate),
			Priority:     normalizePriority(e.Priority),
			Status:       meetings.ItemPending,
			AIGenerated:  true,
			AIConfidence: e.Confidence,
		}
		items = append(items, item)
	}
	return items
}

func resolveAssignee(meeting *meetings.Meeting, name string) *string {
	if name != "" {
		for _, p := range meeting.Participants {
			if p.UserID != nil && strings.EqualFold(p.DisplayName(), name) {
				return p.UserID
			}
		}
	}
	hostID := meeting.HostID
	return &hostID
}

func parseDueDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}

func normalizePriority(value string) meetings.ActionItemPriority {
	p := meetings.ActionItemPriority(strings.ToUpper(strings.TrimSpace(value)))
	if meetings.ValidPriority(p) {
		return p
	}
	return meetings.PriorityMedium
}
