package processing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mejba13/meetverse-ai-sub000/pkg/ai"
	"github.com/mejba13/meetverse-ai-sub000/pkg/asr"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
	"github.com/mejba13/meetverse-ai-sub000/pkg/queue"
)

func intPtr(v int) *int { return &v }

func seedMeeting(store *fakeStore, id string) *meetings.Meeting {
	userID := "u-grace"
	m := &meetings.Meeting{
		ID:        id,
		Title:     "Weekly Sync",
		Status:    meetings.StatusLive,
		HostID:    "u-host",
		HostName:  "Ada Lovelace",
		HostEmail: "ada@example.com",
		Participants: []meetings.Participant{
			{UserID: &userID, Name: "Grace Hopper", Email: "grace@example.com"},
			{Email: "guest@example.com"},
		},
	}
	store.addMeeting(m)
	return m
}

func workingAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		summary: &ai.MeetingSummary{
			Title:     "Weekly Sync Summary",
			Overview:  "The team discussed the release.",
			KeyPoints: []string{"release on track"},
			Decisions: []string{"ship Friday"},
			Topics:    []string{"release"},
			NextSteps: []string{"tag the build"},
		},
		items: []ai.ExtractedActionItem{
			{Title: "Tag the build", Description: "Tag v2.1 before Friday.", Assignee: "Grace Hopper", DueDate: "2026-09-04", Priority: "HIGH"},
			{Title: "Write release notes", Description: "Summarize the changes.", Priority: "bogus"},
		},
		sentiment: &ai.SentimentResult{Sentiment: "positive", EngagementScore: 82},
	}
}

func TestProcessMeetingNotFound(t *testing.T) {
	p := NewPipeline(newFakeStore(), logging.NewNopLogger())

	result := p.ProcessMeeting(context.Background(), "missing", Options{})

	assert.False(t, result.Success)
	assert.Equal(t, []string{"Meeting not found"}, result.Errors)
}

func TestProcessMeetingNoTranscriptNoAudio(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	analyzer := workingAnalyzer()
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))

	result := p.ProcessMeeting(context.Background(), "m1", Options{})

	// Skipped stages are recorded but do not fail the run.
	assert.True(t, result.Success)
	assert.Contains(t, result.Errors, "transcription skipped: no audio source")
	assert.Contains(t, result.Errors, "analysis skipped: no transcript available")
	assert.Nil(t, result.Summary)
	assert.Zero(t, result.ActionItemsCreated)
	assert.Zero(t, analyzer.totalCalls())
	assert.Equal(t, meetings.StatusEnded, store.meetingStatus("m1"))
	assert.Equal(t, meetings.ProcessingSucceeded, store.processingState("m1"))
}

func TestProcessMeetingEmptyExistingTranscriptIsNoTranscript(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	analyzer := workingAnalyzer()
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))

	result := p.ProcessMeeting(context.Background(), "m1", Options{ExistingTranscript: ""})

	assert.True(t, result.Success)
	assert.Contains(t, result.Errors, "analysis skipped: no transcript available")
	assert.Zero(t, analyzer.totalCalls())
	assert.Nil(t, result.Summary)
}

func TestProcessMeetingFullRun(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	store.segments["m1"] = []meetings.TranscriptSegment{
		{MeetingID: "m1", Speaker: "Ada Lovelace", Content: "Let's get started.", StartTime: 0, EndTime: 2400},
		{MeetingID: "m1", Speaker: "Grace Hopper", Content: "Release is on track.", StartTime: 65000, EndTime: 70100},
	}
	analyzer := workingAnalyzer()
	notifier := &fakeNotifier{}
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer), WithNotifier(notifier))

	result := p.ProcessMeeting(context.Background(), "m1", Options{NotifyParticipants: true})

	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.ActionItemsCreated)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "positive", result.Summary.Sentiment)
	assert.Equal(t, 82, result.Summary.EngagementScore)
	assert.Equal(t, 3, result.Summary.ParticipantCount)

	stored := store.storedSummary("m1")
	require.NotNil(t, stored)
	assert.Equal(t, "The team discussed the release.", stored.Overview)
	assert.Equal(t, "positive", stored.Sentiment)

	items := store.actionItems("m1")
	require.Len(t, items, 2)
	for _, item := range items {
		assert.True(t, item.AIGenerated)
		assert.Equal(t, meetings.ItemPending, item.Status)
	}
	// Named assignee resolves to the matching participant's user id.
	assert.Equal(t, "u-grace", *items[0].AssigneeID)
	require.NotNil(t, items[0].DueDate)
	assert.Equal(t, "2026-09-04", items[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, meetings.PriorityHigh, items[0].Priority)
	// Unnamed assignee defaults to the host; invalid priority becomes MEDIUM.
	assert.Equal(t, "u-host", *items[1].AssigneeID)
	assert.Equal(t, meetings.PriorityMedium, items[1].Priority)
	assert.Nil(t, items[1].DueDate)

	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, meetings.StatusEnded, store.meetingStatus("m1"))
	assert.Equal(t, meetings.ProcessingSucceeded, store.processingState("m1"))
}

func TestProcessMeetingAnalysisCallsRunConcurrently(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	analyzer := workingAnalyzer()
	analyzer.delay = 100 * time.Millisecond
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))

	start := time.Now()
	result := p.ProcessMeeting(context.Background(), "m1", Options{
		ExistingTranscript: "[00:00] Ada: Hello.",
	})
	elapsed := time.Since(start)

	require.True(t, result.Success, "errors: %v", result.Errors)
	// Three serialized 100ms calls would take at least 300ms.
	assert.Less(t, elapsed, 250*time.Millisecond)
	assert.Equal(t, 1, analyzer.summarizeCalls)
	assert.Equal(t, 1, analyzer.extractCalls)
	assert.Equal(t, 1, analyzer.sentimentCalls)
}

func TestProcessMeetingSummaryFailure(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m2")
	analyzer := workingAnalyzer()
	analyzer.summaryErr = fmt.Errorf("model overloaded")
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))

	transcript := strings.Repeat("[00:00] Ada: Discussing the roadmap. ", 14)
	result := p.ProcessMeeting(context.Background(), "m2", Options{ExistingTranscript: transcript})

	assert.False(t, result.Success)
	assert.Nil(t, result.Summary)

	found := false
	for _, e := range result.Errors {
		if strings.HasPrefix(e, "AI analysis failed:") {
			found = true
		}
	}
	assert.True(t, found, "expected an error prefixed 'AI analysis failed:', got %v", result.Errors)

	// The meeting record still ends regardless of analysis outcome.
	assert.Equal(t, meetings.StatusEnded, store.meetingStatus("m2"))
	assert.Equal(t, meetings.ProcessingFailed, store.processingState("m2"))
	assert.Nil(t, store.storedSummary("m2"))
}

func TestProcessMeetingSentimentFailureDefaultsNeutral(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	analyzer := workingAnalyzer()
	analyzer.sentimentErr = fmt.Errorf("timeout")
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))

	result := p.ProcessMeeting(context.Background(), "m1", Options{
		ExistingTranscript: "[00:00] Ada: Hello.",
	})

	require.True(t, result.Success, "errors: %v", result.Errors)
	require.NotNil(t, result.Summary)
	assert.Equal(t, "neutral", result.Summary.Sentiment)
	assert.Equal(t, 50, result.Summary.EngagementScore)
}

func TestProcessMeetingTranscribesAudio(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	transcriber := &fakeTranscriber{
		result: &asr.Result{
			Segments: []asr.Segment{
				{Text: "Hello everyone.", Start: 0, End: 2.4, Speaker: intPtr(0), Confidence: 0.99},
				{Text: "Shall we begin?", Start: 15.5, End: 18.0, Speaker: intPtr(0), Confidence: 0.98},
				{Text: "Yes, let's go.", Start: 30.9, End: 42.0, Speaker: intPtr(1), Confidence: 0.97},
			},
			Duration: 42,
			Language: "de",
		},
	}
	p := NewPipeline(store, logging.NewNopLogger(), WithTranscriber(transcriber))

	result := p.ProcessMeeting(context.Background(), "m1", Options{AudioURL: "https://x/audio.wav"})

	assert.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, 3, result.SegmentsCreated)
	assert.Equal(t, 1, transcriber.calls)

	persisted := store.segments["m1"]
	require.Len(t, persisted, 3)
	assert.Equal(t, int64(0), persisted[0].StartTime)
	assert.Equal(t, int64(15500), persisted[1].StartTime)
	assert.Equal(t, int64(30900), persisted[2].StartTime)
	for i := 1; i < len(persisted); i++ {
		assert.Greater(t, persisted[i].StartTime, persisted[i-1].StartTime)
	}
	assert.Equal(t, "Speaker 0", persisted[0].Speaker)
	assert.Equal(t, "Speaker 1", persisted[2].Speaker)
	for _, s := range persisted {
		assert.Equal(t, "de", s.Language)
	}
}

func TestProcessMeetingTranscriptionFailureFailsRun(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	transcriber := &fakeTranscriber{err: fmt.Errorf("audio fetch failed")}
	analyzer := workingAnalyzer()
	p := NewPipeline(store, logging.NewNopLogger(), WithTranscriber(transcriber), WithAnalyzer(analyzer))

	result := p.ProcessMeeting(context.Background(), "m1", Options{AudioURL: "https://x/audio.wav"})

	// A provider failure is not a skip: the run completes (meeting still
	// ends) but reports failure.
	assert.False(t, result.Success, "errors: %v", result.Errors)
	assert.Contains(t, result.Errors, "Transcription failed: audio fetch failed")
	assert.Contains(t, result.Errors, "analysis skipped: no transcript available")
	assert.Zero(t, analyzer.totalCalls())
	assert.Equal(t, meetings.StatusEnded, store.meetingStatus("m1"))
	assert.Equal(t, meetings.ProcessingFailed, store.processingState("m1"))
}

func TestProcessMeetingPersistenceFailureReported(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	store.failStatusUpdate = true
	p := NewPipeline(store, logging.NewNopLogger())

	result := p.ProcessMeeting(context.Background(), "m1", Options{})

	assert.False(t, result.Success)
	found := false
	for _, e := range result.Errors {
		if strings.HasPrefix(e, "Failed to update meeting status:") {
			found = true
		}
	}
	assert.True(t, found, "got %v", result.Errors)
}

func TestProcessMeetingRecoverFromPanic(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	store.panicOnUpdate = true
	p := NewPipeline(store, logging.NewNopLogger())

	result := p.ProcessMeeting(context.Background(), "m1", Options{})

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "internal error:")
}

func TestReprocessRequiresTranscript(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(workingAnalyzer()))

	result := p.ReprocessMeeting(context.Background(), "m1")

	assert.False(t, result.Success)
	assert.Equal(t, []string{"No transcript available for reprocessing"}, result.Errors)
	// No partial work: nothing was deleted or written.
	assert.Zero(t, store.actionItemCount("m1"))
	assert.Equal(t, meetings.StatusLive, store.meetingStatus("m1"))
}

func TestReprocessReplacesAllActionItems(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	store.segments["m1"] = []meetings.TranscriptSegment{
		{MeetingID: "m1", Speaker: "Ada", Content: "Hello.", StartTime: 0, EndTime: 1000},
	}
	// Three pre-existing items, one of them manually created.
	store.items["m1"] = []meetings.ActionItem{
		{MeetingID: "m1", Title: "old ai 1", AIGenerated: true},
		{MeetingID: "m1", Title: "old ai 2", AIGenerated: true},
		{MeetingID: "m1", Title: "manual", AIGenerated: false},
	}
	analyzer := workingAnalyzer() // extracts 2 items
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))

	result := p.ReprocessMeeting(context.Background(), "m1")

	require.True(t, result.Success, "errors: %v", result.Errors)
	// Count equals the new extraction's length, not the old set's.
	assert.Equal(t, 2, store.actionItemCount("m1"))
	for _, item := range store.actionItems("m1") {
		assert.True(t, item.AIGenerated)
	}
}

func TestProcessTwiceDuplicatesButReprocessDoesNot(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	store.segments["m1"] = []meetings.TranscriptSegment{
		{MeetingID: "m1", Speaker: "Ada", Content: "Hello.", StartTime: 0, EndTime: 1000},
	}
	analyzer := workingAnalyzer() // extracts 2 items
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))
	opts := Options{SkipTranscription: true, ExistingTranscript: "[00:00] Ada: Hello."}

	// Plain processing appends: two runs double the count.
	require.True(t, p.ProcessMeeting(context.Background(), "m1", opts).Success)
	require.True(t, p.ProcessMeeting(context.Background(), "m1", opts).Success)
	assert.Equal(t, 4, store.actionItemCount("m1"))

	// Reprocessing replaces: repeated runs converge on the extraction size.
	require.True(t, p.ReprocessMeeting(context.Background(), "m1").Success)
	assert.Equal(t, 2, store.actionItemCount("m1"))
	require.True(t, p.ReprocessMeeting(context.Background(), "m1").Success)
	assert.Equal(t, 2, store.actionItemCount("m1"))
}

func TestConcurrentReprocessDoesNotDuplicate(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	store.segments["m1"] = []meetings.TranscriptSegment{
		{MeetingID: "m1", Speaker: "Ada", Content: "Hello.", StartTime: 0, EndTime: 1000},
	}
	analyzer := workingAnalyzer()
	analyzer.delay = 20 * time.Millisecond
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(analyzer))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := p.ReprocessMeeting(context.Background(), "m1")
			assert.True(t, result.Success, "errors: %v", result.Errors)
		}()
	}
	wg.Wait()

	// Runs are serialized per meeting: the final count matches one
	// extraction, never a doubled set.
	assert.Equal(t, 2, store.actionItemCount("m1"))
}

func TestQueueMeetingForProcessingEnqueues(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	enqueuer := &fakeEnqueuer{}
	p := NewPipeline(store, logging.NewNopLogger(), WithEnqueuer(enqueuer))

	ack := p.QueueMeetingForProcessing(context.Background(), "m1", Options{
		AudioURL:           "https://x/audio.wav",
		NotifyParticipants: true,
	})

	assert.True(t, ack.Queued)
	assert.True(t, strings.HasPrefix(ack.JobID, "job_m1_"), "job id %q", ack.JobID)

	require.Len(t, enqueuer.messages, 1)
	msg := enqueuer.messages[0]
	assert.Equal(t, "m1", msg.MeetingID)
	assert.Equal(t, ack.JobID, msg.JobID)
	assert.Equal(t, "https://x/audio.wav", msg.AudioURL)
	assert.True(t, msg.NotifyParticipants)
	assert.Equal(t, meetings.ProcessingPending, store.processingState("m1"))
}

func TestQueueMeetingForProcessingEnqueueFailure(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	enqueuer := &fakeEnqueuer{err: fmt.Errorf("redis down")}
	p := NewPipeline(store, logging.NewNopLogger(), WithEnqueuer(enqueuer))

	ack := p.QueueMeetingForProcessing(context.Background(), "m1", Options{})

	assert.False(t, ack.Queued)
	assert.Empty(t, ack.JobID)
}

func TestQueueMeetingForReprocessingEnqueues(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	enqueuer := &fakeEnqueuer{}
	p := NewPipeline(store, logging.NewNopLogger(), WithEnqueuer(enqueuer))

	ack := p.QueueMeetingForReprocessing(context.Background(), "m1")

	assert.True(t, ack.Queued)
	assert.True(t, strings.HasPrefix(ack.JobID, "job_m1_"), "job id %q", ack.JobID)

	require.Len(t, enqueuer.messages, 1)
	msg := enqueuer.messages[0]
	assert.Equal(t, "m1", msg.MeetingID)
	assert.True(t, msg.Reprocess)
	assert.Equal(t, queue.PriorityHigh, msg.Priority)
	assert.Equal(t, meetings.ProcessingPending, store.processingState("m1"))
}

func TestQueueMeetingForReprocessingGoroutineFallback(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	store.segments["m1"] = []meetings.TranscriptSegment{
		{MeetingID: "m1", Speaker: "Ada", Content: "Hello.", StartTime: 0, EndTime: 1000},
	}
	p := NewPipeline(store, logging.NewNopLogger(), WithAnalyzer(workingAnalyzer()))

	ack := p.QueueMeetingForReprocessing(context.Background(), "m1")

	assert.True(t, ack.Queued)
	require.Eventually(t, func() bool {
		return store.processingState("m1") == meetings.ProcessingSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, store.actionItemCount("m1"))
}

func TestQueueMeetingForProcessingGoroutineFallback(t *testing.T) {
	store := newFakeStore()
	seedMeeting(store, "m1")
	p := NewPipeline(store, logging.NewNopLogger())

	ack := p.QueueMeetingForProcessing(context.Background(), "m1", Options{})

	assert.True(t, ack.Queued)
	require.Eventually(t, func() bool {
		return store.processingState("m1") == meetings.ProcessingSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, meetings.StatusEnded, store.meetingStatus("m1"))
}
