package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mejba13/meetverse-ai-sub000/pkg/ai"
	"github.com/mejba13/meetverse-ai-sub000/pkg/asr"
	apperrors "github.com/mejba13/meetverse-ai-sub000/pkg/errors"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
	"github.com/mejba13/meetverse-ai-sub000/pkg/notify"
	"github.com/mejba13/meetverse-ai-sub000/pkg/queue"
)

// fakeStore is an in-memory Store. All mutations hold the mutex so the
// concurrency tests observe the same atomicity the real transactional
// repository provides.
type fakeStore struct {
	mu       sync.Mutex
	meetings map[string]*meetings.Meeting
	segments map[string][]meetings.TranscriptSegment
	items    map[string][]meetings.ActionItem
	states   map[string]meetings.ProcessingState

	failStatusUpdate bool
	panicOnUpdate    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		meetings: make(map[string]*meetings.Meeting),
		segments: make(map[string][]meetings.TranscriptSegment),
		items:    make(map[string][]meetings.ActionItem),
		states:   make(map[string]meetings.ProcessingState),
	}
}

func (s *fakeStore) addMeeting(m *meetings.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
}

func (s *fakeStore) GetMeeting(_ context.Context, id string) (*meetings.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", id, apperrors.ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

func (s *fakeStore) UpdateMeetingStatus(_ context.Context, id string, status meetings.MeetingStatus, actualEnd *time.Time) error {
	if s.panicOnUpdate {
		panic("store exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStatusUpdate {
		return fmt.Errorf("disk full")
	}
	m, ok := s.meetings[id]
	if !ok {
		return fmt.Errorf("meeting %s: %w", id, apperrors.ErrNotFound)
	}
	m.Status = status
	if actualEnd != nil {
		m.ActualEnd = actualEnd
	}
	return nil
}

func (s *fakeStore) SetProcessingState(_ context.Context, id string, state meetings.ProcessingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[id]; !ok {
		return fmt.Errorf("meeting %s: %w", id, apperrors.ErrNotFound)
	}
	s.states[id] = state
	return nil
}

func (s *fakeStore) ListTranscriptSegments(_ context.Context, meetingID string) ([]meetings.TranscriptSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]meetings.TranscriptSegment(nil), s.segments[meetingID]...), nil
}

func (s *fakeStore) CreateTranscriptSegments(_ context.Context, meetingID string, segments []meetings.TranscriptSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[meetingID] = append(s.segments[meetingID], segments...)
	return nil
}

func (s *fakeStore) SaveAnalysis(_ context.Context, meetingID string, summary *meetings.StoredSummary, items []meetings.ActionItem, replaceItems bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return fmt.Errorf("meeting %s: %w", meetingID, apperrors.ErrNotFound)
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	serialized := string(data)
	format := meetings.SummaryFormatJSON
	m.AISummary = &serialized
	m.AISummaryFormat = &format

	if replaceItems {
		s.items[meetingID] = nil
	}
	s.items[meetingID] = append(s.items[meetingID], items...)
	return nil
}

func (s *fakeStore) StatusSnapshot(_ context.Context, meetingID string) (*meetings.StatusSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, apperrors.ErrNotFound)
	}
	return &meetings.StatusSnapshot{
		MeetingStatus:   m.Status,
		ProcessingState: s.states[meetingID],
		HasTranscript:   len(s.segments[meetingID]) > 0,
		HasSummary:      m.AISummary != nil,
		ActionItemCount: len(s.items[meetingID]),
	}, nil
}

func (s *fakeStore) actionItemCount(meetingID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[meetingID])
}

func (s *fakeStore) actionItems(meetingID string) []meetings.ActionItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]meetings.ActionItem(nil), s.items[meetingID]...)
}

func (s *fakeStore) processingState(meetingID string) meetings.ProcessingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[meetingID]
}

func (s *fakeStore) meetingStatus(meetingID string) meetings.MeetingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetings[meetingID].Status
}

func (s *fakeStore) storedSummary(meetingID string) *meetings.StoredSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meetings[meetingID]
	if m == nil || m.AISummary == nil {
		return nil
	}
	var summary meetings.StoredSummary
	if err := json.Unmarshal([]byte(*m.AISummary), &summary); err != nil {
		return nil
	}
	return &summary
}

// fakeTranscriber returns a canned ASR result.
type fakeTranscriber struct {
	result *asr.Result
	err    error
	calls  int
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _ string, _ asr.TranscriptionConfig) (*asr.Result, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

// fakeAnalyzer returns canned LLM results with optional per-call failures
// and delays.
type fakeAnalyzer struct {
	mu sync.Mutex

	summary      *ai.MeetingSummary
	summaryErr   error
	items        []ai.ExtractedActionItem
	itemsErr     error
	sentiment    *ai.SentimentResult
	sentimentErr error
	delay        time.Duration

	summarizeCalls int
	extractCalls   int
	sentimentCalls int
}

func (a *fakeAnalyzer) Summarize(_ context.Context, _, _ string, _ []string) (*ai.MeetingSummary, error) {
	a.mu.Lock()
	a.summarizeCalls++
	a.mu.Unlock()
	time.Sleep(a.delay)
	if a.summaryErr != nil {
		return nil, a.summaryErr
	}
	return a.summary, nil
}

func (a *fakeAnalyzer) ExtractActionItems(_ context.Context, _ string, _ []string) ([]ai.ExtractedActionItem, error) {
	a.mu.Lock()
	a.extractCalls++
	a.mu.Unlock()
	time.Sleep(a.delay)
	if a.itemsErr != nil {
		return nil, a.itemsErr
	}
	return a.items, nil
}

func (a *fakeAnalyzer) AnalyzeSentiment(_ context.Context, _ string) (*ai.SentimentResult, error) {
	a.mu.Lock()
	a.sentimentCalls++
	a.mu.Unlock()
	time.Sleep(a.delay)
	if a.sentimentErr != nil {
		return nil, a.sentimentErr
	}
	return a.sentiment, nil
}

func (a *fakeAnalyzer) totalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summarizeCalls + a.extractCalls + a.sentimentCalls
}

// fakeEnqueuer records enqueued messages.
type fakeEnqueuer struct {
	mu       sync.Mutex
	messages []*queue.ProcessingMessage
	err      error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, msg *queue.ProcessingMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	return nil
}

// fakeNotifier records notifications and can fail on demand.
type fakeNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
	err           error
}

func (n *fakeNotifier) NotifyParticipants(_ context.Context, notification notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notifications)
}
