// Package meetings defines the domain model and PostgreSQL repository for
// meetings, transcript segments, and action items.
package meetings

import "time"

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	StatusScheduled MeetingStatus = "SCHEDULED"
	StatusLive      MeetingStatus = "LIVE"
	StatusEnded     MeetingStatus = "ENDED"
	StatusCancelled MeetingStatus = "CANCELLED"
)

// ProcessingState is the explicit job state of the post-meeting pipeline for
// a meeting. Unlike MeetingStatus it tracks the pipeline run itself.
type ProcessingState string

const (
	ProcessingPending   ProcessingState = "PENDING"
	ProcessingRunning   ProcessingState = "RUNNING"
	ProcessingSucceeded ProcessingState = "SUCCEEDED"
	ProcessingFailed    ProcessingState = "FAILED"
)

// ActionItemPriority is a closed enum. URGENT > HIGH > MEDIUM > LOW is the
// display convention but no ordering is enforced here.
type ActionItemPriority string

const (
	PriorityLow    ActionItemPriority = "LOW"
	PriorityMedium ActionItemPriority = "MEDIUM"
	PriorityHigh   ActionItemPriority = "HIGH"
	PriorityUrgent ActionItemPriority = "URGENT"
)

// ValidPriority reports whether p is one of the four named levels.
func ValidPriority(p ActionItemPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ActionItemStatus is the workflow state of an action item.
type ActionItemStatus string

const (
	ItemPending    ActionItemStatus = "PENDING"
	ItemInProgress ActionItemStatus = "IN_PROGRESS"
	ItemCompleted  ActionItemStatus = "COMPLETED"
	ItemCancelled  ActionItemStatus = "CANCELLED"
)

// Meeting is a scheduled or held meeting with its host and participants.
type Meeting struct {
	ID              string
	Title           string
	Status          MeetingStatus
	HostID          string
	HostName        string
	HostEmail       string
	ActualStart     *time.Time
	ActualEnd       *time.Time
	AISummary       *string
	AISummaryFormat *string
	ProcessingState ProcessingState
	Participants    []Participant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Participant is one attendee of a meeting, optionally linked to a user account.
type Participant struct {
	UserID *string
	Name   string
	Email  string
}

// DisplayName returns the best available label for a participant:
// linked user name, then email, then a generic fallback.
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return "Participant"
}

// TranscriptSegment is one timed, attributed utterance of meeting dialogue.
// Segments are append-only during a meeting and read-only afterward.
type TranscriptSegment struct {
	ID         string
	MeetingID  string
	Speaker    string
	Content    string
	StartTime  int64 // milliseconds from meeting start
	EndTime    int64 // milliseconds from meeting start
	Confidence float64
	Language   string
	CreatedAt  time.Time
}

// ActionItem is a follow-up task derived from meeting discussion, either
// manually created or AI-extracted.
type ActionItem struct {
	ID           string
	MeetingID    string
	Title        string
	Description  string
	AssigneeID   *string
	DueDate      *time.Time
	Priority     ActionItemPriority
	Status       ActionItemStatus
	AIGenerated  bool
	AIConfidence *float64
	CreatedAt    time.Time
}

// SummaryFormatJSON marks ai_summary columns that hold a serialized
// StoredSummary. It is the only summary format the service writes.
const SummaryFormatJSON = "structured_json_v1"

// StoredSummary is the persisted shape of an AI-generated meeting summary.
// Sentiment and engagement are flattened into the same record so the UI has
// a single read path.
type StoredSummary struct {
	Title            string   `json:"title"`
	Overview         string   `json:"overview"`
	KeyPoints        []string `json:"keyPoints"`
	Decisions        []string `json:"decisions"`
	Topics           []string `json:"topics"`
	NextSteps        []string `json:"nextSteps"`
	Sentiment        string   `json:"sentiment"`
	EngagementScore  int      `json:"engagementScore"`
	Duration         string   `json:"duration,omitempty"`
	ParticipantCount int      `json:"participantCount,omitempty"`
}

// StatusSnapshot is the persisted state the status tracker derives from.
type StatusSnapshot struct {
	MeetingStatus   MeetingStatus
	ProcessingState ProcessingState
	HasTranscript   bool
	HasSummary      bool
	ActionItemCount int
}
