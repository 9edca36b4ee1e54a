// Package ai provides a client for the hosted LLM provider (OpenAI chat
// completions) exposing the three meeting analysis capabilities: summary
// generation, action item extraction, and sentiment analysis.
package ai

// MeetingSummary is the structured summary returned by the LLM.
type MeetingSummary struct {
	Title            string   `json:"title"`
	Overview         string   `json:"overview"`
	KeyPoints        []string `json:"keyPoints"`
	Decisions        []string `json:"decisions"`
	Topics           []string `json:"topics"`
	NextSteps        []string `json:"nextSteps"`
	Duration         string   `json:"duration,omitempty"`
	ParticipantCount int      `json:"participantCount,omitempty"`
}

// ExtractedActionItem is one follow-up task extracted from the transcript.
// Assignee and DueDate are provider-supplied strings; resolution to user ids
// and timestamps happens downstream.
type ExtractedActionItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Assignee    string   `json:"assignee,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Priority    string   `json:"priority"`
	Context     string   `json:"context,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// SentimentResult is the sentiment and engagement read of a meeting.
type SentimentResult struct {
	Sentiment       string   `json:"sentiment"`
	EngagementScore int      `json:"engagementScore"`
	Insights        []string `json:"insights,omitempty"`
}
