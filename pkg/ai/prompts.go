package ai

import (
	"fmt"
	"strings"
)

const summarySystemPrompt = `You are a meeting analyst. Return ONLY valid JSON with this schema:
{
  "title": string (a concise meeting title),
  "overview": string (2-4 sentences summarizing the meeting),
  "keyPoints": string[] (3-8 items),
  "decisions": string[] (0-6 decisions that were made),
  "topics": string[] (2-6 topics discussed),
  "nextSteps": string[] (0-6 agreed next steps)
}
Base everything strictly on the transcript. Do not invent content.`

const actionItemsSystemPrompt = `You are a meeting analyst extracting follow-up tasks. Return ONLY valid JSON with this schema:
{
  "actionItems": [{
    "title": string (short task name),
    "description": string (what needs to be done),
    "assignee": string (participant name if clearly stated, else omit),
    "dueDate": string (YYYY-MM-DD if a deadline was stated, else omit),
    "priority": string (one of: LOW, MEDIUM, HIGH, URGENT),
    "context": string (the transcript line the task came from)
  }]
}
Only extract tasks explicitly discussed. An empty list is a valid answer.`

const sentimentSystemPrompt = `You are a meeting analyst assessing tone and engagement. Return ONLY valid JSON with this schema:
{
  "sentiment": string (one of: positive, neutral, negative),
  "engagementScore": number (integer 0-100),
  "insights": string[] (0-4 short observations)
}`

func buildSummaryUserPrompt(transcript, title string, participants []string) string {
	return fmt.Sprintf(
		"Meeting title: %s\nParticipants: %s\n\nTranscript:\n%s\n",
		title, strings.Join(participants, ", "), transcript,
	)
}

func buildActionItemsUserPrompt(transcript string, participants []string) string {
	return fmt.Sprintf(
		"Participants: %s\n\nTranscript:\n%s\n",
		strings.Join(participants, ", "), transcript,
	)
}

func buildSentimentUserPrompt(transcript string) string {
	return "Transcript:\n" + transcript + "\n"
}
