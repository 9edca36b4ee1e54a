package processing

import (
	"context"
	"fmt"
	"sync"

	"github.com/mejba13/meetverse-ai-sub000/pkg/ai"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
)

// Neutral defaults substituted when the sentiment call fails.
const (
	defaultSentiment       = "neutral"
	defaultEngagementScore = 50
)

// analysisOutcome is the joined result of the three LLM calls.
type analysisOutcome struct {
	Summary         *ai.MeetingSummary
	ActionItems     []ai.ExtractedActionItem
	Sentiment       string
	EngagementScore int
	Errors          []string
	Failed          bool
}

// invokeAnalysis runs summary generation, action item extraction, and
// sentiment analysis. The three calls are independent and are dispatched
// concurrently; the pipeline waits for all of them. A summary failure nulls
// the whole analysis; an action item failure just yields zero items; a
// sentiment failure degrades to a neutral default.
func (p *Pipeline) invokeAnalysis(ctx context.Context, transcript, title string, participants []string, opts Options) *analysisOutcome {
	out := &analysisOutcome{
		Sentiment:       defaultSentiment,
		EngagementScore: defaultEngagementScore,
	}

	if transcript == "" {
		out.Errors = append(out.Errors, "analysis skipped: no transcript available")
		return out
	}
	if opts.SkipAnalysis {
		out.Errors = append(out.Errors, "analysis skipped: disabled by options")
		return out
	}
	if p.analyzer == nil {
		out.Errors = append(out.Errors, "analysis skipped: provider not configured")
		return out
	}

	var (
		wg           sync.WaitGroup
		summary      *ai.MeetingSummary
		summaryErr   error
		items        []ai.ExtractedActionItem
		itemsErr     error
		sentiment    *ai.SentimentResult
		sentimentErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		summary, summaryErr = p.analyzer.Summarize(ctx, transcript, title, participants)
	}()
	go func() {
		defer wg.Done()
		items, itemsErr = p.analyzer.ExtractActionItems(ctx, transcript, participants)
	}()
	go func() {
		defer wg.Done()
		sentiment, sentimentErr = p.analyzer.AnalyzeSentiment(ctx, transcript)
	}()
	wg.Wait()

	if summaryErr != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("AI analysis failed: %v", summaryErr))
		out.Failed = true
		return out
	}
	out.Summary = summary

	if itemsErr != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("Action item extraction failed: %v", itemsErr))
		out.Failed = true
	} else {
		out.ActionItems = items
	}

	if sentimentErr != nil {
		p.logger.Warn("Sentiment analysis failed, using neutral default",
			logging.Err(sentimentErr),
		)
	} else if sentiment != nil {
		out.Sentiment = sentiment.Sentiment
		out.EngagementScore = sentiment.EngagementScore
	}

	return out
}
