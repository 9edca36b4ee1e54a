package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mejba13/meetverse-ai-sub000/config"
	apperrors "github.com/mejba13/meetverse-ai-sub000/pkg/errors"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client calls the OpenAI chat completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates an LLM client. Returns ErrNotConfigured when no API key
// is present so callers can degrade the analysis stage.
func NewClient(cfg *config.OpenAIConfig, logger logging.Logger) (*Client, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("openai: %w", apperrors.ErrNotConfigured)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.F("component", "ai_client")),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize generates a structured summary of the transcript.
func (c *Client) Summarize(ctx context.Context, transcript, title string, participants []string) (*MeetingSummary, error) {
	raw, err := c.complete(ctx, summarySystemPrompt, buildSummaryUserPrompt(transcript, title, participants))
	if err != nil {
		return nil, err
	}

	var summary MeetingSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}
	if summary.Title == "" {
		summary.Title = title
	}
	summary.ParticipantCount = len(participants)

	return &summary, nil
}

// ExtractActionItems extracts follow-up tasks from the transcript.
// An empty slice is a valid result.
func (c *Client) ExtractActionItems(ctx context.Context, transcript string, participants []string) ([]ExtractedActionItem, error) {
	raw, err := c.complete(ctx, actionItemsSystemPrompt, buildActionItemsUserPrompt(transcript, participants))
	if err != nil {
		return nil, err
	}

	var payload struct {
		ActionItems []ExtractedActionItem `json:"actionItems"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse action items response: %w", err)
	}

	return payload.ActionItems, nil
}

// AnalyzeSentiment assesses the tone and engagement of the meeting.
func (c *Client) AnalyzeSentiment(ctx context.Context, transcript string) (*SentimentResult, error) {
	raw, err := c.complete(ctx, sentimentSystemPrompt, buildSentimentUserPrompt(transcript))
	if err != nil {
		return nil, err
	}

	var result SentimentResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response: %w", err)
	}
	if result.EngagementScore < 0 {
		result.EngagementScore = 0
	}
	if result.EngagementScore > 100 {
		result.EngagementScore = 100
	}

	return &result, nil
}

// complete issues one chat completion and returns the model's text output
// with any Markdown code fences removed.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to parse llm response: %w", err)
	}

	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		return "", errors.New("llm response missing content")
	}

	c.logger.Debug("LLM call completed",
		logging.F("model", c.model),
		logging.F("elapsed", time.Since(start).String()),
	)

	return stripFences(envelope.Choices[0].Message.Content), nil
}

// stripFences removes a surrounding Markdown code block if present. Models
// sometimes wrap JSON output in ```json fences despite instructions.
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}
