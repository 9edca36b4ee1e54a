package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/text/language"

	"github.com/mejba13/meetverse-ai-sub000/config"
	apperrors "github.com/mejba13/meetverse-ai-sub000/pkg/errors"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
)

const defaultBaseURL = "https://api.deepgram.com"

// Client calls the Deepgram pre-recorded transcription API.
type Client struct {
	apiKey     string
	model      string
	language   string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a transcription client. Returns ErrNotConfigured when no
// API key is present so callers can degrade the transcription stage.
func NewClient(cfg *config.DeepgramConfig, logger logging.Logger) (*Client, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("deepgram: %w", apperrors.ErrNotConfigured)
	}

	model := cfg.Model
	if model == "" {
		model = "nova-2"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		language:   NormalizeLanguage(cfg.Language),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.F("component", "asr_client")),
	}, nil
}

// NormalizeLanguage canonicalizes a BCP 47 language tag to its base form
// ("en-US" becomes "en"). Unparseable or empty tags default to English.
func NormalizeLanguage(tag string) string {
	if tag == "" {
		return "en"
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "en"
	}
	base, _ := parsed.Base()
	return base.String()
}

// deepgramResponse mirrors the subset of the provider response we consume.
type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []Segment `json:"utterances"`
	} `json:"results"`
}

// Transcribe submits a remote audio URL for transcription and returns the
// diarized segments in ascending start order.
func (c *Client) Transcribe(ctx context.Context, audioURL string, tc TranscriptionConfig) (*Result, error) {
	if audioURL == "" {
		return nil, fmt.Errorf("audio url is required: %w", apperrors.ErrValidation)
	}

	endpoint, err := c.buildURL(tc)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcription request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to parse transcription response: %w", err)
	}

	result := &Result{
		Segments: envelope.Results.Utterances,
		Duration: envelope.Metadata.Duration,
		Language: c.effectiveLanguage(tc),
	}

	if len(envelope.Results.Channels) > 0 && len(envelope.Results.Channels[0].Alternatives) > 0 {
		result.FullText = envelope.Results.Channels[0].Alternatives[0].Transcript
	}

	sort.SliceStable(result.Segments, func(i, j int) bool {
		return result.Segments[i].Start < result.Segments[j].Start
	})

	seen := make(map[int]bool)
	for _, s := range result.Segments {
		if s.Speaker != nil && !seen[*s.Speaker] {
			seen[*s.Speaker] = true
			result.Speakers = append(result.Speakers, *s.Speaker)
		}
	}
	sort.Ints(result.Speakers)

	c.logger.Debug("Transcription completed",
		logging.F("segments", len(result.Segments)),
		logging.F("duration_s", result.Duration),
		logging.F("elapsed", time.Since(start).String()),
	)

	return result, nil
}

// effectiveLanguage resolves the language tag for one request: the request
// override wins over the configured default, both normalized.
func (c *Client) effectiveLanguage(tc TranscriptionConfig) string {
	if tc.Language == "" {
		return c.language
	}
	return NormalizeLanguage(tc.Language)
}

func (c *Client) buildURL(tc TranscriptionConfig) (string, error) {
	u, err := url.Parse(c.baseURL + "/v1/listen")
	if err != nil {
		return "", err
	}

	model := tc.Model
	if model == "" {
		model = c.model
	}

	q := u.Query()
	q.Set("model", model)
	q.Set("language", c.effectiveLanguage(tc))
	q.Set("punctuate", fmt.Sprintf("%t", tc.Punctuate))
	q.Set("diarize", fmt.Sprintf("%t", tc.Diarize))
	q.Set("smart_format", fmt.Sprintf("%t", tc.SmartFormat))
	q.Set("utterances", "true")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
