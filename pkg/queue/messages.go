// Package queue provides the durable Redis-backed queue that feeds the
// post-meeting processing workers.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Priority levels for queue messages.
type Priority int

const (
	PriorityLow    Priority = 0 // backfill, bulk reprocessing
	PriorityNormal Priority = 1 // standard post-meeting processing
	PriorityHigh   Priority = 2 // user-initiated reprocessing
)

// ProcessingMessage asks a worker to run the pipeline for one meeting.
type ProcessingMessage struct {
	MeetingID          string   `json:"meeting_id"`
	JobID              string   `json:"job_id"`
	SkipTranscription  bool     `json:"skip_transcription,omitempty"`
	SkipAnalysis       bool     `json:"skip_analysis,omitempty"`
	AudioURL           string   `json:"audio_url,omitempty"`
	ExistingTranscript string   `json:"existing_transcript,omitempty"`
	NotifyParticipants bool     `json:"notify_participants,omitempty"`
	Reprocess          bool     `json:"reprocess,omitempty"`
	Priority           Priority `json:"priority"`
	QueuedAt           time.Time `json:"queued_at"`
}

// QueuedMessage wraps a message with queue delivery metadata.
type QueuedMessage struct {
	ID           string          `json:"id"`
	Message      json.RawMessage `json:"message"`
	Priority     Priority        `json:"priority"`
	RetryCount   int             `json:"retry_count"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	VisibleAfter time.Time       `json:"visible_after,omitempty"`
}

// ParseMessage decodes the wrapped processing message.
func (qm *QueuedMessage) ParseMessage() (*ProcessingMessage, error) {
	var msg ProcessingMessage
	if err := json.Unmarshal(qm.Message, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Queue is a durable at-least-once delivery queue for processing messages.
type Queue interface {
	// Name returns the queue name.
	Name() string

	// Enqueue adds a message to the queue.
	Enqueue(ctx context.Context, msg *ProcessingMessage) error

	// Dequeue retrieves up to maxMessages, blocking up to timeout.
	Dequeue(ctx context.Context, maxMessages int, timeout time.Duration) ([]*QueuedMessage, error)

	// Ack acknowledges successful processing of a message.
	Ack(ctx context.Context, messageID string) error

	// Nack reports processing failure; the message is retried with backoff
	// or moved to the dead letter queue once retries are exhausted.
	Nack(ctx context.Context, messageID string) error

	// MoveToDeadLetter moves a message to the dead letter queue.
	MoveToDeadLetter(ctx context.Context, messageID, reason string) error

	// Depth returns the current queue depth.
	Depth(ctx context.Context) (int64, error)

	// RecoverStaleMessages re-queues messages whose visibility timeout
	// expired without an ack. Called periodically by the worker pool.
	RecoverStaleMessages(ctx context.Context) error

	// Close releases queue resources.
	Close() error
}

// Config configures queue behavior.
type Config struct {
	Name              string        `yaml:"name"`
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetentionPeriod   time.Duration `yaml:"retention_period"`
}

// DefaultConfig returns the default configuration for the processing queue.
func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		VisibilityTimeout: 5 * time.Minute, // ASR and LLM calls can be slow
		MaxRetries:        3,
		RetentionPeriod:   24 * time.Hour,
	}
}
