package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
)

// Redis key prefixes.
const (
	keyPrefixQueue      = "queue:"      // main queue (sorted set by priority)
	keyPrefixProcessing = "processing:" // messages currently being processed
	keyPrefixDelayed    = "delayed:"    // nacked messages waiting out their backoff
	keyPrefixMessage    = "msg:"        // message payloads
	keyPrefixDLQ        = "dlq:"        // dead letter queue
)

// RedisQueue implements Queue on Redis sorted sets. Priority ordering uses
// score = priority * 1e12 + enqueue timestamp, giving FIFO within a priority
// level.
type RedisQueue struct {
	client *redis.Client
	name   string
	config Config
	logger logging.Logger
	closed chan struct{}
}

// NewRedisQueue creates a Redis-backed processing queue.
func NewRedisQueue(client *redis.Client, config Config, logger logging.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		name:   config.Name,
		config: config,
		logger: logger.With(logging.F("component", "redis_queue"), logging.F("queue", config.Name)),
		closed: make(chan struct{}),
	}
}

// Name returns the queue name.
func (q *RedisQueue) Name() string {
	return q.name
}

// Enqueue adds a message to the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, msg *ProcessingMessage) error {
	if msg == nil || msg.MeetingID == "" {
		return ErrInvalidMessage
	}

	messageID := uuid.New().String()

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	qm := &QueuedMessage{
		ID:         messageID,
		Message:    msgBytes,
		Priority:   msg.Priority,
		RetryCount: 0,
		EnqueuedAt: time.Now(),
	}

	qmBytes, err := json.Marshal(qm)
	if err != nil {
		return fmt.Errorf("failed to marshal queued message: %w", err)
	}

	pipe := q.client.TxPipeline()

	msgKey := keyPrefixMessage + q.name + ":" + messageID
	pipe.Set(ctx, msgKey, qmBytes, q.config.RetentionPeriod)

	queueKey := keyPrefixQueue + q.name
	pipe.ZAdd(ctx, queueKey, redis.Z{Score: queueScore(msg.Priority, time.Now()), Member: messageID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	q.logger.Debug("Enqueued processing message",
		logging.F("message_id", messageID),
		logging.F("meeting_id", msg.MeetingID),
		logging.F("job_id", msg.JobID),
	)

	return nil
}

// Dequeue retrieves messages from the queue, blocking up to timeout.
func (q *RedisQueue) Dequeue(ctx context.Context, maxMessages int, timeout time.Duration) ([]*QueuedMessage, error) {
	if maxMessages <= 0 {
		maxMessages = 1
	}

	queueKey := keyPrefixQueue + q.name
	processingKey := keyPrefixProcessing + q.name
	deadline := time.Now().Add(timeout)

	var messages []*QueuedMessage

	for time.Now().Before(deadline) && len(messages) < maxMessages {
		// Move nacked messages whose backoff elapsed back into the queue
		// before popping, so retries cannot starve or jump the line.
		if err := q.promoteDueMessages(ctx); err != nil {
			return messages, err
		}

		// Pop highest priority message (highest score)
		result, err := q.client.ZPopMax(ctx, queueKey, 1).Result()
		if errors.Is(err, redis.Nil) || len(result) == 0 {
			select {
			case <-time.After(100 * time.Millisecond):
				continue
			case <-q.closed:
				return messages, ErrQueueClosed
			case <-ctx.Done():
				return messages, ctx.Err()
			}
		}
		if err != nil {
			return messages, fmt.Errorf("failed to pop from queue: %w", err)
		}

		messageID := result[0].Member.(string)
		msgKey := keyPrefixMessage + q.name + ":" + messageID

		data, err := q.client.Get(ctx, msgKey).Bytes()
		if errors.Is(err, redis.Nil) {
			// Message expired, skip
			continue
		}
		if err != nil {
			return messages, fmt.Errorf("failed to get message data: %w", err)
		}

		var qm QueuedMessage
		if err := json.Unmarshal(data, &qm); err != nil {
			return messages, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		// Move to processing set with visibility timeout
		visibleAfter := time.Now().Add(q.config.VisibilityTimeout)
		qm.VisibleAfter = visibleAfter

		updatedData, _ := json.Marshal(qm)
		pipe := q.client.TxPipeline()
		pipe.Set(ctx, msgKey, updatedData, q.config.RetentionPeriod)
		pipe.ZAdd(ctx, processingKey, redis.Z{
			Score:  float64(visibleAfter.UnixNano()),
			Member: messageID,
		})
		if _, err := pipe.Exec(ctx); err != nil {
			return messages, fmt.Errorf("failed to move to processing: %w", err)
		}

		messages = append(messages, &qm)
	}

	return messages, nil
}

// Ack acknowledges successful processing of a message.
func (q *RedisQueue) Ack(ctx context.Context, messageID string) error {
	processingKey := keyPrefixProcessing + q.name
	msgKey := keyPrefixMessage + q.name + ":" + messageID

	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, processingKey, messageID)
	pipe.Del(ctx, msgKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}

	return nil
}

// promoteDueMessages moves messages whose retry backoff elapsed from the
// delayed set back to the main queue, scored at their priority so they
// compete fairly with fresh work.
func (q *RedisQueue) promoteDueMessages(ctx context.Context) error {
	delayedKey := keyPrefixDelayed + q.name
	queueKey := keyPrefixQueue + q.name

	due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", float64(time.Now().UnixNano())),
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to find due messages: %w", err)
	}

	for _, messageID := range due {
		msgKey := keyPrefixMessage + q.name + ":" + messageID

		data, err := q.client.Get(ctx, msgKey).Bytes()
		if errors.Is(err, redis.Nil) {
			// Payload expired while waiting, drop the delayed entry
			q.client.ZRem(ctx, delayedKey, messageID)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get delayed message: %w", err)
		}

		var qm QueuedMessage
		if err := json.Unmarshal(data, &qm); err != nil {
			q.client.ZRem(ctx, delayedKey, messageID)
			continue
		}

		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, delayedKey, messageID)
		pipe.ZAdd(ctx, queueKey, redis.Z{Score: queueScore(qm.Priority, time.Now()), Member: messageID})
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to promote delayed message: %w", err)
		}
	}

	return nil
}

// Nack reports processing failure. The message waits out an exponential
// backoff in the delayed set before becoming eligible for dequeue again, or
// moves to the dead letter queue once retries are exhausted.
func (q *RedisQueue) Nack(ctx context.Context, messageID string) error {
	processingKey := keyPrefixProcessing + q.name
	msgKey := keyPrefixMessage + q.name + ":" + messageID

	data, err := q.client.Get(ctx, msgKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}

	var qm QueuedMessage
	if err := json.Unmarshal(data, &qm); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	qm.RetryCount++

	if qm.RetryCount >= q.config.MaxRetries {
		return q.MoveToDeadLetter(ctx, messageID, "max retries exceeded")
	}

	delayedKey := keyPrefixDelayed + q.name
	backoff := calculateBackoff(qm.RetryCount)
	qm.VisibleAfter = nextAttempt(qm.RetryCount, time.Now())

	updatedData, _ := json.Marshal(qm)

	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, processingKey, messageID)
	pipe.Set(ctx, msgKey, updatedData, q.config.RetentionPeriod)
	// Park in the delayed set until the backoff elapses; Dequeue promotes
	// due entries back to the main queue.
	pipe.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(qm.VisibleAfter.UnixNano()),
		Member: messageID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack message: %w", err)
	}

	q.logger.Debug("Delayed message after failure",
		logging.F("message_id", messageID),
		logging.F("retry_count", qm.RetryCount),
		logging.F("backoff", backoff.String()),
	)

	return nil
}

// MoveToDeadLetter moves a message to the dead letter queue.
func (q *RedisQueue) MoveToDeadLetter(ctx context.Context, messageID, reason string) error {
	processingKey := keyPrefixProcessing + q.name
	msgKey := keyPrefixMessage + q.name + ":" + messageID
	dlqKey := keyPrefixDLQ + q.name

	data, err := q.client.Get(ctx, msgKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}

	dlqEntry := map[string]interface{}{
		"message":    string(data),
		"reason":     reason,
		"moved_at":   time.Now().Format(time.RFC3339),
		"queue_name": q.name,
	}
	dlqData, _ := json.Marshal(dlqEntry)

	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, processingKey, messageID)
	pipe.Del(ctx, msgKey)
	pipe.ZAdd(ctx, dlqKey, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: string(dlqData),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to move to DLQ: %w", err)
	}

	q.logger.Warn("Moved message to dead letter queue",
		logging.F("message_id", messageID),
		logging.F("reason", reason),
	)

	return nil
}

// Depth returns the current queue depth.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, keyPrefixQueue+q.name).Result()
}

// RecoverStaleMessages re-queues messages whose visibility timeout expired
// without an ack, typically after a worker crash.
func (q *RedisQueue) RecoverStaleMessages(ctx context.Context) error {
	processingKey := keyPrefixProcessing + q.name
	queueKey := keyPrefixQueue + q.name

	now := float64(time.Now().UnixNano())
	staleMessages, err := q.client.ZRangeByScore(ctx, processingKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to find stale messages: %w", err)
	}

	for _, messageID := range staleMessages {
		msgKey := keyPrefixMessage + q.name + ":" + messageID

		data, err := q.client.Get(ctx, msgKey).Bytes()
		if errors.Is(err, redis.Nil) {
			// Payload expired, drop the processing entry
			q.client.ZRem(ctx, processingKey, messageID)
			continue
		}
		if err != nil {
			continue
		}

		var qm QueuedMessage
		if err := json.Unmarshal(data, &qm); err != nil {
			continue
		}

		qm.RetryCount++

		if qm.RetryCount >= q.config.MaxRetries {
			q.MoveToDeadLetter(ctx, messageID, "visibility timeout exceeded")
			continue
		}

		updatedData, _ := json.Marshal(qm)
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, processingKey, messageID)
		pipe.Set(ctx, msgKey, updatedData, q.config.RetentionPeriod)
		pipe.ZAdd(ctx, queueKey, redis.Z{Score: queueScore(qm.Priority, time.Now()), Member: messageID})
		pipe.Exec(ctx)
	}

	if len(staleMessages) > 0 {
		q.logger.Info("Recovered stale messages", logging.F("count", len(staleMessages)))
	}

	return nil
}

// Close releases queue resources. The Redis client is owned by the caller.
func (q *RedisQueue) Close() error {
	select {
	case <-q.closed:
	default:
		close(q.closed)
	}
	return nil
}

// queueScore computes the main queue sort key. Priority dominates; within a
// priority level the enqueue timestamp breaks ties.
func queueScore(priority Priority, at time.Time) float64 {
	return float64(priority)*1e12 + float64(at.UnixNano())
}

// nextAttempt returns when a message on its Nth retry becomes eligible for
// dequeue again.
func nextAttempt(retryCount int, now time.Time) time.Time {
	return now.Add(calculateBackoff(retryCount))
}

// calculateBackoff returns the retry delay: 1s doubling per attempt, capped
// at 5 minutes.
func calculateBackoff(retryCount int) time.Duration {
	base := time.Second
	backoff := base * (1 << uint(retryCount))
	maxBackoff := 5 * time.Minute
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// Verify interface compliance
var _ Queue = (*RedisQueue)(nil)
