// Package workers drains the processing queue into the pipeline with a
// fixed pool of workers.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/queue"
)

// Handler processes one dequeued message. A returned error triggers a
// negative acknowledgement and eventual retry.
type Handler func(ctx context.Context, msg *queue.ProcessingMessage) error

// Config configures the worker pool.
type Config struct {
	Count            int           `yaml:"count"`
	BatchSize        int           `yaml:"batch_size"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	HandlerTimeout   time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	RecoveryInterval time.Duration `yaml:"recovery_interval"`
}

// DefaultConfig returns sensible pool defaults.
func DefaultConfig(count int) Config {
	if count <= 0 {
		count = 4
	}
	return Config{
		Count:            count,
		BatchSize:        1,
		PollInterval:     time.Second,
		HandlerTimeout:   4 * time.Minute, // stays under the queue visibility timeout
		ShutdownTimeout:  30 * time.Second,
		RecoveryInterval: time.Minute,
	}
}

// worker is a single queue consumer.
type worker struct {
	id      string
	config  Config
	queue   queue.Queue
	handler Handler
	logger  logging.Logger

	processed atomic.Int64
	failed    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newWorker(cfg Config, q queue.Queue, handler Handler, logger logging.Logger) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	return &worker{
		id:      id,
		config:  cfg,
		queue:   q,
		handler: handler,
		logger:  logger.With(logging.F("worker_id", id)),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *worker) start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processLoop()
	}()
}

func (w *worker) stop(timeout time.Duration) {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		w.logger.Warn("Worker did not drain before shutdown timeout")
	}
}

func (w *worker) processLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			messages, err := w.queue.Dequeue(w.ctx, w.config.BatchSize, w.config.PollInterval)
			if err != nil {
				if w.ctx.Err() != nil {
					return
				}
				w.logger.Warn("Dequeue failed", logging.Err(err))
				time.Sleep(w.config.PollInterval)
				continue
			}

			for _, qm := range messages {
				if w.ctx.Err() != nil {
					return
				}
				w.processMessage(qm)
			}
		}
	}
}

func (w *worker) processMessage(qm *queue.QueuedMessage) {
	msg, err := qm.ParseMessage()
	if err != nil {
		// Unparseable payloads are not retryable.
		w.queue.MoveToDeadLetter(w.ctx, qm.ID, fmt.Sprintf("parse error: %v", err))
		w.failed.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.config.HandlerTimeout)
	defer cancel()

	if err := w.handler(ctx, msg); err != nil {
		w.logger.Warn("Message processing failed",
			logging.F("message_id", qm.ID),
			logging.F("meeting_id", msg.MeetingID),
			logging.F("retry_count", qm.RetryCount),
			logging.Err(err),
		)
		if nackErr := w.queue.Nack(w.ctx, qm.ID); nackErr != nil {
			w.logger.Error("Failed to nack message", logging.F("message_id", qm.ID), logging.Err(nackErr))
		}
		w.failed.Add(1)
		return
	}

	if err := w.queue.Ack(w.ctx, qm.ID); err != nil {
		w.logger.Error("Failed to ack message", logging.F("message_id", qm.ID), logging.Err(err))
	}
	w.processed.Add(1)
}

// Pool manages a fixed set of workers plus the periodic stale message
// recovery loop.
type Pool struct {
	config        Config
	queue         queue.Queue
	handler       Handler
	logger        logging.Logger
	depthObserver func(int64)

	mu      sync.Mutex
	workers []*worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// PoolOption configures optional pool behavior.
type PoolOption func(*Pool)

// WithDepthObserver registers a callback that receives the queue depth on
// every recovery tick, typically to feed a gauge.
func WithDepthObserver(fn func(int64)) PoolOption {
	return func(p *Pool) { p.depthObserver = fn }
}

// NewPool creates a worker pool.
func NewPool(cfg Config, q queue.Queue, handler Handler, logger logging.Logger, opts ...PoolOption) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config:  cfg,
		queue:   q,
		handler: handler,
		logger:  logger.With(logging.F("component", "worker_pool")),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers and the recovery loop.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.config.Count; i++ {
		w := newWorker(p.config, p.queue, p.handler, p.logger)
		w.start()
		p.workers = append(p.workers, w)
	}

	if p.config.RecoveryInterval > 0 {
		p.wg.Add(1)
		go p.recoveryLoop()
	}

	p.logger.Info("Worker pool started", logging.F("workers", p.config.Count))
}

// Stop drains all workers, bounded by the shutdown timeout.
func (p *Pool) Stop() {
	p.cancel()

	p.mu.Lock()
	workers := append([]*worker(nil), p.workers...)
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.stop(p.config.ShutdownTimeout)
		}(w)
	}
	wg.Wait()
	p.wg.Wait()

	p.logger.Info("Worker pool stopped")
}

func (p *Pool) recoveryLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.RecoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.queue.RecoverStaleMessages(p.ctx); err != nil && p.ctx.Err() == nil {
				p.logger.Warn("Stale message recovery failed", logging.Err(err))
			}
			p.reportDepth()
		}
	}
}

func (p *Pool) reportDepth() {
	if p.depthObserver == nil {
		return
	}
	depth, err := p.queue.Depth(p.ctx)
	if err != nil {
		if p.ctx.Err() == nil {
			p.logger.Warn("Queue depth read failed", logging.Err(err))
		}
		return
	}
	p.depthObserver(depth)
}

// Stats summarizes pool activity.
type Stats struct {
	WorkerCount int
	Processed   int64
	Failed      int64
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{WorkerCount: len(p.workers)}
	for _, w := range p.workers {
		stats.Processed += w.processed.Load()
		stats.Failed += w.failed.Load()
	}
	return stats
}
