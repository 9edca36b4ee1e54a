package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/mejba13/meetverse-ai-sub000/config"
	"github.com/mejba13/meetverse-ai-sub000/pkg/ai"
	"github.com/mejba13/meetverse-ai-sub000/pkg/asr"
	"github.com/mejba13/meetverse-ai-sub000/pkg/db"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
	"github.com/mejba13/meetverse-ai-sub000/pkg/metrics"
	"github.com/mejba13/meetverse-ai-sub000/pkg/notify"
	"github.com/mejba13/meetverse-ai-sub000/pkg/processing"
	"github.com/mejba13/meetverse-ai-sub000/pkg/queue"
	"github.com/mejba13/meetverse-ai-sub000/pkg/workers"
)

const serviceName = "meetverse-processing"

// app holds the wired service dependencies for one command run.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	pool     *pgxpool.Pool
	registry *prometheus.Registry
	metrics  *metrics.PipelineMetrics
	queue    *queue.RedisQueue
	redis    *redis.Client
	pipeline *processing.Pipeline
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

func newAppLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:       logging.Level(cfg.Logging.Level),
		ServiceName: serviceName,
		JSONFormat:  cfg.Logging.JSONFormat,
	})
}

// buildApp wires config, logging, database, providers, and the pipeline.
// withQueue additionally connects Redis so QueueMeetingForProcessing and the
// worker pool use the durable queue.
func buildApp(ctx context.Context, withQueue bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newAppLogger(cfg)

	pool, err := db.ConnectWithRetry(ctx, &cfg.Database, 5, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	registry := prometheus.NewRegistry()
	if _, err := db.RegisterPoolStatsCollector(pool, "meetverse", serviceName, registry); err != nil {
		logger.Warn("Failed to register pool stats collector", logging.Err(err))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		registry: registry,
		metrics:  metrics.NewPipelineMetrics(registry),
	}

	opts := []processing.PipelineOption{
		processing.WithNotifier(notify.NewLogNotifier(logger)),
		processing.WithMetrics(a.metrics),
	}

	if cfg.Deepgram.IsConfigured() {
		transcriber, err := asr.NewClient(&cfg.Deepgram, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("creating transcription client: %w", err)
		}
		opts = append(opts, processing.WithTranscriber(transcriber))
	} else {
		logger.Warn("Transcription provider not configured; transcription stage will be skipped")
	}

	if cfg.OpenAI.IsConfigured() {
		analyzer, err := ai.NewClient(&cfg.OpenAI, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("creating analysis client: %w", err)
		}
		opts = append(opts, processing.WithAnalyzer(analyzer))
	} else {
		logger.Warn("Analysis provider not configured; analysis stage will be skipped")
	}

	if withQueue {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}

		qcfg := queue.DefaultConfig(cfg.Processing.QueueName)
		qcfg.VisibilityTimeout = cfg.Processing.VisibilityTimeout
		qcfg.MaxRetries = cfg.Processing.MaxRetries
		a.queue = queue.NewRedisQueue(a.redis, qcfg, logger)
		opts = append(opts, processing.WithEnqueuer(a.queue))
	}

	store := meetings.NewRepository(pool, logger)
	a.pipeline = processing.NewPipeline(store, logger, opts...)
	return a, nil
}

func (a *app) close() {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// queueHandler adapts the pipeline for the worker pool. A failed run returns
// an error so the message is nacked and retried.
func queueHandler(pipeline *processing.Pipeline) workers.Handler {
	return func(ctx context.Context, msg *queue.ProcessingMessage) error {
		var result *processing.Result
		if msg.Reprocess {
			result = pipeline.ReprocessMeeting(ctx, msg.MeetingID)
		} else {
			result = pipeline.ProcessMeeting(ctx, msg.MeetingID, processing.Options{
				SkipTranscription:  msg.SkipTranscription,
				SkipAnalysis:       msg.SkipAnalysis,
				AudioURL:           msg.AudioURL,
				ExistingTranscript: msg.ExistingTranscript,
				NotifyParticipants: msg.NotifyParticipants,
			})
		}
		if !result.Success {
			return fmt.Errorf("processing meeting %s: %s", msg.MeetingID, strings.Join(result.Errors, "; "))
		}
		return nil
	}
}
