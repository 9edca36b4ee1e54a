// Package api exposes the processing pipeline over HTTP.
package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mejba13/meetverse-ai-sub000/pkg/buildinfo"
	"github.com/mejba13/meetverse-ai-sub000/pkg/db"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/processing"
)

// Router wires the HTTP surface of the processing service.
type Router struct {
	mux      *http.ServeMux
	handler  *ProcessingHandler
	pool     *pgxpool.Pool
	redis    *redis.Client
	registry *prometheus.Registry
	logger   logging.Logger
}

// NewRouter creates a router. The pool and redis client may be nil (tests,
// queue-less deployments); the health endpoint reports degraded for a nil
// pool and skips the redis check for a nil client.
func NewRouter(pipeline *processing.Pipeline, pool *pgxpool.Pool, rdb *redis.Client, registry *prometheus.Registry, logger logging.Logger) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		handler:  NewProcessingHandler(pipeline, logger),
		pool:     pool,
		redis:    rdb,
		registry: registry,
		logger:   logger.With(logging.F("component", "api_router")),
	}
}

// SetupRoutes configures all routes and returns the root handler.
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /healthz", r.handleHealth)
	r.mux.Handle("GET /metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.mux.HandleFunc("GET /version", buildinfo.Handler("processing"))

	r.mux.HandleFunc("POST /api/meetings/{id}/process", r.handler.ProcessMeeting)
	r.mux.HandleFunc("POST /api/meetings/{id}/queue", r.handler.QueueMeetingForProcessing)
	r.mux.HandleFunc("POST /api/meetings/{id}/reprocess", r.handler.ReprocessMeeting)
	r.mux.HandleFunc("GET /api/meetings/{id}/processing-status", r.handler.GetProcessingStatus)

	return logRequests(r.logger, r.mux)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	dbStatus := db.Check(req.Context(), r.pool)
	if !dbStatus.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "degraded",
			"reason":   dbStatus.Error,
			"database": dbStatus,
		})
		return
	}
	if r.redis != nil {
		if err := r.redis.Ping(req.Context()).Err(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "degraded",
				"reason":   err.Error(),
				"database": dbStatus,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": dbStatus,
	})
}

// logRequests logs each request at debug level.
func logRequests(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logger.Debug("HTTP request",
			logging.F("method", req.Method),
			logging.F("path", req.URL.Path),
		)
		next.ServeHTTP(w, req)
	})
}
