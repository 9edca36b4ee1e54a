package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus describes the state of the database connection pool. It is
// serialized as part of the service health response.
type HealthStatus struct {
	Healthy       bool  `json:"healthy"`
	LatencyMs     int64 `json:"latency_ms"`
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	// Error carries the failure reason when Healthy is false.
	Error string `json:"error,omitempty"`
}

// Check pings the database and returns detailed pool status. A nil pool is
// reported as unhealthy rather than treated as a programming error so the
// health endpoint can serve degraded responses before a connection exists.
func Check(ctx context.Context, pool *pgxpool.Pool) *HealthStatus {
	status := &HealthStatus{}

	if pool == nil {
		status.Error = "database not connected"
		return status
	}

	start := time.Now()
	err := pool.Ping(ctx)
	status.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		status.Error = "ping failed: " + err.Error()
		return status
	}

	stats := pool.Stat()
	status.Healthy = true
	status.TotalConns = stats.TotalConns()
	status.IdleConns = stats.IdleConns()
	status.AcquiredConns = stats.AcquiredConns()

	return status
}
