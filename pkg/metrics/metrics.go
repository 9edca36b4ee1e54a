// Package metrics defines Prometheus instrumentation for the processing
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meetverse"

// PipelineMetrics instruments post-meeting pipeline runs.
type PipelineMetrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	SegmentsCreated    prometheus.Counter
	ActionItemsCreated prometheus.Counter
	QueueDepth         prometheus.Gauge
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)

	return &PipelineMetrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		SegmentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "transcript_segments_created_total",
			Help:      "Transcript segments persisted by the pipeline",
		}),
		ActionItemsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "action_items_created_total",
			Help:      "Action items persisted by the pipeline",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current processing queue depth",
		}),
	}
}

// SetQueueDepth records the current processing queue depth.
func (m *PipelineMetrics) SetQueueDepth(depth int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// RecordRun updates run counters for one completed pipeline run.
func (m *PipelineMetrics) RecordRun(success bool, durationSeconds float64, segments, items int) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(durationSeconds)
	m.SegmentsCreated.Add(float64(segments))
	m.ActionItemsCreated.Add(float64(items))
}
