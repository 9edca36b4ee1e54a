package db

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollectorDescribe(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "meetverse", "processing")

	ch := make(chan *prometheus.Desc, 10)
	collector.Describe(ch)
	close(ch)

	var descs []*prometheus.Desc
	for d := range ch {
		descs = append(descs, d)
	}
	assert.Len(t, descs, 4)
}

func TestPoolStatsCollectorNilPoolCollectsNothing(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "meetverse", "processing")

	ch := make(chan prometheus.Metric, 10)
	collector.Collect(ch)
	close(ch)

	var metrics []prometheus.Metric
	for m := range ch {
		metrics = append(metrics, m)
	}
	assert.Empty(t, metrics)
}

func TestRegisterPoolStatsCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	collector, err := RegisterPoolStatsCollector(nil, "meetverse", "processing", reg)
	require.NoError(t, err)
	require.NotNil(t, collector)

	// Registering a second identical collector is tolerated.
	_, err = RegisterPoolStatsCollector(nil, "meetverse", "processing", reg)
	require.NoError(t, err)
}
