// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A CLI run is short-lived, so metrics are pushed to a Pushgateway on Flush
// instead of being exposed for scraping.
package prompush

import (
	"fmt"

	"github.com/leapstack-labs/blux/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	chunkCounter  *prometheus.CounterVec
	chunkDuration *prometheus.SummaryVec
	rowCounter    *prometheus.CounterVec
	loadCounter   *prometheus.CounterVec
}

// NewBackend constructs a Prometheus Pushgateway backend.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "blux"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		chunkCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ChunkTotal,
			Help: "Bulk calls issued, partitioned by dialect and status.",
		}, []string{"dialect", "status"}),
		chunkDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.ChunkDurationSeconds,
			Help:       "Duration of bulk calls in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"dialect", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows attempted and succeeded per dialect.",
		}, []string{"dialect", "kind"}),
		loadCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.LoadTotal,
			Help: "Finished loads per dialect and report status.",
		}, []string{"dialect", "status"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"chunk counter": b.chunkCounter,
		"chunk summary": b.chunkDuration,
		"row counter":   b.rowCounter,
		"load counter":  b.loadCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.ChunkTotal:
		b.chunkCounter.WithLabelValues(labels["dialect"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["dialect"], labels["kind"]).Add(delta)
	case metrics.LoadTotal:
		b.loadCounter.WithLabelValues(labels["dialect"], labels["status"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.ChunkDurationSeconds {
		return
	}
	b.chunkDuration.WithLabelValues(labels["dialect"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
