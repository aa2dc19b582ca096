// Package metrics records load metrics through a pluggable backend.
//
// The default backend is a no-op, so instrumentation is always safe to call.
// Concrete systems (Prometheus Pushgateway, DogStatsD) live in subpackages
// and are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names.
const (
	ChunkTotal           = "blux_chunk_total"
	ChunkDurationSeconds = "blux_chunk_duration_seconds"
	RowsTotal            = "blux_rows_total"
	LoadTotal            = "blux_load_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil restores the no-op
// backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordChunk records one bulk call (a chunk, or the single stream of a
// stream-copy load).
func RecordChunk(dialect string, err error, d time.Duration) {
	lbls := Labels{"dialect": dialect, "status": status(err)}
	b := current()
	b.IncCounter(ChunkTotal, 1, lbls)
	b.ObserveHistogram(ChunkDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the row counter for kind ("attempted",
// "succeeded").
func RecordRows(dialect, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"dialect": dialect, "kind": kind})
}

// RecordLoad counts one finished load with its report status.
func RecordLoad(dialect, reportStatus string) {
	current().IncCounter(LoadTotal, 1, Labels{"dialect": dialect, "status": reportStatus})
}
