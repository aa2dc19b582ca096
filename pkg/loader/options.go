package loader

import (
	"log/slog"

	"github.com/leapstack-labs/blux/pkg/core"
)

// Defaults.
const (
	DefaultChunkSize  = 100000
	DefaultErrorLimit = 1
)

// Option configures a Loader.
type Option func(*Loader)

// WithChunkSize sets the maximum number of rows per bulk call. Values
// below 1 keep the default.
func WithChunkSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.chunkSize = n
		}
	}
}

// WithErrorLimit bounds how many warnings a native-chunked backend returns
// per chunk.
func WithErrorLimit(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.errorLimit = n
		}
	}
}

// WithPolicy sets what happens after a chunk fails with a statement or
// type error.
func WithPolicy(p core.FailurePolicy) Option {
	return func(l *Loader) { l.policy = p }
}

// WithLogger sets the logger used when verbose output is on.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithVerbose turns on per-chunk progress logging.
func WithVerbose(v bool) Option {
	return func(l *Loader) { l.verbose = v }
}
