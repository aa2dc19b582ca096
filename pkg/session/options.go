package session

import (
	"log/slog"

	"github.com/leapstack-labs/blux/pkg/loader"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger handed to the adapter, loader and introspector.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVerbose turns on progress logging.
func WithVerbose(v bool) Option {
	return func(s *Session) { s.verbose = v }
}

// WithJournal records every load report in j.
func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithLoaderOptions passes options to the session's loader.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(s *Session) { s.loaderOpts = append(s.loaderOpts, opts...) }
}
