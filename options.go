package rcask

import (
	"io"
	"log/slog"
)

// defaultMaxWrites is the compaction threshold used when none is given.
const defaultMaxWrites = 10000

// options defines all configuration options for the store.
type options struct {
	pattern   string       // base name of segment files
	maxWrites int          // writes between compactions
	logger    *slog.Logger // destination for compaction events and anomalies
}

// Option is a function that configures the store options.
type Option func(*options)

// WithPattern sets the base name of segment files. A segment with suffix n
// lives at {directory}/{pattern}.{n}.log.
func WithPattern(pattern string) Option {
	return func(o *options) {
		o.pattern = pattern
	}
}

// WithMaxWrites sets the number of successful writes after which the store
// synchronously compacts itself.
func WithMaxWrites(n int) Option {
	return func(o *options) {
		o.maxWrites = n
	}
}

// WithLogger sets the structured logger for compaction events and read
// anomalies. By default the store is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		pattern:   "data",
		maxWrites: defaultMaxWrites,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
