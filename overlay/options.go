package overlay

import (
	"log/slog"

	"github.com/gobeaver/cowkit"
)

// Option configures an Adapter.
type Option func(*options)

type options struct {
	top       cowkit.FileSystem
	filesPath string
	dirsPath  string
	logger    *slog.Logger
	metrics   *Metrics
	cacheSize int
}

// WithTop sets the mutable layer. Defaults to a fresh memory driver.
func WithTop(top cowkit.FileSystem) Option {
	return func(o *options) {
		o.top = top
	}
}

// WithSoftDeletedFilesPath sets where file tombstones are stored in the top layer.
func WithSoftDeletedFilesPath(p string) Option {
	return func(o *options) {
		o.filesPath = p
	}
}

// WithSoftDeletedDirectoriesPath sets where directory tombstones are stored in the top layer.
func WithSoftDeletedDirectoriesPath(p string) Option {
	return func(o *options) {
		o.dirsPath = p
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithBaseCache memoizes base layer metadata queries in an LRU of the given
// size. The base must not change underneath the overlay while it is used.
func WithBaseCache(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}
