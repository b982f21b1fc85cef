package overlay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gobeaver/cowkit"
)

// Global instance
var (
	defaultAdapter *Adapter
	defaultOnce    sync.Once
	defaultErr     error

	metricsOnce    sync.Once
	defaultMetrics *Metrics
)

// Builder creates overlays from environment variables carrying a custom prefix
type Builder struct {
	prefix    string
	logOut    io.Writer
	configure []func(*cowkit.Config)
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// LogTo directs the configured logger to w instead of stderr.
func (b *Builder) LogTo(w io.Writer) *Builder {
	b.logOut = w
	return b
}

// Configure registers fn to adjust the loaded config before the overlay is
// built, e.g. to apply command line overrides.
func (b *Builder) Configure(fn func(*cowkit.Config)) *Builder {
	b.configure = append(b.configure, fn)
	return b
}

func (b *Builder) config() (*cowkit.Config, error) {
	cfg, err := cowkit.GetConfigWithPrefix(b.prefix)
	if err != nil {
		return nil, err
	}
	for _, fn := range b.configure {
		fn(cfg)
	}
	return cfg, nil
}

// Init initializes the global overlay using the builder's prefix
func (b *Builder) Init() error {
	cfg, err := b.config()
	if err != nil {
		return err
	}
	return Init(cfg)
}

// New creates an overlay using the builder's prefix
func (b *Builder) New() (*Adapter, error) {
	cfg, err := b.config()
	if err != nil {
		return nil, err
	}
	return newFromConfig(cfg, b.logOut)
}

// Init initializes the global overlay instance
func Init(configs ...*cowkit.Config) error {
	defaultOnce.Do(func() {
		var cfg *cowkit.Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = cowkit.GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultAdapter, defaultErr = NewFromConfig(cfg)
	})

	return defaultErr
}

// Default returns the global instance, initializing if needed with error handling
func Default() (*Adapter, error) {
	if defaultAdapter == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return defaultAdapter, nil
}

// NewFromEnv creates an overlay from environment variables
func NewFromEnv() (*Adapter, error) {
	cfg, err := cowkit.GetConfig()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultAdapter = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// NewFromConfig builds both layers through the driver registry and wires
// logging and metrics as configured. Drivers must have been registered,
// usually by importing their packages.
func NewFromConfig(cfg *cowkit.Config) (*Adapter, error) {
	return newFromConfig(cfg, nil)
}

func newFromConfig(cfg *cowkit.Config, logOut io.Writer) (*Adapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	base, err := cowkit.CreateDriver(cfg.Layer(cowkit.LayerBase))
	if err != nil {
		return nil, fmt.Errorf("failed to create base driver: %w", err)
	}
	top, err := cowkit.CreateDriver(cfg.Layer(cowkit.LayerTop))
	if err != nil {
		return nil, fmt.Errorf("failed to create top driver: %w", err)
	}

	if logOut == nil {
		logOut = os.Stderr
	}
	opts := []Option{
		WithTop(top),
		WithSoftDeletedFilesPath(cfg.SoftDeletedFilesPath),
		WithSoftDeletedDirectoriesPath(cfg.SoftDeletedDirectoriesPath),
		WithLogger(NewLogger(logOut, cfg.LogLevel, cfg.LogFormat)),
	}
	if cfg.MetricsEnabled {
		opts = append(opts, WithMetrics(registeredMetrics()))
	}
	if cfg.BaseCacheSize > 0 {
		opts = append(opts, WithBaseCache(cfg.BaseCacheSize))
	}

	return New(base, opts...), nil
}

// registeredMetrics returns collectors registered once with the default
// Prometheus registerer, shared by every config-built overlay.
func registeredMetrics() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// validateConfig checks configuration validity
func validateConfig(cfg *cowkit.Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := validateLayer(cfg.Layer(cowkit.LayerBase)); err != nil {
		return fmt.Errorf("base layer: %w", err)
	}
	if err := validateLayer(cfg.Layer(cowkit.LayerTop)); err != nil {
		return fmt.Errorf("top layer: %w", err)
	}
	if cfg.SoftDeletedFilesPath != "" && FilePath(cfg.SoftDeletedFilesPath) == FilePath(cfg.SoftDeletedDirectoriesPath) {
		return errors.New("file and directory tombstones must use different paths")
	}
	return nil
}

func validateLayer(dc *cowkit.DriverConfig) error {
	switch dc.Driver {
	case "":
		return errors.New("driver is required")
	case "local":
		if dc.LocalPath == "" {
			return errors.New("local path is required for local driver")
		}
	case "zip":
		if dc.Layer == cowkit.LayerTop {
			return errors.New("zip driver is read-only and cannot be used as top layer")
		}
		if dc.ZipPath == "" {
			return errors.New("zip path is required for zip driver")
		}
	case "s3":
		if dc.S3Bucket == "" {
			return errors.New("S3 bucket is required for S3 driver")
		}
		// Access keys can be provided via IAM roles, so not always required
	}
	return nil
}
