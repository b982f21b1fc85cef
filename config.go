package cowkit

import (
	"github.com/gobeaver/beaver-kit/config"
)

// Layer identifies one side of an overlay.
type Layer string

const (
	// LayerBase is the immutable layer that holds pre-existing data.
	LayerBase Layer = "base"
	// LayerTop is the mutable layer that receives every write.
	LayerTop Layer = "top"
)

type Config struct {
	// Base layer driver (local, s3, zip, memory)
	BaseDriver string `env:"COWKIT_BASE_DRIVER,default:local"`

	// Base layer: local driver root / zip archive path
	BaseLocalPath string `env:"COWKIT_BASE_LOCAL_PATH,default:./storage"`
	BaseZipPath   string `env:"COWKIT_BASE_ZIP_PATH"`

	// Base layer: S3 driver configuration
	BaseS3Region          string `env:"COWKIT_BASE_S3_REGION,default:us-east-1"`
	BaseS3Bucket          string `env:"COWKIT_BASE_S3_BUCKET"`
	BaseS3Prefix          string `env:"COWKIT_BASE_S3_PREFIX"`
	BaseS3Endpoint        string `env:"COWKIT_BASE_S3_ENDPOINT"`
	BaseS3AccessKeyID     string `env:"COWKIT_BASE_S3_ACCESS_KEY_ID"`
	BaseS3SecretAccessKey string `env:"COWKIT_BASE_S3_SECRET_ACCESS_KEY"`
	BaseS3ForcePathStyle  bool   `env:"COWKIT_BASE_S3_FORCE_PATH_STYLE,default:false"`
	BaseS3PublicURL       string `env:"COWKIT_BASE_S3_PUBLIC_URL"` // Optional public URL prefix

	// Base layer metadata cache entries, 0 = disabled
	BaseCacheSize int `env:"COWKIT_BASE_CACHE_SIZE,default:0"`

	// Top layer driver (memory, local)
	TopDriver    string `env:"COWKIT_TOP_DRIVER,default:memory"`
	TopLocalPath string `env:"COWKIT_TOP_LOCAL_PATH,default:./overlay"`
	TopMaxSize   int64  `env:"COWKIT_TOP_MAX_SIZE,default:0"` // memory driver only, 0 = unlimited

	// Tombstone blob locations inside the top layer
	SoftDeletedFilesPath       string `env:"COWKIT_SOFT_DELETED_FILES_PATH,default:.soft_deleted_files.json"`
	SoftDeletedDirectoriesPath string `env:"COWKIT_SOFT_DELETED_DIRECTORIES_PATH,default:.soft_deleted_directories.json"`

	// Logging and metrics
	LogLevel       string `env:"COWKIT_LOG_LEVEL,default:info"`
	LogFormat      string `env:"COWKIT_LOG_FORMAT,default:text"`
	MetricsEnabled bool   `env:"COWKIT_METRICS_ENABLED,default:false"`
}

// DriverConfig is the driver-facing projection of Config for a single layer.
type DriverConfig struct {
	Layer  Layer
	Driver string

	LocalPath string
	ZipPath   string
	MaxSize   int64

	S3Region          string
	S3Bucket          string
	S3Prefix          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3ForcePathStyle  bool
	S3PublicURL       string
}

// Layer returns the driver settings for the given overlay layer.
func (c *Config) Layer(layer Layer) *DriverConfig {
	if layer == LayerTop {
		return &DriverConfig{
			Layer:     LayerTop,
			Driver:    c.TopDriver,
			LocalPath: c.TopLocalPath,
			MaxSize:   c.TopMaxSize,
		}
	}
	return &DriverConfig{
		Layer:             LayerBase,
		Driver:            c.BaseDriver,
		LocalPath:         c.BaseLocalPath,
		ZipPath:           c.BaseZipPath,
		S3Region:          c.BaseS3Region,
		S3Bucket:          c.BaseS3Bucket,
		S3Prefix:          c.BaseS3Prefix,
		S3Endpoint:        c.BaseS3Endpoint,
		S3AccessKeyID:     c.BaseS3AccessKeyID,
		S3SecretAccessKey: c.BaseS3SecretAccessKey,
		S3ForcePathStyle:  c.BaseS3ForcePathStyle,
		S3PublicURL:       c.BaseS3PublicURL,
	}
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigWithPrefix loads config from environment variables carrying the
// given prefix instead of the default one.
func GetConfigWithPrefix(prefix string) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}
