package zip

import (
	"errors"

	"github.com/gobeaver/cowkit"
)

func init() {
	cowkit.RegisterDriver("zip", func(cfg *cowkit.DriverConfig) (cowkit.FileSystem, error) {
		if cfg.Layer == cowkit.LayerTop {
			return nil, errors.New("zip driver is read-only and cannot serve as the top layer")
		}
		if cfg.ZipPath == "" {
			return nil, errors.New("zip driver requires a zip path")
		}
		return Open(cfg.ZipPath)
	})
}
