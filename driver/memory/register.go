package memory

import "github.com/gobeaver/cowkit"

func init() {
	cowkit.RegisterDriver("memory", func(cfg *cowkit.DriverConfig) (cowkit.FileSystem, error) {
		return New(Config{MaxSize: cfg.MaxSize}), nil
	})
}
