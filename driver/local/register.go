package local

import "github.com/gobeaver/cowkit"

// Metadata keys reported by Stat and ListContents for regular files.
const (
	MetadataOwner     = "owner"
	MetadataCreatedAt = "created_at"
)

func init() {
	cowkit.RegisterDriver("local", func(cfg *cowkit.DriverConfig) (cowkit.FileSystem, error) {
		return New(cfg.LocalPath)
	})
}
