//go:build unix

package local

import (
	"os"
	"strconv"
	"syscall"
	"time"
)

// extractPlatformInfo extracts platform-specific file information on Unix systems.
func extractPlatformInfo(info os.FileInfo) (owner string, createdAt *time.Time) {
	sys := info.Sys()
	if sys == nil {
		return "", nil
	}

	stat, ok := sys.(*syscall.Stat_t)
	if !ok {
		return "", nil
	}

	// On Linux the birth time is usually unavailable
	return strconv.FormatUint(uint64(stat.Uid), 10), extractBirthTime(stat)
}
