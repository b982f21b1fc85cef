//go:build darwin

package local

import (
	"syscall"
	"time"
)

// extractBirthTime reads the creation time macOS keeps in Birthtimespec.
func extractBirthTime(stat *syscall.Stat_t) *time.Time {
	t := time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
	if t.IsZero() {
		return nil
	}
	return &t
}
