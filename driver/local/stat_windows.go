//go:build windows

package local

import (
	"os"
	"syscall"
	"time"
)

// extractPlatformInfo extracts platform-specific file information on Windows.
func extractPlatformInfo(info os.FileInfo) (owner string, createdAt *time.Time) {
	data, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return "", nil
	}

	t := time.Unix(0, data.CreationTime.Nanoseconds())
	if !t.IsZero() {
		createdAt = &t
	}

	// Owner lookup needs GetSecurityInfo
	return "", createdAt
}
