package overlay

import (
	"path"
	"strings"
)

// FilePath returns the canonical form of p used as a file tombstone key:
// cleaned the way the drivers clean paths, with exactly one leading slash.
func FilePath(p string) string {
	return path.Clean("/" + p)
}

// DirPath returns the canonical form of p used as a directory tombstone key:
// one leading and one trailing slash. The root is "/".
func DirPath(p string) string {
	return strings.TrimRight(FilePath(p), "/") + "/"
}

// IsUnder reports whether p lies at or below the directory prefix dir.
// Both arguments are normalized with DirPath first.
func IsUnder(p, dir string) bool {
	return strings.HasPrefix(DirPath(p), DirPath(dir))
}

// parentDir returns the directory containing p, or "" for top-level paths.
func parentDir(p string) string {
	p = strings.Trim(p, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}
