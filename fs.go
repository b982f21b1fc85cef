package cowkit

import (
	"context"
	"io"
	"time"
)

// FileInfo describes a file or directory as one layer, or the merged
// overlay, sees it. Path is slash separated and relative to the layer root.
// Directories carry no size, content type or visibility.
type FileInfo struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	ContentType string
	Visibility  Visibility
	Metadata    map[string]string
}

// FileReader is the read half of a storage layer. An overlay only ever
// needs a FileReader from its base, and ReadOnlyFileSystem narrows a
// FileSystem down to it.
type FileReader interface {
	// Read opens a stream over the file content. The caller closes it.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// ReadAll loads the whole file.
	ReadAll(ctx context.Context, path string) ([]byte, error)

	// FileExists reports whether a regular file sits at path. A directory
	// at path yields false.
	FileExists(ctx context.Context, path string) (bool, error)

	// DirExists reports whether a directory sits at path. The empty path is
	// the layer root.
	DirExists(ctx context.Context, path string) (bool, error)

	Stat(ctx context.Context, path string) (*FileInfo, error)

	// ListContents returns the entries below path: direct children, or
	// every descendant when recursive is set.
	ListContents(ctx context.Context, path string, recursive bool) ([]FileInfo, error)
}

// FileWriter is the write half of a storage layer.
type FileWriter interface {
	// Write stores everything r yields at path, creating parent
	// directories. An existing file is only replaced with WithOverwrite.
	Write(ctx context.Context, path string, r io.Reader, opts ...Option) error

	Delete(ctx context.Context, path string) error

	// CreateDir creates path and any missing parents.
	CreateDir(ctx context.Context, path string) error

	// DeleteDir removes path with everything below it.
	DeleteDir(ctx context.Context, path string) error
}

// FileSystem is a storage layer that can be both read and written, such as
// the top of an overlay.
type FileSystem interface {
	FileReader
	FileWriter
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Drivers implement these when the backend can do the work itself. Callers
// probe with a type assertion and fall back to generic code otherwise:
//
//	if mover, ok := top.(cowkit.CanMove); ok {
//	    return mover.Move(ctx, src, dst)
//	}

// CanCopy is implemented by layers that copy a file without streaming it
// through the caller.
type CanCopy interface {
	Copy(ctx context.Context, src, dst string, opts ...Option) error
}

// CanMove is implemented by layers that rename a file in place.
type CanMove interface {
	Move(ctx context.Context, src, dst string, opts ...Option) error
}

// CanSetVisibility is implemented by layers that change the visibility of
// a stored file. Stat reports the current value in FileInfo.Visibility.
type CanSetVisibility interface {
	SetVisibility(ctx context.Context, path string, visibility Visibility) error
}

// ChecksumAlgorithm names a hash that CalculateChecksum understands.
type ChecksumAlgorithm string

// Supported checksum algorithms. Results are hex encoded.
const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"  // IEEE polynomial
	ChecksumXXHash ChecksumAlgorithm = "xxhash" // XXH64, seed 0
)

// CanChecksum is implemented by layers that hash content themselves,
// either locally or through the backend.
//
//	if cs, ok := layer.(cowkit.CanChecksum); ok {
//	    sum, err := cs.Checksum(ctx, "file.txt", cowkit.ChecksumSHA256)
//	}
type CanChecksum interface {
	Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error)

	// Checksums hashes the file once for all the given algorithms.
	Checksums(ctx context.Context, path string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error)
}

// CanSignURL is implemented by object stores that hand out temporary URLs
// for direct client access.
type CanSignURL interface {
	SignedURL(ctx context.Context, path string, expires time.Duration) (string, error)
	SignedUploadURL(ctx context.Context, path string, expires time.Duration) (string, error)
}

// CanPublicURL is implemented by layers that serve files at a stable URL.
type CanPublicURL interface {
	PublicURL(ctx context.Context, path string) (string, error)
}
