package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/gobeaver/cowkit"
)

// Adapter exposes a ZIP archive as a read-only cowkit.FileSystem. Archives
// make natural base layers: a released bundle overlaid with local edits.
type Adapter struct {
	path   string
	reader *zip.Reader
	closer io.Closer
	files  map[string]*zipEntry
}

// zipEntry represents a file or directory in the ZIP
type zipEntry struct {
	file  *zip.File // nil for implicit directories
	isDir bool
}

// Open opens an existing ZIP file
func Open(zipPath string) (*Adapter, error) {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	a := newAdapter(&rc.Reader)
	a.path = zipPath
	a.closer = rc
	return a, nil
}

// NewFromReader indexes an archive held in r, for instance one downloaded
// into memory.
func NewFromReader(r io.ReaderAt, size int64) (*Adapter, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip: %w", err)
	}
	return newAdapter(zr), nil
}

func newAdapter(zr *zip.Reader) *Adapter {
	a := &Adapter{
		reader: zr,
		files:  make(map[string]*zipEntry),
	}

	// Build file index
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		if name == "" || !isValidPath(name) {
			continue
		}
		a.files[name] = &zipEntry{
			file:  f,
			isDir: f.FileInfo().IsDir(),
		}

		// Archives may omit entries for parent directories
		a.ensureParentDirs(name)
	}
	return a
}

// Path returns the archive path, or "" for archives opened from a reader.
func (a *Adapter) Path() string {
	return a.path
}

// Close releases the underlying archive file
func (a *Adapter) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Read implements cowkit.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	filePath = normalizePath(filePath)

	entry, exists := a.files[filePath]
	if !exists {
		return nil, &cowkit.PathError{Op: "read", Path: filePath, Err: cowkit.ErrNotExist}
	}
	if entry.isDir {
		return nil, &cowkit.PathError{Op: "read", Path: filePath, Err: cowkit.ErrIsDir}
	}

	rc, err := entry.file.Open()
	if err != nil {
		return nil, &cowkit.PathError{Op: "read", Path: filePath, Err: err}
	}
	return rc, nil
}

// ReadAll reads the entire file contents
func (a *Adapter) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := a.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FileExists checks if a file exists at the given path
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	entry, exists := a.files[normalizePath(filePath)]
	return exists && !entry.isDir, nil
}

// DirExists checks if a directory exists at the given path
func (a *Adapter) DirExists(ctx context.Context, dirPath string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	dirPath = normalizePath(dirPath)
	if dirPath == "" {
		return true, nil
	}

	entry, exists := a.files[dirPath]
	return exists && entry.isDir, nil
}

// Stat implements cowkit.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*cowkit.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	filePath = normalizePath(filePath)

	entry, exists := a.files[filePath]
	if !exists {
		return nil, &cowkit.PathError{Op: "stat", Path: filePath, Err: cowkit.ErrNotExist}
	}

	info := entry.info(filePath)
	return &info, nil
}

func (e *zipEntry) info(entryPath string) cowkit.FileInfo {
	fi := cowkit.FileInfo{
		Name:  path.Base(entryPath),
		Path:  entryPath,
		IsDir: e.isDir,
	}
	if e.file != nil {
		fi.ModTime = e.file.Modified
	}
	if e.isDir {
		return fi
	}

	fi.Size = int64(e.file.UncompressedSize64)
	fi.ContentType = cowkit.GuessContentType(entryPath, nil)
	fi.Visibility = modeVisibility(e.file.Mode())
	if e.file.Comment != "" {
		fi.Metadata = map[string]string{"comment": e.file.Comment}
	}
	return fi
}

// ListContents lists files and directories at the given path
func (a *Adapter) ListContents(ctx context.Context, prefix string, recursive bool) ([]cowkit.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	prefix = normalizePath(prefix)

	// Check if prefix is a directory
	if prefix != "" {
		entry, exists := a.files[prefix]
		if !exists {
			return nil, &cowkit.PathError{Op: "listcontents", Path: prefix, Err: cowkit.ErrNotExist}
		}
		if !entry.isDir {
			return nil, &cowkit.PathError{Op: "listcontents", Path: prefix, Err: cowkit.ErrNotDir}
		}
	}

	var files []cowkit.FileInfo
	for entryPath, entry := range a.files {
		var relPath string
		if prefix == "" {
			relPath = entryPath
		} else {
			if !strings.HasPrefix(entryPath, prefix+"/") {
				continue
			}
			relPath = strings.TrimPrefix(entryPath, prefix+"/")
		}

		// Non-recursive: only immediate children; parents are indexed too
		if !recursive && strings.Contains(relPath, "/") {
			continue
		}

		files = append(files, entry.info(entryPath))
	}

	// Sort by path
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Write returns ErrReadOnly
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...cowkit.Option) error {
	return &cowkit.PathError{Op: "write", Path: filePath, Err: cowkit.ErrReadOnly}
}

// Delete returns ErrReadOnly
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	return &cowkit.PathError{Op: "delete", Path: filePath, Err: cowkit.ErrReadOnly}
}

// CreateDir returns ErrReadOnly
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	return &cowkit.PathError{Op: "createdir", Path: dirPath, Err: cowkit.ErrReadOnly}
}

// DeleteDir returns ErrReadOnly
func (a *Adapter) DeleteDir(ctx context.Context, dirPath string) error {
	return &cowkit.PathError{Op: "deletedir", Path: dirPath, Err: cowkit.ErrReadOnly}
}

// ensureParentDirs ensures all parent directories are in the index
func (a *Adapter) ensureParentDirs(filePath string) {
	dir := path.Dir(filePath)
	for dir != "." && dir != "/" && dir != "" {
		if _, exists := a.files[dir]; !exists {
			a.files[dir] = &zipEntry{isDir: true}
		}
		dir = path.Dir(dir)
	}
}

// normalizePath normalizes a file path
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// isValidPath rejects entries that climb out of the archive root
func isValidPath(p string) bool {
	return p != ".." && !strings.HasPrefix(p, "../")
}

// modeVisibility reads visibility from the unix mode stored in the entry,
// treating archives without one as public.
func modeVisibility(mode os.FileMode) cowkit.Visibility {
	if mode.Perm() != 0 && mode.Perm()&0044 == 0 {
		return cowkit.Private
	}
	return cowkit.Public
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================

// Checksum implements cowkit.CanChecksum. CRC32 comes from the archive
// header; other algorithms decompress the entry.
func (a *Adapter) Checksum(ctx context.Context, filePath string, algorithm cowkit.ChecksumAlgorithm) (string, error) {
	if algorithm == cowkit.ChecksumCRC32 {
		entry, ok := a.files[normalizePath(filePath)]
		if !ok || entry.isDir {
			return "", &cowkit.PathError{Op: "checksum", Path: filePath, Err: cowkit.ErrNotExist}
		}
		return fmt.Sprintf("%08x", entry.file.CRC32), nil
	}

	reader, err := a.Read(ctx, filePath)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	checksum, err := cowkit.CalculateChecksum(reader, algorithm)
	if err != nil {
		return "", &cowkit.PathError{Op: "checksum", Path: filePath, Err: err}
	}
	return checksum, nil
}

// Checksums implements cowkit.CanChecksum for efficient multi-hash calculation.
func (a *Adapter) Checksums(ctx context.Context, filePath string, algorithms []cowkit.ChecksumAlgorithm) (map[cowkit.ChecksumAlgorithm]string, error) {
	reader, err := a.Read(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	checksums, err := cowkit.CalculateChecksums(reader, algorithms)
	if err != nil {
		return nil, &cowkit.PathError{Op: "checksums", Path: filePath, Err: err}
	}
	return checksums, nil
}

// Ensure Adapter implements interfaces
var (
	_ cowkit.FileSystem  = (*Adapter)(nil)
	_ cowkit.CanChecksum = (*Adapter)(nil)
)
