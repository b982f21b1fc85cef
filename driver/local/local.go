package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gobeaver/cowkit"
)

// File modes applied for each visibility
const (
	publicFileMode  fs.FileMode = 0644
	privateFileMode fs.FileMode = 0600
	dirMode         fs.FileMode = 0755
)

// stagingDir holds partially written files below the root. It is hidden
// from listings and cannot be addressed.
const stagingDir = ".cowkit-staging"

// Adapter stores files below a directory on the local disk.
type Adapter struct {
	root string
}

// New creates the root directory when missing and returns an adapter
// rooted at its absolute path.
func New(root string) (*Adapter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, dirMode); err != nil {
		return nil, err
	}
	return &Adapter{root: abs}, nil
}

// Root returns the absolute directory the adapter is rooted at.
func (a *Adapter) Root() string {
	return a.root
}

// resolve maps a storage path onto the local disk, refusing paths that
// escape the root.
func (a *Adapter) resolve(op, path string) (string, error) {
	full := filepath.Join(a.root, filepath.FromSlash(path))
	if !isPathUnderRoot(a.root, full) || a.isStaging(full) {
		return "", &cowkit.PathError{Op: op, Path: path, Err: cowkit.ErrNotAllowed}
	}
	return full, nil
}

func (a *Adapter) isStaging(full string) bool {
	staging := filepath.Join(a.root, stagingDir)
	return full == staging || strings.HasPrefix(full, staging+string(filepath.Separator))
}

// pathError wraps an os error, translating the io/fs sentinels.
func pathError(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = cowkit.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		err = cowkit.ErrExist
	case errors.Is(err, fs.ErrPermission):
		err = cowkit.ErrPermission
	case errors.Is(err, syscall.ENOTDIR):
		err = cowkit.ErrNotDir
	}
	return &cowkit.PathError{Op: op, Path: path, Err: err}
}

// Write implements cowkit.FileWriter. Overwrites are staged in a temporary
// file and renamed into place, so readers never see a partial file.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...cowkit.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := a.resolve("write", path)
	if err != nil {
		return err
	}
	if full == a.root {
		return &cowkit.PathError{Op: "write", Path: path, Err: cowkit.ErrNotAllowed}
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return &cowkit.PathError{Op: "write", Path: path, Err: cowkit.ErrIsDir}
	}

	opts := cowkit.ApplyOptions(options...)
	if err := os.MkdirAll(filepath.Dir(full), dirMode); err != nil {
		return pathError("write", path, err)
	}

	if !opts.Overwrite {
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
		if err != nil {
			return pathError("write", path, err)
		}
		if err := fill(f, content, opts.Visibility); err != nil {
			os.Remove(full)
			return pathError("write", path, err)
		}
		return nil
	}

	staging := filepath.Join(a.root, stagingDir)
	if err := os.MkdirAll(staging, dirMode); err != nil {
		return pathError("write", path, err)
	}
	tmp, err := os.CreateTemp(staging, filepath.Base(full)+".*")
	if err != nil {
		return pathError("write", path, err)
	}
	visibility := opts.Visibility
	if visibility == "" {
		// CreateTemp uses 0600, keep the mode a plain create would get
		visibility = cowkit.Public
		if prev, err := os.Stat(full); err == nil {
			visibility = modeVisibility(prev.Mode())
		}
	}
	if err := fill(tmp, content, visibility); err != nil {
		os.Remove(tmp.Name())
		return pathError("write", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return pathError("write", path, err)
	}
	return nil
}

// fill copies content into f, applies the visibility mode when one is set
// and closes f.
func fill(f *os.File, content io.Reader, visibility cowkit.Visibility) error {
	_, err := io.Copy(f, content)
	if err == nil && visibility != "" {
		err = f.Chmod(visibilityMode(visibility))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Read implements cowkit.FileReader
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := a.resolve("read", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, pathError("read", path, err)
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		f.Close()
		return nil, &cowkit.PathError{Op: "read", Path: path, Err: cowkit.ErrIsDir}
	}
	return f, nil
}

// ReadAll implements cowkit.FileReader
func (a *Adapter) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := a.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete implements cowkit.FileWriter. Directories are left to DeleteDir.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	info, full, err := a.stat(ctx, "delete", path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &cowkit.PathError{Op: "delete", Path: path, Err: cowkit.ErrIsDir}
	}
	if err := os.Remove(full); err != nil {
		return pathError("delete", path, err)
	}
	return nil
}

// FileExists implements cowkit.FileReader
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	info, err := a.probe(ctx, "fileexists", path)
	return info != nil && !info.IsDir(), err
}

// DirExists implements cowkit.FileReader
func (a *Adapter) DirExists(ctx context.Context, path string) (bool, error) {
	info, err := a.probe(ctx, "direxists", path)
	return info != nil && info.IsDir(), err
}

// probe stats path, returning a nil info when it does not exist.
func (a *Adapter) probe(ctx context.Context, op, path string) (os.FileInfo, error) {
	info, _, err := a.stat(ctx, op, path)
	if errors.Is(err, cowkit.ErrNotExist) || errors.Is(err, cowkit.ErrNotDir) {
		return nil, nil
	}
	return info, err
}

// stat resolves path and stats it.
func (a *Adapter) stat(ctx context.Context, op, path string) (os.FileInfo, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	full, err := a.resolve(op, path)
	if err != nil {
		return nil, "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, full, pathError(op, path, err)
	}
	return info, full, nil
}

// Stat implements cowkit.FileReader
func (a *Adapter) Stat(ctx context.Context, path string) (*cowkit.FileInfo, error) {
	info, full, err := a.stat(ctx, "stat", path)
	if err != nil {
		return nil, err
	}
	fi := fileInfo(storagePath(path), full, info)
	return &fi, nil
}

// ListContents implements cowkit.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]cowkit.FileInfo, error) {
	info, full, err := a.stat(ctx, "listcontents", path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &cowkit.PathError{Op: "listcontents", Path: path, Err: cowkit.ErrNotDir}
	}

	var files []cowkit.FileInfo
	err = filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == full {
			return nil
		}
		if a.isStaging(p) {
			return filepath.SkipDir
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// removed while walking
			return nil
		}
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		files = append(files, fileInfo(storagePath(rel), p, info))

		if d.IsDir() && !recursive {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, pathError("listcontents", path, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// fileInfo converts an os.FileInfo into a cowkit.FileInfo for path.
func fileInfo(path, full string, info os.FileInfo) cowkit.FileInfo {
	fi := cowkit.FileInfo{
		Name:    info.Name(),
		Path:    path,
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	if fi.IsDir {
		return fi
	}

	fi.Size = info.Size()
	fi.ContentType = contentType(full)
	fi.Visibility = modeVisibility(info.Mode())

	owner, createdAt := extractPlatformInfo(info)
	if owner == "" && createdAt == nil {
		return fi
	}
	fi.Metadata = make(map[string]string, 2)
	if owner != "" {
		fi.Metadata[MetadataOwner] = owner
	}
	if createdAt != nil {
		fi.Metadata[MetadataCreatedAt] = createdAt.UTC().Format(time.RFC3339)
	}
	return fi
}

// CreateDir implements cowkit.FileWriter
func (a *Adapter) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := a.resolve("createdir", path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		return &cowkit.PathError{Op: "createdir", Path: path, Err: cowkit.ErrExist}
	}
	if err := os.MkdirAll(full, dirMode); err != nil {
		return pathError("createdir", path, err)
	}
	return nil
}

// DeleteDir implements cowkit.FileWriter. It removes the directory and
// everything below it; the root itself cannot be removed.
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	info, full, err := a.stat(ctx, "deletedir", path)
	switch {
	case full == a.root:
		return &cowkit.PathError{Op: "deletedir", Path: path, Err: cowkit.ErrNotAllowed}
	case err != nil:
		return err
	case !info.IsDir():
		return &cowkit.PathError{Op: "deletedir", Path: path, Err: cowkit.ErrNotDir}
	}
	if err := os.RemoveAll(full); err != nil {
		return pathError("deletedir", path, err)
	}
	return nil
}

// isPathUnderRoot reports whether path is root or lies below it.
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// storagePath converts an OS path relative to the root into the slash
// separated form reported in FileInfo.Path.
func storagePath(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+path)), "/")
}

// contentType guesses from the file name first and sniffs the first bytes
// of the file when the extension says nothing.
func contentType(full string) string {
	name := filepath.Base(full)
	if ct := cowkit.GuessContentType(name, nil); ct != cowkit.DefaultContentType {
		return ct
	}

	f, err := os.Open(full)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ""
	}
	return cowkit.GuessContentType(name, head[:n])
}

func visibilityMode(v cowkit.Visibility) fs.FileMode {
	if v == cowkit.Private {
		return privateFileMode
	}
	return publicFileMode
}

// modeVisibility treats any group or world read bit as public.
func modeVisibility(mode fs.FileMode) cowkit.Visibility {
	if mode.Perm()&0044 != 0 {
		return cowkit.Public
	}
	return cowkit.Private
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================

// Copy implements cowkit.CanCopy. The destination is replaced and keeps the
// source mode unless a visibility option is given.
func (a *Adapter) Copy(ctx context.Context, src, dst string, options ...cowkit.Option) error {
	srcInfo, srcPath, err := a.stat(ctx, "copy", src)
	if err != nil {
		return err
	}
	if srcInfo.IsDir() {
		return &cowkit.PathError{Op: "copy", Path: src, Err: cowkit.ErrIsDir}
	}
	in, err := os.Open(srcPath)
	if err != nil {
		return pathError("copy", src, err)
	}
	defer in.Close()

	visibility := modeVisibility(srcInfo.Mode())
	if opts := cowkit.ApplyOptions(options...); opts.Visibility != "" {
		visibility = opts.Visibility
	}
	err = a.Write(ctx, dst, in, cowkit.WithOverwrite(true), cowkit.WithVisibility(visibility))
	if pe, ok := err.(*cowkit.PathError); ok {
		pe.Op = "copy"
	}
	return err
}

// Move implements cowkit.CanMove with a rename, falling back to copy and
// delete across devices.
func (a *Adapter) Move(ctx context.Context, src, dst string, options ...cowkit.Option) error {
	srcInfo, srcPath, err := a.stat(ctx, "move", src)
	if err != nil {
		return err
	}
	if srcInfo.IsDir() {
		return &cowkit.PathError{Op: "move", Path: src, Err: cowkit.ErrIsDir}
	}
	dstPath, err := a.resolve("move", dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), dirMode); err != nil {
		return pathError("move", dst, err)
	}

	if err := os.Rename(srcPath, dstPath); err != nil {
		if err := a.Copy(ctx, src, dst, options...); err != nil {
			return err
		}
		if err := os.Remove(srcPath); err != nil {
			return pathError("move", src, err)
		}
		return nil
	}

	if opts := cowkit.ApplyOptions(options...); opts.Visibility != "" {
		if err := os.Chmod(dstPath, visibilityMode(opts.Visibility)); err != nil {
			return pathError("move", dst, err)
		}
	}
	return nil
}

// SetVisibility implements cowkit.CanSetVisibility by changing mode bits.
func (a *Adapter) SetVisibility(ctx context.Context, path string, visibility cowkit.Visibility) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := a.resolve("setvisibility", path)
	if err != nil {
		return err
	}
	if err := os.Chmod(full, visibilityMode(visibility)); err != nil {
		return pathError("setvisibility", path, err)
	}
	return nil
}

// Checksum implements cowkit.CanChecksum
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm cowkit.ChecksumAlgorithm) (string, error) {
	sums, err := a.checksums(ctx, "checksum", path, []cowkit.ChecksumAlgorithm{algorithm})
	if err != nil {
		return "", err
	}
	return sums[algorithm], nil
}

// Checksums implements cowkit.CanChecksum, hashing the file in one pass.
func (a *Adapter) Checksums(ctx context.Context, path string, algorithms []cowkit.ChecksumAlgorithm) (map[cowkit.ChecksumAlgorithm]string, error) {
	return a.checksums(ctx, "checksums", path, algorithms)
}

func (a *Adapter) checksums(ctx context.Context, op, path string, algorithms []cowkit.ChecksumAlgorithm) (map[cowkit.ChecksumAlgorithm]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := a.resolve(op, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, pathError(op, path, err)
	}
	defer f.Close()

	sums, err := cowkit.CalculateChecksums(f, algorithms)
	if err != nil {
		return nil, &cowkit.PathError{Op: op, Path: path, Err: err}
	}
	return sums, nil
}

var (
	_ cowkit.FileSystem       = (*Adapter)(nil)
	_ cowkit.CanCopy          = (*Adapter)(nil)
	_ cowkit.CanMove          = (*Adapter)(nil)
	_ cowkit.CanSetVisibility = (*Adapter)(nil)
	_ cowkit.CanChecksum      = (*Adapter)(nil)
)
