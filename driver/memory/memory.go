package memory

import (
	"bytes"
	"context"
	"io"
	"maps"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/cowkit"
)

// node is a file or directory held in memory. The root directory is the
// node at key "".
type node struct {
	dir         bool
	content     []byte
	contentType string
	metadata    map[string]string
	visibility  cowkit.Visibility
	modTime     time.Time
}

// Adapter provides an in-memory implementation of cowkit.FileSystem.
// It is the default top layer of an overlay and is handy in tests.
type Adapter struct {
	mu    sync.RWMutex
	nodes map[string]*node

	maxSize int64 // 0 = unlimited
	size    int64

	defaultVisibility cowkit.Visibility
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total size of file content in bytes (0 = unlimited)
	MaxSize int64

	// DefaultVisibility is used when a write carries no visibility (default: public)
	DefaultVisibility cowkit.Visibility
}

// New creates a new in-memory filesystem adapter
func New(cfg ...Config) *Adapter {
	a := &Adapter{defaultVisibility: cowkit.Public}
	if len(cfg) > 0 {
		a.maxSize = cfg[0].MaxSize
		if cfg[0].DefaultVisibility != "" {
			a.defaultVisibility = cfg[0].DefaultVisibility
		}
	}
	a.reset()
	return a
}

func (a *Adapter) reset() {
	a.nodes = map[string]*node{"": {dir: true, modTime: time.Now()}}
	a.size = 0
}

// Write implements cowkit.FileWriter
func (a *Adapter) Write(ctx context.Context, p string, content io.Reader, options ...cowkit.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, ok := cleanPath(p)
	if !ok || key == "" {
		return &cowkit.PathError{Op: "write", Path: p, Err: cowkit.ErrNotAllowed}
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return &cowkit.PathError{Op: "write", Path: key, Err: err}
	}
	opts := cowkit.ApplyOptions(options...)

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.nodes[key]; ok {
		if existing.dir {
			return &cowkit.PathError{Op: "write", Path: key, Err: cowkit.ErrIsDir}
		}
		if !opts.Overwrite {
			return &cowkit.PathError{Op: "write", Path: key, Err: cowkit.ErrExist}
		}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = cowkit.GuessContentType(key, data)
	}
	visibility := opts.Visibility
	if visibility == "" {
		visibility = a.defaultVisibility
	}

	return a.putFile("write", key, &node{
		content:     data,
		contentType: contentType,
		metadata:    maps.Clone(opts.Metadata),
		visibility:  visibility,
		modTime:     time.Now(),
	})
}

// Read implements cowkit.FileReader
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, n, err := a.file("read", p)
	if err != nil {
		return nil, err
	}
	// content slices are never mutated in place, so readers can share them
	return io.NopCloser(bytes.NewReader(n.content)), nil
}

// ReadAll implements cowkit.FileReader
func (a *Adapter) ReadAll(ctx context.Context, p string) ([]byte, error) {
	rc, err := a.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete implements cowkit.FileWriter
func (a *Adapter) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key, n, err := a.file("delete", p)
	if err != nil {
		return err
	}
	a.size -= int64(len(n.content))
	delete(a.nodes, key)
	return nil
}

// FileExists implements cowkit.FileReader
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	return a.exists(ctx, p, false)
}

// DirExists implements cowkit.FileReader
func (a *Adapter) DirExists(ctx context.Context, p string) (bool, error) {
	return a.exists(ctx, p, true)
}

func (a *Adapter) exists(ctx context.Context, p string, dir bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, ok := cleanPath(p)
	if !ok {
		return false, nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	n, found := a.nodes[key]
	return found && n.dir == dir, nil
}

// Stat implements cowkit.FileReader
func (a *Adapter) Stat(ctx context.Context, p string) (*cowkit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, valid := cleanPath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	n, ok := a.nodes[key]
	if !ok || !valid {
		return nil, &cowkit.PathError{Op: "stat", Path: p, Err: cowkit.ErrNotExist}
	}
	info := n.info(key)
	return &info, nil
}

// ListContents implements cowkit.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, p string, recursive bool) ([]cowkit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, valid := cleanPath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	n, ok := a.nodes[dir]
	switch {
	case !ok || !valid:
		return nil, &cowkit.PathError{Op: "listcontents", Path: p, Err: cowkit.ErrNotExist}
	case !n.dir:
		return nil, &cowkit.PathError{Op: "listcontents", Path: p, Err: cowkit.ErrNotDir}
	}

	var entries []cowkit.FileInfo
	for key, n := range a.nodes {
		if isBelow(key, dir, recursive) {
			entries = append(entries, n.info(key))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// CreateDir implements cowkit.FileWriter
func (a *Adapter) CreateDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, ok := cleanPath(p)
	if !ok {
		return &cowkit.PathError{Op: "createdir", Path: p, Err: cowkit.ErrNotAllowed}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.mkdirAll("createdir", key, time.Now())
}

// DeleteDir implements cowkit.FileWriter. It removes the directory and
// everything below it.
func (a *Adapter) DeleteDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, valid := cleanPath(p)
	if !valid || key == "" {
		return &cowkit.PathError{Op: "deletedir", Path: p, Err: cowkit.ErrNotAllowed}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.nodes[key]
	switch {
	case !ok:
		return &cowkit.PathError{Op: "deletedir", Path: p, Err: cowkit.ErrNotExist}
	case !n.dir:
		return &cowkit.PathError{Op: "deletedir", Path: p, Err: cowkit.ErrNotDir}
	}

	for k, child := range a.nodes {
		if k == key || isBelow(k, key, true) {
			a.size -= int64(len(child.content))
			delete(a.nodes, k)
		}
	}
	return nil
}

// Clear removes all files and directories.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

// Size returns the total size of stored file content.
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of stored files.
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count := 0
	for _, n := range a.nodes {
		if !n.dir {
			count++
		}
	}
	return count
}

// ============================================================================
// Internal helpers (callers hold the lock)
// ============================================================================

// file looks up the file node at p.
func (a *Adapter) file(op, p string) (string, *node, error) {
	key, valid := cleanPath(p)
	n, ok := a.nodes[key]
	if !ok || !valid {
		return key, nil, &cowkit.PathError{Op: op, Path: p, Err: cowkit.ErrNotExist}
	}
	if n.dir {
		return key, nil, &cowkit.PathError{Op: op, Path: p, Err: cowkit.ErrIsDir}
	}
	return key, n, nil
}

// putFile stores n at key, replacing any file already there, after checking
// the size budget and creating the parent directories.
func (a *Adapter) putFile(op, key string, n *node) error {
	grow := int64(len(n.content))
	if existing, ok := a.nodes[key]; ok {
		grow -= int64(len(existing.content))
	}
	if a.maxSize > 0 && a.size+grow > a.maxSize {
		return &cowkit.PathError{Op: op, Path: key, Err: cowkit.ErrNoSpace}
	}
	if err := a.mkdirAll(op, parent(key), n.modTime); err != nil {
		return err
	}

	a.nodes[key] = n
	a.size += grow
	return nil
}

// mkdirAll creates dir and its missing parents. It fails when a file
// occupies any of them. Every existing directory already has its parents.
func (a *Adapter) mkdirAll(op, dir string, now time.Time) error {
	var missing []string
	for d := dir; ; d = parent(d) {
		if n, ok := a.nodes[d]; ok {
			if n.dir {
				break
			}
			err := cowkit.ErrNotDir
			if d == dir && op == "createdir" {
				err = cowkit.ErrExist
			}
			return &cowkit.PathError{Op: op, Path: d, Err: err}
		}
		missing = append(missing, d)
	}

	for _, d := range missing {
		a.nodes[d] = &node{dir: true, modTime: now}
	}
	return nil
}

func (n *node) info(key string) cowkit.FileInfo {
	fi := cowkit.FileInfo{
		Name:    path.Base(key),
		Path:    key,
		ModTime: n.modTime,
		IsDir:   n.dir,
	}
	if key == "" {
		fi.Name = ""
	}
	if !n.dir {
		fi.Size = int64(len(n.content))
		fi.ContentType = n.contentType
		fi.Visibility = n.visibility
		fi.Metadata = maps.Clone(n.metadata)
	}
	return fi
}

// cleanPath turns p into a node key: slash separated, relative, without
// "." segments. It reports false for paths with ".." segments.
func cleanPath(p string) (string, bool) {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/"), true
}

func parent(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return ""
}

// isBelow reports whether key lies inside dir: as a direct child, or at any
// depth when recursive is set.
func isBelow(key, dir string, recursive bool) bool {
	if key == dir {
		return false
	}
	rest := key
	if dir != "" {
		if !strings.HasPrefix(key, dir+"/") {
			return false
		}
		rest = key[len(dir)+1:]
	}
	return recursive || !strings.Contains(rest, "/")
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================

// Copy implements cowkit.CanCopy. The copy replaces any file at dst and
// keeps the source visibility unless opts set one.
func (a *Adapter) Copy(ctx context.Context, src, dst string, options ...cowkit.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dstKey, ok := cleanPath(dst)
	if !ok || dstKey == "" {
		return &cowkit.PathError{Op: "copy", Path: dst, Err: cowkit.ErrNotAllowed}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, n, err := a.file("copy", src)
	if err != nil {
		return err
	}
	if existing, ok := a.nodes[dstKey]; ok && existing.dir {
		return &cowkit.PathError{Op: "copy", Path: dst, Err: cowkit.ErrIsDir}
	}

	dup := *n
	dup.content = bytes.Clone(n.content)
	dup.metadata = maps.Clone(n.metadata)
	dup.modTime = time.Now()
	if opts := cowkit.ApplyOptions(options...); opts.Visibility != "" {
		dup.visibility = opts.Visibility
	}
	return a.putFile("copy", dstKey, &dup)
}

// Move implements cowkit.CanMove
func (a *Adapter) Move(ctx context.Context, src, dst string, options ...cowkit.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dstKey, ok := cleanPath(dst)
	if !ok || dstKey == "" {
		return &cowkit.PathError{Op: "move", Path: dst, Err: cowkit.ErrNotAllowed}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	srcKey, n, err := a.file("move", src)
	if err != nil {
		return err
	}
	if srcKey == dstKey {
		return nil
	}
	if existing, ok := a.nodes[dstKey]; ok && existing.dir {
		return &cowkit.PathError{Op: "move", Path: dst, Err: cowkit.ErrIsDir}
	}

	moved := *n
	moved.modTime = time.Now()
	if opts := cowkit.ApplyOptions(options...); opts.Visibility != "" {
		moved.visibility = opts.Visibility
	}

	// free the source first so the size budget only sees the net change
	delete(a.nodes, srcKey)
	a.size -= int64(len(n.content))
	if err := a.putFile("move", dstKey, &moved); err != nil {
		a.nodes[srcKey] = n
		a.size += int64(len(n.content))
		return err
	}
	return nil
}

// Checksum implements cowkit.CanChecksum
func (a *Adapter) Checksum(ctx context.Context, p string, algorithm cowkit.ChecksumAlgorithm) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	key, n, err := a.file("checksum", p)
	if err != nil {
		return "", err
	}
	sum, err := cowkit.CalculateChecksum(bytes.NewReader(n.content), algorithm)
	if err != nil {
		return "", &cowkit.PathError{Op: "checksum", Path: key, Err: err}
	}
	return sum, nil
}

// Checksums implements cowkit.CanChecksum
func (a *Adapter) Checksums(ctx context.Context, p string, algorithms []cowkit.ChecksumAlgorithm) (map[cowkit.ChecksumAlgorithm]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	key, n, err := a.file("checksums", p)
	if err != nil {
		return nil, err
	}
	sums, err := cowkit.CalculateChecksums(bytes.NewReader(n.content), algorithms)
	if err != nil {
		return nil, &cowkit.PathError{Op: "checksums", Path: key, Err: err}
	}
	return sums, nil
}

// SetVisibility implements cowkit.CanSetVisibility
func (a *Adapter) SetVisibility(ctx context.Context, p string, visibility cowkit.Visibility) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, n, err := a.file("setvisibility", p)
	if err != nil {
		return err
	}
	n.visibility = visibility
	return nil
}

var (
	_ cowkit.FileSystem       = (*Adapter)(nil)
	_ cowkit.CanCopy          = (*Adapter)(nil)
	_ cowkit.CanMove          = (*Adapter)(nil)
	_ cowkit.CanSetVisibility = (*Adapter)(nil)
	_ cowkit.CanChecksum      = (*Adapter)(nil)
)
