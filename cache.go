package cowkit

import (
	"context"
	"io"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of metadata entries kept when
// NewCachingFileSystem is given a non-positive size.
const DefaultCacheSize = 4096

// CachingFileSystem wraps a FileSystem and memoizes its metadata queries
// (FileExists, DirExists, Stat and ListContents) in a bounded LRU. File
// content is never cached.
//
// Entries carry no expiry: the wrapper is meant for layers nobody else
// mutates, such as the base of an overlay. Mutations made through the
// wrapper purge the whole cache.
//
// Example:
//
//	base := cowkit.NewCachingFileSystem(s3Adapter, 10_000,
//	    cowkit.WithCacheHitCallback(func(op, path string) { hits.Inc() }),
//	)
//	ov := overlay.New(base)
type CachingFileSystem struct {
	fs    FileSystem
	cache *lru.Cache[string, any]
	opts  CacheOptions
}

// CacheOptions configures the CachingFileSystem behavior.
type CacheOptions struct {
	// OnCacheHit is called when a query is answered from the cache.
	OnCacheHit func(op, path string)

	// OnCacheMiss is called when a query goes to the wrapped filesystem.
	OnCacheMiss func(op, path string)
}

// CacheOption is a functional option for configuring CachingFileSystem.
type CacheOption func(*CacheOptions)

// WithCacheHitCallback sets the callback for cache hits.
func WithCacheHitCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) {
		o.OnCacheHit = callback
	}
}

// WithCacheMissCallback sets the callback for cache misses.
func WithCacheMissCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) {
		o.OnCacheMiss = callback
	}
}

// NewCachingFileSystem creates a caching wrapper holding at most size
// metadata entries.
func NewCachingFileSystem(fs FileSystem, size int, opts ...CacheOption) *CachingFileSystem {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}

	var options CacheOptions
	for _, opt := range opts {
		opt(&options)
	}

	return &CachingFileSystem{
		fs:    fs,
		cache: cache,
		opts:  options,
	}
}

// Unwrap returns the underlying FileSystem.
func (c *CachingFileSystem) Unwrap() FileSystem {
	return c.fs
}

// Len returns the number of cached entries.
func (c *CachingFileSystem) Len() int {
	return c.cache.Len()
}

// Purge drops every cached entry.
func (c *CachingFileSystem) Purge() {
	c.cache.Purge()
}

func cacheKey(op, path string) string {
	return op + ":" + path
}

func (c *CachingFileSystem) lookup(op, path string) (any, bool) {
	v, ok := c.cache.Get(cacheKey(op, path))
	if ok {
		if c.opts.OnCacheHit != nil {
			c.opts.OnCacheHit(op, path)
		}
		return v, true
	}
	if c.opts.OnCacheMiss != nil {
		c.opts.OnCacheMiss(op, path)
	}
	return nil, false
}

func (c *CachingFileSystem) store(op, path string, v any) {
	c.cache.Add(cacheKey(op, path), v)
}

// ============================================================================
// FileSystem Interface - Cached Operations
// ============================================================================

// FileExists checks if a file exists, using the cache when possible.
func (c *CachingFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	if v, ok := c.lookup("fileexists", path); ok {
		return v.(bool), nil
	}

	exists, err := c.fs.FileExists(ctx, path)
	if err != nil {
		return false, err
	}
	c.store("fileexists", path, exists)
	return exists, nil
}

// DirExists checks if a directory exists, using the cache when possible.
func (c *CachingFileSystem) DirExists(ctx context.Context, path string) (bool, error) {
	if v, ok := c.lookup("direxists", path); ok {
		return v.(bool), nil
	}

	exists, err := c.fs.DirExists(ctx, path)
	if err != nil {
		return false, err
	}
	c.store("direxists", path, exists)
	return exists, nil
}

// Stat returns file metadata, using the cache when possible. Each caller
// gets its own copy.
func (c *CachingFileSystem) Stat(ctx context.Context, path string) (*FileInfo, error) {
	if v, ok := c.lookup("stat", path); ok {
		info := v.(FileInfo)
		return &info, nil
	}

	info, err := c.fs.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	c.store("stat", path, *info)
	return info, nil
}

// ListContents lists a directory, using the cache when possible. Each
// caller gets its own slice.
func (c *CachingFileSystem) ListContents(ctx context.Context, path string, recursive bool) ([]FileInfo, error) {
	op := "list:" + strconv.FormatBool(recursive)
	if v, ok := c.lookup(op, path); ok {
		return append([]FileInfo(nil), v.([]FileInfo)...), nil
	}

	files, err := c.fs.ListContents(ctx, path, recursive)
	if err != nil {
		return nil, err
	}
	c.store(op, path, append([]FileInfo(nil), files...))
	return files, nil
}

// ============================================================================
// FileSystem Interface - Pass-through Operations
// ============================================================================

// Read delegates to the underlying filesystem.
func (c *CachingFileSystem) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	return c.fs.Read(ctx, path)
}

// ReadAll delegates to the underlying filesystem.
func (c *CachingFileSystem) ReadAll(ctx context.Context, path string) ([]byte, error) {
	return c.fs.ReadAll(ctx, path)
}

// Write delegates and purges the cache.
func (c *CachingFileSystem) Write(ctx context.Context, path string, content io.Reader, options ...Option) error {
	defer c.Purge()
	return c.fs.Write(ctx, path, content, options...)
}

// Delete delegates and purges the cache.
func (c *CachingFileSystem) Delete(ctx context.Context, path string) error {
	defer c.Purge()
	return c.fs.Delete(ctx, path)
}

// CreateDir delegates and purges the cache.
func (c *CachingFileSystem) CreateDir(ctx context.Context, path string) error {
	defer c.Purge()
	return c.fs.CreateDir(ctx, path)
}

// DeleteDir delegates and purges the cache.
func (c *CachingFileSystem) DeleteDir(ctx context.Context, path string) error {
	defer c.Purge()
	return c.fs.DeleteDir(ctx, path)
}

// ============================================================================
// Optional Interface Delegation
// ============================================================================

// Checksum delegates to the underlying filesystem if supported.
func (c *CachingFileSystem) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	if checksummer, ok := c.fs.(CanChecksum); ok {
		return checksummer.Checksum(ctx, path, algorithm)
	}
	return ChecksumFromStream(ctx, c.fs, path, algorithm)
}

// Checksums delegates to the underlying filesystem if supported.
func (c *CachingFileSystem) Checksums(ctx context.Context, path string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if checksummer, ok := c.fs.(CanChecksum); ok {
		return checksummer.Checksums(ctx, path, algorithms)
	}
	return ChecksumsFromStream(ctx, c.fs, path, algorithms)
}

// SignedURL delegates to the underlying filesystem if supported.
func (c *CachingFileSystem) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if urlGen, ok := c.fs.(CanSignURL); ok {
		return urlGen.SignedURL(ctx, path, expires)
	}
	return "", &PathError{Op: "signed-url", Path: path, Err: ErrNotSupported}
}

// SignedUploadURL delegates to the underlying filesystem if supported.
func (c *CachingFileSystem) SignedUploadURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if urlGen, ok := c.fs.(CanSignURL); ok {
		return urlGen.SignedUploadURL(ctx, path, expires)
	}
	return "", &PathError{Op: "signed-upload-url", Path: path, Err: ErrNotSupported}
}

// PublicURL delegates to the underlying filesystem if supported.
func (c *CachingFileSystem) PublicURL(ctx context.Context, path string) (string, error) {
	if urlGen, ok := c.fs.(CanPublicURL); ok {
		return urlGen.PublicURL(ctx, path)
	}
	return "", &PathError{Op: "public-url", Path: path, Err: ErrNotSupported}
}

var (
	_ FileSystem   = (*CachingFileSystem)(nil)
	_ CanChecksum  = (*CachingFileSystem)(nil)
	_ CanSignURL   = (*CachingFileSystem)(nil)
	_ CanPublicURL = (*CachingFileSystem)(nil)
)
