package cowkit

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrReadOnly is returned for any mutation attempted through a
// ReadOnlyFileSystem.
var ErrReadOnly = errors.New("filesystem is read-only")

// ReadOnlyFileSystem guards a FileSystem against mutation. Reads and
// capability queries pass through; every write fails with ErrReadOnly.
// The overlay wraps its base layer in one.
//
// Example:
//
//	fs, _ := local.New("/data")
//	base := cowkit.NewReadOnlyFileSystem(fs)
//
//	data, _ := base.ReadAll(ctx, "file.txt")                  // works
//	err := base.Write(ctx, "file.txt", bytes.NewReader(data)) // IsReadOnlyError(err)
type ReadOnlyFileSystem struct {
	FileReader

	fs   FileSystem
	opts ReadOnlyOptions
}

// ReadOnlyOptions configures a ReadOnlyFileSystem.
type ReadOnlyOptions struct {
	// OnWriteAttempt observes each refused mutation.
	OnWriteAttempt func(op, path string)

	// ErrorWrapper builds the returned error. The default is a PathError
	// around ErrReadOnly.
	ErrorWrapper func(op, path string, err error) error
}

// ReadOnlyOption is a functional option for NewReadOnlyFileSystem.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithWriteAttemptHandler sets a handler invoked on every blocked write.
func WithWriteAttemptHandler(handler func(op, path string)) ReadOnlyOption {
	return func(o *ReadOnlyOptions) { o.OnWriteAttempt = handler }
}

// WithErrorWrapper replaces the error returned for blocked writes.
func WithErrorWrapper(wrapper func(op, path string, err error) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) { o.ErrorWrapper = wrapper }
}

// NewReadOnlyFileSystem wraps fs.
func NewReadOnlyFileSystem(fs FileSystem, opts ...ReadOnlyOption) *ReadOnlyFileSystem {
	r := &ReadOnlyFileSystem{FileReader: fs, fs: fs}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

// Unwrap returns the guarded FileSystem. Capability probing looks through
// the guard with it.
func (r *ReadOnlyFileSystem) Unwrap() FileSystem {
	return r.fs
}

// IsReadOnly always reports true.
func (r *ReadOnlyFileSystem) IsReadOnly() bool {
	return true
}

func (r *ReadOnlyFileSystem) refuse(op, path string) error {
	if r.opts.OnWriteAttempt != nil {
		r.opts.OnWriteAttempt(op, path)
	}
	if r.opts.ErrorWrapper != nil {
		return r.opts.ErrorWrapper(op, path, ErrReadOnly)
	}
	return &PathError{Op: op, Path: path, Err: ErrReadOnly}
}

// ============================================================================
// Refused mutations
// ============================================================================

func (r *ReadOnlyFileSystem) Write(_ context.Context, path string, _ io.Reader, _ ...Option) error {
	return r.refuse("write", path)
}

func (r *ReadOnlyFileSystem) Delete(_ context.Context, path string) error {
	return r.refuse("delete", path)
}

func (r *ReadOnlyFileSystem) CreateDir(_ context.Context, path string) error {
	return r.refuse("createdir", path)
}

func (r *ReadOnlyFileSystem) DeleteDir(_ context.Context, path string) error {
	return r.refuse("deletedir", path)
}

func (r *ReadOnlyFileSystem) Copy(_ context.Context, _, dst string, _ ...Option) error {
	return r.refuse("copy", dst)
}

func (r *ReadOnlyFileSystem) Move(_ context.Context, src, _ string, _ ...Option) error {
	return r.refuse("move", src)
}

func (r *ReadOnlyFileSystem) SetVisibility(_ context.Context, path string, _ Visibility) error {
	return r.refuse("setvisibility", path)
}

// SignedUploadURL is refused too: the URL would let a client write.
func (r *ReadOnlyFileSystem) SignedUploadURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "", r.refuse("signed-upload-url", path)
}

// ============================================================================
// Capabilities of the guarded layer
// ============================================================================

// Checksum delegates when the guarded layer can hash natively.
func (r *ReadOnlyFileSystem) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	cs, ok := r.fs.(CanChecksum)
	if !ok {
		return "", &PathError{Op: "checksum", Path: path, Err: ErrNotSupported}
	}
	return cs.Checksum(ctx, path, algorithm)
}

// Checksums delegates when the guarded layer can hash natively.
func (r *ReadOnlyFileSystem) Checksums(ctx context.Context, path string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	cs, ok := r.fs.(CanChecksum)
	if !ok {
		return nil, &PathError{Op: "checksums", Path: path, Err: ErrNotSupported}
	}
	return cs.Checksums(ctx, path, algorithms)
}

// SignedURL delegates when the guarded layer signs URLs.
func (r *ReadOnlyFileSystem) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	s, ok := r.fs.(CanSignURL)
	if !ok {
		return "", &PathError{Op: "signed-url", Path: path, Err: ErrNotSupported}
	}
	return s.SignedURL(ctx, path, expires)
}

// PublicURL delegates when the guarded layer has public URLs.
func (r *ReadOnlyFileSystem) PublicURL(ctx context.Context, path string) (string, error) {
	p, ok := r.fs.(CanPublicURL)
	if !ok {
		return "", &PathError{Op: "public-url", Path: path, Err: ErrNotSupported}
	}
	return p.PublicURL(ctx, path)
}

var (
	_ FileSystem       = (*ReadOnlyFileSystem)(nil)
	_ CanCopy          = (*ReadOnlyFileSystem)(nil)
	_ CanMove          = (*ReadOnlyFileSystem)(nil)
	_ CanSetVisibility = (*ReadOnlyFileSystem)(nil)
	_ CanChecksum      = (*ReadOnlyFileSystem)(nil)
	_ CanSignURL       = (*ReadOnlyFileSystem)(nil)
	_ CanPublicURL     = (*ReadOnlyFileSystem)(nil)
)

// IsReadOnlyError reports whether err came from a refused mutation.
func IsReadOnlyError(err error) bool {
	return errors.Is(err, ErrReadOnly)
}
