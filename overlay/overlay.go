package overlay

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/gobeaver/cowkit"
	"github.com/gobeaver/cowkit/driver/memory"
)

// Adapter is a copy-on-write cowkit.FileSystem layered over an immutable
// base. See the package documentation for the model.
type Adapter struct {
	base       *cowkit.ReadOnlyFileSystem
	top        cowkit.FileSystem
	tombstones *TombstoneStore
	caps       capabilities

	logger  *slog.Logger
	metrics *Metrics
}

// New creates an overlay over base. A base that is not already a
// cowkit.ReadOnlyFileSystem gets wrapped in one.
func New(base cowkit.FileSystem, opts ...Option) *Adapter {
	o := &options{
		filesPath: DefaultSoftDeletedFilesPath,
		dirsPath:  DefaultSoftDeletedDirectoriesPath,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.top == nil {
		o.top = memory.New()
	}
	if o.logger == nil {
		o.logger = discardLogger
	}

	if o.cacheSize > 0 {
		base = cowkit.NewCachingFileSystem(base, o.cacheSize,
			cowkit.WithCacheHitCallback(func(op, _ string) { o.metrics.baseCache(op, true) }),
			cowkit.WithCacheMissCallback(func(op, _ string) { o.metrics.baseCache(op, false) }),
		)
	}

	ro, ok := base.(*cowkit.ReadOnlyFileSystem)
	if !ok {
		ro = cowkit.NewReadOnlyFileSystem(base, cowkit.WithWriteAttemptHandler(func(op, path string) {
			o.logger.Warn("write attempt on base layer blocked", "op", op, "path", path)
		}))
	}

	tombstones := NewTombstoneStore(o.top, o.filesPath, o.dirsPath)
	tombstones.logger = o.logger
	tombstones.metrics = o.metrics

	return &Adapter{
		base:       ro,
		top:        o.top,
		tombstones: tombstones,
		caps:       probe(ro, o.top),
		logger:     o.logger,
		metrics:    o.metrics,
	}
}

// Base returns the read-only base layer.
func (a *Adapter) Base() *cowkit.ReadOnlyFileSystem { return a.base }

// Top returns the mutable top layer.
func (a *Adapter) Top() cowkit.FileSystem { return a.top }

// Tombstones returns the store holding the tombstone sets.
func (a *Adapter) Tombstones() *TombstoneStore { return a.tombstones }

// FileExists implements cowkit.FileReader
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	target, _, err := a.readTarget(ctx, path)
	if err != nil {
		return false, err
	}
	return target.FileExists(ctx, path)
}

// DirExists implements cowkit.FileReader
func (a *Adapter) DirExists(ctx context.Context, path string) (bool, error) {
	inTop, err := a.top.DirExists(ctx, path)
	if err != nil || inTop {
		return inTop, err
	}
	return a.baseDirVisible(ctx, path)
}

// Read implements cowkit.FileReader
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	target, _, err := a.readTarget(ctx, path)
	if err != nil {
		return nil, err
	}
	return target.Read(ctx, path)
}

// ReadAll implements cowkit.FileReader
func (a *Adapter) ReadAll(ctx context.Context, path string) ([]byte, error) {
	target, _, err := a.readTarget(ctx, path)
	if err != nil {
		return nil, err
	}
	return target.ReadAll(ctx, path)
}

// Write implements cowkit.FileWriter. Writes always land in the top layer.
func (a *Adapter) Write(ctx context.Context, path string, r io.Reader, opts ...cowkit.Option) error {
	if err := a.checkReserved("write", path); err != nil {
		return err
	}
	return a.top.Write(ctx, path, r, opts...)
}

// checkReserved refuses to mutate the tombstone blobs through the overlay.
func (a *Adapter) checkReserved(op string, paths ...string) error {
	for _, p := range paths {
		if a.tombstones.IsReserved(p) {
			return &cowkit.PathError{Op: op, Path: p, Err: cowkit.ErrNotAllowed}
		}
	}
	return nil
}

// WriteBytes writes data to path in the top layer.
func (a *Adapter) WriteBytes(ctx context.Context, path string, data []byte, opts ...cowkit.Option) error {
	return a.Write(ctx, path, bytes.NewReader(data), opts...)
}

// Delete implements cowkit.FileWriter. A file present in the base layer is
// tombstoned; a file present in the top layer is removed from it. Deleting a
// path that exists nowhere is a no-op.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	if err := a.checkReserved("delete", path); err != nil {
		return err
	}
	inBase, err := a.base.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if inBase {
		if err := a.tombstones.AddFile(ctx, path); err != nil {
			return &cowkit.PathError{Op: "delete", Path: path, Err: cowkit.WrapOpError(cowkit.ErrUnableToDelete, err)}
		}
	}

	inTop, err := a.top.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if inTop {
		return a.top.Delete(ctx, path)
	}
	return nil
}

// DeleteDir implements cowkit.FileWriter. A base directory is hidden with a
// directory tombstone covering its whole subtree; the top layer copy, if any,
// is removed recursively.
func (a *Adapter) DeleteDir(ctx context.Context, path string) error {
	if err := a.checkReserved("deletedir", path); err != nil {
		return err
	}
	inBase, err := a.base.DirExists(ctx, path)
	if err != nil {
		return err
	}
	if inBase {
		if err := a.tombstones.AddDirectory(ctx, path); err != nil {
			return &cowkit.PathError{Op: "deletedir", Path: path, Err: cowkit.WrapOpError(cowkit.ErrUnableToDelete, err)}
		}
	}

	inTop, err := a.top.DirExists(ctx, path)
	if err != nil {
		return err
	}
	if inTop {
		return a.top.DeleteDir(ctx, path)
	}
	return nil
}

// CreateDir implements cowkit.FileWriter
func (a *Adapter) CreateDir(ctx context.Context, path string) error {
	if err := a.checkReserved("createdir", path); err != nil {
		return err
	}
	return a.top.CreateDir(ctx, path)
}

// SetVisibility implements cowkit.CanSetVisibility. A file only the base
// layer holds is copied up first so the change can be recorded.
func (a *Adapter) SetVisibility(ctx context.Context, path string, visibility cowkit.Visibility) error {
	if err := a.checkReserved("setvisibility", path); err != nil {
		return err
	}
	_, layer, err := a.readTarget(ctx, path)
	if err != nil {
		return &cowkit.PathError{Op: "setvisibility", Path: path, Err: cowkit.WrapOpError(cowkit.ErrUnableToSetVisibility, err)}
	}

	if layer == cowkit.LayerBase {
		if err := a.copyUp(ctx, "setvisibility", path, path, cowkit.WithVisibility(visibility)); err != nil {
			return &cowkit.PathError{Op: "setvisibility", Path: path, Err: cowkit.WrapOpError(cowkit.ErrUnableToSetVisibility, err)}
		}
	}

	if a.caps.topVisibility == nil {
		return &cowkit.PathError{Op: "setvisibility", Path: path, Err: cowkit.WrapOpError(cowkit.ErrUnableToSetVisibility, cowkit.ErrNotSupported)}
	}
	if err := a.caps.topVisibility.SetVisibility(ctx, path, visibility); err != nil {
		return &cowkit.PathError{Op: "setvisibility", Path: path, Err: cowkit.WrapOpError(cowkit.ErrUnableToSetVisibility, err)}
	}
	return nil
}

// Stat implements cowkit.FileReader. Files resolve like reads; directories
// are looked up in the top layer first, then in the visible part of the base.
func (a *Adapter) Stat(ctx context.Context, path string) (*cowkit.FileInfo, error) {
	target, _, err := a.readTarget(ctx, path)
	if err != nil {
		return nil, err
	}
	if exists, err := target.FileExists(ctx, path); err != nil {
		return nil, err
	} else if exists {
		return target.Stat(ctx, path)
	}

	if inTop, err := a.top.DirExists(ctx, path); err != nil {
		return nil, err
	} else if inTop {
		return a.top.Stat(ctx, path)
	}
	if visible, err := a.baseDirVisible(ctx, path); err != nil {
		return nil, err
	} else if visible {
		return a.base.Stat(ctx, path)
	}

	return nil, &cowkit.PathError{Op: "stat", Path: path, Err: cowkit.ErrNotExist}
}

// fileAttributes stats path in the layer that resolves it as a file.
func (a *Adapter) fileAttributes(ctx context.Context, path string) (*cowkit.FileInfo, error) {
	target, _, err := a.readTarget(ctx, path)
	if err != nil {
		return nil, err
	}
	return target.Stat(ctx, path)
}

// Visibility returns the attributes of path, with Visibility populated.
func (a *Adapter) Visibility(ctx context.Context, path string) (*cowkit.FileInfo, error) {
	return a.fileAttributes(ctx, path)
}

// MimeType returns the attributes of path, with ContentType populated.
func (a *Adapter) MimeType(ctx context.Context, path string) (*cowkit.FileInfo, error) {
	return a.fileAttributes(ctx, path)
}

// LastModified returns the attributes of path, with ModTime populated.
func (a *Adapter) LastModified(ctx context.Context, path string) (*cowkit.FileInfo, error) {
	return a.fileAttributes(ctx, path)
}

// FileSize returns the attributes of path, with Size populated.
func (a *Adapter) FileSize(ctx context.Context, path string) (*cowkit.FileInfo, error) {
	return a.fileAttributes(ctx, path)
}

// ListContents implements cowkit.FileReader by collecting a merged Listing.
// A directory visible in neither layer yields an empty result.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]cowkit.FileInfo, error) {
	listing := a.Listing(ctx, path, recursive)

	var entries []cowkit.FileInfo
	for _, entry := range listing.All() {
		entries = append(entries, entry)
	}
	return entries, listing.Err()
}

// Move implements cowkit.CanMove. A source the top layer owns is moved
// inside the top layer. A base-only source is copied up to dst and then
// tombstoned, leaving the base untouched.
func (a *Adapter) Move(ctx context.Context, src, dst string, opts ...cowkit.Option) error {
	if err := a.checkReserved("move", src, dst); err != nil {
		return err
	}
	owned, err := a.shadowed(ctx, src)
	if err != nil {
		return err
	}
	if owned {
		if err := a.topMove(ctx, src, dst, opts...); err != nil {
			return err
		}
		return a.hideBaseFile(ctx, "move", src, dst)
	}

	if err := a.copyUp(ctx, "move", src, dst, opts...); err != nil {
		return &cowkit.TransferError{Op: "move", Source: src, Destination: dst, Err: cowkit.WrapOpError(cowkit.ErrUnableToMove, err)}
	}
	if err := a.tombstones.AddFile(ctx, src); err != nil {
		return &cowkit.TransferError{Op: "move", Source: src, Destination: dst, Err: cowkit.WrapOpError(cowkit.ErrUnableToMove, err)}
	}
	return nil
}

// Copy implements cowkit.CanCopy. Same routing as Move, but the source is
// never tombstoned.
func (a *Adapter) Copy(ctx context.Context, src, dst string, opts ...cowkit.Option) error {
	if err := a.checkReserved("copy", dst); err != nil {
		return err
	}
	owned, err := a.shadowed(ctx, src)
	if err != nil {
		return err
	}
	if owned {
		return a.topCopy(ctx, src, dst, opts...)
	}

	if err := a.copyUp(ctx, "copy", src, dst, opts...); err != nil {
		return &cowkit.TransferError{Op: "copy", Source: src, Destination: dst, Err: cowkit.WrapOpError(cowkit.ErrUnableToCopy, err)}
	}
	return nil
}

// copyUp streams src from the base layer into dst on the top layer. The base
// entry's content type and metadata carry over unless opts override them.
func (a *Adapter) copyUp(ctx context.Context, op, src, dst string, opts ...cowkit.Option) error {
	rc, err := a.base.Read(ctx, src)
	if err != nil {
		return err
	}
	defer rc.Close()

	writeOpts := []cowkit.Option{cowkit.WithOverwrite(true)}
	if info, err := a.base.Stat(ctx, src); err == nil {
		if info.ContentType != "" {
			writeOpts = append(writeOpts, cowkit.WithContentType(info.ContentType))
		}
		if len(info.Metadata) > 0 {
			writeOpts = append(writeOpts, cowkit.WithMetadata(info.Metadata))
		}
		if info.Visibility != "" {
			writeOpts = append(writeOpts, cowkit.WithVisibility(info.Visibility))
		}
	}
	writeOpts = append(writeOpts, opts...)

	if err := a.top.Write(ctx, dst, rc, writeOpts...); err != nil {
		return err
	}

	a.metrics.copyUp(op)
	a.logger.Debug("copied up from base layer", "op", op, "src", src, "dst", dst)
	return nil
}

// hideBaseFile tombstones src once the top copy moved away, so a base file
// of the same name does not resurface.
func (a *Adapter) hideBaseFile(ctx context.Context, op, src, dst string) error {
	inBase, err := a.base.FileExists(ctx, src)
	if err != nil || !inBase {
		return err
	}
	tombstoned, err := a.tombstones.IsFileTombstoned(ctx, src)
	if err != nil || tombstoned {
		return err
	}
	if err := a.tombstones.AddFile(ctx, src); err != nil {
		return &cowkit.TransferError{Op: op, Source: src, Destination: dst, Err: cowkit.WrapOpError(cowkit.ErrUnableToMove, err)}
	}
	return nil
}

func (a *Adapter) topMove(ctx context.Context, src, dst string, opts ...cowkit.Option) error {
	if a.caps.topMove != nil {
		return a.caps.topMove.Move(ctx, src, dst, opts...)
	}
	if err := a.topCopy(ctx, src, dst, opts...); err != nil {
		return err
	}
	return a.top.Delete(ctx, src)
}

func (a *Adapter) topCopy(ctx context.Context, src, dst string, opts ...cowkit.Option) error {
	if a.caps.topCopy != nil {
		return a.caps.topCopy.Copy(ctx, src, dst, opts...)
	}

	rc, err := a.top.Read(ctx, src)
	if err != nil {
		return err
	}
	defer rc.Close()

	return a.top.Write(ctx, dst, rc, append([]cowkit.Option{cowkit.WithOverwrite(true)}, opts...)...)
}

var (
	_ cowkit.FileSystem       = (*Adapter)(nil)
	_ cowkit.CanCopy          = (*Adapter)(nil)
	_ cowkit.CanMove          = (*Adapter)(nil)
	_ cowkit.CanSetVisibility = (*Adapter)(nil)
	_ cowkit.CanChecksum      = (*Adapter)(nil)
	_ cowkit.CanSignURL       = (*Adapter)(nil)
	_ cowkit.CanPublicURL     = (*Adapter)(nil)
)
