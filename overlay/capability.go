package overlay

import (
	"context"
	"time"

	"github.com/gobeaver/cowkit"
)

type unwrapper interface {
	Unwrap() cowkit.FileSystem
}

// capabilities holds the optional interfaces each layer supports, resolved
// once at construction. A nil field means unsupported.
type capabilities struct {
	topCopy       cowkit.CanCopy
	topMove       cowkit.CanMove
	topVisibility cowkit.CanSetVisibility
	topChecksum   cowkit.CanChecksum
	topSignURL    cowkit.CanSignURL
	topPublicURL  cowkit.CanPublicURL

	baseChecksum  cowkit.CanChecksum
	baseSignURL   cowkit.CanSignURL
	basePublicURL cowkit.CanPublicURL
}

// probe inspects both layers. The base guard and any caching wrapper
// forward every optional read capability, so they are looked through to
// find what the wrapped backend really supports.
func probe(base *cowkit.ReadOnlyFileSystem, top cowkit.FileSystem) capabilities {
	var c capabilities

	c.topCopy, _ = top.(cowkit.CanCopy)
	c.topMove, _ = top.(cowkit.CanMove)
	c.topVisibility, _ = top.(cowkit.CanSetVisibility)
	c.topChecksum, _ = top.(cowkit.CanChecksum)
	c.topSignURL, _ = top.(cowkit.CanSignURL)
	c.topPublicURL, _ = top.(cowkit.CanPublicURL)

	inner := base.Unwrap()
	for {
		w, ok := inner.(unwrapper)
		if !ok {
			break
		}
		inner = w.Unwrap()
	}

	if _, ok := inner.(cowkit.CanChecksum); ok {
		c.baseChecksum = base
	}
	if _, ok := inner.(cowkit.CanSignURL); ok {
		c.baseSignURL = base
	}
	if _, ok := inner.(cowkit.CanPublicURL); ok {
		c.basePublicURL = base
	}

	return c
}

// PublicURL implements cowkit.CanPublicURL
func (a *Adapter) PublicURL(ctx context.Context, path string) (string, error) {
	if a.caps.topPublicURL != nil {
		owned, err := a.shadowed(ctx, path)
		if err != nil {
			return "", err
		}
		if owned {
			return a.caps.topPublicURL.PublicURL(ctx, path)
		}
	}
	if a.caps.basePublicURL != nil {
		return a.caps.basePublicURL.PublicURL(ctx, path)
	}
	return "", &cowkit.PathError{Op: "public-url", Path: path, Err: cowkit.ErrNotSupported}
}

// SignedURL implements cowkit.CanSignURL
func (a *Adapter) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if a.caps.topSignURL != nil {
		owned, err := a.shadowed(ctx, path)
		if err != nil {
			return "", err
		}
		if owned {
			return a.caps.topSignURL.SignedURL(ctx, path, expires)
		}
	}
	if a.caps.baseSignURL != nil {
		return a.caps.baseSignURL.SignedURL(ctx, path, expires)
	}
	return "", &cowkit.PathError{Op: "signed-url", Path: path, Err: cowkit.ErrNotSupported}
}

// SignedUploadURL implements cowkit.CanSignURL. Uploads are writes, so only
// the top layer can serve them.
func (a *Adapter) SignedUploadURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if a.caps.topSignURL == nil {
		return "", &cowkit.PathError{Op: "signed-upload-url", Path: path, Err: cowkit.ErrNotSupported}
	}
	return a.caps.topSignURL.SignedUploadURL(ctx, path, expires)
}

// Checksum implements cowkit.CanChecksum. Content owned by the top layer is
// hashed there; untouched base content uses the base backend when it can.
// Otherwise the file is streamed through the overlay and hashed locally.
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm cowkit.ChecksumAlgorithm) (string, error) {
	owned, err := a.shadowed(ctx, path)
	if err != nil {
		return "", err
	}
	switch {
	case owned && a.caps.topChecksum != nil:
		return a.caps.topChecksum.Checksum(ctx, path, algorithm)
	case !owned && a.caps.baseChecksum != nil:
		return a.caps.baseChecksum.Checksum(ctx, path, algorithm)
	}
	return cowkit.ChecksumFromStream(ctx, a, path, algorithm)
}

// Checksums implements cowkit.CanChecksum
func (a *Adapter) Checksums(ctx context.Context, path string, algorithms []cowkit.ChecksumAlgorithm) (map[cowkit.ChecksumAlgorithm]string, error) {
	owned, err := a.shadowed(ctx, path)
	if err != nil {
		return nil, err
	}
	switch {
	case owned && a.caps.topChecksum != nil:
		return a.caps.topChecksum.Checksums(ctx, path, algorithms)
	case !owned && a.caps.baseChecksum != nil:
		return a.caps.baseChecksum.Checksums(ctx, path, algorithms)
	}
	return cowkit.ChecksumsFromStream(ctx, a, path, algorithms)
}
