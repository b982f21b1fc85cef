package overlay

import (
	"context"

	"github.com/gobeaver/cowkit"
)

// readTarget picks the layer that answers file-level reads for p: the top
// layer when it owns p, the base otherwise.
func (a *Adapter) readTarget(ctx context.Context, p string) (cowkit.FileSystem, cowkit.Layer, error) {
	owned, err := a.shadowed(ctx, p)
	if err != nil {
		return nil, "", err
	}
	if owned {
		a.metrics.resolved(cowkit.LayerTop)
		return a.top, cowkit.LayerTop, nil
	}
	a.metrics.resolved(cowkit.LayerBase)
	return a.base, cowkit.LayerBase, nil
}

// shadowed reports whether the top layer owns p. It does when it holds the
// file, when p carries a file tombstone, or when a directory tombstone covers
// p's parent. In the last two cases the top layer usually lacks p, so reads
// report not-found and the base copy stays hidden.
func (a *Adapter) shadowed(ctx context.Context, p string) (bool, error) {
	inTop, err := a.top.FileExists(ctx, p)
	if err != nil || inTop {
		return inTop, err
	}

	deleted, err := a.tombstones.IsFileTombstoned(ctx, p)
	if err != nil || deleted {
		return deleted, err
	}
	return a.tombstones.IsDirectoryTombstoned(ctx, parentDir(p))
}

// baseDirVisible reports whether the base layer holds directory p and no
// directory tombstone hides it.
func (a *Adapter) baseDirVisible(ctx context.Context, p string) (bool, error) {
	hidden, err := a.tombstones.IsDirectoryTombstoned(ctx, p)
	if err != nil || hidden {
		return false, err
	}
	return a.base.DirExists(ctx, p)
}
