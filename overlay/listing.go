package overlay

import (
	"context"
	"iter"
	"sync"

	"github.com/gobeaver/cowkit"
)

// Listing is a lazy, one-shot merged listing of a directory. Entries from the
// top layer come first, followed by base entries the top layer neither holds
// nor tombstones. Each path appears at most once.
type Listing struct {
	adapter *Adapter
	ctx     context.Context
	path    string
	deep    bool

	mu       sync.Mutex
	consumed bool
	err      error
}

// Listing prepares a merged listing of path. Nothing is read until the
// sequence returned by All is ranged over.
func (a *Adapter) Listing(ctx context.Context, path string, deep bool) *Listing {
	return &Listing{adapter: a, ctx: ctx, path: path, deep: deep}
}

// All yields (ordinal, entry) pairs. Ordinals start at zero and increase by
// one across nested directories. A backend error stops the sequence and is
// reported by Err. Ranging over a consumed listing yields nothing and sets
// Err to ErrListingConsumed.
func (l *Listing) All() iter.Seq2[int, cowkit.FileInfo] {
	return func(yield func(int, cowkit.FileInfo) bool) {
		l.mu.Lock()
		if l.consumed {
			l.err = ErrListingConsumed
			l.mu.Unlock()
			return
		}
		l.consumed = true
		l.mu.Unlock()

		n := 0
		_, err := l.adapter.merge(l.ctx, l.path, l.deep, func(entry cowkit.FileInfo) bool {
			ok := yield(n, entry)
			n++
			return ok
		})

		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
	}
}

// Err returns the error that ended the iteration, if any.
func (l *Listing) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// merge emits the merged shallow listing of dir, descending into
// subdirectories before emitting them when deep is set. It returns false once
// emit asks to stop.
func (a *Adapter) merge(ctx context.Context, dir string, deep bool, emit func(cowkit.FileInfo) bool) (bool, error) {
	inTop, err := a.top.DirExists(ctx, dir)
	if err != nil {
		return false, err
	}
	if inTop {
		entries, err := a.top.ListContents(ctx, dir, false)
		if err != nil {
			return false, err
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if a.tombstones.IsReserved(entry.Path) {
				continue
			}
			if entry.IsDir && deep {
				if more, err := a.merge(ctx, entry.Path, deep, emit); err != nil || !more {
					return more, err
				}
			}
			a.metrics.listed(cowkit.LayerTop)
			if !emit(entry) {
				return false, nil
			}
		}
	}

	visible, err := a.baseDirVisible(ctx, dir)
	if err != nil || !visible {
		return err == nil, err
	}

	entries, err := a.base.ListContents(ctx, dir, false)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if a.tombstones.IsReserved(entry.Path) {
			continue
		}

		skip, err := a.hiddenFromBase(ctx, entry)
		if err != nil {
			return false, err
		}
		if skip {
			continue
		}

		if entry.IsDir && deep {
			if more, err := a.merge(ctx, entry.Path, deep, emit); err != nil || !more {
				return more, err
			}
		}
		a.metrics.listed(cowkit.LayerBase)
		if !emit(entry) {
			return false, nil
		}
	}
	return true, nil
}

// hiddenFromBase reports whether a base entry is shadowed by the top layer
// or tombstoned. Any top entry at the same path shadows it, whatever its
// kind, so the merged listing never holds a path twice.
func (a *Adapter) hiddenFromBase(ctx context.Context, entry cowkit.FileInfo) (bool, error) {
	for _, exists := range []func(context.Context, string) (bool, error){a.top.FileExists, a.top.DirExists} {
		inTop, err := exists(ctx, entry.Path)
		if err != nil || inTop {
			return inTop, err
		}
	}

	if entry.IsDir {
		return a.tombstones.IsDirectoryTombstoned(ctx, entry.Path)
	}
	return a.tombstones.IsFileTombstoned(ctx, entry.Path)
}
