package cowkit

import (
	"context"
	"iter"
	"strings"

	"github.com/gobwas/glob"
)

// FileSelector filters files during listing. Selectors compose with And, Or
// and Not, and work against any FileReader, an overlay included.
//
// Example usage:
//
//	files, err := cowkit.ListWithSelector(ctx, ov, "", cowkit.And(
//	    cowkit.Glob("*.jpg"),
//	    cowkit.FuncSelector(func(f *cowkit.FileInfo) bool {
//	        return f.Size < 10*1024*1024
//	    }),
//	), true)
type FileSelector interface {
	// Match reports whether a file belongs in the results.
	Match(file *FileInfo) bool

	// TraverseDescendants reports whether the walk enters a directory.
	// Returning false prunes the whole subtree.
	TraverseDescendants(dir *FileInfo) bool
}

// Select walks dir and yields the files the selector matches. Directories
// are never yielded. A listing failure is yielded once with a zero FileInfo
// and ends the walk.
//
// Every directory is listed shallowly, so pruned subtrees cost nothing.
func Select(ctx context.Context, fs FileReader, dir string, selector FileSelector, recursive bool) iter.Seq2[FileInfo, error] {
	if selector == nil {
		selector = All()
	}
	return func(yield func(FileInfo, error) bool) {
		pending := []string{dir}
		for len(pending) > 0 {
			next := pending[len(pending)-1]
			pending = pending[:len(pending)-1]

			if err := ctx.Err(); err != nil {
				yield(FileInfo{}, err)
				return
			}
			files, err := fs.ListContents(ctx, next, false)
			if err != nil {
				yield(FileInfo{}, err)
				return
			}

			for i := range files {
				f := &files[i]
				if f.IsDir {
					if recursive && selector.TraverseDescendants(f) {
						pending = append(pending, f.Path)
					}
					continue
				}
				if selector.Match(f) && !yield(*f, nil) {
					return
				}
			}
		}
	}
}

// ListWithSelector collects what Select yields.
//
// Example:
//
//	// every JPEG below images
//	files, err := cowkit.ListWithSelector(ctx, fs, "images", cowkit.Glob("*.jpg"), true)
func ListWithSelector(ctx context.Context, fs FileReader, dir string, selector FileSelector, recursive bool) ([]FileInfo, error) {
	var results []FileInfo
	for f, err := range Select(ctx, fs, dir, selector, recursive) {
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, nil
}

type matchAll struct{}

func (matchAll) Match(*FileInfo) bool               { return true }
func (matchAll) TraverseDescendants(*FileInfo) bool { return true }

// All matches every file.
func All() FileSelector {
	return matchAll{}
}

type globSelector struct {
	matcher glob.Glob
	byPath  bool
}

// CompileGlob builds a glob selector, reporting malformed patterns.
//
// Supported syntax is *, ?, [abc], [a-z], {a,b} and ** for any number of
// path segments. A pattern containing "/" is matched against the whole
// path, any other pattern against the file name:
//
//	*.txt            every .txt file
//	image_????.jpg   image_0001.jpg and friends
//	docs/**/*.md     Markdown files anywhere below docs
func CompileGlob(pattern string) (FileSelector, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	return &globSelector{matcher: g, byPath: strings.Contains(pattern, "/")}, nil
}

// Glob is CompileGlob for patterns known to be valid. A malformed pattern
// matches nothing.
func Glob(pattern string) FileSelector {
	sel, err := CompileGlob(pattern)
	if err != nil {
		return FuncSelectorFull(
			func(*FileInfo) bool { return false },
			func(*FileInfo) bool { return false },
		)
	}
	return sel
}

func (s *globSelector) Match(f *FileInfo) bool {
	if s.byPath {
		return s.matcher.Match(strings.TrimPrefix(f.Path, "/"))
	}
	return s.matcher.Match(f.Name)
}

func (s *globSelector) TraverseDescendants(*FileInfo) bool { return true }

type depthSelector struct {
	limit int
	base  string
}

// Depth limits matches to limit levels below base; 1 means direct children.
func Depth(limit int, base string) FileSelector {
	return &depthSelector{limit: limit, base: strings.Trim(base, "/")}
}

func (s *depthSelector) depth(p string) int {
	rel := strings.Trim(p, "/")
	switch {
	case s.base == "":
	case rel == s.base:
		return 0
	case strings.HasPrefix(rel, s.base+"/"):
		rel = rel[len(s.base)+1:]
	}
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

func (s *depthSelector) Match(f *FileInfo) bool { return s.depth(f.Path) <= s.limit }

func (s *depthSelector) TraverseDescendants(d *FileInfo) bool { return s.depth(d.Path) < s.limit }

// compound joins selectors. With every set, a file must satisfy all of them;
// otherwise one suffices. A directory is entered when any member would
// enter it.
type compound struct {
	every     bool
	selectors []FileSelector
}

// And matches files that every selector matches.
func And(selectors ...FileSelector) FileSelector {
	return &compound{every: true, selectors: selectors}
}

// Or matches files that at least one selector matches.
func Or(selectors ...FileSelector) FileSelector {
	return &compound{selectors: selectors}
}

func (c *compound) Match(f *FileInfo) bool {
	for _, s := range c.selectors {
		if s.Match(f) != c.every {
			return !c.every
		}
	}
	return c.every
}

func (c *compound) TraverseDescendants(d *FileInfo) bool {
	for _, s := range c.selectors {
		if s.TraverseDescendants(d) {
			return true
		}
	}
	return false
}

type notSelector struct {
	inner FileSelector
}

// Not inverts the match of a selector. It enters every directory.
func Not(selector FileSelector) FileSelector {
	return notSelector{inner: selector}
}

func (n notSelector) Match(f *FileInfo) bool             { return !n.inner.Match(f) }
func (n notSelector) TraverseDescendants(*FileInfo) bool { return true }

type funcSelector struct {
	match, traverse func(*FileInfo) bool
}

// FuncSelector turns a predicate into a selector that enters every
// directory.
//
//	cowkit.FuncSelector(func(f *cowkit.FileInfo) bool {
//	    return f.Size > 1024 && strings.Contains(f.Name, "report")
//	})
func FuncSelector(match func(*FileInfo) bool) FileSelector {
	return FuncSelectorFull(match, func(*FileInfo) bool { return true })
}

// FuncSelectorFull builds a selector from a match and a traverse predicate.
func FuncSelectorFull(match, traverse func(*FileInfo) bool) FileSelector {
	return &funcSelector{match: match, traverse: traverse}
}

func (s *funcSelector) Match(f *FileInfo) bool               { return s.match(f) }
func (s *funcSelector) TraverseDescendants(d *FileInfo) bool { return s.traverse(d) }
