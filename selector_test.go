package cowkit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func selectorTree() *mockFS {
	return newMockFS(map[string]string{
		"a.txt":            "a",
		"b.json":           "{}",
		"docs/readme.md":   "# readme",
		"docs/deep/x.md":   "x",
		"docs/deep/y.txt":  "y",
		"images/photo.jpg": strings.Repeat("j", 2048),
	})
}

func selectedPaths(files []FileInfo) []string {
	paths := make([]string, len(files))
	for i := range files {
		paths[i] = files[i].Path
	}
	return paths
}

func TestListWithSelector(t *testing.T) {
	ctx := context.Background()
	fs := selectorTree()

	tests := []struct {
		name      string
		dir       string
		selector  FileSelector
		recursive bool
		want      []string
	}{
		{"all shallow", "", All(), false, []string{"a.txt", "b.json"}},
		{"nil selector", "", nil, false, []string{"a.txt", "b.json"}},
		{"glob by name", "", Glob("*.txt"), true, []string{"a.txt", "docs/deep/y.txt"}},
		{"glob by path", "", Glob("docs/**/*.md"), true, []string{"docs/deep/x.md"}},
		{"glob any depth", "", Glob("**.md"), true, []string{"docs/deep/x.md", "docs/readme.md"}},
		{"glob in subdir", "docs", Glob("*.md"), true, []string{"docs/deep/x.md", "docs/readme.md"}},
		{"depth one", "", Depth(1, ""), true, []string{"a.txt", "b.json"}},
		{"depth two", "", Depth(2, ""), true, []string{"a.txt", "b.json", "docs/readme.md", "images/photo.jpg"}},
		{"depth below base", "docs", Depth(1, "/docs/"), true, []string{"docs/readme.md"}},
		{"and", "", And(Glob("*.jpg"), FuncSelector(func(f *FileInfo) bool { return f.Size > 1024 })), true, []string{"images/photo.jpg"}},
		{"or", "", Or(Glob("*.json"), Glob("*.jpg")), true, []string{"b.json", "images/photo.jpg"}},
		{"not", "", Not(Glob("*.md")), true, []string{"a.txt", "b.json", "docs/deep/y.txt", "images/photo.jpg"}},
		{"skip subtree", "", FuncSelectorFull(
			func(*FileInfo) bool { return true },
			func(f *FileInfo) bool { return f.Name != "deep" },
		), true, []string{"a.txt", "b.json", "docs/readme.md", "images/photo.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := ListWithSelector(ctx, fs, tt.dir, tt.selector, tt.recursive)
			if err != nil {
				t.Fatalf("ListWithSelector failed: %v", err)
			}

			got := selectedPaths(files)
			want := map[string]bool{}
			for _, p := range tt.want {
				want[p] = true
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for _, p := range got {
				if !want[p] {
					t.Errorf("unexpected match %q (want %v)", p, tt.want)
				}
			}
		})
	}
}

func TestListWithSelectorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ListWithSelector(ctx, selectorTree(), "", All(), true); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSelectStopsEarly(t *testing.T) {
	fs := selectorTree()
	seen := 0
	for f, err := range Select(context.Background(), fs, "", All(), true) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.IsDir {
			t.Errorf("directory %q yielded", f.Path)
		}
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("expected to stop after 2 files, saw %d", seen)
	}
}

type failingLister struct {
	*mockFS
}

func (failingLister) ListContents(context.Context, string, bool) ([]FileInfo, error) {
	return nil, &PathError{Op: "listcontents", Err: ErrPermission}
}

func TestSelectListingError(t *testing.T) {
	var errs int
	for _, err := range Select(context.Background(), failingLister{selectorTree()}, "", All(), true) {
		if !errors.Is(err, ErrPermission) {
			t.Fatalf("expected ErrPermission, got %v", err)
		}
		errs++
	}
	if errs != 1 {
		t.Errorf("expected a single error, got %d", errs)
	}
}

func TestCompileGlob(t *testing.T) {
	sel, err := CompileGlob("docs/*.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sel.Match(&FileInfo{Name: "readme.md", Path: "docs/readme.md"}) {
		t.Error("expected path pattern to match")
	}
	if sel.Match(&FileInfo{Name: "readme.md", Path: "other/readme.md"}) {
		t.Error("expected path pattern to reject other directories")
	}
}
