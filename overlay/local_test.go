package overlay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/cowkit"
	"github.com/gobeaver/cowkit/driver/local"
)

func TestOverlayOnDisk(t *testing.T) {
	ctx := context.Background()

	baseRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(baseRoot, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(baseRoot, "docs", "a.txt"), []byte("base a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(baseRoot, "docs", "b.txt"), []byte("base b"), 0644))

	base, err := local.New(baseRoot)
	require.NoError(t, err)
	topRoot := t.TempDir()
	top, err := local.New(topRoot)
	require.NoError(t, err)

	ov := New(base, WithTop(top))

	require.NoError(t, ov.WriteBytes(ctx, "docs/a.txt", []byte("top a")))
	require.NoError(t, ov.Delete(ctx, "docs/b.txt"))
	require.NoError(t, ov.Move(ctx, "docs/a.txt", "moved/a.txt"))

	got, err := ov.ReadAll(ctx, "moved/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "top a", string(got))

	exists, err := ov.FileExists(ctx, "docs/b.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// The base directory is untouched on disk
	onDisk, err := os.ReadFile(filepath.Join(baseRoot, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "base a", string(onDisk))
	_, err = os.Stat(filepath.Join(baseRoot, "docs", "b.txt"))
	require.NoError(t, err)

	// Tombstones are plain JSON files in the top directory
	blob, err := os.ReadFile(filepath.Join(topRoot, DefaultSoftDeletedFilesPath))
	require.NoError(t, err)
	assert.JSONEq(t, `{"docs/a.txt":null,"docs/b.txt":null}`, string(blob))

	entries, err := ov.ListContents(ctx, "", true)
	require.NoError(t, err)
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
		assert.False(t, strings.HasPrefix(e.Name, ".soft_deleted"), "reserved blob listed: %s", e.Path)
	}
	assert.ElementsMatch(t, []string{"moved", "moved/a.txt", "docs"}, paths)
}

func TestOverlayOnDiskFromConfig(t *testing.T) {
	baseRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseRoot, "seed.txt"), []byte("seed"), 0644))

	cfg := &cowkit.Config{
		BaseDriver:                 "local",
		BaseLocalPath:              baseRoot,
		TopDriver:                  "local",
		TopLocalPath:               t.TempDir(),
		SoftDeletedFilesPath:       DefaultSoftDeletedFilesPath,
		SoftDeletedDirectoriesPath: DefaultSoftDeletedDirectoriesPath,
		LogLevel:                   "error",
	}
	ov, err := NewFromConfig(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ov.SetVisibility(ctx, "seed.txt", cowkit.Private))

	attrs, err := ov.Visibility(ctx, "seed.txt")
	require.NoError(t, err)
	assert.Equal(t, cowkit.Private, attrs.Visibility)

	info, err := os.Stat(filepath.Join(baseRoot, "seed.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}
