package overlay

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/cowkit"
	"github.com/gobeaver/cowkit/driver/memory"
)

// seedBase returns a memory driver holding the given path/content pairs.
func seedBase(t *testing.T, files map[string]string) *memory.Adapter {
	t.Helper()
	base := memory.New()
	for p, content := range files {
		require.NoError(t, base.Write(context.Background(), p, strings.NewReader(content)))
	}
	return base
}

func TestNew(t *testing.T) {
	t.Run("wraps a writable base", func(t *testing.T) {
		base := memory.New()
		ov := New(base)

		assert.Same(t, base, ov.Base().Unwrap())
		assert.NotNil(t, ov.Top())
		assert.NotNil(t, ov.Tombstones())
	})

	t.Run("keeps a read-only base as is", func(t *testing.T) {
		ro := cowkit.NewReadOnlyFileSystem(memory.New())
		ov := New(ro)
		assert.Same(t, ro, ov.Base())
	})

	t.Run("uses the supplied top", func(t *testing.T) {
		top := memory.New()
		ov := New(memory.New(), WithTop(top))
		assert.Same(t, top, ov.Top())
	})

	t.Run("custom tombstone paths", func(t *testing.T) {
		ov := New(memory.New(), WithSoftDeletedFilesPath("f.json"), WithSoftDeletedDirectoriesPath("d.json"))
		assert.Equal(t, "f.json", ov.Tombstones().FilesPath())
		assert.Equal(t, "d.json", ov.Tombstones().DirectoriesPath())
	})
}

func TestUntouchedPathsMatchBase(t *testing.T) {
	ctx := context.Background()
	base := seedBase(t, map[string]string{"1.txt": "1", "a/b.txt": "ab"})
	ov := New(base)

	for _, p := range []string{"1.txt", "a/b.txt", "missing.txt"} {
		t.Run(p, func(t *testing.T) {
			want, err := base.FileExists(ctx, p)
			require.NoError(t, err)
			got, err := ov.FileExists(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			wantData, wantErr := base.ReadAll(ctx, p)
			gotData, gotErr := ov.ReadAll(ctx, p)
			assert.Equal(t, wantData, gotData)
			assert.Equal(t, wantErr, gotErr)

			wantInfo, _ := base.Stat(ctx, p)
			gotInfo, _ := ov.Stat(ctx, p)
			assert.Equal(t, wantInfo, gotInfo)
		})
	}
}

func TestWriteNeverTouchesBase(t *testing.T) {
	ctx := context.Background()
	base := seedBase(t, map[string]string{"1.txt": "1"})
	ov := New(base)

	require.NoError(t, ov.WriteBytes(ctx, "1.txt", []byte("one"), cowkit.WithOverwrite(true)))
	require.NoError(t, ov.Write(ctx, "new.txt", strings.NewReader("new")))
	require.NoError(t, ov.CreateDir(ctx, "fresh"))

	data, err := ov.ReadAll(ctx, "1.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	data, err = base.ReadAll(ctx, "1.txt")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	exists, _ := base.FileExists(ctx, "new.txt")
	assert.False(t, exists)
	exists, _ = base.DirExists(ctx, "fresh")
	assert.False(t, exists)

	exists, err = ov.DirExists(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTombstoneBlobsAreReserved(t *testing.T) {
	ctx := context.Background()
	ov := New(seedBase(t, map[string]string{"1.txt": "1", "2.txt": "2"}))
	require.NoError(t, ov.Delete(ctx, "1.txt"))

	blob := DefaultSoftDeletedFilesPath
	mutations := map[string]func() error{
		"write":         func() error { return ov.WriteBytes(ctx, blob, []byte("{}"), cowkit.WithOverwrite(true)) },
		"write slashed": func() error { return ov.WriteBytes(ctx, "/"+blob, []byte("{}"), cowkit.WithOverwrite(true)) },
		"delete":        func() error { return ov.Delete(ctx, blob) },
		"createdir":     func() error { return ov.CreateDir(ctx, DefaultSoftDeletedDirectoriesPath) },
		"deletedir":     func() error { return ov.DeleteDir(ctx, DefaultSoftDeletedDirectoriesPath) },
		"setvisibility": func() error { return ov.SetVisibility(ctx, blob, cowkit.Private) },
		"copy onto":     func() error { return ov.Copy(ctx, "2.txt", blob) },
		"move onto":     func() error { return ov.Move(ctx, "2.txt", blob) },
		"move away":     func() error { return ov.Move(ctx, blob, "stolen.json") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, mutate(), cowkit.ErrNotAllowed)
		})
	}

	data, err := ov.Top().ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.JSONEq(t, `{"/1.txt":null}`, string(data))

	exists, err := ov.FileExists(ctx, "1.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, _ = ov.FileExists(ctx, "2.txt")
	assert.True(t, exists)
}

func TestReadStream(t *testing.T) {
	ctx := context.Background()
	ov := New(seedBase(t, map[string]string{"1.txt": "1"}))
	require.NoError(t, ov.WriteBytes(ctx, "2.txt", []byte("2")))

	for p, want := range map[string]string{"1.txt": "1", "2.txt": "2"} {
		rc, err := ov.Read(ctx, p)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("soft deletes a base file", func(t *testing.T) {
		base := seedBase(t, map[string]string{"1.txt": "1"})
		ov := New(base)

		exists, err := ov.FileExists(ctx, "1.txt")
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, ov.Delete(ctx, "1.txt"))

		exists, err = ov.FileExists(ctx, "1.txt")
		require.NoError(t, err)
		assert.False(t, exists)

		exists, _ = base.FileExists(ctx, "1.txt")
		assert.True(t, exists)

		_, err = ov.ReadAll(ctx, "1.txt")
		assert.True(t, cowkit.IsNotExist(err))

		blob, err := ov.Top().ReadAll(ctx, DefaultSoftDeletedFilesPath)
		require.NoError(t, err)
		assert.JSONEq(t, `{"/1.txt":null}`, string(blob))
	})

	t.Run("hard deletes a top file", func(t *testing.T) {
		ov := New(memory.New())
		require.NoError(t, ov.WriteBytes(ctx, "t.txt", []byte("t")))
		require.NoError(t, ov.Delete(ctx, "t.txt"))

		exists, _ := ov.FileExists(ctx, "t.txt")
		assert.False(t, exists)
		exists, _ = ov.Top().FileExists(ctx, DefaultSoftDeletedFilesPath)
		assert.False(t, exists, "top-only deletes need no tombstone")
	})

	t.Run("removes both copies of an overridden file", func(t *testing.T) {
		ov := New(seedBase(t, map[string]string{"1.txt": "1"}))
		require.NoError(t, ov.WriteBytes(ctx, "1.txt", []byte("one")))
		require.NoError(t, ov.Delete(ctx, "1.txt"))

		exists, _ := ov.FileExists(ctx, "1.txt")
		assert.False(t, exists)
	})

	t.Run("missing path is a no-op", func(t *testing.T) {
		ov := New(memory.New())
		assert.NoError(t, ov.Delete(ctx, "nowhere.txt"))
	})

	t.Run("tombstone write failure is reported", func(t *testing.T) {
		top := &failingTop{Adapter: memory.New(), failPath: DefaultSoftDeletedFilesPath}
		ov := New(seedBase(t, map[string]string{"1.txt": "1"}), WithTop(top))
		require.NoError(t, top.Adapter.Write(ctx, "1.txt", strings.NewReader("one")))

		err := ov.Delete(ctx, "1.txt")
		require.Error(t, err)
		assert.ErrorIs(t, err, cowkit.ErrUnableToDelete)
		assert.ErrorIs(t, err, errInjected)

		var pathErr *cowkit.PathError
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "delete", pathErr.Op)

		exists, _ := top.FileExists(ctx, "1.txt")
		assert.True(t, exists, "top copy must survive a failed tombstone write")
	})
}

func TestWriteDeleteWrite(t *testing.T) {
	ctx := context.Background()
	ov := New(seedBase(t, map[string]string{"p.txt": "base"}))

	require.NoError(t, ov.WriteBytes(ctx, "p.txt", []byte("first")))
	require.NoError(t, ov.Delete(ctx, "p.txt"))
	exists, _ := ov.FileExists(ctx, "p.txt")
	require.False(t, exists)

	require.NoError(t, ov.WriteBytes(ctx, "p.txt", []byte("second")))

	exists, err := ov.FileExists(ctx, "p.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := ov.ReadAll(ctx, "p.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestDeleteUnnormalizedPaths(t *testing.T) {
	ctx := context.Background()
	ov := New(seedBase(t, map[string]string{"a/b.txt": "ab", "d/e.txt": "de"}))

	require.NoError(t, ov.Delete(ctx, "a//b.txt"))
	require.NoError(t, ov.DeleteDir(ctx, "./d"))

	for _, p := range []string{"a/b.txt", "/a/b.txt", "a/./b.txt"} {
		exists, err := ov.FileExists(ctx, p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
	exists, err := ov.DirExists(ctx, "d")
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := ov.ListContents(ctx, "", true)
	require.NoError(t, err)
	files, dirs := splitEntries(t, entries)
	assert.Empty(t, files)
	assert.Equal(t, []string{"a"}, dirs)

	fileSet, err := ov.Tombstones().Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b.txt"}, fileSet.Sorted())
	dirSet, err := ov.Tombstones().Directories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/d/"}, dirSet.Sorted())
}

func TestDeleteDir(t *testing.T) {
	ctx := context.Background()

	t.Run("soft deletes a base directory", func(t *testing.T) {
		base := memory.New()
		require.NoError(t, base.CreateDir(ctx, "2"))
		ov := New(base)

		exists, _ := ov.DirExists(ctx, "2")
		require.True(t, exists)

		require.NoError(t, ov.DeleteDir(ctx, "2"))

		exists, err := ov.DirExists(ctx, "2")
		require.NoError(t, err)
		assert.False(t, exists)
		exists, _ = base.DirExists(ctx, "2")
		assert.True(t, exists)
	})

	t.Run("hides child directories", func(t *testing.T) {
		base := memory.New()
		require.NoError(t, base.CreateDir(ctx, "3/3"))
		ov := New(base)

		exists, _ := ov.DirExists(ctx, "3/3")
		require.True(t, exists)

		require.NoError(t, ov.DeleteDir(ctx, "3"))

		exists, _ = ov.DirExists(ctx, "3/3")
		assert.False(t, exists)
		exists, _ = base.DirExists(ctx, "3/3")
		assert.True(t, exists)
	})

	t.Run("keeps parent directories", func(t *testing.T) {
		base := memory.New()
		require.NoError(t, base.CreateDir(ctx, "3/3"))
		ov := New(base)

		require.NoError(t, ov.DeleteDir(ctx, "3/3"))

		exists, _ := ov.DirExists(ctx, "3/3")
		assert.False(t, exists)
		exists, _ = ov.DirExists(ctx, "3")
		assert.True(t, exists)
		exists, _ = base.DirExists(ctx, "3/3")
		assert.True(t, exists)
	})

	t.Run("hides files below the directory", func(t *testing.T) {
		base := seedBase(t, map[string]string{"3/3/3.txt": "333", "3/1.txt": "31"})
		ov := New(base)

		require.NoError(t, ov.DeleteDir(ctx, "3/3"))

		exists, err := ov.FileExists(ctx, "3/3/3.txt")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = ov.ReadAll(ctx, "3/3/3.txt")
		assert.True(t, cowkit.IsNotExist(err))

		exists, _ = ov.FileExists(ctx, "3/1.txt")
		assert.True(t, exists)
	})

	t.Run("recreating under a deleted directory", func(t *testing.T) {
		ov := New(seedBase(t, map[string]string{"d/old.txt": "old"}))
		require.NoError(t, ov.DeleteDir(ctx, "d"))
		require.NoError(t, ov.WriteBytes(ctx, "d/new.txt", []byte("new")))

		exists, _ := ov.DirExists(ctx, "d")
		assert.True(t, exists)
		exists, _ = ov.FileExists(ctx, "d/new.txt")
		assert.True(t, exists)
		exists, _ = ov.FileExists(ctx, "d/old.txt")
		assert.False(t, exists)

		err := ov.Copy(ctx, "d/old.txt", "rescued.txt")
		assert.True(t, cowkit.IsNotExist(err))
	})

	t.Run("tombstone write failure is reported", func(t *testing.T) {
		base := memory.New()
		require.NoError(t, base.CreateDir(ctx, "2"))
		top := &failingTop{Adapter: memory.New(), failPath: DefaultSoftDeletedDirectoriesPath}
		ov := New(base, WithTop(top))

		err := ov.DeleteDir(ctx, "2")
		assert.ErrorIs(t, err, cowkit.ErrUnableToDelete)
		assert.ErrorIs(t, err, errInjected)

		exists, _ := ov.DirExists(ctx, "2")
		assert.True(t, exists)
	})
}

func TestTombstonesSurviveNewInstance(t *testing.T) {
	ctx := context.Background()
	base := seedBase(t, map[string]string{"1.txt": "1", "d/f.txt": "f"})
	top := memory.New()

	first := New(base, WithTop(top))
	require.NoError(t, first.Delete(ctx, "1.txt"))
	require.NoError(t, first.DeleteDir(ctx, "d"))

	second := New(base, WithTop(top))
	exists, err := second.FileExists(ctx, "1.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = second.DirExists(ctx, "d")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("base-only source is copied up and tombstoned", func(t *testing.T) {
		base := seedBase(t, map[string]string{"src.txt": "payload"})
		ov := New(base)

		require.NoError(t, ov.Move(ctx, "src.txt", "dst.txt"))

		data, err := ov.ReadAll(ctx, "dst.txt")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))

		exists, _ := ov.FileExists(ctx, "src.txt")
		assert.False(t, exists)

		data, err = base.ReadAll(ctx, "src.txt")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("top source moves inside top", func(t *testing.T) {
		ov := New(memory.New())
		require.NoError(t, ov.WriteBytes(ctx, "a.txt", []byte("a")))

		require.NoError(t, ov.Move(ctx, "a.txt", "b.txt"))

		exists, _ := ov.FileExists(ctx, "a.txt")
		assert.False(t, exists)
		data, err := ov.ReadAll(ctx, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
	})

	t.Run("moving a modified base file keeps the base original hidden", func(t *testing.T) {
		base := seedBase(t, map[string]string{"a.txt": "base"})
		ov := New(base)
		require.NoError(t, ov.WriteBytes(ctx, "a.txt", []byte("top")))

		require.NoError(t, ov.Move(ctx, "a.txt", "b.txt"))

		exists, err := ov.FileExists(ctx, "a.txt")
		require.NoError(t, err)
		assert.False(t, exists)
		data, err := ov.ReadAll(ctx, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, "top", string(data))

		tombstoned, err := ov.Tombstones().IsFileTombstoned(ctx, "a.txt")
		require.NoError(t, err)
		assert.True(t, tombstoned)
	})

	t.Run("top without native move", func(t *testing.T) {
		top := struct{ cowkit.FileSystem }{memory.New()}
		ov := New(memory.New(), WithTop(top))
		require.NoError(t, ov.WriteBytes(ctx, "a.txt", []byte("a")))

		require.NoError(t, ov.Move(ctx, "a.txt", "b.txt"))

		exists, _ := ov.FileExists(ctx, "a.txt")
		assert.False(t, exists)
		data, err := ov.ReadAll(ctx, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
	})

	t.Run("missing source reports move error", func(t *testing.T) {
		ov := New(memory.New())

		err := ov.Move(ctx, "missing.txt", "dst.txt")
		require.Error(t, err)
		assert.ErrorIs(t, err, cowkit.ErrUnableToMove)
		assert.True(t, cowkit.IsNotExist(err))

		var transferErr *cowkit.TransferError
		require.ErrorAs(t, err, &transferErr)
		assert.Equal(t, "missing.txt", transferErr.Source)
		assert.Equal(t, "dst.txt", transferErr.Destination)
	})

	t.Run("keeps content type", func(t *testing.T) {
		base := memory.New()
		require.NoError(t, base.Write(ctx, "data", strings.NewReader("{}"), cowkit.WithContentType("application/json")))
		ov := New(base)

		require.NoError(t, ov.Move(ctx, "data", "moved"))

		info, err := ov.MimeType(ctx, "moved")
		require.NoError(t, err)
		assert.Equal(t, "application/json", info.ContentType)
	})
}

func TestCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("base original stays readable", func(t *testing.T) {
		ov := New(seedBase(t, map[string]string{"src.txt": "payload"}))

		require.NoError(t, ov.Copy(ctx, "src.txt", "copy/dst.txt"))

		for _, p := range []string{"src.txt", "copy/dst.txt"} {
			data, err := ov.ReadAll(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(data))
		}

		exists, _ := ov.Top().FileExists(ctx, DefaultSoftDeletedFilesPath)
		assert.False(t, exists)
	})

	t.Run("top source copies inside top", func(t *testing.T) {
		ov := New(seedBase(t, map[string]string{"a.txt": "base"}))
		require.NoError(t, ov.WriteBytes(ctx, "a.txt", []byte("top")))

		require.NoError(t, ov.Copy(ctx, "a.txt", "b.txt"))

		data, err := ov.ReadAll(ctx, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, "top", string(data))
	})

	t.Run("top without native copy", func(t *testing.T) {
		top := struct{ cowkit.FileSystem }{memory.New()}
		ov := New(memory.New(), WithTop(top))
		require.NoError(t, ov.WriteBytes(ctx, "a.txt", []byte("a")))

		require.NoError(t, ov.Copy(ctx, "a.txt", "b.txt"))

		data, err := ov.ReadAll(ctx, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
	})

	t.Run("missing source reports copy error", func(t *testing.T) {
		ov := New(memory.New())

		err := ov.Copy(ctx, "missing.txt", "dst.txt")
		assert.ErrorIs(t, err, cowkit.ErrUnableToCopy)
		assert.True(t, cowkit.IsNotExist(err))
	})

	t.Run("deleted source is not resurrected", func(t *testing.T) {
		ov := New(seedBase(t, map[string]string{"gone.txt": "g"}))
		require.NoError(t, ov.Delete(ctx, "gone.txt"))

		err := ov.Copy(ctx, "gone.txt", "dst.txt")
		assert.True(t, cowkit.IsNotExist(err))
	})
}

func TestSetVisibility(t *testing.T) {
	ctx := context.Background()

	t.Run("copies up a base file", func(t *testing.T) {
		base := memory.New()
		require.NoError(t, base.Write(ctx, "1.txt", strings.NewReader("1")))
		ov := New(base)

		require.NoError(t, ov.SetVisibility(ctx, "1.txt", cowkit.Private))

		info, err := ov.Visibility(ctx, "1.txt")
		require.NoError(t, err)
		assert.Equal(t, cowkit.Private, info.Visibility)

		exists, _ := ov.Top().FileExists(ctx, "1.txt")
		assert.True(t, exists)

		baseInfo, err := base.Stat(ctx, "1.txt")
		require.NoError(t, err)
		assert.Equal(t, cowkit.Public, baseInfo.Visibility)
	})

	t.Run("updates a top file in place", func(t *testing.T) {
		ov := New(memory.New())
		require.NoError(t, ov.WriteBytes(ctx, "t.txt", []byte("t")))

		require.NoError(t, ov.SetVisibility(ctx, "t.txt", cowkit.Private))

		info, err := ov.Visibility(ctx, "t.txt")
		require.NoError(t, err)
		assert.Equal(t, cowkit.Private, info.Visibility)
	})

	t.Run("missing file", func(t *testing.T) {
		ov := New(memory.New())

		err := ov.SetVisibility(ctx, "missing.txt", cowkit.Private)
		require.Error(t, err)
		assert.ErrorIs(t, err, cowkit.ErrUnableToSetVisibility)
		assert.True(t, cowkit.IsNotExist(err))
	})

	t.Run("deleted file", func(t *testing.T) {
		ov := New(seedBase(t, map[string]string{"gone.txt": "g"}))
		require.NoError(t, ov.Delete(ctx, "gone.txt"))

		err := ov.SetVisibility(ctx, "gone.txt", cowkit.Private)
		assert.ErrorIs(t, err, cowkit.ErrUnableToSetVisibility)

		exists, _ := ov.FileExists(ctx, "gone.txt")
		assert.False(t, exists)
	})

	t.Run("top without visibility support", func(t *testing.T) {
		top := struct{ cowkit.FileSystem }{memory.New()}
		ov := New(memory.New(), WithTop(top))
		require.NoError(t, ov.WriteBytes(ctx, "t.txt", []byte("t")))

		err := ov.SetVisibility(ctx, "t.txt", cowkit.Private)
		assert.ErrorIs(t, err, cowkit.ErrUnableToSetVisibility)
		assert.ErrorIs(t, err, cowkit.ErrNotSupported)
	})
}

func TestFileAttributes(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	require.NoError(t, base.Write(ctx, "doc.json", strings.NewReader(`{"a":1}`)))
	ov := New(base)

	info, err := ov.FileSize(ctx, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)

	info, err = ov.MimeType(ctx, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType)

	require.NoError(t, ov.WriteBytes(ctx, "doc.json", []byte(`{}`), cowkit.WithOverwrite(true)))

	info, err = ov.LastModified(ctx, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size)
	assert.False(t, info.ModTime.IsZero())

	require.NoError(t, ov.Delete(ctx, "doc.json"))
	_, err = ov.FileSize(ctx, "doc.json")
	assert.True(t, cowkit.IsNotExist(err))
}

func TestStatDirectories(t *testing.T) {
	ctx := context.Background()
	ov := New(seedBase(t, map[string]string{"b/f.txt": "f"}))
	require.NoError(t, ov.CreateDir(ctx, "t"))

	info, err := ov.Stat(ctx, "b")
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	info, err = ov.Stat(ctx, "t")
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	require.NoError(t, ov.DeleteDir(ctx, "b"))
	_, err = ov.Stat(ctx, "b")
	assert.True(t, cowkit.IsNotExist(err))
}

func TestBaseIsNeverWritten(t *testing.T) {
	ctx := context.Background()
	var attempts []string
	base := cowkit.NewReadOnlyFileSystem(seedBase(t, map[string]string{"1.txt": "1", "2.txt": "2", "d/x.txt": "x"}),
		cowkit.WithWriteAttemptHandler(func(op, path string) {
			attempts = append(attempts, op+" "+path)
		}))
	ov := New(base)

	require.NoError(t, ov.WriteBytes(ctx, "1.txt", []byte("one")))
	require.NoError(t, ov.Delete(ctx, "1.txt"))
	require.NoError(t, ov.DeleteDir(ctx, "d"))
	require.NoError(t, ov.Copy(ctx, "2.txt", "y.txt"))
	require.NoError(t, ov.Move(ctx, "2.txt", "z.txt"))
	require.NoError(t, ov.CreateDir(ctx, "e"))

	assert.Empty(t, attempts)
}
