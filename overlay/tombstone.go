package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gobeaver/cowkit"
)

const (
	// DefaultSoftDeletedFilesPath is where file tombstones are kept in the top layer.
	DefaultSoftDeletedFilesPath = ".soft_deleted_files.json"

	// DefaultSoftDeletedDirectoriesPath is where directory tombstones are kept in the top layer.
	DefaultSoftDeletedDirectoriesPath = ".soft_deleted_directories.json"
)

// PathSet is a set of normalized paths.
type PathSet map[string]struct{}

// Has reports whether p is in the set.
func (s PathSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as {"<path>": null, ...}.
func (s PathSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s))
	for p := range s {
		m[p] = nil
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes a JSON object, keeping only its keys.
func (s *PathSet) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	set := make(PathSet, len(m))
	for p := range m {
		set[p] = struct{}{}
	}
	*s = set
	return nil
}

// TombstoneStore persists file and directory tombstones as JSON blobs in the
// top layer. Sets are reloaded on every call so that another handle on the
// same top layer observes fresh state.
//
// Add operations serialize their read-modify-write cycle with a mutex scoped
// to the blob path. Writers in other processes are not coordinated.
type TombstoneStore struct {
	top       cowkit.FileSystem
	filesPath string
	dirsPath  string

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	logger  *slog.Logger
	metrics *Metrics
}

// NewTombstoneStore creates a store keeping its blobs at filesPath and
// dirsPath inside top. Empty paths fall back to the defaults.
func NewTombstoneStore(top cowkit.FileSystem, filesPath, dirsPath string) *TombstoneStore {
	if filesPath == "" {
		filesPath = DefaultSoftDeletedFilesPath
	}
	if dirsPath == "" {
		dirsPath = DefaultSoftDeletedDirectoriesPath
	}
	return &TombstoneStore{
		top:       top,
		filesPath: filesPath,
		dirsPath:  dirsPath,
		locks:     make(map[string]*sync.Mutex),
		logger:    discardLogger,
	}
}

// FilesPath returns the location of the file tombstone blob.
func (s *TombstoneStore) FilesPath() string { return s.filesPath }

// DirectoriesPath returns the location of the directory tombstone blob.
func (s *TombstoneStore) DirectoriesPath() string { return s.dirsPath }

// IsReserved reports whether p names one of the tombstone blobs.
func (s *TombstoneStore) IsReserved(p string) bool {
	fp := FilePath(p)
	return fp == FilePath(s.filesPath) || fp == FilePath(s.dirsPath)
}

// Load reads the set stored at blob. A missing blob is an empty set.
func (s *TombstoneStore) Load(ctx context.Context, blob string) (PathSet, error) {
	exists, err := s.top.FileExists(ctx, blob)
	if err != nil {
		return nil, &cowkit.PathError{Op: "tombstone-load", Path: blob, Err: err}
	}
	if !exists {
		return PathSet{}, nil
	}

	data, err := s.top.ReadAll(ctx, blob)
	if err != nil {
		return nil, &cowkit.PathError{Op: "tombstone-load", Path: blob, Err: cowkit.WrapOpError(cowkit.ErrUnableToRead, err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return PathSet{}, nil
	}

	var set PathSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, &cowkit.PathError{Op: "tombstone-load", Path: blob, Err: cowkit.WrapOpError(ErrTombstoneDecode, err)}
	}
	return set, nil
}

// Save replaces the blob with the given set.
func (s *TombstoneStore) Save(ctx context.Context, blob string, set PathSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return &cowkit.PathError{Op: "tombstone-save", Path: blob, Err: cowkit.WrapOpError(ErrTombstoneEncode, err)}
	}

	if err := s.top.Write(ctx, blob, bytes.NewReader(data),
		cowkit.WithOverwrite(true),
		cowkit.WithContentType("application/json"),
	); err != nil {
		return &cowkit.PathError{Op: "tombstone-save", Path: blob, Err: cowkit.WrapOpError(cowkit.ErrUnableToWrite, err)}
	}
	return nil
}

// AddFile records a file tombstone for p.
func (s *TombstoneStore) AddFile(ctx context.Context, p string) error {
	return s.add(ctx, s.filesPath, FilePath(p), "file")
}

// AddDirectory records a directory tombstone for p and everything below it.
func (s *TombstoneStore) AddDirectory(ctx context.Context, p string) error {
	return s.add(ctx, s.dirsPath, DirPath(p), "directory")
}

func (s *TombstoneStore) add(ctx context.Context, blob, key, kind string) error {
	lock := s.lockFor(blob)
	lock.Lock()
	defer lock.Unlock()

	set, err := s.Load(ctx, blob)
	if err != nil {
		return err
	}
	set[key] = struct{}{}

	if err := s.Save(ctx, blob, set); err != nil {
		s.logger.Warn("tombstone write failed", "kind", kind, "path", key, "error", err)
		s.metrics.tombstoneWrite(kind, err)
		return err
	}

	s.logger.Debug("tombstone written", "kind", kind, "path", key, "count", len(set))
	s.metrics.tombstoneWrite(kind, nil)
	return nil
}

func (s *TombstoneStore) lockFor(blob string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := FilePath(blob)
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Files returns the current file tombstones.
func (s *TombstoneStore) Files(ctx context.Context) (PathSet, error) {
	return s.Load(ctx, s.filesPath)
}

// Directories returns the current directory tombstones.
func (s *TombstoneStore) Directories(ctx context.Context) (PathSet, error) {
	return s.Load(ctx, s.dirsPath)
}

// IsFileTombstoned reports whether p carries a file tombstone.
func (s *TombstoneStore) IsFileTombstoned(ctx context.Context, p string) (bool, error) {
	set, err := s.Files(ctx)
	if err != nil {
		return false, err
	}
	return set.Has(FilePath(p)), nil
}

// IsDirectoryTombstoned reports whether p or one of its ancestors carries a
// directory tombstone.
func (s *TombstoneStore) IsDirectoryTombstoned(ctx context.Context, p string) (bool, error) {
	set, err := s.Directories(ctx)
	if err != nil {
		return false, err
	}

	dir := DirPath(p)
	for prefix := range set {
		if strings.HasPrefix(dir, prefix) {
			return true, nil
		}
	}
	return false, nil
}
