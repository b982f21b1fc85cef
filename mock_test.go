package cowkit

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

// mockFS is a small in-memory filesystem for testing decorators and helpers
type mockFS struct {
	files map[string][]byte
}

func newMockFS(files map[string]string) *mockFS {
	m := &mockFS{files: make(map[string][]byte)}
	for p, content := range files {
		m.files[p] = []byte(content)
	}
	return m
}

func (m *mockFS) Write(ctx context.Context, p string, content io.Reader, options ...Option) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	m.files[p] = data
	return nil
}

func (m *mockFS) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	data, ok := m.files[p]
	if !ok {
		return nil, &PathError{Op: "read", Path: p, Err: ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockFS) ReadAll(ctx context.Context, p string) ([]byte, error) {
	data, ok := m.files[p]
	if !ok {
		return nil, &PathError{Op: "read", Path: p, Err: ErrNotExist}
	}
	return data, nil
}

func (m *mockFS) Delete(ctx context.Context, p string) error {
	if _, ok := m.files[p]; !ok {
		return &PathError{Op: "delete", Path: p, Err: ErrNotExist}
	}
	delete(m.files, p)
	return nil
}

func (m *mockFS) FileExists(ctx context.Context, p string) (bool, error) {
	_, ok := m.files[p]
	return ok, nil
}

func (m *mockFS) DirExists(ctx context.Context, p string) (bool, error) {
	for filePath := range m.files {
		if strings.HasPrefix(filePath, p+"/") {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFS) Stat(ctx context.Context, p string) (*FileInfo, error) {
	data, ok := m.files[p]
	if !ok {
		return nil, &PathError{Op: "stat", Path: p, Err: ErrNotExist}
	}
	return &FileInfo{
		Name:        path.Base(p),
		Path:        p,
		Size:        int64(len(data)),
		ModTime:     time.Now(),
		ContentType: "text/plain",
	}, nil
}

// ListContents returns the direct children of dir, with directories
// inferred from file paths.
func (m *mockFS) ListContents(ctx context.Context, dir string, recursive bool) ([]FileInfo, error) {
	prefix := ""
	if dir != "" {
		prefix = strings.TrimSuffix(dir, "/") + "/"
	}

	seen := make(map[string]FileInfo)
	for filePath, data := range m.files {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		rest := strings.TrimPrefix(filePath, prefix)
		if name, _, isNested := strings.Cut(rest, "/"); isNested {
			seen[prefix+name] = FileInfo{Name: name, Path: prefix + name, IsDir: true}
			continue
		}
		seen[filePath] = FileInfo{Name: rest, Path: filePath, Size: int64(len(data))}
	}

	files := make([]FileInfo, 0, len(seen))
	for _, fi := range seen {
		files = append(files, fi)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (m *mockFS) CreateDir(ctx context.Context, p string) error {
	return nil
}

func (m *mockFS) DeleteDir(ctx context.Context, p string) error {
	for filePath := range m.files {
		if strings.HasPrefix(filePath, p+"/") {
			delete(m.files, filePath)
		}
	}
	return nil
}

// mockCapableFS adds the optional capabilities to mockFS
type mockCapableFS struct {
	*mockFS
}

func (m *mockCapableFS) Checksum(ctx context.Context, p string, algorithm ChecksumAlgorithm) (string, error) {
	return ChecksumFromStream(ctx, m, p, algorithm)
}

func (m *mockCapableFS) Checksums(ctx context.Context, p string, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	return ChecksumsFromStream(ctx, m, p, algorithms)
}

func (m *mockCapableFS) SignedURL(ctx context.Context, p string, expires time.Duration) (string, error) {
	return "https://signed.example.com/" + p + "?expires=" + expires.String(), nil
}

func (m *mockCapableFS) SignedUploadURL(ctx context.Context, p string, expires time.Duration) (string, error) {
	return "https://upload.example.com/" + p, nil
}

func (m *mockCapableFS) PublicURL(ctx context.Context, p string) (string, error) {
	return "https://public.example.com/" + p, nil
}
