package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/video-transcriber-mcp/storage"
)

// Storage implements storage.Storage using the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a filesystem storage rooted at basePath. The directory
// is created on first upload, not here, so listing a missing directory
// stays side-effect free.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

// BasePath returns the absolute root directory.
func (s *Storage) BasePath() string { return s.basePath }

// Resolve maps a relative path to its absolute location, rejecting paths
// that escape the root.
func (s *Storage) Resolve(path string) (string, error) {
	full := filepath.Join(s.basePath, filepath.Clean("/"+path))
	if full != s.basePath && !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", storage.ErrOutsideRoot
	}
	return full, nil
}

// Rel maps an absolute path back to a path relative to the root.
func (s *Storage) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(s.basePath, filepath.Clean(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", storage.ErrOutsideRoot
	}
	return rel, nil
}

// Upload writes to a temporary file next to the target and renames it into
// place.
func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	fullPath, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmpName, err := writeTemp(fullPath, reader)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("storage: rename file: %w", err)
	}
	return nil
}

// writeTemp copies reader into a readable temporary file in the target's
// directory and returns its name.
func writeTemp(fullPath string, reader io.Reader) (string, error) {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("storage: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (string, error) {
		os.Remove(tmpName) //nolint:errcheck,gosec // already failing
		return "", err
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fail(fmt.Errorf("storage: write file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("storage: close file: %w", err))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // transcripts are meant to be readable
		return fail(fmt.Errorf("storage: chmod file: %w", err))
	}
	return tmpName, nil
}

// Download returns a reader for the local file at the given path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath) //nolint:gosec // path is confined to the root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Delete removes a local file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	fullPath, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Exists checks whether a local file exists.
func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.Stat(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Stat returns metadata for a local file.
func (s *Storage) Stat(_ context.Context, path string) (*storage.FileInfo, error) {
	fullPath, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, fmt.Errorf("storage: stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", storage.ErrNotFound, path)
	}
	return s.fileInfo(fullPath, info), nil
}

// URL returns a file:// URL for the local file.
func (s *Storage) URL(_ context.Context, path string) (string, error) {
	fullPath, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	u := &url.URL{Scheme: "file", Path: fullPath}
	return u.String(), nil
}

// List returns metadata for all files whose relative path starts with
// prefix. Temporary upload files are skipped.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	files := []storage.FileInfo{}

	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(relPath, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, *s.fileInfo(path, info))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []storage.FileInfo{}, nil
		}
		return nil, fmt.Errorf("storage: list files: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func (s *Storage) fileInfo(fullPath string, info os.FileInfo) *storage.FileInfo {
	rel, _ := filepath.Rel(s.basePath, fullPath)
	return &storage.FileInfo{
		Path:         rel,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		ContentType:  storage.ContentType(fullPath),
	}
}

// compile-time check
var _ storage.Storage = (*Storage)(nil)
