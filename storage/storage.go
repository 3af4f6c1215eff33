package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when no object exists at a path.
var ErrNotFound = errors.New("storage: object not found")

// ErrOutsideRoot is returned for paths that escape the storage root.
var ErrOutsideRoot = errors.New("storage: path escapes storage root")

// FileInfo contains metadata about a stored object.
type FileInfo struct {
	Path         string // relative to the storage root
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage defines the interface for object storage operations.
type Storage interface {
	// Upload writes data from reader to the given path. Readers never
	// observe a partially written object.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download returns a reader for the object at the given path.
	// The caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at the given path.
	// Returns nil if the object does not exist.
	Delete(ctx context.Context, path string) error

	// Exists checks whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns metadata for the object at path, or ErrNotFound.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// URL returns a URL for accessing the object at the given path.
	URL(ctx context.Context, path string) (string, error)

	// List returns metadata for all objects whose path starts with prefix,
	// sorted by path. A missing root yields an empty list.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}

// ContentType returns the MIME type for a transcript file by extension.
func ContentType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
