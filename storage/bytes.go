package storage

import (
	"bytes"
	"context"
	"io"
)

// UploadBytes stores data at path.
func UploadBytes(ctx context.Context, s Storage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}

// DownloadBytes reads the whole object at path.
func DownloadBytes(ctx context.Context, s Storage, path string) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only handle
	return io.ReadAll(rc)
}
