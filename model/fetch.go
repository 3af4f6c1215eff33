package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/video-transcriber-mcp/httpclient"
)

// Fetcher copies a remote model file into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

// HTTPFetcher streams model files over HTTP.
type HTTPFetcher struct {
	client *httpclient.Client
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
func NewHTTPFetcher(timeout time.Duration) (*HTTPFetcher, error) {
	client, err := httpclient.New(httpclient.Config{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	return &HTTPFetcher{client: client}, nil
}

// Fetch downloads url into w, failing on short reads.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	stream, err := f.client.DoStream(ctx, httpclient.Request{Method: http.MethodGet, Path: url})
	if err != nil {
		return 0, err
	}
	defer stream.Close() //nolint:errcheck // body fully consumed or abandoned

	n, err := io.Copy(w, stream.Body)
	if err != nil {
		return n, httpclient.NewConnectionError(fmt.Errorf("download %s: %w", url, err))
	}
	if stream.ContentLength > 0 && n != stream.ContentLength {
		return n, httpclient.NewConnectionError(fmt.Errorf("download %s: got %d of %d bytes", url, n, stream.ContentLength))
	}
	return n, nil
}
