package model

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/httpclient"
	"github.com/kbukum/video-transcriber-mcp/resilience"
)

type fakeFetcher struct {
	calls   atomic.Int32
	delay   time.Duration
	failFor int32
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if n <= f.failFor {
		return 0, f.err
	}
	written, err := io.WriteString(w, "ggml-weights")
	return int64(written), err
}

func newTestRegistry(t *testing.T, auto bool, f Fetcher) *Registry {
	t.Helper()
	r := NewRegistry(Config{Dir: t.TempDir(), AutoDownload: auto, BaseURL: "https://models.test/"}, f, nil)
	return r.WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
}

func TestParseTier(t *testing.T) {
	if tier, err := ParseTier(" Base "); err != nil || tier != TierBase {
		t.Errorf("expected base, got %q %v", tier, err)
	}
	if _, err := ParseTier("huge"); err == nil {
		t.Error("expected error for unknown tier")
	}
	if TierLarge.FileName() != "ggml-large.bin" {
		t.Errorf("unexpected file name %q", TierLarge.FileName())
	}
}

func TestResolveSingleFlight(t *testing.T) {
	f := &fakeFetcher{delay: 50 * time.Millisecond}
	r := newTestRegistry(t, true, f)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			asset, err := r.Resolve(context.Background(), TierBase)
			if err == nil && asset.State != StateReady {
				err = fmt.Errorf("expected ready, got %s", asset.State)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Resolve: %v", err)
		}
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", got)
	}
	if r.Status(TierBase).State != StateReady {
		t.Error("expected base to be ready afterwards")
	}

	// a second round hits the file on disk
	if _, err := r.Resolve(context.Background(), TierBase); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected no further fetch, got %d", got)
	}
}

func TestResolveWithoutAutoDownload(t *testing.T) {
	f := &fakeFetcher{}
	r := newTestRegistry(t, false, f)
	_, err := r.Resolve(context.Background(), TierSmall)
	if !errors.Is(err, errors.ErrCodeInference) {
		t.Fatalf("expected INFERENCE_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "https://models.test/ggml-small.bin") {
		t.Errorf("expected install hint with URL, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Error("expected no fetch when auto download is off")
	}
}

func TestResolveExistingFile(t *testing.T) {
	r := newTestRegistry(t, false, nil)
	if err := os.WriteFile(r.Path(TierTiny), []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	asset, err := r.Resolve(context.Background(), TierTiny)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if asset.Size != 7 {
		t.Errorf("expected size 7, got %d", asset.Size)
	}
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	f := &fakeFetcher{failFor: 2, err: httpclient.NewStatusError(503, nil)}
	r := newTestRegistry(t, true, f)
	if _, err := r.Resolve(context.Background(), TierBase); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if f.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", f.calls.Load())
	}
}

func TestResolveDoesNotRetryNotFound(t *testing.T) {
	f := &fakeFetcher{failFor: 5, err: httpclient.NewStatusError(404, nil)}
	r := newTestRegistry(t, true, f)
	_, err := r.Resolve(context.Background(), TierMedium)
	if !errors.Is(err, errors.ErrCodeInference) {
		t.Fatalf("expected INFERENCE_ERROR, got %v", err)
	}
	if f.calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", f.calls.Load())
	}
	entries, _ := os.ReadDir(r.Dir())
	if len(entries) != 0 {
		t.Errorf("expected no leftover files, got %d", len(entries))
	}
	if r.Status(TierMedium).State != StateMissing {
		t.Error("expected medium to remain missing")
	}
}

func TestResolveCallerCancelled(t *testing.T) {
	f := &fakeFetcher{delay: 200 * time.Millisecond}
	r := newTestRegistry(t, true, f)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Resolve(ctx, TierBase); err == nil {
		t.Fatal("expected context error")
	}
	if r.Status(TierBase).State != StateDownloading {
		t.Errorf("expected download to continue, got %s", r.Status(TierBase).State)
	}
	// the shared download still completes for later callers
	if _, err := r.Resolve(context.Background(), TierBase); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.Dir(), "ggml-base.bin")); err != nil {
		t.Errorf("expected model file: %v", err)
	}
}

func TestStatusAll(t *testing.T) {
	r := newTestRegistry(t, false, nil)
	assets := r.StatusAll()
	if len(assets) != 5 {
		t.Fatalf("expected 5 tiers, got %d", len(assets))
	}
	for _, a := range assets {
		if a.State != StateMissing {
			t.Errorf("expected %s missing, got %s", a.Tier, a.State)
		}
	}
}
