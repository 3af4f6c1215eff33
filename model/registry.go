package model

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/httpclient"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/resilience"
)

// Registry tracks the local model files, one entry per tier, and downloads
// a missing tier at most once no matter how many jobs ask for it.
type Registry struct {
	cfg     Config
	fetcher Fetcher
	retry   resilience.RetryConfig
	log     *logger.Logger

	mu          sync.Mutex
	downloading map[Tier]bool
	group       singleflight.Group
}

// NewRegistry creates a registry over cfg.Dir.
func NewRegistry(cfg Config, fetcher Fetcher, log *logger.Logger) *Registry {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	retry := resilience.DownloadRetryConfig()
	retry.RetryIf = retryable
	return &Registry{
		cfg:         cfg,
		fetcher:     fetcher,
		retry:       retry,
		log:         log.WithComponent("model"),
		downloading: make(map[Tier]bool),
	}
}

// WithRetry replaces the download retry policy.
func (r *Registry) WithRetry(cfg resilience.RetryConfig) *Registry {
	if cfg.RetryIf == nil {
		cfg.RetryIf = retryable
	}
	r.retry = cfg
	return r
}

// Dir returns the models directory.
func (r *Registry) Dir() string { return r.cfg.Dir }

// DefaultTier returns the configured default tier.
func (r *Registry) DefaultTier() Tier { return Tier(r.cfg.DefaultTier) }

// Path returns the local file path for tier.
func (r *Registry) Path(tier Tier) string {
	return filepath.Join(r.cfg.Dir, tier.FileName())
}

// URL returns the download URL for tier.
func (r *Registry) URL(tier Tier) string {
	return strings.TrimRight(r.cfg.BaseURL, "/") + "/" + tier.FileName()
}

// Status reports the current state of tier without touching the network.
func (r *Registry) Status(tier Tier) Asset {
	asset := Asset{Tier: tier, Path: r.Path(tier), State: StateMissing}

	r.mu.Lock()
	busy := r.downloading[tier]
	r.mu.Unlock()
	if busy {
		asset.State = StateDownloading
		return asset
	}

	if info, err := os.Stat(asset.Path); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		asset.State = StateReady
		asset.Size = info.Size()
	}
	return asset
}

// StatusAll reports every tier.
func (r *Registry) StatusAll() []Asset {
	out := make([]Asset, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, r.Status(t))
	}
	return out
}

// Resolve returns the ready asset for tier, downloading it first when it
// is missing and auto download is enabled. Concurrent calls for the same
// tier share one download; a caller whose ctx ends stops waiting but the
// download carries on for the others.
func (r *Registry) Resolve(ctx context.Context, tier Tier) (*Asset, error) {
	if asset := r.Status(tier); asset.State == StateReady {
		return &asset, nil
	}
	if !r.cfg.AutoDownload {
		return nil, r.missingError(tier)
	}

	ch := r.group.DoChan(string(tier), func() (any, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.DownloadTimeout)
		defer cancel()
		return r.download(dctx, tier)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		asset := res.Val.(Asset)
		return &asset, nil
	}
}

func (r *Registry) download(ctx context.Context, tier Tier) (Asset, error) {
	if asset := r.Status(tier); asset.State == StateReady {
		return asset, nil
	}

	r.mu.Lock()
	r.downloading[tier] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.downloading, tier)
		r.mu.Unlock()
	}()

	if r.fetcher == nil {
		return Asset{}, r.missingError(tier)
	}
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return Asset{}, inferenceError(fmt.Sprintf("cannot create models directory %s", r.cfg.Dir), err)
	}

	url := r.URL(tier)
	dst := r.Path(tier)
	start := time.Now()
	r.log.Info("downloading model", logger.Fields(logger.FieldTier, string(tier), "url", url))

	policy := r.retry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.log.Warn("model download failed, retrying", logger.Fields(
			logger.FieldTier, string(tier),
			"attempt", attempt,
			"backoff", wait.String(),
			logger.FieldError, err.Error(),
		))
	}
	size, err := resilience.Retry(ctx, policy, func() (int64, error) {
		return r.fetchOnce(ctx, url, dst)
	})
	if err != nil {
		r.log.WithError(err).Error("model download failed", logger.Fields(logger.FieldTier, string(tier)))
		return Asset{}, inferenceError(fmt.Sprintf("failed to download model '%s' from %s", tier, url), err)
	}

	r.log.Info("model ready", logger.Fields(
		logger.FieldTier, string(tier),
		"size", size,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return Asset{Tier: tier, Path: dst, State: StateReady, Size: size}, nil
}

// fetchOnce downloads into a temp file in the models directory and renames
// it into place so a partial file is never visible as ready.
func (r *Registry) fetchOnce(ctx context.Context, url, dst string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := r.fetcher.Fetch(ctx, url, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("download %s: empty body", url)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

func (r *Registry) missingError(tier Tier) *errors.AppError {
	msg := fmt.Sprintf("Model '%s' not found at %s. Enable models.auto_download or download it manually: curl -L -o %s %s",
		tier, r.Path(tier), r.Path(tier), r.URL(tier))
	return inferenceError(msg, nil).WithDetail("tier", string(tier))
}

func inferenceError(msg string, cause error) *errors.AppError {
	e := errors.New(errors.ErrCodeInference, msg, http.StatusBadGateway)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

// retryable retries transport failures, 429 and 5xx, never cancellation.
func retryable(err error) bool {
	if !resilience.DefaultRetryIf(err) {
		return false
	}
	var httpErr *httpclient.Error
	if stderrors.As(err, &httpErr) {
		return httpErr.Retryable
	}
	return true
}
