package media

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/process"
)

// Acquisition is the result of the acquiring stage: what the video is and
// where its media landed.
type Acquisition struct {
	Metadata  Metadata
	MediaPath string
}

// Acquirer fetches remote media through yt-dlp. Each call is attempted
// exactly once.
type Acquirer struct {
	cfg  Config
	exec process.Executor
	log  *logger.Logger

	extractorsMu sync.Mutex
	extractors   []string
}

// NewAcquirer creates an Acquirer. A nil executor runs real subprocesses.
func NewAcquirer(cfg Config, exec process.Executor, log *logger.Logger) *Acquirer {
	cfg.ApplyDefaults()
	if exec == nil {
		exec = process.NewRunner(process.Config{GracePeriod: cfg.GracePeriod})
	}
	if log == nil {
		log = logger.Get("acquirer")
	}
	return &Acquirer{cfg: cfg, exec: exec, log: log}
}

type ytdlpInfo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Channel      string   `json:"channel"`
	Uploader     string   `json:"uploader"`
	Duration     *float64 `json:"duration"`
	UploadDate   string   `json:"upload_date"`
	Extractor    string   `json:"extractor"`
	ExtractorKey string   `json:"extractor_key"`
}

// Acquire fetches metadata and then the audio track of url into workDir.
func (a *Acquirer) Acquire(ctx context.Context, url, workDir string) (*Acquisition, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.AcquireTimeout)
	defer cancel()

	meta, err := a.fetchMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	a.log.Info("fetched video metadata", logger.Fields(
		logger.FieldPlatform, meta.Platform, "title", meta.Title, "video_id", meta.VideoID))

	path, err := a.download(ctx, url, workDir)
	if err != nil {
		return nil, err
	}
	return &Acquisition{Metadata: meta, MediaPath: path}, nil
}

func (a *Acquirer) fetchMetadata(ctx context.Context, url string) (Metadata, error) {
	res, err := a.exec.Run(ctx, process.Command{
		Binary: a.cfg.YtDlpPath,
		Args:   []string{"--dump-json", "--no-playlist", "--no-warnings", url},
	})
	if err != nil {
		return Metadata{}, a.commandError(ctx, "fetch metadata", res, err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(firstJSONLine(res.Stdout), &info); err != nil {
		return Metadata{}, acquisitionError("yt-dlp returned unreadable metadata", err)
	}

	meta := Metadata{
		VideoID:    fallback(info.ID, "unknown"),
		Title:      fallback(info.Title, "Unknown"),
		Channel:    fallback(info.Channel, fallback(info.Uploader, "Unknown")),
		UploadDate: info.UploadDate,
		Platform:   DetectPlatform(url, fallback(info.ExtractorKey, info.Extractor)),
		URL:        url,
	}
	if info.Duration != nil && *info.Duration > 0 {
		meta.Duration = uint64(math.Round(*info.Duration))
	}
	return meta, nil
}

func (a *Acquirer) download(ctx context.Context, url, workDir string) (string, error) {
	template := filepath.Join(workDir, "source.%(ext)s")
	res, err := a.exec.Run(ctx, process.Command{
		Binary: a.cfg.YtDlpPath,
		Args: []string{
			"-x",
			"--audio-format", "mp3",
			"--no-playlist",
			"--no-progress",
			"-o", template,
			url,
		},
		Dir: workDir,
	})
	if err != nil {
		return "", a.commandError(ctx, "download audio", res, err)
	}

	path := filepath.Join(workDir, "source.mp3")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	// yt-dlp keeps the original container when post-processing is skipped
	matches, _ := filepath.Glob(filepath.Join(workDir, "source.*"))
	for _, m := range matches {
		if !strings.HasSuffix(m, ".part") {
			return m, nil
		}
	}
	return "", acquisitionError("yt-dlp finished but no audio file was produced", nil)
}

// ResolveLocal validates a local source: it must exist, be a readable
// regular file and carry a supported extension.
func (a *Acquirer) ResolveLocal(path string) (*Acquisition, error) {
	return ResolveLocal(path)
}

// ResolveLocal is the executor-free local source check.
func ResolveLocal(path string) (*Acquisition, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NotFound("source file", path).WithCause(err)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		appErr := errors.NotFound("source file", path)
		appErr.Message = fmt.Sprintf("Video file not found: %s", path)
		return nil, appErr.WithCause(err)
	}
	f, err := os.Open(abs) //nolint:gosec // caller-supplied media path
	if err != nil {
		appErr := errors.NotFound("source file", path)
		appErr.Message = fmt.Sprintf("Video file is not readable: %s", path)
		return nil, appErr.WithCause(err)
	}
	_ = f.Close()

	if !SupportedExtension(abs) {
		return nil, acquisitionError(fmt.Sprintf("unsupported file type %q; supported: %s",
			filepath.Ext(abs), strings.Join(supportedExtensions, " ")), nil)
	}
	return &Acquisition{Metadata: LocalMetadata(abs), MediaPath: abs}, nil
}

// Extractors returns the downloader's own extractor list. A successful
// listing is cached for the life of the process.
func (a *Acquirer) Extractors(ctx context.Context) ([]string, error) {
	a.extractorsMu.Lock()
	defer a.extractorsMu.Unlock()
	if a.extractors != nil {
		return a.extractors, nil
	}

	res, err := a.exec.Run(ctx, process.Command{
		Binary: a.cfg.YtDlpPath,
		Args:   []string{"--list-extractors"},
	})
	if err != nil {
		return nil, a.commandError(ctx, "list extractors", res, err)
	}
	list := []string{}
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			list = append(list, line)
		}
	}
	a.extractors = list
	return list, nil
}

func (a *Acquirer) commandError(ctx context.Context, op string, res *process.Result, err error) error {
	switch {
	case stderrors.Is(err, process.ErrBinaryNotFound):
		return errors.New(errors.ErrCodeAcquisition,
			"yt-dlp is not installed. Install it with: pip install yt-dlp (or brew install yt-dlp)",
			http.StatusServiceUnavailable).WithCause(err)
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return acquisitionError(fmt.Sprintf("yt-dlp %s timed out after %s", op, a.cfg.AcquireTimeout), err)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	msg := fmt.Sprintf("yt-dlp failed to %s", op)
	if tail := res.StderrTail(3); tail != "" {
		msg += ": " + tail
	}
	return acquisitionError(msg, err)
}

func acquisitionError(msg string, cause error) *errors.AppError {
	e := errors.New(errors.ErrCodeAcquisition, msg, http.StatusBadGateway)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

// firstJSONLine returns the first line of yt-dlp output that looks like a
// JSON object.
func firstJSONLine(out []byte) []byte {
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "{") {
			return []byte(line)
		}
	}
	return out
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
