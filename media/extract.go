package media

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/process"
)

// Target format for the speech runtime: 16 kHz mono signed 16-bit PCM.
const (
	SampleRate     = 16000
	Channels       = 1
	bytesPerSample = 2
	wavHeaderSize  = 44
)

// Audio is a normalized track ready for inference.
type Audio struct {
	Path       string
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Empty reports whether the track carries no samples.
func (a *Audio) Empty() bool { return a.Duration <= 0 }

// Extractor converts any container ffmpeg understands into the track the
// speech runtime needs.
type Extractor struct {
	cfg  Config
	exec process.Executor
	log  *logger.Logger
}

// NewExtractor creates an Extractor. A nil executor runs real subprocesses.
func NewExtractor(cfg Config, exec process.Executor, log *logger.Logger) *Extractor {
	cfg.ApplyDefaults()
	if exec == nil {
		exec = process.NewRunner(process.Config{GracePeriod: cfg.GracePeriod})
	}
	if log == nil {
		log = logger.Get("extractor")
	}
	return &Extractor{cfg: cfg, exec: exec, log: log}
}

// Extract writes <workDir>/audio.wav from input.
func (e *Extractor) Extract(ctx context.Context, input, workDir string) (*Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ExtractTimeout)
	defer cancel()

	out := filepath.Join(workDir, "audio.wav")
	res, err := e.exec.Run(ctx, process.Command{
		Binary: e.cfg.FFmpegPath,
		Args:   ffmpegArgs(input, out),
		Dir:    workDir,
	})
	if err != nil {
		return nil, e.commandError(ctx, res, err)
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, codecError("ffmpeg finished but produced no audio file", err)
	}
	// A header with no samples is a silent track; anything shorter is not WAV.
	if info.Size() < wavHeaderSize {
		return nil, codecError(fmt.Sprintf("ffmpeg produced a truncated audio file (%d bytes)", info.Size()), nil)
	}

	audio := &Audio{
		Path:       out,
		SampleRate: SampleRate,
		Channels:   Channels,
		Duration:   pcmDuration(info.Size()),
	}
	e.log.Debug("audio extracted", logger.Fields(logger.FieldPath, out, "seconds", audio.Duration.Seconds()))
	return audio, nil
}

func ffmpegArgs(input, output string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", input,
		"-vn",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-c:a", "pcm_s16le",
		output,
	}
}

func pcmDuration(fileSize int64) time.Duration {
	data := fileSize - wavHeaderSize
	if data <= 0 {
		return 0
	}
	samples := data / (bytesPerSample * Channels)
	return time.Duration(samples) * time.Second / SampleRate
}

func (e *Extractor) commandError(ctx context.Context, res *process.Result, err error) error {
	switch {
	case stderrors.Is(err, process.ErrBinaryNotFound):
		return errors.New(errors.ErrCodeCodec,
			"ffmpeg is not installed. Install it with: brew install ffmpeg (or apt install ffmpeg)",
			http.StatusServiceUnavailable).WithCause(err)
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return codecError(fmt.Sprintf("ffmpeg timed out after %s", e.cfg.ExtractTimeout), err)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	msg := "ffmpeg failed to extract audio"
	if tail := res.StderrTail(2); tail != "" {
		msg += ": " + tail
	}
	return codecError(msg, err)
}

func codecError(msg string, cause error) *errors.AppError {
	e := errors.New(errors.ErrCodeCodec, msg, http.StatusUnprocessableEntity)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}
