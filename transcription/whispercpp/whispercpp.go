// Package whispercpp implements transcription.Provider on top of the
// whisper.cpp command line tool.
//
// The binary writes its result as JSON next to the audio file; segments are
// decoded from that file one at a time.
package whispercpp

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/process"
	"github.com/kbukum/video-transcriber-mcp/provider"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

const (
	// ProviderName is the registered name for the whisper.cpp provider.
	ProviderName = "whisper-cpp"

	defaultBinary  = "whisper-cli"
	defaultThreads = 4
)

// Config holds configuration for the whisper.cpp provider.
type Config struct {
	Binary      string        `yaml:"binary" mapstructure:"binary"`
	Threads     int           `yaml:"threads" mapstructure:"threads"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = defaultBinary
	}
	if c.Threads <= 0 {
		c.Threads = defaultThreads
	}
}

// Provider runs whisper-cli as a subprocess.
type Provider struct {
	cfg      Config
	exec     process.Executor
	lookPath func(string) (string, error)
	log      *logger.Logger
}

// NewProvider creates a whisper.cpp provider.
func NewProvider(cfg Config, executor process.Executor, log *logger.Logger) *Provider {
	cfg.ApplyDefaults()
	if executor == nil {
		executor = process.NewRunner(process.Config{GracePeriod: cfg.GracePeriod})
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Provider{cfg: cfg, exec: executor, lookPath: exec.LookPath, log: log.WithComponent(ProviderName)}
}

// Factory builds whisper.cpp providers from engine settings.
func Factory(executor process.Executor, log *logger.Logger) provider.Factory[transcription.Settings, transcription.Provider] {
	return func(s transcription.Settings) (transcription.Provider, error) {
		return NewProvider(Config{
			Binary:      s.Binary,
			Threads:     s.Threads,
			Timeout:     s.Timeout,
			GracePeriod: s.GracePeriod,
		}, executor, log), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// Binary returns the configured executable name.
func (p *Provider) Binary() string { return p.cfg.Binary }

// IsAvailable reports whether the binary is on PATH.
func (p *Provider) IsAvailable(_ context.Context) bool {
	_, err := p.lookPath(p.cfg.Binary)
	return err == nil
}

// Transcribe runs whisper-cli on req.AudioPath and returns an iterator over
// the segments of its JSON output.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (provider.Iterator[transcription.Segment], error) {
	if req.ModelPath == "" {
		return nil, fmt.Errorf("whisper-cpp: model path is required")
	}
	if _, err := os.Stat(req.ModelPath); err != nil {
		return nil, fmt.Errorf("whisper-cpp: model file %s: %w", req.ModelPath, err)
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	base := filepath.Join(filepath.Dir(req.AudioPath), "transcript")
	cmd := process.Command{
		Binary:      p.cfg.Binary,
		Args:        p.args(req, base),
		GracePeriod: p.cfg.GracePeriod,
	}

	start := time.Now()
	res, err := p.exec.Run(ctx, cmd)
	if err != nil {
		return nil, p.commandError(ctx, res, err)
	}
	p.log.Debug("whisper-cli finished", logger.DurationFields("transcribe", time.Since(start)))

	f, err := os.Open(base + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper-cpp: read output: %w", err)
	}
	return newSegmentIterator(f), nil
}

func (p *Provider) args(req transcription.Request, base string) []string {
	args := []string{
		"-m", req.ModelPath,
		"-f", req.AudioPath,
		"-of", base,
		"-oj",
		"-np",
		"-t", strconv.Itoa(p.cfg.Threads),
	}
	if req.AutoDetect() {
		args = append(args, "-l", "auto")
	} else {
		args = append(args, "-l", req.Language)
	}
	return args
}

func (p *Provider) commandError(ctx context.Context, res *process.Result, err error) error {
	switch {
	case stderrors.Is(err, process.ErrBinaryNotFound):
		return errors.DependencyMissing(p.cfg.Binary, "install whisper.cpp (e.g. `brew install whisper-cpp`) or set engine.binary")
	case ctx.Err() != nil:
		return ctx.Err()
	}
	if tail := res.StderrTail(5); tail != "" {
		return fmt.Errorf("whisper-cpp: %s: %w", tail, err)
	}
	return fmt.Errorf("whisper-cpp: %w", err)
}
