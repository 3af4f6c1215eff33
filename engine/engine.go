// Package engine runs transcription providers on a bounded inference
// executor and maps their failures to INFERENCE_ERROR.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/process"
	"github.com/kbukum/video-transcriber-mcp/provider"
	"github.com/kbukum/video-transcriber-mcp/resilience"
	"github.com/kbukum/video-transcriber-mcp/transcription"
	"github.com/kbukum/video-transcriber-mcp/transcription/whisper"
	"github.com/kbukum/video-transcriber-mcp/transcription/whispercpp"
)

// Transcript is the consumed output of one inference run.
type Transcript struct {
	Segments []transcription.Segment
	Text     string
}

// Engine wraps a provider with the inference bulkhead.
type Engine struct {
	provider transcription.Provider
	binary   string
	bulkhead *resilience.Bulkhead
	log      *logger.Logger
}

// New wraps p. maxConcurrent <= 0 sizes the executor to runtime.NumCPU().
func New(p transcription.Provider, maxConcurrent int, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("engine")
	e := &Engine{provider: p, log: log}
	e.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "inference",
		MaxConcurrent: maxConcurrent,
		MaxWait:       resilience.WaitForever,
		OnAcquire: func(name string, waited time.Duration) {
			if waited > time.Second {
				log.Debug("inference slot acquired", logger.DurationFields(name, waited))
			}
		},
	})
	if b, ok := p.(interface{ Binary() string }); ok {
		e.binary = b.Binary()
	}
	return e
}

// NewFromConfig builds the provider named by cfg.Provider through the
// engine registry.
func NewFromConfig(cfg Config, exec process.Executor, log *logger.Logger) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := transcription.NewRegistry()
	reg.Register(whispercpp.ProviderName, whispercpp.Factory(exec, log))
	reg.Register(whisper.ProviderName, whisper.Factory())

	p, err := reg.Build(cfg.Provider, transcription.Settings{
		Binary:     cfg.Binary,
		Threads:    cfg.Threads,
		Timeout:    cfg.Timeout,
		SidecarURL: cfg.SidecarURL,
	})
	if err != nil {
		return nil, err
	}
	return New(p, cfg.MaxConcurrent, log), nil
}

// Name returns the provider name.
func (e *Engine) Name() string { return e.provider.Name() }

// Binary returns the executable the provider shells out to, or "" for
// network engines.
func (e *Engine) Binary() string { return e.binary }

// UsesLocalModel reports whether the provider needs a resolved model file.
// The sidecar engine manages its own weights.
func (e *Engine) UsesLocalModel() bool { return e.binary != "" }

// Capacity returns the inference executor size.
func (e *Engine) Capacity() int { return e.bulkhead.MaxConcurrent() }

// IsAvailable reports whether the underlying provider can run.
func (e *Engine) IsAvailable(ctx context.Context) bool { return e.provider.IsAvailable(ctx) }

// Transcribe runs inference for audio while holding an executor slot and
// drains the provider's segment iterator. Audio without samples yields an
// empty transcript without invoking the provider. Cancellation is returned
// as the context error; every other failure is INFERENCE_ERROR.
func (e *Engine) Transcribe(ctx context.Context, audio *media.Audio, req transcription.Request) (*Transcript, error) {
	if audio.Empty() {
		return &Transcript{}, nil
	}
	req.AudioPath = audio.Path

	start := time.Now()
	segments, err := resilience.ExecuteWithResult(e.bulkhead, ctx, func() ([]transcription.Segment, error) {
		it, err := e.provider.Transcribe(ctx, req)
		if err != nil {
			return nil, err
		}
		return provider.Collect(ctx, it)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, inferenceError(e.provider.Name(), err)
	}

	e.log.Debug("inference finished", logger.Fields(
		"provider", e.provider.Name(),
		"segments", len(segments),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return &Transcript{Segments: segments, Text: transcription.Text(segments)}, nil
}

func inferenceError(engine string, cause error) *errors.AppError {
	msg := fmt.Sprintf("%s transcription failed", engine)
	var appErr *errors.AppError
	if stderrors.As(cause, &appErr) {
		msg = appErr.Message
	}
	return errors.New(errors.ErrCodeInference, msg, http.StatusBadGateway).WithCause(cause)
}
