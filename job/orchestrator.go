package job

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"

	"github.com/kbukum/video-transcriber-mcp/engine"
	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/observability"
	"github.com/kbukum/video-transcriber-mcp/output"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

// Acquirer fetches remote sources and validates local ones.
type Acquirer interface {
	Acquire(ctx context.Context, url, workDir string) (*media.Acquisition, error)
	ResolveLocal(path string) (*media.Acquisition, error)
}

// Extractor normalizes media into the inference audio format.
type Extractor interface {
	Extract(ctx context.Context, input, workDir string) (*media.Audio, error)
}

// Models resolves model files by tier.
type Models interface {
	Resolve(ctx context.Context, tier model.Tier) (*model.Asset, error)
}

// Transcriber runs speech-to-text on extracted audio.
type Transcriber interface {
	Name() string
	UsesLocalModel() bool
	Transcribe(ctx context.Context, audio *media.Audio, req transcription.Request) (*engine.Transcript, error)
}

// Writer persists rendered transcripts.
type Writer interface {
	Write(ctx context.Context, jobID string, doc output.Document, formats []output.Format) ([]output.Artifact, error)
}

// WriterFactory opens a Writer for an output directory named in a request.
type WriterFactory func(dir string) (Writer, error)

// Config configures the orchestrator.
type Config struct {
	// WorkDir is the parent of per-job scratch directories; empty means the
	// OS temp directory.
	WorkDir     string `yaml:"work_dir" mapstructure:"work_dir"`
	EventBuffer int    `yaml:"event_buffer" mapstructure:"event_buffer"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.EventBuffer <= 0 {
		c.EventBuffer = 64
	}
}

// Deps are the collaborators a job runs through.
type Deps struct {
	Acquirer    Acquirer
	Extractor   Extractor
	Models      Models
	Transcriber Transcriber
	Writer      Writer
	// Writers opens writers for Request.OutputDir. Nil means a request
	// override is written with the default Writer.
	Writers WriterFactory
	Metrics *observability.Metrics
}

// Orchestrator runs transcription jobs through their stages.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *logger.Logger

	mu     sync.Mutex
	active map[string]*Job
}

// New creates an Orchestrator.
func New(cfg Config, deps Deps, log *logger.Logger) *Orchestrator {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		log:    log.WithComponent("job"),
		active: make(map[string]*Job),
	}
}

// Active returns the number of running jobs.
func (o *Orchestrator) Active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// Get returns the running job with id.
func (o *Orchestrator) Get(id string) (*Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.active[id]
	return j, ok
}

// Submit starts a job. The job outlives ctx: it inherits ctx's values but
// not its cancellation, and is stopped only through Job.Cancel.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Job, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, errors.MissingField("url")
	}
	if req.Tier == "" {
		req.Tier = model.TierBase
	}
	if len(req.Formats) == 0 {
		req.Formats = output.AllFormats()
	}

	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &Job{
		req:    req,
		source: media.ParseSource(req.Source),
		cancel: cancel,
		events: make(chan Event, o.cfg.EventBuffer),
		done:   make(chan struct{}),
	}

	o.mu.Lock()
	j.id = o.uniqueID(req.Source)
	o.active[j.id] = j
	o.mu.Unlock()

	j.enter(StateQueued, "", "", "")
	o.deps.Metrics.RecordJobStart(jctx)
	go o.run(jctx, j)
	return j, nil
}

// uniqueID derives the job id from the source; callers hold o.mu.
func (o *Orchestrator) uniqueID(source string) string {
	sum := blake2b.Sum256([]byte(source))
	base := hex.EncodeToString(sum[:])[:12]
	id := base
	for n := 2; ; n++ {
		if _, taken := o.active[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (o *Orchestrator) run(ctx context.Context, j *Job) {
	start := time.Now()
	log := o.log.WithFields(logger.Fields(logger.FieldJobID, j.id, logger.FieldSource, j.req.Source))
	ctx, span := observability.StartSpan(ctx, observability.SpanJob)
	span.SetAttributes(attribute.String(observability.AttrJobID, j.id))

	res, err := o.execute(ctx, j, log)

	o.mu.Lock()
	delete(o.active, j.id)
	o.mu.Unlock()
	j.cancel()

	status, cause := "done", ""
	if err != nil {
		se := err.(*StageError)
		status, cause = "failed", string(se.Cause)
		span.SetStatus(codes.Error, se.Error())
		span.SetAttributes(
			attribute.String(observability.AttrStage, string(se.Stage)),
			attribute.String(observability.AttrCause, cause),
		)
		log.WithError(err).Warn("job failed", logger.Fields(logger.FieldStage, se.Stage, logger.FieldCause, se.Cause))
	} else {
		res.Duration = time.Since(start)
		log.Info("job finished", logger.Fields(
			"words", res.WordCount,
			"artifacts", len(res.Artifacts),
			logger.FieldDuration, res.Duration.Milliseconds(),
		))
	}
	span.End()
	o.deps.Metrics.RecordJobEnd(context.WithoutCancel(ctx), status, cause)
	j.finish(res, err)
}

// runner tracks the stage a job is in while it executes.
type runner struct {
	o     *Orchestrator
	j     *Job
	log   *logger.Logger
	stage State
	began time.Time
	span  trace.Span
}

// advance checks for cancellation and enters the next stage.
func (r *runner) advance(ctx context.Context, next State) error {
	if ctx.Err() != nil {
		return r.fail(ctx, ctx.Err())
	}
	r.endStage(ctx, "ok")
	r.stage = next
	r.began = time.Now()
	_, r.span = observability.StartSpan(ctx, observability.SpanJobStage)
	r.span.SetAttributes(attribute.String(observability.AttrStage, string(next)))
	r.j.enter(next, "", "", "")
	r.log.Debug("stage entered", logger.Fields(logger.FieldStage, next))
	return nil
}

func (r *runner) endStage(ctx context.Context, status string) {
	if r.stage == StateQueued {
		return
	}
	if r.span != nil {
		if status != "ok" {
			r.span.SetStatus(codes.Error, status)
		}
		r.span.End()
		r.span = nil
	}
	r.o.deps.Metrics.RecordStage(context.WithoutCancel(ctx), string(r.stage), status, time.Since(r.began))
}

// fail ends the job in the current stage.
func (r *runner) fail(ctx context.Context, err error) error {
	return r.failAs(ctx, classify(ctx, r.stage, err), err)
}

func (r *runner) failAs(ctx context.Context, cause Cause, err error) error {
	stage := r.stage
	if stage == StateQueued {
		stage = StateAcquiring
	}
	r.endStage(ctx, "error")
	se := &StageError{JobID: r.j.id, Stage: stage, Cause: cause, Err: err}
	r.j.enter(StateFailed, stage, cause, se.Error())
	return se
}

func (o *Orchestrator) execute(ctx context.Context, j *Job, log *logger.Logger) (res *Result, err error) {
	r := &runner{o: o, j: j, log: log, stage: StateQueued, began: time.Now()}
	defer func() {
		if p := recover(); p != nil {
			log.Error("job panicked", logger.Fields(logger.FieldStage, r.stage, "panic", fmt.Sprint(p), "stack", string(debug.Stack())))
			fault := errors.New(errors.ErrCodeInternal, fmt.Sprintf("internal fault: %v", p), http.StatusInternalServerError)
			res, err = nil, r.failAs(ctx, stageDefaults[r.stage], fault)
		}
	}()

	var (
		acq     *media.Acquisition
		workDir string
	)
	if j.source.IsLocal() {
		if acq, err = o.deps.Acquirer.ResolveLocal(j.source.Raw); err != nil {
			return nil, r.fail(ctx, err)
		}
	}

	workDir, err = os.MkdirTemp(o.cfg.WorkDir, "vtm-"+j.id+"-")
	if err != nil {
		return nil, r.failAs(ctx, CauseAcquisitionError,
			errors.New(errors.ErrCodeAcquisition, "cannot create scratch directory", http.StatusInternalServerError).WithCause(err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.WithError(err).Warn("scratch cleanup failed", logger.Fields(logger.FieldPath, workDir))
		}
	}()

	if !j.source.IsLocal() {
		if err := r.advance(ctx, StateAcquiring); err != nil {
			return nil, err
		}
		if acq, err = o.deps.Acquirer.Acquire(ctx, j.source.Raw, workDir); err != nil {
			return nil, r.fail(ctx, err)
		}
	}
	if acq.Metadata.URL == "" {
		acq.Metadata.URL = j.source.Raw
	}

	if err := r.advance(ctx, StateExtracting); err != nil {
		return nil, err
	}
	audio, err := o.deps.Extractor.Extract(ctx, acq.MediaPath, workDir)
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	if err := r.advance(ctx, StateTranscribing); err != nil {
		return nil, err
	}
	treq := transcription.Request{Model: string(j.req.Tier), Language: j.req.Language}
	if !audio.Empty() && o.deps.Transcriber.UsesLocalModel() {
		asset, err := o.deps.Models.Resolve(ctx, j.req.Tier)
		if err != nil {
			return nil, r.fail(ctx, err)
		}
		treq.ModelPath = asset.Path
	}
	transcript, err := o.deps.Transcriber.Transcribe(ctx, audio, treq)
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	if err := r.advance(ctx, StateWriting); err != nil {
		return nil, err
	}
	w, err := o.writerFor(j.req.OutputDir)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	doc := output.Document{
		Metadata:   acq.Metadata,
		Transcript: transcript.Text,
		Segments:   transcript.Segments,
		Model:      string(j.req.Tier),
	}
	artifacts, err := w.Write(ctx, j.id, doc, j.req.Formats)
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	r.endStage(ctx, "ok")
	r.stage = StateDone
	j.enter(StateDone, "", "", "")
	return &Result{
		JobID:      j.id,
		Metadata:   acq.Metadata,
		Transcript: transcript.Text,
		Segments:   transcript.Segments,
		WordCount:  transcription.WordCount(transcript.Text),
		Model:      j.req.Tier,
		Engine:     o.deps.Transcriber.Name(),
		Artifacts:  artifacts,
	}, nil
}

func (o *Orchestrator) writerFor(dir string) (Writer, error) {
	if dir == "" || o.deps.Writers == nil {
		return o.deps.Writer, nil
	}
	w, err := o.deps.Writers(dir)
	if err != nil {
		return nil, errors.New(errors.ErrCodePersistence,
			fmt.Sprintf("cannot use output directory %s", dir), http.StatusInternalServerError).WithCause(err)
	}
	return w, nil
}
