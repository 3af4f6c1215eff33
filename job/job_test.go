package job

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/video-transcriber-mcp/engine"
	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/output"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

type fakeAcquirer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeAcquirer) Acquire(_ context.Context, url, workDir string) (*media.Acquisition, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(workDir, "source.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
		return nil, err
	}
	return &media.Acquisition{
		Metadata:  media.Metadata{VideoID: "abc123", Title: "Remote Talk", Platform: "YouTube", Duration: 42, URL: url},
		MediaPath: path,
	}, nil
}

func (f *fakeAcquirer) ResolveLocal(path string) (*media.Acquisition, error) {
	return media.ResolveLocal(path)
}

type fakeExtractor struct {
	calls    atomic.Int32
	duration time.Duration
	err      error
}

func (f *fakeExtractor) Extract(_ context.Context, _, workDir string) (*media.Audio, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &media.Audio{Path: filepath.Join(workDir, "audio.wav"), SampleRate: 16000, Channels: 1, Duration: f.duration}, nil
}

type fakeModels struct {
	calls atomic.Int32
}

func (f *fakeModels) Resolve(_ context.Context, tier model.Tier) (*model.Asset, error) {
	f.calls.Add(1)
	return &model.Asset{Tier: tier, Path: "/models/" + tier.FileName(), State: model.StateReady}, nil
}

type fakeTranscriber struct {
	started chan struct{}
	block   bool
	panics  bool
	local   bool
	text    string
}

func (f *fakeTranscriber) Name() string         { return "fake" }
func (f *fakeTranscriber) UsesLocalModel() bool { return f.local }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio *media.Audio, req transcription.Request) (*engine.Transcript, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.panics {
		var segs []transcription.Segment
		_ = segs[len(f.text)]
	}
	if audio.Empty() {
		return &engine.Transcript{}, nil
	}
	segs := []transcription.Segment{{Start: 0, End: 2, Text: f.text}}
	return &engine.Transcript{Segments: segs, Text: transcription.Text(segs)}, nil
}

type failingWriter struct{}

func (failingWriter) Write(context.Context, string, output.Document, []output.Format) ([]output.Artifact, error) {
	return nil, errors.New(errors.ErrCodePersistence,
		"transcription succeeded (2 words) but saving the output files failed: disk full", http.StatusInternalServerError)
}

type harness struct {
	orch      *Orchestrator
	acquirer  *fakeAcquirer
	extractor *fakeExtractor
	models    *fakeModels
	engine    *fakeTranscriber
	outDir    string
	workDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		acquirer:  &fakeAcquirer{},
		extractor: &fakeExtractor{duration: 3 * time.Second},
		models:    &fakeModels{},
		engine:    &fakeTranscriber{local: true, text: "hello world"},
		outDir:    filepath.Join(t.TempDir(), "out"),
		workDir:   t.TempDir(),
	}
	w, err := output.NewWriter(h.outDir, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	h.orch = New(Config{WorkDir: h.workDir}, Deps{
		Acquirer:    h.acquirer,
		Extractor:   h.extractor,
		Models:      h.models,
		Transcriber: h.engine,
		Writer:      w,
	}, nil)
	return h
}

func localVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func wait(t *testing.T, j *Job) (*Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := j.Wait(ctx)
	if stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("job %s did not finish", j.ID())
	}
	return res, err
}

func states(ts []Transition) []State {
	out := make([]State, len(ts))
	for i, tr := range ts {
		out[i] = tr.State
	}
	return out
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stageError(t *testing.T, err error) *StageError {
	t.Helper()
	var se *StageError
	if !stderrors.As(err, &se) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	return se
}

func TestLocalJobTransitions(t *testing.T) {
	h := newHarness(t)
	src := localVideo(t, "lecture.mp4")

	j, err := h.orch.Submit(context.Background(), Request{Source: src, Tier: model.TierBase})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res, err := wait(t, j)
	if err != nil {
		t.Fatalf("unexpected job error: %v", err)
	}

	want := []State{StateQueued, StateExtracting, StateTranscribing, StateWriting, StateDone}
	if got := states(j.Transitions()); !equalStates(got, want) {
		t.Errorf("expected transitions %v, got %v", want, got)
	}
	if h.acquirer.calls.Load() != 0 {
		t.Error("local sources must not be downloaded")
	}
	if res.Metadata.Title != "lecture" || res.Metadata.Platform != "Local File" {
		t.Errorf("unexpected metadata %+v", res.Metadata)
	}
	if res.WordCount != 2 {
		t.Errorf("expected 2 words, got %d", res.WordCount)
	}
	if res.Engine != "fake" || res.Model != model.TierBase {
		t.Errorf("expected fake/base, got %s/%s", res.Engine, res.Model)
	}
	if len(res.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(res.Artifacts))
	}
	for _, a := range res.Artifacts {
		if _, err := os.Stat(a.Path); err != nil {
			t.Errorf("artifact %s missing: %v", a.Path, err)
		}
		if a.JobID != j.ID() {
			t.Errorf("expected artifact job id %q, got %q", j.ID(), a.JobID)
		}
	}
	if h.orch.Active() != 0 {
		t.Errorf("expected no active jobs, got %d", h.orch.Active())
	}
	if entries, _ := os.ReadDir(h.workDir); len(entries) != 0 {
		t.Errorf("expected scratch directory removed, found %d entries", len(entries))
	}
}

func TestRemoteJobEvents(t *testing.T) {
	h := newHarness(t)

	j, err := h.orch.Submit(context.Background(), Request{Source: "https://www.youtube.com/watch?v=abc123"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := wait(t, j); err != nil {
		t.Fatalf("unexpected job error: %v", err)
	}

	var progress []int
	var got []State
	for ev := range j.Events() {
		progress = append(progress, ev.Progress)
		got = append(got, ev.State)
		if ev.JobID != j.ID() {
			t.Errorf("expected event job id %q, got %q", j.ID(), ev.JobID)
		}
	}
	want := []State{StateQueued, StateAcquiring, StateExtracting, StateTranscribing, StateWriting, StateDone}
	if !equalStates(got, want) {
		t.Errorf("expected events %v, got %v", want, got)
	}
	wantProgress := []int{0, 10, 30, 50, 90, 100}
	for i, p := range wantProgress {
		if i >= len(progress) || progress[i] != p {
			t.Fatalf("expected progress %v, got %v", wantProgress, progress)
		}
	}
	if h.acquirer.calls.Load() != 1 {
		t.Errorf("expected one download, got %d", h.acquirer.calls.Load())
	}
}

func TestMissingLocalFile(t *testing.T) {
	h := newHarness(t)

	j, err := h.orch.Submit(context.Background(), Request{Source: "/tmp/does-not-exist.mp4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err = wait(t, j)
	se := stageError(t, err)
	if se.Stage != StateAcquiring || se.Cause != CauseNotFound {
		t.Errorf("expected Failed(acquiring, NotFound), got Failed(%s, %s)", se.Stage, se.Cause)
	}
	if !strings.Contains(se.Error(), "transcription failed at acquiring (NotFound)") {
		t.Errorf("unexpected message %q", se.Error())
	}
	if h.extractor.calls.Load() != 0 {
		t.Error("expected extraction not to run")
	}
	want := []State{StateQueued, StateFailed}
	if got := states(j.Transitions()); !equalStates(got, want) {
		t.Errorf("expected transitions %v, got %v", want, got)
	}
	if _, err := os.Stat(h.outDir); !os.IsNotExist(err) {
		t.Error("expected no output directory to be created")
	}
}

func TestUnsupportedLocalFile(t *testing.T) {
	h := newHarness(t)
	src := localVideo(t, "notes.txt")

	j, _ := h.orch.Submit(context.Background(), Request{Source: src})
	_, err := wait(t, j)
	se := stageError(t, err)
	if se.Stage != StateAcquiring || se.Cause != CauseAcquisitionError {
		t.Errorf("expected Failed(acquiring, AcquisitionError), got Failed(%s, %s)", se.Stage, se.Cause)
	}
}

func TestStageFailuresAreClassified(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		wantStage State
		wantCause Cause
	}{
		{
			name: "download failure",
			setup: func(h *harness) {
				h.acquirer.err = errors.New(errors.ErrCodeAcquisition, "yt-dlp failed", http.StatusBadGateway)
			},
			wantStage: StateAcquiring,
			wantCause: CauseAcquisitionError,
		},
		{
			name: "codec failure",
			setup: func(h *harness) {
				h.extractor.err = errors.New(errors.ErrCodeCodec, "ffmpeg failed", http.StatusUnprocessableEntity)
			},
			wantStage: StateExtracting,
			wantCause: CauseCodecError,
		},
		{
			name: "unclassified extractor failure",
			setup: func(h *harness) {
				h.extractor.err = stderrors.New("boom")
			},
			wantStage: StateExtracting,
			wantCause: CauseCodecError,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			tc.setup(h)
			j, _ := h.orch.Submit(context.Background(), Request{Source: "https://vimeo.com/1"})
			_, err := wait(t, j)
			se := stageError(t, err)
			if se.Stage != tc.wantStage || se.Cause != tc.wantCause {
				t.Errorf("expected Failed(%s, %s), got Failed(%s, %s)", tc.wantStage, tc.wantCause, se.Stage, se.Cause)
			}
			if se.RPCCode() != errors.RPCToolError {
				t.Errorf("expected code %d, got %d", errors.RPCToolError, se.RPCCode())
			}
			if se.RPCData()["job_id"] != j.ID() {
				t.Errorf("expected job id in error data, got %v", se.RPCData())
			}
		})
	}
}

func TestCancelDuringTranscribing(t *testing.T) {
	h := newHarness(t)
	h.engine.block = true
	h.engine.started = make(chan struct{}, 1)
	src := localVideo(t, "long.mkv")

	j, _ := h.orch.Submit(context.Background(), Request{Source: src})
	select {
	case <-h.engine.started:
	case <-time.After(5 * time.Second):
		t.Fatal("transcription never started")
	}
	j.Cancel()

	_, err := wait(t, j)
	se := stageError(t, err)
	if se.Stage != StateTranscribing || se.Cause != CauseCancelled {
		t.Errorf("expected Failed(transcribing, Cancelled), got Failed(%s, %s)", se.Stage, se.Cause)
	}
	if se.RPCCode() != errors.RPCRequestCanceled {
		t.Errorf("expected code %d, got %d", errors.RPCRequestCanceled, se.RPCCode())
	}
	entries, _ := os.ReadDir(h.outDir)
	if len(entries) != 0 {
		t.Errorf("expected no files in the output directory, got %d", len(entries))
	}
}

func TestRequestContextDoesNotCancelJob(t *testing.T) {
	h := newHarness(t)
	h.engine.started = make(chan struct{}, 1)
	src := localVideo(t, "clip.webm")

	ctx, cancel := context.WithCancel(context.Background())
	j, _ := h.orch.Submit(ctx, Request{Source: src})
	cancel()

	if _, err := wait(t, j); err != nil {
		t.Fatalf("expected the job to complete after the request ended, got %v", err)
	}
	if j.State() != StateDone {
		t.Errorf("expected done, got %s", j.State())
	}
}

func TestPersistenceFailure(t *testing.T) {
	h := newHarness(t)
	h.orch.deps.Writer = failingWriter{}
	src := localVideo(t, "talk.mp3")

	j, _ := h.orch.Submit(context.Background(), Request{Source: src})
	_, err := wait(t, j)
	se := stageError(t, err)
	if se.Stage != StateWriting || se.Cause != CausePersistenceError {
		t.Errorf("expected Failed(writing, PersistenceError), got Failed(%s, %s)", se.Stage, se.Cause)
	}
	if !strings.Contains(se.Error(), "transcription succeeded (2 words)") {
		t.Errorf("expected message to report the transcript, got %q", se.Error())
	}
}

func TestPanicFailsOnlyThatJob(t *testing.T) {
	h := newHarness(t)
	h.engine.panics = true
	src := localVideo(t, "crash.mp4")

	j, _ := h.orch.Submit(context.Background(), Request{Source: src})
	_, err := wait(t, j)
	se := stageError(t, err)
	if se.Stage != StateTranscribing || se.Cause != CauseInferenceError {
		t.Errorf("expected Failed(transcribing, InferenceError), got Failed(%s, %s)", se.Stage, se.Cause)
	}
	if !strings.Contains(se.Error(), "internal fault: runtime error: index out of range") {
		t.Errorf("expected the fault in the message, got %q", se.Error())
	}
	if j.State() != StateFailed {
		t.Errorf("expected failed, got %s", j.State())
	}
	if n := h.orch.Active(); n != 0 {
		t.Errorf("expected no active jobs, got %d", n)
	}
	if entries, _ := os.ReadDir(h.workDir); len(entries) != 0 {
		t.Errorf("expected scratch directory removed, got %d entries", len(entries))
	}

	h.engine.panics = false
	next, _ := h.orch.Submit(context.Background(), Request{Source: src})
	if _, err := wait(t, next); err != nil {
		t.Errorf("expected later jobs unaffected, got %v", err)
	}
}

func TestEmptyAudioSkipsModel(t *testing.T) {
	h := newHarness(t)
	h.extractor.duration = 0
	src := localVideo(t, "silent.wav")

	j, _ := h.orch.Submit(context.Background(), Request{Source: src, Formats: []output.Format{output.FormatText}})
	res, err := wait(t, j)
	if err != nil {
		t.Fatalf("empty audio must not fail, got %v", err)
	}
	if res.Transcript != "" || res.WordCount != 0 {
		t.Errorf("expected empty transcript, got %q", res.Transcript)
	}
	if h.models.calls.Load() != 0 {
		t.Error("expected no model resolution for empty audio")
	}
	if len(res.Artifacts) != 1 {
		t.Errorf("expected 1 artifact, got %d", len(res.Artifacts))
	}
}

func TestSidecarEngineSkipsModel(t *testing.T) {
	h := newHarness(t)
	h.engine.local = false

	j, _ := h.orch.Submit(context.Background(), Request{Source: localVideo(t, "a.mov")})
	if _, err := wait(t, j); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.models.calls.Load() != 0 {
		t.Error("expected no model resolution for the sidecar engine")
	}
}

func TestOutputDirOverride(t *testing.T) {
	h := newHarness(t)
	alt := filepath.Join(t.TempDir(), "alt")
	h.orch.deps.Writers = func(dir string) (Writer, error) { return output.NewWriter(dir, nil) }

	j, _ := h.orch.Submit(context.Background(), Request{Source: localVideo(t, "b.mp4"), OutputDir: alt})
	res, err := wait(t, j)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range res.Artifacts {
		if filepath.Dir(a.Path) != alt {
			t.Errorf("expected artifact under %s, got %s", alt, a.Path)
		}
	}
}

func TestActiveJobIDsAreUnique(t *testing.T) {
	h := newHarness(t)
	h.engine.block = true
	h.engine.started = make(chan struct{}, 2)
	src := localVideo(t, "same.mp4")

	first, _ := h.orch.Submit(context.Background(), Request{Source: src})
	second, _ := h.orch.Submit(context.Background(), Request{Source: src})
	if len(first.ID()) != 12 {
		t.Errorf("expected a 12 character id, got %q", first.ID())
	}
	if second.ID() != first.ID()+"-2" {
		t.Errorf("expected %q, got %q", first.ID()+"-2", second.ID())
	}
	if h.orch.Active() != 2 {
		t.Errorf("expected 2 active jobs, got %d", h.orch.Active())
	}

	first.Cancel()
	second.Cancel()
	_, _ = wait(t, first)
	_, _ = wait(t, second)

	third, _ := h.orch.Submit(context.Background(), Request{Source: src})
	if third.ID() != first.ID() {
		t.Errorf("expected id %q to be reusable, got %q", first.ID(), third.ID())
	}
	third.Cancel()
	_, _ = wait(t, third)
}

func TestSubmitRequiresSource(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.Submit(context.Background(), Request{Source: "  "})
	if !errors.Is(err, errors.ErrCodeMissingField) {
		t.Errorf("expected MISSING_FIELD, got %v", err)
	}
}

func TestResultPreview(t *testing.T) {
	r := &Result{Transcript: strings.Repeat("a", 600)}
	if got := r.Preview(500); len(got) != 503 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 500 chars plus ellipsis, got %d chars", len(got))
	}
	r.Transcript = "short"
	if got := r.Preview(500); got != "short" {
		t.Errorf("expected 'short', got %q", got)
	}
}

func TestStopCancelsRunningJobs(t *testing.T) {
	h := newHarness(t)
	h.engine.block = true
	h.engine.started = make(chan struct{}, 1)

	j, err := h.orch.Submit(context.Background(), Request{Source: localVideo(t, "long.mp4")})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-h.engine.started:
	case <-time.After(5 * time.Second):
		t.Fatal("transcription never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if j.State() != StateFailed {
		t.Errorf("expected failed, got %s", j.State())
	}
	if h.orch.Active() != 0 {
		t.Errorf("expected no running jobs, got %d", h.orch.Active())
	}
	if health := h.orch.Health(ctx); health.Message != "0 running" {
		t.Errorf("expected '0 running', got %q", health.Message)
	}
}
