package job

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/output"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

// Request describes one transcription.
type Request struct {
	// Source is an http(s) URL or a local file path.
	Source   string
	Tier     model.Tier
	Language string
	Formats  []output.Format
	// OutputDir overrides the configured output directory when set.
	OutputDir string
}

// Event reports a state change. Stage is the stage a failure happened in.
type Event struct {
	JobID    string `json:"job_id"`
	State    State  `json:"state"`
	Stage    State  `json:"stage,omitempty"`
	Cause    Cause  `json:"cause,omitempty"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// Transition is one entry of the transition log.
type Transition struct {
	State State
	Stage State
	Cause Cause
	At    time.Time
}

// Result is the outcome of a successful job.
type Result struct {
	JobID      string
	Metadata   media.Metadata
	Transcript string
	Segments   []transcription.Segment
	WordCount  int
	Model      model.Tier
	Engine     string
	Artifacts  []output.Artifact
	Duration   time.Duration
}

// Preview returns the first n runes of the transcript, with "..." appended
// when it was cut.
func (r *Result) Preview(n int) string {
	runes := []rune(r.Transcript)
	if len(runes) <= n {
		return r.Transcript
	}
	return string(runes[:n]) + "..."
}

// Job is a running or finished transcription.
type Job struct {
	id     string
	req    Request
	source media.Source
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}

	mu          sync.Mutex
	state       State
	transitions []Transition
	result      *Result
	err         error
}

// ID returns the job id.
func (j *Job) ID() string { return j.id }

// Request returns the request the job was submitted with.
func (j *Job) Request() Request { return j.req }

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Events streams state changes. The channel is closed when the job ends;
// events are dropped while the buffer is full.
func (j *Job) Events() <-chan Event { return j.events }

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel stops the job. It is safe to call at any time.
func (j *Job) Cancel() { j.cancel() }

// Wait blocks until the job finishes or ctx ends. A failed job returns a
// *StageError. ctx ending does not cancel the job.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Transitions returns a copy of the transition log.
func (j *Job) Transitions() []Transition {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Transition, len(j.transitions))
	copy(out, j.transitions)
	return out
}

// enter moves the job to s. Backward moves are ignored.
func (j *Job) enter(s State, stage State, cause Cause, msg string) bool {
	j.mu.Lock()
	if len(j.transitions) > 0 && (j.state.Terminal() || (!s.Terminal() && s.order() <= j.state.order())) {
		j.mu.Unlock()
		return false
	}
	j.state = s
	j.transitions = append(j.transitions, Transition{State: s, Stage: stage, Cause: cause, At: time.Now()})
	j.mu.Unlock()

	progress := s.Progress()
	if s == StateFailed {
		progress = stage.Progress()
	}
	if msg == "" {
		msg = s.message()
	}
	select {
	case j.events <- Event{JobID: j.id, State: s, Stage: stage, Cause: cause, Progress: progress, Message: msg}:
	default:
	}
	return true
}

func (j *Job) finish(res *Result, err error) {
	j.mu.Lock()
	j.result, j.err = res, err
	j.mu.Unlock()
	close(j.events)
	close(j.done)
}
