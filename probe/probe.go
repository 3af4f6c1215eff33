// Package probe reports which external tools and model files are present.
//
// CheckAll never fails: a missing tool is data for the caller, not an
// error. Probing runs local commands only and never touches the network.
package probe

import (
	"context"
	stderrors "errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/process"
)

// Status is the tri-state outcome for one dependency.
type Status string

const (
	StatusOK           Status = "present-and-compatible"
	StatusIncompatible Status = "present-but-incompatible-version"
	StatusAbsent       Status = "absent"
)

// Kind groups report entries.
type Kind string

const (
	KindTool  Kind = "tool"
	KindModel Kind = "model"
)

// Entry is one line of the report.
type Entry struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Status  Status `json:"status"`
	Version string `json:"version,omitempty"`
	Minimum string `json:"minimum,omitempty"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Tool describes an executable to check.
type Tool struct {
	Name        string
	Binary      string
	VersionArgs []string
	// Minimum is a dotted version; empty skips the version check.
	Minimum string
	Hint    string
}

// ModelStatus reports local model files.
type ModelStatus interface {
	StatusAll() []model.Asset
}

// Prober checks tools and models.
type Prober struct {
	tools    []Tool
	exec     process.Executor
	models   ModelStatus
	lookPath func(string) (string, error)
	timeout  time.Duration
	log      *logger.Logger
}

// Option customizes a Prober.
type Option func(*Prober)

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(p *Prober) { p.lookPath = fn }
}

// WithTimeout bounds each version command.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// New creates a Prober. models may be nil.
func New(tools []Tool, executor process.Executor, models ModelStatus, log *logger.Logger, opts ...Option) *Prober {
	if log == nil {
		log = logger.NewNop()
	}
	p := &Prober{
		tools:    tools,
		exec:     executor,
		models:   models,
		lookPath: exec.LookPath,
		timeout:  10 * time.Second,
		log:      log.WithComponent("probe"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultTools returns the tools the pipeline shells out to. An empty
// engineBinary means the engine is remote and is not probed.
func DefaultTools(ytdlp, ffmpeg, engineBinary string) []Tool {
	tools := []Tool{
		{Name: "yt-dlp", Binary: ytdlp, VersionArgs: []string{"--version"}, Minimum: "2023.01.01", Hint: "pip install -U yt-dlp"},
		{Name: "ffmpeg", Binary: ffmpeg, VersionArgs: []string{"-version"}, Minimum: "4.0", Hint: "brew install ffmpeg / apt install ffmpeg"},
	}
	if engineBinary != "" {
		tools = append(tools, Tool{Name: "whisper.cpp", Binary: engineBinary, VersionArgs: []string{"--help"}, Hint: "brew install whisper-cpp"})
	}
	return tools
}

// CheckAll probes every tool and model tier.
func (p *Prober) CheckAll(ctx context.Context) Report {
	var r Report
	for _, t := range p.tools {
		r.Entries = append(r.Entries, p.checkTool(ctx, t))
	}
	if p.models != nil {
		for _, a := range p.models.StatusAll() {
			r.Entries = append(r.Entries, modelEntry(a))
		}
	}
	return r
}

func (p *Prober) checkTool(ctx context.Context, t Tool) Entry {
	e := Entry{Name: t.Name, Kind: KindTool, Minimum: t.Minimum}

	path, err := p.lookPath(t.Binary)
	if err != nil {
		e.Status = StatusAbsent
		e.Detail = t.Hint
		return e
	}
	e.Path = path

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	res, err := p.exec.Run(cctx, process.Command{Binary: path, Args: t.VersionArgs})
	if err != nil {
		if stderrors.Is(err, process.ErrBinaryNotFound) {
			e.Status = StatusAbsent
			e.Detail = t.Hint
			return e
		}
		if t.Minimum != "" {
			p.log.Debug("version command failed", logger.Fields("tool", t.Name, logger.FieldError, err.Error()))
			e.Status = StatusIncompatible
			e.Detail = "version check failed: " + res.StderrTail(1)
			return e
		}
	}

	var out string
	if res != nil {
		out = string(res.Stdout)
		if out == "" {
			out = string(res.Stderr)
		}
	}
	e.Version = ParseVersion(out)
	e.Status = StatusOK
	if t.Minimum != "" && e.Version != "" && CompareVersions(e.Version, t.Minimum) < 0 {
		e.Status = StatusIncompatible
		e.Detail = "requires " + t.Minimum + " or newer"
	}
	return e
}

func modelEntry(a model.Asset) Entry {
	e := Entry{Name: string(a.Tier), Kind: KindModel, Path: a.Path, Size: a.Size}
	switch a.State {
	case model.StateReady:
		e.Status = StatusOK
	case model.StateDownloading:
		e.Status = StatusIncompatible
		e.Detail = "download in progress"
	default:
		e.Status = StatusAbsent
	}
	return e
}

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)+`)

// ParseVersion extracts the first dotted version number from a tool's
// version output, or "" when there is none.
func ParseVersion(out string) string {
	return versionPattern.FindString(out)
}

// CompareVersions compares dotted numeric versions: -1, 0 or 1.
// Missing components count as zero.
func CompareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		var x, y int
		if i < len(as) {
			x, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			y, _ = strconv.Atoi(bs[i])
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
