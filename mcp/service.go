package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/job"
	"github.com/kbukum/video-transcriber-mcp/jsonrpc"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/output"
	"github.com/kbukum/video-transcriber-mcp/probe"
	"github.com/kbukum/video-transcriber-mcp/storage"
	"github.com/kbukum/video-transcriber-mcp/validation"
)

// Tool names.
const (
	ToolTranscribeVideo    = "transcribe_video"
	ToolCheckDependencies  = "check_dependencies"
	ToolListSupportedSites = "list_supported_sites"
	ToolListTranscripts    = "list_transcripts"
)

// PreviewLength is the number of transcript characters shown in a
// transcribe_video result.
const PreviewLength = 500

// Instructions is sent to clients in the initialize result.
const Instructions = "Use transcribe_video with a video URL or a local file path to produce a transcript. " +
	"Run check_dependencies first if transcription fails. Saved transcripts are listed by " +
	"list_transcripts and exposed as resources."

// JobSubmitter starts transcription jobs.
type JobSubmitter interface {
	Submit(ctx context.Context, req job.Request) (*job.Job, error)
}

// DependencyChecker reports on external tools and models.
type DependencyChecker interface {
	CheckAll(ctx context.Context) probe.Report
}

// SiteLister lists the downloader's extractors.
type SiteLister interface {
	Extractors(ctx context.Context) ([]string, error)
}

// ServiceConfig holds the tool defaults.
type ServiceConfig struct {
	OutputDir      string
	DefaultTier    model.Tier
	DefaultFormats []output.Format
}

// ServiceDeps are the collaborators behind the tools.
type ServiceDeps struct {
	Jobs  JobSubmitter
	Probe DependencyChecker
	Sites SiteLister
}

// Service implements the transcription tools and transcript resources.
type Service struct {
	cfg    ServiceConfig
	deps   ServiceDeps
	writer *output.Writer
	log    *logger.Logger
}

// NewService creates the service. The output directory does not need to
// exist yet.
func NewService(cfg ServiceConfig, deps ServiceDeps, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = model.TierBase
	}
	if len(cfg.DefaultFormats) == 0 {
		cfg.DefaultFormats = output.AllFormats()
	}
	w, err := output.NewWriter(cfg.OutputDir, log)
	if err != nil {
		return nil, fmt.Errorf("open output directory: %w", err)
	}
	return &Service{cfg: cfg, deps: deps, writer: w, log: log.WithComponent("tools")}, nil
}

// Register adds the tools and resource methods to r.
func (s *Service) Register(r *Router) {
	r.AddTool(&Tool{
		Name: ToolTranscribeVideo,
		Description: "Transcribe videos from 1000+ platforms (YouTube, Vimeo, TikTok, Twitter, etc.) or local video files " +
			"using whisper.cpp. Downloads or extracts the audio and writes the transcript as TXT, JSON and Markdown.",
		InputSchema: s.transcribeSchema(),
		Handler:     s.transcribe,
	})
	r.AddTool(&Tool{
		Name:        ToolCheckDependencies,
		Description: "Check if all required dependencies (yt-dlp, ffmpeg, whisper models) are installed",
		Handler:     s.checkDependencies,
	})
	r.AddTool(&Tool{
		Name: ToolListSupportedSites,
		Description: "List all video platforms supported by yt-dlp (1000+ sites including YouTube, Vimeo, TikTok, " +
			"Twitter, Facebook, Instagram, educational platforms, and more)",
		Handler: s.listSupportedSites,
	})
	r.AddTool(&Tool{
		Name:        ToolListTranscripts,
		Description: "List all available transcripts in the output directory",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"output_dir": map[string]any{
					"type":        "string",
					"description": "Optional output directory path. Defaults to " + s.writer.Dir(),
				},
			},
		},
		Handler: s.listTranscripts,
	})
	r.Handle(MethodResourcesList, s.listResources)
	r.Handle(MethodResourcesRead, s.readResource)
}

type transcribeArgs struct {
	URL       string   `json:"url" validate:"notblank"`
	OutputDir string   `json:"output_dir" validate:"omitempty,max=4096"`
	Model     string   `json:"model" validate:"omitempty,oneof=tiny base small medium large"`
	Language  string   `json:"language" validate:"omitempty,max=16"`
	Formats   []string `json:"formats" validate:"omitempty,unique,dive,oneof=txt json md"`
}

func (s *Service) transcribeSchema() map[string]any {
	tiers := make([]string, 0, len(model.Tiers()))
	for _, t := range model.Tiers() {
		tiers = append(tiers, string(t))
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Video URL from any supported platform OR absolute/relative path to a local video file (mp4, avi, mov, mkv, etc.)",
			},
			"output_dir": map[string]any{
				"type":        "string",
				"description": "Optional output directory path. Defaults to " + s.writer.Dir(),
			},
			"model": map[string]any{
				"type":        "string",
				"enum":        tiers,
				"description": fmt.Sprintf("Whisper model to use. Larger models are more accurate but slower. Default: '%s'", s.cfg.DefaultTier),
			},
			"language": map[string]any{
				"type":        "string",
				"description": "Language code (ISO 639-1: en, es, fr, de, etc.) or 'auto' for automatic detection. Default: 'auto'",
			},
			"formats": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string", "enum": []string{"txt", "json", "md"}},
				"description": "Output formats to write. Default: all",
			},
		},
		"required": []string{"url"},
	}
}

func (s *Service) transcribe(ctx context.Context, call *Call, raw json.RawMessage) (*ToolResult, error) {
	var args transcribeArgs
	if err := jsonrpc.DecodeParams(raw, &args); err != nil {
		return nil, err
	}
	if err := validation.Validate(args); err != nil {
		return nil, err
	}

	req := job.Request{
		Source:    strings.TrimSpace(args.URL),
		Tier:      s.cfg.DefaultTier,
		Language:  args.Language,
		Formats:   s.cfg.DefaultFormats,
		OutputDir: args.OutputDir,
	}
	if args.Model != "" {
		req.Tier = model.Tier(args.Model)
	}
	if len(args.Formats) > 0 {
		formats, err := output.ParseFormats(args.Formats)
		if err != nil {
			return nil, errors.InvalidInput("formats", err.Error())
		}
		req.Formats = formats
	}

	j, err := s.deps.Jobs.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	log := call.log.WithFields(logger.Fields(logger.FieldJobID, j.ID()))
	log.Info("transcription started", logger.Fields(logger.FieldSource, req.Source, logger.FieldTier, string(req.Tier)))

	if err := s.follow(ctx, call, j, log); err != nil {
		return nil, err
	}
	res, err := j.Wait(context.WithoutCancel(ctx))
	if err != nil {
		log.Warn("transcription failed", logger.Fields(logger.FieldError, err.Error()))
		return nil, err
	}
	log.Info("transcription finished", logger.Fields("words", res.WordCount, logger.FieldDuration, res.Duration.Milliseconds()))
	return TextResult(renderTranscription(res)), nil
}

// follow forwards job events as progress until the job ends. A client
// cancel stops the job; a dropped caller leaves it running.
func (s *Service) follow(ctx context.Context, call *Call, j *job.Job, log *logger.Logger) error {
	done := ctx.Done()
	events := j.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			call.Progress(ctx, ev.Progress, ev.Message)
		case <-done:
			if reason, ok := CancelledByClient(ctx); ok {
				log.Info("cancelling job", logger.Fields("reason", reason))
				j.Cancel()
				done = nil
				continue
			}
			log.Info("caller went away, job continues")
			return ctx.Err()
		}
	}
}

func renderTranscription(res *job.Result) string {
	var b strings.Builder
	b.WriteString("✅ Video transcribed successfully!\n\n")
	b.WriteString("**Video Details:**\n")
	fmt.Fprintf(&b, "- Title: %s\n", res.Metadata.Title)
	fmt.Fprintf(&b, "- Platform: %s\n", res.Metadata.Platform)
	fmt.Fprintf(&b, "- Duration: %ds\n\n", res.Metadata.Duration)
	b.WriteString("**Transcription Settings:**\n")
	fmt.Fprintf(&b, "- Model: %s\n", res.Model)
	fmt.Fprintf(&b, "- Engine: %s\n\n", res.Engine)
	b.WriteString("**Output Files:**\n")
	for _, a := range res.Artifacts {
		if a.URL != "" {
			fmt.Fprintf(&b, "- %s: %s (copy: %s)\n", a.Format.Label(), a.Path, a.URL)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", a.Format.Label(), a.Path)
	}
	b.WriteString("\n**Transcript Preview:**\n")
	b.WriteString(res.Preview(PreviewLength))
	fmt.Fprintf(&b, "\n\n**Full transcript has %d words.**", res.WordCount)
	return b.String()
}

func (s *Service) checkDependencies(ctx context.Context, _ *Call, _ json.RawMessage) (*ToolResult, error) {
	return TextResult(s.deps.Probe.CheckAll(ctx).Text()), nil
}

var popularPlatforms = []string{
	"YouTube", "Vimeo", "TikTok", "Twitter/X", "Facebook", "Instagram",
	"Twitch", "Dailymotion", "Reddit", "LinkedIn",
	"Many educational and conference platforms",
}

func (s *Service) listSupportedSites(ctx context.Context, call *Call, _ json.RawMessage) (*ToolResult, error) {
	total := "1000+"
	if s.deps.Sites != nil {
		list, err := s.deps.Sites.Extractors(ctx)
		if err != nil {
			call.log.Debug("extractor list unavailable", logger.Fields(logger.FieldError, err.Error()))
		} else if len(list) > 0 {
			total = strconv.Itoa(len(list))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📺 Supported Video Platforms (%s total)\n\n", total)
	b.WriteString("**Popular platforms include:**\n")
	for _, p := range popularPlatforms {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	fmt.Fprintf(&b, "\n**Total: %s supported extractors**\n\n", total)
	b.WriteString("You can transcribe videos from any of these platforms!")
	return TextResult(b.String()), nil
}

type listTranscriptsArgs struct {
	OutputDir string `json:"output_dir" validate:"omitempty,max=4096"`
}

func (s *Service) writerFor(dir string) (*output.Writer, error) {
	if dir == "" {
		return s.writer, nil
	}
	w, err := output.NewWriter(dir, s.log)
	if err != nil {
		return nil, errors.InvalidInput("output_dir", err.Error())
	}
	return w, nil
}

func (s *Service) listTranscripts(ctx context.Context, _ *Call, raw json.RawMessage) (*ToolResult, error) {
	var args listTranscriptsArgs
	if err := jsonrpc.DecodeParams(raw, &args); err != nil {
		return nil, err
	}
	if err := validation.Validate(args); err != nil {
		return nil, err
	}
	w, err := s.writerFor(args.OutputDir)
	if err != nil {
		return nil, err
	}
	if !w.Exists() {
		return TextResult(fmt.Sprintf("📂 No transcripts directory found at: %s\n\nTranscribe your first video to create it!", w.Dir())), nil
	}

	groups, err := w.Groups(ctx)
	if err != nil {
		return nil, readError(err)
	}
	if len(groups) == 0 {
		return TextResult(fmt.Sprintf("📂 No transcripts found in %s\n\nTranscribe a video to get started!", w.Dir())), nil
	}

	items := make([]string, 0, len(groups))
	for i, g := range groups {
		f := g.Main()
		items = append(items, fmt.Sprintf("%d. **%s**\n   Video ID: %s\n   Files: %d (%s)\n   Size: %.2f KB\n   Modified: %s\n   Path: %s",
			i+1, g.Title, g.VideoID, len(g.Files), strings.Join(g.Extensions(), ", "),
			float64(f.Size)/1024, f.Modified.Format("2006-01-02"), f.Path))
	}
	return TextResult(fmt.Sprintf("📚 Available transcripts (%d videos):\n\n%s\n\n💡 Tip: You can read any transcript by asking me to read the file path shown above.",
		len(groups), strings.Join(items, "\n\n"))), nil
}

func (s *Service) listResources(ctx context.Context, _ *Call) (any, error) {
	resources := []Resource{}
	if s.writer.Exists() {
		files, err := s.writer.Files(ctx)
		if err != nil {
			return nil, readError(err)
		}
		for _, f := range files {
			resources = append(resources, Resource{
				URI:         "file://" + f.Path,
				Name:        f.Name,
				Description: f.Describe(),
				MimeType:    f.MimeType,
			})
		}
	}
	return map[string]any{"resources": resources}, nil
}

type readResourceArgs struct {
	URI string `json:"uri" validate:"notblank"`
}

func (s *Service) readResource(ctx context.Context, call *Call) (any, error) {
	var args readResourceArgs
	if err := jsonrpc.DecodeParams(call.Request.Params, &args); err != nil {
		return nil, err
	}
	if err := validation.Validate(args); err != nil {
		return nil, err
	}

	path := strings.TrimPrefix(args.URI, "file://")
	data, mime, err := s.writer.Read(ctx, filepath.Clean(path))
	if stderrors.Is(err, storage.ErrOutsideRoot) {
		return nil, validation.New().Fail("uri", "must name a transcript inside "+s.writer.Dir()).Err()
	}
	if err != nil {
		return nil, readError(err)
	}
	return map[string]any{"contents": []ResourceContents{{URI: args.URI, MimeType: mime, Text: string(data)}}}, nil
}

func readError(err error) *errors.AppError {
	return errors.New(errors.ErrCodePersistence, "Failed to read transcripts: "+err.Error(), http.StatusInternalServerError).WithCause(err)
}
