package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/process"
)

type scriptedExec struct {
	calls []process.Command
	run   func(cmd process.Command) (*process.Result, error)
}

func (s *scriptedExec) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	s.calls = append(s.calls, cmd)
	return s.run(cmd)
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		raw  string
		kind SourceKind
	}{
		{"https://www.youtube.com/watch?v=abc", SourceRemote},
		{"HTTP://example.com/v.mp4", SourceRemote},
		{"/tmp/video.mp4", SourceLocal},
		{"ftp://example.com/v.mp4", SourceLocal},
		{"relative/clip.mov", SourceLocal},
	}
	for _, tc := range tests {
		if got := ParseSource(tc.raw).Kind; got != tc.kind {
			t.Errorf("ParseSource(%q): expected %s, got %s", tc.raw, tc.kind, got)
		}
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url, extractor, want string
	}{
		{"https://www.youtube.com/watch?v=x", "", "YouTube"},
		{"https://youtu.be/x", "", "YouTube"},
		{"https://vimeo.com/123", "", "Vimeo"},
		{"https://x.com/user/status/1", "", "Twitter/X"},
		{"https://fb.watch/abc", "", "Facebook"},
		{"https://www.twitch.tv/videos/1", "", "Twitch"},
		{"https://box.com/video", "", "Unknown"},
		{"https://example.org/v", "Generic", "Generic"},
	}
	for _, tc := range tests {
		if got := DetectPlatform(tc.url, tc.extractor); got != tc.want {
			t.Errorf("DetectPlatform(%q): expected %q, got %q", tc.url, tc.want, got)
		}
	}
}

func TestResolveLocalMissing(t *testing.T) {
	_, err := ResolveLocal("/tmp/does-not-exist.mp4")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestResolveLocalUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	_ = os.WriteFile(path, []byte("x"), 0o644)
	_, err := ResolveLocal(path)
	if !errors.Is(err, errors.ErrCodeAcquisition) {
		t.Fatalf("expected ACQUISITION_ERROR, got %v", err)
	}
}

func TestResolveLocalOK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "My Talk.mp4")
	_ = os.WriteFile(path, []byte("x"), 0o644)
	acq, err := ResolveLocal(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acq.Metadata.VideoID != "My Talk" || acq.Metadata.Platform != "Local File" {
		t.Errorf("unexpected metadata %+v", acq.Metadata)
	}
	if acq.MediaPath != path {
		t.Errorf("expected media path %q, got %q", path, acq.MediaPath)
	}
}

func TestAcquireRemote(t *testing.T) {
	work := t.TempDir()
	exec := &scriptedExec{run: func(cmd process.Command) (*process.Result, error) {
		if slices.Contains(cmd.Args, "--dump-json") {
			return &process.Result{Stdout: []byte(`{"id":"dQw4","title":"Never Gonna","uploader":"Rick","duration":212.4,"upload_date":"20091025","extractor_key":"Youtube"}` + "\n")}, nil
		}
		_ = os.WriteFile(filepath.Join(work, "source.mp3"), []byte("mp3"), 0o644)
		return &process.Result{}, nil
	}}
	a := NewAcquirer(Config{}, exec, logger.NewNop())

	acq, err := a.Acquire(context.Background(), "https://www.youtube.com/watch?v=dQw4", work)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	m := acq.Metadata
	if m.VideoID != "dQw4" || m.Channel != "Rick" || m.Duration != 212 || m.Platform != "YouTube" {
		t.Errorf("unexpected metadata %+v", m)
	}
	if acq.MediaPath != filepath.Join(work, "source.mp3") {
		t.Errorf("unexpected media path %q", acq.MediaPath)
	}
	if len(exec.calls) != 2 {
		t.Errorf("expected exactly two yt-dlp calls, got %d", len(exec.calls))
	}
}

func TestAcquireFailureIsNotRetried(t *testing.T) {
	exec := &scriptedExec{run: func(process.Command) (*process.Result, error) {
		return &process.Result{Stderr: []byte("ERROR: [youtube] x: Video unavailable\n"), ExitCode: 1},
			fmt.Errorf("process: exit code 1")
	}}
	a := NewAcquirer(Config{}, exec, logger.NewNop())

	_, err := a.Acquire(context.Background(), "https://youtu.be/x", t.TempDir())
	if !errors.Is(err, errors.ErrCodeAcquisition) {
		t.Fatalf("expected ACQUISITION_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Errorf("expected stderr reason in error, got %v", err)
	}
	if len(exec.calls) != 1 {
		t.Errorf("expected a single attempt, got %d", len(exec.calls))
	}
}

func TestAcquireMissingBinary(t *testing.T) {
	exec := &scriptedExec{run: func(process.Command) (*process.Result, error) {
		return &process.Result{ExitCode: -1}, fmt.Errorf("%w: yt-dlp", process.ErrBinaryNotFound)
	}}
	a := NewAcquirer(Config{}, exec, logger.NewNop())
	_, err := a.Acquire(context.Background(), "https://youtu.be/x", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Fatalf("expected install hint, got %v", err)
	}
}

func TestExtractorsCachedOnSuccess(t *testing.T) {
	exec := &scriptedExec{run: func(process.Command) (*process.Result, error) {
		return &process.Result{Stdout: []byte("youtube\nvimeo\n\n")}, nil
	}}
	a := NewAcquirer(Config{}, exec, logger.NewNop())
	for i := 0; i < 2; i++ {
		list, err := a.Extractors(context.Background())
		if err != nil {
			t.Fatalf("Extractors: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("expected 2 extractors, got %v", list)
		}
	}
	if len(exec.calls) != 1 {
		t.Errorf("expected one yt-dlp call, got %d", len(exec.calls))
	}
}

func TestExtract(t *testing.T) {
	work := t.TempDir()
	exec := &scriptedExec{run: func(cmd process.Command) (*process.Result, error) {
		out := cmd.Args[len(cmd.Args)-1]
		// header plus two seconds of samples
		_ = os.WriteFile(out, make([]byte, wavHeaderSize+2*SampleRate*bytesPerSample), 0o644)
		return &process.Result{}, nil
	}}
	e := NewExtractor(Config{}, exec, logger.NewNop())

	audio, err := e.Extract(context.Background(), "/media/in.mp4", work)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if audio.Duration != 2*time.Second {
		t.Errorf("expected 2s, got %v", audio.Duration)
	}
	args := strings.Join(exec.calls[0].Args, " ")
	if !strings.Contains(args, "-ac 1 -ar 16000 -c:a pcm_s16le") {
		t.Errorf("unexpected ffmpeg args %q", args)
	}
}

func TestExtractEmptyAudio(t *testing.T) {
	exec := &scriptedExec{run: func(cmd process.Command) (*process.Result, error) {
		_ = os.WriteFile(cmd.Args[len(cmd.Args)-1], make([]byte, wavHeaderSize), 0o644)
		return &process.Result{}, nil
	}}
	audio, err := NewExtractor(Config{}, exec, logger.NewNop()).Extract(context.Background(), "in.mp3", t.TempDir())
	if err != nil {
		t.Fatalf("empty audio must not be an error: %v", err)
	}
	if !audio.Empty() {
		t.Errorf("expected empty track, got %v", audio.Duration)
	}
}

func TestExtractTruncatedOutput(t *testing.T) {
	for _, size := range []int{0, wavHeaderSize - 1} {
		exec := &scriptedExec{run: func(cmd process.Command) (*process.Result, error) {
			_ = os.WriteFile(cmd.Args[len(cmd.Args)-1], make([]byte, size), 0o644)
			return &process.Result{}, nil
		}}
		_, err := NewExtractor(Config{}, exec, logger.NewNop()).Extract(context.Background(), "in.mp3", t.TempDir())
		if !errors.Is(err, errors.ErrCodeCodec) {
			t.Errorf("%d bytes: expected CODEC_ERROR, got %v", size, err)
		}
	}
}

func TestExtractMissingOutput(t *testing.T) {
	exec := &scriptedExec{run: func(process.Command) (*process.Result, error) {
		return &process.Result{}, nil
	}}
	_, err := NewExtractor(Config{}, exec, logger.NewNop()).Extract(context.Background(), "in.mp3", t.TempDir())
	if !errors.Is(err, errors.ErrCodeCodec) {
		t.Fatalf("expected CODEC_ERROR, got %v", err)
	}
}

func TestExtractCorruptInput(t *testing.T) {
	exec := &scriptedExec{run: func(process.Command) (*process.Result, error) {
		return &process.Result{Stderr: []byte("in.mp4: Invalid data found when processing input\n"), ExitCode: 1},
			fmt.Errorf("process: exit code 1")
	}}
	_, err := NewExtractor(Config{}, exec, logger.NewNop()).Extract(context.Background(), "in.mp4", t.TempDir())
	if !errors.Is(err, errors.ErrCodeCodec) {
		t.Fatalf("expected CODEC_ERROR, got %v", err)
	}
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &scriptedExec{run: func(process.Command) (*process.Result, error) {
		cancel()
		return &process.Result{ExitCode: -1}, fmt.Errorf("process: killed by context: %w", context.Canceled)
	}}
	_, err := NewExtractor(Config{}, exec, logger.NewNop()).Extract(ctx, "in.mp4", t.TempDir())
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
