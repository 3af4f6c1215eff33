package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/provider"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

type fakeProvider struct {
	calls    atomic.Int32
	running  atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	segments []transcription.Segment
	err      error
}

func (f *fakeProvider) Name() string                     { return "fake" }
func (f *fakeProvider) IsAvailable(context.Context) bool { return true }

func (f *fakeProvider) Transcribe(ctx context.Context, req transcription.Request) (provider.Iterator[transcription.Segment], error) {
	f.calls.Add(1)
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return provider.FromSlice(f.segments), nil
}

var audio = &media.Audio{Path: "/tmp/audio.wav", SampleRate: 16000, Channels: 1, Duration: time.Second}

func TestTranscribeCollectsSegments(t *testing.T) {
	p := &fakeProvider{segments: []transcription.Segment{{Text: "hello"}, {Text: "world"}}}
	e := New(p, 1, nil)
	tr, err := e.Transcribe(context.Background(), audio, transcription.Request{ModelPath: "m"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hello world" || len(tr.Segments) != 2 {
		t.Errorf("unexpected transcript %+v", tr)
	}
}

func TestTranscribeEmptyAudioSkipsProvider(t *testing.T) {
	p := &fakeProvider{}
	e := New(p, 1, nil)
	tr, err := e.Transcribe(context.Background(), &media.Audio{Path: "x.wav"}, transcription.Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "" || p.calls.Load() != 0 {
		t.Errorf("expected empty transcript without provider call, got %+v (%d calls)", tr, p.calls.Load())
	}
}

func TestTranscribeMapsErrors(t *testing.T) {
	e := New(&fakeProvider{err: fmt.Errorf("segfault")}, 1, nil)
	_, err := e.Transcribe(context.Background(), audio, transcription.Request{})
	if !errors.Is(err, errors.ErrCodeInference) {
		t.Errorf("expected INFERENCE_ERROR, got %v", err)
	}

	e = New(&fakeProvider{err: errors.DependencyMissing("whisper-cli", "install it")}, 1, nil)
	_, err = e.Transcribe(context.Background(), audio, transcription.Request{})
	if !errors.Is(err, errors.ErrCodeInference) {
		t.Errorf("expected INFERENCE_ERROR for missing binary, got %v", err)
	}
}

func TestTranscribeCancelled(t *testing.T) {
	e := New(&fakeProvider{delay: time.Second}, 1, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Transcribe(ctx, audio, transcription.Request{})
	if err != context.DeadlineExceeded {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestTranscribeBoundedConcurrency(t *testing.T) {
	p := &fakeProvider{delay: 20 * time.Millisecond}
	e := New(p, 2, nil)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Transcribe(context.Background(), audio, transcription.Request{})
		}()
	}
	wg.Wait()
	if p.peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent runs, got %d", p.peak.Load())
	}
	if p.calls.Load() != 6 {
		t.Errorf("expected 6 runs, got %d", p.calls.Load())
	}
}

func TestNewFromConfig(t *testing.T) {
	e, err := NewFromConfig(Config{Provider: "whisper-cpp", Binary: "my-whisper"}, nil, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if e.Name() != "whisper-cpp" || e.Binary() != "my-whisper" {
		t.Errorf("unexpected engine %s/%s", e.Name(), e.Binary())
	}

	e, err = NewFromConfig(Config{Provider: "whisper"}, nil, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if e.Binary() != "" {
		t.Errorf("expected no binary for sidecar engine, got %q", e.Binary())
	}

	if _, err := NewFromConfig(Config{Provider: "vosk"}, nil, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
