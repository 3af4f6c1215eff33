// Package whisper implements transcription.Provider against a
// faster-whisper HTTP sidecar.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kbukum/video-transcriber-mcp/httpclient"
	"github.com/kbukum/video-transcriber-mcp/provider"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

const (
	// ProviderName is the registered name for the Whisper sidecar provider.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 2 * time.Hour
)

// Config holds configuration for the Whisper sidecar provider.
type Config struct {
	URL         string        `json:"url" yaml:"url"`
	Model       string        `json:"model" yaml:"model"`
	Language    string        `json:"language,omitempty" yaml:"language"`
	Device      string        `json:"device,omitempty" yaml:"device"`
	ComputeType string        `json:"compute_type,omitempty" yaml:"compute_type"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// Provider implements transcription.Provider using a faster-whisper HTTP sidecar.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// NewProvider creates a new Whisper transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	client, err := httpclient.New(httpclient.Config{BaseURL: cfg.URL, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory builds sidecar providers from engine settings.
func Factory() provider.Factory[transcription.Settings, transcription.Provider] {
	return func(s transcription.Settings) (transcription.Provider, error) {
		return NewProvider(Config{URL: s.SidecarURL, Timeout: s.Timeout})
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the Whisper sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.StatusCode == http.StatusOK
}

// Transcribe uploads the audio file to the sidecar. The sidecar answers
// with the whole result at once, so the iterator walks an in-memory slice.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (provider.Iterator[transcription.Segment], error) {
	audio, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	defer audio.Close()

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	fields := map[string]string{"model": model}
	lang := p.cfg.Language
	if !req.AutoDetect() {
		lang = req.Language
	}
	if lang != "" && lang != "auto" {
		fields["language"] = lang
	}
	if p.cfg.Device != "" {
		fields["device"] = p.cfg.Device
	}
	if p.cfg.ComputeType != "" {
		fields["compute_type"] = p.cfg.ComputeType
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				FileName:    "audio.wav",
				ContentType: "audio/wav",
				Reader:      audio,
			}},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if resp != nil {
			return nil, fmt.Errorf("whisper error (status %d): %s: %w", resp.StatusCode, string(resp.Body), err)
		}
		return nil, fmt.Errorf("whisper request: %w", err)
	}

	var result whisperResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	return provider.FromSlice(toSegments(&result)), nil
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func toSegments(resp *whisperResponse) []transcription.Segment {
	if len(resp.Segments) == 0 && resp.Text != "" {
		return []transcription.Segment{{Text: resp.Text}}
	}
	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}
	return segments
}
