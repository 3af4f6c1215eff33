package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/video-transcriber-mcp/transcription"
)

// whisper-cli -oj output:
//
//	{"systeminfo": ..., "model": {...}, "result": {"language": "en"},
//	 "transcription": [{"timestamps": {...}, "offsets": {"from": 0, "to": 2000}, "text": " Hi"}]}
type outputEntry struct {
	Offsets struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"offsets"`
	Text string `json:"text"`
}

// segmentIterator decodes the transcription array one element per Next.
type segmentIterator struct {
	rc      io.ReadCloser
	dec     *json.Decoder
	started bool
	done    bool
}

func newSegmentIterator(rc io.ReadCloser) *segmentIterator {
	return &segmentIterator{rc: rc, dec: json.NewDecoder(rc)}
}

func (it *segmentIterator) Next(ctx context.Context) (transcription.Segment, bool, error) {
	var zero transcription.Segment
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if !it.started {
		it.started = true
		if err := it.seek(); err != nil {
			it.done = true
			return zero, false, err
		}
	}
	for !it.done {
		if !it.dec.More() {
			it.done = true
			break
		}
		var e outputEntry
		if err := it.dec.Decode(&e); err != nil {
			it.done = true
			return zero, false, fmt.Errorf("whisper-cpp: decode segment: %w", err)
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		return transcription.Segment{
			Start: float64(e.Offsets.From) / 1000,
			End:   float64(e.Offsets.To) / 1000,
			Text:  text,
		}, true, nil
	}
	return zero, false, nil
}

func (it *segmentIterator) Close() error {
	return it.rc.Close()
}

// seek advances the decoder to the first element of "transcription". A
// document without that key yields no segments.
func (it *segmentIterator) seek() error {
	tok, err := it.dec.Token()
	if err != nil {
		return fmt.Errorf("whisper-cpp: read output: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("whisper-cpp: output is not a JSON object")
	}
	for it.dec.More() {
		keyTok, err := it.dec.Token()
		if err != nil {
			return fmt.Errorf("whisper-cpp: read output: %w", err)
		}
		key, _ := keyTok.(string)
		if key != "transcription" {
			var skip json.RawMessage
			if err := it.dec.Decode(&skip); err != nil {
				return fmt.Errorf("whisper-cpp: read output: %w", err)
			}
			continue
		}
		tok, err := it.dec.Token()
		if err != nil {
			return fmt.Errorf("whisper-cpp: read output: %w", err)
		}
		if tok == nil {
			it.done = true
			return nil
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return fmt.Errorf("whisper-cpp: transcription is not an array")
		}
		return nil
	}
	it.done = true
	return nil
}
